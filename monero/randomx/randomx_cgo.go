//go:build cgo && enable_randomx_library && !purego

package randomx

import (
	"errors"
	"runtime"
	"slices"
	"sync"
	"unsafe"

	"git.gammaspectra.live/P2Pool/randomx-go-bindings"
	"git.gammaspectra.live/P2Pool/sharechain/types"
	"git.gammaspectra.live/P2Pool/sharechain/utils"
	fasthex "github.com/tmthrgd/go-hex"
)

type hasherState struct {
	lock    sync.Mutex
	dataset *randomx.RxDataset
	vm      *randomx.RxVM
	flags   randomx.Flag
	key     []byte
}

// ConsensusHash side chain consensus id of buf, derived from a RandomX light cache keyed by buf
func ConsensusHash(buf []byte) types.Hash {
	cache, err := randomx.AllocCache(randomx.GetFlags())
	if err != nil {
		utils.Errorf("RandomX", "could not allocate cache: %s", err)
		return types.ZeroHash
	}
	defer randomx.ReleaseCache(cache)

	randomx.InitCache(cache, buf)

	const RandomxArgonMemory = 262144
	n := RandomxArgonMemory * 1024

	scratchpad := unsafe.Slice((*byte)(randomx.GetCacheMemory(cache)), n)
	return consensusHash(scratchpad)
}

func newRandomXState(flags ...Flag) (*hasherState, error) {
	applyFlags := randomx.GetFlags()
	for _, f := range flags {
		switch f {
		case FlagLargePages:
			applyFlags |= randomx.FlagLargePages
		case FlagFullMemory:
			applyFlags |= randomx.FlagFullMEM
		case FlagSecure:
			applyFlags |= randomx.FlagSecure
		}
	}
	h := &hasherState{
		flags: applyFlags,
	}
	if dataset, err := randomx.NewRxDataset(h.flags); err != nil {
		return nil, err
	} else {
		h.dataset = dataset
	}

	return h, nil
}

func (h *hasherState) Init(key []byte) (err error) {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.key = slices.Clone(key)

	utils.Logf("RandomX", "Initializing to seed %s", fasthex.EncodeToString(h.key))
	if !h.dataset.GoInit(h.key, uint32(utils.GOMAXPROCS)) {
		return errors.New("could not initialize dataset")
	}
	if h.vm != nil {
		h.vm.Close()
	}

	if h.vm, err = randomx.NewRxVM(h.dataset, h.flags); err != nil {
		return err
	}

	utils.Logf("RandomX", "Initialized to seed %s", fasthex.EncodeToString(h.key))

	return nil
}

func (h *hasherState) Hash(input []byte) (output types.Hash) {
	h.lock.Lock()
	defer h.lock.Unlock()
	outputBuf := h.vm.CalcHash(input)
	copy(output[:], outputBuf[:])
	runtime.KeepAlive(input)
	return
}

func (h *hasherState) Close() {
	h.lock.Lock()
	defer h.lock.Unlock()
	if h.vm != nil {
		h.vm.Close()
	}
	h.dataset.Close()
}
