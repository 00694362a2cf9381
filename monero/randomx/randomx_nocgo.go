//go:build !cgo || !enable_randomx_library || purego

package randomx

import (
	"fmt"
	"runtime"
	"slices"
	"sync"
	"unsafe"

	"git.gammaspectra.live/P2Pool/go-randomx/v4"
	"git.gammaspectra.live/P2Pool/sharechain/types"
	"git.gammaspectra.live/P2Pool/sharechain/utils"
	fasthex "github.com/tmthrgd/go-hex"
)

type hasherState struct {
	lock    sync.Mutex
	cache   *randomx.Cache
	dataset *randomx.Dataset
	vm      *randomx.VM
	flags   randomx.Flags
	key     []byte
}

// ConsensusHash side chain consensus id of buf, derived from a RandomX light cache keyed by buf
func ConsensusHash(buf []byte) types.Hash {
	cache, err := randomx.NewCache(0)
	if err != nil {
		utils.Errorf("RandomX", "could not allocate cache: %s", err)
		return types.ZeroHash
	}
	defer cache.Close()

	cache.Init(buf)

	memory := cache.GetMemory()
	scratchpad := unsafe.Slice((*byte)(unsafe.Pointer(memory)), len(memory)*len(memory[0])*int(unsafe.Sizeof(uint64(0))))
	defer runtime.KeepAlive(cache)

	return consensusHash(scratchpad)
}

func newRandomXState(flags ...Flag) (*hasherState, error) {
	applyFlags := randomx.GetFlags()
	for _, f := range flags {
		switch f {
		case FlagLargePages:
			applyFlags |= randomx.RANDOMX_FLAG_LARGE_PAGES
		case FlagFullMemory:
			applyFlags |= randomx.RANDOMX_FLAG_FULL_MEM
		case FlagSecure:
			applyFlags |= randomx.RANDOMX_FLAG_SECURE
		}
	}
	h := &hasherState{
		flags: applyFlags,
	}
	var err error

	if h.cache, err = randomx.NewCache(h.flags); err != nil {
		return nil, err
	}

	if slices.Contains(flags, FlagFullMemory) {
		if h.dataset, err = randomx.NewDataset(h.flags); err != nil {
			h.Close()
			return nil, fmt.Errorf("couldn't initialize dataset: %w", err)
		}
	}

	if h.vm, err = randomx.NewVM(h.flags, h.cache, h.dataset); err != nil {
		h.Close()
		return nil, fmt.Errorf("couldn't initialize vm: %w", err)
	}

	return h, nil
}

func (h *hasherState) Init(key []byte) (err error) {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.key = slices.Clone(key)

	utils.Logf("RandomX", "Initializing to seed %s", fasthex.EncodeToString(h.key))
	h.cache.Init(h.key)
	if h.dataset != nil {
		h.dataset.InitDatasetParallel(h.cache, utils.GOMAXPROCS)
	}
	utils.Logf("RandomX", "Initialized to seed %s", fasthex.EncodeToString(h.key))

	return nil
}

func (h *hasherState) Hash(input []byte) (output types.Hash) {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.vm.CalculateHash(input, (*[32]byte)(&output))
	runtime.KeepAlive(input)
	return
}

func (h *hasherState) Close() {
	h.lock.Lock()
	defer h.lock.Unlock()
	if h.vm != nil {
		h.vm.Close()
	}
	if h.dataset != nil {
		h.dataset.Close()
	}
	if h.cache != nil {
		h.cache.Close()
	}
}
