package randomx

import (
	"bytes"
	"crypto/subtle"
	"errors"
	"slices"
	"sync"

	"git.gammaspectra.live/P2Pool/sharechain/monero/crypto"
	"git.gammaspectra.live/P2Pool/sharechain/types"
)

type Hasher interface {
	Hash(key []byte, input []byte) (types.Hash, error)
	OptionFlags(flags ...Flag) error
	OptionNumberOfCachedStates(n int) error
	Close()
}

// BlobHasher proof of work backend invoked with an assembled hashing blob.
// seedHash is the host chain seed block id in effect at height.
type BlobHasher interface {
	Calculate(blob []byte, height uint64, seedHash types.Hash) (types.Hash, error)
}

var ErrNoSeed = errors.New("could not get seed")

type blobHasher struct {
	hasher Hasher
}

// NewBlobHasher adapts a Hasher, a zero seed hash is reported as ErrNoSeed
func NewBlobHasher(h Hasher) BlobHasher {
	return blobHasher{hasher: h}
}

func (b blobHasher) Calculate(blob []byte, height uint64, seedHash types.Hash) (types.Hash, error) {
	if seedHash == types.ZeroHash {
		return types.ZeroHash, ErrNoSeed
	}
	return b.hasher.Hash(seedHash[:], blob)
}

func SeedHeights(height uint64) (seedHeight, nextHeight uint64) {
	return SeedHeight(height), SeedHeight(height + SeedHashEpochLag)
}

func SeedHeight(height uint64) uint64 {
	if height <= SeedHashEpochBlocks+SeedHashEpochLag {
		return 0
	}

	return (height - SeedHashEpochLag - 1) & (^uint64(SeedHashEpochBlocks - 1))
}

type Flag int

const (
	FlagLargePages Flag = 1 << iota
	FlagFullMemory
	FlagSecure
)

const (
	SeedHashEpochLag    = 64
	SeedHashEpochBlocks = 2048
)

// hasherCollection round robin set of states, each initialized to one key
type hasherCollection struct {
	lock  sync.RWMutex
	index int
	flags []Flag
	cache []*hasherState
}

func NewRandomX(n int, flags ...Flag) (Hasher, error) {
	collection := &hasherCollection{
		flags: flags,
	}

	if err := collection.initStates(n); err != nil {
		return nil, err
	}
	return collection, nil
}

func (h *hasherCollection) find(key []byte) *hasherState {
	for _, c := range h.cache {
		if len(c.key) > 0 && bytes.Equal(c.key, key) {
			return c
		}
	}
	return nil
}

func (h *hasherCollection) Hash(key []byte, input []byte) (types.Hash, error) {
	if state := func() *hasherState {
		h.lock.RLock()
		defer h.lock.RUnlock()
		return h.find(key)
	}(); state != nil {
		return state.Hash(input), nil
	}

	h.lock.Lock()
	defer h.lock.Unlock()
	if state := h.find(key); state != nil {
		return state.Hash(input), nil
	}
	if len(h.cache) == 0 {
		return types.ZeroHash, errors.New("no hasher states")
	}
	index := h.index
	h.index = (h.index + 1) % len(h.cache)
	if err := h.cache[index].Init(key); err != nil {
		return types.ZeroHash, err
	}
	return h.cache[index].Hash(input), nil
}

func (h *hasherCollection) initStates(size int) (err error) {
	for _, c := range h.cache {
		c.Close()
	}
	h.index = 0
	h.cache = make([]*hasherState, size)
	for i := range h.cache {
		if h.cache[i], err = newRandomXState(h.flags...); err != nil {
			return err
		}
	}
	return nil
}

func (h *hasherCollection) OptionFlags(flags ...Flag) error {
	h.lock.Lock()
	defer h.lock.Unlock()
	if !slices.Equal(h.flags, flags) {
		h.flags = flags
		return h.initStates(len(h.cache))
	}
	return nil
}

func (h *hasherCollection) OptionNumberOfCachedStates(n int) error {
	h.lock.Lock()
	defer h.lock.Unlock()
	if len(h.cache) != n {
		return h.initStates(n)
	}
	return nil
}

func (h *hasherCollection) Close() {
	h.lock.Lock()
	defer h.lock.Unlock()
	for _, c := range h.cache {
		c.Close()
	}
	h.cache = nil
}

// consensusHash folds an initialized light cache into its first scratchpad sized chunk
func consensusHash(scratchpad []byte) types.Hash {
	// Intentionally not a power of 2
	const ScratchpadSize = 1009

	const RandomxArgonMemory = 262144
	n := RandomxArgonMemory * 1024

	const Vec128Size = 128 / 8

	cachePtr := scratchpad[ScratchpadSize*Vec128Size:]
	scratchpadTopPtr := scratchpad[:ScratchpadSize*Vec128Size]
	for i := ScratchpadSize * Vec128Size; i < n; i += ScratchpadSize * Vec128Size {
		stride := ScratchpadSize * Vec128Size
		if stride > len(cachePtr) {
			stride = len(cachePtr)
		}
		subtle.XORBytes(scratchpadTopPtr, scratchpadTopPtr, cachePtr[:stride])
		cachePtr = cachePtr[stride:]
	}

	return crypto.Keccak256(scratchpadTopPtr)
}
