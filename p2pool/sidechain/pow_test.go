package sidechain

import (
	"errors"
	"sync/atomic"
	"testing"

	"git.gammaspectra.live/P2Pool/sharechain/monero/crypto"
	"git.gammaspectra.live/P2Pool/sharechain/monero/randomx"
	"git.gammaspectra.live/P2Pool/sharechain/types"
	fasthex "github.com/tmthrgd/go-hex"
)

var testSeed = crypto.Keccak256Single([]byte("seed"))

// testBlobHasher keccak(seed ‖ height ‖ blob), records the last call
type testBlobHasher struct {
	calls  atomic.Uint64
	result *types.Hash
	err    error

	lastBlob   atomic.Pointer[[]byte]
	lastHeight atomic.Uint64
}

func (h *testBlobHasher) Calculate(blob []byte, height uint64, seedHash types.Hash) (types.Hash, error) {
	h.calls.Add(1)
	buf := append([]byte(nil), blob...)
	h.lastBlob.Store(&buf)
	h.lastHeight.Store(height)
	if h.err != nil {
		return types.ZeroHash, h.err
	}
	if h.result != nil {
		return *h.result, nil
	}
	return crypto.Keccak256(seedHash[:], []byte{byte(height), byte(height >> 8), byte(height >> 16)}, blob), nil
}

func TestPoolBlock_PowHash(t *testing.T) {
	for _, e := range testPoolBlocks {
		t.Run(e.Name, func(t *testing.T) {
			b := e.Block(t)
			hasher := &testBlobHasher{}

			powHash, err := b.PowHash(hasher, e.GenHeight, testSeed)
			if err != nil {
				t.Fatal(err)
			}

			expectedBlob, _ := fasthex.DecodeString(e.HashingBlob)
			expectBytes(t, "hasher input", *hasher.lastBlob.Load(), expectedBlob)
			if hasher.lastHeight.Load() != e.GenHeight {
				t.Fatalf("expected height %d, got %d", e.GenHeight, hasher.lastHeight.Load())
			}

			if expected, _ := hasher.Calculate(expectedBlob, e.GenHeight, testSeed); powHash != expected {
				t.Fatalf("expected pow hash %s, got %s", expected, powHash)
			}
		})
	}
}

func TestPoolBlock_PowHashErrors(t *testing.T) {
	b := testPoolBlocks[0].Block(t)

	errHasher := errors.New("hasher failure")
	if _, err := b.PowHash(&testBlobHasher{err: errHasher}, testPoolBlocks[0].GenHeight, testSeed); !errors.Is(err, errHasher) {
		t.Fatalf("expected hasher error, got %v", err)
	}

	hasher := &testBlobHasher{}
	if _, err := (&PoolBlock{}).PowHash(hasher, 0, testSeed); !errors.Is(err, ErrUninitializedBlock) {
		t.Fatalf("expected ErrUninitializedBlock, got %v", err)
	}
	if hasher.calls.Load() != 0 {
		t.Fatal("hasher called for uninitialized block")
	}

	// blob assembly happens before the seed is looked at
	if _, err := b.PowHash(randomx.NewBlobHasher(nil), testPoolBlocks[0].GenHeight, types.ZeroHash); !errors.Is(err, randomx.ErrNoSeed) {
		t.Fatalf("expected ErrNoSeed, got %v", err)
	}
}

func TestPoolBlock_IsProofHigherThanDifficulty(t *testing.T) {
	b := testPoolBlocks[0].Block(t)

	zero := types.ZeroHash
	if ok, err := b.IsProofHigherThanDifficulty(&testBlobHasher{result: &zero}, testSeed); err != nil {
		t.Fatal(err)
	} else if !ok {
		t.Fatal("zero hash must satisfy any difficulty")
	}

	var highest types.Hash
	for i := range highest {
		highest[i] = 0xff
	}
	if ok, err := b.IsProofHigherThanDifficulty(&testBlobHasher{result: &highest}, testSeed); err != nil {
		t.Fatal(err)
	} else if ok {
		t.Fatal("highest hash must not satisfy share difficulty")
	}

	hasher := &testBlobHasher{result: &zero}
	if _, err := b.IsProofHigherThanDifficulty(hasher, testSeed); err != nil {
		t.Fatal(err)
	}
	if hasher.lastHeight.Load() != testPoolBlocks[0].GenHeight {
		t.Fatalf("expected hashing at gen height %d, got %d", testPoolBlocks[0].GenHeight, hasher.lastHeight.Load())
	}
}

func TestCalculatePowHashes(t *testing.T) {
	var blocks []*PoolBlock
	for range 4 {
		for _, e := range testPoolBlocks {
			blocks = append(blocks, e.Block(t))
		}
	}

	hasher := &testBlobHasher{}
	seeds := map[uint64]types.Hash{}
	for _, e := range testPoolBlocks {
		seeds[e.GenHeight] = crypto.Keccak256Single([]byte{byte(e.GenHeight)})
	}
	seedByHeight := func(height uint64) types.Hash {
		return seeds[height]
	}

	results, err := CalculatePowHashes(hasher, blocks, seedByHeight)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != len(blocks) {
		t.Fatalf("expected %d results, got %d", len(blocks), len(results))
	}

	for i, b := range blocks {
		expected, err := b.PowHash(hasher, b.Main.Coinbase.GenHeight, seeds[b.Main.Coinbase.GenHeight])
		if err != nil {
			t.Fatal(err)
		}
		if results[i] != expected {
			t.Fatalf("block %d: expected %s, got %s", i, expected, results[i])
		}
	}

	if _, err = CalculatePowHashes(hasher, append(blocks, &PoolBlock{}), seedByHeight); !errors.Is(err, ErrUninitializedBlock) {
		t.Fatalf("expected ErrUninitializedBlock, got %v", err)
	}
}
