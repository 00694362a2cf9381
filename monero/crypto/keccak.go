package crypto

import (
	"sync"

	"git.gammaspectra.live/P2Pool/sha3"
	"git.gammaspectra.live/P2Pool/sharechain/types"
)

var hasherPool = sync.Pool{
	New: func() any {
		return sha3.NewLegacyKeccak256()
	},
}

func GetKeccak256Hasher() *sha3.HasherState {
	h := hasherPool.Get().(*sha3.HasherState)
	h.Reset()
	return h
}

func PutKeccak256Hasher(h *sha3.HasherState) {
	hasherPool.Put(h)
}

// HashFastSum reads the digest without cloning the state, unlike sha3 Sum. b must hold at least 32 bytes
func HashFastSum(hash *sha3.HasherState, b []byte) []byte {
	_ = b[31] // bounds check hint to compiler; see golang.org/issue/14808
	_, _ = hash.Read(b[:hash.Size()])
	return b
}

func Keccak256(data ...[]byte) (result types.Hash) {
	h := sha3.NewLegacyKeccak256()
	for _, b := range data {
		_, _ = h.Write(b)
	}
	HashFastSum(h, result[:])

	return
}

func Keccak256Single(data []byte) (result types.Hash) {
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write(data)
	HashFastSum(h, result[:])

	return
}

// PooledKeccak256 same as Keccak256, with the hasher state taken from a pool
func PooledKeccak256(data ...[]byte) (result types.Hash) {
	h := GetKeccak256Hasher()
	defer PutKeccak256Hasher(h)
	for _, b := range data {
		_, _ = h.Write(b)
	}
	HashFastSum(h, result[:])

	return
}
