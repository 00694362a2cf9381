package crypto

import (
	"git.gammaspectra.live/P2Pool/sha3"
	"git.gammaspectra.live/P2Pool/sharechain/types"
	"git.gammaspectra.live/P2Pool/sharechain/utils"
)

// BinaryTreeHash ordered transaction hashes of a block, the miner transaction id first
type BinaryTreeHash []types.Hash

func pairHash(a, b *types.Hash, hasher *sha3.HasherState) (out types.Hash) {
	hasher.Reset()
	_, _ = hasher.Write(a[:])
	_, _ = hasher.Write(b[:])
	HashFastSum(hasher, out[:])
	return out
}

// RootHash host chain tree hash.
// With cnt the largest power of two <= count, the first 2·cnt - count leaves are carried as is,
// the remaining leaves are hashed in pairs, and the resulting cnt nodes are halved until the root.
// Panics on an empty tree.
func (t BinaryTreeHash) RootHash() types.Hash {
	count := len(t)
	switch count {
	case 0:
		panic("empty tree")
	case 1:
		return t[0]
	}

	hasher := GetKeccak256Hasher()
	defer PutKeccak256Hasher(hasher)

	if count == 2 {
		return pairHash(&t[0], &t[1], hasher)
	}

	cnt := utils.PreviousPowerOfTwo(uint64(count))
	offset := cnt*2 - count

	nodes := make([]types.Hash, cnt)
	copy(nodes, t[:offset])

	for i, j := offset, offset; j < cnt; i, j = i+2, j+1 {
		nodes[j] = pairHash(&t[i], &t[i+1], hasher)
	}

	for cnt > 2 {
		cnt >>= 1
		for i, j := 0, 0; j < cnt; i, j = i+2, j+1 {
			nodes[j] = pairHash(&nodes[i], &nodes[i+1], hasher)
		}
	}

	return pairHash(&nodes[0], &nodes[1], hasher)
}
