package sidechain

import (
	"slices"

	mainblock "git.gammaspectra.live/P2Pool/sharechain/monero/block"
	"git.gammaspectra.live/P2Pool/sharechain/monero/randomx"
	"git.gammaspectra.live/P2Pool/sharechain/monero/transaction"
	"git.gammaspectra.live/P2Pool/sharechain/types"
	"git.gammaspectra.live/P2Pool/sharechain/utils"
)

// hashingBlobNoLock assembles header ‖ merkle root ‖ varint(transaction count).
// The miner transaction id is stored into Transactions[0] as leaf 0.
func (b *PoolBlock) hashingBlobNoLock(preAllocatedBuf []byte) ([]byte, error) {
	mainData, layout, err := b.serializeMainchainDataNoLock(make([]byte, 0, b.Main.BufferLength()))
	if err != nil {
		return nil, err
	}

	if layout.HeaderSize == 0 || layout.MinerTxSize == 0 || len(mainData) < layout.HeaderSize+layout.MinerTxSize || len(b.Main.Transactions) == 0 {
		utils.Errorf(logPrefix, "tried to calculate PoW of uninitialized block")
		return nil, ErrUninitializedBlock
	}

	b.Main.Transactions[0] = transaction.CalculateTransactionId(mainData[layout.HeaderSize : layout.HeaderSize+layout.MinerTxSize])

	buf := mainblock.AppendHashingBlob(preAllocatedBuf, mainData[:layout.HeaderSize], b.Main.Transactions)
	if buf == nil {
		return nil, ErrHashingBlobTooLarge
	}
	return buf, nil
}

// HashingBlob proof of work pre-image of the block
func (b *PoolBlock) HashingBlob() ([]byte, error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	var blob [mainblock.HashingBlobMaxSize]byte
	buf, err := b.hashingBlobNoLock(blob[:0])
	if err != nil {
		return nil, err
	}
	return slices.Clone(buf), nil
}

// PowHash the block lock is released before the hasher is invoked
func (b *PoolBlock) PowHash(hasher randomx.BlobHasher, height uint64, seedHash types.Hash) (types.Hash, error) {
	var blob [mainblock.HashingBlobMaxSize]byte

	b.lock.Lock()
	buf, err := b.hashingBlobNoLock(blob[:0])
	b.lock.Unlock()

	if err != nil {
		return types.ZeroHash, err
	}

	return hasher.Calculate(buf, height, seedHash)
}

// MainId host chain block id
func (b *PoolBlock) MainId() (types.Hash, error) {
	var blob [mainblock.HashingBlobMaxSize]byte

	b.lock.Lock()
	defer b.lock.Unlock()

	buf, err := b.hashingBlobNoLock(blob[:0])
	if err != nil {
		return types.ZeroHash, err
	}
	return mainblock.Id(buf), nil
}

// CoinbaseId miner transaction id, leaf 0 of the merkle tree
func (b *PoolBlock) CoinbaseId() (types.Hash, error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	return b.Main.Coinbase.CalculateId(b.Main.OutputType())
}

// IsProofHigherThanDifficulty whether the proof of work satisfies the share difficulty, hashed at the miner transaction height
func (b *PoolBlock) IsProofHigherThanDifficulty(hasher randomx.BlobHasher, seedHash types.Hash) (bool, error) {
	b.lock.Lock()
	height := b.Main.Coinbase.GenHeight
	difficulty := b.Side.Difficulty
	b.lock.Unlock()

	if powHash, err := b.PowHash(hasher, height, seedHash); err != nil {
		return false, err
	} else {
		return difficulty.CheckPoW(powHash), nil
	}
}

type GetSeedByHeightFunc func(height uint64) (hash types.Hash)

// CalculatePowHashes hashes blocks in parallel, each at its miner transaction height
func CalculatePowHashes(hasher randomx.BlobHasher, blocks []*PoolBlock, seedByHeight GetSeedByHeightFunc) ([]types.Hash, error) {
	results := make([]types.Hash, len(blocks))

	err := utils.SplitWork(0, uint64(len(blocks)), func(workIndex uint64, routineIndex int) error {
		b := blocks[workIndex]

		b.lock.Lock()
		height := b.Main.Coinbase.GenHeight
		b.lock.Unlock()

		powHash, err := b.PowHash(hasher, height, seedByHeight(height))
		if err != nil {
			return err
		}
		results[workIndex] = powHash
		return nil
	}, nil)
	if err != nil {
		return nil, err
	}
	return results, nil
}
