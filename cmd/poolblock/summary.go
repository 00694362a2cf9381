package main

import (
	"git.gammaspectra.live/P2Pool/sharechain/monero/address"
	"git.gammaspectra.live/P2Pool/sharechain/monero/randomx"
	"git.gammaspectra.live/P2Pool/sharechain/p2pool/sidechain"
	"git.gammaspectra.live/P2Pool/sharechain/types"
	"git.gammaspectra.live/P2Pool/sharechain/utils"
)

type BlockSummary struct {
	SideChainId types.Hash `json:"side_chain_id"`
	MainId      types.Hash `json:"main_id"`
	CoinbaseId  types.Hash `json:"coinbase_id"`

	MajorVersion uint8      `json:"major_version"`
	MinorVersion uint8      `json:"minor_version"`
	Timestamp    uint64     `json:"timestamp"`
	PreviousId   types.Hash `json:"previous_id"`
	MainHeight   uint64     `json:"main_height"`

	SideHeight           uint64           `json:"side_height"`
	Parent               types.Hash       `json:"parent"`
	Uncles               []types.Hash     `json:"uncles,omitempty"`
	Difficulty           types.Difficulty `json:"difficulty"`
	CumulativeDifficulty types.Difficulty `json:"cumulative_difficulty"`

	// DifficultySI human readable difficulty, in hashes
	DifficultySI string `json:"difficulty_si"`

	Miner          string `json:"miner"`
	Outputs        int    `json:"outputs"`
	TotalReward    uint64 `json:"total_reward"`
	TotalRewardXMR string `json:"total_reward_xmr"`
	Transactions   int    `json:"transactions"`

	Payout *uint64 `json:"payout,omitempty"`

	PowHash  *types.Hash `json:"pow_hash,omitempty"`
	PowValid *bool       `json:"pow_valid,omitempty"`
}

// summarize collects the block identifiers and header fields.
// Payout is filled in when wallet is set, the proof of work when hasher is set.
func summarize(b *sidechain.PoolBlock, consensus *sidechain.Consensus, derivationCache sidechain.DerivationCacheInterface, wallet address.Interface, hasher randomx.BlobHasher, seed types.Hash, powHeight uint64) (*BlockSummary, error) {
	mainId, err := b.MainId()
	if err != nil {
		return nil, err
	}
	coinbaseId, err := b.CoinbaseId()
	if err != nil {
		return nil, err
	}

	miner := b.GetAddress()

	s := &BlockSummary{
		SideChainId: b.SideChainId(),
		MainId:      mainId,
		CoinbaseId:  coinbaseId,

		MajorVersion: b.Main.MajorVersion,
		MinorVersion: b.Main.MinorVersion,
		Timestamp:    b.Main.Timestamp,
		PreviousId:   b.Main.PreviousId,
		MainHeight:   b.Main.Coinbase.GenHeight,

		SideHeight:           b.Side.Height,
		Parent:               b.Side.Parent,
		Uncles:               b.Side.Uncles,
		Difficulty:           b.Side.Difficulty,
		CumulativeDifficulty: b.Side.CumulativeDifficulty,

		DifficultySI: utils.SiUnits(b.Side.Difficulty.Float64(), 2),

		Miner:        miner.ToAddress(consensus.NetworkType).String(),
		Outputs:      len(b.Main.Coinbase.Outputs),
		Transactions: max(len(b.Main.Transactions)-1, 0),
	}

	for _, o := range b.Main.Coinbase.Outputs {
		s.TotalReward += o.Reward
	}
	s.TotalRewardXMR = utils.XMRUnits(s.TotalReward)

	if wallet != nil {
		payout := b.GetPayout(wallet, derivationCache)
		s.Payout = &payout
	}

	if hasher != nil {
		height := powHeight
		if height == 0 {
			height = b.Main.Coinbase.GenHeight
		}
		if utils.IsLogLevelDebug() {
			if blob, err := b.HashingBlob(); err == nil {
				utils.Debugf("", "hashing blob %x at height %d", blob, height)
			}
		}
		powHash, err := b.PowHash(hasher, height, seed)
		if err != nil {
			return nil, err
		}
		valid := b.Side.Difficulty.CheckPoW(powHash)
		s.PowHash = &powHash
		s.PowValid = &valid
	}

	return s, nil
}
