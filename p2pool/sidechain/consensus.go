package sidechain

import (
	"errors"
	"fmt"
	"strconv"

	"git.gammaspectra.live/P2Pool/sharechain/monero"
	"git.gammaspectra.live/P2Pool/sharechain/monero/crypto"
	"git.gammaspectra.live/P2Pool/sharechain/monero/randomx"
	"git.gammaspectra.live/P2Pool/sharechain/types"
	"git.gammaspectra.live/P2Pool/sharechain/utils"
)

// Consensus side chain network parameters. Its Id is mixed into every side chain id,
// so blocks of differently configured side chains never validate against each other.
type Consensus struct {
	NetworkType monero.NetworkType `json:"network_type"`
	PoolName    string             `json:"name"`
	// PoolPassword only salts the consensus id, private side chains share it out of band
	PoolPassword      string `json:"password"`
	TargetBlockTime   uint64 `json:"block_time"`
	MinimumDifficulty uint64 `json:"min_diff"`
	ChainWindowSize   uint64 `json:"pplns_window"`
	UnclePenalty      uint64 `json:"uncle_penalty"`

	// Extra additional string to add for testing usually
	Extra string `json:"extra,omitempty"`

	hasher randomx.Hasher

	Id types.Hash `json:"id"`
}

const (
	SmallestMinimumDifficulty = 100000
	LargestMinimumDifficulty  = 1000000000

	MinimumChainWindowSize = 60
	MaximumChainWindowSize = 2160

	maxConsensusStringLength = 128
)

var ErrInvalidConsensus = errors.New("could not verify consensus")

func NewConsensus(networkType monero.NetworkType, poolName, poolPassword, extra string, targetBlockTime, minimumDifficulty, chainWindowSize, unclePenalty uint64) (*Consensus, error) {
	c := &Consensus{
		NetworkType:       networkType,
		PoolName:          poolName,
		PoolPassword:      poolPassword,
		TargetBlockTime:   targetBlockTime,
		MinimumDifficulty: minimumDifficulty,
		ChainWindowSize:   chainWindowSize,
		UnclePenalty:      unclePenalty,
		Extra:             extra,
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func NewConsensusFromJSON(data []byte) (*Consensus, error) {
	var c Consensus
	if err := utils.UnmarshalJSON(data, &c); err != nil {
		return nil, err
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// validate checks the parameter ranges and derives Id.
// A pool named "default" with the default parameters is renamed to the default preset name, as p2pool does.
func (c *Consensus) validate() error {
	if c.PoolName == "default" {
		d := *ConsensusDefault
		d.PoolName, d.Id, d.hasher = c.PoolName, c.Id, c.hasher
		if d == *c {
			c.PoolName = ConsensusDefault.PoolName
		}
	}

	switch {
	case len(c.PoolName) > maxConsensusStringLength:
		return fmt.Errorf("%w: pool name longer than %d bytes", ErrInvalidConsensus, maxConsensusStringLength)
	case len(c.PoolPassword) > maxConsensusStringLength:
		return fmt.Errorf("%w: pool password longer than %d bytes", ErrInvalidConsensus, maxConsensusStringLength)
	case c.TargetBlockTime < 1 || c.TargetBlockTime > monero.BlockTime:
		return fmt.Errorf("%w: block time %d out of range", ErrInvalidConsensus, c.TargetBlockTime)
	case c.MinimumDifficulty > LargestMinimumDifficulty,
		c.NetworkType == monero.NetworkMainnet && c.MinimumDifficulty < SmallestMinimumDifficulty:
		return fmt.Errorf("%w: minimum difficulty %d out of range", ErrInvalidConsensus, c.MinimumDifficulty)
	case c.ChainWindowSize < MinimumChainWindowSize || c.ChainWindowSize > MaximumChainWindowSize:
		return fmt.Errorf("%w: window size %d out of range", ErrInvalidConsensus, c.ChainWindowSize)
	case c.UnclePenalty < 1 || c.UnclePenalty > 99:
		return fmt.Errorf("%w: uncle penalty %d out of range", ErrInvalidConsensus, c.UnclePenalty)
	}

	if c.Id = c.CalculateId(); c.Id == types.ZeroHash {
		return fmt.Errorf("%w: could not calculate consensus id", ErrInvalidConsensus)
	}
	return nil
}

// CalculateSideChainId keccak(mainchain data ‖ sidechain data ‖ consensus id), where the mainchain data
// has its nonce, extra nonce and side chain id zeroed.
func (c *Consensus) CalculateSideChainId(b *PoolBlock) (result types.Hash, err error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	return c.calculateSideChainIdNoLock(b)
}

func (c *Consensus) calculateSideChainIdNoLock(b *PoolBlock) (result types.Hash, err error) {
	main := b.Main
	main.Nonce = 0
	main.Coinbase.ExtraNonce = 0
	main.Coinbase.SidechainId = types.ZeroHash

	buf := make([]byte, 0, max(main.BufferLength(), b.Side.BufferLength()))

	h := crypto.GetKeccak256Hasher()
	defer crypto.PutKeccak256Hasher(h)

	if buf, _, err = main.AppendBinary(buf); err != nil {
		return types.ZeroHash, err
	}
	_, _ = h.Write(buf)
	buf = b.Side.AppendBinary(buf[:0])
	_, _ = h.Write(buf)
	_, _ = h.Write(c.Id[:])
	crypto.HashFastSum(h, result[:])
	return result, nil
}

func (c *Consensus) CalculateSideChainIdFromBlobs(mainBlob, sideBlob []byte) (result types.Hash) {
	h := crypto.GetKeccak256Hasher()
	defer crypto.PutKeccak256Hasher(h)

	_, _ = h.Write(mainBlob)
	_, _ = h.Write(sideBlob)

	_, _ = h.Write(c.Id[:])

	crypto.HashFastSum(h, result[:])
	return result
}

func (c *Consensus) IsDefault() bool {
	return c.Id == ConsensusDefault.Id
}

func (c *Consensus) IsMini() bool {
	return c.Id == ConsensusMini.Id
}

func (c *Consensus) IsNano() bool {
	return c.Id == ConsensusNano.Id
}

func (c *Consensus) InitHasher(n int, flags ...randomx.Flag) error {
	if c.hasher != nil {
		c.hasher.Close()
	}
	var err error
	c.hasher, err = randomx.NewRandomX(n, flags...)
	if err != nil {
		return err
	}
	return nil
}

func (c *Consensus) GetHasher() randomx.Hasher {
	if c.hasher == nil {
		panic("hasher has not been initialized in consensus")
	}
	return c.hasher
}

// CalculateId RandomX consensus hash over the null terminated parameter strings, Extra first when set
func (c *Consensus) CalculateId() types.Hash {
	fields := []string{
		c.NetworkType.String(),
		c.PoolName,
		c.PoolPassword,
		strconv.FormatUint(c.TargetBlockTime, 10),
		strconv.FormatUint(c.MinimumDifficulty, 10),
		strconv.FormatUint(c.ChainWindowSize, 10),
		strconv.FormatUint(c.UnclePenalty, 10),
	}
	if c.Extra != "" {
		fields = append([]string{c.Extra}, fields...)
	}

	var buf []byte
	for _, f := range fields {
		buf = append(buf, f...)
		buf = append(buf, 0)
	}
	return randomx.ConsensusHash(buf)
}

var ConsensusDefault = &Consensus{
	NetworkType:       monero.NetworkMainnet,
	PoolName:          "mainnet test 2",
	TargetBlockTime:   10,
	MinimumDifficulty: 100000,
	ChainWindowSize:   2160,
	UnclePenalty:      20,
	Id:                types.Hash{34, 175, 126, 231, 181, 11, 104, 146, 227, 153, 218, 107, 44, 108, 68, 39, 178, 81, 4, 212, 169, 4, 142, 0, 177, 110, 157, 240, 68, 7, 249, 24},
}

var ConsensusMini = &Consensus{
	NetworkType:       monero.NetworkMainnet,
	PoolName:          "mini",
	TargetBlockTime:   10,
	MinimumDifficulty: 100000,
	ChainWindowSize:   2160,
	UnclePenalty:      20,
	Id:                types.Hash{57, 130, 201, 26, 149, 174, 199, 250, 66, 80, 189, 18, 108, 216, 194, 220, 136, 23, 63, 24, 64, 113, 221, 44, 219, 86, 39, 163, 53, 24, 126, 196},
}

var ConsensusNano = &Consensus{
	NetworkType:       monero.NetworkMainnet,
	PoolName:          "nano",
	TargetBlockTime:   30,
	MinimumDifficulty: 100000,
	ChainWindowSize:   2160,
	UnclePenalty:      10,
	Id:                types.Hash{171, 248, 206, 148, 210, 226, 114, 99, 250, 145, 221, 96, 13, 216, 23, 63, 104, 53, 129, 168, 244, 80, 141, 138, 157, 250, 50, 54, 37, 189, 5, 89},
}
