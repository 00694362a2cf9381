package sidechain

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"git.gammaspectra.live/P2Pool/sharechain/monero/address"
	"git.gammaspectra.live/P2Pool/sharechain/monero/crypto"
	"git.gammaspectra.live/P2Pool/sharechain/types"
	"git.gammaspectra.live/P2Pool/sharechain/utils"
)

const MaxUncleCount = uint64(math.MaxUint64) / types.HashSize

// SideData side chain only fields of a share, never placed on the host chain
type SideData struct {
	// PublicKey miner wallet the share pays to
	PublicKey address.PackedAddress `json:"public_key"`
	// CoinbasePrivateKey secret key of the miner transaction, TxPublicKey = CoinbasePrivateKey·G
	CoinbasePrivateKey crypto.PrivateKeyBytes `json:"coinbase_private_key"`
	// Parent side chain id of the parent of this share, or zero if genesis
	Parent types.Hash `json:"parent"`
	// Uncles list of side chain ids of the uncles this share contains
	Uncles               []types.Hash     `json:"uncles,omitempty"`
	Height               uint64           `json:"height"`
	Difficulty           types.Difficulty `json:"difficulty"`
	CumulativeDifficulty types.Difficulty `json:"cumulative_difficulty"`
}

func (b *SideData) BufferLength() (size int) {
	return crypto.PublicKeySize*2 +
		crypto.PrivateKeySize +
		types.HashSize +
		utils.UVarInt64Size(len(b.Uncles)) + len(b.Uncles)*types.HashSize +
		utils.UVarInt64Size(b.Height) +
		utils.UVarInt64Size(b.Difficulty.Lo) + utils.UVarInt64Size(b.Difficulty.Hi) +
		utils.UVarInt64Size(b.CumulativeDifficulty.Lo) + utils.UVarInt64Size(b.CumulativeDifficulty.Hi)
}

func (b *SideData) MarshalBinary() (buf []byte, err error) {
	return b.AppendBinary(make([]byte, 0, b.BufferLength())), nil
}

// AppendBinary 128-bit difficulties are written as two varints, low word first
func (b *SideData) AppendBinary(preAllocatedBuf []byte) (buf []byte) {
	buf = preAllocatedBuf
	buf = append(buf, b.PublicKey[address.PackedAddressSpend][:]...)
	buf = append(buf, b.PublicKey[address.PackedAddressView][:]...)
	buf = append(buf, b.CoinbasePrivateKey[:]...)
	buf = append(buf, b.Parent[:]...)
	buf = binary.AppendUvarint(buf, uint64(len(b.Uncles)))
	for _, uId := range b.Uncles {
		buf = append(buf, uId[:]...)
	}
	buf = binary.AppendUvarint(buf, b.Height)
	buf = binary.AppendUvarint(buf, b.Difficulty.Lo)
	buf = binary.AppendUvarint(buf, b.Difficulty.Hi)
	buf = binary.AppendUvarint(buf, b.CumulativeDifficulty.Lo)
	buf = binary.AppendUvarint(buf, b.CumulativeDifficulty.Hi)

	return buf
}

func (b *SideData) FromReader(reader utils.ReaderAndByteReader) (err error) {
	var (
		uncleCount uint64
		uncleHash  types.Hash
	)

	if _, err = io.ReadFull(reader, b.PublicKey[address.PackedAddressSpend][:]); err != nil {
		return err
	}
	if _, err = io.ReadFull(reader, b.PublicKey[address.PackedAddressView][:]); err != nil {
		return err
	}

	if _, err = io.ReadFull(reader, b.CoinbasePrivateKey[:]); err != nil {
		return err
	}

	if _, err = io.ReadFull(reader, b.Parent[:]); err != nil {
		return err
	}

	b.Uncles = nil
	if uncleCount, err = utils.ReadCanonicalUvarint(reader); err != nil {
		return err
	} else if uncleCount > MaxUncleCount {
		return fmt.Errorf("uncle count too large: %d > %d", uncleCount, MaxUncleCount)
	} else if uncleCount > 0 {
		// preallocate for append, with 64 as soft limit
		b.Uncles = make([]types.Hash, 0, min(64, uncleCount))

		for range uncleCount {
			if _, err = io.ReadFull(reader, uncleHash[:]); err != nil {
				return err
			}
			b.Uncles = append(b.Uncles, uncleHash)
		}
	}

	if b.Height, err = utils.ReadCanonicalUvarint(reader); err != nil {
		return err
	}

	if b.Height > PoolBlockMaxSideChainHeight {
		return fmt.Errorf("side block height too high (%d > %d)", b.Height, PoolBlockMaxSideChainHeight)
	}

	{
		if b.Difficulty.Lo, err = utils.ReadCanonicalUvarint(reader); err != nil {
			return err
		}

		if b.Difficulty.Hi, err = utils.ReadCanonicalUvarint(reader); err != nil {
			return err
		}
	}

	{
		if b.CumulativeDifficulty.Lo, err = utils.ReadCanonicalUvarint(reader); err != nil {
			return err
		}

		if b.CumulativeDifficulty.Hi, err = utils.ReadCanonicalUvarint(reader); err != nil {
			return err
		}
	}

	if b.CumulativeDifficulty.Cmp(PoolBlockMaxCumulativeDifficulty) > 0 {
		return fmt.Errorf("side block cumulative difficulty too large (%s > %s)", b.CumulativeDifficulty.StringNumeric(), PoolBlockMaxCumulativeDifficulty.StringNumeric())
	}

	return nil
}

func (b *SideData) UnmarshalBinary(data []byte) error {
	reader := bytes.NewReader(data)
	err := b.FromReader(reader)
	if err != nil {
		return err
	}
	if reader.Len() > 0 {
		return errors.New("leftover bytes in reader")
	}
	return nil
}

// clone deep copy, uncles are not shared
func (b *SideData) clone() SideData {
	c := *b
	if b.Uncles != nil {
		c.Uncles = append(make([]types.Hash, 0, len(b.Uncles)), b.Uncles...)
	}
	return c
}
