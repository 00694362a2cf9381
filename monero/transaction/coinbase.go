package transaction

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"git.gammaspectra.live/P2Pool/sharechain/monero"
	"git.gammaspectra.live/P2Pool/sharechain/monero/crypto"
	"git.gammaspectra.live/P2Pool/sharechain/types"
	"git.gammaspectra.live/P2Pool/sharechain/utils"
)

// CoinbaseTransaction miner transaction of a pool block.
// Only the variable fields are kept, the layout of the extra field is fixed:
// public key, extra nonce of ExtraNonceSize, merge mining tag with the side chain id.
type CoinbaseTransaction struct {
	GenHeight uint64  `json:"gen_height"`
	Outputs   Outputs `json:"outputs"`

	TxPublicKey crypto.PublicKeyBytes `json:"tx_public_key"`

	// ExtraNonceSize declared size of the extra nonce field, bytes past ExtraNonceSize are zero
	ExtraNonceSize uint64 `json:"extra_nonce_size"`
	ExtraNonce     uint32 `json:"extra_nonce"`

	// SidechainId side chain identity committed in the merge mining tag
	SidechainId types.Hash `json:"sidechain_id"`
}

// CoinbaseLayout positions within a serialized block, relative to its start
type CoinbaseLayout struct {
	// OutputsOffset position of the output count varint
	OutputsOffset int
	// OutputsBlobSize size of the output count and all outputs
	OutputsBlobSize int
}

var ErrCoinbaseFormat = errors.New("invalid miner transaction")

// UnlockTime height the reward unlocks at
func (c *CoinbaseTransaction) UnlockTime() uint64 {
	return c.GenHeight + monero.MinerRewardUnlockTime
}

// ClampedExtraNonceSize ExtraNonceSize limited to ExtraNonceMaxSize, and whether it had to be limited
func (c *CoinbaseTransaction) ClampedExtraNonceSize() (size uint64, clamped bool) {
	if c.ExtraNonceSize > ExtraNonceMaxSize {
		return ExtraNonceMaxSize, true
	}
	return c.ExtraNonceSize, false
}

// AppendExtra writes the extra field contents, without its length prefix, into the fixed buffer.
// Returns the number of bytes written.
func (c *CoinbaseTransaction) AppendExtra(extra *[ExtraMaxSize]byte) int {
	n := 0

	extra[n] = TxExtraTagPubKey
	n++
	n += copy(extra[n:], c.TxPublicKey[:])

	extraNonceSize, clamped := c.ClampedExtraNonceSize()
	if clamped {
		utils.Errorf("Coinbase", "extra nonce size is too large (%d), fix the code!", c.ExtraNonceSize)
	}

	extra[n] = TxExtraTagNonce
	extra[n+1] = uint8(extraNonceSize)
	n += 2

	binary.LittleEndian.PutUint32(extra[n:], c.ExtraNonce)
	n += ExtraNonceSize
	if extraNonceSize > ExtraNonceSize {
		clear(extra[n : n+int(extraNonceSize-ExtraNonceSize)])
		n += int(extraNonceSize - ExtraNonceSize)
	}

	extra[n] = TxExtraTagMergeMining
	extra[n+1] = types.HashSize
	n += 2
	n += copy(extra[n:], c.SidechainId[:])

	return n
}

func (c *CoinbaseTransaction) BufferLength(outputType uint8) int {
	extraNonceSize, _ := c.ClampedExtraNonceSize()
	extraSize := 1 + crypto.PublicKeySize + 2 + int(max(extraNonceSize, ExtraNonceSize)) + 2 + types.HashSize
	return 1 +
		utils.UVarInt64Size(c.UnlockTime()) +
		1 + 1 +
		utils.UVarInt64Size(c.GenHeight) +
		c.Outputs.BufferLength(outputType) +
		utils.UVarInt64Size(extraSize) + extraSize +
		1
}

func (c *CoinbaseTransaction) MarshalBinary(outputType uint8) ([]byte, error) {
	buf, _, err := c.AppendBinary(make([]byte, 0, c.BufferLength(outputType)), outputType)
	return buf, err
}

// AppendBinary appends the full miner transaction including the trailing zero RingCT type byte
func (c *CoinbaseTransaction) AppendBinary(preAllocatedBuf []byte, outputType uint8) (buf []byte, layout CoinbaseLayout, err error) {
	buf = preAllocatedBuf

	buf = append(buf, TxVersion)
	buf = binary.AppendUvarint(buf, c.UnlockTime())
	buf = append(buf, 1, TxInGen)
	buf = binary.AppendUvarint(buf, c.GenHeight)

	layout.OutputsOffset = len(buf)
	if buf, err = c.Outputs.AppendBinary(buf, outputType); err != nil {
		return nil, layout, err
	}
	layout.OutputsBlobSize = len(buf) - layout.OutputsOffset

	var extra [ExtraMaxSize]byte
	n := c.AppendExtra(&extra)

	buf = binary.AppendUvarint(buf, uint64(n))
	buf = append(buf, extra[:n]...)

	// RingCT type null
	buf = append(buf, 0)

	return buf, layout, nil
}

func (c *CoinbaseTransaction) UnmarshalBinary(data []byte, outputType uint8) error {
	reader := bytes.NewReader(data)
	if err := c.FromReader(reader, outputType); err != nil {
		return err
	}
	if reader.Len() > 0 {
		return errors.New("leftover bytes in reader")
	}
	return nil
}

// FromReader decodes a miner transaction, rejecting any layout AppendBinary would not reproduce
func (c *CoinbaseTransaction) FromReader(reader utils.ReaderAndByteReader, outputType uint8) (err error) {
	var version, inputCount, inputType, rctType uint8
	var unlockTime, extraSize uint64

	if version, err = reader.ReadByte(); err != nil {
		return err
	} else if version != TxVersion {
		return fmt.Errorf("%w: version %d", ErrCoinbaseFormat, version)
	}

	if unlockTime, err = utils.ReadCanonicalUvarint(reader); err != nil {
		return err
	}

	if inputCount, err = reader.ReadByte(); err != nil {
		return err
	} else if inputCount != 1 {
		return fmt.Errorf("%w: input count %d", ErrCoinbaseFormat, inputCount)
	}

	if inputType, err = reader.ReadByte(); err != nil {
		return err
	} else if inputType != TxInGen {
		return fmt.Errorf("%w: input type %d", ErrCoinbaseFormat, inputType)
	}

	if c.GenHeight, err = utils.ReadCanonicalUvarint(reader); err != nil {
		return err
	}

	if unlockTime != c.UnlockTime() {
		return fmt.Errorf("%w: unlock time %d at height %d", ErrCoinbaseFormat, unlockTime, c.GenHeight)
	}

	if err = c.Outputs.FromReader(reader, outputType); err != nil {
		return err
	}

	if extraSize, err = utils.ReadCanonicalUvarint(reader); err != nil {
		return err
	} else if extraSize > ExtraMaxSize {
		return fmt.Errorf("%w: extra size %d", ErrCoinbaseFormat, extraSize)
	}

	var extraBuf [ExtraMaxSize]byte
	if _, err = io.ReadFull(reader, extraBuf[:extraSize]); err != nil {
		return err
	}

	var extra ExtraTags
	if err = extra.UnmarshalBinary(extraBuf[:extraSize]); err != nil {
		return err
	}
	if err = c.fromExtraTags(extra); err != nil {
		return err
	}

	if rctType, err = reader.ReadByte(); err != nil {
		return err
	} else if rctType != 0 {
		return fmt.Errorf("%w: RingCT type %d", ErrCoinbaseFormat, rctType)
	}

	return nil
}

func (c *CoinbaseTransaction) fromExtraTags(extra ExtraTags) error {
	if len(extra) != 3 {
		return fmt.Errorf("%w: extra tag count %d", ErrCoinbaseFormat, len(extra))
	} else if extra[0].Tag != TxExtraTagPubKey {
		return fmt.Errorf("%w: extra tag at index 0", ErrCoinbaseFormat)
	} else if extra[1].Tag != TxExtraTagNonce {
		return fmt.Errorf("%w: extra tag at index 1", ErrCoinbaseFormat)
	} else if extra[2].Tag != TxExtraTagMergeMining {
		return fmt.Errorf("%w: extra tag at index 2", ErrCoinbaseFormat)
	}

	c.TxPublicKey = crypto.PublicKeyBytes(extra[0].Data)

	nonce := extra[1].Data
	if len(nonce) < ExtraNonceSize || len(nonce) > ExtraNonceMaxSize {
		return fmt.Errorf("%w: extra nonce size %d", ErrCoinbaseFormat, len(nonce))
	}
	for _, b := range nonce[ExtraNonceSize:] {
		if b != 0 {
			return fmt.Errorf("%w: extra nonce padding is not zero", ErrCoinbaseFormat)
		}
	}
	c.ExtraNonceSize = uint64(len(nonce))
	c.ExtraNonce = binary.LittleEndian.Uint32(nonce)

	if extra[2].VarInt != types.HashSize || len(extra[2].Data) != types.HashSize {
		return fmt.Errorf("%w: merge mining tag depth %d", ErrCoinbaseFormat, extra[2].VarInt)
	}
	c.SidechainId = types.Hash(extra[2].Data)

	return nil
}

// zeroRingCTHash keccak of the base RingCT section, a single zero byte
var zeroRingCTHash = crypto.Keccak256Single([]byte{0})

// CalculateTransactionId v2 transaction id of a serialized miner transaction, including its trailing RingCT type byte.
// Hashes keccak(prefix) ‖ keccak(base RingCT) ‖ zero prunable hash.
func CalculateTransactionId(minerTx []byte) (id types.Hash) {
	if len(minerTx) == 0 {
		return types.ZeroHash
	}

	hasher := crypto.GetKeccak256Hasher()
	defer crypto.PutKeccak256Hasher(hasher)

	var hashes [types.HashSize * 3]byte
	_, _ = hasher.Write(minerTx[:len(minerTx)-1])
	crypto.HashFastSum(hasher, hashes[:])
	copy(hashes[types.HashSize:], zeroRingCTHash[:])

	hasher.Reset()
	_, _ = hasher.Write(hashes[:])
	crypto.HashFastSum(hasher, id[:])
	return id
}

func (c *CoinbaseTransaction) CalculateId(outputType uint8) (types.Hash, error) {
	buf, err := c.MarshalBinary(outputType)
	if err != nil {
		return types.ZeroHash, err
	}
	return CalculateTransactionId(buf), nil
}
