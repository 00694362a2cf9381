package block

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"git.gammaspectra.live/P2Pool/sharechain/monero"
	"git.gammaspectra.live/P2Pool/sharechain/monero/crypto"
	"git.gammaspectra.live/P2Pool/sharechain/monero/transaction"
	"git.gammaspectra.live/P2Pool/sharechain/types"
	"git.gammaspectra.live/P2Pool/sharechain/utils"
)

const MaxTransactionCount = uint64(math.MaxUint64) / types.HashSize

const NonceSize = 4

// HeaderMaxSize major, minor, varint timestamp, previous id, nonce
const HeaderMaxSize = 1 + 1 + binary.MaxVarintLen64 + types.HashSize + NonceSize

// HashingBlobMaxSize upper bound of header ‖ merkle root ‖ varint(transaction count)
const HashingBlobMaxSize = 128

var (
	ErrUnsupportedVersion  = errors.New("unsupported version")
	ErrTooManyTransactions = errors.New("transaction count too large")
)

type Header struct {
	MajorVersion uint8 `json:"major_version"`
	MinorVersion uint8 `json:"minor_version"`
	// Nonce re-arranged here to improve memory layout space
	Nonce uint32 `json:"nonce"`

	Timestamp  uint64     `json:"timestamp"`
	PreviousId types.Hash `json:"previous_id"`
}

type Block struct {
	Header

	Coinbase transaction.CoinbaseTransaction `json:"coinbase"`

	// Transactions index 0 is the slot of the miner transaction id, it is never serialized
	Transactions []types.Hash `json:"transactions,omitempty"`
}

// Layout sizes and offsets of a serialized block, OutputsOffset is relative to the block start
type Layout struct {
	HeaderSize      int
	MinerTxSize     int
	OutputsOffset   int
	OutputsBlobSize int
}

// OutputType output type used by every output of a block with this major version
func OutputType(majorVersion uint8) uint8 {
	if majorVersion >= monero.HardForkViewTagsVersion {
		return transaction.TxOutToTaggedKey
	}
	return transaction.TxOutToKey
}

func (h *Header) BufferLength() int {
	return 1 + 1 + utils.UVarInt64Size(h.Timestamp) + types.HashSize + NonceSize
}

func (h *Header) AppendBinary(preAllocatedBuf []byte) []byte {
	buf := preAllocatedBuf
	buf = append(buf, h.MajorVersion)
	buf = append(buf, h.MinorVersion)
	buf = binary.AppendUvarint(buf, h.Timestamp)
	buf = append(buf, h.PreviousId[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, h.Nonce)
	return buf
}

func (h *Header) FromReader(reader utils.ReaderAndByteReader) (err error) {
	if h.MajorVersion, err = reader.ReadByte(); err != nil {
		return err
	}

	if h.MajorVersion > monero.HardForkSupportedVersion {
		return fmt.Errorf("%w: major %d", ErrUnsupportedVersion, h.MajorVersion)
	}

	if h.MinorVersion, err = reader.ReadByte(); err != nil {
		return err
	}

	if h.MinorVersion < h.MajorVersion {
		return fmt.Errorf("minor version %d smaller than major version %d", h.MinorVersion, h.MajorVersion)
	}

	if h.MinorVersion > 127 {
		return fmt.Errorf("minor version %d larger than maximum byte varint size", h.MinorVersion)
	}

	if h.Timestamp, err = utils.ReadCanonicalUvarint(reader); err != nil {
		return err
	}

	if _, err = io.ReadFull(reader, h.PreviousId[:]); err != nil {
		return err
	}

	var nonce [NonceSize]byte
	if _, err = io.ReadFull(reader, nonce[:]); err != nil {
		return err
	}
	h.Nonce = binary.LittleEndian.Uint32(nonce[:])

	return nil
}

func (b *Block) OutputType() uint8 {
	return OutputType(b.MajorVersion)
}

// listedTransactions transactions included by reference, without the miner transaction slot
func (b *Block) listedTransactions() []types.Hash {
	if len(b.Transactions) == 0 {
		return nil
	}
	return b.Transactions[1:]
}

func (b *Block) BufferLength() int {
	listed := b.listedTransactions()
	return b.Header.BufferLength() +
		b.Coinbase.BufferLength(b.OutputType()) +
		utils.UVarInt64Size(len(listed)) + types.HashSize*len(listed)
}

func (b *Block) MarshalBinary() (buf []byte, err error) {
	buf, _, err = b.AppendBinary(make([]byte, 0, b.BufferLength()))
	return buf, err
}

// AppendBinary appends the host chain block encoding: header, miner transaction, varint(count - 1) and the listed transaction ids
func (b *Block) AppendBinary(preAllocatedBuf []byte) (buf []byte, layout Layout, err error) {
	start := len(preAllocatedBuf)

	buf = b.Header.AppendBinary(preAllocatedBuf)
	layout.HeaderSize = len(buf) - start

	var txLayout transaction.CoinbaseLayout
	if buf, txLayout, err = b.Coinbase.AppendBinary(buf, b.OutputType()); err != nil {
		return nil, layout, err
	}
	layout.MinerTxSize = len(buf) - start - layout.HeaderSize
	layout.OutputsOffset = txLayout.OutputsOffset - start
	layout.OutputsBlobSize = txLayout.OutputsBlobSize

	listed := b.listedTransactions()
	buf = binary.AppendUvarint(buf, uint64(len(listed)))
	for i := range listed {
		buf = append(buf, listed[i][:]...)
	}

	return buf, layout, nil
}

func (b *Block) UnmarshalBinary(data []byte) error {
	reader := bytes.NewReader(data)
	if err := b.FromReader(reader); err != nil {
		return err
	}
	if reader.Len() > 0 {
		return errors.New("leftover bytes in reader")
	}
	return nil
}

// FromReader decodes a block, the miner transaction id slot is left zeroed
func (b *Block) FromReader(reader utils.ReaderAndByteReader) (err error) {
	if err = b.Header.FromReader(reader); err != nil {
		return err
	}

	if err = b.Coinbase.FromReader(reader, b.OutputType()); err != nil {
		return err
	}

	var txCount uint64
	if txCount, err = utils.ReadCanonicalUvarint(reader); err != nil {
		return err
	} else if txCount > MaxTransactionCount {
		return fmt.Errorf("%w: %d", ErrTooManyTransactions, txCount)
	}

	// preallocate with soft cap
	b.Transactions = make([]types.Hash, 1, min(8192, txCount+1))

	var transactionHash types.Hash
	for i := uint64(0); i < txCount; i++ {
		if _, err = io.ReadFull(reader, transactionHash[:]); err != nil {
			return err
		}
		b.Transactions = append(b.Transactions, transactionHash)
	}

	return nil
}

// AppendHashingBlob appends the proof of work pre-image: header ‖ merkle root of leaves ‖ varint(len(leaves)).
// Returns nil if the result would not fit within HashingBlobMaxSize.
func AppendHashingBlob(preAllocatedBuf []byte, header []byte, leaves crypto.BinaryTreeHash) []byte {
	if len(leaves) == 0 || len(header)+types.HashSize+utils.UVarInt64Size(len(leaves)) > HashingBlobMaxSize {
		return nil
	}
	buf := append(preAllocatedBuf, header...)
	root := leaves.RootHash()
	buf = append(buf, root[:]...)
	buf = binary.AppendUvarint(buf, uint64(len(leaves)))
	return buf
}

// HashingBlob computes the proof of work pre-image without modifying the block
func (b *Block) HashingBlob(preAllocatedBuf []byte) ([]byte, error) {
	minerTx, err := b.Coinbase.MarshalBinary(b.OutputType())
	if err != nil {
		return nil, err
	}

	leaves := make(crypto.BinaryTreeHash, 1, len(b.Transactions)+1)
	leaves[0] = transaction.CalculateTransactionId(minerTx)
	leaves = append(leaves, b.listedTransactions()...)

	var header [HeaderMaxSize]byte
	buf := AppendHashingBlob(preAllocatedBuf, b.Header.AppendBinary(header[:0]), leaves)
	if buf == nil {
		return nil, errors.New("hashing blob too large")
	}
	return buf, nil
}

// Id host chain block id, keccak(varint(len(blob)) ‖ blob) over the hashing blob
func Id(hashingBlob []byte) types.Hash {
	var varIntBuf [binary.MaxVarintLen64]byte
	return crypto.PooledKeccak256(varIntBuf[:binary.PutUvarint(varIntBuf[:], uint64(len(hashingBlob)))], hashingBlob)
}

func (b *Block) Id() (types.Hash, error) {
	var blob [HashingBlobMaxSize]byte
	buf, err := b.HashingBlob(blob[:0])
	if err != nil {
		return types.ZeroHash, err
	}
	return Id(buf), nil
}
