package sidechain

import (
	"bytes"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"git.gammaspectra.live/P2Pool/edwards25519"
	"git.gammaspectra.live/P2Pool/sharechain/monero"
	"git.gammaspectra.live/P2Pool/sharechain/monero/address"
	mainblock "git.gammaspectra.live/P2Pool/sharechain/monero/block"
	"git.gammaspectra.live/P2Pool/sharechain/monero/crypto"
	"git.gammaspectra.live/P2Pool/sharechain/types"
	"git.gammaspectra.live/P2Pool/sharechain/utils"
)

// PoolBlockMaxTemplateSize Max P2P message size (128 KB) minus BLOCK_RESPONSE header (5 bytes)
const PoolBlockMaxTemplateSize = 128*1024 - (1 + 4)

// PoolBlockMaxSideChainHeight 1000 years at 1 block/second. It should be enough for any normal use.
const PoolBlockMaxSideChainHeight = 31556952000

// PoolBlockMaxCumulativeDifficulty 1000 years at 1 TH/s. It should be enough for any normal use.
var PoolBlockMaxCumulativeDifficulty = types.NewDifficulty(13019633956666736640, 1710)

var (
	ErrBufferTooLarge         = errors.New("buffer too large")
	ErrInvalidMinerWallet     = errors.New("invalid miner wallet keys")
	ErrInvalidTransactionKey  = errors.New("transaction secret key does not match public key")
	ErrSideChainIdMismatch    = errors.New("side chain id mismatch")
	ErrUnexpectedMajorVersion = errors.New("unexpected major version")
	ErrUninitializedBlock     = errors.New("tried to calculate PoW of uninitialized block")
	ErrHashingBlobTooLarge    = errors.New("hashing blob too large")
	errLeftoverBytesInReader  = errors.New("leftover bytes in reader")
)

const logPrefix = "PoolBlock"

// PoolBlock a share of the side chain, encoded as a host chain block paying every miner in the window.
// Instances are shared between goroutines, serialization and hashing hold the block lock.
type PoolBlock struct {
	lock sync.Mutex

	Main mainblock.Block `json:"main"`

	Side SideData `json:"side"`

	// off-chain bookkeeping, never serialized
	Depth         atomic.Uint64 `json:"-"`
	Verified      atomic.Bool   `json:"-"`
	Invalid       atomic.Bool   `json:"-"`
	Broadcasted   atomic.Bool   `json:"-"`
	WantBroadcast atomic.Bool   `json:"-"`
	Precalculated atomic.Bool   `json:"-"`

	// localTimestamp seconds since epoch when the block was created or last reset
	localTimestamp atomic.Uint64

	debug debugData
}

func NewPoolBlock() *PoolBlock {
	b := &PoolBlock{}
	b.Main.Transactions = make([]types.Hash, 1)
	b.localTimestamp.Store(uint64(time.Now().Unix()))
	return b
}

func (b *PoolBlock) LocalTimestamp() uint64 {
	return b.localTimestamp.Load()
}

// ResetOffchainData clears verification state, called whenever the block contents are established anew
func (b *PoolBlock) ResetOffchainData() {
	b.Depth.Store(0)

	b.Verified.Store(false)
	b.Invalid.Store(false)

	b.Broadcasted.Store(false)
	b.WantBroadcast.Store(false)

	b.Precalculated.Store(false)

	b.localTimestamp.Store(uint64(time.Now().Unix()))
}

// copySourceLockWait how long CopyFrom keeps trying the source lock before copying without it
const copySourceLockWait = 100 * time.Millisecond

// tryLockFor spins on TryLock until the lock is taken or wait has passed
func tryLockFor(l *sync.Mutex, wait time.Duration) bool {
	deadline := time.Now().Add(wait)
	for !l.TryLock() {
		if time.Now().After(deadline) {
			return false
		}
		runtime.Gosched()
	}
	return true
}

// CopyFrom deep copies src into b.
// The source is snapshotted first and b is locked afterwards, so at most one block lock is held at any time.
// The source lock is only tried, if it stays held the copy goes ahead and the defect is logged.
func (b *PoolBlock) CopyFrom(src *PoolBlock) {
	if b == src {
		return
	}

	locked := tryLockFor(&src.lock, copySourceLockWait)
	if !locked {
		utils.Errorf(logPrefix, "CopyFrom: source lock is held, fix the code!")
	}

	mainBlock := src.Main
	mainBlock.Transactions = slices.Clone(src.Main.Transactions)
	mainBlock.Coinbase.Outputs = slices.Clone(src.Main.Coinbase.Outputs)
	side := src.Side.clone()

	var debug debugData
	debug.copyFrom(&src.debug)

	if locked {
		src.lock.Unlock()
	}

	b.lock.Lock()
	defer b.lock.Unlock()

	b.Main = mainBlock
	b.Side = side
	b.debug = debug

	b.Depth.Store(src.Depth.Load())
	b.Verified.Store(src.Verified.Load())
	b.Invalid.Store(src.Invalid.Load())
	b.Broadcasted.Store(src.Broadcasted.Load())
	b.WantBroadcast.Store(src.WantBroadcast.Load())
	b.Precalculated.Store(src.Precalculated.Load())

	b.localTimestamp.Store(uint64(time.Now().Unix()))
}

func (b *PoolBlock) Copy() *PoolBlock {
	c := &PoolBlock{}
	c.CopyFrom(b)
	return c
}

func (b *PoolBlock) GetTransactionOutputType() uint8 {
	// Both tx types are allowed by Monero consensus during v15 because it needs to process pre-fork mempool transactions,
	// but P2Pool can switch to using only TXOUT_TO_TAGGED_KEY for miner payouts starting from v15
	return b.Main.OutputType()
}

func (b *PoolBlock) GetAddress() address.PackedAddress {
	return b.Side.PublicKey
}

func (b *PoolBlock) ExtraNonce() uint32 {
	return b.Main.Coinbase.ExtraNonce
}

func (b *PoolBlock) SideChainId() types.Hash {
	return b.Main.Coinbase.SidechainId
}

// SerializeMainchainData host chain block encoding, with the layout of the header and miner transaction
func (b *PoolBlock) SerializeMainchainData() ([]byte, mainblock.Layout, error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	return b.serializeMainchainDataNoLock(make([]byte, 0, b.Main.BufferLength()))
}

func (b *PoolBlock) serializeMainchainDataNoLock(preAllocatedBuf []byte) ([]byte, mainblock.Layout, error) {
	buf, layout, err := b.Main.AppendBinary(preAllocatedBuf)
	if err != nil {
		return nil, layout, err
	}
	b.debug.checkMainchain(buf[len(preAllocatedBuf):])
	return buf, layout, nil
}

// SerializeSidechainData side chain relay encoding
func (b *PoolBlock) SerializeSidechainData() []byte {
	b.lock.Lock()
	defer b.lock.Unlock()

	return b.serializeSidechainDataNoLock(make([]byte, 0, b.Side.BufferLength()))
}

func (b *PoolBlock) serializeSidechainDataNoLock(preAllocatedBuf []byte) []byte {
	buf := b.Side.AppendBinary(preAllocatedBuf)
	b.debug.checkSidechain(buf[len(preAllocatedBuf):])
	return buf
}

func (b *PoolBlock) BufferLength() int {
	return b.Main.BufferLength() + b.Side.BufferLength()
}

// MarshalBinary mainchain data followed by sidechain data, as relayed between peers
func (b *PoolBlock) MarshalBinary() ([]byte, error) {
	return b.AppendBinary(make([]byte, 0, b.BufferLength()))
}

func (b *PoolBlock) AppendBinary(preAllocatedBuf []byte) (buf []byte, err error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	if buf, _, err = b.serializeMainchainDataNoLock(preAllocatedBuf); err != nil {
		return nil, err
	}
	buf = b.serializeSidechainDataNoLock(buf)

	if len(buf)-len(preAllocatedBuf) > PoolBlockMaxTemplateSize {
		return nil, ErrBufferTooLarge
	}
	return buf, nil
}

// UnmarshalBinary parses a relayed block. When consensus is not nil, the major version and side chain id are checked against it.
func (b *PoolBlock) UnmarshalBinary(consensus *Consensus, derivationCache DerivationCacheInterface, data []byte) error {
	if len(data) > PoolBlockMaxTemplateSize {
		return ErrBufferTooLarge
	}

	b.lock.Lock()
	defer b.lock.Unlock()

	reader := bytes.NewReader(data)
	if err := b.Main.FromReader(reader); err != nil {
		return err
	}
	mainSize := len(data) - reader.Len()

	if err := b.consensusDecode(consensus, derivationCache, reader); err != nil {
		return err
	}
	if reader.Len() > 0 {
		return errLeftoverBytesInReader
	}

	b.ResetOffchainData()
	b.debug.capture(data[:mainSize], data[mainSize:])
	return nil
}

func (b *PoolBlock) FromReader(consensus *Consensus, derivationCache DerivationCacheInterface, reader utils.ReaderAndByteReader) (err error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	if err = b.Main.FromReader(reader); err != nil {
		return err
	}

	if err = b.consensusDecode(consensus, derivationCache, reader); err != nil {
		return err
	}

	b.ResetOffchainData()
	return nil
}

func (b *PoolBlock) consensusDecode(consensus *Consensus, derivationCache DerivationCacheInterface, reader utils.ReaderAndByteReader) (err error) {
	if err = b.Side.FromReader(reader); err != nil {
		return err
	}

	if derivationCache.GetPublicKeyPoint(b.Side.PublicKey.SpendPublicKey()) == nil || derivationCache.GetPublicKeyPoint(b.Side.PublicKey.ViewPublicKey()) == nil {
		return ErrInvalidMinerWallet
	}

	if !checkTransactionKeys(&b.Main.Coinbase.TxPublicKey, &b.Side.CoinbasePrivateKey) {
		return ErrInvalidTransactionKey
	}

	if consensus == nil {
		return nil
	}

	if expectedMajorVersion := monero.NetworkMajorVersion(consensus.NetworkType, b.Main.Coinbase.GenHeight); expectedMajorVersion != b.Main.MajorVersion {
		return fmt.Errorf("%w: expected %d at height %d, got %d", ErrUnexpectedMajorVersion, expectedMajorVersion, b.Main.Coinbase.GenHeight, b.Main.MajorVersion)
	}

	if sideChainId, err := consensus.calculateSideChainIdNoLock(b); err != nil {
		return err
	} else if sideChainId != b.Main.Coinbase.SidechainId {
		return fmt.Errorf("%w: expected %s, got %s", ErrSideChainIdMismatch, sideChainId, b.Main.Coinbase.SidechainId)
	}

	return nil
}

// checkTransactionKeys txKey·G == txPublicKey. The top byte of txKey must not exceed 127.
func checkTransactionKeys(txPublicKey *crypto.PublicKeyBytes, txKey *crypto.PrivateKeyBytes) bool {
	if txKey[crypto.PrivateKeySize-1] > 127 {
		return false
	}
	var p edwards25519.Point
	p.ScalarBaseMult(txKey.AsReducedScalar())
	return crypto.PublicKeyFromPoint(&p) == *txPublicKey
}
