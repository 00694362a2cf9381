package sidechain

import (
	"bytes"
	"encoding/hex"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"git.gammaspectra.live/P2Pool/sharechain/monero"
	"git.gammaspectra.live/P2Pool/sharechain/monero/address"
	mainblock "git.gammaspectra.live/P2Pool/sharechain/monero/block"
	"git.gammaspectra.live/P2Pool/sharechain/monero/crypto"
	"git.gammaspectra.live/P2Pool/sharechain/types"
	"git.gammaspectra.live/P2Pool/sharechain/utils"
	fasthex "github.com/tmthrgd/go-hex"
)

func init() {
	utils.GlobalLogLevel = 0
}

type testPoolBlockData struct {
	Name         string
	MainData     string
	SideData     string
	Layout       mainblock.Layout
	MajorVersion uint8
	GenHeight    uint64
	SideHeight   uint64
	Nonce        uint32
	ExtraNonce   uint32
	Uncles       int
	Difficulty   types.Difficulty
	CumDiff      types.Difficulty
	SideChainId  types.Hash
	HashingBlob  string
	MainId       types.Hash
	CoinbaseId   types.Hash
	Payout       uint64
}

var (
	testWalletSpend = crypto.PublicKeyBytes(types.MustHashFromString("58ca7d0b9a410087e78e67078d4207e1a27e99b46910cd0496300c19e5aac329"))
	testWalletView  = crypto.PublicKeyBytes(types.MustHashFromString("a6b9c4e8e3deda07b5c39aacdc80e822ee450821d68f53dabb2af23d33bcb837"))
)

var testPoolBlocks = []testPoolBlockData{
	{
		Name:         "TaggedOutputs",
		MainData:     "101080e2cfaa0607a64f2010cf5a94158dc803666d72b450aadcb156892caf5620cee71556f6ba7856341202fc8db70101ffc08db7010380e0a596bb110365b959264ae8f647537509507ff8384faa7efc07faed7533f0a7d762f6504cf611959aef3a039b1535db4d2719758251ece9696f51c00b31f584a999f07afebcc00cd13d8664b5882703cf45e85cf17b113d15b406f13fbeb422f7220453cbc92c10e0c8671ce0a308272249012010d8ecdfef26b353e820ce2acfefbe87370a10e878ac4a38bf5fc0f26ba3a50204efbeadde032094bcaee8dd09d99f06db544c05d68a454781a1d61242dcb0c699980f4224a27200025194ead3df889a15f3d33e47bcc128114dbb9dcd1147f2de8a8ffba6a815f248183a7d361ca1625fa85289cbdf578effaa4376f038587b9ab574e3fe80e5edc5",
		SideData:     "58ca7d0b9a410087e78e67078d4207e1a27e99b46910cd0496300c19e5aac329a6b9c4e8e3deda07b5c39aacdc80e822ee450821d68f53dabb2af23d33bcb83743bf655f950ea2c617a55cad5fa817e141f16107f838fca85f8ecfd715d20a01ff483e972a04a9a62bb4b7d04ae403c615604e4090521ecc5bb7af67f71be09c028ea24ffb88bb52cf9c84db07c5d7b7918cae230911f1aaa2efe9bf7d431d7e40f3de8d863f2661620c9f1fc3f3e3f1126c4235547756d89e8ec45a5ddd1cca5487ad4be1a712004d05",
		Layout:       mainblock.Layout{HeaderSize: 43, MinerTxSize: 201, OutputsOffset: 54, OutputsBlobSize: 115},
		MajorVersion: 16,
		GenHeight:    3000000,
		SideHeight:   1234567,
		Nonce:        0x12345678,
		ExtraNonce:   0xdeadbeef,
		Uncles:       2,
		Difficulty:   types.DifficultyFrom64(300001),
		CumDiff:      types.NewDifficulty(77, 5),
		SideChainId:  types.MustHashFromString("94bcaee8dd09d99f06db544c05d68a454781a1d61242dcb0c699980f4224a272"),
		HashingBlob:  "101080e2cfaa0607a64f2010cf5a94158dc803666d72b450aadcb156892caf5620cee71556f6ba78563412595971f687727856ddf80cfce8a4edb41acf9d92c4ed7dc137652294b81ee20d03",
		MainId:       types.MustHashFromString("91ac7505d9875c6500427ed5a0f5537c0ce4b936aebee1527bf032599ac16305"),
		CoinbaseId:   types.MustHashFromString("e9bb3688741fc1ff1446d653f7edaf5ae65ed43fcf0604db0a791758ff2599dc"),
		Payout:       123456789,
	},
	{
		Name:         "PlainOutputs",
		MainData:     "0e0e80e2cfaa0607a64f2010cf5a94158dc803666d72b450aadcb156892caf5620cee71556f6ba0700000002dccb980101ffa0cb980102bc05022157284626621de80d5b7f4b2610fa7537f760571c8c9f6410dede9935c18eeba006027521d1cadbcfa91eec65aa16715b94ffc1c9654ba57ea2ef1a2127bca1127a834b012010d8ecdfef26b353e820ce2acfefbe87370a10e878ac4a38bf5fc0f26ba3a50206010000000000032054808711a3bad6716806b590f0b85d81901bb3d71596e8415fd4d0b81664b94e0000",
		SideData:     "58ca7d0b9a410087e78e67078d4207e1a27e99b46910cd0496300c19e5aac329a6b9c4e8e3deda07b5c39aacdc80e822ee450821d68f53dabb2af23d33bcb83743bf655f950ea2c617a55cad5fa817e141f16107f838fca85f8ecfd715d20a01ff483e972a04a9a62bb4b7d04ae403c615604e4090521ecc5bb7af67f71be09c002aa08d060080a094a58d1d00",
		Layout:       mainblock.Layout{HeaderSize: 43, MinerTxSize: 159, OutputsOffset: 54, OutputsBlobSize: 71},
		MajorVersion: 14,
		GenHeight:    2500000,
		SideHeight:   42,
		Nonce:        7,
		ExtraNonce:   1,
		Uncles:       0,
		Difficulty:   types.DifficultyFrom64(100000),
		CumDiff:      types.DifficultyFrom64(1000000000000),
		SideChainId:  types.MustHashFromString("54808711a3bad6716806b590f0b85d81901bb3d71596e8415fd4d0b81664b94e"),
		HashingBlob:  "0e0e80e2cfaa0607a64f2010cf5a94158dc803666d72b450aadcb156892caf5620cee71556f6ba0700000004e1e33c872cf0265ca1b434c618510ecf7f05f9d6215dd72352862989ac5d6201",
		MainId:       types.MustHashFromString("71cbaa30a2d4335d00feac0091d873e7043c4b2523d24d8c509d6b0d7dbdd666"),
		CoinbaseId:   types.MustHashFromString("04e1e33c872cf0265ca1b434c618510ecf7f05f9d6215dd72352862989ac5d62"),
		Payout:       700,
	},
}

func (d testPoolBlockData) Data() (mainData, sideData []byte) {
	mainData, _ = fasthex.DecodeString(d.MainData)
	sideData, _ = fasthex.DecodeString(d.SideData)
	return mainData, sideData
}

func (d testPoolBlockData) Block(t testing.TB) *PoolBlock {
	mainData, sideData := d.Data()
	b := NewPoolBlock()
	if err := b.UnmarshalBinary(ConsensusDefault, &NilDerivationCache{}, append(mainData, sideData...)); err != nil {
		t.Fatal(err)
	}
	return b
}

// unparsed copy of the block, free of any captured reference encodings
func testUnparsedBlock(b *PoolBlock) *PoolBlock {
	c := NewPoolBlock()
	c.Main = b.Main
	c.Main.Transactions = slices.Clone(b.Main.Transactions)
	c.Main.Coinbase.Outputs = slices.Clone(b.Main.Coinbase.Outputs)
	c.Side = b.Side.clone()
	return c
}

func testWallet() *address.Address {
	return address.FromRawAddress(monero.MainNetwork, &testWalletSpend, &testWalletView)
}

func expectBytes(t *testing.T, name string, actual, expected []byte) {
	t.Helper()
	if !bytes.Equal(actual, expected) {
		t.Logf("EXPECTED (len %d):\n%s", len(expected), hex.Dump(expected))
		t.Logf("ACTUAL (len %d):\n%s", len(actual), hex.Dump(actual))
		t.Fatalf("mismatched %s", name)
	}
}

func TestPoolBlock_UnmarshalBinary(t *testing.T) {
	for _, e := range testPoolBlocks {
		t.Run(e.Name, func(t *testing.T) {
			mainData, sideData := e.Data()
			b := e.Block(t)

			if b.Main.MajorVersion != e.MajorVersion || b.Main.MinorVersion != e.MajorVersion {
				t.Fatalf("unexpected version %d.%d", b.Main.MajorVersion, b.Main.MinorVersion)
			}
			if b.Main.Coinbase.GenHeight != e.GenHeight {
				t.Fatalf("expected gen height %d, got %d", e.GenHeight, b.Main.Coinbase.GenHeight)
			}
			if b.Side.Height != e.SideHeight {
				t.Fatalf("expected side height %d, got %d", e.SideHeight, b.Side.Height)
			}
			if b.Main.Nonce != e.Nonce || b.ExtraNonce() != e.ExtraNonce {
				t.Fatalf("unexpected nonce %x / %x", b.Main.Nonce, b.ExtraNonce())
			}
			if len(b.Side.Uncles) != e.Uncles {
				t.Fatalf("expected %d uncles, got %d", e.Uncles, len(b.Side.Uncles))
			}
			if b.Side.Difficulty != e.Difficulty || b.Side.CumulativeDifficulty != e.CumDiff {
				t.Fatalf("unexpected difficulty %s / %s", b.Side.Difficulty, b.Side.CumulativeDifficulty)
			}
			if b.SideChainId() != e.SideChainId {
				t.Fatalf("expected side chain id %s, got %s", e.SideChainId, b.SideChainId())
			}
			if b.GetAddress() != address.NewPackedAddressFromBytes(testWalletSpend, testWalletView) {
				t.Fatal("unexpected miner wallet")
			}
			if len(b.Main.Transactions) == 0 || b.Main.Transactions[0] != types.ZeroHash {
				t.Fatal("expected empty miner transaction slot")
			}

			buf, layout, err := b.SerializeMainchainData()
			if err != nil {
				t.Fatal(err)
			}
			expectBytes(t, "mainchain data", buf, mainData)
			if layout != e.Layout {
				t.Fatalf("unexpected layout %+v", layout)
			}

			expectBytes(t, "sidechain data", b.SerializeSidechainData(), sideData)

			full, err := b.MarshalBinary()
			if err != nil {
				t.Fatal(err)
			}
			expectBytes(t, "block", full, append(mainData, sideData...))
			if len(full) != b.BufferLength() {
				t.Fatalf("expected buffer length %d, got %d", len(full), b.BufferLength())
			}
		})
	}
}

func TestPoolBlock_SerializeIdempotent(t *testing.T) {
	for _, e := range testPoolBlocks {
		t.Run(e.Name, func(t *testing.T) {
			b := e.Block(t)

			first, _, err := b.SerializeMainchainData()
			if err != nil {
				t.Fatal(err)
			}
			// hashing fills the miner transaction slot, which is never serialized
			if _, err = b.MainId(); err != nil {
				t.Fatal(err)
			}
			second, _, err := b.SerializeMainchainData()
			if err != nil {
				t.Fatal(err)
			}
			expectBytes(t, "mainchain data", second, first)
			expectBytes(t, "sidechain data", b.SerializeSidechainData(), b.SerializeSidechainData())
		})
	}
}

func TestPoolBlock_Identifiers(t *testing.T) {
	for _, e := range testPoolBlocks {
		t.Run(e.Name, func(t *testing.T) {
			b := e.Block(t)

			coinbaseId, err := b.CoinbaseId()
			if err != nil {
				t.Fatal(err)
			}
			if coinbaseId != e.CoinbaseId {
				t.Fatalf("expected coinbase id %s, got %s", e.CoinbaseId, coinbaseId)
			}

			blob, err := b.HashingBlob()
			if err != nil {
				t.Fatal(err)
			}
			expected, _ := fasthex.DecodeString(e.HashingBlob)
			expectBytes(t, "hashing blob", blob, expected)

			if b.Main.Transactions[0] != e.CoinbaseId {
				t.Fatalf("expected miner transaction slot %s, got %s", e.CoinbaseId, b.Main.Transactions[0])
			}

			mainId, err := b.MainId()
			if err != nil {
				t.Fatal(err)
			}
			if mainId != e.MainId {
				t.Fatalf("expected main id %s, got %s", e.MainId, mainId)
			}

			sideChainId, err := ConsensusDefault.CalculateSideChainId(b)
			if err != nil {
				t.Fatal(err)
			}
			if sideChainId != e.SideChainId {
				t.Fatalf("expected side chain id %s, got %s", e.SideChainId, sideChainId)
			}
		})
	}
}

func TestPoolBlock_UnmarshalBinaryErrors(t *testing.T) {
	e := testPoolBlocks[0]
	mainData, sideData := e.Data()
	data := append(slices.Clone(mainData), sideData...)

	mutate := func(offset int, value ...byte) []byte {
		buf := slices.Clone(data)
		copy(buf[offset:], value)
		return buf
	}

	invalidPoint := make([]byte, crypto.PublicKeySize)
	invalidPoint[0] = 2

	otherNetwork := *ConsensusDefault
	otherNetwork.NetworkType = monero.NetworkTestnet
	plainMain, plainSide := testPoolBlocks[1].Data()

	for _, c := range []struct {
		name      string
		consensus *Consensus
		data      []byte
		err       error
	}{
		{"OtherConsensus", ConsensusMini, data, ErrSideChainIdMismatch},
		{"OtherNetwork", &otherNetwork, append(plainMain, plainSide...), ErrUnexpectedMajorVersion},
		{"InvalidSpendKey", nil, mutate(len(mainData), invalidPoint...), ErrInvalidMinerWallet},
		{"InvalidViewKey", nil, mutate(len(mainData)+crypto.PublicKeySize, invalidPoint...), ErrInvalidMinerWallet},
		{"TransactionKeyMismatch", nil, mutate(len(mainData)+crypto.PublicKeySize*2, 0x44), ErrInvalidTransactionKey},
		{"TransactionKeyTopByte", nil, mutate(len(mainData)+crypto.PublicKeySize*2+crypto.PrivateKeySize-1, 0x81), ErrInvalidTransactionKey},
		{"ModifiedNonceStillMatches", ConsensusDefault, mutate(e.Layout.HeaderSize-4, 0xff, 0xff), nil},
		{"ModifiedParent", ConsensusDefault, mutate(len(mainData)+crypto.PublicKeySize*2+crypto.PrivateKeySize, 0xff), ErrSideChainIdMismatch},
		{"TooLarge", nil, make([]byte, PoolBlockMaxTemplateSize+1), ErrBufferTooLarge},
		{"LeftoverBytes", nil, append(slices.Clone(data), 0), errLeftoverBytesInReader},
	} {
		t.Run(c.name, func(t *testing.T) {
			b := NewPoolBlock()
			err := b.UnmarshalBinary(c.consensus, &NilDerivationCache{}, c.data)
			if c.err == nil {
				if err != nil {
					t.Fatal(err)
				}
				return
			}
			if !errors.Is(err, c.err) {
				t.Fatalf("expected error %v, got %v", c.err, err)
			}
		})
	}

	t.Run("Truncated", func(t *testing.T) {
		for _, n := range []int{0, 1, e.Layout.HeaderSize, len(mainData), len(data) - 1} {
			if err := NewPoolBlock().UnmarshalBinary(nil, &NilDerivationCache{}, data[:n]); err == nil {
				t.Fatalf("expected error decoding %d bytes", n)
			}
		}
	})
}

func TestPoolBlock_TransactionCounts(t *testing.T) {
	// tail of the hashing blob: merkle root ‖ varint(count), with listed transactions keccak("leaf" ‖ i)
	expected := []string{
		"e9bb3688741fc1ff1446d653f7edaf5ae65ed43fcf0604db0a791758ff2599dc01",
		"a1fddd249c6ffa40dc3c28a4cc8d670a6577a0e64d9a572847db8c324e9fee1502",
		"44117721e65f76418e1a1728346daabad355e029467b2cca99218c864baa9d8703",
		"eac2963b8170e759399abb6e8d1d979a7e822c517fe954a579808ac2ac281cf504",
		"1cb1ad1292d85b378763adf895edbd27b94aa703e6e98c8e242721dfcf5f03db05",
		"58bfec0d86db6482452ad334623b04e36c5ccb53e9e7d94e554693dfeeb9fff806",
		"514e8e80a5bb34dba08fc8c792f7ac4ef8fe9a84ec4038a2f2b11097b2d4a08107",
		"a401b7c92e86532d9569053ba99c320b25b3c85ca260d22a4a3ec3065cbc7ac108",
		"341682648737eaa991e76876971771b132225f7c0eea17f0f6cf38c3e80fa2cf09",
	}

	parsed := testPoolBlocks[0].Block(t)

	for i, tail := range expected {
		count := i + 1
		b := testUnparsedBlock(parsed)
		b.Main.Transactions = make([]types.Hash, 1, count)
		for j := 1; j < count; j++ {
			b.Main.Transactions = append(b.Main.Transactions, crypto.Keccak256Single([]byte{'l', 'e', 'a', 'f', byte(j)}))
		}

		blob, err := b.HashingBlob()
		if err != nil {
			t.Fatal(err)
		}
		expectedTail, _ := fasthex.DecodeString(tail)
		if !bytes.Equal(blob[testPoolBlocks[0].Layout.HeaderSize:], expectedTail) {
			t.Fatalf("count %d: expected %x, got %x", count, expectedTail, blob[testPoolBlocks[0].Layout.HeaderSize:])
		}
	}
}

func TestPoolBlock_ThreeLeafMerkleRoot(t *testing.T) {
	b := testPoolBlocks[0].Block(t)

	blob, err := b.HashingBlob()
	if err != nil {
		t.Fatal(err)
	}

	leaves := b.Main.Transactions
	if len(leaves) != 3 {
		t.Fatalf("expected 3 leaves, got %d", len(leaves))
	}

	root := types.Hash(blob[len(blob)-types.HashSize-1 : len(blob)-1])
	pair := crypto.Keccak256(leaves[1][:], leaves[2][:])
	if expected := crypto.Keccak256(leaves[0][:], pair[:]); root != expected {
		t.Fatalf("expected root %s, got %s", expected, root)
	}

	leftPair := crypto.Keccak256(leaves[0][:], leaves[1][:])
	if naive := crypto.Keccak256(leftPair[:], leaves[2][:]); root == naive {
		t.Fatal("root matches left to right pairing")
	}
}

func TestPoolBlock_CopyFrom(t *testing.T) {
	b := testPoolBlocks[0].Block(t)
	b.Verified.Store(true)
	b.Depth.Store(5)

	expected, err := b.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}

	c := b.Copy()
	if !c.Verified.Load() || c.Depth.Load() != 5 {
		t.Fatal("off-chain data was not copied")
	}
	if c.LocalTimestamp() == 0 {
		t.Fatal("local timestamp not set")
	}

	buf, err := c.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	expectBytes(t, "copy", buf, expected)

	// the copy must not share any backing arrays
	c.Main.Transactions[1] = types.ZeroHash
	c.Main.Coinbase.Outputs[0].Reward = 1
	c.Side.Uncles[0] = types.ZeroHash

	buf, err = b.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	expectBytes(t, "source after copy mutation", buf, expected)

	// a held source lock does not block the copy
	b.lock.Lock()
	locked := b.Copy()
	b.lock.Unlock()
	if locked.Side.Height != b.Side.Height {
		t.Fatal("copy with held lock did not copy")
	}
}

// waitGroupTimeout fails the test if wg is not done within d
func waitGroupTimeout(t *testing.T, wg *sync.WaitGroup, d time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatalf("goroutines did not finish within %s", d)
	}
}

func TestPoolBlock_CopyFromCrossed(t *testing.T) {
	a := testPoolBlocks[0].Block(t)
	b := testPoolBlocks[1].Block(t)

	var encodings [][]byte
	for _, e := range testPoolBlocks {
		mainData, sideData := e.Data()
		encodings = append(encodings, append(mainData, sideData...))
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for range 2000 {
			a.CopyFrom(b)
		}
	}()
	go func() {
		defer wg.Done()
		for range 2000 {
			b.CopyFrom(a)
		}
	}()
	waitGroupTimeout(t, &wg, 5*time.Second)

	for i, blk := range []*PoolBlock{a, b} {
		buf, err := blk.MarshalBinary()
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(buf, encodings[0]) && !bytes.Equal(buf, encodings[1]) {
			t.Fatalf("block %d: copy produced a mixed block", i)
		}
	}
}

func TestPoolBlock_CopyDuringPowHash(t *testing.T) {
	b := testPoolBlocks[0].Block(t)
	hasher := &testBlobHasher{}

	expected, err := b.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	wg.Add(3)
	go func() {
		defer wg.Done()
		for range 500 {
			if _, err := b.PowHash(hasher, b.Main.Coinbase.GenHeight, testSeed); err != nil {
				errs <- err
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for range 500 {
			if _, _, err := b.SerializeMainchainData(); err != nil {
				errs <- err
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for range 500 {
			c := b.Copy()
			buf, err := c.MarshalBinary()
			if err != nil {
				errs <- err
				return
			}
			if !bytes.Equal(buf, expected) {
				errs <- errors.New("mismatched copy")
				return
			}
		}
	}()
	waitGroupTimeout(t, &wg, 10*time.Second)
	close(errs)

	for err := range errs {
		t.Fatal(err)
	}
}

func TestPoolBlock_ResetOffchainData(t *testing.T) {
	b := NewPoolBlock()
	b.Depth.Store(3)
	b.Verified.Store(true)
	b.Invalid.Store(true)
	b.Broadcasted.Store(true)
	b.WantBroadcast.Store(true)
	b.Precalculated.Store(true)
	b.localTimestamp.Store(1)

	b.ResetOffchainData()

	if b.Depth.Load() != 0 || b.Verified.Load() || b.Invalid.Load() || b.Broadcasted.Load() || b.WantBroadcast.Load() || b.Precalculated.Load() {
		t.Fatal("off-chain data not reset")
	}
	if b.LocalTimestamp() <= 1 {
		t.Fatal("local timestamp not refreshed")
	}
}

func TestPoolBlock_ExtraNonceClamp(t *testing.T) {
	b := testUnparsedBlock(testPoolBlocks[0].Block(t))
	b.Main.Coinbase.ExtraNonceSize = 200

	buf, layout, err := b.SerializeMainchainData()
	if err != nil {
		t.Fatal(err)
	}
	if len(buf) != b.Main.BufferLength() {
		t.Fatalf("expected buffer length %d, got %d", b.Main.BufferLength(), len(buf))
	}

	var decoded mainblock.Block
	if err = decoded.UnmarshalBinary(buf); err != nil {
		t.Fatal(err)
	}
	if decoded.Coinbase.ExtraNonceSize != 14 {
		t.Fatalf("expected clamped extra nonce size, got %d", decoded.Coinbase.ExtraNonceSize)
	}
	if decoded.Coinbase.ExtraNonce != testPoolBlocks[0].ExtraNonce {
		t.Fatalf("unexpected extra nonce %x", decoded.Coinbase.ExtraNonce)
	}
	if layout.MinerTxSize != testPoolBlocks[0].Layout.MinerTxSize+10 {
		t.Fatalf("unexpected miner transaction size %d", layout.MinerTxSize)
	}
}

func TestPoolBlock_Concurrent(t *testing.T) {
	b := testPoolBlocks[0].Block(t)
	hasher := &testBlobHasher{}

	expected, err := b.PowHash(hasher, b.Main.Coinbase.GenHeight, testSeed)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for range 16 {
				if h, err := b.PowHash(hasher, b.Main.Coinbase.GenHeight, testSeed); err != nil {
					errs <- err
					return
				} else if h != expected {
					errs <- errors.New("mismatched pow hash")
					return
				}
			}
		}()
		go func() {
			defer wg.Done()
			for range 16 {
				if b.GetPayout(testWallet(), &NilDerivationCache{}) != testPoolBlocks[0].Payout {
					errs <- errors.New("mismatched payout")
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatal(err)
	}
}
