package sidechain

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"testing"

	"git.gammaspectra.live/P2Pool/sharechain/types"
)

func TestSideData_UnmarshalBinary(t *testing.T) {
	_, sideData := testPoolBlocks[0].Data()

	var s SideData
	if err := s.UnmarshalBinary(sideData); err != nil {
		t.Fatal(err)
	}

	if *s.PublicKey.SpendPublicKey() != testWalletSpend || *s.PublicKey.ViewPublicKey() != testWalletView {
		t.Fatal("unexpected wallet")
	}
	if len(s.Uncles) != 2 || s.Height != 1234567 {
		t.Fatalf("unexpected uncles %d or height %d", len(s.Uncles), s.Height)
	}
	if s.CumulativeDifficulty != types.NewDifficulty(77, 5) {
		t.Fatalf("unexpected cumulative difficulty %s", s.CumulativeDifficulty)
	}
	if s.BufferLength() != len(sideData) {
		t.Fatalf("expected buffer length %d, got %d", len(sideData), s.BufferLength())
	}

	buf, err := s.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	expectBytes(t, "side data", buf, sideData)

	// decoding again replaces the uncle list
	_, plainSide := testPoolBlocks[1].Data()
	if err = s.UnmarshalBinary(plainSide); err != nil {
		t.Fatal(err)
	}
	if len(s.Uncles) != 0 {
		t.Fatalf("expected no uncles, got %d", len(s.Uncles))
	}
}

func TestSideData_Limits(t *testing.T) {
	_, sideData := testPoolBlocks[1].Data()

	var base SideData
	if err := base.UnmarshalBinary(sideData); err != nil {
		t.Fatal(err)
	}

	encode := func(f func(s *SideData)) []byte {
		s := base.clone()
		f(&s)
		return s.AppendBinary(nil)
	}

	// wallet keys, transaction key and parent precede the uncle count
	fixed := types.HashSize * 4
	tooManyUncles := binary.AppendUvarint(bytes.Clone(sideData[:fixed]), MaxUncleCount+1)

	for _, c := range []struct {
		name string
		data []byte
		ok   bool
	}{
		{"MaxHeight", encode(func(s *SideData) { s.Height = PoolBlockMaxSideChainHeight }), true},
		{"HeightTooHigh", encode(func(s *SideData) { s.Height = PoolBlockMaxSideChainHeight + 1 }), false},
		{"MaxCumulativeDifficulty", encode(func(s *SideData) { s.CumulativeDifficulty = PoolBlockMaxCumulativeDifficulty }), true},
		{"CumulativeDifficultyTooLarge", encode(func(s *SideData) { s.CumulativeDifficulty = PoolBlockMaxCumulativeDifficulty.Add64(1) }), false},
		{"TooManyUncles", tooManyUncles, false},
		{"MissingUncles", encode(func(s *SideData) { s.Uncles = []types.Hash{{1}, {2}} })[:fixed+1+types.HashSize], false},
		{"NonCanonicalHeight", append(append(bytes.Clone(sideData[:fixed+1]), 0xaa, 0x80, 0x00), sideData[fixed+2:]...), false},
		{"Truncated", sideData[:len(sideData)-1], false},
		{"Leftover", append(bytes.Clone(sideData), 0), false},
	} {
		t.Run(c.name, func(t *testing.T) {
			var s SideData
			err := s.UnmarshalBinary(c.data)
			if c.ok && err != nil {
				t.Fatal(err)
			} else if !c.ok && err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func FuzzSideDataRoundTrip(f *testing.F) {
	for _, e := range testPoolBlocks {
		_, sideData := e.Data()
		f.Add(sideData)
	}

	f.Fuzz(func(t *testing.T, buf []byte) {
		b := &SideData{}
		if err := b.UnmarshalBinary(buf); err != nil {
			t.Skipf("leftover error: %s", err)
			return
		}
		data, err := b.MarshalBinary()
		if err != nil {
			t.Fatalf("failed to marshal decoded side data: %s", err)
			return
		}
		if !bytes.Equal(data, buf) {
			t.Logf("EXPECTED (len %d):\n%s", len(buf), hex.Dump(buf))
			t.Logf("ACTUAL (len %d):\n%s", len(data), hex.Dump(data))
			t.Fatalf("mismatched roundtrip")
		}
	})
}
