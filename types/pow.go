package types

import (
	"encoding/binary"
	"math/bits"

	"lukechampine.com/uint128"
)

// DifficultyFromPoW returns the highest difficulty powHash satisfies, floor((2^128 - 1) / top 128 bits)
func DifficultyFromPoW(powHash Hash) Difficulty {
	if powHash == ZeroHash {
		return ZeroDifficulty
	}

	return Difficulty(uint128.Max.Div(uint128.FromBytes(powHash[16:])))
}

// CheckPoW reports whether pow * d < 2^256, with pow read as a little endian 256-bit number.
// This is the exact check the host chain applies, unlike comparing against DifficultyFromPoW
// which only looks at the top 128 bits.
func (d Difficulty) CheckPoW(pow Hash) bool {
	var result [6]uint64

	a := [4]uint64{
		binary.LittleEndian.Uint64(pow[:]),
		binary.LittleEndian.Uint64(pow[8:]),
		binary.LittleEndian.Uint64(pow[16:]),
		binary.LittleEndian.Uint64(pow[24:]),
	}
	b := [2]uint64{d.Lo, d.Hi}

	// multiply from the most significant limb down so overflow is detected as early as possible
	for i := 3; i >= 0; i-- {
		for j := 1; j >= 0; j-- {
			if b[j] == 0 {
				continue
			}
			hi, lo := bits.Mul64(a[i], b[j])

			var carry uint64
			result[i+j], carry = bits.Add64(result[i+j], lo, 0)
			result[i+j+1], carry = bits.Add64(result[i+j+1], hi, carry)
			for k := i + j + 2; k < len(result) && carry > 0; k++ {
				result[k], carry = bits.Add64(result[k], 0, carry)
			}

			if result[4] > 0 || result[5] > 0 {
				return false
			}
		}
	}

	return true
}
