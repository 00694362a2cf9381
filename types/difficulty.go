package types

import (
	"errors"
	"io"
	"math"
	"math/big"
	"math/bits"
	"strconv"
	"strings"

	"git.gammaspectra.live/P2Pool/sharechain/utils"
	fasthex "github.com/tmthrgd/go-hex"
	"lukechampine.com/uint128"
)

const DifficultySize = 16

var ZeroDifficulty = Difficulty(uint128.Zero)
var MaxDifficulty = Difficulty(uint128.Max)

// Difficulty is an unsigned 128-bit value. On the wire it is carried as two 64-bit halves, Lo then Hi.
type Difficulty uint128.Uint128

func NewDifficulty(lo, hi uint64) Difficulty {
	return Difficulty{Lo: lo, Hi: hi}
}

func DifficultyFrom64(v uint64) Difficulty {
	return NewDifficulty(v, 0)
}

func (d Difficulty) IsZero() bool {
	return uint128.Uint128(d).IsZero()
}

func (d Difficulty) Equals(v Difficulty) bool {
	return uint128.Uint128(d).Equals(uint128.Uint128(v))
}

func (d Difficulty) Equals64(v uint64) bool {
	return uint128.Uint128(d).Equals64(v)
}

func (d Difficulty) Cmp(v Difficulty) int {
	if d == v {
		return 0
	} else if d.Hi < v.Hi || (d.Hi == v.Hi && d.Lo < v.Lo) {
		return -1
	} else {
		return 1
	}
}

func (d Difficulty) Cmp64(v uint64) int {
	return uint128.Uint128(d).Cmp64(v)
}

// Add wraps on overflow
func (d Difficulty) Add(v Difficulty) Difficulty {
	lo, carry := bits.Add64(d.Lo, v.Lo, 0)
	hi, _ := bits.Add64(d.Hi, v.Hi, carry)
	return Difficulty{Lo: lo, Hi: hi}
}

// Add64 wraps on overflow
func (d Difficulty) Add64(v uint64) Difficulty {
	return Difficulty(uint128.Uint128(d).AddWrap64(v))
}

// Sub wraps on underflow
func (d Difficulty) Sub(v Difficulty) Difficulty {
	return Difficulty(uint128.Uint128(d).SubWrap(uint128.Uint128(v)))
}

// Mul64 wraps on overflow
func (d Difficulty) Mul64(v uint64) Difficulty {
	hi, lo := bits.Mul64(d.Lo, v)
	hi += d.Hi * v
	return Difficulty{Lo: lo, Hi: hi}
}

func (d Difficulty) Div64(v uint64) Difficulty {
	return Difficulty(uint128.Uint128(d).Div64(v))
}

func (d Difficulty) PutBytesBE(b []byte) {
	uint128.Uint128(d).PutBytesBE(b)
}

func (d Difficulty) Big() *big.Int {
	return uint128.Uint128(d).Big()
}

func (d Difficulty) Float64() float64 {
	return float64(d.Lo) + float64(d.Hi)*(float64(math.MaxUint64)+1)
}

// MarshalJSON renders values that fit in 64 bits as numbers, wider values as a quoted big endian hex string
func (d Difficulty) MarshalJSON() ([]byte, error) {
	if d.Hi == 0 {
		return strconv.AppendUint(nil, d.Lo, 10), nil
	}

	var encodeBuf [DifficultySize]byte
	d.PutBytesBE(encodeBuf[:])

	var buf [DifficultySize*2 + 2]byte
	buf[0] = '"'
	buf[DifficultySize*2+1] = '"'
	fasthex.Encode(buf[1:], encodeBuf[:])
	return buf[:], nil
}

func (d *Difficulty) UnmarshalJSON(b []byte) (err error) {
	if len(b) == 0 {
		return io.ErrUnexpectedEOF
	}

	if b[0] == '"' {
		if len(b) < 2 || b[len(b)-1] != '"' {
			return errors.New("invalid bytes")
		}

		diff, err := DifficultyFromString(string(b[1 : len(b)-1]))
		if err != nil {
			return err
		}
		*d = diff
		return nil
	}

	lo, err := utils.ParseUint64(b)
	if err == nil {
		*d = DifficultyFrom64(lo)
		return nil
	} else if !errors.Is(err, strconv.ErrRange) {
		return err
	}

	var bInt big.Int
	if err = bInt.UnmarshalText(b); err != nil {
		return err
	}
	if bInt.Sign() < 0 {
		return errors.New("value cannot be negative")
	} else if bInt.BitLen() > 128 {
		return errors.New("value overflows Uint128")
	}
	*d = Difficulty(uint128.FromBig(&bInt))
	return nil
}

func MustDifficultyFromString(s string) Difficulty {
	if d, err := DifficultyFromString(s); err != nil {
		panic(err)
	} else {
		return d
	}
}

// DifficultyFromString parses either a 0x prefixed hex number of any width, or exactly 32 hex characters
func DifficultyFromString(s string) (Difficulty, error) {
	if strIn, ok := strings.CutPrefix(s, "0x"); ok {
		if len(strIn)%2 != 0 {
			strIn = "0" + strIn
		}
		buf, err := fasthex.DecodeString(strIn)
		if err != nil {
			return ZeroDifficulty, err
		}
		if len(buf) > DifficultySize {
			return ZeroDifficulty, errors.New("difficulty too large")
		}
		var d [DifficultySize]byte
		copy(d[DifficultySize-len(buf):], buf)
		return DifficultyFromBytes(d[:]), nil
	}

	buf, err := fasthex.DecodeString(s)
	if err != nil {
		return ZeroDifficulty, err
	}
	if len(buf) != DifficultySize {
		return ZeroDifficulty, errors.New("wrong difficulty size")
	}
	return DifficultyFromBytes(buf), nil
}

// DifficultyFromBytes reads a big endian 128-bit value
func DifficultyFromBytes(buf []byte) Difficulty {
	return Difficulty(uint128.FromBytesBE(buf))
}

func (d Difficulty) Bytes() []byte {
	var buf [DifficultySize]byte
	d.PutBytesBE(buf[:])
	return buf[:]
}

func (d Difficulty) String() string {
	return fasthex.EncodeToString(d.Bytes())
}

func (d Difficulty) StringNumeric() string {
	return uint128.Uint128(d).String()
}
