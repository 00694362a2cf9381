package utils

import (
	"fmt"
	"math/bits"
	"strconv"
)

// PreviousPowerOfTwo returns the largest power of two <= x, or 0 for x == 0
func PreviousPowerOfTwo(x uint64) int {
	if x == 0 {
		return 0
	}
	return 1 << (bits.Len64(x) - 1)
}

// ParseUint64 parses a decimal uint64 from s, falling back to strconv when the value may not fit.
//
// From https://github.com/valyala/fastjson
func ParseUint64(s []byte) (uint64, error) {
	if len(s) == 0 {
		return 0, fmt.Errorf("cannot parse uint64 from empty string")
	}
	var i uint
	var d uint64
	for i < uint(len(s)) {
		if s[i] < '0' || s[i] > '9' {
			break
		}
		d = d*10 + uint64(s[i]-'0')
		i++
		if i > 18 {
			return strconv.ParseUint(string(s), 10, 64)
		}
	}
	if i == 0 {
		return 0, fmt.Errorf("cannot parse uint64 from %q", s)
	}
	if i < uint(len(s)) {
		return 0, fmt.Errorf("unparsed tail left after parsing uint64 from %q: %q", s, s[i:])
	}
	return d, nil
}
