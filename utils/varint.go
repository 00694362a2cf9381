package utils

import (
	"encoding/binary"
	"errors"
	"io"
	"math/bits"
)

// Monero varints are little-endian base 128 with the high bit as continuation flag,
// the same layout as encoding/binary Uvarint. Encoding uses binary.AppendUvarint / binary.PutUvarint directly,
// decoding goes through the canonical readers below as consensus rejects padded encodings.

var ErrVarintOverflow = errors.New("varint overflows a 64-bit integer")

var ErrNonCanonicalEncoding = errors.New("varint has non canonical encoding")

// ReadCanonicalUvarint reads an encoded unsigned integer from r.
// Returns ErrNonCanonicalEncoding when a trailing zero group was read.
// The error is [io.EOF] only if no bytes were read, [io.ErrUnexpectedEOF] if the value was cut short.
func ReadCanonicalUvarint(r io.ByteReader) (uint64, error) {
	var x uint64
	var s uint
	for i := 0; i < binary.MaxVarintLen64; i++ {
		b, err := r.ReadByte()
		if err != nil {
			if i > 0 && err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return x, err
		}
		if i > 0 && b == 0 {
			return x, ErrNonCanonicalEncoding
		}
		if b < 0x80 {
			if i == binary.MaxVarintLen64-1 && b > 1 {
				return x, ErrVarintOverflow
			}
			return x | uint64(b)<<s, nil
		}
		x |= uint64(b&0x7f) << s
		s += 7
	}
	return x, ErrVarintOverflow
}

// CanonicalUvarint decodes a uint64 from buf and returns that value and the number of bytes read (> 0).
// On error the value is 0 and n is:
//   - n == 0: buf too small
//   - n < 0: overflow or non-canonical encoding, -n is the number of bytes read
func CanonicalUvarint(buf []byte) (uint64, int) {
	var x uint64
	var s uint
	for i, b := range buf {
		if i == binary.MaxVarintLen64 {
			return 0, -(i + 1)
		}
		if i > 0 && b == 0 {
			return 0, -(i + 1)
		}
		if b < 0x80 {
			if i == binary.MaxVarintLen64-1 && b > 1 {
				return 0, -(i + 1)
			}
			return x | uint64(b)<<s, i + 1
		}
		x |= uint64(b&0x7f) << s
		s += 7
	}
	return 0, 0
}

// UVarInt64Size encoded size of v, without encoding it
func UVarInt64Size[T uint64 | int | uint8](v T) (n int) {
	return 1 + (bits.Len64(uint64(v))*9)/64
}
