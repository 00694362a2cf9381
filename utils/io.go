package utils

import (
	"io"
	"math"
	"slices"
)

type ReaderAndByteReader interface {
	io.Reader
	io.ByteReader
}

// ReadFullProgressive Reads into dst up to size bytes, growing the buffer by doubling as data arrives.
// Length prefixes read from the wire can then not force a large allocation up front.
func ReadFullProgressive[T ~[]byte](r io.Reader, dst *T, size int) (n int, err error) {
	if size < 0 {
		return 0, io.EOF
	}

	buf := *dst

	var offset int

	// start with 64 KiB at most
	buf = slices.Grow(buf[:0], min(math.MaxUint16+1, size))
	buf = buf[:min(math.MaxUint16+1, size)]

	for {
		// only read past the already filled offset
		if n, err = io.ReadFull(r, buf[offset:]); err != nil {
			return offset + n, err
		}
		offset += n

		if offset >= size || n == 0 {
			break
		}

		buf = slices.Grow(buf[:0], min(offset*2, size))
		buf = buf[:min(offset*2, size)]
	}
	*dst = buf
	return offset, nil
}
