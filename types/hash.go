package types

import (
	"bytes"
	"errors"

	fasthex "github.com/tmthrgd/go-hex"
)

const HashSize = 32

type Hash [HashSize]byte

var ZeroHash Hash

var ErrInvalidHashSize = errors.New("invalid hash size")

func (h Hash) Slice() []byte {
	return h[:]
}

func (h Hash) String() string {
	return fasthex.EncodeToString(h[:])
}

func (h Hash) Compare(other Hash) int {
	return bytes.Compare(h[:], other[:])
}

func (h Hash) Equals(other Hash) bool {
	return h == other
}

func HashFromBytes(buf []byte) (h Hash) {
	if len(buf) != HashSize {
		return
	}
	copy(h[:], buf)
	return
}

func HashFromString(s string) (Hash, error) {
	var h Hash
	if len(s) != HashSize*2 {
		return h, ErrInvalidHashSize
	}
	if _, err := fasthex.Decode(h[:], []byte(s)); err != nil {
		return h, err
	}
	return h, nil
}

func MustHashFromString(s string) Hash {
	h, err := HashFromString(s)
	if err != nil {
		panic(err)
	}
	return h
}

func (h Hash) MarshalJSON() ([]byte, error) {
	var buf [HashSize*2 + 2]byte
	buf[0] = '"'
	buf[HashSize*2+1] = '"'
	fasthex.Encode(buf[1:], h[:])
	return buf[:], nil
}

func (h *Hash) UnmarshalJSON(b []byte) error {
	if len(b) != HashSize*2+2 || b[0] != '"' || b[len(b)-1] != '"' {
		return ErrInvalidHashSize
	}
	_, err := fasthex.Decode(h[:], b[1:len(b)-1])
	return err
}

// Bytes is a byte slice rendered as hex in JSON
type Bytes []byte

func (b Bytes) MarshalJSON() ([]byte, error) {
	buf := make([]byte, len(b)*2+2)
	buf[0] = '"'
	buf[len(buf)-1] = '"'
	fasthex.Encode(buf[1:], b)
	return buf, nil
}

func (b *Bytes) UnmarshalJSON(buf []byte) error {
	if len(buf) < 2 || buf[0] != '"' || buf[len(buf)-1] != '"' || len(buf)%2 != 0 {
		return errors.New("invalid bytes")
	}
	*b = make(Bytes, (len(buf)-2)/2)
	_, err := fasthex.Decode(*b, buf[1:len(buf)-1])
	return err
}

func (b Bytes) String() string {
	return fasthex.EncodeToString(b)
}
