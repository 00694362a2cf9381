package crypto

import (
	"errors"

	"git.gammaspectra.live/P2Pool/edwards25519"
	"git.gammaspectra.live/P2Pool/sharechain/types"
	fasthex "github.com/tmthrgd/go-hex"
)

const PublicKeySize = 32
const PrivateKeySize = 32

var ErrInvalidPoint = errors.New("invalid curve point")
var ErrInvalidScalar = errors.New("invalid scalar")

// PublicKeyBytes compressed edwards25519 point, as stored on chain
type PublicKeyBytes [PublicKeySize]byte

var ZeroPublicKeyBytes PublicKeyBytes

func (k *PublicKeyBytes) AsSlice() []byte {
	return k[:]
}

// AsPoint decodes the point, nil if k is not a valid encoding
func (k *PublicKeyBytes) AsPoint() *edwards25519.Point {
	p, err := new(edwards25519.Point).SetBytes(k[:])
	if err != nil {
		return nil
	}
	return p
}

func (k PublicKeyBytes) String() string {
	return fasthex.EncodeToString(k[:])
}

func (k PublicKeyBytes) MarshalJSON() ([]byte, error) {
	return types.Hash(k).MarshalJSON()
}

func (k *PublicKeyBytes) UnmarshalJSON(b []byte) error {
	return (*types.Hash)(k).UnmarshalJSON(b)
}

func PublicKeyFromPoint(p *edwards25519.Point) (k PublicKeyBytes) {
	copy(k[:], p.Bytes())
	return k
}

// PrivateKeyBytes canonical little endian scalar
type PrivateKeyBytes [PrivateKeySize]byte

var ZeroPrivateKeyBytes PrivateKeyBytes

func (k *PrivateKeyBytes) AsSlice() []byte {
	return k[:]
}

// AsScalar decodes the scalar, nil if k is not reduced
func (k *PrivateKeyBytes) AsScalar() *edwards25519.Scalar {
	s, err := new(edwards25519.Scalar).SetCanonicalBytes(k[:])
	if err != nil {
		return nil
	}
	return s
}

// AsReducedScalar k modulo the group order, never nil
func (k *PrivateKeyBytes) AsReducedScalar() *edwards25519.Scalar {
	return scReduce32(new(edwards25519.Scalar), k[:])
}

// PublicKey k·G
func (k *PrivateKeyBytes) PublicKey() (PublicKeyBytes, error) {
	s := k.AsScalar()
	if s == nil {
		return ZeroPublicKeyBytes, ErrInvalidScalar
	}
	return PublicKeyFromPoint(new(edwards25519.Point).ScalarBaseMult(s)), nil
}

func (k PrivateKeyBytes) String() string {
	return fasthex.EncodeToString(k[:])
}

func (k PrivateKeyBytes) MarshalJSON() ([]byte, error) {
	return types.Hash(k).MarshalJSON()
}

func (k *PrivateKeyBytes) UnmarshalJSON(b []byte) error {
	return (*types.Hash)(k).UnmarshalJSON(b)
}

// scReduce32 reduces a 32 byte little endian value modulo the group order
func scReduce32(s *edwards25519.Scalar, buf []byte) *edwards25519.Scalar {
	var wide [64]byte
	copy(wide[:], buf[:32])
	_, _ = s.SetUniformBytes(wide[:])
	return s
}

// HashToScalar Monero Hs(data), keccak reduced modulo the group order
func HashToScalar(data ...[]byte) *edwards25519.Scalar {
	h := PooledKeccak256(data...)
	return scReduce32(new(edwards25519.Scalar), h[:])
}
