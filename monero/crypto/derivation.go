package crypto

import (
	"encoding/binary"

	"git.gammaspectra.live/P2Pool/edwards25519"
	"git.gammaspectra.live/P2Pool/sha3"
)

// GetDerivation 8·k·P, with k reduced. Returns false if p is not a valid point.
func GetDerivation(k *PrivateKeyBytes, p *PublicKeyBytes) (PublicKeyBytes, bool) {
	point := p.AsPoint()
	if point == nil {
		return ZeroPublicKeyBytes, false
	}
	return GetDerivationNoAllocate(point, k.AsReducedScalar()), true
}

func GetDerivationNoAllocate(point *edwards25519.Point, scalar *edwards25519.Scalar) PublicKeyBytes {
	var p, derivation edwards25519.Point
	p.UnsafeVarTimeScalarMult(scalar, point)
	derivation.MultByCofactor(&p)

	return PublicKeyFromPoint(&derivation)
}

var viewTagDomain = []byte("view_tag")

// GetDerivationSharedDataAndViewTagForOutputIndexNoAllocate returns Hs(derivation ‖ varint(outputIndex))
// and the first byte of keccak("view_tag" ‖ derivation ‖ varint(outputIndex)).
// hasher is reset before use.
func GetDerivationSharedDataAndViewTagForOutputIndexNoAllocate(derivation PublicKeyBytes, outputIndex uint64, hasher *sha3.HasherState) (edwards25519.Scalar, uint8) {
	var buf [PublicKeySize + binary.MaxVarintLen64]byte
	copy(buf[:], derivation[:])
	n := PublicKeySize + binary.PutUvarint(buf[PublicKeySize:], outputIndex)

	var h [32]byte

	hasher.Reset()
	_, _ = hasher.Write(viewTagDomain)
	_, _ = hasher.Write(buf[:n])
	HashFastSum(hasher, h[:])
	viewTag := h[0]

	hasher.Reset()
	_, _ = hasher.Write(buf[:n])
	HashFastSum(hasher, h[:])

	var sharedData edwards25519.Scalar
	scReduce32(&sharedData, h[:])

	return sharedData, viewTag
}

// GetDerivationSharedDataForOutputIndexNoAllocate Hs(derivation ‖ varint(outputIndex)), for outputs without view tags
func GetDerivationSharedDataForOutputIndexNoAllocate(derivation PublicKeyBytes, outputIndex uint64, hasher *sha3.HasherState) (sharedData edwards25519.Scalar) {
	var buf [PublicKeySize + binary.MaxVarintLen64]byte
	copy(buf[:], derivation[:])
	n := PublicKeySize + binary.PutUvarint(buf[PublicKeySize:], outputIndex)

	var h [32]byte
	hasher.Reset()
	_, _ = hasher.Write(buf[:n])
	HashFastSum(hasher, h[:])

	scReduce32(&sharedData, h[:])
	return sharedData
}

func GetDerivationSharedDataAndViewTagForOutputIndex(derivation PublicKeyBytes, outputIndex uint64) (*edwards25519.Scalar, uint8) {
	hasher := GetKeccak256Hasher()
	defer PutKeccak256Hasher(hasher)
	sharedData, viewTag := GetDerivationSharedDataAndViewTagForOutputIndexNoAllocate(derivation, outputIndex, hasher)
	return &sharedData, viewTag
}

func GetDerivationViewTagForOutputIndex(derivation PublicKeyBytes, outputIndex uint64) uint8 {
	var buf [PublicKeySize + binary.MaxVarintLen64]byte
	copy(buf[:], derivation[:])
	n := PublicKeySize + binary.PutUvarint(buf[PublicKeySize:], outputIndex)

	h := PooledKeccak256(viewTagDomain, buf[:n])
	return h[0]
}
