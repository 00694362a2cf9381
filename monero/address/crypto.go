package address

import (
	"git.gammaspectra.live/P2Pool/edwards25519"
	"git.gammaspectra.live/P2Pool/sha3"
	"git.gammaspectra.live/P2Pool/sharechain/monero/crypto"
)

// GetEphemeralPublicKeyAndViewTag one time output key Hs(8·r·V ‖ varint(i))·G + S and its view tag.
// Returns false if the wallet keys are not valid points.
func GetEphemeralPublicKeyAndViewTag(a Interface, txKey *crypto.PrivateKeyBytes, outputIndex uint64) (crypto.PublicKeyBytes, uint8, bool) {
	spendPub := a.SpendPublicKey().AsPoint()
	derivation, ok := crypto.GetDerivation(txKey, a.ViewPublicKey())
	if spendPub == nil || !ok {
		return crypto.ZeroPublicKeyBytes, 0, false
	}

	hasher := crypto.GetKeccak256Hasher()
	defer crypto.PutKeccak256Hasher(hasher)
	key, viewTag := GetEphemeralPublicKeyAndViewTagNoAllocate(spendPub, derivation, outputIndex, hasher)
	return key, viewTag, true
}

// GetEphemeralPublicKey same as GetEphemeralPublicKeyAndViewTag, for outputs without view tags
func GetEphemeralPublicKey(a Interface, txKey *crypto.PrivateKeyBytes, outputIndex uint64) (crypto.PublicKeyBytes, bool) {
	spendPub := a.SpendPublicKey().AsPoint()
	derivation, ok := crypto.GetDerivation(txKey, a.ViewPublicKey())
	if spendPub == nil || !ok {
		return crypto.ZeroPublicKeyBytes, false
	}

	hasher := crypto.GetKeccak256Hasher()
	defer crypto.PutKeccak256Hasher(hasher)
	return GetEphemeralPublicKeyNoAllocate(spendPub, derivation, outputIndex, hasher), true
}

// GetPublicKeyForSharedData sharedData·G + S
func GetPublicKeyForSharedData(spendPublicKeyPoint *edwards25519.Point, sharedData *edwards25519.Scalar) crypto.PublicKeyBytes {
	var intermediatePublicKey, ephemeralPublicKey edwards25519.Point
	intermediatePublicKey.UnsafeVarTimeScalarBaseMult(sharedData)
	ephemeralPublicKey.Add(&intermediatePublicKey, spendPublicKeyPoint)

	return crypto.PublicKeyFromPoint(&ephemeralPublicKey)
}

// GetEphemeralPublicKeyAndViewTagNoAllocate Special version of GetEphemeralPublicKeyAndViewTag, with a precomputed derivation
func GetEphemeralPublicKeyAndViewTagNoAllocate(spendPublicKeyPoint *edwards25519.Point, derivation crypto.PublicKeyBytes, outputIndex uint64, hasher *sha3.HasherState) (crypto.PublicKeyBytes, uint8) {
	derivationSharedData, viewTag := crypto.GetDerivationSharedDataAndViewTagForOutputIndexNoAllocate(derivation, outputIndex, hasher)
	return GetPublicKeyForSharedData(spendPublicKeyPoint, &derivationSharedData), viewTag
}

// GetEphemeralPublicKeyNoAllocate Special version of GetEphemeralPublicKey, with a precomputed derivation
func GetEphemeralPublicKeyNoAllocate(spendPublicKeyPoint *edwards25519.Point, derivation crypto.PublicKeyBytes, outputIndex uint64, hasher *sha3.HasherState) crypto.PublicKeyBytes {
	derivationSharedData := crypto.GetDerivationSharedDataForOutputIndexNoAllocate(derivation, outputIndex, hasher)
	return GetPublicKeyForSharedData(spendPublicKeyPoint, &derivationSharedData)
}
