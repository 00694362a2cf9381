package sidechain

import (
	"git.gammaspectra.live/P2Pool/edwards25519"
	"git.gammaspectra.live/P2Pool/sharechain/monero/crypto"
	"git.gammaspectra.live/P2Pool/sharechain/utils"
)

type DerivationCacheInterface interface {
	// GetDerivation 8·txKey·viewPublicKey, false if viewPublicKey is not a valid point
	GetDerivation(viewPublicKey *crypto.PublicKeyBytes, txKey *crypto.PrivateKeyBytes) (crypto.PublicKeyBytes, bool)
	// GetPublicKeyPoint decoded point, nil if publicKey is not a valid point
	GetPublicKeyPoint(publicKey *crypto.PublicKeyBytes) *edwards25519.Point
	Clear()
}

type derivationCacheKey [crypto.PublicKeySize + crypto.PrivateKeySize]byte

// DerivationCache memoizes derivations and decoded spend keys.
// Scanning consecutive shares for the same wallet mostly sees repeated (wallet, tx key) pairs.
type DerivationCache struct {
	derivationCache utils.Cache[derivationCacheKey, crypto.PublicKeyBytes]
	pointCache      utils.Cache[crypto.PublicKeyBytes, *edwards25519.Point]
}

const (
	derivationCacheSize = 4096 * 8
	pointCacheSize      = 4096
)

func NewDerivationLRUCache() *DerivationCache {
	return &DerivationCache{
		derivationCache: utils.NewLRUCache[derivationCacheKey, crypto.PublicKeyBytes](derivationCacheSize),
		pointCache:      utils.NewLRUCache[crypto.PublicKeyBytes, *edwards25519.Point](pointCacheSize),
	}
}

func (d *DerivationCache) Clear() {
	d.derivationCache.Clear()
	d.pointCache.Clear()
}

func (d *DerivationCache) GetDerivation(viewPublicKey *crypto.PublicKeyBytes, txKey *crypto.PrivateKeyBytes) (crypto.PublicKeyBytes, bool) {
	var key derivationCacheKey
	copy(key[:], viewPublicKey[:])
	copy(key[crypto.PublicKeySize:], txKey[:])

	if derivation, ok := d.derivationCache.Get(key); ok {
		return derivation, true
	}

	point := d.GetPublicKeyPoint(viewPublicKey)
	if point == nil {
		return crypto.ZeroPublicKeyBytes, false
	}
	derivation := crypto.GetDerivationNoAllocate(point, txKey.AsReducedScalar())
	d.derivationCache.Set(key, derivation)
	return derivation, true
}

// GetPublicKeyPoint returned points are shared, callers must not modify them
func (d *DerivationCache) GetPublicKeyPoint(publicKey *crypto.PublicKeyBytes) *edwards25519.Point {
	if p, ok := d.pointCache.Get(*publicKey); ok {
		return p
	}
	p := publicKey.AsPoint()
	if p != nil {
		d.pointCache.Set(*publicKey, p)
	}
	return p
}

// NilDerivationCache computes everything from scratch
type NilDerivationCache struct {
}

func (d *NilDerivationCache) Clear() {}

func (d *NilDerivationCache) GetDerivation(viewPublicKey *crypto.PublicKeyBytes, txKey *crypto.PrivateKeyBytes) (crypto.PublicKeyBytes, bool) {
	return crypto.GetDerivation(txKey, viewPublicKey)
}

func (d *NilDerivationCache) GetPublicKeyPoint(publicKey *crypto.PublicKeyBytes) *edwards25519.Point {
	return publicKey.AsPoint()
}
