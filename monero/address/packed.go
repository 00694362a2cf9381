package address

import (
	"bytes"
	"unsafe"

	base58 "git.gammaspectra.live/P2Pool/monero-base58"
	"git.gammaspectra.live/P2Pool/sharechain/monero"
	"git.gammaspectra.live/P2Pool/sharechain/monero/crypto"
)

const PackedAddressSpend = 0
const PackedAddressView = 1

// PackedAddress miner wallet as carried by side chain data, 0 = spend, 1 = view
type PackedAddress [2]crypto.PublicKeyBytes

func NewPackedAddressFromBytes(spend, view crypto.PublicKeyBytes) (result PackedAddress) {
	copy(result[PackedAddressSpend][:], spend[:])
	copy(result[PackedAddressView][:], view[:])
	return
}

func (p *PackedAddress) SpendPublicKey() *crypto.PublicKeyBytes {
	return &(*p)[PackedAddressSpend]
}

func (p *PackedAddress) ViewPublicKey() *crypto.PublicKeyBytes {
	return &(*p)[PackedAddressView]
}

func (p *PackedAddress) ToPackedAddress() PackedAddress {
	return *p
}

// ComparePacked orders by spend key, then view key
func (p *PackedAddress) ComparePacked(other *PackedAddress) int {
	if r := bytes.Compare(p[PackedAddressSpend][:], other[PackedAddressSpend][:]); r != 0 {
		return r
	}
	return bytes.Compare(p[PackedAddressView][:], other[PackedAddressView][:])
}

func (p *PackedAddress) ToAddress(network monero.NetworkType) *Address {
	return FromRawAddress(network.AddressPrefix(), p.SpendPublicKey(), p.ViewPublicKey())
}

func (p PackedAddress) ToBase58(typeNetwork uint8) []byte {
	var nice [1 + crypto.PublicKeySize*2]byte
	nice[0] = typeNetwork
	copy(nice[1:], p[PackedAddressSpend][:])
	copy(nice[1+crypto.PublicKeySize:], p[PackedAddressView][:])
	sum := crypto.PooledKeccak256(nice[:])

	buf := make([]byte, 0, 95)
	return base58.EncodeMoneroBase58PreAllocated(buf, nice[:], sum[:ChecksumLength])
}

func (p PackedAddress) Valid() bool {
	return p.ViewPublicKey().AsPoint() != nil && p.SpendPublicKey().AsPoint() != nil
}

func (p PackedAddress) Bytes() []byte {
	return (*[crypto.PublicKeySize * 2]byte)(unsafe.Pointer(&p))[:]
}
