package address

import (
	"bytes"
	"errors"

	base58 "git.gammaspectra.live/P2Pool/monero-base58"
	"git.gammaspectra.live/P2Pool/sharechain/monero"
	"git.gammaspectra.live/P2Pool/sharechain/monero/crypto"
)

// Address standard or subaddress, network prefix ‖ spend ‖ view ‖ checksum
type Address struct {
	SpendPub    crypto.PublicKeyBytes
	ViewPub     crypto.PublicKeyBytes
	TypeNetwork uint8
	hasChecksum bool
	checksum    Checksum
}

const ChecksumLength = 4

type Checksum [ChecksumLength]byte

const rawAddressLength = 1 + crypto.PublicKeySize*2 + ChecksumLength

var (
	ErrInvalidAddress     = errors.New("invalid address")
	ErrInvalidChecksum    = errors.New("invalid address checksum")
	ErrUnsupportedAddress = errors.New("unsupported address type")
)

func (a *Address) SpendPublicKey() *crypto.PublicKeyBytes {
	return &a.SpendPub
}

func (a *Address) ViewPublicKey() *crypto.PublicKeyBytes {
	return &a.ViewPub
}

func (a *Address) ToPackedAddress() PackedAddress {
	return NewPackedAddressFromBytes(a.SpendPub, a.ViewPub)
}

func (a *Address) Network() (monero.NetworkType, error) {
	switch a.TypeNetwork {
	case monero.MainNetwork, monero.SubAddressMainNetwork:
		return monero.NetworkMainnet, nil
	case monero.TestNetwork, monero.SubAddressTestNetwork:
		return monero.NetworkTestnet, nil
	case monero.StageNetwork, monero.SubAddressStageNetwork:
		return monero.NetworkStagenet, nil
	default:
		return 0, monero.ErrInvalidNetwork
	}
}

func (a *Address) IsSubaddress() bool {
	return a.TypeNetwork == monero.SubAddressMainNetwork || a.TypeNetwork == monero.SubAddressTestNetwork || a.TypeNetwork == monero.SubAddressStageNetwork
}

// FromBase58 parses a standard address or subaddress. Integrated addresses are not supported.
func FromBase58(address string) (*Address, error) {
	var preAllocatedBuf [rawAddressLength]byte
	raw := base58.DecodeMoneroBase58PreAllocated(preAllocatedBuf[:0], []byte(address))

	if len(raw) != rawAddressLength {
		return nil, ErrInvalidAddress
	}

	switch raw[0] {
	case monero.MainNetwork, monero.TestNetwork, monero.StageNetwork:
	case monero.SubAddressMainNetwork, monero.SubAddressTestNetwork, monero.SubAddressStageNetwork:
	default:
		return nil, ErrUnsupportedAddress
	}

	a := &Address{
		TypeNetwork: raw[0],
		checksum:    checksumHash(raw[:rawAddressLength-ChecksumLength]),
		hasChecksum: true,
	}

	if !bytes.Equal(a.checksum[:], raw[rawAddressLength-ChecksumLength:]) {
		return nil, ErrInvalidChecksum
	}

	copy(a.SpendPub[:], raw[1:])
	copy(a.ViewPub[:], raw[1+crypto.PublicKeySize:])

	return a, nil
}

func checksumHash(data []byte) (sum Checksum) {
	h := crypto.PooledKeccak256(data)
	copy(sum[:], h[:ChecksumLength])
	return
}

func FromRawAddress(typeNetwork uint8, spend, view *crypto.PublicKeyBytes) *Address {
	return &Address{
		TypeNetwork: typeNetwork,
		SpendPub:    *spend,
		ViewPub:     *view,
	}
}

func (a *Address) verifyChecksum() {
	if !a.hasChecksum {
		var nice [1 + crypto.PublicKeySize*2]byte
		nice[0] = a.TypeNetwork
		copy(nice[1:], a.SpendPub[:])
		copy(nice[1+crypto.PublicKeySize:], a.ViewPub[:])
		a.checksum = checksumHash(nice[:])
		a.hasChecksum = true
	}
}

func (a *Address) Valid() bool {
	return a.ViewPublicKey().AsPoint() != nil && a.SpendPublicKey().AsPoint() != nil
}

func (a *Address) ToBase58() []byte {
	a.verifyChecksum()
	buf := make([]byte, 0, 95)
	return base58.EncodeMoneroBase58PreAllocated(buf, []byte{a.TypeNetwork}, a.SpendPub[:], a.ViewPub[:], a.checksum[:])
}

func (a *Address) String() string {
	return string(a.ToBase58())
}

func (a *Address) MarshalJSON() ([]byte, error) {
	b58 := a.ToBase58()
	result := make([]byte, len(b58)+2)
	result[0] = '"'
	copy(result[1:], b58)
	result[len(result)-1] = '"'
	return result, nil
}

func (a *Address) UnmarshalJSON(b []byte) error {
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return errors.New("unsupported length")
	}
	addr, err := FromBase58(string(b[1 : len(b)-1]))
	if err != nil {
		return err
	}
	*a = *addr
	return nil
}
