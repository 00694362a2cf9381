package address

import (
	"git.gammaspectra.live/P2Pool/sharechain/monero/crypto"
)

type Interface interface {
	SpendPublicKey() *crypto.PublicKeyBytes
	ViewPublicKey() *crypto.PublicKeyBytes

	ToPackedAddress() PackedAddress
}
