package sidechain

import (
	"git.gammaspectra.live/P2Pool/sharechain/monero/address"
	"git.gammaspectra.live/P2Pool/sharechain/monero/crypto"
	"git.gammaspectra.live/P2Pool/sharechain/monero/transaction"
)

// GetPayout reward of the first output paying to wallet, 0 if there is none.
// Tagged outputs are matched on the view tag before the one time key is computed.
func (b *PoolBlock) GetPayout(wallet address.Interface, derivationCache DerivationCacheInterface) uint64 {
	b.lock.Lock()
	defer b.lock.Unlock()

	spendPoint := derivationCache.GetPublicKeyPoint(wallet.SpendPublicKey())
	if spendPoint == nil {
		return 0
	}
	derivation, ok := derivationCache.GetDerivation(wallet.ViewPublicKey(), &b.Side.CoinbasePrivateKey)
	if !ok {
		return 0
	}

	hasher := crypto.GetKeccak256Hasher()
	defer crypto.PutKeccak256Hasher(hasher)

	tagged := b.GetTransactionOutputType() == transaction.TxOutToTaggedKey

	for i := range b.Main.Coinbase.Outputs {
		out := &b.Main.Coinbase.Outputs[i]

		var ephemeralPublicKey crypto.PublicKeyBytes
		if tagged {
			sharedData, viewTag := crypto.GetDerivationSharedDataAndViewTagForOutputIndexNoAllocate(derivation, uint64(i), hasher)
			if viewTag != out.ViewTag {
				continue
			}
			ephemeralPublicKey = address.GetPublicKeyForSharedData(spendPoint, &sharedData)
		} else {
			ephemeralPublicKey = address.GetEphemeralPublicKeyNoAllocate(spendPoint, derivation, uint64(i), hasher)
		}

		if ephemeralPublicKey == out.EphemeralPublicKey {
			return out.Reward
		}
	}

	return 0
}
