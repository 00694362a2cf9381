package monero

type NetworkType uint8

const (
	NetworkMainnet NetworkType = iota
	NetworkTestnet
	NetworkStagenet
)

func (n NetworkType) String() string {
	switch n {
	case NetworkMainnet:
		return "mainnet"
	case NetworkTestnet:
		return "testnet"
	case NetworkStagenet:
		return "stagenet"
	default:
		return "invalid"
	}
}

func (n NetworkType) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

func (n *NetworkType) UnmarshalText(b []byte) error {
	switch string(b) {
	case "mainnet", "":
		*n = NetworkMainnet
	case "testnet":
		*n = NetworkTestnet
	case "stagenet":
		*n = NetworkStagenet
	default:
		return ErrInvalidNetwork
	}
	return nil
}

// Standard address prefixes, encoded as a single byte varint
const (
	MainNetwork  uint8 = 18
	TestNetwork  uint8 = 53
	StageNetwork uint8 = 24

	IntegratedMainNetwork  uint8 = 19
	IntegratedTestNetwork  uint8 = 54
	IntegratedStageNetwork uint8 = 25

	SubAddressMainNetwork  uint8 = 42
	SubAddressTestNetwork  uint8 = 63
	SubAddressStageNetwork uint8 = 36
)

// AddressPrefix returns the standard address prefix of the network
func (n NetworkType) AddressPrefix() uint8 {
	switch n {
	case NetworkTestnet:
		return TestNetwork
	case NetworkStagenet:
		return StageNetwork
	default:
		return MainNetwork
	}
}

const (
	// MinerRewardUnlockTime CRYPTONOTE_MINED_MONEY_UNLOCK_WINDOW
	MinerRewardUnlockTime = 60

	BlockTime = 120

	// CurrentTxVersion miner transactions use RingCT layout since v4
	CurrentTxVersion = 2
)
