package models

import "github.com/ethereum/go-ethereum/common"

// ProtocolInfo is a read-only row from the metadata store: everything the
// action dispatcher knows about a contract address. The discovery pipeline
// is the only writer; the dispatcher only reads.
type ProtocolInfo struct {
	Address    common.Address
	Protocol   string // e.g. "uniswap_v2", "aave_v2"
	Token0     common.Address
	Token1     common.Address
	InitBlock  uint64
}

// TokenInfo is a read-only row describing an ERC-20's decimals/symbol, used
// to scale raw amounts into Rationals (§4.C).
type TokenInfo struct {
	Address  common.Address
	Symbol   string
	Decimals uint8
}

// ActionMatchKey selects an action decoder: (protocol tag, function
// selector). Action decoders are keyed on protocol, not raw address, so one
// decoder serves every pool/market of a given protocol version.
type ActionMatchKey struct {
	Protocol string
	Selector [4]byte
}

// DiscoveryMatchKey selects a factory decoder: (factory address, function
// selector). Factories are keyed on address because, by definition, a
// not-yet-discovered pool has no protocol tag yet.
type DiscoveryMatchKey struct {
	Factory  common.Address
	Selector [4]byte
}

// ManualMapping is one entry of the configuration surface's manual-mapping
// table (§6): an address whose protocol automatic discovery cannot
// identify, registered directly into the metadata store before block
// processing starts.
type ManualMapping struct {
	Protocol  string             `yaml:"protocol"`
	Address   string             `yaml:"address"`
	InitBlock uint64             `yaml:"init_block"`
	Tokens    []ManualTokenInfo  `yaml:"token_info,omitempty"`
}

// ManualTokenInfo is one token_info entry attached to a ManualMapping.
type ManualTokenInfo struct {
	Address  string `yaml:"address"`
	Decimals uint8  `yaml:"decimals"`
	Symbol   string `yaml:"symbol"`
}
