package discovery

import "github.com/txplain/blocktree/internal/registry"

// FactoryAddresses names the well-known factory contracts discovery
// dispatches on. Populated from internal/config at startup — unlike action
// decoders, a factory decoder's registry key embeds a specific deployed
// address, so the manifest can't be a fixed literal the way
// internal/decoders.ActionEntries is.
type FactoryAddresses struct {
	UniswapV2Factory string
	UniswapV3Factory string
	CurveMetaFactory string
}

// Entries returns every discovery decoder this package registers, bound to
// the factory addresses in addrs.
func Entries(addrs FactoryAddresses) []registry.DiscoveryEntry {
	entries := make([]registry.DiscoveryEntry, 0, 3)
	if addrs.UniswapV2Factory != "" {
		entries = append(entries, CreatePairEntry(addrs.UniswapV2Factory))
	}
	if addrs.UniswapV3Factory != "" {
		entries = append(entries, CreatePoolEntry(addrs.UniswapV3Factory))
	}
	if addrs.CurveMetaFactory != "" {
		entries = append(entries, DeployMetapoolEntry(addrs.CurveMetaFactory))
	}
	return entries
}
