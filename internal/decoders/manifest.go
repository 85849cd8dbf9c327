package decoders

import "github.com/txplain/blocktree/internal/registry"

// ActionEntries returns every action decoder this package registers. It is
// the manifest internal/registry.NewRegistry is built from at startup
// (spec §4.B) — add a protocol by appending its Entry() call here, not by
// touching the registry package.
func ActionEntries() []registry.ActionEntry {
	return []registry.ActionEntry{
		TransferEntry(),
		TransferFromEntry(),
		SwapEntry(),
		SwapV3Entry(),
		MintV3Entry(),
		BurnV3Entry(),
		CollectV3Entry(),
		BuyGemEntry(),
		SellGemEntry(),
		LiquidationCallEntry(),
		FlashLoanEntry(),
		AggregatorSwapEntry(),
	}
}
