package discovery

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/txplain/blocktree/internal/models"
	"github.com/txplain/blocktree/internal/registry"
	"github.com/txplain/blocktree/internal/store"
)

const uniswapV2FactoryABI = `[
	{"type":"function","name":"createPair","inputs":[{"name":"tokenA","type":"address"},{"name":"tokenB","type":"address"}],"outputs":[{"name":"pair","type":"address"}]}
]`

var uniswapV2FactoryContract = ParseABI(uniswapV2FactoryABI)
var uniswapV2CreatePairMethod = MustMethod(uniswapV2FactoryContract, "createPair")

// UniswapV2Protocol is the protocol name registered for pools this factory
// deploys; it must match internal/decoders.UniswapV2Protocol so dispatch
// finds the action decoders once the pool is registered.
const UniswapV2Protocol = "uniswap_v2"

func uniswapV2CreatePairTransform(factoryAddr common.Address) Transform {
	return func(ctx context.Context, snap *store.Snapshot, deployed common.Address, traceIndex int, callData DecodedParams) ([]models.NewPool, error) {
		tokenA, _ := callData["tokenA"].(common.Address)
		tokenB, _ := callData["tokenB"].(common.Address)
		tokens := []common.Address{tokenA, tokenB}

		if err := snap.RegisterPool(ctx, deployed, UniswapV2Protocol, tokens, uint64(0)); err != nil {
			return nil, err
		}

		return []models.NewPool{{
			Anchor:  models.Anchor{TraceIndex: traceIndex, Protocol: UniswapV2Protocol},
			Factory: factoryAddr,
			Pool:    deployed,
			Tokens:  tokens,
		}}, nil
	}
}

// CreatePairEntry registers UniswapV2Factory.createPair as a discovery
// trigger. factory is the checksum address of the deployed factory contract.
func CreatePairEntry(factory string) registry.DiscoveryEntry {
	return entry(factory, Selector(uniswapV2CreatePairMethod), New(Spec{
		Protocol:  UniswapV2Protocol,
		Factory:   factory,
		Method:    uniswapV2CreatePairMethod,
		Transform: uniswapV2CreatePairTransform(common.HexToAddress(factory)),
	}))
}
