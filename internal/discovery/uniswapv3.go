package discovery

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/txplain/blocktree/internal/models"
	"github.com/txplain/blocktree/internal/registry"
	"github.com/txplain/blocktree/internal/store"
)

const uniswapV3FactoryABI = `[
	{"type":"function","name":"createPool","inputs":[{"name":"tokenA","type":"address"},{"name":"tokenB","type":"address"},{"name":"fee","type":"uint24"}],"outputs":[{"name":"pool","type":"address"}]}
]`

var uniswapV3FactoryContract = ParseABI(uniswapV3FactoryABI)
var uniswapV3CreatePoolMethod = MustMethod(uniswapV3FactoryContract, "createPool")

// UniswapV3Protocol must match internal/decoders.UniswapV3Protocol so
// dispatch finds the swap/mint/burn/collect decoders once a pool this
// factory deployed is registered (seed scenario S3).
const UniswapV3Protocol = "uniswap_v3"

func uniswapV3CreatePoolTransform(factoryAddr common.Address) Transform {
	return func(ctx context.Context, snap *store.Snapshot, deployed common.Address, traceIndex int, callData DecodedParams) ([]models.NewPool, error) {
		tokenA, _ := callData["tokenA"].(common.Address)
		tokenB, _ := callData["tokenB"].(common.Address)
		tokens := []common.Address{tokenA, tokenB}

		if err := snap.RegisterPool(ctx, deployed, UniswapV3Protocol, tokens, uint64(0)); err != nil {
			return nil, err
		}

		return []models.NewPool{{
			Anchor:  models.Anchor{TraceIndex: traceIndex, Protocol: UniswapV3Protocol},
			Factory: factoryAddr,
			Pool:    deployed,
			Tokens:  tokens,
		}}, nil
	}
}

// CreatePoolEntry registers UniswapV3Factory.createPool as a discovery
// trigger.
func CreatePoolEntry(factory string) registry.DiscoveryEntry {
	return entry(factory, Selector(uniswapV3CreatePoolMethod), New(Spec{
		Protocol:  UniswapV3Protocol,
		Factory:   factory,
		Method:    uniswapV3CreatePoolMethod,
		Transform: uniswapV3CreatePoolTransform(common.HexToAddress(factory)),
	}))
}
