package discovery

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/txplain/blocktree/internal/models"
	"github.com/txplain/blocktree/internal/registry"
	"github.com/txplain/blocktree/internal/store"
)

const curveMetaFactoryABI = `[
	{"type":"function","name":"deploy_metapool","inputs":[{"name":"base_pool","type":"address"},{"name":"name","type":"string"},{"name":"symbol","type":"string"},{"name":"coin","type":"address"},{"name":"A","type":"uint256"},{"name":"fee","type":"uint256"}],"outputs":[{"name":"pool","type":"address"}]}
]`

var curveMetaFactoryContract = ParseABI(curveMetaFactoryABI)
var curveDeployMetapoolMethod = MustMethod(curveMetaFactoryContract, "deploy_metapool")

// CurveMetaProtocol must match the protocol name whatever Curve metapool
// action decoders register under.
const CurveMetaProtocol = "curve_meta"

// curveDeployMetapoolTransform registers the new metapool AND — unlike every
// other factory in this package — may also surface a second NewPool for the
// base pool it pairs with, if that base pool has never been registered (a
// meta-factory can deploy against a base pool minted by a different,
// un-indexed factory). This is the multi-pool-per-CREATE case named in
// spec §4.D.
func curveDeployMetapoolTransform(factoryAddr common.Address) Transform {
	return func(ctx context.Context, snap *store.Snapshot, deployed common.Address, traceIndex int, callData DecodedParams) ([]models.NewPool, error) {
		basePool, _ := callData["base_pool"].(common.Address)
		coin, _ := callData["coin"].(common.Address)
		tokens := []common.Address{coin}

		if err := snap.RegisterPool(ctx, deployed, CurveMetaProtocol, tokens, uint64(0)); err != nil {
			return nil, err
		}
		pools := []models.NewPool{{
			Anchor:  models.Anchor{TraceIndex: traceIndex, Protocol: CurveMetaProtocol},
			Factory: factoryAddr,
			Pool:    deployed,
			Tokens:  tokens,
		}}

		if basePool != (common.Address{}) {
			if _, known, err := snap.LookupProtocol(ctx, basePool); err != nil {
				return nil, err
			} else if !known {
				if err := snap.RegisterPool(ctx, basePool, CurveMetaProtocol, nil, uint64(0)); err != nil {
					return nil, err
				}
				pools = append(pools, models.NewPool{
					Anchor:  models.Anchor{TraceIndex: traceIndex, Protocol: CurveMetaProtocol},
					Factory: factoryAddr,
					Pool:    basePool,
					Tokens:  nil,
				})
			}
		}

		return pools, nil
	}
}

// DeployMetapoolEntry registers the Curve meta-factory's deploy_metapool as
// a discovery trigger.
func DeployMetapoolEntry(factory string) registry.DiscoveryEntry {
	return entry(factory, Selector(curveDeployMetapoolMethod), New(Spec{
		Protocol:  CurveMetaProtocol,
		Factory:   factory,
		Method:    curveDeployMetapoolMethod,
		Transform: curveDeployMetapoolTransform(common.HexToAddress(factory)),
	}))
}
