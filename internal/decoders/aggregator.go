package decoders

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"context"

	"github.com/txplain/blocktree/internal/models"
	"github.com/txplain/blocktree/internal/rational"
	"github.com/txplain/blocktree/internal/registry"
	"github.com/txplain/blocktree/internal/store"
)

const aggregatorABI = `[
	{"type":"function","name":"swap","inputs":[{"name":"tokenIn","type":"address"},{"name":"tokenOut","type":"address"},{"name":"amountIn","type":"uint256"},{"name":"minReturn","type":"uint256"},{"name":"recipient","type":"address"}],"outputs":[{"name":"amountOut","type":"uint256"}]}
]`

var aggregatorContract = parseABI(aggregatorABI)
var aggregatorSwapMethod = mustMethod(aggregatorContract, "swap")

// AggregatorProtocol is the dispatch protocol name for a generic DEX
// aggregator router facade: one router entry point that internally routes
// through several pool swaps, which the multi-frame rewriter collapses into
// a single AggregatorSwap (§4.F).
const AggregatorProtocol = "aggregator"

func aggregatorSwapTransform(ctx context.Context, snap *store.Snapshot, info models.CallInfo, trace *models.Trace, callData DecodedParams, logs []DecodedLog, returnData DecodedParams) (models.Action, error) {
	tokenIn, _ := callData["tokenIn"].(common.Address)
	tokenOut, _ := callData["tokenOut"].(common.Address)
	recipient, _ := callData["recipient"].(common.Address)
	if tokenIn == (common.Address{}) || tokenOut == (common.Address{}) {
		return nil, fmt.Errorf("aggregator: missing token addresses in swap calldata")
	}

	return &models.AggregatorSwap{
		Anchor:    models.Anchor{TraceIndex: info.TraceIndex, Protocol: AggregatorProtocol},
		From:      info.From,
		Recipient: recipient,
		Router:    info.To,
		TokenIn:   tokenIn,
		TokenOut:  tokenOut,
		AmountIn:  rational.Zero(),
		AmountOut: rational.Zero(),
	}, nil
}

// AggregatorSwapEntry registers the router's swap(...) entry point, the
// anchor a MultiCallFrameClassifier searches down from (§4.F).
func AggregatorSwapEntry() registry.ActionEntry {
	spec := Spec{
		Protocol:      AggregatorProtocol,
		Method:        aggregatorSwapMethod,
		WantsCallData: true,
		Transform:     aggregatorSwapTransform,
	}
	return registry.ActionEntry{Protocol: AggregatorProtocol, Selector: selectorOf(aggregatorSwapMethod), Decoder: New(spec)}
}
