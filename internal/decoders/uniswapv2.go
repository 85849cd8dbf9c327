package decoders

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/txplain/blocktree/internal/models"
	"github.com/txplain/blocktree/internal/rational"
	"github.com/txplain/blocktree/internal/registry"
	"github.com/txplain/blocktree/internal/store"
)

const uniswapV2ABI = `[
	{"type":"function","name":"swap","inputs":[{"name":"amount0Out","type":"uint256"},{"name":"amount1Out","type":"uint256"},{"name":"to","type":"address"},{"name":"data","type":"bytes"}],"outputs":[]},
	{"type":"event","name":"Swap","inputs":[{"name":"sender","type":"address","indexed":true},{"name":"amount0In","type":"uint256","indexed":false},{"name":"amount1In","type":"uint256","indexed":false},{"name":"amount0Out","type":"uint256","indexed":false},{"name":"amount1Out","type":"uint256","indexed":false},{"name":"to","type":"address","indexed":true}]}
]`

var uniswapV2Contract = parseABI(uniswapV2ABI)
var uniswapV2SwapMethod = mustMethod(uniswapV2Contract, "swap")
var uniswapV2SwapEvent = mustEvent(uniswapV2Contract, "Swap")

// UniswapV2Protocol is the dispatch protocol name for UniswapV2-shaped pair
// contracts (also matches Sushiswap/Pancakeswap v2 forks, which share the
// pair ABI byte-for-byte — seed scenario S1).
const UniswapV2Protocol = "uniswap_v2"

func uniswapV2SwapTransform(ctx context.Context, snap *store.Snapshot, info models.CallInfo, trace *models.Trace, callData DecodedParams, logs []DecodedLog, returnData DecodedParams) (models.Action, error) {
	if len(logs) == 0 {
		return nil, fmt.Errorf("uniswap_v2: no Swap log matched")
	}
	fields := logs[0].Fields

	pool := info.To
	pair, ok, err := snap.LookupProtocol(ctx, pool)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.NewClassificationError(models.ErrorKindMissingMetadata, info.TraceIndex, UniswapV2Protocol,
			fmt.Errorf("pool %s not registered", pool.Hex()))
	}

	amount0In, _ := fields["amount0In"].(*big.Int)
	amount1In, _ := fields["amount1In"].(*big.Int)
	amount0Out, _ := fields["amount0Out"].(*big.Int)
	amount1Out, _ := fields["amount1Out"].(*big.Int)
	to, _ := fields["to"].(common.Address)

	var tokenIn, tokenOut common.Address
	var rawIn, rawOut *big.Int
	if amount0In != nil && amount0In.Sign() > 0 {
		tokenIn, tokenOut = pair.Token0, pair.Token1
		rawIn, rawOut = amount0In, amount1Out
	} else {
		tokenIn, tokenOut = pair.Token1, pair.Token0
		rawIn, rawOut = amount1In, amount0Out
	}

	inInfo, ok, err := snap.TokenInfo(ctx, tokenIn)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.NewClassificationError(models.ErrorKindMissingMetadata, info.TraceIndex, UniswapV2Protocol,
			fmt.Errorf("no decimals for token %s", tokenIn.Hex()))
	}
	outInfo, ok, err := snap.TokenInfo(ctx, tokenOut)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.NewClassificationError(models.ErrorKindMissingMetadata, info.TraceIndex, UniswapV2Protocol,
			fmt.Errorf("no decimals for token %s", tokenOut.Hex()))
	}

	amountIn, err := rational.FromRawAmount(rawIn, inInfo.Decimals)
	if err != nil {
		return nil, models.NewClassificationError(models.ErrorKindArithmetic, info.TraceIndex, UniswapV2Protocol, err)
	}
	amountOut, err := rational.FromRawAmount(rawOut, outInfo.Decimals)
	if err != nil {
		return nil, models.NewClassificationError(models.ErrorKindArithmetic, info.TraceIndex, UniswapV2Protocol, err)
	}

	return &models.Swap{
		Anchor:    models.Anchor{TraceIndex: info.TraceIndex, Protocol: UniswapV2Protocol},
		From:      info.From,
		Recipient: to,
		Pool:      pool,
		TokenIn:   tokenIn,
		TokenOut:  tokenOut,
		AmountIn:  amountIn,
		AmountOut: amountOut,
		MsgValue:  rational.Zero(),
	}, nil
}

// SwapEntry registers the UniswapV2 pair swap(...) call.
func SwapEntry() registry.ActionEntry {
	spec := Spec{
		Protocol:      UniswapV2Protocol,
		Method:        uniswapV2SwapMethod,
		WantsCallData: false,
		WantsLogs:     true,
		ExpectedLogs:  []LogSpec{{Name: "Swap", Event: uniswapV2SwapEvent}},
		Transform:     uniswapV2SwapTransform,
	}
	return registry.ActionEntry{Protocol: UniswapV2Protocol, Selector: selectorOf(uniswapV2SwapMethod), Decoder: New(spec)}
}
