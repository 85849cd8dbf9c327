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

const uniswapV3ABI = `[
	{"type":"function","name":"swap","inputs":[{"name":"recipient","type":"address"},{"name":"zeroForOne","type":"bool"},{"name":"amountSpecified","type":"int256"},{"name":"sqrtPriceLimitX96","type":"uint160"},{"name":"data","type":"bytes"}],"outputs":[{"name":"amount0","type":"int256"},{"name":"amount1","type":"int256"}]},
	{"type":"function","name":"mint","inputs":[{"name":"recipient","type":"address"},{"name":"tickLower","type":"int24"},{"name":"tickUpper","type":"int24"},{"name":"amount","type":"uint128"},{"name":"data","type":"bytes"}],"outputs":[{"name":"amount0","type":"uint256"},{"name":"amount1","type":"uint256"}]},
	{"type":"function","name":"burn","inputs":[{"name":"tickLower","type":"int24"},{"name":"tickUpper","type":"int24"},{"name":"amount","type":"uint128"}],"outputs":[{"name":"amount0","type":"uint256"},{"name":"amount1","type":"uint256"}]},
	{"type":"function","name":"collect","inputs":[{"name":"recipient","type":"address"},{"name":"tickLower","type":"int24"},{"name":"tickUpper","type":"int24"},{"name":"amount0Requested","type":"uint128"},{"name":"amount1Requested","type":"uint128"}],"outputs":[{"name":"amount0","type":"uint128"},{"name":"amount1","type":"uint128"}]},
	{"type":"event","name":"Swap","inputs":[{"name":"sender","type":"address","indexed":true},{"name":"recipient","type":"address","indexed":true},{"name":"amount0","type":"int256","indexed":false},{"name":"amount1","type":"int256","indexed":false},{"name":"sqrtPriceX96","type":"uint160","indexed":false},{"name":"liquidity","type":"uint128","indexed":false},{"name":"tick","type":"int24","indexed":false}]},
	{"type":"event","name":"Mint","inputs":[{"name":"sender","type":"address","indexed":false},{"name":"owner","type":"address","indexed":true},{"name":"tickLower","type":"int24","indexed":true},{"name":"tickUpper","type":"int24","indexed":true},{"name":"amount","type":"uint128","indexed":false},{"name":"amount0","type":"uint256","indexed":false},{"name":"amount1","type":"uint256","indexed":false}]},
	{"type":"event","name":"Burn","inputs":[{"name":"owner","type":"address","indexed":true},{"name":"tickLower","type":"int24","indexed":true},{"name":"tickUpper","type":"int24","indexed":true},{"name":"amount","type":"uint128","indexed":false},{"name":"amount0","type":"uint256","indexed":false},{"name":"amount1","type":"uint256","indexed":false}]},
	{"type":"event","name":"Collect","inputs":[{"name":"owner","type":"address","indexed":true},{"name":"recipient","type":"address","indexed":false},{"name":"tickLower","type":"int24","indexed":true},{"name":"tickUpper","type":"int24","indexed":true},{"name":"amount0","type":"uint128","indexed":false},{"name":"amount1","type":"uint128","indexed":false}]}
]`

var uniswapV3Contract = parseABI(uniswapV3ABI)

var (
	uniswapV3SwapMethod    = mustMethod(uniswapV3Contract, "swap")
	uniswapV3MintMethod    = mustMethod(uniswapV3Contract, "mint")
	uniswapV3BurnMethod    = mustMethod(uniswapV3Contract, "burn")
	uniswapV3CollectMethod = mustMethod(uniswapV3Contract, "collect")

	uniswapV3SwapEvent    = mustEvent(uniswapV3Contract, "Swap")
	uniswapV3MintEvent    = mustEvent(uniswapV3Contract, "Mint")
	uniswapV3BurnEvent    = mustEvent(uniswapV3Contract, "Burn")
	uniswapV3CollectEvent = mustEvent(uniswapV3Contract, "Collect")
)

// UniswapV3Protocol is the dispatch protocol name for concentrated-liquidity
// pools sharing the UniswapV3 pool ABI (seed scenario S3's discovered pools
// dispatch action calls under this same protocol name).
const UniswapV3Protocol = "uniswap_v3"

func pairTokens(ctx context.Context, snap *store.Snapshot, protocol string, pool common.Address, traceIndex int) (common.Address, common.Address, error) {
	info, ok, err := snap.LookupProtocol(ctx, pool)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	if !ok {
		return common.Address{}, common.Address{}, models.NewClassificationError(models.ErrorKindMissingMetadata, traceIndex, protocol,
			fmt.Errorf("pool %s not registered", pool.Hex()))
	}
	return info.Token0, info.Token1, nil
}

func scaledAmount(ctx context.Context, snap *store.Snapshot, protocol string, token common.Address, raw *big.Int, traceIndex int) (rational.Rational, error) {
	info, ok, err := snap.TokenInfo(ctx, token)
	if err != nil {
		return rational.Zero(), err
	}
	if !ok {
		return rational.Zero(), models.NewClassificationError(models.ErrorKindMissingMetadata, traceIndex, protocol,
			fmt.Errorf("no decimals for token %s", token.Hex()))
	}
	amount, err := rational.FromRawAmount(new(big.Int).Abs(raw), info.Decimals)
	if err != nil {
		return rational.Zero(), models.NewClassificationError(models.ErrorKindArithmetic, traceIndex, protocol, err)
	}
	return amount, nil
}

func uniswapV3SwapTransform(ctx context.Context, snap *store.Snapshot, info models.CallInfo, trace *models.Trace, callData DecodedParams, logs []DecodedLog, returnData DecodedParams) (models.Action, error) {
	if len(logs) == 0 {
		return nil, fmt.Errorf("uniswap_v3: no Swap log matched")
	}
	fields := logs[0].Fields
	pool := info.To
	token0, token1, err := pairTokens(ctx, snap, UniswapV3Protocol, pool, info.TraceIndex)
	if err != nil {
		return nil, err
	}

	amount0, _ := fields["amount0"].(*big.Int)
	amount1, _ := fields["amount1"].(*big.Int)
	recipient, _ := fields["recipient"].(common.Address)

	var tokenIn, tokenOut common.Address
	var rawIn, rawOut *big.Int
	if amount0.Sign() > 0 {
		tokenIn, tokenOut = token0, token1
		rawIn, rawOut = amount0, amount1
	} else {
		tokenIn, tokenOut = token1, token0
		rawIn, rawOut = amount1, amount0
	}

	amountIn, err := scaledAmount(ctx, snap, UniswapV3Protocol, tokenIn, rawIn, info.TraceIndex)
	if err != nil {
		return nil, err
	}
	amountOut, err := scaledAmount(ctx, snap, UniswapV3Protocol, tokenOut, rawOut, info.TraceIndex)
	if err != nil {
		return nil, err
	}

	return &models.Swap{
		Anchor:    models.Anchor{TraceIndex: info.TraceIndex, Protocol: UniswapV3Protocol},
		From:      info.From,
		Recipient: recipient,
		Pool:      pool,
		TokenIn:   tokenIn,
		TokenOut:  tokenOut,
		AmountIn:  amountIn,
		AmountOut: amountOut,
		MsgValue:  rational.Zero(),
	}, nil
}

func uniswapV3MintTransform(ctx context.Context, snap *store.Snapshot, info models.CallInfo, trace *models.Trace, callData DecodedParams, logs []DecodedLog, returnData DecodedParams) (models.Action, error) {
	return uniswapV3LiquidityAction(ctx, snap, info, logs, models.ActionKindMint)
}

func uniswapV3BurnTransform(ctx context.Context, snap *store.Snapshot, info models.CallInfo, trace *models.Trace, callData DecodedParams, logs []DecodedLog, returnData DecodedParams) (models.Action, error) {
	return uniswapV3LiquidityAction(ctx, snap, info, logs, models.ActionKindBurn)
}

func uniswapV3CollectTransform(ctx context.Context, snap *store.Snapshot, info models.CallInfo, trace *models.Trace, callData DecodedParams, logs []DecodedLog, returnData DecodedParams) (models.Action, error) {
	if len(logs) == 0 {
		return nil, fmt.Errorf("uniswap_v3: no Collect log matched")
	}
	fields := logs[0].Fields
	pool := info.To
	token0, token1, err := pairTokens(ctx, snap, UniswapV3Protocol, pool, info.TraceIndex)
	if err != nil {
		return nil, err
	}
	amount0, _ := fields["amount0"].(*big.Int)
	amount1, _ := fields["amount1"].(*big.Int)
	recipient, _ := fields["recipient"].(common.Address)

	a0, err := scaledAmount(ctx, snap, UniswapV3Protocol, token0, amount0, info.TraceIndex)
	if err != nil {
		return nil, err
	}
	a1, err := scaledAmount(ctx, snap, UniswapV3Protocol, token1, amount1, info.TraceIndex)
	if err != nil {
		return nil, err
	}

	return &models.Collect{
		Anchor:    models.Anchor{TraceIndex: info.TraceIndex, Protocol: UniswapV3Protocol},
		Recipient: recipient,
		Pool:      pool,
		Tokens:    []common.Address{token0, token1},
		Amounts:   []rational.Rational{a0, a1},
	}, nil
}

// uniswapV3LiquidityAction builds a Mint or Burn from the matching log (both
// events carry the same amount0/amount1 shape; only the event name differs).
func uniswapV3LiquidityAction(ctx context.Context, snap *store.Snapshot, info models.CallInfo, logs []DecodedLog, kind models.ActionKind) (models.Action, error) {
	if len(logs) == 0 {
		return nil, fmt.Errorf("uniswap_v3: no %s log matched", kind)
	}
	fields := logs[0].Fields
	pool := info.To
	token0, token1, err := pairTokens(ctx, snap, UniswapV3Protocol, pool, info.TraceIndex)
	if err != nil {
		return nil, err
	}
	amount0, _ := fields["amount0"].(*big.Int)
	amount1, _ := fields["amount1"].(*big.Int)

	a0, err := scaledAmount(ctx, snap, UniswapV3Protocol, token0, amount0, info.TraceIndex)
	if err != nil {
		return nil, err
	}
	a1, err := scaledAmount(ctx, snap, UniswapV3Protocol, token1, amount1, info.TraceIndex)
	if err != nil {
		return nil, err
	}

	anchor := models.Anchor{TraceIndex: info.TraceIndex, Protocol: UniswapV3Protocol}
	tokens := []common.Address{token0, token1}
	amounts := []rational.Rational{a0, a1}

	if kind == models.ActionKindMint {
		recipient, _ := fields["owner"].(common.Address)
		return &models.Mint{Anchor: anchor, From: info.From, Recipient: recipient, Pool: pool, Tokens: tokens, Amounts: amounts}, nil
	}
	owner, _ := fields["owner"].(common.Address)
	return &models.Burn{Anchor: anchor, From: info.From, Recipient: owner, Pool: pool, Tokens: tokens, Amounts: amounts}, nil
}

func SwapV3Entry() registry.ActionEntry {
	spec := Spec{
		Protocol:     UniswapV3Protocol,
		Method:       uniswapV3SwapMethod,
		WantsLogs:    true,
		ExpectedLogs: []LogSpec{{Name: "Swap", Event: uniswapV3SwapEvent}},
		Transform:    uniswapV3SwapTransform,
	}
	return registry.ActionEntry{Protocol: UniswapV3Protocol, Selector: selectorOf(uniswapV3SwapMethod), Decoder: New(spec)}
}

func MintV3Entry() registry.ActionEntry {
	spec := Spec{
		Protocol:     UniswapV3Protocol,
		Method:       uniswapV3MintMethod,
		WantsLogs:    true,
		ExpectedLogs: []LogSpec{{Name: "Mint", Event: uniswapV3MintEvent}},
		Transform:    uniswapV3MintTransform,
	}
	return registry.ActionEntry{Protocol: UniswapV3Protocol, Selector: selectorOf(uniswapV3MintMethod), Decoder: New(spec)}
}

func BurnV3Entry() registry.ActionEntry {
	spec := Spec{
		Protocol:     UniswapV3Protocol,
		Method:       uniswapV3BurnMethod,
		WantsLogs:    true,
		ExpectedLogs: []LogSpec{{Name: "Burn", Event: uniswapV3BurnEvent}},
		Transform:    uniswapV3BurnTransform,
	}
	return registry.ActionEntry{Protocol: UniswapV3Protocol, Selector: selectorOf(uniswapV3BurnMethod), Decoder: New(spec)}
}

func CollectV3Entry() registry.ActionEntry {
	spec := Spec{
		Protocol:     UniswapV3Protocol,
		Method:       uniswapV3CollectMethod,
		WantsLogs:    true,
		ExpectedLogs: []LogSpec{{Name: "Collect", Event: uniswapV3CollectEvent}},
		Transform:    uniswapV3CollectTransform,
	}
	return registry.ActionEntry{Protocol: UniswapV3Protocol, Selector: selectorOf(uniswapV3CollectMethod), Decoder: New(spec)}
}
