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

const makerPSMABI = `[
	{"type":"function","name":"buyGem","inputs":[{"name":"usr","type":"address"},{"name":"gemAmt","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"sellGem","inputs":[{"name":"usr","type":"address"},{"name":"gemAmt","type":"uint256"}],"outputs":[]}
]`

var makerPSMContract = parseABI(makerPSMABI)
var makerPSMBuyGemMethod = mustMethod(makerPSMContract, "buyGem")
var makerPSMSellGemMethod = mustMethod(makerPSMContract, "sellGem")

// MakerPSMProtocol is the dispatch protocol name for Maker's Peg Stability
// Module (seed scenario S2): DAI in exchange for a pegged stablecoin (or the
// reverse), at a fee, with no AMM curve.
const MakerPSMProtocol = "maker_psm"

// psmTransform reads the two ERC-20 Transfer logs the PSM's internal gemJoin
// and DAI calls emit, in emission order, rather than relying on a PSM-level
// event (the PSM contract itself emits none carrying both amounts).
func psmTransform(daiLeg, gemLeg int) TransformFunc {
	return func(ctx context.Context, snap *store.Snapshot, info models.CallInfo, trace *models.Trace, callData DecodedParams, logs []DecodedLog, returnData DecodedParams) (models.Action, error) {
		if len(logs) < 2 {
			return nil, fmt.Errorf("maker_psm: expected two Transfer logs, got %d", len(logs))
		}
		dai := logs[daiLeg]
		gem := logs[gemLeg]

		daiValue, _ := dai.Fields["value"].(*big.Int)
		gemValue, _ := gem.Fields["value"].(*big.Int)

		daiAmount, err := scaledAmount(ctx, snap, MakerPSMProtocol, dai.Address, daiValue, info.TraceIndex)
		if err != nil {
			return nil, err
		}
		gemAmount, err := scaledAmount(ctx, snap, MakerPSMProtocol, gem.Address, gemValue, info.TraceIndex)
		if err != nil {
			return nil, err
		}

		usr, _ := callData["usr"].(common.Address)

		var tokenIn, tokenOut common.Address
		var amountIn, amountOut rational.Rational
		if daiLeg < gemLeg {
			// buyGem: user pays DAI, receives the gem.
			tokenIn, tokenOut = dai.Address, gem.Address
			amountIn, amountOut = daiAmount, gemAmount
		} else {
			// sellGem: user pays the gem, receives DAI.
			tokenIn, tokenOut = gem.Address, dai.Address
			amountIn, amountOut = gemAmount, daiAmount
		}

		return &models.Swap{
			Anchor:    models.Anchor{TraceIndex: info.TraceIndex, Protocol: MakerPSMProtocol},
			From:      info.From,
			Recipient: usr,
			Pool:      info.To,
			TokenIn:   tokenIn,
			TokenOut:  tokenOut,
			AmountIn:  amountIn,
			AmountOut: amountOut,
			MsgValue:  rational.Zero(),
		}, nil
	}
}

// BuyGemEntry registers buyGem(usr, gemAmt): DAI transferred in first, gem
// transferred out second.
func BuyGemEntry() registry.ActionEntry {
	spec := Spec{
		Protocol:      MakerPSMProtocol,
		Method:        makerPSMBuyGemMethod,
		WantsCallData: true,
		WantsLogs:     true,
		ExpectedLogs: []LogSpec{
			{Name: "DaiIn", Event: erc20TransferEvent},
			{Name: "GemOut", Event: erc20TransferEvent},
		},
		Transform: psmTransform(0, 1),
	}
	return registry.ActionEntry{Protocol: MakerPSMProtocol, Selector: selectorOf(makerPSMBuyGemMethod), Decoder: New(spec)}
}

// SellGemEntry registers sellGem(usr, gemAmt): gem transferred in first, DAI
// transferred out second.
func SellGemEntry() registry.ActionEntry {
	spec := Spec{
		Protocol:      MakerPSMProtocol,
		Method:        makerPSMSellGemMethod,
		WantsCallData: true,
		WantsLogs:     true,
		ExpectedLogs: []LogSpec{
			{Name: "GemIn", Event: erc20TransferEvent},
			{Name: "DaiOut", Event: erc20TransferEvent},
		},
		Transform: psmTransform(1, 0),
	}
	return registry.ActionEntry{Protocol: MakerPSMProtocol, Selector: selectorOf(makerPSMSellGemMethod), Decoder: New(spec)}
}
