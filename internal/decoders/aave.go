package decoders

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/txplain/blocktree/internal/models"
	"github.com/txplain/blocktree/internal/rational"
	"github.com/txplain/blocktree/internal/registry"
	"github.com/txplain/blocktree/internal/store"
)

const aaveV2ABI = `[
	{"type":"function","name":"liquidationCall","inputs":[{"name":"collateralAsset","type":"address"},{"name":"debtAsset","type":"address"},{"name":"user","type":"address"},{"name":"debtToCover","type":"uint256"},{"name":"receiveAToken","type":"bool"}],"outputs":[]},
	{"type":"function","name":"flashLoan","inputs":[{"name":"receiverAddress","type":"address"},{"name":"assets","type":"address[]"},{"name":"amounts","type":"uint256[]"},{"name":"modes","type":"uint256[]"},{"name":"onBehalfOf","type":"address"},{"name":"params","type":"bytes"},{"name":"referralCode","type":"uint16"}],"outputs":[]}
]`

var aaveV2Contract = parseABI(aaveV2ABI)
var aaveV2LiquidationCallMethod = mustMethod(aaveV2Contract, "liquidationCall")
var aaveV2FlashLoanMethod = mustMethod(aaveV2Contract, "flashLoan")

// AaveV2Protocol is the dispatch protocol name for Aave V2's LendingPool
// (seed scenario S4's liquidationCall; also the multi-frame flashLoan entry
// point marked for rewriting per §4.F).
const AaveV2Protocol = "aave_v2"

// aaveV2LiquidationTransform builds a partial Liquidation carrying only what
// the call itself states; LiquidatedCollateral is filled in by the
// multi-frame rewriter from the descendant collateral transfer once the
// whole call subtree has been classified (§4.F, seed scenario S4).
// DebtRepaid is left zero: the debt-repayment transfer is deliberately left
// unpruned so it survives as an independent Transfer action.
func aaveV2LiquidationTransform(ctx context.Context, snap *store.Snapshot, info models.CallInfo, trace *models.Trace, callData DecodedParams, logs []DecodedLog, returnData DecodedParams) (models.Action, error) {
	collateralAsset, _ := callData["collateralAsset"].(common.Address)
	debtAsset, _ := callData["debtAsset"].(common.Address)
	user, _ := callData["user"].(common.Address)
	if collateralAsset == (common.Address{}) || debtAsset == (common.Address{}) {
		return nil, fmt.Errorf("aave_v2: missing asset addresses in liquidationCall")
	}

	return &models.Liquidation{
		Anchor:               models.Anchor{TraceIndex: info.TraceIndex, Protocol: AaveV2Protocol},
		Liquidator:           info.From,
		Liquidatee:           user,
		DebtAsset:            debtAsset,
		CollateralAsset:      collateralAsset,
		DebtRepaid:           rational.Zero(),
		LiquidatedCollateral: rational.Zero(),
	}, nil
}

// aaveV2FlashLoanTransform builds a partial FlashLoan for the first
// requested asset; the rewriter collapses the borrow/repay pair from
// descendant transfers into Amount/Fee (§4.F).
func aaveV2FlashLoanTransform(ctx context.Context, snap *store.Snapshot, info models.CallInfo, trace *models.Trace, callData DecodedParams, logs []DecodedLog, returnData DecodedParams) (models.Action, error) {
	assets, _ := callData["assets"].([]common.Address)
	onBehalfOf, _ := callData["onBehalfOf"].(common.Address)
	if len(assets) == 0 {
		return nil, fmt.Errorf("aave_v2: flashLoan with no requested assets")
	}

	return &models.FlashLoan{
		Anchor:    models.Anchor{TraceIndex: info.TraceIndex, Protocol: AaveV2Protocol},
		Initiator: onBehalfOf,
		Pool:      info.To,
		Token:     assets[0],
		Amount:    rational.Zero(),
		Fee:       rational.Zero(),
	}, nil
}

// LiquidationCallEntry registers Aave V2's liquidationCall.
func LiquidationCallEntry() registry.ActionEntry {
	spec := Spec{
		Protocol:      AaveV2Protocol,
		Method:        aaveV2LiquidationCallMethod,
		WantsCallData: true,
		Transform:     aaveV2LiquidationTransform,
	}
	return registry.ActionEntry{Protocol: AaveV2Protocol, Selector: selectorOf(aaveV2LiquidationCallMethod), Decoder: New(spec)}
}

// FlashLoanEntry registers Aave V2's flashLoan, the entry point a
// MultiCallFrameClassifier anchors on (§4.F).
func FlashLoanEntry() registry.ActionEntry {
	spec := Spec{
		Protocol:      AaveV2Protocol,
		Method:        aaveV2FlashLoanMethod,
		WantsCallData: true,
		Transform:     aaveV2FlashLoanTransform,
	}
	return registry.ActionEntry{Protocol: AaveV2Protocol, Selector: selectorOf(aaveV2FlashLoanMethod), Decoder: New(spec)}
}
