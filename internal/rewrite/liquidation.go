package rewrite

import "github.com/txplain/blocktree/internal/models"

// LiquidationClassifier fills in LiquidatedCollateral from the descendant
// transfer whose recipient is the liquidator (seed scenario S4) and prunes
// that transfer into the anchor. The debt-repayment and any protocol-fee
// transfers are left alone: per §4.F they remain as independent Transfer
// actions in the tree rather than being folded into the Liquidation anchor.
func LiquidationClassifier() Classifier {
	return Classifier{
		Predicate: func(anchorAction models.Action, candidate models.Action) bool {
			liq, ok := anchorAction.(*models.Liquidation)
			if !ok || !models.IsTransfer(candidate) {
				return false
			}
			t, _ := models.AsTransfer(candidate)
			return t.Token == liq.CollateralAsset && t.To == liq.Liquidator
		},
		Parse: liquidationParse,
	}
}

func liquidationParse(anchor models.Action, hits []ChildHit) (models.Action, []models.NodeIndex) {
	liq, ok := anchor.(*models.Liquidation)
	if !ok {
		return anchor, nil
	}

	var pruned []models.NodeIndex
	var collateralSet bool
	for _, hit := range hits {
		t, ok := models.AsTransfer(hit.Action)
		if !ok {
			continue
		}
		if !collateralSet && t.Token == liq.CollateralAsset && t.To == liq.Liquidator {
			liq.LiquidatedCollateral = t.Amount
			collateralSet = true
			pruned = append(pruned, hit.Index)
		}
	}

	return liq, pruned
}
