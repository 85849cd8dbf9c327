package rewrite

import "github.com/txplain/blocktree/internal/models"

// Classifiers builds the rewrite Registry from every MultiCallFrameClassifier
// this package defines, keyed by the ActionKind it rewrites.
func Classifiers() Registry {
	return Registry{
		models.ActionKindFlashLoan:      FlashLoanClassifier(),
		models.ActionKindLiquidation:    LiquidationClassifier(),
		models.ActionKindAggregatorSwap: AggregatorSwapClassifier(),
	}
}
