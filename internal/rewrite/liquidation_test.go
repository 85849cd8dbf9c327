package rewrite

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"

	"github.com/txplain/blocktree/internal/models"
	"github.com/txplain/blocktree/internal/rational"
)

var (
	liquidator = common.HexToAddress("0xliquidator")
	liquidatee = common.HexToAddress("0xliquidatee")
	debtAsset  = common.HexToAddress("0xdebt")
	collAsset  = common.HexToAddress("0xcoll")
)

func TestLiquidationPredicateMatchesOnlyCollateralLeg(t *testing.T) {
	c := LiquidationClassifier()
	liq := &models.Liquidation{Liquidator: liquidator, Liquidatee: liquidatee, DebtAsset: debtAsset, CollateralAsset: collAsset}

	collateralLeg := &models.Transfer{From: liquidatee, To: liquidator, Token: collAsset, Amount: amt(10)}
	assert.True(t, c.Predicate(liq, collateralLeg))

	debtLeg := &models.Transfer{From: liquidator, To: liquidatee, Token: debtAsset, Amount: amt(5)}
	assert.False(t, c.Predicate(liq, debtLeg), "debt repayment leg must not be matched; it survives as an independent Transfer")

	unrelated := &models.Transfer{From: liquidatee, To: other, Token: collAsset, Amount: amt(10)}
	assert.False(t, c.Predicate(liq, unrelated))
}

func TestLiquidationParseFillsCollateralLegOnly(t *testing.T) {
	liq := &models.Liquidation{Liquidator: liquidator, Liquidatee: liquidatee, DebtAsset: debtAsset, CollateralAsset: collAsset}

	hits := []ChildHit{
		{Index: 2, Action: &models.Transfer{From: liquidatee, To: liquidator, Token: collAsset, Amount: amt(550)}},
	}

	mutated, pruned := liquidationParse(liq, hits)
	out := mutated.(*models.Liquidation)
	assert.Equal(t, 0, rational.Cmp(out.LiquidatedCollateral, amt(550)))
	assert.Equal(t, 0, rational.Cmp(out.DebtRepaid, rational.Zero()), "debt repayment is never filled by this classifier")
	assert.Equal(t, []models.NodeIndex{2}, pruned)
}

func TestLiquidationParseFirstMatchPerLegWins(t *testing.T) {
	liq := &models.Liquidation{Liquidator: liquidator, Liquidatee: liquidatee, DebtAsset: debtAsset, CollateralAsset: collAsset}

	hits := []ChildHit{
		{Index: 1, Action: &models.Transfer{From: liquidatee, To: liquidator, Token: collAsset, Amount: amt(100)}},
		{Index: 2, Action: &models.Transfer{From: liquidatee, To: liquidator, Token: collAsset, Amount: amt(999)}},
	}

	mutated, pruned := liquidationParse(liq, hits)
	out := mutated.(*models.Liquidation)
	assert.Equal(t, 0, rational.Cmp(out.LiquidatedCollateral, amt(100)))
	assert.Equal(t, []models.NodeIndex{1}, pruned, "only the first matching leg is consumed")
}

func TestLiquidationIntegratesThroughRun(t *testing.T) {
	tree := models.NewTransactionTree("0xabc", 0)
	tree.AddNode(0, -1, &models.Liquidation{Anchor: models.Anchor{TraceIndex: 0}, Liquidator: liquidator, Liquidatee: liquidatee, DebtAsset: debtAsset, CollateralAsset: collAsset})
	tree.AddNode(1, 0, &models.Transfer{Anchor: models.Anchor{TraceIndex: 1}, From: liquidator, To: liquidatee, Token: debtAsset, Amount: amt(500)})
	tree.AddNode(2, 0, &models.Transfer{Anchor: models.Anchor{TraceIndex: 2}, From: liquidatee, To: liquidator, Token: collAsset, Amount: amt(550)})

	reg := Registry{models.ActionKindLiquidation: LiquidationClassifier()}
	incomplete := Run(tree, reg)
	assert.Empty(t, incomplete)

	liq := tree.Node(0).Action.(*models.Liquidation)
	assert.Equal(t, 0, rational.Cmp(liq.LiquidatedCollateral, amt(550)))
	assert.NotNil(t, tree.Node(1), "debt repayment transfer must survive as an independent Transfer action")
	assert.Nil(t, tree.Node(2), "collateral transfer is pruned into the Liquidation anchor")
}
