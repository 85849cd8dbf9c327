package rewrite

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"

	"github.com/txplain/blocktree/internal/models"
	"github.com/txplain/blocktree/internal/rational"
)

var (
	pool      = common.HexToAddress("0xpool")
	initiator = common.HexToAddress("0xinit")
	token     = common.HexToAddress("0xtoken")
	other     = common.HexToAddress("0xother")
)

func amt(n int64) rational.Rational {
	return rational.MustFromRawAmount(big.NewInt(n), 0)
}

func TestFlashLoanPredicateMatchesOnlySameTokenPoolLegs(t *testing.T) {
	c := FlashLoanClassifier()
	loan := &models.FlashLoan{Anchor: models.Anchor{TraceIndex: 0}, Initiator: initiator, Pool: pool, Token: token}

	borrow := &models.Transfer{From: pool, To: initiator, Token: token, Amount: amt(100)}
	assert.True(t, c.Predicate(loan, borrow))

	wrongToken := &models.Transfer{From: pool, To: initiator, Token: other, Amount: amt(100)}
	assert.False(t, c.Predicate(loan, wrongToken))

	unrelated := &models.Transfer{From: other, To: initiator, Token: token, Amount: amt(100)}
	assert.False(t, c.Predicate(loan, unrelated))

	assert.False(t, c.Predicate(loan, &models.Swap{}))
}

func TestFlashLoanParseComputesFeeFromRepayMinusBorrow(t *testing.T) {
	loan := &models.FlashLoan{Anchor: models.Anchor{TraceIndex: 0}, Initiator: initiator, Pool: pool, Token: token}

	hits := []ChildHit{
		{Index: 1, Action: &models.Transfer{From: pool, To: initiator, Token: token, Amount: amt(1000)}},
		{Index: 2, Action: &models.Transfer{From: initiator, To: pool, Token: token, Amount: amt(1009)}},
	}

	mutated, pruned := flashLoanParse(loan, hits)
	out, ok := mutated.(*models.FlashLoan)
	assert.True(t, ok)
	assert.Equal(t, 0, rational.Cmp(out.Amount, amt(1000)))
	assert.Equal(t, 0, rational.Cmp(out.Fee, amt(9)))
	assert.ElementsMatch(t, []models.NodeIndex{1, 2}, pruned)
}

func TestFlashLoanParseWithNoRepayLeavesFeeZero(t *testing.T) {
	loan := &models.FlashLoan{Anchor: models.Anchor{TraceIndex: 0}, Initiator: initiator, Pool: pool, Token: token}

	hits := []ChildHit{
		{Index: 1, Action: &models.Transfer{From: pool, To: initiator, Token: token, Amount: amt(500)}},
	}

	mutated, pruned := flashLoanParse(loan, hits)
	out := mutated.(*models.FlashLoan)
	assert.Equal(t, 0, rational.Cmp(out.Amount, amt(500)))
	assert.True(t, out.Fee.IsZero())
	assert.Equal(t, []models.NodeIndex{1}, pruned)
}

func TestFlashLoanParseWithNoBorrowLegReturnsAnchorUnchanged(t *testing.T) {
	loan := &models.FlashLoan{Anchor: models.Anchor{TraceIndex: 0}, Initiator: initiator, Pool: pool, Token: token}

	mutated, pruned := flashLoanParse(loan, nil)
	assert.Same(t, loan, mutated)
	assert.Nil(t, pruned)
}

func TestFlashLoanIntegratesThroughRun(t *testing.T) {
	tree := models.NewTransactionTree("0xabc", 0)
	tree.AddNode(0, -1, &models.FlashLoan{Anchor: models.Anchor{TraceIndex: 0}, Initiator: initiator, Pool: pool, Token: token})
	tree.AddNode(1, 0, &models.Transfer{Anchor: models.Anchor{TraceIndex: 1}, From: pool, To: initiator, Token: token, Amount: amt(1000)})
	tree.AddNode(2, 0, &models.Transfer{Anchor: models.Anchor{TraceIndex: 2}, From: initiator, To: pool, Token: token, Amount: amt(1010)})

	reg := Registry{models.ActionKindFlashLoan: FlashLoanClassifier()}
	incomplete := Run(tree, reg)
	assert.Empty(t, incomplete)

	loan := tree.Node(0).Action.(*models.FlashLoan)
	assert.Equal(t, 0, rational.Cmp(loan.Amount, amt(1000)))
	assert.Equal(t, 0, rational.Cmp(loan.Fee, amt(10)))
	assert.Nil(t, tree.Node(1))
	assert.Nil(t, tree.Node(2))
}

func TestFlashLoanIntegratesThroughRunReportsIncompleteWhenNoLegsFound(t *testing.T) {
	tree := models.NewTransactionTree("0xabc", 0)
	tree.AddNode(0, -1, &models.FlashLoan{Anchor: models.Anchor{TraceIndex: 0}, Initiator: initiator, Pool: pool, Token: token})
	tree.AddNode(1, 0, &models.Transfer{Anchor: models.Anchor{TraceIndex: 1}, From: other, To: other, Token: other, Amount: amt(1)})

	reg := Registry{models.ActionKindFlashLoan: FlashLoanClassifier()}
	incomplete := Run(tree, reg)
	assert.Equal(t, []models.NodeIndex{0}, incomplete)
}
