package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/txplain/blocktree/internal/models"
)

// TestRunProcessesDescendingByTraceIndex verifies that an outer FlashLoan
// anchor observes the already-applied rewrite of an inner one: node 0 wraps
// node 1, both FlashLoans, and node 1 must be fully resolved (pruned legs)
// before node 0's own descendant search runs over what remains.
func TestRunProcessesDescendingByTraceIndex(t *testing.T) {
	tree := models.NewTransactionTree("0xabc", 0)
	tree.AddNode(0, -1, &models.FlashLoan{Anchor: models.Anchor{TraceIndex: 0}, Initiator: initiator, Pool: pool, Token: token})
	tree.AddNode(1, 0, &models.FlashLoan{Anchor: models.Anchor{TraceIndex: 1}, Initiator: initiator, Pool: other, Token: token})
	tree.AddNode(2, 1, &models.Transfer{Anchor: models.Anchor{TraceIndex: 2}, From: other, To: initiator, Token: token, Amount: amt(50)})
	tree.AddNode(3, 1, &models.Transfer{Anchor: models.Anchor{TraceIndex: 3}, From: initiator, To: other, Token: token, Amount: amt(52)})
	tree.AddNode(4, 0, &models.Transfer{Anchor: models.Anchor{TraceIndex: 4}, From: pool, To: initiator, Token: token, Amount: amt(1000)})
	tree.AddNode(5, 0, &models.Transfer{Anchor: models.Anchor{TraceIndex: 5}, From: initiator, To: pool, Token: token, Amount: amt(1010)})

	reg := Registry{models.ActionKindFlashLoan: FlashLoanClassifier()}
	incomplete := Run(tree, reg)
	assert.Empty(t, incomplete)

	inner := tree.Node(1).Action.(*models.FlashLoan)
	assert.False(t, inner.Fee.IsZero(), "inner loan resolved before the outer search ran over it")
	assert.Nil(t, tree.Node(2))
	assert.Nil(t, tree.Node(3))

	assert.Nil(t, tree.Node(4))
	assert.Nil(t, tree.Node(5))
	assert.NotNil(t, tree.Node(1), "inner anchor itself is not pruned, only its legs")
}

func TestRunSkipsUnregisteredActionKinds(t *testing.T) {
	tree := models.NewTransactionTree("0xabc", 0)
	tree.AddNode(0, -1, &models.Unclassified{Anchor: models.Anchor{TraceIndex: 0}})
	tree.AddNode(1, 0, &models.Transfer{Anchor: models.Anchor{TraceIndex: 1}, From: pool, To: initiator, Token: token, Amount: amt(1)})

	incomplete := Run(tree, Registry{models.ActionKindFlashLoan: FlashLoanClassifier()})
	assert.Empty(t, incomplete)
	assert.NotNil(t, tree.Node(0))
	assert.NotNil(t, tree.Node(1))
}

func TestRunReportsIncompleteForEachUnresolvedAnchor(t *testing.T) {
	tree := models.NewTransactionTree("0xabc", 0)
	tree.AddNode(0, -1, &models.FlashLoan{Anchor: models.Anchor{TraceIndex: 0}, Initiator: initiator, Pool: pool, Token: token})
	tree.AddNode(1, 999, &models.FlashLoan{Anchor: models.Anchor{TraceIndex: 1}, Initiator: initiator, Pool: other, Token: other})

	incomplete := Run(tree, Registry{models.ActionKindFlashLoan: FlashLoanClassifier()})
	assert.ElementsMatch(t, []models.NodeIndex{0, 1}, incomplete)
}
