package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/txplain/blocktree/internal/models"
)

func TestEliminateDuplicateTransfersDropsHigherIndexNeighbor(t *testing.T) {
	tree := models.NewTransactionTree("0xabc", 0)
	tree.AddNode(0, -1, &models.Unclassified{Anchor: models.Anchor{TraceIndex: 0}})
	// node 1 is the parent transfer (kept), node 2 is its child carrying
	// the same (token, from, to, amount).
	tree.AddNode(1, 0, &models.Transfer{Anchor: models.Anchor{TraceIndex: 1}, From: alice, To: bob, Token: taxTok, Amount: ramt(500)})
	tree.AddNode(2, 1, &models.Transfer{Anchor: models.Anchor{TraceIndex: 2}, From: alice, To: bob, Token: taxTok, Amount: ramt(500)})

	EliminateDuplicateTransfers(tree)

	assert.NotNil(t, tree.Node(1), "lower trace_index survives")
	assert.Nil(t, tree.Node(2), "higher trace_index duplicate is dropped")
}

func TestEliminateDuplicateTransfersRequiresNeighborhood(t *testing.T) {
	tree := models.NewTransactionTree("0xabc", 0)
	tree.AddNode(0, -1, &models.Unclassified{Anchor: models.Anchor{TraceIndex: 0}})
	tree.AddNode(1, 0, &models.Transfer{Anchor: models.Anchor{TraceIndex: 1}, From: alice, To: bob, Token: taxTok, Amount: ramt(500)})
	tree.AddNode(2, 0, &models.Transfer{Anchor: models.Anchor{TraceIndex: 2}, From: alice, To: bob, Token: taxTok, Amount: ramt(500)})

	EliminateDuplicateTransfers(tree)

	assert.NotNil(t, tree.Node(1), "non-adjacent duplicates are left alone")
	assert.NotNil(t, tree.Node(2))
}

func TestEliminateDuplicateTransfersIgnoresDifferentAmounts(t *testing.T) {
	tree := models.NewTransactionTree("0xabc", 0)
	tree.AddNode(0, -1, &models.Unclassified{Anchor: models.Anchor{TraceIndex: 0}})
	tree.AddNode(1, 0, &models.Transfer{Anchor: models.Anchor{TraceIndex: 1}, From: alice, To: bob, Token: taxTok, Amount: ramt(500)})
	tree.AddNode(2, 1, &models.Transfer{Anchor: models.Anchor{TraceIndex: 2}, From: alice, To: bob, Token: taxTok, Amount: ramt(499)})

	EliminateDuplicateTransfers(tree)

	assert.NotNil(t, tree.Node(1))
	assert.NotNil(t, tree.Node(2))
}
