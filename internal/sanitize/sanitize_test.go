package sanitize

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/txplain/blocktree/internal/models"
	"github.com/txplain/blocktree/internal/rational"
)

// TestRunReconcilesBeforeEliminating verifies that reconciliation runs first:
// the fee leg at node 2 is consumed into node 1's merged Transfer before
// duplicate elimination gets a chance to see it, so the tax-token pair is
// never mistaken for a duplicate-transfer group.
func TestRunReconcilesBeforeEliminating(t *testing.T) {
	tree := models.NewTransactionTree("0xabc", 0)
	tree.AddNode(0, -1, &models.Unclassified{Anchor: models.Anchor{TraceIndex: 0}})
	tree.AddNode(1, 0, &models.Transfer{Anchor: models.Anchor{TraceIndex: 1}, From: alice, To: bob, Token: taxTok, Amount: ramt(1000)})
	tree.AddNode(2, 1, &models.Transfer{Anchor: models.Anchor{TraceIndex: 2}, From: bob, To: taxSink, Token: taxTok, Amount: ramt(20)})

	Run(tree)

	merged, ok := models.AsTransfer(tree.Node(1).Action)
	assert.True(t, ok)
	assert.Equal(t, 0, rational.Cmp(merged.Amount, ramt(980)))
	assert.Nil(t, tree.Node(2))
}

func TestSequenceOrdersReconcileBeforeEliminate(t *testing.T) {
	seq := Sequence()
	assert.Len(t, seq, 2)
	assert.Equal(t, reflect.ValueOf(ReconcileTaxTokens).Pointer(), reflect.ValueOf(seq[0]).Pointer())
	assert.Equal(t, reflect.ValueOf(EliminateDuplicateTransfers).Pointer(), reflect.ValueOf(seq[1]).Pointer())
}
