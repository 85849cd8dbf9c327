package sanitize

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"

	"github.com/txplain/blocktree/internal/models"
	"github.com/txplain/blocktree/internal/rational"
)

var (
	alice   = common.HexToAddress("0xalice")
	bob     = common.HexToAddress("0xbob")
	taxSink = common.HexToAddress("0xtaxsink")
	taxTok  = common.HexToAddress("0xtaxtoken")
)

func ramt(n int64) rational.Rational {
	return rational.MustFromRawAmount(big.NewInt(n), 0)
}

func TestReconcileTaxTokensMergesFeeLegIntoParent(t *testing.T) {
	tree := models.NewTransactionTree("0xabc", 0)
	tree.AddNode(0, -1, &models.Unclassified{Anchor: models.Anchor{TraceIndex: 0}})
	tree.AddNode(1, 0, &models.Transfer{Anchor: models.Anchor{TraceIndex: 1}, From: alice, To: bob, Token: taxTok, Amount: ramt(1000)})
	tree.AddNode(2, 1, &models.Transfer{Anchor: models.Anchor{TraceIndex: 2}, From: bob, To: taxSink, Token: taxTok, Amount: ramt(20)})

	ReconcileTaxTokens(tree)

	merged, ok := models.AsTransfer(tree.Node(1).Action)
	assert.True(t, ok)
	assert.Equal(t, 0, rational.Cmp(merged.Amount, ramt(980)))
	assert.Equal(t, 0, rational.Cmp(merged.Fee, ramt(20)))
	assert.Nil(t, tree.Node(2), "fee leg is pruned once merged")
}

func TestReconcileTaxTokensLeavesUnrelatedTransfersAlone(t *testing.T) {
	tree := models.NewTransactionTree("0xabc", 0)
	tree.AddNode(0, -1, &models.Unclassified{Anchor: models.Anchor{TraceIndex: 0}})
	tree.AddNode(1, 0, &models.Transfer{Anchor: models.Anchor{TraceIndex: 1}, From: alice, To: bob, Token: taxTok, Amount: ramt(1000)})
	tree.AddNode(2, 1, &models.Transfer{Anchor: models.Anchor{TraceIndex: 2}, From: bob, To: taxSink, Token: common.HexToAddress("0xother"), Amount: ramt(20)})

	ReconcileTaxTokens(tree)

	orig, ok := models.AsTransfer(tree.Node(1).Action)
	assert.True(t, ok)
	assert.Equal(t, 0, rational.Cmp(orig.Amount, ramt(1000)))
	assert.True(t, orig.Fee.IsZero())
	assert.NotNil(t, tree.Node(2), "different token is not a fee leg")
}

func TestReconcileTaxTokensIsIdempotent(t *testing.T) {
	tree := models.NewTransactionTree("0xabc", 0)
	tree.AddNode(0, -1, &models.Unclassified{Anchor: models.Anchor{TraceIndex: 0}})
	tree.AddNode(1, 0, &models.Transfer{Anchor: models.Anchor{TraceIndex: 1}, From: alice, To: bob, Token: taxTok, Amount: ramt(1000)})
	tree.AddNode(2, 1, &models.Transfer{Anchor: models.Anchor{TraceIndex: 2}, From: bob, To: taxSink, Token: taxTok, Amount: ramt(20)})

	ReconcileTaxTokens(tree)
	first, _ := models.AsTransfer(tree.Node(1).Action)

	ReconcileTaxTokens(tree)
	second, _ := models.AsTransfer(tree.Node(1).Action)

	assert.Equal(t, 0, rational.Cmp(first.Amount, second.Amount))
	assert.Equal(t, 0, rational.Cmp(first.Fee, second.Fee))
}
