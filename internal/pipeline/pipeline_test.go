package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/txplain/blocktree/internal/models"
)

// ClassifyBlock itself needs a live store.Store (redis + postgres dialed in
// store.New) to reach CommitBlock, so it's exercised by the block-level
// classifier manually rather than here; countActions, the metrics helper it
// relies on, is plain tree arithmetic and testable directly.
func TestCountActionsWithNilPredicateCountsEveryLiveNode(t *testing.T) {
	tree := models.NewTransactionTree("0xabc", 0)
	tree.AddNode(0, -1, &models.Unclassified{Anchor: models.Anchor{TraceIndex: 0}})
	tree.AddNode(1, 0, &models.Transfer{Anchor: models.Anchor{TraceIndex: 1}})

	assert.Equal(t, 2, countActions(tree, nil))
}

func TestCountActionsFiltersByPredicate(t *testing.T) {
	tree := models.NewTransactionTree("0xabc", 0)
	tree.AddNode(0, -1, &models.Unclassified{Anchor: models.Anchor{TraceIndex: 0}})
	tree.AddNode(1, 0, &models.Transfer{Anchor: models.Anchor{TraceIndex: 1}})
	tree.AddNode(2, 0, &models.Unclassified{Anchor: models.Anchor{TraceIndex: 2}})

	assert.Equal(t, 2, countActions(tree, models.IsUnclassified))
}

func TestCountActionsExcludesPrunedNodes(t *testing.T) {
	tree := models.NewTransactionTree("0xabc", 0)
	tree.AddNode(0, -1, &models.Unclassified{Anchor: models.Anchor{TraceIndex: 0}})
	tree.AddNode(1, 0, &models.Transfer{Anchor: models.Anchor{TraceIndex: 1}})
	tree.Prune([]models.NodeIndex{1})

	assert.Equal(t, 1, countActions(tree, nil))
}
