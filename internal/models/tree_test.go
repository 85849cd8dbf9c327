package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func buildSampleTree() *TransactionTree {
	tree := NewTransactionTree("0xabc", 0)
	tree.AddNode(0, -1, &Unclassified{Anchor: Anchor{TraceIndex: 0}})
	tree.AddNode(1, 0, &Transfer{Anchor: Anchor{TraceIndex: 1}})
	tree.AddNode(2, 0, &Transfer{Anchor: Anchor{TraceIndex: 2}})
	tree.AddNode(3, 1, &Swap{Anchor: Anchor{TraceIndex: 3}})
	return tree
}

func TestAddNodeAndPreOrder(t *testing.T) {
	tree := buildSampleTree()
	assert.Equal(t, 0, tree.Root())
	assert.Equal(t, []NodeIndex{0, 1, 2, 3}, tree.PreOrder())
	assert.Equal(t, 4, tree.Len())
}

func TestDescendantsFiltersByPredicate(t *testing.T) {
	tree := buildSampleTree()
	transfers := tree.Descendants(0, IsTransfer)
	assert.Equal(t, []NodeIndex{1, 2}, transfers)

	swaps := tree.Descendants(0, IsSwap)
	assert.Equal(t, []NodeIndex{3}, swaps)
}

func TestPruneRemovesSubtreeTransitively(t *testing.T) {
	tree := buildSampleTree()
	tree.Prune([]NodeIndex{1})

	assert.Nil(t, tree.Node(1))
	assert.Nil(t, tree.Node(3), "child of a pruned node must be pruned too")
	assert.NotNil(t, tree.Node(2))
	assert.Equal(t, []NodeIndex{0, 2}, tree.PreOrder())
}

func TestSetActionReplacesInPlace(t *testing.T) {
	tree := buildSampleTree()
	replacement := &EthTransfer{Anchor: Anchor{TraceIndex: 1}}
	tree.SetAction(1, replacement)

	assert.Same(t, replacement, tree.Node(1).Action)
}

func TestNodeOnUnknownIndexIsNil(t *testing.T) {
	tree := buildSampleTree()
	assert.Nil(t, tree.Node(99))
}

func TestActionsReturnsLiveNodesInPreOrder(t *testing.T) {
	tree := buildSampleTree()
	tree.Prune([]NodeIndex{2})

	actions := tree.Actions()
	assert.Len(t, actions, 3)
	assert.Equal(t, ActionKindUnclassified, actions[0].Kind())
	assert.Equal(t, ActionKindTransfer, actions[1].Kind())
	assert.Equal(t, ActionKindSwap, actions[2].Kind())
}
