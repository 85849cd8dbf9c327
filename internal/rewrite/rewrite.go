// Package rewrite implements the Multi-Frame Rewriter of spec §4.F: actions
// whose full economic shape is only determined by descendant frames
// (flash-loan net effect, liquidation collateral, aggregator swap amounts)
// register a classifier that runs once the whole subtree has already been
// built and dispatched.
package rewrite

import (
	"sort"

	"github.com/txplain/blocktree/internal/models"
)

// ChildHit is one descendant the tree search matched, handed to ParseFn.
type ChildHit struct {
	Index  models.NodeIndex
	Action models.Action
}

// ParseFn mutates anchor using the collected descendants and returns the
// descendant indices to prune from the tree. Returning zero indices with
// len(hits) > 0 is a fully valid outcome (e.g. a classifier that only reads
// descendants without consuming them); returning zero indices with
// len(hits) == 0 means the anchor could not be resolved and IncompleteRewrite
// is reported (§4.F tie-break rule).
type ParseFn func(anchor models.Action, hits []ChildHit) (models.Action, []models.NodeIndex)

// Predicate selects candidate descendants given the anchor action being
// rewritten, so the search can be parameterized on the anchor's own fields
// (e.g. "transfers of this flash loan's specific token").
type Predicate func(anchor models.Action, candidate models.Action) bool

// Classifier is one MultiCallFrameClassifier registration (§4.F): the
// predicate selecting candidate descendants, and the mutation/prune body.
type Classifier struct {
	Predicate Predicate
	Parse     ParseFn
}

// Registry maps an ActionKind to the classifier that rewrites it. Built once
// at startup from Classifiers(), analogous to internal/registry but scoped
// to the rewrite stage.
type Registry map[models.ActionKind]Classifier

// Run applies every marked node's classifier to tree, processing
// descending by trace_index so outer wrappers observe already-applied inner
// rewrites and pruning never invalidates an outer node's index (§4.F step 2).
// Returns the trace indices where IncompleteRewrite was reported.
func Run(tree *models.TransactionTree, reg Registry) []models.NodeIndex {
	marked := markedIndices(tree, reg)
	sort.Sort(sort.Reverse(sort.IntSlice(marked)))

	var incomplete []models.NodeIndex
	for _, idx := range marked {
		node := tree.Node(idx)
		if node == nil {
			continue
		}
		classifier, ok := reg[node.Action.Kind()]
		if !ok {
			continue
		}

		matches := tree.Descendants(idx, func(a models.Action) bool {
			return classifier.Predicate(node.Action, a)
		})
		hits := make([]ChildHit, 0, len(matches))
		for _, m := range matches {
			if n := tree.Node(m); n != nil {
				hits = append(hits, ChildHit{Index: m, Action: n.Action})
			}
		}

		if len(hits) == 0 {
			incomplete = append(incomplete, idx)
			continue
		}

		mutated, toPrune := classifier.Parse(node.Action, hits)
		tree.SetAction(idx, mutated)
		if len(toPrune) > 0 {
			tree.Prune(toPrune)
		}
	}

	return incomplete
}

func markedIndices(tree *models.TransactionTree, reg Registry) []models.NodeIndex {
	var out []models.NodeIndex
	for _, idx := range tree.PreOrder() {
		node := tree.Node(idx)
		if node == nil || node.Action == nil {
			continue
		}
		if _, ok := reg[node.Action.Kind()]; ok {
			out = append(out, idx)
		}
	}
	return out
}
