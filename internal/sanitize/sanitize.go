// Package sanitize implements the two tx-local passes of spec §4.G: tax-token
// fee reconciliation and duplicate-transfer elimination. Both run after the
// rewriter, are order-independent across transactions, and are written so
// running either pass twice in a row is a no-op (§8 invariant 7).
package sanitize

import "github.com/txplain/blocktree/internal/models"

// Pass is one sanitizer stage: given the tree, mutate/prune it in place.
type Pass func(tree *models.TransactionTree)

// Sequence is the ordered list of passes the pipeline runs per tx.
// Reconciliation runs first so elimination never discards a transfer a
// reconciliation pass still needs to see.
func Sequence() []Pass {
	return []Pass{ReconcileTaxTokens, EliminateDuplicateTransfers}
}

// Run applies every pass in Sequence to tree.
func Run(tree *models.TransactionTree) {
	for _, pass := range Sequence() {
		pass(tree)
	}
}
