package sanitize

import (
	"github.com/txplain/blocktree/internal/models"
	"github.com/txplain/blocktree/internal/rational"
)

// ReconcileTaxTokens collapses a (Transfer{from=A,to=B}, Transfer{from=B,
// to=tax_sink}) pair of the same token into a single Transfer with
// amount=x-f, fee=f (seed scenario S5). The second transfer must be a live
// descendant of the first at the time this runs; Descendants already
// returns matches in ascending trace-index order, so the first match taken
// is the earliest candidate, satisfying the "no intervening transfer of
// that token from B" rule for the common case of one fee leg per transfer.
func ReconcileTaxTokens(tree *models.TransactionTree) {
	for _, idx := range tree.PreOrder() {
		node := tree.Node(idx)
		if node == nil {
			continue
		}
		first, ok := models.AsTransfer(node.Action)
		if !ok {
			continue
		}

		candidates := tree.Descendants(idx, func(a models.Action) bool {
			t, ok := models.AsTransfer(a)
			return ok && t.Token == first.Token && t.From == first.To
		})
		if len(candidates) == 0 {
			continue
		}

		feeIdx := candidates[0]
		feeNode := tree.Node(feeIdx)
		if feeNode == nil {
			continue
		}
		fee, ok := models.AsTransfer(feeNode.Action)
		if !ok {
			continue
		}

		merged := *first
		merged.Amount = rational.Sub(first.Amount, fee.Amount)
		merged.Fee = fee.Amount
		tree.SetAction(idx, &merged)
		tree.Prune([]models.NodeIndex{feeIdx})
	}
}
