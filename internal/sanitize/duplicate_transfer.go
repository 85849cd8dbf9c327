package sanitize

import "github.com/txplain/blocktree/internal/models"

type transferKey struct {
	token, from, to string
	amount          string
}

// EliminateDuplicateTransfers finds Transfers with the same (token, from, to,
// amount) whose nodes form a direct parent/child pair, keeps the lower
// trace_index of each pair (the parent) and prunes the higher one. Whether a
// Transfer came from a log or from a call is not tracked, and the frames'
// contract addresses are not compared with the token.
func EliminateDuplicateTransfers(tree *models.TransactionTree) {
	groups := make(map[transferKey][]models.NodeIndex)
	for _, idx := range tree.PreOrder() {
		node := tree.Node(idx)
		if node == nil {
			continue
		}
		t, ok := models.AsTransfer(node.Action)
		if !ok {
			continue
		}
		key := transferKey{
			token:  t.Token.Hex(),
			from:   t.From.Hex(),
			to:     t.To.Hex(),
			amount: t.Amount.String(),
		}
		groups[key] = append(groups[key], idx)
	}

	var toPrune []models.NodeIndex
	for _, indices := range groups {
		if len(indices) < 2 {
			continue
		}
		for i := 0; i < len(indices); i++ {
			for j := i + 1; j < len(indices); j++ {
				if !neighbors(tree, indices[i], indices[j]) {
					continue
				}
				// Keep the lower trace_index, drop the higher.
				if indices[i] < indices[j] {
					toPrune = append(toPrune, indices[j])
				} else {
					toPrune = append(toPrune, indices[i])
				}
			}
		}
	}
	if len(toPrune) > 0 {
		tree.Prune(toPrune)
	}
}

func neighbors(tree *models.TransactionTree, a, b models.NodeIndex) bool {
	na, nb := tree.Node(a), tree.Node(b)
	if na == nil || nb == nil {
		return false
	}
	return na.Parent == b || nb.Parent == a
}
