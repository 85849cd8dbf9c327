package rewrite

import "github.com/txplain/blocktree/internal/models"

// AggregatorSwapClassifier collapses the inner pool swaps an aggregator
// router routed through into the anchor AggregatorSwap's AmountIn/AmountOut,
// then prunes every collapsed hop (§4.F) so the route's individual pool
// swaps are never double-counted alongside the aggregator action.
func AggregatorSwapClassifier() Classifier {
	return Classifier{
		Predicate: func(anchorAction models.Action, candidate models.Action) bool {
			_, ok := anchorAction.(*models.AggregatorSwap)
			return ok && models.IsSwap(candidate)
		},
		Parse: aggregatorSwapParse,
	}
}

func aggregatorSwapParse(anchor models.Action, hits []ChildHit) (models.Action, []models.NodeIndex) {
	agg, ok := anchor.(*models.AggregatorSwap)
	if !ok {
		return anchor, nil
	}

	var pruned []models.NodeIndex
	var entrySet bool
	for _, hit := range hits {
		swap, ok := hit.Action.(*models.Swap)
		if !ok {
			continue
		}
		pruned = append(pruned, hit.Index)
		if !entrySet && swap.TokenIn == agg.TokenIn {
			agg.AmountIn = swap.AmountIn
			entrySet = true
		}
		if swap.TokenOut == agg.TokenOut {
			agg.AmountOut = swap.AmountOut
		}
	}

	return agg, pruned
}
