package rewrite

import (
	"github.com/txplain/blocktree/internal/models"
	"github.com/txplain/blocktree/internal/rational"
)

// FlashLoanClassifier collapses a flash loan's borrow/repay transfer pair
// into Amount/Fee on the anchor FlashLoan (§4.F): the pool-to-borrower leg
// sets Amount, the borrower-to-pool leg's excess over Amount is Fee.
func FlashLoanClassifier() Classifier {
	return Classifier{
		Predicate: func(anchorAction models.Action, candidate models.Action) bool {
			loan, ok := anchorAction.(*models.FlashLoan)
			if !ok || !models.IsTransfer(candidate) {
				return false
			}
			t, _ := models.AsTransfer(candidate)
			return t.Token == loan.Token && (t.From == loan.Pool || t.To == loan.Pool)
		},
		Parse: flashLoanParse,
	}
}

func flashLoanParse(anchor models.Action, hits []ChildHit) (models.Action, []models.NodeIndex) {
	loan, ok := anchor.(*models.FlashLoan)
	if !ok {
		return anchor, nil
	}

	var borrow, repay *models.Transfer
	var pruned []models.NodeIndex
	for _, hit := range hits {
		t, ok := models.AsTransfer(hit.Action)
		if !ok {
			continue
		}
		if t.From == loan.Pool && borrow == nil {
			borrow = t
			pruned = append(pruned, hit.Index)
		} else if t.To == loan.Pool && repay == nil {
			repay = t
			pruned = append(pruned, hit.Index)
		}
	}

	if borrow == nil {
		return anchor, nil
	}

	loan.Amount = borrow.Amount
	if repay != nil {
		loan.Fee = rational.Sub(repay.Amount, borrow.Amount)
	}
	return loan, pruned
}
