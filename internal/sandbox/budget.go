package sandbox

import "github.com/tatianab/impact-sandbox/internal/models"

// A decision spending more than 6/5 (1.2x) of the budget is rejected outright.
// Kept as a fraction so the comparison stays in integer arithmetic.
const (
	rejectionNum = 6
	rejectionDen = 5
)

const (
	msgBudgetValid    = "Decision valid"
	msgBudgetOver     = "Decision accepted but over budget - negative consequences"
	msgBudgetRejected = "Decision rejected - significantly over budget"
)

// CheckBudget classifies a spend against the budget. Spending past the budget
// is accepted with a penalty; past 1.2 times the budget it is rejected.
func CheckBudget(totalSpent, budget models.Money) models.BudgetStatus {
	over := totalSpent > budget
	significantly := totalSpent*rejectionDen > budget*rejectionNum

	status := models.BudgetStatus{
		Valid:                   !significantly,
		OverBudget:              over,
		SignificantlyOverBudget: significantly,
		Message:                 msgBudgetValid,
	}
	switch {
	case significantly:
		status.Message = msgBudgetRejected
	case over:
		status.Message = msgBudgetOver
	}
	return status
}
