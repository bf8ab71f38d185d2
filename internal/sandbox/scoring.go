package sandbox

import (
	"math"

	"github.com/tatianab/impact-sandbox/internal/models"
)

const (
	// MaxDimension is the top of the [0,10] scale on each impact axis.
	MaxDimension = 10.0
	// MaxScore is awarded for a perfect prediction.
	MaxScore = 100

	maxTotalDelta = 3 * MaxDimension
)

// Result is the outcome of scoring a prediction.
type Result struct {
	Guess  models.Impact
	Actual models.Impact
	Delta  models.Impact
	Score  int
}

// Evaluate scores guess against the scenario's hidden actuals. The summed
// absolute error across the three axes is mapped linearly from 0 (score 100)
// to 30 (score 0) and rounded. The guess is not validated here.
func Evaluate(guess models.Impact, s *models.Scenario) Result {
	actual := s.HiddenActuals
	delta := models.Impact{
		Env:    math.Abs(actual.Env - guess.Env),
		Econ:   math.Abs(actual.Econ - guess.Econ),
		Social: math.Abs(actual.Social - guess.Social),
	}

	total := delta.Env + delta.Econ + delta.Social
	score := math.Round(MaxScore - total*MaxScore/maxTotalDelta)

	return Result{
		Guess:  guess,
		Actual: actual,
		Delta:  delta,
		Score:  max(0, int(score)),
	}
}
