package maintenance

import (
	"fmt"

	"github.com/ukydev/propdocs-maintenance/internal/models"
)

// EvaluateCost compares actual against estimated cost. Without a positive
// estimate there is no baseline, and the result is always within budget.
func (e *Engine) EvaluateCost(estimated, actual float64, priority models.Priority) (models.CostVariance, error) {
	threshold, ok := e.rules.CostVarianceThresholds[priority]
	if !ok {
		return models.CostVariance{}, fmt.Errorf("%w: %q", ErrInvalidPriority, priority)
	}
	if estimated <= 0 {
		return models.CostVariance{WithinBudget: true, ThresholdPercent: threshold}, nil
	}
	overage := (actual - estimated) * 100 / estimated
	return models.CostVariance{
		WithinBudget:     overage <= threshold,
		OveragePercent:   overage,
		ThresholdPercent: threshold,
	}, nil
}
