package maintenance

import (
	"fmt"
	"time"
)

// NextDueDate returns the first date on the grid start + k*cadence (k >= 1)
// that is not before asOf. A schedule is never due on its own start date.
func (e *Engine) NextDueDate(start time.Time, cadenceDays int, asOf time.Time) (time.Time, error) {
	if cadenceDays <= 0 {
		return time.Time{}, fmt.Errorf("%w: %d days", ErrInvalidCadence, cadenceDays)
	}
	step := days(cadenceDays)
	k := int64(1)
	if elapsed := asOf.Sub(start); elapsed > step {
		k = int64(elapsed / step)
		if elapsed%step != 0 {
			k++
		}
	}
	return start.Add(time.Duration(k) * step), nil
}

// Advance returns the due date following current. It steps from the
// scheduled date, not the completion date, so the grid never drifts.
func (e *Engine) Advance(current time.Time, cadenceDays int) (time.Time, error) {
	if cadenceDays <= 0 {
		return time.Time{}, fmt.Errorf("%w: %d days", ErrInvalidCadence, cadenceDays)
	}
	return current.Add(days(cadenceDays)), nil
}
