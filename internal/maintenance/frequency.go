package maintenance

import (
	"fmt"

	"github.com/ukydev/propdocs-maintenance/internal/models"
)

// CadenceDays resolves a frequency to a cadence in days. Fixed frequencies
// ignore interval; CUSTOM uses interval as the day count.
func (e *Engine) CadenceDays(frequency models.Frequency, interval int) (int, error) {
	base, ok := e.rules.FrequencyDays[frequency]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFrequency, frequency)
	}
	cadence := base
	if frequency == models.FrequencyCustom {
		cadence = interval
	}
	if cadence <= 0 {
		return 0, fmt.Errorf("%w: %s with interval %d resolves to %d days", ErrInvalidCadence, frequency, interval, cadence)
	}
	return cadence, nil
}

// ScheduleCadence resolves the cadence of a schedule.
func (e *Engine) ScheduleCadence(s *models.MaintenanceSchedule) (int, error) {
	return e.CadenceDays(s.Frequency, s.Interval)
}

// ValidateSchedule checks the recurrence and priority of a schedule and
// returns its cadence in days.
func (e *Engine) ValidateSchedule(s *models.MaintenanceSchedule) (int, error) {
	cadence, err := e.ScheduleCadence(s)
	if err != nil {
		return 0, err
	}
	if _, ok := e.rules.GracePeriodDays[s.Priority]; !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPriority, s.Priority)
	}
	return cadence, nil
}
