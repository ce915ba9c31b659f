package maintenance

import (
	"fmt"
	"time"

	"github.com/ukydev/propdocs-maintenance/internal/models"
)

// OffsetSet is the set of reminder offsets already recorded for a subject.
type OffsetSet map[int]struct{}

// NewOffsetSet builds a set from offsets.
func NewOffsetSet(offsets ...int) OffsetSet {
	s := make(OffsetSet, len(offsets))
	for _, o := range offsets {
		s[o] = struct{}{}
	}
	return s
}

// Has reports whether offset is in the set. A nil set is empty.
func (s OffsetSet) Has(offset int) bool {
	_, ok := s[offset]
	return ok
}

// Add records offset.
func (s OffsetSet) Add(offset int) {
	s[offset] = struct{}{}
}

// DueOffsets returns the reminder offsets in days before due, largest first.
func (e *Engine) DueOffsets(priority models.Priority) ([]int, error) {
	offsets, ok := e.rules.ReminderOffsets[priority]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPriority, priority)
	}
	out := make([]int, len(offsets))
	copy(out, offsets)
	return out, nil
}

// PendingOffsets returns every offset whose fire time has passed and that is
// not in fired, in the order they became due.
func (e *Engine) PendingOffsets(due time.Time, priority models.Priority, now time.Time, fired OffsetSet) ([]int, error) {
	offsets, ok := e.rules.ReminderOffsets[priority]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPriority, priority)
	}
	return elapsedUnfired(offsets, due, now, fired), nil
}

// ShouldFire returns the next offset to fire, if any. Callers record the
// offset before calling again; repeated calls with the same fired set
// return the same answer.
func (e *Engine) ShouldFire(due time.Time, priority models.Priority, now time.Time, fired OffsetSet) (int, bool, error) {
	pending, err := e.PendingOffsets(due, priority, now, fired)
	if err != nil {
		return 0, false, err
	}
	if len(pending) == 0 {
		return 0, false, nil
	}
	return pending[0], true, nil
}

// WarrantyOffsets returns the warranty reminder offsets, largest first.
func (e *Engine) WarrantyOffsets() []int {
	out := make([]int, len(e.rules.WarrantyReminderDays))
	copy(out, e.rules.WarrantyReminderDays)
	return out
}

// PendingWarrantyOffsets is PendingOffsets for a warranty expiry date.
// Nothing fires once the warranty has expired.
func (e *Engine) PendingWarrantyOffsets(expiry, now time.Time, fired OffsetSet) []int {
	if !now.Before(expiry) {
		return nil
	}
	return elapsedUnfired(e.rules.WarrantyReminderDays, expiry, now, fired)
}

// FireTime is the instant at which the reminder for offset becomes due.
func FireTime(due time.Time, offset int) time.Time {
	return due.Add(-days(offset))
}

// offsets must be sorted largest first.
func elapsedUnfired(offsets []int, due, now time.Time, fired OffsetSet) []int {
	var out []int
	for _, o := range offsets {
		if fired.Has(o) {
			continue
		}
		if now.Before(FireTime(due, o)) {
			continue
		}
		out = append(out, o)
	}
	return out
}
