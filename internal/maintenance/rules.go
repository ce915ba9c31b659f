package maintenance

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/ukydev/propdocs-maintenance/internal/models"
)

// Rules holds the lookup tables that drive recurrence, grace periods,
// reminder timing and cost variance. An Engine keeps its own copy, so a
// Rules value can be tuned per deployment without affecting running engines.
type Rules struct {
	FrequencyDays          map[models.Frequency]int    `json:"frequency_days"`
	GracePeriodDays        map[models.Priority]int     `json:"grace_period_days"`
	ReminderOffsets        map[models.Priority][]int   `json:"reminder_offsets"`
	CostVarianceThresholds map[models.Priority]float64 `json:"cost_variance_thresholds"`
	WarrantyReminderDays   []int                       `json:"warranty_reminder_days"`
	DueSoonDays            int                         `json:"due_soon_days"`
}

// DefaultRules returns the standard rule tables.
func DefaultRules() Rules {
	return Rules{
		// Calendar approximations, not month/year arithmetic. CUSTOM has no
		// base: the schedule interval is the cadence in days.
		FrequencyDays: map[models.Frequency]int{
			models.FrequencyWeekly:     7,
			models.FrequencyMonthly:    30,
			models.FrequencyQuarterly:  90,
			models.FrequencySemiAnnual: 182,
			models.FrequencyAnnual:     365,
			models.FrequencyBiAnnual:   730,
			models.FrequencyCustom:     0,
		},
		GracePeriodDays: map[models.Priority]int{
			models.PriorityCritical: 0,
			models.PriorityHigh:     1,
			models.PriorityMedium:   3,
			models.PriorityLow:      7,
		},
		ReminderOffsets: map[models.Priority][]int{
			models.PriorityCritical: {7, 3, 1, 0},
			models.PriorityHigh:     {14, 7, 3, 1},
			models.PriorityMedium:   {30, 14, 7},
			models.PriorityLow:      {30, 14},
		},
		CostVarianceThresholds: map[models.Priority]float64{
			models.PriorityCritical: 25,
			models.PriorityHigh:     50,
			models.PriorityMedium:   75,
			models.PriorityLow:      100,
		},
		WarrantyReminderDays: []int{365, 180, 90, 30, 7},
		DueSoonDays:          1,
	}
}

// LoadRules reads a JSON file of rule overrides on top of DefaultRules.
// Keys missing from the file keep their default values.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules file: %w", err)
	}
	if err := json.Unmarshal(data, &rules); err != nil {
		return Rules{}, fmt.Errorf("decode rules file: %w", err)
	}
	if err := rules.Validate(); err != nil {
		return Rules{}, err
	}
	return rules, nil
}

// Validate checks that every frequency and priority has an entry and that
// no value is negative.
func (r Rules) Validate() error {
	for _, f := range models.Frequencies {
		days, ok := r.FrequencyDays[f]
		if !ok {
			return fmt.Errorf("%w: no cadence for frequency %s", ErrInvalidRules, f)
		}
		if f == models.FrequencyCustom {
			if days < 0 {
				return fmt.Errorf("%w: negative cadence for %s", ErrInvalidRules, f)
			}
			continue
		}
		if days <= 0 {
			return fmt.Errorf("%w: cadence for %s must be positive", ErrInvalidRules, f)
		}
	}
	for _, p := range models.Priorities {
		if grace, ok := r.GracePeriodDays[p]; !ok || grace < 0 {
			return fmt.Errorf("%w: bad grace period for %s", ErrInvalidRules, p)
		}
		offsets, ok := r.ReminderOffsets[p]
		if !ok {
			return fmt.Errorf("%w: no reminder offsets for %s", ErrInvalidRules, p)
		}
		if err := validateOffsets(offsets); err != nil {
			return fmt.Errorf("%w: reminder offsets for %s: %v", ErrInvalidRules, p, err)
		}
		if threshold, ok := r.CostVarianceThresholds[p]; !ok || threshold < 0 {
			return fmt.Errorf("%w: bad cost variance threshold for %s", ErrInvalidRules, p)
		}
	}
	if err := validateOffsets(r.WarrantyReminderDays); err != nil {
		return fmt.Errorf("%w: warranty reminder days: %v", ErrInvalidRules, err)
	}
	if r.DueSoonDays < 0 {
		return fmt.Errorf("%w: negative due-soon window", ErrInvalidRules)
	}
	return nil
}

func validateOffsets(offsets []int) error {
	seen := make(map[int]bool, len(offsets))
	for _, o := range offsets {
		if o < 0 {
			return fmt.Errorf("negative offset %d", o)
		}
		if seen[o] {
			return fmt.Errorf("duplicate offset %d", o)
		}
		seen[o] = true
	}
	return nil
}

// clone deep-copies the tables and sorts offset lists in descending order.
func (r Rules) clone() Rules {
	out := Rules{
		FrequencyDays:          make(map[models.Frequency]int, len(r.FrequencyDays)),
		GracePeriodDays:        make(map[models.Priority]int, len(r.GracePeriodDays)),
		ReminderOffsets:        make(map[models.Priority][]int, len(r.ReminderOffsets)),
		CostVarianceThresholds: make(map[models.Priority]float64, len(r.CostVarianceThresholds)),
		WarrantyReminderDays:   sortedDesc(r.WarrantyReminderDays),
		DueSoonDays:            r.DueSoonDays,
	}
	for k, v := range r.FrequencyDays {
		out.FrequencyDays[k] = v
	}
	for k, v := range r.GracePeriodDays {
		out.GracePeriodDays[k] = v
	}
	for k, v := range r.ReminderOffsets {
		out.ReminderOffsets[k] = sortedDesc(v)
	}
	for k, v := range r.CostVarianceThresholds {
		out.CostVarianceThresholds[k] = v
	}
	return out
}

func sortedDesc(in []int) []int {
	out := make([]int, len(in))
	copy(out, in)
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}
