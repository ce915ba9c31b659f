package maintenance

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/propdocs-maintenance/internal/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestEngine(t *testing.T, now time.Time) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultRules(), ClockFunc(func() time.Time { return now }))
	require.NoError(t, err)
	return e
}

func TestCadenceDays(t *testing.T) {
	e := newTestEngine(t, date(2024, 1, 1))

	tests := []struct {
		frequency models.Frequency
		expected  int
	}{
		{models.FrequencyWeekly, 7},
		{models.FrequencyMonthly, 30},
		{models.FrequencyQuarterly, 90},
		{models.FrequencySemiAnnual, 182},
		{models.FrequencyAnnual, 365},
		{models.FrequencyBiAnnual, 730},
	}

	for _, tt := range tests {
		t.Run(string(tt.frequency), func(t *testing.T) {
			for _, interval := range []int{1, 2, 13, 52} {
				got, err := e.CadenceDays(tt.frequency, interval)
				require.NoError(t, err)
				assert.Equal(t, tt.expected, got, "interval %d", interval)
			}
		})
	}

	t.Run("custom uses interval as days", func(t *testing.T) {
		got, err := e.CadenceDays(models.FrequencyCustom, 10)
		require.NoError(t, err)
		assert.Equal(t, 10, got)
	})

	t.Run("custom without interval", func(t *testing.T) {
		_, err := e.CadenceDays(models.FrequencyCustom, 0)
		assert.ErrorIs(t, err, ErrInvalidCadence)
	})

	t.Run("unknown frequency", func(t *testing.T) {
		_, err := e.CadenceDays("FORTNIGHTLY", 1)
		assert.ErrorIs(t, err, ErrInvalidFrequency)
	})
}

func TestValidateSchedule(t *testing.T) {
	e := newTestEngine(t, date(2024, 1, 1))

	cadence, err := e.ValidateSchedule(&models.MaintenanceSchedule{Frequency: models.FrequencyQuarterly, Interval: 1, Priority: models.PriorityHigh})
	require.NoError(t, err)
	assert.Equal(t, 90, cadence)

	_, err = e.ValidateSchedule(&models.MaintenanceSchedule{Frequency: models.FrequencyCustom, Priority: models.PriorityHigh})
	assert.ErrorIs(t, err, ErrInvalidCadence)

	_, err = e.ValidateSchedule(&models.MaintenanceSchedule{Frequency: models.FrequencyWeekly, Priority: "URGENT"})
	assert.ErrorIs(t, err, ErrInvalidPriority)
}

func TestNextDueDate(t *testing.T) {
	e := newTestEngine(t, date(2024, 1, 1))
	start := date(2024, 1, 1)

	t.Run("as of start is one cadence later", func(t *testing.T) {
		got, err := e.NextDueDate(start, 90, start)
		require.NoError(t, err)
		assert.Equal(t, start.Add(90*day), got)
	})

	t.Run("as of before start", func(t *testing.T) {
		got, err := e.NextDueDate(start, 30, start.Add(-48*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, start.Add(30*day), got)
	})

	t.Run("as of exactly on grid", func(t *testing.T) {
		got, err := e.NextDueDate(start, 7, start.Add(21*day))
		require.NoError(t, err)
		assert.Equal(t, start.Add(21*day), got)
	})

	t.Run("as of between grid points", func(t *testing.T) {
		got, err := e.NextDueDate(start, 7, start.Add(22*day+time.Hour))
		require.NoError(t, err)
		assert.Equal(t, start.Add(28*day), got)
	})

	t.Run("zero cadence", func(t *testing.T) {
		_, err := e.NextDueDate(start, 0, start)
		assert.ErrorIs(t, err, ErrInvalidCadence)
	})

	t.Run("negative cadence", func(t *testing.T) {
		_, err := e.NextDueDate(start, -5, start)
		assert.ErrorIs(t, err, ErrInvalidCadence)
	})
}

func TestAdvance_NoDrift(t *testing.T) {
	e := newTestEngine(t, date(2024, 1, 1))
	start := date(2024, 1, 1)

	for _, cadence := range []int{7, 30, 90, 182, 365, 730, 11} {
		due, err := e.NextDueDate(start, cadence, start)
		require.NoError(t, err)
		for k := 1; k <= 50; k++ {
			due, err = e.Advance(due, cadence)
			require.NoError(t, err)
			assert.Equal(t, start.Add(time.Duration(k+1)*time.Duration(cadence)*day), due, "cadence %d, k %d", cadence, k)
		}
	}

	_, err := e.Advance(start, 0)
	assert.ErrorIs(t, err, ErrInvalidCadence)
}

func TestClassify(t *testing.T) {
	e := newTestEngine(t, date(2024, 1, 1))
	due := date(2024, 10, 1)

	tests := []struct {
		name     string
		priority models.Priority
		now      time.Time
		expected models.DueState
	}{
		{"critical at due", models.PriorityCritical, due, models.DueStateOverdue},
		{"critical just before due", models.PriorityCritical, due.Add(-time.Second), models.DueStateDueSoon},
		{"low six days late", models.PriorityLow, due.Add(6 * day), models.DueStateDueSoon},
		{"low seven days late", models.PriorityLow, due.Add(7 * day), models.DueStateOverdue},
		{"high within grace", models.PriorityHigh, due.Add(23 * time.Hour), models.DueStateDueSoon},
		{"high after grace", models.PriorityHigh, due.Add(day), models.DueStateOverdue},
		{"medium after grace", models.PriorityMedium, due.Add(3 * day), models.DueStateOverdue},
		{"one day before", models.PriorityMedium, due.Add(-day), models.DueStateDueSoon},
		{"just outside due-soon window", models.PriorityMedium, due.Add(-day - time.Second), models.DueStateOnTime},
		{"weeks before", models.PriorityLow, due.Add(-30 * day), models.DueStateOnTime},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Classify(due, tt.priority, tt.now)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	_, err := e.Classify(due, "URGENT", due)
	assert.ErrorIs(t, err, ErrInvalidPriority)
}

func TestClassifyTask(t *testing.T) {
	due := date(2024, 10, 1)
	e := newTestEngine(t, due.Add(10*day))

	task := &models.MaintenanceTask{DueDate: due, Priority: models.PriorityLow, Status: models.TaskStatusPending}
	state, err := e.ClassifyTask(task)
	require.NoError(t, err)
	assert.Equal(t, models.DueStateOverdue, state)

	task.Status = models.TaskStatusCompleted
	state, err = e.ClassifyTask(task)
	require.NoError(t, err)
	assert.Equal(t, models.DueStateOnTime, state)
}

func TestDaysOverdue(t *testing.T) {
	due := date(2024, 9, 15)
	assert.Equal(t, 0, DaysOverdue(due, due))
	assert.Equal(t, 0, DaysOverdue(due, due.Add(-day)))
	assert.Equal(t, 10, DaysOverdue(due, due.Add(10*day+time.Hour)))
}

func TestDueOffsets(t *testing.T) {
	e := newTestEngine(t, date(2024, 1, 1))

	expected := map[models.Priority][]int{
		models.PriorityCritical: {7, 3, 1, 0},
		models.PriorityHigh:     {14, 7, 3, 1},
		models.PriorityMedium:   {30, 14, 7},
		models.PriorityLow:      {30, 14},
	}
	for p, want := range expected {
		got, err := e.DueOffsets(p)
		require.NoError(t, err)
		assert.Equal(t, want, got, string(p))
	}

	got, _ := e.DueOffsets(models.PriorityHigh)
	got[0] = 999
	again, _ := e.DueOffsets(models.PriorityHigh)
	assert.Equal(t, 14, again[0], "callers must not be able to mutate the rules")

	_, err := e.DueOffsets("URGENT")
	assert.ErrorIs(t, err, ErrInvalidPriority)
}

func TestShouldFire_MediumExample(t *testing.T) {
	e := newTestEngine(t, date(2024, 1, 1))
	due := date(2024, 10, 1)
	now := date(2024, 9, 17)

	offset, ok, err := e.ShouldFire(due, models.PriorityMedium, now, NewOffsetSet(30))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 14, offset)

	_, ok, err = e.ShouldFire(due, models.PriorityMedium, now, NewOffsetSet(30, 14))
	require.NoError(t, err)
	assert.False(t, ok, "offset 7 is not due until 2024-09-24")
}

func TestShouldFire_NeverRepeats(t *testing.T) {
	e := newTestEngine(t, date(2024, 1, 1))
	due := date(2024, 10, 1)
	fired := NewOffsetSet()
	var seen []int

	for now := due.Add(-40 * day); !now.After(due.Add(5 * day)); now = now.Add(6 * time.Hour) {
		for i := 0; i < 3; i++ {
			offset, ok, err := e.ShouldFire(due, models.PriorityCritical, now, fired)
			require.NoError(t, err)
			if !ok {
				break
			}
			assert.False(t, fired.Has(offset))
			fired.Add(offset)
			seen = append(seen, offset)
		}
	}

	assert.Equal(t, []int{7, 3, 1, 0}, seen)
}

func TestPendingOffsets_AfterDowntime(t *testing.T) {
	e := newTestEngine(t, date(2024, 1, 1))
	due := date(2024, 10, 1)

	pending, err := e.PendingOffsets(due, models.PriorityHigh, due.Add(2*day), NewOffsetSet(14))
	require.NoError(t, err)
	assert.Equal(t, []int{7, 3, 1}, pending)

	pending, err = e.PendingOffsets(due, models.PriorityHigh, due.Add(-20*day), nil)
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = e.PendingOffsets(due, "URGENT", due, nil)
	assert.ErrorIs(t, err, ErrInvalidPriority)
}

func TestPendingWarrantyOffsets(t *testing.T) {
	e := newTestEngine(t, date(2024, 1, 1))
	expiry := date(2025, 6, 1)

	assert.Equal(t, []int{365, 180, 90, 30, 7}, e.WarrantyOffsets())
	assert.Equal(t, []int{365, 180}, e.PendingWarrantyOffsets(expiry, expiry.Add(-150*day), nil))
	assert.Equal(t, []int{180}, e.PendingWarrantyOffsets(expiry, expiry.Add(-150*day), NewOffsetSet(365)))
	assert.Empty(t, e.PendingWarrantyOffsets(expiry, expiry, nil))
}

func TestEvaluateCost(t *testing.T) {
	e := newTestEngine(t, date(2024, 1, 1))

	tests := []struct {
		name      string
		estimated float64
		actual    float64
		priority  models.Priority
		overage   float64
		within    bool
	}{
		{"high within threshold", 100, 130, models.PriorityHigh, 30, true},
		{"high over threshold", 100, 200, models.PriorityHigh, 100, false},
		{"high at threshold", 100, 150, models.PriorityHigh, 50, true},
		{"critical over threshold", 100, 126, models.PriorityCritical, 26, false},
		{"under budget", 200, 150, models.PriorityLow, -25, true},
		{"low at double", 50, 100, models.PriorityLow, 100, true},
		{"no estimate", 0, 500, models.PriorityCritical, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.EvaluateCost(tt.estimated, tt.actual, tt.priority)
			require.NoError(t, err)
			assert.InDelta(t, tt.overage, got.OveragePercent, 1e-9)
			assert.Equal(t, tt.within, got.WithinBudget)
		})
	}

	_, err := e.EvaluateCost(100, 100, "URGENT")
	assert.ErrorIs(t, err, ErrInvalidPriority)
}

func TestNewEngine_CopiesRules(t *testing.T) {
	rules := DefaultRules()
	e, err := NewEngine(rules, nil)
	require.NoError(t, err)

	rules.FrequencyDays[models.FrequencyWeekly] = 8
	rules.ReminderOffsets[models.PriorityLow][0] = 1

	got, err := e.CadenceDays(models.FrequencyWeekly, 1)
	require.NoError(t, err)
	assert.Equal(t, 7, got)
	offsets, _ := e.DueOffsets(models.PriorityLow)
	assert.Equal(t, []int{30, 14}, offsets)
	assert.False(t, e.Now().IsZero())
}

func TestNewEngine_OverriddenRules(t *testing.T) {
	rules := DefaultRules()
	rules.GracePeriodDays[models.PriorityCritical] = 2
	rules.ReminderOffsets[models.PriorityLow] = []int{1, 60, 30}
	e, err := NewEngine(rules, nil)
	require.NoError(t, err)

	due := date(2024, 10, 1)
	state, err := e.Classify(due, models.PriorityCritical, due.Add(day))
	require.NoError(t, err)
	assert.Equal(t, models.DueStateDueSoon, state)

	offsets, err := e.DueOffsets(models.PriorityLow)
	require.NoError(t, err)
	assert.Equal(t, []int{60, 30, 1}, offsets)
}

func TestRules_Validate(t *testing.T) {
	assert.NoError(t, DefaultRules().Validate())

	missing := DefaultRules()
	delete(missing.FrequencyDays, models.FrequencyAnnual)
	assert.ErrorIs(t, missing.Validate(), ErrInvalidRules)

	zero := DefaultRules()
	zero.FrequencyDays[models.FrequencyMonthly] = 0
	assert.ErrorIs(t, zero.Validate(), ErrInvalidRules)

	dup := DefaultRules()
	dup.ReminderOffsets[models.PriorityHigh] = []int{7, 7}
	assert.ErrorIs(t, dup.Validate(), ErrInvalidRules)

	negative := DefaultRules()
	negative.GracePeriodDays[models.PriorityLow] = -1
	assert.ErrorIs(t, negative.Validate(), ErrInvalidRules)

	_, err := NewEngine(negative, nil)
	assert.ErrorIs(t, err, ErrInvalidRules)
}

func TestLoadRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"grace_period_days": {"LOW": 10},
		"reminder_offsets": {"MEDIUM": [21, 7]},
		"due_soon_days": 2
	}`), 0o600))

	rules, err := LoadRules(path)
	require.NoError(t, err)
	assert.Equal(t, 10, rules.GracePeriodDays[models.PriorityLow])
	assert.Equal(t, 0, rules.GracePeriodDays[models.PriorityCritical])
	assert.Equal(t, []int{21, 7}, rules.ReminderOffsets[models.PriorityMedium])
	assert.Equal(t, []int{30, 14}, rules.ReminderOffsets[models.PriorityLow])
	assert.Equal(t, 2, rules.DueSoonDays)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"frequency_days": {"WEEKLY": 0}}`), 0o600))
	_, err = LoadRules(bad)
	assert.ErrorIs(t, err, ErrInvalidRules)

	_, err = LoadRules(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestTemplates(t *testing.T) {
	all := Templates("")
	assert.Len(t, all, 4)

	heater := Templates("water heater")
	require.Len(t, heater, 1)
	assert.Equal(t, "water-heater-flush", heater[0].ID)

	tmpl, ok := FindTemplate("hvac-filter-replacement")
	require.True(t, ok)
	assert.Equal(t, models.FrequencyQuarterly, tmpl.Frequency)
	assert.Equal(t, models.PriorityHigh, tmpl.Priority)

	_, ok = FindTemplate("nope")
	assert.False(t, ok)

	for _, tmpl := range all {
		_, err := newTestEngine(t, date(2024, 1, 1)).CadenceDays(tmpl.Frequency, tmpl.Interval)
		assert.NoError(t, err, tmpl.ID)
	}
}
