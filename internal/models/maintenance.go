package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Frequency is the recurrence cadence of a maintenance schedule.
type Frequency string

const (
	FrequencyWeekly     Frequency = "WEEKLY"
	FrequencyMonthly    Frequency = "MONTHLY"
	FrequencyQuarterly  Frequency = "QUARTERLY"
	FrequencySemiAnnual Frequency = "SEMI_ANNUAL"
	FrequencyAnnual     Frequency = "ANNUAL"
	FrequencyBiAnnual   Frequency = "BI_ANNUAL"
	FrequencyCustom     Frequency = "CUSTOM"
)

// Frequencies lists every supported frequency.
var Frequencies = []Frequency{
	FrequencyWeekly,
	FrequencyMonthly,
	FrequencyQuarterly,
	FrequencySemiAnnual,
	FrequencyAnnual,
	FrequencyBiAnnual,
	FrequencyCustom,
}

// Priority drives grace periods, reminder offsets and cost thresholds.
type Priority string

const (
	PriorityCritical Priority = "CRITICAL"
	PriorityHigh     Priority = "HIGH"
	PriorityMedium   Priority = "MEDIUM"
	PriorityLow      Priority = "LOW"
)

// Priorities lists every supported priority.
var Priorities = []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}

// TaskStatus is the persisted lifecycle state of a maintenance task.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "PENDING"
	TaskStatusOverdue   TaskStatus = "OVERDUE"
	TaskStatusCompleted TaskStatus = "COMPLETED"
)

// IsOpen reports whether a task in this status still awaits completion.
func (s TaskStatus) IsOpen() bool {
	return s == TaskStatusPending || s == TaskStatusOverdue
}

// DueState is the time-derived classification of a task. It is computed on
// read and never stored.
type DueState string

const (
	DueStateOnTime  DueState = "ON_TIME"
	DueStateDueSoon DueState = "DUE_SOON"
	DueStateOverdue DueState = "OVERDUE"
)

// MaintenanceSchedule is a recurring maintenance plan owned by an asset.
type MaintenanceSchedule struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	AssetID       primitive.ObjectID `json:"asset_id" bson:"asset_id"`
	OwnerID       string             `json:"owner_id" bson:"owner_id"`
	Title         string             `json:"title" bson:"title"`
	Description   string             `json:"description,omitempty" bson:"description,omitempty"`
	Frequency     Frequency          `json:"frequency" bson:"frequency"`
	Interval      int                `json:"interval" bson:"interval"` // days for CUSTOM, otherwise informational
	StartDate     time.Time          `json:"start_date" bson:"start_date"`
	Priority      Priority           `json:"priority" bson:"priority"`
	EstimatedCost *float64           `json:"estimated_cost,omitempty" bson:"estimated_cost,omitempty"` // in USD
	EstimatedTime *int               `json:"estimated_time,omitempty" bson:"estimated_time,omitempty"` // in minutes
	IsActive      bool               `json:"is_active" bson:"is_active"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at" bson:"updated_at"`
}

// CostVariance is the result of comparing actual against estimated cost.
type CostVariance struct {
	WithinBudget     bool    `json:"within_budget" bson:"within_budget"`
	OveragePercent   float64 `json:"overage_percent" bson:"overage_percent"`
	ThresholdPercent float64 `json:"threshold_percent" bson:"threshold_percent"`
}

// MaintenanceTask is one due occurrence generated by a schedule.
type MaintenanceTask struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ScheduleID   primitive.ObjectID `json:"schedule_id" bson:"schedule_id"`
	AssetID      primitive.ObjectID `json:"asset_id" bson:"asset_id"`
	OwnerID      string             `json:"owner_id" bson:"owner_id"`
	Title        string             `json:"title" bson:"title"`
	Description  string             `json:"description,omitempty" bson:"description,omitempty"`
	DueDate      time.Time          `json:"due_date" bson:"due_date"`
	Priority     Priority           `json:"priority" bson:"priority"`
	Status       TaskStatus         `json:"status" bson:"status"`
	CompletedAt  *time.Time         `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
	CompletedBy  string             `json:"completed_by,omitempty" bson:"completed_by,omitempty"`
	Notes        string             `json:"notes,omitempty" bson:"notes,omitempty"`
	ActualCost   *float64           `json:"actual_cost,omitempty" bson:"actual_cost,omitempty"`
	ActualTime   *int               `json:"actual_time,omitempty" bson:"actual_time,omitempty"`
	CostVariance *CostVariance      `json:"cost_variance,omitempty" bson:"cost_variance,omitempty"`
	CreatedAt    time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at" bson:"updated_at"`
}

// TaskCompletion carries the fields recorded when a task is completed.
type TaskCompletion struct {
	CompletedAt  time.Time
	CompletedBy  string
	Notes        string
	ActualCost   *float64
	ActualTime   *int
	CostVariance *CostVariance
}

// ServiceRecord is an append-only record of work performed on an asset.
type ServiceRecord struct {
	ID              primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	AssetID         primitive.ObjectID  `json:"asset_id" bson:"asset_id"`
	OwnerID         string              `json:"owner_id" bson:"owner_id"`
	TaskID          *primitive.ObjectID `json:"task_id,omitempty" bson:"task_id,omitempty"`
	Title           string              `json:"title" bson:"title"`
	Description     string              `json:"description" bson:"description"`
	ServiceDate     time.Time           `json:"service_date" bson:"service_date"`
	ProviderName    string              `json:"provider_name,omitempty" bson:"provider_name,omitempty"`
	ProviderContact string              `json:"provider_contact,omitempty" bson:"provider_contact,omitempty"`
	Cost            *float64            `json:"cost,omitempty" bson:"cost,omitempty"`
	LaborCost       *float64            `json:"labor_cost,omitempty" bson:"labor_cost,omitempty"`
	PartsCost       *float64            `json:"parts_cost,omitempty" bson:"parts_cost,omitempty"`
	WarrantyPeriod  *int                `json:"warranty_period,omitempty" bson:"warranty_period,omitempty"` // in days
	Notes           string              `json:"notes,omitempty" bson:"notes,omitempty"`
	CreatedAt       time.Time           `json:"created_at" bson:"created_at"`
}
