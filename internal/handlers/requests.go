package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ukydev/propdocs-maintenance/internal/models"
	"github.com/ukydev/propdocs-maintenance/internal/service"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxBodyBytes = 1 << 20

var zipCodePattern = regexp.MustCompile(`^\d{5}(-\d{4})?$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails for an empty tag or a nil func.
	_ = v.RegisterValidation("zipcode", func(fl validator.FieldLevel) bool {
		return zipCodePattern.MatchString(fl.Field().String())
	})
	return v
}

// decode reads a JSON body into v and validates it.
func decode(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: failed to read request body", errBadRequest)
	}
	if len(body) == 0 {
		return fmt.Errorf("%w: request body is required", errBadRequest)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: invalid JSON", errBadRequest)
	}
	return validate.Struct(v)
}

type createPropertyRequest struct {
	Name      string              `json:"name" validate:"required,min=1,max=100"`
	Type      models.PropertyType `json:"type" validate:"omitempty,oneof=HOUSE CONDO TOWNHOUSE APARTMENT OTHER"`
	Address   string              `json:"address" validate:"max=200"`
	City      string              `json:"city" validate:"max=100"`
	State     string              `json:"state" validate:"omitempty,min=2,max=50"`
	ZipCode   string              `json:"zip_code" validate:"omitempty,zipcode"`
	YearBuilt int                 `json:"year_built" validate:"omitempty,min=1800,max=2100"`
}

func (req createPropertyRequest) model() *models.Property {
	p := &models.Property{
		Name:      req.Name,
		Type:      req.Type,
		Address:   req.Address,
		City:      req.City,
		State:     req.State,
		ZipCode:   req.ZipCode,
		YearBuilt: req.YearBuilt,
	}
	if p.Type == "" {
		p.Type = models.PropertyTypeHouse
	}
	return p
}

type createAssetRequest struct {
	Name             string                `json:"name" validate:"required,max=100"`
	Category         models.AssetCategory  `json:"category" validate:"required,oneof=HVAC PLUMBING ELECTRICAL APPLIANCES SECURITY OTHER"`
	Type             string                `json:"type" validate:"required,max=100"`
	Brand            string                `json:"brand" validate:"max=50"`
	Model            string                `json:"model" validate:"max=100"`
	SerialNumber     string                `json:"serial_number" validate:"max=100"`
	PurchaseDate     *time.Time            `json:"purchase_date"`
	InstallationDate *time.Time            `json:"installation_date"`
	WarrantyExpiry   *time.Time            `json:"warranty_expiry"`
	PurchasePrice    *float64              `json:"purchase_price" validate:"omitempty,min=0,max=1000000"`
	Condition        models.AssetCondition `json:"condition" validate:"omitempty,oneof=EXCELLENT GOOD FAIR POOR NEEDS_REPLACEMENT"`
	Location         string                `json:"location" validate:"max=100"`
	Room             string                `json:"room" validate:"max=100"`
}

func (req createAssetRequest) model() *models.Asset {
	a := &models.Asset{
		Name:             req.Name,
		Category:         req.Category,
		Type:             req.Type,
		Brand:            req.Brand,
		Model:            req.Model,
		SerialNumber:     req.SerialNumber,
		PurchaseDate:     utc(req.PurchaseDate),
		InstallationDate: utc(req.InstallationDate),
		WarrantyExpiry:   utc(req.WarrantyExpiry),
		PurchasePrice:    req.PurchasePrice,
		Condition:        req.Condition,
		Location:         req.Location,
		Room:             req.Room,
	}
	if a.Condition == "" {
		a.Condition = models.AssetConditionGood
	}
	return a
}

type updatePropertyRequest struct {
	Name      *string              `json:"name" validate:"omitempty,min=1,max=100"`
	Type      *models.PropertyType `json:"type" validate:"omitempty,oneof=HOUSE CONDO TOWNHOUSE APARTMENT OTHER"`
	Address   *string              `json:"address" validate:"omitempty,max=200"`
	City      *string              `json:"city" validate:"omitempty,max=100"`
	State     *string              `json:"state" validate:"omitempty,min=2,max=50"`
	ZipCode   *string              `json:"zip_code" validate:"omitempty,zipcode"`
	YearBuilt *int                 `json:"year_built" validate:"omitempty,min=1800,max=2100"`
}

func (req updatePropertyRequest) patch() service.PropertyPatch {
	return service.PropertyPatch{
		Name:      req.Name,
		Type:      req.Type,
		Address:   req.Address,
		City:      req.City,
		State:     req.State,
		ZipCode:   req.ZipCode,
		YearBuilt: req.YearBuilt,
	}
}

type updateAssetRequest struct {
	Name             *string                `json:"name" validate:"omitempty,min=1,max=100"`
	Category         *models.AssetCategory  `json:"category" validate:"omitempty,oneof=HVAC PLUMBING ELECTRICAL APPLIANCES SECURITY OTHER"`
	Type             *string                `json:"type" validate:"omitempty,min=1,max=100"`
	Brand            *string                `json:"brand" validate:"omitempty,max=50"`
	Model            *string                `json:"model" validate:"omitempty,max=100"`
	SerialNumber     *string                `json:"serial_number" validate:"omitempty,max=100"`
	PurchaseDate     *time.Time             `json:"purchase_date"`
	InstallationDate *time.Time             `json:"installation_date"`
	WarrantyExpiry   *time.Time             `json:"warranty_expiry"`
	PurchasePrice    *float64               `json:"purchase_price" validate:"omitempty,min=0,max=1000000"`
	Condition        *models.AssetCondition `json:"condition" validate:"omitempty,oneof=EXCELLENT GOOD FAIR POOR NEEDS_REPLACEMENT"`
	ConditionNotes   *string                `json:"condition_notes" validate:"omitempty,max=500"`
	Location         *string                `json:"location" validate:"omitempty,max=100"`
	Room             *string                `json:"room" validate:"omitempty,max=100"`
}

func (req updateAssetRequest) patch() service.AssetPatch {
	return service.AssetPatch{
		Name:             req.Name,
		Category:         req.Category,
		Type:             req.Type,
		Brand:            req.Brand,
		Model:            req.Model,
		SerialNumber:     req.SerialNumber,
		PurchaseDate:     req.PurchaseDate,
		InstallationDate: req.InstallationDate,
		WarrantyExpiry:   req.WarrantyExpiry,
		PurchasePrice:    req.PurchasePrice,
		Condition:        req.Condition,
		ConditionNotes:   req.ConditionNotes,
		Location:         req.Location,
		Room:             req.Room,
	}
}

type assetConditionRequest struct {
	Condition      models.AssetCondition `json:"condition" validate:"required,oneof=EXCELLENT GOOD FAIR POOR NEEDS_REPLACEMENT"`
	ConditionNotes string                `json:"condition_notes" validate:"max=500"`
	LastInspected  *time.Time            `json:"last_inspected"`
}

type createScheduleRequest struct {
	Title         string           `json:"title" validate:"required,max=200"`
	Description   string           `json:"description" validate:"max=1000"`
	Frequency     models.Frequency `json:"frequency" validate:"required,oneof=WEEKLY MONTHLY QUARTERLY SEMI_ANNUAL ANNUAL BI_ANNUAL CUSTOM"`
	Interval      int              `json:"interval" validate:"omitempty,min=1,max=52"`
	StartDate     *time.Time       `json:"start_date"`
	Priority      models.Priority  `json:"priority" validate:"omitempty,oneof=CRITICAL HIGH MEDIUM LOW"`
	EstimatedCost *float64         `json:"estimated_cost" validate:"omitempty,min=0,max=10000"`
	EstimatedTime *int             `json:"estimated_time" validate:"omitempty,min=1,max=1440"`
	IsActive      *bool            `json:"is_active"`
}

func (req createScheduleRequest) model(now time.Time) *models.MaintenanceSchedule {
	s := &models.MaintenanceSchedule{
		Title:         req.Title,
		Description:   req.Description,
		Frequency:     req.Frequency,
		Interval:      req.Interval,
		StartDate:     now,
		Priority:      req.Priority,
		EstimatedCost: req.EstimatedCost,
		EstimatedTime: req.EstimatedTime,
		IsActive:      true,
	}
	if req.StartDate != nil {
		s.StartDate = req.StartDate.UTC()
	}
	if s.Interval == 0 {
		s.Interval = 1
	}
	if s.Priority == "" {
		s.Priority = models.PriorityMedium
	}
	if req.IsActive != nil {
		s.IsActive = *req.IsActive
	}
	return s
}

type updateScheduleRequest struct {
	Title         *string           `json:"title" validate:"omitempty,min=1,max=200"`
	Description   *string           `json:"description" validate:"omitempty,max=1000"`
	Frequency     *models.Frequency `json:"frequency" validate:"omitempty,oneof=WEEKLY MONTHLY QUARTERLY SEMI_ANNUAL ANNUAL BI_ANNUAL CUSTOM"`
	Interval      *int              `json:"interval" validate:"omitempty,min=1,max=52"`
	StartDate     *time.Time        `json:"start_date"`
	Priority      *models.Priority  `json:"priority" validate:"omitempty,oneof=CRITICAL HIGH MEDIUM LOW"`
	EstimatedCost *float64          `json:"estimated_cost" validate:"omitempty,min=0,max=10000"`
	EstimatedTime *int              `json:"estimated_time" validate:"omitempty,min=1,max=1440"`
	IsActive      *bool             `json:"is_active"`
}

func (req updateScheduleRequest) patch() service.SchedulePatch {
	return service.SchedulePatch{
		Title:         req.Title,
		Description:   req.Description,
		Frequency:     req.Frequency,
		Interval:      req.Interval,
		StartDate:     req.StartDate,
		Priority:      req.Priority,
		EstimatedCost: req.EstimatedCost,
		EstimatedTime: req.EstimatedTime,
		IsActive:      req.IsActive,
	}
}

type fromTemplateRequest struct {
	TemplateID string     `json:"template_id" validate:"required,max=100"`
	StartDate  *time.Time `json:"start_date"`
}

type completeTaskRequest struct {
	CompletedBy string   `json:"completed_by" validate:"max=100"`
	Notes       string   `json:"notes" validate:"max=1000"`
	ActualCost  *float64 `json:"actual_cost" validate:"omitempty,min=0,max=10000"`
	ActualTime  *int     `json:"actual_time" validate:"omitempty,min=1,max=1440"`
}

func (req completeTaskRequest) input() service.CompleteTaskInput {
	return service.CompleteTaskInput{
		CompletedBy: req.CompletedBy,
		Notes:       req.Notes,
		ActualCost:  req.ActualCost,
		ActualTime:  req.ActualTime,
	}
}

type createServiceRecordRequest struct {
	TaskID          string     `json:"task_id" validate:"omitempty,len=24,hexadecimal"`
	Title           string     `json:"title" validate:"required,max=200"`
	Description     string     `json:"description" validate:"required,max=1000"`
	ServiceDate     *time.Time `json:"service_date" validate:"required"`
	ProviderName    string     `json:"provider_name" validate:"max=100"`
	ProviderContact string     `json:"provider_contact" validate:"max=100"`
	Cost            *float64   `json:"cost" validate:"omitempty,min=0,max=50000"`
	LaborCost       *float64   `json:"labor_cost" validate:"omitempty,min=0,max=50000"`
	PartsCost       *float64   `json:"parts_cost" validate:"omitempty,min=0,max=50000"`
	WarrantyPeriod  *int       `json:"warranty_period" validate:"omitempty,min=0,max=3650"`
	Notes           string     `json:"notes" validate:"max=1000"`
}

func (req createServiceRecordRequest) model() (*models.ServiceRecord, error) {
	record := &models.ServiceRecord{
		Title:           req.Title,
		Description:     req.Description,
		ServiceDate:     req.ServiceDate.UTC(),
		ProviderName:    req.ProviderName,
		ProviderContact: req.ProviderContact,
		Cost:            req.Cost,
		LaborCost:       req.LaborCost,
		PartsCost:       req.PartsCost,
		WarrantyPeriod:  req.WarrantyPeriod,
		Notes:           req.Notes,
	}
	if req.TaskID != "" {
		oid, err := primitive.ObjectIDFromHex(req.TaskID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid task_id", errBadRequest)
		}
		record.TaskID = &oid
	}
	return record, nil
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
