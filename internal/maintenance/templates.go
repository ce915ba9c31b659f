package maintenance

import (
	"strings"

	"github.com/ukydev/propdocs-maintenance/internal/models"
)

// Template is a ready-made schedule for a common kind of asset.
type Template struct {
	ID            string               `json:"id"`
	Title         string               `json:"title"`
	Description   string               `json:"description"`
	Frequency     models.Frequency     `json:"frequency"`
	Interval      int                  `json:"interval"`
	Priority      models.Priority      `json:"priority"`
	EstimatedCost *float64             `json:"estimated_cost,omitempty"`
	EstimatedTime *int                 `json:"estimated_time,omitempty"`
	Category      models.AssetCategory `json:"category"`
	AssetTypes    []string             `json:"asset_types"`
}

func money(v float64) *float64 { return &v }
func minutes(v int) *int       { return &v }

var templates = []Template{
	{
		ID:            "hvac-filter-replacement",
		Title:         "HVAC Filter Replacement",
		Description:   "Replace air filters and inspect airflow",
		Frequency:     models.FrequencyQuarterly,
		Interval:      1,
		Priority:      models.PriorityHigh,
		EstimatedCost: money(45),
		EstimatedTime: minutes(30),
		Category:      models.AssetCategoryHVAC,
		AssetTypes:    []string{"Central Air Conditioner", "Furnace", "Heat Pump"},
	},
	{
		ID:            "hvac-system-inspection",
		Title:         "HVAC System Inspection",
		Description:   "Professional inspection and tune-up of HVAC system",
		Frequency:     models.FrequencyAnnual,
		Interval:      1,
		Priority:      models.PriorityHigh,
		EstimatedCost: money(200),
		EstimatedTime: minutes(120),
		Category:      models.AssetCategoryHVAC,
		AssetTypes:    []string{"Central Air Conditioner", "Furnace", "Heat Pump"},
	},
	{
		ID:            "water-heater-flush",
		Title:         "Water Heater Flush",
		Description:   "Drain and flush water heater to remove sediment",
		Frequency:     models.FrequencyAnnual,
		Interval:      1,
		Priority:      models.PriorityMedium,
		EstimatedCost: money(100),
		EstimatedTime: minutes(60),
		Category:      models.AssetCategoryPlumbing,
		AssetTypes:    []string{"Water Heater"},
	},
	{
		ID:            "refrigerator-coil-cleaning",
		Title:         "Refrigerator Coil Cleaning",
		Description:   "Clean condenser coils and check door seals",
		Frequency:     models.FrequencySemiAnnual,
		Interval:      1,
		Priority:      models.PriorityMedium,
		EstimatedCost: money(0),
		EstimatedTime: minutes(45),
		Category:      models.AssetCategoryAppliances,
		AssetTypes:    []string{"Refrigerator"},
	},
}

// Templates returns the built-in templates. When assetType is not empty only
// templates for that asset type are returned.
func Templates(assetType string) []Template {
	out := make([]Template, 0, len(templates))
	for _, t := range templates {
		if assetType != "" && !t.matches(assetType) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// FindTemplate looks a template up by id.
func FindTemplate(id string) (Template, bool) {
	for _, t := range templates {
		if t.ID == id {
			return t, true
		}
	}
	return Template{}, false
}

func (t Template) matches(assetType string) bool {
	for _, at := range t.AssetTypes {
		if strings.EqualFold(at, assetType) {
			return true
		}
	}
	return false
}
