package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PropertyType classifies a property.
type PropertyType string

const (
	PropertyTypeHouse     PropertyType = "HOUSE"
	PropertyTypeCondo     PropertyType = "CONDO"
	PropertyTypeTownhouse PropertyType = "TOWNHOUSE"
	PropertyTypeApartment PropertyType = "APARTMENT"
	PropertyTypeOther     PropertyType = "OTHER"
)

// Property is a home or building owned by a user.
type Property struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	OwnerID   string             `json:"owner_id" bson:"owner_id"`
	Name      string             `json:"name" bson:"name"`
	Type      PropertyType       `json:"type" bson:"type"`
	Address   string             `json:"address,omitempty" bson:"address,omitempty"`
	City      string             `json:"city,omitempty" bson:"city,omitempty"`
	State     string             `json:"state,omitempty" bson:"state,omitempty"`
	ZipCode   string             `json:"zip_code,omitempty" bson:"zip_code,omitempty"`
	YearBuilt int                `json:"year_built,omitempty" bson:"year_built,omitempty"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}

// AssetCategory groups assets by building system.
type AssetCategory string

const (
	AssetCategoryHVAC       AssetCategory = "HVAC"
	AssetCategoryPlumbing   AssetCategory = "PLUMBING"
	AssetCategoryElectrical AssetCategory = "ELECTRICAL"
	AssetCategoryAppliances AssetCategory = "APPLIANCES"
	AssetCategorySecurity   AssetCategory = "SECURITY"
	AssetCategoryOther      AssetCategory = "OTHER"
)

// AssetCondition is the last inspected condition of an asset.
type AssetCondition string

const (
	AssetConditionExcellent        AssetCondition = "EXCELLENT"
	AssetConditionGood             AssetCondition = "GOOD"
	AssetConditionFair             AssetCondition = "FAIR"
	AssetConditionPoor             AssetCondition = "POOR"
	AssetConditionNeedsReplacement AssetCondition = "NEEDS_REPLACEMENT"
)

// Asset is a piece of equipment installed in a property.
type Asset struct {
	ID               primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	PropertyID       primitive.ObjectID `json:"property_id" bson:"property_id"`
	OwnerID          string             `json:"owner_id" bson:"owner_id"`
	Name             string             `json:"name" bson:"name"`
	Category         AssetCategory      `json:"category" bson:"category"`
	Type             string             `json:"type" bson:"type"` // e.g. "Water Heater", matched against template asset types
	Brand            string             `json:"brand,omitempty" bson:"brand,omitempty"`
	Model            string             `json:"model,omitempty" bson:"model,omitempty"`
	SerialNumber     string             `json:"serial_number,omitempty" bson:"serial_number,omitempty"`
	PurchaseDate     *time.Time         `json:"purchase_date,omitempty" bson:"purchase_date,omitempty"`
	InstallationDate *time.Time         `json:"installation_date,omitempty" bson:"installation_date,omitempty"`
	WarrantyExpiry   *time.Time         `json:"warranty_expiry,omitempty" bson:"warranty_expiry,omitempty"`
	PurchasePrice    *float64           `json:"purchase_price,omitempty" bson:"purchase_price,omitempty"`
	Condition        AssetCondition     `json:"condition" bson:"condition"`
	ConditionNotes   string             `json:"condition_notes,omitempty" bson:"condition_notes,omitempty"`
	LastInspected    *time.Time         `json:"last_inspected,omitempty" bson:"last_inspected,omitempty"`
	Location         string             `json:"location,omitempty" bson:"location,omitempty"`
	Room             string             `json:"room,omitempty" bson:"room,omitempty"`
	CreatedAt        time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at" bson:"updated_at"`
}
