package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ukydev/propdocs-maintenance/internal/models"
)

// warrantyExpiringSoon is the window of the asset list's expiring filter.
const warrantyExpiringSoon = 30 * 24 * time.Hour

// PropertyPatch holds the fields of a partial property update. Nil fields
// are left unchanged.
type PropertyPatch struct {
	Name      *string
	Type      *models.PropertyType
	Address   *string
	City      *string
	State     *string
	ZipCode   *string
	YearBuilt *int
}

// AssetPatch holds the fields of a partial asset update. Nil fields are
// left unchanged.
type AssetPatch struct {
	Name             *string
	Category         *models.AssetCategory
	Type             *string
	Brand            *string
	Model            *string
	SerialNumber     *string
	PurchaseDate     *time.Time
	InstallationDate *time.Time
	WarrantyExpiry   *time.Time
	PurchasePrice    *float64
	Condition        *models.AssetCondition
	ConditionNotes   *string
	Location         *string
	Room             *string
}

// AssetFilter narrows an asset list. Zero fields match everything; text
// fields match case-insensitively.
type AssetFilter struct {
	Query                string // substring of name, brand, model or type
	Category             models.AssetCategory
	Condition            models.AssetCondition
	Brand                string
	Location             string
	Room                 string
	WarrantyExpiringSoon bool // warranty ends within the next 30 days
}

// CreateProperty stores a new property owned by the caller, within the
// property quota of the caller's tier.
func (s *Service) CreateProperty(ctx context.Context, claims *models.Claims, property *models.Property) error {
	if claims == nil || claims.UserID == "" {
		return ErrForbidden
	}
	count, err := s.properties.CountPropertiesByOwner(ctx, claims.UserID)
	if err != nil {
		return fmt.Errorf("count properties: %w", err)
	}
	if limit := claims.Tier.Limits().MaxProperties; count >= limit {
		return fmt.Errorf("%w: the %s plan allows %d properties", ErrQuotaExceeded, tierName(claims.Tier), limit)
	}
	property.OwnerID = claims.UserID
	if property.Type == "" {
		property.Type = models.PropertyTypeHouse
	}
	return s.properties.InsertProperty(ctx, property)
}

// ListProperties lists the caller's properties.
func (s *Service) ListProperties(ctx context.Context, claims *models.Claims) ([]models.Property, error) {
	if claims == nil || claims.UserID == "" {
		return nil, ErrForbidden
	}
	return s.properties.FindPropertiesByOwner(ctx, claims.UserID)
}

// GetProperty returns a property owned by the caller.
func (s *Service) GetProperty(ctx context.Context, claims *models.Claims, id string) (*models.Property, error) {
	property, err := s.properties.FindPropertyByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(claims, property.OwnerID); err != nil {
		return nil, err
	}
	return property, nil
}

// UpdateProperty applies patch to one of the caller's properties.
func (s *Service) UpdateProperty(ctx context.Context, claims *models.Claims, id string, patch PropertyPatch) (*models.Property, error) {
	property, err := s.GetProperty(ctx, claims, id)
	if err != nil {
		return nil, err
	}
	set(&property.Name, patch.Name)
	set(&property.Type, patch.Type)
	set(&property.Address, patch.Address)
	set(&property.City, patch.City)
	set(&property.State, patch.State)
	set(&property.ZipCode, patch.ZipCode)
	set(&property.YearBuilt, patch.YearBuilt)
	if err := s.properties.UpdateProperty(ctx, id, *property); err != nil {
		return nil, err
	}
	property.UpdatedAt = time.Now().UTC()
	return property, nil
}

// DeleteProperty deletes a property with its assets and everything below
// them. Children go first so an interrupted delete leaves no orphans and
// can be re-run.
func (s *Service) DeleteProperty(ctx context.Context, claims *models.Claims, id string) error {
	property, err := s.GetProperty(ctx, claims, id)
	if err != nil {
		return err
	}
	assets, err := s.assets.FindAssetsByProperty(ctx, id)
	if err != nil {
		return fmt.Errorf("list assets: %w", err)
	}
	for i := range assets {
		if err := s.deleteAsset(ctx, &assets[i]); err != nil {
			return err
		}
	}
	return s.properties.DeleteProperty(ctx, property.ID.Hex())
}

// CreateAsset adds an asset to one of the caller's properties, within the
// per-property asset quota of the caller's tier.
func (s *Service) CreateAsset(ctx context.Context, claims *models.Claims, propertyID string, asset *models.Asset) error {
	property, err := s.GetProperty(ctx, claims, propertyID)
	if err != nil {
		return err
	}
	count, err := s.assets.CountAssetsByProperty(ctx, propertyID)
	if err != nil {
		return fmt.Errorf("count assets: %w", err)
	}
	if limit := claims.Tier.Limits().MaxAssetsPerProperty; count >= limit {
		return fmt.Errorf("%w: the %s plan allows %d assets per property", ErrQuotaExceeded, tierName(claims.Tier), limit)
	}
	asset.PropertyID = property.ID
	asset.OwnerID = property.OwnerID
	if asset.Condition == "" {
		asset.Condition = models.AssetConditionGood
	}
	if asset.Category == "" {
		asset.Category = models.AssetCategoryOther
	}
	return s.assets.InsertAsset(ctx, asset)
}

// ListAssets lists the assets of one of the caller's properties that match
// filter.
func (s *Service) ListAssets(ctx context.Context, claims *models.Claims, propertyID string, filter AssetFilter) ([]models.Asset, error) {
	if _, err := s.GetProperty(ctx, claims, propertyID); err != nil {
		return nil, err
	}
	assets, err := s.assets.FindAssetsByProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	now := s.engine.Now()
	out := assets[:0]
	for _, a := range assets {
		if filter.matches(&a, now) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f AssetFilter) matches(a *models.Asset, now time.Time) bool {
	if f.Category != "" && a.Category != f.Category {
		return false
	}
	if f.Condition != "" && a.Condition != f.Condition {
		return false
	}
	if f.Brand != "" && !strings.EqualFold(a.Brand, f.Brand) {
		return false
	}
	if f.Location != "" && !strings.EqualFold(a.Location, f.Location) {
		return false
	}
	if f.Room != "" && !strings.EqualFold(a.Room, f.Room) {
		return false
	}
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		found := false
		for _, field := range []string{a.Name, a.Brand, a.Model, a.Type} {
			if strings.Contains(strings.ToLower(field), q) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.WarrantyExpiringSoon {
		w := a.WarrantyExpiry
		if w == nil || w.Before(now) || !w.Before(now.Add(warrantyExpiringSoon)) {
			return false
		}
	}
	return true
}

// GetAsset returns an asset owned by the caller.
func (s *Service) GetAsset(ctx context.Context, claims *models.Claims, id string) (*models.Asset, error) {
	asset, err := s.assets.FindAssetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(claims, asset.OwnerID); err != nil {
		return nil, err
	}
	return asset, nil
}

// UpdateAsset applies patch to one of the caller's assets. A new warranty
// expiry starts a fresh set of warranty reminders.
func (s *Service) UpdateAsset(ctx context.Context, claims *models.Claims, id string, patch AssetPatch) (*models.Asset, error) {
	asset, err := s.GetAsset(ctx, claims, id)
	if err != nil {
		return nil, err
	}
	set(&asset.Name, patch.Name)
	set(&asset.Category, patch.Category)
	set(&asset.Type, patch.Type)
	set(&asset.Brand, patch.Brand)
	set(&asset.Model, patch.Model)
	set(&asset.SerialNumber, patch.SerialNumber)
	set(&asset.Condition, patch.Condition)
	set(&asset.ConditionNotes, patch.ConditionNotes)
	set(&asset.Location, patch.Location)
	set(&asset.Room, patch.Room)
	if patch.PurchaseDate != nil {
		asset.PurchaseDate = utc(patch.PurchaseDate)
	}
	if patch.InstallationDate != nil {
		asset.InstallationDate = utc(patch.InstallationDate)
	}
	if patch.WarrantyExpiry != nil {
		asset.WarrantyExpiry = utc(patch.WarrantyExpiry)
	}
	if patch.PurchasePrice != nil {
		asset.PurchasePrice = patch.PurchasePrice
	}
	if err := s.assets.UpdateAsset(ctx, id, *asset); err != nil {
		return nil, err
	}
	asset.UpdatedAt = time.Now().UTC()
	return asset, nil
}

// UpdateAssetCondition records an inspection of one of the caller's assets.
// A zero inspected time means now.
func (s *Service) UpdateAssetCondition(ctx context.Context, claims *models.Claims, id string, condition models.AssetCondition, notes string, inspected time.Time) (*models.Asset, error) {
	asset, err := s.GetAsset(ctx, claims, id)
	if err != nil {
		return nil, err
	}
	if inspected.IsZero() {
		inspected = s.engine.Now()
	}
	inspected = inspected.UTC()
	asset.Condition = condition
	asset.ConditionNotes = notes
	asset.LastInspected = &inspected
	if err := s.assets.UpdateAsset(ctx, id, *asset); err != nil {
		return nil, err
	}
	asset.UpdatedAt = time.Now().UTC()
	return asset, nil
}

// DeleteAsset deletes an asset with its schedules, tasks and service records.
func (s *Service) DeleteAsset(ctx context.Context, claims *models.Claims, id string) error {
	asset, err := s.GetAsset(ctx, claims, id)
	if err != nil {
		return err
	}
	return s.deleteAsset(ctx, asset)
}

func (s *Service) deleteAsset(ctx context.Context, asset *models.Asset) error {
	id := asset.ID.Hex()
	schedules, err := s.schedules.FindSchedulesByAsset(ctx, id)
	if err != nil {
		return fmt.Errorf("list schedules: %w", err)
	}
	for i := range schedules {
		if err := s.deleteSchedule(ctx, &schedules[i]); err != nil {
			return err
		}
	}
	if err := s.serviceRecords.DeleteServiceRecordsByAsset(ctx, id); err != nil {
		return fmt.Errorf("delete service records: %w", err)
	}
	return s.assets.DeleteAsset(ctx, id)
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func utc(t *time.Time) *time.Time {
	u := t.UTC()
	return &u
}

func tierName(t models.SubscriptionTier) string {
	if !t.Valid() {
		return string(models.TierFree)
	}
	return string(t)
}
