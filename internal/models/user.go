package models

import "math"

// SubscriptionTier is the plan a user is on. It bounds how many properties
// and assets the user may keep.
type SubscriptionTier string

const (
	TierFree         SubscriptionTier = "FREE"
	TierPremium      SubscriptionTier = "PREMIUM"
	TierProfessional SubscriptionTier = "PROFESSIONAL"
)

// TierLimits are the quotas of a subscription tier.
type TierLimits struct {
	MaxProperties        int `json:"max_properties"`
	MaxAssetsPerProperty int `json:"max_assets_per_property"`
}

var tierLimits = map[SubscriptionTier]TierLimits{
	TierFree:         {MaxProperties: 1, MaxAssetsPerProperty: 10},
	TierPremium:      {MaxProperties: 5, MaxAssetsPerProperty: 100},
	TierProfessional: {MaxProperties: math.MaxInt, MaxAssetsPerProperty: math.MaxInt},
}

// Valid reports whether t is a known tier.
func (t SubscriptionTier) Valid() bool {
	_, ok := tierLimits[t]
	return ok
}

// Limits returns the quotas of t. Unknown tiers get the FREE quotas.
func (t SubscriptionTier) Limits() TierLimits {
	if l, ok := tierLimits[t]; ok {
		return l
	}
	return tierLimits[TierFree]
}

// Claims represents the verified identity carried by a bearer token.
type Claims struct {
	UserID string           `json:"user_id"`
	Email  string           `json:"email"`
	Tier   SubscriptionTier `json:"tier"`
	Exp    int64            `json:"exp"`
}

// Owns reports whether the claimed user owns a resource with the given owner id.
func (c *Claims) Owns(ownerID string) bool {
	return c != nil && c.UserID != "" && c.UserID == ownerID
}
