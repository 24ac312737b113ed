package models

import "time"

// QualityMethod selects how the quality adjustment value is applied
type QualityMethod string

const (
	QualityPercentage QualityMethod = "percentage"
	QualityFixed      QualityMethod = "fixed"
)

// AgeMethod selects how the effective age rate is applied
type AgeMethod string

const (
	AgePerYear    AgeMethod = "per_year"
	AgePercentage AgeMethod = "percentage"
)

// DefaultRates is the named set of adjustment rates for one property type.
// Area rates are per unit of the session's calculation system. Percentages are whole numbers (6 = 6%).
type DefaultRates struct {
	MarketAppreciationRate  float64       `json:"market_appreciation_rate"`
	LivingAreaRate          float64       `json:"living_area_rate"`
	LandRate                float64       `json:"land_rate"`
	LandDepreciation        float64       `json:"land_depreciation"`
	BasementFinishRate      float64       `json:"basement_finish_rate"`
	BasementDepreciation    float64       `json:"basement_depreciation"`
	QualityAdjustmentMethod QualityMethod `json:"quality_adjustment_method"`
	QualityAdjustmentValue  float64       `json:"quality_adjustment_value"`
	AgeAdjustmentMethod     AgeMethod     `json:"age_adjustment_method"`
	AgeAdjustmentRate       float64       `json:"age_adjustment_rate"`
	BathroomRate            float64       `json:"bathroom_rate"`
	PowderRoomRate          float64       `json:"powder_room_rate"`
	BathroomDepreciation    float64       `json:"bathroom_depreciation"`
	GarageValue             float64       `json:"garage_value"`
	FloorValue              float64       `json:"floor_value"`
	LandscapingDepreciation float64       `json:"landscaping_depreciation"`
	ExtrasDepreciation      float64       `json:"extras_depreciation"`
	CornerUnitPremium       float64       `json:"corner_unit_premium"`
}

// WithMethodDefaults fills empty or unknown method fields with their documented defaults
func (r DefaultRates) WithMethodDefaults() DefaultRates {
	if r.QualityAdjustmentMethod != QualityPercentage && r.QualityAdjustmentMethod != QualityFixed {
		r.QualityAdjustmentMethod = QualityPercentage
	}
	if r.AgeAdjustmentMethod != AgePerYear && r.AgeAdjustmentMethod != AgePercentage {
		r.AgeAdjustmentMethod = AgePerYear
	}
	return r
}

// RatePreset is an organization-level saved rate set for one property type.
// Table: rate_presets
type RatePreset struct {
	ID             uint         `gorm:"primaryKey;autoIncrement" json:"id"`
	OrganizationID string       `gorm:"type:varchar(64);not null;uniqueIndex:idx_rate_presets_org_type,priority:1" json:"organization_id"`
	PropertyType   PropertyType `gorm:"type:varchar(32);not null;uniqueIndex:idx_rate_presets_org_type,priority:2" json:"property_type"`
	Rates          DefaultRates `gorm:"serializer:json;type:text;not null" json:"rates"`
	CreatedAt      time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name
func (RatePreset) TableName() string {
	return "rate_presets"
}

// RateSaveRequest is emitted after every in-memory rate mutation so a collaborator can persist it
type RateSaveRequest struct {
	OrganizationID string       `json:"organization_id"`
	PropertyType   PropertyType `json:"property_type"`
	Rates          DefaultRates `json:"rates"`
}

// RateSaveStatus records the last persistence outcome for one organization and property type
type RateSaveStatus struct {
	OrganizationID string       `json:"organization_id"`
	PropertyType   PropertyType `json:"property_type"`
	Succeeded      bool         `json:"succeeded"`
	Error          string       `json:"error,omitempty"`
	AttemptedAt    time.Time    `json:"attempted_at"`
}
