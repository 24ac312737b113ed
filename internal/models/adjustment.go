package models

// CategoryID identifies one dimension of comparison
type CategoryID string

const (
	CategoryTiming       CategoryID = "timing"
	CategoryLivingArea   CategoryID = "livingArea"
	CategoryLotSize      CategoryID = "lotSize"
	CategoryQuality      CategoryID = "quality"
	CategoryEffectiveAge CategoryID = "effectiveAge"
	CategoryBasement     CategoryID = "basement"
	CategoryBathrooms    CategoryID = "bathrooms"
	CategoryGarage       CategoryID = "garage"
	CategoryFloor        CategoryID = "floor"
	CategoryLandscaping  CategoryID = "landscaping"
	CategoryExtras       CategoryID = "extras"
	CategoryUnitLocation CategoryID = "unitLocation"
)

// AdjustmentDetail is the adjustment record for one (comparable, category) pair.
// CalculatedAmount is always the category formula's output for the other fields;
// ManualOverride only changes the displayed and aggregated figure.
type AdjustmentDetail struct {
	Category CategoryID `json:"category"`
	Enabled  bool       `json:"enabled"`

	// Canonical numeric values read from upstream (area, age, counts, spaces)
	SubjectValue    float64 `json:"subject_value"`
	ComparableValue float64 `json:"comparable_value"`
	SubjectLabel    string  `json:"subject_label"`
	ComparableLabel string  `json:"comparable_label"`

	// Per-side operator inputs. Nil means "follow the rate table" for rates and
	// "follow upstream data" for sizes.
	SubjectRate          *float64 `json:"subject_rate,omitempty"`
	ComparableRate       *float64 `json:"comparable_rate,omitempty"`
	SubjectPowderRate    *float64 `json:"subject_powder_rate,omitempty"`
	ComparablePowderRate *float64 `json:"comparable_powder_rate,omitempty"`
	SubjectSize          *float64 `json:"subject_size,omitempty"`
	ComparableSize       *float64 `json:"comparable_size,omitempty"`

	Difference float64 `json:"difference"`
	Rate       float64 `json:"rate"`

	// DepreciationRate is an operator-edited percentage; AppliedDepreciation is what the
	// last calculation actually used.
	DepreciationRate    *float64 `json:"depreciation_rate,omitempty"`
	AppliedDepreciation float64  `json:"applied_depreciation"`

	CalculatedAmount float64  `json:"calculated_amount"`
	ManualOverride   *float64 `json:"manual_override,omitempty"`
}

// Amount returns the figure used for display and aggregation
func (d AdjustmentDetail) Amount() float64 {
	if d.ManualOverride != nil {
		return *d.ManualOverride
	}
	return d.CalculatedAmount
}

// Clone returns a copy that shares no pointers with d
func (d AdjustmentDetail) Clone() AdjustmentDetail {
	d.SubjectRate = cloneFloat(d.SubjectRate)
	d.ComparableRate = cloneFloat(d.ComparableRate)
	d.SubjectPowderRate = cloneFloat(d.SubjectPowderRate)
	d.ComparablePowderRate = cloneFloat(d.ComparablePowderRate)
	d.SubjectSize = cloneFloat(d.SubjectSize)
	d.ComparableSize = cloneFloat(d.ComparableSize)
	d.DepreciationRate = cloneFloat(d.DepreciationRate)
	d.ManualOverride = cloneFloat(d.ManualOverride)
	return d
}

// ComparableAdjustments holds every adjustment record of one comparable plus its totals
type ComparableAdjustments struct {
	ComparableID           string                          `json:"comparable_id"`
	Address                string                          `json:"address"`
	SalePrice              float64                         `json:"sale_price"`
	Adjustments            map[CategoryID]AdjustmentDetail `json:"adjustments"`
	TotalAdjustment        float64                         `json:"total_adjustment"`
	AdjustedValue          float64                         `json:"adjusted_value"`
	GrossAdjustmentPercent float64                         `json:"gross_adjustment_percent"`
	NetAdjustmentPercent   float64                         `json:"net_adjustment_percent"`
	ProximityKm            *float64                        `json:"proximity_km,omitempty"`
}

// Clone returns a deep copy of c
func (c ComparableAdjustments) Clone() ComparableAdjustments {
	adjustments := make(map[CategoryID]AdjustmentDetail, len(c.Adjustments))
	for id, d := range c.Adjustments {
		adjustments[id] = d.Clone()
	}
	c.Adjustments = adjustments
	c.ProximityKm = cloneFloat(c.ProximityKm)
	return c
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Float returns a pointer to v
func Float(v float64) *float64 {
	return &v
}
