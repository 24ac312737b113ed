// Package adjustment holds the category registry, the per-category formulas and the
// aggregation of category amounts into comparable totals.
package adjustment

import "appraisal/server/internal/models"

// Category describes one adjustment category
type Category struct {
	ID    models.CategoryID `json:"id"`
	Label string            `json:"label"`
	// PropertyTypes the category applies to; empty means every type
	PropertyTypes     []models.PropertyType `json:"property_types,omitempty"`
	NeedsRate         bool                  `json:"needs_rate"`
	NeedsDepreciation bool                  `json:"needs_depreciation"`
	// Upstream categories read subject/comparable fields and are refreshed on every sync
	Upstream bool `json:"upstream"`
	// AreaLabels categories render their labels in the display unit system
	AreaLabels bool `json:"area_labels"`
	// OperatorDifference categories take their difference from the operator
	OperatorDifference bool `json:"operator_difference"`
}

var (
	residential = []models.PropertyType{models.SingleFamily, models.Duplex, models.Triplex, models.QuadruplexPlus}
	units       = []models.PropertyType{models.Condo, models.Apartment}
	buildings   = join(residential, units, []models.PropertyType{models.SemiCommercial, models.Commercial, models.Other})
)

// Registry is the fixed, ordered list of adjustment categories
var Registry = []Category{
	{ID: models.CategoryTiming, Label: "Date of sale / time", NeedsRate: true, Upstream: true},
	{ID: models.CategoryLivingArea, Label: "Living area", PropertyTypes: buildings, NeedsRate: true, Upstream: true, AreaLabels: true},
	{
		ID: models.CategoryLotSize, Label: "Lot size",
		PropertyTypes: join(residential, []models.PropertyType{models.SemiCommercial, models.Commercial, models.Land, models.Other}),
		NeedsRate:     true, NeedsDepreciation: true, Upstream: true, AreaLabels: true,
	},
	{ID: models.CategoryQuality, Label: "Quality of construction", PropertyTypes: buildings, NeedsRate: true, Upstream: true},
	{ID: models.CategoryEffectiveAge, Label: "Effective age", PropertyTypes: buildings, NeedsRate: true, Upstream: true},
	{
		ID: models.CategoryBasement, Label: "Basement finish",
		PropertyTypes: join(residential, []models.PropertyType{models.SemiCommercial, models.Other}),
		NeedsRate:     true, NeedsDepreciation: true, Upstream: true,
	},
	{
		ID: models.CategoryBathrooms, Label: "Bathrooms",
		PropertyTypes: join(residential, units, []models.PropertyType{models.SemiCommercial, models.Other}),
		NeedsRate:     true, NeedsDepreciation: true, Upstream: true,
	},
	{ID: models.CategoryGarage, Label: "Garage / parking", PropertyTypes: buildings, NeedsRate: true, Upstream: true},
	{ID: models.CategoryFloor, Label: "Floor level", PropertyTypes: units, NeedsRate: true, OperatorDifference: true},
	{
		ID: models.CategoryLandscaping, Label: "Landscaping",
		PropertyTypes:     join(residential, []models.PropertyType{models.SemiCommercial, models.Commercial, models.Other}),
		NeedsDepreciation: true, OperatorDifference: true,
	},
	{ID: models.CategoryExtras, Label: "Extras", NeedsDepreciation: true, Upstream: true},
	{ID: models.CategoryUnitLocation, Label: "Unit location", PropertyTypes: units, NeedsRate: true, Upstream: true},
}

// AppliesTo reports whether the category is used for the property type
func (c Category) AppliesTo(pt models.PropertyType) bool {
	if len(c.PropertyTypes) == 0 {
		return true
	}
	for _, t := range c.PropertyTypes {
		if t == pt {
			return true
		}
	}
	return false
}

// ApplicableCategories returns the registry entries for a property type, in registry order
func ApplicableCategories(pt models.PropertyType) []Category {
	var out []Category
	for _, c := range Registry {
		if c.AppliesTo(pt) {
			out = append(out, c)
		}
	}
	return out
}

// Lookup finds a category by id
func Lookup(id models.CategoryID) (Category, bool) {
	for _, c := range Registry {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

func join(groups ...[]models.PropertyType) []models.PropertyType {
	var out []models.PropertyType
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
