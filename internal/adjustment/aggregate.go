package adjustment

import (
	"math"

	"appraisal/server/internal/models"
)

// Totals are the aggregate figures of one comparable
type Totals struct {
	TotalAdjustment        float64 `json:"total_adjustment"`
	AdjustedValue          float64 `json:"adjusted_value"`
	GrossAdjustmentPercent float64 `json:"gross_adjustment_percent"`
	NetAdjustmentPercent   float64 `json:"net_adjustment_percent"`
}

// Aggregate sums the enabled categories of a comparable. Each amount (override first) is
// rounded to whole currency units before summing, matching the whole-dollar display.
func Aggregate(c models.ComparableAdjustments) Totals {
	var total float64
	for _, d := range c.Adjustments {
		if !d.Enabled {
			continue
		}
		total += math.Round(d.Amount())
	}

	totals := Totals{
		TotalAdjustment: total,
		AdjustedValue:   c.SalePrice + total,
	}
	if c.SalePrice != 0 {
		totals.GrossAdjustmentPercent = math.Abs(total) / c.SalePrice * 100
		totals.NetAdjustmentPercent = total / c.SalePrice * 100
	}
	return totals
}

// WithTotals returns c with its aggregate fields recomputed
func WithTotals(c models.ComparableAdjustments) models.ComparableAdjustments {
	t := Aggregate(c)
	c.TotalAdjustment = t.TotalAdjustment
	c.AdjustedValue = t.AdjustedValue
	c.GrossAdjustmentPercent = t.GrossAdjustmentPercent
	c.NetAdjustmentPercent = t.NetAdjustmentPercent
	return c
}
