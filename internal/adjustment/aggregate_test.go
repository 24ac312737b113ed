package adjustment

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"appraisal/server/internal/models"
)

func comparableWith(price float64, details ...models.AdjustmentDetail) models.ComparableAdjustments {
	c := models.ComparableAdjustments{
		ComparableID: "c1",
		SalePrice:    price,
		Adjustments:  make(map[models.CategoryID]models.AdjustmentDetail),
	}
	for _, d := range details {
		c.Adjustments[d.Category] = d
	}
	return c
}

func TestAggregate_LivingAreaScenario(t *testing.T) {
	c := comparableWith(450000, models.AdjustmentDetail{
		Category:         models.CategoryLivingArea,
		Enabled:          true,
		CalculatedAmount: -6000,
	})

	totals := Aggregate(c)
	assert.Equal(t, -6000.0, totals.TotalAdjustment)
	assert.Equal(t, 444000.0, totals.AdjustedValue)
	assert.InDelta(t, -1.3333, totals.NetAdjustmentPercent, 0.001)
	assert.InDelta(t, 1.3333, totals.GrossAdjustmentPercent, 0.001)
}

func TestAggregate_RoundsEachCategoryBeforeSumming(t *testing.T) {
	c := comparableWith(100000,
		models.AdjustmentDetail{Category: models.CategoryTiming, Enabled: true, CalculatedAmount: 100.4},
		models.AdjustmentDetail{Category: models.CategoryGarage, Enabled: true, CalculatedAmount: 100.4},
		models.AdjustmentDetail{Category: models.CategoryExtras, Enabled: true, CalculatedAmount: -50.6},
		models.AdjustmentDetail{Category: models.CategoryQuality, Enabled: false, CalculatedAmount: 99999},
	)

	totals := Aggregate(c)
	assert.Equal(t, 100.0+100.0-51.0, totals.TotalAdjustment)
	assert.Equal(t, c.SalePrice+totals.TotalAdjustment, totals.AdjustedValue)
}

func TestAggregate_ZeroPrice(t *testing.T) {
	c := comparableWith(0, models.AdjustmentDetail{
		Category:         models.CategoryGarage,
		Enabled:          true,
		CalculatedAmount: 5000,
	})

	totals := Aggregate(c)
	assert.Equal(t, 0.0, totals.GrossAdjustmentPercent)
	assert.Equal(t, 0.0, totals.NetAdjustmentPercent)
	assert.False(t, math.IsNaN(totals.NetAdjustmentPercent))
	assert.Equal(t, 5000.0, totals.AdjustedValue)
}

func TestAggregate_OverridePrecedence(t *testing.T) {
	d := models.AdjustmentDetail{
		Category:         models.CategoryLivingArea,
		Enabled:          true,
		CalculatedAmount: -6000,
	}
	c := comparableWith(450000, d)
	before := Aggregate(c)

	d.ManualOverride = models.Float(-2500)
	c.Adjustments[d.Category] = d
	after := WithTotals(c)

	assert.Equal(t, -6000.0, before.TotalAdjustment)
	assert.Equal(t, -2500.0, after.TotalAdjustment)
	assert.Equal(t, 447500.0, after.AdjustedValue)
	assert.Equal(t, -6000.0, after.Adjustments[models.CategoryLivingArea].CalculatedAmount)
}

func TestApplicableCategories(t *testing.T) {
	ids := func(pt models.PropertyType) []models.CategoryID {
		var out []models.CategoryID
		for _, c := range ApplicableCategories(pt) {
			out = append(out, c.ID)
		}
		return out
	}

	condo := ids(models.Condo)
	assert.Contains(t, condo, models.CategoryFloor)
	assert.Contains(t, condo, models.CategoryUnitLocation)
	assert.NotContains(t, condo, models.CategoryLotSize)
	assert.Equal(t, models.CategoryTiming, condo[0])

	land := ids(models.Land)
	assert.Equal(t, []models.CategoryID{models.CategoryTiming, models.CategoryLotSize, models.CategoryExtras}, land)

	house := ids(models.SingleFamily)
	assert.Contains(t, house, models.CategoryBasement)
	assert.NotContains(t, house, models.CategoryFloor)

	_, ok := Lookup("pool")
	assert.False(t, ok)
}

func TestParsers(t *testing.T) {
	full, half := ParseBathrooms("2:1")
	assert.Equal(t, 2.0, full)
	assert.Equal(t, 1.0, half)

	full, half = ParseBathrooms("3")
	assert.Equal(t, 3.0, full)
	assert.Equal(t, 0.0, half)

	full, half = ParseBathrooms("")
	assert.Equal(t, 0.0, full+half)

	assert.Equal(t, 0.0, ParseParkingSpaces("Aucun"))
	assert.Equal(t, 1.0, ParseParkingSpaces("Attached garage"))
	assert.Equal(t, 3.0, ParseParkingSpaces("3 car garage"))

	assert.True(t, IsCornerUnit("Unité de coin"))
	assert.False(t, IsCornerUnit("Interior"))

	assert.InDelta(t, 1.5, MonthsBetween("2024-01-01", "2024-02-16"), 1e-9)
	assert.Equal(t, 0.0, MonthsBetween("2024-01-01", ""))
}
