package engine

import (
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appraisal/server/internal/measurement"
	"appraisal/server/internal/models"
	"appraisal/server/internal/rates"
)

func newTestController(t *testing.T) *Controller {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	table := rates.NewTable("org-1", nil, models.SingleFamily, nil, logger)
	return NewController(table, Options{System: measurement.Imperial, Display: measurement.Imperial}, logger)
}

func testPayload() models.ComparisonPayload {
	return models.ComparisonPayload{
		EffectiveDate: "2024-07-15",
		Subject: models.PropertySnapshot{
			Address:    "12 Maple St",
			LivingArea: "1800 sqft",
		},
		Comparables: []models.PropertySnapshot{
			{
				ID:         "comp-a",
				Address:    "40 Oak Ave",
				SaleDate:   "2024-01-15",
				SalePrice:  400000,
				LivingArea: "1900",
			},
			{
				ID:         "comp-b",
				Address:    "7 Pine Rd",
				SaleDate:   "2024-07-15",
				SalePrice:  350000,
				LivingArea: "1700",
			},
		},
	}
}

func TestController_SeedThenSync(t *testing.T) {
	c := newTestController(t)
	assert.Equal(t, StateUninitialized, c.State())

	seeded := c.Seed(testPayload())
	assert.Equal(t, []string{"comp-a", "comp-b"}, seeded)
	assert.Equal(t, StateSeeded, c.State())

	rec, err := c.Comparable("comp-a")
	require.NoError(t, err)
	for id, d := range rec.Adjustments {
		assert.Zero(t, d.Difference, "category %s", id)
	}
	assert.Equal(t, 50.0, rec.Adjustments[models.CategoryLivingArea].Rate)

	report := c.Sync(testPayload())
	assert.True(t, report.Changed)
	assert.Equal(t, StateSynced, report.State)
	assert.ElementsMatch(t, []string{"comp-a", "comp-b"}, report.Recomputed)

	rec, err = c.Comparable("comp-a")
	require.NoError(t, err)
	// timing: (5/100/12) * 6 months * 400000, living area: -100 * 50
	assert.InDelta(t, 10000, rec.Adjustments[models.CategoryTiming].CalculatedAmount, 1e-6)
	assert.InDelta(t, -5000, rec.Adjustments[models.CategoryLivingArea].CalculatedAmount, 1e-9)
	assert.Equal(t, 5000.0, rec.TotalAdjustment)
	assert.Equal(t, 405000.0, rec.AdjustedValue)
	assert.InDelta(t, 1.25, rec.NetAdjustmentPercent, 1e-9)

	rec, err = c.Comparable("comp-b")
	require.NoError(t, err)
	assert.Equal(t, 5000.0, rec.TotalAdjustment)
	assert.Equal(t, 355000.0, rec.AdjustedValue)
}

func TestController_FirstSyncSeeds(t *testing.T) {
	c := newTestController(t)

	report := c.Sync(testPayload())
	assert.True(t, report.Changed)
	assert.Equal(t, StateSynced, c.State())
	assert.Equal(t, []string{"comp-a", "comp-b"}, report.Seeded)
	assert.Len(t, c.Comparables(), 2)
}

func TestController_IdenticalPayloadIsNoop(t *testing.T) {
	c := newTestController(t)
	c.Sync(testPayload())
	before := c.Comparables()

	report := c.Sync(testPayload())
	assert.False(t, report.Changed)
	assert.Empty(t, report.Recomputed)
	assert.Equal(t, StateSynced, report.State)
	assert.Equal(t, before, c.Comparables())
}

func TestController_SyncOnlyTouchesChangedComparables(t *testing.T) {
	c := newTestController(t)
	c.Sync(testPayload())

	next := testPayload()
	next.Comparables[1].LivingArea = "1600"
	diff := c.Diff(next)
	assert.Equal(t, []string{"comp-b"}, diff.ChangedComparables)

	report := c.Apply(next, diff)
	assert.Equal(t, []string{"comp-b"}, report.Recomputed)

	rec, err := c.Comparable("comp-b")
	require.NoError(t, err)
	assert.InDelta(t, 10000, rec.Adjustments[models.CategoryLivingArea].CalculatedAmount, 1e-9)
}

func TestController_SyncKeepsOperatorEdits(t *testing.T) {
	c := newTestController(t)
	c.Sync(testPayload())

	_, err := c.UpdateAdjustment("comp-a", models.CategoryLivingArea, AdjustmentEdit{ComparableRate: models.Float(60)})
	require.NoError(t, err)
	_, err = c.UpdateAdjustment("comp-a", models.CategoryBasement, AdjustmentEdit{DepreciationRate: models.Float(10)})
	require.NoError(t, err)

	next := testPayload()
	next.Comparables[0].LivingArea = "2000"
	c.Sync(next)

	rec, err := c.Comparable("comp-a")
	require.NoError(t, err)
	living := rec.Adjustments[models.CategoryLivingArea]
	require.NotNil(t, living.ComparableRate)
	assert.Equal(t, 60.0, *living.ComparableRate)
	assert.InDelta(t, -12000, living.CalculatedAmount, 1e-9)
	require.NotNil(t, rec.Adjustments[models.CategoryBasement].DepreciationRate)
	assert.Equal(t, 10.0, *rec.Adjustments[models.CategoryBasement].DepreciationRate)
}

func TestController_ManualOverridePrecedence(t *testing.T) {
	c := newTestController(t)
	c.Sync(testPayload())

	rec, err := c.UpdateAdjustment("comp-a", models.CategoryTiming, AdjustmentEdit{ManualOverride: models.Float(2500)})
	require.NoError(t, err)
	timing := rec.Adjustments[models.CategoryTiming]
	assert.InDelta(t, 10000, timing.CalculatedAmount, 1e-6)
	assert.Equal(t, 2500.0, timing.Amount())
	assert.Equal(t, -2500.0, rec.TotalAdjustment)
	assert.Equal(t, 397500.0, rec.AdjustedValue)

	rec, err = c.UpdateAdjustment("comp-a", models.CategoryTiming, AdjustmentEdit{ClearManualOverride: true})
	require.NoError(t, err)
	assert.Nil(t, rec.Adjustments[models.CategoryTiming].ManualOverride)
	assert.Equal(t, 5000.0, rec.TotalAdjustment)
}

func TestController_DisabledCategoryExcluded(t *testing.T) {
	c := newTestController(t)
	c.Sync(testPayload())

	rec, err := c.UpdateAdjustment("comp-a", models.CategoryTiming, AdjustmentEdit{Enabled: new(bool)})
	require.NoError(t, err)
	assert.Equal(t, -5000.0, rec.TotalAdjustment)
}

func TestController_UpdateAdjustmentErrors(t *testing.T) {
	c := newTestController(t)
	c.Sync(testPayload())

	_, err := c.UpdateAdjustment("missing", models.CategoryTiming, AdjustmentEdit{})
	assert.ErrorIs(t, err, ErrComparableNotFound)

	_, err = c.UpdateAdjustment("comp-a", models.CategoryUnitLocation, AdjustmentEdit{})
	assert.ErrorIs(t, err, ErrCategoryNotFound)

	_, err = c.UpdateAdjustment("comp-a", models.CategoryLivingArea, AdjustmentEdit{Difference: models.Float(3)})
	assert.ErrorIs(t, err, ErrDerivedDifference)

	// landscaping gap of 1000 scaled by the 20% table depreciation
	rec, err := c.UpdateAdjustment("comp-a", models.CategoryLandscaping, AdjustmentEdit{Difference: models.Float(1000)})
	require.NoError(t, err)
	assert.InDelta(t, -800, rec.Adjustments[models.CategoryLandscaping].CalculatedAmount, 1e-9)
	assert.Equal(t, 4200.0, rec.TotalAdjustment)
}

func TestController_RateChangeRecomputesWithoutTouchingOverrides(t *testing.T) {
	c := newTestController(t)
	c.Sync(testPayload())
	_, err := c.UpdateAdjustment("comp-b", models.CategoryLivingArea, AdjustmentEdit{ManualOverride: models.Float(1)})
	require.NoError(t, err)

	_, err = c.SetRate(rates.KeyLivingAreaRate, 80)
	require.NoError(t, err)

	rec, err := c.Comparable("comp-a")
	require.NoError(t, err)
	assert.InDelta(t, -8000, rec.Adjustments[models.CategoryLivingArea].CalculatedAmount, 1e-9)
	assert.Equal(t, 2000.0, rec.TotalAdjustment)

	rec, err = c.Comparable("comp-b")
	require.NoError(t, err)
	living := rec.Adjustments[models.CategoryLivingArea]
	assert.InDelta(t, 8000, living.CalculatedAmount, 1e-9)
	require.NotNil(t, living.ManualOverride)
	assert.Equal(t, 1.0, *living.ManualOverride)

	c.ResetRates()
	rec, err = c.Comparable("comp-a")
	require.NoError(t, err)
	assert.InDelta(t, -5000, rec.Adjustments[models.CategoryLivingArea].CalculatedAmount, 1e-9)
}

func TestController_SetMethod(t *testing.T) {
	c := newTestController(t)
	next := testPayload()
	next.Subject.Age = "10"
	next.Comparables[0].Age = "15"
	c.Sync(next)

	_, err := c.SetRate(rates.KeyAgeAdjustmentRate, 1)
	require.NoError(t, err)
	_, err = c.SetMethod(rates.KeyAgeAdjustmentMethod, string(models.AgePercentage))
	require.NoError(t, err)

	rec, err := c.Comparable("comp-a")
	require.NoError(t, err)
	// -(15-10) * 400000 * 1%
	assert.InDelta(t, -20000, rec.Adjustments[models.CategoryEffectiveAge].CalculatedAmount, 1e-6)

	_, err = c.SetMethod(rates.KeyAgeAdjustmentMethod, "monthly")
	assert.Error(t, err)
}

func TestController_ReloadFromSourceDiscardsOverrides(t *testing.T) {
	c := newTestController(t)

	_, err := c.ReloadFromSource()
	assert.ErrorIs(t, err, ErrNotSeeded)

	c.Sync(testPayload())
	_, err = c.UpdateAdjustment("comp-a", models.CategoryTiming, AdjustmentEdit{ManualOverride: models.Float(1)})
	require.NoError(t, err)
	_, err = c.UpdateAdjustment("comp-a", models.CategoryLivingArea, AdjustmentEdit{ComparableRate: models.Float(99)})
	require.NoError(t, err)

	report, err := c.ReloadFromSource()
	require.NoError(t, err)
	assert.Equal(t, StateSynced, report.State)
	assert.Equal(t, []string{"comp-a", "comp-b"}, report.Seeded)

	rec, err := c.Comparable("comp-a")
	require.NoError(t, err)
	assert.Nil(t, rec.Adjustments[models.CategoryTiming].ManualOverride)
	assert.Nil(t, rec.Adjustments[models.CategoryLivingArea].ComparableRate)
	assert.Equal(t, 5000.0, rec.TotalAdjustment)
}

func TestController_SetMeasurementSystemRelabelsOnly(t *testing.T) {
	c := newTestController(t)
	c.Sync(testPayload())
	before, err := c.Comparable("comp-a")
	require.NoError(t, err)

	c.SetMeasurementSystem(measurement.Metric)
	assert.Equal(t, measurement.Metric, c.Display())

	after, err := c.Comparable("comp-a")
	require.NoError(t, err)
	living := after.Adjustments[models.CategoryLivingArea]
	assert.Equal(t, "167.22 m²", living.SubjectLabel)
	assert.Equal(t, "176.51 m²", living.ComparableLabel)
	assert.Equal(t, before.Adjustments[models.CategoryLivingArea].CalculatedAmount, living.CalculatedAmount)
	assert.Equal(t, before.TotalAdjustment, after.TotalAdjustment)
	assert.Equal(t, before.Adjustments[models.CategoryTiming], after.Adjustments[models.CategoryTiming])

	c.SetMeasurementSystem(measurement.Imperial)
	after, err = c.Comparable("comp-a")
	require.NoError(t, err)
	assert.Equal(t, "1800 ft²", after.Adjustments[models.CategoryLivingArea].SubjectLabel)
}

func TestController_ComparableMissingUpstreamIsSkipped(t *testing.T) {
	c := newTestController(t)
	c.Sync(testPayload())

	next := testPayload()
	next.Comparables = next.Comparables[:1]
	next.Comparables[0].SalePrice = 410000
	report := c.Sync(next)

	assert.Equal(t, []string{"comp-b"}, report.Skipped)
	assert.Equal(t, StateSynced, report.State)
	_, err := c.Comparable("comp-b")
	assert.NoError(t, err)

	rec, err := c.Comparable("comp-a")
	require.NoError(t, err)
	assert.Equal(t, 410000.0, rec.SalePrice)
}

func TestController_AddedComparableIsSeeded(t *testing.T) {
	c := newTestController(t)
	c.Sync(testPayload())

	next := testPayload()
	next.Comparables = append(next.Comparables, models.PropertySnapshot{
		ID:         "comp-c",
		SaleDate:   "2024-07-15",
		SalePrice:  300000,
		LivingArea: "1800",
	})
	report := c.Sync(next)

	assert.Equal(t, []string{"comp-c"}, report.Seeded)
	assert.Contains(t, report.Recomputed, "comp-c")
	rec, err := c.Comparable("comp-c")
	require.NoError(t, err)
	assert.Equal(t, 0.0, rec.TotalAdjustment)
	assert.Equal(t, 300000.0, rec.AdjustedValue)
}

func TestController_SetPropertyTypeReseeds(t *testing.T) {
	c := newTestController(t)
	c.Sync(testPayload())
	_, err := c.UpdateAdjustment("comp-a", models.CategoryTiming, AdjustmentEdit{ManualOverride: models.Float(1)})
	require.NoError(t, err)

	_, err = c.SetPropertyType(models.Condo)
	require.NoError(t, err)
	assert.Equal(t, models.Condo, c.Rates().Active())

	rec, err := c.Comparable("comp-a")
	require.NoError(t, err)
	assert.Contains(t, rec.Adjustments, models.CategoryUnitLocation)
	assert.NotContains(t, rec.Adjustments, models.CategoryLotSize)
	assert.Nil(t, rec.Adjustments[models.CategoryTiming].ManualOverride)

	_, err = c.SetPropertyType("castle")
	assert.ErrorIs(t, err, models.ErrInvalidPropertyType)
}

func TestController_RemoveComparable(t *testing.T) {
	c := newTestController(t)
	c.Sync(testPayload())

	require.NoError(t, c.RemoveComparable("comp-a"))
	assert.Len(t, c.Comparables(), 1)
	assert.Equal(t, "comp-b", c.Comparables()[0].ComparableID)
	assert.ErrorIs(t, c.RemoveComparable("comp-a"), ErrComparableNotFound)
}

func TestController_ComparablesAreCopies(t *testing.T) {
	c := newTestController(t)
	c.Sync(testPayload())

	list := c.Comparables()
	d := list[0].Adjustments[models.CategoryTiming]
	d.ManualOverride = models.Float(42)
	list[0].Adjustments[models.CategoryTiming] = d

	rec, err := c.Comparable("comp-a")
	require.NoError(t, err)
	assert.Nil(t, rec.Adjustments[models.CategoryTiming].ManualOverride)
}

func TestController_ZeroSalePrice(t *testing.T) {
	c := newTestController(t)
	next := testPayload()
	next.Comparables[0].SalePrice = 0
	c.Sync(next)

	rec, err := c.Comparable("comp-a")
	require.NoError(t, err)
	assert.Equal(t, 0.0, rec.GrossAdjustmentPercent)
	assert.Equal(t, 0.0, rec.NetAdjustmentPercent)
}

func TestController_DisplayToggleKeepsUpstreamLabels(t *testing.T) {
	c := newTestController(t)
	c.SetMeasurementSystem(measurement.Metric)
	next := testPayload()
	next.Subject.LivingArea = "167.2 m² / 1800 pi²"
	c.Sync(next)

	label := func() string {
		rec, err := c.Comparable("comp-a")
		require.NoError(t, err)
		return rec.Adjustments[models.CategoryLivingArea].SubjectLabel
	}
	assert.Equal(t, "167.2 m²", label())

	c.SetMeasurementSystem(measurement.Imperial)
	assert.Equal(t, "1800 ft²", label())

	c.SetMeasurementSystem(measurement.Metric)
	assert.Equal(t, "167.2 m²", label())
}

func TestController_WarnsOnComparablesWithoutID(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	table := rates.NewTable("org-1", nil, models.SingleFamily, nil, logger)
	c := NewController(table, Options{System: measurement.Imperial}, logger)

	next := testPayload()
	next.Comparables[1].ID = ""
	c.Sync(next)

	ids := make([]string, 0, 2)
	for _, rec := range c.Comparables() {
		ids = append(ids, rec.ComparableID)
	}
	assert.Equal(t, []string{"comp-a", "comparable-2"}, ids)

	var warned bool
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel && entry.Data["comparables"] == 1 {
			warned = true
		}
	}
	assert.True(t, warned)

	hook.Reset()
	c.Sync(testPayload())
	for _, entry := range hook.AllEntries() {
		assert.NotContains(t, entry.Message, "without an id")
	}
}

func TestController_Source(t *testing.T) {
	c := newTestController(t)
	_, ok := c.Source()
	assert.False(t, ok)

	c.Sync(testPayload())
	source, ok := c.Source()
	require.True(t, ok)
	assert.Equal(t, testPayload(), source)

	source.Comparables[0].Address = "changed"
	again, _ := c.Source()
	assert.Equal(t, "40 Oak Ave", again.Comparables[0].Address)
}
