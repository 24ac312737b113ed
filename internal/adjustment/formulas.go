package adjustment

import (
	"appraisal/server/internal/measurement"
	"appraisal/server/internal/models"
)

// Input is the immutable snapshot one calculation pass works from
type Input struct {
	Subject       models.PropertySnapshot
	Comparable    models.PropertySnapshot
	Rates         models.DefaultRates
	EffectiveDate string
	// System is the unit system area values and area rates are expressed in
	System measurement.System
	// Display is the unit system labels are rendered in
	Display measurement.System
}

// Formula computes one category. Refresh copies upstream fields into the detail and is nil for
// categories whose inputs are operator-entered. Amount derives the dollar amount from the
// detail's stored inputs and records the rate and depreciation it used.
type Formula struct {
	Refresh func(in Input, d *models.AdjustmentDetail)
	Amount  func(in Input, d *models.AdjustmentDetail) float64
}

// Formulas maps every registry category to its formula
var Formulas = map[models.CategoryID]Formula{
	models.CategoryTiming:       {Refresh: refreshTiming, Amount: amountTiming},
	models.CategoryLivingArea:   {Refresh: refreshArea(models.CategoryLivingArea), Amount: amountLivingArea},
	models.CategoryLotSize:      {Refresh: refreshArea(models.CategoryLotSize), Amount: amountLotSize},
	models.CategoryQuality:      {Refresh: refreshLabels(func(p models.PropertySnapshot) string { return p.Quality }), Amount: amountQuality},
	models.CategoryEffectiveAge: {Refresh: refreshEffectiveAge, Amount: amountEffectiveAge},
	models.CategoryBasement:     {Refresh: refreshLabels(func(p models.PropertySnapshot) string { return p.Basement }), Amount: amountBasement},
	models.CategoryBathrooms:    {Refresh: refreshBathrooms, Amount: amountBathrooms},
	models.CategoryGarage:       {Refresh: refreshGarage, Amount: amountGarage},
	models.CategoryFloor:        {Amount: amountFloor},
	models.CategoryLandscaping:  {Amount: amountLandscaping},
	models.CategoryExtras:       {Refresh: refreshLabels(func(p models.PropertySnapshot) string { return p.Extras }), Amount: amountExtras},
	models.CategoryUnitLocation: {Refresh: refreshUnitLocation, Amount: amountUnitLocation},
}

func orDefault(v *float64, fallback float64) float64 {
	if v != nil {
		return *v
	}
	return fallback
}

// depreciate scales amount by the detail's depreciation, or the rate table's when the operator
// has not set one. A zero depreciation leaves the amount untouched.
func depreciate(amount float64, d *models.AdjustmentDetail, tableRate float64) float64 {
	dep := orDefault(d.DepreciationRate, tableRate)
	d.AppliedDepreciation = dep
	if dep == 0 {
		return amount
	}
	return amount * (1 - dep/100)
}

func refreshTiming(in Input, d *models.AdjustmentDetail) {
	d.SubjectLabel = in.EffectiveDate
	d.ComparableLabel = in.Comparable.SaleDate
	d.SubjectValue = 0
	d.ComparableValue = 0
	d.Difference = MonthsBetween(in.Comparable.SaleDate, in.EffectiveDate)
}

func amountTiming(in Input, d *models.AdjustmentDetail) float64 {
	d.Rate = orDefault(d.ComparableRate, in.Rates.MarketAppreciationRate)
	return (d.Rate / 100 / 12) * d.Difference * in.Comparable.SalePrice
}

// areaFields reads the upstream free text of each area category
var areaFields = map[models.CategoryID]func(models.PropertySnapshot) models.FreeText{
	models.CategoryLivingArea: func(p models.PropertySnapshot) models.FreeText { return p.LivingArea },
	models.CategoryLotSize:    func(p models.PropertySnapshot) models.FreeText { return p.LotSize },
}

func refreshArea(id models.CategoryID) func(Input, *models.AdjustmentDetail) {
	field := areaFields[id]
	return func(in Input, d *models.AdjustmentDetail) {
		subject, comparable := string(field(in.Subject)), string(field(in.Comparable))
		d.SubjectValue = measurement.ToCanonical(subject, in.System)
		d.ComparableValue = measurement.ToCanonical(comparable, in.System)
		d.SubjectLabel = measurement.ToDisplayFrom(subject, in.System, in.Display)
		d.ComparableLabel = measurement.ToDisplayFrom(comparable, in.System, in.Display)
		d.Difference = d.ComparableValue - d.SubjectValue
	}
}

// Relabel regenerates area labels in the display system. Labels come from the upstream text
// in the input when present, otherwise from the stored canonical values.
func Relabel(in Input, d *models.AdjustmentDetail) {
	field, ok := areaFields[d.Category]
	if !ok {
		return
	}
	d.SubjectLabel = areaLabel(string(field(in.Subject)), d.SubjectLabel, d.SubjectValue, in)
	d.ComparableLabel = areaLabel(string(field(in.Comparable)), d.ComparableLabel, d.ComparableValue, in)
}

func areaLabel(raw, current string, v float64, in Input) string {
	if raw != "" {
		return measurement.ToDisplayFrom(raw, in.System, in.Display)
	}
	if current == "" && v == 0 {
		return ""
	}
	return measurement.ToDisplayFrom(measurement.Format(v, in.System), in.System, in.Display)
}

func amountLivingArea(in Input, d *models.AdjustmentDetail) float64 {
	d.Rate = orDefault(d.ComparableRate, in.Rates.LivingAreaRate)
	return -d.Difference * d.Rate
}

// twoSided is the shared lotSize/basement formula: each side carries its own size and rate.
func twoSided(d *models.AdjustmentDetail, tableRate, tableDepreciation float64) float64 {
	subjectSize := orDefault(d.SubjectSize, d.SubjectValue)
	comparableSize := orDefault(d.ComparableSize, d.ComparableValue)
	subjectRate := orDefault(d.SubjectRate, tableRate)
	comparableRate := orDefault(d.ComparableRate, tableRate)

	d.Difference = comparableSize - subjectSize
	d.Rate = comparableRate
	return depreciate(subjectSize*subjectRate-comparableSize*comparableRate, d, tableDepreciation)
}

func amountLotSize(in Input, d *models.AdjustmentDetail) float64 {
	return twoSided(d, in.Rates.LandRate, in.Rates.LandDepreciation)
}

func amountBasement(in Input, d *models.AdjustmentDetail) float64 {
	return twoSided(d, in.Rates.BasementFinishRate, in.Rates.BasementDepreciation)
}

func refreshLabels(field func(models.PropertySnapshot) string) func(Input, *models.AdjustmentDetail) {
	return func(in Input, d *models.AdjustmentDetail) {
		d.SubjectLabel = field(in.Subject)
		d.ComparableLabel = field(in.Comparable)
	}
}

func amountQuality(in Input, d *models.AdjustmentDetail) float64 {
	d.Rate = orDefault(d.ComparableRate, in.Rates.QualityAdjustmentValue)
	if in.Rates.QualityAdjustmentMethod == models.QualityFixed {
		return d.Rate
	}
	return in.Comparable.SalePrice * (d.Rate / 100)
}

func refreshEffectiveAge(in Input, d *models.AdjustmentDetail) {
	d.SubjectLabel = string(in.Subject.Age)
	d.ComparableLabel = string(in.Comparable.Age)
	d.SubjectValue = measurement.ParseNumber(string(in.Subject.Age))
	d.ComparableValue = measurement.ParseNumber(string(in.Comparable.Age))
	d.Difference = d.ComparableValue - d.SubjectValue
}

func amountEffectiveAge(in Input, d *models.AdjustmentDetail) float64 {
	d.Rate = orDefault(d.ComparableRate, in.Rates.AgeAdjustmentRate)
	if in.Rates.AgeAdjustmentMethod == models.AgePercentage {
		return -d.Difference * in.Comparable.SalePrice * (d.Rate / 100)
	}
	return -d.Difference * d.Rate
}

func refreshBathrooms(in Input, d *models.AdjustmentDetail) {
	d.SubjectLabel = in.Subject.Bathrooms
	d.ComparableLabel = in.Comparable.Bathrooms
	d.SubjectValue, _ = ParseBathrooms(in.Subject.Bathrooms)
	d.ComparableValue, _ = ParseBathrooms(in.Comparable.Bathrooms)
}

func amountBathrooms(in Input, d *models.AdjustmentDetail) float64 {
	subjectFull, subjectHalf := ParseBathrooms(d.SubjectLabel)
	comparableFull, comparableHalf := ParseBathrooms(d.ComparableLabel)

	subjectRate := orDefault(d.SubjectRate, in.Rates.BathroomRate)
	comparableRate := orDefault(d.ComparableRate, in.Rates.BathroomRate)
	subjectPowder := orDefault(d.SubjectPowderRate, in.Rates.PowderRoomRate)
	comparablePowder := orDefault(d.ComparablePowderRate, in.Rates.PowderRoomRate)

	d.Difference = (comparableFull + comparableHalf) - (subjectFull + subjectHalf)
	d.Rate = comparableRate

	subject := subjectFull*subjectRate + subjectHalf*subjectPowder
	comparable := comparableFull*comparableRate + comparableHalf*comparablePowder
	return depreciate(subject-comparable, d, in.Rates.BathroomDepreciation)
}

func refreshGarage(in Input, d *models.AdjustmentDetail) {
	d.SubjectLabel = in.Subject.Parking
	d.ComparableLabel = in.Comparable.Parking
	d.SubjectValue = ParseParkingSpaces(in.Subject.Parking)
	d.ComparableValue = ParseParkingSpaces(in.Comparable.Parking)
	d.Difference = d.ComparableValue - d.SubjectValue
}

func amountGarage(in Input, d *models.AdjustmentDetail) float64 {
	d.Rate = orDefault(d.ComparableRate, in.Rates.GarageValue)
	return -d.Difference * d.Rate
}

func amountFloor(in Input, d *models.AdjustmentDetail) float64 {
	d.Rate = orDefault(d.ComparableRate, in.Rates.FloorValue)
	return -d.Difference * d.Rate
}

// amountLandscaping treats the difference as the dollar gap in landscaping, comparable minus subject
func amountLandscaping(in Input, d *models.AdjustmentDetail) float64 {
	d.Rate = 1
	return depreciate(-d.Difference, d, in.Rates.LandscapingDepreciation)
}

// amountExtras uses the operator-entered contributory value of each side's extras
func amountExtras(in Input, d *models.AdjustmentDetail) float64 {
	subject := orDefault(d.SubjectSize, 0)
	comparable := orDefault(d.ComparableSize, 0)
	d.Difference = comparable - subject
	d.Rate = 1
	return depreciate(subject-comparable, d, in.Rates.ExtrasDepreciation)
}

func refreshUnitLocation(in Input, d *models.AdjustmentDetail) {
	d.SubjectLabel = in.Subject.UnitLocation
	d.ComparableLabel = in.Comparable.UnitLocation
	d.SubjectValue = boolToFloat(IsCornerUnit(in.Subject.UnitLocation))
	d.ComparableValue = boolToFloat(IsCornerUnit(in.Comparable.UnitLocation))
	d.Difference = d.ComparableValue - d.SubjectValue
}

func amountUnitLocation(in Input, d *models.AdjustmentDetail) float64 {
	d.Rate = orDefault(d.ComparableRate, in.Rates.CornerUnitPremium)
	return -d.Difference * d.Rate
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
