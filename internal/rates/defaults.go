package rates

import "appraisal/server/internal/models"

// builtInDefaults are the hardcoded rate sets. Area rates are per square foot.
// Property types missing here resolve to the single family set.
var builtInDefaults = map[models.PropertyType]models.DefaultRates{
	models.SingleFamily: {
		MarketAppreciationRate:  5,
		LivingAreaRate:          50,
		LandRate:                5,
		BasementFinishRate:      25,
		BasementDepreciation:    30,
		QualityAdjustmentMethod: models.QualityPercentage,
		AgeAdjustmentMethod:     models.AgePerYear,
		AgeAdjustmentRate:       1000,
		BathroomRate:            5000,
		PowderRoomRate:          2500,
		BathroomDepreciation:    25,
		GarageValue:             10000,
		LandscapingDepreciation: 20,
		ExtrasDepreciation:      25,
	},
	models.Duplex: {
		MarketAppreciationRate:  5,
		LivingAreaRate:          40,
		LandRate:                5,
		BasementFinishRate:      20,
		BasementDepreciation:    30,
		QualityAdjustmentMethod: models.QualityPercentage,
		AgeAdjustmentMethod:     models.AgePerYear,
		AgeAdjustmentRate:       1200,
		BathroomRate:            4000,
		PowderRoomRate:          2000,
		BathroomDepreciation:    25,
		GarageValue:             8000,
		LandscapingDepreciation: 20,
		ExtrasDepreciation:      25,
	},
	models.Triplex: {
		MarketAppreciationRate:  5,
		LivingAreaRate:          35,
		LandRate:                5,
		BasementFinishRate:      20,
		BasementDepreciation:    30,
		QualityAdjustmentMethod: models.QualityPercentage,
		AgeAdjustmentMethod:     models.AgePerYear,
		AgeAdjustmentRate:       1500,
		BathroomRate:            4000,
		PowderRoomRate:          2000,
		BathroomDepreciation:    25,
		GarageValue:             8000,
		LandscapingDepreciation: 20,
		ExtrasDepreciation:      25,
	},
	models.QuadruplexPlus: {
		MarketAppreciationRate:  4.5,
		LivingAreaRate:          30,
		LandRate:                5,
		BasementFinishRate:      15,
		BasementDepreciation:    30,
		QualityAdjustmentMethod: models.QualityPercentage,
		AgeAdjustmentMethod:     models.AgePercentage,
		AgeAdjustmentRate:       0.5,
		BathroomRate:            3500,
		PowderRoomRate:          1500,
		BathroomDepreciation:    25,
		GarageValue:             7500,
		LandscapingDepreciation: 20,
		ExtrasDepreciation:      25,
	},
	models.Condo: {
		MarketAppreciationRate:  4,
		LivingAreaRate:          75,
		QualityAdjustmentMethod: models.QualityPercentage,
		AgeAdjustmentMethod:     models.AgePerYear,
		AgeAdjustmentRate:       800,
		BathroomRate:            6000,
		PowderRoomRate:          3000,
		BathroomDepreciation:    20,
		GarageValue:             15000,
		FloorValue:              2000,
		ExtrasDepreciation:      25,
		CornerUnitPremium:       5000,
	},
	models.Apartment: {
		MarketAppreciationRate:  4,
		LivingAreaRate:          60,
		QualityAdjustmentMethod: models.QualityPercentage,
		AgeAdjustmentMethod:     models.AgePerYear,
		AgeAdjustmentRate:       600,
		BathroomRate:            5000,
		PowderRoomRate:          2500,
		BathroomDepreciation:    20,
		GarageValue:             12000,
		FloorValue:              1500,
		ExtrasDepreciation:      25,
		CornerUnitPremium:       3000,
	},
	models.SemiCommercial: {
		MarketAppreciationRate:  4,
		LivingAreaRate:          45,
		LandRate:                8,
		BasementFinishRate:      15,
		BasementDepreciation:    35,
		QualityAdjustmentMethod: models.QualityFixed,
		AgeAdjustmentMethod:     models.AgePercentage,
		AgeAdjustmentRate:       0.5,
		BathroomRate:            3000,
		PowderRoomRate:          1500,
		BathroomDepreciation:    30,
		GarageValue:             5000,
		LandscapingDepreciation: 25,
		ExtrasDepreciation:      30,
	},
	models.Commercial: {
		MarketAppreciationRate:  3.5,
		LivingAreaRate:          55,
		LandRate:                10,
		QualityAdjustmentMethod: models.QualityFixed,
		AgeAdjustmentMethod:     models.AgePercentage,
		AgeAdjustmentRate:       0.75,
		GarageValue:             5000,
		LandscapingDepreciation: 25,
		ExtrasDepreciation:      30,
	},
	models.Land: {
		MarketAppreciationRate:  6,
		LandRate:                8,
		QualityAdjustmentMethod: models.QualityPercentage,
		AgeAdjustmentMethod:     models.AgePerYear,
		ExtrasDepreciation:      10,
	},
}

// BuiltInDefaults returns the hardcoded rate set for a property type,
// falling back to single family when the type has none.
func BuiltInDefaults(pt models.PropertyType) models.DefaultRates {
	if r, ok := builtInDefaults[pt]; ok {
		return r.WithMethodDefaults()
	}
	return builtInDefaults[models.SingleFamily].WithMethodDefaults()
}
