package rates

import (
	"errors"

	"appraisal/server/internal/models"
)

var (
	ErrUnknownRateKey = errors.New("unknown rate key")
	ErrInvalidMethod  = errors.New("invalid adjustment method")
)

// RateKey names one field of models.DefaultRates, using its JSON name
type RateKey string

const (
	KeyMarketAppreciationRate  RateKey = "market_appreciation_rate"
	KeyLivingAreaRate          RateKey = "living_area_rate"
	KeyLandRate                RateKey = "land_rate"
	KeyLandDepreciation        RateKey = "land_depreciation"
	KeyBasementFinishRate      RateKey = "basement_finish_rate"
	KeyBasementDepreciation    RateKey = "basement_depreciation"
	KeyQualityAdjustmentMethod RateKey = "quality_adjustment_method"
	KeyQualityAdjustmentValue  RateKey = "quality_adjustment_value"
	KeyAgeAdjustmentMethod     RateKey = "age_adjustment_method"
	KeyAgeAdjustmentRate       RateKey = "age_adjustment_rate"
	KeyBathroomRate            RateKey = "bathroom_rate"
	KeyPowderRoomRate          RateKey = "powder_room_rate"
	KeyBathroomDepreciation    RateKey = "bathroom_depreciation"
	KeyGarageValue             RateKey = "garage_value"
	KeyFloorValue              RateKey = "floor_value"
	KeyLandscapingDepreciation RateKey = "landscaping_depreciation"
	KeyExtrasDepreciation      RateKey = "extras_depreciation"
	KeyCornerUnitPremium       RateKey = "corner_unit_premium"
)

var numericFields = map[RateKey]func(*models.DefaultRates) *float64{
	KeyMarketAppreciationRate:  func(r *models.DefaultRates) *float64 { return &r.MarketAppreciationRate },
	KeyLivingAreaRate:          func(r *models.DefaultRates) *float64 { return &r.LivingAreaRate },
	KeyLandRate:                func(r *models.DefaultRates) *float64 { return &r.LandRate },
	KeyLandDepreciation:        func(r *models.DefaultRates) *float64 { return &r.LandDepreciation },
	KeyBasementFinishRate:      func(r *models.DefaultRates) *float64 { return &r.BasementFinishRate },
	KeyBasementDepreciation:    func(r *models.DefaultRates) *float64 { return &r.BasementDepreciation },
	KeyQualityAdjustmentValue:  func(r *models.DefaultRates) *float64 { return &r.QualityAdjustmentValue },
	KeyAgeAdjustmentRate:       func(r *models.DefaultRates) *float64 { return &r.AgeAdjustmentRate },
	KeyBathroomRate:            func(r *models.DefaultRates) *float64 { return &r.BathroomRate },
	KeyPowderRoomRate:          func(r *models.DefaultRates) *float64 { return &r.PowderRoomRate },
	KeyBathroomDepreciation:    func(r *models.DefaultRates) *float64 { return &r.BathroomDepreciation },
	KeyGarageValue:             func(r *models.DefaultRates) *float64 { return &r.GarageValue },
	KeyFloorValue:              func(r *models.DefaultRates) *float64 { return &r.FloorValue },
	KeyLandscapingDepreciation: func(r *models.DefaultRates) *float64 { return &r.LandscapingDepreciation },
	KeyExtrasDepreciation:      func(r *models.DefaultRates) *float64 { return &r.ExtrasDepreciation },
	KeyCornerUnitPremium:       func(r *models.DefaultRates) *float64 { return &r.CornerUnitPremium },
}

// IsMethod reports whether the key selects a calculation method rather than a number
func (k RateKey) IsMethod() bool {
	return k == KeyQualityAdjustmentMethod || k == KeyAgeAdjustmentMethod
}

// IsValid checks if the key names a known rate field
func (k RateKey) IsValid() bool {
	_, ok := numericFields[k]
	return ok || k.IsMethod()
}

// Value reads a numeric rate by key
func Value(r models.DefaultRates, key RateKey) (float64, error) {
	field, ok := numericFields[key]
	if !ok {
		return 0, ErrUnknownRateKey
	}
	return *field(&r), nil
}

func setNumeric(r *models.DefaultRates, key RateKey, value float64) error {
	field, ok := numericFields[key]
	if !ok {
		return ErrUnknownRateKey
	}
	*field(r) = value
	return nil
}

func setMethod(r *models.DefaultRates, key RateKey, method string) error {
	switch key {
	case KeyQualityAdjustmentMethod:
		m := models.QualityMethod(method)
		if m != models.QualityPercentage && m != models.QualityFixed {
			return ErrInvalidMethod
		}
		r.QualityAdjustmentMethod = m
	case KeyAgeAdjustmentMethod:
		m := models.AgeMethod(method)
		if m != models.AgePerYear && m != models.AgePercentage {
			return ErrInvalidMethod
		}
		r.AgeAdjustmentMethod = m
	default:
		return ErrUnknownRateKey
	}
	return nil
}
