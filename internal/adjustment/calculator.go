package adjustment

import "appraisal/server/internal/models"

// Seed builds a new enabled record with zeroed differences and the rates from in
func Seed(id models.CategoryID, in Input) models.AdjustmentDetail {
	return Recalculate(in, models.AdjustmentDetail{Category: id, Enabled: true})
}

// Calculate refreshes the record's upstream inputs from in and recomputes its amount.
// A manual override on existing is kept; CalculatedAmount is always recomputed so the
// override can be cleared later.
func Calculate(id models.CategoryID, in Input, existing *models.AdjustmentDetail) models.AdjustmentDetail {
	d := models.AdjustmentDetail{Category: id, Enabled: true}
	if existing != nil {
		d = existing.Clone()
		d.Category = id
	}

	f, ok := Formulas[id]
	if !ok {
		return d
	}
	if f.Refresh != nil {
		f.Refresh(in, &d)
	}
	d.CalculatedAmount = f.Amount(in, &d)
	return d
}

// Recalculate recomputes the amount from the inputs already stored on d
func Recalculate(in Input, d models.AdjustmentDetail) models.AdjustmentDetail {
	d = d.Clone()
	f, ok := Formulas[d.Category]
	if !ok {
		return d
	}
	d.CalculatedAmount = f.Amount(in, &d)
	return d
}
