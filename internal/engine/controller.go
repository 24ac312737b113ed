// Package engine owns the per-comparable adjustment records of one report session and keeps
// them consistent with upstream comparison data and the rate table.
package engine

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"appraisal/server/internal/adjustment"
	"appraisal/server/internal/geometry"
	"appraisal/server/internal/measurement"
	"appraisal/server/internal/models"
	"appraisal/server/internal/rates"
)

var (
	ErrComparableNotFound = errors.New("comparable not found")
	ErrCategoryNotFound   = errors.New("adjustment category not found")
	ErrNotSeeded          = errors.New("no comparison data loaded")
	ErrDerivedDifference  = errors.New("difference is derived from upstream data")
)

// State is the synchronization state of a comparable set
type State int

const (
	StateUninitialized State = iota
	StateSeeded
	StateSynced
	StateStale
)

// String returns the string representation of a State
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateSeeded:
		return "seeded"
	case StateSynced:
		return "synced"
	case StateStale:
		return "stale"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for _, candidate := range []State{StateUninitialized, StateSeeded, StateSynced, StateStale} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", text)
}

// Options configures the unit systems of a controller
type Options struct {
	// System is the unit system canonical area values and area rates use. Fixed for the session.
	System measurement.System
	// Display is the unit system labels are rendered in
	Display measurement.System
}

// SyncReport describes what one synchronization pass did
type SyncReport struct {
	Changed    bool     `json:"changed"`
	State      State    `json:"state"`
	Seeded     []string `json:"seeded,omitempty"`
	Recomputed []string `json:"recomputed,omitempty"`
	Skipped    []string `json:"skipped,omitempty"`
}

// Controller is the synchronization controller of one report session. It is not safe for
// concurrent use; callers serialize access per session.
type Controller struct {
	logger  *logrus.Logger
	rates   *rates.Table
	system  measurement.System
	display measurement.System

	state State
	// source is the latest payload delivered; processed is the last one synced against
	source    *models.ComparisonPayload
	processed *models.ComparisonPayload

	order       []string
	comparables map[string]models.ComparableAdjustments
}

// NewController creates a controller in the Uninitialized state
func NewController(table *rates.Table, opts Options, logger *logrus.Logger) *Controller {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	if opts.System == "" {
		opts.System = measurement.Imperial
	}
	if opts.Display == "" {
		opts.Display = opts.System
	}

	return &Controller{
		logger:      logger,
		rates:       table,
		system:      opts.System,
		display:     opts.Display,
		state:       StateUninitialized,
		comparables: make(map[string]models.ComparableAdjustments),
	}
}

// State returns the current synchronization state
func (c *Controller) State() State {
	return c.state
}

// Rates returns the session's rate table
func (c *Controller) Rates() *rates.Table {
	return c.rates
}

// System returns the calculation unit system
func (c *Controller) System() measurement.System {
	return c.system
}

// Display returns the label unit system
func (c *Controller) Display() measurement.System {
	return c.display
}

// Source returns a copy of the latest payload delivered, if any
func (c *Controller) Source() (models.ComparisonPayload, bool) {
	if c.source == nil {
		return models.ComparisonPayload{}, false
	}
	return c.source.Clone(), true
}

// Comparables returns copies of every comparable's adjustments in upstream order
func (c *Controller) Comparables() []models.ComparableAdjustments {
	out := make([]models.ComparableAdjustments, 0, len(c.order))
	for _, key := range c.order {
		if rec, ok := c.comparables[key]; ok {
			out = append(out, rec.Clone())
		}
	}
	return out
}

// Comparable returns a copy of one comparable's adjustments
func (c *Controller) Comparable(id string) (models.ComparableAdjustments, error) {
	rec, ok := c.comparables[id]
	if !ok {
		return models.ComparableAdjustments{}, ErrComparableNotFound
	}
	return rec.Clone(), nil
}

// Diff compares next against the last payload this controller processed
func (c *Controller) Diff(next models.ComparisonPayload) PayloadDiff {
	return Diff(c.processed, next)
}

// Sync diffs next against the last processed payload and applies it
func (c *Controller) Sync(next models.ComparisonPayload) SyncReport {
	return c.Apply(next, c.Diff(next))
}

// Apply runs a synchronization pass for next using a diff computed by the caller.
// An unchanged payload is a no-op.
func (c *Controller) Apply(next models.ComparisonPayload, diff PayloadDiff) SyncReport {
	next = next.Clone()
	c.source = &next

	var report SyncReport
	if c.state == StateUninitialized {
		report.Seeded = c.seed(next)
	}

	if !diff.Changed {
		c.logger.WithField("state", c.state.String()).Debug("Comparison data unchanged, skipping sync")
		report.State = c.state
		return report
	}

	c.state = StateStale
	report.Changed = true
	if n := withoutID(next); n > 0 {
		c.logger.WithField("comparables", n).Warn("Comparables without an id are matched by position; removing one upstream shifts the records after it")
	}

	updated := make(map[string]models.ComparableAdjustments, len(c.comparables))
	for key, rec := range c.comparables {
		updated[key] = rec
	}

	order := make([]string, 0, len(next.Comparables))
	upstream := make(map[string]bool, len(next.Comparables))
	for i, snapshot := range next.Comparables {
		key := models.ComparableKey(snapshot, i)
		order = append(order, key)
		upstream[key] = true

		rec, ok := updated[key]
		if !ok {
			rec = c.newRecord(key, next, snapshot)
			report.Seeded = append(report.Seeded, key)
		} else if !diff.touches(key) {
			continue
		}

		updated[key] = c.refresh(rec, next, snapshot)
		report.Recomputed = append(report.Recomputed, key)
	}

	for _, key := range c.order {
		if upstream[key] {
			continue
		}
		if _, ok := updated[key]; !ok {
			continue
		}
		c.logger.WithField("comparable_id", key).Warn("Comparable missing from upstream data, skipping sync for this pass")
		report.Skipped = append(report.Skipped, key)
		order = append(order, key)
	}

	c.comparables = updated
	c.order = order
	c.processed = &next
	c.state = StateSynced
	report.State = c.state

	c.logger.WithFields(logrus.Fields{
		"recomputed": len(report.Recomputed),
		"seeded":     len(report.Seeded),
		"skipped":    len(report.Skipped),
	}).Debug("Comparison data synced")
	return report
}

// Seed builds fresh records for every comparable in payload, discarding existing ones.
// Differences are zero until the next sync pass.
func (c *Controller) Seed(payload models.ComparisonPayload) []string {
	payload = payload.Clone()
	c.source = &payload
	return c.seed(payload)
}

func (c *Controller) seed(payload models.ComparisonPayload) []string {
	c.comparables = make(map[string]models.ComparableAdjustments, len(payload.Comparables))
	c.order = make([]string, 0, len(payload.Comparables))

	for i, snapshot := range payload.Comparables {
		key := models.ComparableKey(snapshot, i)
		c.comparables[key] = c.newRecord(key, payload, snapshot)
		c.order = append(c.order, key)
	}

	c.processed = nil
	c.state = StateSeeded
	c.logger.WithFields(logrus.Fields{
		"property_type": c.rates.Active(),
		"comparables":   len(c.order),
	}).Info("Seeded comparable adjustments")
	return append([]string(nil), c.order...)
}

func (c *Controller) newRecord(key string, payload models.ComparisonPayload, snapshot models.PropertySnapshot) models.ComparableAdjustments {
	in := c.input(payload, snapshot)
	categories := adjustment.ApplicableCategories(c.rates.Active())

	rec := models.ComparableAdjustments{
		ComparableID: key,
		Address:      snapshot.Address,
		SalePrice:    snapshot.SalePrice,
		Adjustments:  make(map[models.CategoryID]models.AdjustmentDetail, len(categories)),
	}
	for _, cat := range categories {
		rec.Adjustments[cat.ID] = adjustment.Seed(cat.ID, in)
	}
	return adjustment.WithTotals(rec)
}

// refresh re-reads upstream fields for every upstream category. Categories are computed
// independently; a missing field only zeroes its own category.
func (c *Controller) refresh(rec models.ComparableAdjustments, payload models.ComparisonPayload, snapshot models.PropertySnapshot) models.ComparableAdjustments {
	rec = rec.Clone()
	in := c.input(payload, snapshot)

	for id, d := range rec.Adjustments {
		cat, ok := adjustment.Lookup(id)
		if !ok {
			continue
		}
		if cat.Upstream {
			rec.Adjustments[id] = adjustment.Calculate(id, in, &d)
		} else {
			rec.Adjustments[id] = adjustment.Recalculate(in, d)
		}
	}

	rec.Address = snapshot.Address
	rec.SalePrice = snapshot.SalePrice
	rec.ProximityKm = nil
	if km, ok := geometry.ProximityKm(payload.Subject, snapshot); ok {
		rec.ProximityKm = &km
	}
	return adjustment.WithTotals(rec)
}

// RatesChanged recomputes every amount from the stored inputs with the current rates.
// Upstream values and manual overrides are left as they are.
func (c *Controller) RatesChanged() {
	if c.state == StateUninitialized {
		return
	}
	for key, rec := range c.comparables {
		rec = rec.Clone()
		in := c.inputFor(key, rec)
		for id, d := range rec.Adjustments {
			rec.Adjustments[id] = adjustment.Recalculate(in, d)
		}
		c.comparables[key] = adjustment.WithTotals(rec)
	}
}

// SetRate edits a numeric rate of the active property type and recomputes amounts
func (c *Controller) SetRate(key rates.RateKey, value float64) (models.DefaultRates, error) {
	r, err := c.rates.SetRate(c.rates.Active(), key, value)
	if err != nil {
		return r, err
	}
	c.RatesChanged()
	return r, nil
}

// SetMethod edits a method field of the active property type and recomputes amounts
func (c *Controller) SetMethod(key rates.RateKey, method string) (models.DefaultRates, error) {
	r, err := c.rates.SetMethod(c.rates.Active(), key, method)
	if err != nil {
		return r, err
	}
	c.RatesChanged()
	return r, nil
}

// ResetRates drops the session override of the active property type and recomputes amounts
func (c *Controller) ResetRates() models.DefaultRates {
	r := c.rates.ResetToDefault(c.rates.Active())
	c.RatesChanged()
	return r
}

// ReloadFromSource discards every record, including manual overrides and per-comparable
// custom rates and sizes, reseeds from the latest payload and syncs it.
func (c *Controller) ReloadFromSource() (SyncReport, error) {
	if c.source == nil {
		return SyncReport{State: c.state}, ErrNotSeeded
	}
	source := c.source.Clone()
	seeded := c.seed(source)
	report := c.Apply(source, Diff(nil, source))
	report.Seeded = seeded
	c.logger.Info("Reloaded comparable adjustments from source")
	return report, nil
}

// SetPropertyType switches the active property type and reseeds the whole comparable set
func (c *Controller) SetPropertyType(pt models.PropertyType) (SyncReport, error) {
	if err := c.rates.SetActive(pt); err != nil {
		return SyncReport{State: c.state}, err
	}
	if c.source == nil {
		return SyncReport{State: c.state}, nil
	}
	return c.ReloadFromSource()
}

// SetMeasurementSystem changes the label unit system. Only area labels are regenerated.
func (c *Controller) SetMeasurementSystem(sys measurement.System) {
	if sys == c.display {
		return
	}
	c.display = sys
	for key, rec := range c.comparables {
		rec = rec.Clone()
		in := c.inputFor(key, rec)
		for id, d := range rec.Adjustments {
			if cat, ok := adjustment.Lookup(id); ok && cat.AreaLabels {
				adjustment.Relabel(in, &d)
				rec.Adjustments[id] = d
			}
		}
		c.comparables[key] = rec
	}
}

// RemoveComparable destroys one comparable's records
func (c *Controller) RemoveComparable(id string) error {
	if _, ok := c.comparables[id]; !ok {
		return ErrComparableNotFound
	}
	delete(c.comparables, id)
	for i, key := range c.order {
		if key == id {
			c.order = append(c.order[:i:i], c.order[i+1:]...)
			break
		}
	}
	c.logger.WithField("comparable_id", id).Info("Removed comparable")
	return nil
}

func withoutID(payload models.ComparisonPayload) int {
	n := 0
	for _, snapshot := range payload.Comparables {
		if snapshot.ID == "" {
			n++
		}
	}
	return n
}

func (c *Controller) input(payload models.ComparisonPayload, snapshot models.PropertySnapshot) adjustment.Input {
	return adjustment.Input{
		Subject:       payload.Subject,
		Comparable:    snapshot,
		Rates:         c.rates.ActiveRates(),
		EffectiveDate: payload.EffectiveDate,
		System:        c.system,
		Display:       c.display,
	}
}

// inputFor rebuilds the calculation input of an existing record from the last processed payload
func (c *Controller) inputFor(key string, rec models.ComparableAdjustments) adjustment.Input {
	payload := models.ComparisonPayload{}
	if c.processed != nil {
		payload = *c.processed
	} else if c.source != nil {
		payload = *c.source
	}

	snapshot := models.PropertySnapshot{ID: key, Address: rec.Address, SalePrice: rec.SalePrice}
	for i, s := range payload.Comparables {
		if models.ComparableKey(s, i) == key {
			snapshot = s
			break
		}
	}
	return c.input(payload, snapshot)
}

// AdjustmentEdit is an operator edit of one adjustment record. Nil fields are left unchanged.
type AdjustmentEdit struct {
	Enabled              *bool    `json:"enabled,omitempty"`
	SubjectRate          *float64 `json:"subject_rate,omitempty"`
	ComparableRate       *float64 `json:"comparable_rate,omitempty"`
	SubjectPowderRate    *float64 `json:"subject_powder_rate,omitempty"`
	ComparablePowderRate *float64 `json:"comparable_powder_rate,omitempty"`
	SubjectSize          *float64 `json:"subject_size,omitempty"`
	ComparableSize       *float64 `json:"comparable_size,omitempty"`
	DepreciationRate     *float64 `json:"depreciation_rate,omitempty"`
	Difference           *float64 `json:"difference,omitempty"`
	ManualOverride       *float64 `json:"manual_override,omitempty"`
	ClearManualOverride  bool     `json:"clear_manual_override,omitempty"`
	ClearCustomRates     bool     `json:"clear_custom_rates,omitempty"`
}

// UpdateAdjustment applies an operator edit to one category of one comparable and
// recomputes that comparable's totals.
func (c *Controller) UpdateAdjustment(comparableID string, id models.CategoryID, edit AdjustmentEdit) (models.ComparableAdjustments, error) {
	rec, ok := c.comparables[comparableID]
	if !ok {
		return models.ComparableAdjustments{}, ErrComparableNotFound
	}
	d, ok := rec.Adjustments[id]
	if !ok {
		return models.ComparableAdjustments{}, ErrCategoryNotFound
	}
	cat, _ := adjustment.Lookup(id)
	if edit.Difference != nil && !cat.OperatorDifference {
		return models.ComparableAdjustments{}, ErrDerivedDifference
	}

	d = d.Clone()
	if edit.ClearCustomRates {
		d.SubjectRate, d.ComparableRate = nil, nil
		d.SubjectPowderRate, d.ComparablePowderRate = nil, nil
		d.SubjectSize, d.ComparableSize = nil, nil
		d.DepreciationRate = nil
	}
	if edit.Enabled != nil {
		d.Enabled = *edit.Enabled
	}
	set := func(dst **float64, v *float64) {
		if v != nil {
			*dst = models.Float(*v)
		}
	}
	set(&d.SubjectRate, edit.SubjectRate)
	set(&d.ComparableRate, edit.ComparableRate)
	set(&d.SubjectPowderRate, edit.SubjectPowderRate)
	set(&d.ComparablePowderRate, edit.ComparablePowderRate)
	set(&d.SubjectSize, edit.SubjectSize)
	set(&d.ComparableSize, edit.ComparableSize)
	set(&d.DepreciationRate, edit.DepreciationRate)
	if edit.Difference != nil {
		d.Difference = *edit.Difference
	}
	if edit.ClearManualOverride {
		d.ManualOverride = nil
	}
	set(&d.ManualOverride, edit.ManualOverride)

	rec = rec.Clone()
	rec.Adjustments[id] = adjustment.Recalculate(c.inputFor(comparableID, rec), d)
	rec = adjustment.WithTotals(rec)
	c.comparables[comparableID] = rec

	c.logger.WithFields(logrus.Fields{
		"comparable_id": comparableID,
		"category":      id,
	}).Debug("Adjustment updated")
	return rec.Clone(), nil
}
