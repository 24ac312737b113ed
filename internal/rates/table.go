// Package rates resolves adjustment rates per property type across the session override,
// organization preset and built-in default layers.
package rates

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"appraisal/server/internal/models"
)

// Sink receives every in-memory rate mutation. Batching and persistence are the sink's concern.
type Sink interface {
	RatesChanged(req models.RateSaveRequest)
}

// Table is the rate table of one report session
type Table struct {
	organizationID string
	organization   map[models.PropertyType]models.DefaultRates
	session        map[models.PropertyType]models.DefaultRates
	active         models.PropertyType
	sink           Sink
	logger         *logrus.Logger
}

// NewTable creates a rate table for an organization. presets may be nil; sink may be nil.
func NewTable(organizationID string, presets map[models.PropertyType]models.DefaultRates, active models.PropertyType, sink Sink, logger *logrus.Logger) *Table {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	if !active.IsValid() {
		active = models.SingleFamily
	}

	organization := make(map[models.PropertyType]models.DefaultRates, len(presets))
	for pt, r := range presets {
		organization[pt] = r.WithMethodDefaults()
	}

	return &Table{
		organizationID: organizationID,
		organization:   organization,
		session:        make(map[models.PropertyType]models.DefaultRates),
		active:         active,
		sink:           sink,
		logger:         logger,
	}
}

// OrganizationID returns the organization the table belongs to
func (t *Table) OrganizationID() string {
	return t.organizationID
}

// Active returns the property type currently being edited
func (t *Table) Active() models.PropertyType {
	return t.active
}

// SetActive swaps the override bucket that is read and written.
// Overrides made for other property types are kept.
func (t *Table) SetActive(pt models.PropertyType) error {
	if !pt.IsValid() {
		return models.ErrInvalidPropertyType
	}
	t.active = pt
	return nil
}

// ActiveRates resolves the rates of the active property type
func (t *Table) ActiveRates() models.DefaultRates {
	return t.GetRates(t.active)
}

// GetRates resolves session override, then organization preset, then built-in defaults
func (t *Table) GetRates(pt models.PropertyType) models.DefaultRates {
	if r, ok := t.session[pt]; ok {
		return r
	}
	if r, ok := t.organization[pt]; ok {
		return r
	}
	return BuiltInDefaults(pt)
}

// HasOverride reports whether the session has edited rates for pt
func (t *Table) HasOverride(pt models.PropertyType) bool {
	_, ok := t.session[pt]
	return ok
}

// SetRate writes a numeric rate into the session override layer and notifies the sink
func (t *Table) SetRate(pt models.PropertyType, key RateKey, value float64) (models.DefaultRates, error) {
	r := t.GetRates(pt)
	if err := setNumeric(&r, key, value); err != nil {
		return t.GetRates(pt), fmt.Errorf("failed to set rate %q: %w", key, err)
	}
	return t.commit(pt, r, key), nil
}

// SetMethod writes a method field (quality or age) into the session override layer
func (t *Table) SetMethod(pt models.PropertyType, key RateKey, method string) (models.DefaultRates, error) {
	r := t.GetRates(pt)
	if err := setMethod(&r, key, method); err != nil {
		return t.GetRates(pt), fmt.Errorf("failed to set method %q: %w", key, err)
	}
	return t.commit(pt, r, key), nil
}

// ResetToDefault drops the session override for pt and returns the resolved rates
func (t *Table) ResetToDefault(pt models.PropertyType) models.DefaultRates {
	delete(t.session, pt)
	t.logger.WithFields(logrus.Fields{
		"organization_id": t.organizationID,
		"property_type":   pt,
	}).Info("Reset session rates to defaults")
	return t.GetRates(pt)
}

func (t *Table) commit(pt models.PropertyType, r models.DefaultRates, key RateKey) models.DefaultRates {
	t.session[pt] = r
	t.logger.WithFields(logrus.Fields{
		"organization_id": t.organizationID,
		"property_type":   pt,
		"key":             key,
	}).Debug("Rate updated")

	if t.sink != nil {
		t.sink.RatesChanged(models.RateSaveRequest{
			OrganizationID: t.organizationID,
			PropertyType:   pt,
			Rates:          r,
		})
	}
	return r
}
