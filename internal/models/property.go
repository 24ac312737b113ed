package models

import (
	"encoding/json"
	"errors"
	"strconv"
)

var ErrInvalidPropertyType = errors.New("invalid property type")

// PropertyType determines which adjustment categories apply and which default rates are used
type PropertyType string

const (
	SingleFamily   PropertyType = "single_family"
	Duplex         PropertyType = "duplex"
	Triplex        PropertyType = "triplex"
	QuadruplexPlus PropertyType = "quadruplex_plus"
	Condo          PropertyType = "condo"
	Apartment      PropertyType = "apartment"
	SemiCommercial PropertyType = "semi_commercial"
	Commercial     PropertyType = "commercial"
	Land           PropertyType = "land"
	Other          PropertyType = "other"
)

// PropertyTypes lists every supported property type in display order
var PropertyTypes = []PropertyType{
	SingleFamily, Duplex, Triplex, QuadruplexPlus, Condo,
	Apartment, SemiCommercial, Commercial, Land, Other,
}

// IsValid checks if a property type is recognized
func (t PropertyType) IsValid() bool {
	for _, v := range PropertyTypes {
		if t == v {
			return true
		}
	}
	return false
}

// ParsePropertyType converts a raw string into a PropertyType
func ParsePropertyType(raw string) (PropertyType, error) {
	t := PropertyType(raw)
	if !t.IsValid() {
		return "", ErrInvalidPropertyType
	}
	return t, nil
}

// FreeText holds a user-entered value that may arrive as a JSON number or a string,
// e.g. 1800 or "167.2 m² / 1800 pi²".
type FreeText string

func (f *FreeText) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FreeText(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		// Booleans and other shapes degrade to an empty value
		*f = ""
		return nil
	}
	*f = FreeText(n.String())
	return nil
}

// PropertySnapshot is the subject or a comparable as delivered by the comparison data
// collaborator. The subject carries no sale date or price.
type PropertySnapshot struct {
	ID           string   `json:"id"`
	Address      string   `json:"address"`
	SaleDate     string   `json:"sale_date,omitempty"`
	SalePrice    float64  `json:"sale_price,omitempty"`
	LivingArea   FreeText `json:"living_area"`
	LotSize      FreeText `json:"lot_size"`
	Age          FreeText `json:"age"`
	Condition    string   `json:"condition"`
	RoomCount    FreeText `json:"room_count"`
	BedroomCount FreeText `json:"bedroom_count"`
	// Bathrooms is encoded as "full:half"
	Bathrooms    string   `json:"bathrooms"`
	Basement     string   `json:"basement"`
	Parking      string   `json:"parking"`
	Quality      string   `json:"quality"`
	Extras       string   `json:"extras"`
	UnitLocation string   `json:"unit_location,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
}

// ComparisonPayload is the upstream subject plus comparables delivered on every refresh
type ComparisonPayload struct {
	Subject       PropertySnapshot   `json:"subject"`
	Comparables   []PropertySnapshot `json:"comparables"`
	EffectiveDate string             `json:"effective_date"`
}

// ComparableKey returns the identity used to match a comparable across payloads.
// Comparables without an id fall back to their 1-based position.
func ComparableKey(p PropertySnapshot, index int) string {
	if p.ID != "" {
		return p.ID
	}
	return "comparable-" + strconv.Itoa(index+1)
}

// Clone returns a deep copy of the snapshot
func (p PropertySnapshot) Clone() PropertySnapshot {
	p.Latitude = cloneFloat(p.Latitude)
	p.Longitude = cloneFloat(p.Longitude)
	return p
}

// Clone returns a deep copy of the payload
func (p ComparisonPayload) Clone() ComparisonPayload {
	p.Subject = p.Subject.Clone()
	if p.Comparables != nil {
		comparables := make([]PropertySnapshot, len(p.Comparables))
		for i, c := range p.Comparables {
			comparables[i] = c.Clone()
		}
		p.Comparables = comparables
	}
	return p
}
