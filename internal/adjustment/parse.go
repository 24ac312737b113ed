package adjustment

import (
	"strings"
	"time"

	"appraisal/server/internal/measurement"
)

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01",
	"January 2, 2006",
	"Jan 2, 2006",
}

func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// MonthsBetween returns the months from sale to effective date: calendar months plus the
// day difference over 30. Missing or malformed dates yield 0.
func MonthsBetween(saleDate, effectiveDate string) float64 {
	sale, ok := parseDate(saleDate)
	if !ok {
		return 0
	}
	effective, ok := parseDate(effectiveDate)
	if !ok {
		return 0
	}
	months := (effective.Year()-sale.Year())*12 + int(effective.Month()) - int(sale.Month())
	return float64(months) + float64(effective.Day()-sale.Day())/30
}

// ParseBathrooms decodes a "full:half" bathroom count. A bare number is a full count.
func ParseBathrooms(raw string) (full, half float64) {
	parts := strings.SplitN(raw, ":", 2)
	full = measurement.ParseNumber(parts[0])
	if len(parts) == 2 {
		half = measurement.ParseNumber(parts[1])
	}
	return full, half
}

var garageWords = []string{"garage", "carport", "abri", "stationnement", "parking"}

// ParseParkingSpaces counts spaces in a parking description: the first number when present,
// otherwise 1 when a garage is mentioned.
func ParseParkingSpaces(raw string) float64 {
	lower := strings.ToLower(raw)
	if strings.Contains(lower, "none") || strings.Contains(lower, "aucun") {
		return 0
	}
	if n := measurement.ParseNumber(lower); n != 0 {
		return n
	}
	for _, w := range garageWords {
		if strings.Contains(lower, w) {
			return 1
		}
	}
	return 0
}

var cornerWords = []string{"corner", "coin", "end unit", "d'extrémité"}

// IsCornerUnit reports whether a unit-location descriptor marks a corner unit
func IsCornerUnit(raw string) bool {
	lower := strings.ToLower(raw)
	for _, w := range cornerWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
