// Package measurement parses free-form area strings into canonical numbers and renders them back.
package measurement

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// System is a unit system for area values
type System string

const (
	Imperial System = "imperial"
	Metric   System = "metric"
)

// SquareFeetPerSquareMeter is the fixed conversion ratio between the two systems
const SquareFeetPerSquareMeter = 10.764

// ParseSystem converts a raw string into a System, defaulting to Imperial
func ParseSystem(raw string) (System, bool) {
	switch System(strings.ToLower(strings.TrimSpace(raw))) {
	case Imperial:
		return Imperial, true
	case Metric:
		return Metric, true
	default:
		return Imperial, false
	}
}

// Other returns the opposite unit system
func (s System) Other() System {
	if s == Metric {
		return Imperial
	}
	return Metric
}

// Symbol returns the area unit symbol for the system
func (s System) Symbol() string {
	if s == Metric {
		return "m²"
	}
	return "ft²"
}

var numberPattern = regexp.MustCompile(`[-+]?\d[\d\s\x{00A0}.,']*`)

var (
	imperialMarkers = []string{"sqft", "ft", "feet", "foot", "pi", "pc", "sf"}
	metricMarkers   = []string{"sqm", "mc", "m"}
)

// side is one number found in a raw string, with its unit when a marker follows it
type side struct {
	value  float64
	system System
}

// ToCanonical returns the numeric value of raw in the target system.
// Strings with no numeric content yield 0.
func ToCanonical(raw any, target System) float64 {
	v, _ := canonical(raw, target)
	return v
}

// ToDisplay renders raw in the target system, e.g. "1800 ft²".
// Re-normalizing the result reproduces ToCanonical(raw, target).
// Input with no numeric content renders as an empty string.
func ToDisplay(raw any, target System) string {
	v, ok := canonical(raw, target)
	if !ok {
		return ""
	}
	return formatArea(v, target)
}

// ToDisplayFrom renders raw in the target system, reading untagged numbers in source.
// A value tagged in the target system upstream is kept as written.
func ToDisplayFrom(raw any, source, target System) string {
	if str, ok := raw.(string); ok {
		tagged, _ := parseSides(str)
		if v, ok := tagged[target]; ok {
			return formatArea(v, target)
		}
	}
	v, ok := canonical(raw, source)
	if !ok {
		return ""
	}
	return formatArea(convert(v, source, target), target)
}

// ToDualDisplay renders raw in the primary system followed by the other system,
// e.g. "1800 ft² / 167.22 m²".
func ToDualDisplay(raw any, primary System) string {
	v, ok := canonical(raw, primary)
	if !ok {
		return ""
	}
	return formatArea(v, primary) + " / " + formatArea(convert(v, primary, primary.Other()), primary.Other())
}

// ParseNumber extracts the first number from free text, returning 0 when there is none
func ParseNumber(raw string) float64 {
	v, ok := parseFirstNumber(raw)
	if !ok {
		return 0
	}
	return v
}

func canonical(raw any, target System) (float64, bool) {
	switch v := raw.(type) {
	case nil:
		return 0, false
	case float64:
		return finite(v)
	case float32:
		return finite(float64(v))
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		return canonicalString(v, target)
	default:
		return canonicalString(fmt.Sprint(v), target)
	}
}

func finite(v float64) (float64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func canonicalString(raw string, target System) (float64, bool) {
	tagged, untagged := parseSides(raw)
	if v, ok := tagged[target]; ok {
		return v, true
	}
	if v, ok := tagged[target.Other()]; ok {
		return convert(v, target.Other(), target), true
	}
	if len(untagged) > 0 {
		return untagged[0], true
	}
	return 0, false
}

// parseSides splits raw on "/" and keeps the first value per tagged system
func parseSides(raw string) (map[System]float64, []float64) {
	tagged := map[System]float64{}
	var untagged []float64

	for _, part := range strings.Split(raw, "/") {
		s, ok := parseSide(part)
		if !ok {
			continue
		}
		if s.system == "" {
			untagged = append(untagged, s.value)
			continue
		}
		if _, seen := tagged[s.system]; !seen {
			tagged[s.system] = s.value
		}
	}
	return tagged, untagged
}

func parseSide(part string) (side, bool) {
	loc := numberPattern.FindStringIndex(part)
	if loc == nil {
		return side{}, false
	}
	v, ok := parseNumber(part[loc[0]:loc[1]])
	if !ok {
		return side{}, false
	}
	return side{value: v, system: unitOf(part[loc[1]:])}, true
}

func unitOf(rest string) System {
	token := strings.ToLower(rest)
	token = strings.NewReplacer(" ", "", ".", "", "\u00a0", "").Replace(token)
	// "square feet", "square metres", "sq feet"
	for _, prefix := range []string{"square", "sq"} {
		if rest := strings.TrimPrefix(token, prefix); rest != token && rest != "" {
			token = rest
			break
		}
	}
	for _, m := range imperialMarkers {
		if strings.HasPrefix(token, m) {
			return Imperial
		}
	}
	for _, m := range metricMarkers {
		if strings.HasPrefix(token, m) {
			return Metric
		}
	}
	if strings.HasPrefix(token, "mè") || strings.HasPrefix(token, "mé") {
		return Metric
	}
	return ""
}

func parseFirstNumber(raw string) (float64, bool) {
	match := numberPattern.FindString(raw)
	if match == "" {
		return 0, false
	}
	return parseNumber(match)
}

// parseNumber accepts "1,800", "1 800", "167,2" and "1.234,5" style numbers
func parseNumber(s string) (float64, bool) {
	s = strings.NewReplacer(" ", "", "\u00a0", "", "'", "", "\t", "", "\n", "").Replace(s)
	s = strings.TrimRight(s, ".,")
	if s == "" {
		return 0, false
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		// one comma before three digits groups thousands, unless the integer part is zero
		grouped := len(s)-lastComma-1 == 3 && strings.TrimLeft(s[:lastComma], "+-") != "0"
		if strings.Count(s, ",") > 1 || grouped {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case lastDot >= 0:
		if strings.Count(s, ".") > 1 {
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return finite(v)
}

func convert(v float64, from, to System) float64 {
	if from == to {
		return v
	}
	if to == Imperial {
		return round2(v * SquareFeetPerSquareMeter)
	}
	return round2(v / SquareFeetPerSquareMeter)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func formatArea(v float64, s System) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + s.Symbol()
}

// Format renders a canonical value tagged with its system, e.g. "167.2 m²"
func Format(v float64, s System) string {
	return formatArea(v, s)
}
