package engine

import (
	"github.com/google/go-cmp/cmp"

	"appraisal/server/internal/models"
)

// PayloadDiff is the structural difference between the last processed payload and a new one
type PayloadDiff struct {
	Changed              bool     `json:"changed"`
	SubjectChanged       bool     `json:"subject_changed"`
	EffectiveDateChanged bool     `json:"effective_date_changed"`
	AddedComparables     []string `json:"added_comparables,omitempty"`
	ChangedComparables   []string `json:"changed_comparables,omitempty"`
	RemovedComparables   []string `json:"removed_comparables,omitempty"`
}

// Diff compares payloads by value. A nil prev means nothing has been processed yet.
func Diff(prev *models.ComparisonPayload, next models.ComparisonPayload) PayloadDiff {
	var d PayloadDiff
	if prev == nil {
		d.Changed = true
		d.SubjectChanged = true
		d.EffectiveDateChanged = true
		for i, c := range next.Comparables {
			d.AddedComparables = append(d.AddedComparables, models.ComparableKey(c, i))
		}
		return d
	}

	d.SubjectChanged = !cmp.Equal(prev.Subject, next.Subject)
	d.EffectiveDateChanged = prev.EffectiveDate != next.EffectiveDate

	previous := make(map[string]models.PropertySnapshot, len(prev.Comparables))
	for i, c := range prev.Comparables {
		previous[models.ComparableKey(c, i)] = c
	}

	seen := make(map[string]bool, len(next.Comparables))
	for i, c := range next.Comparables {
		key := models.ComparableKey(c, i)
		seen[key] = true
		old, ok := previous[key]
		switch {
		case !ok:
			d.AddedComparables = append(d.AddedComparables, key)
		case !cmp.Equal(old, c):
			d.ChangedComparables = append(d.ChangedComparables, key)
		}
	}
	for i, c := range prev.Comparables {
		if key := models.ComparableKey(c, i); !seen[key] {
			d.RemovedComparables = append(d.RemovedComparables, key)
		}
	}

	d.Changed = d.SubjectChanged || d.EffectiveDateChanged ||
		len(d.AddedComparables) > 0 || len(d.ChangedComparables) > 0 || len(d.RemovedComparables) > 0
	return d
}

func (d PayloadDiff) touches(key string) bool {
	if d.SubjectChanged || d.EffectiveDateChanged {
		return true
	}
	for _, k := range d.AddedComparables {
		if k == key {
			return true
		}
	}
	for _, k := range d.ChangedComparables {
		if k == key {
			return true
		}
	}
	return false
}
