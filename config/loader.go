package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"appraisal/server/internal/models"
)

// OrganizationPresets are the rate presets of one organization
type OrganizationPresets struct {
	ID    string                                       `json:"id"`
	Rates map[models.PropertyType]models.DefaultRates `json:"rates"`
}

// PresetFile is the on-disk shape of a rate preset seed file
type PresetFile struct {
	Organizations []OrganizationPresets `json:"organizations"`
}

// LoadPresetFile reads and validates a rate preset seed file
func LoadPresetFile(path string) (*PresetFile, error) {
	// Get absolute path to config file
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read preset file: %w", err)
	}

	var file PresetFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse preset file: %w", err)
	}

	seen := make(map[string]bool, len(file.Organizations))
	for _, org := range file.Organizations {
		if org.ID == "" {
			return nil, fmt.Errorf("preset file organization without id")
		}
		if seen[org.ID] {
			return nil, fmt.Errorf("duplicate organization %q in preset file", org.ID)
		}
		seen[org.ID] = true

		for pt := range org.Rates {
			if !pt.IsValid() {
				return nil, fmt.Errorf("organization %q: %w: %s", org.ID, models.ErrInvalidPropertyType, pt)
			}
		}
	}

	return &file, nil
}

// Presets returns the presets of one organization, or nil when the file has none
func (f *PresetFile) Presets(organizationID string) map[models.PropertyType]models.DefaultRates {
	if f == nil {
		return nil
	}
	for _, org := range f.Organizations {
		if org.ID == organizationID {
			return org.Rates
		}
	}
	return nil
}
