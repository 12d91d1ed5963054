// Package interactions evaluates the interaction terms of a model against a
// resolved category set and classified demographics.
package interactions

import (
	"github.com/seenhealth/hccinfhir/hcc/models"
	"github.com/seenhealth/hccinfhir/hcc/tables"
)

// Evaluate returns the value of every interaction term the model defines,
// keyed by term name. Active terms carry 1, inactive terms 0; the map always
// covers the full catalog so callers can report both.
func Evaluate(d models.Demographics, resolved []string, t *tables.ModelTables) map[string]float64 {
	catalog := t.Catalog()

	retained := make(map[string]bool, len(resolved))
	for _, cc := range resolved {
		retained[cc] = true
	}

	out := make(map[string]float64, len(catalog.Defs))
	for _, def := range catalog.Defs {
		if active(def, catalog, d, retained) {
			out[def.Name] = 1
		} else {
			out[def.Name] = 0
		}
	}
	return out
}

// DemographicLinked returns the names of the model's demographic-linked
// terms. The scoring engine folds these into the demographics-only share.
func DemographicLinked(t *tables.ModelTables) map[string]bool {
	out := make(map[string]bool)
	for _, def := range t.Catalog().Defs {
		if def.DemographicLinked {
			out[def.Name] = true
		}
	}
	return out
}

func active(def tables.InteractionDef, catalog tables.Catalog, d models.Demographics, retained map[string]bool) bool {
	for _, cc := range def.Categories {
		if !retained[cc] {
			return false
		}
	}
	for _, group := range def.Groups {
		if !anyRetained(catalog.Groups[group], retained) {
			return false
		}
	}
	for _, flag := range def.Flags {
		if !flagHolds(flag, d) {
			return false
		}
	}
	if def.Category != "" && def.Category != d.Category {
		return false
	}
	if def.MinCount > 0 {
		count := len(retained)
		if count < def.MinCount {
			return false
		}
		if def.MaxCount > 0 && count > def.MaxCount {
			return false
		}
	}
	return true
}

func anyRetained(members []string, retained map[string]bool) bool {
	for _, cc := range members {
		if retained[cc] {
			return true
		}
	}
	return false
}

func flagHolds(flag tables.Flag, d models.Demographics) bool {
	medicaid := d.FBDual || d.PBDual
	switch flag {
	case tables.FlagDisabled:
		return d.Disabled
	case tables.FlagOrigDisabled:
		return d.OrigDisabled
	case tables.FlagNotOrigDisabled:
		return !d.OrigDisabled
	case tables.FlagFemale:
		return d.Sex == "F"
	case tables.FlagMale:
		return d.Sex == "M"
	case tables.FlagLTI:
		return d.LTI
	case tables.FlagMedicaid:
		return medicaid
	case tables.FlagNotMedicaid:
		return !medicaid
	case tables.FlagAged:
		return !d.NonAged
	case tables.FlagNonAged:
		return d.NonAged
	default:
		return false
	}
}
