package models

import (
	"strings"

	hccErrors "github.com/seenhealth/hccinfhir/hcc/errors"
)

// Family identifies which demographic classification and coefficient layout
// a model uses.
type Family string

const (
	// FamilyV2 covers the community and ESRD CMS-HCC models.
	FamilyV2 Family = "V2"
	// FamilyV4 covers the prescription drug (RxHCC) models.
	FamilyV4 Family = "V4"
	// FamilyV6 covers the marketplace (HHS-HCC) models. No marketplace model
	// ships with this module; the tag exists so classification stays
	// exhaustive.
	FamilyV6 Family = "V6"
)

// Model enumerates the supported risk-adjustment models. The set is closed:
// every operation that takes a Model can rely on exhaustive switches, and
// Parse rejects names outside it.
type Model uint8

const (
	ModelUnknown Model = iota
	CMSHCCV22
	CMSHCCV24
	CMSHCCV28
	CMSHCCESRDV21
	CMSHCCESRDV24
	RxHCCV05
	RxHCCV08
)

var modelNames = map[Model]string{
	CMSHCCV22:     "CMS-HCC Model V22",
	CMSHCCV24:     "CMS-HCC Model V24",
	CMSHCCV28:     "CMS-HCC Model V28",
	CMSHCCESRDV21: "CMS-HCC ESRD Model V21",
	CMSHCCESRDV24: "CMS-HCC ESRD Model V24",
	RxHCCV05:      "RxHCC Model V05",
	RxHCCV08:      "RxHCC Model V08",
}

// ordered for stable listings
var allModels = []Model{
	CMSHCCV22,
	CMSHCCV24,
	CMSHCCV28,
	CMSHCCESRDV21,
	CMSHCCESRDV24,
	RxHCCV05,
	RxHCCV08,
}

func (m Model) String() string {
	if name, ok := modelNames[m]; ok {
		return name
	}
	return "unknown"
}

// Family maps each model to its classification family.
func (m Model) Family() Family {
	switch m {
	case RxHCCV05, RxHCCV08:
		return FamilyV4
	case CMSHCCV22, CMSHCCV24, CMSHCCV28, CMSHCCESRDV21, CMSHCCESRDV24:
		return FamilyV2
	default:
		return FamilyV2
	}
}

// ESRD reports whether the model scores the end-stage renal disease
// population (dialysis, transplant, functioning graft).
func (m Model) ESRD() bool {
	return m == CMSHCCESRDV21 || m == CMSHCCESRDV24
}

// Rx reports whether the model is a prescription drug model.
func (m Model) Rx() bool {
	return m == RxHCCV05 || m == RxHCCV08
}

// Parse resolves a display name to its Model. Unknown names fail with an
// UnsupportedModelError carrying the supported set; there is no default
// model and no fuzzy matching.
func Parse(name string) (Model, error) {
	trimmed := strings.TrimSpace(name)
	for _, m := range allModels {
		if modelNames[m] == trimmed {
			return m, nil
		}
	}
	return ModelUnknown, &hccErrors.UnsupportedModelError{Name: name, Supported: SupportedModels()}
}

// SupportedModels returns the display names of every supported model in a
// stable order.
func SupportedModels() []string {
	names := make([]string, 0, len(allModels))
	for _, m := range allModels {
		names = append(names, modelNames[m])
	}
	return names
}

// All returns every supported model in a stable order.
func All() []Model {
	out := make([]Model, len(allModels))
	copy(out, allModels)
	return out
}
