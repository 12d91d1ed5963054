// Package dxcc maps diagnosis codes onto condition categories and keeps
// the provenance of every mapping.
package dxcc

import (
	"sort"

	"github.com/seenhealth/hccinfhir/hcc/models"
	"github.com/seenhealth/hccinfhir/hcc/tables"
)

// Mapping is the raw, pre-hierarchy outcome of mapping a code list. CCToDx
// records which normalized codes produced each category, including
// categories a hierarchy later suppresses.
type Mapping struct {
	Categories []string
	CCToDx     map[string][]string
}

// Map resolves every diagnosis code against the model's mapping table.
// Codes are normalized first; codes with no mapping contribute nothing. The
// returned categories and per-category code lists are sorted and free of
// duplicates.
func Map(codes []string, t *tables.ModelTables) Mapping {
	m := Mapping{CCToDx: make(map[string][]string)}

	seen := make(map[string]bool, len(codes))
	for _, raw := range codes {
		dx := models.NormalizeDiagnosis(raw)
		if dx == "" || seen[dx] {
			continue
		}
		seen[dx] = true
		for _, cc := range t.CategoriesForDiagnosis(dx) {
			m.CCToDx[cc] = append(m.CCToDx[cc], dx)
		}
	}

	m.Categories = make([]string, 0, len(m.CCToDx))
	for cc, dxs := range m.CCToDx {
		sort.Strings(dxs)
		m.CCToDx[cc] = dxs
		m.Categories = append(m.Categories, cc)
	}
	sort.Strings(m.Categories)
	return m
}
