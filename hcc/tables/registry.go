package tables

/******************************************************************************
This package owns the published rule tables behind every scoring model:
diagnosis to condition category mappings, category hierarchies, coefficient
tables, chronic-condition flags, the procedure allow-list, and the per-model
interaction catalogs.
Contents:
1. registry.go   Registry and per-model views
2. load.go       CSV ingest
3. catalog.go    interaction-term catalogs
4. sources.go    local / S3 / URL table sources
5. default.go    packaged table data
******************************************************************************/

import (
	"sort"
	"strings"

	"github.com/seenhealth/hccinfhir/hcc/models"
)

// Registry holds every rule table for every supported model. A Registry is
// immutable once Load returns it and is safe for concurrent readers.
type Registry struct {
	tables     map[models.Model]*ModelTables
	procedures map[string]struct{}
}

// ModelTables is the read-only view of one model's rules.
type ModelTables struct {
	model        models.Model
	dxToCC       map[string][]string
	suppresses   map[string][]string
	coefficients map[string]float64
	chronic      map[string]bool
	catalog      Catalog
	diagnoses    []string
}

var emptyTables = &ModelTables{}

// For returns the tables for one model. Every supported model has a view,
// possibly empty when the source carried no rows for it.
func (r *Registry) For(m models.Model) *ModelTables {
	if t, ok := r.tables[m]; ok {
		return t
	}
	return emptyTables
}

// EligibleProcedure reports whether a CPT/HCPCS code is on the
// risk-adjustment allow-list.
func (r *Registry) EligibleProcedure(code string) bool {
	_, ok := r.procedures[strings.ToUpper(strings.TrimSpace(code))]
	return ok
}

// ProcedureCount returns the size of the allow-list.
func (r *Registry) ProcedureCount() int {
	return len(r.procedures)
}

func (t *ModelTables) Model() models.Model {
	return t.model
}

// CategoriesForDiagnosis returns the condition categories a diagnosis code
// maps to, sorted. The code is normalized before lookup; unknown codes map
// to nothing.
func (t *ModelTables) CategoriesForDiagnosis(dx string) []string {
	ccs, ok := t.dxToCC[models.NormalizeDiagnosis(dx)]
	if !ok {
		return nil
	}
	out := make([]string, len(ccs))
	copy(out, ccs)
	return out
}

// Suppresses returns the categories a dominant category removes while it is
// itself retained.
func (t *ModelTables) Suppresses(cc string) []string {
	children, ok := t.suppresses[cc]
	if !ok {
		return nil
	}
	out := make([]string, len(children))
	copy(out, children)
	return out
}

// Coefficient resolves one fully prefixed table key, case-insensitively.
func (t *ModelTables) Coefficient(key string) (float64, bool) {
	v, ok := t.coefficients[strings.ToUpper(key)]
	return v, ok
}

// CoefficientCount returns the number of loaded coefficient rows.
func (t *ModelTables) CoefficientCount() int {
	return len(t.coefficients)
}

// IsChronic reports whether a condition category carries the chronic flag.
func (t *ModelTables) IsChronic(cc string) bool {
	return t.chronic[cc]
}

// Catalog returns the interaction-term catalog for the model.
func (t *ModelTables) Catalog() Catalog {
	return t.catalog
}

// Diagnoses returns every mapped diagnosis code, sorted. The synthetic
// cohort generator draws from this set.
func (t *ModelTables) Diagnoses() []string {
	out := make([]string, len(t.diagnoses))
	copy(out, t.diagnoses)
	return out
}

// trimCCPrefix strips the display prefix off a category identifier, so both
// "HCC19" and bare "19" address category 19.
func trimCCPrefix(cc string) string {
	return models.NormalizeCategory(cc)
}

func (t *ModelTables) finish() {
	for dx, ccs := range t.dxToCC {
		sort.Strings(ccs)
		t.dxToCC[dx] = ccs
		t.diagnoses = append(t.diagnoses, dx)
	}
	sort.Strings(t.diagnoses)
	for cc, children := range t.suppresses {
		sort.Strings(children)
		t.suppresses[cc] = children
	}
}
