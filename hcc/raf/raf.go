// Package raf wires the scoring pipeline together: demographic
// classification, diagnosis mapping, hierarchy resolution, interaction
// evaluation and coefficient accumulation, assembled into one result.
package raf

import (
	"sort"

	"github.com/seenhealth/hccinfhir/hcc/coefficients"
	"github.com/seenhealth/hccinfhir/hcc/demographics"
	"github.com/seenhealth/hccinfhir/hcc/dxcc"
	"github.com/seenhealth/hccinfhir/hcc/filter"
	"github.com/seenhealth/hccinfhir/hcc/hierarchy"
	"github.com/seenhealth/hccinfhir/hcc/interactions"
	"github.com/seenhealth/hccinfhir/hcc/models"
	"github.com/seenhealth/hccinfhir/hcc/tables"
	"github.com/seenhealth/hccinfhir/log"
	"github.com/sirupsen/logrus"
)

// ScoreOptions selects the model and describes the beneficiary. Either
// Model or ModelName must be set; a raw name is parsed and rejected before
// any table access.
type ScoreOptions struct {
	Model       models.Model
	ModelName   string
	Age         int
	Sex         string
	DualCode    string
	OREC        string
	CREC        string
	NewEnrollee bool
	SNP         bool
	LowIncome   bool
	LTI         bool
	GraftMonths int

	// ReferenceCodes and Provenance echo through ScoreFromCategories
	// untouched, for callers replaying a mapping they already hold. The
	// diagnosis entry points ignore them.
	ReferenceCodes []string
	Provenance     map[string][]string
}

func (o ScoreOptions) model() (models.Model, error) {
	if o.Model != models.ModelUnknown {
		return o.Model, nil
	}
	return models.Parse(o.ModelName)
}

func (o ScoreOptions) demographics() models.Demographics {
	return models.Demographics{
		Age:         o.Age,
		Sex:         o.Sex,
		DualCode:    o.DualCode,
		OREC:        o.OREC,
		CREC:        o.CREC,
		NewEnrollee: o.NewEnrollee,
		SNP:         o.SNP,
		LowIncome:   o.LowIncome,
		LTI:         o.LTI,
		GraftMonths: o.GraftMonths,
	}
}

// Calculator scores beneficiaries against the rule tables of one registry.
// It is stateless beyond the registry and safe for concurrent use.
type Calculator struct {
	reg *tables.Registry
}

func New(reg *tables.Registry) *Calculator {
	return &Calculator{reg: reg}
}

// Score runs the full pipeline from raw diagnosis codes.
func (c *Calculator) Score(diagnosisCodes []string, opts ScoreOptions) (models.RAFResult, error) {
	m, err := opts.model()
	if err != nil {
		return models.RAFResult{}, err
	}
	d, err := demographics.Classify(opts.demographics(), m)
	if err != nil {
		return models.RAFResult{}, err
	}

	t := c.reg.For(m)
	mapping := dxcc.Map(diagnosisCodes, t)
	return c.assemble(d, m, t, mapping.Categories, mapping.CCToDx, diagnosisCodes), nil
}

// ScoreFromCategories scores an already-mapped category set, bypassing
// diagnosis mapping. Input categories are normalized, deduplicated and
// sorted before resolution; reference codes and provenance from the options
// echo through to the result.
func (c *Calculator) ScoreFromCategories(categories []string, opts ScoreOptions) (models.RAFResult, error) {
	m, err := opts.model()
	if err != nil {
		return models.RAFResult{}, err
	}
	d, err := demographics.Classify(opts.demographics(), m)
	if err != nil {
		return models.RAFResult{}, err
	}

	return c.assemble(d, m, c.reg.For(m), canonicalCategories(categories), opts.Provenance, opts.ReferenceCodes), nil
}

// ScoreServiceData filters claim lines down to the risk-adjustment eligible
// ones, collects their distinct diagnosis codes and scores those. The
// eligible lines are echoed in the result.
func (c *Calculator) ScoreServiceData(lines []models.ServiceLevelData, opts ScoreOptions) (models.RAFResult, error) {
	eligible := filter.EligibleLines(lines, c.reg)
	log.Engine.WithFields(logrus.Fields{
		"lines":    len(lines),
		"eligible": len(eligible),
	}).Debug("filtered service lines")

	result, err := c.Score(filter.DiagnosisCodes(eligible), opts)
	if err != nil {
		return models.RAFResult{}, err
	}
	result.ServiceLevelData = eligible
	return result, nil
}

func (c *Calculator) assemble(d models.Demographics, m models.Model, t *tables.ModelTables,
	categories []string, ccToDx map[string][]string, diagnosisCodes []string) models.RAFResult {

	resolved := hierarchy.Resolve(categories, t)
	inter := interactions.Evaluate(d, resolved, t)
	b := coefficients.Score(d, resolved, inter, t)

	if ccToDx == nil {
		ccToDx = map[string][]string{}
	}
	return models.RAFResult{
		RiskScore:             b.Total,
		RiskScoreDemographics: b.Demographics,
		RiskScoreChronicOnly:  b.ChronicOnly,
		RiskScoreHCC:          b.ConditionOnly,
		CCList:                resolved,
		CCToDx:                ccToDx,
		Coefficients:          b.Coefficients,
		Interactions:          inter,
		Demographics:          d,
		ModelName:             m.String(),
		Version:               m.Family(),
		DiagnosisCodes:        diagnosisCodes,
	}
}

func canonicalCategories(categories []string) []string {
	seen := make(map[string]bool, len(categories))
	out := make([]string, 0, len(categories))
	for _, raw := range categories {
		cc := models.NormalizeCategory(raw)
		if cc == "" || seen[cc] {
			continue
		}
		seen[cc] = true
		out = append(out, cc)
	}
	sort.Strings(out)
	return out
}
