package models

// RAFResult is the full breakdown of one scoring call. The JSON field names
// are the published result shape and are kept stable for API consumers.
type RAFResult struct {
	// RiskScore is the total: demographics plus retained conditions plus
	// interactions. It always equals RiskScoreDemographics + RiskScoreHCC
	// exactly, because it is constructed as that sum.
	RiskScore float64 `json:"risk_score"`
	// RiskScoreDemographics covers the demographic category and the
	// demographic-linked interactions only.
	RiskScoreDemographics float64 `json:"risk_score_demographics"`
	// RiskScoreChronicOnly covers chronic-flagged retained categories, net
	// of the demographic share.
	RiskScoreChronicOnly float64 `json:"risk_score_chronic_only"`
	// RiskScoreHCC is the condition-only share of the total.
	RiskScoreHCC float64 `json:"risk_score_hcc"`

	// CCList is the retained (post-hierarchy) category set, sorted.
	CCList []string `json:"hcc_list"`
	// CCToDx maps every mapped category, including ones later suppressed by
	// a hierarchy, to the diagnosis codes that produced it.
	CCToDx map[string][]string `json:"cc_to_dx"`
	// Coefficients holds every term that contributed weight to the total,
	// keyed by term name: the demographic category label, the bare
	// condition category, or the interaction name.
	Coefficients map[string]float64 `json:"coefficients"`
	// Interactions holds every interaction defined for the model, active or
	// not.
	Interactions map[string]float64 `json:"interactions"`

	Demographics   Demographics `json:"demographics"`
	ModelName      string       `json:"model_name"`
	Version        Family       `json:"version"`
	DiagnosisCodes []string     `json:"diagnosis_codes,omitempty"`
	// ServiceLevelData echoes the eligible claim lines a claims-path score
	// was computed from. Empty for the other entry points.
	ServiceLevelData []ServiceLevelData `json:"service_level_data,omitempty"`
}
