package models

// Demographics carries the raw demographic inputs of a scoring call plus the
// fields derived by the classifier. Values are set once per call and never
// mutated afterwards, so a Demographics may be shared freely.
type Demographics struct {
	Age      int    `json:"age"`
	Sex      string `json:"sex"`
	DualCode string `json:"dual_elgbl_cd"`
	// Original and current reason for Medicare entitlement.
	OREC        string `json:"orec"`
	CREC        string `json:"crec"`
	NewEnrollee bool   `json:"new_enrollee"`
	SNP         bool   `json:"snp"`
	LowIncome   bool   `json:"low_income"`
	// Long-term institutional status.
	LTI bool `json:"lti"`
	// Months since kidney transplant, ESRD models only. Zero means not
	// applicable.
	GraftMonths int    `json:"graft_months,omitempty"`
	ESRD        bool   `json:"esrd"`
	Family      Family `json:"version"`

	// Derived by the classifier.
	Category     string `json:"category"`
	Disabled     bool   `json:"disabled"`
	OrigDisabled bool   `json:"orig_disabled"`
	NonAged      bool   `json:"non_aged"`
	// Full-benefit and partial-benefit dual eligibility.
	FBDual bool `json:"fbd"`
	PBDual bool `json:"pbd"`
}
