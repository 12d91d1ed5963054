package tables

import (
	"fmt"

	"github.com/seenhealth/hccinfhir/hcc/models"
)

// Flag names one demographic condition an interaction term can require.
type Flag string

const (
	FlagDisabled        Flag = "disabled"
	FlagOrigDisabled    Flag = "orig_disabled"
	FlagNotOrigDisabled Flag = "not_orig_disabled"
	FlagFemale          Flag = "female"
	FlagMale            Flag = "male"
	FlagLTI             Flag = "lti"
	FlagMedicaid        Flag = "medicaid"
	FlagNotMedicaid     Flag = "not_medicaid"
	FlagAged            Flag = "aged"
	FlagNonAged         Flag = "non_aged"
)

// InteractionDef is one interaction term. The term is active when every
// listed condition holds: all Categories retained, at least one retained
// member in each named Group, all Flags true, and the demographic category
// equal to Category when set. Count-bucket terms set MinCount (MaxCount zero
// means unbounded) and activate on the retained-category count instead.
//
// DemographicLinked marks the terms whose weight belongs to the
// demographics-only score: Medicaid and originally-disabled new-enrollee
// cells, institutional status, and originally-disabled by sex.
type InteractionDef struct {
	Name              string
	Categories        []string
	Groups            []string
	Flags             []Flag
	Category          string
	MinCount          int
	MaxCount          int
	DemographicLinked bool
}

// Catalog is the full interaction-term definition set for one model.
type Catalog struct {
	Groups map[string][]string
	Defs   []InteractionDef
}

// CatalogFor returns the interaction catalog for a model. Catalogs are
// built fresh so callers can hold them without aliasing shared state.
func CatalogFor(m models.Model) Catalog {
	switch m {
	case models.CMSHCCV22, models.CMSHCCESRDV21:
		return catalogV22(m)
	case models.CMSHCCV24, models.CMSHCCESRDV24:
		return catalogV24(m)
	case models.CMSHCCV28:
		return catalogV28()
	case models.RxHCCV05, models.RxHCCV08:
		return catalogRx()
	default:
		return Catalog{Groups: map[string][]string{}}
	}
}

func catalogV22(m models.Model) Catalog {
	c := Catalog{
		Groups: map[string][]string{
			"gSepsis":       {"2"},
			"gCancer":       {"8", "9", "10", "11", "12"},
			"gImmune":       {"47"},
			"gDiabetes":     {"17", "18", "19"},
			"gCHF":          {"85"},
			"gCOPD":         {"110", "111"},
			"gRenal":        {"134", "135", "136", "137", "138", "139", "140", "141"},
			"gCardRespFail": {"82", "83", "84"},
		},
		Defs: []InteractionDef{
			{Name: "SEPSIS_CARD_RESP_FAIL", Groups: []string{"gSepsis", "gCardRespFail"}},
			{Name: "CANCER_IMMUNE", Groups: []string{"gCancer", "gImmune"}},
			{Name: "DIABETES_CHF", Groups: []string{"gDiabetes", "gCHF"}},
			{Name: "CHF_COPD", Groups: []string{"gCHF", "gCOPD"}},
			{Name: "CHF_RENAL", Groups: []string{"gCHF", "gRenal"}},
			{Name: "COPD_CARD_RESP_FAIL", Groups: []string{"gCOPD", "gCardRespFail"}},
			{Name: "DISABLED_HCC6", Categories: []string{"6"}, Flags: []Flag{FlagDisabled}},
			{Name: "DISABLED_HCC34", Categories: []string{"34"}, Flags: []Flag{FlagDisabled}},
			{Name: "DISABLED_HCC46", Categories: []string{"46"}, Flags: []Flag{FlagDisabled}},
			{Name: "DISABLED_HCC54", Categories: []string{"54"}, Flags: []Flag{FlagDisabled}},
			{Name: "DISABLED_HCC55", Categories: []string{"55"}, Flags: []Flag{FlagDisabled}},
			{Name: "DISABLED_HCC110", Categories: []string{"110"}, Flags: []Flag{FlagDisabled}},
			{Name: "DISABLED_HCC176", Categories: []string{"176"}, Flags: []Flag{FlagDisabled}},
		},
	}
	appendCommon(&c, m != models.CMSHCCESRDV21)
	return c
}

func catalogV24(m models.Model) Catalog {
	c := Catalog{
		Groups: map[string][]string{
			"gCancer":               {"8", "9", "10", "11", "12"},
			"gDiabetesMellit":       {"17", "18", "19"},
			"gCopdCF":               {"110", "111", "112"},
			"gRenal_V24":            {"134", "135", "136", "137", "138"},
			"gRespDepandArre":       {"82", "83", "84"},
			"gSubstanceUseDisorder": {"54", "55", "56"},
			"gPsychiatric":          {"57", "58", "59", "60"},
			"gPressureUlcer":        {"157", "158", "159", "160"},
		},
		Defs: []InteractionDef{
			{Name: "HCC47_gCancer", Categories: []string{"47"}, Groups: []string{"gCancer"}},
			{Name: "HCC85_gDiabetesMellit", Categories: []string{"85"}, Groups: []string{"gDiabetesMellit"}},
			{Name: "HCC85_gCopdCF", Categories: []string{"85"}, Groups: []string{"gCopdCF"}},
			{Name: "HCC85_gRenal_V24", Categories: []string{"85"}, Groups: []string{"gRenal_V24"}},
			{Name: "gRespDepandArre_gCopdCF", Groups: []string{"gRespDepandArre", "gCopdCF"}},
			{Name: "HCC85_HCC96", Categories: []string{"85", "96"}},
			{Name: "gSubstanceUseDisorder_gPsych", Groups: []string{"gSubstanceUseDisorder", "gPsychiatric"}},
			{Name: "DISABLED_HCC85", Categories: []string{"85"}, Flags: []Flag{FlagDisabled}},
			{Name: "DISABLED_PRESSURE_ULCER", Groups: []string{"gPressureUlcer"}, Flags: []Flag{FlagDisabled}},
			{Name: "DISABLED_HCC161", Categories: []string{"161"}, Flags: []Flag{FlagDisabled}},
			{Name: "DISABLED_HCC39", Categories: []string{"39"}, Flags: []Flag{FlagDisabled}},
			{Name: "DISABLED_HCC77", Categories: []string{"77"}, Flags: []Flag{FlagDisabled}},
			{Name: "DISABLED_HCC6", Categories: []string{"6"}, Flags: []Flag{FlagDisabled}},
		},
	}
	appendCommon(&c, m != models.CMSHCCESRDV24)
	return c
}

func catalogV28() Catalog {
	c := Catalog{
		Groups: map[string][]string{
			"gCancer_V28":         {"17", "18", "19", "20", "21", "22", "23"},
			"gDiabetes_V28":       {"35", "36", "37", "38"},
			"gHeartFailure_V28":   {"221", "222", "223", "224", "225", "226"},
			"gChrLung_V28":        {"276", "277", "278", "279", "280"},
			"gKidney_V28":         {"326", "327", "328", "329"},
			"gCardRespFail_V28":   {"211", "212", "213"},
			"gSubUseDisorder_V28": {"135", "136", "137", "138", "139"},
			"gPsychiatric_V28":    {"151", "152", "153", "154", "155"},
			"gNeuro_V28":          {"180", "181", "182", "190", "191", "192", "193", "195", "196"},
			"gUlcer_V28":          {"379", "380", "381", "382"},
		},
		Defs: []InteractionDef{
			{Name: "DIABETES_HF_V28", Groups: []string{"gDiabetes_V28", "gHeartFailure_V28"}},
			{Name: "HF_CHR_LUNG_V28", Groups: []string{"gHeartFailure_V28", "gChrLung_V28"}},
			{Name: "HF_KIDNEY_V28", Groups: []string{"gHeartFailure_V28", "gKidney_V28"}},
			{Name: "CHR_LUNG_CARD_RESP_FAIL_V28", Groups: []string{"gChrLung_V28", "gCardRespFail_V28"}},
			{Name: "HF_HCC238_V28", Categories: []string{"238"}, Groups: []string{"gHeartFailure_V28"}},
			{Name: "gSubUseDisorder_gPsych_V28", Groups: []string{"gSubUseDisorder_V28", "gPsychiatric_V28"}},
			{Name: "DISABLED_CANCER_V28", Groups: []string{"gCancer_V28"}, Flags: []Flag{FlagDisabled}},
			{Name: "DISABLED_NEURO_V28", Groups: []string{"gNeuro_V28"}, Flags: []Flag{FlagDisabled}},
			{Name: "DISABLED_HF_V28", Groups: []string{"gHeartFailure_V28"}, Flags: []Flag{FlagDisabled}},
			{Name: "DISABLED_CHR_LUNG_V28", Groups: []string{"gChrLung_V28"}, Flags: []Flag{FlagDisabled}},
			{Name: "DISABLED_ULCER_V28", Groups: []string{"gUlcer_V28"}, Flags: []Flag{FlagDisabled}},
		},
	}
	appendCommon(&c, true)
	return c
}

// catalogRx covers the prescription drug models: demographic terms only, no
// disease interactions and no payment-count buckets.
func catalogRx() Catalog {
	c := Catalog{Groups: map[string][]string{}}
	c.Defs = append(c.Defs, demographicDefs()...)
	return c
}

// appendCommon adds the terms every community model shares: payment-count
// buckets (community models only), the demographic status terms, and the
// new-enrollee cells.
func appendCommon(c *Catalog, withCounts bool) {
	if withCounts {
		for n := 1; n <= 9; n++ {
			c.Defs = append(c.Defs, InteractionDef{
				Name:     fmt.Sprintf("D%d", n),
				MinCount: n,
				MaxCount: n,
			})
		}
		c.Defs = append(c.Defs, InteractionDef{Name: "D10P", MinCount: 10})
	}
	c.Defs = append(c.Defs, demographicDefs()...)
	c.Defs = append(c.Defs, newEnrolleeCells()...)
}

func demographicDefs() []InteractionDef {
	return []InteractionDef{
		{Name: "LTI_Aged", Flags: []Flag{FlagLTI, FlagAged}, DemographicLinked: true},
		{Name: "LTI_NonAged", Flags: []Flag{FlagLTI, FlagNonAged}, DemographicLinked: true},
		{Name: "OriginallyDisabled_Female", Flags: []Flag{FlagOrigDisabled, FlagFemale}, DemographicLinked: true},
		{Name: "OriginallyDisabled_Male", Flags: []Flag{FlagOrigDisabled, FlagMale}, DemographicLinked: true},
	}
}

var neBands = []string{
	"0_34", "35_44", "45_54", "55_59", "60_64",
	"65", "66", "67", "68", "69",
	"70_74", "75_79", "80_84", "85_89", "90_94", "95_GT",
}

// newEnrolleeCells expands the Medicaid by originally-disabled new-enrollee
// grid, one term per sex and band. Cells activate on category equality, so
// they stay at zero for every continuing enrollee.
func newEnrolleeCells() []InteractionDef {
	combos := []struct {
		label string
		flags []Flag
	}{
		{"NMCAID_NORIGDIS", []Flag{FlagNotMedicaid, FlagNotOrigDisabled}},
		{"NMCAID_ORIGDIS", []Flag{FlagNotMedicaid, FlagOrigDisabled}},
		{"MCAID_NORIGDIS", []Flag{FlagMedicaid, FlagNotOrigDisabled}},
		{"MCAID_ORIGDIS", []Flag{FlagMedicaid, FlagOrigDisabled}},
	}
	var defs []InteractionDef
	for _, combo := range combos {
		for _, sex := range []string{"F", "M"} {
			for _, band := range neBands {
				category := "NE" + sex + band
				defs = append(defs, InteractionDef{
					Name:              combo.label + "_" + category,
					Category:          category,
					Flags:             combo.flags,
					DemographicLinked: true,
				})
			}
		}
	}
	return defs
}
