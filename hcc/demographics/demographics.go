// Package demographics classifies raw beneficiary attributes into the
// demographic category label and status flags the scoring pipeline keys
// off. Classification is pure: same inputs, same outputs, no table access.
package demographics

import (
	"strconv"
	"strings"

	hccErrors "github.com/seenhealth/hccinfhir/hcc/errors"
	"github.com/seenhealth/hccinfhir/hcc/models"
)

// Dual-eligibility code sets. Codes outside both sets, including "NA" and
// "00", classify as non-dual.
var (
	fullBenefitDualCodes    = map[string]bool{"02": true, "04": true, "08": true}
	partialBenefitDualCodes = map[string]bool{"01": true, "03": true, "05": true, "06": true}
)

var communityBands = []struct {
	max   int
	label string
}{
	{34, "0_34"},
	{44, "35_44"},
	{54, "45_54"},
	{59, "55_59"},
	{64, "60_64"},
	{69, "65_69"},
	{74, "70_74"},
	{79, "75_79"},
	{84, "80_84"},
	{89, "85_89"},
	{94, "90_94"},
}

// Classify validates the raw demographic inputs and returns a copy with the
// category label and derived flags populated for the given model. Inputs are
// rejected with a ValidationError before any computation; once validation
// passes, classification always succeeds.
func Classify(d models.Demographics, m models.Model) (models.Demographics, error) {
	if d.Age < 0 {
		return d, &hccErrors.ValidationError{Field: "age", Value: strconv.Itoa(d.Age), Msg: "must not be negative"}
	}
	sex, err := normalizeSex(d.Sex)
	if err != nil {
		return d, err
	}
	d.Sex = sex
	d.Family = m.Family()
	d.ESRD = m.ESRD()

	orec := strings.TrimSpace(d.OREC)
	if orec == "" {
		orec = "0"
	}

	d.Disabled = d.Age < 65 && orec != "0"
	d.OrigDisabled = orec == "1" && !d.Disabled
	d.NonAged = d.Age < 65

	d.FBDual = fullBenefitDualCodes[d.DualCode]
	d.PBDual = partialBenefitDualCodes[d.DualCode]

	age := d.Age
	if d.NewEnrollee && age == 64 && orec != "0" {
		// the new-enrollee tables treat a 64-year-old who entered through
		// disability as 65
		age = 65
	}

	if d.NewEnrollee {
		d.Category = "NE" + d.Sex + newEnrolleeBand(age)
	} else {
		d.Category = d.Sex + communityBand(age)
	}
	return d, nil
}

func normalizeSex(sex string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(sex)) {
	case "M", "1":
		return "M", nil
	case "F", "2":
		return "F", nil
	default:
		return "", &hccErrors.ValidationError{Field: "sex", Value: sex, Msg: "must be one of M, F, 1, 2"}
	}
}

func communityBand(age int) string {
	for _, b := range communityBands {
		if age <= b.max {
			return b.label
		}
	}
	return "95_GT"
}

// newEnrolleeBand matches communityBand except ages 65 through 69 get
// single-year bands.
func newEnrolleeBand(age int) string {
	if age >= 65 && age <= 69 {
		return strconv.Itoa(age)
	}
	return communityBand(age)
}
