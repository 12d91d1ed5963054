// Package filter keeps the claim lines whose diagnoses are allowed into
// risk adjustment. The rules follow the CMS encounter-data filtering logic:
// a line qualifies by its type of bill, or for professional and outpatient
// lines, by its procedure code.
package filter

import (
	"github.com/seenhealth/hccinfhir/hcc/models"
)

// Allowlist answers whether a CPT/HCPCS code is risk-adjustment eligible.
// *tables.Registry satisfies it; tests can substitute their own.
type Allowlist interface {
	EligibleProcedure(code string) bool
}

var (
	inpatientTOB = map[string]bool{
		"11X": true,
		"41X": true,
	}
	outpatientTOB = map[string]bool{
		"12X": true,
		"13X": true,
		"43X": true,
		"71X": true,
		"73X": true,
		"76X": true,
		"77X": true,
		"85X": true,
		"87X": true,
	}
)

// EligibleLines returns the service lines that qualify for risk adjustment.
// Lines without facility and service type are professional and qualify by
// procedure code alone. Inpatient bills qualify unconditionally; outpatient
// bills qualify by procedure code; every other type of bill is dropped.
func EligibleLines(lines []models.ServiceLevelData, allow Allowlist) []models.ServiceLevelData {
	out := make([]models.ServiceLevelData, 0, len(lines))
	for _, line := range lines {
		if eligible(line, allow) {
			out = append(out, line)
		}
	}
	return out
}

func eligible(line models.ServiceLevelData, allow Allowlist) bool {
	if professional(line) {
		return allow.EligibleProcedure(line.ProcedureCode)
	}
	tob := line.FacilityType + line.ServiceType + "X"
	switch {
	case inpatientTOB[tob]:
		return true
	case outpatientTOB[tob]:
		return allow.EligibleProcedure(line.ProcedureCode)
	default:
		return false
	}
}

// professional reports a line with no institutional bill type.
func professional(line models.ServiceLevelData) bool {
	return line.FacilityType == "" || line.ServiceType == ""
}

// DiagnosisCodes collects the distinct diagnosis codes of the given lines,
// linked and claim-level, in first-seen order.
func DiagnosisCodes(lines []models.ServiceLevelData) []string {
	var out []string
	seen := make(map[string]bool)
	for _, line := range lines {
		for _, dx := range line.LinkedDiagnosisCodes {
			if dx != "" && !seen[dx] {
				seen[dx] = true
				out = append(out, dx)
			}
		}
		for _, dx := range line.ClaimDiagnosisCodes {
			if dx != "" && !seen[dx] {
				seen[dx] = true
				out = append(out, dx)
			}
		}
	}
	return out
}
