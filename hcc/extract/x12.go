package extract

import (
	"strconv"
	"strings"

	"github.com/seenhealth/hccinfhir/hcc/models"
)

// Extract837 reads an X12 837 transaction, professional or institutional,
// into service-level rows. Segments split on '~', elements on '*',
// components on ':' (separators re-read from the ISA envelope when
// present). Content the parser cannot read is skipped, never fatal: a
// malformed transaction yields fewer rows, not an error or a panic.
func Extract837(raw string) []models.ServiceLevelData {
	p := &x12Parser{element: "*", component: ":"}
	for _, seg := range strings.Split(raw, "~") {
		p.segment(strings.TrimSpace(seg))
	}
	p.flushClaim()
	if p.out == nil {
		return []models.ServiceLevelData{}
	}
	return p.out
}

type x12Parser struct {
	element   string
	component string

	// Loop state carried into the next CLM.
	patientID  string
	billingNPI string
	specialty  string

	claim *x12Claim
	out   []models.ServiceLevelData
}

// x12Claim accumulates one 2300 loop. Lines are flushed when the next
// claim, transaction, or the end of input closes the loop.
type x12Claim struct {
	id             string
	patientID      string
	billingNPI     string
	specialty      string
	renderingNPI   string
	facilityType   string
	serviceType    string
	placeOfService string
	dx             []string
	lines          []models.ServiceLevelData
}

func (p *x12Parser) segment(seg string) {
	if seg == "" {
		return
	}
	// ISA fixes the element separator in its fourth byte.
	if strings.HasPrefix(seg, "ISA") && len(seg) > 3 {
		p.element = string(seg[3])
	}
	elems := strings.Split(seg, p.element)
	switch elems[0] {
	case "ISA":
		if len(elems) > 16 && elems[16] != "" {
			p.component = elems[16]
		}
	case "ST":
		p.flushClaim()
		p.patientID, p.billingNPI, p.specialty = "", "", ""
	case "NM1":
		p.name(elems)
	case "PRV":
		if len(elems) > 3 && elems[3] != "" {
			if p.claim != nil {
				p.claim.specialty = elems[3]
			} else {
				p.specialty = elems[3]
			}
		}
	case "CLM":
		p.flushClaim()
		p.claim = &x12Claim{
			patientID:  p.patientID,
			billingNPI: p.billingNPI,
			specialty:  p.specialty,
		}
		if len(elems) > 1 {
			p.claim.id = elems[1]
		}
		if len(elems) > 5 {
			p.claimFacility(elems[5])
		}
	case "HI":
		p.diagnoses(elems)
	case "SV1":
		p.professionalLine(elems)
	case "SV2":
		p.institutionalLine(elems)
	case "DTP":
		p.serviceDate(elems)
	}
}

// name reads the NM1 loops this extractor cares about: subscriber and
// patient identifiers, billing provider NPI, rendering provider NPI. The
// identification code sits in NM109 behind its qualifier.
func (p *x12Parser) name(elems []string) {
	if len(elems) < 2 {
		return
	}
	id := ""
	if len(elems) > 9 {
		id = elems[9]
	}
	if id == "" {
		return
	}
	switch elems[1] {
	case "IL", "QC":
		p.patientID = id
	case "85":
		if p.claim != nil {
			p.claim.billingNPI = id
		} else {
			p.billingNPI = id
		}
	case "82":
		if p.claim != nil {
			p.claim.renderingNPI = id
		}
	}
}

// claimFacility reads the CLM05 composite. Qualifier A marks a uniform
// bill type (institutional): first character facility type, second service
// classification. Qualifier B marks a place of service (professional).
func (p *x12Parser) claimFacility(composite string) {
	comps := strings.Split(composite, p.component)
	code := comps[0]
	if code == "" {
		return
	}
	qualifier := ""
	if len(comps) > 1 {
		qualifier = comps[1]
	}
	if qualifier == "A" && len(code) >= 2 {
		p.claim.facilityType = code[:1]
		p.claim.serviceType = code[1:2]
		return
	}
	p.claim.placeOfService = code
}

// diagnoses reads HI composites. Only diagnosis qualifiers are taken:
// ABK/ABF for ICD-10, BK/BF for ICD-9. Order is preserved because SV1
// diagnosis pointers index into it.
func (p *x12Parser) diagnoses(elems []string) {
	if p.claim == nil {
		return
	}
	for _, elem := range elems[1:] {
		comps := strings.Split(elem, p.component)
		if len(comps) < 2 || comps[1] == "" {
			continue
		}
		switch comps[0] {
		case "ABK", "ABF", "BK", "BF":
			p.claim.dx = append(p.claim.dx, comps[1])
		}
	}
}

// professionalLine reads SV1. A line without a procedure code in SV101 is
// not a service line and is dropped.
func (p *x12Parser) professionalLine(elems []string) {
	if p.claim == nil || len(elems) < 2 {
		return
	}
	code, mods := splitProcedure(elems[1], p.component)
	if code == "" {
		return
	}
	line := models.ServiceLevelData{
		ClaimType:     "professional",
		ProcedureCode: code,
		Modifiers:     mods,
		Quantity:      parseQuantity(elems, 4),
	}
	if len(elems) > 5 && elems[5] != "" {
		line.PlaceOfService = elems[5]
	}
	if len(elems) > 7 {
		line.LinkedDiagnosisCodes = p.claim.pointers(elems[7], p.component)
	}
	p.claim.lines = append(p.claim.lines, line)
}

// institutionalLine reads SV2. Revenue-only lines, room and board for
// example, legitimately carry no procedure code and are kept: for
// institutional claims the type of bill decides eligibility.
func (p *x12Parser) institutionalLine(elems []string) {
	if p.claim == nil || len(elems) < 3 {
		return
	}
	code, mods := splitProcedure(elems[2], p.component)
	p.claim.lines = append(p.claim.lines, models.ServiceLevelData{
		ClaimType:     "institutional",
		ProcedureCode: code,
		Modifiers:     mods,
		Quantity:      parseQuantity(elems, 5),
	})
}

// serviceDate applies a DTP*472 date to the open service line.
func (p *x12Parser) serviceDate(elems []string) {
	if p.claim == nil || len(p.claim.lines) == 0 {
		return
	}
	if len(elems) < 4 || elems[1] != "472" {
		return
	}
	if date := x12Date(elems[3]); date != "" {
		p.claim.lines[len(p.claim.lines)-1].ServiceDate = date
	}
}

func (p *x12Parser) flushClaim() {
	if p.claim == nil {
		return
	}
	c := p.claim
	p.claim = nil
	for _, line := range c.lines {
		line.ClaimID = c.id
		line.PatientID = c.patientID
		line.BillingProviderNPI = c.billingNPI
		line.PerformingProviderNPI = c.renderingNPI
		line.ProviderSpecialty = c.specialty
		line.FacilityType = c.facilityType
		line.ServiceType = c.serviceType
		line.ClaimDiagnosisCodes = append([]string(nil), c.dx...)
		if line.PlaceOfService == "" {
			line.PlaceOfService = c.placeOfService
		}
		p.out = append(p.out, line)
	}
}

// pointers resolves one-based SV107 diagnosis pointers into codes from the
// claim's HI list. Pointers outside the list are dropped.
func (c *x12Claim) pointers(composite, sep string) []string {
	var codes []string
	for _, comp := range strings.Split(composite, sep) {
		n, err := strconv.Atoi(strings.TrimSpace(comp))
		if err != nil || n < 1 || n > len(c.dx) {
			continue
		}
		codes = append(codes, c.dx[n-1])
	}
	return codes
}

// splitProcedure reads a procedure composite: qualifier, code, then
// modifiers.
func splitProcedure(composite, sep string) (string, []string) {
	comps := strings.Split(composite, sep)
	if len(comps) < 2 || comps[1] == "" {
		return "", nil
	}
	var mods []string
	for _, m := range comps[2:] {
		if m != "" {
			mods = append(mods, m)
		}
	}
	return comps[1], mods
}

func parseQuantity(elems []string, idx int) float64 {
	if len(elems) <= idx {
		return 0
	}
	q, err := strconv.ParseFloat(strings.TrimSpace(elems[idx]), 64)
	if err != nil {
		return 0
	}
	return q
}

// x12Date reads CCYYMMDD, or the start of an RD8 range, into YYYY-MM-DD.
// Anything else reads as empty.
func x12Date(raw string) string {
	raw = strings.TrimSpace(raw)
	if i := strings.IndexByte(raw, '-'); i >= 0 {
		raw = raw[:i]
	}
	if len(raw) != 8 {
		return ""
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return raw[:4] + "-" + raw[4:6] + "-" + raw[6:8]
}
