package extract

import (
	"encoding/json"
	"io"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/seenhealth/hccinfhir/hcc/models"
	"github.com/seenhealth/hccinfhir/log"
)

// System fragments matched case-insensitively against coding systems.
// Matching on fragments keeps the extractor working across the standard
// terminology URLs and the CMS Blue Button variable URLs.
const (
	icd10System = "icd-10"
	cptSystem   = "cpt"
	hcpcsSystem = "hcpcs"
	ndcSystem   = "ndc"

	claimTypeSystem    = "claim-type"
	facilityTypeSystem = "clm_fac_type_cd"
	serviceTypeSystem  = "clm_srvc_clsfctn_type_cd"
)

// Loose mirror of the slice of an R4 ExplanationOfBenefit this package
// reads. Decoding is weakly typed on purpose: payers disagree on numeric
// versus string fields, and a field that will not decode should cost one
// claim, not the batch.
type eob struct {
	ResourceType   string      `mapstructure:"resourceType"`
	ID             string      `mapstructure:"id"`
	Type           concept     `mapstructure:"type"`
	SubType        concept     `mapstructure:"subType"`
	Patient        reference   `mapstructure:"patient"`
	Provider       reference   `mapstructure:"provider"`
	BillablePeriod period      `mapstructure:"billablePeriod"`
	Diagnosis      []diagnosis `mapstructure:"diagnosis"`
	CareTeam       []careTeam  `mapstructure:"careTeam"`
	Item           []item      `mapstructure:"item"`
}

type concept struct {
	Coding []coding `mapstructure:"coding"`
	Text   string   `mapstructure:"text"`
}

type coding struct {
	System string `mapstructure:"system"`
	Code   string `mapstructure:"code"`
}

type reference struct {
	Reference  string     `mapstructure:"reference"`
	Identifier identifier `mapstructure:"identifier"`
}

type identifier struct {
	System string `mapstructure:"system"`
	Value  string `mapstructure:"value"`
}

type period struct {
	Start string `mapstructure:"start"`
	End   string `mapstructure:"end"`
}

type diagnosis struct {
	Sequence                 int     `mapstructure:"sequence"`
	DiagnosisCodeableConcept concept `mapstructure:"diagnosisCodeableConcept"`
}

type careTeam struct {
	Role     concept   `mapstructure:"role"`
	Provider reference `mapstructure:"provider"`
}

type item struct {
	Sequence                int            `mapstructure:"sequence"`
	DiagnosisSequence       []int          `mapstructure:"diagnosisSequence"`
	ProductOrService        concept        `mapstructure:"productOrService"`
	Service                 concept        `mapstructure:"service"`
	Modifier                []concept      `mapstructure:"modifier"`
	ServicedDate            string         `mapstructure:"servicedDate"`
	ServicedPeriod          period         `mapstructure:"servicedPeriod"`
	Quantity                quantity       `mapstructure:"quantity"`
	LocationCodeableConcept concept        `mapstructure:"locationCodeableConcept"`
	Adjudication            []adjudication `mapstructure:"adjudication"`
}

type quantity struct {
	Value float64 `mapstructure:"value"`
}

type adjudication struct {
	Category concept `mapstructure:"category"`
	Amount   money   `mapstructure:"amount"`
}

type money struct {
	Value float64 `mapstructure:"value"`
}

// ExtractSLD flattens one decoded ExplanationOfBenefit into service-level
// rows, one per claim item. Claims without items produce no rows.
func ExtractSLD(raw map[string]interface{}) ([]models.ServiceLevelData, error) {
	e, err := decodeEOB(raw)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(e.ResourceType, "ExplanationOfBenefit") {
		return nil, errors.Errorf("unexpected resource type %q", e.ResourceType)
	}

	dxBySeq, claimDx := e.diagnosisCodes()
	base := models.ServiceLevelData{
		ClaimID:               e.ID,
		ClaimType:             e.claimType(),
		PatientID:             strings.TrimPrefix(e.Patient.Reference, "Patient/"),
		FacilityType:          e.facilityType(),
		ServiceType:           e.serviceType(),
		PerformingProviderNPI: e.performingNPI(),
		BillingProviderNPI:    e.billingNPI(),
		ClaimDiagnosisCodes:   claimDx,
	}

	out := make([]models.ServiceLevelData, 0, len(e.Item))
	for _, it := range e.Item {
		sld := base
		sld.ProcedureCode = it.procedureCode()
		sld.NDC = it.ndc()
		sld.Modifiers = it.modifiers()
		sld.Quantity = it.Quantity.Value
		sld.AllowedAmount = it.allowedAmount()
		sld.ServiceDate = it.serviceDate(e.BillablePeriod)
		sld.PlaceOfService = it.LocationCodeableConcept.firstCode()
		sld.LinkedDiagnosisCodes = linkDiagnoses(it.DiagnosisSequence, dxBySeq)
		out = append(out, sld)
	}
	return out, nil
}

// ExtractSLDList extracts every claim in the batch. Claims that do not
// decode are logged and skipped; one bad claim never fails the batch.
func ExtractSLDList(raws []map[string]interface{}) []models.ServiceLevelData {
	out := make([]models.ServiceLevelData, 0, len(raws))
	for i, raw := range raws {
		slds, err := ExtractSLD(raw)
		if err != nil {
			log.Extract.WithFields(logrus.Fields{"resource": i}).Warn(err)
			continue
		}
		out = append(out, slds...)
	}
	return out
}

// ExtractNDJSON reads newline-delimited ExplanationOfBenefit resources and
// extracts each one. Resources that decode but cannot be extracted are
// skipped; malformed JSON ends the stream with an error and whatever rows
// were already extracted.
func ExtractNDJSON(r io.Reader) ([]models.ServiceLevelData, error) {
	out := []models.ServiceLevelData{}
	dec := json.NewDecoder(r)
	for n := 1; ; n++ {
		var raw map[string]interface{}
		if err := dec.Decode(&raw); err == io.EOF {
			break
		} else if err != nil {
			return out, errors.Wrapf(err, "ndjson resource %d", n)
		}
		slds, err := ExtractSLD(raw)
		if err != nil {
			log.Extract.WithFields(logrus.Fields{"resource": n}).Warn(err)
			continue
		}
		out = append(out, slds...)
	}
	return out, nil
}

func decodeEOB(raw map[string]interface{}) (*eob, error) {
	var out eob
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, errors.Wrap(err, "decode ExplanationOfBenefit")
	}
	return &out, nil
}

// diagnosisCodes returns the claim's ICD-10 codes keyed by sequence, and
// the same codes ordered by sequence for the claim-level list.
func (e *eob) diagnosisCodes() (map[int]string, []string) {
	ordered := make([]diagnosis, len(e.Diagnosis))
	copy(ordered, e.Diagnosis)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Sequence < ordered[j].Sequence })

	bySeq := make(map[int]string, len(ordered))
	codes := make([]string, 0, len(ordered))
	for _, d := range ordered {
		code := d.DiagnosisCodeableConcept.codeWhere(icd10System)
		if code == "" {
			continue
		}
		bySeq[d.Sequence] = code
		codes = append(codes, code)
	}
	return bySeq, codes
}

func (e *eob) claimType() string {
	if code := e.Type.codeWhere(claimTypeSystem); code != "" {
		return code
	}
	return e.Type.firstCode()
}

func (e *eob) facilityType() string {
	if code := e.SubType.codeWhere(facilityTypeSystem); code != "" {
		return code
	}
	return e.Type.codeWhere(facilityTypeSystem)
}

func (e *eob) serviceType() string {
	if code := e.SubType.codeWhere(serviceTypeSystem); code != "" {
		return code
	}
	return e.Type.codeWhere(serviceTypeSystem)
}

func (e *eob) performingNPI() string {
	for _, ct := range e.CareTeam {
		switch strings.ToLower(ct.Role.firstCode()) {
		case "performing", "rendering", "primary":
			if npi := ct.Provider.npi(); npi != "" {
				return npi
			}
		}
	}
	return ""
}

func (e *eob) billingNPI() string {
	for _, ct := range e.CareTeam {
		if !strings.EqualFold(ct.Role.firstCode(), "billing") {
			continue
		}
		if npi := ct.Provider.npi(); npi != "" {
			return npi
		}
	}
	return e.Provider.npi()
}

func (c concept) codeWhere(fragment string) string {
	for _, cd := range c.Coding {
		if cd.Code != "" && strings.Contains(strings.ToLower(cd.System), fragment) {
			return cd.Code
		}
	}
	return ""
}

func (c concept) firstCode() string {
	for _, cd := range c.Coding {
		if cd.Code != "" {
			return cd.Code
		}
	}
	return ""
}

func (r reference) npi() string {
	if r.Identifier.Value == "" {
		return ""
	}
	if sys := strings.ToLower(r.Identifier.System); sys != "" && !strings.Contains(sys, "npi") {
		return ""
	}
	return r.Identifier.Value
}

func (it item) procedureCode() string {
	for _, c := range []concept{it.ProductOrService, it.Service} {
		for _, frag := range []string{cptSystem, hcpcsSystem} {
			if code := c.codeWhere(frag); code != "" {
				return code
			}
		}
	}
	// No recognized system: take the first coding unless it is a drug code.
	if it.ndc() != "" {
		return ""
	}
	if code := it.ProductOrService.firstCode(); code != "" {
		return code
	}
	return it.Service.firstCode()
}

func (it item) ndc() string {
	if code := it.ProductOrService.codeWhere(ndcSystem); code != "" {
		return code
	}
	return it.Service.codeWhere(ndcSystem)
}

func (it item) modifiers() []string {
	var mods []string
	for _, m := range it.Modifier {
		if code := m.firstCode(); code != "" {
			mods = append(mods, code)
		}
	}
	return mods
}

func (it item) allowedAmount() float64 {
	for _, adj := range it.Adjudication {
		for _, cd := range adj.Category.Coding {
			code := strings.ToLower(cd.Code)
			if code == "eligible" || strings.Contains(code, "alowd") {
				return adj.Amount.Value
			}
		}
	}
	return 0
}

func (it item) serviceDate(claim period) string {
	for _, d := range []string{it.ServicedDate, it.ServicedPeriod.Start, claim.Start} {
		if d != "" {
			return dateOnly(d)
		}
	}
	return ""
}

// dateOnly trims RFC 3339 timestamps down to the date.
func dateOnly(s string) string {
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		return s[:i]
	}
	return s
}

// linkDiagnoses resolves item diagnosis sequences into codes. Sequences
// that point at nothing are dropped.
func linkDiagnoses(seqs []int, bySeq map[int]string) []string {
	var codes []string
	for _, seq := range seqs {
		if code, ok := bySeq[seq]; ok {
			codes = append(codes, code)
		}
	}
	return codes
}
