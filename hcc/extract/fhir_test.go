package extract_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenhealth/hccinfhir/hcc/extract"
	"github.com/seenhealth/hccinfhir/hcc/samples"
)

func TestExtractSLDInpatient(t *testing.T) {
	eob, err := samples.EOB(1)
	require.NoError(t, err)

	slds, err := extract.ExtractSLD(eob)
	require.NoError(t, err)
	require.Len(t, slds, 2)

	first := slds[0]
	assert.Equal(t, "inpatient-0341920", first.ClaimID)
	assert.Equal(t, "institutional", first.ClaimType)
	assert.Equal(t, "1EG4TE5MK73", first.PatientID)
	assert.Equal(t, "1", first.FacilityType)
	assert.Equal(t, "1", first.ServiceType)
	assert.Equal(t, "99223", first.ProcedureCode)
	assert.Equal(t, "2025-02-03", first.ServiceDate)
	assert.Equal(t, 412.60, first.AllowedAmount)
	assert.Equal(t, "1234567893", first.PerformingProviderNPI)
	assert.Equal(t, "1912301953", first.BillingProviderNPI)
	assert.Equal(t, []string{"E11.22", "N18.32"}, first.LinkedDiagnosisCodes)
	assert.Equal(t, []string{"E11.22", "N18.32", "I50.22", "I10"}, first.ClaimDiagnosisCodes)

	second := slds[1]
	assert.Equal(t, "99233", second.ProcedureCode)
	assert.Equal(t, float64(2), second.Quantity)
	assert.Equal(t, []string{"E11.22", "I50.22"}, second.LinkedDiagnosisCodes)
}

func TestExtractSLDProfessional(t *testing.T) {
	eob, err := samples.EOB(2)
	require.NoError(t, err)

	slds, err := extract.ExtractSLD(eob)
	require.NoError(t, err)
	require.Len(t, slds, 2)

	visit := slds[0]
	assert.Equal(t, "professional", visit.ClaimType)
	assert.Empty(t, visit.FacilityType)
	assert.Empty(t, visit.ServiceType)
	assert.Equal(t, "99214", visit.ProcedureCode)
	assert.Equal(t, []string{"25"}, visit.Modifiers)
	assert.Equal(t, "11", visit.PlaceOfService)
	assert.Equal(t, []string{"E11.9", "I10", "J44.9"}, visit.LinkedDiagnosisCodes)

	wellness := slds[1]
	assert.Equal(t, "G0438", wellness.ProcedureCode)
	assert.Equal(t, []string{"E11.9"}, wellness.LinkedDiagnosisCodes)
}

func TestExtractSLDTolerantDecode(t *testing.T) {
	// Sequences, pointers, and quantities arriving as strings still decode.
	raw := map[string]interface{}{
		"resourceType": "ExplanationOfBenefit",
		"id":           "loose-1",
		"diagnosis":    []interface{}{
			map[string]interface{}{
				"sequence":                 "1",
				"diagnosisCodeableConcept": map[string]interface{}{
					"coding": []interface{}{
						map[string]interface{}{"system": "http://hl7.org/fhir/sid/icd-10", "code": "E11.9"},
					},
				},
			},
		},
		"item": []interface{}{
			map[string]interface{}{
				"diagnosisSequence": []interface{}{"1"},
				"productOrService":  map[string]interface{}{
					"coding": []interface{}{
						map[string]interface{}{"system": "http://www.ama-assn.org/go/cpt", "code": "99213"},
					},
				},
				"quantity": map[string]interface{}{"value": "1.5"},
			},
		},
	}

	slds, err := extract.ExtractSLD(raw)
	require.NoError(t, err)
	require.Len(t, slds, 1)
	assert.Equal(t, "99213", slds[0].ProcedureCode)
	assert.Equal(t, []string{"E11.9"}, slds[0].LinkedDiagnosisCodes)
	assert.Equal(t, 1.5, slds[0].Quantity)
}

func TestExtractSLDRejectsOtherResources(t *testing.T) {
	_, err := extract.ExtractSLD(map[string]interface{}{"resourceType": "Patient", "id": "p1"})
	assert.EqualError(t, err, `unexpected resource type "Patient"`)
}

func TestExtractSLDNoItems(t *testing.T) {
	slds, err := extract.ExtractSLD(map[string]interface{}{
		"resourceType": "ExplanationOfBenefit",
		"id":           "no-items",
	})
	require.NoError(t, err)
	assert.Empty(t, slds)
}

func TestExtractSLDList(t *testing.T) {
	raws, err := samples.EOBList(25)
	require.NoError(t, err)

	// A resource of the wrong type costs itself, not the batch.
	raws = append(raws, map[string]interface{}{"resourceType": "Coverage"})

	slds := extract.ExtractSLDList(raws)
	require.Len(t, slds, 25)
	for _, sld := range slds {
		assert.NotEmpty(t, sld.ClaimID)
		assert.NotEmpty(t, sld.ClaimDiagnosisCodes)
		assert.NotEmpty(t, sld.ProcedureCode)
	}
}

func TestExtractNDJSON(t *testing.T) {
	var b strings.Builder
	for n := 1; n <= 3; n++ {
		eob, err := samples.EOB(n)
		require.NoError(t, err)
		require.NoError(t, json.NewEncoder(&b).Encode(eob))
	}

	slds, err := extract.ExtractNDJSON(strings.NewReader(b.String()))
	require.NoError(t, err)
	assert.Len(t, slds, 5)
}

func TestExtractNDJSONBadSyntax(t *testing.T) {
	stream := `{"resourceType":"ExplanationOfBenefit","id":"ok"}` + "\n" + `{broken`
	_, err := extract.ExtractNDJSON(strings.NewReader(stream))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ndjson resource 2")
}
