package responseutils

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ccoveille/go-safecast"
	"github.com/google/fhir/go/fhirversion"
	"github.com/google/fhir/go/jsonformat"
	fhircodes "github.com/google/fhir/go/proto/google/fhir/proto/r4/core/codes_go_proto"
	fhirdatatypes "github.com/google/fhir/go/proto/google/fhir/proto/r4/core/datatypes_go_proto"
	fhirmodelCR "github.com/google/fhir/go/proto/google/fhir/proto/r4/core/resources/bundle_and_contained_resource_go_proto"
	fhirmodelOO "github.com/google/fhir/go/proto/google/fhir/proto/r4/core/resources/operation_outcome_go_proto"
	fhirmodelRA "github.com/google/fhir/go/proto/google/fhir/proto/r4/core/resources/risk_assessment_go_proto"

	"github.com/seenhealth/hccinfhir/hcc/constants"
	"github.com/seenhealth/hccinfhir/hcc/models"
	"github.com/seenhealth/hccinfhir/log"
)

// scoreSystemBase prefixes the code systems naming score variables inside
// RiskAssessment resources.
const scoreSystemBase = "https://seenhealth.com/resources/variables"

type ResponseWriter struct {
	marshaller *jsonformat.Marshaller
}

func NewResponseWriter() ResponseWriter {
	// Single-line output; a risk bundle can carry a reason code per
	// retained category and pretty printing buys nothing over the wire.
	marshaller, err := jsonformat.NewMarshaller(false, "", "", fhirversion.R4)
	if err != nil {
		log.API.Fatalf("Failed to create marshaller %s", err)
	}
	return ResponseWriter{marshaller: marshaller}
}

func (r ResponseWriter) Exception(ctx context.Context, w http.ResponseWriter, statusCode int, errType, errMsg string) {
	oo := r.CreateOpOutcome(fhircodes.IssueSeverityCode_ERROR, fhircodes.IssueTypeCode_EXCEPTION, errType, errMsg)
	r.WriteError(ctx, oo, w, statusCode)
}

func (r ResponseWriter) NotFound(ctx context.Context, w http.ResponseWriter, statusCode int, errType, errMsg string) {
	oo := r.CreateOpOutcome(fhircodes.IssueSeverityCode_ERROR, fhircodes.IssueTypeCode_NOT_FOUND, errType, errMsg)
	r.WriteError(ctx, oo, w, statusCode)
}

func (r ResponseWriter) CreateOpOutcome(severity fhircodes.IssueSeverityCode_Value, code fhircodes.IssueTypeCode_Value,
	detailsCode, diagnostics string) *fhirmodelOO.OperationOutcome {

	return &fhirmodelOO.OperationOutcome{
		Issue: []*fhirmodelOO.OperationOutcome_Issue{
			{
				Severity: &fhirmodelOO.OperationOutcome_Issue_SeverityCode{Value: severity},
				Code:     &fhirmodelOO.OperationOutcome_Issue_CodeType{Value: code},
				Details:  &fhirdatatypes.CodeableConcept{
					Coding: []*fhirdatatypes.Coding{
						{
							Code:   &fhirdatatypes.Code{Value: detailsCode},
							System: &fhirdatatypes.Uri{
								Value: "http://hl7.org/fhir/ValueSet/operation-outcome",
							},
							Display: &fhirdatatypes.String{Value: detailsCode},
						},
					},
					Text: &fhirdatatypes.String{Value: detailsCode},
				},
				Diagnostics: &fhirdatatypes.String{Value: diagnostics},
			},
		},
	}
}

func (r ResponseWriter) WriteError(ctx context.Context, outcome *fhirmodelOO.OperationOutcome, w http.ResponseWriter, code int) {
	logger := log.GetCtxLogger(ctx)
	w.Header().Set(constants.ContentType, constants.FHIRJsonContentType)
	if code == http.StatusServiceUnavailable {
		includeRetryAfterHeader(w)
	}
	w.WriteHeader(code)
	_, err := r.WriteOperationOutcome(w, outcome)
	if err != nil {
		logger.Error(err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func includeRetryAfterHeader(w http.ResponseWriter) {
	//default retrySeconds: 1 second (may convert to environmental variable later)
	retrySeconds := strconv.FormatInt(int64(1), 10)
	w.Header().Set("Retry-After", retrySeconds)
}

func (r ResponseWriter) WriteOperationOutcome(w io.Writer, outcome *fhirmodelOO.OperationOutcome) (int, error) {
	resource := &fhirmodelCR.ContainedResource{
		OneofResource: &fhirmodelCR.ContainedResource_OperationOutcome{OperationOutcome: outcome},
	}
	outcomeJSON, err := r.marshaller.Marshal(resource)
	if err != nil {
		return -1, err
	}

	return w.Write(outcomeJSON)
}

// RiskBundle writes the scored result as a bundle of RiskAssessment
// resources, one per score variant.
func (r ResponseWriter) RiskBundle(ctx context.Context, w http.ResponseWriter, result models.RAFResult, subject string) {
	rb := r.CreateRiskBundle(result, subject, time.Now())
	r.WriteBundleResponse(rb, w)
}

func (r ResponseWriter) CreateRiskBundle(result models.RAFResult, subject string, lastUpdated time.Time) *fhirmodelCR.Bundle {
	variants := []struct {
		id      string
		code    string
		display string
		score   float64
		reasons []string
	}{
		{id: "risk-score", code: "RISK_SCORE", display: result.ModelName + " Risk Score", score: result.RiskScore},
		{id: "risk-score-demographics", code: "DEMOGRAPHIC_SCORE", display: "Demographic Risk Score", score: result.RiskScoreDemographics},
		{id: "risk-score-chronic-only", code: "CHRONIC_ONLY_SCORE", display: "Chronic Condition Risk Score", score: result.RiskScoreChronicOnly},
		{id: "risk-score-hcc", code: "HCC_SCORE", display: "Condition Category Risk Score", score: result.RiskScoreHCC, reasons: result.CCList},
	}

	var entries []*fhirmodelCR.Bundle_Entry
	for _, v := range variants {
		risk := riskMaker(subject, v.id, scoreSystemBase+"/"+v.id, v.code, v.display, lastUpdated)
		risk.Method = &fhirdatatypes.CodeableConcept{Text: &fhirdatatypes.String{Value: result.ModelName}}
		risk.Prediction = predictionMaker(v.code, v.score)
		if len(v.reasons) > 0 {
			risk.ReasonCode = reasonCodes(v.reasons)
		}
		entries = append(entries, &fhirmodelCR.Bundle_Entry{
			Resource: &fhirmodelCR.ContainedResource{
				OneofResource: &fhirmodelCR.ContainedResource_RiskAssessment{RiskAssessment: risk},
			},
		})
	}

	total, err := safecast.ToUint32(len(entries))
	if err != nil {
		log.API.Errorln(err)
	}

	return &fhirmodelCR.Bundle{
		Type:  &fhirmodelCR.Bundle_TypeCode{Value: fhircodes.BundleTypeCode_SEARCHSET},
		Total: &fhirdatatypes.UnsignedInt{Value: total},
		Entry: entries,
	}
}

func riskMaker(subject, id, system, code, display string, lastUpdated time.Time) *fhirmodelRA.RiskAssessment {
	risk := &fhirmodelRA.RiskAssessment{}
	risk.Id = &fhirdatatypes.Id{Value: id}
	risk.Status = &fhirmodelRA.RiskAssessment_StatusCode{Value: fhircodes.ObservationStatusCode_FINAL}

	if subject != "" {
		risk.Subject = &fhirdatatypes.Reference{
			Reference: &fhirdatatypes.Reference_PatientId{
				PatientId: &fhirdatatypes.ReferenceId{Value: subject},
			},
		}
	}

	risk.Meta = &fhirdatatypes.Meta{
		LastUpdated: &fhirdatatypes.Instant{
			Precision: fhirdatatypes.Instant_SECOND,
			ValueUs:   lastUpdated.UnixNano() / int64(time.Microsecond),
		},
	}

	risk.Code = &fhirdatatypes.CodeableConcept{
		Coding: []*fhirdatatypes.Coding{{
			System:  &fhirdatatypes.Uri{Value: system},
			Code:    &fhirdatatypes.Code{Value: code},
			Display: &fhirdatatypes.String{Value: display},
		}},
	}

	return risk
}

func predictionMaker(code string, score float64) []*fhirmodelRA.RiskAssessment_Prediction {
	prediction := []*fhirmodelRA.RiskAssessment_Prediction{{
		Probability: &fhirmodelRA.RiskAssessment_Prediction_ProbabilityX{
			Choice: &fhirmodelRA.RiskAssessment_Prediction_ProbabilityX_Decimal{
				Decimal: &fhirdatatypes.Decimal{Value: strconv.FormatFloat(score, 'f', 3, 64)},
			},
		},
		Id: &fhirdatatypes.String{Value: code},
	}}
	return prediction
}

func reasonCodes(categories []string) []*fhirdatatypes.CodeableConcept {
	var reasons []*fhirdatatypes.CodeableConcept
	for _, category := range categories {
		reasons = append(reasons, &fhirdatatypes.CodeableConcept{
			Coding: []*fhirdatatypes.Coding{{
				System: &fhirdatatypes.Uri{Value: scoreSystemBase + "/hcc"},
				Code:   &fhirdatatypes.Code{Value: category},
			}},
		})
	}
	return reasons
}

func (r ResponseWriter) WriteBundleResponse(bundle *fhirmodelCR.Bundle, w http.ResponseWriter) {
	resource := &fhirmodelCR.ContainedResource{
		OneofResource: &fhirmodelCR.ContainedResource_Bundle{Bundle: bundle},
	}
	resourceJSON, err := r.marshaller.Marshal(resource)
	if err != nil {
		log.API.Error(err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set(constants.ContentType, constants.FHIRJsonContentType)
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(resourceJSON)
	if err != nil {
		log.API.Error(err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}
