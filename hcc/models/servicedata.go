package models

// ServiceLevelData is one normalized claim line, the common shape produced
// by both the FHIR and X12 extractors. Facility and service type are single
// characters; together they form the type of bill the eligibility filter
// keys on. Professional lines carry neither.
type ServiceLevelData struct {
	ClaimID               string   `json:"claim_id,omitempty"`
	ClaimType             string   `json:"claim_type,omitempty"`
	PatientID             string   `json:"patient_id,omitempty"`
	ProcedureCode         string   `json:"procedure_code,omitempty"`
	Modifiers             []string `json:"modifiers,omitempty"`
	NDC                   string   `json:"ndc,omitempty"`
	Quantity              float64  `json:"quantity,omitempty"`
	AllowedAmount         float64  `json:"allowed_amount,omitempty"`
	ServiceDate           string   `json:"service_date,omitempty"`
	PlaceOfService        string   `json:"place_of_service,omitempty"`
	FacilityType          string   `json:"facility_type,omitempty"`
	ServiceType           string   `json:"service_type,omitempty"`
	ProviderSpecialty     string   `json:"provider_specialty,omitempty"`
	PerformingProviderNPI string   `json:"performing_provider_npi,omitempty"`
	BillingProviderNPI    string   `json:"billing_provider_npi,omitempty"`
	// Diagnosis codes pointed at by this line.
	LinkedDiagnosisCodes []string `json:"linked_diagnosis_codes,omitempty"`
	// Every diagnosis code reported on the parent claim.
	ClaimDiagnosisCodes []string `json:"claim_diagnosis_codes,omitempty"`
}
