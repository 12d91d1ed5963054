// Package extract flattens claim documents into service-level rows. Two
// claim shapes are supported: FHIR R4 ExplanationOfBenefit resources (single
// object, array, or NDJSON) and X12 837 transactions (professional and
// institutional). Both extractors are tolerant: a field, item, or claim
// that cannot be read is skipped and logged rather than failing the batch.
package extract

import (
	"bytes"
	"encoding/json"

	hccErrors "github.com/seenhealth/hccinfhir/hcc/errors"
	"github.com/seenhealth/hccinfhir/hcc/models"
)

// Extract sniffs the payload format and routes it to the matching
// extractor. JSON payloads may be a single resource, an array of resources,
// or NDJSON; anything else with X12 element markers is read as an 837.
func Extract(data []byte) ([]models.ServiceLevelData, error) {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0:
		return nil, &hccErrors.ValidationError{Field: "claims", Msg: "empty payload"}
	case trimmed[0] == '[':
		var raws []map[string]interface{}
		if err := json.Unmarshal(trimmed, &raws); err != nil {
			return nil, &hccErrors.ValidationError{Field: "claims", Msg: err.Error()}
		}
		return ExtractSLDList(raws), nil
	case trimmed[0] == '{':
		slds, err := ExtractNDJSON(bytes.NewReader(trimmed))
		if err != nil {
			return nil, &hccErrors.ValidationError{Field: "claims", Msg: err.Error()}
		}
		return slds, nil
	case bytes.ContainsRune(trimmed, '*'):
		return Extract837(string(data)), nil
	}
	return nil, &hccErrors.ValidationError{Field: "claims", Msg: "payload is neither FHIR JSON nor X12 837"}
}
