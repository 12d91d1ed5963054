package extract_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hccErrors "github.com/seenhealth/hccinfhir/hcc/errors"
	"github.com/seenhealth/hccinfhir/hcc/extract"
	"github.com/seenhealth/hccinfhir/hcc/samples"
)

func TestExtractRoutesByFormat(t *testing.T) {
	x12Sample, err := samples.X12(0)
	require.NoError(t, err)

	slds, err := extract.Extract([]byte(x12Sample))
	require.NoError(t, err)
	assert.Len(t, slds, 2)

	eob, err := samples.EOB(2)
	require.NoError(t, err)
	body, err := json.Marshal(eob)
	require.NoError(t, err)

	slds, err = extract.Extract(body)
	require.NoError(t, err)
	assert.Len(t, slds, 2)

	slds, err = extract.Extract([]byte("[" + string(body) + "]"))
	require.NoError(t, err)
	assert.Len(t, slds, 2)
}

func TestExtractRejectsUnknownPayloads(t *testing.T) {
	var validationErr *hccErrors.ValidationError

	_, err := extract.Extract([]byte("not a claim document"))
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "claims", validationErr.Field)

	_, err = extract.Extract([]byte("   \n\t"))
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Msg, "empty payload")

	_, err = extract.Extract([]byte(`{"resourceType":`))
	assert.ErrorAs(t, err, &validationErr)
}
