package envelope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAcceptsWellFormedMapUpdate(t *testing.T) {
	schema, err := CompileSchema(MapUpdateSchema)
	require.NoError(t, err)

	payload := `{"nodesToAdd": [{"placeName": "Whispering Woods"}], "rationale": "new area discovered"}`
	assert.NoError(t, Validate(schema, payload))
}

func TestValidateRejectsUnknownTopLevelField(t *testing.T) {
	schema, err := CompileSchema(MapUpdateSchema)
	require.NoError(t, err)

	payload := `{"nodesToAdd": [], "summary": "extra chatty field"}`
	err = Validate(schema, payload)
	require.Error(t, err)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestValidateRejectsMalformedJSON(t *testing.T) {
	schema, err := CompileSchema(MapUpdateSchema)
	require.NoError(t, err)

	err = Validate(schema, `{"nodesToAdd": [`)
	require.Error(t, err)
}

func TestNormalizeStripsHallucinatedField(t *testing.T) {
	out, err := Normalize(`{"nodesToAdd": [], "summary": "extra"}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"nodesToAdd": []}`, out)
}

func TestNormalizeIsNoOpOnCleanPayload(t *testing.T) {
	out, err := Normalize(`{"nodesToAdd": []}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"nodesToAdd": []}`, out)
}

func TestArrayFieldReturnsRawElements(t *testing.T) {
	items := ArrayField(`{"nodesToAdd": [{"placeName": "A"}, {"placeName": "B"}]}`, "nodesToAdd")
	require.Len(t, items, 2)
	assert.JSONEq(t, `{"placeName": "A"}`, items[0])
}

func TestArrayFieldMissingReturnsNil(t *testing.T) {
	items := ArrayField(`{"nodesToAdd": []}`, "edgesToAdd")
	assert.Nil(t, items)
}
