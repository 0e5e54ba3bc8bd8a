package mapupdate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFullPayload(t *testing.T) {
	raw := `{
		"nodesToAdd": [{"placeName": "Whispering Woods", "type": "region"}],
		"nodesToRemove": ["Old Ruins", {"identifier": "stale-camp-aa11"}],
		"edgesToAdd": [{"sourceNodeIdentifier": "A", "targetNodeIdentifier": "B", "type": "path"}],
		"rationale": "new area discovered"
	}`
	mu, err := Decode(raw)
	require.NoError(t, err)

	assert.Len(t, mu.NodesToAdd, 1)
	assert.Equal(t, "Whispering Woods", mu.NodesToAdd[0].PlaceName)

	require.Len(t, mu.NodesToRemove, 2)
	assert.Equal(t, "Old Ruins", mu.NodesToRemove[0].Identifier)
	assert.Equal(t, "stale-camp-aa11", mu.NodesToRemove[1].Identifier)

	require.Len(t, mu.EdgesToAdd, 1)
	assert.Equal(t, "path", mu.EdgesToAdd[0].Type)
	assert.Equal(t, "new area discovered", mu.Rationale)
}

func TestDecodeEmptyPayloadAllFieldsAbsent(t *testing.T) {
	mu, err := Decode(`{}`)
	require.NoError(t, err)
	assert.Empty(t, mu.NodesToAdd)
	assert.Empty(t, mu.NodesToRemove)
	assert.Empty(t, mu.EdgesToAdd)
}

func TestDecodeMalformedJSON(t *testing.T) {
	_, err := Decode(`{"nodesToAdd": [`)
	assert.Error(t, err)
}

func TestOneOrManyFoldsSingleObject(t *testing.T) {
	type item struct {
		Name string `json:"name"`
	}
	var o OneOrMany[item]
	err := o.UnmarshalJSON([]byte(`{"name": "A"}`))
	require.NoError(t, err)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "A", o.Items[0].Name)
}

func TestOneOrManyFoldsArray(t *testing.T) {
	type item struct {
		Name string `json:"name"`
	}
	var o OneOrMany[item]
	err := o.UnmarshalJSON([]byte(`[{"name": "A"}, {"name": "B"}]`))
	require.NoError(t, err)
	require.Len(t, o.Items, 2)
	assert.Equal(t, "B", o.Items[1].Name)
}
