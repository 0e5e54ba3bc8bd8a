package envelope

import (
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// knownTopLevelFields lists MapUpdateSchema's recognized top-level keys.
var knownTopLevelFields = []string{
	"nodesToAdd", "nodesToUpdate", "nodesToRemove",
	"edgesToAdd", "edgesToUpdate", "edgesToRemove",
	"suggestedCurrentMapNodeId", "observations", "rationale",
}

// Normalize strips any top-level key the model hallucinated beyond the
// recognized MapUpdate fields, so a chatty reply (extra "notes" or
// "summary" field tacked onto the payload) doesn't fail the strict
// additionalProperties:false schema check for a reason unrelated to its
// actual structural validity. Uses sjson to delete in place rather than
// decoding and re-encoding the whole payload, preserving field order and
// any formatting quirks that don't matter to validation.
func Normalize(candidateJSON string) (string, error) {
	if !gjson.Valid(candidateJSON) || !gjson.Parse(candidateJSON).IsObject() {
		return candidateJSON, nil
	}

	out := candidateJSON
	var err error
	gjson.Parse(candidateJSON).ForEach(func(key, _ gjson.Result) bool {
		if !containsField(knownTopLevelFields, key.String()) {
			out, err = sjson.Delete(out, key.String())
			if err != nil {
				return false
			}
		}
		return true
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

func containsField(fields []string, name string) bool {
	for _, f := range fields {
		if f == name {
			return true
		}
	}
	return false
}

// ArrayField returns the array at path as a slice of raw JSON substrings,
// tolerating a missing or non-array field by returning nil — used by the
// applier's payload decoding where a model sometimes omits a field entirely
// rather than emitting an empty array.
func ArrayField(payloadJSON, path string) []string {
	res := gjson.Get(payloadJSON, path)
	if !res.IsArray() {
		return nil
	}
	items := res.Array()
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Raw
	}
	return out
}
