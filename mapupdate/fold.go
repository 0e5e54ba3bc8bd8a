package mapupdate

import "encoding/json"

// OneOrMany decodes a JSON value that may be a single object or an array of
// objects into a flat slice, implementing spec §9's "dynamic payload shape"
// rule for the connector-chain reply (and any other field the model
// sometimes wraps in an array and sometimes doesn't). T must be a struct
// type; pass a pointer receiver is not required since json.Unmarshal
// handles addressable slice elements.
type OneOrMany[T any] struct {
	Items []T
}

// UnmarshalJSON implements the fold: try array first, then single object.
func (o *OneOrMany[T]) UnmarshalJSON(data []byte) error {
	var arr []T
	if err := json.Unmarshal(data, &arr); err == nil {
		o.Items = arr
		return nil
	}
	var single T
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	o.Items = []T{single}
	return nil
}

// Fold is the function form of the same sum-type collapse: it decodes raw
// through OneOrMany and returns the items, for call sites that hold a
// json.RawMessage rather than a OneOrMany field.
func Fold[T any](raw json.RawMessage) ([]T, error) {
	var one OneOrMany[T]
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, err
	}
	return one.Items, nil
}
