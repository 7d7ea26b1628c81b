package types

import (
	"bytes"
	"encoding/json"
)

// Patch is a field of a partial-update body. Set reports whether the key was
// present at all; a present null leaves Value nil so the column can be cleared.
type Patch[T any] struct {
	Set   bool
	Value *T
}

func (p *Patch[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	p.Set = true
	if bytes.Equal(data, []byte("null")) {
		p.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	p.Value = &v
	return nil
}
