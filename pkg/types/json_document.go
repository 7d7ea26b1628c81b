package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONDocument is raw JSON persisted as text so the same value binds to a
// Postgres jsonb column and a SQLite text column.
type JSONDocument json.RawMessage

func (d JSONDocument) Value() (driver.Value, error) {
	if len(d) == 0 {
		return nil, nil
	}
	if !json.Valid(d) {
		return nil, fmt.Errorf("JSONDocument: invalid json")
	}
	return string(d), nil
}

func (d *JSONDocument) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = nil
	case string:
		*d = JSONDocument(v)
	case []byte:
		*d = append(JSONDocument(nil), v...)
	default:
		return fmt.Errorf("JSONDocument: unsupported Scan type %T", src)
	}
	return nil
}

func (d JSONDocument) MarshalJSON() ([]byte, error) {
	if len(d) == 0 {
		return []byte("null"), nil
	}
	return d, nil
}

func (d *JSONDocument) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = nil
		return nil
	}
	*d = append((*d)[0:0], data...)
	return nil
}
