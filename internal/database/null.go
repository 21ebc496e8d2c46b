package database

import (
	"database/sql"
	"encoding/json"
)

// nullInt64ToIntPtr converts a sql.NullInt64 to an *int (nil if not valid)
func nullInt64ToIntPtr(n sql.NullInt64) *int {
	if n.Valid {
		v := int(n.Int64)
		return &v
	}
	return nil
}

// nullStringValue converts a sql.NullString to a string (empty if not valid)
func nullStringValue(n sql.NullString) string {
	if n.Valid {
		return n.String
	}
	return ""
}

// nullIfEmpty maps an empty string to SQL NULL
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// marshalToPtr marshals a value to JSON and returns a pointer to the string.
// Returns nil for nil values and empty slices.
func marshalToPtr(v any) (*string, error) {
	if v == nil {
		return nil, nil
	}
	if s, ok := v.([]string); ok && len(s) == 0 {
		return nil, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(data) == "null" {
		return nil, nil
	}
	s := string(data)
	return &s, nil
}

// unmarshalFromNullString unmarshals JSON from a sql.NullString into a value.
// Invalid or empty strings leave v untouched.
func unmarshalFromNullString(data sql.NullString, v any) error {
	if !data.Valid || data.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(data.String), v)
}
