package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"backoffice/internal/workflow"
)

// JSONMap persists an opaque field payload as a jsonb column.
type JSONMap map[string]any

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(src any) error {
	return scanJSON(src, m)
}

// ActivityTrail persists workflow log entries as a jsonb array.
type ActivityTrail []workflow.LogEntry

func (t ActivityTrail) Value() (driver.Value, error) {
	if t == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(t)
}

func (t *ActivityTrail) Scan(src any) error {
	return scanJSON(src, t)
}

// StringList persists a jsonb array of strings (e.g. a user's role set).
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

func (l *StringList) Scan(src any) error {
	return scanJSON(src, l)
}

func scanJSON(src, dst any) error {
	if src == nil {
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported jsonb source type %T", src)
	}
}
