package document

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringList stores a JSON-encoded list of strings in a text column.
// Order is preserved for display; semantics are set-like.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (l *StringList) Scan(value interface{}) error {
	return scanJSON(value, l)
}

// Contains reports whether the list holds the given tag
func (l StringList) Contains(tag string) bool {
	for _, t := range l {
		if t == tag {
			return true
		}
	}
	return false
}

// JSONMap stores an open key/value map in a text column
type JSONMap map[string]interface{}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		m = JSONMap{}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (m *JSONMap) Scan(value interface{}) error {
	return scanJSON(value, m)
}

// ValidationIssue describes one problem found while inspecting a document
type ValidationIssue struct {
	Dimension string `json:"dimension"`
	Severity  string `json:"severity"`
	Message   string `json:"message"`
}

// ValidationResult is the structured judgment attached to a document after
// inspection: an overall validity flag, a 0-100 score, the list of issues,
// and per-dimension metric scores (each 0-100).
type ValidationResult struct {
	Valid      bool              `json:"valid"`
	Score      int               `json:"score"`
	Issues     []ValidationIssue `json:"issues"`
	Dimensions map[string]int    `json:"dimensions"`
}

func (r ValidationResult) Value() (driver.Value, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (r *ValidationResult) Scan(value interface{}) error {
	return scanJSON(value, r)
}

func scanJSON(value interface{}, dest interface{}) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dest)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("unsupported column type %T", value)
	}
}
