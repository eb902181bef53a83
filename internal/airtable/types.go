package airtable

import "time"

// Config holds the client settings for one Airtable base.
type Config struct {
	APIKey  string
	BaseID  string
	BaseURL string
	Timeout time.Duration
}

// Record is one row from an Airtable table. Fields is heterogeneous:
// values may be strings, numbers, single-select objects, or linked-record
// arrays depending on the column type.
type Record struct {
	ID          string         `json:"id"`
	CreatedTime time.Time      `json:"createdTime"`
	Fields      map[string]any `json:"fields"`
}

// listResponse is one page of a list call. A present Offset means more
// pages follow; its absence terminates pagination.
type listResponse struct {
	Records []Record `json:"records"`
	Offset  string   `json:"offset,omitempty"`
}

// apiError is Airtable's error envelope.
type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// CoerceString extracts a string from an Airtable field value regardless
// of column type: plain strings pass through, single-select objects yield
// their name, linked-record and multi-select arrays yield their first
// element, numbers are formatted.
func CoerceString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case map[string]any:
		if name, ok := t["name"].(string); ok {
			return name
		}
		return ""
	case []any:
		if len(t) == 0 {
			return ""
		}
		return CoerceString(t[0])
	case float64:
		if t == float64(int64(t)) {
			return formatInt(int64(t))
		}
		return formatFloat(t)
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

// CoerceFloat extracts a number from an Airtable field value. Strings are
// parsed; anything unparseable yields (0, false).
func CoerceFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		return parseFloat(t)
	case []any:
		if len(t) == 0 {
			return 0, false
		}
		return CoerceFloat(t[0])
	default:
		return 0, false
	}
}

// CoerceInt is CoerceFloat truncated to int.
func CoerceInt(v any) (int, bool) {
	f, ok := CoerceFloat(v)
	if !ok {
		return 0, false
	}
	return int(f), true
}
