package crm

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Record is one CRM item as returned in the "data" envelope. Field values
// keep their decoded JSON shape; numbers are json.Number.
type Record map[string]any

// ID returns the record id as a string, or "" when absent.
func (r Record) ID() string {
	return r.String("id")
}

// String returns the field as a string. Numeric ids are formatted without a
// fraction and expanded relations yield their own id.
func (r Record) String(key string) string {
	if r == nil {
		return ""
	}
	return scalarString(r[key])
}

// Float returns the field as a float64. CRM decimals arrive either as JSON
// numbers or as strings; anything unparsable is 0.
func (r Record) Float(key string) float64 {
	if r == nil {
		return 0
	}
	return toFloat(r[key])
}

// Bool reports whether the field holds a truthy value.
func (r Record) Bool(key string) bool {
	switch v := r[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	case json.Number:
		return v.String() != "0"
	}
	return false
}

// IDs returns the ids held in a to-many field. Elements may be bare ids or
// expanded objects carrying an "id".
func (r Record) IDs(key string) []string {
	if r == nil {
		return nil
	}
	if strs, ok := r[key].([]string); ok {
		return append([]string(nil), strs...)
	}
	items, ok := r[key].([]any)
	if !ok {
		if single := scalarString(r[key]); single != "" {
			return []string{single}
		}
		return nil
	}
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if id := scalarString(item); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// Has reports whether the field exists with a non-empty value.
func (r Record) Has(key string) bool {
	return r.String(key) != "" || len(r.IDs(key)) > 0
}

func scalarString(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(typed)
	case json.Number:
		return typed.String()
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case bool:
		return strconv.FormatBool(typed)
	case map[string]any:
		return scalarString(typed["id"])
	case Record:
		return scalarString(typed["id"])
	}
	return ""
}

func toFloat(v any) float64 {
	switch typed := v.(type) {
	case json.Number:
		f, _ := typed.Float64()
		return f
	case float64:
		return typed
	case int:
		return float64(typed)
	case int64:
		return float64(typed)
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		return f
	}
	return 0
}
