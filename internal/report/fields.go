// Package report decodes the model's extraction payload into the fixed,
// ordered financial field set the review table and CSV export work with.
package report

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Field is one Metric/Value row. Value holds the rendered text; null and
// missing fields render as an empty string with Null set.
type Field struct {
	Key   string
	Label string
	Value string
	Null  bool
}

// fieldOrder pins the table and CSV ordering.
var fieldOrder = []struct {
	key   string
	label string
}{
	{"company_name", "Company Name"},
	{"fiscal_year", "Fiscal Year"},
	{"total_revenue", "Total Revenue"},
	{"net_income", "Net Income"},
	{"total_assets", "Total Assets"},
	{"total_liabilities", "Total Liabilities"},
}

// Keys returns the canonical field keys in display order.
func Keys() []string {
	out := make([]string, len(fieldOrder))
	for i, f := range fieldOrder {
		out[i] = f.key
	}
	return out
}

// FromValues rebuilds the ordered field set from reviewer-edited values.
// Unknown keys are ignored; missing keys become empty fields.
func FromValues(values map[string]string) []Field {
	out := make([]Field, 0, len(fieldOrder))
	for _, def := range fieldOrder {
		v := values[def.key]
		out = append(out, Field{Key: def.key, Label: def.label, Value: v, Null: v == ""})
	}
	return out
}

// Result is a decoded analysis payload: either the extracted fields or the
// error the analyzer folded into the result channel.
type Result struct {
	Fields []Field
	Err    string
	Detail string
}

// Failed reports whether the payload carried an error instead of data.
func (r Result) Failed() bool { return r.Err != "" }

// Decode parses the raw model output. Models occasionally wrap the object
// in code fences or prose despite instructions, so decoding is tolerant:
// fences are stripped and, failing that, the first balanced JSON object is
// scanned out of the text.
func Decode(raw string) (Result, error) {
	var m map[string]json.RawMessage
	cleaned := stripCodeFences(raw)
	if err := json.Unmarshal([]byte(cleaned), &m); err != nil {
		if s := firstJSONObject(cleaned); s != "" {
			if err2 := json.Unmarshal([]byte(s), &m); err2 != nil {
				return Result{}, fmt.Errorf("model output is not a JSON object: %w", err2)
			}
		} else {
			return Result{}, fmt.Errorf("model output is not a JSON object: %w", err)
		}
	}

	if rawErr, ok := m["error"]; ok {
		res := Result{Err: rawString(rawErr)}
		if d, ok := m["detail"]; ok {
			res.Detail = rawString(d)
		}
		return res, nil
	}

	res := Result{Fields: make([]Field, 0, len(fieldOrder))}
	for _, def := range fieldOrder {
		f := Field{Key: def.key, Label: def.label}
		v, ok := m[def.key]
		if !ok || string(v) == "null" {
			f.Null = true
		} else {
			f.Value = rawString(v)
		}
		res.Fields = append(res.Fields, f)
	}
	return res, nil
}

// rawString renders a JSON value as the text a reviewer would expect:
// strings unquoted, numbers as written, anything else as raw JSON.
func rawString(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	var n float64
	if err := json.Unmarshal(v, &n); err == nil {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return string(v)
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if i := strings.Index(s, "\n"); i != -1 {
			s = s[i+1:]
		}
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}

func firstJSONObject(s string) string {
	start := -1
	depth := 0
	for i, r := range s {
		switch r {
		case '{':
			if start == -1 {
				start = i
			}
			depth++
		case '}':
			if start != -1 {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}
