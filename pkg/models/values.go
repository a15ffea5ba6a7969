package models

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FieldValues holds a deal's user-entered inputs keyed by field id.
// Values arrive from forms and JSON, so accessors are lenient: anything
// missing or unparseable reads as the zero value.
type FieldValues map[string]any

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05", "2006-01", "2006/01/02"}

// Decimal reads a numeric field. Missing or non-numeric values read as zero.
func (f FieldValues) Decimal(key string) decimal.Decimal {
	switch v := f[key].(type) {
	case decimal.Decimal:
		return v
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Zero
		}
		return decimal.NewFromFloat(v)
	case float32:
		return FieldValues{key: float64(v)}.Decimal(key)
	case int:
		return decimal.NewFromInt(int64(v))
	case int64:
		return decimal.NewFromInt(v)
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Zero
		}
		return d
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(v), ",", "")
		s = strings.TrimSuffix(s, "%")
		if s == "" {
			return decimal.Zero
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero
		}
		return d
	}
	return decimal.Zero
}

// Int reads a numeric field truncated to an integer.
func (f FieldValues) Int(key string) int {
	return int(f.Decimal(key).IntPart())
}

// Text reads a field as a trimmed string.
func (f FieldValues) Text(key string) string {
	switch v := f[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case fmt.Stringer:
		return v.String()
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// Date reads a date field. The boolean is false when the field is missing or unparseable.
func (f FieldValues) Date(key string) (time.Time, bool) {
	switch v := f[key].(type) {
	case time.Time:
		return v, !v.IsZero()
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// Present reports whether the field carries a non-blank value.
func (f FieldValues) Present(key string) bool {
	v, ok := f[key]
	if !ok || v == nil {
		return false
	}
	if s, isString := v.(string); isString {
		return strings.TrimSpace(s) != ""
	}
	return true
}

// Clone returns a shallow copy; field values are scalars.
func (f FieldValues) Clone() FieldValues {
	out := make(FieldValues, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// MonthlyDistribution maps "YYYY-MM" month keys to amounts. Absent keys read as zero.
type MonthlyDistribution map[string]decimal.Decimal

// Get returns the amount for key, zero when absent.
func (m MonthlyDistribution) Get(key string) decimal.Decimal {
	if v, ok := m[key]; ok {
		return v
	}
	return decimal.Zero
}

// Add accumulates amount into key.
func (m MonthlyDistribution) Add(key string, amount decimal.Decimal) {
	m[key] = m.Get(key).Add(amount)
}

// Total sums every entry.
func (m MonthlyDistribution) Total() decimal.Decimal {
	total := decimal.Zero
	for _, v := range m {
		total = total.Add(v)
	}
	return total
}

// Keys returns the month keys in chronological order.
func (m MonthlyDistribution) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m MonthlyDistribution) Clone() MonthlyDistribution {
	out := make(MonthlyDistribution, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Scale multiplies every entry by factor.
func (m MonthlyDistribution) Scale(factor decimal.Decimal) MonthlyDistribution {
	out := make(MonthlyDistribution, len(m))
	for k, v := range m {
		out[k] = v.Mul(factor)
	}
	return out
}

// Restrict keeps only the entries whose key is in keys.
func (m MonthlyDistribution) Restrict(keys []string) MonthlyDistribution {
	out := make(MonthlyDistribution, len(keys))
	for _, k := range keys {
		if v, ok := m[k]; ok {
			out[k] = v
		}
	}
	return out
}
