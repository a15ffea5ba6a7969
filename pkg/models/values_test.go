package models

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func TestFieldValuesDecimal(t *testing.T) {
	f := FieldValues{
		"float":   float64(12.5),
		"int":     7,
		"string":  " 1,250.75 ",
		"percent": "15%",
		"number":  json.Number("3.25"),
		"bad":     "twelve",
		"nan":     math.NaN(),
		"blank":   "",
		"bool":    true,
	}
	want := map[string]string{
		"float":   "12.5",
		"int":     "7",
		"string":  "1250.75",
		"percent": "15",
		"number":  "3.25",
		"bad":     "0",
		"nan":     "0",
		"blank":   "0",
		"bool":    "0",
		"missing": "0",
	}
	for key, w := range want {
		if got := f.Decimal(key); !got.Equal(decimal.RequireFromString(w)) {
			t.Errorf("Decimal(%q) = %s; want %s", key, got, w)
		}
	}
	if f.Int("float") != 12 {
		t.Errorf("Expected Int to truncate, got %d", f.Int("float"))
	}
}

func TestFieldValuesDate(t *testing.T) {
	f := FieldValues{
		"day":   "2025-06-15",
		"iso":   "2025-06-15T08:30:00Z",
		"month": "2025-06",
		"bad":   "soon",
	}
	for _, key := range []string{"day", "iso", "month"} {
		got, ok := f.Date(key)
		if !ok || got.Format("2006-01") != "2025-06" {
			t.Errorf("Date(%q) = %s, %v", key, got, ok)
		}
	}
	if _, ok := f.Date("bad"); ok {
		t.Error("Expected an unparseable date to fail")
	}
	if _, ok := f.Date("missing"); ok {
		t.Error("Expected a missing date to fail")
	}
}

func TestFieldValuesPresent(t *testing.T) {
	f := FieldValues{"blank": "  ", "zero": float64(0), "nil": nil, "name": "x"}
	if f.Present("blank") || f.Present("nil") || f.Present("missing") {
		t.Error("Blank, nil and missing values are not present")
	}
	if !f.Present("zero") || !f.Present("name") {
		t.Error("Zero and text values are present")
	}
}

func TestMonthlyDistribution(t *testing.T) {
	m := MonthlyDistribution{}
	m.Add("2025-04", decimal.NewFromInt(10))
	m.Add("2025-03", decimal.NewFromInt(5))
	m.Add("2025-04", decimal.RequireFromString("0.5"))

	if !m.Get("2025-04").Equal(decimal.RequireFromString("10.5")) {
		t.Errorf("Expected 10.5, got %s", m.Get("2025-04"))
	}
	if !m.Get("2099-01").IsZero() {
		t.Error("Absent keys read as zero")
	}
	if keys := m.Keys(); keys[0] != "2025-03" || keys[1] != "2025-04" {
		t.Errorf("Expected chronological keys, got %v", keys)
	}
	if !m.Total().Equal(decimal.RequireFromString("15.5")) {
		t.Errorf("Expected 15.5, got %s", m.Total())
	}
	if r := m.Restrict([]string{"2025-03", "2025-05"}); len(r) != 1 {
		t.Errorf("Expected one kept key, got %v", r)
	}
	if s := m.Scale(decimal.RequireFromString("0.5")); !s.Get("2025-03").Equal(decimal.RequireFromString("2.5")) {
		t.Errorf("Expected 2.5, got %s", s.Get("2025-03"))
	}
}

func TestParseFrequency(t *testing.T) {
	cases := map[string]Frequency{
		"Once-off":           FrequencyOnceOff,
		"once off":           FrequencyOnceOff,
		" MONTHLY ":          FrequencyMonthly,
		"with-income":        FrequencyWithIncome,
		"End of Learnership": FrequencyEndOfLearnership,
	}
	for in, want := range cases {
		if got, ok := ParseFrequency(in); !ok || got != want {
			t.Errorf("ParseFrequency(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}
	if _, ok := ParseFrequency("fortnightly"); ok {
		t.Error("Expected an unknown frequency to fail")
	}
}

func TestProductLines(t *testing.T) {
	for _, pt := range ProductTypes() {
		if !pt.Valid() || !pt.ProductLine().Valid() {
			t.Errorf("%s does not map to a valid line", pt)
		}
	}
	if ProductType("Catering").ProductLine() != "" {
		t.Error("Unknown product types have no line")
	}
}
