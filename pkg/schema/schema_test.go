package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dealbook/forecast/pkg/models"
)

func TestDefaultCoversEveryProduct(t *testing.T) {
	set, err := Default()
	if err != nil {
		t.Fatalf("Failed to parse built-in schemas: %v", err)
	}
	for _, pt := range models.ProductTypes() {
		if _, ok := set[pt]; !ok {
			t.Errorf("No schema for %s", pt)
		}
	}
}

func TestRequiredFields(t *testing.T) {
	set, _ := Default()
	var ids []string
	for _, f := range set[models.ProductCompliance].RequiredFields() {
		ids = append(ids, f.ID)
	}
	want := []string{"numberOfTrainees", "pricePerPerson", "trainingDate"}
	if len(ids) != len(want) {
		t.Fatalf("Expected %v, got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, ids)
		}
	}
}

func TestApplyDefaults(t *testing.T) {
	set, _ := Default()
	in := models.FieldValues{"paymentMonths": float64(6)}
	out := set[models.ProductLearnership].ApplyDefaults(in)

	if out.Int("paymentMonths") != 6 {
		t.Errorf("Expected an entered value to win, got %v", out["paymentMonths"])
	}
	if out.Text("frequency") != "Monthly" {
		t.Errorf("Expected the default frequency, got %v", out["frequency"])
	}
	if _, ok := out["learnerCount"].(float64); !ok {
		t.Errorf("Expected numeric defaults as float64, got %T", out["learnerCount"])
	}
	if _, ok := in["frequency"]; ok {
		t.Error("ApplyDefaults modified its input")
	}
}

func TestCostFrequency(t *testing.T) {
	set, _ := Default()
	p := set[models.ProductLearnership]
	if f, ok := p.CostFrequency("assessor"); !ok || f != models.FrequencyEndOfLearnership {
		t.Errorf("Expected End of Learnership, got %q", f)
	}
	if _, ok := p.CostFrequency("catering"); ok {
		t.Error("Expected an unknown cost to be reported")
	}
	items := p.NewCostItems()
	if len(items) != 5 || !items["travel"].Amount.IsZero() || items["travel"].Frequency != models.FrequencyWithIncome {
		t.Errorf("Unexpected cost items %v", items)
	}
}

func TestParseRejectsUnknowns(t *testing.T) {
	if _, err := Parse([]byte("products:\n  - product_type: Catering\n")); err == nil {
		t.Error("Expected an unknown product type to fail")
	}
	bad := "products:\n  - product_type: Compliance\n    costs:\n      - {id: travel, frequency: Weekly}\n"
	if _, err := Parse([]byte(bad)); err == nil {
		t.Error("Expected an unknown frequency to fail")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.yaml")
	doc := "products:\n  - product_type: TapBusiness\n    fields:\n      - {id: numberOfEmployees, kind: number, required: true}\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("Failed to write schema: %v", err)
	}
	set, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if len(set) != 1 || len(set[models.ProductTapBusiness].RequiredFields()) != 1 {
		t.Errorf("Unexpected schema set %+v", set)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected a missing file to fail")
	}
}
