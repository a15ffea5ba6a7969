package forecast

import (
	"errors"
	"strings"
	"testing"

	"github.com/dealbook/forecast/pkg/models"
	"github.com/dealbook/forecast/pkg/schema"
	"github.com/shopspring/decimal"
)

func testSchemas(t *testing.T) schema.Set {
	t.Helper()
	set, err := schema.Default()
	if err != nil {
		t.Fatalf("Failed to load schemas: %v", err)
	}
	return set
}

func TestValidateSaveAccepts(t *testing.T) {
	err := ValidateSave("client-1", "2025", models.LineComplianceTraining, []models.Deal{scenarioB()}, testSchemas(t))
	if err != nil {
		t.Errorf("Expected a valid save, got %v", err)
	}
}

func TestValidateSaveListsEverything(t *testing.T) {
	bad := scenarioB()
	bad.DealName = " "
	bad.FieldValues["pricePerPerson"] = float64(0)
	delete(bad.FieldValues, "trainingDate")
	bad.CertaintyPercentage = decimal.NewFromInt(101)

	err := ValidateSave("", "2025", models.LineComplianceTraining, []models.Deal{scenarioB(), bad}, testSchemas(t))

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected a ValidationError, got %v", err)
	}
	want := []string{
		"client_id",
		"deals[1].deal_name",
		"deals[1].certainty_percentage",
		"deals[1].pricePerPerson",
		"deals[1].trainingDate",
	}
	if strings.Join(verr.Missing, ",") != strings.Join(want, ",") {
		t.Errorf("Expected %v, got %v", want, verr.Missing)
	}
	if !strings.HasPrefix(verr.Error(), "missing required fields: client_id") {
		t.Errorf("Unexpected message %q", verr.Error())
	}
}

func TestValidateSaveProductLine(t *testing.T) {
	err := ValidateSave("client-1", "2025", "Catering", nil, testSchemas(t))
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Missing[0] != "product_line" {
		t.Errorf("Expected product_line to be rejected, got %v", err)
	}

	err = ValidateSave("client-1", "2025", models.LineTapBusiness, []models.Deal{scenarioB()}, testSchemas(t))
	if !errors.As(err, &verr) || verr.Missing[0] != "deals[0].product_type" {
		t.Errorf("Expected a deal on the wrong line to be rejected, got %v", err)
	}
}

func TestValidateDealUnknownProduct(t *testing.T) {
	missing := ValidateDeal("deal", deal("Consulting", 100, models.FieldValues{}), "", testSchemas(t))
	if len(missing) != 1 || missing[0] != "deal.product_type" {
		t.Errorf("Expected only product_type, got %v", missing)
	}
}

func TestValidateDealBadDate(t *testing.T) {
	dl := scenarioB()
	dl.FieldValues["trainingDate"] = "next tuesday"
	missing := ValidateDeal("deal", dl, models.LineComplianceTraining, testSchemas(t))
	if len(missing) != 1 || missing[0] != "deal.trainingDate" {
		t.Errorf("Expected an unparseable date to count as missing, got %v", missing)
	}
}
