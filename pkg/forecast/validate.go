package forecast

import (
	"fmt"
	"strings"

	"github.com/dealbook/forecast/pkg/models"
	"github.com/dealbook/forecast/pkg/schema"
	"github.com/shopspring/decimal"
)

// ValidationError lists every missing or invalid field that blocks a save.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Missing, ", ")
}

// ValidateSave checks a save payload. It returns nil or a *ValidationError
// naming every problem found, never just the first.
func ValidateSave(clientID, financialYear string, line models.ProductLine, deals []models.Deal, schemas schema.Set) error {
	var missing []string
	if strings.TrimSpace(clientID) == "" {
		missing = append(missing, "client_id")
	}
	if strings.TrimSpace(financialYear) == "" {
		missing = append(missing, "financial_year")
	}
	if !line.Valid() {
		missing = append(missing, "product_line")
	}
	for i, d := range deals {
		missing = append(missing, ValidateDeal(fmt.Sprintf("deals[%d]", i), d, line, schemas)...)
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

// ValidateDeal returns the required fields a deal is missing, prefixed with path.
// A numeric required field set to zero counts as missing.
func ValidateDeal(path string, d models.Deal, line models.ProductLine, schemas schema.Set) []string {
	var missing []string
	if strings.TrimSpace(d.DealName) == "" {
		missing = append(missing, path+".deal_name")
	}
	if d.CertaintyPercentage.LessThan(decimal.Zero) || d.CertaintyPercentage.GreaterThan(hundred) {
		missing = append(missing, path+".certainty_percentage")
	}
	if !d.ProductType.Valid() {
		return append(missing, path+".product_type")
	}
	if line.Valid() && d.ProductType.ProductLine() != line {
		missing = append(missing, path+".product_type")
	}
	product, ok := schemas[d.ProductType]
	if !ok {
		return missing
	}
	for _, f := range product.RequiredFields() {
		if !filled(d.FieldValues, f) {
			missing = append(missing, path+"."+f.ID)
		}
	}
	return missing
}

func filled(values models.FieldValues, f schema.Field) bool {
	if !values.Present(f.ID) {
		return false
	}
	switch f.Kind {
	case schema.KindNumber:
		return !values.Decimal(f.ID).IsZero()
	case schema.KindDate:
		_, ok := values.Date(f.ID)
		return ok
	}
	return true
}
