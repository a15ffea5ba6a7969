// Package formula holds the income and cost rules for each product type.
package formula

import (
	"sort"
	"strings"
	"sync"

	"github.com/dealbook/forecast/pkg/models"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// CustomCostPrefix marks user-defined cost items; every product accepts them.
const CustomCostPrefix = "custom"

// Totals is the output of a product formula.
type Totals struct {
	TotalIncome      decimal.Decimal
	CommissionAmount decimal.Decimal
	TotalCosts       decimal.Decimal
	GrossProfit      decimal.Decimal
	Unsupported      bool
}

// Formula computes a product's totals and payment schedule from its field values.
type Formula interface {
	// Income returns the deal's total income.
	Income(fields models.FieldValues) decimal.Decimal
	// CostIDs lists the standard cost items the product recognises.
	CostIDs() []string
	// Schedule derives the payment schedule used to place income on the grid.
	Schedule(fields models.FieldValues) models.PaymentSchedule
}

var (
	mu       sync.RWMutex
	registry = map[models.ProductType]Formula{}
)

// Register installs f for pt, replacing any existing formula.
func Register(pt models.ProductType, f Formula) {
	mu.Lock()
	defer mu.Unlock()
	registry[pt] = f
}

// Lookup returns the formula registered for pt.
func Lookup(pt models.ProductType) (Formula, bool) {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := registry[pt]
	return f, ok
}

// Calculate applies the registered formula. Unknown product types yield a
// zeroed result flagged Unsupported so callers can keep aggregating.
func Calculate(pt models.ProductType, fields models.FieldValues, costs map[string]models.CostItem) Totals {
	f, ok := Lookup(pt)
	if !ok {
		return Totals{
			TotalIncome:      decimal.Zero,
			CommissionAmount: decimal.Zero,
			TotalCosts:       decimal.Zero,
			GrossProfit:      decimal.Zero,
			Unsupported:      true,
		}
	}

	income := f.Income(fields)
	commission := Commission(income, fields.Decimal(FieldCommissionPercentage))
	total := commission
	for _, id := range ApplicableCosts(f, costs) {
		total = total.Add(costs[id].Amount)
	}
	return Totals{
		TotalIncome:      income,
		CommissionAmount: commission,
		TotalCosts:       total,
		GrossProfit:      income.Sub(total),
	}
}

// Commission returns pct percent of income.
func Commission(income, pct decimal.Decimal) decimal.Decimal {
	return income.Mul(pct).Div(hundred)
}

// GPMargin returns gross profit as a percentage of income, zero when income is zero.
func GPMargin(income, grossProfit decimal.Decimal) decimal.Decimal {
	if income.IsZero() {
		return decimal.Zero
	}
	return grossProfit.Div(income).Mul(hundred)
}

// ApplicableCosts returns, in sorted order, the cost ids in costs that count
// towards f: its standard ids plus any custom items.
func ApplicableCosts(f Formula, costs map[string]models.CostItem) []string {
	standard := make(map[string]bool, len(f.CostIDs()))
	for _, id := range f.CostIDs() {
		standard[id] = true
	}
	ids := make([]string, 0, len(costs))
	for id := range costs {
		if standard[id] || strings.HasPrefix(strings.ToLower(id), CustomCostPrefix) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
