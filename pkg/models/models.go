package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductType identifies which formula and schedule rules apply to a deal.
type ProductType string

const (
	ProductLearnership  ProductType = "Learnership"
	ProductCompliance   ProductType = "Compliance"
	ProductOtherCourses ProductType = "OtherCourses"
	ProductTapBusiness  ProductType = "TapBusiness"
)

// ProductLine is the top-level service category a ClientFinancialRecord is filed under.
type ProductLine string

const (
	LineLearnerships       ProductLine = "Learnerships"
	LineComplianceTraining ProductLine = "Compliance Training"
	LineOtherCourses       ProductLine = "Other Courses"
	LineTapBusiness        ProductLine = "TAP Business"
)

var productLines = map[ProductType]ProductLine{
	ProductLearnership:  LineLearnerships,
	ProductCompliance:   LineComplianceTraining,
	ProductOtherCourses: LineOtherCourses,
	ProductTapBusiness:  LineTapBusiness,
}

// ProductTypes returns the supported product types in display order.
func ProductTypes() []ProductType {
	return []ProductType{ProductLearnership, ProductCompliance, ProductOtherCourses, ProductTapBusiness}
}

// ProductLine returns the line a product type is reported under, or "" for unknown types.
func (p ProductType) ProductLine() ProductLine {
	return productLines[p]
}

func (p ProductType) Valid() bool {
	_, ok := productLines[p]
	return ok
}

// Valid reports whether l is one of the known product lines.
func (l ProductLine) Valid() bool {
	for _, known := range productLines {
		if known == l {
			return true
		}
	}
	return false
}

// Frequency selects how an amount is spread over the financial-year grid.
type Frequency string

const (
	FrequencyOnceOff          Frequency = "Once-off"
	FrequencyAnnual           Frequency = "Annual"
	FrequencyMonthly          Frequency = "Monthly"
	FrequencyWithIncome       Frequency = "With Income"
	FrequencyEndOfContract    Frequency = "End of Contract"
	FrequencyEndOfLearnership Frequency = "End of Learnership"
	FrequencyMilestone        Frequency = "Milestone"
)

// FinancialYearSettings is the tenant-scoped calendar configuration.
type FinancialYearSettings struct {
	StartMonthName       string `json:"start_month_name"`
	EndMonthName         string `json:"end_month_name"`
	CurrentFinancialYear string `json:"current_financial_year"`
	ReportingMonthName   string `json:"reporting_month_name"`
}

// FYMonth is one entry of the 12-month financial-year grid.
type FYMonth struct {
	Year               int    `json:"year"`
	CalendarMonthIndex int    `json:"calendar_month_index"` // 0 = January
	Name               string `json:"name"`
	Key                string `json:"key"`          // "YYYY-MM"
	IsRemaining        bool   `json:"is_remaining"` // after the reporting month
}

// PaymentSchedule is the scheduling data a product derives from its field values.
type PaymentSchedule struct {
	Frequency      Frequency `json:"frequency"`
	Start          time.Time `json:"start"` // zero when the deal has no anchor date
	End            time.Time `json:"end"`   // zero when the deal has no end date
	DurationMonths int       `json:"duration_months"`
}

type CostItem struct {
	Amount    decimal.Decimal `json:"amount"`
	Frequency Frequency       `json:"frequency"`
}

type Deal struct {
	ID                  uuid.UUID           `json:"id"`
	ProductType         ProductType         `json:"product_type"`
	DealName            string              `json:"deal_name"`
	FieldValues         FieldValues         `json:"field_values"`
	CostItems           map[string]CostItem `json:"cost_items"`
	CertaintyPercentage decimal.Decimal     `json:"certainty_percentage"`
}

// BoundaryEvent records an amount that could not be placed on the grid.
type BoundaryEvent struct {
	Source string          `json:"source"` // "income", "commission" or a cost id
	Date   string          `json:"date,omitempty"`
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason"`
}

// CalculationResult is derived from a Deal and a grid and never stored.
type CalculationResult struct {
	DealID              uuid.UUID           `json:"deal_id"`
	ProductType         ProductType         `json:"product_type"`
	TotalIncome         decimal.Decimal     `json:"total_income"`
	CommissionAmount    decimal.Decimal     `json:"commission_amount"`
	TotalCosts          decimal.Decimal     `json:"total_costs"`
	GrossProfit         decimal.Decimal     `json:"gross_profit"`
	AdjustedGrossProfit decimal.Decimal     `json:"adjusted_gross_profit"`
	GPMarginPercent     decimal.Decimal     `json:"gp_margin_percent"`
	IncomeDistribution  MonthlyDistribution `json:"income_distribution"`
	CostDistribution    MonthlyDistribution `json:"cost_distribution"`
	MonthlyDistribution MonthlyDistribution `json:"monthly_distribution"` // certainty-adjusted gross profit
	Unsupported         bool                `json:"unsupported,omitempty"`
	BoundaryEvents      []BoundaryEvent     `json:"boundary_events,omitempty"`
}

// History holds externally supplied actuals. The engine only reads it.
type History struct {
	PriorYear      MonthlyDistribution `json:"prior_year"`
	CurrentYearYTD MonthlyDistribution `json:"current_year_ytd"`
}

// ClientFinancialRecord is the unit of storage, keyed by (ClientID, FinancialYear, ProductLine).
type ClientFinancialRecord struct {
	ID            uuid.UUID           `json:"id"`
	TenantID      string              `json:"tenant_id"`
	ClientID      string              `json:"client_id"`
	ClientName    string              `json:"client_name"`
	FinancialYear string              `json:"financial_year"`
	ProductLine   ProductLine         `json:"product_line"`
	Months        MonthlyDistribution `json:"months"`
	History       History             `json:"history"`
	DealDetails   []Deal              `json:"deal_details"`
	Comments      string              `json:"comments"`
	UpdatedBy     string              `json:"updated_by"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// Totals is the display-ready summary tuple.
type Totals struct {
	YTDTotal      decimal.Decimal `json:"ytd_total"`
	ForecastTotal decimal.Decimal `json:"forecast_total"`
	FYTotal       decimal.Decimal `json:"fy_total"`
}

// Add returns the element-wise sum of t and o.
func (t Totals) Add(o Totals) Totals {
	return Totals{
		YTDTotal:      t.YTDTotal.Add(o.YTDTotal),
		ForecastTotal: t.ForecastTotal.Add(o.ForecastTotal),
		FYTotal:       t.FYTotal.Add(o.FYTotal),
	}
}

var frequencyAliases = map[string]Frequency{
	"once-off":           FrequencyOnceOff,
	"once off":           FrequencyOnceOff,
	"onceoff":            FrequencyOnceOff,
	"annual":             FrequencyAnnual,
	"annually":           FrequencyAnnual,
	"monthly":            FrequencyMonthly,
	"with income":        FrequencyWithIncome,
	"with-income":        FrequencyWithIncome,
	"end of contract":    FrequencyEndOfContract,
	"end of learnership": FrequencyEndOfLearnership,
	"milestone":          FrequencyMilestone,
}

// ParseFrequency normalises a user-entered frequency label.
func ParseFrequency(s string) (Frequency, bool) {
	f, ok := frequencyAliases[strings.ToLower(strings.TrimSpace(s))]
	return f, ok
}
