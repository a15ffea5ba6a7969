package forecast

import (
	"github.com/dealbook/forecast/pkg/models"
	"github.com/shopspring/decimal"
)

// Aggregate sums distributions key by key. Decimal addition is exact, so the
// order of the inputs never changes the result.
func Aggregate(dists ...models.MonthlyDistribution) models.MonthlyDistribution {
	out := models.MonthlyDistribution{}
	for _, d := range dists {
		for k, v := range d {
			out.Add(k, v)
		}
	}
	return out
}

// AggregateResults sums the monthly distributions of many deal results.
func AggregateResults(results []models.CalculationResult) models.MonthlyDistribution {
	dists := make([]models.MonthlyDistribution, len(results))
	for i, r := range results {
		dists[i] = r.MonthlyDistribution
	}
	return Aggregate(dists...)
}

// CalculateAll runs every deal against the grid.
func CalculateAll(deals []models.Deal, grid []models.FYMonth) []models.CalculationResult {
	results := make([]models.CalculationResult, len(deals))
	for i, d := range deals {
		results[i] = Calculate(d, grid)
	}
	return results
}

// LineTotals summarises one product line: year-to-date actuals from history
// over the actual months, the forecast over the remaining months.
func LineTotals(months models.MonthlyDistribution, history models.History, grid []models.FYMonth) models.Totals {
	ytd, forecast := decimal.Zero, decimal.Zero
	for _, m := range grid {
		if m.IsRemaining {
			forecast = forecast.Add(months.Get(m.Key))
		} else {
			ytd = ytd.Add(history.CurrentYearYTD.Get(m.Key))
		}
	}
	return models.Totals{
		YTDTotal:      ytd,
		ForecastTotal: forecast,
		FYTotal:       ytd.Add(forecast),
	}
}

// AggregateClientTotals sums the totals of a client's product lines.
func AggregateClientTotals(records []models.ClientFinancialRecord, grid []models.FYMonth) models.Totals {
	total := zeroTotals()
	for _, r := range records {
		total = total.Add(LineTotals(r.Months, r.History, grid))
	}
	return total
}

// ProductLineTotals groups records by product line and totals each group.
func ProductLineTotals(records []models.ClientFinancialRecord, grid []models.FYMonth) map[models.ProductLine]models.Totals {
	out := map[models.ProductLine]models.Totals{}
	for _, r := range records {
		t, ok := out[r.ProductLine]
		if !ok {
			t = zeroTotals()
		}
		out[r.ProductLine] = t.Add(LineTotals(r.Months, r.History, grid))
	}
	return out
}

// ClientTotals groups records by client id and totals each group.
func ClientTotals(records []models.ClientFinancialRecord, grid []models.FYMonth) map[string]models.Totals {
	out := map[string]models.Totals{}
	for _, r := range records {
		t, ok := out[r.ClientID]
		if !ok {
			t = zeroTotals()
		}
		out[r.ClientID] = t.Add(LineTotals(r.Months, r.History, grid))
	}
	return out
}

// PortfolioMonths combines each record's actuals and forecast into one
// monthly series: history for actual months, forecast for remaining months.
func PortfolioMonths(records []models.ClientFinancialRecord, grid []models.FYMonth) models.MonthlyDistribution {
	out := models.MonthlyDistribution{}
	for _, m := range grid {
		out[m.Key] = decimal.Zero
	}
	for _, r := range records {
		for _, m := range grid {
			if m.IsRemaining {
				out.Add(m.Key, r.Months.Get(m.Key))
			} else {
				out.Add(m.Key, r.History.CurrentYearYTD.Get(m.Key))
			}
		}
	}
	return out
}

func zeroTotals() models.Totals {
	return models.Totals{YTDTotal: decimal.Zero, ForecastTotal: decimal.Zero, FYTotal: decimal.Zero}
}
