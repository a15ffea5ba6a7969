// Package forecast runs a deal through its product formula, the certainty
// weighting and the distribution engine, and folds many deals into totals.
//
// A deal's MonthlyDistribution is its certainty-adjusted gross profit per
// month. Income and costs are placed on the grid first, on their own
// schedules, and gross profit is taken month by month from those; income on
// its own is reported alongside as IncomeDistribution. Deals whose
// gpDistribution field is "Milestone" instead split the adjusted gross profit
// 40/30/30 over their start, midpoint and end months.
package forecast

import (
	"log"

	"github.com/dealbook/forecast/pkg/calendar"
	"github.com/dealbook/forecast/pkg/distribution"
	"github.com/dealbook/forecast/pkg/formula"
	"github.com/dealbook/forecast/pkg/models"
	"github.com/shopspring/decimal"
)

const (
	SourceIncome     = "income"
	SourceCommission = "commission"
	SourceGP         = "gross profit"
)

var hundred = decimal.NewFromInt(100)

// AdjustForCertainty weights gross profit by a 0-100 certainty percentage.
// Percentages outside the range are clamped.
func AdjustForCertainty(grossProfit, certainty decimal.Decimal) decimal.Decimal {
	return grossProfit.Mul(certaintyFactor(certainty))
}

func certaintyFactor(certainty decimal.Decimal) decimal.Decimal {
	switch {
	case certainty.LessThan(decimal.Zero):
		certainty = decimal.Zero
	case certainty.GreaterThan(hundred):
		certainty = hundred
	}
	return certainty.Div(hundred)
}

// Calculate computes a deal's totals and its monthly distribution on grid.
// It never fails: unknown product types come back zeroed and flagged.
func Calculate(deal models.Deal, grid []models.FYMonth) models.CalculationResult {
	res := models.CalculationResult{
		DealID:              deal.ID,
		ProductType:         deal.ProductType,
		IncomeDistribution:  models.MonthlyDistribution{},
		CostDistribution:    models.MonthlyDistribution{},
		MonthlyDistribution: models.MonthlyDistribution{},
	}

	f, ok := formula.Lookup(deal.ProductType)
	if !ok {
		log.Printf("[forecast] WARN deal %s: unsupported product type %q", deal.ID, deal.ProductType)
		res.Unsupported = true
		return res
	}

	totals := formula.Calculate(deal.ProductType, deal.FieldValues, deal.CostItems)
	res.TotalIncome = totals.TotalIncome
	res.CommissionAmount = totals.CommissionAmount
	res.TotalCosts = totals.TotalCosts
	res.GrossProfit = totals.GrossProfit
	res.AdjustedGrossProfit = AdjustForCertainty(totals.GrossProfit, deal.CertaintyPercentage)
	res.GPMarginPercent = formula.GPMargin(totals.TotalIncome, totals.GrossProfit)

	schedule := f.Schedule(deal.FieldValues)

	income := distribution.Distribute(distribution.Request{
		Source:   SourceIncome,
		Amount:   totals.TotalIncome,
		Schedule: schedule,
	}, grid)
	res.IncomeDistribution = income.Months
	res.BoundaryEvents = append(res.BoundaryEvents, income.Events...)

	commission := distribution.Distribute(distribution.Request{
		Source:   SourceCommission,
		Amount:   totals.CommissionAmount,
		Schedule: withFrequency(schedule, models.FrequencyWithIncome),
		Income:   income.Months,
	}, grid)
	mergeInto(res.CostDistribution, commission.Months)
	res.BoundaryEvents = append(res.BoundaryEvents, commission.Events...)

	for _, id := range formula.ApplicableCosts(f, deal.CostItems) {
		item := deal.CostItems[id]
		placed := distribution.Distribute(distribution.Request{
			Source:   id,
			Amount:   item.Amount,
			Schedule: costSchedule(schedule, item),
			Income:   income.Months,
		}, grid)
		mergeInto(res.CostDistribution, placed.Months)
		res.BoundaryEvents = append(res.BoundaryEvents, placed.Events...)
	}

	if usesMilestone(deal.FieldValues) {
		gp := distribution.Distribute(distribution.Request{
			Source:   SourceGP,
			Amount:   res.AdjustedGrossProfit,
			Schedule: withFrequency(schedule, models.FrequencyMilestone),
		}, grid)
		res.MonthlyDistribution = gp.Months
		res.BoundaryEvents = append(res.BoundaryEvents, gp.Events...)
	} else {
		factor := certaintyFactor(deal.CertaintyPercentage)
		for _, key := range calendar.Keys(grid) {
			in, inOK := res.IncomeDistribution[key]
			out, outOK := res.CostDistribution[key]
			if !inOK && !outOK {
				continue
			}
			res.MonthlyDistribution[key] = in.Sub(out).Mul(factor)
		}
	}

	for _, ev := range res.BoundaryEvents {
		log.Printf("[forecast] WARN deal %s: %s amount %s at %q not placed: %s", deal.ID, ev.Source, ev.Amount.StringFixed(2), ev.Date, ev.Reason)
	}
	return res
}

// costSchedule places a cost item on the deal's dates with the item's own frequency.
// Monthly costs run from the deal's start to its end month inclusive.
func costSchedule(deal models.PaymentSchedule, item models.CostItem) models.PaymentSchedule {
	freq, ok := models.ParseFrequency(string(item.Frequency))
	if !ok {
		freq = models.FrequencyWithIncome
	}
	s := withFrequency(deal, freq)
	if freq == models.FrequencyMonthly && !deal.Start.IsZero() && !deal.End.IsZero() {
		s.DurationMonths = calendar.MonthsBetween(deal.Start, deal.End)
	}
	return s
}

func withFrequency(s models.PaymentSchedule, freq models.Frequency) models.PaymentSchedule {
	s.Frequency = freq
	return s
}

func usesMilestone(fields models.FieldValues) bool {
	freq, ok := models.ParseFrequency(fields.Text(formula.FieldGPDistribution))
	return ok && freq == models.FrequencyMilestone
}

func mergeInto(dst, src models.MonthlyDistribution) {
	for k, v := range src {
		dst.Add(k, v)
	}
}
