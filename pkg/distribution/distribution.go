// Package distribution spreads an amount over the financial-year grid.
//
// Every policy places money only on grid months. A placement that resolves
// outside the grid contributes nothing and is reported as a BoundaryEvent; it
// is never moved to a neighbouring month.
package distribution

import (
	"sync"
	"time"

	"github.com/dealbook/forecast/pkg/calendar"
	"github.com/dealbook/forecast/pkg/models"
	"github.com/shopspring/decimal"
)

const (
	ReasonOutsideGrid = "outside financial year"
	ReasonNoIncome    = "no income placed to follow"
)

// Request describes one amount to place.
type Request struct {
	Source   string // label carried into boundary events
	Amount   decimal.Decimal
	Schedule models.PaymentSchedule
	// Income is the deal's income distribution; only With Income reads it.
	Income models.MonthlyDistribution
}

// Result is a distribution plus whatever could not be placed.
type Result struct {
	Months models.MonthlyDistribution
	Events []models.BoundaryEvent
}

// Total sums the placed amounts.
func (r Result) Total() decimal.Decimal {
	return r.Months.Total()
}

// Policy places a request onto a grid.
type Policy interface {
	Distribute(req Request, grid []models.FYMonth) Result
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc func(req Request, grid []models.FYMonth) Result

func (f PolicyFunc) Distribute(req Request, grid []models.FYMonth) Result {
	return f(req, grid)
}

var (
	mu       sync.RWMutex
	policies = map[models.Frequency]Policy{}
)

func init() {
	Register(models.FrequencyOnceOff, PolicyFunc(atStart))
	Register(models.FrequencyAnnual, PolicyFunc(atStart))
	Register(models.FrequencyMonthly, PolicyFunc(monthly))
	Register(models.FrequencyWithIncome, PolicyFunc(withIncome))
	Register(models.FrequencyEndOfContract, PolicyFunc(atEnd))
	Register(models.FrequencyEndOfLearnership, PolicyFunc(atEnd))
	Register(models.FrequencyMilestone, PolicyFunc(milestone))
}

// Register installs p for freq, replacing any existing policy.
func Register(freq models.Frequency, p Policy) {
	mu.Lock()
	defer mu.Unlock()
	policies[freq] = p
}

// Lookup returns the policy for freq. Blank or unknown frequencies fall back to Once-off.
func Lookup(freq models.Frequency) Policy {
	mu.RLock()
	defer mu.RUnlock()
	if p, ok := policies[freq]; ok {
		return p
	}
	return policies[models.FrequencyOnceOff]
}

// Distribute places req using the policy for its schedule's frequency.
func Distribute(req Request, grid []models.FYMonth) Result {
	return Lookup(req.Schedule.Frequency).Distribute(req, grid)
}

func newResult() Result {
	return Result{Months: models.MonthlyDistribution{}}
}

// place puts amount on the month containing t, or records a boundary event.
// Zero amounts are skipped.
func (r *Result) place(grid []models.FYMonth, source string, t time.Time, amount decimal.Decimal) {
	if amount.IsZero() {
		return
	}
	key := calendar.KeyOf(t)
	if calendar.IndexOf(grid, key) < 0 {
		r.drop(source, t, amount)
		return
	}
	r.Months.Add(key, amount)
}

// drop records amount as not placed, dated at the month containing t.
func (r *Result) drop(source string, t time.Time, amount decimal.Decimal) {
	if amount.IsZero() {
		return
	}
	r.Events = append(r.Events, models.BoundaryEvent{
		Source: source,
		Date:   calendar.KeyOf(t),
		Amount: amount,
		Reason: ReasonOutsideGrid,
	})
}

// anchor is the month a schedule starts in; deals without a start date begin
// in the first month of the financial year.
func anchor(s models.PaymentSchedule, grid []models.FYMonth) time.Time {
	if !s.Start.IsZero() || len(grid) == 0 {
		return s.Start
	}
	return time.Date(grid[0].Year, time.Month(grid[0].CalendarMonthIndex+1), 1, 0, 0, 0, 0, time.UTC)
}

func end(s models.PaymentSchedule, grid []models.FYMonth) time.Time {
	if !s.End.IsZero() {
		return s.End
	}
	return calendar.AddMonths(anchor(s, grid), durationOf(s)-1)
}

func durationOf(s models.PaymentSchedule) int {
	if s.DurationMonths < 1 {
		return 1
	}
	return s.DurationMonths
}

// atStart places the whole amount in the anchor month (Once-off and Annual).
func atStart(req Request, grid []models.FYMonth) Result {
	r := newResult()
	r.place(grid, req.Source, anchor(req.Schedule, grid), req.Amount)
	return r
}

// atEnd places the whole amount in the month the deal ends.
func atEnd(req Request, grid []models.FYMonth) Result {
	r := newResult()
	r.place(grid, req.Source, end(req.Schedule, grid), req.Amount)
	return r
}

// monthly spreads equal installments over consecutive months from the anchor.
// Only installments that land on the grid are visited. Those before it and
// those after it are dropped, not wrapped, and each side is reported as a
// single boundary event carrying the dropped sum.
func monthly(req Request, grid []models.FYMonth) Result {
	r := newResult()
	n := durationOf(req.Schedule)
	each, last := installments(req.Amount, n)
	start := anchor(req.Schedule, grid)

	// sum totals installments from..to inclusive.
	sum := func(from, to int) decimal.Decimal {
		if to < from {
			return decimal.Zero
		}
		total := each.Mul(decimal.NewFromInt(int64(to - from + 1)))
		if to == n-1 {
			total = total.Sub(each).Add(last)
		}
		return total
	}

	lo, hi := n, n-1
	if len(grid) > 0 {
		first := monthOffset(start, grid[0])
		lo = max(0, first)
		hi = min(n-1, first+len(grid)-1)
	}
	for i := lo; i <= hi; i++ {
		amount := each
		if i == n-1 {
			amount = last
		}
		r.place(grid, req.Source, calendar.AddMonths(start, i), amount)
	}

	before := min(lo, n)
	r.drop(req.Source, start, sum(0, before-1))
	after := max(hi+1, before)
	r.drop(req.Source, calendar.AddMonths(start, after), sum(after, n-1))
	return r
}

// monthOffset counts the months from t's month to m; negative when m is earlier.
func monthOffset(t time.Time, m models.FYMonth) int {
	return (m.Year-t.Year())*12 + m.CalendarMonthIndex - (int(t.Month()) - 1)
}

// withIncome spreads the amount in proportion to the deal's income distribution.
func withIncome(req Request, grid []models.FYMonth) Result {
	r := newResult()
	keys := make([]string, 0, len(grid))
	weights := make([]decimal.Decimal, 0, len(grid))
	total := decimal.Zero
	for _, m := range grid {
		w := req.Income.Get(m.Key)
		if w.IsZero() {
			continue
		}
		keys = append(keys, m.Key)
		weights = append(weights, w)
		total = total.Add(w)
	}
	if total.IsZero() {
		if !req.Amount.IsZero() {
			r.Events = append(r.Events, models.BoundaryEvent{Source: req.Source, Amount: req.Amount, Reason: ReasonNoIncome})
		}
		return r
	}
	for i, amount := range SplitWeighted(req.Amount, weights, total) {
		r.Months.Add(keys[i], amount)
	}
	return r
}

// milestone places 40% at the start month, 30% at the midpoint and 30% at the
// end month. Months hit more than once accumulate.
func milestone(req Request, grid []models.FYMonth) Result {
	return Milestone(req.Source, req.Amount, anchor(req.Schedule, grid), end(req.Schedule, grid), grid)
}

var (
	milestoneStart = decimal.RequireFromString("0.4")
	milestoneMid   = decimal.RequireFromString("0.3")
)

// Milestone splits amount 40/30/30 across start, midpoint and end months.
func Milestone(source string, amount decimal.Decimal, start, finish time.Time, grid []models.FYMonth) Result {
	r := newResult()
	first := amount.Mul(milestoneStart).Round(2)
	mid := amount.Mul(milestoneMid).Round(2)
	last := amount.Sub(first).Sub(mid)

	span := calendar.MonthsBetween(start, finish)
	r.place(grid, source, start, first)
	r.place(grid, source, calendar.AddMonths(start, (span-1)/2), mid)
	r.place(grid, source, finish, last)
	return r
}
