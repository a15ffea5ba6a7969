// Package session models a client's forecast editing session as an immutable
// value. Every edit goes through Edit, which returns a new Session and leaves
// the old one untouched.
package session

import (
	"fmt"

	"github.com/dealbook/forecast/pkg/calendar"
	"github.com/dealbook/forecast/pkg/forecast"
	"github.com/dealbook/forecast/pkg/models"
	"github.com/dealbook/forecast/pkg/schema"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Session is a snapshot of one client's deals for one financial year.
type Session struct {
	tenantID      string
	clientID      string
	clientName    string
	financialYear string
	settings      models.FinancialYearSettings
	grid          []models.FYMonth
	deals         []models.Deal
	comments      map[models.ProductLine]string
	history       map[models.ProductLine]models.History
}

// New starts an empty session for a client.
func New(tenantID, clientID, clientName string, settings models.FinancialYearSettings) Session {
	return Session{
		tenantID:      tenantID,
		clientID:      clientID,
		clientName:    clientName,
		financialYear: settings.CurrentFinancialYear,
		settings:      settings,
		grid:          calendar.Build(settings),
		comments:      map[models.ProductLine]string{},
		history:       map[models.ProductLine]models.History{},
	}
}

// FromRecords starts a session from previously saved records.
func FromRecords(tenantID, clientID, clientName string, settings models.FinancialYearSettings, records []models.ClientFinancialRecord) Session {
	s := New(tenantID, clientID, clientName, settings)
	for _, r := range records {
		for _, d := range r.DealDetails {
			s.deals = append(s.deals, cloneDeal(d))
		}
		s.comments[r.ProductLine] = r.Comments
		s.history[r.ProductLine] = r.History
	}
	return s
}

func (s Session) TenantID() string { return s.tenantID }

func (s Session) ClientID() string { return s.clientID }

func (s Session) ClientName() string { return s.clientName }

func (s Session) FinancialYear() string { return s.financialYear }

func (s Session) Settings() models.FinancialYearSettings { return s.settings }

func (s Session) Grid() []models.FYMonth { return append([]models.FYMonth(nil), s.grid...) }

func (s Session) Comments(line models.ProductLine) string { return s.comments[line] }

func (s Session) History(line models.ProductLine) models.History { return s.history[line] }

// Deals returns copies of the session's deals.
func (s Session) Deals() []models.Deal {
	out := make([]models.Deal, len(s.deals))
	for i, d := range s.deals {
		out[i] = cloneDeal(d)
	}
	return out
}

// Deal returns a copy of the deal with id.
func (s Session) Deal(id uuid.UUID) (models.Deal, bool) {
	for _, d := range s.deals {
		if d.ID == id {
			return cloneDeal(d), true
		}
	}
	return models.Deal{}, false
}

// DefaultCertainty is the certainty a deal starts with.
var DefaultCertainty = decimal.NewFromInt(100)

// NewDeal builds a deal pre-filled with the product's schema defaults and
// zero-amount standard cost items. Certainty starts at DefaultCertainty.
func NewDeal(pt models.ProductType, name string, schemas schema.Set) models.Deal {
	d := models.Deal{
		ID:                  uuid.New(),
		ProductType:         pt,
		DealName:            name,
		FieldValues:         models.FieldValues{},
		CostItems:           map[string]models.CostItem{},
		CertaintyPercentage: DefaultCertainty,
	}
	if product, ok := schemas[pt]; ok {
		d.FieldValues = product.ApplyDefaults(d.FieldValues)
		d.CostItems = product.NewCostItems()
	}
	return d
}

// View is everything a screen needs to render the session.
type View struct {
	Results map[uuid.UUID]models.CalculationResult `json:"results"`
	Lines   map[models.ProductLine]LineView        `json:"lines"`
	Months  models.MonthlyDistribution             `json:"months"`
	Totals  models.Totals                          `json:"totals"`
}

type LineView struct {
	Months models.MonthlyDistribution `json:"months"`
	Totals models.Totals              `json:"totals"`
}

// Forecast recomputes every deal. It is pure and cheap enough to call on every edit.
func (s Session) Forecast() View {
	results := s.calculate()
	records := s.records("", results)

	v := View{
		Results: results,
		Lines:   make(map[models.ProductLine]LineView, len(records)),
	}
	for _, r := range records {
		v.Lines[r.ProductLine] = LineView{
			Months: r.Months,
			Totals: forecast.LineTotals(r.Months, r.History, s.grid),
		}
	}
	all := make([]models.CalculationResult, 0, len(results))
	for _, r := range results {
		all = append(all, r)
	}
	v.Months = forecast.AggregateResults(all)
	v.Totals = forecast.AggregateClientTotals(records, s.grid)
	return v
}

// Records builds one save payload per product line that has deals, comments or history.
func (s Session) Records(userID string) []models.ClientFinancialRecord {
	return s.records(userID, s.calculate())
}

func (s Session) calculate() map[uuid.UUID]models.CalculationResult {
	results := make(map[uuid.UUID]models.CalculationResult, len(s.deals))
	for _, d := range s.deals {
		results[d.ID] = forecast.Calculate(d, s.grid)
	}
	return results
}

func (s Session) records(userID string, results map[uuid.UUID]models.CalculationResult) []models.ClientFinancialRecord {
	lines := map[models.ProductLine]*models.ClientFinancialRecord{}
	get := func(line models.ProductLine) *models.ClientFinancialRecord {
		if r, ok := lines[line]; ok {
			return r
		}
		r := &models.ClientFinancialRecord{
			TenantID:      s.tenantID,
			ClientID:      s.clientID,
			ClientName:    s.clientName,
			FinancialYear: s.financialYear,
			ProductLine:   line,
			Months:        models.MonthlyDistribution{},
			History:       s.history[line],
			Comments:      s.comments[line],
			UpdatedBy:     userID,
		}
		lines[line] = r
		return r
	}
	for _, d := range s.deals {
		line := d.ProductType.ProductLine()
		if line == "" {
			continue
		}
		r := get(line)
		r.DealDetails = append(r.DealDetails, cloneDeal(d))
		r.Months = forecast.Aggregate(r.Months, results[d.ID].MonthlyDistribution)
	}
	for line := range s.comments {
		get(line)
	}
	for line := range s.history {
		get(line)
	}

	out := make([]models.ClientFinancialRecord, 0, len(lines))
	for _, pt := range models.ProductTypes() {
		if r, ok := lines[pt.ProductLine()]; ok {
			out = append(out, *r)
		}
	}
	return out
}

func cloneDeal(d models.Deal) models.Deal {
	d.FieldValues = d.FieldValues.Clone()
	costs := make(map[string]models.CostItem, len(d.CostItems))
	for k, v := range d.CostItems {
		costs[k] = v
	}
	d.CostItems = costs
	return d
}

func (s Session) indexOf(id uuid.UUID) (int, error) {
	for i, d := range s.deals {
		if d.ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("deal %s not in session", id)
}

// withDeals returns a copy of s sharing nothing mutable with it.
func (s Session) withDeals(deals []models.Deal) Session {
	s.deals = deals
	s.comments = cloneMap(s.comments)
	s.history = cloneMap(s.history)
	return s
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
