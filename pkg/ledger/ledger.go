package ledger

import (
	"errors"
	"fmt"
	"log"

	"github.com/dealbook/forecast/pkg/calendar"
	"github.com/dealbook/forecast/pkg/forecast"
	"github.com/dealbook/forecast/pkg/models"
	"github.com/dealbook/forecast/pkg/schema"
	"github.com/dealbook/forecast/pkg/session"
	"github.com/dealbook/forecast/pkg/store"
	"github.com/google/uuid"
)

// Ledger handles the business logic around client financial records.
type Ledger struct {
	storage store.Storage
	schemas schema.Set
}

// NewLedger creates a new Ledger with a given Storage implementation.
func NewLedger(s store.Storage, schemas schema.Set) *Ledger {
	return &Ledger{
		storage: s,
		schemas: schemas,
	}
}

// Schemas returns the product schemas the ledger validates against.
func (l *Ledger) Schemas() schema.Set {
	return l.schemas
}

// Settings returns a tenant's financial-year settings, falling back to the
// defaults for anything the tenant has not configured.
func (l *Ledger) Settings(tenantID string) (models.FinancialYearSettings, error) {
	fy, err := l.storage.GetSettings(tenantID)
	if errors.Is(err, store.ErrNotFound) {
		return calendar.DefaultSettings, nil
	}
	if err != nil {
		return models.FinancialYearSettings{}, err
	}
	out := *fy
	if out.StartMonthName == "" {
		out.StartMonthName = calendar.DefaultSettings.StartMonthName
		out.EndMonthName = calendar.DefaultSettings.EndMonthName
	}
	return out, nil
}

// SaveSettings stores a tenant's financial-year settings.
func (l *Ledger) SaveSettings(tenantID string, fy models.FinancialYearSettings) error {
	if _, ok := calendar.MonthIndex(fy.StartMonthName); fy.StartMonthName != "" && !ok {
		return &forecast.ValidationError{Missing: []string{"start_month_name"}}
	}
	if _, ok := calendar.MonthIndex(fy.ReportingMonthName); fy.ReportingMonthName != "" && !ok {
		return &forecast.ValidationError{Missing: []string{"reporting_month_name"}}
	}
	return l.storage.SaveSettings(tenantID, fy)
}

// Grid builds the 12-month grid for a tenant. An empty financialYear means
// the tenant's current year.
func (l *Ledger) Grid(tenantID, financialYear string) ([]models.FYMonth, error) {
	fy, err := l.settingsFor(tenantID, financialYear)
	if err != nil {
		return nil, err
	}
	return calendar.Build(fy), nil
}

// settingsFor returns the tenant's settings moved to financialYear; an empty
// year keeps the tenant's current one.
func (l *Ledger) settingsFor(tenantID, financialYear string) (models.FinancialYearSettings, error) {
	fy, err := l.Settings(tenantID)
	if err != nil {
		return models.FinancialYearSettings{}, err
	}
	return calendar.WithFinancialYear(fy, financialYear), nil
}

// Calculate recomputes one deal against the tenant's grid. Nothing is stored.
// Cost items without a frequency use the one their product configures.
func (l *Ledger) Calculate(tenantID, financialYear string, deal models.Deal) (models.CalculationResult, error) {
	grid, err := l.Grid(tenantID, financialYear)
	if err != nil {
		return models.CalculationResult{}, err
	}
	return forecast.Calculate(l.schemas.ResolveCosts(deal), grid), nil
}

// SaveRequest is the payload of a save. Months are derived from DealDetails
// when deals are present; otherwise the supplied months are kept as given.
type SaveRequest struct {
	TenantID      string                     `json:"tenant_id"`
	ClientID      string                     `json:"client_id"`
	ClientName    string                     `json:"client_name"`
	FinancialYear string                     `json:"financial_year"`
	ProductLine   models.ProductLine         `json:"product_line"`
	Months        models.MonthlyDistribution `json:"months"`
	History       models.History             `json:"history"`
	DealDetails   []models.Deal              `json:"deal_details"`
	Comments      string                     `json:"comments"`
	UserID        string                     `json:"user_id"`
}

// SaveClientFinancial validates the payload and upserts the record for
// (client, financial year, product line), replacing whatever was stored.
// A *forecast.ValidationError means nothing was written.
func (l *Ledger) SaveClientFinancial(req SaveRequest) (*models.ClientFinancialRecord, error) {
	if err := forecast.ValidateSave(req.ClientID, req.FinancialYear, req.ProductLine, req.DealDetails, l.schemas); err != nil {
		return nil, err
	}
	grid, err := l.Grid(req.TenantID, req.FinancialYear)
	if err != nil {
		return nil, err
	}
	keys := calendar.Keys(grid)

	deals := make([]models.Deal, len(req.DealDetails))
	for i, d := range req.DealDetails {
		if d.ID == uuid.Nil {
			d.ID = uuid.New()
		}
		deals[i] = l.schemas.ResolveCosts(d)
	}

	months := req.Months.Restrict(keys)
	if len(deals) > 0 {
		months = forecast.AggregateResults(forecast.CalculateAll(deals, grid)).Restrict(keys)
	}

	rec := &models.ClientFinancialRecord{
		TenantID:      req.TenantID,
		ClientID:      req.ClientID,
		ClientName:    req.ClientName,
		FinancialYear: req.FinancialYear,
		ProductLine:   req.ProductLine,
		Months:        months,
		History:       req.History,
		DealDetails:   deals,
		Comments:      req.Comments,
		UpdatedBy:     req.UserID,
	}
	if err := l.storage.UpsertClientFinancial(rec); err != nil {
		return nil, fmt.Errorf("failed to store client financial: %w", err)
	}
	log.Printf("[ledger] saved %s/%s/%s with %d deals (forecast %s)", rec.ClientID, rec.FinancialYear, rec.ProductLine, len(deals), months.Total().StringFixed(2))
	return rec, nil
}

// GetClientFinancial retrieves one of a tenant's stored records.
func (l *Ledger) GetClientFinancial(tenantID, clientID, financialYear string, line models.ProductLine) (*models.ClientFinancialRecord, error) {
	return l.storage.GetClientFinancial(tenantID, clientID, financialYear, line)
}

// DeleteClientFinancial removes one of a tenant's stored records.
func (l *Ledger) DeleteClientFinancial(tenantID, clientID, financialYear string, line models.ProductLine) error {
	return l.storage.DeleteClientFinancial(tenantID, clientID, financialYear, line)
}

// ClientSummary is the display tuple per product line plus the client total.
type ClientSummary struct {
	ClientID      string                               `json:"client_id"`
	FinancialYear string                               `json:"financial_year"`
	Lines         map[models.ProductLine]models.Totals `json:"lines"`
	Total         models.Totals                        `json:"total"`
}

// ClientSummary totals a client's saved product lines for a year.
func (l *Ledger) ClientSummary(tenantID, clientID, financialYear string) (*ClientSummary, error) {
	fy, err := l.settingsFor(tenantID, financialYear)
	if err != nil {
		return nil, err
	}
	grid := calendar.Build(fy)
	stored, err := l.storage.ListClientFinancials(tenantID, clientID, fy.CurrentFinancialYear)
	if err != nil {
		return nil, err
	}
	records := deref(stored)
	return &ClientSummary{
		ClientID:      clientID,
		FinancialYear: fy.CurrentFinancialYear,
		Lines:         forecast.ProductLineTotals(records, grid),
		Total:         forecast.AggregateClientTotals(records, grid),
	}, nil
}

// TenantForecast is a tenant's portfolio view for one financial year.
type TenantForecast struct {
	TenantID      string                               `json:"tenant_id"`
	FinancialYear string                               `json:"financial_year"`
	Grid          []models.FYMonth                     `json:"grid"`
	Months        models.MonthlyDistribution           `json:"months"`
	Lines         map[models.ProductLine]models.Totals `json:"lines"`
	Clients       map[string]models.Totals             `json:"clients"`
	Total         models.Totals                        `json:"total"`
}

// TenantForecast folds every saved record of a tenant into portfolio totals.
func (l *Ledger) TenantForecast(tenantID, financialYear string) (*TenantForecast, error) {
	fy, err := l.settingsFor(tenantID, financialYear)
	if err != nil {
		return nil, err
	}
	grid := calendar.Build(fy)
	stored, err := l.storage.ListTenantFinancials(tenantID, fy.CurrentFinancialYear)
	if err != nil {
		return nil, err
	}
	records := deref(stored)
	return &TenantForecast{
		TenantID:      tenantID,
		FinancialYear: fy.CurrentFinancialYear,
		Grid:          grid,
		Months:        forecast.PortfolioMonths(records, grid),
		Lines:         forecast.ProductLineTotals(records, grid),
		Clients:       forecast.ClientTotals(records, grid),
		Total:         forecast.AggregateClientTotals(records, grid),
	}, nil
}

// OpenSession loads every line a client saved for a year into an editing session.
func (l *Ledger) OpenSession(tenantID, clientID, financialYear string) (session.Session, error) {
	fy, err := l.settingsFor(tenantID, financialYear)
	if err != nil {
		return session.Session{}, err
	}
	stored, err := l.storage.ListClientFinancials(tenantID, clientID, fy.CurrentFinancialYear)
	if err != nil {
		return session.Session{}, err
	}
	records := deref(stored)
	name := ""
	if len(records) > 0 {
		name = records[0].ClientName
	}
	return session.FromRecords(tenantID, clientID, name, fy, records), nil
}

// SaveSession saves one record per product line in the session. Lines that
// are no longer in the session are left as stored.
func (l *Ledger) SaveSession(s session.Session, userID string) ([]*models.ClientFinancialRecord, error) {
	pending := s.Records(userID)
	for i, r := range pending {
		if err := forecast.ValidateSave(r.ClientID, r.FinancialYear, r.ProductLine, r.DealDetails, l.schemas); err != nil {
			var verr *forecast.ValidationError
			if errors.As(err, &verr) {
				return nil, prefixed(verr, fmt.Sprintf("records[%d].", i))
			}
			return nil, err
		}
	}
	saved := make([]*models.ClientFinancialRecord, 0, len(pending))
	for _, r := range pending {
		rec, err := l.SaveClientFinancial(SaveRequest{
			TenantID:      r.TenantID,
			ClientID:      r.ClientID,
			ClientName:    r.ClientName,
			FinancialYear: r.FinancialYear,
			ProductLine:   r.ProductLine,
			Months:        r.Months,
			History:       r.History,
			DealDetails:   r.DealDetails,
			Comments:      r.Comments,
			UserID:        userID,
		})
		if err != nil {
			return saved, err
		}
		saved = append(saved, rec)
	}
	return saved, nil
}

// AddDeal adds a deal to a client's saved forecast and returns the recomputed view.
func (l *Ledger) AddDeal(tenantID, clientID, financialYear, userID string, deal models.Deal) (*session.View, error) {
	s, err := l.OpenSession(tenantID, clientID, financialYear)
	if err != nil {
		return nil, err
	}
	s, err = session.Edit(s, session.AddDeal{Deal: l.schemas.ResolveCosts(deal)})
	if err != nil {
		return nil, err
	}
	if _, err := l.SaveSession(s, userID); err != nil {
		return nil, err
	}
	view := s.Forecast()
	return &view, nil
}

// ClientForecast recomputes a client's saved deals without storing anything.
func (l *Ledger) ClientForecast(tenantID, clientID, financialYear string) (*session.View, error) {
	s, err := l.OpenSession(tenantID, clientID, financialYear)
	if err != nil {
		return nil, err
	}
	view := s.Forecast()
	return &view, nil
}

func prefixed(verr *forecast.ValidationError, prefix string) *forecast.ValidationError {
	out := &forecast.ValidationError{Missing: make([]string, len(verr.Missing))}
	for i, m := range verr.Missing {
		out.Missing[i] = prefix + m
	}
	return out
}

func deref(records []*models.ClientFinancialRecord) []models.ClientFinancialRecord {
	out := make([]models.ClientFinancialRecord, 0, len(records))
	for _, r := range records {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}
