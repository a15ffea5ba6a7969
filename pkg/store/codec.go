package store

import (
	"encoding/json"
	"fmt"

	"github.com/dealbook/forecast/pkg/models"
)

// Months, history and deals are stored as JSON documents. Amounts encode as
// decimal strings so nothing is lost on the way through.
type recordPayload struct {
	months  []byte
	history []byte
	deals   []byte
}

func encodeRecord(rec *models.ClientFinancialRecord) (recordPayload, error) {
	var p recordPayload
	var err error
	months := rec.Months
	if months == nil {
		months = models.MonthlyDistribution{}
	}
	if p.months, err = json.Marshal(months); err != nil {
		return p, fmt.Errorf("failed to encode months: %w", err)
	}
	if p.history, err = json.Marshal(rec.History); err != nil {
		return p, fmt.Errorf("failed to encode history: %w", err)
	}
	deals := rec.DealDetails
	if deals == nil {
		deals = []models.Deal{}
	}
	if p.deals, err = json.Marshal(deals); err != nil {
		return p, fmt.Errorf("failed to encode deal details: %w", err)
	}
	return p, nil
}

func decodeRecord(rec *models.ClientFinancialRecord, p recordPayload) error {
	if err := json.Unmarshal(p.months, &rec.Months); err != nil {
		return fmt.Errorf("failed to decode months: %w", err)
	}
	if err := json.Unmarshal(p.history, &rec.History); err != nil {
		return fmt.Errorf("failed to decode history: %w", err)
	}
	if err := json.Unmarshal(p.deals, &rec.DealDetails); err != nil {
		return fmt.Errorf("failed to decode deal details: %w", err)
	}
	return nil
}
