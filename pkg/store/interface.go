package store

import (
	"errors"

	"github.com/dealbook/forecast/pkg/models"
)

// ErrNotFound is returned when a record or tenant setting does not exist.
var ErrNotFound = errors.New("not found")

// Storage defines the persistence operations for client financial records and
// tenant financial-year settings.
type Storage interface {
	// UpsertClientFinancial replaces the record stored under
	// (TenantID, ClientID, FinancialYear, ProductLine), creating it if needed.
	// The stored ID and CreatedAt are written back into rec. Last write wins.
	UpsertClientFinancial(rec *models.ClientFinancialRecord) error
	GetClientFinancial(tenantID, clientID, financialYear string, line models.ProductLine) (*models.ClientFinancialRecord, error)
	ListClientFinancials(tenantID, clientID, financialYear string) ([]*models.ClientFinancialRecord, error)
	ListTenantFinancials(tenantID, financialYear string) ([]*models.ClientFinancialRecord, error)
	DeleteClientFinancial(tenantID, clientID, financialYear string, line models.ProductLine) error

	GetSettings(tenantID string) (*models.FinancialYearSettings, error)
	SaveSettings(tenantID string, settings models.FinancialYearSettings) error

	Close() error
}
