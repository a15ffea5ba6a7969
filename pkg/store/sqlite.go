package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dealbook/forecast/pkg/models"
	"github.com/google/uuid"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore manages the database connection and operations for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLiteStore and initializes the database.
func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL;")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not initialize schema: %w", err)
	}
	log.Println("[store] SQLite connection established and schema initialized.")
	return s, nil
}

// initSchema creates the tables if they don't already exist.
// Amount-bearing documents are TEXT JSON with decimal strings so no precision is lost.
func (s *SQLiteStore) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS client_financials (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		client_id TEXT NOT NULL,
		client_name TEXT NOT NULL,
		financial_year TEXT NOT NULL,
		product_line TEXT NOT NULL,
		months TEXT NOT NULL DEFAULT '{}',
		history TEXT NOT NULL DEFAULT '{}',
		deal_details TEXT NOT NULL DEFAULT '[]',
		comments TEXT NOT NULL DEFAULT '',
		updated_by TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		UNIQUE (tenant_id, client_id, financial_year, product_line)
	);
	CREATE INDEX IF NOT EXISTS idx_client_financials_tenant ON client_financials (tenant_id, financial_year);
	CREATE TABLE IF NOT EXISTS tenant_settings (
		tenant_id TEXT PRIMARY KEY,
		start_month_name TEXT NOT NULL,
		end_month_name TEXT NOT NULL,
		current_financial_year TEXT NOT NULL,
		reporting_month_name TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

const selectRecord = `SELECT id, tenant_id, client_id, client_name, financial_year, product_line, months, history, deal_details, comments, updated_by, created_at, updated_at FROM client_financials`

// UpsertClientFinancial inserts or fully replaces a client financial record.
func (s *SQLiteStore) UpsertClientFinancial(rec *models.ClientFinancialRecord) error {
	payload, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	_, err = s.db.Exec(
		`INSERT INTO client_financials (id, tenant_id, client_id, client_name, financial_year, product_line, months, history, deal_details, comments, updated_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (tenant_id, client_id, financial_year, product_line) DO UPDATE SET
			client_name = excluded.client_name,
			months = excluded.months,
			history = excluded.history,
			deal_details = excluded.deal_details,
			comments = excluded.comments,
			updated_by = excluded.updated_by,
			updated_at = excluded.updated_at`,
		rec.ID.String(), rec.TenantID, rec.ClientID, rec.ClientName, rec.FinancialYear, string(rec.ProductLine),
		string(payload.months), string(payload.history), string(payload.deals), rec.Comments, rec.UpdatedBy, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert client financial: %w", err)
	}

	// An existing row keeps its id and creation time.
	var idStr string
	var created time.Time
	err = s.db.QueryRow(`SELECT id, created_at FROM client_financials WHERE tenant_id = ? AND client_id = ? AND financial_year = ? AND product_line = ?`,
		rec.TenantID, rec.ClientID, rec.FinancialYear, string(rec.ProductLine)).Scan(&idStr, &created)
	if err != nil {
		return fmt.Errorf("failed to read back client financial: %w", err)
	}
	rec.ID = uuid.MustParse(idStr)
	rec.CreatedAt = created
	return nil
}

// GetClientFinancial retrieves a tenant's record for one client, year and product line.
func (s *SQLiteStore) GetClientFinancial(tenantID, clientID, financialYear string, line models.ProductLine) (*models.ClientFinancialRecord, error) {
	row := s.db.QueryRow(selectRecord+` WHERE tenant_id = ? AND client_id = ? AND financial_year = ? AND product_line = ?`, tenantID, clientID, financialYear, string(line))
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get client financial: %w", err)
	}
	return rec, nil
}

// ListClientFinancials retrieves every product line saved for a client and year.
func (s *SQLiteStore) ListClientFinancials(tenantID, clientID, financialYear string) ([]*models.ClientFinancialRecord, error) {
	rows, err := s.db.Query(selectRecord+` WHERE tenant_id = ? AND client_id = ? AND financial_year = ? ORDER BY product_line`, tenantID, clientID, financialYear)
	if err != nil {
		return nil, fmt.Errorf("failed to list client financials: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ListTenantFinancials retrieves every record a tenant saved for a year.
func (s *SQLiteStore) ListTenantFinancials(tenantID, financialYear string) ([]*models.ClientFinancialRecord, error) {
	rows, err := s.db.Query(selectRecord+` WHERE tenant_id = ? AND financial_year = ? ORDER BY client_id, product_line`, tenantID, financialYear)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenant financials: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// DeleteClientFinancial removes one record.
func (s *SQLiteStore) DeleteClientFinancial(tenantID, clientID, financialYear string, line models.ProductLine) error {
	result, err := s.db.Exec(`DELETE FROM client_financials WHERE tenant_id = ? AND client_id = ? AND financial_year = ? AND product_line = ?`, tenantID, clientID, financialYear, string(line))
	if err != nil {
		return fmt.Errorf("failed to delete client financial: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetSettings retrieves a tenant's financial-year settings.
func (s *SQLiteStore) GetSettings(tenantID string) (*models.FinancialYearSettings, error) {
	var fy models.FinancialYearSettings
	err := s.db.QueryRow(`SELECT start_month_name, end_month_name, current_financial_year, reporting_month_name FROM tenant_settings WHERE tenant_id = ?`, tenantID).
		Scan(&fy.StartMonthName, &fy.EndMonthName, &fy.CurrentFinancialYear, &fy.ReportingMonthName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get tenant settings: %w", err)
	}
	return &fy, nil
}

// SaveSettings inserts or replaces a tenant's financial-year settings.
func (s *SQLiteStore) SaveSettings(tenantID string, fy models.FinancialYearSettings) error {
	_, err := s.db.Exec(
		`INSERT INTO tenant_settings (tenant_id, start_month_name, end_month_name, current_financial_year, reporting_month_name, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (tenant_id) DO UPDATE SET
			start_month_name = excluded.start_month_name,
			end_month_name = excluded.end_month_name,
			current_financial_year = excluded.current_financial_year,
			reporting_month_name = excluded.reporting_month_name,
			updated_at = excluded.updated_at`,
		tenantID, fy.StartMonthName, fy.EndMonthName, fy.CurrentFinancialYear, fy.ReportingMonthName, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save tenant settings: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*models.ClientFinancialRecord, error) {
	var rec models.ClientFinancialRecord
	var idStr, line, months, history, deals string
	if err := row.Scan(&idStr, &rec.TenantID, &rec.ClientID, &rec.ClientName, &rec.FinancialYear, &line, &months, &history, &deals, &rec.Comments, &rec.UpdatedBy, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid record id %q: %w", idStr, err)
	}
	rec.ID = id
	rec.ProductLine = models.ProductLine(line)
	if err := decodeRecord(&rec, recordPayload{months: []byte(months), history: []byte(history), deals: []byte(deals)}); err != nil {
		return nil, err
	}
	return &rec, nil
}

func scanRecords(rows *sql.Rows) ([]*models.ClientFinancialRecord, error) {
	var records []*models.ClientFinancialRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client financial row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return records, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
