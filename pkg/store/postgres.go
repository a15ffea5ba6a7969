package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dealbook/forecast/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps records in PostgreSQL through a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to dsn and creates the tables if needed.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("could not initialize schema: %w", err)
	}
	log.Println("[store] PostgreSQL pool established and schema initialized.")
	return s, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS client_financials (
		id UUID PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		client_id TEXT NOT NULL,
		client_name TEXT NOT NULL,
		financial_year TEXT NOT NULL,
		product_line TEXT NOT NULL,
		months JSONB NOT NULL DEFAULT '{}',
		history JSONB NOT NULL DEFAULT '{}',
		deal_details JSONB NOT NULL DEFAULT '[]',
		comments TEXT NOT NULL DEFAULT '',
		updated_by TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		UNIQUE (tenant_id, client_id, financial_year, product_line)
	);
	CREATE INDEX IF NOT EXISTS idx_client_financials_tenant ON client_financials (tenant_id, financial_year);
	CREATE TABLE IF NOT EXISTS tenant_settings (
		tenant_id TEXT PRIMARY KEY,
		start_month_name TEXT NOT NULL,
		end_month_name TEXT NOT NULL,
		current_financial_year TEXT NOT NULL,
		reporting_month_name TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);
	`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

const selectRecordPG = `SELECT id::text, tenant_id, client_id, client_name, financial_year, product_line, months::text, history::text, deal_details::text, comments, updated_by, created_at, updated_at FROM client_financials`

// UpsertClientFinancial inserts or fully replaces a client financial record.
func (s *PostgresStore) UpsertClientFinancial(rec *models.ClientFinancialRecord) error {
	ctx := context.Background()
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

	var idStr string
	err = s.pool.QueryRow(ctx,
		`INSERT INTO client_financials (id, tenant_id, client_id, client_name, financial_year, product_line, months, history, deal_details, comments, updated_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8::jsonb, $9::jsonb, $10, $11, $12, $13)
		ON CONFLICT (tenant_id, client_id, financial_year, product_line) DO UPDATE SET
			client_name = EXCLUDED.client_name,
			months = EXCLUDED.months,
			history = EXCLUDED.history,
			deal_details = EXCLUDED.deal_details,
			comments = EXCLUDED.comments,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at
		RETURNING id::text, created_at`,
		rec.ID.String(), rec.TenantID, rec.ClientID, rec.ClientName, rec.FinancialYear, string(rec.ProductLine),
		string(payload.months), string(payload.history), string(payload.deals), rec.Comments, rec.UpdatedBy, rec.CreatedAt, rec.UpdatedAt,
	).Scan(&idStr, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert client financial: %w", err)
	}
	rec.ID = uuid.MustParse(idStr)
	return nil
}

func (s *PostgresStore) GetClientFinancial(tenantID, clientID, financialYear string, line models.ProductLine) (*models.ClientFinancialRecord, error) {
	row := s.pool.QueryRow(context.Background(), selectRecordPG+` WHERE tenant_id = $1 AND client_id = $2 AND financial_year = $3 AND product_line = $4`, tenantID, clientID, financialYear, string(line))
	rec, err := scanRecordPG(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get client financial: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) ListClientFinancials(tenantID, clientID, financialYear string) ([]*models.ClientFinancialRecord, error) {
	rows, err := s.pool.Query(context.Background(), selectRecordPG+` WHERE tenant_id = $1 AND client_id = $2 AND financial_year = $3 ORDER BY product_line`, tenantID, clientID, financialYear)
	if err != nil {
		return nil, fmt.Errorf("failed to list client financials: %w", err)
	}
	defer rows.Close()
	return scanRecordsPG(rows)
}

func (s *PostgresStore) ListTenantFinancials(tenantID, financialYear string) ([]*models.ClientFinancialRecord, error) {
	rows, err := s.pool.Query(context.Background(), selectRecordPG+` WHERE tenant_id = $1 AND financial_year = $2 ORDER BY client_id, product_line`, tenantID, financialYear)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenant financials: %w", err)
	}
	defer rows.Close()
	return scanRecordsPG(rows)
}

func (s *PostgresStore) DeleteClientFinancial(tenantID, clientID, financialYear string, line models.ProductLine) error {
	tag, err := s.pool.Exec(context.Background(), `DELETE FROM client_financials WHERE tenant_id = $1 AND client_id = $2 AND financial_year = $3 AND product_line = $4`, tenantID, clientID, financialYear, string(line))
	if err != nil {
		return fmt.Errorf("failed to delete client financial: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) GetSettings(tenantID string) (*models.FinancialYearSettings, error) {
	var fy models.FinancialYearSettings
	err := s.pool.QueryRow(context.Background(), `SELECT start_month_name, end_month_name, current_financial_year, reporting_month_name FROM tenant_settings WHERE tenant_id = $1`, tenantID).
		Scan(&fy.StartMonthName, &fy.EndMonthName, &fy.CurrentFinancialYear, &fy.ReportingMonthName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get tenant settings: %w", err)
	}
	return &fy, nil
}

func (s *PostgresStore) SaveSettings(tenantID string, fy models.FinancialYearSettings) error {
	_, err := s.pool.Exec(context.Background(),
		`INSERT INTO tenant_settings (tenant_id, start_month_name, end_month_name, current_financial_year, reporting_month_name, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tenant_id) DO UPDATE SET
			start_month_name = EXCLUDED.start_month_name,
			end_month_name = EXCLUDED.end_month_name,
			current_financial_year = EXCLUDED.current_financial_year,
			reporting_month_name = EXCLUDED.reporting_month_name,
			updated_at = EXCLUDED.updated_at`,
		tenantID, fy.StartMonthName, fy.EndMonthName, fy.CurrentFinancialYear, fy.ReportingMonthName, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save tenant settings: %w", err)
	}
	return nil
}

func scanRecordPG(row pgx.Row) (*models.ClientFinancialRecord, error) {
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

func scanRecordsPG(rows pgx.Rows) ([]*models.ClientFinancialRecord, error) {
	var records []*models.ClientFinancialRecord
	for rows.Next() {
		rec, err := scanRecordPG(rows)
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

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
