package store

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/dealbook/forecast/pkg/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test_store.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRecord(clientID string, line models.ProductLine) *models.ClientFinancialRecord {
	return &models.ClientFinancialRecord{
		TenantID:      "acme",
		ClientID:      clientID,
		ClientName:    "Client " + clientID,
		FinancialYear: "2025",
		ProductLine:   line,
		Months: models.MonthlyDistribution{
			"2025-06": decimal.RequireFromString("30000"),
			"2025-07": decimal.RequireFromString("20833.37"),
		},
		History: models.History{
			PriorYear:      models.MonthlyDistribution{"2024-06": decimal.RequireFromString("1250.5")},
			CurrentYearYTD: models.MonthlyDistribution{"2025-03": decimal.RequireFromString("99.99")},
		},
		DealDetails: []models.Deal{{
			ID:          uuid.New(),
			ProductType: models.ProductCompliance,
			DealName:    "Fire safety",
			FieldValues: models.FieldValues{
				"numberOfTrainees": float64(20),
				"pricePerPerson":   float64(1500),
				"trainingDate":     "2025-06-15",
			},
			CostItems: map[string]models.CostItem{
				"travel": {Amount: decimal.RequireFromString("1200.10"), Frequency: models.FrequencyWithIncome},
			},
			CertaintyPercentage: decimal.NewFromInt(75),
		}},
		Comments:  "first pass",
		UpdatedBy: "user-1",
	}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}
	return string(b)
}

// testStorage runs the behaviour every Storage implementation shares.
func testStorage(t *testing.T, s Storage) {
	t.Run("RoundTrip", func(t *testing.T) {
		rec := sampleRecord("client-rt", models.LineComplianceTraining)
		if err := s.UpsertClientFinancial(rec); err != nil {
			t.Fatalf("Failed to upsert: %v", err)
		}
		if rec.ID == uuid.Nil {
			t.Fatal("Expected an id to be assigned")
		}

		fetched, err := s.GetClientFinancial("acme", "client-rt", "2025", models.LineComplianceTraining)
		if err != nil {
			t.Fatalf("Failed to get: %v", err)
		}
		if fetched.ID != rec.ID {
			t.Errorf("Expected ID %s, got %s", rec.ID, fetched.ID)
		}
		if got, want := mustJSON(t, fetched.Months), mustJSON(t, rec.Months); got != want {
			t.Errorf("Months changed on reload:\n got %s\nwant %s", got, want)
		}
		if got, want := mustJSON(t, fetched.History), mustJSON(t, rec.History); got != want {
			t.Errorf("History changed on reload:\n got %s\nwant %s", got, want)
		}
		if got, want := mustJSON(t, fetched.DealDetails), mustJSON(t, rec.DealDetails); got != want {
			t.Errorf("Deal details changed on reload:\n got %s\nwant %s", got, want)
		}
		if fetched.Comments != rec.Comments || fetched.UpdatedBy != rec.UpdatedBy || fetched.ClientName != rec.ClientName {
			t.Errorf("Scalar fields changed on reload: %+v", fetched)
		}
	})

	t.Run("UpsertReplaces", func(t *testing.T) {
		first := sampleRecord("client-up", models.LineOtherCourses)
		if err := s.UpsertClientFinancial(first); err != nil {
			t.Fatalf("Failed to upsert: %v", err)
		}

		second := sampleRecord("client-up", models.LineOtherCourses)
		second.Months = models.MonthlyDistribution{"2025-09": decimal.NewFromInt(5)}
		second.DealDetails = []models.Deal{}
		second.Comments = "second pass"
		if err := s.UpsertClientFinancial(second); err != nil {
			t.Fatalf("Failed to upsert again: %v", err)
		}
		if second.ID != first.ID {
			t.Errorf("Expected the stored id %s to be kept, got %s", first.ID, second.ID)
		}

		fetched, err := s.GetClientFinancial("acme", "client-up", "2025", models.LineOtherCourses)
		if err != nil {
			t.Fatalf("Failed to get: %v", err)
		}
		if fetched.Comments != "second pass" {
			t.Errorf("Expected last write to win, got comments %q", fetched.Comments)
		}
		if len(fetched.Months) != 1 || !fetched.Months.Get("2025-09").Equal(decimal.NewFromInt(5)) {
			t.Errorf("Expected months to be replaced, got %v", fetched.Months)
		}
		if len(fetched.DealDetails) != 0 {
			t.Errorf("Expected no deals, got %d", len(fetched.DealDetails))
		}
	})

	t.Run("List", func(t *testing.T) {
		for _, line := range []models.ProductLine{models.LineLearnerships, models.LineTapBusiness} {
			if err := s.UpsertClientFinancial(sampleRecord("client-ls", line)); err != nil {
				t.Fatalf("Failed to upsert: %v", err)
			}
		}
		other := sampleRecord("client-ls", models.LineLearnerships)
		other.FinancialYear = "2026"
		if err := s.UpsertClientFinancial(other); err != nil {
			t.Fatalf("Failed to upsert: %v", err)
		}

		records, err := s.ListClientFinancials("acme", "client-ls", "2025")
		if err != nil {
			t.Fatalf("Failed to list: %v", err)
		}
		if len(records) != 2 {
			t.Errorf("Expected 2 records for 2025, got %d", len(records))
		}

		tenant, err := s.ListTenantFinancials("acme", "2026")
		if err != nil {
			t.Fatalf("Failed to list tenant: %v", err)
		}
		if len(tenant) != 1 {
			t.Errorf("Expected 1 tenant record for 2026, got %d", len(tenant))
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := s.UpsertClientFinancial(sampleRecord("client-del", models.LineTapBusiness)); err != nil {
			t.Fatalf("Failed to upsert: %v", err)
		}
		if err := s.DeleteClientFinancial("acme", "client-del", "2025", models.LineTapBusiness); err != nil {
			t.Fatalf("Failed to delete: %v", err)
		}
		if _, err := s.GetClientFinancial("acme", "client-del", "2025", models.LineTapBusiness); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound after delete, got %v", err)
		}
		if err := s.DeleteClientFinancial("acme", "client-del", "2025", models.LineTapBusiness); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound deleting twice, got %v", err)
		}
	})

	t.Run("TenantIsolation", func(t *testing.T) {
		mine := sampleRecord("client-iso", models.LineComplianceTraining)
		if err := s.UpsertClientFinancial(mine); err != nil {
			t.Fatalf("Failed to upsert: %v", err)
		}
		theirs := sampleRecord("client-iso", models.LineComplianceTraining)
		theirs.TenantID = "rival"
		theirs.Comments = "rival copy"
		if err := s.UpsertClientFinancial(theirs); err != nil {
			t.Fatalf("Failed to upsert for the second tenant: %v", err)
		}
		if theirs.ID == mine.ID {
			t.Fatal("Expected a separate record per tenant")
		}

		if err := s.DeleteClientFinancial("rival", "client-iso", "2025", models.LineComplianceTraining); err != nil {
			t.Fatalf("Failed to delete: %v", err)
		}
		fetched, err := s.GetClientFinancial("acme", "client-iso", "2025", models.LineComplianceTraining)
		if err != nil {
			t.Fatalf("Expected the first tenant's record to survive, got %v", err)
		}
		if fetched.Comments != "first pass" || fetched.TenantID != "acme" {
			t.Errorf("First tenant's record was changed: %+v", fetched)
		}
		if _, err := s.GetClientFinancial("rival", "client-iso", "2025", models.LineComplianceTraining); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound for the other tenant, got %v", err)
		}
		records, err := s.ListClientFinancials("rival", "client-iso", "2025")
		if err != nil {
			t.Fatalf("Failed to list: %v", err)
		}
		if len(records) != 0 {
			t.Errorf("Expected no records for the other tenant, got %d", len(records))
		}
	})

	t.Run("Settings", func(t *testing.T) {
		if _, err := s.GetSettings("tenant-new"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
		want := models.FinancialYearSettings{
			StartMonthName:       "July",
			EndMonthName:         "June",
			CurrentFinancialYear: "2025/2026",
			ReportingMonthName:   "October",
		}
		if err := s.SaveSettings("tenant-new", want); err != nil {
			t.Fatalf("Failed to save settings: %v", err)
		}
		want.ReportingMonthName = "November"
		if err := s.SaveSettings("tenant-new", want); err != nil {
			t.Fatalf("Failed to update settings: %v", err)
		}
		got, err := s.GetSettings("tenant-new")
		if err != nil {
			t.Fatalf("Failed to get settings: %v", err)
		}
		if *got != want {
			t.Errorf("Expected %+v, got %+v", want, *got)
		}
	})
}

func TestSQLiteStore(t *testing.T) {
	testStorage(t, newSQLiteStore(t))
}

func TestSQLiteStore_NotFound(t *testing.T) {
	s := newSQLiteStore(t)

	if _, err := s.GetClientFinancial("acme", "nobody", "2025", models.LineLearnerships); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	records, err := s.ListClientFinancials("acme", "nobody", "2025")
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Expected no records, got %d", len(records))
	}
}

func TestSQLiteStore_OpenFailure(t *testing.T) {
	// A directory cannot be opened as a database file.
	s, err := NewSQLiteStore(t.TempDir())
	if err == nil {
		s.Close()
		t.Fatal("Expected opening a directory to fail")
	}
	if s != nil {
		t.Errorf("Expected no store on failure, got %v", s)
	}
}
