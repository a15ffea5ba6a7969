package calendar

import (
	"testing"
	"time"

	"github.com/dealbook/forecast/pkg/models"
)

func date(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func TestBuildDefault(t *testing.T) {
	grid := Build(models.FinancialYearSettings{StartMonthName: "March", EndMonthName: "February", CurrentFinancialYear: "2025"})

	if len(grid) != 12 {
		t.Fatalf("Expected 12 months, got %d", len(grid))
	}
	if grid[0].Key != "2025-03" || grid[11].Key != "2026-02" {
		t.Errorf("Expected 2025-03..2026-02, got %s..%s", grid[0].Key, grid[11].Key)
	}
	seen := map[string]bool{}
	for i, m := range grid {
		if seen[m.Key] {
			t.Errorf("Duplicate key %s", m.Key)
		}
		seen[m.Key] = true
		if i > 0 && m.Key <= grid[i-1].Key {
			t.Errorf("Month %s is not after %s", m.Key, grid[i-1].Key)
		}
		if !m.IsRemaining {
			t.Errorf("Without a reporting month every month is remaining, %s is not", m.Key)
		}
	}
	if grid[10].Name != "January" || grid[10].Year != 2026 || grid[10].CalendarMonthIndex != 0 {
		t.Errorf("Unexpected month %+v", grid[10])
	}
}

func TestBuildReportingMonthPartition(t *testing.T) {
	grid := Build(models.FinancialYearSettings{StartMonthName: "March", CurrentFinancialYear: "2025", ReportingMonthName: "May"})

	actual := 0
	for i, m := range grid {
		if !m.IsRemaining {
			actual++
			if i > 2 {
				t.Errorf("Month %s after the reporting month is marked actual", m.Key)
			}
		}
	}
	if actual != 3 {
		t.Errorf("Expected March, April and May to be actual, got %d actual months", actual)
	}
}

func TestBuildWrapsYear(t *testing.T) {
	grid := Build(models.FinancialYearSettings{StartMonthName: "July", EndMonthName: "June", CurrentFinancialYear: "2026"})

	if grid[0].Key != "2025-07" || grid[5].Key != "2025-12" || grid[6].Key != "2026-01" || grid[11].Key != "2026-06" {
		t.Errorf("Unexpected grid %v", Keys(grid))
	}
}

func TestBuildIgnoresInconsistentEndMonth(t *testing.T) {
	grid := Build(models.FinancialYearSettings{StartMonthName: "March", EndMonthName: "June", CurrentFinancialYear: "2025"})

	if len(grid) != 12 || grid[11].Key != "2026-02" {
		t.Errorf("Expected 12 months from March, got %v", Keys(grid))
	}
}

func TestBuildUnparseableYearUsesClock(t *testing.T) {
	defer func(orig func() time.Time) { now = orig }(now)
	now = func() time.Time { return time.Date(2024, time.May, 10, 0, 0, 0, 0, time.UTC) }

	grid := Build(models.FinancialYearSettings{StartMonthName: "March", CurrentFinancialYear: "current"})
	if grid[0].Key != "2024-03" {
		t.Errorf("Expected the grid to start at 2024-03, got %s", grid[0].Key)
	}
}

func TestBuildDefaultsStartMonth(t *testing.T) {
	grid := Build(models.FinancialYearSettings{CurrentFinancialYear: "2025"})
	if grid[0].Key != "2025-03" {
		t.Errorf("Expected the default March start, got %s", grid[0].Key)
	}
}

func TestStartYear(t *testing.T) {
	tests := []struct {
		label    string
		startIdx int
		want     int
	}{
		{"2025", 2, 2025},
		{"2025/2026", 6, 2025},
		{"2025-26", 6, 2025},
		{"FY2026", 6, 2025},
		{"2026", 0, 2026},
	}
	for _, tt := range tests {
		got, ok := StartYear(tt.label, tt.startIdx)
		if !ok || got != tt.want {
			t.Errorf("StartYear(%q, %d) = %d, %v; want %d", tt.label, tt.startIdx, got, ok, tt.want)
		}
	}
	if _, ok := StartYear("next year", 2); ok {
		t.Error("Expected a label without digits to be rejected")
	}
}

func TestMonthsBetween(t *testing.T) {
	tests := []struct {
		start, end time.Time
		want       int
	}{
		{date(2025, time.January), date(2025, time.January), 1},
		{date(2025, time.January), date(2025, time.March), 3},
		{date(2025, time.November), date(2026, time.February), 4},
		{date(2025, time.March), date(2026, time.February), 12},
		{date(2025, time.June), date(2025, time.March), 1},
	}
	for _, tt := range tests {
		if got := MonthsBetween(tt.start, tt.end); got != tt.want {
			t.Errorf("MonthsBetween(%s, %s) = %d; want %d", KeyOf(tt.start), KeyOf(tt.end), got, tt.want)
		}
	}
}

func TestMonthIndex(t *testing.T) {
	valid := map[string]int{"March": 2, "mar": 2, "3": 2, " september ": 8, "Dec": 11}
	for name, want := range valid {
		got, ok := MonthIndex(name)
		if !ok || got != want {
			t.Errorf("MonthIndex(%q) = %d, %v; want %d", name, got, ok, want)
		}
	}
	for _, name := range []string{"", "13", "0", "ma", "Smarch"} {
		if _, ok := MonthIndex(name); ok {
			t.Errorf("MonthIndex(%q) should fail", name)
		}
	}
}

func TestAddMonths(t *testing.T) {
	got := AddMonths(time.Date(2025, time.January, 31, 12, 0, 0, 0, time.UTC), 1)
	if KeyOf(got) != "2025-02" {
		t.Errorf("Expected 2025-02, got %s", KeyOf(got))
	}
	if KeyOf(AddMonths(date(2025, time.November), 3)) != "2026-02" {
		t.Error("Expected AddMonths to cross the year")
	}
}

func TestWithFinancialYear(t *testing.T) {
	base := models.FinancialYearSettings{StartMonthName: "March", CurrentFinancialYear: "2025"}
	if got := WithFinancialYear(base, "2026"); got.CurrentFinancialYear != "2026" {
		t.Errorf("Expected 2026, got %s", got.CurrentFinancialYear)
	}
	if got := WithFinancialYear(base, " "); got.CurrentFinancialYear != "2025" {
		t.Errorf("Expected a blank year to keep 2025, got %s", got.CurrentFinancialYear)
	}
}
