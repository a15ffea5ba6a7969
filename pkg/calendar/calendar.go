// Package calendar turns tenant financial-year settings into the 12-month grid
// every forecast is laid out on.
package calendar

import (
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dealbook/forecast/pkg/models"
)

const monthsInYear = 12

// DefaultSettings is used for any setting a tenant has not configured.
var DefaultSettings = models.FinancialYearSettings{
	StartMonthName: "March",
	EndMonthName:   "February",
}

// now is swapped in tests.
var now = time.Now

var yearPattern = regexp.MustCompile(`\d{2,4}`)

// MonthIndex resolves a month name ("March", "mar", "3") to its 0-based calendar index.
func MonthIndex(name string) (int, bool) {
	s := strings.ToLower(strings.TrimSpace(name))
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n >= 1 && n <= monthsInYear {
			return n - 1, true
		}
		return 0, false
	}
	for m := time.January; m <= time.December; m++ {
		full := strings.ToLower(m.String())
		if s == full || (len(s) >= 3 && strings.HasPrefix(full, s)) {
			return int(m) - 1, true
		}
	}
	return 0, false
}

// Key formats a year and 0-based month index as "YYYY-MM".
func Key(year, monthIndex int) string {
	return fmt.Sprintf("%04d-%02d", year, monthIndex+1)
}

// KeyOf returns the month key a date falls in.
func KeyOf(t time.Time) string {
	return Key(t.Year(), int(t.Month())-1)
}

// AddMonths moves a date by n calendar months, pinned to the first of the month.
func AddMonths(t time.Time, n int) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
}

// MonthsBetween counts the calendar months from start to end inclusive of both
// endpoints: Jan..Jan is 1, Jan..Mar is 3. An end before the start counts as 1.
func MonthsBetween(start, end time.Time) int {
	n := (end.Year()-start.Year())*monthsInYear + int(end.Month()) - int(start.Month()) + 1
	if n < 1 {
		return 1
	}
	return n
}

// StartYear works out the calendar year the financial year's first month falls in.
//
// A label with two years ("2025/2026", "2025-26") names the start year first.
// A single-year label ("2026", "FY2026") names the financial year; a start month
// in the back half of the calendar (July onwards) then belongs to the year before.
func StartYear(label string, startMonthIndex int) (int, bool) {
	matches := yearPattern.FindAllString(label, -1)
	if len(matches) == 0 {
		return 0, false
	}
	first := expandYear(matches[0])
	if len(matches) >= 2 {
		return first, true
	}
	if startMonthIndex >= monthsInYear/2 {
		return first - 1, true
	}
	return first, true
}

func expandYear(s string) int {
	n, _ := strconv.Atoi(s)
	if len(s) == 2 {
		return 2000 + n
	}
	return n
}

// Build returns the 12 months of the configured financial year in chronological
// order. Months strictly after the reporting month are marked remaining; the
// reporting month itself is actual. Without a reporting month every month is remaining.
func Build(settings models.FinancialYearSettings) []models.FYMonth {
	startIdx, ok := MonthIndex(settings.StartMonthName)
	if !ok {
		startIdx, _ = MonthIndex(DefaultSettings.StartMonthName)
	}
	if endIdx, ok := MonthIndex(settings.EndMonthName); ok && endIdx != (startIdx+monthsInYear-1)%monthsInYear {
		log.Printf("[calendar] WARN end month %q does not close a 12-month year starting %s; using start month", settings.EndMonthName, time.Month(startIdx+1))
	}

	year, ok := StartYear(settings.CurrentFinancialYear, startIdx)
	if !ok {
		year, _ = StartYear(strconv.Itoa(now().Year()), startIdx)
		log.Printf("[calendar] WARN financial year %q not recognised; using %d", settings.CurrentFinancialYear, year)
	}

	start := time.Date(year, time.Month(startIdx+1), 1, 0, 0, 0, 0, time.UTC)
	grid := make([]models.FYMonth, 0, monthsInYear)
	for i := 0; i < monthsInYear; i++ {
		m := start.AddDate(0, i, 0)
		grid = append(grid, models.FYMonth{
			Year:               m.Year(),
			CalendarMonthIndex: int(m.Month()) - 1,
			Name:               m.Month().String(),
			Key:                KeyOf(m),
			IsRemaining:        true,
		})
	}

	if reportIdx, ok := MonthIndex(settings.ReportingMonthName); ok {
		pos := Position(grid, reportIdx)
		for i := 0; i <= pos; i++ {
			grid[i].IsRemaining = false
		}
	}
	return grid
}

// Position returns the grid position of a calendar month index, or -1.
func Position(grid []models.FYMonth, monthIndex int) int {
	for i, m := range grid {
		if m.CalendarMonthIndex == monthIndex {
			return i
		}
	}
	return -1
}

// IndexOf returns the grid position of a month key, or -1 when the key is outside the grid.
func IndexOf(grid []models.FYMonth, key string) int {
	for i, m := range grid {
		if m.Key == key {
			return i
		}
	}
	return -1
}

// Keys lists the grid's month keys in order.
func Keys(grid []models.FYMonth) []string {
	keys := make([]string, len(grid))
	for i, m := range grid {
		keys[i] = m.Key
	}
	return keys
}

// WithFinancialYear returns settings for another financial year of the same tenant.
func WithFinancialYear(settings models.FinancialYearSettings, fy string) models.FinancialYearSettings {
	if strings.TrimSpace(fy) != "" {
		settings.CurrentFinancialYear = fy
	}
	return settings
}
