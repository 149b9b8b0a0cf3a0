package services

import (
	"testing"
	"time"
)

func TestWorkCalendar_WeekdaysOnly(t *testing.T) {
	w := NewWorkCalendar("")
	if w.Country() != "NONE" {
		t.Errorf("Country() = %q, expected NONE", w.Country())
	}
	sat := time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC)
	mon := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	if w.IsWorkday(sat) {
		t.Error("Saturday should not be a workday")
	}
	if !w.IsWorkday(mon) {
		t.Error("Monday should be a workday")
	}
}

func TestWorkCalendar_BusinessDaysBetween(t *testing.T) {
	w := NewWorkCalendar("none")
	fri := time.Date(2026, 3, 6, 17, 0, 0, 0, time.UTC)
	tue := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	if got := w.BusinessDaysBetween(fri, tue); got != 2 {
		t.Errorf("Fri -> Tue = %d business days, expected 2", got)
	}
	if got := w.BusinessDaysBetween(tue, fri); got != 0 {
		t.Errorf("reversed range = %d, expected 0", got)
	}
	if got := w.BusinessDaysBetween(fri, fri.Add(time.Hour)); got != 0 {
		t.Errorf("same day = %d, expected 0", got)
	}
}

func TestWorkCalendar_CountryHolidays(t *testing.T) {
	us := NewWorkCalendar("us")
	july4 := time.Date(2025, 7, 4, 12, 0, 0, 0, time.UTC) // a Friday
	if us.IsWorkday(july4) {
		t.Error("Independence Day should not be a US workday")
	}
	if !NewWorkCalendar("NONE").IsWorkday(july4) {
		t.Error("July 4th is a plain Friday without a holiday calendar")
	}

	cn := NewWorkCalendar("CN")
	nationalDay := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	if cn.IsWorkday(nationalDay) {
		t.Error("National Day should not be a CN workday")
	}
}

func TestSupportedCountries(t *testing.T) {
	countries := SupportedCountries()
	seen := map[string]bool{}
	for _, c := range countries {
		seen[c.Code] = true
	}
	for code := range countryHolidays {
		if !seen[code] {
			t.Errorf("country %s has holidays but is not listed", code)
		}
	}
	if !seen["CN"] || !seen["NONE"] {
		t.Error("CN and NONE should be listed")
	}
}
