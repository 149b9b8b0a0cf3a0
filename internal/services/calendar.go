package services

import (
	"strings"
	"time"

	"github.com/6tail/lunar-go/HolidayUtil"
	"github.com/6tail/lunar-go/calendar"
	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/au"
	"github.com/rickar/cal/v2/br"
	"github.com/rickar/cal/v2/ca"
	"github.com/rickar/cal/v2/de"
	"github.com/rickar/cal/v2/es"
	"github.com/rickar/cal/v2/fr"
	"github.com/rickar/cal/v2/gb"
	"github.com/rickar/cal/v2/it"
	"github.com/rickar/cal/v2/jp"
	"github.com/rickar/cal/v2/nl"
	"github.com/rickar/cal/v2/nz"
	"github.com/rickar/cal/v2/us"
)

// WorkCalendar decides which days count as working days for approval
// turnaround figures. Unknown countries and NONE fall back to Mon-Fri.
type WorkCalendar struct {
	country  string
	business *cal.BusinessCalendar
}

var countryHolidays = map[string][]*cal.Holiday{
	"US": us.Holidays,
	"GB": gb.Holidays,
	"DE": de.Holidays,
	"FR": fr.Holidays,
	"JP": jp.Holidays,
	"AU": au.HolidaysNSW,
	"CA": ca.Holidays,
	"NZ": nz.Holidays,
	"IT": it.Holidays,
	"ES": es.Holidays,
	"NL": nl.Holidays,
	"BR": br.Holidays,
}

func NewWorkCalendar(country string) *WorkCalendar {
	country = strings.ToUpper(strings.TrimSpace(country))
	if country == "" {
		country = "NONE"
	}
	w := &WorkCalendar{country: country}
	if holidays, ok := countryHolidays[country]; ok {
		w.business = cal.NewBusinessCalendar()
		w.business.Name = country
		w.business.AddHoliday(holidays...)
	}
	return w
}

func (w *WorkCalendar) Country() string {
	return w.country
}

func (w *WorkCalendar) IsWorkday(t time.Time) bool {
	if w.country == "CN" {
		return isWorkdayChina(t)
	}
	if w.business != nil {
		return w.business.IsWorkday(t)
	}
	return !cal.IsWeekend(t)
}

// BusinessDaysBetween counts working days after start's date up to and
// including end's date. Returns 0 if end is not after start.
func (w *WorkCalendar) BusinessDaysBetween(start, end time.Time) int {
	day := truncateDay(start)
	last := truncateDay(end)
	count := 0
	for day.Before(last) {
		day = day.AddDate(0, 0, 1)
		if w.IsWorkday(day) {
			count++
		}
	}
	return count
}

func isWorkdayChina(t time.Time) bool {
	solar := calendar.NewSolarFromDate(t)
	holiday := HolidayUtil.GetHolidayByYmd(solar.GetYear(), solar.GetMonth(), solar.GetDay())
	if holiday != nil {
		return holiday.IsWork()
	}
	return !cal.IsWeekend(t)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 12, 0, 0, 0, t.Location())
}

type CountryInfo struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

func SupportedCountries() []CountryInfo {
	return []CountryInfo{
		{Code: "NONE", Name: "Weekdays Only (Mon-Fri)"},
		{Code: "CN", Name: "China"},
		{Code: "US", Name: "United States"},
		{Code: "GB", Name: "United Kingdom"},
		{Code: "DE", Name: "Germany"},
		{Code: "FR", Name: "France"},
		{Code: "JP", Name: "Japan"},
		{Code: "AU", Name: "Australia"},
		{Code: "CA", Name: "Canada"},
		{Code: "NZ", Name: "New Zealand"},
		{Code: "IT", Name: "Italy"},
		{Code: "ES", Name: "Spain"},
		{Code: "NL", Name: "Netherlands"},
		{Code: "BR", Name: "Brazil"},
	}
}
