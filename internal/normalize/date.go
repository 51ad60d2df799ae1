package normalize

import (
	"math"
	"regexp"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
)

// serialEpoch is day zero of spreadsheet serial dates. Starting at
// 1899-12-30 absorbs the fictitious 1900-02-29 of the format.
var serialEpoch = civil.Date{Year: 1899, Month: time.December, Day: 30}

// serialThreshold separates serial dates from small numbers.
const serialThreshold = 1000

var (
	dayMonthYearSlash = regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})`)
	yearMonthDayDash  = regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})`)
	dayMonthYearDash  = regexp.MustCompile(`(\d{1,2})-(\d{1,2})-(\d{4})`)
)

var genericLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/1/2",
	"2.1.2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
	time.RFC1123Z,
	time.RFC1123,
	time.ANSIC,
}

// Date converts a cell into a calendar date.
//
// It returns ok=false when nothing could be parsed; callers substitute the
// ingestion date. loc is used to take the calendar date of time values and
// may be nil.
func Date(v any, loc *time.Location) (civil.Date, bool) {
	switch x := v.(type) {
	case nil:
		return civil.Date{}, false
	case time.Time:
		if loc != nil {
			x = x.In(loc)
		}
		return civil.DateOf(x), true
	case civil.Date:
		return x, x.IsValid()
	case float64:
		return fromSerial(x)
	case int:
		return fromSerial(float64(x))
	case int64:
		return fromSerial(float64(x))
	}
	return parseDateString(Text(v))
}

// SerialDate converts a spreadsheet serial number to a calendar date.
// Fractional days (time of day) are dropped.
func SerialDate(serial float64) civil.Date {
	return serialEpoch.AddDays(int(math.Floor(serial)))
}

func fromSerial(n float64) (civil.Date, bool) {
	if math.IsNaN(n) || math.IsInf(n, 0) || n <= serialThreshold {
		return civil.Date{}, false
	}
	return SerialDate(n), true
}

func parseDateString(s string) (civil.Date, bool) {
	if s == "" {
		return civil.Date{}, false
	}
	if m := dayMonthYearSlash.FindStringSubmatch(s); m != nil {
		return calendarDate(m[3], m[2], m[1]), true
	}
	if m := yearMonthDayDash.FindStringSubmatch(s); m != nil {
		return calendarDate(m[1], m[2], m[3]), true
	}
	if m := dayMonthYearDash.FindStringSubmatch(s); m != nil {
		return calendarDate(m[3], m[2], m[1]), true
	}
	for _, layout := range genericLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.DateOf(t), true
		}
	}
	return civil.Date{}, false
}

// calendarDate builds a date the way calendar arithmetic does: day 31 of
// February rolls into March.
func calendarDate(year, month, day string) civil.Date {
	y, _ := strconv.Atoi(year)
	m, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	return civil.DateOf(time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC))
}
