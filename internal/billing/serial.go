package billing

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Spreadsheet date serials count days from this epoch. Day 1 is
// 1899-12-31, with the (historical) phantom leap day folded in by
// anchoring at December 30.
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// serialToDate converts a spreadsheet date-serial cell to a calendar
// date. Fractional serials carry intraday time and are truncated. A
// blank or unparsable cell yields the zero time.
func serialToDate(cell string) time.Time {
	s := strings.TrimSpace(cell)
	if s == "" {
		return time.Time{}
	}
	serial, err := strconv.ParseFloat(s, 64)
	if err != nil || serial < 0 {
		return time.Time{}
	}
	days := int(math.Floor(serial))
	return serialEpoch.AddDate(0, 0, days)
}

// FormatDate renders a date as DD/MM/YYYY, empty for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006")
}
