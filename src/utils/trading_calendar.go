package utils

import (
	"log"
	"strings"
	"time"

	"github.com/scmhub/calendar"
)

// TradingCalendar answers trading-day questions for one subject's market,
// used to size default fetch ranges so weekends and holidays do not eat
// into the visible window.
type TradingCalendar struct {
	Calendar *calendar.Calendar
	Fallback bool
	Timezone *time.Location
}

// -----------------------------------------------------------------------------

func GetCalendar(subject string) *TradingCalendar {
	// Suffix-to-MIC mapping (ISO 10383); bare tickers default to NYSE
	mic := "xnys"
	switch {
	case strings.HasSuffix(subject, ".L"):
		mic = "xlon"
	case strings.HasSuffix(subject, ".PA"):
		mic = "xpar"
	case strings.HasSuffix(subject, ".DE"):
		mic = "xfra"
	case strings.HasSuffix(subject, ".T"):
		mic = "xtks"
	case strings.HasSuffix(subject, ".HK"):
		mic = "xhkg"
	case strings.HasSuffix(subject, ".AX"):
		mic = "xasx"
	case strings.HasSuffix(subject, ".TO"):
		mic = "xtse"
	}

	cal := calendar.GetCalendar(mic)
	if cal == nil {
		cal = calendar.GetCalendar("xnys")
	}

	if cal == nil {
		log.Printf("WARNING: Failed to load calendar for MIC '%s' and fallback 'xnys'. Using Mon-Fri fallback.", mic)
		nyLoc, _ := time.LoadLocation("America/New_York")
		if nyLoc == nil {
			nyLoc = time.UTC
		}
		return &TradingCalendar{Fallback: true, Timezone: nyLoc}
	}

	return &TradingCalendar{Calendar: cal, Fallback: false, Timezone: cal.Loc}
}

// -----------------------------------------------------------------------------

func (tc *TradingCalendar) IsTradingDay(date time.Time) bool {
	if tc.Timezone != nil {
		date = date.In(tc.Timezone)
	}

	if tc.Fallback {
		weekday := date.Weekday()
		return weekday != time.Saturday && weekday != time.Sunday
	}
	return tc.Calendar.IsBusinessDay(date)
}

// -----------------------------------------------------------------------------

// SessionRangeStart walks backwards from now until `days` trading days have
// been covered and returns the start of the earliest one. Capped at 2x the
// requested span so a long holiday run cannot loop unbounded.
func (tc *TradingCalendar) SessionRangeStart(days int) time.Time {
	now := time.Now()
	if tc.Timezone != nil {
		now = now.In(tc.Timezone)
	}

	cursor := now
	counted := 0
	for i := 0; counted < days && i < days*2+7; i++ {
		if tc.IsTradingDay(cursor) {
			counted++
		}
		if counted >= days {
			break
		}
		cursor = cursor.AddDate(0, 0, -1)
	}

	return time.Date(cursor.Year(), cursor.Month(), cursor.Day(), 0, 0, 0, 0, cursor.Location())
}
