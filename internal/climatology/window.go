// Package climatology computes the historical query window, reduces monthly
// provider rows into per-month climatology averages and drives the
// nearest-station fallback loop.
package climatology

import (
	"fmt"
	"strings"
	"time"
)

// Mode identifies how the query window was derived.
type Mode string

const (
	// ModeDiagnostico: 36 closed months ending before an explicit or
	// implicit reference date.
	ModeDiagnostico Mode = "DIAGNOSTICO"
	// ModeBalance: an explicit crop-cycle month range, three closed years
	// back.
	ModeBalance Mode = "BALANCE"
)

// Window is the inclusive date range sent to the provider plus the
// month-of-year filter applied during aggregation.
type Window struct {
	Start      time.Time
	End        time.Time
	MonthStart int
	MonthEnd   int
	Mode       Mode
}

// Contains reports whether a calendar month falls inside the filter.
func (w Window) Contains(month int) bool {
	return month >= w.MonthStart && month <= w.MonthEnd
}

// InvalidDateError reports unusable date input on the request.
type InvalidDateError struct {
	Field  string
	Value  string
	Reason string
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// FromReference builds the reference-date window: the 36 whole months ending
// on the last day of the month before fIni. An empty fIni means "now".
// All twelve calendar months pass the filter.
func FromReference(fIni string, now time.Time) (Window, error) {
	ref := now
	if s := strings.TrimSpace(fIni); s != "" {
		parsed, err := parseDayOrMonth(s)
		if err != nil {
			return Window{}, &InvalidDateError{Field: "fIni", Value: fIni, Reason: "expected YYYY-MM or YYYY-MM-DD"}
		}
		ref = parsed
	}

	refMonth := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Window{
		Start:      refMonth.AddDate(0, -36, 0),
		End:        refMonth.AddDate(0, 0, -1),
		MonthStart: 1,
		MonthEnd:   12,
		Mode:       ModeDiagnostico,
	}, nil
}

// FromCycle builds the crop-cycle window: the same two months taken from
// cicloIni's year minus 3 through minus 1, filtered to [monthStart, monthEnd].
// A cycle whose end month precedes its start month (a wrap-around such as
// Nov–Feb) is rejected; the aggregation filter has no meaning for it.
func FromCycle(cicloIni, cicloFin string) (Window, error) {
	ini, err := parseMonth(cicloIni)
	if err != nil {
		return Window{}, &InvalidDateError{Field: "cicloIni", Value: cicloIni, Reason: "expected YYYY-MM prefix"}
	}
	fin, err := parseMonth(cicloFin)
	if err != nil {
		return Window{}, &InvalidDateError{Field: "cicloFin", Value: cicloFin, Reason: "expected YYYY-MM prefix"}
	}

	monthStart := int(ini.Month())
	monthEnd := int(fin.Month())
	if monthStart > monthEnd {
		return Window{}, &InvalidDateError{
			Field:  "cicloFin",
			Value:  cicloFin,
			Reason: fmt.Sprintf("cycle end month %d precedes start month %d", monthEnd, monthStart),
		}
	}

	yearBase := ini.Year()
	return Window{
		Start: time.Date(yearBase-3, time.Month(monthStart), 1, 0, 0, 0, 0, time.UTC),
		// Day 0 of the following month is the last day of monthEnd.
		End:        time.Date(yearBase-1, time.Month(monthEnd)+1, 0, 0, 0, 0, 0, time.UTC),
		MonthStart: monthStart,
		MonthEnd:   monthEnd,
		Mode:       ModeBalance,
	}, nil
}

// parseDayOrMonth accepts YYYY-MM-DD or YYYY-MM.
func parseDayOrMonth(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01", s)
}

// parseMonth reads the YYYY-MM prefix of a date string, ignoring any day
// part the caller sent along.
func parseMonth(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) < 7 {
		return time.Time{}, fmt.Errorf("too short for YYYY-MM: %q", s)
	}
	return time.Parse("2006-01", s[:7])
}
