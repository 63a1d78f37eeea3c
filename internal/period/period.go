// Package period maps named report period tokens to concrete date ranges.
package period

import (
	"time"

	"fintrack/internal/query"
)

// Tokens accepted by Resolve. Anything else falls back to CurrentMonth.
const (
	CurrentMonth = "current-month"
	LastMonth    = "last-month"
	LastThree    = "last-3-months"
	ThisYear     = "this-year"
	AllTime      = "all-time"
	Custom       = "custom"
)

// Bounds for the all-time range. The exact values only need to bracket
// every date a transaction can carry.
var (
	earliest = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)
	latest   = time.Date(9999, time.December, 31, 23, 59, 59, 999000000, time.UTC)
)

// Resolve maps a period token to an inclusive [start, end] range relative
// to now. Unrecognized tokens resolve to the current-month rule; the
// resolver never fails. The custom range's end is normalized to the last
// instant of its calendar day, so a transaction dated on the end day is
// included regardless of time-of-day. A custom token without a supplied
// range also falls back to current-month.
func Resolve(token string, now time.Time, custom *query.Range) query.Range {
	switch token {
	case CurrentMonth:
		return currentMonth(now)
	case LastMonth:
		first := time.Date(now.Year(), now.Month()-1, 1, 0, 0, 0, 0, now.Location())
		last := time.Date(now.Year(), now.Month(), 0, 0, 0, 0, 0, now.Location())
		return query.Range{Start: first, End: last}
	case LastThree:
		first := time.Date(now.Year(), now.Month()-3, 1, 0, 0, 0, 0, now.Location())
		return query.Range{Start: first, End: now}
	case ThisYear:
		return query.Range{
			Start: time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location()),
			End:   time.Date(now.Year(), time.December, 31, 0, 0, 0, 0, now.Location()),
		}
	case AllTime:
		return query.Range{Start: earliest, End: latest}
	case Custom:
		if custom != nil {
			return query.Range{Start: custom.Start, End: endOfDay(custom.End)}
		}
		return currentMonth(now)
	default:
		return currentMonth(now)
	}
}

func currentMonth(now time.Time) query.Range {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	last := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, now.Location())
	return query.Range{Start: first, End: last}
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999000000, t.Location())
}
