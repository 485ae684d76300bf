package synthesize

import (
	"strings"
	"time"

	"cctns-copilot/internal/models"
)

var absoluteLayouts = []string{"02-01-2006", "2-1-2006", "02/01/2006", "2/1/2006"}

// dateRange turns extracted DATE entities into an inclusive [from, to] range.
// Two absolute dates form the range directly, one covers that single day, and
// a relative phrase resolves against now. Unparseable values are skipped
// rather than guessed at.
func dateRange(dates []models.Entity, now time.Time) (time.Time, time.Time, bool) {
	var absolute []time.Time
	for _, d := range dates {
		if t, ok := parseAbsolute(d.Value); ok {
			absolute = append(absolute, t)
			continue
		}
		if from, to, ok := resolveRelative(d.Value, now); ok {
			return from, to, true
		}
	}

	switch len(absolute) {
	case 0:
		return time.Time{}, time.Time{}, false
	case 1:
		return absolute[0], absolute[0], true
	default:
		from, to := absolute[0], absolute[1]
		if to.Before(from) {
			from, to = to, from
		}
		return from, to, true
	}
}

func parseAbsolute(value string) (time.Time, bool) {
	for _, layout := range absoluteLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func resolveRelative(phrase string, now time.Time) (time.Time, time.Time, bool) {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch strings.ToLower(strings.TrimSpace(phrase)) {
	case "today":
		return day, day, true
	case "yesterday":
		return day.AddDate(0, 0, -1), day.AddDate(0, 0, -1), true
	case "this week":
		start := startOfWeek(day)
		return start, day, true
	case "last week":
		start := startOfWeek(day).AddDate(0, 0, -7)
		return start, start.AddDate(0, 0, 6), true
	case "this month":
		start := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
		return start, day, true
	case "last month":
		start := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location()).AddDate(0, -1, 0)
		return start, start.AddDate(0, 1, -1), true
	case "this year":
		start := time.Date(day.Year(), 1, 1, 0, 0, 0, 0, day.Location())
		return start, day, true
	case "last year":
		start := time.Date(day.Year()-1, 1, 1, 0, 0, 0, 0, day.Location())
		return start, time.Date(day.Year()-1, 12, 31, 0, 0, 0, 0, day.Location()), true
	}
	return time.Time{}, time.Time{}, false
}

// startOfWeek returns the Monday of the week containing day.
func startOfWeek(day time.Time) time.Time {
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}
