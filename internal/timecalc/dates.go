package timecalc

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// DateKey returns the calendar day of t in loc as YYYY-MM-DD.
func DateKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(dateLayout)
}

// ParseDate validates a YYYY-MM-DD key. "today" resolves against now in loc.
func ParseDate(raw string, now time.Time, loc *time.Location) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.EqualFold(trimmed, "today") {
		return DateKey(now, loc), nil
	}
	if strings.EqualFold(trimmed, "yesterday") {
		return DateKey(now.AddDate(0, 0, -1), loc), nil
	}
	parsed, err := time.Parse(dateLayout, trimmed)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: want YYYY-MM-DD", raw)
	}
	return parsed.Format(dateLayout), nil
}

// DaysBetween lists every date key in [from, to], inclusive. It returns nil when to precedes from.
func DaysBetween(from, to string) ([]string, error) {
	start, err := time.Parse(dateLayout, from)
	if err != nil {
		return nil, fmt.Errorf("invalid from date %q: %w", from, err)
	}
	end, err := time.Parse(dateLayout, to)
	if err != nil {
		return nil, fmt.Errorf("invalid to date %q: %w", to, err)
	}
	var days []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format(dateLayout))
	}
	return days, nil
}

// WeekRange returns the Monday and Sunday date keys of the ISO week containing t.
func WeekRange(t time.Time, loc *time.Location) (string, string) {
	if loc == nil {
		loc = time.Local
	}
	local := t.In(loc)
	wd := int(local.Weekday())
	if wd == 0 {
		wd = 7
	}
	monday := local.AddDate(0, 0, -(wd - 1))
	sunday := monday.AddDate(0, 0, 6)
	return monday.Format(dateLayout), sunday.Format(dateLayout)
}
