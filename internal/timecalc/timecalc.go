// Package timecalc holds the pure duration arithmetic behind the work-day figures.
package timecalc

import (
	"fmt"
	"time"
)

// Interval is a span of time. A nil End means the interval is still open.
type Interval struct {
	Start time.Time
	End   *time.Time
}

// Closed builds a terminated interval.
func Closed(start, end time.Time) Interval {
	return Interval{Start: start, End: &end}
}

// Open builds an interval that runs until the evaluation instant.
func Open(start time.Time) Interval {
	return Interval{Start: start}
}

// Duration returns the length of the interval, measuring open intervals up to now.
// Negative spans count as zero.
func (iv Interval) Duration(now time.Time) time.Duration {
	end := now
	if iv.End != nil {
		end = *iv.End
	}
	if !end.After(iv.Start) {
		return 0
	}
	return end.Sub(iv.Start)
}

// RoundSeconds rounds d to whole seconds, sending exact halves to the even neighbour.
func RoundSeconds(d time.Duration) int64 {
	return roundHalfEven(int64(d), int64(time.Second))
}

// SecondsToMinutes converts whole seconds to minutes with half-even rounding.
func SecondsToMinutes(seconds int64) int {
	return int(roundHalfEven(seconds, 60))
}

// ElapsedSeconds sums the intervals and rounds the total once.
func ElapsedSeconds(intervals []Interval, now time.Time) int64 {
	var total time.Duration
	for _, iv := range intervals {
		total += iv.Duration(now)
	}
	return RoundSeconds(total)
}

// Compliance holds the norm-related figures derived from work and break minutes.
type Compliance struct {
	ProductiveMinutes int
	OvertimeMinutes   int
	DeficitMinutes    int
	RemainingMinutes  int
}

// Comply computes productive time and its relation to the configured norm.
// Overtime and deficit are never both positive.
func Comply(workMinutes, breakMinutes, normMinutes int) Compliance {
	productive := max(0, workMinutes-breakMinutes)
	return Compliance{
		ProductiveMinutes: productive,
		OvertimeMinutes:   max(0, productive-normMinutes),
		DeficitMinutes:    max(0, normMinutes-productive),
		RemainingMinutes:  max(0, normMinutes-productive),
	}
}

func roundHalfEven(value, unit int64) int64 {
	if value < 0 {
		return -roundHalfEven(-value, unit)
	}
	q, r := value/unit, value%unit
	switch {
	case 2*r > unit:
		q++
	case 2*r == unit && q%2 == 1:
		q++
	}
	return q
}

// FormatMinutes renders minutes like "7h 30m" or "45m".
func FormatMinutes(minutes int) string {
	sign := ""
	if minutes < 0 {
		sign = "-"
		minutes = -minutes
	}
	h, m := minutes/60, minutes%60
	if h > 0 {
		return fmt.Sprintf("%s%dh %02dm", sign, h, m)
	}
	return fmt.Sprintf("%s%dm", sign, m)
}

// FormatDurationHHMMSS formats seconds as HH:MM:SS.
func FormatDurationHHMMSS(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
