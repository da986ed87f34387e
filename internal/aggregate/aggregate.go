// Package aggregate folds a day's ledger into its summary figures.
package aggregate

import (
	"time"

	"worklog/backend/internal/model"
	"worklog/backend/internal/timecalc"
	"worklog/backend/internal/workday"
)

// Summarize evaluates the ledger at now. A frozen day reports its stored figures;
// everything else is recomputed from the non-revoked records and the breaks.
func Summarize(l model.Ledger, normMinutes int, now time.Time) model.Summary {
	out := model.Summary{
		Date:        l.Date,
		Status:      model.StatusNotStarted,
		NormMinutes: normMinutes,
		EvaluatedAt: now,
	}
	if l.Day == nil {
		out.RemainingMinutes = normMinutes
		out.DeficitMinutes = normMinutes
		return out
	}
	out.Status = l.Day.Status

	working, current := WorkIntervals(l.ActiveActions())
	out.WorkSeconds = timecalc.ElapsedSeconds(working, now)
	out.BreakSeconds = timecalc.ElapsedSeconds(BreakIntervals(l.Breaks), now)
	if current != nil && l.Day.Status == model.StatusWorking {
		out.CurrentSessionSeconds = timecalc.RoundSeconds(current.Duration(now))
	}

	if l.Day.SummaryFrozen {
		out.Frozen = true
		out.WorkMinutes = l.Day.WorkMinutes
		out.BreakMinutes = l.Day.BreakMinutes
		out.ProductiveMinutes = l.Day.ProductiveMinutes
		out.OvertimeMinutes = l.Day.OvertimeMinutes
		out.DeficitMinutes = l.Day.DeficitMinutes
		out.RemainingMinutes = l.Day.DeficitMinutes
		return out
	}

	out.WorkMinutes = timecalc.SecondsToMinutes(out.WorkSeconds)
	out.BreakMinutes = timecalc.SecondsToMinutes(out.BreakSeconds)
	c := timecalc.Comply(out.WorkMinutes, out.BreakMinutes, normMinutes)
	out.ProductiveMinutes = c.ProductiveMinutes
	out.OvertimeMinutes = c.OvertimeMinutes
	out.DeficitMinutes = c.DeficitMinutes
	out.RemainingMinutes = c.RemainingMinutes
	return out
}

// WorkIntervals pairs StartDay/Continue with the following Stop/EndDay. The returned
// pointer is the still-open working interval, if the last record opened one.
func WorkIntervals(active []model.ActionRecord) ([]timecalc.Interval, *timecalc.Interval) {
	var (
		out  []timecalc.Interval
		open *time.Time
	)
	for _, rec := range active {
		switch rec.Kind {
		case model.ActionStartDay, model.ActionContinue:
			if open == nil {
				start := rec.At
				open = &start
			}
		case model.ActionStop, model.ActionEndDay:
			if open != nil {
				out = append(out, timecalc.Closed(*open, rec.At))
				open = nil
			}
		}
	}
	if open == nil {
		return out, nil
	}
	current := timecalc.Open(*open)
	return append(out, current), &current
}

func BreakIntervals(breaks []model.BreakPeriod) []timecalc.Interval {
	out := make([]timecalc.Interval, 0, len(breaks))
	for _, b := range breaks {
		if b.EndedAt != nil {
			out = append(out, timecalc.Closed(b.StartedAt, *b.EndedAt))
			continue
		}
		out = append(out, timecalc.Open(b.StartedAt))
	}
	return out
}

// Freeze recomputes the ledger and writes the summary fields onto its day. The fields
// stay frozen only while the day has ended; any other status stores a live snapshot.
func Freeze(l *model.Ledger, normMinutes int, now time.Time) model.Summary {
	if l.Day == nil {
		return Summarize(*l, normMinutes, now)
	}
	l.Day.SummaryFrozen = false
	s := Summarize(*l, normMinutes, now)
	l.Day.WorkMinutes = s.WorkMinutes
	l.Day.BreakMinutes = s.BreakMinutes
	l.Day.ProductiveMinutes = s.ProductiveMinutes
	l.Day.OvertimeMinutes = s.OvertimeMinutes
	l.Day.DeficitMinutes = s.DeficitMinutes
	l.Day.SummaryFrozen = l.Day.Status == model.StatusDayEnded
	s.Frozen = l.Day.SummaryFrozen
	return s
}

// ReplayStatus is the status the day's history folds to.
func ReplayStatus(l model.Ledger) (model.Status, error) {
	return workday.Replay(l.Actions)
}
