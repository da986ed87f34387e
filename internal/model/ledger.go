package model

import (
	"sort"
	"time"
)

// Ledger is everything stored for one WorkDay: the day row, its breaks and its full action log.
// Day is nil when no WorkDay exists for the date.
type Ledger struct {
	Date    string         `json:"date"`
	Day     *WorkDay       `json:"day,omitempty"`
	Breaks  []BreakPeriod  `json:"breaks"`
	Actions []ActionRecord `json:"actions"`
}

// Clone returns a deep copy so callers can project changes without touching the original.
func (l Ledger) Clone() Ledger {
	out := Ledger{Date: l.Date}
	if l.Day != nil {
		day := *l.Day
		day.StartedAt = cloneTime(l.Day.StartedAt)
		day.EndedAt = cloneTime(l.Day.EndedAt)
		out.Day = &day
	}
	out.Breaks = make([]BreakPeriod, len(l.Breaks))
	for i, b := range l.Breaks {
		b.EndedAt = cloneTime(b.EndedAt)
		if b.DurationMinutes != nil {
			minutes := *b.DurationMinutes
			b.DurationMinutes = &minutes
		}
		out.Breaks[i] = b
	}
	out.Actions = make([]ActionRecord, len(l.Actions))
	copy(out.Actions, l.Actions)
	for i := range out.Actions {
		out.Actions[i].RevokedAt = cloneTime(out.Actions[i].RevokedAt)
	}
	return out
}

// OpenBreak returns the break without an end timestamp, if any.
func (l Ledger) OpenBreak() *BreakPeriod {
	for i := range l.Breaks {
		if l.Breaks[i].Open() {
			return &l.Breaks[i]
		}
	}
	return nil
}

func (l Ledger) BreakByID(id string) *BreakPeriod {
	for i := range l.Breaks {
		if l.Breaks[i].ID == id {
			return &l.Breaks[i]
		}
	}
	return nil
}

// Snapshot describes the current restorable state. A missing day is NotStarted.
func (l Ledger) Snapshot() Snapshot {
	if l.Day == nil {
		return Snapshot{Status: StatusNotStarted}
	}
	snap := Snapshot{
		Status:    l.Day.Status,
		StartedAt: cloneTime(l.Day.StartedAt),
		EndedAt:   cloneTime(l.Day.EndedAt),
	}
	if open := l.OpenBreak(); open != nil {
		snap.OpenBreakID = open.ID
	}
	return snap
}

// NextSequence is one past the highest sequence ever written for the day.
// Revoked sequences are never handed out again.
func (l Ledger) NextSequence() int64 {
	var max int64
	for _, a := range l.Actions {
		if a.Sequence > max {
			max = a.Sequence
		}
	}
	return max + 1
}

// ActiveActions returns non-revoked records ordered by sequence.
func (l Ledger) ActiveActions() []ActionRecord {
	active := make([]ActionRecord, 0, len(l.Actions))
	for _, a := range l.Actions {
		if !a.Revoked {
			active = append(active, a)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].Sequence < active[j].Sequence })
	return active
}

// LastActivity is the latest timestamp recorded for the day, used to keep time monotonic.
func (l Ledger) LastActivity() (time.Time, bool) {
	var latest time.Time
	found := false
	for _, a := range l.Actions {
		if !found || a.At.After(latest) {
			latest = a.At
			found = true
		}
	}
	return latest, found
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
