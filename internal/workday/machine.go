// Package workday implements the work-day state machine. It is pure: it reads a
// ledger snapshot and returns the projected ledger plus the row changes to persist.
package workday

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"worklog/backend/internal/model"
	"worklog/backend/internal/timecalc"
)

var (
	ErrInvalidTransition = errors.New("invalid transition")
	ErrNoActiveSession   = errors.New("no active session")
	ErrInvalidCategory   = errors.New("invalid break category")
)

// transitions is the forward transition table. ResetDay is handled separately since
// it is legal from every state and destroys the day instead of producing a record.
var transitions = map[model.Status]map[model.ActionKind]model.Status{
	model.StatusNotStarted: {model.ActionStartDay: model.StatusWorking},
	model.StatusWorking: {
		model.ActionStop:   model.StatusOnBreak,
		model.ActionEndDay: model.StatusDayEnded,
	},
	model.StatusOnBreak: {model.ActionContinue: model.StatusWorking},
}

// Action is a user request against the machine. Category applies to Stop only.
type Action struct {
	Kind     model.ActionKind
	Category model.BreakCategory
}

// Machine applies validated transitions. NewID issues record and break ids.
type Machine struct {
	NewID func() string
}

func New() *Machine {
	return &Machine{NewID: uuid.NewString}
}

// active reports whether day has a started session. A day whose StartDay was revoked
// is back to NotStarted and behaves exactly like a missing one.
func active(day *model.WorkDay) bool {
	return day != nil && day.Status != model.StatusNotStarted
}

// LegalActions lists what may be requested against day. Without an active session only
// StartDay is accepted.
func LegalActions(day *model.WorkDay) []model.ActionKind {
	if !active(day) {
		return []model.ActionKind{model.ActionStartDay}
	}
	next := transitions[day.Status]
	kinds := make([]model.ActionKind, 0, len(next)+1)
	for kind := range next {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return actionOrder(kinds[i]) < actionOrder(kinds[j]) })
	return append(kinds, model.ActionResetDay)
}

// Apply validates action against the ledger and returns the projected ledger and its mutations.
// now is clamped so that it never precedes the day's latest recorded action.
func (m *Machine) Apply(l model.Ledger, action Action, now time.Time) (model.Ledger, model.MutationSet, error) {
	if action.Kind != model.ActionStartDay && !active(l.Day) {
		return l, model.MutationSet{}, fmt.Errorf("%w: %s requires a started day for %s", ErrNoActiveSession, action.Kind, l.Date)
	}
	if last, ok := l.LastActivity(); ok && now.Before(last) {
		now = last
	}

	if action.Kind == model.ActionResetDay {
		return model.Ledger{Date: l.Date}, model.MutationSet{DeleteDay: true}, nil
	}

	current := model.StatusNotStarted
	if l.Day != nil {
		current = l.Day.Status
	}
	target, ok := transitions[current][action.Kind]
	if !ok {
		return l, model.MutationSet{}, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, action.Kind, current)
	}

	next := l.Clone()
	before := l.Snapshot()
	record := model.ActionRecord{
		ID:       m.NewID(),
		Date:     l.Date,
		Sequence: l.NextSequence(),
		Kind:     action.Kind,
		At:       now,
		Before:   before,
	}
	var set model.MutationSet

	switch action.Kind {
	case model.ActionStartDay:
		if next.Day == nil {
			next.Day = &model.WorkDay{Date: l.Date, CreatedAt: now}
		}
		started := now
		next.Day.StartedAt = &started
		next.Day.EndedAt = nil
	case model.ActionStop:
		if l.OpenBreak() != nil {
			return l, model.MutationSet{}, fmt.Errorf("%w: a break is already open", ErrInvalidTransition)
		}
		category := action.Category
		if category == "" {
			category = model.BreakGeneral
		}
		if _, ok := model.ParseBreakCategory(string(category)); !ok {
			return l, model.MutationSet{}, fmt.Errorf("%w: %q", ErrInvalidCategory, category)
		}
		opened := model.BreakPeriod{
			ID:        m.NewID(),
			Date:      l.Date,
			Category:  category,
			StartedAt: now,
			CreatedAt: now,
		}
		next.Breaks = append(next.Breaks, opened)
		record.Category = &category
		record.BreakID = opened.ID
		set.OpenBreak = &opened
	case model.ActionContinue:
		open := next.OpenBreak()
		if open == nil {
			return l, model.MutationSet{}, fmt.Errorf("%w: no open break to close", ErrInvalidTransition)
		}
		ended := now
		minutes := timecalc.SecondsToMinutes(timecalc.RoundSeconds(ended.Sub(open.StartedAt)))
		open.EndedAt = &ended
		open.DurationMinutes = &minutes
		category := open.Category
		record.Category = &category
		record.BreakID = open.ID
		closed := *open
		set.CloseBreak = &closed
	case model.ActionEndDay:
		ended := now
		next.Day.EndedAt = &ended
	}

	next.Day.Status = target
	next.Day.UpdatedAt = now
	record.After = next.Snapshot()
	next.Actions = append(next.Actions, record)

	set.PutDay = next.Day
	set.Append = &record
	return next, set, nil
}

// Replay folds non-revoked records through the transition table and returns the resulting status.
func Replay(actions []model.ActionRecord) (model.Status, error) {
	ordered := make([]model.ActionRecord, 0, len(actions))
	for _, a := range actions {
		if !a.Revoked {
			ordered = append(ordered, a)
		}
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Sequence < ordered[j].Sequence })

	status := model.StatusNotStarted
	for _, a := range ordered {
		next, ok := transitions[status][a.Kind]
		if !ok {
			return status, fmt.Errorf("%w: record #%d %s from %s", ErrInvalidTransition, a.Sequence, a.Kind, status)
		}
		status = next
	}
	return status, nil
}

func actionOrder(kind model.ActionKind) int {
	switch kind {
	case model.ActionStartDay:
		return 0
	case model.ActionStop:
		return 1
	case model.ActionContinue:
		return 2
	case model.ActionEndDay:
		return 3
	}
	return 4
}
