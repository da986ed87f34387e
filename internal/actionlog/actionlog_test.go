package actionlog_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"worklog/backend/internal/actionlog"
	"worklog/backend/internal/model"
	"worklog/backend/internal/workday"
)

func at(hour, minute int) time.Time {
	return time.Date(2026, 3, 2, hour, minute, 0, 0, time.UTC)
}

type step struct {
	kind     model.ActionKind
	category model.BreakCategory
	hour     int
	minute   int
}

func build(t *testing.T, steps ...step) (*workday.Machine, model.Ledger) {
	t.Helper()
	n := 0
	m := &workday.Machine{NewID: func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}}
	l := model.Ledger{Date: "2026-03-02"}
	for _, s := range steps {
		next, _, err := m.Apply(l, workday.Action{Kind: s.kind, Category: s.category}, at(s.hour, s.minute))
		if err != nil {
			t.Fatalf("apply %s: %v", s.kind, err)
		}
		l = next
	}
	return m, l
}

var fiveActions = []step{
	{model.ActionStartDay, "", 8, 0},
	{model.ActionStop, model.BreakCoffee, 10, 0},
	{model.ActionContinue, "", 10, 15},
	{model.ActionStop, model.BreakLunch, 12, 0},
	{model.ActionContinue, "", 12, 30},
}

func TestRevokeBatchOfFiveReturnsToNotStarted(t *testing.T) {
	_, l := build(t, fiveActions...)

	for seq := int64(5); seq >= 1; seq-- {
		next, set, err := actionlog.Revoke(l, seq, at(13, 0))
		if err != nil {
			t.Fatalf("revoke #%d: %v", seq, err)
		}
		if set.RevokeSequence != seq || set.PutDay == nil {
			t.Fatalf("revoke #%d: unexpected mutations %+v", seq, set)
		}
		l = next
	}

	if l.Day.Status != model.StatusNotStarted || l.Day.StartedAt != nil {
		t.Fatalf("expected not started day, got %+v", l.Day)
	}
	if len(l.Breaks) != 0 {
		t.Fatalf("expected no breaks, got %d", len(l.Breaks))
	}
	if len(l.ActiveActions()) != 0 {
		t.Fatalf("expected no active actions, got %d", len(l.ActiveActions()))
	}
	if len(l.Actions) != 5 {
		t.Fatalf("records must be kept for audit, got %d", len(l.Actions))
	}
	for _, c := range actionlog.Candidates(l) {
		if c.CanRevoke {
			t.Fatalf("record #%d still revokable", c.Record.Sequence)
		}
	}
	if _, _, err := actionlog.Revoke(l, 1, at(13, 1)); !errors.Is(err, actionlog.ErrNotRevokable) {
		t.Fatalf("expected ErrNotRevokable on sixth revoke, got %v", err)
	}
}

func TestRevokeNonTailLeavesLedgerUnchanged(t *testing.T) {
	_, l := build(t, fiveActions[:3]...)

	next, set, err := actionlog.Revoke(l, 2, at(11, 0))
	if !errors.Is(err, actionlog.ErrNotRevokable) {
		t.Fatalf("expected ErrNotRevokable, got %v", err)
	}
	if !set.Empty() {
		t.Fatalf("expected no mutations, got %+v", set)
	}
	for _, a := range next.Actions {
		if a.Revoked {
			t.Fatalf("record #%d was revoked", a.Sequence)
		}
	}
}

func TestRevokeWindowCountsOnlyActiveRecords(t *testing.T) {
	_, l := build(t,
		step{model.ActionStartDay, "", 8, 0},
		step{model.ActionStop, model.BreakCoffee, 9, 0},
		step{model.ActionContinue, "", 9, 10},
		step{model.ActionStop, model.BreakCoffee, 10, 0},
		step{model.ActionContinue, "", 10, 10},
		step{model.ActionStop, model.BreakLunch, 12, 0},
		step{model.ActionContinue, "", 12, 30},
	)
	if got := actionlog.Distance(l, 2); got != 5 {
		t.Fatalf("expected distance 5 for #2, got %d", got)
	}
	if got := len(actionlog.Candidates(l)); got != actionlog.Cap {
		t.Fatalf("expected %d candidates, got %d", actionlog.Cap, got)
	}

	for seq := int64(7); seq >= 3; seq-- {
		next, _, err := actionlog.Revoke(l, seq, at(13, 0))
		if err != nil {
			t.Fatalf("revoke #%d: %v", seq, err)
		}
		l = next
	}
	// Revoked records leave the window, so #2 is back at distance zero.
	if got := actionlog.Distance(l, 2); got != 0 {
		t.Fatalf("expected distance 0 for #2, got %d", got)
	}
	for seq := int64(2); seq >= 1; seq-- {
		next, _, err := actionlog.Revoke(l, seq, at(13, 0))
		if err != nil {
			t.Fatalf("revoke #%d: %v", seq, err)
		}
		l = next
	}
	if l.Day.Status != model.StatusNotStarted {
		t.Fatalf("expected not_started, got %s", l.Day.Status)
	}
}

// A revoke followed by re-applying the same action must not shift the window of older records.
func TestRevokeAndReapplyKeepsWindow(t *testing.T) {
	m, l := build(t, fiveActions...)

	l, _, err := actionlog.Revoke(l, 5, at(12, 31))
	if err != nil {
		t.Fatal(err)
	}
	l, _, err = m.Apply(l, workday.Action{Kind: model.ActionContinue}, at(12, 32))
	if err != nil {
		t.Fatal(err)
	}

	var revoked []int64
	for i := 0; i < actionlog.Cap; i++ {
		tail, ok := actionlog.Tail(l)
		if !ok {
			t.Fatalf("ran out of actions after %v", revoked)
		}
		next, _, err := actionlog.Revoke(l, tail.Sequence, at(13, 0))
		if err != nil {
			t.Fatalf("revoke #%d after %v: %v", tail.Sequence, revoked, err)
		}
		revoked = append(revoked, tail.Sequence)
		l = next
	}

	want := []int64{6, 4, 3, 2, 1}
	if fmt.Sprint(revoked) != fmt.Sprint(want) {
		t.Fatalf("revoked %v, want %v", revoked, want)
	}
	if l.Day.Status != model.StatusNotStarted {
		t.Fatalf("expected not_started, got %s", l.Day.Status)
	}
	if _, ok := actionlog.Tail(l); ok {
		t.Fatal("expected nothing left to revoke")
	}
}

func TestRevokeContinueReopensBreak(t *testing.T) {
	_, l := build(t, fiveActions[:3]...)

	next, set, err := actionlog.Revoke(l, 3, at(11, 0))
	if err != nil {
		t.Fatal(err)
	}
	open := next.OpenBreak()
	if open == nil || open.ID != set.ReopenBreakID || open.DurationMinutes != nil {
		t.Fatalf("expected reopened break, got %+v", open)
	}
	if next.Day.Status != model.StatusOnBreak {
		t.Fatalf("expected on_break, got %s", next.Day.Status)
	}
}

func TestRevokeStopDeletesBreak(t *testing.T) {
	_, l := build(t, fiveActions[:2]...)
	opened := l.OpenBreak().ID

	next, set, err := actionlog.Revoke(l, 2, at(11, 0))
	if err != nil {
		t.Fatal(err)
	}
	if set.DeleteBreakID != opened || next.BreakByID(opened) != nil {
		t.Fatalf("expected break %s deleted, got %+v", opened, set)
	}
	if len(l.Breaks) != 1 {
		t.Fatal("revoke mutated the input ledger")
	}
}

func TestRevokeEndDayReopensDay(t *testing.T) {
	_, l := build(t, step{model.ActionStartDay, "", 8, 0}, step{model.ActionEndDay, "", 16, 0})

	next, _, err := actionlog.Revoke(l, 2, at(16, 5))
	if err != nil {
		t.Fatal(err)
	}
	if next.Day.Status != model.StatusWorking || next.Day.EndedAt != nil {
		t.Fatalf("unexpected day after revoking end: %+v", next.Day)
	}
}

// Revoking the newest action and applying it again matches never having revoked it,
// apart from sequence numbers and ids.
func TestRevokeRoundTrip(t *testing.T) {
	for _, last := range fiveActions[1:] {
		steps := []step{fiveActions[0]}
		if last.kind == model.ActionContinue {
			steps = append(steps, step{model.ActionStop, model.BreakLunch, 11, 0})
		}
		steps = append(steps, last)
		m, l := build(t, steps...)
		want := l.Snapshot()

		revoked, _, err := actionlog.Revoke(l, l.NextSequence()-1, at(13, 0))
		if err != nil {
			t.Fatalf("%s: revoke: %v", last.kind, err)
		}
		again, set, err := m.Apply(revoked, workday.Action{Kind: last.kind, Category: last.category}, at(last.hour, last.minute))
		if err != nil {
			t.Fatalf("%s: reapply: %v", last.kind, err)
		}
		got := again.Snapshot()
		if got.Status != want.Status || (got.OpenBreakID == "") != (want.OpenBreakID == "") {
			t.Fatalf("%s: got %+v, want %+v", last.kind, got, want)
		}
		if set.Append.Sequence != int64(len(steps))+1 {
			t.Fatalf("%s: sequence reused: %d", last.kind, set.Append.Sequence)
		}
		if len(again.Breaks) != len(l.Breaks) {
			t.Fatalf("%s: %d breaks, want %d", last.kind, len(again.Breaks), len(l.Breaks))
		}
	}
}

func TestCandidatesAndDescriptions(t *testing.T) {
	_, l := build(t, fiveActions[:3]...)
	l, _, err := actionlog.Revoke(l, 3, at(11, 0))
	if err != nil {
		t.Fatal(err)
	}

	got := actionlog.Candidates(l)
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	if got[0].Description != "Stopped work (coffee break)" || !got[0].CanRevoke {
		t.Fatalf("unexpected first candidate %+v", got[0])
	}
	if got[1].Description != "Started work day" || got[1].CanRevoke {
		t.Fatalf("unexpected second candidate %+v", got[1])
	}

	revoked := l.Actions[2]
	if !revoked.Revoked || actionlog.Describe(revoked) != "Continued work (REVOKED)" {
		t.Fatalf("unexpected revoked description %q", actionlog.Describe(revoked))
	}
}

func TestRevokeWithoutDay(t *testing.T) {
	if _, _, err := actionlog.Revoke(model.Ledger{Date: "2026-03-02"}, 1, at(9, 0)); !errors.Is(err, actionlog.ErrNotRevokable) {
		t.Fatalf("expected ErrNotRevokable, got %v", err)
	}
}
