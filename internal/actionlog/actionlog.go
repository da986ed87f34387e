// Package actionlog is the revoke engine over a day's action records.
//
// Only the newest non-revoked record can be revoked. The revoke window holds the Cap
// newest non-revoked records; revoked records never count against it. Each action
// kind carries an explicit inverse; nothing is re-derived by replaying history.
package actionlog

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"worklog/backend/internal/model"
)

// Cap is the size of the revoke window.
const Cap = 5

var ErrNotRevokable = errors.New("not revokable")

// Candidate is one entry of the revoke view.
type Candidate struct {
	Record      model.ActionRecord `json:"record"`
	Description string             `json:"description"`
	CanRevoke   bool               `json:"canRevoke"`
}

type inverse func(next *model.Ledger, rec model.ActionRecord, set *model.MutationSet) error

var inverses = map[model.ActionKind]inverse{
	model.ActionStartDay: revokeStartDay,
	model.ActionStop:     revokeStop,
	model.ActionContinue: revokeContinue,
	model.ActionEndDay:   revokeEndDay,
}

// Tail returns the newest non-revoked record.
func Tail(l model.Ledger) (model.ActionRecord, bool) {
	active := l.ActiveActions()
	if len(active) == 0 {
		return model.ActionRecord{}, false
	}
	return active[len(active)-1], true
}

// Distance counts the non-revoked records written after sequence.
func Distance(l model.Ledger, sequence int64) int {
	n := 0
	for _, a := range l.Actions {
		if a.Sequence > sequence && !a.Revoked {
			n++
		}
	}
	return n
}

// Check returns the record for sequence if it may be revoked right now.
func Check(l model.Ledger, sequence int64) (model.ActionRecord, error) {
	var target *model.ActionRecord
	for i := range l.Actions {
		if l.Actions[i].Sequence == sequence {
			target = &l.Actions[i]
			break
		}
	}
	switch {
	case target == nil:
		return model.ActionRecord{}, fmt.Errorf("%w: no action #%d on %s", ErrNotRevokable, sequence, l.Date)
	case target.Revoked:
		return model.ActionRecord{}, fmt.Errorf("%w: action #%d is already revoked", ErrNotRevokable, sequence)
	}
	tail, _ := Tail(l)
	if tail.Sequence != sequence {
		return model.ActionRecord{}, fmt.Errorf("%w: action #%d is not the most recent action (#%d)", ErrNotRevokable, sequence, tail.Sequence)
	}
	if Distance(l, sequence) >= Cap {
		return model.ActionRecord{}, fmt.Errorf("%w: action #%d is older than the last %d actions", ErrNotRevokable, sequence, Cap)
	}
	if _, ok := inverses[target.Kind]; !ok {
		return model.ActionRecord{}, fmt.Errorf("%w: %s has no inverse", ErrNotRevokable, target.Kind)
	}
	return *target, nil
}

// Revoke undoes the record with the given sequence and returns the restored ledger and
// the row changes to persist. The record itself is kept and marked revoked.
func Revoke(l model.Ledger, sequence int64, now time.Time) (model.Ledger, model.MutationSet, error) {
	if l.Day == nil {
		return l, model.MutationSet{}, fmt.Errorf("%w: no work day for %s", ErrNotRevokable, l.Date)
	}
	rec, err := Check(l, sequence)
	if err != nil {
		return l, model.MutationSet{}, err
	}
	if current := l.Snapshot(); !current.Equal(rec.After) {
		return l, model.MutationSet{}, fmt.Errorf("%w: day state no longer matches action #%d", ErrNotRevokable, sequence)
	}

	next := l.Clone()
	var set model.MutationSet
	if err := inverses[rec.Kind](&next, rec, &set); err != nil {
		return l, model.MutationSet{}, err
	}
	restore(next.Day, rec.Before)
	next.Day.UpdatedAt = now

	revokedAt := now
	for i := range next.Actions {
		if next.Actions[i].Sequence == sequence {
			next.Actions[i].Revoked = true
			next.Actions[i].RevokedAt = &revokedAt
		}
	}
	set.PutDay = next.Day
	set.RevokeSequence = sequence
	return next, set, nil
}

// StartDay and EndDay only touch the day row, which restore rewinds from the snapshot.
func revokeStartDay(next *model.Ledger, rec model.ActionRecord, set *model.MutationSet) error {
	return nil
}

func revokeStop(next *model.Ledger, rec model.ActionRecord, set *model.MutationSet) error {
	kept := next.Breaks[:0]
	found := false
	for _, b := range next.Breaks {
		if b.ID == rec.BreakID {
			found = true
			continue
		}
		kept = append(kept, b)
	}
	if !found {
		return fmt.Errorf("%w: break %s opened by action #%d is missing", ErrNotRevokable, rec.BreakID, rec.Sequence)
	}
	next.Breaks = kept
	set.DeleteBreakID = rec.BreakID
	return nil
}

func revokeContinue(next *model.Ledger, rec model.ActionRecord, set *model.MutationSet) error {
	if open := next.OpenBreak(); open != nil {
		return fmt.Errorf("%w: break %s is already open", ErrNotRevokable, open.ID)
	}
	closed := next.BreakByID(rec.BreakID)
	if closed == nil {
		return fmt.Errorf("%w: break %s closed by action #%d is missing", ErrNotRevokable, rec.BreakID, rec.Sequence)
	}
	closed.EndedAt = nil
	closed.DurationMinutes = nil
	set.ReopenBreakID = closed.ID
	return nil
}

func revokeEndDay(next *model.Ledger, rec model.ActionRecord, set *model.MutationSet) error {
	return nil
}

func restore(day *model.WorkDay, snap model.Snapshot) {
	day.Status = snap.Status
	day.StartedAt = copyTime(snap.StartedAt)
	day.EndedAt = copyTime(snap.EndedAt)
}

// Candidates lists the revoke window: the Cap newest non-revoked records, newest first.
func Candidates(l model.Ledger) []Candidate {
	active := l.ActiveActions()
	sort.Slice(active, func(i, j int) bool { return active[i].Sequence > active[j].Sequence })
	if len(active) > Cap {
		active = active[:Cap]
	}

	out := make([]Candidate, 0, len(active))
	for i, rec := range active {
		out = append(out, Candidate{
			Record:      rec,
			Description: Describe(rec),
			CanRevoke:   i == 0,
		})
	}
	return out
}

// Describe renders a record for people.
func Describe(rec model.ActionRecord) string {
	var base string
	switch rec.Kind {
	case model.ActionStartDay:
		base = "Started work day"
	case model.ActionEndDay:
		base = "Ended work day"
	case model.ActionStop:
		category := "unknown"
		if rec.Category != nil {
			category = string(*rec.Category)
		}
		base = fmt.Sprintf("Stopped work (%s break)", category)
	case model.ActionContinue:
		base = "Continued work"
	default:
		base = string(rec.Kind)
	}
	if rec.Revoked {
		return base + " (REVOKED)"
	}
	return base
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
