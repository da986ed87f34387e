package model

import (
	"strings"
	"time"
)

type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusWorking    Status = "working"
	StatusOnBreak    Status = "on_break"
	StatusDayEnded   Status = "day_ended"
)

type ActionKind string

const (
	ActionStartDay ActionKind = "start_day"
	ActionStop     ActionKind = "stop"
	ActionContinue ActionKind = "continue"
	ActionEndDay   ActionKind = "end_day"
	ActionResetDay ActionKind = "reset_day"
)

type BreakCategory string

const (
	BreakLunch   BreakCategory = "lunch"
	BreakCoffee  BreakCategory = "coffee"
	BreakGeneral BreakCategory = "general"
)

// DefaultWorkNormMinutes is 7.5 hours.
const DefaultWorkNormMinutes = 450

// DateLayout is the calendar-day key format used for WorkDay.Date.
const DateLayout = "2006-01-02"

// BreakCategories lists the accepted categories in display order.
var BreakCategories = []BreakCategory{BreakLunch, BreakCoffee, BreakGeneral}

// ParseBreakCategory accepts a category name case-insensitively; empty means general.
func ParseBreakCategory(raw string) (BreakCategory, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return BreakGeneral, true
	case string(BreakLunch):
		return BreakLunch, true
	case string(BreakCoffee):
		return BreakCoffee, true
	case string(BreakGeneral):
		return BreakGeneral, true
	}
	return "", false
}

func ParseStatus(raw string) (Status, bool) {
	switch Status(raw) {
	case StatusNotStarted, StatusWorking, StatusOnBreak, StatusDayEnded:
		return Status(raw), true
	}
	return "", false
}

func ParseActionKind(raw string) (ActionKind, bool) {
	switch ActionKind(raw) {
	case ActionStartDay, ActionStop, ActionContinue, ActionEndDay, ActionResetDay:
		return ActionKind(raw), true
	}
	return "", false
}

// WorkDay is the aggregate root for one calendar date.
type WorkDay struct {
	Date              string     `json:"date"`
	Status            Status     `json:"status"`
	StartedAt         *time.Time `json:"startedAt,omitempty"`
	EndedAt           *time.Time `json:"endedAt,omitempty"`
	WorkMinutes       int        `json:"workMinutes"`
	BreakMinutes      int        `json:"breakMinutes"`
	ProductiveMinutes int        `json:"productiveMinutes"`
	OvertimeMinutes   int        `json:"overtimeMinutes"`
	DeficitMinutes    int        `json:"deficitMinutes"`
	SummaryFrozen     bool       `json:"summaryFrozen"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// BreakPeriod is one break inside a WorkDay. EndedAt is nil while the break is open.
type BreakPeriod struct {
	ID              string        `json:"id"`
	Date            string        `json:"date"`
	Category        BreakCategory `json:"category"`
	StartedAt       time.Time     `json:"startedAt"`
	EndedAt         *time.Time    `json:"endedAt,omitempty"`
	DurationMinutes *int          `json:"durationMinutes,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
}

func (b BreakPeriod) Open() bool {
	return b.EndedAt == nil
}

// Snapshot captures the restorable part of a WorkDay around a transition.
type Snapshot struct {
	Status      Status     `json:"status"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	EndedAt     *time.Time `json:"endedAt,omitempty"`
	OpenBreakID string     `json:"openBreakId,omitempty"`
}

func (s Snapshot) Equal(other Snapshot) bool {
	return s.Status == other.Status &&
		s.OpenBreakID == other.OpenBreakID &&
		sameInstant(s.StartedAt, other.StartedAt) &&
		sameInstant(s.EndedAt, other.EndedAt)
}

// ActionRecord is an append-only log entry for one committed transition.
// Only Revoked and RevokedAt change after it is written.
type ActionRecord struct {
	ID        string         `json:"id"`
	Date      string         `json:"date"`
	Sequence  int64          `json:"sequence"`
	Kind      ActionKind     `json:"kind"`
	At        time.Time      `json:"at"`
	Before    Snapshot       `json:"before"`
	After     Snapshot       `json:"after"`
	Category  *BreakCategory `json:"category,omitempty"`
	BreakID   string         `json:"breakId,omitempty"`
	Revoked   bool           `json:"revoked"`
	RevokedAt *time.Time     `json:"revokedAt,omitempty"`
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
