package model

import "time"

// Summary is the aggregated figure set for one WorkDay.
type Summary struct {
	Date                  string    `json:"date"`
	Status                Status    `json:"status"`
	WorkSeconds           int64     `json:"workSeconds"`
	BreakSeconds          int64     `json:"breakSeconds"`
	WorkMinutes           int       `json:"workMinutes"`
	BreakMinutes          int       `json:"breakMinutes"`
	ProductiveMinutes     int       `json:"productiveMinutes"`
	OvertimeMinutes       int       `json:"overtimeMinutes"`
	DeficitMinutes        int       `json:"deficitMinutes"`
	RemainingMinutes      int       `json:"remainingMinutes"`
	CurrentSessionSeconds int64     `json:"currentSessionSeconds"`
	NormMinutes           int       `json:"normMinutes"`
	Frozen                bool      `json:"frozen"`
	EvaluatedAt           time.Time `json:"evaluatedAt"`
}
