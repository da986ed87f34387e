package model

// MutationSet is the full set of row changes for one transition or revoke.
// The storage layer applies it in a single transaction; nil/empty fields are skipped.
type MutationSet struct {
	// PutDay inserts or updates the WorkDay row.
	PutDay *WorkDay
	// DeleteDay removes the WorkDay and, by cascade, all of its breaks and actions.
	DeleteDay bool

	OpenBreak     *BreakPeriod
	CloseBreak    *BreakPeriod
	ReopenBreakID string
	DeleteBreakID string

	Append         *ActionRecord
	RevokeSequence int64
}

func (m MutationSet) Empty() bool {
	return m.PutDay == nil && !m.DeleteDay &&
		m.OpenBreak == nil && m.CloseBreak == nil &&
		m.ReopenBreakID == "" && m.DeleteBreakID == "" &&
		m.Append == nil && m.RevokeSequence == 0
}
