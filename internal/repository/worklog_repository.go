package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"worklog/backend/internal/model"
)

type WorklogRepository struct {
	db *sql.DB
}

func NewWorklogRepository(db *sql.DB) *WorklogRepository {
	return &WorklogRepository{db: db}
}

func (r *WorklogRepository) BeginTx(ctx context.Context) (*sql.Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return tx, nil
}

// LoadLedger reads the day, its breaks and its actions in one read transaction.
// It returns ErrNotFound when no work day exists for date.
func (r *WorklogRepository) LoadLedger(ctx context.Context, date string) (*model.Ledger, error) {
	tx, err := r.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	day, err := r.getDayTx(ctx, tx, date)
	if err != nil {
		return nil, err
	}
	breaks, err := r.listBreaksTx(ctx, tx, date)
	if err != nil {
		return nil, err
	}
	actions, err := queryActions(ctx, tx, `WHERE date = ? ORDER BY sequence ASC`, date)
	if err != nil {
		return nil, err
	}

	return &model.Ledger{Date: date, Day: day, Breaks: breaks, Actions: actions}, nil
}

// Apply writes a mutation set in a single transaction and returns the resulting day,
// or nil when the set deleted it.
func (r *WorklogRepository) Apply(ctx context.Context, date string, set model.MutationSet) (*model.WorkDay, error) {
	tx, err := r.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if set.DeleteDay {
		if _, err := tx.ExecContext(ctx, `DELETE FROM work_days WHERE date = ?`, date); err != nil {
			return nil, fmt.Errorf("delete day: %w", err)
		}
	}
	if set.PutDay != nil {
		if err := r.putDayTx(ctx, tx, set.PutDay); err != nil {
			return nil, err
		}
	}
	if set.DeleteBreakID != "" {
		if err := execOne(ctx, tx, "delete break", `DELETE FROM break_periods WHERE id = ? AND date = ?`, set.DeleteBreakID, date); err != nil {
			return nil, err
		}
	}
	if set.CloseBreak != nil {
		if err := r.closeBreakTx(ctx, tx, set.CloseBreak); err != nil {
			return nil, err
		}
	}
	if set.ReopenBreakID != "" {
		if err := execOne(
			ctx, tx, "reopen break",
			`UPDATE break_periods SET ended_at = NULL, duration_minutes = NULL WHERE id = ? AND date = ?`,
			set.ReopenBreakID, date,
		); err != nil {
			return nil, err
		}
	}
	if set.OpenBreak != nil {
		if err := r.insertBreakTx(ctx, tx, set.OpenBreak); err != nil {
			return nil, err
		}
	}
	if set.Append != nil {
		if err := r.insertActionTx(ctx, tx, set.Append); err != nil {
			return nil, err
		}
	}
	if set.RevokeSequence != 0 {
		revokedAt := time.Now().UTC()
		if set.PutDay != nil {
			revokedAt = set.PutDay.UpdatedAt
		}
		if err := execOne(
			ctx, tx, "revoke action",
			`UPDATE action_records SET revoked = 1, revoked_at = ? WHERE date = ? AND sequence = ? AND revoked = 0`,
			formatTime(revokedAt), date, set.RevokeSequence,
		); err != nil {
			return nil, err
		}
	}

	var day *model.WorkDay
	if !set.DeleteDay || set.PutDay != nil {
		day, err = r.getDayTx(ctx, tx, date)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return day, nil
}

// ListDays returns the stored days with from <= date <= to, oldest first.
func (r *WorklogRepository) ListDays(ctx context.Context, from, to string) ([]model.WorkDay, error) {
	rows, err := r.db.QueryContext(ctx, selectDay+` WHERE date BETWEEN ? AND ? ORDER BY date ASC`, from, to)
	if err != nil {
		return nil, fmt.Errorf("list days: %w", err)
	}
	defer rows.Close()

	days := make([]model.WorkDay, 0)
	for rows.Next() {
		day, scanErr := scanWorkDay(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		days = append(days, *day)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate days: %w", err)
	}
	return days, nil
}

func (r *WorklogRepository) ListBreaks(ctx context.Context, from, to string) ([]model.BreakPeriod, error) {
	rows, err := r.db.QueryContext(ctx, selectBreak+` WHERE date BETWEEN ? AND ? ORDER BY date ASC, started_at ASC`, from, to)
	if err != nil {
		return nil, fmt.Errorf("list breaks: %w", err)
	}
	return collectBreaks(rows)
}

// ListActions returns every record for the day, revoked ones included, by sequence.
func (r *WorklogRepository) ListActions(ctx context.Context, date string) ([]model.ActionRecord, error) {
	return queryActions(ctx, r.db, `WHERE date = ? ORDER BY sequence ASC`, date)
}

func (r *WorklogRepository) ListActionsRange(ctx context.Context, from, to string) ([]model.ActionRecord, error) {
	return queryActions(ctx, r.db, `WHERE date BETWEEN ? AND ? ORDER BY date ASC, sequence ASC`, from, to)
}

const selectDay = `SELECT date, status, started_at, ended_at, work_minutes, break_minutes,
		productive_minutes, overtime_minutes, deficit_minutes, summary_frozen, created_at, updated_at
	 FROM work_days`

const selectBreak = `SELECT id, date, category, started_at, ended_at, duration_minutes, created_at
	 FROM break_periods`

const selectAction = `SELECT id, date, sequence, kind, at, state_before, state_after,
		category, break_id, revoked, revoked_at
	 FROM action_records `

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func (r *WorklogRepository) getDayTx(ctx context.Context, tx *sql.Tx, date string) (*model.WorkDay, error) {
	row := tx.QueryRowContext(ctx, selectDay+` WHERE date = ?`, date)
	return scanWorkDay(row)
}

func (r *WorklogRepository) listBreaksTx(ctx context.Context, tx *sql.Tx, date string) ([]model.BreakPeriod, error) {
	rows, err := tx.QueryContext(ctx, selectBreak+` WHERE date = ? ORDER BY started_at ASC, created_at ASC`, date)
	if err != nil {
		return nil, fmt.Errorf("list breaks: %w", err)
	}
	return collectBreaks(rows)
}

func (r *WorklogRepository) putDayTx(ctx context.Context, tx *sql.Tx, day *model.WorkDay) error {
	_, err := tx.ExecContext(
		ctx,
		`INSERT INTO work_days (
			date, status, started_at, ended_at, work_minutes, break_minutes,
			productive_minutes, overtime_minutes, deficit_minutes, summary_frozen, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			status = excluded.status,
			started_at = excluded.started_at,
			ended_at = excluded.ended_at,
			work_minutes = excluded.work_minutes,
			break_minutes = excluded.break_minutes,
			productive_minutes = excluded.productive_minutes,
			overtime_minutes = excluded.overtime_minutes,
			deficit_minutes = excluded.deficit_minutes,
			summary_frozen = excluded.summary_frozen,
			updated_at = excluded.updated_at`,
		day.Date,
		day.Status,
		nullableTime(day.StartedAt),
		nullableTime(day.EndedAt),
		day.WorkMinutes,
		day.BreakMinutes,
		day.ProductiveMinutes,
		day.OvertimeMinutes,
		day.DeficitMinutes,
		day.SummaryFrozen,
		formatTime(day.CreatedAt),
		formatTime(day.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put day: %w", err)
	}
	return nil
}

func (r *WorklogRepository) insertBreakTx(ctx context.Context, tx *sql.Tx, b *model.BreakPeriod) error {
	var duration interface{}
	if b.DurationMinutes != nil {
		duration = *b.DurationMinutes
	}
	_, err := tx.ExecContext(
		ctx,
		`INSERT INTO break_periods (id, date, category, started_at, ended_at, duration_minutes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID,
		b.Date,
		b.Category,
		formatTime(b.StartedAt),
		nullableTime(b.EndedAt),
		duration,
		formatTime(b.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert break: %w", err)
	}
	return nil
}

func (r *WorklogRepository) closeBreakTx(ctx context.Context, tx *sql.Tx, b *model.BreakPeriod) error {
	if b.EndedAt == nil || b.DurationMinutes == nil {
		return fmt.Errorf("close break %s: missing end", b.ID)
	}
	return execOne(
		ctx, tx, "close break",
		`UPDATE break_periods SET ended_at = ?, duration_minutes = ? WHERE id = ? AND ended_at IS NULL`,
		formatTime(*b.EndedAt), *b.DurationMinutes, b.ID,
	)
}

func (r *WorklogRepository) insertActionTx(ctx context.Context, tx *sql.Tx, a *model.ActionRecord) error {
	before, err := json.Marshal(a.Before)
	if err != nil {
		return fmt.Errorf("encode state_before: %w", err)
	}
	after, err := json.Marshal(a.After)
	if err != nil {
		return fmt.Errorf("encode state_after: %w", err)
	}
	var category interface{}
	if a.Category != nil {
		category = string(*a.Category)
	}
	var breakID interface{}
	if a.BreakID != "" {
		breakID = a.BreakID
	}

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO action_records (
			id, date, sequence, kind, at, state_before, state_after, category, break_id, revoked, revoked_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID,
		a.Date,
		a.Sequence,
		a.Kind,
		formatTime(a.At),
		string(before),
		string(after),
		category,
		breakID,
		a.Revoked,
		nullableTime(a.RevokedAt),
	)
	if err != nil {
		return fmt.Errorf("insert action: %w", err)
	}
	return nil
}

func execOne(ctx context.Context, tx *sql.Tx, op, query string, args ...interface{}) error {
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n != 1 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

func queryActions(ctx context.Context, q queryer, where string, args ...interface{}) ([]model.ActionRecord, error) {
	rows, err := q.QueryContext(ctx, selectAction+where, args...)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	defer rows.Close()

	actions := make([]model.ActionRecord, 0)
	for rows.Next() {
		action, scanErr := scanAction(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		actions = append(actions, *action)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate actions: %w", err)
	}
	return actions, nil
}

func collectBreaks(rows *sql.Rows) ([]model.BreakPeriod, error) {
	defer rows.Close()

	breaks := make([]model.BreakPeriod, 0)
	for rows.Next() {
		b, err := scanBreak(rows)
		if err != nil {
			return nil, err
		}
		breaks = append(breaks, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate breaks: %w", err)
	}
	return breaks, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanWorkDay(s scanner) (*model.WorkDay, error) {
	day := model.WorkDay{}
	var startedAt, endedAt sql.NullString
	var status, createdAt, updatedAt string
	err := s.Scan(
		&day.Date,
		&status,
		&startedAt,
		&endedAt,
		&day.WorkMinutes,
		&day.BreakMinutes,
		&day.ProductiveMinutes,
		&day.OvertimeMinutes,
		&day.DeficitMinutes,
		&day.SummaryFrozen,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan day: %w", err)
	}

	var ok bool
	if day.Status, ok = model.ParseStatus(status); !ok {
		return nil, fmt.Errorf("scan day: unknown status %q", status)
	}

	if day.StartedAt, err = parseNullableTime(startedAt); err != nil {
		return nil, fmt.Errorf("parse day started_at: %w", err)
	}
	if day.EndedAt, err = parseNullableTime(endedAt); err != nil {
		return nil, fmt.Errorf("parse day ended_at: %w", err)
	}
	if day.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse day created_at: %w", err)
	}
	if day.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse day updated_at: %w", err)
	}
	return &day, nil
}

func scanBreak(s scanner) (*model.BreakPeriod, error) {
	b := model.BreakPeriod{}
	var startedAt, createdAt string
	var endedAt sql.NullString
	var duration sql.NullInt64
	err := s.Scan(&b.ID, &b.Date, &b.Category, &startedAt, &endedAt, &duration, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan break: %w", err)
	}

	if b.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, fmt.Errorf("parse break started_at: %w", err)
	}
	if b.EndedAt, err = parseNullableTime(endedAt); err != nil {
		return nil, fmt.Errorf("parse break ended_at: %w", err)
	}
	if duration.Valid {
		minutes := int(duration.Int64)
		b.DurationMinutes = &minutes
	}
	if b.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse break created_at: %w", err)
	}
	return &b, nil
}

func scanAction(s scanner) (*model.ActionRecord, error) {
	a := model.ActionRecord{}
	var kind, at, before, after string
	var category, breakID, revokedAt sql.NullString
	err := s.Scan(&a.ID, &a.Date, &a.Sequence, &kind, &at, &before, &after, &category, &breakID, &a.Revoked, &revokedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan action: %w", err)
	}

	var ok bool
	if a.Kind, ok = model.ParseActionKind(kind); !ok {
		return nil, fmt.Errorf("scan action: unknown kind %q", kind)
	}

	if a.At, err = parseTime(at); err != nil {
		return nil, fmt.Errorf("parse action at: %w", err)
	}
	if err := json.Unmarshal([]byte(before), &a.Before); err != nil {
		return nil, fmt.Errorf("decode action state_before: %w", err)
	}
	if err := json.Unmarshal([]byte(after), &a.After); err != nil {
		return nil, fmt.Errorf("decode action state_after: %w", err)
	}
	if category.Valid {
		c := model.BreakCategory(category.String)
		a.Category = &c
	}
	a.BreakID = breakID.String
	if a.RevokedAt, err = parseNullableTime(revokedAt); err != nil {
		return nil, fmt.Errorf("parse action revoked_at: %w", err)
	}
	return &a, nil
}
