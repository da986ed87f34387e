package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"worklog/backend/internal/actionlog"
	"worklog/backend/internal/aggregate"
	"worklog/backend/internal/clock"
	apperrors "worklog/backend/internal/errors"
	"worklog/backend/internal/model"
	"worklog/backend/internal/report"
	"worklog/backend/internal/repository"
	"worklog/backend/internal/timecalc"
	"worklog/backend/internal/workday"
)

// Store is the durable side of the tracker. Apply must commit the whole set or nothing.
type Store interface {
	LoadLedger(ctx context.Context, date string) (*model.Ledger, error)
	Apply(ctx context.Context, date string, set model.MutationSet) (*model.WorkDay, error)
	ListActions(ctx context.Context, date string) ([]model.ActionRecord, error)
	ListActionsRange(ctx context.Context, from, to string) ([]model.ActionRecord, error)
	ListDays(ctx context.Context, from, to string) ([]model.WorkDay, error)
	ListBreaks(ctx context.Context, from, to string) ([]model.BreakPeriod, error)
}

type TrackerOptions struct {
	NormMinutes int
	Location    *time.Location
	Clock       clock.Clock
	Machine     *workday.Machine
	Logger      *slog.Logger
}

// TrackerService drives one user's work days. Calls are serialized; the cached
// ledger for a date is dropped whenever storage fails so the next call reloads it.
type TrackerService struct {
	store   Store
	norm    int
	loc     *time.Location
	clock   clock.Clock
	machine *workday.Machine
	logger  *slog.Logger

	mu    sync.Mutex
	cache map[string]model.Ledger
}

func NewTrackerService(store Store, opts TrackerOptions) *TrackerService {
	if opts.NormMinutes <= 0 {
		opts.NormMinutes = model.DefaultWorkNormMinutes
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	if opts.Machine == nil {
		opts.Machine = workday.New()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &TrackerService{
		store:   store,
		norm:    opts.NormMinutes,
		loc:     opts.Location,
		clock:   opts.Clock,
		machine: opts.Machine,
		logger:  opts.Logger,
		cache:   make(map[string]model.Ledger),
	}
}

type StateView struct {
	Date         string                `json:"date"`
	Status       model.Status          `json:"status"`
	StartedAt    *time.Time            `json:"startedAt,omitempty"`
	EndedAt      *time.Time            `json:"endedAt,omitempty"`
	OpenBreak    *model.BreakPeriod    `json:"openBreak,omitempty"`
	Breaks       []model.BreakPeriod   `json:"breaks"`
	LegalActions []model.ActionKind    `json:"legalActions"`
	Revokable    []actionlog.Candidate `json:"revokable"`
	Summary      model.Summary         `json:"summary"`
	ServerTime   time.Time             `json:"serverTime"`
}

type ActionView struct {
	model.ActionRecord
	Description string `json:"description"`
}

type RevokeBatchResult struct {
	Requested int                 `json:"requested"`
	Revoked   []int64             `json:"revoked"`
	Failure   *apperrors.APIError `json:"failure,omitempty"`
	State     *StateView          `json:"state"`
}

func (s *TrackerService) NormMinutes() int {
	return s.norm
}

func (s *TrackerService) Location() *time.Location {
	return s.loc
}

// ResolveDate turns "today", "yesterday" or YYYY-MM-DD into a date key.
func (s *TrackerService) ResolveDate(raw string) (string, *apperrors.APIError) {
	date, err := timecalc.ParseDate(raw, s.clock.Now(), s.loc)
	if err != nil {
		return "", apperrors.BadRequest("invalid_date", err.Error())
	}
	return date, nil
}

func (s *TrackerService) GetState(ctx context.Context, date string) (*StateView, *apperrors.APIError) {
	if apiErr := validateDate(date); apiErr != nil {
		return nil, apiErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	l, apiErr := s.ledger(ctx, date)
	if apiErr != nil {
		return nil, apiErr
	}
	view := s.toStateView(l, s.clock.Now())
	return &view, nil
}

func (s *TrackerService) GetSummary(ctx context.Context, date string) (*model.Summary, *apperrors.APIError) {
	if apiErr := validateDate(date); apiErr != nil {
		return nil, apiErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	l, apiErr := s.ledger(ctx, date)
	if apiErr != nil {
		return nil, apiErr
	}
	summary := aggregate.Summarize(l, s.norm, s.clock.Now())
	return &summary, nil
}

func (s *TrackerService) StartDay(ctx context.Context, date string) (*StateView, *apperrors.APIError) {
	return s.transition(ctx, date, workday.Action{Kind: model.ActionStartDay})
}

func (s *TrackerService) Stop(ctx context.Context, date, category string) (*StateView, *apperrors.APIError) {
	parsed, ok := model.ParseBreakCategory(category)
	if !ok {
		return nil, apperrors.BadRequest("invalid_category", fmt.Sprintf("unknown break category %q", category))
	}
	return s.transition(ctx, date, workday.Action{Kind: model.ActionStop, Category: parsed})
}

func (s *TrackerService) Continue(ctx context.Context, date string) (*StateView, *apperrors.APIError) {
	return s.transition(ctx, date, workday.Action{Kind: model.ActionContinue})
}

func (s *TrackerService) EndDay(ctx context.Context, date string) (*StateView, *apperrors.APIError) {
	return s.transition(ctx, date, workday.Action{Kind: model.ActionEndDay})
}

func (s *TrackerService) ResetDay(ctx context.Context, date string) (*StateView, *apperrors.APIError) {
	return s.transition(ctx, date, workday.Action{Kind: model.ActionResetDay})
}

func (s *TrackerService) Revoke(ctx context.Context, date string, sequence int64) (*StateView, *apperrors.APIError) {
	if apiErr := validateDate(date); apiErr != nil {
		return nil, apiErr
	}
	if sequence <= 0 {
		return nil, apperrors.BadRequest("invalid_sequence", "sequence must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next, apiErr := s.revokeLocked(ctx, date, sequence)
	if apiErr != nil {
		return nil, apiErr
	}
	view := s.toStateView(next, s.clock.Now())
	return &view, nil
}

// RevokeLast revokes the newest non-revoked action of the day.
func (s *TrackerService) RevokeLast(ctx context.Context, date string) (*StateView, *apperrors.APIError) {
	if apiErr := validateDate(date); apiErr != nil {
		return nil, apiErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	l, apiErr := s.ledger(ctx, date)
	if apiErr != nil {
		return nil, apiErr
	}
	tail, ok := actionlog.Tail(l)
	if !ok {
		return nil, apperrors.NotRevokable("no actions left to revoke", nil)
	}
	next, apiErr := s.revokeLocked(ctx, date, tail.Sequence)
	if apiErr != nil {
		return nil, apiErr
	}
	view := s.toStateView(next, s.clock.Now())
	return &view, nil
}

// RevokeBatch revokes the newest n actions one at a time, newest first. Each revoke
// commits on its own; the batch stops at the first rejection and reports it.
func (s *TrackerService) RevokeBatch(ctx context.Context, date string, n int) (*RevokeBatchResult, *apperrors.APIError) {
	if apiErr := validateDate(date); apiErr != nil {
		return nil, apiErr
	}
	if n <= 0 {
		return nil, apperrors.BadRequest("invalid_count", "count must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	l, apiErr := s.ledger(ctx, date)
	if apiErr != nil {
		return nil, apiErr
	}

	result := &RevokeBatchResult{Requested: n, Revoked: make([]int64, 0, n)}
	for i := 0; i < n; i++ {
		tail, ok := actionlog.Tail(l)
		if !ok {
			result.Failure = apperrors.NotRevokable("no actions left to revoke", map[string]int{"revoked": len(result.Revoked)})
			break
		}
		next, apiErr := s.revokeLocked(ctx, date, tail.Sequence)
		if apiErr != nil {
			result.Failure = apiErr
			break
		}
		result.Revoked = append(result.Revoked, tail.Sequence)
		l = next
	}

	if result.Failure != nil && apperrors.Is(result.Failure, apperrors.CodeStorageError) {
		reloaded, apiErr := s.ledger(ctx, date)
		if apiErr != nil {
			return result, nil
		}
		l = reloaded
	}
	view := s.toStateView(l, s.clock.Now())
	result.State = &view
	return result, nil
}

func (s *TrackerService) RevokeCandidates(ctx context.Context, date string) ([]actionlog.Candidate, *apperrors.APIError) {
	if apiErr := validateDate(date); apiErr != nil {
		return nil, apiErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	l, apiErr := s.ledger(ctx, date)
	if apiErr != nil {
		return nil, apiErr
	}
	return actionlog.Candidates(l), nil
}

// ListActions returns the day's full history, revoked records included.
func (s *TrackerService) ListActions(ctx context.Context, date string) ([]ActionView, *apperrors.APIError) {
	if apiErr := validateDate(date); apiErr != nil {
		return nil, apiErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	actions, err := s.store.ListActions(ctx, date)
	if err != nil {
		return nil, s.storageFailure(date, "list actions", err)
	}
	return toActionViews(actions), nil
}

func (s *TrackerService) ListActionsRange(ctx context.Context, from, to string) ([]ActionView, *apperrors.APIError) {
	if apiErr := validateRange(from, to); apiErr != nil {
		return nil, apiErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	actions, err := s.store.ListActionsRange(ctx, from, to)
	if err != nil {
		return nil, s.storageFailure("", "list actions", err)
	}
	return toActionViews(actions), nil
}

// Report evaluates every stored day in [from, to].
func (s *TrackerService) Report(ctx context.Context, from, to string) (*report.Report, *apperrors.APIError) {
	if apiErr := validateRange(from, to); apiErr != nil {
		return nil, apiErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	days, err := s.store.ListDays(ctx, from, to)
	if err != nil {
		return nil, s.storageFailure("", "list days", err)
	}
	breaks, err := s.store.ListBreaks(ctx, from, to)
	if err != nil {
		return nil, s.storageFailure("", "list breaks", err)
	}
	actions, err := s.store.ListActionsRange(ctx, from, to)
	if err != nil {
		return nil, s.storageFailure("", "list actions", err)
	}

	breaksByDate := make(map[string][]model.BreakPeriod)
	for _, b := range breaks {
		breaksByDate[b.Date] = append(breaksByDate[b.Date], b)
	}
	actionsByDate := make(map[string][]model.ActionRecord)
	for _, a := range actions {
		actionsByDate[a.Date] = append(actionsByDate[a.Date], a)
	}

	now := s.clock.Now()
	entries := make([]report.Entry, 0, len(days))
	for i := range days {
		l := model.Ledger{
			Date:    days[i].Date,
			Day:     &days[i],
			Breaks:  breaksByDate[days[i].Date],
			Actions: actionsByDate[days[i].Date],
		}
		entries = append(entries, report.Entry{Ledger: l, Summary: aggregate.Summarize(l, s.norm, now)})
	}
	r := report.Build(from, to, s.norm, entries, now)
	return &r, nil
}

func (s *TrackerService) transition(ctx context.Context, date string, action workday.Action) (*StateView, *apperrors.APIError) {
	if apiErr := validateDate(date); apiErr != nil {
		return nil, apiErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	l, apiErr := s.ledger(ctx, date)
	if apiErr != nil {
		return nil, apiErr
	}

	now := s.clock.Now()
	next, set, err := s.machine.Apply(l, action, now)
	if err != nil {
		return nil, translate(err, l)
	}
	if action.Kind == model.ActionEndDay {
		aggregate.Freeze(&next, s.norm, now)
		set.PutDay = next.Day
	}

	if _, err := s.store.Apply(ctx, date, set); err != nil {
		return nil, s.storageFailure(date, string(action.Kind), err)
	}
	s.cache[date] = next

	if action.Kind == model.ActionResetDay {
		s.logger.Warn("work day reset",
			slog.String("date", date),
			slog.String("from", string(statusOf(l))),
			slog.Int("discarded_actions", len(l.Actions)),
			slog.Int("discarded_breaks", len(l.Breaks)),
		)
	} else {
		s.logger.Info("work day transition",
			slog.String("date", date),
			slog.String("action", string(action.Kind)),
			slog.Int64("sequence", set.Append.Sequence),
			slog.String("from", string(statusOf(l))),
			slog.String("to", string(statusOf(next))),
		)
	}

	view := s.toStateView(next, s.clock.Now())
	return &view, nil
}

func (s *TrackerService) revokeLocked(ctx context.Context, date string, sequence int64) (model.Ledger, *apperrors.APIError) {
	l, apiErr := s.ledger(ctx, date)
	if apiErr != nil {
		return model.Ledger{}, apiErr
	}

	now := s.clock.Now()
	next, set, err := actionlog.Revoke(l, sequence, now)
	if err != nil {
		return model.Ledger{}, translate(err, l)
	}
	aggregate.Freeze(&next, s.norm, now)
	set.PutDay = next.Day

	if _, err := s.store.Apply(ctx, date, set); err != nil {
		return model.Ledger{}, s.storageFailure(date, "revoke", err)
	}
	s.cache[date] = next

	s.logger.Info("action revoked",
		slog.String("date", date),
		slog.Int64("sequence", sequence),
		slog.String("from", string(statusOf(l))),
		slog.String("to", string(statusOf(next))),
	)
	return next, nil
}

// ledger returns the cached view of date, loading it on a miss. Callers hold s.mu.
func (s *TrackerService) ledger(ctx context.Context, date string) (model.Ledger, *apperrors.APIError) {
	if l, ok := s.cache[date]; ok {
		return l, nil
	}
	loaded, err := s.store.LoadLedger(ctx, date)
	if errors.Is(err, repository.ErrNotFound) {
		l := model.Ledger{Date: date}
		s.cache[date] = l
		return l, nil
	}
	if err != nil {
		return model.Ledger{}, s.storageFailure(date, "load day", err)
	}
	status, err := aggregate.ReplayStatus(*loaded)
	if err == nil && status != loaded.Day.Status {
		err = fmt.Errorf("stored status %s, history replays to %s", loaded.Day.Status, status)
	}
	if err != nil {
		return model.Ledger{}, s.storageFailure(date, "verify day history", err)
	}
	s.cache[date] = *loaded
	return *loaded, nil
}

// storageFailure drops the cached view of date and logs err. Callers hold s.mu.
func (s *TrackerService) storageFailure(date, op string, err error) *apperrors.APIError {
	if date != "" {
		delete(s.cache, date)
	}
	s.logger.Error("storage failure",
		slog.String("date", date),
		slog.String("op", op),
		slog.Any("error", err),
	)
	return apperrors.Storage(fmt.Sprintf("failed to %s", op))
}

func (s *TrackerService) toStateView(l model.Ledger, now time.Time) StateView {
	view := StateView{
		Date:         l.Date,
		Status:       statusOf(l),
		Breaks:       l.Breaks,
		LegalActions: workday.LegalActions(l.Day),
		Revokable:    actionlog.Candidates(l),
		Summary:      aggregate.Summarize(l, s.norm, now),
		ServerTime:   now.UTC(),
	}
	if view.Breaks == nil {
		view.Breaks = []model.BreakPeriod{}
	}
	if l.Day != nil {
		view.StartedAt = l.Day.StartedAt
		view.EndedAt = l.Day.EndedAt
	}
	if open := l.OpenBreak(); open != nil {
		b := *open
		view.OpenBreak = &b
	}
	return view
}

func translate(err error, l model.Ledger) *apperrors.APIError {
	details := map[string]interface{}{"date": l.Date, "status": statusOf(l)}
	switch {
	case errors.Is(err, workday.ErrInvalidTransition):
		details["legalActions"] = workday.LegalActions(l.Day)
		return apperrors.InvalidTransition(err.Error(), details)
	case errors.Is(err, workday.ErrNoActiveSession):
		return apperrors.NoActiveSession(err.Error())
	case errors.Is(err, workday.ErrInvalidCategory):
		return apperrors.BadRequest("invalid_category", err.Error())
	case errors.Is(err, actionlog.ErrNotRevokable):
		if tail, ok := actionlog.Tail(l); ok {
			details["tail"] = tail.Sequence
		}
		return apperrors.NotRevokable(err.Error(), details)
	}
	return apperrors.Internal(err.Error())
}

func statusOf(l model.Ledger) model.Status {
	if l.Day == nil {
		return model.StatusNotStarted
	}
	return l.Day.Status
}

func toActionViews(actions []model.ActionRecord) []ActionView {
	views := make([]ActionView, 0, len(actions))
	for _, a := range actions {
		views = append(views, ActionView{ActionRecord: a, Description: actionlog.Describe(a)})
	}
	return views
}

func validateDate(date string) *apperrors.APIError {
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return apperrors.BadRequest("invalid_date", fmt.Sprintf("invalid date %q: want YYYY-MM-DD", date))
	}
	return nil
}

func validateRange(from, to string) *apperrors.APIError {
	if apiErr := validateDate(from); apiErr != nil {
		return apiErr
	}
	if apiErr := validateDate(to); apiErr != nil {
		return apiErr
	}
	if to < from {
		return apperrors.BadRequest("invalid_range", "to must not precede from")
	}
	return nil
}
