package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"worklog/backend/internal/clock"
	"worklog/backend/internal/model"
	"worklog/backend/internal/service"
)

type cliHarness struct {
	t     *testing.T
	clock *clock.Manual
}

func newCLIHarness(t *testing.T) *cliHarness {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("WORKLOG_CONFIG", "")
	t.Setenv("WORKLOG_DB_PATH", filepath.Join(dir, "worklog.db"))
	t.Setenv("WORKLOG_TIMEZONE", "UTC")
	t.Setenv("WORKLOG_WORK_NORM_MINUTES", "450")
	t.Setenv("WORKLOG_JWT_SECRET", "test-secret")
	return &cliHarness{t: t, clock: clock.NewManual(time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC))}
}

func (h *cliHarness) run(args ...string) (string, error) {
	h.t.Helper()
	cmd := buildRootCommand(&commandContext{clock: h.clock})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func (h *cliHarness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	if err != nil {
		h.t.Fatalf("worklogctl %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func (h *cliHarness) state() service.StateView {
	h.t.Helper()
	var view service.StateView
	if err := json.Unmarshal([]byte(h.mustRun("status", "--json")), &view); err != nil {
		h.t.Fatalf("decode status: %v", err)
	}
	return view
}

func TestCLIFullDay(t *testing.T) {
	h := newCLIHarness(t)

	out := h.mustRun("start")
	if !strings.Contains(out, "[Working]") {
		t.Fatalf("expected working badge, got:\n%s", out)
	}
	h.clock.Advance(4 * time.Hour)
	h.mustRun("stop", "--category", "lunch")
	h.clock.Advance(30 * time.Minute)
	h.mustRun("continue")
	h.clock.Advance(3*time.Hour + 30*time.Minute)
	h.mustRun("end")

	view := h.state()
	if view.Status != model.StatusDayEnded {
		t.Fatalf("expected day_ended, got %s", view.Status)
	}
	s := view.Summary
	if s.WorkMinutes != 450 || s.BreakMinutes != 30 || s.ProductiveMinutes != 420 || s.DeficitMinutes != 30 {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if !s.Frozen {
		t.Fatalf("ended day should report frozen figures")
	}

	history := h.mustRun("history")
	for _, want := range []string{"Started work day", "Stopped work (lunch break)", "Continued work", "Ended work day"} {
		if !strings.Contains(history, want) {
			t.Fatalf("history missing %q:\n%s", want, history)
		}
	}
}

func TestCLIRejectsIllegalTransition(t *testing.T) {
	h := newCLIHarness(t)

	_, err := h.run("continue")
	if err == nil || !strings.Contains(err.Error(), "no_active_session") {
		t.Fatalf("expected no_active_session, got %v", err)
	}

	h.mustRun("start")
	_, err = h.run("start")
	if err == nil || !strings.Contains(err.Error(), "invalid_transition") {
		t.Fatalf("expected invalid_transition, got %v", err)
	}
}

func TestCLIRevoke(t *testing.T) {
	h := newCLIHarness(t)

	h.mustRun("start")
	h.clock.Advance(time.Hour)
	h.mustRun("stop")
	h.clock.Advance(10 * time.Minute)
	h.mustRun("continue")

	h.mustRun("revoke")
	if got := h.state().Status; got != model.StatusOnBreak {
		t.Fatalf("expected on_break after revoking continue, got %s", got)
	}

	// Sequence 1 is not the newest active record.
	if _, err := h.run("revoke", "1"); err == nil || !strings.Contains(err.Error(), "not_revokable") {
		t.Fatalf("expected not_revokable, got %v", err)
	}

	out := h.mustRun("revoke", "--last", "5")
	if !strings.Contains(out, "Revoked 2 of 5") {
		t.Fatalf("unexpected batch output:\n%s", out)
	}
	if got := h.state().Status; got != model.StatusNotStarted {
		t.Fatalf("expected not_started after batch revoke, got %s", got)
	}
}

func TestCLIResetNeedsConfirmation(t *testing.T) {
	h := newCLIHarness(t)
	h.mustRun("start")

	if _, err := h.run("reset"); err == nil || !strings.Contains(err.Error(), "--yes") {
		t.Fatalf("expected confirmation error, got %v", err)
	}
	if got := h.state().Status; got != model.StatusWorking {
		t.Fatalf("unconfirmed reset changed the day: %s", got)
	}

	h.mustRun("reset", "--yes")
	view := h.state()
	if view.Status != model.StatusNotStarted || len(view.Revokable) != 0 {
		t.Fatalf("expected empty day after reset, got %+v", view)
	}
}

func TestCLIReport(t *testing.T) {
	h := newCLIHarness(t)
	h.mustRun("start")
	h.clock.Advance(8 * time.Hour)
	h.mustRun("end")

	out := h.mustRun("report")
	if !strings.Contains(out, "2026-03-02 .. 2026-03-08") || !strings.Contains(out, "Total") {
		t.Fatalf("unexpected report table:\n%s", out)
	}

	csvOut := h.mustRun("report", "--from", "2026-03-02", "--to", "2026-03-02", "--format", "csv")
	if !strings.HasPrefix(csvOut, "date,") || !strings.Contains(csvOut, "2026-03-02") {
		t.Fatalf("unexpected csv:\n%s", csvOut)
	}

	if _, err := h.run("report", "--format", "xml"); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}

func TestCLIHashPasswordAndToken(t *testing.T) {
	h := newCLIHarness(t)

	cmd := buildRootCommand(&commandContext{clock: h.clock})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("hunter22\n"))
	cmd.SetArgs([]string{"hash-password"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("hash-password: %v", err)
	}
	if !strings.HasPrefix(out.String(), "$2") {
		t.Fatalf("expected bcrypt hash, got %q", out.String())
	}

	if _, err := h.run("hash-password", "--password", "abc"); err == nil {
		t.Fatalf("expected short password to be rejected")
	}

	token := strings.TrimSpace(h.mustRun("token"))
	auth := service.NewAuthService("", "test-secret", time.Hour)
	subject, apiErr := auth.ParseToken(token)
	if apiErr != nil || subject != service.OwnerSubject {
		t.Fatalf("issued token did not verify: %v %q", apiErr, subject)
	}
}

func TestHumanize(t *testing.T) {
	tests := map[string]string{
		"on_break":  "On Break",
		"start_day": "Start Day",
		"lunch":     "Lunch",
	}
	for in, want := range tests {
		if got := humanize(in); got != want {
			t.Fatalf("humanize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable([]string{"A", "B"}, [][]string{{"1"}}, []columnAlignment{alignLeft, alignRight})
	if !strings.Contains(out, "A") || !strings.Contains(out, "1") {
		t.Fatalf("unexpected table:\n%s", out)
	}
	if renderTable(nil, nil, nil) != "" {
		t.Fatalf("expected empty output without headers")
	}
}
