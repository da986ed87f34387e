package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"worklog/backend/internal/model"
	"worklog/backend/internal/service"
	"worklog/backend/internal/timecalc"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

// humanize turns identifiers like "on_break" into "On Break".
func humanize(value string) string {
	return cases.Title(language.Und).String(strings.ReplaceAll(value, "_", " "))
}

func statusColor(status model.Status) string {
	switch status {
	case model.StatusWorking:
		return ansiGreen
	case model.StatusOnBreak:
		return ansiYellow
	case model.StatusDayEnded:
		return ansiBlue
	default:
		return ""
	}
}

func statusBadge(status model.Status, colorize bool) string {
	label := "[" + humanize(string(status)) + "]"
	if colorize {
		if color := statusColor(status); color != "" {
			return color + label + ansiReset
		}
	}
	return label
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func clockTime(t *time.Time, loc *time.Location) string {
	if t == nil {
		return "-"
	}
	return t.In(loc).Format("15:04:05")
}

func renderState(w io.Writer, view *service.StateView, loc *time.Location) {
	colorize := shouldColorize(w)
	fmt.Fprintf(w, "%s  %s\n", view.Date, statusBadge(view.Status, colorize))
	fmt.Fprintf(w, "Started: %s   Ended: %s\n", clockTime(view.StartedAt, loc), clockTime(view.EndedAt, loc))
	if view.OpenBreak != nil {
		fmt.Fprintf(w, "On %s break since %s\n", view.OpenBreak.Category, clockTime(&view.OpenBreak.StartedAt, loc))
	}

	s := view.Summary
	rows := [][]string{
		{"Work", timecalc.FormatMinutes(s.WorkMinutes)},
		{"Break", timecalc.FormatMinutes(s.BreakMinutes)},
		{"Productive", timecalc.FormatMinutes(s.ProductiveMinutes)},
		{"Norm", timecalc.FormatMinutes(s.NormMinutes)},
		{"Overtime", timecalc.FormatMinutes(s.OvertimeMinutes)},
		{"Deficit", timecalc.FormatMinutes(s.DeficitMinutes)},
		{"Remaining", timecalc.FormatMinutes(s.RemainingMinutes)},
	}
	if s.CurrentSessionSeconds > 0 {
		rows = append(rows, []string{"Current session", timecalc.FormatDurationHHMMSS(s.CurrentSessionSeconds)})
	}
	if s.Frozen {
		rows = append(rows, []string{"Summary", "frozen"})
	}
	fmt.Fprintln(w, renderTable([]string{"Metric", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))

	if len(view.LegalActions) > 0 {
		labels := make([]string, 0, len(view.LegalActions))
		for _, kind := range view.LegalActions {
			labels = append(labels, humanize(string(kind)))
		}
		fmt.Fprintf(w, "Next: %s\n", strings.Join(labels, ", "))
	}

	if len(view.Revokable) > 0 {
		rows := make([][]string, 0, len(view.Revokable))
		for _, c := range view.Revokable {
			mark := ""
			if c.CanRevoke {
				mark = "yes"
			}
			rows = append(rows, []string{
				strconv.FormatInt(c.Record.Sequence, 10),
				clockTime(&c.Record.At, loc),
				c.Description,
				mark,
			})
		}
		fmt.Fprintln(w, renderTable([]string{"#", "Time", "Action", "Revokable"}, rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft}))
	}
}

func renderActions(w io.Writer, actions []service.ActionView, loc *time.Location) {
	if len(actions) == 0 {
		fmt.Fprintln(w, "No actions recorded.")
		return
	}
	rows := make([][]string, 0, len(actions))
	for _, a := range actions {
		category := ""
		if a.Category != nil {
			category = humanize(string(*a.Category))
		}
		rows = append(rows, []string{
			a.Date,
			strconv.FormatInt(a.Sequence, 10),
			clockTime(&a.At, loc),
			humanize(string(a.Kind)),
			category,
			a.Description,
		})
	}
	fmt.Fprintln(w, renderTable([]string{"Date", "#", "Time", "Kind", "Category", "Description"}, rows,
		[]columnAlignment{alignLeft, alignRight}))
}
