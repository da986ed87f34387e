// Package report turns stored days into export rows and writes them as CSV or JSON.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"worklog/backend/internal/model"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	}
	return "", fmt.Errorf("unsupported report format %q", raw)
}

// Entry pairs a day's ledger with its evaluated summary.
type Entry struct {
	Ledger  model.Ledger
	Summary model.Summary
}

type Row struct {
	Date              string       `json:"date"`
	Status            model.Status `json:"status"`
	StartedAt         *time.Time   `json:"startedAt,omitempty"`
	EndedAt           *time.Time   `json:"endedAt,omitempty"`
	WorkMinutes       int          `json:"workMinutes"`
	BreakMinutes      int          `json:"breakMinutes"`
	ProductiveMinutes int          `json:"productiveMinutes"`
	OvertimeMinutes   int          `json:"overtimeMinutes"`
	DeficitMinutes    int          `json:"deficitMinutes"`
	Breaks            int          `json:"breaks"`
	LunchBreaks       int          `json:"lunchBreaks"`
	CoffeeBreaks      int          `json:"coffeeBreaks"`
	GeneralBreaks     int          `json:"generalBreaks"`
	Actions           int          `json:"actions"`
	RevokedActions    int          `json:"revokedActions"`
}

type Totals struct {
	Days              int `json:"days"`
	WorkMinutes       int `json:"workMinutes"`
	BreakMinutes      int `json:"breakMinutes"`
	ProductiveMinutes int `json:"productiveMinutes"`
	OvertimeMinutes   int `json:"overtimeMinutes"`
	DeficitMinutes    int `json:"deficitMinutes"`
	// BalanceMinutes is overtime minus deficit across the range.
	BalanceMinutes int `json:"balanceMinutes"`
}

type Report struct {
	From        string    `json:"from"`
	To          string    `json:"to"`
	NormMinutes int       `json:"normMinutes"`
	GeneratedAt time.Time `json:"generatedAt"`
	Rows        []Row     `json:"rows"`
	Totals      Totals    `json:"totals"`
}

// Build assembles the report. Entries are expected in date order.
func Build(from, to string, normMinutes int, entries []Entry, now time.Time) Report {
	r := Report{
		From:        from,
		To:          to,
		NormMinutes: normMinutes,
		GeneratedAt: now.UTC(),
		Rows:        make([]Row, 0, len(entries)),
	}
	for _, e := range entries {
		row := Row{
			Date:              e.Ledger.Date,
			Status:            e.Summary.Status,
			WorkMinutes:       e.Summary.WorkMinutes,
			BreakMinutes:      e.Summary.BreakMinutes,
			ProductiveMinutes: e.Summary.ProductiveMinutes,
			OvertimeMinutes:   e.Summary.OvertimeMinutes,
			DeficitMinutes:    e.Summary.DeficitMinutes,
			Breaks:            len(e.Ledger.Breaks),
		}
		if e.Ledger.Day != nil {
			row.StartedAt = e.Ledger.Day.StartedAt
			row.EndedAt = e.Ledger.Day.EndedAt
		}
		for _, b := range e.Ledger.Breaks {
			switch b.Category {
			case model.BreakLunch:
				row.LunchBreaks++
			case model.BreakCoffee:
				row.CoffeeBreaks++
			default:
				row.GeneralBreaks++
			}
		}
		for _, a := range e.Ledger.Actions {
			if a.Revoked {
				row.RevokedActions++
				continue
			}
			row.Actions++
		}
		r.Rows = append(r.Rows, row)

		r.Totals.Days++
		r.Totals.WorkMinutes += row.WorkMinutes
		r.Totals.BreakMinutes += row.BreakMinutes
		r.Totals.ProductiveMinutes += row.ProductiveMinutes
		r.Totals.OvertimeMinutes += row.OvertimeMinutes
		r.Totals.DeficitMinutes += row.DeficitMinutes
	}
	r.Totals.BalanceMinutes = r.Totals.OvertimeMinutes - r.Totals.DeficitMinutes
	return r
}

var csvHeader = []string{
	"date", "status", "started_at", "ended_at",
	"work_minutes", "break_minutes", "productive_minutes", "overtime_minutes", "deficit_minutes",
	"breaks", "lunch_breaks", "coffee_breaks", "general_breaks", "actions", "revoked_actions",
}

// WriteCSV writes one row per day followed by a totals row.
func WriteCSV(w io.Writer, r Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range r.Rows {
		record := []string{
			row.Date,
			string(row.Status),
			csvTime(row.StartedAt),
			csvTime(row.EndedAt),
			strconv.Itoa(row.WorkMinutes),
			strconv.Itoa(row.BreakMinutes),
			strconv.Itoa(row.ProductiveMinutes),
			strconv.Itoa(row.OvertimeMinutes),
			strconv.Itoa(row.DeficitMinutes),
			strconv.Itoa(row.Breaks),
			strconv.Itoa(row.LunchBreaks),
			strconv.Itoa(row.CoffeeBreaks),
			strconv.Itoa(row.GeneralBreaks),
			strconv.Itoa(row.Actions),
			strconv.Itoa(row.RevokedActions),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row %s: %w", row.Date, err)
		}
	}
	totals := []string{
		"total", "", "", "",
		strconv.Itoa(r.Totals.WorkMinutes),
		strconv.Itoa(r.Totals.BreakMinutes),
		strconv.Itoa(r.Totals.ProductiveMinutes),
		strconv.Itoa(r.Totals.OvertimeMinutes),
		strconv.Itoa(r.Totals.DeficitMinutes),
		"", "", "", "", "", "",
	}
	if err := cw.Write(totals); err != nil {
		return fmt.Errorf("write csv totals: %w", err)
	}
	cw.Flush()
	return cw.Error()
}

func WriteJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// Write dispatches on format.
func Write(w io.Writer, format Format, r Report) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, r)
	case FormatJSON:
		return WriteJSON(w, r)
	}
	return fmt.Errorf("unsupported report format %q", format)
}

func csvTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
