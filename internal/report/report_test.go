package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"worklog/backend/internal/model"
)

func sampleEntries() []Entry {
	start := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 2, 16, 0, 0, 0, time.UTC)
	lunchEnd := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	thirty := 30
	return []Entry{
		{
			Ledger: model.Ledger{
				Date: "2026-03-02",
				Day:  &model.WorkDay{Date: "2026-03-02", Status: model.StatusDayEnded, StartedAt: &start, EndedAt: &end},
				Breaks: []model.BreakPeriod{
					{ID: "b1", Category: model.BreakLunch, StartedAt: start.Add(210 * time.Minute), EndedAt: &lunchEnd, DurationMinutes: &thirty},
				},
				Actions: []model.ActionRecord{
					{Sequence: 1, Kind: model.ActionStartDay},
					{Sequence: 2, Kind: model.ActionStop},
					{Sequence: 3, Kind: model.ActionContinue},
					{Sequence: 4, Kind: model.ActionEndDay, Revoked: true},
					{Sequence: 5, Kind: model.ActionEndDay},
				},
			},
			Summary: model.Summary{Status: model.StatusDayEnded, WorkMinutes: 450, BreakMinutes: 30, ProductiveMinutes: 420, DeficitMinutes: 30},
		},
		{
			Ledger:  model.Ledger{Date: "2026-03-03", Day: &model.WorkDay{Date: "2026-03-03", Status: model.StatusDayEnded}},
			Summary: model.Summary{Status: model.StatusDayEnded, WorkMinutes: 500, ProductiveMinutes: 500, OvertimeMinutes: 50},
		},
	}
}

func TestBuild(t *testing.T) {
	r := Build("2026-03-02", "2026-03-03", 450, sampleEntries(), time.Now())
	if len(r.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(r.Rows))
	}
	first := r.Rows[0]
	if first.LunchBreaks != 1 || first.Breaks != 1 || first.Actions != 4 || first.RevokedActions != 1 {
		t.Fatalf("unexpected first row: %+v", first)
	}
	if r.Totals.ProductiveMinutes != 920 || r.Totals.BalanceMinutes != 20 || r.Totals.Days != 2 {
		t.Fatalf("unexpected totals: %+v", r.Totals)
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	r := Build("2026-03-02", "2026-03-03", 450, sampleEntries(), time.Now())
	if err := Write(&buf, FormatCSV, r); err != nil {
		t.Fatal(err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back csv: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("expected header, 2 rows and totals, got %d records", len(records))
	}
	if records[1][0] != "2026-03-02" || records[1][2] != "2026-03-02T08:00:00Z" || records[1][6] != "420" {
		t.Fatalf("unexpected row: %v", records[1])
	}
	if records[3][0] != "total" || records[3][4] != "950" {
		t.Fatalf("unexpected totals row: %v", records[3])
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	r := Build("2026-03-02", "2026-03-03", 450, sampleEntries(), time.Now())
	if err := Write(&buf, FormatJSON, r); err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		Rows   []map[string]interface{} `json:"rows"`
		Totals map[string]interface{}   `json:"totals"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded.Rows) != 2 || decoded.Totals["balanceMinutes"] != float64(20) {
		t.Fatalf("unexpected json report: %s", buf.String())
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		raw     string
		want    Format
		wantErr bool
	}{
		{"", FormatJSON, false},
		{"CSV", FormatCSV, false},
		{"json", FormatJSON, false},
		{"pdf", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.raw)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.raw, got, err)
		}
	}
}
