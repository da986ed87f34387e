package timecalc_test

import (
	"testing"
	"time"

	"worklog/backend/internal/timecalc"
)

func TestRoundSeconds(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want int64
	}{
		{0, 0},
		{400 * time.Millisecond, 0},
		{500 * time.Millisecond, 0},
		{1500 * time.Millisecond, 2},
		{2500 * time.Millisecond, 2},
		{2501 * time.Millisecond, 3},
		{59*time.Second + 600*time.Millisecond, 60},
	}
	for _, tt := range tests {
		if got := timecalc.RoundSeconds(tt.d); got != tt.want {
			t.Errorf("RoundSeconds(%v) = %d, want %d", tt.d, got, tt.want)
		}
	}
}

func TestSecondsToMinutes(t *testing.T) {
	tests := []struct {
		seconds int64
		want    int
	}{
		{0, 0},
		{29, 0},
		{30, 0},
		{31, 1},
		{90, 2},
		{150, 2},
		{27000, 450},
	}
	for _, tt := range tests {
		if got := timecalc.SecondsToMinutes(tt.seconds); got != tt.want {
			t.Errorf("SecondsToMinutes(%d) = %d, want %d", tt.seconds, got, tt.want)
		}
	}
}

func TestElapsedSecondsOpenIntervalRunsToNow(t *testing.T) {
	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	intervals := []timecalc.Interval{
		timecalc.Closed(base, base.Add(90*time.Minute)),
		timecalc.Open(base.Add(2 * time.Hour)),
	}

	now := base.Add(2*time.Hour + 15*time.Minute)
	if got := timecalc.ElapsedSeconds(intervals, now); got != int64(105*60) {
		t.Fatalf("ElapsedSeconds = %d, want %d", got, 105*60)
	}

	later := now.Add(10 * time.Minute)
	if got := timecalc.SecondsToMinutes(timecalc.ElapsedSeconds(intervals, later)); got != 115 {
		t.Fatalf("elapsed minutes after 10 more minutes = %d, want 115", got)
	}
}

func TestElapsedSecondsIgnoresInvertedInterval(t *testing.T) {
	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	intervals := []timecalc.Interval{timecalc.Closed(base, base.Add(-time.Minute))}
	if got := timecalc.ElapsedSeconds(intervals, base); got != 0 {
		t.Fatalf("ElapsedSeconds = %d, want 0", got)
	}
}

func TestComply(t *testing.T) {
	tests := []struct {
		name               string
		work, brk, norm    int
		productive, over   int
		deficit, remaining int
	}{
		{"scenario deficit", 450, 30, 450, 420, 0, 30, 30},
		{"exact norm", 480, 30, 450, 450, 0, 0, 0},
		{"overtime", 540, 30, 450, 510, 60, 0, 0},
		{"breaks exceed work", 10, 30, 450, 0, 0, 450, 450},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := timecalc.Comply(tt.work, tt.brk, tt.norm)
			if got.ProductiveMinutes != tt.productive || got.OvertimeMinutes != tt.over ||
				got.DeficitMinutes != tt.deficit || got.RemainingMinutes != tt.remaining {
				t.Fatalf("Comply(%d, %d, %d) = %+v", tt.work, tt.brk, tt.norm, got)
			}
			if got.OvertimeMinutes > 0 && got.DeficitMinutes > 0 {
				t.Fatal("overtime and deficit both positive")
			}
		})
	}
}

func TestFormatMinutes(t *testing.T) {
	tests := []struct {
		minutes int
		want    string
	}{
		{0, "0m"},
		{45, "45m"},
		{60, "1h 00m"},
		{450, "7h 30m"},
		{-30, "-30m"},
	}
	for _, tt := range tests {
		if got := timecalc.FormatMinutes(tt.minutes); got != tt.want {
			t.Errorf("FormatMinutes(%d) = %q, want %q", tt.minutes, got, tt.want)
		}
	}
}

func TestFormatDurationHHMMSS(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{0, "00:00:00"},
		{61, "00:01:01"},
		{3661, "01:01:01"},
		{-5, "00:00:00"},
	}
	for _, tt := range tests {
		if got := timecalc.FormatDurationHHMMSS(tt.seconds); got != tt.want {
			t.Errorf("FormatDurationHHMMSS(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}
