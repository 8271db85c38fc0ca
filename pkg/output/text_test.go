package output

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"
)

func plainOptions() FormatOptions {
	return FormatOptions{Date: DateYMDHMS, Location: time.UTC}
}

func render(t *testing.T, opts FormatOptions, report *Report) string {
	t.Helper()
	f := NewTextFormatter(opts)
	var buf bytes.Buffer
	if err := f.Format(context.Background(), report, &buf); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	return buf.String()
}

func TestNewTextFormatter(t *testing.T) {
	f := NewTextFormatter(FormatOptions{})
	if f == nil {
		t.Fatal("NewTextFormatter() returned nil")
	}
	if f.Name() != "text" {
		t.Errorf("Name() = %q, want %q", f.Name(), "text")
	}
}

func TestTextFormatter_Sessions(t *testing.T) {
	start := time.Date(2018, 5, 5, 13, 0, 0, 0, time.UTC)
	end := start.Add(87 * time.Second)
	syncEnd := start.Add(40 * time.Second)

	report := &Report{
		Sessions: []SessionEntry{
			{Kind: "merge", Package: "dev-libs/libffi-3.2.1", Start: start, End: &end, Seconds: 87, Status: "closed"},
			{Kind: "unmerge", Package: "sys-apps/portage-2.3.24", Start: start, End: &end, Seconds: 87, Status: "closed"},
			{Kind: "sync", Package: "gentoo", Start: start, End: &syncEnd, Seconds: 40, Status: "closed"},
		},
	}

	out := render(t, plainOptions(), report)

	if !strings.Contains(out, "2018-05-05 13:01:27") {
		t.Errorf("output missing completion time:\n%s", out)
	}
	if !strings.Contains(out, "1:27") {
		t.Errorf("output missing duration:\n%s", out)
	}
	if !strings.Contains(out, ">>> dev-libs/libffi-3.2.1") {
		t.Errorf("output missing merge label:\n%s", out)
	}
	if !strings.Contains(out, "<<< sys-apps/portage-2.3.24") {
		t.Errorf("output missing unmerge label:\n%s", out)
	}
	if !strings.Contains(out, "sync gentoo") {
		t.Errorf("output missing sync label:\n%s", out)
	}
}

func TestTextFormatter_Unterminated(t *testing.T) {
	start := time.Date(2018, 5, 5, 13, 0, 0, 0, time.UTC)

	report := &Report{
		Unterminated: []SessionEntry{
			{Kind: "merge", Package: "dev-lang/rust-1.25.0", Start: start, Status: "unterminated"},
		},
	}

	out := render(t, plainOptions(), report)

	if !strings.Contains(out, "Unterminated") {
		t.Errorf("output missing section title:\n%s", out)
	}
	if !strings.Contains(out, "2018-05-05 13:00:00") {
		t.Errorf("output missing start time:\n%s", out)
	}
	if !strings.Contains(out, "?") {
		t.Errorf("output missing unknown duration:\n%s", out)
	}
}

func TestTextFormatter_Stats(t *testing.T) {
	report := &Report{
		Merges: []PackageEntry{
			{Package: "app-misc/jq", Count: 2, TotalSec: 290, MeanSec: 145, WeightedSec: 145},
		},
		Totals: &TotalsSection{
			Merges: TotalsEntry{Count: 2, TotalSec: 290, MeanSec: 145},
		},
	}

	out := render(t, plainOptions(), report)

	for _, want := range []string{"Merges", "app-misc/jq", "4:50", "2:25", "Totals", "merges"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	// Two sections are separated by a blank line.
	if !strings.Contains(out, "\n\n") {
		t.Errorf("output missing section separator:\n%s", out)
	}
}

func TestTextFormatter_Groups(t *testing.T) {
	report := &Report{
		Groups: []GroupEntry{
			{
				Period: "2018-05",
				Merges: TotalsEntry{Count: 3, TotalSec: 270, MeanSec: 90},
				Syncs:  TotalsEntry{Count: 1, TotalSec: 60, MeanSec: 60},
			},
		},
	}

	out := render(t, plainOptions(), report)

	for _, want := range []string{"Groups", "2018-05", "4:30", "1:30", "1:00"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestTextFormatter_Predictions(t *testing.T) {
	report := &Report{
		Predictions: []PredictionEntry{
			{Package: "dev-libs/libffi", Known: true, Samples: 3, RemainingSec: 90},
			{Package: "dev-lang/rust", Known: false},
		},
		PredictionTotals: &PredictionTotals{Count: 2, Unknown: 1, RemainingSec: 90},
	}

	out := render(t, plainOptions(), report)

	if !strings.Contains(out, "dev-libs/libffi") {
		t.Errorf("output missing package:\n%s", out)
	}
	if !strings.Contains(out, "1:30") {
		t.Errorf("output missing estimate:\n%s", out)
	}
	if !strings.Contains(out, "?") {
		t.Errorf("output missing unknown marker:\n%s", out)
	}
	if !strings.Contains(out, "Estimate for 2 merges (1 unknown): 1:30") {
		t.Errorf("output missing totals line:\n%s", out)
	}
}

func TestTextFormatter_PredictionElapsed(t *testing.T) {
	report := &Report{
		Predictions: []PredictionEntry{
			{Package: "app-misc/jq", Known: true, InProgress: true, ElapsedSec: 40, RemainingSec: 80},
		},
		PredictionTotals: &PredictionTotals{Count: 1, RemainingSec: 80},
	}

	out := render(t, plainOptions(), report)

	if !strings.Contains(out, "40 elapsed") {
		t.Errorf("output missing elapsed note:\n%s", out)
	}
	if !strings.Contains(out, "1:20") {
		t.Errorf("output missing remaining time:\n%s", out)
	}
}

func TestTextFormatter_Anomalies(t *testing.T) {
	ts := time.Date(2018, 5, 5, 13, 0, 0, 0, time.UTC)

	report := &Report{
		Anomalies: []AnomalyEntry{
			{
				Kind:   "orphan_end",
				Time:   ts,
				Detail: "end of app-misc/jq-1.5 matches no open session",
				Source: "emerge.log",
				Line:   7,
			},
		},
	}

	out := render(t, plainOptions(), report)

	if !strings.Contains(out, "Anomalies") {
		t.Errorf("output missing section title:\n%s", out)
	}
	if !strings.Contains(out, "orphan_end: end of app-misc/jq-1.5 matches no open session (emerge.log:7)") {
		t.Errorf("output missing anomaly line:\n%s", out)
	}
}

func TestTextFormatter_Warnings(t *testing.T) {
	report := &Report{
		Warnings: []string{"emerge.log:3: malformed counter"},
	}

	out := render(t, plainOptions(), report)

	if !strings.Contains(out, "Warnings") {
		t.Errorf("output missing section title:\n%s", out)
	}
	if !strings.Contains(out, "emerge.log:3: malformed counter") {
		t.Errorf("output missing warning line:\n%s", out)
	}
}

func TestTextFormatter_Quiet(t *testing.T) {
	opts := plainOptions()
	opts.Quiet = true

	report := &Report{
		Summary: Summary{Lines: 100, Events: 10, Merges: 4, Unmerges: 1, Syncs: 2},
		Merges: []PackageEntry{
			{Package: "app-misc/jq", Count: 4, TotalSec: 100, MeanSec: 25, WeightedSec: 25},
		},
	}

	out := render(t, opts, report)

	want := "100 lines, 10 events, 4 merges, 1 unmerges, 2 syncs, 0 anomalies\n"
	if out != want {
		t.Errorf("quiet output = %q, want %q", out, want)
	}
}

func TestTextFormatter_DurationSeconds(t *testing.T) {
	opts := plainOptions()
	opts.Duration = DurationSecs

	start := time.Date(2018, 5, 5, 13, 0, 0, 0, time.UTC)
	end := start.Add(87 * time.Second)

	report := &Report{
		Sessions: []SessionEntry{
			{Kind: "merge", Package: "dev-libs/libffi-3.2.1", Start: start, End: &end, Seconds: 87, Status: "closed"},
		},
	}

	out := render(t, opts, report)

	if !strings.Contains(out, "87") {
		t.Errorf("output missing raw seconds:\n%s", out)
	}
	if strings.Contains(out, "1:27") {
		t.Errorf("output has hms duration despite seconds style:\n%s", out)
	}
}

func TestTextFormatter_Styled(t *testing.T) {
	opts := plainOptions()
	opts.Styles = NewStyles(io.Discard, ColorAlways)

	start := time.Date(2018, 5, 5, 13, 0, 0, 0, time.UTC)
	end := start.Add(87 * time.Second)

	report := &Report{
		Sessions: []SessionEntry{
			{Kind: "merge", Package: "dev-libs/libffi-3.2.1", Start: start, End: &end, Seconds: 87, Status: "closed"},
		},
	}

	out := render(t, opts, report)

	if !strings.Contains(out, "\x1b[") {
		t.Errorf("output missing ANSI escapes:\n%q", out)
	}
	if strings.Contains(out, ">>> ") {
		t.Errorf("output has plain prefix despite styling:\n%q", out)
	}
}

func TestNewFormatter(t *testing.T) {
	cases := []struct {
		name     string
		wantName string
		wantErr  bool
	}{
		{"", "text", false},
		{"text", "text", false},
		{"json", "json", false},
		{"yaml", "", true},
	}

	for _, tc := range cases {
		f, err := NewFormatter(tc.name, FormatOptions{})
		if tc.wantErr {
			if err == nil {
				t.Errorf("NewFormatter(%q) expected error", tc.name)
			}
			continue
		}
		if err != nil {
			t.Errorf("NewFormatter(%q) error = %v", tc.name, err)
			continue
		}
		if f.Name() != tc.wantName {
			t.Errorf("NewFormatter(%q).Name() = %q, want %q", tc.name, f.Name(), tc.wantName)
		}
	}
}
