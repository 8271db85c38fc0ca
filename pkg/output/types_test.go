package output

import (
	"testing"
	"time"

	"github.com/ccollicutt/mergelog/pkg/analyzer"
	"github.com/ccollicutt/mergelog/pkg/atom"
	"github.com/ccollicutt/mergelog/pkg/parser"
	"github.com/ccollicutt/mergelog/pkg/predict"
)

func mustAtom(t *testing.T, spec string) atom.Atom {
	t.Helper()
	a, err := atom.Parse(spec)
	if err != nil {
		t.Fatalf("Parse(%q) error = %v", spec, err)
	}
	return a
}

func foldedStats(pkg string, durations ...time.Duration) *analyzer.PackageStats {
	s := analyzer.NewPackageStats(pkg, analyzer.DefaultDecay, analyzer.DefaultWindow)
	for _, d := range durations {
		s.Fold(d)
	}
	return s
}

func TestNewReport(t *testing.T) {
	result := &analyzer.Result{
		MergeTotals:   analyzer.Totals{Count: 2, Total: 100 * time.Second},
		UnmergeTotals: analyzer.Totals{Count: 1, Total: 20 * time.Second},
		SyncTotals:    analyzer.Totals{Count: 1, Total: 60 * time.Second},
		Anomalies:     []analyzer.Anomaly{{Kind: analyzer.AnomalyOrphanEnd}},
		Warnings: []parser.ParseWarning{
			{Source: "emerge.log", Line: 3, Reason: "malformed counter"},
		},
		Counts: parser.Counts{Lines: 10, Events: 4, Skipped: 1, Warnings: 1},
	}

	report := NewReport(result, []string{"emerge.log"})

	if report.Summary.Lines != 10 || report.Summary.Events != 4 {
		t.Errorf("Summary = %+v, want lines 10 events 4", report.Summary)
	}
	if report.Summary.Merges != 2 || report.Summary.Unmerges != 1 || report.Summary.Syncs != 1 {
		t.Errorf("Summary classes = %+v", report.Summary)
	}
	if report.Summary.Anomalies != 1 {
		t.Errorf("Summary.Anomalies = %d, want 1", report.Summary.Anomalies)
	}
	if len(report.Warnings) != 1 || report.Warnings[0] != "emerge.log:3: malformed counter" {
		t.Errorf("Warnings = %v", report.Warnings)
	}
	if len(report.Files) != 1 || report.Files[0] != "emerge.log" {
		t.Errorf("Files = %v", report.Files)
	}
	if !report.HasAnomalies() {
		t.Error("HasAnomalies() = false, want true")
	}
}

func TestReport_AddMergesSorted(t *testing.T) {
	report := &Report{}
	report.AddMerges(map[string]*analyzer.PackageStats{
		"sys-apps/portage": foldedStats("sys-apps/portage", 40*time.Second),
		"app-misc/jq":      foldedStats("app-misc/jq", 10*time.Second, 20*time.Second),
	})

	if len(report.Merges) != 2 {
		t.Fatalf("len(Merges) = %d, want 2", len(report.Merges))
	}
	if report.Merges[0].Package != "app-misc/jq" || report.Merges[1].Package != "sys-apps/portage" {
		t.Errorf("order = %q, %q, want alphabetical", report.Merges[0].Package, report.Merges[1].Package)
	}

	jq := report.Merges[0]
	if jq.Count != 2 || jq.TotalSec != 30 || jq.MeanSec != 15 {
		t.Errorf("jq entry = %+v, want count 2 total 30 mean 15", jq)
	}
	if jq.WeightedSec == 0 {
		t.Error("WeightedSec = 0, want positive")
	}
}

func TestReport_AddSessions(t *testing.T) {
	start := time.Unix(1525522710, 0).UTC()
	end := start.Add(87 * time.Second)

	report := &Report{}
	report.AddSessions([]*analyzer.Session{
		{
			Class:  parser.ClassMerge,
			Atom:   mustAtom(t, "dev-libs/libffi-3.2.1"),
			Start:  start,
			End:    end,
			Status: analyzer.StatusClosed,
		},
	})
	report.AddUnterminated([]*analyzer.Session{
		{
			Class:  parser.ClassMerge,
			Atom:   mustAtom(t, "app-misc/jq-1.5"),
			Start:  start,
			Status: analyzer.StatusUnterminated,
		},
	})

	if len(report.Sessions) != 1 || len(report.Unterminated) != 1 {
		t.Fatalf("sections = %d, %d, want 1, 1", len(report.Sessions), len(report.Unterminated))
	}

	closed := report.Sessions[0]
	if closed.Kind != "merge" || closed.Package != "dev-libs/libffi-3.2.1" {
		t.Errorf("closed = %+v", closed)
	}
	if closed.End == nil || !closed.End.Equal(end) || closed.Seconds != 87 {
		t.Errorf("closed end = %v seconds = %v, want %v / 87", closed.End, closed.Seconds, end)
	}

	open := report.Unterminated[0]
	if open.End != nil || open.Seconds != 0 || open.Status != "unterminated" {
		t.Errorf("open = %+v, want no end", open)
	}
}

func TestReport_AddGroups(t *testing.T) {
	report := &Report{}
	report.AddGroups([]*analyzer.GroupTotals{
		{
			Key:    "2018-05",
			Merges: analyzer.Totals{Count: 3, Total: 90 * time.Second},
			Syncs:  analyzer.Totals{Count: 1, Total: 60 * time.Second},
		},
	})

	if len(report.Groups) != 1 {
		t.Fatalf("len(Groups) = %d, want 1", len(report.Groups))
	}
	g := report.Groups[0]
	if g.Period != "2018-05" {
		t.Errorf("Period = %q, want 2018-05", g.Period)
	}
	if g.Merges.Count != 3 || g.Merges.TotalSec != 90 || g.Merges.MeanSec != 30 {
		t.Errorf("Merges = %+v", g.Merges)
	}
	if g.Unmerges.Count != 0 {
		t.Errorf("Unmerges.Count = %d, want 0", g.Unmerges.Count)
	}
}

func TestReport_AddPredictions(t *testing.T) {
	report := &Report{}
	report.AddPredictions([]predict.Prediction{
		{
			Atom:      mustAtom(t, "dev-libs/libffi-3.2.1"),
			Known:     true,
			Basis:     3,
			Estimate:  90 * time.Second,
			Remaining: 90 * time.Second,
		},
		{
			Atom:       mustAtom(t, "app-misc/jq-1.5"),
			Known:      true,
			Basis:      1,
			Estimate:   120 * time.Second,
			InProgress: true,
			Elapsed:    40 * time.Second,
			Remaining:  80 * time.Second,
		},
		{
			Atom:       mustAtom(t, "dev-lang/rust-1.25.0"),
			InProgress: true,
			Elapsed:    10 * time.Second,
		},
	})

	if len(report.Predictions) != 3 {
		t.Fatalf("len(Predictions) = %d, want 3", len(report.Predictions))
	}

	first := report.Predictions[0]
	if first.Package != "dev-libs/libffi" || !first.Known || first.RemainingSec != 90 {
		t.Errorf("first = %+v", first)
	}

	running := report.Predictions[1]
	if !running.InProgress || running.ElapsedSec != 40 || running.RemainingSec != 80 {
		t.Errorf("running = %+v", running)
	}

	unknown := report.Predictions[2]
	if unknown.Known || unknown.EstimateSec != 0 {
		t.Errorf("unknown = %+v", unknown)
	}

	totals := report.PredictionTotals
	if totals == nil {
		t.Fatal("PredictionTotals = nil")
	}
	if totals.Count != 3 || totals.Unknown != 1 || totals.RemainingSec != 170 {
		t.Errorf("totals = %+v, want count 3 unknown 1 remaining 170", totals)
	}
}
