// Package output renders analysis results as styled text or JSON.
package output

import (
	"sort"
	"time"

	"github.com/ccollicutt/mergelog/pkg/analyzer"
	"github.com/ccollicutt/mergelog/pkg/predict"
)

// Report is the renderable projection of an analysis run. Commands
// fill the sections they display; formatters render whatever is
// present and skip the rest.
type Report struct {
	GeneratedAt time.Time `json:"generated_at"`
	Files       []string  `json:"files,omitempty"`
	Summary     Summary   `json:"summary"`

	Sessions         []SessionEntry    `json:"sessions,omitempty"`
	Merges           []PackageEntry    `json:"merges,omitempty"`
	Unmerges         []PackageEntry    `json:"unmerges,omitempty"`
	Syncs            []PackageEntry    `json:"syncs,omitempty"`
	Totals           *TotalsSection    `json:"totals,omitempty"`
	Groups           []GroupEntry      `json:"groups,omitempty"`
	Predictions      []PredictionEntry `json:"predictions,omitempty"`
	PredictionTotals *PredictionTotals `json:"prediction_totals,omitempty"`
	Unterminated     []SessionEntry    `json:"unterminated,omitempty"`
	Anomalies        []AnomalyEntry    `json:"anomalies,omitempty"`
	Warnings         []string          `json:"warnings,omitempty"`
}

// Summary tallies the run regardless of which sections were requested.
type Summary struct {
	Lines     int `json:"lines"`
	Events    int `json:"events"`
	Skipped   int `json:"skipped"`
	Warnings  int `json:"warnings"`
	Merges    int `json:"merges"`
	Unmerges  int `json:"unmerges"`
	Syncs     int `json:"syncs"`
	Anomalies int `json:"anomalies"`
}

// SessionEntry is one merge, unmerge, or sync occurrence. End is nil
// for unterminated sessions.
type SessionEntry struct {
	Kind      string     `json:"kind"`
	Package   string     `json:"package"`
	Start     time.Time  `json:"start"`
	End       *time.Time `json:"end,omitempty"`
	Seconds   float64    `json:"seconds,omitempty"`
	Status    string     `json:"status"`
	Anomalous bool       `json:"anomalous,omitempty"`
}

// PackageEntry is the accumulated statistics for one package or
// repository.
type PackageEntry struct {
	Package     string  `json:"package"`
	Count       int     `json:"count"`
	TotalSec    float64 `json:"total_sec"`
	MeanSec     float64 `json:"mean_sec"`
	WeightedSec float64 `json:"weighted_sec"`
}

// TotalsEntry is the accumulated statistics for one session class.
type TotalsEntry struct {
	Count    int     `json:"count"`
	TotalSec float64 `json:"total_sec"`
	MeanSec  float64 `json:"mean_sec"`
}

// TotalsSection carries the per-class totals of the whole run.
type TotalsSection struct {
	Merges   TotalsEntry `json:"merges"`
	Unmerges TotalsEntry `json:"unmerges"`
	Syncs    TotalsEntry `json:"syncs"`
}

// GroupEntry is the per-class totals of one calendar bucket.
type GroupEntry struct {
	Period   string      `json:"period"`
	Merges   TotalsEntry `json:"merges"`
	Unmerges TotalsEntry `json:"unmerges"`
	Syncs    TotalsEntry `json:"syncs"`
}

// PredictionEntry is the estimate for one pending or running merge.
type PredictionEntry struct {
	Package      string  `json:"package"`
	Known        bool    `json:"known"`
	Samples      int     `json:"samples,omitempty"`
	EstimateSec  float64 `json:"estimate_sec,omitempty"`
	ElapsedSec   float64 `json:"elapsed_sec,omitempty"`
	RemainingSec float64 `json:"remaining_sec,omitempty"`
	InProgress   bool    `json:"in_progress,omitempty"`
}

// PredictionTotals sums the individual estimates.
type PredictionTotals struct {
	Count        int     `json:"count"`
	Unknown      int     `json:"unknown"`
	RemainingSec float64 `json:"remaining_sec"`
}

// AnomalyEntry is one log inconsistency.
type AnomalyEntry struct {
	Kind   string    `json:"kind"`
	Time   time.Time `json:"time"`
	Detail string    `json:"detail"`
	Source string    `json:"source,omitempty"`
	Line   int       `json:"line"`
}

// NewReport creates a report carrying the run summary and parse
// warnings. Sections are added through the Add methods.
func NewReport(result *analyzer.Result, files []string) *Report {
	r := &Report{
		GeneratedAt: time.Now().UTC(),
		Files:       files,
		Summary: Summary{
			Lines:     result.Counts.Lines,
			Events:    result.Counts.Events,
			Skipped:   result.Counts.Skipped,
			Warnings:  result.Counts.Warnings,
			Merges:    result.MergeTotals.Count,
			Unmerges:  result.UnmergeTotals.Count,
			Syncs:     result.SyncTotals.Count,
			Anomalies: len(result.Anomalies),
		},
	}
	for _, w := range result.Warnings {
		r.Warnings = append(r.Warnings, w.String())
	}
	return r
}

// HasAnomalies returns true if the run surfaced any log
// inconsistencies.
func (r *Report) HasAnomalies() bool {
	return r.Summary.Anomalies > 0
}

// AddSessions appends the individual session listing.
func (r *Report) AddSessions(sessions []*analyzer.Session) {
	for _, s := range sessions {
		r.Sessions = append(r.Sessions, sessionEntry(s))
	}
}

// AddUnterminated appends the sessions that never completed.
func (r *Report) AddUnterminated(sessions []*analyzer.Session) {
	for _, s := range sessions {
		r.Unterminated = append(r.Unterminated, sessionEntry(s))
	}
}

// AddMerges adds per-package merge statistics sorted by name.
func (r *Report) AddMerges(stats map[string]*analyzer.PackageStats) {
	r.Merges = packageEntries(stats)
}

// AddUnmerges adds per-package unmerge statistics sorted by name.
func (r *Report) AddUnmerges(stats map[string]*analyzer.PackageStats) {
	r.Unmerges = packageEntries(stats)
}

// AddSyncs adds per-repository sync statistics sorted by name.
func (r *Report) AddSyncs(stats map[string]*analyzer.PackageStats) {
	r.Syncs = packageEntries(stats)
}

// AddTotals adds the per-class totals of the run.
func (r *Report) AddTotals(result *analyzer.Result) {
	r.Totals = &TotalsSection{
		Merges:   totalsEntry(result.MergeTotals),
		Unmerges: totalsEntry(result.UnmergeTotals),
		Syncs:    totalsEntry(result.SyncTotals),
	}
}

// AddGroups adds the calendar buckets in chronological order.
func (r *Report) AddGroups(groups []*analyzer.GroupTotals) {
	for _, g := range groups {
		r.Groups = append(r.Groups, GroupEntry{
			Period:   g.Key,
			Merges:   totalsEntry(g.Merges),
			Unmerges: totalsEntry(g.Unmerges),
			Syncs:    totalsEntry(g.Syncs),
		})
	}
}

// AddAnomalies adds the log inconsistencies.
func (r *Report) AddAnomalies(anomalies []analyzer.Anomaly) {
	for _, a := range anomalies {
		r.Anomalies = append(r.Anomalies, AnomalyEntry{
			Kind:   string(a.Kind),
			Time:   a.Time,
			Detail: a.Detail,
			Source: a.Source,
			Line:   a.Line,
		})
	}
}

// AddPredictions adds merge estimates together with their totals.
func (r *Report) AddPredictions(preds []predict.Prediction) {
	totals := &PredictionTotals{Count: len(preds)}
	for _, p := range preds {
		e := PredictionEntry{
			Package:    p.Atom.Package(),
			Known:      p.Known,
			Samples:    p.Basis,
			InProgress: p.InProgress,
		}
		if p.Known {
			e.EstimateSec = p.Estimate.Seconds()
			e.RemainingSec = p.Remaining.Seconds()
		} else {
			totals.Unknown++
		}
		if p.InProgress {
			e.ElapsedSec = p.Elapsed.Seconds()
		}
		totals.RemainingSec += e.RemainingSec
		r.Predictions = append(r.Predictions, e)
	}
	r.PredictionTotals = totals
}

func sessionEntry(s *analyzer.Session) SessionEntry {
	e := SessionEntry{
		Kind:      s.Class.String(),
		Package:   s.Label(),
		Start:     s.Start,
		Status:    string(s.Status),
		Anomalous: s.Anomalous,
	}
	if s.Status == analyzer.StatusClosed {
		end := s.End
		e.End = &end
		e.Seconds = s.Duration().Seconds()
	}
	return e
}

func packageEntries(stats map[string]*analyzer.PackageStats) []PackageEntry {
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]PackageEntry, 0, len(names))
	for _, name := range names {
		s := stats[name]
		entries = append(entries, PackageEntry{
			Package:     name,
			Count:       s.Count,
			TotalSec:    s.Total.Seconds(),
			MeanSec:     s.Mean().Seconds(),
			WeightedSec: s.Weighted().Seconds(),
		})
	}
	return entries
}

func totalsEntry(t analyzer.Totals) TotalsEntry {
	return TotalsEntry{
		Count:    t.Count,
		TotalSec: t.Total.Seconds(),
		MeanSec:  t.Mean().Seconds(),
	}
}
