// Package analyzer pairs merge-log events into sessions and folds
// them into per-package duration statistics.
package analyzer

import (
	"fmt"
	"time"

	"github.com/ccollicutt/mergelog/pkg/atom"
	"github.com/ccollicutt/mergelog/pkg/parser"
)

// SessionStatus tracks a session through its lifecycle.
type SessionStatus string

const (
	// StatusOpen means the start marker was seen and the end is
	// awaited. Only the tracker holds open sessions.
	StatusOpen SessionStatus = "open"

	// StatusClosed means the matching end marker was seen.
	StatusClosed SessionStatus = "closed"

	// StatusUnterminated means the stream ended, or the key was
	// reused, while the session was still open.
	StatusUnterminated SessionStatus = "unterminated"
)

// Session is one merge, unmerge, or sync attempt, from its start
// marker to its end marker. A session is owned by the tracker while
// open and immutable once closed or unterminated.
type Session struct {
	// Class is the session type: merge, unmerge, or sync.
	Class parser.Class

	// Atom is the package identity. Zero for sync sessions.
	Atom atom.Atom

	// Counter is the batch position from the start marker, part of
	// the pairing key for concurrent merges.
	Counter parser.Counter

	// Repo is the repository label of a sync, when the log names one.
	Repo string

	// Start is the start marker's timestamp.
	Start time.Time

	// End is the end marker's timestamp. Zero unless Closed.
	End time.Time

	// Status is the terminal state: Closed or Unterminated.
	Status SessionStatus

	// Anomalous marks a closed session whose end precedes its start.
	// Recorded in history, excluded from statistics.
	Anomalous bool

	// Source and StartLine locate the start marker; EndLine the end
	// marker, when Closed.
	Source    string
	StartLine int
	EndLine   int
}

// Duration returns end minus start for a closed session, which is
// negative when the session is anomalous. Open and unterminated
// sessions have no duration.
func (s *Session) Duration() time.Duration {
	if s.Status != StatusClosed {
		return 0
	}
	return s.End.Sub(s.Start)
}

// Label returns the displayed identity: the versioned atom for
// package sessions, the repository (or "sync") for syncs.
func (s *Session) Label() string {
	if s.Class == parser.ClassSync {
		if s.Repo != "" {
			return s.Repo
		}
		return "sync"
	}
	return s.Atom.String()
}

// AnomalyKind categorizes pairing and clock irregularities.
type AnomalyKind string

const (
	// AnomalyDuplicateStart is a start event whose key is already
	// open. The stale session is repaired to Unterminated and a new
	// one opened.
	AnomalyDuplicateStart AnomalyKind = "duplicate_start"

	// AnomalyOrphanEnd is an end event with no matching open session,
	// typically a log truncated past its starts. The event is
	// discarded.
	AnomalyOrphanEnd AnomalyKind = "orphan_end"

	// AnomalyBackwardTime is a session closed before it started. The
	// session is kept, flagged, and excluded from statistics.
	AnomalyBackwardTime AnomalyKind = "backward_time"

	// AnomalyClockSkew is a timestamp regression between consecutive
	// events. Flagged; processing continues.
	AnomalyClockSkew AnomalyKind = "clock_skew"
)

// Anomaly records one irregularity. Anomalies are collected, never
// fatal: a malformed or truncated log still yields best-effort
// statistics plus the full anomaly list.
type Anomaly struct {
	// Kind categorizes the anomaly.
	Kind AnomalyKind

	// Time is the timestamp of the event that exposed the anomaly.
	Time time.Time

	// Atom is the package involved, when there is one.
	Atom atom.Atom

	// Detail is a human-readable summary.
	Detail string

	// Source and Line locate the exposing event.
	Source string
	Line   int
}

func (a Anomaly) String() string {
	return fmt.Sprintf("%s:%d: %s: %s", a.Source, a.Line, a.Kind, a.Detail)
}

// Totals summarizes one class of closed sessions.
type Totals struct {
	// Count is the number of non-anomalous closed sessions.
	Count int

	// Total is their summed duration.
	Total time.Duration
}

// Mean returns the average duration, or zero without samples.
func (t Totals) Mean() time.Duration {
	if t.Count == 0 {
		return 0
	}
	return t.Total / time.Duration(t.Count)
}

// GroupTotals buckets totals by a calendar period.
type GroupTotals struct {
	// Key is the period label, e.g. "2018-05".
	Key string

	Merges   Totals
	Unmerges Totals
	Syncs    Totals
}

// Result is the complete output of one analysis pass.
type Result struct {
	// MergeStats and UnmergeStats hold per-package statistics keyed
	// by "category/name". SyncStats is keyed by repository label.
	MergeStats   map[string]*PackageStats
	UnmergeStats map[string]*PackageStats
	SyncStats    map[string]*PackageStats

	// MergeTotals, UnmergeTotals, and SyncTotals summarize each class
	// across all packages.
	MergeTotals   Totals
	UnmergeTotals Totals
	SyncTotals    Totals

	// Groups buckets totals by calendar period when grouping was
	// requested, oldest first.
	Groups []*GroupTotals

	// Sessions lists closed sessions in completion order and History
	// indexes them by package. Both are populated only when session
	// history was requested.
	Sessions []*Session
	History  map[string][]*Session

	// Unterminated lists sessions whose end was never seen, in start
	// order, each exactly once.
	Unterminated []*Session

	// Open lists the sessions still open when the stream ended, a
	// subset of Unterminated. Sessions repaired away mid-stream by a
	// duplicate start are not in it; a merge open at end of log is
	// the best candidate for one running right now.
	Open []*Session

	// Anomalies and Warnings carry everything irregular that was
	// tolerated during the pass.
	Anomalies []Anomaly
	Warnings  []parser.ParseWarning

	// Counts tallies scanner and parser activity.
	Counts parser.Counts
}

// Found reports whether the pass produced anything displayable:
// statistics, sessions, or unterminated leftovers.
func (r *Result) Found() bool {
	return len(r.MergeStats) > 0 || len(r.UnmergeStats) > 0 ||
		len(r.SyncStats) > 0 || len(r.Sessions) > 0 || len(r.Unterminated) > 0
}
