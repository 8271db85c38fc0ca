package analyzer

import (
	"fmt"
	"sort"
	"time"

	"github.com/ccollicutt/mergelog/pkg/parser"
)

// DefaultDecay is the weight kept by older samples in the
// recency-weighted mean.
const DefaultDecay = 0.9

// DefaultWindow is the capacity of the recent-duration ring.
const DefaultWindow = 10

// PackageStats accumulates durations for one package (or one sync
// repository). Sessions fold in chronological completion order.
type PackageStats struct {
	// Pkg is the "category/name" key, or the repository label for
	// sync statistics.
	Pkg string

	// Count is the number of sessions folded.
	Count int

	// Total is their summed duration.
	Total time.Duration

	// ewma is the recency-weighted mean in float seconds. It is never
	// truncated between folds; only the accessors round.
	ewma  float64
	decay float64

	// recent holds the most recent durations, newest last, capped at
	// the configured window.
	recent []time.Duration
	window int
}

// NewPackageStats creates an empty accumulator for pkg.
func NewPackageStats(pkg string, decay float64, window int) *PackageStats {
	return &PackageStats{Pkg: pkg, decay: decay, window: window}
}

// Fold accumulates one session duration.
func (s *PackageStats) Fold(d time.Duration) {
	s.Count++
	s.Total += d

	sec := d.Seconds()
	if s.Count == 1 {
		s.ewma = sec
	} else {
		// Equivalent to ewma*decay + sec*(1-decay), but exact when
		// sec equals the current mean.
		s.ewma += (sec - s.ewma) * (1 - s.decay)
	}

	if s.window > 0 {
		if len(s.recent) == s.window {
			copy(s.recent, s.recent[1:])
			s.recent[len(s.recent)-1] = d
		} else {
			s.recent = append(s.recent, d)
		}
	}
}

// Mean returns the simple mean duration, or zero without samples.
func (s *PackageStats) Mean() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

// Weighted returns the recency-weighted mean duration.
func (s *PackageStats) Weighted() time.Duration {
	return time.Duration(s.ewma * float64(time.Second))
}

// RecentMean returns the mean of the sessions inside the recent
// window, or zero without samples.
func (s *PackageStats) RecentMean() time.Duration {
	if len(s.recent) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range s.recent {
		total += d
	}
	return total / time.Duration(len(s.recent))
}

// Recent returns the durations inside the recent window, newest last.
func (s *PackageStats) Recent() []time.Duration {
	return s.recent
}

// Period buckets sessions by the calendar period of their completion.
type Period int

const (
	PeriodNone Period = iota
	PeriodYear
	PeriodMonth
	PeriodWeek
	PeriodDay
)

// ParsePeriod maps the CLI spellings to a Period.
func ParsePeriod(s string) (Period, error) {
	switch s {
	case "", "none":
		return PeriodNone, nil
	case "y", "year":
		return PeriodYear, nil
	case "m", "month":
		return PeriodMonth, nil
	case "w", "week":
		return PeriodWeek, nil
	case "d", "day":
		return PeriodDay, nil
	default:
		return PeriodNone, fmt.Errorf("unknown group period %q (want y, m, w, or d)", s)
	}
}

// Key renders the period bucket label for t: "2018", "2018-05",
// "2018-w18", or "2018-05-05". Keys sort chronologically.
func (p Period) Key(t time.Time) string {
	switch p {
	case PeriodYear:
		return t.Format("2006")
	case PeriodMonth:
		return t.Format("2006-01")
	case PeriodWeek:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%d-w%02d", year, week)
	case PeriodDay:
		return t.Format("2006-01-02")
	default:
		return ""
	}
}

// aggregate folds closed sessions into per-package and per-class
// statistics incrementally, so one streaming pass suffices.
type aggregate struct {
	decay  float64
	window int
	period Period

	merges   map[string]*PackageStats
	unmerges map[string]*PackageStats
	syncs    map[string]*PackageStats

	mergeTotals   Totals
	unmergeTotals Totals
	syncTotals    Totals

	groups     map[string]*GroupTotals
	groupOrder []string
}

func newAggregate(decay float64, window int, period Period) *aggregate {
	return &aggregate{
		decay:    decay,
		window:   window,
		period:   period,
		merges:   make(map[string]*PackageStats),
		unmerges: make(map[string]*PackageStats),
		syncs:    make(map[string]*PackageStats),
		groups:   make(map[string]*GroupTotals),
	}
}

// fold accumulates one closed, non-anomalous session.
func (a *aggregate) fold(s *Session) {
	d := s.Duration()

	var stats map[string]*PackageStats
	var totals *Totals
	var key string

	switch s.Class {
	case parser.ClassMerge:
		stats, totals, key = a.merges, &a.mergeTotals, s.Atom.Package()
	case parser.ClassUnmerge:
		stats, totals, key = a.unmerges, &a.unmergeTotals, s.Atom.Package()
	case parser.ClassSync:
		stats, totals, key = a.syncs, &a.syncTotals, s.Label()
	default:
		return
	}

	ps, exists := stats[key]
	if !exists {
		ps = NewPackageStats(key, a.decay, a.window)
		stats[key] = ps
	}
	ps.Fold(d)

	totals.Count++
	totals.Total += d

	if a.period != PeriodNone {
		a.foldGroup(s, d)
	}
}

func (a *aggregate) foldGroup(s *Session, d time.Duration) {
	key := a.period.Key(s.End)
	g, exists := a.groups[key]
	if !exists {
		g = &GroupTotals{Key: key}
		a.groups[key] = g
		a.groupOrder = append(a.groupOrder, key)
	}

	var totals *Totals
	switch s.Class {
	case parser.ClassMerge:
		totals = &g.Merges
	case parser.ClassUnmerge:
		totals = &g.Unmerges
	case parser.ClassSync:
		totals = &g.Syncs
	}
	totals.Count++
	totals.Total += d
}

// result assembles the aggregate into r.
func (a *aggregate) result(r *Result) {
	r.MergeStats = a.merges
	r.UnmergeStats = a.unmerges
	r.SyncStats = a.syncs
	r.MergeTotals = a.mergeTotals
	r.UnmergeTotals = a.unmergeTotals
	r.SyncTotals = a.syncTotals

	// Bucket keys sort chronologically by construction, which also
	// holds when clock skew folded them out of order.
	sort.Strings(a.groupOrder)
	for _, key := range a.groupOrder {
		r.Groups = append(r.Groups, a.groups[key])
	}
}
