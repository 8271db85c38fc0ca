package analyzer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/ccollicutt/mergelog/pkg/atom"
	"github.com/ccollicutt/mergelog/pkg/parser"
)

// Analyzer drives one pass: events in, Result out. The tracker and
// aggregator it creates are the only stateful stages; they run on the
// caller's goroutine, downstream of any parallel parsing.
type Analyzer struct {
	decay     float64
	window    int
	period    Period
	history   bool
	filter    *atom.Filter
	timeRange *TimeRange
	logger    *slog.Logger
}

// TimeRange bounds which sessions count: closed sessions by their
// completion time, unterminated ones by their start. Zero bounds are
// open ends. Events outside the range are still tracked, so pairing
// never breaks at the range edges.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

func (tr *TimeRange) contains(t time.Time) bool {
	if tr == nil {
		return true
	}
	if !tr.Start.IsZero() && t.Before(tr.Start) {
		return false
	}
	if !tr.End.IsZero() && t.After(tr.End) {
		return false
	}
	return true
}

// Option configures an analysis pass.
type Option func(*Analyzer)

// WithDecay sets the weight kept by older samples in the
// recency-weighted mean. Callers own the policy value; it must be in
// (0, 1).
func WithDecay(decay float64) Option {
	return func(a *Analyzer) { a.decay = decay }
}

// WithWindow sets the capacity of the recent-duration ring. Zero
// disables the window.
func WithWindow(n int) Option {
	return func(a *Analyzer) { a.window = n }
}

// WithGroup buckets totals by calendar period.
func WithGroup(p Period) Option {
	return func(a *Analyzer) { a.period = p }
}

// WithHistory retains every closed session for listing, not just the
// folded statistics.
func WithHistory(keep bool) Option {
	return func(a *Analyzer) { a.history = keep }
}

// WithFilter limits package sessions to atoms matching f. Sync
// sessions always pass.
func WithFilter(f *atom.Filter) Option {
	return func(a *Analyzer) { a.filter = f }
}

// WithTimeRange limits counted sessions to the given window.
func WithTimeRange(start, end time.Time) Option {
	return func(a *Analyzer) { a.timeRange = &TimeRange{Start: start, End: end} }
}

// WithLogger sets the debug logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) { a.logger = logger }
}

// New creates an analyzer with the given options.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		decay:  DefaultDecay,
		window: DefaultWindow,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze runs one pass over source with the given options.
func Analyze(ctx context.Context, source parser.EventSource, opts ...Option) (*Result, error) {
	return New(opts...).Analyze(ctx, source)
}

// Analyze consumes the event stream and returns the complete result:
// statistics, optional session history, unterminated sessions,
// anomalies, and warnings. Nothing in the stream is fatal; the only
// errors are I/O and cancellation.
func (a *Analyzer) Analyze(ctx context.Context, source parser.EventSource) (*Result, error) {
	tracker := NewTracker()
	agg := newAggregate(a.decay, a.window, a.period)

	result := &Result{}
	if a.history {
		result.History = make(map[string][]*Session)
	}

	var skews []Anomaly
	var prev time.Time

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		ev, err := source.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading events: %w", err)
		}

		// The filter names packages, so sync events pass through.
		if a.filter != nil && ev.Kind.Class() != parser.ClassSync && !a.filter.Match(ev.Atom) {
			continue
		}

		if !prev.IsZero() && ev.Time.Before(prev) {
			skew := Anomaly{
				Kind:   AnomalyClockSkew,
				Time:   ev.Time,
				Atom:   ev.Atom,
				Detail: fmt.Sprintf("timestamp steps back %s from the previous event", prev.Sub(ev.Time)),
				Source: ev.Source,
				Line:   ev.Line,
			}
			skews = append(skews, skew)
			a.logger.Debug("clock skew", "source", ev.Source, "line", ev.Line, "step", prev.Sub(ev.Time))
		}
		prev = ev.Time

		if finished := tracker.Observe(ev); finished != nil {
			a.record(result, agg, finished)
		}
	}

	// End of stream: remaining open sessions are unterminated.
	for _, s := range tracker.Finalize() {
		if a.timeRange.contains(s.Start) {
			result.Open = append(result.Open, s)
		}
		a.recordUnterminated(result, s)
	}

	agg.result(result)

	result.Anomalies = append(tracker.Anomalies(), skews...)
	sort.SliceStable(result.Anomalies, func(i, j int) bool {
		return result.Anomalies[i].Time.Before(result.Anomalies[j].Time)
	})

	result.Warnings = source.Warnings()
	result.Counts = source.Counts()

	a.logger.Debug("analysis complete",
		"lines", result.Counts.Lines,
		"events", result.Counts.Events,
		"anomalies", len(result.Anomalies),
		"unterminated", len(result.Unterminated))

	return result, nil
}

// record routes one finished session: closed sessions fold into the
// statistics (unless anomalous) and into history when requested;
// sessions unterminated by a duplicate-start repair join the
// unterminated list.
func (a *Analyzer) record(result *Result, agg *aggregate, s *Session) {
	switch s.Status {
	case StatusClosed:
		if !a.timeRange.contains(s.End) {
			return
		}
		if !s.Anomalous {
			agg.fold(s)
		}
		if a.history {
			result.Sessions = append(result.Sessions, s)
			if s.Class != parser.ClassSync {
				pkg := s.Atom.Package()
				result.History[pkg] = append(result.History[pkg], s)
			}
		}
	case StatusUnterminated:
		a.recordUnterminated(result, s)
	}
}

func (a *Analyzer) recordUnterminated(result *Result, s *Session) {
	if !a.timeRange.contains(s.Start) {
		return
	}
	result.Unterminated = append(result.Unterminated, s)
}
