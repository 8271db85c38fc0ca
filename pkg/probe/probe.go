// Package probe inspects merge logs and summarizes their health.
package probe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/ccollicutt/mergelog/pkg/analyzer"
	"github.com/ccollicutt/mergelog/pkg/parser"
)

// FileReport holds the result of examining one log file.
type FileReport struct {
	// Path and Size identify the file on disk.
	Path string
	Size int64

	// Counts tallies lines and events as the parser saw them.
	Counts parser.Counts

	// Merges, Unmerges, and Syncs count completed sessions per class.
	Merges   int
	Unmerges int
	Syncs    int

	// First and Last are the timestamps of the first and last events.
	// Zero when the file has no events.
	First time.Time
	Last  time.Time

	// Warnings are lines whose marker was recognized but whose
	// payload could not be parsed.
	Warnings []parser.ParseWarning

	// Anomalies are the pairing and clock irregularities found.
	Anomalies []analyzer.Anomaly

	// Unterminated counts sessions left open at end of file.
	Unterminated int
}

// Span returns the time the file's events cover, zero when the file
// has no events.
func (r *FileReport) Span() time.Duration {
	if r.First.IsZero() || r.Last.IsZero() {
		return 0
	}
	return r.Last.Sub(r.First)
}

// Sessions returns the total number of completed sessions.
func (r *FileReport) Sessions() int {
	return r.Merges + r.Unmerges + r.Syncs
}

// Healthy reports whether the file parsed without warnings,
// anomalies, or unterminated sessions.
func (r *FileReport) Healthy() bool {
	return len(r.Warnings) == 0 && len(r.Anomalies) == 0 && r.Unterminated == 0
}

// Prober examines log files one at a time, so damage in one file
// does not color the report of another.
type Prober struct {
	logger *slog.Logger
}

// Option configures the Prober.
type Option func(*Prober)

// WithLogger sets the debug logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Prober) { p.logger = logger }
}

// New creates a Prober.
func New(opts ...Option) *Prober {
	p := &Prober{logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Examine inspects each file in turn and returns one report per file,
// in input order.
func (p *Prober) Examine(ctx context.Context, paths []string) ([]*FileReport, error) {
	reports := make([]*FileReport, 0, len(paths))
	for _, path := range paths {
		report, err := p.ExamineFile(ctx, path)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// ExamineFile reads one file end to end and reports what it found.
// Parse trouble lands in the report, not the error; only I/O failures
// and cancellation are fatal.
func (p *Prober) ExamineFile(ctx context.Context, path string) (*FileReport, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	src, err := parser.NewEventSource([]string{path})
	if err != nil {
		return nil, err
	}
	defer src.Close()

	report := &FileReport{
		Path: path,
		Size: info.Size(),
	}

	tracker := analyzer.NewTracker()
	var skews []analyzer.Anomaly
	var prev time.Time

	for {
		ev, err := src.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}

		if report.First.IsZero() {
			report.First = ev.Time
		}
		report.Last = ev.Time

		if !prev.IsZero() && ev.Time.Before(prev) {
			skews = append(skews, analyzer.Anomaly{
				Kind:   analyzer.AnomalyClockSkew,
				Time:   ev.Time,
				Atom:   ev.Atom,
				Detail: fmt.Sprintf("timestamp steps back %s from the previous event", prev.Sub(ev.Time)),
				Source: ev.Source,
				Line:   ev.Line,
			})
		}
		prev = ev.Time

		finished := tracker.Observe(ev)
		if finished == nil {
			continue
		}
		switch finished.Status {
		case analyzer.StatusClosed:
			switch finished.Class {
			case parser.ClassMerge:
				report.Merges++
			case parser.ClassUnmerge:
				report.Unmerges++
			case parser.ClassSync:
				report.Syncs++
			}
		case analyzer.StatusUnterminated:
			report.Unterminated++
		}
	}

	report.Unterminated += len(tracker.Finalize())
	report.Anomalies = append(tracker.Anomalies(), skews...)
	report.Warnings = src.Warnings()
	report.Counts = src.Counts()

	p.logger.Debug("probed file",
		"path", path,
		"lines", report.Counts.Lines,
		"events", report.Counts.Events,
		"healthy", report.Healthy())

	return report, nil
}
