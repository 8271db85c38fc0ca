package parser

import (
	"context"
	"errors"
)

// EventSource provides a pull-style iterator over parsed events.
// Implementations must be safe for sequential access (not concurrent).
// The stream is restartable per invocation, not resumable across runs.
type EventSource interface {
	// Next returns the next event in log order.
	// Returns io.EOF when the stream is exhausted.
	Next(ctx context.Context) (*Event, error)

	// Counts reports line and event tallies for what has been
	// consumed so far.
	Counts() Counts

	// Warnings returns the parse warnings collected so far.
	Warnings() []ParseWarning

	// Close releases any resources held by the source.
	Close() error
}

// Option configures an event source.
type Option func(*options)

type options struct {
	jobs     int
	warnFunc func(ParseWarning)
}

// WithJobs sets the number of parallel scan/parse workers used when a
// single stream feeds the source. Values below 2 select the
// sequential path. Line order is preserved either way.
func WithJobs(n int) Option {
	return func(o *options) { o.jobs = n }
}

// WithWarningFunc registers fn to observe each parse warning as it is
// produced. Warnings are collected regardless.
func WithWarningFunc(fn func(ParseWarning)) Option {
	return func(o *options) { o.warnFunc = fn }
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewEventSource opens the given log files and returns an event
// source over them. Multiple files are merged into a single stream
// ordered by timestamp; a single file with jobs > 1 is scanned and
// parsed concurrently.
func NewEventSource(files []string, opts ...Option) (EventSource, error) {
	o := buildOptions(opts)

	switch len(files) {
	case 0:
		return nil, errors.New("no log files given")
	case 1:
		return fromLines(NewFileSource(files), o), nil
	default:
		// Per-file sources are parsed sequentially; ordering across
		// rotated files comes from the timestamp merge, which is the
		// bottleneck, not the parse.
		children := make([]EventSource, len(files))
		for i, f := range files {
			children[i] = newScanSource(NewFileSource([]string{f}), o)
		}
		return NewMergedSource(children...), nil
	}
}

// NewEventSourceFrom returns an event source over an arbitrary line
// source, for piped input and callers that own their I/O.
func NewEventSourceFrom(lines LineSource, opts ...Option) EventSource {
	return fromLines(lines, buildOptions(opts))
}

func fromLines(lines LineSource, o options) EventSource {
	if o.jobs > 1 {
		return newPipelineSource(lines, o)
	}
	return newScanSource(lines, o)
}

// ScanSource scans and parses lines sequentially.
type ScanSource struct {
	lines    LineSource
	opts     options
	counts   Counts
	warnings []ParseWarning
}

// NewScanSource creates a sequential event source over lines.
func NewScanSource(lines LineSource, opts ...Option) *ScanSource {
	return newScanSource(lines, buildOptions(opts))
}

func newScanSource(lines LineSource, o options) *ScanSource {
	return &ScanSource{lines: lines, opts: o}
}

// Next returns the next event in line order.
// Returns io.EOF when the underlying lines are exhausted.
func (s *ScanSource) Next(ctx context.Context) (*Event, error) {
	for {
		line, err := s.lines.Next(ctx)
		if err != nil {
			return nil, err
		}
		s.counts.Lines++

		tok, ok := ScanLine(*line)
		if !ok {
			s.counts.Skipped++
			continue
		}
		if tok.Kind == KindOther {
			s.counts.Other++
			continue
		}

		ev, warn := ParseEvent(tok)
		if warn != nil {
			s.counts.Warnings++
			s.warnings = append(s.warnings, *warn)
			if s.opts.warnFunc != nil {
				s.opts.warnFunc(*warn)
			}
			continue
		}

		s.counts.Events++
		return &ev, nil
	}
}

// Counts reports tallies for the lines consumed so far.
func (s *ScanSource) Counts() Counts {
	return s.counts
}

// Warnings returns the parse warnings collected so far.
func (s *ScanSource) Warnings() []ParseWarning {
	return s.warnings
}

// Close releases the underlying line source.
func (s *ScanSource) Close() error {
	return s.lines.Close()
}
