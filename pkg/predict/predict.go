// Package predict estimates merge durations from accumulated
// per-package statistics.
package predict

import (
	"fmt"
	"time"

	"github.com/ccollicutt/mergelog/pkg/analyzer"
	"github.com/ccollicutt/mergelog/pkg/atom"
	"github.com/ccollicutt/mergelog/pkg/parser"
)

// Mode selects how an estimate is derived from a package's history.
type Mode int

const (
	// ModeWeighted uses the recency-weighted mean. The default.
	ModeWeighted Mode = iota

	// ModeMean uses the simple mean of all samples.
	ModeMean

	// ModeRecent uses the mean of the recent window only.
	ModeRecent
)

// ParseMode maps the CLI spellings to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "weighted":
		return ModeWeighted, nil
	case "mean":
		return ModeMean, nil
	case "recent":
		return ModeRecent, nil
	default:
		return ModeWeighted, fmt.Errorf("unknown average %q (want weighted, mean, or recent)", s)
	}
}

// Request names one merge to predict. Started is the merge's start
// time when it is already running, zero for a planned merge.
type Request struct {
	Atom    atom.Atom
	Started time.Time
}

// Prediction is the estimate for one request. Known reports whether
// the package has any history; without it Estimate and Remaining are
// zero and the display layer shows them as unknown.
type Prediction struct {
	Atom atom.Atom

	// Known reports whether any history backs the estimate; Basis is
	// the number of samples behind it.
	Known bool
	Basis int

	// Estimate is the predicted full duration of the merge.
	Estimate time.Duration

	// InProgress marks a running merge. Elapsed is time spent so far
	// and Remaining the estimate net of it, floored at zero.
	InProgress bool
	Elapsed    time.Duration
	Remaining  time.Duration
}

// Option configures a prediction pass.
type Option func(*predictor)

// WithMode selects the estimate derivation.
func WithMode(m Mode) Option {
	return func(p *predictor) { p.mode = m }
}

// WithNow fixes the clock used for elapsed time.
func WithNow(now func() time.Time) Option {
	return func(p *predictor) { p.now = now }
}

type predictor struct {
	mode Mode
	now  func() time.Time
}

// Merges predicts each requested merge against the given statistics,
// in request order. Statistics are keyed by "category/name", so
// history from older versions informs newer ones.
func Merges(stats map[string]*analyzer.PackageStats, requests []Request, opts ...Option) []Prediction {
	p := predictor{mode: ModeWeighted, now: time.Now}
	for _, opt := range opts {
		opt(&p)
	}

	predictions := make([]Prediction, 0, len(requests))
	for _, req := range requests {
		predictions = append(predictions, p.one(stats, req))
	}
	return predictions
}

func (p predictor) one(stats map[string]*analyzer.PackageStats, req Request) Prediction {
	pred := Prediction{Atom: req.Atom}

	if s := stats[req.Atom.Package()]; s != nil && s.Count > 0 {
		pred.Known = true
		pred.Basis = s.Count
		switch p.mode {
		case ModeMean:
			pred.Estimate = s.Mean()
		case ModeRecent:
			pred.Estimate = s.RecentMean()
		default:
			pred.Estimate = s.Weighted()
		}
	}

	if req.Started.IsZero() {
		pred.Remaining = pred.Estimate
		return pred
	}

	pred.InProgress = true
	if elapsed := p.now().Sub(req.Started); elapsed > 0 {
		pred.Elapsed = elapsed
	}
	if pred.Known {
		pred.Remaining = pred.Estimate - pred.Elapsed
		if pred.Remaining < 0 {
			pred.Remaining = 0
		}
	}

	return pred
}

// FromSessions builds requests from open merge sessions, carrying
// their start times. Non-merge sessions are skipped.
func FromSessions(sessions []*analyzer.Session) []Request {
	var requests []Request
	for _, s := range sessions {
		if s.Class != parser.ClassMerge {
			continue
		}
		requests = append(requests, Request{Atom: s.Atom, Started: s.Start})
	}
	return requests
}

// FromAtoms builds requests for planned merges that have not started.
func FromAtoms(atoms []atom.Atom) []Request {
	requests := make([]Request, 0, len(atoms))
	for _, a := range atoms {
		requests = append(requests, Request{Atom: a})
	}
	return requests
}
