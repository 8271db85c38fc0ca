package parser

import (
	"context"
	"io"
	"sync"
)

// pipeDepth bounds the in-flight lines per stage. Together with the
// worker count it also bounds the collector's reorder buffer.
const pipeDepth = 64

// PipelineSource scans and parses lines on parallel workers while
// preserving original line order. One goroutine reads lines and
// assigns sequence numbers, the workers run the pure scan/parse
// stages, and a collector reassembles results by sequence number
// before they reach Next. Every handoff is a bounded channel, so a
// slow consumer throttles the reader instead of buffering the whole
// log in memory.
type PipelineSource struct {
	lines LineSource
	opts  options
	jobs  int

	start  sync.Once
	cancel context.CancelFunc
	out    chan pipeItem
	wg     sync.WaitGroup

	mu       sync.Mutex
	counts   Counts
	warnings []ParseWarning

	closeOnce sync.Once
	closeErr  error
}

// NewPipelineSource creates a parallel event source over lines.
// Worker count comes from WithJobs; values below 2 still run two
// workers, as callers wanting sequential parsing use ScanSource.
func NewPipelineSource(lines LineSource, opts ...Option) *PipelineSource {
	return newPipelineSource(lines, buildOptions(opts))
}

func newPipelineSource(lines LineSource, o options) *PipelineSource {
	jobs := o.jobs
	if jobs < 2 {
		jobs = 2
	}
	return &PipelineSource{
		lines: lines,
		opts:  o,
		jobs:  jobs,
		out:   make(chan pipeItem, pipeDepth),
	}
}

type pipeJob struct {
	seq  uint64
	line LogLine
}

type resultKind int

const (
	resultEvent resultKind = iota
	resultSkip
	resultOther
	resultWarning
	resultErr
)

type pipeResult struct {
	seq  uint64
	kind resultKind
	ev   *Event
	warn *ParseWarning
	err  error
}

type pipeItem struct {
	ev  *Event
	err error
}

// Next returns the next event in original line order.
// Returns io.EOF when the stream is exhausted.
func (p *PipelineSource) Next(ctx context.Context) (*Event, error) {
	p.start.Do(p.run)

	// Check for context cancellation before reading buffered items.
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case item, ok := <-p.out:
		if !ok {
			return nil, io.EOF
		}
		if item.err != nil {
			return nil, item.err
		}
		return item.ev, nil
	}
}

// Counts reports tallies for the lines collected so far.
func (p *PipelineSource) Counts() Counts {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counts
}

// Warnings returns a snapshot of the parse warnings collected so far,
// in line order.
func (p *PipelineSource) Warnings() []ParseWarning {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ParseWarning, len(p.warnings))
	copy(out, p.warnings)
	return out
}

// Close stops the pipeline, waits for its goroutines, and releases
// the line source.
func (p *PipelineSource) Close() error {
	p.closeOnce.Do(func() {
		if p.cancel != nil {
			p.cancel()
			p.wg.Wait()
		}
		p.closeErr = p.lines.Close()
	})
	return p.closeErr
}

// run starts the reader, workers, and collector.
func (p *PipelineSource) run() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	jobsCh := make(chan pipeJob, pipeDepth)
	resultsCh := make(chan pipeResult, pipeDepth)

	// Reader: assigns sequence numbers in line order. A read error is
	// injected into the result stream with the next sequence number so
	// it surfaces after every line that preceded it.
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer close(jobsCh)
		var seq uint64
		for {
			line, err := p.lines.Next(ctx)
			if err != nil {
				if err != io.EOF {
					select {
					case resultsCh <- pipeResult{seq: seq, kind: resultErr, err: err}:
					case <-ctx.Done():
					}
				}
				return
			}
			select {
			case jobsCh <- pipeJob{seq: seq, line: *line}:
				seq++
			case <-ctx.Done():
				return
			}
		}
	}()

	// Workers: pure scan and parse, no shared state.
	var workers sync.WaitGroup
	for i := 0; i < p.jobs; i++ {
		p.wg.Add(1)
		workers.Add(1)
		go func() {
			defer p.wg.Done()
			defer workers.Done()
			for job := range jobsCh {
				select {
				case resultsCh <- parseJob(job):
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	// Closer: the reader only sends to resultsCh before closing
	// jobsCh, so once the workers are done nothing else can send.
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		workers.Wait()
		close(resultsCh)
	}()

	// Collector: restores original line order. The reorder buffer is
	// bounded by the number of in-flight results.
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer close(p.out)

		pending := make(map[uint64]pipeResult)
		var next uint64
		for r := range resultsCh {
			pending[r.seq] = r
			for {
				cur, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				next++
				if !p.deliver(ctx, cur) {
					cancel()
					for range resultsCh {
						// Drain so blocked workers can exit.
					}
					return
				}
			}
		}
	}()
}

// parseJob runs the pure pipeline stages on one line.
func parseJob(job pipeJob) pipeResult {
	tok, ok := ScanLine(job.line)
	if !ok {
		return pipeResult{seq: job.seq, kind: resultSkip}
	}
	if tok.Kind == KindOther {
		return pipeResult{seq: job.seq, kind: resultOther}
	}
	ev, warn := ParseEvent(tok)
	if warn != nil {
		return pipeResult{seq: job.seq, kind: resultWarning, warn: warn}
	}
	return pipeResult{seq: job.seq, kind: resultEvent, ev: &ev}
}

// deliver counts one in-order result and forwards events to the
// output channel. Returns false when the pipeline should stop.
func (p *PipelineSource) deliver(ctx context.Context, r pipeResult) bool {
	if r.kind != resultErr {
		p.mu.Lock()
		p.counts.Lines++
		switch r.kind {
		case resultSkip:
			p.counts.Skipped++
		case resultOther:
			p.counts.Other++
		case resultWarning:
			p.counts.Warnings++
			p.warnings = append(p.warnings, *r.warn)
		case resultEvent:
			p.counts.Events++
		}
		p.mu.Unlock()

		if r.kind == resultWarning && p.opts.warnFunc != nil {
			p.opts.warnFunc(*r.warn)
		}
		if r.kind != resultEvent {
			return true
		}
	}

	item := pipeItem{ev: r.ev, err: r.err}
	select {
	case p.out <- item:
		return r.kind != resultErr
	case <-ctx.Done():
		return false
	}
}
