package analyzer

import (
	"fmt"
	"sync"

	"github.com/ccollicutt/mergelog/pkg/parser"
)

// sessionKey uniquely identifies an open session. The class keeps
// merge, unmerge, and sync pairings apart; the counter disambiguates
// concurrent merges, including rebuilds of the same atom within one
// batch. Never the atom alone.
type sessionKey struct {
	class   parser.Class
	atom    string
	counter parser.Counter
}

func keyOf(ev *parser.Event) sessionKey {
	return sessionKey{
		class:   ev.Kind.Class(),
		atom:    ev.Atom.String(),
		counter: ev.Counter,
	}
}

// Tracker pairs start events with their end events and maintains the
// set of open sessions. It is the single owner of cross-event state:
// callers feed it events in log order from one goroutine at a time.
type Tracker struct {
	mu        sync.Mutex
	open      map[sessionKey]*Session
	order     []sessionKey // insertion order of open sessions
	anomalies []Anomaly
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		open: make(map[sessionKey]*Session),
	}
}

// Observe processes one event. When the event finishes a session,
// normally or by repairing a duplicate start, the finished session is
// returned; its Status tells which. Orphan ends and events that only
// open sessions return nil.
func (t *Tracker) Observe(ev *parser.Event) *Session {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch {
	case ev.Kind.IsStart():
		return t.observeStart(ev)
	case ev.Kind.IsEnd():
		return t.observeEnd(ev)
	default:
		return nil
	}
}

func (t *Tracker) observeStart(ev *parser.Event) *Session {
	key := keyOf(ev)

	// A reused key means the previous attempt never completed (a
	// crashed build restarted with the same batch position). Repair:
	// the stale session becomes Unterminated with no duration, and
	// the new one opens. Ignoring either session would skew counts.
	var stale *Session
	if prev, exists := t.open[key]; exists {
		prev.Status = StatusUnterminated
		t.removeKey(key)
		t.anomalies = append(t.anomalies, Anomaly{
			Kind:   AnomalyDuplicateStart,
			Time:   ev.Time,
			Atom:   ev.Atom,
			Detail: fmt.Sprintf("start of %s repeats an open session from line %d", sessionName(ev), prev.StartLine),
			Source: ev.Source,
			Line:   ev.Line,
		})
		stale = prev
	}

	t.open[key] = &Session{
		Class:     ev.Kind.Class(),
		Atom:      ev.Atom,
		Counter:   ev.Counter,
		Repo:      ev.Repo,
		Start:     ev.Time,
		Status:    StatusOpen,
		Source:    ev.Source,
		StartLine: ev.Line,
	}
	t.order = append(t.order, key)

	return stale
}

func (t *Tracker) observeEnd(ev *parser.Event) *Session {
	key := keyOf(ev)

	s, exists := t.open[key]
	if !exists {
		// End with no matching start: the log was truncated at the
		// front, or the start predates this run. No session.
		t.anomalies = append(t.anomalies, Anomaly{
			Kind:   AnomalyOrphanEnd,
			Time:   ev.Time,
			Atom:   ev.Atom,
			Detail: fmt.Sprintf("end of %s matches no open session", sessionName(ev)),
			Source: ev.Source,
			Line:   ev.Line,
		})
		return nil
	}

	t.removeKey(key)

	s.End = ev.Time
	s.EndLine = ev.Line
	s.Status = StatusClosed
	if ev.Repo != "" {
		s.Repo = ev.Repo
	}
	if s.End.Before(s.Start) {
		// Clock jumped backward between the markers. Keep the
		// session, flag it, and let the aggregator skip it.
		s.Anomalous = true
		t.anomalies = append(t.anomalies, Anomaly{
			Kind:   AnomalyBackwardTime,
			Time:   ev.Time,
			Atom:   ev.Atom,
			Detail: fmt.Sprintf("%s ends %s before it starts", sessionName(ev), s.Start.Sub(s.End)),
			Source: ev.Source,
			Line:   ev.Line,
		})
	}

	return s
}

// Finalize marks every remaining open session unterminated and
// returns them in start order. The tracker is empty afterwards.
func (t *Tracker) Finalize() []*Session {
	t.mu.Lock()
	defer t.mu.Unlock()

	leftovers := make([]*Session, 0, len(t.open))
	for _, key := range t.order {
		s, exists := t.open[key]
		if !exists {
			continue
		}
		s.Status = StatusUnterminated
		leftovers = append(leftovers, s)
	}

	t.open = make(map[sessionKey]*Session)
	t.order = nil

	return leftovers
}

// OpenSessions returns the currently open sessions in start order.
func (t *Tracker) OpenSessions() []*Session {
	t.mu.Lock()
	defer t.mu.Unlock()

	sessions := make([]*Session, 0, len(t.open))
	for _, key := range t.order {
		if s, exists := t.open[key]; exists {
			sessions = append(sessions, s)
		}
	}
	return sessions
}

// Anomalies returns the pairing anomalies recorded so far.
func (t *Tracker) Anomalies() []Anomaly {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.anomalies
}

// Reset clears internal state for reuse.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.open = make(map[sessionKey]*Session)
	t.order = nil
	t.anomalies = nil
}

// removeKey drops key from the map and the insertion-order list.
func (t *Tracker) removeKey(key sessionKey) {
	delete(t.open, key)
	for i, k := range t.order {
		if k == key {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// sessionName renders an event's identity for diagnostics.
func sessionName(ev *parser.Event) string {
	if ev.Kind.Class() == parser.ClassSync {
		if ev.Repo != "" {
			return "sync " + ev.Repo
		}
		return "sync"
	}
	if c := ev.Counter.String(); c != "" {
		return ev.Atom.String() + " " + c
	}
	return ev.Atom.String()
}
