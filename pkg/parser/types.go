// Package parser turns raw emerge.log text into typed events.
//
// The pipeline is: a LineSource yields raw lines, ScanLine classifies
// each line into a timestamped Token, and ParseEvent extracts the
// package atom and pairing counter into an Event. EventSource wires
// the stages together behind a pull-style iterator.
package parser

import (
	"fmt"
	"time"

	"github.com/ccollicutt/mergelog/pkg/atom"
)

// Kind classifies a log line by its marker.
type Kind int

const (
	// KindOther is a line with a valid timestamp but no recognized marker.
	KindOther Kind = iota
	KindMergeStart
	KindMergeEnd
	KindUnmergeStart
	KindUnmergeEnd
	KindSyncStart
	KindSyncEnd
)

// String returns a short lowercase name for the kind.
func (k Kind) String() string {
	switch k {
	case KindMergeStart:
		return "merge-start"
	case KindMergeEnd:
		return "merge-end"
	case KindUnmergeStart:
		return "unmerge-start"
	case KindUnmergeEnd:
		return "unmerge-end"
	case KindSyncStart:
		return "sync-start"
	case KindSyncEnd:
		return "sync-end"
	default:
		return "other"
	}
}

// Class groups the start and end kinds of one session type, and is
// part of the pairing key: a merge start can only be closed by a
// merge end, never by an unmerge or sync marker.
type Class int

const (
	ClassNone Class = iota
	ClassMerge
	ClassUnmerge
	ClassSync
)

// String returns a short lowercase name for the class.
func (c Class) String() string {
	switch c {
	case ClassMerge:
		return "merge"
	case ClassUnmerge:
		return "unmerge"
	case ClassSync:
		return "sync"
	default:
		return "none"
	}
}

// Class returns the session class the kind belongs to.
func (k Kind) Class() Class {
	switch k {
	case KindMergeStart, KindMergeEnd:
		return ClassMerge
	case KindUnmergeStart, KindUnmergeEnd:
		return ClassUnmerge
	case KindSyncStart, KindSyncEnd:
		return ClassSync
	default:
		return ClassNone
	}
}

// IsStart reports whether the kind opens a session.
func (k Kind) IsStart() bool {
	return k == KindMergeStart || k == KindUnmergeStart || k == KindSyncStart
}

// IsEnd reports whether the kind closes a session.
func (k Kind) IsEnd() bool {
	return k == KindMergeEnd || k == KindUnmergeEnd || k == KindSyncEnd
}

// LogLine is a raw log line before scanning.
type LogLine struct {
	// Text is the raw line content.
	Text string

	// Source is the file path this line came from.
	Source string

	// Line is the 1-based line number in the source file.
	Line int
}

// Token is a scanned log line: the epoch timestamp plus the marker
// kind, before package identity is extracted.
type Token struct {
	// Time is the line's timestamp. Fractional seconds, when present
	// in the log, are preserved.
	Time time.Time

	// Kind classifies the marker text.
	Kind Kind

	// Rest is the line text after the timestamp delimiter, with
	// surrounding whitespace trimmed.
	Rest string

	// Source is the file path this line came from.
	Source string

	// Line is the 1-based line number in the source file.
	Line int
}

// Counter is the "(N of M)" batch position carried by merge markers
// when several packages are queued in one emerge invocation. The zero
// value means the marker carried no counter.
type Counter struct {
	N  int
	Of int
}

// IsZero reports whether the marker carried no counter.
func (c Counter) IsZero() bool {
	return c == Counter{}
}

// String formats the counter the way the log prints it, or "" for the
// zero value.
func (c Counter) String() string {
	if c.IsZero() {
		return ""
	}
	return fmt.Sprintf("(%d of %d)", c.N, c.Of)
}

// Event is a fully parsed log event. Immutable once produced.
type Event struct {
	// Time is the event timestamp.
	Time time.Time

	// Kind is the marker kind. Never KindOther.
	Kind Kind

	// Atom is the package identity. Zero for sync events.
	Atom atom.Atom

	// Counter is the batch position used to pair a merge start with
	// its completion. Zero for unmerge and sync events.
	Counter Counter

	// Repo is the repository label on sync completions ("gentoo" in
	// "=== Sync completed for gentoo"). Empty otherwise.
	Repo string

	// Source and Line locate the event in its file for diagnostics.
	Source string
	Line   int
}

// ParseWarning records a line whose marker was recognized but whose
// payload could not be parsed. The line is dropped from the event
// stream; processing continues.
type ParseWarning struct {
	Source string
	Line   int
	Reason string
}

func (w ParseWarning) String() string {
	return fmt.Sprintf("%s:%d: %s", w.Source, w.Line, w.Reason)
}

// Counts tallies scanner and parser activity over one run.
type Counts struct {
	// Lines is the total number of lines read.
	Lines int

	// Skipped is the number of lines without a leading epoch
	// timestamp and delimiter.
	Skipped int

	// Other is the number of timestamped lines with no recognized
	// marker.
	Other int

	// Events is the number of tokens parsed into events.
	Events int

	// Warnings is the number of recognized markers with malformed
	// payloads.
	Warnings int
}

// Add accumulates another tally into c.
func (c *Counts) Add(o Counts) {
	c.Lines += o.Lines
	c.Skipped += o.Skipped
	c.Other += o.Other
	c.Events += o.Events
	c.Warnings += o.Warnings
}
