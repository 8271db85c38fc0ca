package parser

import (
	"bufio"
	"compress/bzip2"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// LineSource provides an iterator over raw log lines.
// Implementations must be safe for sequential access (not concurrent).
type LineSource interface {
	// Next returns the next line. Returns io.EOF when no more lines
	// are available.
	Next(ctx context.Context) (*LogLine, error)

	// Close releases any resources held by the source.
	Close() error
}

// FileSource reads lines from one or more log files in order.
// Rotated logs compressed with gzip, zstd, lz4 or bzip2 are
// decompressed transparently based on the file extension.
type FileSource struct {
	files []string

	file    *os.File
	decomp  io.Closer
	scanner *bufio.Scanner
	source  string
	line    int
	index   int
}

// NewFileSource creates a LineSource that reads the given files in the
// order given.
func NewFileSource(files []string) *FileSource {
	return &FileSource{files: files, index: -1}
}

// Next returns the next raw line across all files.
// Returns io.EOF when all files have been exhausted.
func (s *FileSource) Next(ctx context.Context) (*LogLine, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if s.scanner == nil {
			if err := s.openNextFile(); err != nil {
				return nil, err
			}
		}

		if s.scanner.Scan() {
			s.line++
			return &LogLine{
				Text:   s.scanner.Text(),
				Source: s.source,
				Line:   s.line,
			}, nil
		}

		if err := s.scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading %s: %w", s.source, err)
		}

		// Current file exhausted, try next.
		if err := s.closeCurrent(); err != nil {
			return nil, err
		}
	}
}

// Close releases resources.
func (s *FileSource) Close() error {
	return s.closeCurrent()
}

func (s *FileSource) openNextFile() error {
	s.index++
	if s.index >= len(s.files) {
		return io.EOF
	}

	path := s.files[s.index]
	f, err := os.Open(path) // #nosec G304 -- user-provided paths are expected
	if err != nil {
		return fmt.Errorf("opening log file %s: %w", path, err)
	}

	r, closer, err := decompress(f, path)
	if err != nil {
		f.Close()
		return fmt.Errorf("opening log file %s: %w", path, err)
	}

	s.file = f
	s.decomp = closer
	s.scanner = bufio.NewScanner(r)
	s.scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024) // 1MB max line size
	s.source = path
	s.line = 0

	return nil
}

func (s *FileSource) closeCurrent() error {
	var firstErr error
	if s.decomp != nil {
		if err := s.decomp.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.decomp = nil
	}
	if s.file != nil {
		if err := s.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.file = nil
	}
	s.scanner = nil
	return firstErr
}

// decompress wraps f according to the path extension. The returned
// closer, when non-nil, must be closed before the file itself.
func decompress(f *os.File, path string) (io.Reader, io.Closer, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, nil, err
		}
		return zr, zr, nil
	case ".zst":
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, nil, err
		}
		rc := zr.IOReadCloser()
		return rc, rc, nil
	case ".lz4":
		return lz4.NewReader(f), nil, nil
	case ".bz2":
		return bzip2.NewReader(f), nil, nil
	default:
		return f, nil, nil
	}
}

// ReaderSource reads lines from an io.Reader, for piped input and
// tests. The source label defaults to "-".
type ReaderSource struct {
	scanner *bufio.Scanner
	source  string
	line    int
}

// NewReaderSource creates a LineSource over r. source labels lines
// for diagnostics; empty means "-".
func NewReaderSource(r io.Reader, source string) *ReaderSource {
	if source == "" {
		source = "-"
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &ReaderSource{scanner: sc, source: source}
}

// Next returns the next line, or io.EOF at the end of input.
func (s *ReaderSource) Next(ctx context.Context) (*LogLine, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if s.scanner.Scan() {
		s.line++
		return &LogLine{Text: s.scanner.Text(), Source: s.source, Line: s.line}, nil
	}
	if err := s.scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.source, err)
	}
	return nil, io.EOF
}

// Close is a no-op; the caller owns the underlying reader.
func (s *ReaderSource) Close() error {
	return nil
}
