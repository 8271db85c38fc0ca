package parser

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

func readAllLines(t *testing.T, src LineSource) []*LogLine {
	t.Helper()
	ctx := context.Background()
	var lines []*LogLine
	for {
		line, err := src.Next(ctx)
		if err == io.EOF {
			return lines
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		lines = append(lines, line)
	}
}

func TestFileSource_Next(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "emerge.log")
	content := "1000:  === sync\n1100:  === Sync completed for gentoo\n1200:  >>> emerge (1 of 1) a/b-1 to /\n"
	if err := os.WriteFile(logFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	source := NewFileSource([]string{logFile})
	defer source.Close()

	lines := readAllLines(t, source)
	if len(lines) != 3 {
		t.Fatalf("Got %d lines, want 3", len(lines))
	}
	if lines[0].Line != 1 || lines[2].Line != 3 {
		t.Errorf("line numbers = %d, %d; want 1, 3", lines[0].Line, lines[2].Line)
	}
	if lines[0].Source != logFile {
		t.Errorf("Source = %q, want %q", lines[0].Source, logFile)
	}
	if lines[1].Text != "1100:  === Sync completed for gentoo" {
		t.Errorf("Text = %q", lines[1].Text)
	}
}

func TestFileSource_MultipleFiles(t *testing.T) {
	dir := t.TempDir()

	paths := []string{
		filepath.Join(dir, "emerge.log.1"),
		filepath.Join(dir, "emerge.log"),
	}
	for i, p := range paths {
		line := fmt.Sprintf("%d:  === sync\n", 1000+i)
		if err := os.WriteFile(p, []byte(line), 0644); err != nil {
			t.Fatal(err)
		}
	}

	source := NewFileSource(paths)
	defer source.Close()

	lines := readAllLines(t, source)
	if len(lines) != 2 {
		t.Fatalf("Got %d lines, want 2", len(lines))
	}
	if lines[0].Source != paths[0] || lines[1].Source != paths[1] {
		t.Errorf("sources = %q, %q; want file order preserved", lines[0].Source, lines[1].Source)
	}
	// Line numbers restart per file.
	if lines[1].Line != 1 {
		t.Errorf("second file first line = %d, want 1", lines[1].Line)
	}
}

func TestFileSource_Compressed(t *testing.T) {
	content := "1000:  === sync\n1100:  === Sync completed for gentoo\n"
	dir := t.TempDir()

	write := func(t *testing.T, path string, compress func(*testing.T, io.Writer) io.WriteCloser) {
		t.Helper()
		f, err := os.Create(path)
		if err != nil {
			t.Fatal(err)
		}
		defer f.Close()
		w := compress(t, f)
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
		if err := w.Close(); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name     string
		compress func(*testing.T, io.Writer) io.WriteCloser
	}{
		{"emerge.log.gz", func(t *testing.T, w io.Writer) io.WriteCloser { return gzip.NewWriter(w) }},
		{"emerge.log.zst", func(t *testing.T, w io.Writer) io.WriteCloser {
			zw, err := zstd.NewWriter(w)
			if err != nil {
				t.Fatal(err)
			}
			return zw
		}},
		{"emerge.log.lz4", func(t *testing.T, w io.Writer) io.WriteCloser { return lz4.NewWriter(w) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name)
			write(t, path, tt.compress)

			source := NewFileSource([]string{path})
			defer source.Close()

			lines := readAllLines(t, source)
			if len(lines) != 2 {
				t.Fatalf("Got %d lines, want 2", len(lines))
			}
			if lines[0].Text != "1000:  === sync" {
				t.Errorf("Text = %q", lines[0].Text)
			}
		})
	}
}

func TestFileSource_FileNotFound(t *testing.T) {
	source := NewFileSource([]string{"/nonexistent/emerge.log"})
	defer source.Close()

	_, err := source.Next(context.Background())
	if err == nil {
		t.Error("Next() expected error for missing file")
	}
}

func TestFileSource_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "empty.log")
	if err := os.WriteFile(logFile, nil, 0644); err != nil {
		t.Fatal(err)
	}

	source := NewFileSource([]string{logFile})
	defer source.Close()

	_, err := source.Next(context.Background())
	if err != io.EOF {
		t.Errorf("Next() error = %v, want io.EOF", err)
	}
}

func TestFileSource_ContextCancellation(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "emerge.log")
	if err := os.WriteFile(logFile, []byte("1000:  === sync\n"), 0644); err != nil {
		t.Fatal(err)
	}

	source := NewFileSource([]string{logFile})
	defer source.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := source.Next(ctx)
	if err != context.Canceled {
		t.Errorf("Next() error = %v, want context.Canceled", err)
	}
}

func TestFileSource_Close(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "emerge.log")
	if err := os.WriteFile(logFile, []byte("1000:  === sync\n"), 0644); err != nil {
		t.Fatal(err)
	}

	source := NewFileSource([]string{logFile})
	if _, err := source.Next(context.Background()); err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if err := source.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	// Closing twice is fine.
	if err := source.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestReaderSource(t *testing.T) {
	source := NewReaderSource(strings.NewReader("one\ntwo\n"), "")
	defer source.Close()

	lines := readAllLines(t, source)
	if len(lines) != 2 {
		t.Fatalf("Got %d lines, want 2", len(lines))
	}
	if lines[0].Source != "-" {
		t.Errorf("Source = %q, want -", lines[0].Source)
	}
	if lines[1].Text != "two" || lines[1].Line != 2 {
		t.Errorf("line 2 = %q at %d", lines[1].Text, lines[1].Line)
	}
}
