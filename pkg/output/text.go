package output

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"
)

// TextFormatter renders reports as aligned, optionally styled text.
type TextFormatter struct {
	opts FormatOptions
}

// NewTextFormatter creates a new text formatter with the given
// options. A nil style set disables styling.
func NewTextFormatter(opts FormatOptions) *TextFormatter {
	if opts.Styles == nil {
		opts.Styles = NewStyles(io.Discard, ColorNever)
	}
	return &TextFormatter{opts: opts}
}

// Name returns the format name.
func (f *TextFormatter) Name() string {
	return "text"
}

// Format renders the report as text.
func (f *TextFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	if f.opts.Quiet {
		return f.formatSummary(report, w)
	}
	return f.formatFull(report, w)
}

func (f *TextFormatter) formatSummary(report *Report, w io.Writer) error {
	s := report.Summary
	_, err := fmt.Fprintf(w, "%d lines, %d events, %d merges, %d unmerges, %d syncs, %d anomalies\n",
		s.Lines, s.Events, s.Merges, s.Unmerges, s.Syncs, s.Anomalies)
	return err
}

func (f *TextFormatter) formatFull(report *Report, w io.Writer) error {
	first := true
	section := func() io.Writer {
		if !first {
			fmt.Fprintln(w)
		}
		first = false
		return w
	}

	if len(report.Sessions) > 0 {
		if err := f.writeSessions(section(), "", report.Sessions); err != nil {
			return err
		}
	}
	if len(report.Merges) > 0 {
		if err := f.writeStats(section(), "Merges", report.Merges); err != nil {
			return err
		}
	}
	if len(report.Unmerges) > 0 {
		if err := f.writeStats(section(), "Unmerges", report.Unmerges); err != nil {
			return err
		}
	}
	if len(report.Syncs) > 0 {
		if err := f.writeStats(section(), "Syncs", report.Syncs); err != nil {
			return err
		}
	}
	if report.Totals != nil {
		if err := f.writeTotals(section(), report.Totals); err != nil {
			return err
		}
	}
	if len(report.Groups) > 0 {
		if err := f.writeGroups(section(), report.Groups); err != nil {
			return err
		}
	}
	if len(report.Predictions) > 0 {
		if err := f.writePredictions(section(), report); err != nil {
			return err
		}
	}
	if len(report.Unterminated) > 0 {
		if err := f.writeSessions(section(), "Unterminated", report.Unterminated); err != nil {
			return err
		}
	}
	if len(report.Anomalies) > 0 {
		f.writeAnomalies(section(), report.Anomalies)
	}
	if len(report.Warnings) > 0 {
		f.writeWarnings(section(), report.Warnings)
	}
	return nil
}

func (f *TextFormatter) writeSessions(w io.Writer, title string, entries []SessionEntry) error {
	if title != "" {
		f.writeTitle(w, title)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	for _, e := range entries {
		ts, dur := e.Start, "?"
		if e.End != nil {
			ts = *e.End
			dur = FormatDuration(secs(e.Seconds), f.opts.Duration)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", f.time(ts), f.durCell(dur), f.label(e))
	}
	return tw.Flush()
}

func (f *TextFormatter) writeStats(w io.Writer, title string, entries []PackageEntry) error {
	f.writeTitle(w, title)
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			f.opts.Styles.Merge.Render(e.Package),
			f.count(e.Count),
			f.duration(secs(e.TotalSec)),
			f.duration(secs(e.MeanSec)),
			f.duration(secs(e.WeightedSec)))
	}
	return tw.Flush()
}

func (f *TextFormatter) writeTotals(w io.Writer, t *TotalsSection) error {
	f.writeTitle(w, "Totals")
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	rows := []struct {
		name  string
		entry TotalsEntry
	}{
		{"merges", t.Merges},
		{"unmerges", t.Unmerges},
		{"syncs", t.Syncs},
	}
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			row.name,
			f.count(row.entry.Count),
			f.duration(secs(row.entry.TotalSec)),
			f.duration(secs(row.entry.MeanSec)))
	}
	return tw.Flush()
}

func (f *TextFormatter) writeGroups(w io.Writer, groups []GroupEntry) error {
	f.writeTitle(w, "Groups")
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	for _, g := range groups {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			g.Period,
			f.count(g.Merges.Count),
			f.duration(secs(g.Merges.TotalSec)),
			f.duration(secs(g.Merges.MeanSec)),
			f.count(g.Unmerges.Count),
			f.duration(secs(g.Unmerges.TotalSec)),
			f.duration(secs(g.Unmerges.MeanSec)),
			f.count(g.Syncs.Count),
			f.duration(secs(g.Syncs.TotalSec)),
			f.duration(secs(g.Syncs.MeanSec)))
	}
	return tw.Flush()
}

func (f *TextFormatter) writePredictions(w io.Writer, report *Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	for _, p := range report.Predictions {
		dur := "?"
		if p.Known {
			dur = FormatDuration(secs(p.RemainingSec), f.opts.Duration)
		}
		if p.InProgress {
			fmt.Fprintf(tw, "%s\t%s\t%s elapsed\n",
				f.opts.Styles.Merge.Render(p.Package),
				f.durCell(dur),
				FormatDuration(secs(p.ElapsedSec), f.opts.Duration))
		} else {
			fmt.Fprintf(tw, "%s\t%s\n",
				f.opts.Styles.Merge.Render(p.Package),
				f.durCell(dur))
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if t := report.PredictionTotals; t != nil {
		fmt.Fprintf(w, "Estimate for %d merges (%d unknown): %s\n",
			t.Count, t.Unknown, f.durInline(secs(t.RemainingSec)))
	}
	return nil
}

func (f *TextFormatter) writeAnomalies(w io.Writer, entries []AnomalyEntry) {
	f.writeTitle(w, "Anomalies")
	for _, a := range entries {
		fmt.Fprintf(w, "%s %s: %s (%s:%d)\n",
			f.time(a.Time), a.Kind, a.Detail, a.Source, a.Line)
	}
}

func (f *TextFormatter) writeWarnings(w io.Writer, warnings []string) {
	f.writeTitle(w, "Warnings")
	for _, s := range warnings {
		fmt.Fprintln(w, s)
	}
}

func (f *TextFormatter) writeTitle(w io.Writer, s string) {
	fmt.Fprintln(w, f.opts.Styles.Header.Render(s))
}

func (f *TextFormatter) label(e SessionEntry) string {
	st := f.opts.Styles
	switch e.Kind {
	case "merge":
		return st.MergePrefix + st.Merge.Render(e.Package)
	case "unmerge":
		return st.UnmergePrefix + st.Unmerge.Render(e.Package)
	default:
		if e.Package == "sync" {
			return "sync"
		}
		return "sync " + e.Package
	}
}

func (f *TextFormatter) time(t time.Time) string {
	return FormatTime(t, f.opts.Date, f.opts.Location)
}

// duration renders d right-aligned in a fixed-width styled cell. The
// width fits "99:59:59"; longer spans widen the column.
func (f *TextFormatter) duration(d time.Duration) string {
	return f.durCell(FormatDuration(d, f.opts.Duration))
}

func (f *TextFormatter) durCell(text string) string {
	return f.opts.Styles.Duration.Render(fmt.Sprintf("%9s", text))
}

func (f *TextFormatter) durInline(d time.Duration) string {
	return f.opts.Styles.Duration.Render(FormatDuration(d, f.opts.Duration))
}

func (f *TextFormatter) count(n int) string {
	return f.opts.Styles.Count.Render(fmt.Sprintf("%5d", n))
}

func secs(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
