package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ccollicutt/mergelog/pkg/analyzer"
	"github.com/ccollicutt/mergelog/pkg/parser"
	"github.com/ccollicutt/mergelog/pkg/probe"
)

// DiagnosticResult is the outcome of a single health check.
type DiagnosticResult struct {
	Check    string
	Status   string // "ok", "warning", "error"
	Message  string
	Details  []string
	Suggests []string
}

// NewDiagnoseCommand creates the diagnose command.
func NewDiagnoseCommand(global *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diagnose [file...]",
		Short: "Check emerge logs for parse and pairing trouble",
		Long: `Check emerge logs for parse and pairing trouble.

Each log file is read end to end and reported on:
- File size, event counts, and time span
- Marker mix: merges, unmerges, syncs, unrecognized lines
- Malformed payloads the parser had to drop
- Pairing anomalies: orphan ends, duplicate starts, clock skew
- Sessions that started but never completed

With no arguments the configured log files are checked. Verbose mode
(-v) shows details for healthy files too.

Exit codes:
  0 - All files readable
  1 - A file could not be read`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagnose(cmd, args, global)
		},
	}

	return cmd
}

func runDiagnose(cmd *cobra.Command, args []string, global *GlobalOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	settings, err := global.Resolve(cmd)
	if err != nil {
		return err
	}

	files := settings.Files
	if len(args) > 0 {
		files, err = parser.ExpandGlobs(args)
		if err != nil {
			return err
		}
	}

	verbose := settings.Verbosity > 0
	prober := probe.New()

	var results []DiagnosticResult
	failed := false

	for _, path := range files {
		if result, ok := checkFileAccess(path); !ok {
			results = append(results, result)
			failed = true
			continue
		}

		report, err := prober.ExamineFile(ctx, path)
		if err != nil {
			results = append(results, DiagnosticResult{
				Check:   "Log File: " + path,
				Status:  "error",
				Message: fmt.Sprintf("Cannot read file: %v", err),
				Suggests: []string{
					"Check file permissions",
				},
			})
			failed = true
			continue
		}

		results = append(results, fileDiagnostics(report)...)
	}

	printDiagnostics(cmd.OutOrStdout(), results, verbose)

	if failed {
		ExitCode = 1
	}
	return nil
}

// checkFileAccess verifies the path names a readable regular file.
// ok is false when the file cannot be examined at all.
func checkFileAccess(path string) (DiagnosticResult, bool) {
	result := DiagnosticResult{
		Check: "Log File: " + path,
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		result.Status = "error"
		result.Message = "File does not exist"
		result.Suggests = []string{
			"Check the log file path; the Portage default is /var/log/emerge.log",
		}
		return result, false
	}
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot access file: %v", err)
		result.Suggests = []string{"Check file permissions"}
		return result, false
	}
	if info.IsDir() {
		result.Status = "error"
		result.Message = "Path is a directory, not a file"
		result.Suggests = []string{
			"Use a glob pattern to match files in a directory",
			"Example: /var/log/emerge.log*",
		}
		return result, false
	}

	return result, true
}

// fileDiagnostics turns one probe report into check results: a
// summary, then one entry per kind of trouble found.
func fileDiagnostics(r *probe.FileReport) []DiagnosticResult {
	results := []DiagnosticResult{fileSummary(r)}

	if len(r.Warnings) > 0 {
		results = append(results, DiagnosticResult{
			Check:   "Parse Warnings: " + r.Path,
			Status:  "warning",
			Message: fmt.Sprintf("%d line(s) had a recognized marker but a malformed payload", len(r.Warnings)),
			Details: warningSamples(r.Warnings, 5),
			Suggests: []string{
				"These lines were dropped; durations near them may be missing",
			},
		})
	}

	if len(r.Anomalies) > 0 {
		results = append(results, DiagnosticResult{
			Check:   "Anomalies: " + r.Path,
			Status:  "warning",
			Message: fmt.Sprintf("%d pairing or clock anomalies", len(r.Anomalies)),
			Details: anomalySamples(r.Anomalies, 5),
			Suggests: []string{
				"Orphan ends usually mean the log was truncated or rotated mid-merge",
				"Clock skew means the system time moved during a merge",
			},
		})
	}

	if r.Unterminated > 0 {
		results = append(results, DiagnosticResult{
			Check:   "Unterminated Sessions: " + r.Path,
			Status:  "warning",
			Message: fmt.Sprintf("%d session(s) started but never completed", r.Unterminated),
			Suggests: []string{
				"A merge running right now is expected here; see 'mergelog predict'",
				"Older entries usually mean a crashed or killed emerge",
			},
		})
	}

	return results
}

// fileSummary describes what the file holds.
func fileSummary(r *probe.FileReport) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Log File: " + r.Path,
	}

	if r.Counts.Events == 0 {
		result.Status = "warning"
		result.Message = fmt.Sprintf("No emerge events in %s line(s) (%s)",
			humanize.Comma(int64(r.Counts.Lines)), humanize.Bytes(uint64(r.Size)))
		result.Suggests = []string{
			"Check that this is an emerge log; Portage writes /var/log/emerge.log",
		}
		return result
	}

	// RelTime leaves a trailing space for its empty suffix label.
	span := strings.TrimSpace(humanize.RelTime(r.First, r.Last, "", ""))
	result.Status = "ok"
	result.Message = fmt.Sprintf("%s events across %s (%s)",
		humanize.Comma(int64(r.Counts.Events)), span,
		humanize.Bytes(uint64(r.Size)))
	result.Details = []string{
		fmt.Sprintf("Completed: %d merges, %d unmerges, %d syncs", r.Merges, r.Unmerges, r.Syncs),
		fmt.Sprintf("Lines: %s (%d without timestamp, %d with other markers)",
			humanize.Comma(int64(r.Counts.Lines)), r.Counts.Skipped, r.Counts.Other),
		fmt.Sprintf("Last event: %s", humanize.Time(r.Last)),
	}
	return result
}

// warningSamples renders up to max parse warnings.
func warningSamples(warnings []parser.ParseWarning, max int) []string {
	samples := make([]string, 0, max+1)
	for i, w := range warnings {
		if i == max {
			samples = append(samples, fmt.Sprintf("... and %d more", len(warnings)-max))
			break
		}
		samples = append(samples, w.String())
	}
	return samples
}

// anomalySamples renders up to max anomalies.
func anomalySamples(anomalies []analyzer.Anomaly, max int) []string {
	samples := make([]string, 0, max+1)
	for i, a := range anomalies {
		if i == max {
			samples = append(samples, fmt.Sprintf("... and %d more", len(anomalies)-max))
			break
		}
		samples = append(samples, a.String())
	}
	return samples
}

// printDiagnostics renders the check results with a summary footer.
func printDiagnostics(w io.Writer, results []DiagnosticResult, verbose bool) {
	fmt.Fprintln(w, "=== Mergelog Health Check ===")
	fmt.Fprintln(w)

	okCount := 0
	warnCount := 0
	errCount := 0

	for _, r := range results {
		var icon string
		switch r.Status {
		case "ok":
			icon = "PASS"
			okCount++
		case "warning":
			icon = "WARN"
			warnCount++
		case "error":
			icon = "FAIL"
			errCount++
		}

		fmt.Fprintf(w, "[%s] %s\n", icon, r.Check)
		fmt.Fprintf(w, "    %s\n", r.Message)

		if verbose || r.Status != "ok" {
			for _, d := range r.Details {
				fmt.Fprintf(w, "      - %s\n", d)
			}
		}

		for _, s := range r.Suggests {
			fmt.Fprintf(w, "      Hint: %s\n", s)
		}

		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "Summary: %d passed, %d warnings, %d errors\n", okCount, warnCount, errCount)

	switch {
	case errCount > 0:
		fmt.Fprintln(w, "\nSome logs could not be read.")
	case warnCount > 0:
		fmt.Fprintln(w, "\nLogs are usable but have irregularities.")
	default:
		fmt.Fprintln(w, "\nLogs look good!")
	}
}
