package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/mergelog/pkg/analyzer"
	"github.com/ccollicutt/mergelog/pkg/output"
)

// LogOptions holds command-line options for the log command.
type LogOptions struct {
	Show  string
	Exact bool
	Quiet bool
}

// NewLogCommand creates the log command.
func NewLogCommand(global *GlobalOptions) *cobra.Command {
	opts := &LogOptions{}

	cmd := &cobra.Command{
		Use:     "log [package]",
		Aliases: []string{"list"},
		Short:   "Show the log of completed merges, unmerges, and syncs",
		Long: `Show the log of completed merges, unmerges, and syncs.

Each line is the completion time, the duration, and the package or
repository. The optional <package> argument filters the list: a
case-insensitive regex over category/name, or an exact name with
--exact. Verbose mode (-v) adds unterminated sessions and log
anomalies.

Exit codes:
  0 - Matching sessions found
  1 - Error
  2 - Nothing found`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(cmd, args, global, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Show, "show", "s", "m", "Show (m)erges, (u)nmerges, (s)yncs, or (a)ll")
	cmd.Flags().BoolVarP(&opts.Exact, "exact", "e", false, "Match the package by exact name instead of regex")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Summary only, no session list")

	return cmd
}

func runLog(cmd *cobra.Command, args []string, global *GlobalOptions, opts *LogOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	settings, err := global.Resolve(cmd)
	if err != nil {
		return err
	}

	show, err := parseShow(opts.Show, "musa")
	if err != nil {
		return err
	}

	filter, err := packageFilter(args, opts.Exact)
	if err != nil {
		return err
	}

	src, err := settings.EventSource()
	if err != nil {
		return err
	}
	defer src.Close()

	result, err := analyzer.Analyze(ctx, src,
		analyzer.WithHistory(true),
		analyzer.WithFilter(filter),
		analyzer.WithTimeRange(settings.From, settings.To),
	)
	if err != nil {
		return err
	}

	sessions := filterSessions(result.Sessions, show)

	report := output.NewReport(result, settings.Files)
	report.AddSessions(sessions)
	if settings.Verbosity > 0 {
		report.AddUnterminated(result.Unterminated)
		report.AddAnomalies(result.Anomalies)
	}

	formatter, err := settings.Formatter(cmd.OutOrStdout(), opts.Quiet)
	if err != nil {
		return err
	}
	if err := formatter.Format(ctx, report, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}

	if len(sessions) == 0 {
		ExitCode = 2
	}
	return nil
}
