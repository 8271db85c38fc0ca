package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ccollicutt/mergelog/pkg/analyzer"
	"github.com/ccollicutt/mergelog/pkg/output"
	"github.com/ccollicutt/mergelog/pkg/parser"
	"github.com/ccollicutt/mergelog/pkg/predict"
)

// PredictOptions holds command-line options for the predict command.
type PredictOptions struct {
	Avg string
}

// NewPredictCommand creates the predict command.
func NewPredictCommand(global *GlobalOptions) *cobra.Command {
	opts := &PredictOptions{}

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict merge times for current or pretended merges",
		Long: `Predict merge times for current or pretended merges.

When stdin is a terminal, predicts the merges still open at the end
of the log. When stdin is a pipe, reads "emerge --pretend" output and
predicts those merges instead:

  emerge -rOp | mergelog predict

Estimates come from each package's merge history; --limit bounds how
much of it the recent average uses.

Exit codes:
  0 - Predictions produced
  1 - Error
  2 - Nothing to predict`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPredict(cmd, global, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Avg, "avg", "weighted", "Estimate derivation (weighted|mean|recent)")

	return cmd
}

func runPredict(cmd *cobra.Command, global *GlobalOptions, opts *PredictOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	settings, err := global.Resolve(cmd)
	if err != nil {
		return err
	}

	mode, err := predict.ParseMode(opts.Avg)
	if err != nil {
		return err
	}

	src, err := settings.EventSource()
	if err != nil {
		return err
	}
	defer src.Close()

	result, err := analyzer.Analyze(ctx, src,
		analyzer.WithDecay(settings.Config.Decay),
		analyzer.WithWindow(settings.Config.Limit),
	)
	if err != nil {
		return err
	}

	piped := !term.IsTerminal(int(os.Stdin.Fd()))

	var requests []predict.Request
	if piped {
		atoms, err := parser.ReadPretend(ctx, parser.NewReaderSource(os.Stdin, "stdin"))
		if err != nil {
			return fmt.Errorf("reading pretend output: %w", err)
		}
		requests = predict.FromAtoms(atoms)
	} else {
		requests = predict.FromSessions(result.Open)
	}

	if len(requests) == 0 {
		if piped {
			fmt.Fprintln(cmd.OutOrStdout(), "No pretended merges found.")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "No ongoing merges found.")
		}
		ExitCode = 2
		return nil
	}

	predictions := predict.Merges(result.MergeStats, requests, predict.WithMode(mode))

	report := output.NewReport(result, settings.Files)
	report.AddPredictions(predictions)

	formatter, err := settings.Formatter(cmd.OutOrStdout(), false)
	if err != nil {
		return err
	}
	if err := formatter.Format(ctx, report, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}
	return nil
}
