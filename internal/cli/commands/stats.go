package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/mergelog/pkg/analyzer"
	"github.com/ccollicutt/mergelog/pkg/config"
	"github.com/ccollicutt/mergelog/pkg/output"
	"github.com/ccollicutt/mergelog/pkg/webhook"
)

// StatsOptions holds command-line options for the stats command.
type StatsOptions struct {
	Show  string
	Group string
	Exact bool
	Quiet bool

	// Webhook options
	WebhookURL     string
	WebhookToken   string
	WebhookTrigger string
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(global *GlobalOptions) *cobra.Command {
	opts := &StatsOptions{}

	cmd := &cobra.Command{
		Use:   "stats [package]",
		Short: "Show statistics about completed merges, unmerges, and syncs",
		Long: `Show statistics about completed merges, unmerges, and syncs.

Per-package rows show the count, total time, mean time, and the
recency-weighted time used for predictions. Totals aggregate per
class, and --group buckets them by calendar period.

The report can be delivered to webhook endpoints, from the config
file or --webhook-url, for scheduled log monitoring.

Exit codes:
  0 - Statistics found
  1 - Error
  2 - Nothing found`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, args, global, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Show, "show", "s", "p", "Show per-(p)ackage stats, (t)otals, (s)yncs, or (a)ll")
	cmd.Flags().StringVarP(&opts.Group, "group", "g", "", "Group totals by (y)ear, (m)onth, (w)eek, or (d)ay")
	cmd.Flags().BoolVarP(&opts.Exact, "exact", "e", false, "Match the package by exact name instead of regex")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Summary only, no tables")

	// Webhook flags
	cmd.Flags().StringVar(&opts.WebhookURL, "webhook-url", "", "Webhook endpoint URL")
	cmd.Flags().StringVar(&opts.WebhookToken, "webhook-token", "", "Bearer token for webhook auth")
	cmd.Flags().StringVar(&opts.WebhookTrigger, "webhook-trigger", "on_anomalies", "When to fire webhooks (on_anomalies|always|never)")

	return cmd
}

func runStats(cmd *cobra.Command, args []string, global *GlobalOptions, opts *StatsOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	settings, err := global.Resolve(cmd)
	if err != nil {
		return err
	}

	show, err := parseShow(opts.Show, "ptsa")
	if err != nil {
		return err
	}

	period, err := analyzer.ParsePeriod(opts.Group)
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
		analyzer.WithDecay(settings.Config.Decay),
		analyzer.WithWindow(settings.Config.Limit),
		analyzer.WithGroup(period),
		analyzer.WithFilter(filter),
		analyzer.WithTimeRange(settings.From, settings.To),
	)
	if err != nil {
		return err
	}

	report := output.NewReport(result, settings.Files)
	if show['p'] {
		report.AddMerges(result.MergeStats)
		report.AddUnmerges(result.UnmergeStats)
	}
	if show['s'] {
		report.AddSyncs(result.SyncStats)
	}
	if show['t'] {
		report.AddTotals(result)
	}
	if period != analyzer.PeriodNone {
		report.AddGroups(result.Groups)
	}

	formatter, err := settings.Formatter(cmd.OutOrStdout(), opts.Quiet)
	if err != nil {
		return err
	}
	if err := formatter.Format(ctx, report, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}

	// Webhook failures are reported but never fail the run.
	sendWebhooks(ctx, settings.Config, opts, report)

	if !statsFound(report) {
		ExitCode = 2
	}
	return nil
}

// statsFound reports whether any requested section has content.
func statsFound(report *output.Report) bool {
	if len(report.Merges)+len(report.Unmerges)+len(report.Syncs)+len(report.Groups) > 0 {
		return true
	}
	if t := report.Totals; t != nil {
		return t.Merges.Count+t.Unmerges.Count+t.Syncs.Count > 0
	}
	return false
}

// sendWebhooks delivers the report to every configured endpoint.
func sendWebhooks(ctx context.Context, cfg *config.Config, opts *StatsOptions, report *output.Report) {
	webhooks := collectWebhooks(cfg, opts)
	if len(webhooks) == 0 {
		return
	}

	client := webhook.NewClient()

	for _, wh := range webhooks {
		if !shouldFireWebhook(wh.Trigger, report.HasAnomalies()) {
			continue
		}

		resp := client.Send(ctx, report, webhook.SendOptions{
			URL:     wh.URL,
			Token:   wh.Token,
			Timeout: wh.Timeout,
		})

		name := wh.Name
		if name == "" {
			name = wh.URL
		}

		if resp.Success() {
			fmt.Fprintf(os.Stderr, "Webhook %s: sent (%d, %s)\n", name, resp.StatusCode, resp.Duration)
		} else {
			fmt.Fprintf(os.Stderr, "Webhook %s: failed (%v)\n", name, resp.Error)
		}
	}
}

// collectWebhooks merges config file webhooks with the CLI webhook.
func collectWebhooks(cfg *config.Config, opts *StatsOptions) []config.WebhookConfig {
	webhooks := make([]config.WebhookConfig, 0, len(cfg.Webhooks)+1)
	webhooks = append(webhooks, cfg.Webhooks...)

	if opts.WebhookURL != "" {
		trigger := config.WebhookTrigger(opts.WebhookTrigger)
		if trigger == "" {
			trigger = config.WebhookTriggerOnAnomalies
		}

		webhooks = append(webhooks, config.WebhookConfig{
			Name:    "cli",
			URL:     opts.WebhookURL,
			Token:   opts.WebhookToken,
			Trigger: trigger,
			Timeout: config.DefaultWebhookTimeout,
		})
	}

	return webhooks
}

// shouldFireWebhook applies the trigger policy to the report state.
func shouldFireWebhook(trigger config.WebhookTrigger, hasAnomalies bool) bool {
	switch trigger {
	case config.WebhookTriggerAlways:
		return true
	case config.WebhookTriggerNever:
		return false
	default:
		return hasAnomalies
	}
}
