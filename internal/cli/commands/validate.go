package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/mergelog/pkg/config"
	"github.com/ccollicutt/mergelog/pkg/parser"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [config-file]",
		Short: "Validate a configuration file",
		Long: `Validate a mergelog configuration file without running analysis.

Checks:
  - YAML syntax
  - Value ranges (limit, decay, jobs)
  - Date, duration, color, and output format names
  - Webhook URLs, triggers, and timeouts
  - Log file existence (warning only)

With no argument the default config path is checked.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	w := cmd.OutOrStdout()

	var configPath string
	if len(args) > 0 {
		configPath = args[0]
	} else {
		configPath = config.DefaultPath()
		if configPath == "" {
			return fmt.Errorf("no config file given and no default path available")
		}
	}

	fmt.Fprintf(w, "Validating %s...\n", configPath)

	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Fprintf(w, "\nConfiguration valid!\n")
	fmt.Fprintf(w, "  Log files: %d pattern(s)\n", len(cfg.LogFiles))
	fmt.Fprintf(w, "  Date:      %s\n", cfg.DateStyle())
	fmt.Fprintf(w, "  Duration:  %s\n", cfg.DurationStyle())
	fmt.Fprintf(w, "  Color:     %s\n", cfg.ColorMode())
	fmt.Fprintf(w, "  Output:    %s\n", cfg.Output)
	fmt.Fprintf(w, "  Webhooks:  %d\n", len(cfg.Webhooks))

	// Missing log files are a warning, not an error: the config may
	// be validated on a different host than it runs on.
	files, err := parser.ExpandGlobs(cfg.LogFiles)
	if err != nil {
		fmt.Fprintf(w, "\nWarning: expanding log file patterns: %v\n", err)
		return nil
	}

	var found []string
	for _, f := range files {
		if info, err := os.Stat(f); err == nil && !info.IsDir() {
			found = append(found, f)
		}
	}

	if len(found) == 0 {
		fmt.Fprintf(w, "\nWarning: no log files match the configured patterns\n")
		return nil
	}

	fmt.Fprintf(w, "\nLog files matched: %d\n", len(found))
	for _, f := range found {
		fmt.Fprintf(w, "  - %s\n", f)
	}

	return nil
}
