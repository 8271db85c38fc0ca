// Package cli provides the command-line interface for mergelog.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/mergelog/internal/cli/commands"
	"github.com/ccollicutt/mergelog/internal/cli/plugins"
)

// Execute runs the root command and returns the exit code.
func Execute() int {
	rootCmd := NewRootCommand()

	// Check if the first argument might be a plugin command
	if len(os.Args) > 1 {
		potentialCommand := os.Args[1]
		// Skip flags (start with -)
		if len(potentialCommand) > 0 && potentialCommand[0] != '-' {
			// Check if it's a known built-in command
			if !isBuiltinCommand(rootCmd, potentialCommand) {
				// Try to find and execute a plugin
				if pluginPath, err := plugins.FindPlugin(potentialCommand); err == nil {
					// Plugin found - execute it with remaining args
					return plugins.Execute(pluginPath, os.Args[2:])
				}
				// Plugin not found - will fall through to Cobra which will show error
			}
		}
	}

	if err := rootCmd.Execute(); err != nil {
		// Check if this was an unknown command that could be a plugin
		if len(os.Args) > 1 {
			potentialCommand := os.Args[1]
			if len(potentialCommand) > 0 && potentialCommand[0] != '-' {
				if !isBuiltinCommand(rootCmd, potentialCommand) {
					// Show helpful plugin error message
					_, _ = fmt.Fprintln(os.Stderr, plugins.FormatNotFoundError(potentialCommand))
					return 1
				}
			}
		}
		// Print error to stderr (SilenceErrors prevents Cobra from doing this)
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1 // Bad argument, unreadable file, or runtime error
	}
	return commands.ExitCode
}

// isBuiltinCommand checks if a command name is a built-in cobra command.
func isBuiltinCommand(rootCmd *cobra.Command, name string) bool {
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == name || cmd.HasAlias(name) {
			return true
		}
	}
	// Also check for special commands like help and completion
	return name == "help" || name == "completion"
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	global := &commands.GlobalOptions{}

	rootCmd := &cobra.Command{
		Use:   "mergelog",
		Short: "Parse and analyze Gentoo emerge logs",
		Long: `Mergelog parses emerge.log files and reports merge history, statistics,
and predicted merge times.

It answers:
  - What was merged, unmerged, or synced, and how long did it take?
  - How long does a package usually take to build?
  - When will the merge that is running right now finish?

EXIT CODES:
  0  Success
  1  Error (bad argument, unreadable file)
  2  Search found nothing

PLUGINS:
  Mergelog supports plugins for extended functionality. Plugins are standalone
  binaries named mergelog-<command> that are automatically discovered and invoked.

  Plugin locations (searched in order):
    1. Same directory as the mergelog binary
    2. ~/.mergelog/plugins/
    3. Anywhere in PATH

  Available plugins:
    watch    Continuous merge monitoring (https://github.com/ccollicutt/mergelog#mergelog-watch)`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(global.Verbosity)
		},
	}

	commands.AddGlobalFlags(rootCmd, global)

	// Add subcommands
	rootCmd.AddCommand(commands.NewLogCommand(global))
	rootCmd.AddCommand(commands.NewStatsCommand(global))
	rootCmd.AddCommand(commands.NewPredictCommand(global))
	rootCmd.AddCommand(commands.NewDiagnoseCommand(global))
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}

// setupLogging configures the default slog logger from the -v count.
// Diagnostics go to stderr so they never mix with formatted output.
func setupLogging(verbosity int) {
	level := slog.LevelWarn
	switch {
	case verbosity >= 2:
		level = slog.LevelDebug
	case verbosity == 1:
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
