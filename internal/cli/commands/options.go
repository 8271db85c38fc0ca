package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/mergelog/pkg/analyzer"
	"github.com/ccollicutt/mergelog/pkg/atom"
	"github.com/ccollicutt/mergelog/pkg/config"
	"github.com/ccollicutt/mergelog/pkg/dates"
	"github.com/ccollicutt/mergelog/pkg/output"
	"github.com/ccollicutt/mergelog/pkg/parser"
)

// ExitCode is set by commands to report their result: 0 on success,
// 2 when a search found nothing. Errors exit 1 via cli.Execute.
var ExitCode = 0

// GlobalOptions holds the flags shared by every subcommand. Zero
// values mean "not set"; the config file and defaults fill the gaps.
type GlobalOptions struct {
	LogFiles   []string
	ConfigPath string
	From       string
	To         string
	Duration   string
	Date       string
	Color      string
	Output     string
	Jobs       int
	Limit      int
	Decay      float64
	UTC        bool
	Verbosity  int
}

// AddGlobalFlags registers the shared flags on the root command.
func AddGlobalFlags(cmd *cobra.Command, opts *GlobalOptions) {
	pf := cmd.PersistentFlags()
	pf.StringSliceVarP(&opts.LogFiles, "logfile", "F", nil, "Location of emerge log files, repeatable, globs ok (default /var/log/emerge.log)")
	pf.StringVar(&opts.ConfigPath, "config", "", "Config file (default $XDG_CONFIG_HOME/mergelog/config.yaml)")
	pf.StringVarP(&opts.From, "from", "f", "", "Only consider log entries after <date>")
	pf.StringVarP(&opts.To, "to", "t", "", "Only consider log entries before <date>")
	pf.StringVar(&opts.Duration, "duration", "", "Duration format (hms|s)")
	pf.StringVar(&opts.Date, "date", "", "Date format (ymd|ymdhms|rfc3339|rfc2822|compact|unix)")
	pf.StringVar(&opts.Color, "color", "", "Color output (auto|always|never)")
	pf.StringVarP(&opts.Output, "output", "o", "", "Output format (text|json)")
	pf.IntVar(&opts.Jobs, "jobs", 0, "Number of parallel parse workers")
	pf.IntVar(&opts.Limit, "limit", 0, "Use the last N merge times to predict the next merge time")
	pf.Float64Var(&opts.Decay, "decay", 0, "Weight kept by older samples in the recency-weighted mean")
	pf.BoolVar(&opts.UTC, "utc", false, "Show times in UTC instead of local time")
	pf.CountVarP(&opts.Verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
}

// Settings is the merged result of flags, environment variables, the
// config file, and defaults, in that precedence order.
type Settings struct {
	Config *config.Config

	// Files are the log files to read, globs expanded.
	Files []string

	// From and To bound the analysis; zero means unbounded.
	From time.Time
	To   time.Time

	// Location renders timestamps: UTC when requested, local
	// otherwise.
	Location *time.Location

	// Verbosity is the -v count.
	Verbosity int
}

// Resolve merges the flags the user actually set over the loaded
// configuration and prepares everything commands share.
func (g *GlobalOptions) Resolve(cmd *cobra.Command) (*Settings, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var cfg *config.Config
	var err error
	if g.ConfigPath != "" {
		cfg, err = config.Load(ctx, g.ConfigPath)
	} else {
		cfg, err = config.LoadDefault(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("logfile") {
		cfg.LogFiles = g.LogFiles
	}
	if flags.Changed("duration") {
		cfg.DurationFormat = g.Duration
	}
	if flags.Changed("date") {
		cfg.DateFormat = g.Date
	}
	if flags.Changed("color") {
		cfg.Color = g.Color
	}
	if flags.Changed("output") {
		cfg.Output = g.Output
	}
	if flags.Changed("jobs") {
		cfg.Jobs = g.Jobs
	}
	if flags.Changed("limit") {
		cfg.Limit = g.Limit
	}
	if flags.Changed("decay") {
		cfg.Decay = g.Decay
	}
	if flags.Changed("utc") {
		cfg.UTC = g.UTC
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	s := &Settings{
		Config:    cfg,
		Location:  time.Local,
		Verbosity: g.Verbosity,
	}
	if cfg.UTC {
		s.Location = time.UTC
	}

	now := time.Now()
	if g.From != "" {
		s.From, err = dates.Parse(g.From, now, s.Location)
		if err != nil {
			return nil, fmt.Errorf("invalid --from date: %w", err)
		}
	}
	if g.To != "" {
		s.To, err = dates.Parse(g.To, now, s.Location)
		if err != nil {
			return nil, fmt.Errorf("invalid --to date: %w", err)
		}
	}

	s.Files, err = parser.ExpandGlobs(cfg.LogFiles)
	if err != nil {
		return nil, err
	}

	return s, nil
}

// EventSource opens the resolved log files.
func (s *Settings) EventSource() (parser.EventSource, error) {
	return parser.NewEventSource(s.Files, parser.WithJobs(s.Config.Jobs))
}

// Formatter builds the report formatter writing to w under the
// resolved settings.
func (s *Settings) Formatter(w io.Writer, quiet bool) (output.Formatter, error) {
	return output.NewFormatter(s.Config.Output, output.FormatOptions{
		Duration: s.Config.DurationStyle(),
		Date:     s.Config.DateStyle(),
		Location: s.Location,
		Styles:   output.NewStyles(w, s.Config.ColorMode()),
		Quiet:    quiet,
	})
}

// parseShow expands a --show value into the set of requested section
// letters. Any letter outside valid is an error; 'a' selects all.
func parseShow(s, valid string) (map[byte]bool, error) {
	show := make(map[byte]bool)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !strings.ContainsRune(valid, rune(c)) {
			return nil, fmt.Errorf("invalid --show value %q: want letters from %q", s, valid)
		}
		show[c] = true
	}
	if show['a'] {
		for i := 0; i < len(valid); i++ {
			show[valid[i]] = true
		}
	}
	return show, nil
}

// packageFilter builds the atom filter from the positional argument.
func packageFilter(args []string, exact bool) (*atom.Filter, error) {
	if len(args) == 0 {
		return nil, nil
	}
	if exact {
		return atom.NewExactFilter(args[0]), nil
	}
	return atom.NewFilter(args[0])
}

// filterSessions keeps the session classes selected by --show.
func filterSessions(sessions []*analyzer.Session, show map[byte]bool) []*analyzer.Session {
	var kept []*analyzer.Session
	for _, s := range sessions {
		var letter byte
		switch s.Class {
		case parser.ClassMerge:
			letter = 'm'
		case parser.ClassUnmerge:
			letter = 'u'
		case parser.ClassSync:
			letter = 's'
		}
		if show[letter] {
			kept = append(kept, s)
		}
	}
	return kept
}
