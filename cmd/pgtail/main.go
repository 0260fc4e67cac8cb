// Command pgtail tails PostgreSQL log files (or stdin), applying level,
// regex, field, and time-window filters, with optional desktop
// notifications and export/pipe to external tools.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/willibrandon/pgtail/internal/config"
	"github.com/willibrandon/pgtail/internal/export"
	"github.com/willibrandon/pgtail/internal/filter"
	"github.com/willibrandon/pgtail/internal/highlight"
	"github.com/willibrandon/pgtail/internal/history"
	"github.com/willibrandon/pgtail/internal/logger"
	"github.com/willibrandon/pgtail/internal/notify"
	"github.com/willibrandon/pgtail/internal/record"
	"github.com/willibrandon/pgtail/internal/runtime"
	"github.com/willibrandon/pgtail/internal/source"
)

var (
	flagConfigPath  string
	flagDebug       bool
	flagStdin       bool
	flagGlob        string
	flagLevels      []string
	flagRegex       []string
	flagField       []string
	flagSince       string
	flagUntil       string
	flagBetween     []string
	flagFollow      bool
	flagExportPath  string
	flagExportFmt   string
	flagAppend      bool
	flagPreserve    bool
	flagPipe        string
	flagNotifyLevel []string
)

func main() {
	root := &cobra.Command{
		Use:   "pgtail [log files...]",
		Short: "Tail and filter PostgreSQL logs in the terminal",
		Long: "pgtail streams PostgreSQL log files (or stdin) to the terminal, " +
			"with level/regex/field/time filters, syntax highlighting, " +
			"connection and error-rate statistics, and desktop notifications.",
		Args: cobra.ArbitraryArgs,
		RunE: runTail,
	}

	root.Flags().StringVar(&flagConfigPath, "config", "", "path to config.yaml (default searches ~/.config/pgtail)")
	root.Flags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	root.Flags().BoolVar(&flagStdin, "stdin", false, "read log lines from stdin instead of files")
	root.Flags().StringVar(&flagGlob, "glob", "", "glob pattern to dynamically discover additional log files")
	root.Flags().StringSliceVar(&flagLevels, "level", nil, "level filter spec, e.g. WARNING+ (repeatable; the level sets are combined)")
	root.Flags().StringArrayVar(&flagRegex, "regex", nil, "regex filter token: /pat/, +/pat/, -/pat/, &/pat/ (repeatable)")
	root.Flags().StringArrayVar(&flagField, "field", nil, "field=value filter, e.g. database=app (repeatable)")
	root.Flags().StringVar(&flagSince, "since", "", "only show records at or after this time")
	root.Flags().StringVar(&flagUntil, "until", "", "only show records at or before this time")
	root.Flags().StringSliceVar(&flagBetween, "between", nil, "only show records between two times: --between START,END")
	root.Flags().BoolVar(&flagFollow, "follow", true, "start the session in FOLLOW mode")
	root.Flags().StringVar(&flagExportPath, "export", "", "write matching records to this file instead of the terminal; used only with --follow=false (in follow mode records stream to the terminal)")
	root.Flags().StringVar(&flagExportFmt, "export-format", "text", "export format: text, json, or csv")
	root.Flags().BoolVar(&flagAppend, "append", false, "append to --export path instead of truncating")
	root.Flags().BoolVar(&flagPreserve, "preserve-markup", false, "keep inline style markup in TEXT export")
	root.Flags().StringVar(&flagPipe, "pipe", "", "pipe matching records to this shell command instead of the terminal; used only with --follow=false (in follow mode records stream to the terminal)")
	root.Flags().StringSliceVar(&flagNotifyLevel, "notify-level", nil, "additional notification level(s), merged with notifications.levels from config")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runTail(cmd *cobra.Command, args []string) error {
	if !flagStdin && len(args) == 0 && flagGlob == "" {
		return fmt.Errorf("provide at least one log file path, a --glob pattern, or --stdin")
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level := logger.LevelInfo
	if flagDebug || cfg.Debug {
		level = logger.LevelDebug
	}
	logPath := cfg.LogFile
	if logPath == "" {
		logPath = config.DefaultLogPath()
	}
	logger.InitLogger(level, logPath)
	defer logger.Close()
	if logger.IsDebugEnabled() {
		defer printDebugSummary()
	}

	filterState, err := buildFilterState(cfg)
	if err != nil {
		return err
	}

	notifyCfg, err := cfg.Notifications.ToNotifyConfig()
	if err != nil {
		return fmt.Errorf("notifications config: %w", err)
	}
	if len(flagNotifyLevel) > 0 {
		set, invalid := record.ParseLevels(strings.Join(flagNotifyLevel, ","))
		if len(invalid) > 0 {
			return fmt.Errorf("--notify-level: unrecognized level name(s): %v", invalid)
		}
		notifyCfg.AddRule(notify.LevelRule(set))
	}

	width := 120
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = w
	}

	historyBuffer := history.NewBuffer(history.DefaultCapacity, width)
	notifyMgr := notify.NewManager(notifyCfg, desktopNotifier{})
	chain := highlight.NewChain(cfg.Highlighting.ToDurationThresholds(), cfg.Highlighting.EnabledHighlighters)

	if rules, err := config.LoadCustomHighlightRules(config.DefaultHighlightRulesPath()); err != nil {
		logger.Warn("custom highlight rules not loaded", "error", err)
	} else {
		for _, r := range rules {
			re, err := regexp.Compile(r.Pattern)
			if err != nil {
				logger.Warn("skipping custom highlight rule", "name", r.Name, "error", err)
				continue
			}
			chain.AddCustom(r.Name, r.Priority, re, lipgloss.NewStyle().Foreground(lipgloss.Color(r.Color)))
		}
	}

	rt := runtime.New(filterState, historyBuffer, notifyMgr, chain)
	logger.Info("session started", "session_id", rt.SessionID)

	src, err := buildSource(args, filterState, rt.OnRecord)
	if err != nil {
		return err
	}
	rt.SetSource(src)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt.Start()
	defer rt.Stop()

	switch {
	case flagExportPath != "" && !flagFollow:
		return runBatchExport(ctx, rt)
	case flagPipe != "" && !flagFollow:
		return runBatchPipe(ctx, rt)
	default:
		return runStream(ctx, rt)
	}
}

// printDebugSummary writes the session's captured WARN/ERROR tally and log
// entries to stderr. Only runs when --debug (or config Debug) was set.
func printDebugSummary() {
	warn, errs := logger.GetCounts()
	fmt.Fprintf(os.Stderr, "\n--- debug summary: %d warning(s), %d error(s) ---\n", warn, errs)
	for _, e := range logger.GetEntries() {
		fmt.Fprintln(os.Stderr, e.Format())
	}
}

func loadConfig() (*config.Config, error) {
	if flagConfigPath != "" {
		return config.LoadConfigFromPath(flagConfigPath)
	}
	return config.LoadConfig()
}

func buildFilterState(cfg *config.Config) (*filter.State, error) {
	fs := &filter.State{}

	levelSpec := strings.Join(flagLevels, ",")
	if levelSpec == "" {
		levelSpec = strings.Join(cfg.Default.Levels, ",")
	}
	if levelSpec != "" {
		set, invalid := record.ParseLevels(levelSpec)
		if len(invalid) > 0 {
			return nil, fmt.Errorf("--level: unrecognized level name(s): %v", invalid)
		}
		fs.Levels = set
	}

	for _, tok := range flagRegex {
		if err := fs.Regex.ApplyToken(tok); err != nil {
			return nil, fmt.Errorf("--regex %q: %w", tok, err)
		}
	}

	for _, tok := range flagField {
		if err := fs.Field.Add(tok); err != nil {
			return nil, fmt.Errorf("--field %q: %w", tok, err)
		}
	}

	switch {
	case len(flagBetween) == 2:
		tw, err := filter.ParseTimeWindow(fmt.Sprintf("between %s %s", flagBetween[0], flagBetween[1]))
		if err != nil {
			return nil, fmt.Errorf("--between: %w", err)
		}
		fs.TimeWindow = tw
	case flagSince != "" || flagUntil != "":
		if flagSince != "" {
			tw, err := filter.ParseTimeWindow("since " + flagSince)
			if err != nil {
				return nil, fmt.Errorf("--since: %w", err)
			}
			fs.TimeWindow = tw
		}
		if flagUntil != "" {
			tw, err := filter.ParseTimeWindow("until " + flagUntil)
			if err != nil {
				return nil, fmt.Errorf("--until: %w", err)
			}
			fs.TimeWindow.Until = tw.Until
			if fs.TimeWindow.Since == nil {
				fs.TimeWindow.Original = tw.Original
			}
		}
	}

	if !flagFollow {
		historyStartsPaused = true
	}

	return fs, nil
}

// historyStartsPaused records whether --follow=false was requested, so the
// stream loop can pause the viewport immediately after construction.
var historyStartsPaused bool

func buildSource(paths []string, filterState *filter.State, onAny source.OnRecord) (runtime.Stoppable, error) {
	if flagStdin {
		return source.NewStdinReader(filterState, onAny), nil
	}
	if len(paths) == 1 && flagGlob == "" {
		return source.NewFileTailer(paths[0], filterState, onAny), nil
	}
	return source.NewFanIn(paths, flagGlob, filterState, onAny), nil
}

func runStream(ctx context.Context, rt *runtime.Runtime) error {
	if historyStartsPaused {
		rt.Pause()
	}

	printed := 0
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			printSummary(rt)
			return nil
		case <-ticker.C:
			lines := rt.History.VisibleLines(rt.History.Len())
			for _, fr := range lines[printed:] {
				if fr.Record.Raw == "" && !fr.PassesFilter {
					continue
				}
				fmt.Println(highlight.Render(fr.Record.Raw, fr.Spans))
			}
			if len(lines) > printed {
				printed = len(lines)
			}
		}
	}
}

func runBatchExport(ctx context.Context, rt *runtime.Runtime) error {
	fmt_, err := export.ParseFormat(flagExportFmt)
	if err != nil {
		return err
	}

	<-ctx.Done()

	records := snapshotPassingRecords(rt)
	n, err := export.ToFile(records, flagExportPath, fmt_, flagPreserve, flagAppend)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, export.WarnNoColor(export.PreviewLine(n, flagExportPath, time.Now())))
	return nil
}

func runBatchPipe(ctx context.Context, rt *runtime.Runtime) error {
	fmt_, err := export.ParseFormat(flagExportFmt)
	if err != nil {
		return err
	}

	<-ctx.Done()

	records := snapshotPassingRecords(rt)
	result, err := export.ToCommand(records, flagPipe, fmt_, flagPreserve)
	if err != nil {
		return err
	}
	fmt.Print(result.Stdout)
	fmt.Fprint(os.Stderr, result.Stderr)
	return nil
}

func snapshotPassingRecords(rt *runtime.Runtime) []record.LogRecord {
	lines := rt.History.VisibleLines(rt.History.Len())
	out := make([]record.LogRecord, 0, len(lines))
	for _, fr := range lines {
		if fr.PassesFilter {
			out = append(out, fr.Record)
		}
	}
	return out
}

func printSummary(rt *runtime.Runtime) {
	warn := color.New(color.FgYellow)
	warn.Fprintf(os.Stderr, "\npgtail: %d error-class events, %d active connections, %d duration samples\n",
		rt.Errors.EventCount(), rt.Conns.ActiveCount(), rt.Durations.Count())
	if rt.Durations.Count() > 0 {
		fmt.Fprintln(os.Stderr, rt.Durations.FormatSummary())
	}
}

// desktopNotifier prints notifications to stderr; a real desktop
// notification backend (per-platform) is outside this CLI's scope.
type desktopNotifier struct{}

func (desktopNotifier) Send(title, body, subtitle string) error {
	bold := color.New(color.Bold)
	bold.Fprintf(os.Stderr, "[notify] %s: %s\n", title, body)
	return nil
}
