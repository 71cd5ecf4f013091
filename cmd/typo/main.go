// Package main provides the CLI entrypoint for typo.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/typo/internal/config"
	"github.com/verte-zerg/typo/internal/inline"
	"github.com/verte-zerg/typo/internal/logging"
	"github.com/verte-zerg/typo/internal/model"
	"github.com/verte-zerg/typo/internal/phrase"
	"github.com/verte-zerg/typo/internal/stats"
	"github.com/verte-zerg/typo/internal/store"
	"github.com/verte-zerg/typo/internal/trace"
	"github.com/verte-zerg/typo/internal/traceui"
	"github.com/verte-zerg/typo/internal/tui"
)

const defaultLogLevel = "info"

var (
	practiceText     string
	practiceFile     string
	practiceInline   bool
	practiceTrace    string
	practiceLogLevel string

	traceRunID int64
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "typo",
		Short:         "Typing speed trainer",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPracticeCmd,
	}

	rootCmd.Flags().StringVar(&practiceText, "text", "", "phrase to type (printable ASCII)")
	rootCmd.Flags().StringVar(&practiceFile, "file", "", "read the phrase from a file")
	rootCmd.Flags().BoolVar(&practiceInline, "inline", false, "type on the current terminal lines instead of full screen")
	rootCmd.Flags().StringVar(&practiceTrace, "trace", "", "record every keystroke to this SQLite trace database")
	rootCmd.Flags().StringVar(&practiceLogLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newTraceCmd())

	return rootCmd
}

func runPracticeCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.ResolveConfigPath(config.DefaultConfigDir()))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "text", &practiceText, fileCfg.Practice.Text)
	applyStringConfig(cmd, "file", &practiceFile, fileCfg.Practice.File)
	applyBoolConfig(cmd, "inline", &practiceInline, fileCfg.Practice.Inline)
	applyStringConfig(cmd, "trace", &practiceTrace, fileCfg.Practice.Trace)
	applyStringConfig(cmd, "log-level", &practiceLogLevel, fileCfg.Log.Level)

	logPath := config.DefaultLogPath()
	if fileCfg.Log.File != nil && *fileCfg.Log.File != "" {
		logPath = *fileCfg.Log.File
	}
	logFormat := ""
	if fileCfg.Log.Format != nil {
		logFormat = *fileCfg.Log.Format
	}
	logger, err := setupLogging(practiceLogLevel, logFormat, logPath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := logger.Close(); cerr != nil {
			logErrf("failed to close log: %v\n", cerr)
		}
	}()

	cfg := model.Config{
		Text:      practiceText,
		File:      practiceFile,
		Inline:    practiceInline,
		TracePath: practiceTrace,
	}
	text, err := phrase.Resolve(cfg.Text, cfg.File)
	if err != nil {
		return err
	}

	var st *store.Store
	if cfg.TracePath != "" {
		st, err = store.Open(cfg.TracePath)
		if err != nil {
			return fmt.Errorf("failed to open trace db: %w", err)
		}
		defer func() {
			if cerr := st.Close(); cerr != nil {
				logErrf("failed to close trace db: %v\n", cerr)
			}
		}()
	}

	if cfg.Inline {
		return runInline(cmd, text, st, logger.Logger)
	}
	var phrases <-chan string
	if cfg.Text == "" && cfg.File != "" {
		watcher, err := phrase.Watch(cfg.File, logger.Logger)
		if err != nil {
			logger.Warn("phrase file will not be reloaded", "path", cfg.File, "err", err)
		} else {
			defer func() {
				if cerr := watcher.Close(); cerr != nil {
					logger.Warn("failed to stop phrase watcher", "err", cerr)
				}
			}()
			phrases = watcher.Updates()
		}
	}
	return runTUI(cmd, text, st, phrases, logger.Logger)
}

func setupLogging(level, format, path string) (*logging.Logger, error) {
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid --log-level: %w", err)
	}
	fmtKind, err := logging.ParseFormat(format)
	if err != nil {
		return nil, fmt.Errorf("invalid log format: %w", err)
	}
	logCfg := logging.DefaultConfig(path)
	logCfg.Level = lvl
	logCfg.Format = fmtKind
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open log: %w", err)
	}
	logging.SetDefault(logger)
	return logger, nil
}

func beginTrace(st *store.Store, log *slog.Logger, text, mode string) *trace.Recorder {
	if st == nil {
		return nil
	}
	rec, err := trace.Begin(context.Background(), st, log, text, mode)
	if err != nil {
		log.Error("failed to start trace run", "err", err)
		logErrf("tracing disabled: %v\n", err)
		return nil
	}
	return rec
}

func runTUI(cmd *cobra.Command, text string, st *store.Store, phrases <-chan string, log *slog.Logger) error {
	m, err := tui.NewModel(text, tui.Options{
		Log:     log,
		Phrases: phrases,
		NewRecorder: func(text string) *trace.Recorder {
			return beginTrace(st, log, text, "tui")
		},
	})
	if err != nil {
		return err
	}
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	if m.Done() {
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%.2f wpm\n", m.FinalWPM()); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func runInline(cmd *cobra.Command, text string, st *store.Store, log *slog.Logger) error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return errors.New("--inline needs an interactive terminal on stdin")
	}
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		width = 0
	}
	rec := beginTrace(st, log, text, "inline")
	state, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("failed to enable raw mode: %w", err)
	}
	defer func() {
		if rerr := term.Restore(fd, state); rerr != nil {
			logErrf("failed to restore terminal: %v\n", rerr)
		}
	}()

	res, err := inline.Run(cmd.Context(), os.Stdin, cmd.OutOrStdout(), text, inline.Options{
		Log:      log,
		Recorder: rec,
		Width:    width,
	})
	if err != nil {
		return err
	}
	if !res.Completed {
		logErrln("Stopped before the end of the phrase.")
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.ResolveConfigPath(config.DefaultConfigDir())
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newTraceCmd() *cobra.Command {
	traceCmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect recorded keystroke traces",
	}
	listCmd := &cobra.Command{
		Use:   "list [db]",
		Short: "List recorded runs",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTraceListCmd,
	}
	reportCmd := &cobra.Command{
		Use:   "report [db]",
		Short: "Replay a run and print its report",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTraceReportCmd,
	}
	viewCmd := &cobra.Command{
		Use:   "view [db]",
		Short: "Browse a run interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTraceViewCmd,
	}
	for _, c := range []*cobra.Command{reportCmd, viewCmd} {
		c.Flags().Int64Var(&traceRunID, "run", 0, "run id (default: latest)")
	}
	traceCmd.AddCommand(listCmd, reportCmd, viewCmd)
	return traceCmd
}

// reportConfig picks the trace database: the argument, then the configured
// practice trace, then the default data path.
func reportConfig(args []string) model.ReportConfig {
	path := config.DefaultTracePath()
	if fileCfg, err := config.LoadConfig(config.ResolveConfigPath(config.DefaultConfigDir())); err == nil {
		if fileCfg.Practice.Trace != nil && *fileCfg.Practice.Trace != "" {
			path = *fileCfg.Practice.Trace
		}
	}
	if len(args) > 0 {
		path = args[0]
	}
	return model.ReportConfig{Path: path, RunID: traceRunID}
}

// openTrace opens an existing trace database; it never creates one.
func openTrace(path string) (*store.Store, func(), error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("trace db not found: %s (record one with: typo --trace %s)", path, path)
		}
		return nil, nil, fmt.Errorf("failed to stat trace db: %w", err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open trace db: %w", err)
	}
	closeFn := func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close trace db: %v\n", cerr)
		}
	}
	return st, closeFn, nil
}

func runTraceListCmd(cmd *cobra.Command, args []string) error {
	cfg := reportConfig(args)
	st, closeFn, err := openTrace(cfg.Path)
	if err != nil {
		return err
	}
	defer closeFn()
	runs, err := st.ListRuns(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	return stats.RenderRuns(cmd.OutOrStdout(), runs)
}

func runTraceReportCmd(cmd *cobra.Command, args []string) error {
	cfg := reportConfig(args)
	st, closeFn, err := openTrace(cfg.Path)
	if err != nil {
		return err
	}
	defer closeFn()
	report, err := stats.BuildReport(cmd.Context(), st, cfg.RunID)
	if err != nil {
		return err
	}
	return writeReport(cmd.OutOrStdout(), report)
}

func writeReport(w io.Writer, report stats.Report) error {
	if err := stats.RenderReport(w, report, 0); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func runTraceViewCmd(_ *cobra.Command, args []string) error {
	cfg := reportConfig(args)
	st, closeFn, err := openTrace(cfg.Path)
	if err != nil {
		return err
	}
	defer closeFn()

	m := traceui.NewModel(st, cfg)
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run trace viewer: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# typo configuration
# Uncomment a value to enable it. CLI flags override config values.

[practice]
# text = %q
# file = "/path/to/phrases.txt"  # Lines are joined with spaces
# inline = false          # Type on the current terminal lines
# trace = %q

[log]
# level = %q            # debug, info, warn or error
# format = "text"         # text or json
# file = %q
`,
		phrase.Default,
		config.DefaultTracePath(),
		defaultLogLevel,
		config.DefaultLogPath(),
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
