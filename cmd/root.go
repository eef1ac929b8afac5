// Package cmd implements the modtask CLI commands.
package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/modtask/internal/catalog"
	"github.com/twiced-technology-gmbh/modtask/internal/clierr"
	"github.com/twiced-technology-gmbh/modtask/internal/config"
	"github.com/twiced-technology-gmbh/modtask/internal/filelock"
	"github.com/twiced-technology-gmbh/modtask/internal/module"
	"github.com/twiced-technology-gmbh/modtask/internal/output"
	"github.com/twiced-technology-gmbh/modtask/internal/task"
)

// version is set at build time via ldflags.
var version = "dev"

const lockFileName = ".modtask.lock"

// Global flags.
var (
	flagJSON     bool
	flagTable    bool
	flagCompact  bool
	flagDir      string
	flagNoColor  bool
	flagStrict   string
	flagLogLevel string
)

// logger is the diagnostic channel; it writes to stderr.
var logger = slog.New(newLogHandler(slog.LevelWarn))

var rootCmd = &cobra.Command{
	Use:   "modtask",
	Short: "Discover and manage the tasks of configuration modules",
	Long: `modtask finds the tasks in each module's tasks directory, groups their
executables and metadata files, and lets you inspect and edit them.
Run modtask with no arguments to open the task browser.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          runTUI,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		if flagNoColor || os.Getenv("NO_COLOR") != "" {
			output.DisableColor()
		}
		level, err := parseLevel(flagLogLevel)
		if err != nil {
			return err
		}
		logger = slog.New(newLogHandler(level))
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVar(&flagTable, "table", false, "output as table")
	rootCmd.PersistentFlags().BoolVar(&flagCompact, "compact", false, "compact one-line-per-record output")
	rootCmd.PersistentFlags().BoolVar(&flagCompact, "oneline", false, "alias for --compact")
	rootCmd.PersistentFlags().StringVar(&flagDir, "dir", "", "path to workspace root")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable color output")
	rootCmd.PersistentFlags().StringVar(&flagStrict, "strict", "", "metadata strictness (warning, error); overrides "+config.StrictEnv+" and config")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "diagnostic log level (debug, info, warn, error)")
}

// Execute runs the root command.
func Execute() {
	_, err := rootCmd.ExecuteC()
	if err == nil {
		return
	}

	// SilentError: exit with its code, no output.
	var silent *clierr.SilentError
	if errors.As(err, &silent) {
		os.Exit(silent.Code)
	}

	jsonMode := flagJSON
	if !jsonMode {
		jsonMode = os.Getenv(output.OutputEnv) == "json"
	}

	if jsonMode {
		var cliErr *clierr.Error
		if errors.As(err, &cliErr) {
			output.JSONError(os.Stdout, cliErr.Code, cliErr.Message, cliErr.Details)
			os.Exit(cliErr.ExitCode())
		}
		// Unknown error: report as INTERNAL_ERROR.
		output.JSONError(os.Stdout, clierr.InternalError, err.Error(), nil)
		os.Exit(2) //nolint:mnd // exit code 2 for internal errors
	}

	fmt.Fprintln(os.Stderr, err)
	var cliErr *clierr.Error
	if errors.As(err, &cliErr) {
		os.Exit(cliErr.ExitCode())
	}
	os.Exit(1)
}

// newLogHandler returns a text handler for stderr without timestamps, which
// only add noise to interactive output.
func newLogHandler(level slog.Level) slog.Handler {
	return slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	})
}

// parseLevel parses a --log-level value.
func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, clierr.Newf(clierr.InvalidInput, "invalid --log-level %q (expected debug, info, warn, error)", s)
}

// resolveDir returns the absolute path to the workspace root.
func resolveDir() (string, error) {
	if flagDir != "" {
		return filepath.Abs(flagDir)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}

	return config.FindDir(cwd)
}

// loadConfig finds and loads the workspace config.
func loadConfig() (*config.Config, error) {
	dir, err := resolveDir()
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(dir)
	if errors.Is(err, config.ErrNotFound) {
		return nil, clierr.Newf(clierr.WorkspaceNotFound, "no workspace found at %s (run 'modtask init' to create one)", dir).
			WithCause(err)
	}
	if err != nil {
		return nil, err
	}
	logger.Debug("loaded workspace", slog.String("dir", cfg.Dir()), slog.String("name", cfg.Name))
	return cfg, nil
}

// loadWorkspace loads the config and discovers its modules.
func loadWorkspace() (*config.Config, []*module.Module, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	modules, err := cfg.Modules()
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("discovered modules", slog.Int("count", len(modules)))
	return cfg, modules, nil
}

// metadataOptions builds the metadata load options for cfg, resolving
// strictness from --strict, the environment, then the config.
func metadataOptions(cfg *config.Config) (task.MetadataOptions, error) {
	strict, err := cfg.Strictness(flagStrict)
	if err != nil {
		return task.MetadataOptions{}, err
	}
	return task.MetadataOptions{Strict: strict, Logger: logger}, nil
}

// outputFormat returns the detected output format from flags/env.
func outputFormat() output.Format {
	return output.Detect(flagJSON, flagTable, flagCompact)
}

// printWarnings writes module scan warnings to stderr.
func printWarnings(warnings []catalog.ScanWarning) {
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "Warning: skipping module %s: %v\n", w.Module, w.Err)
	}
}

// logActivity appends an entry to the activity log. Errors are silently
// discarded because logging should never fail a command.
func logActivity(cfg *config.Config, action, taskName, detail string) {
	catalog.LogMutation(cfg.Dir(), action, taskName, detail)
}

// withLock runs fn holding the workspace lock, so concurrent modtask
// processes do not interleave file writes.
func withLock(cfg *config.Config, fn func() error) error {
	return filelock.With(filepath.Join(cfg.Dir(), lockFileName), fn)
}

// runBatch executes fn for each name and collects results. Returns a SilentError
// with exit code 1 if any operation failed (after outputting results).
func runBatch(names []string, fn func(string) error) error {
	results := make([]output.BatchResult, 0, len(names))
	anyFailed := false

	for _, name := range names {
		err := fn(name)
		if err != nil {
			anyFailed = true
			var cliErr *clierr.Error
			if errors.As(err, &cliErr) {
				results = append(results, output.BatchResult{Name: name, OK: false, Error: cliErr.Message, Code: cliErr.Code})
			} else {
				results = append(results, output.BatchResult{Name: name, OK: false, Error: err.Error()})
			}
		} else {
			results = append(results, output.BatchResult{Name: name, OK: true})
		}
	}

	if outputFormat() == output.FormatJSON {
		if err := output.JSON(os.Stdout, results); err != nil {
			return err
		}
	} else {
		var succeeded int
		for _, r := range results {
			if r.OK {
				succeeded++
			} else {
				fmt.Fprintf(os.Stderr, "Error: task %s: %s\n", r.Name, r.Error)
			}
		}
		output.Messagef(os.Stdout, "Completed %d/%d operations", succeeded, len(names))
	}

	if anyFailed {
		return &clierr.SilentError{Code: 1}
	}
	return nil
}
