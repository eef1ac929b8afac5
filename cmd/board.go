package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/modtask/internal/catalog"
	"github.com/twiced-technology-gmbh/modtask/internal/clierr"
	"github.com/twiced-technology-gmbh/modtask/internal/config"
	"github.com/twiced-technology-gmbh/modtask/internal/output"
	"github.com/twiced-technology-gmbh/modtask/internal/task"
	"github.com/twiced-technology-gmbh/modtask/internal/watcher"
)

var flagWatch bool

var boardCmd = &cobra.Command{
	Use:     "board",
	Aliases: []string{"summary"},
	Short:   "Show workspace summary",
	Long: `Displays a summary of the workspace: task counts per module, how many
tasks have metadata, how many are metadata-only, and how many have
several executables.

Use --watch to keep the display live-updating. The summary re-renders
automatically whenever task files change on disk. Press Ctrl+C to stop.`,
	RunE: runBoard,
}

func init() {
	rootCmd.AddCommand(boardCmd)
	boardCmd.Flags().BoolVarP(&flagWatch, "watch", "w", false, "live-update the summary on file changes")
	boardCmd.Flags().String("group-by", "", "group tasks by field ("+strings.Join(catalog.ValidGroupByFields(), ", ")+")")
}

func runBoard(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	groupBy, _ := cmd.Flags().GetString("group-by")
	if groupBy != "" && !slices.Contains(catalog.ValidGroupByFields(), groupBy) {
		return clierr.Newf(clierr.InvalidGroupBy, "invalid --group-by field %q; valid: %s",
			groupBy, strings.Join(catalog.ValidGroupByFields(), ", "))
	}

	if err := renderBoard(cfg, groupBy); err != nil {
		return err
	}

	if !flagWatch {
		return nil
	}

	return watchBoard(cfg, groupBy)
}

func renderBoard(cfg *config.Config, groupBy string) error {
	modules, err := cfg.Modules()
	if err != nil {
		return err
	}
	tasks, warnings := catalog.Scan(modules)
	printWarnings(warnings)
	if tasks == nil {
		tasks = []*task.Task{}
	}

	if groupBy != "" {
		return outputGroupedList(tasks, groupBy)
	}

	summary := catalog.Summary(cfg.Name, modules, tasks)

	format := outputFormat()
	if format == output.FormatJSON {
		return output.JSON(os.Stdout, summary)
	}
	if format == output.FormatCompact {
		output.OverviewCompact(os.Stdout, summary)
		return nil
	}

	output.OverviewTable(os.Stdout, summary)
	return nil
}

func watchBoard(cfg *config.Config, groupBy string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w, err := watcher.New(watchPaths(cfg), func() {
		clearScreen()
		// Re-load config in case the modulepath changed.
		freshCfg, loadErr := config.Load(cfg.Dir())
		if loadErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: reloading config: %v\n", loadErr)
			freshCfg = cfg
		}
		if renderErr := renderBoard(freshCfg, groupBy); renderErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: rendering summary: %v\n", renderErr)
		}
	}, watcher.WithFilter(isWatchedFile))
	if err != nil {
		return fmt.Errorf("starting file watcher: %w", err)
	}
	defer w.Close()

	fmt.Fprintln(os.Stderr, "Watching for changes... (Ctrl+C to stop)")

	w.Run(ctx, func(watchErr error) {
		fmt.Fprintf(os.Stderr, "Warning: file watcher: %v\n", watchErr)
	})

	return nil
}

// watchPaths returns the workspace root, every modulepath entry, and every
// module's tasks directory. New modules appear only after a restart.
func watchPaths(cfg *config.Config) []string {
	paths := append([]string{cfg.Dir()}, cfg.ModulePaths()...)
	if modules, err := cfg.Modules(); err == nil {
		for _, m := range modules {
			paths = append(paths, m.TasksDirectory())
		}
	}
	return paths
}

// isWatchedFile reports whether a change to path can affect the task list.
func isWatchedFile(path string) bool {
	switch filepath.Base(path) {
	case config.ConfigFileName:
		return true
	case catalog.LogFileName, lockFileName:
		return false
	}
	// Removals and directory changes are not eligible task files, but
	// still change what a scan finds.
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return true
	}
	return task.IsTasksFilename(path)
}

// clearScreen sends ANSI escape codes to clear the terminal and move the
// cursor to the top-left corner.
func clearScreen() {
	fmt.Fprint(os.Stdout, "\033[2J\033[H")
}
