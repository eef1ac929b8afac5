package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/modtask/internal/clierr"
	"github.com/twiced-technology-gmbh/modtask/internal/config"
	"github.com/twiced-technology-gmbh/modtask/internal/output"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new workspace",
	Long: `Creates ` + config.ConfigFileName + ` and the first modulepath directory
in the workspace root (the current directory, or --dir).`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().String("name", "", "workspace name (defaults to the directory name)")
	initCmd.Flags().StringSlice("modulepath", nil, "modulepath entries, relative to the workspace root (comma-separated)")
	initCmd.Flags().String("tasks-dir", "", "name of the tasks directory inside each module")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, _ []string) error {
	dir := flagDir
	if dir == "" {
		dir = "."
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}

	if _, err := os.Stat(filepath.Join(absDir, config.ConfigFileName)); err == nil {
		return clierr.Newf(clierr.WorkspaceAlreadyExists, "workspace already initialized in %s", absDir).
			WithDetails(map[string]any{"dir": absDir})
	}

	name, _ := cmd.Flags().GetString("name")
	if name == "" {
		name = filepath.Base(absDir)
	}

	cfg := config.NewDefault(name)
	cfg.SetDir(absDir)
	if v, _ := cmd.Flags().GetStringSlice("modulepath"); len(v) > 0 {
		cfg.ModulePath = v
	}
	if v, _ := cmd.Flags().GetString("tasks-dir"); v != "" {
		cfg.TasksDir = v
	}
	// With init, --strict becomes the workspace default.
	if flagStrict != "" {
		cfg.Strict = flagStrict
	}

	if err := cfg.Validate(); err != nil {
		return clierr.New(clierr.InvalidInput, err.Error()).WithCause(err)
	}

	const dirMode = 0o750
	for _, p := range cfg.ModulePaths() {
		if err := os.MkdirAll(p, dirMode); err != nil {
			return fmt.Errorf("creating modulepath directory: %w", err)
		}
	}

	if err := cfg.Save(); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]any{
			"status":     "initialized",
			"dir":        absDir,
			"name":       name,
			"config":     cfg.ConfigPath(),
			"modulepath": cfg.ModulePaths(),
			"tasks_dir":  cfg.TasksDir,
		})
	}

	output.Messagef(os.Stdout, "Initialized workspace %q in %s", name, absDir)
	output.Messagef(os.Stdout, "  Config:     %s", cfg.ConfigPath())
	for _, p := range cfg.ModulePaths() {
		output.Messagef(os.Stdout, "  Modulepath: %s", p)
	}
	output.Messagef(os.Stdout, "  Hint:       Scaffold a task with: modtask new <module>::<task>")
	return nil
}
