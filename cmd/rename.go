package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/modtask/internal/catalog"
	"github.com/twiced-technology-gmbh/modtask/internal/clierr"
	"github.com/twiced-technology-gmbh/modtask/internal/module"
	"github.com/twiced-technology-gmbh/modtask/internal/output"
	"github.com/twiced-technology-gmbh/modtask/internal/task"
)

var renameCmd = &cobra.Command{
	Use:     "rename NAME NEW",
	Aliases: []string{"mv"},
	Short:   "Rename a task",
	Long: `Renames every file of a task to a new name stem within the same module.
NEW is either a bare task name or "module::task" naming the same module.`,
	Args: cobra.ExactArgs(2), //nolint:mnd // old and new name
	RunE: runRename,
}

func init() {
	rootCmd.AddCommand(renameCmd)
}

// renameResult reports the old name alongside the renamed task.
type renameResult struct {
	*task.Task
	From string `json:"from"`
}

func runRename(_ *cobra.Command, args []string) error {
	cfg, modules, err := loadWorkspace()
	if err != nil {
		return err
	}

	t, err := catalog.Lookup(modules, args[0])
	if err != nil {
		return err
	}

	fragment, err := targetFragment(t, args[1])
	if err != nil {
		return err
	}

	if fragment == t.Fragment() {
		return clierr.Newf(clierr.NoChanges, "task %s already has that name", t.Name)
	}

	var renamed *task.Task
	err = withLock(cfg, func() error {
		renamed, err = task.Rename(t, fragment)
		return err
	})
	if err != nil {
		return err
	}

	logActivity(cfg, "rename", renamed.Name, "from "+t.Name)

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, renameResult{Task: renamed, From: t.Name})
	}

	output.Messagef(os.Stdout, "Renamed task %s -> %s", t.Name, renamed.Name)
	return nil
}

// targetFragment resolves the new name argument to a fragment of t's module.
func targetFragment(t *task.Task, arg string) (string, error) {
	moduleName, fragment := module.SplitTaskName(arg)
	if moduleName == arg {
		// A bare argument is the new fragment itself.
		return arg, nil
	}
	if moduleName != t.Module().Name {
		return "", clierr.Newf(clierr.InvalidInput, "cannot move task %s to module %s", t.Name, moduleName).
			WithDetails(map[string]any{"name": t.Name, "module": moduleName})
	}
	return fragment, nil
}
