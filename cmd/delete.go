package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/twiced-technology-gmbh/modtask/internal/catalog"
	"github.com/twiced-technology-gmbh/modtask/internal/clierr"
	"github.com/twiced-technology-gmbh/modtask/internal/config"
	"github.com/twiced-technology-gmbh/modtask/internal/module"
	"github.com/twiced-technology-gmbh/modtask/internal/output"
	"github.com/twiced-technology-gmbh/modtask/internal/task"
)

var deleteCmd = &cobra.Command{
	Use:     "delete NAME[,NAME,...]",
	Aliases: []string{"rm"},
	Short:   "Delete a task",
	Long: `Removes every file of a task: its executables and its metadata file.
Prompts for confirmation in interactive mode.
Multiple names can be provided as a comma-separated list (requires --yes).`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	deleteCmd.Flags().BoolP("yes", "y", false, "skip confirmation prompt")
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	names := parseNames(args[0])

	cfg, modules, err := loadWorkspace()
	if err != nil {
		return err
	}

	yes, _ := cmd.Flags().GetBool("yes")

	if len(names) > 1 && !yes {
		return clierr.New(clierr.ConfirmationReq, "batch delete requires --yes")
	}

	if len(names) == 1 {
		return deleteSingleTask(cfg, modules, names[0], yes)
	}

	return runBatch(names, func(name string) error {
		t, err := catalog.Lookup(modules, name)
		if err != nil {
			return err
		}
		return removeAndLog(cfg, t)
	})
}

// deleteSingleTask handles a single task delete with confirmation and output.
func deleteSingleTask(cfg *config.Config, modules []*module.Module, name string, yes bool) error {
	t, err := catalog.Lookup(modules, name)
	if err != nil {
		return err
	}

	if !yes {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return clierr.New(clierr.ConfirmationReq,
				"cannot prompt for confirmation (not a terminal); use --yes")
		}
		fmt.Fprintf(os.Stderr, "Delete task %s (%d files)? [y/N] ", t.Name, len(t.AllFiles()))
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		answer = strings.TrimSpace(strings.ToLower(answer))
		if answer != "y" && answer != "yes" {
			fmt.Fprintln(os.Stderr, "Canceled.")
			return nil
		}
	}

	if err := removeAndLog(cfg, t); err != nil {
		return err
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]interface{}{
			"status": "deleted",
			"name":   t.Name,
			"files":  t.AllFiles(),
		})
	}

	output.Messagef(os.Stdout, "Deleted task %s", t.Name)
	return nil
}

// removeAndLog deletes the task's files and logs the delete action.
func removeAndLog(cfg *config.Config, t *task.Task) error {
	if err := withLock(cfg, func() error { return task.Remove(t) }); err != nil {
		return err
	}
	logActivity(cfg, "delete", t.Name, strings.Join(t.AllFiles(), ","))
	return nil
}

// parseNames splits a comma-separated list of task names, dropping blanks
// and duplicates.
func parseNames(arg string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, n := range strings.Split(arg, ",") {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		names = append(names, n)
	}
	return names
}
