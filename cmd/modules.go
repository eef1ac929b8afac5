package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/modtask/internal/catalog"
	"github.com/twiced-technology-gmbh/modtask/internal/module"
	"github.com/twiced-technology-gmbh/modtask/internal/output"
)

var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "List modules",
	Long:  `Lists the modules found on the workspace's modulepath with their task counts.`,
	Args:  cobra.NoArgs,
	RunE:  runModules,
}

func init() {
	rootCmd.AddCommand(modulesCmd)
}

// moduleView is the JSON shape of a module.
type moduleView struct {
	*module.Module
	TasksDir string `json:"tasks_dir"`
	Tasks    int    `json:"tasks"`
}

func runModules(_ *cobra.Command, _ []string) error {
	_, modules, err := loadWorkspace()
	if err != nil {
		return err
	}

	tasks, warnings := catalog.Scan(modules)
	printWarnings(warnings)

	counts := make(map[string]int, len(modules))
	for _, t := range tasks {
		counts[t.Module().Name]++
	}

	switch outputFormat() {
	case output.FormatJSON:
		views := make([]moduleView, 0, len(modules))
		for _, m := range modules {
			views = append(views, moduleView{Module: m, TasksDir: m.TasksDirectory(), Tasks: counts[m.Name]})
		}
		return output.JSON(os.Stdout, views)
	case output.FormatCompact:
		output.ModuleCompact(os.Stdout, modules, counts)
	default:
		output.ModuleTable(os.Stdout, modules, counts)
	}
	return nil
}
