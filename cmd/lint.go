package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/modtask/internal/catalog"
	"github.com/twiced-technology-gmbh/modtask/internal/clierr"
	"github.com/twiced-technology-gmbh/modtask/internal/output"
)

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Check task metadata files",
	Long: `Loads every task's metadata file as if strictness were "error" and
reports each file that is not a JSON object. With --fix, faulty files are
repaired in place when the repaired text is a JSON object.

Exits with status 1 while any faulty file remains.`,
	Args: cobra.NoArgs,
	RunE: runLint,
}

func init() {
	lintCmd.Flags().Bool("fix", false, "repair faulty metadata files in place")
	lintCmd.Flags().StringSliceP("module", "m", nil, "lint only these modules (comma-separated)")
	rootCmd.AddCommand(lintCmd)
}

func runLint(cmd *cobra.Command, _ []string) error {
	cfg, modules, err := loadWorkspace()
	if err != nil {
		return err
	}
	metaOpts, err := metadataOptions(cfg)
	if err != nil {
		return err
	}

	fix, _ := cmd.Flags().GetBool("fix")
	moduleNames, _ := cmd.Flags().GetStringSlice("module")

	tasks, warnings, err := catalog.List(modules, catalog.ListOptions{
		Filter: catalog.FilterOptions{Modules: moduleNames},
	})
	printWarnings(warnings)
	if err != nil {
		return err
	}

	var results []catalog.LintResult
	if fix {
		err := withLock(cfg, func() error {
			results = catalog.Lint(tasks, true, metaOpts)
			return nil
		})
		if err != nil {
			return err
		}
	} else {
		results = catalog.Lint(tasks, false, metaOpts)
	}

	for _, r := range results {
		if r.Fixed {
			logActivity(cfg, "lint-fix", r.Task, r.File)
		}
	}

	if outputFormat() == output.FormatJSON {
		if results == nil {
			results = []catalog.LintResult{}
		}
		if err := output.JSON(os.Stdout, results); err != nil {
			return err
		}
	} else {
		output.LintTable(os.Stdout, results)
	}

	if catalog.Faulty(results) {
		return &clierr.SilentError{Code: 1}
	}
	return nil
}
