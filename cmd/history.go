package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/modtask/internal/catalog"
	"github.com/twiced-technology-gmbh/modtask/internal/output"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent task changes",
	Long:  `Shows the activity log: tasks created, edited, renamed, deleted or repaired.`,
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "number of entries to show (0 for all)") //nolint:mnd // default page
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	entries, err := catalog.ReadLog(cfg.Dir())
	if err != nil {
		return err
	}

	limit, _ := cmd.Flags().GetInt("limit")
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}

	if outputFormat() == output.FormatJSON {
		if entries == nil {
			entries = []catalog.LogEntry{}
		}
		return output.JSON(os.Stdout, entries)
	}

	output.HistoryTable(os.Stdout, entries)
	return nil
}
