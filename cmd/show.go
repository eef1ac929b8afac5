package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/twiced-technology-gmbh/modtask/internal/catalog"
	"github.com/twiced-technology-gmbh/modtask/internal/clierr"
	"github.com/twiced-technology-gmbh/modtask/internal/output"
)

var showCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Show task details",
	Long: `Displays a single task: its files, its metadata, and its description
rendered as markdown. NAME is "module::task", or "module" for the
module's init task.

With --field, prints only the metadata value at a dot-separated path
(e.g. "parameters.port.type").`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().String("field", "", "print only the metadata value at this path")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	cfg, modules, err := loadWorkspace()
	if err != nil {
		return err
	}
	metaOpts, err := metadataOptions(cfg)
	if err != nil {
		return err
	}

	t, err := catalog.Lookup(modules, args[0])
	if err != nil {
		return err
	}

	metadata, err := t.Metadata(metaOpts)
	if err != nil {
		return err
	}

	if field, _ := cmd.Flags().GetString("field"); field != "" {
		return showField(t.Name, metadata, field)
	}

	format := outputFormat()
	if format == output.FormatJSON {
		return output.JSON(os.Stdout, taskView(t, metaOpts, true))
	}
	if format == output.FormatCompact {
		output.TaskDetailCompact(os.Stdout, t, metadata)
		return nil
	}

	description, err := output.Markdown(os.Stdout, t.Description(metaOpts), flagNoColor)
	if err != nil {
		logger.Debug("markdown rendering failed", "error", err)
		description = t.Description(metaOpts)
	}
	output.TaskDetail(os.Stdout, t, metadata, description)
	return nil
}

// showField prints the metadata value at path. Strings print bare, other
// values as JSON.
func showField(taskName string, metadata map[string]any, path string) error {
	data, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}

	result := gjson.GetBytes(data, path)
	if !result.Exists() {
		return clierr.Newf(clierr.FieldNotFound, "task %s has no metadata field %q", taskName, path).
			WithDetails(map[string]any{"task": taskName, "field": path})
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, result.Value())
	}
	if result.Type == gjson.String {
		fmt.Fprintln(os.Stdout, result.String())
		return nil
	}
	fmt.Fprintln(os.Stdout, result.Raw)
	return nil
}
