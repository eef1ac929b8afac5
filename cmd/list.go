package cmd

import (
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/modtask/internal/catalog"
	"github.com/twiced-technology-gmbh/modtask/internal/clierr"
	"github.com/twiced-technology-gmbh/modtask/internal/output"
	"github.com/twiced-technology-gmbh/modtask/internal/task"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks",
	Long: `Lists the tasks of every module with optional filtering, sorting, and
output format control. Descriptions are read from metadata files.`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringSliceP("module", "m", nil, "filter by module (comma-separated)")
	listCmd.Flags().Bool("with-metadata", false, "show only tasks that have a metadata file")
	listCmd.Flags().Bool("without-metadata", false, "show only tasks without a metadata file")
	listCmd.Flags().Bool("metadata-only", false, "show only tasks without executables")
	listCmd.Flags().StringP("search", "s", "", "search tasks by name or description (case-insensitive)")
	listCmd.Flags().String("sort", "", "sort field ("+strings.Join(catalog.ValidSortFields(), ", ")+"); default is scan order")
	listCmd.Flags().BoolP("reverse", "r", false, "reverse sort order")
	listCmd.Flags().IntP("limit", "n", 0, "limit number of results")
	listCmd.Flags().String("group-by", "", "group results by field ("+strings.Join(catalog.ValidGroupByFields(), ", ")+")")
	listCmd.MarkFlagsMutuallyExclusive("with-metadata", "without-metadata")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	cfg, modules, err := loadWorkspace()
	if err != nil {
		return err
	}
	metaOpts, err := metadataOptions(cfg)
	if err != nil {
		return err
	}

	moduleNames, _ := cmd.Flags().GetStringSlice("module")
	withMeta, _ := cmd.Flags().GetBool("with-metadata")
	withoutMeta, _ := cmd.Flags().GetBool("without-metadata")
	metaOnly, _ := cmd.Flags().GetBool("metadata-only")
	search, _ := cmd.Flags().GetString("search")
	sortBy, _ := cmd.Flags().GetString("sort")
	reverse, _ := cmd.Flags().GetBool("reverse")
	limit, _ := cmd.Flags().GetInt("limit")
	groupBy, _ := cmd.Flags().GetString("group-by")

	if groupBy != "" && !slices.Contains(catalog.ValidGroupByFields(), groupBy) {
		return clierr.Newf(clierr.InvalidGroupBy, "invalid --group-by field %q; valid: %s",
			groupBy, strings.Join(catalog.ValidGroupByFields(), ", "))
	}
	if sortBy != "" && !slices.Contains(catalog.ValidSortFields(), sortBy) {
		return clierr.Newf(clierr.InvalidInput, "invalid --sort field %q; valid: %s",
			sortBy, strings.Join(catalog.ValidSortFields(), ", "))
	}

	filter := catalog.FilterOptions{
		Modules:      moduleNames,
		MetadataOnly: metaOnly,
		Search:       search,
		Metadata:     metaOpts,
	}
	if withMeta {
		v := true
		filter.HasMetadata = &v
	} else if withoutMeta {
		v := false
		filter.HasMetadata = &v
	}

	tasks, warnings, err := catalog.List(modules, catalog.ListOptions{
		Filter:  filter,
		SortBy:  sortBy,
		Reverse: reverse,
		Limit:   limit,
	})
	printWarnings(warnings)
	if err != nil {
		return err
	}

	if groupBy != "" {
		return outputGroupedList(tasks, groupBy)
	}

	return outputTaskList(tasks, metaOpts)
}

func outputGroupedList(tasks []*task.Task, groupBy string) error {
	grouped := catalog.GroupBy(tasks, groupBy)
	switch outputFormat() {
	case output.FormatJSON:
		return output.JSON(os.Stdout, grouped)
	case output.FormatCompact:
		output.GroupedCompact(os.Stdout, grouped)
	default:
		output.GroupedTable(os.Stdout, grouped)
	}
	return nil
}

func outputTaskList(tasks []*task.Task, metaOpts task.MetadataOptions) error {
	// Faulty metadata under error strictness fails the listing rather than
	// hiding the description.
	for _, t := range tasks {
		if _, err := t.Metadata(metaOpts); err != nil {
			return err
		}
	}
	describe := func(t *task.Task) string { return t.Description(metaOpts) }

	switch outputFormat() {
	case output.FormatJSON:
		views := make([]output.TaskView, 0, len(tasks))
		for _, t := range tasks {
			views = append(views, taskView(t, metaOpts, false))
		}
		return output.JSON(os.Stdout, views)
	case output.FormatCompact:
		output.TaskCompact(os.Stdout, tasks, describe)
	default:
		output.TaskTable(os.Stdout, tasks, describe)
	}
	return nil
}

// taskView builds the JSON view of t. Metadata must already be loaded
// or loadable without error.
func taskView(t *task.Task, metaOpts task.MetadataOptions, withMetadata bool) output.TaskView {
	v := output.TaskView{
		Name:         t.Name,
		Module:       t.Module().Name,
		Files:        t.Files,
		MetadataFile: t.MetadataFile,
		Description:  t.Description(metaOpts),
	}
	if withMetadata {
		v.Metadata, _ = t.Metadata(metaOpts)
	}
	return v
}
