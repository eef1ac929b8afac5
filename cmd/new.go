package cmd

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tidwall/gjson"

	"github.com/twiced-technology-gmbh/modtask/internal/clierr"
	"github.com/twiced-technology-gmbh/modtask/internal/module"
	"github.com/twiced-technology-gmbh/modtask/internal/output"
	"github.com/twiced-technology-gmbh/modtask/internal/task"
)

var newCmd = &cobra.Command{
	Use:     "new NAME",
	Aliases: []string{"create", "add"},
	Short:   "Scaffold a new task",
	Long: `Creates an empty executable and a metadata file for a new task in an
existing module. NAME is "module::task", or "module" for the module's
init task.

Metadata starts from the standard task metadata keys; --description and
--set override individual keys. --set values are parsed as JSON when
possible and stored as strings otherwise.`,
	Args: cobra.ExactArgs(1),
	RunE: runNew,
}

func init() {
	newCmd.Flags().String("ext", ".sh", `executable extension, or "" for none`)
	newCmd.Flags().String("description", "", "task description (markdown)")
	newCmd.Flags().StringArray("set", nil, "metadata KEY=VALUE (repeatable)")
	newCmd.Flags().Bool("no-metadata", false, "do not write a metadata file")
	newCmd.Flags().SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		switch name {
		case "desc":
			name = "description"
		case "extension":
			name = "ext"
		}
		return pflag.NormalizedName(name)
	})
	rootCmd.AddCommand(newCmd)
}

func runNew(cmd *cobra.Command, args []string) error {
	cfg, modules, err := loadWorkspace()
	if err != nil {
		return err
	}

	moduleName, fragment := module.SplitTaskName(args[0])
	m, err := module.Find(modules, moduleName)
	if err != nil {
		return err
	}

	ext, _ := cmd.Flags().GetString("ext")
	noMeta, _ := cmd.Flags().GetBool("no-metadata")
	sets, _ := cmd.Flags().GetStringArray("set")

	overrides, err := parseAssignments(sets)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("description") {
		desc, _ := cmd.Flags().GetString("description")
		overrides["description"] = desc
	}
	if noMeta && len(overrides) > 0 {
		return clierr.New(clierr.InvalidInput, "--no-metadata cannot be combined with --description or --set")
	}

	var t *task.Task
	err = withLock(cfg, func() error {
		t, err = task.Scaffold(m, fragment, task.ScaffoldOptions{
			Extension:  ext,
			Metadata:   overrides,
			NoMetadata: noMeta,
		})
		return err
	})
	if err != nil {
		return err
	}

	logActivity(cfg, "create", t.Name, strings.Join(t.AllFiles(), ","))

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, t)
	}

	output.Messagef(os.Stdout, "Created task %s", t.Name)
	for _, f := range t.AllFiles() {
		output.Messagef(os.Stdout, "  File: %s", f)
	}
	return nil
}

// parseAssignments parses KEY=VALUE pairs. Values that are valid JSON are
// decoded with numbers kept exact; anything else is kept as a string.
func parseAssignments(pairs []string) (map[string]any, error) {
	values := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, clierr.Newf(clierr.InvalidInput, "invalid assignment %q (expected KEY=VALUE)", pair).
				WithDetails(map[string]any{"assignment": pair})
		}
		values[key] = assignmentValue(raw)
	}
	return values, nil
}

func assignmentValue(raw string) any {
	if !gjson.Valid(raw) {
		return raw
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return raw
	}
	return v
}
