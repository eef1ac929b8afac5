package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/twiced-technology-gmbh/modtask/internal/catalog"
	"github.com/twiced-technology-gmbh/modtask/internal/clierr"
	"github.com/twiced-technology-gmbh/modtask/internal/config"
	"github.com/twiced-technology-gmbh/modtask/internal/module"
	"github.com/twiced-technology-gmbh/modtask/internal/output"
	"github.com/twiced-technology-gmbh/modtask/internal/task"
)

var editCmd = &cobra.Command{
	Use:   "edit NAME[,NAME,...]",
	Short: "Edit task metadata",
	Long: `Modifies fields of a task's metadata file. Only specified fields are
changed; a metadata file is created if the task has none. Keys are
dot-separated paths (e.g. "parameters.port.type"). Values are parsed as
JSON when possible and stored as strings otherwise.
Multiple names can be provided as a comma-separated list.`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

func init() {
	editCmd.Flags().StringArray("set", nil, "set metadata KEY=VALUE (repeatable)")
	editCmd.Flags().StringArray("unset", nil, "remove metadata KEY (repeatable)")
	editCmd.Flags().String("description", "", "new description (replaces the whole description)")
	editCmd.Flags().StringP("append-description", "a", "", "append a paragraph to the description")
	editCmd.Flags().Bool("supports-noop", false, "set supports_noop")
	rootCmd.AddCommand(editCmd)
}

// metadataEdit is one change to apply to a metadata file.
type metadataEdit struct {
	path   string
	value  string // raw JSON or a plain string
	remove bool
}

func runEdit(cmd *cobra.Command, args []string) error {
	names := parseNames(args[0])

	cfg, modules, err := loadWorkspace()
	if err != nil {
		return err
	}

	edits, err := collectEdits(cmd)
	if err != nil {
		return err
	}
	appendDesc, _ := cmd.Flags().GetString("append-description")
	if len(edits) == 0 && appendDesc == "" {
		return clierr.New(clierr.NoChanges, "no changes specified")
	}

	if len(names) == 1 {
		t, err := executeEdit(cfg, modules, names[0], edits, appendDesc)
		if err != nil {
			return err
		}
		if outputFormat() == output.FormatJSON {
			return output.JSON(os.Stdout, t)
		}
		output.Messagef(os.Stdout, "Updated task %s", t.Name)
		return nil
	}

	return runBatch(names, func(name string) error {
		_, err := executeEdit(cfg, modules, name, edits, appendDesc)
		return err
	})
}

// collectEdits turns the edit flags into an ordered list of edits.
func collectEdits(cmd *cobra.Command) ([]metadataEdit, error) {
	var edits []metadataEdit

	sets, _ := cmd.Flags().GetStringArray("set")
	for _, pair := range sets {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, clierr.Newf(clierr.InvalidInput, "invalid assignment %q (expected KEY=VALUE)", pair).
				WithDetails(map[string]any{"assignment": pair})
		}
		edits = append(edits, metadataEdit{path: key, value: raw})
	}

	if cmd.Flags().Changed("description") {
		desc, _ := cmd.Flags().GetString("description")
		edits = append(edits, metadataEdit{path: "description", value: quoteJSON(desc)})
	}
	if cmd.Flags().Changed("supports-noop") {
		v, _ := cmd.Flags().GetBool("supports-noop")
		edits = append(edits, metadataEdit{path: "supports_noop", value: fmt.Sprint(v)})
	}

	unsets, _ := cmd.Flags().GetStringArray("unset")
	for _, key := range unsets {
		if slices.ContainsFunc(edits, func(e metadataEdit) bool { return e.path == key }) {
			return nil, clierr.Newf(clierr.InvalidInput, "key %q is both set and unset", key)
		}
		edits = append(edits, metadataEdit{path: key, remove: true})
	}

	return edits, nil
}

// executeEdit applies edits to the named task's metadata under the workspace
// lock and logs the change.
func executeEdit(cfg *config.Config, modules []*module.Module, name string, edits []metadataEdit, appendDesc string) (*task.Task, error) {
	t, err := catalog.Lookup(modules, name)
	if err != nil {
		return nil, err
	}

	edits = slices.Clone(edits)
	err = withLock(cfg, func() error {
		if appendDesc != "" {
			desc, err := currentDescription(t)
			if err != nil {
				return err
			}
			if desc != "" {
				desc += "\n\n"
			}
			edits = append(edits, metadataEdit{path: "description", value: quoteJSON(desc + appendDesc)})
		}

		for _, e := range edits {
			if e.remove {
				t, err = task.DeleteMetadataField(t, e.path)
			} else {
				t, err = task.SetMetadataField(t, e.path, e.value)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	paths := make([]string, len(edits))
	for i, e := range edits {
		paths[i] = e.path
	}
	logActivity(cfg, "edit", t.Name, strings.Join(paths, ","))
	return t, nil
}

// currentDescription reads the description straight from disk. Faulty
// metadata is an error since rewriting it would lose content.
func currentDescription(t *task.Task) (string, error) {
	meta, err := t.Metadata(task.MetadataOptions{Strict: task.StrictError, Logger: logger})
	if err != nil {
		return "", err
	}
	desc, _ := meta["description"].(string)
	return desc, nil
}

// quoteJSON returns s as a JSON string literal, so it is never reparsed
// as a number or object.
func quoteJSON(s string) string {
	data, _ := json.Marshal(s) //nolint:errchkjson // strings always marshal
	return string(data)
}
