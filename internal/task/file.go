package task

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/twiced-technology-gmbh/modtask/internal/clierr"
	"github.com/twiced-technology-gmbh/modtask/internal/module"
)

const (
	dirMode        = 0o750
	metadataMode   = 0o644
	executableMode = 0o755
)

// DefaultMetadata is written to the metadata file of a newly scaffolded task.
var DefaultMetadata = map[string]any{
	"description":           "",
	"spec_version":          "1.0.0",
	"supports_noop":         false,
	"input":                 []any{"stdin", "environment"},
	"input_format":          "json",
	"output_format":         "plaintext",
	"additional_parameters": true,
	"required_parameters":   []any{},
	"parameters":            map[string]any{},
}

// ScaffoldOptions controls the files Scaffold writes.
type ScaffoldOptions struct {
	Extension  string         // executable extension including the dot, e.g. ".sh"; "" for none
	Metadata   map[string]any // overrides merged over DefaultMetadata
	NoMetadata bool           // skip writing the metadata file
}

// Scaffold creates a new task in module m: an empty executable and, unless
// disabled, a metadata file seeded from DefaultMetadata.
func Scaffold(m *module.Module, fragment string, opts ScaffoldOptions) (*Task, error) {
	if !IsTaskName(fragment) {
		return nil, InvalidName(fragment)
	}

	exeName := fragment + opts.Extension
	if opts.Extension != "" && (!strings.HasPrefix(opts.Extension, ".") || !IsTasksExecutableFilename(exeName)) {
		return nil, clierr.Newf(clierr.InvalidInput, "invalid executable extension %q", opts.Extension).
			WithDetails(map[string]any{"extension": opts.Extension})
	}

	if err := ensureStemFree(m, fragment); err != nil {
		return nil, err
	}

	dir := m.TasksDirectory()
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return nil, fmt.Errorf("creating tasks directory: %w", err)
	}

	var metadataFile string
	if !opts.NoMetadata {
		meta := maps.Clone(DefaultMetadata)
		maps.Copy(meta, opts.Metadata)
		data, err := json.MarshalIndent(meta, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshaling metadata: %w", err)
		}
		metadataFile = filepath.Join(dir, fragment+metadataExtension)
		if err := WriteMetadata(metadataFile, append(data, '\n')); err != nil {
			return nil, err
		}
	}

	exePath := filepath.Join(dir, exeName)
	if err := os.WriteFile(exePath, nil, executableMode); err != nil { //nolint:gosec // task executables must be executable
		if metadataFile != "" {
			_ = os.Remove(metadataFile)
		}
		return nil, fmt.Errorf("writing executable: %w", err)
	}

	return New(m, fragment, []string{exePath}, metadataFile)
}

// Remove deletes every file of the task. Files already gone are ignored.
func Remove(t *Task) error {
	for _, f := range t.AllFiles() {
		if err := os.Remove(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("removing %s: %w", f, err)
		}
	}
	return nil
}

// Rename moves every file of the task to the new fragment's stem, keeping
// extensions, and returns the renamed task.
func Rename(t *Task, fragment string) (*Task, error) {
	if !IsTaskName(fragment) {
		return nil, InvalidName(fragment)
	}
	m := t.Module()
	if err := ensureStemFree(m, fragment); err != nil {
		return nil, err
	}

	// Completed renames are undone if a later one fails.
	var done [][2]string
	rename := func(src string) (string, error) {
		dst := filepath.Join(filepath.Dir(src), fragment+filepath.Ext(src))
		if err := os.Rename(src, dst); err != nil {
			for i := len(done) - 1; i >= 0; i-- {
				_ = os.Rename(done[i][1], done[i][0])
			}
			return "", fmt.Errorf("renaming %s: %w", src, err)
		}
		done = append(done, [2]string{src, dst})
		return dst, nil
	}

	files := make([]string, 0, len(t.Files))
	for _, f := range t.Files {
		dst, err := rename(f)
		if err != nil {
			return nil, err
		}
		files = append(files, dst)
	}

	var metadataFile string
	if t.MetadataFile != "" {
		dst, err := rename(t.MetadataFile)
		if err != nil {
			return nil, err
		}
		metadataFile = dst
	}

	return New(m, fragment, files, metadataFile)
}

// SetMetadataField sets the value at a dot-separated path in the task's
// metadata file, creating the file if the task has none. value is used as
// raw JSON when it parses as JSON and as a string otherwise. The returned
// task has a fresh, unevaluated metadata cache.
func SetMetadataField(t *Task, path, value string) (*Task, error) {
	return editMetadata(t, func(data []byte) ([]byte, error) {
		if gjson.Valid(value) {
			return sjson.SetRawBytes(data, path, []byte(value))
		}
		return sjson.SetBytes(data, path, value)
	})
}

// DeleteMetadataField removes the value at a dot-separated path in the
// task's metadata file.
func DeleteMetadataField(t *Task, path string) (*Task, error) {
	if t.MetadataFile == "" {
		return t, nil
	}
	return editMetadata(t, func(data []byte) ([]byte, error) {
		return sjson.DeleteBytes(data, path)
	})
}

func editMetadata(t *Task, edit func([]byte) ([]byte, error)) (*Task, error) {
	metadataFile := t.MetadataFile
	data := []byte("{}")
	if metadataFile == "" {
		metadataFile = filepath.Join(t.Module().TasksDirectory(), t.Fragment()+metadataExtension)
	} else {
		raw, err := os.ReadFile(metadataFile)
		if err != nil {
			return nil, fmt.Errorf("reading metadata: %w", err)
		}
		data = raw
	}

	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject() {
		return nil, FaultyMetadata(t.Name, metadataFile, errors.New("not a JSON object"))
	}

	updated, err := edit(data)
	if err != nil {
		return nil, fmt.Errorf("editing metadata: %w", err)
	}
	if err := WriteMetadata(metadataFile, updated); err != nil {
		return nil, err
	}

	return New(t.Module(), t.Fragment(), t.Files, metadataFile)
}

// WriteMetadata writes raw metadata to path.
func WriteMetadata(path string, data []byte) error {
	if err := os.WriteFile(path, data, metadataMode); err != nil { //nolint:gosec // metadata is shared with task runners
		return fmt.Errorf("writing metadata: %w", err)
	}
	return nil
}

// ensureStemFree fails when any file in the tasks directory already uses
// fragment as its stem.
func ensureStemFree(m *module.Module, fragment string) error {
	existing, err := Find(m, fragment)
	if err == nil {
		return AlreadyExists(existing.Name, existing.AllFiles()[0])
	}
	if clierr.CodeOf(err) != clierr.TaskNotFound {
		return err
	}
	return nil
}
