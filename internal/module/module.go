// Package module locates modules inside a workspace's modulepath.
// A module is a named directory holding, among other content, one flat
// tasks directory.
package module

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/twiced-technology-gmbh/modtask/internal/clierr"
)

// DefaultTasksDir is the tasks subdirectory name used when none is configured.
const DefaultTasksDir = "tasks"

// Separator joins a module name and a task name fragment.
const Separator = "::"

// InitFragment is the reserved fragment whose task is named after its module.
const InitFragment = "init"

// Module is a named directory-rooted unit of configuration.
type Module struct {
	Name string `json:"name"`
	Path string `json:"path"`

	tasksDir string
}

// New creates a Module rooted at path. The path is made absolute so that
// every task file derived from it is absolute too.
func New(name, path, tasksDir string) (*Module, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving module path: %w", err)
	}
	if tasksDir == "" {
		tasksDir = DefaultTasksDir
	}
	return &Module{Name: name, Path: absPath, tasksDir: tasksDir}, nil
}

// TasksDirectory returns the absolute path to the module's tasks directory.
func (m *Module) TasksDirectory() string {
	return filepath.Join(m.Path, m.tasksDir)
}

// Discover returns the modules found in the given modulepath entries, in
// modulepath order and then directory order. Every non-hidden directory
// directly inside an entry is a module named after its basename; when two
// entries provide the same name, the first one wins. Entries that do not
// exist are skipped.
func Discover(modulepath []string, tasksDir string) ([]*Module, error) {
	var modules []*Module
	seen := make(map[string]bool)

	for _, root := range modulepath {
		entries, err := os.ReadDir(root)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("reading modulepath entry %s: %w", root, err)
		}

		for _, entry := range entries {
			name := entry.Name()
			if !entry.IsDir() || strings.HasPrefix(name, ".") || seen[name] {
				continue
			}
			m, err := New(name, filepath.Join(root, name), tasksDir)
			if err != nil {
				return nil, err
			}
			seen[name] = true
			modules = append(modules, m)
		}
	}

	return modules, nil
}

// Find returns the module with the given name.
func Find(modules []*Module, name string) (*Module, error) {
	for _, m := range modules {
		if m.Name == name {
			return m, nil
		}
	}
	return nil, clierr.Newf(clierr.ModuleNotFound, "module not found: %s", name).
		WithDetails(map[string]any{"module": name})
}

// SplitTaskName splits a public task name into module name and fragment.
// A bare module name refers to that module's init task.
func SplitTaskName(name string) (moduleName, fragment string) {
	if before, after, ok := strings.Cut(name, Separator); ok {
		return before, after
	}
	return name, InitFragment
}

// TaskName returns the public name of the fragment's task in this module.
func (m *Module) TaskName(fragment string) string {
	if fragment == InitFragment {
		return m.Name
	}
	return m.Name + Separator + fragment
}
