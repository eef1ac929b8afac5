// Package task discovers, validates and groups the tasks of a module and
// loads their metadata on demand.
package task

import (
	"path/filepath"
	"strings"

	"github.com/twiced-technology-gmbh/modtask/internal/module"
)

// Task is one automation unit: one or more executable files plus an
// optional metadata file sharing a name stem in a module's tasks directory.
type Task struct {
	// Name is the public name: "<module>::<fragment>", or the module name
	// for the init fragment.
	Name string `json:"name"`

	// Files are the absolute paths to the executable files, in scan order.
	Files []string `json:"files"`

	// MetadataFile is the absolute path to the metadata file, or "" if none.
	MetadataFile string `json:"metadata_file,omitempty"`

	module   *module.Module
	fragment string
	meta     metadataCache
}

// New constructs a Task after validating fragment and the containment of
// every file in the module's tasks directory. It never reads metadata.
func New(m *module.Module, fragment string, files []string, metadataFile string) (*Task, error) {
	if !IsTaskName(fragment) {
		return nil, InvalidName(fragment)
	}

	all := files
	if metadataFile != "" {
		all = append(append([]string{}, files...), metadataFile)
	}
	for _, f := range all {
		if !inDirectory(f, m.TasksDirectory()) {
			return nil, InvalidFile(f, m.Name)
		}
	}

	if files == nil {
		files = []string{}
	}

	return &Task{
		Name:         m.TaskName(fragment),
		Files:        files,
		MetadataFile: metadataFile,
		module:       m,
		fragment:     fragment,
	}, nil
}

// Module returns the module the task belongs to.
func (t *Task) Module() *module.Module {
	return t.module
}

// Fragment returns the unqualified name the task was constructed with.
func (t *Task) Fragment() string {
	return t.fragment
}

// HasMetadata reports whether a metadata file was found for the task.
func (t *Task) HasMetadata() bool {
	return t.MetadataFile != ""
}

// AllFiles returns the executable files followed by the metadata file, if any.
func (t *Task) AllFiles() []string {
	all := append([]string{}, t.Files...)
	if t.MetadataFile != "" {
		all = append(all, t.MetadataFile)
	}
	return all
}

// inDirectory reports whether path lies beneath dir. Both are cleaned
// lexically; symlinks are not resolved.
func inDirectory(path, dir string) bool {
	dir = filepath.Clean(dir)
	path = filepath.Clean(path)
	return strings.HasPrefix(path, dir+string(filepath.Separator))
}
