package task

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/twiced-technology-gmbh/modtask/internal/module"
)

// InModule scans the module's tasks directory and returns one Task per name
// stem, ordered by the first occurrence of each stem in the directory
// listing. Subdirectories and ineligible files are ignored. A missing tasks
// directory yields no tasks.
func InModule(m *module.Module) ([]*Task, error) {
	dir := m.TasksDirectory()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading tasks directory: %w", err)
	}

	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}

	return FromPaths(m, paths)
}

// FromPaths groups the given directory listing into tasks. The caller owns
// the scan order: groups appear in order of their stem's first occurrence
// and files keep their relative order within a group.
func FromPaths(m *module.Module, paths []string) ([]*Task, error) {
	var order []string
	groups := make(map[string][]string)

	for _, p := range paths {
		if !IsTasksFilename(p) {
			continue
		}
		stem := NameFromPath(p)
		if _, ok := groups[stem]; !ok {
			order = append(order, stem)
		}
		groups[stem] = append(groups[stem], p)
	}

	tasks := make([]*Task, 0, len(order))
	for _, stem := range order {
		t, err := newWithFiles(m, stem, groups[stem])
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// newWithFiles re-roots each file in the tasks directory and splits the
// group into metadata and executable files. Only the first metadata file
// is kept.
func newWithFiles(m *module.Module, stem string, paths []string) (*Task, error) {
	var exeFiles []string
	var metadataFile string

	for _, p := range paths {
		f := filepath.Join(m.TasksDirectory(), filepath.Base(p))
		if IsTasksMetadataFilename(f) {
			if metadataFile == "" {
				metadataFile = f
			}
			continue
		}
		exeFiles = append(exeFiles, f)
	}

	return New(m, stem, exeFiles, metadataFile)
}

// Find returns the task with the given fragment in module m.
func Find(m *module.Module, fragment string) (*Task, error) {
	tasks, err := InModule(m)
	if err != nil {
		return nil, err
	}
	for _, t := range tasks {
		if t.Fragment() == fragment {
			return t, nil
		}
	}
	return nil, NotFound(m.TaskName(fragment))
}
