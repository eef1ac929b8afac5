package catalog

import (
	"strings"

	"github.com/twiced-technology-gmbh/modtask/internal/task"
)

// FilterOptions defines which tasks to include.
type FilterOptions struct {
	Modules      []string
	HasMetadata  *bool  // nil=no filter, true=only with metadata file, false=only without
	MetadataOnly bool   // only tasks without executables
	Search       string // case-insensitive substring match across name and description

	// Metadata is used to read descriptions for Search.
	Metadata task.MetadataOptions
}

// Filter returns tasks matching all specified criteria (AND logic). Loading
// a description for Search can fail under error strictness; the first such
// error is returned.
func Filter(tasks []*task.Task, opts FilterOptions) ([]*task.Task, error) {
	var result []*task.Task
	for _, t := range tasks {
		ok, err := matchesFilter(t, opts)
		if err != nil {
			return nil, err
		}
		if ok {
			result = append(result, t)
		}
	}
	return result, nil
}

func matchesFilter(t *task.Task, opts FilterOptions) (bool, error) {
	if len(opts.Modules) > 0 && !containsStr(opts.Modules, t.Module().Name) {
		return false, nil
	}
	if opts.HasMetadata != nil && t.HasMetadata() != *opts.HasMetadata {
		return false, nil
	}
	if opts.MetadataOnly && len(t.Files) > 0 {
		return false, nil
	}
	if opts.Search != "" {
		return matchesSearch(t, opts.Search, opts.Metadata)
	}
	return true, nil
}

// matchesSearch performs case-insensitive substring matching across the
// task name and its metadata description. The description is only loaded
// when the name does not match.
func matchesSearch(t *task.Task, query string, opts task.MetadataOptions) (bool, error) {
	q := strings.ToLower(query)
	if strings.Contains(strings.ToLower(t.Name), q) {
		return true, nil
	}
	if !t.HasMetadata() {
		return false, nil
	}
	meta, err := t.Metadata(opts)
	if err != nil {
		return false, err
	}
	desc, _ := meta["description"].(string)
	return strings.Contains(strings.ToLower(desc), q), nil
}

func containsStr(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
