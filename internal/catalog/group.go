package catalog

import (
	"path/filepath"
	"sort"

	"github.com/twiced-technology-gmbh/modtask/internal/task"
)

const (
	fieldModule    = "module"
	fieldMetadata  = "metadata"
	fieldExtension = "extension"
)

// GroupedSummary holds tasks grouped by a field.
type GroupedSummary struct {
	Field  string         `json:"field"`
	Groups []GroupSummary `json:"groups"`
}

// GroupSummary is one group within a grouped view.
type GroupSummary struct {
	Key   string   `json:"key"`
	Tasks []string `json:"tasks"`
	Total int      `json:"total"`
}

// GroupBy groups tasks by the specified field. A task with several
// executables appears once per distinct extension when grouping by extension.
func GroupBy(tasks []*task.Task, field string) GroupedSummary {
	groups := make(map[string][]*task.Task)
	var order []string

	for _, t := range tasks {
		for _, key := range extractGroupKeys(t, field) {
			if _, ok := groups[key]; !ok {
				order = append(order, key)
			}
			groups[key] = append(groups[key], t)
		}
	}

	// Module groups keep module order; the others are alphabetical.
	if field != fieldModule {
		sort.Strings(order)
	}

	result := GroupedSummary{
		Field:  field,
		Groups: make([]GroupSummary, 0, len(order)),
	}
	for _, key := range order {
		groupTasks := groups[key]
		names := make([]string, len(groupTasks))
		for i, t := range groupTasks {
			names[i] = t.Name
		}
		result.Groups = append(result.Groups, GroupSummary{
			Key:   key,
			Tasks: names,
			Total: len(groupTasks),
		})
	}
	return result
}

func extractGroupKeys(t *task.Task, field string) []string {
	switch field {
	case fieldModule:
		return []string{t.Module().Name}
	case fieldMetadata:
		if t.HasMetadata() {
			return []string{"(with metadata)"}
		}
		return []string{"(without metadata)"}
	case fieldExtension:
		if len(t.Files) == 0 {
			return []string{"(metadata only)"}
		}
		seen := make(map[string]bool, len(t.Files))
		var keys []string
		for _, f := range t.Files {
			ext := filepath.Ext(f)
			if ext == "" {
				ext = "(none)"
			}
			if !seen[ext] {
				seen[ext] = true
				keys = append(keys, ext)
			}
		}
		return keys
	default:
		return []string{"(all)"}
	}
}

// ValidGroupByFields returns the list of valid --group-by field names.
func ValidGroupByFields() []string {
	return []string{fieldModule, fieldMetadata, fieldExtension}
}
