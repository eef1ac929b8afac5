package catalog

import (
	"sort"

	"github.com/twiced-technology-gmbh/modtask/internal/task"
)

// Sort fields.
const (
	SortName   = "name"
	SortModule = "module"
	SortFiles  = "files"
)

// ValidSortFields returns the list of valid --sort field names.
func ValidSortFields() []string {
	return []string{SortName, SortModule, SortFiles}
}

// Sort sorts tasks by the given field. Sorting by module keeps scan order
// within each module.
func Sort(tasks []*task.Task, field string, reverse bool) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if reverse {
			a, b = b, a
		}
		return compareTasks(a, b, field)
	})
}

func compareTasks(a, b *task.Task, field string) bool {
	switch field {
	case SortModule:
		return a.Module().Name < b.Module().Name
	case SortFiles:
		return len(a.AllFiles()) < len(b.AllFiles())
	default:
		return a.Name < b.Name
	}
}
