// Package catalog provides workspace-level operations on the tasks of many modules.
package catalog

import (
	"github.com/twiced-technology-gmbh/modtask/internal/module"
	"github.com/twiced-technology-gmbh/modtask/internal/task"
)

// ScanWarning describes a module whose tasks directory could not be scanned.
type ScanWarning struct {
	Module string
	Err    error
}

// Scan returns the tasks of every module, in module order then scan order.
// A module that fails to scan is skipped and reported as a warning.
func Scan(modules []*module.Module) ([]*task.Task, []ScanWarning) {
	var tasks []*task.Task
	var warnings []ScanWarning
	for _, m := range modules {
		found, err := task.InModule(m)
		if err != nil {
			warnings = append(warnings, ScanWarning{Module: m.Name, Err: err})
			continue
		}
		tasks = append(tasks, found...)
	}
	return tasks, warnings
}

// ListOptions controls how tasks are listed.
type ListOptions struct {
	Filter  FilterOptions
	SortBy  string // "" keeps scan order
	Reverse bool
	Limit   int
}

// List scans all modules, applies filters and sorting.
func List(modules []*module.Module, opts ListOptions) ([]*task.Task, []ScanWarning, error) {
	allTasks, warnings := Scan(modules)

	tasks, err := Filter(allTasks, opts.Filter)
	if err != nil {
		return nil, warnings, err
	}

	if opts.SortBy != "" {
		Sort(tasks, opts.SortBy, opts.Reverse)
	} else if opts.Reverse {
		reverse(tasks)
	}

	if opts.Limit > 0 && len(tasks) > opts.Limit {
		tasks = tasks[:opts.Limit]
	}

	return tasks, warnings, nil
}

// Lookup resolves a public task name ("mod::frag" or "mod") to its task.
func Lookup(modules []*module.Module, name string) (*task.Task, error) {
	moduleName, fragment := module.SplitTaskName(name)
	m, err := module.Find(modules, moduleName)
	if err != nil {
		return nil, task.NotFound(name)
	}
	return task.Find(m, fragment)
}

// ModuleSummary holds task counts for a single module.
type ModuleSummary struct {
	Module          string `json:"module"`
	Tasks           int    `json:"tasks"`
	WithMetadata    int    `json:"with_metadata"`
	MetadataOnly    int    `json:"metadata_only"`
	MultiExecutable int    `json:"multi_executable"`
}

// Overview is the aggregate workspace overview.
type Overview struct {
	Workspace    string          `json:"workspace"`
	TotalModules int             `json:"total_modules"`
	TotalTasks   int             `json:"total_tasks"`
	Modules      []ModuleSummary `json:"modules"`
}

// Summary computes per-module counts. Modules without tasks are included.
func Summary(workspace string, modules []*module.Module, tasks []*task.Task) Overview {
	byModule := make(map[string]*ModuleSummary, len(modules))
	summaries := make([]ModuleSummary, len(modules))
	for i, m := range modules {
		summaries[i].Module = m.Name
		byModule[m.Name] = &summaries[i]
	}

	for _, t := range tasks {
		ms, ok := byModule[t.Module().Name]
		if !ok {
			continue
		}
		ms.Tasks++
		if t.HasMetadata() {
			ms.WithMetadata++
		}
		if len(t.Files) == 0 {
			ms.MetadataOnly++
		}
		if len(t.Files) > 1 {
			ms.MultiExecutable++
		}
	}

	return Overview{
		Workspace:    workspace,
		TotalModules: len(modules),
		TotalTasks:   len(tasks),
		Modules:      summaries,
	}
}

func reverse(tasks []*task.Task) {
	for i, j := 0, len(tasks)-1; i < j; i, j = i+1, j-1 {
		tasks[i], tasks[j] = tasks[j], tasks[i]
	}
}
