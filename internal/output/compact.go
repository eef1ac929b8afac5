package output

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/twiced-technology-gmbh/modtask/internal/catalog"
	"github.com/twiced-technology-gmbh/modtask/internal/module"
	"github.com/twiced-technology-gmbh/modtask/internal/task"
)

// TaskCompact renders a list of tasks in one-line-per-record compact format.
func TaskCompact(w io.Writer, tasks []*task.Task, describe Describer) {
	if len(tasks) == 0 {
		fmt.Fprintln(os.Stderr, "No tasks found.")
		return
	}

	for _, t := range tasks {
		line := formatTaskLine(t)
		if describe != nil {
			if desc := firstLine(describe(t)); desc != "" {
				line += " - " + desc
			}
		}
		fmt.Fprintln(w, line)
	}
}

// TaskDetailCompact renders a single task with detail in compact format.
func TaskDetailCompact(w io.Writer, t *task.Task, metadata map[string]any) {
	fmt.Fprintln(w, formatTaskLine(t))

	for _, f := range t.AllFiles() {
		fmt.Fprintln(w, "  "+f)
	}

	if desc, ok := metadata["description"].(string); ok && desc != "" {
		for _, line := range strings.Split(desc, "\n") {
			fmt.Fprintln(w, "  "+line)
		}
	}
}

// ModuleCompact renders modules one per line.
func ModuleCompact(w io.Writer, modules []*module.Module, counts map[string]int) {
	for _, m := range modules {
		fmt.Fprintf(w, "%s (%s) %s\n", m.Name, countString(counts[m.Name], "task"), m.Path)
	}
}

// OverviewCompact renders a workspace summary in compact format.
func OverviewCompact(w io.Writer, s catalog.Overview) {
	fmt.Fprintf(w, "%s (%s, %s)\n", s.Workspace, countString(s.TotalModules, "module"), countString(s.TotalTasks, "task"))

	for _, ms := range s.Modules {
		line := "  " + ms.Module + ": " + strconv.Itoa(ms.Tasks)
		var annotations []string
		if ms.WithMetadata > 0 {
			annotations = append(annotations, strconv.Itoa(ms.WithMetadata)+" with metadata")
		}
		if ms.MetadataOnly > 0 {
			annotations = append(annotations, strconv.Itoa(ms.MetadataOnly)+" metadata-only")
		}
		if ms.MultiExecutable > 0 {
			annotations = append(annotations, strconv.Itoa(ms.MultiExecutable)+" multi-executable")
		}
		if len(annotations) > 0 {
			line += " (" + strings.Join(annotations, ", ") + ")"
		}
		fmt.Fprintln(w, line)
	}
}

// GroupedCompact renders a grouped view one group per line.
func GroupedCompact(w io.Writer, gs catalog.GroupedSummary) {
	for _, g := range gs.Groups {
		fmt.Fprintf(w, "%s (%d): %s\n", g.Key, g.Total, strings.Join(g.Tasks, " "))
	}
}

// formatTaskLine builds the one-line representation of a task.
func formatTaskLine(t *task.Task) string {
	line := t.Name + " [" + countString(len(t.Files), "file")
	if t.HasMetadata() {
		line += "+metadata"
	}
	line += "]"
	if files := fileList(t); files != "" {
		line += " " + files
	}
	return line
}
