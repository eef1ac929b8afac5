package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/twiced-technology-gmbh/modtask/internal/catalog"
	"github.com/twiced-technology-gmbh/modtask/internal/module"
	"github.com/twiced-technology-gmbh/modtask/internal/task"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("244"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	titleStyle  = lipgloss.NewStyle().Bold(true)

	moduleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
	fileStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("110"))
	metaStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("34"))
	faultStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// DisableColor strips all styling from table output.
func DisableColor() {
	lipgloss.SetColorProfile(termenv.Ascii)
	headerStyle = lipgloss.NewStyle()
	dimStyle = lipgloss.NewStyle()
	titleStyle = lipgloss.NewStyle()
	moduleStyle = lipgloss.NewStyle()
	fileStyle = lipgloss.NewStyle()
	metaStyle = lipgloss.NewStyle()
	faultStyle = lipgloss.NewStyle()
}

// Describer returns the description of a task, loading metadata if needed.
type Describer func(*task.Task) string

// TaskTable renders a list of tasks as a formatted table.
func TaskTable(w io.Writer, tasks []*task.Task, describe Describer) {
	if len(tasks) == 0 {
		fmt.Fprintln(os.Stderr, "No tasks found.")
		return
	}

	const pad = 2
	nameW, filesW := 6, 7
	for _, t := range tasks {
		nameW = max(nameW, len(t.Name)+pad)
		filesW = max(filesW, min(len(fileList(t))+pad, 40)) //nolint:mnd // max files column width
	}

	header := fmt.Sprintf("%-*s %-*s %-10s %s", nameW, "NAME", filesW, "FILES", "METADATA", "DESCRIPTION")
	fmt.Fprintln(w, headerStyle.Render(header))

	for _, t := range tasks {
		files := fileList(t)
		if files == "" {
			files = dimStyle.Render("--")
		} else {
			files = fileStyle.Render(truncate(files, 38)) //nolint:mnd // fits the files column
		}

		desc := ""
		if describe != nil {
			desc = describe(t)
		}
		if desc == "" {
			desc = dimStyle.Render("--")
		} else {
			desc = truncate(firstLine(desc), 60) //nolint:mnd // max description width
		}

		row := fmt.Sprintf("%s %s %s %s",
			padRight(t.Name, nameW),
			padRight(files, filesW),
			padRight(metadataMark(t), 10), //nolint:mnd // column width
			desc)
		fmt.Fprintln(w, strings.TrimRight(row, " "))
	}
}

// TaskDetail renders a single task with its metadata. description is
// printed verbatim after the fields and may already be rendered markdown.
func TaskDetail(w io.Writer, t *task.Task, metadata map[string]any, description string) {
	titleLine := "Task " + t.Name
	fmt.Fprintln(w, titleStyle.Render(titleLine))
	fmt.Fprintln(w, strings.Repeat("─", len(titleLine)))

	printField(w, "Module", moduleStyle.Render(t.Module().Name))
	if len(t.Files) == 0 {
		printField(w, "Files", dimStyle.Render("--"))
	}
	for i, f := range t.Files {
		label := ""
		if i == 0 {
			label = "Files"
		}
		printField(w, label, fileStyle.Render(f))
	}
	printField(w, "Metadata", stringOrDash(t.MetadataFile))

	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		if k != "description" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if len(keys) > 0 {
		fmt.Fprintln(w)
		for _, k := range keys {
			printField(w, k, formatValue(metadata[k]))
		}
	}

	if description != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, strings.TrimRight(description, "\n"))
	}
}

// ModuleTable renders modules with their task counts.
func ModuleTable(w io.Writer, modules []*module.Module, counts map[string]int) {
	if len(modules) == 0 {
		fmt.Fprintln(os.Stderr, "No modules found.")
		return
	}

	nameW := 8
	for _, m := range modules {
		nameW = max(nameW, len(m.Name)+2)
	}

	header := fmt.Sprintf("%-*s %6s  %s", nameW, "MODULE", "TASKS", "PATH")
	fmt.Fprintln(w, headerStyle.Render(header))
	for _, m := range modules {
		fmt.Fprintf(w, "%s %6d  %s\n", padRight(moduleStyle.Render(m.Name), nameW), counts[m.Name], dimStyle.Render(m.Path))
	}
}

// OverviewTable renders a workspace summary as a formatted dashboard.
func OverviewTable(w io.Writer, s catalog.Overview) {
	fmt.Fprintln(w, titleStyle.Render(s.Workspace))
	fmt.Fprintf(w, "Total: %d tasks in %d modules\n\n", s.TotalTasks, s.TotalModules)

	header := fmt.Sprintf("%-20s %6s %9s %9s %7s", "MODULE", "TASKS", "METADATA", "META-ONLY", "MULTI")
	fmt.Fprintln(w, headerStyle.Render(header))

	for _, ms := range s.Modules {
		const moduleColW = 20
		fmt.Fprintf(w, "%s %6d %9d %9d %7d\n",
			padRight(moduleStyle.Render(ms.Module), moduleColW),
			ms.Tasks, ms.WithMetadata, ms.MetadataOnly, ms.MultiExecutable)
	}
}

// GroupedTable renders a grouped view listing the tasks of each group.
func GroupedTable(w io.Writer, gs catalog.GroupedSummary) {
	if len(gs.Groups) == 0 {
		fmt.Fprintln(os.Stderr, "No groups found.")
		return
	}

	for i, g := range gs.Groups {
		if i > 0 {
			fmt.Fprintln(w)
		}
		title := fmt.Sprintf("%s (%d tasks)", g.Key, g.Total)
		fmt.Fprintln(w, titleStyle.Render(title))

		for _, name := range g.Tasks {
			fmt.Fprintf(w, "  %s\n", name)
		}
	}
}

// LintTable renders lint results, one line per faulty metadata file.
func LintTable(w io.Writer, results []catalog.LintResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, metaStyle.Render("All metadata files are valid."))
		return
	}

	for _, r := range results {
		status := faultStyle.Render("FAULTY")
		if r.Fixed {
			status = metaStyle.Render("FIXED ")
		}
		fmt.Fprintf(w, "%s %s %s\n", status, r.Task, dimStyle.Render(r.File))
		if !r.Fixed {
			fmt.Fprintf(w, "       %s\n", r.Error)
		}
	}
}

// HistoryTable renders activity log entries, oldest first.
func HistoryTable(w io.Writer, entries []catalog.LogEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "No activity recorded.")
		return
	}

	header := fmt.Sprintf("%-16s %-9s %-30s %s", "TIME", "ACTION", "TASK", "DETAIL")
	fmt.Fprintln(w, headerStyle.Render(header))
	for _, e := range entries {
		row := fmt.Sprintf("%-16s %-9s %-30s %s",
			e.Timestamp.Local().Format("2006-01-02 15:04"), e.Action, e.Task, dimStyle.Render(e.Detail))
		fmt.Fprintln(w, strings.TrimRight(row, " "))
	}
}

// Messagef prints a simple formatted message line.
func Messagef(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, format+"\n", args...)
}

func printField(w io.Writer, label, value string) {
	if label != "" {
		label += ":"
	}
	fmt.Fprintf(w, "  %-22s %s\n", label, value)
}

// formatValue renders a metadata value on one line. Strings print bare,
// everything else as compact JSON.
func formatValue(v any) string {
	if s, ok := v.(string); ok {
		return stringOrDash(s)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// fileList joins the base names of a task's executables.
func fileList(t *task.Task) string {
	names := make([]string, len(t.Files))
	for i, f := range t.Files {
		names[i] = filepath.Base(f)
	}
	return strings.Join(names, ",")
}

func metadataMark(t *task.Task) string {
	if !t.HasMetadata() {
		return dimStyle.Render("--")
	}
	if len(t.Files) == 0 {
		return metaStyle.Render("only")
	}
	return metaStyle.Render("yes")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}

// padRight pads s with spaces to the given visible width, accounting for ANSI
// escape codes that are invisible but consume bytes.
func padRight(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

func stringOrDash(s string) string {
	if s == "" {
		return dimStyle.Render("--")
	}
	return s
}

// countString formats n with a singular or plural noun.
func countString(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}
