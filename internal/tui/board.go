// Package tui implements a terminal UI for browsing the tasks of a workspace.
package tui

import (
	"fmt"
	"hash/fnv"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/twiced-technology-gmbh/modtask/internal/catalog"
	"github.com/twiced-technology-gmbh/modtask/internal/config"
	"github.com/twiced-technology-gmbh/modtask/internal/module"
	"github.com/twiced-technology-gmbh/modtask/internal/task"
)

// view represents the current screen state.
type view int

const (
	viewBoard view = iota
	viewDetail
	viewConfirmDelete
)

// Layout constants.
const (
	boardChrome = 2 // blank line + status bar below the column area
	errorChrome = 1 // extra line when error toast is displayed
	maxColWidth = 60
	maxDescLine = 3
)

// keyMap holds the board's key bindings.
type keyMap struct {
	Quit    key.Binding
	Left    key.Binding
	Right   key.Binding
	Up      key.Binding
	Down    key.Binding
	Detail  key.Binding
	Delete  key.Binding
	Reload  key.Binding
	Confirm key.Binding
	Cancel  key.Binding
}

var keys = keyMap{
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Left:    key.NewBinding(key.WithKeys("h", "left")),
	Right:   key.NewBinding(key.WithKeys("l", "right")),
	Up:      key.NewBinding(key.WithKeys("k", "up")),
	Down:    key.NewBinding(key.WithKeys("j", "down")),
	Detail:  key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "details")),
	Delete:  key.NewBinding(key.WithKeys("d", "D"), key.WithHelp("d", "delete")),
	Reload:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
	Confirm: key.NewBinding(key.WithKeys("y", "Y")),
	Cancel:  key.NewBinding(key.WithKeys("n", "N", "esc", "q")),
}

// Board is the top-level bubbletea model: one column per module, one card
// per task.
type Board struct {
	cfg       *config.Config
	metaOpts  task.MetadataOptions
	modules   []*module.Module
	tasks     []*task.Task
	faults    map[string]error // metadata load errors by task name
	columns   []column
	activeCol int
	activeRow int
	view      view
	width     int
	height    int
	err       error

	// Delete confirmation.
	deleteTask *task.Task
}

// column groups the tasks of a single module.
type column struct {
	module    string
	tasks     []*task.Task
	scrollOff int // first visible row index
}

// NewBoard creates a new Board model from a config. Metadata is loaded with
// error strictness so faulty files are flagged on their card instead of
// logged over the screen.
func NewBoard(cfg *config.Config) *Board {
	b := &Board{
		cfg: cfg,
		metaOpts: task.MetadataOptions{
			Strict: task.StrictError,
			Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		},
	}
	b.loadTasks()
	return b
}

// Init implements tea.Model.
func (b *Board) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (b *Board) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return b.handleKey(msg)
	case tea.MouseMsg:
		return b.handleMouse(msg)
	case tea.WindowSizeMsg:
		b.width = msg.Width
		b.height = msg.Height
		b.ensureVisible()
		return b, nil
	case ReloadMsg:
		b.loadTasks()
		return b, nil
	case errMsg:
		b.err = msg.err
		return b, nil
	}
	return b, nil
}

// View implements tea.Model.
func (b *Board) View() string {
	if b.width == 0 {
		return "Loading..."
	}

	switch b.view {
	case viewDetail:
		return b.viewDetail()
	case viewConfirmDelete:
		return b.viewDeleteConfirm()
	default:
		return b.viewBoard()
	}
}

func (b *Board) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return b, tea.Quit
	}

	switch b.view {
	case viewBoard:
		return b.handleBoardKey(msg)
	case viewDetail:
		if key.Matches(msg, keys.Cancel, keys.Detail) {
			b.view = viewBoard
		}
	case viewConfirmDelete:
		return b.handleDeleteKey(msg)
	}

	return b, nil
}

func (b *Board) handleBoardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit), msg.String() == "esc":
		return b, tea.Quit
	case key.Matches(msg, keys.Left):
		if b.activeCol > 0 {
			b.activeCol--
			b.clampRow()
		}
	case key.Matches(msg, keys.Right):
		if b.activeCol < len(b.columns)-1 {
			b.activeCol++
			b.clampRow()
		}
	case key.Matches(msg, keys.Down):
		col := b.currentColumn()
		if col != nil && b.activeRow < len(col.tasks)-1 {
			b.activeRow++
			b.ensureVisible()
		}
	case key.Matches(msg, keys.Up):
		if b.activeRow > 0 {
			b.activeRow--
			b.ensureVisible()
		}
	case key.Matches(msg, keys.Detail):
		if b.selectedTask() != nil {
			b.view = viewDetail
		}
	case key.Matches(msg, keys.Delete):
		if t := b.selectedTask(); t != nil {
			b.deleteTask = t
			b.view = viewConfirmDelete
		}
	case key.Matches(msg, keys.Reload):
		b.loadTasks()
	}
	return b, nil
}

func (b *Board) handleDeleteKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Confirm):
		return b.executeDelete()
	case key.Matches(msg, keys.Cancel):
		b.deleteTask = nil
		b.view = viewBoard
	}
	return b, nil
}

func (b *Board) executeDelete() (tea.Model, tea.Cmd) {
	t := b.deleteTask
	b.deleteTask = nil
	b.view = viewBoard
	if t == nil {
		return b, nil
	}
	return b, deleteCmd(b.cfg.Dir(), t)
}

// deleteCmd removes the task's files and reports the outcome as a message.
func deleteCmd(workspaceDir string, t *task.Task) tea.Cmd {
	return func() tea.Msg {
		if err := task.Remove(t); err != nil {
			return errMsg{fmt.Errorf("deleting %s: %w", t.Name, err)}
		}
		catalog.LogMutation(workspaceDir, "delete", t.Name, strings.Join(t.AllFiles(), ","))
		return ReloadMsg{}
	}
}

// handleMouse selects the card under a left click.
func (b *Board) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return b, nil
	}
	if b.view != viewBoard || len(b.columns) == 0 {
		return b, nil
	}

	colWidth := b.columnWidth()
	clickedCol := b.firstVisibleColumn() + msg.X/colWidth
	if clickedCol >= len(b.columns) {
		return b, nil
	}
	b.activeCol = clickedCol

	col := &b.columns[clickedCol]
	lineY := msg.Y - 1 // header
	if col.scrollOff > 0 {
		lineY-- // "↑ N more" indicator
	}
	cardLine := 0
	for rowIdx := col.scrollOff; rowIdx < len(col.tasks) && lineY >= 0; rowIdx++ {
		cardH := b.cardHeight(col.tasks[rowIdx], colWidth)
		if lineY < cardLine+cardH {
			b.activeRow = rowIdx
			b.ensureVisible()
			return b, nil
		}
		cardLine += cardH
	}

	b.clampRow()
	return b, nil
}

// loadTasks rescans the workspace and organizes tasks into module columns.
func (b *Board) loadTasks() {
	modules, err := b.cfg.Modules()
	if err != nil {
		b.err = err
		return
	}
	tasks, warnings := catalog.Scan(modules)
	b.err = nil
	if len(warnings) > 0 {
		b.err = fmt.Errorf("module %s: %w", warnings[0].Module, warnings[0].Err)
	}

	b.modules = modules
	b.tasks = tasks
	b.faults = make(map[string]error)
	for _, t := range tasks {
		if _, err := t.Metadata(b.metaOpts); err != nil {
			b.faults[t.Name] = err
		}
	}
	b.columns = make([]column, len(modules))
	index := make(map[string]int, len(modules))
	for i, m := range modules {
		b.columns[i] = column{module: m.Name}
		index[m.Name] = i
	}
	for _, t := range tasks {
		i := index[t.Module().Name]
		b.columns[i].tasks = append(b.columns[i].tasks, t)
	}

	if b.activeCol >= len(b.columns) {
		b.activeCol = max(len(b.columns)-1, 0)
	}
	b.clampRow()
}

// WatchPaths returns the paths that should be watched for file changes.
func (b *Board) WatchPaths() []string {
	paths := append([]string{b.cfg.Dir()}, b.cfg.ModulePaths()...)
	for _, m := range b.modules {
		paths = append(paths, m.TasksDirectory())
	}
	return paths
}

func (b *Board) currentColumn() *column {
	if b.activeCol >= 0 && b.activeCol < len(b.columns) {
		return &b.columns[b.activeCol]
	}
	return nil
}

func (b *Board) selectedTask() *task.Task {
	col := b.currentColumn()
	if col == nil || len(col.tasks) == 0 {
		return nil
	}
	if b.activeRow >= 0 && b.activeRow < len(col.tasks) {
		return col.tasks[b.activeRow]
	}
	return nil
}

func (b *Board) clampRow() {
	col := b.currentColumn()
	if col == nil || len(col.tasks) == 0 {
		b.activeRow = 0
		return
	}
	if b.activeRow >= len(col.tasks) {
		b.activeRow = len(col.tasks) - 1
	}
	b.ensureVisible()
}

// chromeHeight returns the number of lines consumed by non-card elements below
// the column area: blank line + status bar (+ error line when an error is shown).
func (b *Board) chromeHeight() int {
	h := boardChrome
	if b.err != nil {
		h += errorChrome
	}
	return h
}

// visibleCards returns the number of cards that fit in the column,
// accounting for the scroll indicator lines.
func (b *Board) visibleCards(col *column, width int) int {
	avail := b.height - b.chromeHeight() - 1 // column header
	if col.scrollOff > 0 {
		avail--
	}
	n := b.fitCards(col, avail, width)
	if col.scrollOff+n < len(col.tasks) {
		n = max(b.fitCards(col, avail-1, width), 1)
	}
	return n
}

func (b *Board) fitCards(col *column, avail, width int) int {
	used, count := 0, 0
	for i := col.scrollOff; i < len(col.tasks); i++ {
		h := b.cardHeight(col.tasks[i], width)
		if count > 0 && used+h > avail {
			break
		}
		count++
		used += h
	}
	return max(count, 1)
}

// ensureVisible adjusts the active column's scroll offset so the
// selected row is within the visible window.
func (b *Board) ensureVisible() {
	col := b.currentColumn()
	if col == nil || b.height == 0 {
		return
	}
	w := b.columnWidth()

	for range len(col.tasks) + 1 {
		maxVis := b.visibleCards(col, w)
		switch {
		case b.activeRow >= col.scrollOff+maxVis:
			col.scrollOff = b.activeRow - maxVis + 1
		case b.activeRow < col.scrollOff:
			col.scrollOff = b.activeRow
		default:
			return
		}
	}
}

// --- Messages ---

// ReloadMsg is sent by the file watcher to trigger a board refresh.
type ReloadMsg struct{}

type errMsg struct{ err error }

// --- Styles ---

var (
	columnHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("252")).
				Background(lipgloss.Color("236")).
				Padding(0, 1)

	activeColumnHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("230")).
				Background(lipgloss.Color("62")).
				Padding(0, 1)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	activeCardStyle = cardStyle.BorderForeground(lipgloss.Color("226"))

	faultyCardStyle = cardStyle.BorderForeground(lipgloss.Color("196"))

	statusBarStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	labelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("244"))

	// extColorPalette colors a card's file line by its first extension.
	extColorPalette = []lipgloss.Color{"33", "36", "35", "32", "91", "34", "93", "96"}

	dialogStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2)
)

// extStyle returns a consistent style for a file extension.
func extStyle(ext string) lipgloss.Style {
	h := fnv.New32a()
	_, _ = h.Write([]byte(ext))
	color := extColorPalette[h.Sum32()%uint32(len(extColorPalette))]
	return lipgloss.NewStyle().Foreground(color)
}

// --- View rendering ---

func (b *Board) viewBoard() string {
	if len(b.columns) == 0 {
		return b.renderStatusBar() + "\n\nNo modules found on the modulepath."
	}

	colWidth := b.columnWidth()

	first := b.firstVisibleColumn()
	last := min(first+max(b.width/colWidth, 1), len(b.columns))

	rendered := make([]string, 0, last-first)
	for i := first; i < last; i++ {
		rendered = append(rendered, b.renderColumn(i, b.columns[i], colWidth))
	}
	boardView := lipgloss.JoinHorizontal(lipgloss.Top, rendered...)

	targetHeight := b.height - b.chromeHeight()
	if targetHeight > 0 {
		actual := strings.Count(boardView, "\n") + 1
		if actual > targetHeight {
			lines := strings.SplitN(boardView, "\n", targetHeight+1)
			boardView = strings.Join(lines[:targetHeight], "\n")
		} else if actual < targetHeight {
			boardView += strings.Repeat("\n", targetHeight-actual)
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, boardView, "", b.renderStatusBar())
}

func (b *Board) columnWidth() int {
	if b.width == 0 || len(b.columns) == 0 {
		return 30 //nolint:mnd // default column width
	}
	const minColWidth = 24
	w := b.width / len(b.columns)
	return min(max(w, minColWidth), maxColWidth)
}

// firstVisibleColumn returns the leftmost column on screen, scrolled so the
// active column stays visible.
func (b *Board) firstVisibleColumn() int {
	perScreen := max(b.width/b.columnWidth(), 1)
	if b.activeCol >= perScreen {
		return b.activeCol - perScreen + 1
	}
	return 0
}

func (b *Board) renderColumn(colIdx int, col column, width int) string {
	headerText := truncate(fmt.Sprintf("%s (%d)", col.module, len(col.tasks)), width-2) //nolint:mnd // header padding

	header := columnHeaderStyle.Width(width).Render(headerText)
	if colIdx == b.activeCol {
		header = activeColumnHeaderStyle.Width(width).Render(headerText)
	}

	maxVis := b.visibleCards(&col, width)
	start := min(col.scrollOff, len(col.tasks))
	end := min(start+maxVis, len(col.tasks))

	parts := []string{header}
	if start > 0 {
		parts = append(parts, dimStyle.Width(width).Render(fmt.Sprintf("  ↑ %d more", start)))
	}
	if len(col.tasks) == 0 {
		parts = append(parts, dimStyle.Width(width).Render("  (no tasks)"))
	}
	for rowIdx := start; rowIdx < end; rowIdx++ {
		active := colIdx == b.activeCol && rowIdx == b.activeRow
		parts = append(parts, b.renderCard(col.tasks[rowIdx], active, width))
	}
	if end < len(col.tasks) {
		parts = append(parts, dimStyle.Width(width).Render(fmt.Sprintf("  ↓ %d more", len(col.tasks)-end)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (b *Board) renderCard(t *task.Task, active bool, width int) string {
	content := strings.Join(b.cardContentLines(t, width), "\n")

	style := cardStyle
	if b.faulty(t) {
		style = faultyCardStyle
	}
	if active {
		style = activeCardStyle
	}
	return style.Width(width - 2).Render(content) //nolint:mnd // border width
}

func (b *Board) cardHeight(t *task.Task, width int) int {
	return len(b.cardContentLines(t, width)) + 2 //nolint:mnd // top and bottom borders
}

func (b *Board) cardContentLines(t *task.Task, width int) []string {
	const cardChrome = 4 // border (2) + padding (2)
	cardWidth := max(width-cardChrome, 1)

	name := t.Fragment()
	if name == module.InitFragment {
		name = t.Name + " (init)"
	}
	lines := []string{lipgloss.NewStyle().Bold(true).Render(truncate(name, cardWidth))}

	var files []string
	for _, f := range t.Files {
		files = append(files, extStyle(filepath.Ext(f)).Render(filepath.Base(f)))
	}
	if len(files) == 0 {
		lines = append(lines, dimStyle.Render("metadata only"))
	} else {
		lines = append(lines, truncate(strings.Join(files, " "), cardWidth+len(files)*10)) //nolint:mnd // allow for escape codes
	}

	if b.faulty(t) {
		lines = append(lines, errorStyle.Render("faulty metadata"))
		return lines
	}
	if desc := strings.TrimSpace(t.Description(b.metaOpts)); desc != "" {
		for _, l := range wrapText(desc, cardWidth, maxDescLine) {
			lines = append(lines, dimStyle.Render(l))
		}
	}
	return lines
}

// faulty reports whether t's metadata file failed to load.
func (b *Board) faulty(t *task.Task) bool {
	return b.faults[t.Name] != nil
}

// wrapText splits text across at most maxLines lines, word-wrapping at word
// boundaries. Each line is at most maxWidth characters.
func wrapText(text string, maxWidth, maxLines int) []string {
	if maxLines < 1 {
		maxLines = 1
	}
	text = strings.Join(strings.Fields(text), " ")
	if lipgloss.Width(text) <= maxWidth || maxLines == 1 {
		return []string{truncate(text, maxWidth)}
	}

	words := strings.Fields(text)
	lines := make([]string, 0, maxLines)
	var current strings.Builder
	for i, word := range words {
		if current.Len() == 0 {
			current.WriteString(word)
			continue
		}
		if lipgloss.Width(current.String())+1+lipgloss.Width(word) <= maxWidth {
			current.WriteByte(' ')
			current.WriteString(word)
			continue
		}
		lines = append(lines, truncate(current.String(), maxWidth))
		current.Reset()
		current.WriteString(word)
		if len(lines) == maxLines-1 {
			// Last line: append all remaining words.
			for _, w := range words[i+1:] {
				current.WriteByte(' ')
				current.WriteString(w)
			}
			break
		}
	}
	if current.Len() > 0 {
		lines = append(lines, truncate(current.String(), maxWidth))
	}
	return lines
}

func (b *Board) renderStatusBar() string {
	help := []string{"h/l:module", "j/k:task"}
	for _, k := range []key.Binding{keys.Detail, keys.Delete, keys.Reload, keys.Quit} {
		h := k.Help()
		help = append(help, h.Key+":"+h.Desc)
	}
	status := fmt.Sprintf(" %s | %d modules | %d tasks | %s",
		b.cfg.Name, len(b.columns), len(b.tasks), strings.Join(help, " "))
	status = truncate(status, b.width)

	if b.err != nil {
		errStr := errorStyle.Render(truncate("Error: "+b.err.Error(), b.width))
		return errStr + "\n" + statusBarStyle.Render(status)
	}
	return statusBarStyle.Render(status)
}

func (b *Board) viewDetail() string {
	t := b.selectedTask()
	if t == nil {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(lipgloss.NewStyle().Bold(true).Render(t.Name) + "\n\n")
	for _, f := range t.AllFiles() {
		sb.WriteString("  " + f + "\n")
	}

	meta, err := t.Metadata(b.metaOpts)
	if err != nil {
		sb.WriteString("\n" + errorStyle.Render(err.Error()) + "\n")
	} else if len(meta) > 0 {
		fields := make([]string, 0, len(meta))
		for k := range meta {
			fields = append(fields, k)
		}
		sort.Strings(fields)
		sb.WriteString("\n")
		for _, k := range fields {
			sb.WriteString(fmt.Sprintf("  %s %v\n", labelStyle.Render(k+":"), meta[k]))
		}
	}

	sb.WriteString("\n" + dimStyle.Render("enter/esc:back"))
	return dialogStyle.MaxWidth(max(b.width, 20)).Render(sb.String()) //nolint:mnd // minimum dialog width
}

func (b *Board) viewDeleteConfirm() string {
	t := b.deleteTask
	if t == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(errorStyle.Render("Delete task?") + "\n\n")
	sb.WriteString("  " + t.Name + "\n")
	for _, f := range t.AllFiles() {
		sb.WriteString(dimStyle.Render("    "+filepath.Base(f)) + "\n")
	}
	sb.WriteString("\n" + dimStyle.Render("y:yes  n:no"))
	return dialogStyle.Render(sb.String())
}

// truncate shortens s to at most n visible characters, adding an ellipsis.
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= n {
		return s
	}
	r := []rune(s)
	if n <= 1 || len(r) <= n {
		return string(r[:min(n, len(r))])
	}
	return string(r[:n-1]) + "…"
}
