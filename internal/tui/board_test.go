package tui

import (
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twiced-technology-gmbh/modtask/internal/catalog"
	"github.com/twiced-technology-gmbh/modtask/internal/config"
)

func newTestBoard(t *testing.T) (*Board, *config.Config) {
	t.Helper()
	cfg, err := config.Init(t.TempDir(), "demo")
	require.NoError(t, err)

	files := map[string]map[string]string{
		"apache": {
			"init.sh":     "",
			"reload.sh":   "",
			"reload.json": `{"description": "Reload the service"}`,
		},
		"ntp": {
			"sync.rb":   "",
			"sync.json": `{"description": `,
		},
	}
	for mod, tasks := range files {
		dir := filepath.Join(cfg.ModulePaths()[0], mod, config.DefaultTasksDir)
		require.NoError(t, os.MkdirAll(dir, 0o750))
		for name, content := range tasks {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
		}
	}

	b := NewBoard(cfg)
	b.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return b, cfg
}

func press(b *Board, k string) tea.Cmd {
	var msg tea.KeyMsg
	switch k {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	_, cmd := b.Update(msg)
	return cmd
}

func TestNewBoard_Columns(t *testing.T) {
	b, _ := newTestBoard(t)

	require.Len(t, b.columns, 2)
	assert.Equal(t, "apache", b.columns[0].module)
	assert.Len(t, b.columns[0].tasks, 2)
	assert.Equal(t, "ntp", b.columns[1].module)
	assert.Equal(t, "apache", b.selectedTask().Name)
}

func TestBoard_Navigation(t *testing.T) {
	b, _ := newTestBoard(t)

	press(b, "j")
	assert.Equal(t, "apache::reload", b.selectedTask().Name)
	press(b, "j")
	assert.Equal(t, "apache::reload", b.selectedTask().Name, "stays on last row")

	press(b, "l")
	assert.Equal(t, "ntp::sync", b.selectedTask().Name, "row clamps to shorter column")
	press(b, "l")
	assert.Equal(t, 1, b.activeCol)

	press(b, "h")
	press(b, "k")
	assert.Equal(t, "apache", b.selectedTask().Name)
}

func TestBoard_FaultyMetadataFlagged(t *testing.T) {
	b, _ := newTestBoard(t)

	assert.True(t, b.faulty(b.columns[1].tasks[0]))
	assert.False(t, b.faulty(b.columns[0].tasks[1]))
	assert.Contains(t, b.View(), "faulty metadata")
	assert.Contains(t, b.View(), "Reload the service")
}

func TestBoard_DetailView(t *testing.T) {
	b, _ := newTestBoard(t)

	press(b, "j")
	press(b, "enter")
	assert.Equal(t, viewDetail, b.view)
	assert.Contains(t, b.View(), "apache::reload")
	assert.Contains(t, b.View(), "description:")

	press(b, "esc")
	assert.Equal(t, viewBoard, b.view)
}

func TestBoard_DeleteConfirmed(t *testing.T) {
	b, cfg := newTestBoard(t)

	press(b, "j")
	press(b, "d")
	require.Equal(t, viewConfirmDelete, b.view)
	assert.Contains(t, b.View(), "apache::reload")

	cmd := press(b, "y")
	require.NotNil(t, cmd)
	msg := cmd()
	assert.IsType(t, ReloadMsg{}, msg)
	b.Update(msg)

	assert.Equal(t, viewBoard, b.view)
	require.Len(t, b.columns[0].tasks, 1)
	assert.Equal(t, "apache", b.selectedTask().Name)
	assert.NoFileExists(t, filepath.Join(cfg.ModulePaths()[0], "apache", "tasks", "reload.sh"))

	entries, err := catalog.ReadLog(cfg.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "delete", entries[0].Action)
	assert.Equal(t, "apache::reload", entries[0].Task)
}

func TestBoard_DeleteCancelled(t *testing.T) {
	b, _ := newTestBoard(t)

	press(b, "d")
	require.Equal(t, viewConfirmDelete, b.view)
	assert.Nil(t, press(b, "n"))
	assert.Equal(t, viewBoard, b.view)
	assert.Len(t, b.columns[0].tasks, 2)
}

func TestBoard_ErrMsgShownInStatusBar(t *testing.T) {
	b, _ := newTestBoard(t)

	b.Update(errMsg{assert.AnError})
	assert.Contains(t, b.View(), "Error: ")
}

func TestBoard_WatchPaths(t *testing.T) {
	b, cfg := newTestBoard(t)

	paths := b.WatchPaths()
	assert.Equal(t, cfg.Dir(), paths[0])
	assert.Contains(t, paths, cfg.ModulePaths()[0])
	assert.Contains(t, paths, filepath.Join(cfg.ModulePaths()[0], "ntp", "tasks"))
}

func TestWrapText(t *testing.T) {
	assert.Equal(t, []string{"short"}, wrapText("short", 20, 3))
	assert.Equal(t, []string{"one two", "three four"}, wrapText("one two three four", 10, 2))
	lines := wrapText("alpha beta gamma delta epsilon", 11, 2)
	require.Len(t, lines, 2)
	assert.Equal(t, "alpha beta", lines[0])
	assert.Equal(t, "gamma delt…", lines[1])
}
