package output

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twiced-technology-gmbh/modtask/internal/catalog"
	"github.com/twiced-technology-gmbh/modtask/internal/module"
	"github.com/twiced-technology-gmbh/modtask/internal/task"
)

func newTask(t *testing.T, m *module.Module, fragment string, files []string, metadata string) *task.Task {
	t.Helper()
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = filepath.Join(m.TasksDirectory(), f)
	}
	if metadata != "" {
		metadata = filepath.Join(m.TasksDirectory(), metadata)
	}
	tk, err := task.New(m, fragment, paths, metadata)
	require.NoError(t, err)
	return tk
}

func fixtureTasks(t *testing.T) []*task.Task {
	t.Helper()
	m, err := module.New("apache", filepath.Join(t.TempDir(), "apache"), "")
	require.NoError(t, err)
	return []*task.Task{
		newTask(t, m, "init", []string{"init.sh"}, ""),
		newTask(t, m, "reload", []string{"reload.ps1", "reload.sh"}, "reload.json"),
		newTask(t, m, "status", nil, "status.json"),
	}
}

func describeFixture(tk *task.Task) string {
	if tk.Fragment() == "reload" {
		return "Reload the service\n\nGracefully."
	}
	return ""
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name    string
		json    bool
		table   bool
		compact bool
		env     string
		want    Format
	}{
		{name: "default", want: FormatTable},
		{name: "json flag", json: true, want: FormatJSON},
		{name: "compact flag", compact: true, want: FormatCompact},
		{name: "json beats compact", json: true, compact: true, want: FormatJSON},
		{name: "env json", env: "json", want: FormatJSON},
		{name: "env oneline", env: "oneline", want: FormatCompact},
		{name: "flag beats env", table: true, env: "json", want: FormatTable},
		{name: "unknown env", env: "yaml", want: FormatTable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(OutputEnv, tt.env)
			assert.Equal(t, tt.want, Detect(tt.json, tt.table, tt.compact))
		})
	}
}

func TestTaskTable(t *testing.T) {
	DisableColor()
	var buf bytes.Buffer
	TaskTable(&buf, fixtureTasks(t), describeFixture)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "NAME"))
	assert.Contains(t, lines[1], "init.sh")
	assert.Contains(t, lines[2], "reload.ps1,reload.sh")
	assert.Contains(t, lines[2], "yes")
	assert.True(t, strings.HasSuffix(lines[2], "Reload the service"))
	assert.Contains(t, lines[3], "only")
}

func TestTaskDetail(t *testing.T) {
	DisableColor()
	var buf bytes.Buffer
	tk := fixtureTasks(t)[1]
	TaskDetail(&buf, tk, map[string]any{
		"description":   "ignored here",
		"supports_noop": true,
		"parameters":    map[string]any{"port": map[string]any{"type": "Integer"}},
	}, "Reload the service")

	out := buf.String()
	assert.Contains(t, out, "Task apache::reload")
	assert.Contains(t, out, "reload.ps1")
	assert.Contains(t, out, `{"port":{"type":"Integer"}}`)
	assert.Contains(t, out, "true")
	assert.NotContains(t, out, "ignored here")
	assert.True(t, strings.HasSuffix(out, "Reload the service\n"))
}

func TestTaskCompact(t *testing.T) {
	var buf bytes.Buffer
	TaskCompact(&buf, fixtureTasks(t), describeFixture)

	assert.Equal(t, "apache [1 file] init.sh\n"+
		"apache::reload [2 files+metadata] reload.ps1,reload.sh - Reload the service\n"+
		"apache::status [0 files+metadata]\n", buf.String())
}

func TestOverviewCompact(t *testing.T) {
	var buf bytes.Buffer
	OverviewCompact(&buf, catalog.Overview{
		Workspace:    "demo",
		TotalModules: 2,
		TotalTasks:   3,
		Modules: []catalog.ModuleSummary{
			{Module: "apache", Tasks: 3, WithMetadata: 2, MetadataOnly: 1, MultiExecutable: 1},
			{Module: "empty"},
		},
	})

	assert.Equal(t, "demo (2 modules, 3 tasks)\n"+
		"  apache: 3 (2 with metadata, 1 metadata-only, 1 multi-executable)\n"+
		"  empty: 0\n", buf.String())
}

func TestLintTable(t *testing.T) {
	DisableColor()
	var buf bytes.Buffer
	LintTable(&buf, []catalog.LintResult{
		{Task: "apache::reload", File: "reload.json", Error: "unexpected end of JSON input"},
		{Task: "ntp::sync", File: "sync.json", Fixed: true},
	})

	assert.Equal(t, "FAULTY apache::reload reload.json\n"+
		"       unexpected end of JSON input\n"+
		"FIXED  ntp::sync sync.json\n", buf.String())

	buf.Reset()
	LintTable(&buf, nil)
	assert.Equal(t, "All metadata files are valid.\n", buf.String())
}

func TestJSONError(t *testing.T) {
	var buf bytes.Buffer
	JSONError(&buf, "TASK_NOT_FOUND", "task not found: x", map[string]any{"task": "x"})

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "TASK_NOT_FOUND", resp.Code)
	assert.Equal(t, "x", resp.Details["task"])
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
