package catalog

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twiced-technology-gmbh/modtask/internal/clierr"
	"github.com/twiced-technology-gmbh/modtask/internal/module"
	"github.com/twiced-technology-gmbh/modtask/internal/task"
)

// writeModule creates a module under root with the given task files and
// returns it. Files ending in .json get content as their body.
func writeModule(t *testing.T, root, name string, files map[string]string) *module.Module {
	t.Helper()
	m, err := module.New(name, filepath.Join(root, name), "")
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(m.TasksDirectory(), 0o750))
	for file, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(m.TasksDirectory(), file), []byte(content), 0o600))
	}
	return m
}

func taskNames(tasks []*task.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Name
	}
	return out
}

func fixtureModules(t *testing.T) []*module.Module {
	t.Helper()
	root := t.TempDir()
	apache := writeModule(t, root, "apache", map[string]string{
		"init.sh":     "",
		"init.json":   `{"description": "Install the web server"}`,
		"reload.sh":   "",
		"reload.ps1":  "",
		"status.json": `{"description": "Report vhost status"}`,
	})
	ntp := writeModule(t, root, "ntp", map[string]string{
		"sync.rb": "",
	})
	empty, err := module.New("empty", filepath.Join(root, "empty"), "")
	require.NoError(t, err)
	return []*module.Module{apache, ntp, empty}
}

func TestScan(t *testing.T) {
	tasks, warnings := Scan(fixtureModules(t))
	assert.Empty(t, warnings)
	assert.Equal(t, []string{"apache", "apache::reload", "apache::status", "ntp::sync"}, taskNames(tasks))
}

func TestScan_UnreadableModuleIsWarning(t *testing.T) {
	modules := fixtureModules(t)
	// A regular file in place of the tasks directory cannot be listed.
	broken := writeModule(t, t.TempDir(), "broken", nil)
	require.NoError(t, os.RemoveAll(broken.TasksDirectory()))
	require.NoError(t, os.WriteFile(broken.TasksDirectory(), []byte("x"), 0o600))
	modules = append(modules, broken)

	tasks, warnings := Scan(modules)
	assert.Len(t, tasks, 4)
	require.Len(t, warnings, 1)
	assert.Equal(t, "broken", warnings[0].Module)
	assert.Error(t, warnings[0].Err)
}

func TestList(t *testing.T) {
	modules := fixtureModules(t)
	yes, no := true, false

	tests := []struct {
		name string
		opts ListOptions
		want []string
	}{
		{"all", ListOptions{}, []string{"apache", "apache::reload", "apache::status", "ntp::sync"}},
		{"module filter", ListOptions{Filter: FilterOptions{Modules: []string{"ntp"}}}, []string{"ntp::sync"}},
		{"with metadata", ListOptions{Filter: FilterOptions{HasMetadata: &yes}}, []string{"apache", "apache::status"}},
		{"without metadata", ListOptions{Filter: FilterOptions{HasMetadata: &no}}, []string{"apache::reload", "ntp::sync"}},
		{"metadata only", ListOptions{Filter: FilterOptions{MetadataOnly: true}}, []string{"apache::status"}},
		{"search name", ListOptions{Filter: FilterOptions{Search: "SYNC"}}, []string{"ntp::sync"}},
		{"search description", ListOptions{Filter: FilterOptions{Search: "vhost"}}, []string{"apache::status"}},
		{"sort files reverse", ListOptions{SortBy: SortFiles, Reverse: true}, []string{"apache", "apache::reload", "apache::status", "ntp::sync"}},
		{"reverse scan order", ListOptions{Reverse: true}, []string{"ntp::sync", "apache::status", "apache::reload", "apache"}},
		{"limit", ListOptions{Limit: 2}, []string{"apache", "apache::reload"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks, warnings, err := List(modules, tt.opts)
			require.NoError(t, err)
			assert.Empty(t, warnings)
			assert.Equal(t, tt.want, taskNames(tasks))
		})
	}
}

func TestList_SearchSurfacesFaultyMetadata(t *testing.T) {
	root := t.TempDir()
	m := writeModule(t, root, "ntp", map[string]string{
		"sync.rb":   "",
		"sync.json": `{"description": `,
	})
	search := FilterOptions{Search: "clock"}

	search.Metadata = task.MetadataOptions{Strict: task.StrictError}
	_, _, err := List([]*module.Module{m}, ListOptions{Filter: search})
	require.Error(t, err)
	assert.ErrorIs(t, err, task.ErrFaultyMetadata)

	// A name match never loads the description.
	search.Search = "sync"
	tasks, _, err := List([]*module.Module{m}, ListOptions{Filter: search})
	require.NoError(t, err)
	assert.Equal(t, []string{"ntp::sync"}, taskNames(tasks))

	search.Search = "clock"
	search.Metadata = task.MetadataOptions{
		Strict: task.StrictWarning,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	tasks, _, err = List([]*module.Module{m}, ListOptions{Filter: search})
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestSort(t *testing.T) {
	tasks, _ := Scan(fixtureModules(t))

	Sort(tasks, SortName, true)
	assert.Equal(t, []string{"ntp::sync", "apache::status", "apache::reload", "apache"}, taskNames(tasks))

	// Stable: equal file counts keep the previous relative order.
	Sort(tasks, SortFiles, false)
	assert.Equal(t, []string{"ntp::sync", "apache::status", "apache::reload", "apache"}, taskNames(tasks))

	Sort(tasks, SortModule, false)
	assert.Equal(t, []string{"apache::status", "apache::reload", "apache", "ntp::sync"}, taskNames(tasks))
}

func TestLookup(t *testing.T) {
	modules := fixtureModules(t)

	got, err := Lookup(modules, "apache")
	require.NoError(t, err)
	assert.Equal(t, "apache", got.Name)

	got, err = Lookup(modules, "apache::reload")
	require.NoError(t, err)
	assert.Len(t, got.Files, 2)

	_, err = Lookup(modules, "apache::missing")
	assert.Equal(t, clierr.TaskNotFound, clierr.CodeOf(err))

	_, err = Lookup(modules, "nope::thing")
	assert.Equal(t, clierr.TaskNotFound, clierr.CodeOf(err))
}

func TestSummary(t *testing.T) {
	modules := fixtureModules(t)
	tasks, _ := Scan(modules)

	o := Summary("site", modules, tasks)
	assert.Equal(t, "site", o.Workspace)
	assert.Equal(t, 3, o.TotalModules)
	assert.Equal(t, 4, o.TotalTasks)
	require.Len(t, o.Modules, 3)
	assert.Equal(t, ModuleSummary{Module: "apache", Tasks: 3, WithMetadata: 2, MetadataOnly: 1, MultiExecutable: 1}, o.Modules[0])
	assert.Equal(t, ModuleSummary{Module: "ntp", Tasks: 1}, o.Modules[1])
	assert.Equal(t, ModuleSummary{Module: "empty"}, o.Modules[2])
}

func TestGroupBy(t *testing.T) {
	tasks, _ := Scan(fixtureModules(t))

	byModule := GroupBy(tasks, "module")
	require.Len(t, byModule.Groups, 2)
	assert.Equal(t, "apache", byModule.Groups[0].Key)
	assert.Equal(t, 3, byModule.Groups[0].Total)
	assert.Equal(t, []string{"ntp::sync"}, byModule.Groups[1].Tasks)

	byMeta := GroupBy(tasks, "metadata")
	require.Len(t, byMeta.Groups, 2)
	assert.Equal(t, "(with metadata)", byMeta.Groups[0].Key)
	assert.Equal(t, []string{"apache", "apache::status"}, byMeta.Groups[0].Tasks)

	byExt := GroupBy(tasks, "extension")
	keys := make([]string, len(byExt.Groups))
	for i, g := range byExt.Groups {
		keys[i] = g.Key
	}
	assert.Equal(t, []string{"(metadata only)", ".ps1", ".rb", ".sh"}, keys)
}

func TestValidGroupByFields(t *testing.T) {
	assert.ElementsMatch(t, []string{"module", "metadata", "extension"}, ValidGroupByFields())
}
