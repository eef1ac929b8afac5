package module

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twiced-technology-gmbh/modtask/internal/clierr"
)

func mkdirs(t *testing.T, paths ...string) {
	t.Helper()
	for _, p := range paths {
		require.NoError(t, os.MkdirAll(p, 0o750))
	}
}

func TestNew(t *testing.T) {
	dir := t.TempDir()

	m, err := New("mymod", filepath.Join(dir, "mymod"), "")
	require.NoError(t, err)
	assert.Equal(t, "mymod", m.Name)
	assert.True(t, filepath.IsAbs(m.Path))
	assert.Equal(t, filepath.Join(dir, "mymod", "tasks"), m.TasksDirectory())

	m, err = New("mymod", filepath.Join(dir, "mymod"), "plans")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "mymod", "plans"), m.TasksDirectory())
}

func TestTaskName(t *testing.T) {
	m := &Module{Name: "apache"}
	assert.Equal(t, "apache::restart", m.TaskName("restart"))
	assert.Equal(t, "apache", m.TaskName("init"))
}

func TestSplitTaskName(t *testing.T) {
	tests := []struct {
		in       string
		module   string
		fragment string
	}{
		{"apache::restart", "apache", "restart"},
		{"apache", "apache", "init"},
		{"apache::", "apache", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			mod, frag := SplitTaskName(tt.in)
			assert.Equal(t, tt.module, mod)
			assert.Equal(t, tt.fragment, frag)
		})
	}
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	site := filepath.Join(root, "site")
	vendor := filepath.Join(root, "vendor")
	mkdirs(t,
		filepath.Join(site, "apache"),
		filepath.Join(site, "mysql"),
		filepath.Join(site, ".git"),
		filepath.Join(vendor, "apache"),
		filepath.Join(vendor, "ntp"),
	)
	require.NoError(t, os.WriteFile(filepath.Join(site, "README"), nil, 0o600))

	modules, err := Discover([]string{site, filepath.Join(root, "missing"), vendor}, "")
	require.NoError(t, err)

	var got []string
	for _, m := range modules {
		got = append(got, m.Name)
	}
	assert.Equal(t, []string{"apache", "mysql", "ntp"}, got)
	assert.Equal(t, filepath.Join(site, "apache"), modules[0].Path)
}

func TestFind(t *testing.T) {
	modules := []*Module{{Name: "apache"}, {Name: "ntp"}}

	m, err := Find(modules, "ntp")
	require.NoError(t, err)
	assert.Equal(t, "ntp", m.Name)

	_, err = Find(modules, "nginx")
	require.Error(t, err)
	assert.Equal(t, clierr.ModuleNotFound, clierr.CodeOf(err))
}
