package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_SkipsMissingDirectories(t *testing.T) {
	dir := t.TempDir()
	w, err := New([]string{dir, filepath.Join(dir, "missing")}, func() {})
	require.NoError(t, err)
	defer w.Close()

	assert.Equal(t, []string{dir}, w.Watched())
}

func TestRun_DebouncesAndFilters(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32

	w, err := New([]string{dir}, func() { calls.Add(1) },
		WithDelay(50*time.Millisecond),
		WithFilter(func(p string) bool { return !strings.HasSuffix(p, ".swp") }))
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx, nil)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.swp"), []byte("x"), 0o600))
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())

	for i := range 3 {
		name := filepath.Join(dir, "deploy.sh")
		require.NoError(t, os.WriteFile(name, []byte{byte('a' + i)}, 0o600))
	}

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}
