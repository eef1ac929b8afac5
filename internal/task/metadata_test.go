package task

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingReader serves data once and fails afterwards, counting calls.
type countingReader struct {
	data  []byte
	calls int
}

func (r *countingReader) ReadFile(string) ([]byte, error) {
	r.calls++
	if r.calls > 1 {
		return nil, fs.ErrNotExist
	}
	return r.data, nil
}

func newMetadataTask(t *testing.T) *Task {
	t.Helper()
	m := newTestModule(t)
	tk, err := New(m, "task", nil, filepath.Join(m.TasksDirectory(), "task.json"))
	require.NoError(t, err)
	return tk
}

func newBufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, nil)), &buf
}

func TestMetadata_NoMetadataFile(t *testing.T) {
	m := newTestModule(t)
	tk, err := New(m, "task", []string{filepath.Join(m.TasksDirectory(), "task.sh")}, "")
	require.NoError(t, err)

	reader := &countingReader{}
	meta, err := tk.Metadata(MetadataOptions{ReadFile: reader.ReadFile})
	require.NoError(t, err)
	assert.Empty(t, meta)
	assert.NotNil(t, meta)
	assert.Zero(t, reader.calls)
	assert.True(t, tk.MetadataEvaluated())
}

func TestMetadata_ParsesArbitraryValues(t *testing.T) {
	tk := newMetadataTask(t)
	reader := &countingReader{data: []byte(`{
		"description": "Restart a service",
		"supports_noop": true,
		"input": ["stdin", "environment"],
		"parameters": {"name": {"type": "String"}},
		"timeout": 30
	}`)}

	meta, err := tk.Metadata(MetadataOptions{ReadFile: reader.ReadFile})
	require.NoError(t, err)
	assert.Equal(t, "Restart a service", meta["description"])
	assert.Equal(t, true, meta["supports_noop"])
	assert.Equal(t, []any{"stdin", "environment"}, meta["input"])
	assert.Equal(t, map[string]any{"name": map[string]any{"type": "String"}}, meta["parameters"])
	assert.Equal(t, json.Number("30"), meta["timeout"])
	assert.Equal(t, "Restart a service", tk.Description(MetadataOptions{ReadFile: reader.ReadFile}))
}

func TestMetadata_Memoized(t *testing.T) {
	tk := newMetadataTask(t)
	reader := &countingReader{data: []byte(`{"description": "once"}`)}
	opts := MetadataOptions{ReadFile: reader.ReadFile}

	first, err := tk.Metadata(opts)
	require.NoError(t, err)
	second, err := tk.Metadata(opts)
	require.NoError(t, err)

	assert.Equal(t, 1, reader.calls)
	assert.Equal(t, "once", first["description"])
	assert.Equal(t, first, second)
}

func TestMetadata_IgnoresChangesOnDiskAfterFirstLoad(t *testing.T) {
	m := newTestModule(t)
	require.NoError(t, os.MkdirAll(m.TasksDirectory(), 0o750))
	path := filepath.Join(m.TasksDirectory(), "task.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"description": "before"}`), 0o600))

	tk, err := New(m, "task", nil, path)
	require.NoError(t, err)

	meta, err := tk.Metadata(MetadataOptions{})
	require.NoError(t, err)
	assert.Equal(t, "before", meta["description"])

	require.NoError(t, os.WriteFile(path, []byte(`{"description": "after"}`), 0o600))
	meta, err = tk.Metadata(MetadataOptions{})
	require.NoError(t, err)
	assert.Equal(t, "before", meta["description"])
}

func TestMetadata_UnreadableFileDegradesUnderAnyStrictness(t *testing.T) {
	for _, strict := range []Strictness{"", StrictWarning, StrictError} {
		t.Run(string(strict), func(t *testing.T) {
			tk := newMetadataTask(t)
			logger, buf := newBufferLogger()
			failing := func(string) ([]byte, error) { return nil, errors.New("permission denied") }

			meta, err := tk.Metadata(MetadataOptions{Strict: strict, Logger: logger, ReadFile: failing})
			require.NoError(t, err)
			assert.Empty(t, meta)
			assert.True(t, tk.MetadataEvaluated())
			assert.Empty(t, buf.String())
		})
	}
}

func TestMetadata_MissingFileOnDisk(t *testing.T) {
	tk := newMetadataTask(t)

	meta, err := tk.Metadata(MetadataOptions{Strict: StrictError})
	require.NoError(t, err)
	assert.Empty(t, meta)
}

func TestMetadata_MalformedUnderWarning(t *testing.T) {
	tk := newMetadataTask(t)
	logger, buf := newBufferLogger()
	reader := &countingReader{data: []byte(`{"description": `)}

	meta, err := tk.Metadata(MetadataOptions{Strict: StrictWarning, Logger: logger, ReadFile: reader.ReadFile})
	require.NoError(t, err)
	assert.Empty(t, meta)
	assert.True(t, tk.MetadataEvaluated())
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "task=mymod::task")

	// Cached: no second read.
	_, err = tk.Metadata(MetadataOptions{Strict: StrictError, ReadFile: reader.ReadFile})
	require.NoError(t, err)
	assert.Equal(t, 1, reader.calls)
}

func TestMetadata_MalformedDefaultsToWarning(t *testing.T) {
	tk := newMetadataTask(t)
	logger, buf := newBufferLogger()
	bad := func(string) ([]byte, error) { return []byte("not json"), nil }

	meta, err := tk.Metadata(MetadataOptions{Logger: logger, ReadFile: bad})
	require.NoError(t, err)
	assert.Empty(t, meta)
	assert.Contains(t, buf.String(), "failed to load task metadata")
}

func TestMetadata_MalformedUnderError(t *testing.T) {
	tk := newMetadataTask(t)
	bad := func(string) ([]byte, error) { return []byte("{,}"), nil }

	meta, err := tk.Metadata(MetadataOptions{Strict: StrictError, ReadFile: bad})
	require.Error(t, err)
	assert.Nil(t, meta)
	assert.True(t, errors.Is(err, ErrFaultyMetadata))
	assert.False(t, tk.MetadataEvaluated())

	// Not cached: a later call reads again.
	good := func(string) ([]byte, error) { return []byte(`{"description": "fixed"}`), nil }
	meta, err = tk.Metadata(MetadataOptions{Strict: StrictError, ReadFile: good})
	require.NoError(t, err)
	assert.Equal(t, "fixed", meta["description"])
}

func TestMetadata_NonObjectIsFaulty(t *testing.T) {
	for _, body := range []string{`[1, 2]`, `"text"`, `null`, `42`} {
		t.Run(body, func(t *testing.T) {
			tk := newMetadataTask(t)
			read := func(string) ([]byte, error) { return []byte(body), nil }

			_, err := tk.Metadata(MetadataOptions{Strict: StrictError, ReadFile: read})
			assert.True(t, errors.Is(err, ErrFaultyMetadata))
		})
	}
}

func TestMetadata_KeepsIntegerPrecision(t *testing.T) {
	tk := newMetadataTask(t)
	read := func(string) ([]byte, error) {
		return []byte(`{"id": 9007199254740993, "ratio": 0.25}`), nil
	}

	meta, err := tk.Metadata(MetadataOptions{Strict: StrictError, ReadFile: read})
	require.NoError(t, err)
	assert.Equal(t, json.Number("9007199254740993"), meta["id"])
	assert.Equal(t, json.Number("0.25"), meta["ratio"])

	out, err := json.Marshal(meta)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id": 9007199254740993, "ratio": 0.25}`, string(out))
	assert.Contains(t, string(out), "9007199254740993")
}

func TestMetadata_TrailingDataIsFaulty(t *testing.T) {
	for _, body := range []string{`{"a": 1} {"b": 2}`, `{"a": 1} x`} {
		t.Run(body, func(t *testing.T) {
			tk := newMetadataTask(t)
			read := func(string) ([]byte, error) { return []byte(body), nil }

			_, err := tk.Metadata(MetadataOptions{Strict: StrictError, ReadFile: read})
			assert.True(t, errors.Is(err, ErrFaultyMetadata))
		})
	}

	tk := newMetadataTask(t)
	read := func(string) ([]byte, error) { return []byte("{\"a\": 1}\n\n"), nil }
	_, err := tk.Metadata(MetadataOptions{Strict: StrictError, ReadFile: read})
	assert.NoError(t, err, "trailing whitespace is fine")
}

func TestMetadata_InvalidUTF8IsFaulty(t *testing.T) {
	tk := newMetadataTask(t)
	read := func(string) ([]byte, error) { return []byte("{\"description\":\"\xff\xfe\"}"), nil }

	_, err := tk.Metadata(MetadataOptions{Strict: StrictError, ReadFile: read})
	assert.True(t, errors.Is(err, ErrFaultyMetadata))
	assert.False(t, tk.MetadataEvaluated())

	logger, buf := newBufferLogger()
	meta, err := tk.Metadata(MetadataOptions{Logger: logger, ReadFile: read})
	require.NoError(t, err)
	assert.Empty(t, meta)
	assert.Contains(t, buf.String(), "invalid UTF-8")
}

func TestMetadata_ErrorDoesNotTouchOtherState(t *testing.T) {
	tk := newMetadataTask(t)
	bad := func(string) ([]byte, error) { return []byte("{"), nil }

	_, err := tk.Metadata(MetadataOptions{Strict: StrictError, ReadFile: bad})
	require.Error(t, err)
	assert.Equal(t, "mymod::task", tk.Name)
	assert.Equal(t, filepath.Join(tk.Module().TasksDirectory(), "task.json"), tk.MetadataFile)
}

func TestParseStrictness(t *testing.T) {
	tests := []struct {
		in      string
		want    Strictness
		wantErr bool
	}{
		{"", StrictWarning, false},
		{"warning", StrictWarning, false},
		{"ERROR", StrictError, false},
		{" error ", StrictError, false},
		{"fatal", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStrictness(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
