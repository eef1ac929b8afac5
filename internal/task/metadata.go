package task

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"
)

// Strictness controls how malformed metadata is handled.
type Strictness string

// Recognized strictness levels.
const (
	StrictWarning Strictness = "warning"
	StrictError   Strictness = "error"
)

// ParseStrictness validates a strictness level. The empty string maps to
// StrictWarning.
func ParseStrictness(s string) (Strictness, error) {
	switch Strictness(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrictWarning:
		return StrictWarning, nil
	case StrictError:
		return StrictError, nil
	}
	return "", fmt.Errorf("invalid strictness %q (expected warning or error)", s)
}

// MetadataOptions configures a metadata load.
type MetadataOptions struct {
	// Strict selects the handling of metadata that is not valid JSON.
	// The zero value behaves as StrictWarning.
	Strict Strictness

	// Logger receives the warning emitted for malformed metadata under
	// StrictWarning. Defaults to slog.Default().
	Logger *slog.Logger

	// ReadFile reads the metadata file. Defaults to os.ReadFile.
	ReadFile func(name string) ([]byte, error)
}

type metadataState int

const (
	metadataUnevaluated metadataState = iota
	metadataLoaded
	metadataEmpty
)

// metadataCache memoizes the first successful metadata evaluation.
type metadataCache struct {
	state metadataState
	value map[string]any
}

// MetadataEvaluated reports whether metadata has been loaded and cached.
func (t *Task) MetadataEvaluated() bool {
	return t.meta.state != metadataUnevaluated
}

// Metadata returns the task's metadata, reading and parsing the metadata file
// on the first call and returning the cached result afterwards. A missing or
// unreadable file yields an empty map. Malformed JSON yields an empty map and
// a warning, or ErrFaultyMetadata under StrictError, in which case nothing is
// cached. The returned map must not be modified.
func (t *Task) Metadata(opts MetadataOptions) (map[string]any, error) {
	if t.meta.state != metadataUnevaluated {
		return t.meta.value, nil
	}

	if t.MetadataFile == "" {
		t.cacheEmpty()
		return t.meta.value, nil
	}

	readFile := opts.ReadFile
	if readFile == nil {
		readFile = os.ReadFile
	}

	data, err := readFile(t.MetadataFile)
	if err != nil {
		t.cacheEmpty()
		return t.meta.value, nil
	}

	value, err := decodeMetadata(data)
	if err != nil {
		if opts.Strict == StrictError {
			return nil, FaultyMetadata(t.Name, t.MetadataFile, err)
		}
		logger := opts.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("failed to load task metadata",
			slog.String("task", t.Name),
			slog.String("file", t.MetadataFile),
			slog.String("error", err.Error()))
		t.cacheEmpty()
		return t.meta.value, nil
	}

	t.meta = metadataCache{state: metadataLoaded, value: value}
	return value, nil
}

// decodeMetadata parses data as exactly one top-level JSON object in UTF-8.
// Numbers are kept as json.Number so integers pass through unchanged.
func decodeMetadata(data []byte) (map[string]any, error) {
	if !utf8.Valid(data) {
		return nil, errors.New("invalid UTF-8")
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var value map[string]any
	if err := dec.Decode(&value); err != nil {
		return nil, err
	}
	if value == nil {
		return nil, errors.New("top-level value is not an object")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after top-level object")
	}
	return value, nil
}

// Description returns the metadata "description" string, or "".
func (t *Task) Description(opts MetadataOptions) string {
	meta, err := t.Metadata(opts)
	if err != nil {
		return ""
	}
	desc, _ := meta["description"].(string)
	return desc
}

func (t *Task) cacheEmpty() {
	t.meta = metadataCache{state: metadataEmpty, value: map[string]any{}}
}
