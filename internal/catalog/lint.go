package catalog

import (
	"errors"
	"fmt"
	"os"

	"github.com/kaptinlin/jsonrepair"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"github.com/twiced-technology-gmbh/modtask/internal/clierr"
	"github.com/twiced-technology-gmbh/modtask/internal/task"
)

// LintResult reports one faulty metadata file.
type LintResult struct {
	Task  string `json:"task"`
	File  string `json:"file"`
	Error string `json:"error,omitempty"`
	Fixed bool   `json:"fixed"`
}

// Lint loads the metadata of every task under error strictness and returns
// one result per faulty file. With fix set, each faulty file is repaired in
// place when the repaired text is a JSON object.
func Lint(tasks []*task.Task, fix bool, opts task.MetadataOptions) []LintResult {
	opts.Strict = task.StrictError

	var results []LintResult
	for _, t := range tasks {
		if !t.HasMetadata() {
			continue
		}
		_, err := t.Metadata(opts)
		if err == nil {
			continue
		}
		if !errors.Is(err, task.ErrFaultyMetadata) {
			results = append(results, LintResult{Task: t.Name, File: t.MetadataFile, Error: err.Error()})
			continue
		}

		r := LintResult{Task: t.Name, File: t.MetadataFile, Error: describeCause(err)}
		if fix {
			if err := repairMetadata(t.MetadataFile); err != nil {
				r.Error = err.Error()
			} else {
				r.Fixed = true
				r.Error = ""
			}
		}
		results = append(results, r)
	}
	return results
}

// Faulty reports whether any result is still unfixed.
func Faulty(results []LintResult) bool {
	for _, r := range results {
		if !r.Fixed {
			return true
		}
	}
	return false
}

func repairMetadata(path string) error {
	raw, err := os.ReadFile(path) //nolint:gosec // path comes from a task scan
	if err != nil {
		return fmt.Errorf("reading metadata: %w", err)
	}

	repaired, err := jsonrepair.JSONRepair(string(raw))
	if err != nil {
		return fmt.Errorf("repairing metadata: %w", err)
	}
	if !gjson.Valid(repaired) || !gjson.Parse(repaired).IsObject() {
		return errors.New("repaired metadata is not a JSON object")
	}

	return task.WriteMetadata(path, pretty.Pretty([]byte(repaired)))
}

// describeCause returns the parse error behind a faulty metadata error.
func describeCause(err error) string {
	var cliErr *clierr.Error
	if errors.As(err, &cliErr) {
		if msg, ok := cliErr.Details["error"].(string); ok {
			return msg
		}
	}
	return err.Error()
}
