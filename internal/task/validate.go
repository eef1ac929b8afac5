package task

import (
	"errors"

	"github.com/twiced-technology-gmbh/modtask/internal/clierr"
)

// Sentinel errors, matched with errors.Is through the *clierr.Error wrappers
// returned by this package.
var (
	ErrInvalidName    = errors.New("invalid task name")
	ErrInvalidFile    = errors.New("task file outside the tasks directory")
	ErrFaultyMetadata = errors.New("faulty task metadata")
)

// InvalidName returns the error for a fragment that fails the name grammar.
func InvalidName(fragment string) *clierr.Error {
	return clierr.Newf(clierr.InvalidTaskName, "Task names must match the pattern /%s/", NamePattern).
		WithDetails(map[string]any{"name": fragment}).
		WithCause(ErrInvalidName)
}

// InvalidFile returns the error for a task file outside its module's tasks directory.
func InvalidFile(path, moduleName string) *clierr.Error {
	return clierr.Newf(clierr.InvalidTaskFile,
		"The file '%s' is not located in the %s module's tasks directory", path, moduleName).
		WithDetails(map[string]any{
			"file":   path,
			"module": moduleName,
		}).
		WithCause(ErrInvalidFile)
}

// FaultyMetadata returns the error for a metadata file that is not a JSON object.
func FaultyMetadata(taskName, path string, err error) *clierr.Error {
	return clierr.Newf(clierr.FaultyMetadata,
		"Error loading metadata for task '%s' from %s: %v", taskName, path, err).
		WithDetails(map[string]any{
			"task":  taskName,
			"file":  path,
			"error": err.Error(),
		}).
		WithCause(ErrFaultyMetadata)
}

// NotFound returns the error for a task name that no module provides.
func NotFound(name string) *clierr.Error {
	return clierr.Newf(clierr.TaskNotFound, "task not found: %s", name).
		WithDetails(map[string]any{"name": name})
}

// AlreadyExists returns the error for scaffolding over an existing task file.
func AlreadyExists(name, path string) *clierr.Error {
	return clierr.Newf(clierr.TaskExists, "task %s already has a file at %s", name, path).
		WithDetails(map[string]any{
			"name": name,
			"file": path,
		})
}
