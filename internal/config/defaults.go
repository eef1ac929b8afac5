// Package config handles workspace configuration.
package config

const (
	// DefaultModuleDir is the modulepath entry of a new workspace.
	DefaultModuleDir = "modules"
	// DefaultTasksDir is the tasks subdirectory name inside each module.
	DefaultTasksDir = "tasks"
	// DefaultStrict is the metadata strictness level when none is configured.
	DefaultStrict = "warning"

	// ConfigFileName is the name of the config file in the workspace root.
	ConfigFileName = "modtask.yml"

	// CurrentVersion is the current config schema version.
	CurrentVersion = 2

	// StrictEnv overrides the configured strictness level.
	StrictEnv = "MODTASK_STRICT"
)

// DefaultModulePath is the modulepath of a new workspace (slices cannot be const).
var DefaultModulePath = []string{DefaultModuleDir}
