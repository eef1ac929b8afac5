package task

import (
	"path/filepath"
	"regexp"
	"strings"
)

// NamePattern is the grammar every task name fragment must match.
const NamePattern = `^[a-z][a-z0-9_]*$`

const metadataExtension = ".json"

var nameRe = regexp.MustCompile(NamePattern)

// forbiddenExtensions are suffixes that never belong to a task, whatever the stem.
var forbiddenExtensions = []string{".conf", ".md"}

// IsTaskName reports whether fragment is a legal task name fragment.
func IsTaskName(fragment string) bool {
	return nameRe.MatchString(fragment)
}

// NameFromPath returns the basename of path with its final extension removed.
func NameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// IsTasksFilename reports whether path may be part of a task: its stem must
// be a legal task name and the full filename must not end in a forbidden
// extension.
func IsTasksFilename(path string) bool {
	if !IsTaskName(NameFromPath(path)) {
		return false
	}
	for _, ext := range forbiddenExtensions {
		if strings.HasSuffix(path, ext) {
			return false
		}
	}
	return true
}

// IsTasksMetadataFilename reports whether path is a task's metadata file.
func IsTasksMetadataFilename(path string) bool {
	return IsTasksFilename(path) && strings.HasSuffix(path, metadataExtension)
}

// IsTasksExecutableFilename reports whether path is one of a task's executables.
func IsTasksExecutableFilename(path string) bool {
	return IsTasksFilename(path) && !strings.HasSuffix(path, metadataExtension)
}
