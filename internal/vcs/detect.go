package vcs

import (
	"path/filepath"

	"github.com/sergeknystautas/cisource/internal/fsys"
)

// MetadataDetector decides whether a directory already holds a working copy
// by looking for the backend's control directory.
type MetadataDetector struct {
	FS fsys.FileSystem
	// Dirs are the control directory names, e.g. ".svn" and "_svn".
	Dirs []string
}

// Exists reports whether any of the control directories exists in dir.
func (d MetadataDetector) Exists(dir string) bool {
	for _, name := range d.Dirs {
		if d.FS.DirectoryExists(filepath.Join(dir, name)) {
			return true
		}
	}
	return false
}
