package vcs

import (
	"path"
	"strconv"
	"strings"
	"time"
)

// ChangeType classifies what happened to a path.
type ChangeType string

const (
	Added    ChangeType = "added"
	Modified ChangeType = "modified"
	Deleted  ChangeType = "deleted"
	Unknown  ChangeType = "unknown"
)

// Modification is one changed path in one upstream change.
type Modification struct {
	// ChangeNumber is the numeric revision, 0 when unknown or when the
	// backend identifies changes by hash.
	ChangeNumber int `json:"change_number,omitempty"`
	// Version is the backend's revision identifier as text.
	Version      string     `json:"version,omitempty"`
	UserName     string     `json:"user_name"`
	EmailAddress string     `json:"email_address,omitempty"`
	ModifiedTime time.Time  `json:"modified_time"`
	Comment      string     `json:"comment"`
	Path         string     `json:"path"`
	Type         ChangeType `json:"type"`
	URL          string     `json:"url,omitempty"`
	IssueURL     string     `json:"issue_url,omitempty"`
}

// FolderName returns the directory part of Path, without a trailing slash.
func (m Modification) FolderName() string {
	dir, _ := path.Split(m.Path)
	if dir == "/" {
		return dir
	}
	return strings.TrimSuffix(dir, "/")
}

// FileName returns the last element of Path.
func (m Modification) FileName() string {
	_, file := path.Split(m.Path)
	return file
}

// LastChangeNumber returns the highest change number in mods, or 0.
func LastChangeNumber(mods []Modification) int {
	last := 0
	for _, m := range mods {
		if m.ChangeNumber > last {
			last = m.ChangeNumber
		}
	}
	return last
}

// LastVersion returns the Version of the newest modification, or "".
// When change numbers are known the highest one wins. Otherwise mods are
// taken to be newest first, the order git log lists commits in; author
// dates are not ordered along history, so they are not compared.
func LastVersion(mods []Modification) string {
	if n := LastChangeNumber(mods); n > 0 {
		for _, m := range mods {
			if m.ChangeNumber == n && m.Version != "" {
				return m.Version
			}
		}
		return strconv.Itoa(n)
	}
	for _, m := range mods {
		if m.Version != "" {
			return m.Version
		}
	}
	return ""
}
