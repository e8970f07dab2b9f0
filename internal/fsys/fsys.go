// Package fsys is the narrow filesystem contract the source control layer
// depends on. Providers only need to know whether a directory exists and to
// create one, so that is all the interface offers.
package fsys

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileSystem is the filesystem seen by providers.
type FileSystem interface {
	// DirectoryExists reports whether path exists and is a directory.
	DirectoryExists(path string) bool
	// CreateDirectory creates path and any missing parents.
	CreateDirectory(path string) error
}

// OS is the FileSystem backed by the host operating system.
type OS struct{}

// Ensure OS implements FileSystem at compile time.
var _ FileSystem = OS{}

func (OS) DirectoryExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

func (OS) CreateDirectory(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}

// Memory is an in-memory FileSystem used by tests. Creating a directory also
// records every parent, matching os.MkdirAll.
type Memory struct {
	mu      sync.Mutex
	dirs    map[string]bool
	created []string

	// FailCreate, when set, is returned by CreateDirectory.
	FailCreate error
}

// Ensure *Memory implements FileSystem at compile time.
var _ FileSystem = (*Memory)(nil)

// NewMemory returns a Memory filesystem seeded with dirs.
func NewMemory(dirs ...string) *Memory {
	m := &Memory{dirs: make(map[string]bool)}
	for _, d := range dirs {
		m.add(d)
	}
	return m
}

func (m *Memory) add(path string) {
	for p := filepath.Clean(path); ; p = filepath.Dir(p) {
		m.dirs[p] = true
		if parent := filepath.Dir(p); parent == p {
			return
		}
	}
}

func (m *Memory) DirectoryExists(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dirs[filepath.Clean(path)]
}

func (m *Memory) CreateDirectory(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailCreate != nil {
		return m.FailCreate
	}
	m.add(path)
	m.created = append(m.created, filepath.Clean(path))
	return nil
}

// Created returns the paths passed to CreateDirectory, in call order.
func (m *Memory) Created() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.created...)
}
