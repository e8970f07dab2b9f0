// Package state persists what the build cycle needs to remember between
// runs: when each project was last built and which label it got.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// State is the build state of every project.
type State struct {
	Projects []Project `json:"projects"`
	path     string    // path to the state file
	mu       sync.RWMutex
}

// Project is the outcome of a project's most recent build cycle.
type Project struct {
	Name string `json:"name"`
	// LastBuildStart is the start time of the last cycle. The next poll
	// window opens here.
	LastBuildStart time.Time `json:"last_build_start"`
	// LastLabel is the numeric label of the last cycle that got as far as
	// building. Labels count up from 1.
	LastLabel        int    `json:"last_label"`
	LastStatus       string `json:"last_status,omitempty"`
	LastChangeNumber int    `json:"last_change_number,omitempty"`
	LastVersion      string `json:"last_version,omitempty"`
	Modifications    int    `json:"modifications"`
}

// New creates a new empty State instance.
func New(path string) *State {
	return &State{
		Projects: []Project{},
		path:     path,
	}
}

// Load loads the state from the given path.
// Returns an empty state if the file doesn't exist.
func Load(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(path), nil
		}
		return nil, fmt.Errorf("failed to read state: %w", err)
	}

	var st State
	st.path = path
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	if st.Projects == nil {
		st.Projects = []Project{}
	}
	return &st, nil
}

// Save writes the state to its configured path, replacing the previous file
// atomically.
func (s *State) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return fmt.Errorf("state path is empty, cannot save")
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save state: %w", err)
	}

	return nil
}

// GetProject returns the state of a project by name.
func (s *State) GetProject(name string) (Project, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.Projects {
		if p.Name == name {
			return p, true
		}
	}
	return Project{}, false
}

// GetProjects returns all project states sorted by name.
// Returns a copy to prevent callers from modifying internal state.
func (s *State) GetProjects() []Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	projects := make([]Project, len(s.Projects))
	copy(projects, s.Projects)
	sort.Slice(projects, func(i, j int) bool { return projects[i].Name < projects[j].Name })
	return projects
}

// RecordBuild stores p, replacing any previous state of the same project.
func (s *State) RecordBuild(p Project) error {
	if p.Name == "" {
		return fmt.Errorf("project name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.Projects {
		if existing.Name == p.Name {
			s.Projects[i] = p
			return nil
		}
	}
	s.Projects = append(s.Projects, p)
	return nil
}

// RemoveProject forgets a project.
func (s *State) RemoveProject(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.Projects {
		if p.Name == name {
			s.Projects = append(s.Projects[:i], s.Projects[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("project not found: %s", name)
}

// NextLabel returns the label the next build of name gets.
func (s *State) NextLabel(name string) int {
	p, _ := s.GetProject(name)
	return p.LastLabel + 1
}
