package state

// StateStore defines the interface for state persistence.
type StateStore interface {
	GetProject(name string) (Project, bool)
	GetProjects() []Project
	RecordBuild(p Project) error
	RemoveProject(name string) error
	NextLabel(name string) int

	// Persistence
	Save() error
}

// Ensure State implements StateStore at compile time.
var _ StateStore = (*State)(nil)
