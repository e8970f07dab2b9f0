// Package build holds the state of one build cycle for one project. Result
// is the build context source control providers work against.
package build

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/sergeknystautas/cisource/internal/vcs"
)

// Status is the outcome of a build.
type Status string

const (
	StatusUnknown   Status = "unknown"
	StatusSuccess   Status = "success"
	StatusFailure   Status = "failure"
	StatusException Status = "exception"
)

// Result is one build of one project. The zero value is not usable; create
// results with NewResult.
type Result struct {
	project          string
	label            string
	startTime        time.Time
	workingDirectory string

	mu            sync.Mutex
	status        Status
	modifications []vcs.Modification
	tasks         []string
	onTask        func(description string)
}

var _ vcs.IntegrationResult = (*Result)(nil)

// NewResult returns a result in StatusUnknown.
func NewResult(project, label, workingDirectory string, start time.Time) *Result {
	return &Result{
		project:          project,
		label:            label,
		startTime:        start,
		workingDirectory: workingDirectory,
		status:           StatusUnknown,
	}
}

func (r *Result) Project() string          { return r.project }
func (r *Result) Label() string            { return r.label }
func (r *Result) StartTime() time.Time     { return r.startTime }
func (r *Result) WorkingDirectory() string { return r.workingDirectory }

func (r *Result) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Result) SetStatus(s Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = s
}

func (r *Result) Succeeded() bool {
	return r.Status() == StatusSuccess
}

// BaseFromWorkingDirectory resolves dir against the project working
// directory. Empty returns the project directory unchanged.
func (r *Result) BaseFromWorkingDirectory(dir string) string {
	switch {
	case dir == "":
		return r.workingDirectory
	case filepath.IsAbs(dir):
		return dir
	default:
		return filepath.Join(r.workingDirectory, dir)
	}
}

// Modifications returns a copy of the modifications being built.
func (r *Result) Modifications() []vcs.Modification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]vcs.Modification(nil), r.modifications...)
}

// SetModifications stores the set returned by GetModifications so the later
// steps of the cycle build exactly that set.
func (r *Result) SetModifications(mods []vcs.Modification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modifications = append([]vcs.Modification(nil), mods...)
}

// OnTask registers fn to be called for every SignalStartRunTask.
func (r *Result) OnTask(fn func(description string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onTask = fn
}

func (r *Result) SignalStartRunTask(description string) {
	r.mu.Lock()
	r.tasks = append(r.tasks, description)
	fn := r.onTask
	r.mu.Unlock()
	if fn != nil {
		fn(description)
	}
}

// Tasks returns every signalled task description, in order.
func (r *Result) Tasks() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.tasks...)
}
