// Package vcs is the backend-agnostic source control contract used by the
// build engine. A Provider detects upstream modifications, materializes a
// working copy and labels successful builds; backends such as svn and git
// implement it by driving their command-line clients through a
// process.Executor.
//
// Providers keep no state between calls. The modifications returned by
// GetModifications are handed back through the build context
// (IntegrationResult.Modifications) when the same build cycle later calls
// GetSource and LabelSourceControl.
package vcs

import (
	"context"
	"time"
)

// Provider is implemented by every source control backend.
type Provider interface {
	// GetModifications returns the changes committed between the start times
	// of from and to. from.StartTime() must not be after to.StartTime().
	GetModifications(ctx context.Context, from, to IntegrationResult) ([]Modification, error)

	// GetSource checks out or updates the working copy to the newest
	// revision in result.Modifications().
	GetSource(ctx context.Context, result IntegrationResult) error

	// LabelSourceControl tags the built revision when tagging is enabled and
	// the build succeeded.
	LabelSourceControl(ctx context.Context, result IntegrationResult) error
}

// RevisionValidator is implemented by providers that only understand some
// revision identifiers, so a bad one is rejected before anything runs.
type RevisionValidator interface {
	ValidateRevision(revision string) error
}

// IntegrationResult is the read-only build context a Provider works against.
type IntegrationResult interface {
	Label() string
	StartTime() time.Time
	Succeeded() bool

	// BaseFromWorkingDirectory resolves a provider working directory against
	// the project's working directory. Empty returns the project directory,
	// relative paths are joined onto it and absolute paths are kept.
	BaseFromWorkingDirectory(dir string) string

	// Modifications returns the modifications this build cycle is building.
	Modifications() []Modification

	// SignalStartRunTask reports a human-readable build phase.
	SignalStartRunTask(description string)
}

// Options is the backend-agnostic provider configuration.
type Options struct {
	// Executable is the VCS client. Backends substitute their standard
	// binary name when empty.
	Executable string
	// TrunkURL is the repository URL polled, checked out and tagged from.
	// Required whenever a checkout is needed.
	TrunkURL string
	// WorkingDirectory is resolved with IntegrationResult.BaseFromWorkingDirectory.
	WorkingDirectory string
	Username         string
	Password         string
	// TagOnSuccess labels successful builds; TagBaseURL is only read when it is set.
	TagOnSuccess bool
	TagBaseURL   string
	// AutoGetSource disables GetSource when false.
	AutoGetSource bool
	// Branch is the branch followed by branch-aware backends.
	Branch string
	// Timeout bounds every process run. Zero means no timeout.
	Timeout time.Duration
	// Enrichers post-process every modification set, in order.
	Enrichers []ModificationEnricher
}

// DefaultTimeout is used by configuration loading when no timeout is given.
const DefaultTimeout = 10 * time.Minute
