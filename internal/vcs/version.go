package vcs

import (
	"context"
	"fmt"
	"regexp"

	"github.com/Masterminds/semver/v3"
)

var versionPattern = regexp.MustCompile(`\d+\.\d+(?:\.\d+)?`)

// VersionChecker is implemented by providers that can report the version of
// their command-line client.
type VersionChecker interface {
	ClientVersion(ctx context.Context) (*semver.Version, error)
	// MinimumVersion is the constraint the client must satisfy.
	MinimumVersion() *semver.Constraints
}

// ParseClientVersion extracts the first dotted version number from a
// client's --version output, e.g. "git version 2.39.3 (Apple Git-146)".
func ParseClientVersion(output string) (*semver.Version, error) {
	raw := versionPattern.FindString(output)
	if raw == "" {
		return nil, fmt.Errorf("no version number in %q", output)
	}
	return semver.NewVersion(raw)
}

// CheckVersion verifies p's client version against its minimum. Providers
// that do not implement VersionChecker pass with a nil version.
func CheckVersion(ctx context.Context, p Provider) (*semver.Version, error) {
	vc, ok := p.(VersionChecker)
	if !ok {
		return nil, nil
	}
	v, err := vc.ClientVersion(ctx)
	if err != nil {
		return nil, err
	}
	if constraint := vc.MinimumVersion(); constraint != nil && !constraint.Check(v) {
		return v, fmt.Errorf("%w: %s does not satisfy %s", ErrUnsupportedVersion, v, constraint)
	}
	return v, nil
}
