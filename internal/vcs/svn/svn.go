// Package svn drives the Subversion command-line client.
package svn

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/chainguard-dev/clog"

	"github.com/sergeknystautas/cisource/internal/process"
	"github.com/sergeknystautas/cisource/internal/vcs"
)

const (
	// Type is the registry tag of this backend.
	Type = "svn"
	// DefaultExecutable is used when Options.Executable is empty.
	DefaultExecutable = "svn"

	commandDateFormat = "2006-01-02T15:04:05Z"
	tagMessageFormat  = "CCNET build %s"
)

var minimumVersion = mustConstraint(">= 1.6.0")

// Provider is the Subversion vcs.Provider. It holds configuration only and
// may be shared between goroutines.
type Provider struct {
	opts     vcs.Options
	runner   *vcs.Runner
	detector vcs.MetadataDetector
}

var (
	_ vcs.Provider          = (*Provider)(nil)
	_ vcs.VersionChecker    = (*Provider)(nil)
	_ vcs.RevisionValidator = (*Provider)(nil)
)

// New returns a Provider for opts.
func New(opts vcs.Options, deps vcs.Deps) *Provider {
	if opts.Executable == "" {
		opts.Executable = DefaultExecutable
	}
	return &Provider{
		opts:     opts,
		runner:   &vcs.Runner{Deps: deps, Options: opts},
		detector: vcs.MetadataDetector{FS: deps.FS, Dirs: []string{".svn", "_svn"}},
	}
}

// Factory adapts New to vcs.Factory.
func Factory(opts vcs.Options, deps vcs.Deps) (vcs.Provider, error) {
	return New(opts, deps), nil
}

// FormatCommandDate renders t the way svn expects inside a -r {date} range.
func FormatCommandDate(t time.Time) string {
	return t.UTC().Format(commandDateFormat)
}

// GetModifications runs svn log over [from, to] and parses the result.
func (p *Provider) GetModifications(ctx context.Context, from, to vcs.IntegrationResult) ([]vcs.Modification, error) {
	var args vcs.ArgumentBuilder
	args.AddArgument("log")
	args.AddArgument(p.opts.TrunkURL)
	args.AppendArgument(fmt.Sprintf(`-r "{%s}:{%s}"`, FormatCommandDate(from.StartTime()), FormatCommandDate(to.StartTime())))
	args.AppendArgument("--verbose --xml")
	p.appendCommonSwitches(&args)

	res, err := p.runner.Run(ctx, "svn log", p.workingDirectory(to), &args)
	if err != nil {
		return nil, err
	}

	mods, err := ParseLog(res.Stdout, from.StartTime())
	if err != nil {
		return nil, fmt.Errorf("svn log of %s: %w", p.opts.TrunkURL, err)
	}
	vcs.Enrich(mods, p.opts.Enrichers...)

	clog.FromContext(ctx).With("backend", Type).Debugf("%d modifications since %s", len(mods), FormatCommandDate(from.StartTime()))
	return mods, nil
}

// GetSource updates the working copy when one exists and checks out
// TrunkURL otherwise.
func (p *Provider) GetSource(ctx context.Context, result vcs.IntegrationResult) error {
	result.SignalStartRunTask("Getting source from SVN")
	if !p.opts.AutoGetSource {
		return nil
	}

	dir := p.workingDirectory(result)
	if p.detector.Exists(dir) {
		return p.update(ctx, dir, vcs.LastChangeNumber(result.Modifications()))
	}
	return p.checkout(ctx, dir)
}

func (p *Provider) checkout(ctx context.Context, dir string) error {
	if strings.TrimSpace(p.opts.TrunkURL) == "" {
		return &vcs.ConfigurationError{
			Field:   "trunkUrl",
			Message: "configuration element must be specified in order to automatically checkout source from SVN.",
		}
	}

	var args vcs.ArgumentBuilder
	args.AddArgument("checkout")
	args.AddArgument(p.opts.TrunkURL)
	args.AddArgument(dir)
	p.appendCommonSwitches(&args)

	clog.FromContext(ctx).With("backend", Type).Infof("checking out %s into %s", p.opts.TrunkURL, dir)
	_, err := p.runner.Run(ctx, "svn checkout", dir, &args)
	return err
}

func (p *Provider) update(ctx context.Context, dir string, revision int) error {
	var args vcs.ArgumentBuilder
	args.AddArgument("update")
	args.AppendIf(revision > 0, "--revision %d", revision)
	p.appendCommonSwitches(&args)

	clog.FromContext(ctx).With("backend", Type).Infof("updating %s to revision %d", dir, revision)
	_, err := p.runner.Run(ctx, "svn update", dir, &args)
	return err
}

// LabelSourceControl copies the built revision to TagBaseURL/<label>. The
// copy is taken from TrunkURL at the newest known revision, or from the
// working copy when no revision is known.
func (p *Provider) LabelSourceControl(ctx context.Context, result vcs.IntegrationResult) error {
	if !p.opts.TagOnSuccess || !result.Succeeded() {
		return nil
	}
	if strings.TrimSpace(p.opts.TagBaseURL) == "" {
		return &vcs.ConfigurationError{
			Field:   "tagBaseUrl",
			Message: "configuration element must be specified in order to tag successful builds.",
		}
	}

	dir := p.workingDirectory(result)
	revision := vcs.LastChangeNumber(result.Modifications())
	source := p.opts.TrunkURL
	if revision == 0 {
		source = strings.TrimRight(dir, string(filepath.Separator))
	}

	var args vcs.ArgumentBuilder
	args.AddArgument("copy")
	args.AddFlag("-m", fmt.Sprintf(tagMessageFormat, result.Label()))
	args.AddArgument(source)
	args.AddArgument(p.tagURL(result.Label()))
	args.AppendIf(revision > 0, "--revision %d", revision)
	p.appendCommonSwitches(&args)

	clog.FromContext(ctx).With("backend", Type).Infof("tagging %s as %s", source, p.tagURL(result.Label()))
	_, err := p.runner.Run(ctx, "svn copy", dir, &args)
	return err
}

// ClientVersion runs svn --version --quiet.
func (p *Provider) ClientVersion(ctx context.Context) (*semver.Version, error) {
	res, err := p.runner.Executor.Execute(ctx, process.Info{
		Executable: p.opts.Executable,
		Args:       "--version --quiet",
		Timeout:    p.opts.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("svn version: %w", err)
	}
	return vcs.ParseClientVersion(res.Stdout)
}

func (p *Provider) MinimumVersion() *semver.Constraints {
	return minimumVersion
}

func (p *Provider) tagURL(label string) string {
	return strings.TrimSuffix(p.opts.TagBaseURL, "/") + "/" + label
}

func (p *Provider) workingDirectory(result vcs.IntegrationResult) string {
	return result.BaseFromWorkingDirectory(p.opts.WorkingDirectory)
}

// appendCommonSwitches adds authentication and the switches that keep svn
// from prompting or caching credentials. They always go last.
func (p *Provider) appendCommonSwitches(args *vcs.ArgumentBuilder) {
	args.AddFlag("--username", p.opts.Username)
	args.AddSecretFlag("--password", p.opts.Password)
	args.AppendArgument("--non-interactive")
	args.AppendArgument("--no-auth-cache")
}

func mustConstraint(c string) *semver.Constraints {
	constraint, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return constraint
}

// ValidateRevision accepts positive revision numbers, the only revisions a
// tag can be copied from.
func (p *Provider) ValidateRevision(revision string) error {
	n, err := strconv.Atoi(revision)
	if err != nil || n <= 0 {
		return fmt.Errorf("svn revision %q is not a positive revision number", revision)
	}
	return nil
}
