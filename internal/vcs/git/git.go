// Package git drives the git command-line client. The repository at
// TrunkURL is cloned into the working directory; history is read from the
// remote-tracking branch after a fetch, and labels are annotated tags pushed
// back to origin.
package git

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/chainguard-dev/clog"

	"github.com/sergeknystautas/cisource/internal/process"
	"github.com/sergeknystautas/cisource/internal/vcs"
)

const (
	// Type is the registry tag of this backend.
	Type = "git"
	// DefaultExecutable is used when Options.Executable is empty.
	DefaultExecutable = "git"
	// DefaultBranch is followed when Options.Branch is empty.
	DefaultBranch = "main"

	remote           = "origin"
	tagMessageFormat = "CCNET build %s"
)

var minimumVersion = mustConstraint(">= 2.0.0")

// Provider is the git vcs.Provider.
type Provider struct {
	opts     vcs.Options
	runner   *vcs.Runner
	detector vcs.MetadataDetector
}

var (
	_ vcs.Provider       = (*Provider)(nil)
	_ vcs.VersionChecker = (*Provider)(nil)
)

// New returns a Provider for opts.
func New(opts vcs.Options, deps vcs.Deps) *Provider {
	if opts.Executable == "" {
		opts.Executable = DefaultExecutable
	}
	if opts.Branch == "" {
		opts.Branch = DefaultBranch
	}
	return &Provider{
		opts:     opts,
		runner:   &vcs.Runner{Deps: deps, Options: opts},
		detector: vcs.MetadataDetector{FS: deps.FS, Dirs: []string{".git"}},
	}
}

// Factory adapts New to vcs.Factory.
func Factory(opts vcs.Options, deps vcs.Deps) (vcs.Provider, error) {
	return New(opts, deps), nil
}

// GetModifications brings the local repository up to date with origin and
// lists the commits on the followed branch between from and to.
func (p *Provider) GetModifications(ctx context.Context, from, to vcs.IntegrationResult) ([]vcs.Modification, error) {
	dir := p.workingDirectory(to)
	if err := p.syncRepository(ctx, dir); err != nil {
		return nil, err
	}

	var args vcs.ArgumentBuilder
	args.AddArgument("log")
	args.AddArgument("--since=" + formatDate(from.StartTime()))
	args.AddArgument("--until=" + formatDate(to.StartTime()))
	args.AddArgument("--name-status")
	args.AddArgument("--pretty=" + prettyFormat)
	args.AddArgument(p.trackingRef())

	res, err := p.runner.Run(ctx, "git log", dir, &args)
	if err != nil {
		return nil, err
	}

	mods, err := ParseLog(res.Stdout)
	if err != nil {
		return nil, fmt.Errorf("git log of %s: %w", p.trackingRef(), err)
	}
	vcs.Enrich(mods, p.opts.Enrichers...)

	clog.FromContext(ctx).With("backend", Type).Debugf("%d modifications on %s", len(mods), p.trackingRef())
	return mods, nil
}

// GetSource checks out the newest commit in result.Modifications(), or the
// tip of the followed branch when none is known.
func (p *Provider) GetSource(ctx context.Context, result vcs.IntegrationResult) error {
	result.SignalStartRunTask("Getting source from Git")
	if !p.opts.AutoGetSource {
		return nil
	}

	dir := p.workingDirectory(result)
	if err := p.syncRepository(ctx, dir); err != nil {
		return err
	}

	revision := vcs.LastVersion(result.Modifications())
	if revision == "" {
		revision = p.trackingRef()
	}

	var args vcs.ArgumentBuilder
	args.AddArgument("checkout")
	args.AddArgument("--force")
	args.AddArgument(revision)

	clog.FromContext(ctx).With("backend", Type).Infof("checking out %s in %s", revision, dir)
	_, err := p.runner.Run(ctx, "git checkout", dir, &args)
	return err
}

// LabelSourceControl creates an annotated tag on the built commit and
// pushes it to origin.
func (p *Provider) LabelSourceControl(ctx context.Context, result vcs.IntegrationResult) error {
	if !p.opts.TagOnSuccess || !result.Succeeded() {
		return nil
	}

	dir := p.workingDirectory(result)
	label := result.Label()
	revision := vcs.LastVersion(result.Modifications())
	if revision == "" {
		revision = "HEAD"
	}

	var tag vcs.ArgumentBuilder
	tag.AddArgument("tag")
	tag.AddArgument("-a")
	tag.AddArgument(label)
	tag.AddFlag("-m", fmt.Sprintf(tagMessageFormat, label))
	tag.AddArgument(revision)
	if _, err := p.runner.Run(ctx, "git tag", dir, &tag); err != nil {
		return err
	}

	var push vcs.ArgumentBuilder
	push.AddArgument("push")
	push.AddArgument(remote)
	push.AddArgument(label)

	clog.FromContext(ctx).With("backend", Type).Infof("pushing tag %s at %s", label, revision)
	_, err := p.runner.Run(ctx, "git push", dir, &push)
	return err
}

// ClientVersion runs git --version.
func (p *Provider) ClientVersion(ctx context.Context) (*semver.Version, error) {
	res, err := p.runner.Executor.Execute(ctx, process.Info{
		Executable: p.opts.Executable,
		Args:       "--version",
		Timeout:    p.opts.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("git version: %w", err)
	}
	return vcs.ParseClientVersion(res.Stdout)
}

func (p *Provider) MinimumVersion() *semver.Constraints {
	return minimumVersion
}

// syncRepository clones TrunkURL into dir when there is no repository yet
// and fetches origin otherwise.
func (p *Provider) syncRepository(ctx context.Context, dir string) error {
	var args vcs.ArgumentBuilder
	op := "git fetch"
	if p.detector.Exists(dir) {
		args.AddArgument("fetch")
		args.AddArgument("--prune")
		args.AddArgument(remote)
	} else {
		if strings.TrimSpace(p.opts.TrunkURL) == "" {
			return &vcs.ConfigurationError{
				Field:   "trunkUrl",
				Message: "configuration element must be specified in order to clone source from Git.",
			}
		}
		op = "git clone"
		args.AddArgument("clone")
		args.AddFlag("--branch", p.opts.Branch)
		args.AddArgument(p.opts.TrunkURL)
		args.AddArgument(".")
		clog.FromContext(ctx).With("backend", Type).Infof("cloning %s into %s", p.opts.TrunkURL, dir)
	}

	_, err := p.runner.Run(ctx, op, dir, &args)
	return err
}

func (p *Provider) trackingRef() string {
	return remote + "/" + p.opts.Branch
}

func (p *Provider) workingDirectory(result vcs.IntegrationResult) string {
	return result.BaseFromWorkingDirectory(p.opts.WorkingDirectory)
}

func formatDate(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func mustConstraint(c string) *semver.Constraints {
	constraint, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return constraint
}
