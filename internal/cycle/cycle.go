// Package cycle drives one build cycle per project: poll for modifications,
// get source, run the build command and label a successful build. The
// outcome is persisted so the next cycle polls from where this one started.
package cycle

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/mattn/go-shellwords"
	"golang.org/x/sync/errgroup"

	"github.com/sergeknystautas/cisource/internal/build"
	"github.com/sergeknystautas/cisource/internal/config"
	"github.com/sergeknystautas/cisource/internal/fsys"
	"github.com/sergeknystautas/cisource/internal/process"
	"github.com/sergeknystautas/cisource/internal/state"
	"github.com/sergeknystautas/cisource/internal/vcs"
)

// Providers constructs source control providers. *vcs.Registry implements it.
type Providers interface {
	New(tag string, opts vcs.Options, deps vcs.Deps) (vcs.Provider, error)
}

// Runner runs build cycles.
type Runner struct {
	config    *config.Config
	state     state.StateStore
	providers Providers
	deps      vcs.Deps

	// Now is the clock; tests replace it.
	Now func() time.Time
}

// New returns a Runner. deps are passed to every provider and run the build
// command; missing deps default to the real executor and filesystem.
func New(cfg *config.Config, st state.StateStore, providers Providers, deps vcs.Deps) *Runner {
	if deps.Executor == nil {
		deps.Executor = process.NewExec()
	}
	if deps.FS == nil {
		deps.FS = fsys.OS{}
	}
	return &Runner{
		config:    cfg,
		state:     st,
		providers: providers,
		deps:      deps,
		Now:       time.Now,
	}
}

// Outcome describes one project's cycle.
type Outcome struct {
	Project       string
	Label         string
	Status        build.Status
	Modifications []vcs.Modification
	// Skipped is set when nothing changed and the cycle was not forced.
	Skipped bool
	Err     error
}

// Provider constructs the provider configured for p.
func (r *Runner) Provider(p config.Project) (vcs.Provider, error) {
	opts, err := r.config.ProviderOptions(p)
	if err != nil {
		return nil, err
	}
	return r.providers.New(p.SourceControl.Type, opts, r.deps)
}

// Modifications lists what changed in p between since and now.
func (r *Runner) Modifications(ctx context.Context, p config.Project, since time.Time) ([]vcs.Modification, error) {
	provider, err := r.Provider(p)
	if err != nil {
		return nil, err
	}
	from := build.NewResult(p.Name, "", p.WorkingDirectory, since)
	to := build.NewResult(p.Name, "", p.WorkingDirectory, r.Now())
	mods, err := provider.GetModifications(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("get modifications for %s: %w", p.Name, err)
	}
	return mods, nil
}

// Since returns where the next poll of p starts: its last recorded build,
// or the configured initial window before now when it has never been built.
func (r *Runner) Since(p config.Project) time.Time {
	prev, _ := r.state.GetProject(p.Name)
	return r.since(prev)
}

func (r *Runner) since(prev state.Project) time.Time {
	if prev.LastBuildStart.IsZero() {
		return r.Now().Add(-r.config.GetInitialWindow())
	}
	return prev.LastBuildStart
}

// GetSource brings p's working copy up to date with everything committed
// since its last recorded build. Nothing is recorded.
func (r *Runner) GetSource(ctx context.Context, p config.Project) ([]vcs.Modification, error) {
	provider, err := r.Provider(p)
	if err != nil {
		return nil, err
	}
	from := build.NewResult(p.Name, "", p.WorkingDirectory, r.Since(p))
	to := r.newResult(ctx, p, "")

	mods, err := provider.GetModifications(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("get modifications for %s: %w", p.Name, err)
	}
	to.SetModifications(mods)
	if err := provider.GetSource(ctx, to); err != nil {
		return mods, fmt.Errorf("get source for %s: %w", p.Name, err)
	}
	return mods, nil
}

// Label tags p as a successful build called label. revision, when not
// empty, is the revision to tag; otherwise the working copy is tagged.
func (r *Runner) Label(ctx context.Context, p config.Project, label, revision string) error {
	provider, err := r.Provider(p)
	if err != nil {
		return err
	}
	if v, ok := provider.(vcs.RevisionValidator); ok && revision != "" {
		if err := v.ValidateRevision(revision); err != nil {
			return fmt.Errorf("label %s as %s: %w", p.Name, label, err)
		}
	}
	result := r.newResult(ctx, p, label)
	result.SetStatus(build.StatusSuccess)
	if revision != "" {
		// Hash-identified backends have no change number.
		n, err := strconv.Atoi(revision)
		if err != nil {
			n = 0
		}
		result.SetModifications([]vcs.Modification{{ChangeNumber: n, Version: revision, ModifiedTime: result.StartTime()}})
	}
	if err := provider.LabelSourceControl(ctx, result); err != nil {
		return fmt.Errorf("label %s as %s: %w", p.Name, label, err)
	}
	return nil
}

// RunProject runs one cycle for p. Without force, a cycle that finds no
// modifications stops after polling and records nothing.
func (r *Runner) RunProject(ctx context.Context, p config.Project, force bool) (*Outcome, error) {
	log := clog.FromContext(ctx).With("project", p.Name)
	ctx = clog.WithLogger(ctx, log)

	provider, err := r.Provider(p)
	if err != nil {
		return nil, err
	}

	prev, _ := r.state.GetProject(p.Name)
	label := strconv.Itoa(r.state.NextLabel(p.Name))
	since := r.since(prev)
	from := build.NewResult(p.Name, strconv.Itoa(prev.LastLabel), p.WorkingDirectory, since)
	to := r.newResult(ctx, p, label)
	outcome := &Outcome{Project: p.Name, Label: label}

	mods, err := provider.GetModifications(ctx, from, to)
	if err != nil {
		observeCycle(p.Name, build.StatusException)
		return nil, fmt.Errorf("get modifications for %s: %w", p.Name, err)
	}
	outcome.Modifications = mods
	if len(mods) == 0 && !force {
		log.Debugf("no modifications since %s", since.Format(time.RFC3339))
		outcome.Skipped = true
		return outcome, nil
	}
	log.Infof("building label %s with %d modifications", label, len(mods))
	to.SetModifications(mods)

	if err := provider.GetSource(ctx, to); err != nil {
		return r.finish(ctx, p, prev, to, outcome, build.StatusException, fmt.Errorf("get source for %s: %w", p.Name, err))
	}

	status := r.runBuild(ctx, p, to)
	to.SetStatus(status)

	if err := provider.LabelSourceControl(ctx, to); err != nil {
		return r.finish(ctx, p, prev, to, outcome, build.StatusException, fmt.Errorf("label %s: %w", p.Name, err))
	}
	return r.finish(ctx, p, prev, to, outcome, status, nil)
}

// RunAll cycles projects concurrently, at most the configured concurrency
// at a time. One project failing does not stop the others; every failure is
// returned joined.
func (r *Runner) RunAll(ctx context.Context, projects []config.Project, force bool) ([]*Outcome, error) {
	outcomes := make([]*Outcome, len(projects))

	var g errgroup.Group
	g.SetLimit(r.config.GetConcurrency())
	for i, p := range projects {
		g.Go(func() error {
			outcome, err := r.RunProject(ctx, p, force)
			if outcome == nil {
				outcome = &Outcome{Project: p.Name, Status: build.StatusException}
			}
			outcome.Err = err
			outcomes[i] = outcome
			return nil
		})
	}
	g.Wait()

	var errs []error
	for _, o := range outcomes {
		if o.Err != nil {
			errs = append(errs, o.Err)
		}
	}
	return outcomes, errors.Join(errs...)
}

// finish records the cycle. An exception keeps the previous poll window so
// the same modifications are picked up again.
func (r *Runner) finish(ctx context.Context, p config.Project, prev state.Project, result *build.Result, outcome *Outcome, status build.Status, cycleErr error) (*Outcome, error) {
	result.SetStatus(status)
	outcome.Status = status
	observeCycle(p.Name, status)

	mods := result.Modifications()
	record := state.Project{
		Name:             p.Name,
		LastBuildStart:   result.StartTime(),
		LastLabel:        prev.LastLabel + 1,
		LastStatus:       string(status),
		LastChangeNumber: vcs.LastChangeNumber(mods),
		LastVersion:      vcs.LastVersion(mods),
		Modifications:    len(mods),
	}
	if status == build.StatusException {
		record.LastBuildStart = prev.LastBuildStart
	}
	if err := r.state.RecordBuild(record); err != nil {
		return outcome, errors.Join(cycleErr, err)
	}
	if err := r.state.Save(); err != nil {
		return outcome, errors.Join(cycleErr, err)
	}

	clog.FromContext(ctx).Infof("label %s finished: %s", outcome.Label, status)
	return outcome, cycleErr
}

// runBuild runs the project's build command in its working directory. No
// command counts as success.
func (r *Runner) runBuild(ctx context.Context, p config.Project, result *build.Result) build.Status {
	if p.BuildCommand == "" {
		return build.StatusSuccess
	}
	result.SignalStartRunTask("Running build")

	words, err := shellwords.Parse(p.BuildCommand)
	if err != nil || len(words) == 0 {
		clog.FromContext(ctx).Errorf("invalid build command %q: %v", p.BuildCommand, err)
		return build.StatusFailure
	}
	var args vcs.ArgumentBuilder
	for _, w := range words[1:] {
		args.AppendArgument(vcs.Quote(w))
	}

	res, err := r.deps.Executor.Execute(ctx, process.Info{
		Executable:       words[0],
		Args:             args.String(),
		WorkingDirectory: p.WorkingDirectory,
		Timeout:          p.BuildTimeout(),
	})
	if err != nil {
		clog.FromContext(ctx).Warnf("build failed: %v", err)
		return build.StatusFailure
	}
	clog.FromContext(ctx).Infof("build succeeded in %s", res.Duration)
	return build.StatusSuccess
}

func (r *Runner) newResult(ctx context.Context, p config.Project, label string) *build.Result {
	result := build.NewResult(p.Name, label, p.WorkingDirectory, r.Now())
	log := clog.FromContext(ctx)
	result.OnTask(func(description string) {
		log.Infof("%s", description)
	})
	return result
}
