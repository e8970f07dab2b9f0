package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"

	"github.com/sergeknystautas/cisource/internal/config"
	"github.com/sergeknystautas/cisource/internal/cycle"
	"github.com/sergeknystautas/cisource/internal/state"
	"github.com/sergeknystautas/cisource/internal/vcs"
	"github.com/sergeknystautas/cisource/internal/vcs/backends"
	"github.com/sergeknystautas/cisource/internal/version"
)

// rootOptions carries persistent flags and the collaborators commands are
// built from. Tests replace deps to avoid spawning processes.
type rootOptions struct {
	configPath string
	logLevel   string

	settings *config.Settings
	deps     vcs.Deps
}

// app is everything a command needs once the config has been loaded.
type app struct {
	cfg      *config.Config
	state    *state.State
	registry *vcs.Registry
	runner   *cycle.Runner
}

func newRootCommand(opts *rootOptions) *cobra.Command {
	root := &cobra.Command{
		Use:   "cisource",
		Short: "cisource - source control integration for CI builds",
		Long: `cisource polls Subversion and git repositories for new commits, keeps each
project's working copy up to date, runs the project's build command and tags
successful builds back into source control.

Projects are configured in ~/.cisource/projects.yaml (override with --config
or CISOURCE_CONFIG).`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to the projects file (default ~/.cisource/projects.yaml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (default from CISOURCE_LOG_LEVEL, else info)")

	root.AddCommand(
		newModificationsCommand(opts),
		newGetSourceCommand(opts),
		newLabelCommand(opts),
		newRunCommand(opts),
		newDoctorCommand(opts),
		newInitCommand(opts),
	)
	return root
}

// setup resolves settings and installs the logger in the command context.
func (o *rootOptions) setup(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	settings, err := config.LoadSettings(ctx)
	if err != nil {
		return err
	}
	if o.configPath != "" {
		settings.ConfigPath = o.configPath
	}
	if o.logLevel != "" {
		settings.LogLevel = o.logLevel
	}
	level, err := config.ParseLogLevel(settings.LogLevel)
	if err != nil {
		return err
	}
	o.settings = settings

	logger := clog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	cmd.SetContext(clog.WithLogger(ctx, logger))
	return nil
}

// load reads the projects file and state and wires the cycle runner.
func (o *rootOptions) load() (*app, error) {
	cfg, err := config.Load(o.settings.ConfigPath)
	if err != nil {
		return nil, err
	}
	st, err := state.Load(cfg.GetStatePath())
	if err != nil {
		return nil, err
	}
	registry := backends.Default()
	return &app{
		cfg:      cfg,
		state:    st,
		registry: registry,
		runner:   cycle.New(cfg, st, registry, o.deps),
	}, nil
}

// project looks up a configured project by name.
func (a *app) project(name string) (config.Project, error) {
	p, ok := a.cfg.FindProject(name)
	if !ok {
		return config.Project{}, fmt.Errorf("no project named %q in %s", name, a.cfg.Path())
	}
	return p, nil
}
