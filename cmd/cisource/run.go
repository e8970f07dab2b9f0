package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/sergeknystautas/cisource/internal/config"
	"github.com/sergeknystautas/cisource/internal/cycle"
)

func newRunCommand(opts *rootOptions) *cobra.Command {
	var (
		all         bool
		force       bool
		interval    time.Duration
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "run [project...]",
		Short: "Run build cycles",
		Long: `Runs one build cycle per project: poll for modifications, get source, run the
build command and label a successful build. Projects run concurrently up to
the configured concurrency. Without --force, projects with no modifications
are skipped.

With --interval the cycles repeat until interrupted, and edits to the
projects file are picked up between rounds. Prometheus metrics are served on
--metrics-addr (or CISOURCE_METRICS_ADDR) while running.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) > 0) {
				return fmt.Errorf("name one or more projects, or pass --all")
			}
			a, err := opts.load()
			if err != nil {
				return err
			}

			projects, err := selectProjects(a, all, args)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if metricsAddr == "" {
				metricsAddr = opts.settings.MetricsAddr
			}
			if metricsAddr != "" {
				stop := serveMetrics(ctx, metricsAddr)
				defer stop()
			}

			r := &reloader{opts: opts, all: all, names: args}
			if interval > 0 {
				w, err := config.NewWatcher(ctx, opts.settings.ConfigPath)
				if err != nil {
					clog.FromContext(ctx).Warnf("projects file changes will not be picked up: %v", err)
				} else {
					r.watcher = w
					defer w.Stop()
				}
			}

			for {
				outcomes, err := a.runner.RunAll(ctx, projects, force)
				writeOutcomes(cmd.OutOrStdout(), outcomes)
				if interval <= 0 {
					return err
				}
				if err != nil {
					clog.FromContext(ctx).Warnf("cycle failed: %v", err)
				}
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(interval):
				}
				a, projects = r.reload(ctx, a, projects)
			}
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "run every configured project")
	cmd.Flags().BoolVar(&force, "force", false, "build even without modifications")
	cmd.Flags().DurationVar(&interval, "interval", 0, "repeat every interval until interrupted")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	return cmd
}

// selectProjects returns every project with all, otherwise the named ones.
func selectProjects(a *app, all bool, names []string) ([]config.Project, error) {
	if all {
		return a.cfg.Projects, nil
	}
	projects := make([]config.Project, 0, len(names))
	for _, name := range names {
		p, err := a.project(name)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, nil
}

// reloader re-reads the projects file between rounds when it has changed.
// A file that no longer loads, or no longer names the selected projects,
// leaves the current round's setup in place.
type reloader struct {
	opts    *rootOptions
	watcher *config.Watcher
	all     bool
	names   []string
}

func (r *reloader) reload(ctx context.Context, a *app, projects []config.Project) (*app, []config.Project) {
	if r.watcher == nil || !r.watcher.Changed() {
		return a, projects
	}
	log := clog.FromContext(ctx)

	next, err := r.opts.load()
	if err != nil {
		log.Warnf("keeping previous projects: %v", err)
		return a, projects
	}
	selected, err := selectProjects(next, r.all, r.names)
	if err != nil {
		log.Warnf("keeping previous projects: %v", err)
		return a, projects
	}
	log.Infof("reloaded %s: %d projects", next.cfg.Path(), len(selected))
	return next, selected
}

// serveMetrics exposes /metrics until the returned stop function is called.
func serveMetrics(ctx context.Context, addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		clog.FromContext(ctx).Infof("serving metrics on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			clog.FromContext(ctx).Errorf("metrics server: %v", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}
}

func writeOutcomes(w io.Writer, outcomes []*cycle.Outcome) {
	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Project", "Label", "Modifications", "Result"}),
	)
	for _, o := range outcomes {
		result := string(o.Status)
		switch {
		case o.Skipped:
			result = "no changes"
		case o.Err != nil:
			result = string(o.Status) + ": " + o.Err.Error()
		}
		table.Append([]string{o.Project, o.Label, strconv.Itoa(len(o.Modifications)), result})
	}
	table.Render()
}

