package vcs

import (
	"context"
	"fmt"

	"github.com/sergeknystautas/cisource/internal/process"
)

// Runner executes one backend's commands. It makes sure the working
// directory exists before the process starts and adds the operation and
// directory to any failure.
type Runner struct {
	Deps
	Options
}

// Run executes the command built in args from dir. op names the operation
// in errors, e.g. "svn update".
func (r *Runner) Run(ctx context.Context, op, dir string, args *ArgumentBuilder) (*process.Result, error) {
	if !r.FS.DirectoryExists(dir) {
		if err := r.FS.CreateDirectory(dir); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	res, err := r.Executor.Execute(ctx, process.Info{
		Executable:       r.Executable,
		Args:             args.String(),
		WorkingDirectory: dir,
		Timeout:          r.Timeout,
		Secrets:          args.Secrets(),
	})
	if err != nil {
		return res, fmt.Errorf("%s in %s: %w", op, dir, err)
	}
	return res, nil
}
