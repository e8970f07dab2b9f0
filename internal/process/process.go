// Package process runs the external version control executables. It is the
// only place that spawns processes: providers describe what to run with an
// Info and interpret the Result.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/google/uuid"
	"github.com/mattn/go-shellwords"
)

// redactedValue replaces secrets in anything that is logged or returned.
const redactedValue = "******"

// waitDelay bounds how long Execute waits for output pipes after the process
// has been killed.
const waitDelay = 5 * time.Second

// Info describes one process invocation.
type Info struct {
	// Executable is the program to run, resolved through PATH when not absolute.
	Executable string
	// Args is the argument string. It is split with shell word rules, so
	// quoted values containing spaces stay a single argument.
	Args string
	// WorkingDirectory is the directory the process runs in.
	WorkingDirectory string
	// Timeout, when positive, bounds the run.
	Timeout time.Duration
	// Secrets are masked wherever the command line is logged or reported.
	Secrets []string
}

// String returns the command line with secrets masked.
func (i Info) String() string {
	line := strings.TrimSpace(i.Executable + " " + i.Args)
	for _, s := range i.Secrets {
		if s != "" {
			line = strings.ReplaceAll(line, s, redactedValue)
		}
	}
	return line
}

// Result is the captured outcome of a process. Output is decoded as UTF-8.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Executor runs processes. Implementations report every failure (launch
// error, non-zero exit, timeout) as a *Error.
type Executor interface {
	Execute(ctx context.Context, info Info) (*Result, error)
}

// Exec is the Executor backed by os/exec.
type Exec struct {
	// Env, when non-nil, replaces the inherited environment.
	Env []string
}

// Ensure *Exec implements Executor at compile time.
var _ Executor = (*Exec)(nil)

// NewExec returns an Executor that inherits the current environment.
func NewExec() *Exec {
	return &Exec{}
}

// Execute runs info and waits for it to finish.
func (e *Exec) Execute(ctx context.Context, info Info) (*Result, error) {
	argv, err := shellwords.Parse(info.Args)
	if err != nil {
		return nil, &Error{Info: info, ExitCode: -1, Err: fmt.Errorf("invalid argument string: %w", err)}
	}

	if info.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, info.Timeout)
		defer cancel()
	}

	log := clog.FromContext(ctx).With("invocation", uuid.NewString())
	log.Infof("Running %s in %s", info, info.WorkingDirectory)

	cmd := exec.CommandContext(ctx, info.Executable, argv...)
	cmd.Dir = info.WorkingDirectory
	cmd.WaitDelay = waitDelay
	if e.Env != nil {
		cmd.Env = e.Env
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	result := &Result{
		ExitCode: -1,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if runErr == nil {
		observe(info.Executable, outcomeSuccess, result.Duration)
		log.Debugf("Finished %s in %s", info.Executable, result.Duration)
		return result, nil
	}

	perr := &Error{
		Info:     info,
		ExitCode: result.ExitCode,
		Stdout:   result.Stdout,
		Stderr:   result.Stderr,
		TimedOut: errors.Is(ctx.Err(), context.DeadlineExceeded),
		Err:      runErr,
	}
	switch {
	case perr.TimedOut:
		observe(info.Executable, outcomeTimeout, result.Duration)
	case cmd.ProcessState == nil:
		observe(info.Executable, outcomeLaunchFailure, result.Duration)
	default:
		observe(info.Executable, outcomeFailure, result.Duration)
	}
	log.Warnf("%v", perr)
	return result, perr
}
