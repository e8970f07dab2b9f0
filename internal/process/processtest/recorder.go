// Package processtest provides a recording process.Executor for tests that
// must not spawn real processes.
package processtest

import (
	"context"
	"strings"
	"sync"

	"github.com/sergeknystautas/cisource/internal/process"
)

type response struct {
	result *process.Result
	err    error
}

// Recorder records every invocation and answers with canned responses keyed
// by subcommand (the first word of the argument string). Unknown subcommands
// succeed with empty output.
type Recorder struct {
	mu        sync.Mutex
	calls     []process.Info
	responses map[string]response
}

// Ensure *Recorder implements process.Executor at compile time.
var _ process.Executor = (*Recorder)(nil)

// New returns an empty Recorder.
func New() *Recorder {
	return &Recorder{responses: make(map[string]response)}
}

// On makes subcommand succeed with stdout.
func (r *Recorder) On(subcommand, stdout string) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses[subcommand] = response{result: &process.Result{Stdout: stdout}}
	return r
}

// Fail makes subcommand fail with a *process.Error carrying exitCode and stderr.
func (r *Recorder) Fail(subcommand string, exitCode int, stderr string) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses[subcommand] = response{
		result: &process.Result{ExitCode: exitCode, Stderr: stderr},
		err:    &process.Error{ExitCode: exitCode, Stderr: stderr, Err: errExit},
	}
	return r
}

func (r *Recorder) Execute(_ context.Context, info process.Info) (*process.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, info)

	resp, ok := r.responses[Subcommand(info)]
	if !ok {
		return &process.Result{}, nil
	}
	if resp.err != nil {
		perr := *resp.err.(*process.Error)
		perr.Info = info
		return resp.result, &perr
	}
	return resp.result, nil
}

// Calls returns the recorded invocations in order.
func (r *Recorder) Calls() []process.Info {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]process.Info(nil), r.calls...)
}

// Args returns the argument string of every recorded invocation.
func (r *Recorder) Args() []string {
	var out []string
	for _, c := range r.Calls() {
		out = append(out, c.Args)
	}
	return out
}

// Subcommands returns the subcommand of every recorded invocation.
func (r *Recorder) Subcommands() []string {
	var out []string
	for _, c := range r.Calls() {
		out = append(out, Subcommand(c))
	}
	return out
}

// Subcommand returns the first word of info's argument string.
func Subcommand(info process.Info) string {
	fields := strings.Fields(info.Args)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

type exitError string

func (e exitError) Error() string { return string(e) }

const errExit = exitError("exit status")
