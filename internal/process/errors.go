package process

import (
	"fmt"
	"strings"
)

// Error is returned for every failed process invocation. Stdout and Stderr
// hold whatever the process wrote before it failed.
type Error struct {
	Info     Info
	ExitCode int
	Stdout   string
	Stderr   string
	TimedOut bool
	Err      error
}

func (e *Error) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("%s timed out after %s", e.Info, e.Info.Timeout)
	}
	msg := fmt.Sprintf("%s failed (exit code %d): %v", e.Info, e.ExitCode, e.Err)
	if stderr := e.redact(strings.TrimSpace(e.Stderr)); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) redact(s string) string {
	for _, secret := range e.Info.Secrets {
		if secret != "" {
			s = strings.ReplaceAll(s, secret, redactedValue)
		}
	}
	return s
}
