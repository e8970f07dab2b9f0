package process

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInfoString(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want string
	}{
		{
			name: "no secrets",
			info: Info{Executable: "svn", Args: "update --non-interactive"},
			want: "svn update --non-interactive",
		},
		{
			name: "password masked",
			info: Info{Executable: "svn", Args: "update --username bob --password hunter2", Secrets: []string{"hunter2"}},
			want: "svn update --username bob --password ******",
		},
		{
			name: "empty secret ignored",
			info: Info{Executable: "svn", Args: "log", Secrets: []string{""}},
			want: "svn log",
		},
		{
			name: "no args",
			info: Info{Executable: "svn"},
			want: "svn",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExec_Success(t *testing.T) {
	dir := t.TempDir()
	before := testutil.ToFloat64(invocationCounter.WithLabelValues("sh", outcomeSuccess))

	res, err := NewExec().Execute(context.Background(), Info{
		Executable:       "sh",
		Args:             `-c "pwd; echo 'two words' 1>&2"`,
		WorkingDirectory: dir,
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", res.ExitCode)
	}
	if !strings.HasSuffix(strings.TrimSpace(res.Stdout), strings.TrimPrefix(dir, "/private")) {
		t.Errorf("Stdout = %q, want working directory %q", res.Stdout, dir)
	}
	if strings.TrimSpace(res.Stderr) != "two words" {
		t.Errorf("Stderr = %q, want %q", res.Stderr, "two words")
	}

	after := testutil.ToFloat64(invocationCounter.WithLabelValues("sh", outcomeSuccess))
	if after-before != 1 {
		t.Errorf("success counter moved by %v, want 1", after-before)
	}
}

func TestExec_NonZeroExit(t *testing.T) {
	_, err := NewExec().Execute(context.Background(), Info{
		Executable:       "sh",
		Args:             `-c "echo denied for s3cret 1>&2; exit 3"`,
		WorkingDirectory: t.TempDir(),
		Secrets:          []string{"s3cret"},
	})

	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("Execute() error = %v, want *Error", err)
	}
	if perr.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", perr.ExitCode)
	}
	if perr.TimedOut {
		t.Error("TimedOut = true, want false")
	}
	if strings.TrimSpace(perr.Stderr) != "denied for s3cret" {
		t.Errorf("Stderr = %q, want raw stderr preserved", perr.Stderr)
	}
	if strings.Contains(perr.Error(), "s3cret") {
		t.Errorf("Error() leaks secret: %q", perr.Error())
	}
	if !strings.Contains(perr.Error(), "exit code 3") {
		t.Errorf("Error() = %q, want exit code", perr.Error())
	}
}

func TestExec_Timeout(t *testing.T) {
	_, err := NewExec().Execute(context.Background(), Info{
		Executable:       "sh",
		Args:             `-c "exec sleep 5"`,
		WorkingDirectory: t.TempDir(),
		Timeout:          50 * time.Millisecond,
	})

	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("Execute() error = %v, want *Error", err)
	}
	if !perr.TimedOut {
		t.Errorf("TimedOut = false, want true (err = %v)", err)
	}
	if !strings.Contains(perr.Error(), "timed out") {
		t.Errorf("Error() = %q, want timeout message", perr.Error())
	}
}

func TestExec_LaunchFailure(t *testing.T) {
	_, err := NewExec().Execute(context.Background(), Info{
		Executable:       "/nonexistent/cisource-test-binary",
		WorkingDirectory: t.TempDir(),
	})

	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("Execute() error = %v, want *Error", err)
	}
	if perr.ExitCode != -1 {
		t.Errorf("ExitCode = %d, want -1", perr.ExitCode)
	}
}

func TestExec_InvalidArgs(t *testing.T) {
	_, err := NewExec().Execute(context.Background(), Info{
		Executable: "sh",
		Args:       `-c "unterminated`,
	})

	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("Execute() error = %v, want *Error", err)
	}
	if !strings.Contains(perr.Error(), "invalid argument string") {
		t.Errorf("Error() = %q", perr.Error())
	}
}
