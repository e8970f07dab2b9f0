package git

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/sergeknystautas/cisource/internal/build"
	"github.com/sergeknystautas/cisource/internal/fsys"
	"github.com/sergeknystautas/cisource/internal/process"
	"github.com/sergeknystautas/cisource/internal/process/processtest"
	"github.com/sergeknystautas/cisource/internal/vcs"
)

const prettyArg = "--pretty=format:@@@%x1f%H%x1f%an%x1f%ae%x1f%aI%x1f%s"

func newProvider(opts vcs.Options, existing ...string) (*Provider, *processtest.Recorder, *fsys.Memory) {
	rec := processtest.New()
	fs := fsys.NewMemory(existing...)
	return New(opts, vcs.Deps{Executor: rec, FS: fs}), rec, fs
}

func newResult(label string, mods ...vcs.Modification) *build.Result {
	r := build.NewResult("p1", label, "/work/p1", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	r.SetModifications(mods)
	return r
}

func TestGetModifications_ExistingRepository(t *testing.T) {
	p, rec, _ := newProvider(vcs.Options{TrunkURL: "https://git/repo.git"}, "/work/p1/.git")
	rec.On("log", sampleLog)

	from := build.NewResult("p1", "1", "/work/p1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	mods, err := p.GetModifications(context.Background(), from, newResult("2"))
	if err != nil {
		t.Fatalf("GetModifications() error = %v", err)
	}

	want := []string{
		"fetch --prune origin",
		"log --since=2024-01-01T00:00:00Z --until=2024-01-02T00:00:00Z --name-status " + prettyArg + " origin/main",
	}
	if diff := cmp.Diff(want, rec.Args()); diff != "" {
		t.Errorf("Args() mismatch (-want +got):\n%s", diff)
	}
	if len(mods) != 7 {
		t.Errorf("got %d modifications, want 7", len(mods))
	}
}

func TestGetModifications_ClonesFirst(t *testing.T) {
	p, rec, fs := newProvider(vcs.Options{TrunkURL: "https://git/repo.git", Branch: "release"})

	at := newResult("1")
	if _, err := p.GetModifications(context.Background(), at, at); err != nil {
		t.Fatalf("GetModifications() error = %v", err)
	}

	args := rec.Args()
	if len(args) != 2 || args[0] != "clone --branch release https://git/repo.git ." {
		t.Fatalf("Args() = %v", args)
	}
	if got := args[1]; !strings.HasSuffix(got, " origin/release") {
		t.Errorf("log does not read origin/release: %q", got)
	}
	if diff := cmp.Diff([]string{"/work/p1"}, fs.Created()); diff != "" {
		t.Errorf("Created() mismatch (-want +got):\n%s", diff)
	}
}

func TestGetModifications_Enriched(t *testing.T) {
	linker, err := vcs.NewIssueLinker(`PROJ-\d+`, "https://jira/browse/{issue}")
	if err != nil {
		t.Fatal(err)
	}
	p, rec, _ := newProvider(vcs.Options{Enrichers: []vcs.ModificationEnricher{linker}}, "/work/p1/.git")
	rec.On("log", sampleLog)

	at := newResult("1")
	mods, err := p.GetModifications(context.Background(), at, at)
	if err != nil {
		t.Fatalf("GetModifications() error = %v", err)
	}
	if mods[0].IssueURL != "" || mods[1].IssueURL != "https://jira/browse/PROJ-7" {
		t.Errorf("IssueURLs = %q, %q", mods[0].IssueURL, mods[1].IssueURL)
	}
}

func TestGetModifications_BadLog(t *testing.T) {
	p, rec, _ := newProvider(vcs.Options{}, "/work/p1/.git")
	rec.On("log", "fatal: bad revision 'origin/main'\n")

	at := newResult("1")
	if _, err := p.GetModifications(context.Background(), at, at); !errors.Is(err, vcs.ErrBadLogData) {
		t.Fatalf("GetModifications() error = %v, want ErrBadLogData", err)
	}
}

func TestGetSource(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		mods     []vcs.Modification
		want     []string
	}{
		{
			name:     "fetch and checkout newest commit",
			existing: []string{"/work/p1/.git"},
			mods: []vcs.Modification{
				{Version: "new", ModifiedTime: time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC)},
				{Version: "old", ModifiedTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
			},
			want: []string{"fetch --prune origin", "checkout --force new"},
		},
		{
			name:     "tip wins a tie on author date",
			existing: []string{"/work/p1/.git"},
			mods: []vcs.Modification{
				{Version: "tip", ModifiedTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
				{Version: "parent", ModifiedTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
			},
			want: []string{"fetch --prune origin", "checkout --force tip"},
		},
		{
			name:     "tip wins over a later author date",
			existing: []string{"/work/p1/.git"},
			mods: []vcs.Modification{
				{Version: "tip", ModifiedTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
				{Version: "rebased", ModifiedTime: time.Date(2024, 1, 1, 5, 0, 0, 0, time.UTC)},
			},
			want: []string{"fetch --prune origin", "checkout --force tip"},
		},
		{
			name:     "no known commit follows the branch",
			existing: []string{"/work/p1/.git"},
			want:     []string{"fetch --prune origin", "checkout --force origin/main"},
		},
		{
			name: "clone when missing",
			want: []string{"clone --branch main https://git/repo.git .", "checkout --force origin/main"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, rec, _ := newProvider(vcs.Options{TrunkURL: "https://git/repo.git", AutoGetSource: true}, tt.existing...)
			result := newResult("1", tt.mods...)

			if err := p.GetSource(context.Background(), result); err != nil {
				t.Fatalf("GetSource() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, rec.Args()); diff != "" {
				t.Errorf("Args() mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff([]string{"Getting source from Git"}, result.Tasks()); diff != "" {
				t.Errorf("Tasks() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGetSource_MissingTrunkURL(t *testing.T) {
	p, rec, _ := newProvider(vcs.Options{AutoGetSource: true})

	err := p.GetSource(context.Background(), newResult("1"))
	var cerr *vcs.ConfigurationError
	if !errors.As(err, &cerr) || cerr.Field != "trunkUrl" {
		t.Fatalf("GetSource() error = %v, want trunkUrl configuration error", err)
	}
	if len(rec.Calls()) != 0 {
		t.Error("process started without trunk URL")
	}
}

func TestGetSource_Disabled(t *testing.T) {
	p, rec, _ := newProvider(vcs.Options{TrunkURL: "https://git/repo.git"})
	if err := p.GetSource(context.Background(), newResult("1")); err != nil {
		t.Fatalf("GetSource() error = %v", err)
	}
	if len(rec.Calls()) != 0 {
		t.Errorf("Args() = %v, want none", rec.Args())
	}
}

func TestLabelSourceControl(t *testing.T) {
	tests := []struct {
		name   string
		tag    bool
		status build.Status
		mods   []vcs.Modification
		want   []string
	}{
		{
			name:   "known commit",
			tag:    true,
			status: build.StatusSuccess,
			mods:   []vcs.Modification{{Version: "a1b2"}},
			want:   []string{`tag -a 42 -m "CCNET build 42" a1b2`, "push origin 42"},
		},
		{
			name:   "tip of a same-second pair",
			tag:    true,
			status: build.StatusSuccess,
			mods: []vcs.Modification{
				{Version: "tip", ModifiedTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
				{Version: "parent", ModifiedTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
			},
			want: []string{`tag -a 42 -m "CCNET build 42" tip`, "push origin 42"},
		},
		{
			name:   "head when nothing known",
			tag:    true,
			status: build.StatusSuccess,
			want:   []string{`tag -a 42 -m "CCNET build 42" HEAD`, "push origin 42"},
		},
		{
			name:   "failed build",
			tag:    true,
			status: build.StatusFailure,
			mods:   []vcs.Modification{{Version: "a1b2"}},
		},
		{
			name:   "tagging disabled",
			status: build.StatusSuccess,
			mods:   []vcs.Modification{{Version: "a1b2"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, rec, _ := newProvider(vcs.Options{TagOnSuccess: tt.tag}, "/work/p1/.git")
			result := newResult("42", tt.mods...)
			result.SetStatus(tt.status)

			if err := p.LabelSourceControl(context.Background(), result); err != nil {
				t.Fatalf("LabelSourceControl() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, rec.Args()); diff != "" {
				t.Errorf("Args() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLabelSourceControl_TagFailureSkipsPush(t *testing.T) {
	p, rec, _ := newProvider(vcs.Options{TagOnSuccess: true}, "/work/p1/.git")
	rec.Fail("tag", 128, "fatal: tag '42' already exists")
	result := newResult("42")
	result.SetStatus(build.StatusSuccess)

	err := p.LabelSourceControl(context.Background(), result)
	var perr *process.Error
	if !errors.As(err, &perr) || perr.ExitCode != 128 {
		t.Fatalf("LabelSourceControl() error = %v, want exit 128", err)
	}
	if diff := cmp.Diff([]string{"tag"}, rec.Subcommands()); diff != "" {
		t.Errorf("Subcommands() mismatch (-want +got):\n%s", diff)
	}
}

func TestClientVersion(t *testing.T) {
	tests := []struct {
		out     string
		wantErr error
	}{
		{"git version 2.39.3 (Apple Git-146)\n", nil},
		{"git version 1.9.5\n", vcs.ErrUnsupportedVersion},
	}

	for _, tt := range tests {
		t.Run(tt.out, func(t *testing.T) {
			p, rec, _ := newProvider(vcs.Options{})
			rec.On("--version", tt.out)

			if _, err := vcs.CheckVersion(context.Background(), p); !errors.Is(err, tt.wantErr) {
				t.Errorf("CheckVersion() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
