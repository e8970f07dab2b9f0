package git

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/sergeknystautas/cisource/internal/vcs"
)

const sampleLog = "@@@\x1fb2c3\x1fBob\x1fbob@example.com\x1f2024-01-01T12:00:00+02:00\x1fMerge branch 'feature' | cleanup\n" +
	"\n" +
	"@@@\x1fa1b2\x1fAlice\x1falice@example.com\x1f2024-01-01T09:00:00Z\x1fPROJ-7 add parser\n" +
	"A\tinternal/parser.go\n" +
	"M\tREADME.md\n" +
	"D\told.go\n" +
	"R087\tsrc/a.go\tsrc/b.go\n" +
	"C100\ttemplate.txt\tcopy.txt\n" +
	"U\tconflicted.go\n"

func TestParseLog(t *testing.T) {
	mods, err := ParseLog(sampleLog)
	if err != nil {
		t.Fatalf("ParseLog() error = %v", err)
	}

	alice := func(path string, typ vcs.ChangeType) vcs.Modification {
		return vcs.Modification{
			Version:      "a1b2",
			UserName:     "Alice",
			EmailAddress: "alice@example.com",
			ModifiedTime: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
			Comment:      "PROJ-7 add parser",
			Path:         path,
			Type:         typ,
		}
	}
	want := []vcs.Modification{
		{
			Version:      "b2c3",
			UserName:     "Bob",
			EmailAddress: "bob@example.com",
			ModifiedTime: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
			Comment:      "Merge branch 'feature' | cleanup",
			Type:         vcs.Unknown,
		},
		alice("internal/parser.go", vcs.Added),
		alice("README.md", vcs.Modified),
		alice("old.go", vcs.Deleted),
		alice("src/b.go", vcs.Modified),
		alice("copy.txt", vcs.Added),
		alice("conflicted.go", vcs.Unknown),
	}
	if diff := cmp.Diff(want, mods); diff != "" {
		t.Errorf("ParseLog() mismatch (-want +got):\n%s", diff)
	}
	if got := vcs.LastVersion(mods); got != "b2c3" {
		t.Errorf("LastVersion() = %q, want b2c3", got)
	}
}

func TestParseLog_Empty(t *testing.T) {
	for _, in := range []string{"", "\n", "  \r\n\n"} {
		mods, err := ParseLog(in)
		if err != nil || len(mods) != 0 {
			t.Errorf("ParseLog(%q) = %v, %v; want empty", in, mods, err)
		}
	}
}

func TestParseLog_SeparatorCharactersInFields(t *testing.T) {
	mods, err := ParseLog("@@@\x1fc3d4\x1fOps | Release\x1fops|bot@example.com\x1f2024-01-01T00:00:00Z\x1frelease | v1\nM\tVERSION\n")
	if err != nil {
		t.Fatalf("ParseLog() error = %v", err)
	}
	want := []vcs.Modification{{
		Version:      "c3d4",
		UserName:     "Ops | Release",
		EmailAddress: "ops|bot@example.com",
		ModifiedTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Comment:      "release | v1",
		Path:         "VERSION",
		Type:         vcs.Modified,
	}}
	if diff := cmp.Diff(want, mods); diff != "" {
		t.Errorf("ParseLog() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseLog_TipFirstOnDateTie(t *testing.T) {
	in := "@@@\x1ftip\x1fA\x1fa@x\x1f2024-01-01T00:00:00Z\x1fsecond\nM\ta.go\n" +
		"@@@\x1fparent\x1fA\x1fa@x\x1f2024-01-01T00:00:00Z\x1ffirst\nM\ta.go\n"
	mods, err := ParseLog(in)
	if err != nil {
		t.Fatalf("ParseLog() error = %v", err)
	}
	if got := vcs.LastVersion(mods); got != "tip" {
		t.Errorf("LastVersion() = %q, want tip", got)
	}
}

func TestParseLog_CRLF(t *testing.T) {
	mods, err := ParseLog("@@@\x1fa1\x1fA\x1fa@x\x1f2024-01-01T00:00:00Z\x1fmsg\r\nM\tfile.go\r\n")
	if err != nil {
		t.Fatalf("ParseLog() error = %v", err)
	}
	if len(mods) != 1 || mods[0].Path != "file.go" {
		t.Errorf("ParseLog() = %+v", mods)
	}
}

func TestParseLog_BadData(t *testing.T) {
	tests := map[string]string{
		"short header":         "@@@\x1fa1b2\x1fAlice\n",
		"empty hash":           "@@@\x1f\x1fAlice\x1fa@x\x1f2024-01-01T00:00:00Z\x1fmsg\n",
		"bad date":             "@@@\x1fa1b2\x1fAlice\x1fa@x\x1fyesterday\x1fmsg\n",
		"status before header": "M\tREADME.md\n",
		"status without path":  "@@@\x1fa1b2\x1fAlice\x1fa@x\x1f2024-01-01T00:00:00Z\x1fmsg\nM\n",
	}

	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseLog(in)
			if !errors.Is(err, vcs.ErrBadLogData) {
				t.Fatalf("ParseLog() error = %v, want ErrBadLogData", err)
			}
		})
	}
}
