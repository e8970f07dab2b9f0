package git

import (
	"fmt"
	"strings"
	"time"

	"github.com/sergeknystautas/cisource/internal/vcs"
)

const (
	// commitMarker starts every commit header line so headers can be told
	// apart from --name-status lines.
	commitMarker = "@@@"
	// fieldSeparator is the unit separator, which cannot appear in names,
	// emails or subjects.
	fieldSeparator = "\x1f"
	// prettyFormat is the --pretty format ParseLog reads.
	prettyFormat = "format:" + commitMarker + "%x1f%H%x1f%an%x1f%ae%x1f%aI%x1f%s"
)

type commit struct {
	hash, author, email, subject string
	when                         time.Time
	files                        int
}

// ParseLog parses git log --name-status output produced with prettyFormat,
// newest commit first. Output order is kept. Every status line becomes one
// modification; a commit without file lines (a merge, say) becomes a single
// modification with an empty path.
func ParseLog(output string) ([]vcs.Modification, error) {
	var (
		mods    []vcs.Modification
		current *commit
	)
	flush := func() {
		if current != nil && current.files == 0 {
			mods = append(mods, current.modification("", vcs.Unknown))
		}
	}

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		if strings.HasPrefix(line, commitMarker+fieldSeparator) {
			flush()
			c, err := parseHeader(line)
			if err != nil {
				return nil, vcs.NewBadLogData(Type, err)
			}
			current = c
			continue
		}

		if current == nil {
			return nil, vcs.NewBadLogData(Type, fmt.Errorf("status line before any commit: %q", line))
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 || fields[0] == "" {
			return nil, vcs.NewBadLogData(Type, fmt.Errorf("malformed status line %q", line))
		}
		current.files++
		mods = append(mods, current.modification(fields[len(fields)-1], changeType(fields[0])))
	}
	flush()
	return mods, nil
}

func parseHeader(line string) (*commit, error) {
	parts := strings.SplitN(line, fieldSeparator, 6)
	if len(parts) < 6 || parts[1] == "" {
		return nil, fmt.Errorf("malformed commit header %q", line)
	}
	when, err := time.Parse(time.RFC3339, parts[4])
	if err != nil {
		return nil, fmt.Errorf("commit %s: invalid date %q: %w", parts[1], parts[4], err)
	}
	return &commit{
		hash:    parts[1],
		author:  parts[2],
		email:   parts[3],
		when:    when.UTC(),
		subject: parts[5],
	}, nil
}

func (c *commit) modification(path string, typ vcs.ChangeType) vcs.Modification {
	return vcs.Modification{
		Version:      c.hash,
		UserName:     c.author,
		EmailAddress: c.email,
		ModifiedTime: c.when,
		Comment:      c.subject,
		Path:         path,
		Type:         typ,
	}
}

// changeType maps a --name-status code. Renames and copies carry a
// similarity score (R100, C075) and report the destination path.
func changeType(status string) vcs.ChangeType {
	switch status[0] {
	case 'A', 'C':
		return vcs.Added
	case 'M', 'R', 'T':
		return vcs.Modified
	case 'D':
		return vcs.Deleted
	default:
		return vcs.Unknown
	}
}
