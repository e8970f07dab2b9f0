package svn

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sergeknystautas/cisource/internal/vcs"
)

// logDocument is the output of svn log --verbose --xml.
type logDocument struct {
	XMLName xml.Name   `xml:"log"`
	Entries []logEntry `xml:"logentry"`
}

type logEntry struct {
	Revision int       `xml:"revision,attr"`
	Author   string    `xml:"author"`
	Date     string    `xml:"date"`
	Paths    []logPath `xml:"paths>path"`
	Msg      string    `xml:"msg"`
}

type logPath struct {
	Action string `xml:"action,attr"`
	Kind   string `xml:"kind,attr"`
	Path   string `xml:",chardata"`
}

// ParseLog decodes svn log --verbose --xml output into one modification per
// changed path. svn includes the revision in effect at the start of a date
// range, so entries dated before from are dropped. Empty output is an empty
// history; anything that does not decode is a *vcs.BadLogDataError.
func ParseLog(output string, from time.Time) ([]vcs.Modification, error) {
	if strings.TrimSpace(output) == "" {
		return nil, nil
	}

	var doc logDocument
	if err := xml.Unmarshal([]byte(output), &doc); err != nil {
		return nil, vcs.NewBadLogData(Type, err)
	}

	var mods []vcs.Modification
	for _, entry := range doc.Entries {
		modified, err := parseLogDate(entry.Date)
		if err != nil {
			return nil, vcs.NewBadLogData(Type, fmt.Errorf("revision %d: %w", entry.Revision, err))
		}
		if modified.Before(from) {
			continue
		}
		for _, p := range entry.Paths {
			mods = append(mods, vcs.Modification{
				ChangeNumber: entry.Revision,
				Version:      strconv.Itoa(entry.Revision),
				UserName:     entry.Author,
				ModifiedTime: modified,
				Comment:      entry.Msg,
				Path:         strings.TrimSpace(p.Path),
				Type:         changeType(p.Action),
			})
		}
	}
	return mods, nil
}

func parseLogDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("missing date")
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t.UTC(), nil
}

func changeType(action string) vcs.ChangeType {
	switch action {
	case "A":
		return vcs.Added
	case "M", "R":
		return vcs.Modified
	case "D":
		return vcs.Deleted
	default:
		return vcs.Unknown
	}
}
