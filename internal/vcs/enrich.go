package vcs

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ModificationEnricher post-processes a freshly parsed modification set,
// typically to attach links. Enrichers modify mods in place and never fail.
type ModificationEnricher interface {
	Enrich(mods []Modification)
}

// Enrich applies every non-nil enricher to mods, in order.
func Enrich(mods []Modification, enrichers ...ModificationEnricher) {
	for _, e := range enrichers {
		if e != nil {
			e.Enrich(mods)
		}
	}
}

// FormatURLBuilder sets Modification.URL from a format string. Recognized
// placeholders: {path}, {folder}, {file}, {revision} (the change number) and
// {version}.
type FormatURLBuilder struct {
	Format string
}

func (b FormatURLBuilder) Enrich(mods []Modification) {
	if b.Format == "" {
		return
	}
	for i := range mods {
		m := &mods[i]
		m.URL = strings.NewReplacer(
			"{path}", m.Path,
			"{folder}", m.FolderName(),
			"{file}", m.FileName(),
			"{revision}", strconv.Itoa(m.ChangeNumber),
			"{version}", m.Version,
		).Replace(b.Format)
	}
}

// IssueLinker links modifications to an issue tracker by searching the
// commit comment for an issue reference. The first match replaces {issue} in
// URL; when the pattern has a capture group, group 1 is used instead of the
// whole match. Modifications without a reference are left alone.
type IssueLinker struct {
	pattern *regexp.Regexp
	url     string
}

// NewIssueLinker compiles pattern.
func NewIssueLinker(pattern, url string) (*IssueLinker, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid issue pattern %q: %w", pattern, err)
	}
	return &IssueLinker{pattern: re, url: url}, nil
}

func (l *IssueLinker) Enrich(mods []Modification) {
	for i := range mods {
		match := l.pattern.FindStringSubmatch(mods[i].Comment)
		if match == nil {
			continue
		}
		issue := match[0]
		if len(match) > 1 && match[1] != "" {
			issue = match[1]
		}
		mods[i].IssueURL = strings.ReplaceAll(l.url, "{issue}", issue)
	}
}
