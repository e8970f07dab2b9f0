package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/sergeknystautas/cisource/internal/vcs"
)

func newModificationsCommand(opts *rootOptions) *cobra.Command {
	var since string

	cmd := &cobra.Command{
		Use:   "modifications <project>",
		Short: "List modifications committed since the last build",
		Long: `Lists what was committed to a project's repository since its last recorded
build (or the configured initial window, 24 hours by default, when it has
never been built). Nothing is
recorded, so the next build still sees the same modifications.

Example:
  cisource modifications p1 --since 48h
  cisource modifications p1 --since 2024-01-01T00:00:00Z`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load()
			if err != nil {
				return err
			}
			p, err := a.project(args[0])
			if err != nil {
				return err
			}

			now := a.runner.Now()
			from, err := parseSince(since, now)
			if err != nil {
				return err
			}
			if since == "" {
				from = a.runner.Since(p)
			}

			mods, err := a.runner.Modifications(cmd.Context(), p, from)
			if err != nil {
				return err
			}
			return writeModifications(cmd.OutOrStdout(), mods)
		},
	}

	cmd.Flags().StringVar(&since, "since", "", "RFC 3339 time, or a duration before now such as 48h")
	return cmd
}

// parseSince accepts an RFC 3339 timestamp or a Go duration counted back
// from now. Empty returns the zero time.
func parseSince(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return time.Time{}, fmt.Errorf("invalid --since %q: want an RFC 3339 time or a positive duration", s)
	}
	return now.Add(-d), nil
}

func writeModifications(w io.Writer, mods []vcs.Modification) error {
	if len(mods) == 0 {
		fmt.Fprintln(w, "No modifications.")
		return nil
	}

	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Revision", "Author", "Date", "Type", "Path", "Comment"}),
	)
	for _, m := range mods {
		row := []string{
			revisionText(m),
			m.UserName,
			m.ModifiedTime.Format(time.RFC3339),
			string(m.Type),
			m.Path,
			firstLine(m.Comment),
		}
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

func revisionText(m vcs.Modification) string {
	if m.ChangeNumber > 0 {
		return strconv.Itoa(m.ChangeNumber)
	}
	if len(m.Version) > 10 {
		return m.Version[:10]
	}
	return m.Version
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}
