package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newGetSourceCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get-source <project>",
		Short: "Check out or update a project's working copy",
		Long: `Polls for modifications since the project's last build and brings the
working copy up to the newest of them, checking it out first when there is
none. No build is run and nothing is recorded.`,
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

			mods, err := a.runner.GetSource(cmd.Context(), p)
			if err != nil {
				return err
			}
			newTermStyle(cmd.OutOrStdout()).Success(fmt.Sprintf("%s is up to date (%d modifications)", p.Name, len(mods)))
			return nil
		},
	}
}
