package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLabelCommand(opts *rootOptions) *cobra.Command {
	var label, revision string

	cmd := &cobra.Command{
		Use:   "label <project>",
		Short: "Tag a successful build in source control",
		Long: `Labels a project as a successful build. With --revision the repository is
tagged at that revision; without it svn tags the working copy and git tags
HEAD. Projects without tag_on_success are left alone.

Example:
  cisource label p1 --label 42 --revision 7`,
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

			style := newTermStyle(cmd.OutOrStdout())
			if !p.SourceControl.TagOnSuccess {
				style.Warn(fmt.Sprintf("%s does not have tag_on_success set; nothing to do", p.Name))
				return nil
			}
			if err := a.runner.Label(cmd.Context(), p, label, revision); err != nil {
				return err
			}
			style.Success(fmt.Sprintf("labelled %s as %s", p.Name, label))
			return nil
		},
	}

	cmd.Flags().StringVar(&label, "label", "", "label to apply (required)")
	cmd.Flags().StringVar(&revision, "revision", "", "revision to tag")
	cmd.MarkFlagRequired("label")
	return cmd
}
