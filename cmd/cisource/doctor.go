package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sergeknystautas/cisource/internal/vcs"
)

func newDoctorCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that each project's source control client is usable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load()
			if err != nil {
				return err
			}

			style := newTermStyle(cmd.OutOrStdout())
			style.Header("cisource doctor")
			style.KeyValue("Config", a.cfg.Path())
			style.KeyValue("State", a.cfg.GetStatePath())
			style.KeyValue("Concurrency", fmt.Sprint(a.cfg.GetConcurrency()))
			fmt.Fprintln(cmd.OutOrStdout())

			failed := 0
			for _, p := range a.cfg.Projects {
				provider, err := a.runner.Provider(p)
				if err != nil {
					style.Error(fmt.Sprintf("%s: %v", p.Name, err))
					failed++
					continue
				}
				v, err := vcs.CheckVersion(cmd.Context(), provider)
				if err != nil {
					style.Error(fmt.Sprintf("%s (%s): %v", p.Name, p.SourceControl.GetExecutable(), err))
					failed++
					continue
				}
				version := "unknown version"
				if v != nil {
					version = v.String()
				}
				style.Success(fmt.Sprintf("%s: %s %s", p.Name, p.SourceControl.GetExecutable(), version))
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d projects failed checks", failed, len(a.cfg.Projects))
			}
			return nil
		},
	}
}
