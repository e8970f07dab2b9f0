package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sergeknystautas/cisource/internal/config"
	"github.com/sergeknystautas/cisource/internal/vcs/backends"
)

func newInitCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Interactively add a project to the projects file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				return errors.New("init needs an interactive terminal; edit the projects file directly instead")
			}

			path := opts.settings.ConfigPath
			cfg := config.CreateDefault(path)
			if config.ConfigExists(path) {
				loaded, err := config.Load(path)
				if err != nil {
					return err
				}
				cfg = loaded
			}

			p, password, err := promptProject(cfg)
			if err != nil {
				return err
			}
			cfg.Projects = append(cfg.Projects, p)
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.Save(); err != nil {
				return err
			}
			if password != "" {
				if err := config.SaveProjectPassword(config.SecretsPath(path), p.Name, password); err != nil {
					return err
				}
			}

			style := newTermStyle(cmd.OutOrStdout())
			style.Success(fmt.Sprintf("added %s to %s", p.Name, path))
			style.Info("Run `cisource doctor` to check the client, then `cisource run " + p.Name + "`.")
			return nil
		},
	}
}

func promptProject(cfg *config.Config) (config.Project, string, error) {
	var (
		p        config.Project
		password string
		tag      bool
	)
	p.SourceControl.Type = "svn"

	typeOptions := []huh.Option[string]{}
	for _, t := range backends.Default().Types() {
		typeOptions = append(typeOptions, huh.NewOption(t, t))
	}

	required := func(field string) func(string) error {
		return func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("%s is required", field)
			}
			return nil
		}
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Project name").
				Value(&p.Name).
				Validate(func(s string) error {
					if err := required("name")(s); err != nil {
						return err
					}
					if _, ok := cfg.FindProject(s); ok {
						return fmt.Errorf("project %q already exists", s)
					}
					return nil
				}),
			huh.NewInput().
				Title("Working directory").
				Description("Where the source is checked out and the build runs").
				Placeholder("~/builds/myproject").
				Value(&p.WorkingDirectory).
				Validate(required("working directory")),
			huh.NewInput().
				Title("Build command").
				Placeholder("make test").
				Value(&p.BuildCommand),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Source control").
				Options(typeOptions...).
				Value(&p.SourceControl.Type),
			huh.NewInput().
				Title("Repository URL").
				Description("svn trunk URL or git remote URL").
				Value(&p.SourceControl.TrunkURL).
				Validate(required("repository URL")),
			huh.NewInput().
				Title("Username").
				Description("Leave empty for anonymous access").
				Value(&p.SourceControl.Username),
			huh.NewInput().
				Title("Password").
				Description("Stored in the secrets file, not the projects file").
				EchoMode(huh.EchoModePassword).
				Value(&password),
			huh.NewConfirm().
				Title("Tag successful builds?").
				Value(&tag),
		),
	)
	if err := form.Run(); err != nil {
		return config.Project{}, "", err
	}

	p.SourceControl.TagOnSuccess = tag
	if tag && p.SourceControl.Type == "svn" {
		tagForm := huh.NewForm(huh.NewGroup(
			huh.NewInput().
				Title("Tag base URL").
				Placeholder("https://svn.example.com/repo/tags").
				Value(&p.SourceControl.TagBaseURL).
				Validate(required("tag base URL")),
		))
		if err := tagForm.Run(); err != nil {
			return config.Project{}, "", err
		}
	}
	return p, password, nil
}
