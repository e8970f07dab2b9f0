// Package backends wires the built-in source control backends into a
// registry.
package backends

import (
	"github.com/sergeknystautas/cisource/internal/vcs"
	"github.com/sergeknystautas/cisource/internal/vcs/git"
	"github.com/sergeknystautas/cisource/internal/vcs/svn"
)

// Default returns a registry holding every built-in backend.
func Default() *vcs.Registry {
	r := vcs.NewRegistry()
	for tag, f := range map[string]vcs.Factory{
		svn.Type: svn.Factory,
		git.Type: git.Factory,
	} {
		if err := r.Register(tag, f); err != nil {
			panic(err)
		}
	}
	return r
}

// DefaultExecutable returns the standard client binary for tag, or "" for
// an unknown tag.
func DefaultExecutable(tag string) string {
	switch tag {
	case svn.Type:
		return svn.DefaultExecutable
	case git.Type:
		return git.DefaultExecutable
	default:
		return ""
	}
}
