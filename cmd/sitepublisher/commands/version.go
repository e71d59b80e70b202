package commands

import (
	"fmt"
	"runtime"

	"git.home.luguber.info/inful/sitepublisher/internal/version"
)

// VersionCmd implements the 'version' command.
type VersionCmd struct{}

func (VersionCmd) Run(g *Global) error {
	_, _ = fmt.Fprintf(g.Out, "sitepublisher %s\n", version.Version)
	_, _ = fmt.Fprintf(g.Out, "  commit:     %s\n", version.GitCommit)
	_, _ = fmt.Fprintf(g.Out, "  built:      %s\n", version.BuildTime)
	_, _ = fmt.Fprintf(g.Out, "  go version: %s\n", runtime.Version())
	return nil
}
