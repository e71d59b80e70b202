package commands

import (
	"fmt"
	"path/filepath"

	"git.home.luguber.info/inful/sitepublisher/internal/config"
)

// DefaultConfigFile is written by 'init' when no --config is given.
const DefaultConfigFile = "sitepublisher.yaml"

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force  bool   `help:"Overwrite existing configuration file"`
	Output string `short:"o" name:"output" help:"Output directory for generated config file"`
}

func (i *InitCmd) Run(g *Global, root *CLI) error {
	path := root.Config
	switch {
	case i.Output != "":
		path = filepath.Join(i.Output, DefaultConfigFile)
	case path == "":
		path = DefaultConfigFile
	}
	if err := config.WriteSample(path, i.Force); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(g.Out, "Wrote configuration to %s\n", path)
	_, _ = fmt.Fprintln(g.Out, "Set GITHUB_TOKEN (and NETLIFY_BUILD_HOOK to rebuild the site) before running 'sitepublisher serve'.")
	return nil
}
