package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/sitepublisher/cmd/sitepublisher/commands"
	"git.home.luguber.info/inful/sitepublisher/internal/config"
	"git.home.luguber.info/inful/sitepublisher/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepublisher/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("sitepublisher"),
		kong.Description("Publish CMS site content to every configured copy and trigger a site rebuild.\n\n"+config.Usage()),
		kong.UsageOnError(),
		kong.Vars{"version": version.Version},
	)

	global := commands.NewGlobal(os.Stdout)
	err := parser.Run(global, cli)

	adapter := errors.NewCLIErrorAdapter(cli.Verbose, slog.Default())
	os.Exit(adapter.Report(os.Stderr, err))
}
