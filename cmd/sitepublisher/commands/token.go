package commands

import (
	"fmt"
	"os"
	"time"

	"git.home.luguber.info/inful/sitepublisher/internal/auth"
	"git.home.luguber.info/inful/sitepublisher/internal/daemon"
	"git.home.luguber.info/inful/sitepublisher/internal/foundation/errors"
)

// TokenCmd implements the 'token' command.
type TokenCmd struct {
	Subject string        `arg:"" help:"Editor identity, usually an email address"`
	Name    string        `help:"Display name recorded in the token"`
	TTL     time.Duration `help:"Token lifetime, overrides auth.token_ttl"`
}

func (c *TokenCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	ac := daemon.AuthConfig(cfg)
	if !ac.Enabled() {
		return errors.ConfigError("token signing is not configured (set CMS_JWT_SECRET)").Build()
	}
	if c.TTL > 0 {
		ac.TTL = c.TTL
	}
	issuer, err := auth.NewIssuer(ac)
	if err != nil {
		return err
	}
	token, expires, err := issuer.Issue(c.Subject, c.Name)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(g.Out, token)
	_, _ = fmt.Fprintf(os.Stderr, "Token for %s expires %s\n", c.Subject, expires.Local().Format(time.RFC1123))
	return nil
}
