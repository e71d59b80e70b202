package config

import (
	"fmt"
	"net/url"
	"strings"

	"git.home.luguber.info/inful/sitepublisher/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepublisher/internal/retry"
)

// Validate reports structural problems: unknown store kinds, duplicate targets, bad
// durations and malformed URLs. It does not require credentials.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if len(c.Targets) == 0 {
		add("at least one target is required")
	}
	seen := make(map[string]bool, len(c.Targets))
	for i, t := range c.Targets {
		switch {
		case t.ID == "":
			add("targets[%d]: id is required", i)
		case seen[t.ID]:
			add("targets[%d]: duplicate id %q", i, t.ID)
		}
		seen[t.ID] = true
		if t.Path == "" {
			add("targets[%d]: path is required", i)
		}
		switch t.Store {
		case StoreGitHub, StoreS3, StoreGit, StoreMemory:
		default:
			add("targets[%d]: unknown store %q (one of %s)", i, t.Store, strings.Join(StoreKinds(), ", "))
		}
	}

	if c.Publish.StoreTimeout <= 0 {
		add("publish.store_timeout must be positive")
	}
	if c.Publish.Concurrency < 1 {
		add("publish.concurrency must be at least 1")
	}
	if retry.NormalizeMode(c.Publish.Retry.Mode) == "" {
		add("publish.retry.mode %q is not one of fixed, linear, exponential", c.Publish.Retry.Mode)
	}
	if err := c.RetryPolicy().Validate(); err != nil {
		add("publish.retry: %v", err)
	}
	if c.Publish.Retry.MaxRetries < 0 {
		add("publish.retry.max_retries cannot be negative")
	}
	if c.Deploy.Timeout <= 0 {
		add("deploy.timeout must be positive")
	}
	if c.Deploy.BuildHookURL != "" {
		if u, err := url.Parse(c.Deploy.BuildHookURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			add("deploy.build_hook_url must be an absolute http(s) URL")
		}
	}
	if c.History.Path != "" && c.History.Retention <= 0 {
		add("history.retention must be positive")
	}
	if c.Auth.JWTSecret != "" && c.Auth.TokenTTL <= 0 {
		add("auth.token_ttl must be positive")
	}

	if len(problems) > 0 {
		return errors.ConfigError("invalid configuration").
			WithContext("problems", problems).
			Build()
	}
	return nil
}
