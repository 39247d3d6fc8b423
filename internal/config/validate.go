package config

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"

	"github.com/melih/whalesbook/internal/core/domain"
)

// Validate reports every problem of the configuration at once.
func (c *Config) Validate() error {
	var errs error
	add := func(format string, args ...any) {
		errs = multierr.Append(errs, fmt.Errorf(format, args...))
	}

	if c.Registry.URL == "" {
		add("docker_registry.url is required")
	} else if _, err := domain.NewMainTag(c.Registry.URL, "library/probe", ""); err != nil {
		add("docker_registry.url: %v", err)
	}
	if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
		add("schedule.cron %q: %v", c.Schedule.Cron, err)
	}
	if c.Concurrency.Builds < 0 || c.Concurrency.Containers < 0 {
		add("concurrency limits must be positive")
	}
	if c.Git.Scanner != ScannerGoGit && c.Git.Scanner != ScannerCLI {
		add("git.scanner must be %q or %q, got %q", ScannerGoGit, ScannerCLI, c.Git.Scanner)
	}
	if c.Git.TimeoutSeconds < 0 {
		add("git.timeout_seconds must be positive")
	}
	if c.HTTP.Proxy.Enabled && c.HTTP.Proxy.BaseDomain == "" {
		add("http.proxy.base_domain is required when the proxy is enabled")
	}
	if len(c.Books) == 0 {
		add("at least one book is required")
	}

	contexts := c.DockerHosts()
	names := make(map[string]bool)
	for i, b := range c.Books {
		where := fmt.Sprintf("books[%d]", i)
		if b.Name == "" {
			add("%s: name is required", where)
		} else {
			where = fmt.Sprintf("book %s", b.Name)
		}
		if names[b.Name] {
			add("%s: duplicate book name", where)
		}
		names[b.Name] = true

		for _, execCtx := range []string{b.Builder, b.Runner} {
			if _, ok := contexts[execCtx]; !ok {
				add("%s: unknown docker context %q", where, execCtx)
			}
		}
		if _, err := domain.ParseLabelList(b.CustomLabels); err != nil {
			add("%s: %v", where, err)
		}
		if _, err := domain.ParseMainTag(b.NameRegistry); err != nil {
			add("%s: name_registry: %v", where, err)
		}
		if len(b.Repos) == 0 {
			add("%s: at least one repo is required", where)
		}

		slugs := make(map[string]string)
		repoNames := make(map[string]bool)
		for _, r := range b.Repos {
			switch {
			case r.Name == "":
				add("%s: repo %s: name is required", where, r.URL)
			case repoNames[r.Name]:
				add("%s: duplicate repo name %q", where, r.Name)
			}
			repoNames[r.Name] = true
			if r.URL == "" {
				add("%s: repo %s: url is required", where, r.Name)
			}
			for _, rc := range r.Refs {
				if rc.Name == "" {
					add("%s: repo %s: ref name is required", where, r.Name)
					continue
				}
				ref := domain.NewRef(rc.Name, rc.SubdomainName)
				if ref.SubdomainName == "" {
					add("%s: ref %s has an empty slug", where, rc.Name)
					continue
				}
				if domain.IsGitTag(ref.SubdomainName) {
					add("%s: ref %s has the slug %q, slugs must not start with %q", where, rc.Name, ref.SubdomainName, domain.GitTagPrefix)
					continue
				}
				id := r.Name + ":" + rc.Name
				if other, dup := slugs[ref.SubdomainName]; dup {
					add("%s: refs %s and %s share the slug %q", where, other, id, ref.SubdomainName)
				}
				slugs[ref.SubdomainName] = id
			}
		}
	}
	return errs
}
