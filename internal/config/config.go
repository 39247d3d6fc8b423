// Package config loads the whalesbook YAML configuration and turns it into
// the immutable book tree the reconciler works on.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"sigs.k8s.io/yaml"

	"github.com/melih/whalesbook/internal/adapters/registry"
	"github.com/melih/whalesbook/internal/core/domain"
)

const (
	DefaultPath   = "config/config.yml"
	DefaultCron   = "*/5 * * * *"
	DefaultListen = ":8000"

	ScannerGoGit = "go-git"
	ScannerCLI   = "cli"

	defaultGitCommand = "git"
	defaultGitTimeout = 300
	defaultBaseDomain = "localhost"
	defaultPort       = 80
)

type Config struct {
	Registry       registry.Config          `json:"docker_registry"`
	Schedule       Schedule                 `json:"schedule"`
	Concurrency    Concurrency              `json:"concurrency"`
	Git            Git                      `json:"git"`
	DockerContexts map[string]DockerContext `json:"docker_contexts,omitempty"`
	LockDir        string                   `json:"lock_dir,omitempty"`
	HTTP           HTTP                     `json:"http"`
	Books          []BookConfig             `json:"books"`

	// Dir is the directory of the loaded file; book Dockerfiles are
	// resolved against it.
	Dir string `json:"-"`

	books []domain.Book
}

type Schedule struct {
	Cron string `json:"cron"`
}

type Concurrency struct {
	Builds     int `json:"builds"`
	Containers int `json:"containers"`
}

type Git struct {
	Scanner        string `json:"scanner"`
	Command        string `json:"command"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

func (g Git) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

type DockerContext struct {
	Host string `json:"host"`
}

type HTTP struct {
	Listen string `json:"listen"`
	Proxy  Proxy  `json:"proxy"`
}

type Proxy struct {
	Enabled    bool   `json:"enabled"`
	BaseDomain string `json:"base_domain,omitempty"`
}

type BookConfig struct {
	Name         string         `json:"name"`
	NameRegistry string         `json:"name_registry,omitempty"`
	Repos        []RepoConfig   `json:"repos"`
	DockerFile   string         `json:"docker_file,omitempty"`
	Builder      string         `json:"builder,omitempty"`
	Runner       string         `json:"runner,omitempty"`
	Traefik      *TraefikConfig `json:"traefik_config,omitempty"`
	CustomLabels []string       `json:"custom_labels,omitempty"`
	Network      string         `json:"docker_network,omitempty"`
}

type RepoConfig struct {
	Name string  `json:"name"`
	URL  string  `json:"url"`
	Refs RefList `json:"refs"`
}

type TraefikConfig struct {
	BaseDomain   string `json:"base_domain,omitempty"`
	Port         int    `json:"port,omitempty"`
	CertResolver string `json:"cert_resolver,omitempty"`
	Disabled     bool   `json:"disabled,omitempty"`
}

// RefConfig is one tracked ref as written in the file.
type RefConfig struct {
	Name          string `json:"name"`
	SubdomainName string `json:"subdomain_name,omitempty"`
}

// RefList accepts a single ref name, a list of names, or a list of
// {name, subdomain_name} objects, mixed freely.
type RefList []RefConfig

func (l *RefList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		raw = []json.RawMessage{data}
	}
	refs := make(RefList, 0, len(raw))
	for _, item := range raw {
		var name string
		if err := json.Unmarshal(item, &name); err == nil {
			refs = append(refs, RefConfig{Name: name})
			continue
		}
		var ref RefConfig
		if err := json.Unmarshal(item, &ref); err != nil {
			return fmt.Errorf("invalid ref %s: expected a name or {name, subdomain_name}", item)
		}
		refs = append(refs, ref)
	}
	*l = refs
	return nil
}

// Load reads, defaults, normalizes and validates the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data, filepath.Dir(path))
}

// Parse is Load for in-memory content. dir anchors relative paths.
func Parse(data []byte, dir string) (*Config, error) {
	cfg := &Config{Dir: dir}
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.books = make([]domain.Book, 0, len(cfg.Books))
	for _, b := range cfg.Books {
		cfg.books = append(cfg.books, b.toDomain(cfg.Dir))
	}
	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.Schedule.Cron == "" {
		c.Schedule.Cron = DefaultCron
	}
	if c.Concurrency.Builds == 0 {
		c.Concurrency.Builds = 2
	}
	if c.Concurrency.Containers == 0 {
		c.Concurrency.Containers = 8
	}
	if c.Git.Scanner == "" {
		c.Git.Scanner = ScannerGoGit
	}
	if c.Git.Command == "" {
		c.Git.Command = defaultGitCommand
	}
	if c.Git.TimeoutSeconds == 0 {
		c.Git.TimeoutSeconds = defaultGitTimeout
	}
	if c.LockDir == "" {
		c.LockDir = filepath.Join(os.TempDir(), "whalesbook-locks")
	}
	if c.HTTP.Listen == "" {
		c.HTTP.Listen = DefaultListen
	}
	for i := range c.Books {
		b := &c.Books[i]
		if b.NameRegistry == "" {
			b.NameRegistry = domain.DefaultRegistryNamespace(b.Name)
		}
		if b.Builder == "" {
			b.Builder = domain.DefaultExecContext
		}
		if b.Runner == "" {
			b.Runner = domain.DefaultExecContext
		}
		if b.Traefik == nil {
			b.Traefik = &TraefikConfig{}
		}
		if b.Traefik.BaseDomain == "" {
			b.Traefik.BaseDomain = defaultBaseDomain
		}
		if b.Traefik.Port == 0 {
			b.Traefik.Port = defaultPort
		}
		for j := range b.Repos {
			if len(b.Repos[j].Refs) == 0 {
				b.Repos[j].Refs = RefList{{Name: "main"}}
			}
		}
	}
}

func (b BookConfig) toDomain(dir string) domain.Book {
	book := domain.Book{
		Name:              b.Name,
		RegistryNamespace: b.NameRegistry,
		Builder:           b.Builder,
		Runner:            b.Runner,
		CustomLabels:      append([]string(nil), b.CustomLabels...),
		Network:           b.Network,
	}
	if b.DockerFile != "" {
		book.Dockerfile = b.DockerFile
		if !filepath.IsAbs(book.Dockerfile) {
			book.Dockerfile = filepath.Join(dir, book.Dockerfile)
		}
	}
	if b.Traefik != nil && !b.Traefik.Disabled {
		book.Traefik = &domain.TraefikConfig{
			BaseDomain:   b.Traefik.BaseDomain,
			Port:         b.Traefik.Port,
			CertResolver: b.Traefik.CertResolver,
		}
	}
	for _, r := range b.Repos {
		repo := domain.Repo{Name: r.Name, URL: r.URL}
		for _, ref := range r.Refs {
			repo.Refs = append(repo.Refs, domain.NewRef(ref.Name, ref.SubdomainName))
		}
		book.Repos = append(book.Repos, repo)
	}
	return book
}

// BookList returns the normalized books in file order.
func (c *Config) BookList() []domain.Book {
	return c.books
}

// Book looks a book up by name.
func (c *Config) Book(name string) (domain.Book, error) {
	for _, b := range c.books {
		if b.Name == name {
			return b, nil
		}
	}
	return domain.Book{}, fmt.Errorf("%w: %s", domain.ErrBookNotFound, name)
}

// DockerHosts maps every execution context to its engine host. An empty
// host means the environment's engine.
func (c *Config) DockerHosts() map[string]string {
	hosts := map[string]string{domain.DefaultExecContext: ""}
	for name, dc := range c.DockerContexts {
		hosts[name] = dc.Host
	}
	return hosts
}
