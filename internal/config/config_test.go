package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/melih/whalesbook/internal/core/domain"
)

const fullConfig = `
docker_registry:
  url: https://registry.example.com
  username: bot
  password: s3cret
schedule:
  cron: "*/10 * * * *"
concurrency:
  builds: 4
git:
  scanner: cli
  command: git -c protocol.version=2
docker_contexts:
  remote:
    host: tcp://10.0.0.2:2376
books:
  - name: shop
    docker_file: shop.Dockerfile
    builder: remote
    custom_labels: ["team=web"]
    docker_network: web
    traefik_config:
      base_domain: example.com
      cert_resolver: le
    repos:
      - name: frontend
        url: https://git.example.com/shop.git
        refs:
          - main
          - name: refs/tags/v1.0
            subdomain_name: Stable Release
  - name: acme/blog
    traefik_config:
      disabled: true
    repos:
      - name: blog
        url: https://git.example.com/blog.git
        refs: develop
`

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	assert.NilError(t, os.WriteFile(path, []byte(fullConfig), 0o600))

	cfg, err := Load(path)
	assert.NilError(t, err)

	assert.Equal(t, cfg.Schedule.Cron, "*/10 * * * *")
	assert.Equal(t, cfg.Concurrency.Builds, 4)
	assert.Equal(t, cfg.Concurrency.Containers, 8)
	assert.Equal(t, cfg.Git.Scanner, ScannerCLI)
	assert.Equal(t, cfg.Git.TimeoutSeconds, 300)
	assert.Equal(t, cfg.HTTP.Listen, DefaultListen)
	assert.DeepEqual(t, cfg.DockerHosts(), map[string]string{"default": "", "remote": "tcp://10.0.0.2:2376"})

	books := cfg.BookList()
	assert.Assert(t, is.Len(books, 2))

	shop := books[0]
	assert.Equal(t, shop.RegistryNamespace, "library/shop")
	assert.Equal(t, shop.Dockerfile, filepath.Join(dir, "shop.Dockerfile"))
	assert.Equal(t, shop.Builder, "remote")
	assert.Equal(t, shop.Runner, domain.DefaultExecContext)
	assert.DeepEqual(t, shop.Traefik, &domain.TraefikConfig{BaseDomain: "example.com", Port: 80, CertResolver: "le"})
	assert.DeepEqual(t, shop.Repos[0].Refs, []domain.Ref{
		{Name: "refs/heads/main", SubdomainName: "main"},
		{Name: "refs/tags/v1.0", SubdomainName: "stable-release"},
	})

	blog, err := cfg.Book("acme/blog")
	assert.NilError(t, err)
	assert.Equal(t, blog.RegistryNamespace, "acme/blog")
	assert.Check(t, blog.Traefik == nil)
	assert.DeepEqual(t, blog.Repos[0].Refs, []domain.Ref{{Name: "refs/heads/develop", SubdomainName: "develop"}})

	_, err = cfg.Book("missing")
	assert.ErrorIs(t, err, domain.ErrBookNotFound)
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
docker_registry:
  url: localhost:5000
books:
  - name: shop
    repos:
      - name: app
        url: https://git.example.com/app.git
`), "config")
	assert.NilError(t, err)
	assert.Equal(t, cfg.Schedule.Cron, DefaultCron)
	assert.Equal(t, cfg.Git.Scanner, ScannerGoGit)
	assert.Equal(t, cfg.Concurrency.Builds, 2)

	book := cfg.BookList()[0]
	assert.DeepEqual(t, book.Traefik, &domain.TraefikConfig{BaseDomain: "localhost", Port: 80})
	assert.DeepEqual(t, book.Repos[0].Refs, []domain.Ref{{Name: "refs/heads/main", SubdomainName: "main"}})
	assert.Equal(t, book.Builder, domain.DefaultExecContext)
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte(`
docker_registry:
  url: localhost:5000
  passwrd: typo
books: []
`), ".")
	assert.ErrorContains(t, err, "failed to parse config")
}

func TestValidate(t *testing.T) {
	_, err := Parse([]byte(`
docker_registry:
  url: localhost:5000
schedule:
  cron: "every minute"
git:
  scanner: svn
http:
  proxy:
    enabled: true
books:
  - name: shop
    runner: nowhere
    custom_labels: ["novalue"]
    repos:
      - name: app
        url: https://git.example.com/app.git
        refs: [feature/x, feature-x]
  - name: shop
    repos: []
`), ".")
	assert.Assert(t, err != nil)
	msg := err.Error()
	for _, want := range []string{
		`schedule.cron "every minute"`,
		`git.scanner must be`,
		`http.proxy.base_domain is required`,
		`unknown docker context "nowhere"`,
		`invalid label "novalue"`,
		`share the slug "feature-x"`,
		`book shop: duplicate book name`,
		`book shop: at least one repo is required`,
	} {
		assert.Check(t, strings.Contains(msg, want), "missing %q in %s", want, msg)
	}
}

func TestValidateMissingRegistry(t *testing.T) {
	_, err := Parse([]byte(`
books:
  - name: shop
    repos:
      - name: app
        url: https://git.example.com/app.git
`), ".")
	assert.ErrorContains(t, err, "docker_registry.url is required")
}

func TestRefListRejectsGarbage(t *testing.T) {
	var l RefList
	err := l.UnmarshalJSON([]byte(`[42]`))
	assert.ErrorContains(t, err, "invalid ref 42")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.ErrorContains(t, err, "failed to read config")
}

func TestValidateRefsAndRepos(t *testing.T) {
	_, err := Parse([]byte(`
docker_registry:
  url: localhost:5000
books:
  - name: shop
    repos:
      - name: app
        url: https://git.example.com/app.git
        refs: [git-migration, main]
      - name: app
        url: https://git.example.com/api.git
        refs:
          - name: develop
            subdomain_name: Git-Dev
      - url: https://git.example.com/docs.git
        refs: [docs]
`), ".")
	assert.Assert(t, err != nil)
	msg := err.Error()
	for _, want := range []string{
		`ref git-migration has the slug "git-migration", slugs must not start with "git-"`,
		`ref develop has the slug "git-dev"`,
		`duplicate repo name "app"`,
		`repo https://git.example.com/docs.git: name is required`,
	} {
		assert.Check(t, strings.Contains(msg, want), "missing %q in %s", want, msg)
	}
	assert.Check(t, !strings.Contains(msg, "ref main"), msg)
}
