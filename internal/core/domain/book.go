package domain

import (
	"fmt"
	"sort"
	"strings"
)

const DefaultExecContext = "default"

// Repo is a source repository tracked by a book.
type Repo struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Refs []Ref  `json:"refs"`
}

// TraefikConfig holds the reverse-proxy routing settings of a book.
type TraefikConfig struct {
	BaseDomain   string `json:"base_domain"`
	Port         int    `json:"port"`
	CertResolver string `json:"cert_resolver,omitempty"`
}

// Book is one deployable unit: a set of repositories published under one
// registry namespace and served by one set of containers.
type Book struct {
	Name              string         `json:"name"`
	RegistryNamespace string         `json:"name_registry"`
	Repos             []Repo         `json:"repos"`
	Dockerfile        string         `json:"docker_file,omitempty"`
	Builder           string         `json:"builder"`
	Runner            string         `json:"runner"`
	Traefik           *TraefikConfig `json:"traefik_config,omitempty"`
	CustomLabels      []string       `json:"custom_labels"`
	Network           string         `json:"docker_network,omitempty"`
}

// DefaultRegistryNamespace returns the namespace used when a book does not
// set one explicitly.
func DefaultRegistryNamespace(bookName string) string {
	if strings.Contains(bookName, "/") {
		return bookName
	}
	return "library/" + bookName
}

// RefKey identifies a tracked ref across the repositories of a book.
type RefKey struct {
	RepoURL string
	RefName string
}

// TrackedRef is a Ref together with the repository it belongs to.
type TrackedRef struct {
	Repo Repo
	Ref  Ref
}

// TrackedRefs indexes every ref of the book by repository and ref name.
func (b Book) TrackedRefs() map[RefKey]TrackedRef {
	refs := make(map[RefKey]TrackedRef)
	for _, repo := range b.Repos {
		for _, ref := range repo.Refs {
			refs[RefKey{RepoURL: repo.URL, RefName: ref.Name}] = TrackedRef{Repo: repo, Ref: ref}
		}
	}
	return refs
}

// Slugs returns the set of slugs of every tracked ref.
func (b Book) Slugs() map[string]struct{} {
	slugs := make(map[string]struct{})
	for _, repo := range b.Repos {
		for _, ref := range repo.Refs {
			slugs[ref.SubdomainName] = struct{}{}
		}
	}
	return slugs
}

// ExecContexts returns the distinct execution contexts used by the book.
func (b Book) ExecContexts() []string {
	if b.Builder == b.Runner {
		return []string{b.Builder}
	}
	return []string{b.Builder, b.Runner}
}

// Labels parses the custom "key=value" labels of the book.
func (b Book) Labels() (map[string]string, error) {
	return ParseLabelList(b.CustomLabels)
}

// ParseLabelList converts "key=value" strings into a map.
func ParseLabelList(list []string) (map[string]string, error) {
	labels := make(map[string]string, len(list))
	for _, item := range list {
		key, value, ok := strings.Cut(item, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid label %q, expected key=value", item)
		}
		labels[key] = value
	}
	return labels, nil
}

// SortedKeys returns the keys of a string set in lexical order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
