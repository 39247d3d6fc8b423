package domain

import (
	"regexp"
	"strings"
)

const maxSlugLength = 63

var (
	slugInvalidChars = regexp.MustCompile(`[^a-z0-9-]`)
	slugDashRuns     = regexp.MustCompile(`-+`)
)

// Slugify turns an arbitrary string into a DNS label usable both as a
// registry tag and as a routing subdomain.
func Slugify(s string) string {
	s = strings.ToLower(s)
	s = slugInvalidChars.ReplaceAllString(s, "-")
	s = slugDashRuns.ReplaceAllString(s, "-")
	if len(s) > maxSlugLength {
		s = s[:maxSlugLength]
	}
	return strings.Trim(s, "-")
}

// NormalizeRefName expands short branch names to their full form.
func NormalizeRefName(name string) string {
	if strings.HasPrefix(name, "refs/") {
		return name
	}
	return "refs/heads/" + name
}

// Ref is a tracked git reference of a repository.
type Ref struct {
	Name          string `json:"name"`
	SubdomainName string `json:"subdomain_name"`
}

// NewRef builds a Ref. The slug is derived from the name as written when no
// explicit subdomain is given, so "main" tracks refs/heads/main as "main".
func NewRef(name, subdomain string) Ref {
	if subdomain == "" {
		subdomain = name
	}
	return Ref{
		Name:          NormalizeRefName(name),
		SubdomainName: Slugify(subdomain),
	}
}
