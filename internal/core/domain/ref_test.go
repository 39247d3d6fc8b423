package domain

import (
	"regexp"
	"strings"
	"testing"

	"gotest.tools/v3/assert"
	"pgregory.net/rapid"
)

var slugShape = regexp.MustCompile(`^[a-z0-9](-?[a-z0-9])*$`)

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "main", want: "main"},
		{in: "Feature/Login_Page", want: "feature-login-page"},
		{in: "refs/tags/v1.2.0", want: "refs-tags-v1-2-0"},
		{in: "--weird--name--", want: "weird-name"},
		{in: "___", want: ""},
		{in: "über", want: "ber"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, Slugify(tc.in), tc.want)
		})
	}
}

func TestSlugifyTruncates(t *testing.T) {
	long := strings.Repeat("abcdefghij", 8)
	got := Slugify(long)
	assert.Equal(t, len(got), 63)
	assert.Equal(t, got, long[:63])

	// a dash landing on the cut is stripped afterwards
	got = Slugify(strings.Repeat("a", 62) + "-bbb")
	assert.Equal(t, got, strings.Repeat("a", 62))
}

func TestSlugifyProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		in := rapid.String().Draw(t, "in")
		slug := Slugify(in)
		if Slugify(slug) != slug {
			t.Fatalf("slugify not idempotent: %q -> %q -> %q", in, slug, Slugify(slug))
		}
		if len(slug) > 63 {
			t.Fatalf("slug %q longer than 63", slug)
		}
		if slug != "" && !slugShape.MatchString(slug) {
			t.Fatalf("slug %q has an invalid shape", slug)
		}
	})
}

func TestNewRef(t *testing.T) {
	ref := NewRef("main", "")
	assert.Equal(t, ref.Name, "refs/heads/main")
	assert.Equal(t, ref.SubdomainName, "main")

	ref = NewRef("refs/tags/v1", "")
	assert.Equal(t, ref.Name, "refs/tags/v1")
	assert.Equal(t, ref.SubdomainName, "refs-tags-v1")

	ref = NewRef("develop", "Staging Env")
	assert.Equal(t, ref.Name, "refs/heads/develop")
	assert.Equal(t, ref.SubdomainName, "staging-env")
}
