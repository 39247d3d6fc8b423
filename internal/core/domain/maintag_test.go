package domain

import (
	"errors"
	"fmt"
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
	"pgregory.net/rapid"
)

func TestParseMainTag(t *testing.T) {
	tag, err := ParseMainTag("registry.example.com:5000/library/app:git-abc123")
	assert.NilError(t, err)
	assert.DeepEqual(t, tag, MainTag{
		Host:       "registry.example.com",
		Port:       5000,
		Repository: "library/app",
		Tag:        "git-abc123",
	})
	assert.Equal(t, tag.String(), "registry.example.com:5000/library/app:git-abc123")

	tag, err = ParseMainTag("library/app")
	assert.NilError(t, err)
	assert.DeepEqual(t, tag, MainTag{Repository: "library/app"})

	tag, err = ParseMainTag("https://registry.example.com/team/app:main")
	assert.NilError(t, err)
	assert.Equal(t, tag.Scheme, "https")
	assert.Equal(t, tag.Host, "registry.example.com")
	assert.Equal(t, tag.String(), "registry.example.com/team/app:main")
}

func TestParseMainTagDropsDefaultPorts(t *testing.T) {
	for _, port := range []int{80, 443} {
		tag, err := ParseMainTag(fmt.Sprintf("registry.example.com:%d/library/app", port))
		assert.NilError(t, err)
		assert.Equal(t, tag.Port, port)
		assert.Equal(t, tag.String(), "registry.example.com/library/app")
	}
}

func TestParseMainTagInvalid(t *testing.T) {
	for _, in := range []string{"name", "", "library/app:", "host:port/library/app", "a b/c"} {
		_, err := ParseMainTag(in)
		assert.Check(t, errors.Is(err, ErrInvalidTagFormat), "input %q", in)
		var tagErr *InvalidTagFormatError
		assert.Check(t, errors.As(err, &tagErr))
	}
}

func TestNewMainTag(t *testing.T) {
	tag, err := NewMainTag("http://localhost:5000", "library/app", "main")
	assert.NilError(t, err)
	assert.Equal(t, tag.String(), "localhost:5000/library/app:main")

	tag, err = NewMainTag("registry.example.com", "library/app", "")
	assert.NilError(t, err)
	assert.DeepEqual(t, tag, MainTag{Host: "registry.example.com", Repository: "library/app"})
	assert.Equal(t, tag.String(), "registry.example.com/library/app")

	tag, err = NewMainTag("https://registry.example.com:443", "library/app", "main")
	assert.NilError(t, err)
	assert.Equal(t, tag.Port, 0)
	assert.Equal(t, tag.String(), "registry.example.com/library/app:main")

	tag, err = NewMainTag("", "library/app", "main")
	assert.NilError(t, err)
	assert.Equal(t, tag.String(), "library/app:main")
}

func TestMainTagSameImage(t *testing.T) {
	a, _ := ParseMainTag("registry.example.com/library/app:main")
	b, _ := ParseMainTag("registry.example.com:443/library/app:git-123")
	c, _ := ParseMainTag("registry.example.com/library/app2:main")
	assert.Check(t, a.SameImage(b))
	assert.Check(t, !a.SameImage(c))
}

func TestMainTagText(t *testing.T) {
	var tag MainTag
	assert.NilError(t, tag.UnmarshalText([]byte("localhost:5000/library/app:main")))
	out, err := tag.MarshalText()
	assert.NilError(t, err)
	assert.Equal(t, string(out), "localhost:5000/library/app:main")
	assert.Check(t, is.ErrorContains(tag.UnmarshalText([]byte("nope")), "invalid main tag"))
}

func TestMainTagRoundTrip(t *testing.T) {
	segment := rapid.StringMatching(`[a-z0-9]([a-z0-9._-]{0,10}[a-z0-9])?`)
	rapid.Check(t, func(t *rapid.T) {
		tag := MainTag{
			Repository: segment.Draw(t, "namespace") + "/" + segment.Draw(t, "repo"),
		}
		if rapid.Bool().Draw(t, "hasHost") {
			tag.Host = rapid.StringMatching(`[a-z0-9]([a-z0-9-]{0,10}[a-z0-9])?(\.[a-z]{2,5}){0,2}`).Draw(t, "host")
			tag.Port = rapid.SampledFrom([]int{0, 5000, 8443, 32768}).Draw(t, "port")
		}
		if rapid.Bool().Draw(t, "hasTag") {
			tag.Tag = rapid.SampledFrom([]string{"main", "git-", "v1.2.3"}).Draw(t, "prefix") +
				rapid.StringMatching(`[a-z0-9]{0,12}`).Draw(t, "suffix")
		}
		s := tag.String()
		parsed, err := ParseMainTag(s)
		if err != nil {
			t.Fatalf("parse %q: %v", s, err)
		}
		if parsed != tag {
			t.Fatalf("parse(%q) = %+v, want %+v", s, parsed, tag)
		}
		if parsed.String() != s {
			t.Fatalf("round trip %q -> %q", s, parsed.String())
		}
	})
}

func TestNewMainTagRoundTrip(t *testing.T) {
	for _, registryURL := range []string{
		"registry.example.com",
		"https://registry.example.com:443",
		"http://localhost:5000",
		"http://registry.local:80",
		"",
	} {
		tag, err := NewMainTag(registryURL, "library/app", "main")
		assert.NilError(t, err)
		parsed, err := ParseMainTag(tag.String())
		assert.NilError(t, err)
		assert.Check(t, is.DeepEqual(parsed, tag), "registry %q", registryURL)
	}

	segment := rapid.StringMatching(`[a-z0-9]([a-z0-9._-]{0,10}[a-z0-9])?`)
	rapid.Check(t, func(t *rapid.T) {
		registryURL := ""
		if rapid.Bool().Draw(t, "hasRegistry") {
			registryURL = rapid.SampledFrom([]string{"", "http://", "https://"}).Draw(t, "scheme") +
				rapid.StringMatching(`[a-z0-9]([a-z0-9-]{0,10}[a-z0-9])?(\.[a-z]{2,5}){0,2}`).Draw(t, "host")
			if port := rapid.SampledFrom([]int{0, 80, 443, 5000, 8443}).Draw(t, "port"); port != 0 {
				registryURL += fmt.Sprintf(":%d", port)
			}
		}
		repo := segment.Draw(t, "namespace") + "/" + segment.Draw(t, "repo")
		tagName := rapid.SampledFrom([]string{"", "main", "git-abc123", "v1.2.3"}).Draw(t, "tag")

		tag, err := NewMainTag(registryURL, repo, tagName)
		if err != nil {
			t.Fatalf("new main tag from %q: %v", registryURL, err)
		}
		parsed, err := ParseMainTag(tag.String())
		if err != nil {
			t.Fatalf("parse %q: %v", tag.String(), err)
		}
		if parsed != tag {
			t.Fatalf("parse(%q) = %+v, want %+v", tag.String(), parsed, tag)
		}
	})
}
