package domain

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestParseRemoteRefs(t *testing.T) {
	out := "aaa\tHEAD\nbbb\trefs/heads/main\n\nccc refs/tags/v1\n"
	refs, err := ParseRemoteRefs(out)
	assert.NilError(t, err)
	assert.DeepEqual(t, refs, []RemoteRef{
		{Hash: "aaa", Name: "HEAD"},
		{Hash: "bbb", Name: "refs/heads/main"},
		{Hash: "ccc", Name: "refs/tags/v1"},
	})

	_, err = ParseRemoteRefs("only-one-field\n")
	assert.ErrorContains(t, err, "malformed ref line")
}

func TestBookHelpers(t *testing.T) {
	book := Book{
		Name:    "shop",
		Builder: "build",
		Runner:  "build",
		Repos: []Repo{
			{URL: "https://example.com/a.git", Refs: []Ref{NewRef("main", ""), NewRef("dev", "")}},
			{URL: "https://example.com/b.git", Refs: []Ref{NewRef("main", "b-main")}},
		},
	}
	refs := book.TrackedRefs()
	assert.Equal(t, len(refs), 3)
	tr := refs[RefKey{RepoURL: "https://example.com/b.git", RefName: "refs/heads/main"}]
	assert.Equal(t, tr.Ref.SubdomainName, "b-main")

	assert.DeepEqual(t, SortedKeys(book.Slugs()), []string{"b-main", "dev", "main"})
	assert.DeepEqual(t, book.ExecContexts(), []string{"build"})

	assert.Equal(t, DefaultRegistryNamespace("shop"), "library/shop")
	assert.Equal(t, DefaultRegistryNamespace("team/shop"), "team/shop")

	pair := TrackingRefPair{RepoURL: "u", Hash: "abc", RefName: "refs/heads/main"}
	assert.Equal(t, pair.GitTag(), "git-abc")
	assert.Check(t, IsGitTag(pair.GitTag()))
	assert.Check(t, !IsGitTag("main"))
}
