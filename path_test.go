package vaultier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolvePath(t *testing.T) {
	testdata := []struct {
		base, rel, expected string
	}{
		{"app", "", "app"},
		{"team/app", "", "team/app"},
		{"app", "creds", "app/creds"},
		{"app/", "creds", "app/creds"},
		{"app", "/creds", "app/creds"},
		{"/app/", "/creds/", "app/creds"},
		{"app//", "//creds", "app/creds"},
		{"app", "db/primary", "app/db/primary"},
		{"a//b", "c///d", "a/b/c/d"},
		// traversal segments are not interpreted
		{"app", "../other", "app/../other"},
	}

	for _, d := range testdata {
		assert.Equal(t, d.expected, ResolvePath(d.base, d.rel), "base=%q rel=%q", d.base, d.rel)
	}
}

func TestResolvePathNoRelativeIsBase(t *testing.T) {
	for _, base := range []string{"app", "team/app", "x", "deeply/nested/base/path"} {
		assert.Equal(t, base, ResolvePath(base, ""))
	}
}

func TestKVPath(t *testing.T) {
	assert.Equal(t, "secret/data/app/creds", kvPath("secret", dataSegment, "app/creds"))
	assert.Equal(t, "secret/metadata/app", kvPath("secret/", metadataSegment, "/app"))
	assert.Equal(t, "kv/team/data/app", kvPath("/kv/team/", dataSegment, "app"))
}

func TestIsEmptyPath(t *testing.T) {
	assert.True(t, isEmptyPath(""))
	assert.True(t, isEmptyPath("/"))
	assert.True(t, isEmptyPath("///"))
	assert.False(t, isEmptyPath("a"))
	assert.False(t, isEmptyPath("/a/"))
}
