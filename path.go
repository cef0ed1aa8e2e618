package vaultier

import "strings"

// KV v2 nests secret data and version metadata under fixed segments between
// the mount and the secret's path.
const (
	dataSegment     = "data"
	metadataSegment = "metadata"
)

// ResolvePath returns the path of a secret below its mount: basePath alone
// when relative is empty, otherwise basePath/relative.
//
// Runs of "/" collapse to a single separator, and leading and trailing
// separators are dropped, so "app/", "/creds" resolves to "app/creds". No
// other normalization happens - in particular ".." segments are passed through
// as-is, so relative must not come from untrusted input.
func ResolvePath(basePath, relative string) string {
	return joinPath(basePath, relative)
}

// kvPath builds the fully-qualified KV v2 path mount/segment/resolved, where
// segment is dataSegment or metadataSegment.
func kvPath(mount, segment, resolved string) string {
	return joinPath(mount, segment, resolved)
}

func joinPath(parts ...string) string {
	segs := make([]string, 0, len(parts))

	for _, p := range parts {
		for _, s := range strings.Split(p, "/") {
			if s != "" {
				segs = append(segs, s)
			}
		}
	}

	return strings.Join(segs, "/")
}

func isEmptyPath(p string) bool {
	return strings.Trim(p, "/") == ""
}
