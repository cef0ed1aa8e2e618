// Package env contains functions that retrieve credentials from the
// environment and from well-known files.
package env

import (
	"io"
	"io/fs"
	"os"
	"path"
	"strings"
)

// maxFileSize bounds reads of token and JWT files, which are never large.
const maxFileSize = 64 * 1024

// GetenvFS retrieves the value of the environment variable named by the key.
// If the variable is unset, but the same variable ending in `_FILE` is set, the
// referenced file (resolved from the given filesystem) will be read into the
// value. Otherwise the provided default (or an empty string) is returned.
func GetenvFS(fsys fs.FS, key string, def ...string) string {
	val := os.Getenv(key)
	if val == "" {
		if p := os.Getenv(key + "_FILE"); p != "" {
			val, _ = ReadFileFS(fsys, p)
		}
	}

	if val == "" && len(def) > 0 {
		return def[0]
	}

	return val
}

// ReadFileFS reads the file at the absolute path p from fsys (usually rooted
// at "/") and returns its content with surrounding whitespace removed.
func ReadFileFS(fsys fs.FS, p string) (string, error) {
	p = strings.TrimPrefix(path.Clean(p), "/")

	f, err := fsys.Open(p)
	if err != nil {
		return "", err
	}
	defer f.Close()

	b, err := io.ReadAll(io.LimitReader(f, maxFileSize))
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(b)), nil
}

// FirstFileFS returns the content of the first readable, non-empty file
// among paths, along with the path it came from.
func FirstFileFS(fsys fs.FS, paths ...string) (val, from string) {
	for _, p := range paths {
		if p == "" {
			continue
		}

		v, err := ReadFileFS(fsys, p)
		if err == nil && v != "" {
			return v, p
		}
	}

	return "", ""
}
