// Package internal holds helpers used only inside this module.
package internal

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// SubURL resolves rel against base, merging base's query parameters into the
// result. Parameters set on rel take precedence.
func SubURL(base, rel *url.URL) *url.URL {
	u := base.ResolveReference(rel)

	if base.RawQuery != "" {
		bq := base.Query()
		rq := rel.Query()

		for k := range rq {
			bq.Set(k, rq.Get(k))
		}

		u.RawQuery = bq.Encode()
	}

	return u
}

// APIURL returns the URL of the Vault HTTP API endpoint p (a path relative to
// "/v1/") on the server at address. A path prefix already present on the
// address (e.g. a reverse-proxy prefix) is kept.
func APIURL(address, p string) (*url.URL, error) {
	base, err := url.Parse(address)
	if err != nil {
		return nil, fmt.Errorf("invalid vault address %q: %w", address, err)
	}

	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q in vault address %q", base.Scheme, address)
	}

	if base.Host == "" {
		return nil, fmt.Errorf("vault address %q has no host", address)
	}

	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
		base.RawPath = ""
	}

	rel := &url.URL{Path: path.Join("v1", p)}

	return SubURL(base, rel), nil
}
