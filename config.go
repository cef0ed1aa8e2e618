package vaultier

import (
	"fmt"
	"net/url"
	"strings"
)

// Config describes the Vault server, secrets engine and credential a Client
// is bound to.
type Config struct {
	// Credential is how the client obtains its token. Required.
	Credential Credential

	// Address is the base URL of the Vault server, e.g.
	// "https://vault.example.com:8200" or "unix:///run/vault.sock". When
	// empty, $VAULT_ADDR is used, or "https://127.0.0.1:8200" if that is
	// unset.
	Address string

	// Mount is the KV v2 secrets engine's mount, e.g. "secret".
	Mount string

	// BasePath is the path below Mount that secrets are read from, unless a
	// relative path is given.
	BasePath string
}

// Validate checks the mount, base path and credential. The address is
// checked separately, once any $VAULT_ADDR fallback has been applied.
func (c Config) Validate() error {
	if isEmptyPath(c.Mount) {
		return configError("new", "mount must not be empty")
	}

	if isEmptyPath(c.BasePath) {
		return configError("new", "base path must not be empty")
	}

	if c.Credential == nil {
		return configError("new", "a credential is required")
	}

	return nil
}

func validateAddress(addr string) error {
	u, err := url.Parse(addr)
	if err != nil {
		return configError("new", "invalid vault address: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		if u.Host == "" {
			return configError("new", "invalid vault address %q: missing host", addr)
		}
	case "unix":
		if u.Path == "" && u.Host == "" {
			return configError("new", "invalid vault address %q: missing socket path", addr)
		}
	case "":
		return configError("new", "invalid vault address %q: must be an absolute URL", addr)
	default:
		return configError("new", "invalid vault address %q: unsupported scheme %q", addr, u.Scheme)
	}

	return nil
}

func (c Config) String() string {
	return fmt.Sprintf("%s (mount %s, base path %s, auth %s)",
		c.Address, c.Mount, c.BasePath, authMethodName(c.Credential))
}

func authMethodName(cred Credential) string {
	if cred == nil {
		return "none"
	}

	return cred.authMethod()
}
