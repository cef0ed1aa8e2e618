// Package vaultier reads structured secrets from HashiCorp Vault's KV v2
// secrets engine, decoding them into caller-supplied Go types.
//
// A [Client] is bound to one Vault address, one KV v2 mount and a base path
// below it, and holds a token obtained once at construction from a
// [Credential]: a static [Token], or a login with [AppRole], [UserPass] or
// [Kubernetes]. Tokens are not renewed, so long-lived processes should create
// a new client when reads start failing with [IsAuthError].
//
// # Usage
//
//	type Creds struct {
//		Username string `json:"username"`
//		Password string `json:"password"`
//	}
//
//	c, err := vaultier.New("https://vault.example.com:8200", "secret", "myapp", "")
//	if err != nil {
//		return err
//	}
//
//	// reads secret/data/myapp/db
//	creds, err := vaultier.ReadSecretsFrom[Creds](ctx, c, "db")
//	if vaultier.IsNotFound(err) {
//		...
//	}
//
// # Paths
//
// Secrets are read from <mount>/data/<base path>[/<relative>]. Leading,
// trailing and repeated "/" separators are ignored; no other normalization is
// done, so "." and ".." segments are sent to Vault as-is.
//
// # Errors
//
// Every error returned wraps exactly one of [ErrConfig], [ErrAuth],
// [ErrNotFound], [ErrDecode], [ErrTransport] or [ErrInvalidPath], and is
// usually an [*Error] carrying the failed path and Vault's HTTP status.
//
// # Metadata
//
// Version metadata is not exposed by the read path. The kvmetadata
// subpackage reads it with a separate HTTP client.
package vaultier
