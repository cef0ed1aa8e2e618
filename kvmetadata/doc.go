// Package kvmetadata reads KV v2 secret metadata (versions, timestamps, custom
// metadata) for the secrets a [vaultier.Client] reads.
//
// The Vault API client the main package is built on does not expose the
// metadata endpoint through its KV read path, so this package calls it
// directly with its own HTTP client, sending the [vaultier.Client]'s token,
// namespace and custom headers. It is kept separate so programs that only
// read secrets don't link its dependencies.
//
// # Usage
//
//	md, err := kvmetadata.New(client).Read(ctx, "db")
//	if err != nil {
//		return err
//	}
//
//	if v, ok := kvmetadata.CurrentVersion(md); ok {
//		...
//	}
//
// Addresses using the unix:// scheme are not supported.
package kvmetadata
