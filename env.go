package vaultier

import (
	"io/fs"
	"os"

	"github.com/hairyhenderson/go-vaultier/internal/env"
)

// CredentialFromEnv picks a credential based on environment variables, trying
// each of these in order of precedence:
//
// # approle
//
// When $VAULT_ROLE_ID is set, an [AppRole] credential with that role ID, and
// the secret ID from $VAULT_SECRET_ID (or the file named by
// $VAULT_SECRET_ID_FILE), if any. The mount can be set with
// $VAULT_AUTH_APPROLE_MOUNT.
//
// # kubernetes
//
// When $VAULT_AUTH_KUBERNETES_ROLE is set, a [Kubernetes] credential for that
// role. The mount can be set with $VAULT_AUTH_KUBERNETES_MOUNT.
//
// # userpass
//
// When $VAULT_AUTH_USERNAME is set, a [UserPass] credential using the password
// from $VAULT_AUTH_PASSWORD (or the file named by $VAULT_AUTH_PASSWORD_FILE).
// The mount can be set with $VAULT_AUTH_USERPASS_MOUNT.
//
// # token
//
// Otherwise a [Token] credential, found as described there.
func CredentialFromEnv() Credential {
	return credentialFromEnv(os.DirFS("/"))
}

func credentialFromEnv(fsys fs.FS) Credential {
	if roleID := env.GetenvFS(fsys, "VAULT_ROLE_ID"); roleID != "" {
		return AppRole{
			Mount:    os.Getenv("VAULT_AUTH_APPROLE_MOUNT"),
			RoleID:   roleID,
			SecretID: env.GetenvFS(fsys, "VAULT_SECRET_ID"),
		}
	}

	if role := os.Getenv("VAULT_AUTH_KUBERNETES_ROLE"); role != "" {
		return Kubernetes{
			fsys:  fsys,
			Mount: os.Getenv("VAULT_AUTH_KUBERNETES_MOUNT"),
			Role:  role,
		}
	}

	if username := os.Getenv("VAULT_AUTH_USERNAME"); username != "" {
		return UserPass{
			Mount:    os.Getenv("VAULT_AUTH_USERPASS_MOUNT"),
			Username: username,
			Password: env.GetenvFS(fsys, "VAULT_AUTH_PASSWORD"),
		}
	}

	return Token{fsys: fsys}
}
