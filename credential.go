package vaultier

import "io/fs"

// Credential is the means by which a Client obtains its Vault token. It is
// exactly one of Token, AppRole, UserPass or Kubernetes; the set is closed, so
// other implementations can not be defined outside this package.
type Credential interface {
	authMethod() string
}

var (
	_ Credential = Token{}
	_ Credential = AppRole{}
	_ Credential = UserPass{}
	_ Credential = Kubernetes{}
)

// Token authenticates with a pre-issued Vault token, sent as-is on every
// request. No request is made to obtain it.
//
// If Value is empty, the token is looked up in this order:
//
//	$VAULT_TOKEN (as resolved by the Vault API client)
//	the file named by $VAULT_TOKEN_FILE
//	/vault/secrets/token (written by the Vault Agent injector)
//	$HOME/.vault-token (written by "vault login")
//
// See also https://developer.hashicorp.com/vault/docs/auth/token
type Token struct {
	fsys  fs.FS
	Value string
}

func (Token) authMethod() string { return "token" }

// AppRole authenticates with the AppRole auth method, exchanging RoleID (and
// SecretID, when the role requires one) for a short-lived token at
// construction time. The token is not renewed.
//
// Mount defaults to "approle".
//
// See also https://developer.hashicorp.com/vault/docs/auth/approle
type AppRole struct {
	Mount    string
	RoleID   string
	SecretID string
}

func (AppRole) authMethod() string { return "approle" }

// UserPass authenticates with the userpass auth method.
//
// Mount defaults to "userpass".
//
// See also https://developer.hashicorp.com/vault/docs/auth/userpass
type UserPass struct {
	Mount    string
	Username string
	Password string
}

func (UserPass) authMethod() string { return "userpass" }

// Kubernetes authenticates with the Kubernetes auth method, using a service
// account JWT for the given Role.
//
// If JWT is empty, it is read from $K8S_JWT, the file named by $K8S_JWT_FILE,
// or the pod's service account token file, in that order. Mount defaults to
// "kubernetes".
//
// See also https://developer.hashicorp.com/vault/docs/auth/kubernetes
type Kubernetes struct {
	fsys  fs.FS
	Mount string
	Role  string
	JWT   string
}

func (Kubernetes) authMethod() string { return "kubernetes" }
