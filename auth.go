package vaultier

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/hairyhenderson/go-vaultier/internal/env"
	"github.com/hashicorp/vault/api"
	"github.com/hashicorp/vault/api/auth/approle"
	"github.com/hashicorp/vault/api/auth/userpass"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

const (
	// agentTokenPath is where the Vault Agent injector writes the token
	agentTokenPath = "/vault/secrets/token"

	//nolint:gosec // G101: a well-known path, not a credential
	serviceAccountTokenPath = "/var/run/secrets/kubernetes.io/serviceaccount/token"
)

// loginCredential is a Credential that needs a login request to produce a
// token.
type loginCredential interface {
	Credential
	loginPath() string
	login(ctx context.Context, client *api.Client) (*api.Secret, error)
}

var (
	_ loginCredential = AppRole{}
	_ loginCredential = UserPass{}
	_ loginCredential = Kubernetes{}
)

// authenticate sets the client's token from cred. Only the login-based
// credentials make a request, and then exactly one.
func (c *Client) authenticate(ctx context.Context, cred Credential) error {
	switch cred := cred.(type) {
	case nil:
		return configError("new", "a credential is required")
	case Token:
		token, err := cred.resolve(c.api)
		if err != nil {
			return err
		}

		c.api.SetToken(token)

		return nil
	case AppRole:
		return c.login(ctx, cred)
	case UserPass:
		return c.login(ctx, cred)
	case Kubernetes:
		return c.login(ctx, cred)
	default:
		return configError("new", "unsupported credential type %T", cred)
	}
}

func (c *Client) login(ctx context.Context, cred loginCredential) error {
	p := cred.loginPath()

	ctx, span := c.tracer.Start(ctx, "vaultier.Login",
		trace.WithAttributes(authMethodAttr(cred.authMethod()), pathAttr(p)))
	defer span.End()

	// a token the API client picked up from $VAULT_TOKEN must not be sent
	// along with the login
	c.api.ClearToken()

	secret, err := cred.login(ctx, c.api)
	if err == nil && (secret == nil || secret.Auth == nil || secret.Auth.ClientToken == "") {
		err = errors.New("no client token was returned after login")
	}

	if err != nil {
		verr := &Error{}
		if !errors.As(err, &verr) {
			verr = newError("login", p, ErrAuth, err)
		}

		return recordError(span, verr)
	}

	c.api.SetToken(secret.Auth.ClientToken)

	c.logger.WithFields(logrus.Fields{
		"method":    cred.authMethod(),
		"path":      p,
		"renewable": secret.Auth.Renewable,
		"ttl":       secret.Auth.LeaseDuration,
	}).Info("authenticated with vault")

	return nil
}

func (t Token) resolve(client *api.Client) (string, error) {
	if t.Value != "" {
		return t.Value, nil
	}

	if token := client.Token(); token != "" {
		return token, nil
	}

	fsys := t.fsys
	if fsys == nil {
		fsys = os.DirFS("/")
	}

	if token := env.GetenvFS(fsys, "VAULT_TOKEN"); token != "" {
		return token, nil
	}

	paths := []string{agentTokenPath}
	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, path.Join(homeDir, ".vault-token"))
	}

	if token, _ := env.FirstFileFS(fsys, paths...); token != "" {
		return token, nil
	}

	return "", configError("new", "no vault token provided, and none found in "+
		"$VAULT_TOKEN, $VAULT_TOKEN_FILE, %s, or ~/.vault-token", agentTokenPath)
}

func (a AppRole) mount() string {
	if a.Mount == "" {
		return "approle"
	}

	return a.Mount
}

func (a AppRole) loginPath() string {
	return path.Join("auth", a.mount(), "login")
}

func (a AppRole) login(ctx context.Context, client *api.Client) (*api.Secret, error) {
	if a.RoleID == "" {
		return nil, configError("login", "approle auth requires a role ID")
	}

	// roles created with bind_secret_id=false log in with the role ID alone,
	// which the approle package doesn't support
	if a.SecretID == "" {
		return remoteAuth(ctx, client, a.mount(), "", map[string]any{"role_id": a.RoleID})
	}

	auth, err := approle.NewAppRoleAuth(a.RoleID,
		&approle.SecretID{FromString: a.SecretID},
		approle.WithMountPath(a.mount()))
	if err != nil {
		return nil, configError("login", "approle auth: %w", err)
	}

	return client.Auth().Login(ctx, auth)
}

func (u UserPass) mount() string {
	if u.Mount == "" {
		return "userpass"
	}

	return u.Mount
}

func (u UserPass) loginPath() string {
	return path.Join("auth", u.mount(), "login", u.Username)
}

func (u UserPass) login(ctx context.Context, client *api.Client) (*api.Secret, error) {
	if u.Username == "" {
		return nil, configError("login", "userpass auth requires a username")
	}

	if u.Password == "" {
		return nil, configError("login", "userpass auth requires a password")
	}

	auth, err := userpass.NewUserpassAuth(u.Username,
		&userpass.Password{FromString: u.Password},
		userpass.WithMountPath(u.mount()))
	if err != nil {
		return nil, configError("login", "userpass auth: %w", err)
	}

	return client.Auth().Login(ctx, auth)
}

func (k Kubernetes) mount() string {
	if k.Mount == "" {
		return "kubernetes"
	}

	return k.Mount
}

func (k Kubernetes) loginPath() string {
	return path.Join("auth", k.mount(), "login")
}

func (k Kubernetes) login(ctx context.Context, client *api.Client) (*api.Secret, error) {
	if k.Role == "" {
		return nil, configError("login", "kubernetes auth requires a role")
	}

	jwt, err := k.jwt()
	if err != nil {
		return nil, configError("login", "kubernetes auth: %w", err)
	}

	return remoteAuth(ctx, client, k.mount(), "", map[string]any{"role": k.Role, "jwt": jwt})
}

func (k Kubernetes) jwt() (string, error) {
	if k.JWT != "" {
		return k.JWT, nil
	}

	fsys := k.fsys
	if fsys == nil {
		fsys = os.DirFS("/")
	}

	if jwt := env.GetenvFS(fsys, "K8S_JWT"); jwt != "" {
		return jwt, nil
	}

	jwt, err := env.ReadFileFS(fsys, serviceAccountTokenPath)
	if err != nil {
		return "", fmt.Errorf("no JWT provided, and service account token unreadable: %w", err)
	}

	if jwt == "" {
		return "", fmt.Errorf("service account token %s is empty", serviceAccountTokenPath)
	}

	return jwt, nil
}

// remoteAuth writes vars to the login endpoint of the auth method at mount.
func remoteAuth(ctx context.Context, client *api.Client, mount, extra string, vars map[string]any) (*api.Secret, error) {
	p := path.Join("auth", mount, "login", extra)

	secret, err := client.Logical().WriteWithContext(ctx, p, vars)
	if err != nil {
		return nil, fmt.Errorf("vault write to %s failed: %w", p, err)
	}

	return secret, nil
}
