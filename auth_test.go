package vaultier

import (
	"net/http"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/hairyhenderson/go-vaultier/internal/tests"
	"github.com/hairyhenderson/go-vaultier/internal/tests/fakevault"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loginClient(t *testing.T, v *fakevault.Vault, cred Credential, opts ...Option) (*Client, error) {
	t.Helper()

	opts = append([]Option{WithMaxRetries(0)}, opts...)

	return NewWithConfig(t.Context(), Config{
		Address:    v.URL(),
		Mount:      "secret",
		BasePath:   "base",
		Credential: cred,
	}, opts...)
}

func TestCreateLogsInOnce(t *testing.T) {
	t.Setenv("VAULT_TOKEN", "s.ambient")

	v := fakevault.New(t)
	v.AllowLogin("auth/approle/login", "s.role", map[string]string{"role_id": "r1"})
	v.RequireToken("s.role")
	v.Put("secret", "base/creds", map[string]any{"username": "u", "password": "p"})

	c, err := Create(t.Context(), v.URL(), "approle", "r1", "secret", "base", WithMaxRetries(0))
	require.NoError(t, err)

	assert.Equal(t, 1, v.Count(""))
	assert.Equal(t, 1, v.Count("auth/approle/login"))
	assert.Equal(t, "s.role", c.Token())

	reqs := v.Requests()
	assert.Equal(t, http.MethodPut, reqs[0].Method)
	assert.Equal(t, map[string]any{"role_id": "r1"}, reqs[0].Body)
	// the ambient token isn't sent with the login
	assert.Empty(t, reqs[0].Token)

	creds, err := ReadSecretsFrom[Creds](t.Context(), c, "creds")
	require.NoError(t, err)
	assert.Equal(t, Creds{Username: "u", Password: "p"}, creds)

	// no re-login on reads
	assert.Equal(t, 1, v.Count("auth/approle/login"))
}

func TestCreateCustomMount(t *testing.T) {
	v := fakevault.New(t)
	v.AllowLogin("auth/team-approle/login", "s.role", map[string]string{"role_id": "r1"})

	c, err := Create(t.Context(), v.URL(), "/team-approle/", "r1", "secret", "base", WithMaxRetries(0))
	require.NoError(t, err)
	assert.Equal(t, "s.role", c.Token())
}

func TestCreateLoginFailures(t *testing.T) {
	testdata := []struct {
		setup  func(v *fakevault.Vault)
		name   string
		status int
	}{
		{
			name:   "forbidden",
			setup:  func(v *fakevault.Vault) { v.DenyLogin("auth/approle/login", http.StatusForbidden) },
			status: http.StatusForbidden,
		},
		{
			name: "invalid role",
			setup: func(v *fakevault.Vault) {
				v.AllowLogin("auth/approle/login", "s.role", map[string]string{"role_id": "other"})
			},
			status: http.StatusBadRequest,
		},
		{
			name:   "server error",
			setup:  func(v *fakevault.Vault) { v.DenyLogin("auth/approle/login", http.StatusInternalServerError) },
			status: http.StatusInternalServerError,
		},
		{
			name: "no auth block",
			setup: func(v *fakevault.Vault) {
				v.Respond("auth/approle/login", http.StatusOK, `{"data":{}}`)
			},
		},
		{
			name: "empty client token",
			setup: func(v *fakevault.Vault) {
				v.Respond("auth/approle/login", http.StatusOK, `{"auth":{"client_token":""}}`)
			},
		},
	}

	for _, d := range testdata {
		t.Run(d.name, func(t *testing.T) {
			v := fakevault.New(t)
			d.setup(v)

			c, err := Create(t.Context(), v.URL(), "approle", "r1", "secret", "base", WithMaxRetries(0))
			require.Error(t, err)
			assert.Nil(t, c)
			assert.ErrorIs(t, err, ErrAuth)
			assert.True(t, IsAuthError(err))
			assert.Equal(t, d.status, StatusCode(err))
			assert.Equal(t, 1, v.Count("auth/approle/login"))
			assert.Contains(t, err.Error(), "auth/approle/login")
		})
	}
}

func TestCreateUnreachable(t *testing.T) {
	v := fakevault.New(t)
	v.Close()

	_, err := Create(t.Context(), v.URL(), "approle", "r1", "secret", "base", WithMaxRetries(0))
	require.ErrorIs(t, err, ErrAuth)
	assert.Equal(t, 0, StatusCode(err))
}

func TestCreateInvalidConfig(t *testing.T) {
	v := fakevault.New(t)

	_, err := Create(t.Context(), v.URL(), "approle", "", "secret", "base")
	require.ErrorIs(t, err, ErrConfig)
	assert.NotErrorIs(t, err, ErrAuth)

	_, err = Create(t.Context(), v.URL(), "approle", "r1", "", "base")
	require.ErrorIs(t, err, ErrConfig)

	assert.Equal(t, 0, v.Count(""))
}

func TestAppRoleWithSecretID(t *testing.T) {
	v := fakevault.New(t)
	v.AllowLogin("auth/approle/login", "s.role", map[string]string{"role_id": "r1", "secret_id": "s1"})

	c, err := loginClient(t, v, AppRole{RoleID: "r1", SecretID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, "s.role", c.Token())
	assert.Equal(t, 1, v.Count(""))

	v = fakevault.New(t)
	v.DenyLogin("auth/approle/login", http.StatusForbidden)

	_, err = loginClient(t, v, AppRole{RoleID: "r1", SecretID: "s1"})
	require.ErrorIs(t, err, ErrAuth)
	assert.Equal(t, http.StatusForbidden, StatusCode(err))
}

func TestUserPass(t *testing.T) {
	v := fakevault.New(t)
	v.AllowLogin("auth/ldap/login/jdoe", "s.user", map[string]string{"password": "hunter2"})

	c, err := loginClient(t, v, UserPass{Mount: "ldap", Username: "jdoe", Password: "hunter2"})
	require.NoError(t, err)
	assert.Equal(t, "s.user", c.Token())
	assert.Equal(t, 1, v.Count("auth/ldap/login/jdoe"))

	_, err = loginClient(t, v, UserPass{Username: "jdoe", Password: "hunter2"})
	require.ErrorIs(t, err, ErrAuth)
	assert.Equal(t, 1, v.Count("auth/userpass/login/jdoe"))

	_, err = loginClient(t, v, UserPass{Username: "jdoe"})
	require.ErrorIs(t, err, ErrConfig)

	_, err = loginClient(t, v, UserPass{Password: "hunter2"})
	require.ErrorIs(t, err, ErrConfig)
}

func TestKubernetes(t *testing.T) {
	t.Setenv("K8S_JWT", "")
	t.Setenv("K8S_JWT_FILE", "")

	v := fakevault.New(t)
	v.AllowLogin("auth/kubernetes/login", "s.k8s", map[string]string{"role": "app", "jwt": "sa-jwt"})

	fsys := fstest.MapFS{
		"var/run/secrets/kubernetes.io/serviceaccount/token": {Data: []byte("sa-jwt\n")},
	}

	c, err := loginClient(t, v, Kubernetes{Role: "app", fsys: fsys})
	require.NoError(t, err)
	assert.Equal(t, "s.k8s", c.Token())

	c, err = loginClient(t, v, Kubernetes{Role: "app", JWT: "sa-jwt"})
	require.NoError(t, err)
	assert.Equal(t, "s.k8s", c.Token())

	t.Setenv("K8S_JWT", "sa-jwt")

	c, err = loginClient(t, v, Kubernetes{Role: "app", fsys: fstest.MapFS{}})
	require.NoError(t, err)
	assert.Equal(t, "s.k8s", c.Token())

	assert.Equal(t, 3, v.Count("auth/kubernetes/login"))
}

func TestKubernetesInvalid(t *testing.T) {
	t.Setenv("K8S_JWT", "")
	t.Setenv("K8S_JWT_FILE", "")

	v := fakevault.New(t)

	_, err := loginClient(t, v, Kubernetes{JWT: "sa-jwt"})
	require.ErrorIs(t, err, ErrConfig)

	_, err = loginClient(t, v, Kubernetes{Role: "app", fsys: fstest.MapFS{}})
	require.ErrorIs(t, err, ErrConfig)
	assert.Contains(t, err.Error(), "service account token")

	assert.Equal(t, 0, v.Count(""))
}

func TestLoginObservability(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	tp, sr := tests.RecordingTracerProvider()

	v := fakevault.New(t)
	v.AllowLogin("auth/approle/login", "s.secret-token", map[string]string{"role_id": "r1"})

	_, err := Create(t.Context(), v.URL(), "approle", "r1", "secret", "base",
		WithLogger(logger), WithTracerProvider(tp))
	require.NoError(t, err)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "authenticated with vault", entry.Message)
	assert.Equal(t, "approle", entry.Data["method"])

	for _, e := range hook.AllEntries() {
		s, err := e.String()
		require.NoError(t, err)
		assert.False(t, strings.Contains(s, "s.secret-token"), "token leaked to log: %s", s)
	}

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "vaultier.Login", spans[0].Name())

	attrs := tests.SpanAttributes(spans[0])
	assert.Equal(t, "approle", attrs["vault.auth_method"])
	assert.Equal(t, "auth/approle/login", attrs["vault.path"])
}

func TestTokenMakesNoLoginSpan(t *testing.T) {
	tp, sr := tests.RecordingTracerProvider()

	_, err := New("http://127.0.0.1:8200", "secret", "base", "s.test", WithTracerProvider(tp))
	require.NoError(t, err)
	assert.Empty(t, sr.Ended())
}
