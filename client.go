package vaultier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"

	"github.com/hashicorp/vault/api"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Client reads secrets from a single KV v2 secrets engine mount, below a base
// path, using a token set once at construction. It is safe for concurrent use.
type Client struct {
	api      *api.Client
	logger   logrus.FieldLogger
	tracer   trace.Tracer
	address  string
	mount    string
	basePath string
}

// New creates a client authenticating with a static token. When token is
// empty, it is looked up from the environment as described for [Token].
//
// No request is made to Vault.
func New(address, mount, basePath, token string, opts ...Option) (*Client, error) {
	return NewWithConfig(context.Background(), Config{
		Address:    address,
		Mount:      mount,
		BasePath:   basePath,
		Credential: Token{Value: token},
	}, opts...)
}

// Create creates a client by logging in to the AppRole auth method mounted at
// authMount with roleID alone, for roles created with bind_secret_id=false.
// Exactly one login request is made. Use [NewWithConfig] with an [AppRole]
// credential to log in with a secret ID as well.
func Create(ctx context.Context, address, authMount, roleID, mount, basePath string, opts ...Option) (*Client, error) {
	return NewWithConfig(ctx, Config{
		Address:    address,
		Mount:      mount,
		BasePath:   basePath,
		Credential: AppRole{Mount: authMount, RoleID: roleID},
	}, opts...)
}

// NewWithConfig creates a client for cfg, obtaining a token with
// cfg.Credential. Login-based credentials make exactly one request, bounded by
// ctx.
//
// The underlying Vault API client is configured from the usual $VAULT_*
// environment variables (TLS settings, $VAULT_NAMESPACE and so on) before
// opts are applied.
func NewWithConfig(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := newOptions(opts)

	config := api.DefaultConfig()
	if config.Error != nil {
		return nil, configError("new", "vault configuration error: %w", config.Error)
	}

	if cfg.Address != "" {
		config.Address = cfg.Address
	}

	if err := validateAddress(config.Address); err != nil {
		return nil, err
	}

	if o.httpClient != nil {
		config.HttpClient = o.httpClient
	}

	if o.timeout > 0 {
		config.Timeout = o.timeout
	}

	if o.maxRetries != nil {
		config.MaxRetries = *o.maxRetries
	}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, configError("new", "vault client creation failed: %w", err)
	}

	if o.namespace != "" {
		client.SetNamespace(o.namespace)
	}

	for k, vs := range o.headers {
		for _, v := range vs {
			client.AddHeader(k, v)
		}
	}

	tp := o.tp
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	c := &Client{
		api:      client,
		address:  config.Address,
		mount:    joinPath(cfg.Mount),
		basePath: joinPath(cfg.BasePath),
		logger:   o.logger,
		tracer:   tp.Tracer(tracerName),
	}

	if err := c.authenticate(ctx, cfg.Credential); err != nil {
		return nil, err
	}

	return c, nil
}

// ReadSecrets reads the secret at the client's base path and decodes it into
// a T.
//
// T is typically a struct with `json` tags. Every top-level field is required
// unless tagged ",omitempty". On failure the zero T is returned, along with an
// error wrapping one of ErrNotFound, ErrDecode or ErrTransport.
func ReadSecrets[T any](ctx context.Context, c *Client) (T, error) {
	var out T
	if err := c.read(ctx, "", &out); err != nil {
		var zero T

		return zero, err
	}

	return out, nil
}

// ReadSecretsFrom reads the secret at relative, below the client's base path,
// and decodes it into a T as [ReadSecrets] does.
//
// An empty relative path (or one made only of "/") is rejected with
// ErrInvalidPath, and no request is made. Use [ReadSecrets] to read the base
// path itself.
func ReadSecretsFrom[T any](ctx context.Context, c *Client, relative string) (T, error) {
	var zero T

	if isEmptyPath(relative) {
		return zero, &Error{
			Op:   "read",
			Path: c.SecretPath(""),
			Kind: ErrInvalidPath,
			Err:  fmt.Errorf("relative path %q must not be empty", relative),
		}
	}

	var out T
	if err := c.read(ctx, relative, &out); err != nil {
		return zero, err
	}

	return out, nil
}

// ReadInto reads the secret at relative (or at the base path, when relative
// is empty) and decodes it into v, which must be a non-nil pointer.
func (c *Client) ReadInto(ctx context.Context, relative string, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return &Error{
			Op:   "read",
			Path: c.SecretPath(relative),
			Kind: ErrDecode,
			Err:  fmt.Errorf("target must be a non-nil pointer, not %T", v),
		}
	}

	return c.read(ctx, relative, v)
}

func (c *Client) read(ctx context.Context, relative string, out any) error {
	p := c.SecretPath(relative)

	ctx, span := c.tracer.Start(ctx, "vaultier.ReadSecrets",
		trace.WithAttributes(mountAttr(c.mount), pathAttr(p)))
	defer span.End()

	logger := c.logger.WithFields(logrus.Fields{"mount": c.mount, "path": p})
	logger.Debug("reading secret")

	secret, err := c.api.Logical().ReadWithContext(ctx, p)
	if err != nil {
		return recordError(span, newError("read", p, ErrTransport, err))
	}

	// the API client swallows KV v2 404s unless the body carries data, which
	// only happens for deleted and destroyed versions
	if secret == nil || secret.Data == nil {
		return recordError(span, &Error{Op: "read", Path: p, Kind: ErrNotFound, StatusCode: http.StatusNotFound})
	}

	raw, ok := secret.Data["data"]
	if !ok {
		return recordError(span, &Error{
			Op: "read", Path: p, Kind: ErrDecode,
			Err: errors.New("response has no data field, is the mount a KV v2 engine?"),
		})
	}

	if raw == nil {
		return recordError(span, &Error{
			Op: "read", Path: p, Kind: ErrNotFound, StatusCode: http.StatusNotFound,
			Err: errors.New("secret version has been deleted or destroyed"),
		})
	}

	data, ok := raw.(map[string]any)
	if !ok {
		return recordError(span, &Error{
			Op: "read", Path: p, Kind: ErrDecode,
			Err: fmt.Errorf("expected an object in the data field, got %T", raw),
		})
	}

	if v, ok := secretVersion(secret); ok {
		span.SetAttributes(versionAttr(v))
		logger = logger.WithField("version", v)
	}

	if err := decode(data, out); err != nil {
		return recordError(span, newError("read", p, ErrDecode, err))
	}

	logger.Debug("read secret")

	return nil
}

// secretVersion extracts the version from a KV v2 read's metadata block.
func secretVersion(secret *api.Secret) (int64, bool) {
	md, ok := secret.Data["metadata"].(map[string]any)
	if !ok {
		return 0, false
	}

	switch v := md["version"].(type) {
	case json.Number:
		n, err := v.Int64()

		return n, err == nil
	case float64:
		return int64(v), true
	case int:
		return int64(v), true
	default:
		return 0, false
	}
}

// SecretPath returns the fully-qualified KV v2 data path read for relative,
// e.g. "secret/data/app/creds".
func (c *Client) SecretPath(relative string) string {
	return kvPath(c.mount, dataSegment, ResolvePath(c.basePath, relative))
}

// MetadataPath returns the fully-qualified KV v2 metadata path for relative,
// e.g. "secret/metadata/app/creds".
func (c *Client) MetadataPath(relative string) string {
	return kvPath(c.mount, metadataSegment, ResolvePath(c.basePath, relative))
}

// Address returns the Vault server's address, as configured or read from
// $VAULT_ADDR.
func (c *Client) Address() string {
	return c.address
}

// Token returns the token sent with every request. Handle with care.
func (c *Client) Token() string {
	return c.api.Token()
}

// Namespace returns the Vault Enterprise namespace requests are sent to, or
// "" for the root namespace.
func (c *Client) Namespace() string {
	return c.api.Namespace()
}

// Mount returns the secrets engine mount.
func (c *Client) Mount() string {
	return c.mount
}

// BasePath returns the path below the mount that secrets are read from.
func (c *Client) BasePath() string {
	return c.basePath
}

// Headers returns the custom headers sent with every request, including the
// namespace header when one is set.
func (c *Client) Headers() http.Header {
	return c.api.Headers()
}
