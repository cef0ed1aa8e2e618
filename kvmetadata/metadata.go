package kvmetadata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/hairyhenderson/go-vaultier"
	"github.com/hairyhenderson/go-vaultier/internal"
	"github.com/hashicorp/go-cleanhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/hairyhenderson/go-vaultier/kvmetadata"

// maxBodySize bounds how much of a response is read. Metadata for a secret
// with the maximum number of versions is well under this.
const maxBodySize = 4 << 20

var (
	// ErrHTTP indicates the request could not be built or sent, or its
	// response could not be read.
	ErrHTTP = errors.New("kvmetadata: request failed")

	// ErrDecode indicates the response body was not valid JSON.
	ErrDecode = errors.New("kvmetadata: unable to decode response")
)

// APIError is returned when Vault responds with a non-2xx status.
type APIError struct {
	// Path is the metadata path requested, e.g. "secret/metadata/app".
	Path string
	// Body is the raw response body, usually a JSON list of errors.
	Body string
	// StatusCode is the HTTP status Vault responded with.
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("kvmetadata: unexpected response from vault for %s: %d %s: %s",
		e.Path, e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// Value is a decoded metadata response: the full JSON body, with objects as
// map[string]any. See [Data] and [CurrentVersion] for common fields.
type Value = any

// Reader reads metadata using a client's address, token and mount.
type Reader struct {
	client     *vaultier.Client
	httpClient *http.Client
	tracer     trace.Tracer
}

// Option configures a Reader.
type Option interface {
	apply(*Reader)
}

type optionFunc func(*Reader)

func (o optionFunc) apply(r *Reader) {
	o(r)
}

// WithHTTPClient sets the HTTP client used for metadata requests. By default a
// pooled client from go-cleanhttp is used.
func WithHTTPClient(client *http.Client) Option {
	return optionFunc(func(r *Reader) {
		if client != nil {
			r.httpClient = client
		}
	})
}

// WithTracerProvider specifies a tracer provider to use for creating a tracer.
// If none is specified, the global provider is used (see [otel.GetTracerProvider]).
func WithTracerProvider(provider trace.TracerProvider) Option {
	return optionFunc(func(r *Reader) {
		if provider != nil {
			r.tracer = provider.Tracer(tracerName)
		}
	})
}

// New returns a Reader for the secrets c reads.
func New(c *vaultier.Client, opts ...Option) *Reader {
	r := &Reader{client: c}

	for _, opt := range opts {
		if opt != nil {
			opt.apply(r)
		}
	}

	if r.httpClient == nil {
		r.httpClient = cleanhttp.DefaultPooledClient()
	}

	if r.tracer == nil {
		r.tracer = otel.GetTracerProvider().Tracer(tracerName)
	}

	return r
}

// Read returns the metadata of the secret at relative, below the client's
// base path, or of the base path itself when relative is empty. One request
// is made, and it is not retried.
//
// Errors wrap ErrHTTP or ErrDecode, or are an [*APIError]. In particular a
// secret that doesn't exist is an *APIError with StatusCode 404.
func (r *Reader) Read(ctx context.Context, relative string) (Value, error) {
	p := r.client.MetadataPath(relative)

	ctx, span := r.tracer.Start(ctx, "kvmetadata.Read",
		trace.WithAttributes(attribute.String("vault.mount", r.client.Mount()),
			attribute.String("vault.path", p)))
	defer span.End()

	v, err := r.read(ctx, p)
	if err != nil {
		span.RecordError(err)

		return nil, err
	}

	return v, nil
}

func (r *Reader) read(ctx context.Context, p string) (Value, error) {
	u, err := internal.APIURL(r.client.Address(), p)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHTTP, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHTTP, err)
	}

	for k, vs := range r.client.Headers() {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	req.Header.Set("X-Vault-Token", r.client.Token())

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %w", ErrHTTP, p, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response for %s: %w", ErrHTTP, p, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &APIError{Path: p, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var v Value
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, p, err)
	}

	return v, nil
}

// Data returns the "data" object of a metadata response, or nil when there is
// none.
func Data(v Value) map[string]any {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}

	data, _ := m["data"].(map[string]any)

	return data
}

// CurrentVersion returns the secret's current version number, if present.
func CurrentVersion(v Value) (int, bool) {
	switch n := Data(v)["current_version"].(type) {
	case float64:
		return int(n), true
	case json.Number:
		i, err := strconv.Atoi(n.String())

		return i, err == nil
	default:
		return 0, false
	}
}

// CustomMetadata returns the user-provided key/value metadata set on the
// secret. Non-string values are skipped.
func CustomMetadata(v Value) map[string]string {
	raw, ok := Data(v)["custom_metadata"].(map[string]any)
	if !ok {
		return nil
	}

	out := make(map[string]string, len(raw))

	for k, val := range raw {
		if s, ok := val.(string); ok {
			out[k] = s
		}
	}

	return out
}
