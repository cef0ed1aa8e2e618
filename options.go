package vaultier

import (
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

// Option configures a Client.
type Option interface {
	apply(*options)
}

type options struct {
	logger     logrus.FieldLogger
	tp         trace.TracerProvider
	httpClient *http.Client
	headers    http.Header
	maxRetries *int
	namespace  string
	timeout    time.Duration
}

type optionFunc func(*options)

func (o optionFunc) apply(c *options) {
	o(c)
}

func newOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		if opt != nil {
			opt.apply(o)
		}
	}

	if o.logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		o.logger = l
	}

	return o
}

// WithLogger sets the logger the client reports authentication and reads to.
// By default nothing is logged.
func WithLogger(logger logrus.FieldLogger) Option {
	return optionFunc(func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	})
}

// WithTracerProvider specifies a tracer provider to use for creating a tracer.
// If none is specified, the global provider is used (see [otel.GetTracerProvider]).
func WithTracerProvider(provider trace.TracerProvider) Option {
	return optionFunc(func(o *options) {
		if provider != nil {
			o.tp = provider
		}
	})
}

// WithHTTPClient sets the HTTP client the Vault API client sends requests
// with, e.g. to customise TLS or proxying beyond what the $VAULT_* environment
// variables allow.
func WithHTTPClient(client *http.Client) Option {
	return optionFunc(func(o *options) {
		o.httpClient = client
	})
}

// WithNamespace sets the Vault Enterprise namespace for all requests.
func WithNamespace(namespace string) Option {
	return optionFunc(func(o *options) {
		o.namespace = namespace
	})
}

// WithHeader adds custom HTTP headers to all requests.
func WithHeader(headers http.Header) Option {
	return optionFunc(func(o *options) {
		if o.headers == nil {
			o.headers = http.Header{}
		}

		for k, vs := range headers {
			for _, v := range vs {
				o.headers.Add(k, v)
			}
		}
	})
}

// WithTimeout bounds each request to Vault. By default the Vault API
// client's timeout applies ($VAULT_CLIENT_TIMEOUT, or 60s).
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(o *options) {
		o.timeout = d
	})
}

// WithMaxRetries sets how many times the Vault API client retries requests
// that fail with a 5xx status or a connection error. The client itself never
// retries. By default the Vault API client's setting applies
// ($VAULT_MAX_RETRIES, or 2).
func WithMaxRetries(n int) Option {
	return optionFunc(func(o *options) {
		o.maxRetries = &n
	})
}
