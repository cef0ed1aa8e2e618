package vaultier

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/hairyhenderson/go-vaultier"

const (
	mountKey      = attribute.Key("vault.mount")
	pathKey       = attribute.Key("vault.path")
	authMethodKey = attribute.Key("vault.auth_method")
	versionKey    = attribute.Key("vault.secret_version")
)

// The secrets engine mount being read from.
//
// Examples: "secret", "kv"
func mountAttr(mount string) attribute.KeyValue {
	return mountKey.String(mount)
}

// The fully-qualified Vault path being operated on.
//
// Examples: "secret/data/app/creds", "auth/approle/login"
func pathAttr(p string) attribute.KeyValue {
	return pathKey.String(p)
}

// The auth method used to log in.
//
// Examples: "approle", "kubernetes"
func authMethodAttr(method string) attribute.KeyValue {
	return authMethodKey.String(method)
}

// The KV v2 version of the secret that was read.
func versionAttr(v int64) attribute.KeyValue {
	return versionKey.Int64(v)
}

// recordError records the given error on the span, and returns it. It does not
// set the span's status to error.
func recordError(span trace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
	}

	return err
}
