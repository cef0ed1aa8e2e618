package vaultier

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hashicorp/vault/api"
)

// Error kinds. Every error returned by a Client wraps exactly one of these, so
// callers can tell "secret absent" from "Vault unreachable" from "wrong
// shape" with errors.Is.
var (
	// ErrConfig indicates a malformed address, mount, base path or
	// credential, detected before any request is made.
	ErrConfig = errors.New("vaultier: invalid configuration")

	// ErrAuth indicates the login exchange with an auth backend failed.
	ErrAuth = errors.New("vaultier: authentication failed")

	// ErrNotFound indicates there is no secret (or only a deleted version) at
	// the requested path.
	ErrNotFound = errors.New("vaultier: secret not found")

	// ErrDecode indicates the secret payload could not be decoded into the
	// requested type.
	ErrDecode = errors.New("vaultier: unable to decode secret")

	// ErrTransport indicates the request to Vault failed, either because
	// Vault could not be reached or because it replied with an error status.
	ErrTransport = errors.New("vaultier: vault request failed")

	// ErrInvalidPath indicates a relative secret path was rejected.
	ErrInvalidPath = errors.New("vaultier: invalid secret path")
)

// Error describes a failed Client operation.
type Error struct {
	// Kind is one of the Err* sentinel errors in this package.
	Kind error
	// Err is the underlying cause, if any.
	Err error
	// Op is the operation that failed ("read", "login", "new").
	Op string
	// Path is the Vault path involved, if any.
	Path string
	// StatusCode is the HTTP status Vault replied with, or 0 if no response
	// was received.
	StatusCode int
}

func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(e.Op)

	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}

	b.WriteString(": ")
	b.WriteString(e.kind().Error())

	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}

	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}

	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.kind()}
	}

	return []error{e.kind(), e.Err}
}

func (e *Error) kind() error {
	if e.Kind == nil {
		return ErrTransport
	}

	return e.Kind
}

// newError builds an *Error, picking up the status code from a Vault
// *api.ResponseError anywhere in err's chain.
func newError(op, p string, kind, err error) *Error {
	e := &Error{Op: op, Path: p, Kind: kind, Err: err}

	rerr := &api.ResponseError{}
	if errors.As(err, &rerr) {
		e.StatusCode = rerr.StatusCode
	}

	return e
}

func configError(op, format string, args ...any) *Error {
	return &Error{Op: op, Kind: ErrConfig, Err: fmt.Errorf(format, args...)}
}

// IsNotFound reports whether err indicates that no secret exists at the
// requested path.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAuthError reports whether err is a login failure, or a request Vault
// rejected as unauthenticated or forbidden (e.g. because the token expired).
func IsAuthError(err error) bool {
	if errors.Is(err, ErrAuth) {
		return true
	}

	code := StatusCode(err)

	return code == http.StatusUnauthorized || code == http.StatusForbidden
}

// StatusCode returns the HTTP status code Vault replied with for the failed
// operation, or 0 if there was none (e.g. the server was unreachable).
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) && e.StatusCode != 0 {
		return e.StatusCode
	}

	rerr := &api.ResponseError{}
	if errors.As(err, &rerr) {
		return rerr.StatusCode
	}

	return 0
}
