// Package fakevault is an in-memory stand-in for the parts of the Vault HTTP
// API the client uses: KV v2 data and metadata reads, and logins to the
// approle, userpass and kubernetes auth methods.
package fakevault

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// Request is a request the fake server received.
type Request struct {
	Header    http.Header
	Body      map[string]any
	Method    string
	Path      string // without the /v1/ prefix
	Token     string
	Namespace string
}

type version struct {
	data    map[string]any
	created time.Time
	deleted time.Time
}

type login struct {
	want   map[string]string
	token  string
	status int
}

type rawResponse struct {
	body   string
	status int
}

// Vault is a fake Vault server. The zero value is not usable, use New.
type Vault struct {
	t   testing.TB
	srv *httptest.Server

	secrets  map[string]map[string][]*version // mount -> path -> versions
	logins   map[string]login
	raw      map[string]rawResponse
	token    string
	requests []Request

	mu sync.Mutex
}

//nolint:gochecknoglobals
var epoch = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

// New starts a fake Vault server, closed when the test ends.
func New(t testing.TB) *Vault {
	t.Helper()

	v := &Vault{
		t:       t,
		secrets: map[string]map[string][]*version{},
		logins:  map[string]login{},
		raw:     map[string]rawResponse{},
	}

	v.srv = httptest.NewServer(http.HandlerFunc(v.handle))
	t.Cleanup(v.srv.Close)

	return v
}

// URL returns the server's address, e.g. "http://127.0.0.1:12345".
func (v *Vault) URL() string {
	return v.srv.URL
}

// Close shuts the server down, so subsequent requests fail to connect.
func (v *Vault) Close() {
	v.srv.Close()
}

// RequireToken makes every KV request without the given X-Vault-Token fail
// with 403.
func (v *Vault) RequireToken(token string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.token = token
}

// Put writes data as a new version of the secret at mount/p, and returns the
// new version number.
func (v *Vault) Put(mount, p string, data map[string]any) int {
	v.mu.Lock()
	defer v.mu.Unlock()

	mount = strings.Trim(mount, "/")
	p = strings.Trim(p, "/")

	if v.secrets[mount] == nil {
		v.secrets[mount] = map[string][]*version{}
	}

	n := len(v.secrets[mount][p]) + 1
	v.secrets[mount][p] = append(v.secrets[mount][p], &version{
		data:    data,
		created: epoch.Add(time.Duration(n) * time.Minute),
	})

	return n
}

// Delete soft-deletes the current version of the secret at mount/p, as
// `vault kv delete` does.
func (v *Vault) Delete(mount, p string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	versions := v.secrets[strings.Trim(mount, "/")][strings.Trim(p, "/")]
	if len(versions) == 0 {
		v.t.Fatalf("no secret at %s/%s to delete", mount, p)
	}

	latest := versions[len(versions)-1]
	latest.deleted = latest.created.Add(time.Hour)
}

// AllowLogin makes a login at p (e.g. "auth/approle/login") succeed with
// token, when every key in want matches the request body.
func (v *Vault) AllowLogin(p, token string, want map[string]string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.logins[strings.Trim(p, "/")] = login{token: token, want: want}
}

// DenyLogin makes a login at p fail with the given status.
func (v *Vault) DenyLogin(p string, status int) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.logins[strings.Trim(p, "/")] = login{status: status}
}

// Respond makes requests to p (without the /v1/ prefix) return status and
// body verbatim, taking precedence over everything else.
func (v *Vault) Respond(p string, status int, body string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.raw[strings.Trim(p, "/")] = rawResponse{status: status, body: body}
}

// Requests returns the requests received so far.
func (v *Vault) Requests() []Request {
	v.mu.Lock()
	defer v.mu.Unlock()

	return append([]Request(nil), v.requests...)
}

// Count returns the number of requests received for p (without the /v1/
// prefix), or for any path when p is "".
func (v *Vault) Count(p string) int {
	v.mu.Lock()
	defer v.mu.Unlock()

	if p == "" {
		return len(v.requests)
	}

	n := 0

	for _, r := range v.requests {
		if r.Path == strings.Trim(p, "/") {
			n++
		}
	}

	return n
}

func (v *Vault) handle(w http.ResponseWriter, r *http.Request) {
	v.mu.Lock()
	defer v.mu.Unlock()

	req := Request{
		Method:    r.Method,
		Path:      strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/"), "/"),
		Token:     r.Header.Get("X-Vault-Token"),
		Namespace: r.Header.Get("X-Vault-Namespace"),
		Header:    r.Header.Clone(),
	}

	if r.Body != nil {
		b, _ := io.ReadAll(r.Body)
		if len(b) > 0 {
			_ = json.Unmarshal(b, &req.Body)
		}
	}

	v.requests = append(v.requests, req)

	if raw, ok := v.raw[req.Path]; ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(raw.status)
		_, _ = io.WriteString(w, raw.body)

		return
	}

	switch {
	case strings.HasPrefix(req.Path, "auth/"):
		v.handleLogin(w, req)
	case r.Method == http.MethodGet:
		v.handleKV(w, req)
	default:
		writeErrors(w, http.StatusMethodNotAllowed, "unsupported operation")
	}
}

func (v *Vault) handleLogin(w http.ResponseWriter, req Request) {
	if req.Method != http.MethodPut && req.Method != http.MethodPost {
		writeErrors(w, http.StatusMethodNotAllowed, "unsupported operation")

		return
	}

	l, ok := v.logins[req.Path]
	if !ok {
		writeErrors(w, http.StatusBadRequest, "invalid credentials")

		return
	}

	if l.status != 0 {
		writeErrors(w, l.status, "permission denied")

		return
	}

	for k, want := range l.want {
		if got, _ := req.Body[k].(string); got != want {
			writeErrors(w, http.StatusBadRequest, fmt.Sprintf("invalid %s", k))

			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"request_id":     "login",
		"lease_duration": 0,
		"renewable":      false,
		"data":           nil,
		"auth": map[string]any{
			"client_token":   l.token,
			"accessor":       "accessor-" + l.token,
			"policies":       []string{"default"},
			"lease_duration": 3600,
			"renewable":      true,
		},
	})
}

func (v *Vault) handleKV(w http.ResponseWriter, req Request) {
	if v.token != "" && req.Token != v.token {
		writeErrors(w, http.StatusForbidden, "permission denied")

		return
	}

	mount, segment, p, ok := v.split(req.Path)
	if !ok {
		writeErrors(w, http.StatusNotFound)

		return
	}

	versions := v.secrets[mount][p]
	if len(versions) == 0 {
		writeErrors(w, http.StatusNotFound)

		return
	}

	if segment == "metadata" {
		writeJSON(w, http.StatusOK, map[string]any{"data": metadata(versions)})

		return
	}

	n := len(versions)
	latest := versions[n-1]

	md := versionMetadata(latest)
	md["version"] = n

	if !latest.deleted.IsZero() {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"data": map[string]any{"data": nil, "metadata": md},
		})

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"request_id":     "read",
		"lease_id":       "",
		"lease_duration": 0,
		"renewable":      false,
		"data":           map[string]any{"data": latest.data, "metadata": md},
	})
}

// split finds the mount, KV v2 segment and secret path in p, preferring the
// longest matching mount.
func (v *Vault) split(p string) (mount, segment, rest string, ok bool) {
	mounts := make([]string, 0, len(v.secrets))
	for m := range v.secrets {
		mounts = append(mounts, m)
	}

	sort.Slice(mounts, func(i, j int) bool { return len(mounts[i]) > len(mounts[j]) })

	for _, m := range mounts {
		for _, seg := range []string{"data", "metadata"} {
			prefix := m + "/" + seg + "/"
			if strings.HasPrefix(p, prefix) {
				return m, seg, strings.TrimPrefix(p, prefix), true
			}
		}
	}

	return "", "", "", false
}

func metadata(versions []*version) map[string]any {
	vs := map[string]any{}
	for i, ver := range versions {
		vs[strconv.Itoa(i+1)] = versionMetadata(ver)
	}

	latest := versions[len(versions)-1]

	return map[string]any{
		"cas_required":         false,
		"created_time":         versions[0].created.Format(time.RFC3339Nano),
		"current_version":      len(versions),
		"custom_metadata":      nil,
		"delete_version_after": "0s",
		"max_versions":         0,
		"oldest_version":       0,
		"updated_time":         latest.created.Format(time.RFC3339Nano),
		"versions":             vs,
	}
}

func versionMetadata(ver *version) map[string]any {
	deleted := ""
	if !ver.deleted.IsZero() {
		deleted = ver.deleted.Format(time.RFC3339Nano)
	}

	return map[string]any{
		"created_time":    ver.created.Format(time.RFC3339Nano),
		"custom_metadata": nil,
		"deletion_time":   deleted,
		"destroyed":       false,
	}
}

func writeErrors(w http.ResponseWriter, status int, errs ...string) {
	if errs == nil {
		errs = []string{}
	}

	writeJSON(w, status, map[string]any{"errors": errs})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	_ = enc.Encode(body)
}
