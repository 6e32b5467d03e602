package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SmileSnow819/natours/pkg/api"
	"github.com/SmileSnow819/natours/pkg/credstore"
	"github.com/SmileSnow819/natours/pkg/kvs"
	"github.com/SmileSnow819/natours/pkg/logging"
)

const annJSON = `{"_id":"1","name":"Ann","email":"ann@x.com","role":"user"}`

// fakeAPI is a scriptable natours backend keyed by "METHOD /path".
type fakeAPI struct {
	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	calls    map[string]int
	srv      *httptest.Server
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{
		handlers: make(map[string]http.HandlerFunc),
		calls:    make(map[string]int),
	}
	f.srv = httptest.NewServer(f)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	route := r.Method + " " + strings.TrimPrefix(r.URL.Path, "/api/v1")

	f.mu.Lock()
	f.calls[route]++
	h := f.handlers[route]
	f.mu.Unlock()

	if h == nil {
		respond(w, http.StatusNotFound, `{"status":"fail","message":"Can't find `+route+`"}`)
		return
	}
	h(w, r)
}

func (f *fakeAPI) handle(route string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[route] = h
}

func (f *fakeAPI) reply(route string, status int, body string) {
	f.handle(route, func(w http.ResponseWriter, r *http.Request) {
		respond(w, status, body)
	})
}

func (f *fakeAPI) count(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[route]
}

func (f *fakeAPI) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

// gate makes route block until the returned release function is called.
// The reached channel receives once per request that arrives.
func (f *fakeAPI) gate(route string, status int, body string) (reached <-chan struct{}, release func()) {
	arrived := make(chan struct{}, 8)
	open := make(chan struct{})
	var once sync.Once
	f.handle(route, func(w http.ResponseWriter, r *http.Request) {
		arrived <- struct{}{}
		select {
		case <-open:
		case <-r.Context().Done():
			return
		}
		respond(w, status, body)
	})
	return arrived, func() { once.Do(func() { close(open) }) }
}

func respond(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func authBody(token, userJSON string) string {
	return `{"status":"success","token":"` + token + `","data":{"user":` + userJSON + `}}`
}

func meBody(userJSON string) string {
	return `{"status":"success","data":{"document":` + userJSON + `}}`
}

type fixture struct {
	api     *fakeAPI
	client  *api.Client
	kv      kvs.Store
	store   credstore.Store
	manager *Manager
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{api: newFakeAPI(t)}

	kv, err := kvs.NewMemoryStore(kvs.MemoryConfig{})
	require.NoError(t, err)
	f.kv = kv
	f.store = credstore.NewKVSStore(kv, 0)
	t.Cleanup(func() { _ = f.store.Close() })

	logger := logging.NewTestLogger()
	f.client = api.NewClient(api.Config{BaseURL: f.api.srv.URL + "/api/v1"}, logger)
	f.manager = NewManager(f.client, f.store, logger, opts...)
	f.client.SetUnauthorizedHandler(f.manager.HandleUnauthorized)
	t.Cleanup(f.manager.Wait)
	return f
}

func (f *fixture) seed(t *testing.T, token, userJSON string) {
	t.Helper()
	creds := credstore.Credentials{Token: token}
	if userJSON != "" {
		creds.User = []byte(userJSON)
	}
	require.NoError(t, f.store.Set(context.Background(), creds))
}

func (f *fixture) stored(t *testing.T) credstore.Credentials {
	t.Helper()
	creds, err := f.store.Get(context.Background())
	require.NoError(t, err)
	return creds
}

// assertConsistent checks the session invariants and that storage holds
// the in-memory token.
func (f *fixture) assertConsistent(t *testing.T) {
	t.Helper()
	s := f.manager.Current()
	assertInvariants(t, s)
	assert.Equal(t, s.Token, f.stored(t).Token, "storage must hold the in-memory token")
}

func assertInvariants(t *testing.T, s Session) {
	t.Helper()
	assert.Equal(t, s.User != nil, s.Status == Authenticated, "user present iff authenticated: %+v", s)
	if s.Status != Unauthenticated {
		assert.NotEmpty(t, s.Token, "token required in status %s", s.Status)
	} else {
		assert.Empty(t, s.Token)
	}
}

// recorder collects change notifications.
type recorder struct {
	mu       sync.Mutex
	sessions []Session
}

func (r *recorder) OnSessionChange(s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = append(r.sessions, s)
}

func (r *recorder) all() []Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Session(nil), r.sessions...)
}

func (r *recorder) statuses() []Status {
	var out []Status
	for _, s := range r.all() {
		out = append(out, s.Status)
	}
	return out
}

func waitReached(t *testing.T, reached <-chan struct{}) {
	t.Helper()
	select {
	case <-reached:
	case <-time.After(5 * time.Second):
		t.Fatal("request never reached the backend")
	}
}

func decode(t *testing.T, data []byte) User {
	t.Helper()
	var u User
	require.NoError(t, json.Unmarshal(data, &u))
	return u
}
