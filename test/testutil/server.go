package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// blob is one stored resource with its revision counter.
type blob struct {
	content  []byte
	revision string
}

// TestServer is an in-memory contents API: POST / creates a container,
// GET/PUT/HEAD /{locator}/{path} manage resources with ETag and
// If-Match revision handling. It speaks the same dialect the HTTP
// remote store expects from a production server.
type TestServer struct {
	*httptest.Server

	mu          sync.RWMutex
	containers  map[string]map[string]*blob
	revisions   int
	nextLocator int

	failWrites bool

	// RequireToken rejects requests without this bearer token when set.
	RequireToken string
}

// SetFailWrites makes every PUT return 503 while enabled.
func (ts *TestServer) SetFailWrites(fail bool) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.failWrites = fail
}

// NewTestServer starts a test remote.
func NewTestServer() *TestServer {
	ts := &TestServer{containers: make(map[string]map[string]*blob)}
	ts.Server = httptest.NewServer(http.HandlerFunc(ts.handle))
	return ts
}

// Locators lists the created container locators.
func (ts *TestServer) Locators() []string {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	out := make([]string, 0, len(ts.containers))
	for locator := range ts.containers {
		out = append(out, locator)
	}
	return out
}

// Resource returns the stored bytes for a resource, or nil.
func (ts *TestServer) Resource(locator, path string) []byte {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	if b, ok := ts.containers[locator][path]; ok {
		return b.content
	}
	return nil
}

// Seed places a resource directly, creating the container if needed.
func (ts *TestServer) Seed(locator, path string, content []byte) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.containers[locator] == nil {
		ts.containers[locator] = make(map[string]*blob)
	}
	ts.revisions++
	ts.containers[locator][path] = &blob{
		content:  append([]byte(nil), content...),
		revision: fmt.Sprintf(`"rev-%d"`, ts.revisions),
	}
}

func (ts *TestServer) handle(w http.ResponseWriter, r *http.Request) {
	if ts.RequireToken != "" &&
		r.Header.Get("Authorization") != "Bearer "+ts.RequireToken {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/" {
		ts.handleCreate(w)
		return
	}

	locator, path, ok := splitResourcePath(r.URL.Path)
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		ts.handleGet(w, locator, path)
	case http.MethodPut:
		ts.handlePut(w, r, locator, path)
	case http.MethodHead:
		ts.handleHead(w, locator, path)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (ts *TestServer) handleCreate(w http.ResponseWriter) {
	ts.mu.Lock()
	ts.nextLocator++
	locator := fmt.Sprintf("container-%d", ts.nextLocator)
	ts.containers[locator] = make(map[string]*blob)
	ts.mu.Unlock()

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"id": locator})
}

func (ts *TestServer) handleGet(w http.ResponseWriter, locator, path string) {
	ts.mu.RLock()
	b, ok := ts.containers[locator][path]
	ts.mu.RUnlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("ETag", b.revision)
	w.Write(b.content)
}

func (ts *TestServer) handlePut(w http.ResponseWriter, r *http.Request, locator, path string) {
	ts.mu.RLock()
	fail := ts.failWrites
	ts.mu.RUnlock()
	if fail {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	content, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.containers[locator] == nil {
		ts.containers[locator] = make(map[string]*blob)
	}
	if expected := r.Header.Get("If-Match"); expected != "" {
		existing, ok := ts.containers[locator][path]
		if !ok || existing.revision != expected {
			w.WriteHeader(http.StatusPreconditionFailed)
			return
		}
	}

	ts.revisions++
	revision := fmt.Sprintf(`"rev-%d"`, ts.revisions)
	ts.containers[locator][path] = &blob{content: content, revision: revision}

	w.Header().Set("ETag", revision)
	w.WriteHeader(http.StatusOK)
}

func (ts *TestServer) handleHead(w http.ResponseWriter, locator, path string) {
	ts.mu.RLock()
	_, ok := ts.containers[locator][path]
	ts.mu.RUnlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func splitResourcePath(urlPath string) (locator, path string, ok bool) {
	trimmed := strings.TrimPrefix(urlPath, "/")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
