package remote

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/pentesthub/hubvault/internal/models"
)

// MockStore provides an in-memory Store implementation for testing.
// Revision tags are monotonic counters per resource.
type MockStore struct {
	mu sync.Mutex

	// Resources per locator/path
	resources map[string]map[string]*Resource
	revisions int

	// Error injection
	ReadErrors  map[string]error // keyed by path
	WriteError  error
	ProbeError  error
	CreateError error

	// Request tracking
	ReadPaths  []string
	WritePaths []string

	nextLocator int
}

// NewMockStore creates an empty mock remote store.
func NewMockStore() *MockStore {
	return &MockStore{
		resources:  make(map[string]map[string]*Resource),
		ReadErrors: make(map[string]error),
	}
}

// Seed places a resource directly into the mock.
func (m *MockStore) Seed(locator, path string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seedLocked(locator, path, content)
}

func (m *MockStore) seedLocked(locator, path string, content []byte) {
	if m.resources[locator] == nil {
		m.resources[locator] = make(map[string]*Resource)
	}
	m.revisions++
	c := make([]byte, len(content))
	copy(c, content)
	m.resources[locator][path] = &Resource{
		Content:     c,
		RevisionTag: "rev-" + strconv.Itoa(m.revisions),
	}
}

// Content returns the stored bytes for a resource, or nil.
func (m *MockStore) Content(locator, path string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if res, ok := m.resources[locator][path]; ok {
		return res.Content
	}
	return nil
}

// Read returns a seeded resource.
func (m *MockStore) Read(ctx context.Context, locator, path string) (*Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ReadPaths = append(m.ReadPaths, path)

	if err, ok := m.ReadErrors[path]; ok {
		return nil, err
	}

	res, ok := m.resources[locator][path]
	if !ok {
		return nil, models.ErrRemoteNotFound
	}

	c := make([]byte, len(res.Content))
	copy(c, res.Content)
	return &Resource{Content: c, RevisionTag: res.RevisionTag}, nil
}

// Write stores a resource, honoring conditional revisions.
func (m *MockStore) Write(ctx context.Context, locator, path string, content []byte, expectedRevision string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.WritePaths = append(m.WritePaths, path)

	if m.WriteError != nil {
		return "", m.WriteError
	}

	if expectedRevision != "" {
		existing, ok := m.resources[locator][path]
		if !ok || existing.RevisionTag != expectedRevision {
			return "", models.ErrRemoteConflict
		}
	}

	m.seedLocked(locator, path, content)
	return m.resources[locator][path].RevisionTag, nil
}

// Probe reports resource existence.
func (m *MockStore) Probe(ctx context.Context, locator, path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ProbeError != nil {
		return false, m.ProbeError
	}

	_, ok := m.resources[locator][path]
	return ok, nil
}

// Create provisions a fresh locator.
func (m *MockStore) Create(ctx context.Context, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateError != nil {
		return "", m.CreateError
	}

	m.nextLocator++
	locator := fmt.Sprintf("mock-%s-%d", name, m.nextLocator)
	m.resources[locator] = make(map[string]*Resource)
	return locator, nil
}
