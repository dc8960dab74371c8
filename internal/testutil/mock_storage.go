// Package testutil provides stores and fixtures shared by package tests.
package testutil

import (
	"sync"

	"github.com/vkb-graph/backend/internal/graph"
	"github.com/vkb-graph/backend/internal/storage"
)

// MockStore implements storage.Store over a fixed set of graphs keyed by source.
type MockStore struct {
	mu      sync.RWMutex
	graphs  map[string]*graph.Graph
	current string
	loaded  bool
}

var _ storage.Store = (*MockStore)(nil)

// NewMockStore creates an empty store; Current fails until a graph is loaded.
func NewMockStore() *MockStore {
	return &MockStore{graphs: make(map[string]*graph.Graph)}
}

// NewLoadedStore creates a store already holding g under source.
func NewLoadedStore(source string, g *graph.Graph) *MockStore {
	m := NewMockStore()
	m.Put(source, g)
	m.current = source
	m.loaded = true
	return m
}

// Put registers g as the graph returned for source.
func (m *MockStore) Put(source string, g *graph.Graph) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.graphs[source] = g
}

// Get switches to source. Unknown sources return an empty graph.
func (m *MockStore) Get(source string) (*graph.Graph, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.graphs[source]
	if !ok {
		g = graph.New()
		m.graphs[source] = g
	}
	m.current = source
	m.loaded = true
	return g, nil
}

// Current returns the graph of the last requested source.
func (m *MockStore) Current() (*graph.Graph, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.loaded {
		return nil, storage.ErrStoreUnavailable
	}
	return m.graphs[m.current], nil
}

// Source returns the last requested source.
func (m *MockStore) Source() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}
