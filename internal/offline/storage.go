package offline

import (
	"net/http"
	"sync"
)

// CachedResponse is a stored copy of an upstream response.
type CachedResponse struct {
	Status int
	Header http.Header
	Body   []byte
}

// Storage holds named cache generations. Each generation maps request
// paths to cached responses. Writes to the same key are last-write-wins.
type Storage struct {
	mu          sync.RWMutex
	generations map[string]map[string]*CachedResponse
}

func NewStorage() *Storage {
	return &Storage{generations: make(map[string]map[string]*CachedResponse)}
}

// Commit installs a fully populated generation in one step.
func (s *Storage) Commit(name string, entries map[string]*CachedResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generations[name] = entries
}

// Put stores a single response in the named generation, creating it if
// needed.
func (s *Storage) Put(name, key string, resp *CachedResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gen, ok := s.generations[name]
	if !ok {
		gen = make(map[string]*CachedResponse)
		s.generations[name] = gen
	}
	gen[key] = resp
}

// Match looks up a response by exact key in the named generation.
func (s *Storage) Match(name, key string) (*CachedResponse, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	gen, ok := s.generations[name]
	if !ok {
		return nil, false
	}
	resp, ok := gen[key]
	return resp, ok
}

// Names returns the names of all existing generations.
func (s *Storage) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.generations))
	for name := range s.generations {
		names = append(names, name)
	}
	return names
}

// Delete removes a generation and all its entries.
func (s *Storage) Delete(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.generations, name)
}

// Has reports whether the named generation exists.
func (s *Storage) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.generations[name]
	return ok
}
