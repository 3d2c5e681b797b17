package offline

import (
	"context"
	"net/http"
	"sort"
	"sync"

	"github.com/samirrijal/transporteba/internal/core/domain"
)

// MemoryStorage is an in-process ports.CacheStorage.
type MemoryStorage struct {
	mu     sync.RWMutex
	caches map[string]map[string]domain.CacheEntry
}

// NewMemoryStorage creates an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{caches: make(map[string]map[string]domain.CacheEntry)}
}

func (s *MemoryStorage) Put(ctx context.Context, namespace string, entry *domain.CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.caches[namespace]
	if !ok {
		ns = make(map[string]domain.CacheEntry)
		s.caches[namespace] = ns
	}
	ns[entry.URL] = cloneEntry(*entry)
	return nil
}

func (s *MemoryStorage) Match(ctx context.Context, namespace, url string) (*domain.CacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.caches[namespace][url]
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	out := cloneEntry(e)
	return &out, nil
}

func (s *MemoryStorage) Namespaces(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.caches))
	for name := range s.caches {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryStorage) DeleteNamespace(ctx context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.caches, namespace)
	return nil
}

func cloneEntry(e domain.CacheEntry) domain.CacheEntry {
	body := make([]byte, len(e.Body))
	copy(body, e.Body)
	e.Body = body
	if e.Header != nil {
		e.Header = e.Header.Clone()
	} else {
		e.Header = http.Header{}
	}
	return e
}
