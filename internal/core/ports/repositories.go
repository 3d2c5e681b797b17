package ports

import (
	"context"

	"github.com/samirrijal/transporteba/internal/core/domain"
)

// CacheStorage holds named caches of HTTP responses keyed by request URL.
// Operations are atomic per key; concurrent writers to one key race and the
// last one wins.
type CacheStorage interface {
	Put(ctx context.Context, namespace string, entry *domain.CacheEntry) error
	// Match returns domain.ErrCacheMiss when nothing is stored under url.
	Match(ctx context.Context, namespace, url string) (*domain.CacheEntry, error)
	Namespaces(ctx context.Context) ([]string, error)
	DeleteNamespace(ctx context.Context, namespace string) error
}

// PreferenceStore persists the user's layer toggles.
type PreferenceStore interface {
	Load(ctx context.Context) (domain.LayerPreferences, error)
	Save(ctx context.Context, prefs domain.LayerPreferences) error
}
