package valkey

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/valkey-io/valkey-go"

	"github.com/samirrijal/transporteba/internal/core/domain"
)

const (
	keyPrefix     = "transporteba:offline:"
	namespacesKey = keyPrefix + "namespaces"
)

// Cache implements ports.CacheStorage using Valkey (Redis-compatible). Each
// namespace is a hash of request URL to the JSON-encoded entry.
type Cache struct {
	client valkey.Client
}

// New creates a new Valkey cache client.
func New(addr string) (*Cache, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("valkey connect: %w", err)
	}
	return &Cache{client: client}, nil
}

// NewFromClient wraps an existing client.
func NewFromClient(client valkey.Client) *Cache {
	return &Cache{client: client}
}

func namespaceKey(ns string) string {
	return keyPrefix + "ns:" + ns
}

// Put stores entry under its URL, replacing any previous entry.
func (c *Cache) Put(ctx context.Context, namespace string, entry *domain.CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	results := c.client.DoMulti(ctx,
		c.client.B().Hset().Key(namespaceKey(namespace)).FieldValue().FieldValue(entry.URL, string(data)).Build(),
		c.client.B().Sadd().Key(namespacesKey).Member(namespace).Build(),
	)
	for _, r := range results {
		if err := r.Error(); err != nil {
			return err
		}
	}
	return nil
}

// Match looks up url in namespace.
func (c *Cache) Match(ctx context.Context, namespace, url string) (*domain.CacheEntry, error) {
	cmd := c.client.Do(ctx, c.client.B().Hget().Key(namespaceKey(namespace)).Field(url).Build())
	if err := cmd.Error(); err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, domain.ErrCacheMiss
		}
		return nil, err
	}
	b, err := cmd.AsBytes()
	if err != nil {
		return nil, err
	}
	var entry domain.CacheEntry
	if err := json.Unmarshal(b, &entry); err != nil {
		return nil, fmt.Errorf("decode cache entry: %w", err)
	}
	return &entry, nil
}

// Namespaces lists every namespace that has been written to.
func (c *Cache) Namespaces(ctx context.Context) ([]string, error) {
	return c.client.Do(ctx, c.client.B().Smembers().Key(namespacesKey).Build()).AsStrSlice()
}

// DeleteNamespace drops a namespace and all of its entries.
func (c *Cache) DeleteNamespace(ctx context.Context, namespace string) error {
	results := c.client.DoMulti(ctx,
		c.client.B().Del().Key(namespaceKey(namespace)).Build(),
		c.client.B().Srem().Key(namespacesKey).Member(namespace).Build(),
	)
	for _, r := range results {
		if err := r.Error(); err != nil {
			return err
		}
	}
	return nil
}

// Ping checks connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Do(ctx, c.client.B().Ping().Build()).Error()
}

// Close releases the client.
func (c *Cache) Close() {
	c.client.Close()
}
