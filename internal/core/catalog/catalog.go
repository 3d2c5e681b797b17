// Package catalog maps public proxy endpoints onto the upstream transit API.
package catalog

import (
	_ "embed"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/samirrijal/transporteba/internal/core/domain"
)

//go:embed endpoints.yaml
var defaultYAML []byte

// Catalog is an immutable, validated endpoint table. It is safe for
// concurrent use.
type Catalog struct {
	byKey map[string]domain.Endpoint
	keys  []string
}

type document struct {
	Endpoints []domain.Endpoint `yaml:"endpoints" validate:"required,min=1,dive"`
}

// Default returns the catalog shipped with the binary.
func Default() *Catalog {
	c, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded endpoint catalog: %v", err))
	}
	return c
}

// Parse decodes and validates a YAML endpoint table.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := validator.New().Struct(doc); err != nil {
		return nil, fmt.Errorf("validate catalog: %w", err)
	}

	c := &Catalog{byKey: make(map[string]domain.Endpoint, len(doc.Endpoints))}
	for _, e := range doc.Endpoints {
		if _, dup := c.byKey[e.Key()]; dup {
			return nil, fmt.Errorf("duplicate endpoint %s", e.Key())
		}
		c.byKey[e.Key()] = e
		c.keys = append(c.keys, e.Key())
	}
	sort.Strings(c.keys)
	return c, nil
}

// Lookup finds an endpoint by mode and resource.
func (c *Catalog) Lookup(mode, resource string) (domain.Endpoint, error) {
	return c.Get(mode + "/" + resource)
}

// Get finds an endpoint by its catalog key.
func (c *Catalog) Get(key string) (domain.Endpoint, error) {
	e, ok := c.byKey[key]
	if !ok {
		return domain.Endpoint{}, fmt.Errorf("%w: %s", domain.ErrUnknownEndpoint, key)
	}
	return e, nil
}

// All returns every endpoint ordered by key.
func (c *Catalog) All() []domain.Endpoint {
	out := make([]domain.Endpoint, 0, len(c.keys))
	for _, k := range c.keys {
		out = append(out, c.byKey[k])
	}
	return out
}

// Paths returns the public path of every endpoint.
func (c *Catalog) Paths() []string {
	out := make([]string, 0, len(c.keys))
	for _, e := range c.All() {
		out = append(out, e.Path())
	}
	return out
}
