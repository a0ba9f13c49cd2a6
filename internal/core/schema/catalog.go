package schema

import (
	"fmt"
	"sort"
	"sync"
)

// Catalog stores entity descriptors and resolves relation targets so the
// compiler can thread the related entity's descriptor into include scopes.
type Catalog struct {
	mu       sync.RWMutex
	entities map[string]*Entity
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		entities: make(map[string]*Entity),
	}
}

// Register validates and adds entities. Registering a name twice replaces
// the earlier descriptor. Call Link once every entity is registered.
func (c *Catalog) Register(entities ...*Entity) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range entities {
		if e.Table == "" {
			e.Table = e.Name
		}
		if e.Columns == nil {
			e.Columns = make(map[string]Column)
		}
		if e.Relations == nil {
			e.Relations = make(map[string]*Relation)
		}
		if err := e.Validate(); err != nil {
			return err
		}
		c.entities[e.Name] = e
	}
	return nil
}

// Link resolves every relation's target descriptor.
func (c *Catalog) Link() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range c.entities {
		for _, r := range e.Relations {
			target, ok := c.entities[r.Target]
			if !ok {
				return fmt.Errorf("entity %s: relation %s targets unknown entity %s", e.Name, r.Name, r.Target)
			}
			r.target = target
		}
	}
	return nil
}

// Entity retrieves an entity by name.
func (c *Catalog) Entity(name string) (*Entity, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entities[name]
	if !ok {
		return nil, fmt.Errorf("entity %s not found", name)
	}
	return e, nil
}

// Names returns the registered entity names, sorted.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.entities))
	for name := range c.entities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
