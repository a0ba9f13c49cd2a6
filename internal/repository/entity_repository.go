// Package repository binds an entity descriptor to the compiler and owns
// the per-entity state that outlives a single request: the memoized
// default filter.
package repository

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/satishbabariya/prisma-filter/internal/core/query/compiler"
	"github.com/satishbabariya/prisma-filter/internal/core/query/domain"
	"github.com/satishbabariya/prisma-filter/internal/core/schema"
)

// ErrBadDefaultFilter is returned when an entity's configured default
// filter does not parse or compile. It is a server-side misconfiguration;
// the parser's FilterError is flattened into the message so callers never
// see it as their own mistake.
var ErrBadDefaultFilter = errors.New("invalid default filter")

// FilterParser decodes raw filter documents.
type FilterParser interface {
	Parse(data []byte) (*domain.FilterSpec, []domain.DroppedClause, error)
}

// resolvedDefault is the memo value. A nil spec means the entity has no
// default filter; a nil *resolvedDefault means not yet resolved.
type resolvedDefault struct {
	spec    *domain.FilterSpec
	dropped []domain.DroppedClause
}

// EntityRepository compiles filters for one entity.
type EntityRepository struct {
	entity   *schema.Entity
	parser   FilterParser
	compiler *compiler.Compiler

	def atomic.Pointer[resolvedDefault]
}

// NewEntityRepository creates a repository for entity.
func NewEntityRepository(entity *schema.Entity, parser FilterParser, c *compiler.Compiler) *EntityRepository {
	return &EntityRepository{
		entity:   entity,
		parser:   parser,
		compiler: c,
	}
}

// Entity returns the repository's entity descriptor.
func (r *EntityRepository) Entity() *schema.Entity {
	return r.entity
}

// DefaultFilter returns the entity's default filter, parsing it on first
// use. Concurrent first calls may each parse; the results are identical
// and the first stored wins. Parse failures are not memoized.
func (r *EntityRepository) DefaultFilter() (*domain.FilterSpec, error) {
	d, err := r.resolveDefault()
	if err != nil {
		return nil, err
	}
	return d.spec, nil
}

func (r *EntityRepository) resolveDefault() (*resolvedDefault, error) {
	if d := r.def.Load(); d != nil {
		return d, nil
	}

	d := &resolvedDefault{}
	if raw := r.entity.DefaultFilter; raw != "" {
		spec, dropped, err := r.parser.Parse([]byte(raw))
		if err != nil {
			return nil, r.badDefault(err)
		}
		d.spec = spec
		for _, dc := range dropped {
			dc.Entity = r.entity.Name
			d.dropped = append(d.dropped, dc)
		}
	}

	if !r.def.CompareAndSwap(nil, d) {
		return r.def.Load(), nil
	}
	return d, nil
}

// ValidateDefault resolves the default filter and compiles it on its own,
// so a broken catalog fails at startup instead of on every request.
func (r *EntityRepository) ValidateDefault() error {
	d, err := r.resolveDefault()
	if err != nil {
		return err
	}
	if d.spec == nil {
		return nil
	}
	if _, err := r.compiler.Compile(r.entity, d.spec); err != nil {
		return r.badDefault(err)
	}
	return nil
}

func (r *EntityRepository) badDefault(err error) error {
	return fmt.Errorf("%w for %s: %v", ErrBadDefaultFilter, r.entity.Name, err)
}

// Compile merges the default filter into spec (unless skipDefault) and
// compiles the result.
func (r *EntityRepository) Compile(spec *domain.FilterSpec, skipDefault bool) (*domain.QueryOptions, error) {
	var dropped []domain.DroppedClause
	if !skipDefault {
		d, err := r.resolveDefault()
		if err != nil {
			return nil, err
		}
		spec = compiler.MergeDefault(d.spec, spec, false)
		dropped = d.dropped
	}

	opts, err := r.compiler.Compile(r.entity, spec)
	if err != nil {
		return nil, err
	}
	if len(dropped) > 0 {
		opts.Dropped = append(append([]domain.DroppedClause{}, dropped...), opts.Dropped...)
	}
	return opts, nil
}
