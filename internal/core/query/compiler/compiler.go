// Package compiler turns a domain.FilterSpec into domain.QueryOptions
// against an explicit entity descriptor.
//
// Compilation is pure: the compiler holds only read-only configuration and
// every call allocates its own state, so one Compiler can serve any number
// of goroutines.
package compiler

import (
	"fmt"

	"github.com/satishbabariya/prisma-filter/internal/core/query/domain"
	"github.com/satishbabariya/prisma-filter/internal/core/schema"
)

// Options configures a Compiler.
type Options struct {
	// MaxLimit caps explicit limits. Zero means no cap.
	MaxLimit int
}

// Compiler compiles filter specs.
type Compiler struct {
	maxLimit int
}

// New creates a new compiler.
func New(opts Options) *Compiler {
	return &Compiler{maxLimit: opts.MaxLimit}
}

// compilation carries the per-call state shared across recursion.
type compilation struct {
	compiler *Compiler
	dropped  []domain.DroppedClause
}

func (cc *compilation) drop(entity *schema.Entity, key, op string, reason domain.DropReason) {
	cc.dropped = append(cc.dropped, domain.DroppedClause{
		Entity:   entity.Name,
		Key:      key,
		Operator: op,
		Reason:   reason,
	})
}

// Compile compiles spec against entity. Fatal problems (invalid JSON
// paths, undeclared relations, negative pagination) return a
// *domain.FilterError and no options. Fragments the forgiving policy
// discards, including those inside include scopes, are listed in the
// result's Dropped field.
func (c *Compiler) Compile(entity *schema.Entity, spec *domain.FilterSpec) (*domain.QueryOptions, error) {
	if entity == nil {
		return nil, fmt.Errorf("compile: entity descriptor is required")
	}
	cc := &compilation{compiler: c}
	opts, err := cc.options(entity, spec)
	if err != nil {
		return nil, err
	}
	opts.Dropped = cc.dropped
	return opts, nil
}

func (cc *compilation) options(entity *schema.Entity, spec *domain.FilterSpec) (*domain.QueryOptions, error) {
	opts := &domain.QueryOptions{}
	if spec == nil {
		return opts, nil
	}

	var err error
	if opts.Where, err = cc.where(entity, spec.Where); err != nil {
		return nil, err
	}
	if opts.OrderBy, err = cc.order(entity, spec.Order); err != nil {
		return nil, err
	}
	opts.Columns = cc.fields(entity, spec.Fields)
	if opts.Limit, err = cc.pagination("limit", spec.Limit); err != nil {
		return nil, err
	}
	if opts.Offset, err = cc.pagination("offset", spec.Offset); err != nil {
		return nil, err
	}
	if opts.With, err = cc.include(entity, spec.Include); err != nil {
		return nil, err
	}
	return opts, nil
}

func (cc *compilation) pagination(name string, v *int) (*int, error) {
	if v == nil {
		return nil, nil
	}
	n := *v
	if n < 0 {
		return nil, domain.NewFilterError(domain.KindMalformedOperand, name,
			fmt.Sprintf("%s must not be negative, got %d", name, n))
	}
	if name == "limit" && cc.compiler.maxLimit > 0 && n > cc.compiler.maxLimit {
		n = cc.compiler.maxLimit
	}
	return &n, nil
}
