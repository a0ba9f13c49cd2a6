package compiler

import (
	"github.com/satishbabariya/prisma-filter/internal/core/query/domain"
)

// MergeDefault combines an entity's default filter with the caller's.
// With skip set, or without a default where clause, the caller's filter is
// returned as is. Otherwise both where clauses must hold: the default is
// never overridden. Everything except where comes from the caller.
// Neither input is modified.
func MergeDefault(def, caller *domain.FilterSpec, skip bool) *domain.FilterSpec {
	if caller == nil {
		caller = &domain.FilterSpec{}
	}
	if skip || !def.HasWhere() {
		return caller
	}

	merged := *caller
	if !caller.HasWhere() {
		merged.Where = def.Where
		return &merged
	}
	merged.Where = domain.Where(domain.And(def.Where, caller.Where))
	return &merged
}
