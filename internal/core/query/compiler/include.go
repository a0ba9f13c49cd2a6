package compiler

import (
	"fmt"

	"github.com/satishbabariya/prisma-filter/internal/core/query/domain"
	"github.com/satishbabariya/prisma-filter/internal/core/schema"
)

// include compiles relation inclusions. Relations must be declared on the
// entity; scopes compile against the related entity's own descriptor. A
// relation listed twice keeps its last inclusion.
func (cc *compilation) include(entity *schema.Entity, includes []domain.InclusionSpec) (map[string]*domain.QueryOptions, error) {
	if len(includes) == 0 {
		return nil, nil
	}

	with := make(map[string]*domain.QueryOptions, len(includes))
	for _, inc := range includes {
		rel, ok := entity.Relation(inc.Relation)
		if !ok {
			return nil, domain.NewFilterError(domain.KindUnknownRelation, "include",
				fmt.Sprintf("%s has no relation %q", entity.Name, inc.Relation))
		}
		target := rel.Entity()
		if target == nil {
			return nil, domain.NewFilterError(domain.KindUnknownRelation, "include",
				fmt.Sprintf("relation %s.%s is not linked to an entity", entity.Name, rel.Name))
		}

		if inc.Scope == nil {
			with[rel.Name] = nil
			continue
		}
		scope, err := cc.options(target, inc.Scope)
		if err != nil {
			return nil, err
		}
		with[rel.Name] = scope
	}
	return with, nil
}
