package compiler

import (
	"github.com/satishbabariya/prisma-filter/internal/core/query/domain"
	"github.com/satishbabariya/prisma-filter/internal/core/schema"
)

// fields keeps the known column names in first-seen order. An empty result
// selects every column.
func (cc *compilation) fields(entity *schema.Entity, names []string) []string {
	if len(names) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(names))
	var out []string
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		if _, ok := entity.Column(name); !ok {
			cc.drop(entity, name, "", domain.DropUnknownColumn)
			continue
		}
		out = append(out, name)
	}
	return out
}
