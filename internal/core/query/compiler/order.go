package compiler

import (
	"strings"

	"github.com/satishbabariya/prisma-filter/internal/core/query/domain"
	"github.com/satishbabariya/prisma-filter/internal/core/schema"
)

// order compiles `"field[ ASC|DESC]"` entries into sort directives, left
// to right. Entries naming unknown fields or carrying a bad direction are
// dropped. JSON paths sort through the typed accessor.
func (cc *compilation) order(entity *schema.Entity, entries []string) ([]domain.SortDirective, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	out := make([]domain.SortDirective, 0, len(entries))
	for _, entry := range entries {
		tokens := strings.Fields(entry)
		if len(tokens) == 0 || len(tokens) > 2 {
			cc.drop(entity, entry, "", domain.DropBadOrder)
			continue
		}

		dir := domain.Asc
		if len(tokens) == 2 {
			switch strings.ToUpper(tokens[1]) {
			case "ASC":
			case "DESC":
				dir = domain.Desc
			default:
				cc.drop(entity, entry, "", domain.DropBadOrder)
				continue
			}
		}

		ref, ok, err := resolve(entity, tokens[0])
		if err != nil {
			return nil, err
		}
		if !ok {
			cc.drop(entity, tokens[0], "", domain.DropUnknownColumn)
			continue
		}
		if ref.IsPath() {
			ref.Access = domain.AccessTyped
		}
		out = append(out, domain.SortDirective{Ref: ref, Direction: dir})
	}
	return out, nil
}
