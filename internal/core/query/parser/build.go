package parser

import (
	"fmt"
	"math"

	"github.com/satishbabariya/prisma-filter/internal/core/query/domain"
)

type specBuilder struct {
	parser  *Parser
	dropped []domain.DroppedClause
}

func (b *specBuilder) tooDeep(path string) error {
	return domain.NewFilterError(domain.KindNestingTooDeep, path,
		fmt.Sprintf("filter nests deeper than %d levels", b.parser.maxDepth))
}

func malformed(path, detail string) error {
	return domain.NewFilterError(domain.KindMalformedFilter, path, detail)
}

func (b *specBuilder) filter(doc object, path string, depth int) (*domain.FilterSpec, error) {
	spec := &domain.FilterSpec{}

	for _, m := range doc {
		var err error
		switch m.Key {
		case "where":
			where, ok := m.Value.(object)
			if !ok {
				return nil, malformed(join(path, "where"), "where must be an object")
			}
			spec.Where, err = b.where(where, join(path, "where"), depth)
		case "fields":
			spec.Fields, err = fields(m.Value, join(path, "fields"))
		case "order":
			spec.Order, err = order(m.Value, join(path, "order"))
		case "limit":
			spec.Limit, err = integer(m.Value, join(path, "limit"))
		case "offset":
			spec.Offset, err = integer(m.Value, join(path, "offset"))
		case "skip":
			if _, hasOffset := doc.get("offset"); !hasOffset {
				spec.Offset, err = integer(m.Value, join(path, "skip"))
			}
		case "include":
			spec.Include, err = b.include(m.Value, join(path, "include"), depth)
		}
		if err != nil {
			return nil, err
		}
	}
	return spec, nil
}

func (b *specBuilder) where(doc object, path string, depth int) (*domain.WhereClause, error) {
	clause := &domain.WhereClause{Terms: make([]domain.WhereTerm, 0, len(doc))}

	for _, m := range doc {
		keyPath := join(path, m.Key)

		if m.Key == string(domain.AND) || m.Key == string(domain.OR) {
			if depth+1 > b.parser.maxDepth {
				return nil, b.tooDeep(keyPath)
			}
			items, ok := m.Value.([]interface{})
			if !ok {
				return nil, malformed(keyPath, fmt.Sprintf("%s must be an array of clauses", m.Key))
			}
			group := &domain.LogicalGroup{Operator: domain.LogicalOperator(m.Key)}
			for i, item := range items {
				child, ok := item.(object)
				if !ok {
					return nil, malformed(index(keyPath, i), "clause must be an object")
				}
				sub, err := b.where(child, index(keyPath, i), depth+1)
				if err != nil {
					return nil, err
				}
				group.Clauses = append(group.Clauses, sub)
			}
			clause.Terms = append(clause.Terms, group)
			continue
		}

		ops, isMap := m.Value.(object)
		if !isMap {
			clause.Terms = append(clause.Terms, &domain.LiteralCondition{Key: m.Key, Value: plain(m.Value)})
			continue
		}

		cond := &domain.OperatorCondition{Key: m.Key}
		for _, o := range ops {
			op, known := domain.ParseOperator(o.Key)
			if !known {
				if b.parser.policy == RejectUnknown {
					return nil, domain.NewFilterError(domain.KindUnknownOperator, keyPath,
						fmt.Sprintf("unknown operator %q", o.Key))
				}
				b.dropped = append(b.dropped, domain.DroppedClause{
					Key:      m.Key,
					Operator: o.Key,
					Reason:   domain.DropUnknownOperator,
				})
				continue
			}
			cond.Operators = append(cond.Operators, domain.OperatorTerm{Op: op, Operand: plain(o.Value)})
		}
		if len(ops) == 0 {
			b.dropped = append(b.dropped, domain.DroppedClause{Key: m.Key, Reason: domain.DropMalformedOperand})
		}
		if len(cond.Operators) > 0 {
			clause.Terms = append(clause.Terms, cond)
		}
	}
	return clause, nil
}

func (b *specBuilder) include(v interface{}, path string, depth int) ([]domain.InclusionSpec, error) {
	items, isList := v.([]interface{})
	if !isList {
		items = []interface{}{v}
	}

	out := make([]domain.InclusionSpec, 0, len(items))
	for i, item := range items {
		itemPath := path
		if isList {
			itemPath = index(path, i)
		}
		switch x := item.(type) {
		case string:
			out = append(out, domain.InclusionSpec{Relation: x})
		case object:
			rel, _ := x.get("relation")
			name, ok := rel.(string)
			if !ok {
				return nil, malformed(itemPath, "include needs a relation name")
			}
			inc := domain.InclusionSpec{Relation: name}
			if raw, ok := x.get("scope"); ok && raw != nil {
				scope, ok := raw.(object)
				if !ok {
					return nil, malformed(join(itemPath, "scope"), "scope must be an object")
				}
				if depth+1 > b.parser.maxDepth {
					return nil, b.tooDeep(join(itemPath, "scope"))
				}
				var err error
				inc.Scope, err = b.filter(scope, join(itemPath, "scope"), depth+1)
				if err != nil {
					return nil, err
				}
			}
			out = append(out, inc)
		default:
			return nil, malformed(itemPath, "include must be a relation name or an object")
		}
	}
	return out, nil
}

func fields(v interface{}, path string) ([]string, error) {
	switch x := v.(type) {
	case []interface{}:
		out := make([]string, 0, len(x))
		for i, item := range x {
			s, ok := item.(string)
			if !ok {
				return nil, malformed(index(path, i), "field name must be a string")
			}
			out = append(out, s)
		}
		return out, nil
	case object:
		// {"name": true, "secret": false} selects the truthy keys.
		out := make([]string, 0, len(x))
		for _, m := range x {
			if on, _ := m.Value.(bool); on {
				out = append(out, m.Key)
			}
		}
		return out, nil
	}
	return nil, malformed(path, "fields must be an array or an object")
}

func order(v interface{}, path string) ([]string, error) {
	switch x := v.(type) {
	case string:
		return []string{x}, nil
	case []interface{}:
		out := make([]string, 0, len(x))
		for i, item := range x {
			s, ok := item.(string)
			if !ok {
				return nil, malformed(index(path, i), "order entry must be a string")
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, malformed(path, "order must be a string or an array")
}

func integer(v interface{}, path string) (*int, error) {
	var n int
	switch x := v.(type) {
	case int64:
		if x > math.MaxInt32 || x < math.MinInt32 {
			return nil, domain.NewFilterError(domain.KindMalformedOperand, path, "value out of range")
		}
		n = int(x)
	case float64:
		if x != math.Trunc(x) || x > math.MaxInt32 || x < math.MinInt32 {
			return nil, domain.NewFilterError(domain.KindMalformedOperand, path, "value must be an integer")
		}
		n = int(x)
	default:
		return nil, domain.NewFilterError(domain.KindMalformedOperand, path, "value must be an integer")
	}
	return &n, nil
}

// plain converts decoded objects nested in operands to maps so the
// compiler sees ordinary Go values.
func plain(v interface{}) interface{} {
	switch x := v.(type) {
	case object:
		m := make(map[string]interface{}, len(x))
		for _, mem := range x {
			m[mem.Key] = plain(mem.Value)
		}
		return m
	case []interface{}:
		out := make([]interface{}, len(x))
		for i, item := range x {
			out[i] = plain(item)
		}
		return out
	}
	return v
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func index(path string, i int) string {
	return fmt.Sprintf("%s[%d]", path, i)
}
