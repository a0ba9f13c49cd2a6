// Package sqlgen renders compiled QueryOptions as SQL for the supported
// dialects. It is the hand-off point to whatever executes the query: the
// output is a statement and its bind arguments, never a connection.
package sqlgen

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/satishbabariya/prisma-filter/internal/core/query/domain"
	"github.com/satishbabariya/prisma-filter/internal/core/schema"
)

// Generator renders predicates and select statements for one dialect.
type Generator struct {
	name    domain.SQLDialect
	dialect dialect
	builder sq.StatementBuilderType
}

// New creates a generator for the given dialect.
func New(d domain.SQLDialect) (*Generator, error) {
	impl, err := dialectFor(d)
	if err != nil {
		return nil, err
	}
	builder := sq.StatementBuilder.PlaceholderFormat(sq.Question)
	if d == domain.PostgreSQL {
		builder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return &Generator{name: d, dialect: impl, builder: builder}, nil
}

// Dialect returns the generator's dialect.
func (g *Generator) Dialect() domain.SQLDialect {
	return g.name
}

// Select renders `SELECT ... FROM table WHERE ... ORDER BY ... LIMIT ...
// OFFSET ...` for opts. Relation scopes in opts.With are left to the
// execution layer.
func (g *Generator) Select(entity *schema.Entity, opts *domain.QueryOptions) (string, []interface{}, error) {
	b, err := g.SelectBuilder(entity, opts)
	if err != nil {
		return "", nil, err
	}
	return b.ToSql()
}

// SelectBuilder is Select without the final rendering, for callers that
// want to add joins or locking clauses.
func (g *Generator) SelectBuilder(entity *schema.Entity, opts *domain.QueryOptions) (sq.SelectBuilder, error) {
	if opts == nil {
		opts = &domain.QueryOptions{}
	}

	columns := []string{"*"}
	if len(opts.Columns) > 0 {
		columns = make([]string, len(opts.Columns))
		for i, c := range opts.Columns {
			columns[i] = g.dialect.quote(c)
		}
	}
	b := g.builder.Select(columns...).From(g.dialect.quote(entity.Table))

	if opts.Where != nil {
		where, err := g.Predicate(opts.Where)
		if err != nil {
			return b, err
		}
		b = b.Where(where)
	}

	for _, d := range opts.OrderBy {
		clauses, err := g.orderBy(d)
		if err != nil {
			return b, err
		}
		b = b.OrderBy(clauses...)
	}

	if opts.Limit != nil {
		b = b.Limit(uint64(*opts.Limit))
	}
	if opts.Offset != nil {
		if opts.Limit == nil && g.dialect.unboundedLimit() > 0 {
			b = b.Limit(g.dialect.unboundedLimit())
		}
		b = b.Offset(uint64(*opts.Offset))
	}
	return b, nil
}

func (g *Generator) orderBy(d domain.SortDirective) ([]string, error) {
	keys, err := g.sortKeys(d.Ref)
	if err != nil {
		return nil, err
	}
	dir := strings.ToUpper(string(d.Direction))
	clauses := make([]string, 0, len(keys)+1)
	if !g.dialect.nullsOrdered() {
		// NULLs last ascending and first descending, as in PostgreSQL.
		clauses = append(clauses, fmt.Sprintf("(%s IS NULL) %s", keys[0].sql, dir))
	}
	for _, k := range keys {
		if len(k.args) > 0 {
			return nil, fmt.Errorf("order by %s: accessor takes arguments", d.Ref)
		}
		clauses = append(clauses, k.sql+" "+dir)
	}
	return clauses, nil
}

// sortKeys renders the ORDER BY keys for a ValueRef. Only the first key
// is NULL for a missing value.
func (g *Generator) sortKeys(r domain.ValueRef) ([]expr, error) {
	if r.Path != nil && r.Access == domain.AccessTyped {
		return g.dialect.typed(r.Column, r.Path), nil
	}
	target, err := g.ref(r)
	if err != nil {
		return nil, err
	}
	return []expr{target}, nil
}

// ref renders the value a ValueRef reads.
func (g *Generator) ref(r domain.ValueRef) (expr, error) {
	if r.Path == nil {
		return expr{sql: g.dialect.quote(r.Column)}, nil
	}
	switch r.Access {
	case domain.AccessText, domain.AccessColumn:
		return g.dialect.text(r.Column, r.Path), nil
	case domain.AccessNumeric:
		return g.dialect.numeric(r.Column, r.Path), nil
	}
	return expr{}, fmt.Errorf("unknown accessor %d for %s", r.Access, r)
}

// Predicate renders p as a squirrel expression. A nil predicate renders
// as nil.
func (g *Generator) Predicate(p domain.Predicate) (sq.Sqlizer, error) {
	switch p := p.(type) {
	case nil:
		return nil, nil
	case *domain.Constant:
		if p.Value {
			return sq.Expr("1=1"), nil
		}
		return sq.Expr("1=0"), nil
	case *domain.Junction:
		parts := make([]sq.Sqlizer, 0, len(p.Terms))
		for _, t := range p.Terms {
			part, err := g.Predicate(t)
			if err != nil {
				return nil, err
			}
			parts = append(parts, part)
		}
		if p.Operator == domain.OR {
			return sq.Or(parts), nil
		}
		return sq.And(parts), nil
	case *domain.Comparison:
		target, err := g.ref(p.Ref)
		if err != nil {
			return nil, err
		}
		return sq.Expr(fmt.Sprintf("%s %s ?", target.sql, p.Op), append(target.args, p.Value)...), nil
	case *domain.NullCheck:
		target, err := g.ref(p.Ref)
		if err != nil {
			return nil, err
		}
		if p.Not {
			return sq.Expr(target.sql+" IS NOT NULL", target.args...), nil
		}
		return sq.Expr(target.sql+" IS NULL", target.args...), nil
	case *domain.Membership:
		target, err := g.ref(p.Ref)
		if err != nil {
			return nil, err
		}
		op := "IN"
		if p.Not {
			op = "NOT IN"
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(p.Values)), ", ")
		return sq.Expr(fmt.Sprintf("%s %s (%s)", target.sql, op, placeholders), append(target.args, p.Values...)...), nil
	case *domain.Range:
		target, err := g.ref(p.Ref)
		if err != nil {
			return nil, err
		}
		op := "BETWEEN"
		if p.Not {
			op = "NOT BETWEEN"
		}
		return sq.Expr(fmt.Sprintf("%s %s ? AND ?", target.sql, op), append(target.args, p.Low, p.High)...), nil
	case *domain.Pattern:
		target, err := g.ref(p.Ref)
		if err != nil {
			return nil, err
		}
		e := g.dialect.pattern(target, p)
		return sq.Expr(e.sql, e.args...), nil
	case *domain.RegexMatch:
		target, err := g.ref(p.Ref)
		if err != nil {
			return nil, err
		}
		e := g.dialect.regex(target, p)
		return sq.Expr(e.sql, e.args...), nil
	case *domain.ArraySet:
		target, err := g.ref(p.Ref)
		if err != nil {
			return nil, err
		}
		e, err := g.dialect.arraySet(target, p)
		if err != nil {
			return nil, err
		}
		return sq.Expr(e.sql, e.args...), nil
	}
	return nil, fmt.Errorf("unsupported predicate %T", p)
}

// Where renders a predicate as a WHERE fragment with the generator's
// placeholder format, for callers building their own statements.
func (g *Generator) Where(p domain.Predicate) (string, []interface{}, error) {
	s, err := g.Predicate(p)
	if err != nil || s == nil {
		return "", nil, err
	}
	sql, args, err := s.ToSql()
	if err != nil {
		return "", nil, err
	}
	if g.name == domain.PostgreSQL {
		sql, err = sq.Dollar.ReplacePlaceholders(sql)
	}
	return sql, args, err
}
