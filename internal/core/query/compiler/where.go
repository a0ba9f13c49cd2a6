package compiler

import (
	"github.com/satishbabariya/prisma-filter/internal/core/query/domain"
	"github.com/satishbabariya/prisma-filter/internal/core/query/jsonpath"
	"github.com/satishbabariya/prisma-filter/internal/core/query/operators"
	"github.com/satishbabariya/prisma-filter/internal/core/schema"
)

// where compiles a clause into a predicate. Terms are ANDed in source
// order; a clause with no surviving terms compiles to nil.
func (cc *compilation) where(entity *schema.Entity, clause *domain.WhereClause) (domain.Predicate, error) {
	if clause.IsEmpty() {
		return nil, nil
	}

	terms := make([]domain.Predicate, 0, len(clause.Terms))
	for _, term := range clause.Terms {
		var (
			p   domain.Predicate
			err error
		)
		switch t := term.(type) {
		case *domain.LogicalGroup:
			p, err = cc.group(entity, t)
		case *domain.LiteralCondition:
			p, err = cc.literal(entity, t)
		case *domain.OperatorCondition:
			p, err = cc.condition(entity, t)
		}
		if err != nil {
			return nil, err
		}
		terms = append(terms, p)
	}
	return domain.AllOf(terms...), nil
}

// group compiles every child, even after one fails to survive, so an
// invalid path anywhere in the tree still rejects the filter.
func (cc *compilation) group(entity *schema.Entity, g *domain.LogicalGroup) (domain.Predicate, error) {
	children := make([]domain.Predicate, 0, len(g.Clauses))
	for _, clause := range g.Clauses {
		p, err := cc.where(entity, clause)
		if err != nil {
			return nil, err
		}
		children = append(children, p)
	}

	var p domain.Predicate
	if g.Operator == domain.OR {
		p = domain.AnyOf(children...)
	} else {
		p = domain.AllOf(children...)
	}
	if p == nil {
		cc.drop(entity, string(g.Operator), "", domain.DropEmptyGroup)
	}
	return p, nil
}

// literal compiles the shorthand form: null tests for NULL, arrays test
// membership, anything else equality.
func (cc *compilation) literal(entity *schema.Entity, lit *domain.LiteralCondition) (domain.Predicate, error) {
	ref, ok, err := resolve(entity, lit.Key)
	if err != nil {
		return nil, err
	}
	if !ok {
		cc.drop(entity, lit.Key, "", domain.DropUnknownColumn)
		return nil, nil
	}

	op := domain.OpEq
	if operators.IsList(lit.Value) {
		op = domain.OpIn
	}
	p, ok := operators.Build(op, ref, lit.Value)
	if !ok {
		cc.drop(entity, lit.Key, op.String(), domain.DropMalformedOperand)
		return nil, nil
	}
	return p, nil
}

// condition compiles `{key: {op: operand, ...}}`, ANDing the operators in
// the order they were written.
func (cc *compilation) condition(entity *schema.Entity, cond *domain.OperatorCondition) (domain.Predicate, error) {
	ref, ok, err := resolve(entity, cond.Key)
	if err != nil {
		return nil, err
	}
	if !ok {
		cc.drop(entity, cond.Key, "", domain.DropUnknownColumn)
		return nil, nil
	}

	terms := make([]domain.Predicate, 0, len(cond.Operators))
	for _, term := range cond.Operators {
		p, ok := operators.Build(term.Op, ref, term.Operand)
		if !ok {
			cc.drop(entity, cond.Key, term.Op.String(), domain.DropMalformedOperand)
			continue
		}
		terms = append(terms, p)
	}
	return domain.AllOf(terms...), nil
}

// resolve maps a where or order key onto a ValueRef. Keys containing "."
// or "[" are JSON paths: a path outside the grammar is fatal, a path whose
// root is not a JSON column is unresolvable like any unknown column.
func resolve(entity *schema.Entity, key string) (domain.ValueRef, bool, error) {
	if jsonpath.IsPath(key) {
		path, err := jsonpath.Parse(key)
		if err != nil {
			return domain.ValueRef{}, false, &domain.FilterError{
				Kind:   domain.KindInvalidPath,
				Path:   key,
				Detail: "json path must be identifiers and [index] segments",
				Cause:  err,
			}
		}
		col, ok := entity.Column(path.Column)
		if !ok || !col.IsJSON() {
			return domain.ValueRef{}, false, nil
		}
		return domain.ValueRef{Column: col.Name, Path: path, Access: domain.AccessText}, true, nil
	}

	col, ok := entity.Column(key)
	if !ok {
		return domain.ValueRef{}, false, nil
	}
	return domain.ValueRef{Column: col.Name, Array: col.Array}, true, nil
}
