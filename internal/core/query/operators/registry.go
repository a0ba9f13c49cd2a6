// Package operators maps a filter operator and its operand onto a
// predicate. Every builder is pure and total: an operand outside the
// operator's shape yields no predicate, never an error.
package operators

import (
	"regexp"

	"github.com/satishbabariya/prisma-filter/internal/core/query/domain"
)

type builder func(op domain.Operator, ref domain.ValueRef, operand interface{}) (domain.Predicate, bool)

// registry is read-only after init and shared by every compile call.
var registry = map[domain.Operator]builder{
	domain.OpEq:          buildEquality,
	domain.OpNeq:         buildEquality,
	domain.OpGt:          buildComparison,
	domain.OpGte:         buildComparison,
	domain.OpLt:          buildComparison,
	domain.OpLte:         buildComparison,
	domain.OpIs:          buildEquality,
	domain.OpIsn:         buildEquality,
	domain.OpIn:          buildMembership,
	domain.OpNin:         buildMembership,
	domain.OpBetween:     buildRange,
	domain.OpNotBetween:  buildRange,
	domain.OpLike:        buildPattern,
	domain.OpNlike:       buildPattern,
	domain.OpIlike:       buildPattern,
	domain.OpNilike:      buildPattern,
	domain.OpRegexp:      buildRegex,
	domain.OpIregexp:     buildRegex,
	domain.OpContains:    buildArraySet,
	domain.OpContainedBy: buildArraySet,
	domain.OpOverlaps:    buildArraySet,
}

var compareOps = map[domain.Operator]domain.CompareOp{
	domain.OpEq:  domain.CmpEq,
	domain.OpIs:  domain.CmpEq,
	domain.OpNeq: domain.CmpNeq,
	domain.OpIsn: domain.CmpNeq,
	domain.OpGt:  domain.CmpGt,
	domain.OpGte: domain.CmpGte,
	domain.OpLt:  domain.CmpLt,
	domain.OpLte: domain.CmpLte,
}

// Build compiles one operator application. ref names the column or JSON
// path; Build selects the JSON accessor itself (numeric for magnitude
// operators, text otherwise). The boolean is false when the operand does
// not fit the operator and the clause should be dropped.
func Build(op domain.Operator, ref domain.ValueRef, operand interface{}) (domain.Predicate, bool) {
	b, ok := registry[op]
	if !ok {
		return nil, false
	}
	if ref.IsPath() {
		ref.Array = false
		if op.Numeric() {
			ref.Access = domain.AccessNumeric
		} else {
			ref.Access = domain.AccessText
		}
	} else {
		ref.Access = domain.AccessColumn
	}

	// Array columns only answer null tests and the set operators.
	if ref.Array && !op.ArraySet() && !isNullTest(op, operand) {
		return nil, false
	}
	return b(op, ref, operand)
}

// Supported reports whether op has a builder.
func Supported(op domain.Operator) bool {
	_, ok := registry[op]
	return ok
}

func isNullTest(op domain.Operator, operand interface{}) bool {
	if operand != nil {
		return false
	}
	switch op {
	case domain.OpEq, domain.OpNeq, domain.OpIs, domain.OpIsn:
		return true
	}
	return false
}

func negated(op domain.Operator) bool {
	switch op {
	case domain.OpNeq, domain.OpIsn, domain.OpNin, domain.OpNotBetween, domain.OpNlike, domain.OpNilike:
		return true
	}
	return false
}

// buildEquality serves eq, neq, is and isn. A null operand is a null test.
func buildEquality(op domain.Operator, ref domain.ValueRef, operand interface{}) (domain.Predicate, bool) {
	if operand == nil {
		return &domain.NullCheck{Ref: ref, Not: negated(op)}, true
	}
	v, ok := operandFor(ref, operand)
	if !ok {
		return nil, false
	}
	return &domain.Comparison{Ref: ref, Op: compareOps[op], Value: v}, true
}

func buildComparison(op domain.Operator, ref domain.ValueRef, operand interface{}) (domain.Predicate, bool) {
	v, ok := operandFor(ref, operand)
	if !ok {
		return nil, false
	}
	return &domain.Comparison{Ref: ref, Op: compareOps[op], Value: v}, true
}

// buildMembership serves in/inq and nin. A non-array operand degrades to
// eq/neq.
func buildMembership(op domain.Operator, ref domain.ValueRef, operand interface{}) (domain.Predicate, bool) {
	list, isList := toList(operand)
	if !isList {
		if op == domain.OpNin {
			return buildEquality(domain.OpNeq, ref, operand)
		}
		return buildEquality(domain.OpEq, ref, operand)
	}
	if len(list) == 0 {
		// in [] matches nothing, nin [] matches everything.
		return &domain.Constant{Value: op == domain.OpNin}, true
	}
	values, ok := operandsFor(ref, list)
	if !ok {
		return nil, false
	}
	return &domain.Membership{Ref: ref, Values: values, Not: negated(op)}, true
}

func buildRange(op domain.Operator, ref domain.ValueRef, operand interface{}) (domain.Predicate, bool) {
	list, ok := toList(operand)
	if !ok || len(list) != 2 {
		return nil, false
	}
	bounds, ok := operandsFor(ref, list)
	if !ok {
		return nil, false
	}
	return &domain.Range{Ref: ref, Low: bounds[0], High: bounds[1], Not: negated(op)}, true
}

func buildPattern(op domain.Operator, ref domain.ValueRef, operand interface{}) (domain.Predicate, bool) {
	s, ok := operand.(string)
	if !ok {
		return nil, false
	}
	return &domain.Pattern{
		Ref:     ref,
		Pattern: s,
		Fold:    op == domain.OpIlike || op == domain.OpNilike,
		Not:     negated(op),
	}, true
}

// buildRegex accepts only patterns RE2 compiles, the subset every dialect
// and the evaluator agree on. Backreferences and engine-specific escapes
// such as \1 or \m are dropped even where the database would run them.
func buildRegex(op domain.Operator, ref domain.ValueRef, operand interface{}) (domain.Predicate, bool) {
	s, ok := operand.(string)
	if !ok {
		return nil, false
	}
	if _, err := regexp.Compile(s); err != nil {
		return nil, false
	}
	return &domain.RegexMatch{Ref: ref, Pattern: s, Fold: op == domain.OpIregexp}, true
}

var setOps = map[domain.Operator]domain.SetOp{
	domain.OpContains:    domain.SetContains,
	domain.OpContainedBy: domain.SetContainedBy,
	domain.OpOverlaps:    domain.SetOverlaps,
}

// buildArraySet serves contains, containedBy and overlaps on array columns.
func buildArraySet(op domain.Operator, ref domain.ValueRef, operand interface{}) (domain.Predicate, bool) {
	if !ref.Array {
		return nil, false
	}
	list, ok := toList(operand)
	if !ok {
		return nil, false
	}
	values, ok := operandsFor(ref, list)
	if !ok {
		return nil, false
	}
	if len(values) == 0 {
		switch op {
		case domain.OpContains:
			return &domain.Constant{Value: true}, true
		case domain.OpOverlaps:
			return &domain.Constant{Value: false}, true
		}
		// containedBy [] keeps the predicate: only empty arrays qualify.
	}
	return &domain.ArraySet{Ref: ref, Op: setOps[op], Values: values}, true
}
