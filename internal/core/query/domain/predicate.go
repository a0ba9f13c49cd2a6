package domain

import (
	"github.com/satishbabariya/prisma-filter/internal/core/query/jsonpath"
)

// Predicate is a compiled boolean query fragment. The set of implementations
// is closed; renderers and evaluators switch over them exhaustively.
// A nil Predicate means "no condition".
type Predicate interface {
	predicate()
}

// Access selects how a ValueRef reads its value.
type Access int

const (
	// AccessColumn reads a plain column.
	AccessColumn Access = iota
	// AccessText reads a JSON path as text, NULL when the path is absent.
	AccessText
	// AccessNumeric reads a JSON path as a decimal when its text form is
	// numeric, NULL otherwise. It never raises.
	AccessNumeric
	// AccessTyped reads a JSON path as a JSON value, preserving type order.
	AccessTyped
)

// ValueRef addresses the value a predicate or sort directive reads.
type ValueRef struct {
	Column string
	Path   *jsonpath.Path
	Access Access
	// Array is set when Column is array-typed.
	Array bool
}

// IsPath reports whether the ref traverses into a JSON column.
func (r ValueRef) IsPath() bool {
	return r.Path != nil
}

// String renders the ref the way the caller wrote it.
func (r ValueRef) String() string {
	if r.Path != nil {
		return r.Path.String()
	}
	return r.Column
}

// CompareOp is a relational comparison.
type CompareOp string

const (
	CmpEq  CompareOp = "="
	CmpNeq CompareOp = "<>"
	CmpGt  CompareOp = ">"
	CmpGte CompareOp = ">="
	CmpLt  CompareOp = "<"
	CmpLte CompareOp = "<="
)

// SetOp is an array-column set operator.
type SetOp string

const (
	// SetContains holds when the column has every operand element.
	SetContains SetOp = "contains"
	// SetContainedBy holds when every column element is in the operand.
	SetContainedBy SetOp = "containedBy"
	// SetOverlaps holds when column and operand share an element.
	SetOverlaps SetOp = "overlaps"
)

// Comparison is `ref <op> value`.
type Comparison struct {
	Ref   ValueRef
	Op    CompareOp
	Value interface{}
}

// NullCheck is `ref IS [NOT] NULL`.
type NullCheck struct {
	Ref ValueRef
	Not bool
}

// Membership is `ref [NOT] IN (values)`. Values is never empty; empty
// operands compile to a Constant.
type Membership struct {
	Ref    ValueRef
	Values []interface{}
	Not    bool
}

// Range is `ref [NOT] BETWEEN low AND high`.
type Range struct {
	Ref  ValueRef
	Low  interface{}
	High interface{}
	Not  bool
}

// Pattern is a LIKE match with % and _ wildcards.
type Pattern struct {
	Ref     ValueRef
	Pattern string
	Fold    bool
	Not     bool
}

// RegexMatch is a dialect-native regular expression match.
type RegexMatch struct {
	Ref     ValueRef
	Pattern string
	Fold    bool
}

// ArraySet compares an array column with a set of values.
// An empty Values is only produced for SetContainedBy.
type ArraySet struct {
	Ref    ValueRef
	Op     SetOp
	Values []interface{}
}

// Junction combines two or more predicates with AND or OR.
type Junction struct {
	Operator LogicalOperator
	Terms    []Predicate
}

// Constant is a predicate with a fixed outcome.
type Constant struct {
	Value bool
}

func (*Comparison) predicate() {}
func (*NullCheck) predicate()  {}
func (*Membership) predicate() {}
func (*Range) predicate()      {}
func (*Pattern) predicate()    {}
func (*RegexMatch) predicate() {}
func (*ArraySet) predicate()   {}
func (*Junction) predicate()   {}
func (*Constant) predicate()   {}

// AllOf ANDs the non-nil terms. It returns nil when nothing survives and
// the term itself when only one does.
func AllOf(terms ...Predicate) Predicate {
	return join(AND, terms)
}

// AnyOf ORs the non-nil terms with the same collapsing rules as AllOf.
func AnyOf(terms ...Predicate) Predicate {
	return join(OR, terms)
}

func join(op LogicalOperator, terms []Predicate) Predicate {
	kept := make([]Predicate, 0, len(terms))
	for _, t := range terms {
		if t != nil {
			kept = append(kept, t)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return &Junction{Operator: op, Terms: kept}
	}
}
