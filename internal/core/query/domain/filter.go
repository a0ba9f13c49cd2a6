// Package domain contains the core entities of the filter compiler: the
// caller-facing FilterSpec, the compiled QueryOptions and the Predicate tree
// that connects them.
package domain

// FilterSpec is the caller-facing query description.
// It is built per request, compiled once and discarded.
type FilterSpec struct {
	Where   *WhereClause
	Fields  []string
	Order   []string
	Limit   *int
	Offset  *int
	Include []InclusionSpec
}

// HasWhere reports whether the spec carries at least one where term.
func (s *FilterSpec) HasWhere() bool {
	return s != nil && s.Where != nil && len(s.Where.Terms) > 0
}

// InclusionSpec names a relation to load eagerly, optionally scoped by a
// nested FilterSpec applied to the related entity.
type InclusionSpec struct {
	Relation string
	Scope    *FilterSpec
}

// WhereClause is an ordered list of terms that must all hold.
// Term order follows the source key order so compiled output is stable.
type WhereClause struct {
	Terms []WhereTerm
}

// IsEmpty reports whether the clause has no terms.
func (w *WhereClause) IsEmpty() bool {
	return w == nil || len(w.Terms) == 0
}

// WhereTerm is one entry of a WhereClause. The set of implementations is
// closed: *LiteralCondition, *OperatorCondition and *LogicalGroup.
type WhereTerm interface {
	whereTerm()
}

// LiteralCondition is the shorthand form `{key: value}`.
// A nil value tests for NULL, a slice tests membership, anything else equality.
type LiteralCondition struct {
	Key   string
	Value interface{}
}

// OperatorCondition is the form `{key: {op: operand, ...}}`.
// All operators AND together in the order they were written.
type OperatorCondition struct {
	Key       string
	Operators []OperatorTerm
}

// OperatorTerm is a single operator applied to an operand.
type OperatorTerm struct {
	Op      Operator
	Operand interface{}
}

// LogicalGroup is the reserved `and` / `or` key mapping to nested clauses.
type LogicalGroup struct {
	Operator LogicalOperator
	Clauses  []*WhereClause
}

func (*LiteralCondition) whereTerm()  {}
func (*OperatorCondition) whereTerm() {}
func (*LogicalGroup) whereTerm()      {}

// LogicalOperator represents logical operators for combining conditions.
type LogicalOperator string

const (
	// AND combines conditions with AND.
	AND LogicalOperator = "and"
	// OR combines conditions with OR.
	OR LogicalOperator = "or"
)

// Where builds a WhereClause from terms, mostly for programmatic callers.
func Where(terms ...WhereTerm) *WhereClause {
	return &WhereClause{Terms: terms}
}

// Eq is shorthand for a LiteralCondition.
func Eq(key string, value interface{}) *LiteralCondition {
	return &LiteralCondition{Key: key, Value: value}
}

// Ops builds an OperatorCondition for key.
func Ops(key string, terms ...OperatorTerm) *OperatorCondition {
	return &OperatorCondition{Key: key, Operators: terms}
}

// Op builds an OperatorTerm.
func Op(op Operator, operand interface{}) OperatorTerm {
	return OperatorTerm{Op: op, Operand: operand}
}

// And builds an `and` group.
func And(clauses ...*WhereClause) *LogicalGroup {
	return &LogicalGroup{Operator: AND, Clauses: clauses}
}

// Or builds an `or` group.
func Or(clauses ...*WhereClause) *LogicalGroup {
	return &LogicalGroup{Operator: OR, Clauses: clauses}
}
