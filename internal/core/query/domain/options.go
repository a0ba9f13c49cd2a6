package domain

// QueryOptions is the compiled form of a FilterSpec, handed to the
// storage-execution layer.
type QueryOptions struct {
	Limit   *int
	Offset  *int
	Columns []string
	OrderBy []SortDirective
	Where   Predicate
	// With maps relation names to their compiled scope. A nil value means
	// the relation is loaded without a scope.
	With map[string]*QueryOptions

	// Dropped lists the fragments the forgiving policy discarded.
	// Execution layers ignore it.
	Dropped []DroppedClause
}

// SortDirective is one key of a multi-key sort.
type SortDirective struct {
	Ref       ValueRef
	Direction SortDirection
}

// SortDirection represents sort direction.
type SortDirection string

const (
	// Asc sorts ascending.
	Asc SortDirection = "asc"
	// Desc sorts descending.
	Desc SortDirection = "desc"
)

// DropReason says why a fragment was discarded.
type DropReason string

const (
	DropUnknownColumn    DropReason = "unknown_column"
	DropUnknownOperator  DropReason = "unknown_operator"
	DropMalformedOperand DropReason = "malformed_operand"
	DropEmptyGroup       DropReason = "empty_group"
	DropBadOrder         DropReason = "bad_order"
)

// DroppedClause records one discarded fragment.
type DroppedClause struct {
	Entity   string
	Key      string
	Operator string
	Reason   DropReason
}
