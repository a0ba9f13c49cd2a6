package domain

// Operator is the closed set of filter operators.
// Unknown tokens never reach the compiler: the parser resolves them
// according to its UnknownOperatorPolicy.
type Operator int

const (
	OpEq Operator = iota + 1
	OpNeq
	OpGt
	OpGte
	OpLt
	OpLte
	OpIs
	OpIsn
	OpIn
	OpNin
	OpBetween
	OpNotBetween
	OpLike
	OpNlike
	OpIlike
	OpNilike
	OpRegexp
	OpIregexp
	OpContains
	OpContainedBy
	OpOverlaps
)

var operatorTokens = map[string]Operator{
	"eq":          OpEq,
	"neq":         OpNeq,
	"gt":          OpGt,
	"gte":         OpGte,
	"lt":          OpLt,
	"lte":         OpLte,
	"is":          OpIs,
	"isn":         OpIsn,
	"in":          OpIn,
	"inq":         OpIn,
	"nin":         OpNin,
	"between":     OpBetween,
	"notBetween":  OpNotBetween,
	"like":        OpLike,
	"nlike":       OpNlike,
	"ilike":       OpIlike,
	"nilike":      OpNilike,
	"regexp":      OpRegexp,
	"iregexp":     OpIregexp,
	"contains":    OpContains,
	"containedBy": OpContainedBy,
	"overlaps":    OpOverlaps,
}

var operatorNames = map[Operator]string{
	OpEq:          "eq",
	OpNeq:         "neq",
	OpGt:          "gt",
	OpGte:         "gte",
	OpLt:          "lt",
	OpLte:         "lte",
	OpIs:          "is",
	OpIsn:         "isn",
	OpIn:          "in",
	OpNin:         "nin",
	OpBetween:     "between",
	OpNotBetween:  "notBetween",
	OpLike:        "like",
	OpNlike:       "nlike",
	OpIlike:       "ilike",
	OpNilike:      "nilike",
	OpRegexp:      "regexp",
	OpIregexp:     "iregexp",
	OpContains:    "contains",
	OpContainedBy: "containedBy",
	OpOverlaps:    "overlaps",
}

// ParseOperator resolves a wire token. Tokens are case-sensitive;
// "inq" is an alias of "in".
func ParseOperator(token string) (Operator, bool) {
	op, ok := operatorTokens[token]
	return op, ok
}

// String returns the canonical token.
func (o Operator) String() string {
	if name, ok := operatorNames[o]; ok {
		return name
	}
	return "unknown"
}

// Numeric reports whether the operator compares by magnitude. Against a
// JSON path these read through the safe-numeric accessor.
func (o Operator) Numeric() bool {
	switch o {
	case OpGt, OpGte, OpLt, OpLte, OpBetween, OpNotBetween:
		return true
	}
	return false
}

// ArraySet reports whether the operator belongs to the array-column family.
func (o Operator) ArraySet() bool {
	switch o {
	case OpContains, OpContainedBy, OpOverlaps:
		return true
	}
	return false
}
