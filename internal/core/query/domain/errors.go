package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Sentinel errors, one per fatal kind. FilterError matches them with errors.Is.
var (
	// ErrInvalidPath is returned when a JSON path falls outside the grammar.
	ErrInvalidPath = errors.New("invalid json path")

	// ErrUnknownRelation is returned when an include names an undeclared relation.
	ErrUnknownRelation = errors.New("unknown relation")

	// ErrMalformedOperand is returned when a top-level operand has the wrong shape.
	ErrMalformedOperand = errors.New("malformed operand")

	// ErrUnknownOperator is returned for unknown operators under the reject policy.
	ErrUnknownOperator = errors.New("unknown operator")

	// ErrMalformedFilter is returned when the filter document itself is malformed.
	ErrMalformedFilter = errors.New("malformed filter")

	// ErrNestingTooDeep is returned when and/or or include nesting exceeds the limit.
	ErrNestingTooDeep = errors.New("filter nesting too deep")
)

// ErrorKind is the wire name of a FilterError.
type ErrorKind string

const (
	KindInvalidPath      ErrorKind = "InvalidPath"
	KindUnknownRelation  ErrorKind = "UnknownRelation"
	KindMalformedOperand ErrorKind = "MalformedOperand"
	KindUnknownOperator  ErrorKind = "UnknownOperator"
	KindMalformedFilter  ErrorKind = "MalformedFilter"
	KindNestingTooDeep   ErrorKind = "NestingTooDeep"
)

var kindSentinels = map[ErrorKind]error{
	KindInvalidPath:      ErrInvalidPath,
	KindUnknownRelation:  ErrUnknownRelation,
	KindMalformedOperand: ErrMalformedOperand,
	KindUnknownOperator:  ErrUnknownOperator,
	KindMalformedFilter:  ErrMalformedFilter,
	KindNestingTooDeep:   ErrNestingTooDeep,
}

// FilterError is a fatal compilation error surfaced to the boundary
// (typically as HTTP 400).
type FilterError struct {
	Kind   ErrorKind
	Path   string
	Detail string
	Cause  error
}

// NewFilterError creates a FilterError.
func NewFilterError(kind ErrorKind, path, detail string) *FilterError {
	return &FilterError{Kind: kind, Path: path, Detail: detail}
}

// Error implements the error interface.
func (e *FilterError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s at %q: %s", e.Kind, e.Path, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// Unwrap returns the underlying error.
func (e *FilterError) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel for the error's kind.
func (e *FilterError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// MarshalJSON renders the boundary error contract.
func (e *FilterError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind   ErrorKind `json:"kind"`
		Path   string    `json:"path,omitempty"`
		Detail string    `json:"detail"`
	}{e.Kind, e.Path, e.Detail})
}

// AsFilterError extracts a FilterError from err's chain.
func AsFilterError(err error) (*FilterError, bool) {
	var fe *FilterError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
