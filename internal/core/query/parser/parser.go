// Package parser turns an inbound filter document (JSON, optionally
// percent-encoded in a query parameter) into a domain.FilterSpec.
//
// The parser is the input boundary: it preserves source key order, checks
// the document shape, bounds nesting depth and applies the unknown
// operator policy, so the compiler only ever sees known operators.
package parser

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/satishbabariya/prisma-filter/internal/core/query/domain"
)

// DefaultMaxDepth bounds and/or nesting plus include scope nesting.
const DefaultMaxDepth = 16

// UnknownOperatorPolicy decides what happens to operator tokens outside
// the closed operator set.
type UnknownOperatorPolicy string

const (
	// DropUnknown discards the operator and records the drop.
	DropUnknown UnknownOperatorPolicy = "drop"
	// RejectUnknown fails the whole filter with UnknownOperator.
	RejectUnknown UnknownOperatorPolicy = "reject"
)

// Valid reports whether p is a known policy.
func (p UnknownOperatorPolicy) Valid() bool {
	return p == DropUnknown || p == RejectUnknown
}

// Options configures a Parser.
type Options struct {
	MaxDepth         int
	UnknownOperators UnknownOperatorPolicy
}

// Parser decodes filter documents. It is stateless and safe for
// concurrent use.
type Parser struct {
	maxDepth int
	policy   UnknownOperatorPolicy
}

// New creates a parser. Zero options select DefaultMaxDepth and DropUnknown.
func New(opts Options) *Parser {
	p := &Parser{maxDepth: opts.MaxDepth, policy: opts.UnknownOperators}
	if p.maxDepth <= 0 {
		p.maxDepth = DefaultMaxDepth
	}
	if !p.policy.Valid() {
		p.policy = DropUnknown
	}
	return p
}

// MaxDepth returns the effective nesting limit.
func (p *Parser) MaxDepth() int {
	return p.maxDepth
}

// Policy returns the effective unknown operator policy.
func (p *Parser) Policy() UnknownOperatorPolicy {
	return p.policy
}

// ParseQueryParam parses the value of a `filter` query parameter, which
// may be raw or percent-encoded JSON. An empty value is an empty filter.
func (p *Parser) ParseQueryParam(raw string) (*domain.FilterSpec, []domain.DroppedClause, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return &domain.FilterSpec{}, nil, nil
	}
	if !strings.HasPrefix(trimmed, "{") {
		decoded, err := url.QueryUnescape(trimmed)
		if err != nil {
			return nil, nil, &domain.FilterError{
				Kind:   domain.KindMalformedFilter,
				Detail: "filter is not valid percent-encoded JSON",
				Cause:  err,
			}
		}
		trimmed = strings.TrimSpace(decoded)
	}
	return p.Parse([]byte(trimmed))
}

// Parse decodes a filter document. Operators dropped under DropUnknown
// are returned alongside the spec; their Entity is left for the caller to
// fill in.
func (p *Parser) Parse(data []byte) (*domain.FilterSpec, []domain.DroppedClause, error) {
	// Each and/or level costs two JSON containers and each include scope
	// three, plus headroom for operator maps and operand arrays.
	doc, err := decodeOrdered(data, 3*p.maxDepth+8)
	if errors.Is(err, errTooDeep) {
		return nil, nil, domain.NewFilterError(domain.KindNestingTooDeep, "",
			fmt.Sprintf("filter nests deeper than %d levels", p.maxDepth))
	}
	if err != nil {
		return nil, nil, &domain.FilterError{
			Kind:   domain.KindMalformedFilter,
			Detail: fmt.Sprintf("filter is not valid JSON: %v", err),
			Cause:  err,
		}
	}
	if err := validateShape(string(data)); err != nil {
		return nil, nil, &domain.FilterError{
			Kind:   domain.KindMalformedFilter,
			Detail: err.Error(),
			Cause:  err,
		}
	}

	root, ok := doc.(object)
	if !ok {
		return nil, nil, domain.NewFilterError(domain.KindMalformedFilter, "", "filter must be a JSON object")
	}

	b := &specBuilder{parser: p}
	spec, err := b.filter(root, "", 0)
	if err != nil {
		return nil, nil, err
	}
	return spec, b.dropped, nil
}
