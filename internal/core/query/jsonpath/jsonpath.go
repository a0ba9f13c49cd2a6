// Package jsonpath parses the dotted/bracket paths used to address values
// inside JSON and JSONB columns, e.g. `metadata.user.role` or
// `metadata.tags[0]`.
//
// The grammar is deliberately narrow:
//
//	path    = ident { "." ident | "[" index "]" }
//	ident   = [A-Za-z_][A-Za-z0-9_-]*
//	index   = [0-9]+
//
// The first identifier names the column. Any other character, including
// whitespace, quotes, parentheses and semicolons, rejects the whole path.
// A parsed Path contains only characters from this grammar, so its
// segments can be embedded in SQL path literals without escaping.
package jsonpath

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// MaxSegments bounds the number of segments after the column.
const MaxSegments = 32

var pathLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_-]*`},
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Punct", Pattern: `[.\[\]]`},
})

type rawPath struct {
	Column   string        `parser:"@Ident"`
	Segments []*rawSegment `parser:"@@*"`
}

type rawSegment struct {
	Key   *string `parser:"  \".\" @Ident"`
	Index *string `parser:"| \"[\" @Int \"]\""`
}

var pathParser = participle.MustBuild[rawPath](
	participle.Lexer(pathLexer),
)

// Segment is one step into a JSON value: an object key or an array index.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

// String renders the segment as path text.
func (s Segment) String() string {
	if s.IsIndex {
		return strconv.Itoa(s.Index)
	}
	return s.Key
}

// Path is a validated JSON path rooted at a column.
type Path struct {
	Column   string
	Segments []Segment
}

// SyntaxError reports a path outside the grammar.
type SyntaxError struct {
	Path   string
	Reason string
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid json path %q: %s", e.Path, e.Reason)
}

// IsPath reports whether a where/order key should be read as a JSON path
// rather than a plain column name.
func IsPath(key string) bool {
	return strings.ContainsAny(key, ".[")
}

// Parse validates and parses a path.
func Parse(s string) (*Path, error) {
	raw, err := pathParser.ParseString("", s)
	if err != nil {
		return nil, &SyntaxError{Path: s, Reason: err.Error()}
	}
	if len(raw.Segments) > MaxSegments {
		return nil, &SyntaxError{Path: s, Reason: fmt.Sprintf("more than %d segments", MaxSegments)}
	}

	p := &Path{Column: raw.Column, Segments: make([]Segment, 0, len(raw.Segments))}
	for _, seg := range raw.Segments {
		if seg.Key != nil {
			p.Segments = append(p.Segments, Segment{Key: *seg.Key})
			continue
		}
		idx, err := strconv.Atoi(*seg.Index)
		if err != nil {
			return nil, &SyntaxError{Path: s, Reason: fmt.Sprintf("array index %s out of range", *seg.Index)}
		}
		p.Segments = append(p.Segments, Segment{Index: idx, IsIndex: true})
	}
	return p, nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) *Path {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

// String renders the path in its canonical dotted/bracket form.
func (p *Path) String() string {
	var b strings.Builder
	b.WriteString(p.Column)
	for _, seg := range p.Segments {
		if seg.IsIndex {
			b.WriteString("[")
			b.WriteString(strconv.Itoa(seg.Index))
			b.WriteString("]")
			continue
		}
		b.WriteString(".")
		b.WriteString(seg.Key)
	}
	return b.String()
}

// Elements returns the segments as text, the shape of a PostgreSQL text[]
// path (`#>` / `#>>` operands).
func (p *Path) Elements() []string {
	out := make([]string, len(p.Segments))
	for i, seg := range p.Segments {
		out[i] = seg.String()
	}
	return out
}
