// Package eval evaluates compiled predicates, sort directives and
// pagination against in-memory rows. It follows SQL three-valued logic and
// PostgreSQL's reading of JSON accessors, which makes it a reference for
// what a compiled QueryOptions means independent of any dialect.
package eval

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/satishbabariya/prisma-filter/internal/core/query/domain"
	"github.com/satishbabariya/prisma-filter/internal/core/query/jsonpath"
	"github.com/satishbabariya/prisma-filter/internal/core/query/operators"
)

// Row is one record keyed by column name. JSON columns hold decoded JSON
// (maps, slices, strings, numbers, booleans, nil); array columns hold a
// slice.
type Row map[string]interface{}

type truth int

const (
	unknown truth = iota
	isFalse
	isTrue
)

func truthOf(b bool) truth {
	if b {
		return isTrue
	}
	return isFalse
}

func (t truth) not() truth {
	switch t {
	case isTrue:
		return isFalse
	case isFalse:
		return isTrue
	}
	return unknown
}

// Match reports whether p holds for row. A nil predicate matches every
// row; a predicate that evaluates to NULL does not match.
func Match(p domain.Predicate, row Row) bool {
	if p == nil {
		return true
	}
	return evaluate(p, row) == isTrue
}

// Filter returns the rows p matches, preserving order.
func Filter(rows []Row, p domain.Predicate) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if Match(p, r) {
			out = append(out, r)
		}
	}
	return out
}

func evaluate(p domain.Predicate, row Row) truth {
	switch p := p.(type) {
	case *domain.Constant:
		return truthOf(p.Value)
	case *domain.Junction:
		return evalJunction(p, row)
	case *domain.NullCheck:
		_, null := read(p.Ref, row)
		return truthOf(null != p.Not)
	case *domain.Comparison:
		v, null := read(p.Ref, row)
		if null {
			return unknown
		}
		c, ok := compare(v, p.Value)
		if !ok {
			return unknown
		}
		return truthOf(holds(p.Op, c))
	case *domain.Membership:
		return evalMembership(p, row)
	case *domain.Range:
		return evalRange(p, row)
	case *domain.Pattern:
		v, null := read(p.Ref, row)
		if null {
			return unknown
		}
		re, err := likeRegexp(p.Pattern, p.Fold)
		if err != nil {
			return unknown
		}
		t := truthOf(re.MatchString(textOf(v)))
		if p.Not {
			return t.not()
		}
		return t
	case *domain.RegexMatch:
		v, null := read(p.Ref, row)
		if null {
			return unknown
		}
		expr := p.Pattern
		if p.Fold {
			expr = "(?i)" + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return unknown
		}
		return truthOf(re.MatchString(textOf(v)))
	case *domain.ArraySet:
		return evalArraySet(p, row)
	}
	panic(fmt.Sprintf("eval: unhandled predicate %T", p))
}

func evalJunction(j *domain.Junction, row Row) truth {
	if j.Operator == domain.OR {
		out := isFalse
		for _, t := range j.Terms {
			switch evaluate(t, row) {
			case isTrue:
				return isTrue
			case unknown:
				out = unknown
			}
		}
		return out
	}
	out := isTrue
	for _, t := range j.Terms {
		switch evaluate(t, row) {
		case isFalse:
			return isFalse
		case unknown:
			out = unknown
		}
	}
	return out
}

func evalMembership(m *domain.Membership, row Row) truth {
	v, null := read(m.Ref, row)
	if null {
		return unknown
	}
	out := isFalse
	for _, candidate := range m.Values {
		c, ok := compare(v, candidate)
		if !ok {
			out = unknown
			continue
		}
		if c == 0 {
			out = isTrue
			break
		}
	}
	if m.Not {
		return out.not()
	}
	return out
}

func evalRange(r *domain.Range, row Row) truth {
	v, null := read(r.Ref, row)
	if null {
		return unknown
	}
	lo, ok1 := compare(v, r.Low)
	hi, ok2 := compare(v, r.High)
	if !ok1 || !ok2 {
		return unknown
	}
	t := truthOf(lo >= 0 && hi <= 0)
	if r.Not {
		return t.not()
	}
	return t
}

func evalArraySet(a *domain.ArraySet, row Row) truth {
	v, null := read(a.Ref, row)
	if null {
		return unknown
	}
	elems, ok := asList(v)
	if !ok {
		return unknown
	}
	switch a.Op {
	case domain.SetContains:
		return truthOf(subset(a.Values, elems))
	case domain.SetContainedBy:
		return truthOf(subset(elems, a.Values))
	case domain.SetOverlaps:
		for _, e := range elems {
			if member(e, a.Values) {
				return isTrue
			}
		}
		return isFalse
	}
	return unknown
}

func subset(items, of []interface{}) bool {
	for _, it := range items {
		if !member(it, of) {
			return false
		}
	}
	return true
}

func member(v interface{}, set []interface{}) bool {
	for _, s := range set {
		if c, ok := compare(v, s); ok && c == 0 {
			return true
		}
	}
	return false
}

func holds(op domain.CompareOp, c int) bool {
	switch op {
	case domain.CmpEq:
		return c == 0
	case domain.CmpNeq:
		return c != 0
	case domain.CmpGt:
		return c > 0
	case domain.CmpGte:
		return c >= 0
	case domain.CmpLt:
		return c < 0
	case domain.CmpLte:
		return c <= 0
	}
	return false
}

// jsonNull stands for a JSON null read through the typed accessor, which
// is a value and not SQL NULL.
type jsonNull struct{}

// read resolves ref against row. The boolean is true for SQL NULL.
func read(ref domain.ValueRef, row Row) (interface{}, bool) {
	raw, ok := row[ref.Column]
	if !ok || raw == nil {
		return nil, true
	}
	if ref.Path == nil {
		if ref.Array {
			return raw, false
		}
		if n, ok := number(raw); ok {
			return n, false
		}
		return raw, false
	}

	v, found := walk(raw, ref.Path.Segments)
	if !found {
		return nil, true
	}
	switch ref.Access {
	case domain.AccessTyped:
		if v == nil {
			return jsonNull{}, false
		}
		return normalizeJSON(v), false
	case domain.AccessNumeric:
		text, ok := jsonText(v)
		if !ok || !operators.NumericText.MatchString(text) {
			return nil, true
		}
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, true
		}
		return f, false
	default:
		text, ok := jsonText(v)
		if !ok {
			return nil, true
		}
		return text, false
	}
}

func walk(v interface{}, segments []jsonpath.Segment) (interface{}, bool) {
	if s, ok := v.(string); ok {
		// JSON columns may be stored as raw text.
		// UseNumber keeps the stored number text, so 25.0 reads back as
		// "25.0" through the text accessor.
		dec := json.NewDecoder(strings.NewReader(s))
		dec.UseNumber()
		var decoded interface{}
		if err := dec.Decode(&decoded); err == nil && !dec.More() {
			v = decoded
		}
	}
	for _, seg := range segments {
		if seg.IsIndex {
			list, ok := asList(v)
			if !ok || seg.Index >= len(list) {
				return nil, false
			}
			v = list[seg.Index]
			continue
		}
		obj, ok := v.(map[string]interface{})
		if !ok {
			return nil, false
		}
		v, ok = obj[seg.Key]
		if !ok {
			return nil, false
		}
	}
	return v, true
}

// jsonText mirrors PostgreSQL's #>> operator: strings unquoted, null as
// SQL NULL, containers as JSON text. Numbers decoded from stored JSON text
// keep their source spelling. Go float64 values carry no source text and
// render in shortest form, so 25.0 reads as "25".
func jsonText(v interface{}) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case bool:
		return strconv.FormatBool(x), true
	case json.Number:
		return x.String(), true
	}
	if n, ok := number(v); ok {
		return strconv.FormatFloat(n, 'f', -1, 64), true
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", false
	}
	return string(b), true
}

func textOf(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	}
	return fmt.Sprint(v)
}

func normalizeJSON(v interface{}) interface{} {
	if n, ok := number(v); ok {
		return n
	}
	return v
}

func number(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	}
	return 0, false
}

func asList(v interface{}) ([]interface{}, bool) {
	switch x := v.(type) {
	case []interface{}:
		return x, true
	case []string:
		out := make([]interface{}, len(x))
		for i, s := range x {
			out[i] = s
		}
		return out, true
	case []int64:
		out := make([]interface{}, len(x))
		for i, n := range x {
			out[i] = n
		}
		return out, true
	case []int:
		out := make([]interface{}, len(x))
		for i, n := range x {
			out[i] = n
		}
		return out, true
	}
	return nil, false
}

// compare orders two non-null scalars. ok is false when they are not
// comparable, which SQL would treat as NULL.
func compare(a, b interface{}) (int, bool) {
	if x, ok := number(a); ok {
		y, ok := number(b)
		if !ok {
			return 0, false
		}
		return cmpFloat(x, y), true
	}
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	case bool:
		y, ok := b.(bool)
		if !ok {
			return 0, false
		}
		return cmpBool(x, y), true
	case time.Time:
		switch y := b.(type) {
		case time.Time:
			return x.Compare(y), true
		case string:
			t, err := time.Parse(time.RFC3339Nano, y)
			if err != nil {
				return 0, false
			}
			return x.Compare(t), true
		}
	}
	return 0, false
}

func cmpFloat(x, y float64) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

func cmpBool(x, y bool) int {
	switch {
	case x == y:
		return 0
	case !x:
		return -1
	}
	return 1
}

// likeRegexp converts a LIKE pattern: % is any run, _ any single
// character, and a backslash escapes the next character.
func likeRegexp(pattern string, fold bool) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("(?s)")
	if fold {
		b.WriteString("(?i)")
	}
	b.WriteString("^")
	escaped := false
	for _, r := range pattern {
		switch {
		case escaped:
			b.WriteString(regexp.QuoteMeta(string(r)))
			escaped = false
		case r == '\\':
			escaped = true
		case r == '%':
			b.WriteString(".*")
		case r == '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}
