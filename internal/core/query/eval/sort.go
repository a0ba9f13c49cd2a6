package eval

import (
	"sort"
	"strings"

	"github.com/satishbabariya/prisma-filter/internal/core/query/domain"
)

// Sort orders rows in place by the directives, left to right. The sort is
// stable, so rows tied on every key keep their input order. NULLs sort
// last ascending and first descending.
func Sort(rows []Row, order []domain.SortDirective) {
	if len(order) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, d := range order {
			c := compareForSort(d.Ref, rows[i], rows[j])
			if d.Direction == domain.Desc {
				c = -c
			}
			if c != 0 {
				return c < 0
			}
		}
		return false
	})
}

// compareForSort compares ascending with NULLs greater than any value.
func compareForSort(ref domain.ValueRef, a, b Row) int {
	va, nullA := read(ref, a)
	vb, nullB := read(ref, b)
	switch {
	case nullA && nullB:
		return 0
	case nullA:
		return 1
	case nullB:
		return -1
	}
	if ref.Access == domain.AccessTyped {
		return compareJSON(va, vb)
	}
	if c, ok := compare(va, vb); ok {
		return c
	}
	return strings.Compare(textOf(va), textOf(vb))
}

// JSON type order: null < boolean < number < string < array < object.
func jsonRank(v interface{}) int {
	switch v.(type) {
	case jsonNull:
		return 0
	case bool:
		return 1
	case float64:
		return 2
	case string:
		return 3
	case []interface{}:
		return 4
	}
	return 5
}

func compareJSON(a, b interface{}) int {
	ra, rb := jsonRank(a), jsonRank(b)
	if ra != rb {
		return ra - rb
	}
	if c, ok := compare(a, b); ok {
		return c
	}
	if ra == 4 {
		la, lb := a.([]interface{}), b.([]interface{})
		for i := 0; i < len(la) && i < len(lb); i++ {
			if c := compareJSON(normalizeElem(la[i]), normalizeElem(lb[i])); c != 0 {
				return c
			}
		}
		return len(la) - len(lb)
	}
	return strings.Compare(textOf(a), textOf(b))
}

func normalizeElem(v interface{}) interface{} {
	if v == nil {
		return jsonNull{}
	}
	return normalizeJSON(v)
}

// Apply runs opts over rows the way a database would: filter, sort,
// offset, limit, then project Columns. Relation scopes in opts.With are
// not evaluated.
func Apply(rows []Row, opts *domain.QueryOptions) []Row {
	if opts == nil {
		return rows
	}
	out := Filter(rows, opts.Where)
	Sort(out, opts.OrderBy)

	if opts.Offset != nil {
		if *opts.Offset >= len(out) {
			out = out[:0]
		} else {
			out = out[*opts.Offset:]
		}
	}
	if opts.Limit != nil && *opts.Limit < len(out) {
		out = out[:*opts.Limit]
	}

	if len(opts.Columns) == 0 {
		return out
	}
	projected := make([]Row, len(out))
	for i, r := range out {
		p := make(Row, len(opts.Columns))
		for _, c := range opts.Columns {
			if v, ok := r[c]; ok {
				p[c] = v
			}
		}
		projected[i] = p
	}
	return projected
}
