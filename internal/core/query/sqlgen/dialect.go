package sqlgen

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/satishbabariya/prisma-filter/internal/core/query/domain"
	"github.com/satishbabariya/prisma-filter/internal/core/query/jsonpath"
	"github.com/satishbabariya/prisma-filter/internal/core/query/operators"
)

// expr is a rendered SQL fragment with its bind arguments in order.
type expr struct {
	sql  string
	args []interface{}
}

// dialect renders the parts of a predicate that differ between databases.
// Path segments only contain identifier characters and digits, so they
// are safe inside SQL string literals.
type dialect interface {
	quote(ident string) string
	text(col string, path *jsonpath.Path) expr
	numeric(col string, path *jsonpath.Path) expr
	// typed returns the ORDER BY keys for a JSON path: the type rank
	// (null < boolean < number < string < array < object, NULL when the
	// path is missing) followed by one value key per type, NULL for every
	// other type.
	typed(col string, path *jsonpath.Path) []expr
	pattern(target expr, p *domain.Pattern) expr
	regex(target expr, r *domain.RegexMatch) expr
	arraySet(target expr, a *domain.ArraySet) (expr, error)
	// nullsOrdered reports whether ORDER BY already sorts NULLs last
	// ascending and first descending.
	nullsOrdered() bool
	// unboundedLimit is the LIMIT rendered when only OFFSET is given, or
	// zero when OFFSET may stand alone.
	unboundedLimit() uint64
}

func dialectFor(d domain.SQLDialect) (dialect, error) {
	switch d {
	case domain.PostgreSQL:
		return postgres{}, nil
	case domain.MySQL:
		return mysql{}, nil
	case domain.SQLite:
		return sqlite{}, nil
	}
	return nil, fmt.Errorf("unsupported dialect: %s", d)
}

// numericPattern is bound as a parameter: squirrel reads every literal ?
// as a placeholder.
var numericPattern = operators.NumericText.String()

// --- PostgreSQL ---

type postgres struct{}

func (postgres) quote(ident string) string { return pq.QuoteIdentifier(ident) }

func (d postgres) pathLiteral(path *jsonpath.Path) string {
	return "'{" + strings.Join(path.Elements(), ",") + "}'"
}

func (d postgres) text(col string, path *jsonpath.Path) expr {
	return expr{sql: fmt.Sprintf("(%s #>> %s)", d.quote(col), d.pathLiteral(path))}
}

func (d postgres) numeric(col string, path *jsonpath.Path) expr {
	t := d.text(col, path).sql
	return expr{
		sql:  fmt.Sprintf("(CASE WHEN %s ~ ? THEN %s::numeric END)", t, t),
		args: []interface{}{numericPattern},
	}
}

// json has no ordering operators, so the column is read as jsonb.
func (d postgres) typed(col string, path *jsonpath.Path) []expr {
	v := fmt.Sprintf("(%s::jsonb #> %s)", d.quote(col), d.pathLiteral(path))
	t := "jsonb_typeof(" + v + ")"
	return []expr{
		{sql: fmt.Sprintf("(CASE %s WHEN 'null' THEN 0 WHEN 'boolean' THEN 1 WHEN 'number' THEN 2 WHEN 'string' THEN 3 WHEN 'array' THEN 4 WHEN 'object' THEN 5 END)", t)},
		{sql: fmt.Sprintf("(CASE WHEN %s = 'boolean' THEN %s::boolean END)", t, v)},
		{sql: fmt.Sprintf("(CASE WHEN %s = 'number' THEN %s::numeric END)", t, v)},
		{sql: fmt.Sprintf(`(CASE WHEN %s = 'string' THEN (%s #>> '{}') COLLATE "C" END)`, t, v)},
		{sql: fmt.Sprintf("(CASE WHEN %s IN ('array', 'object') THEN %s END)", t, v)},
	}
}

func (postgres) pattern(target expr, p *domain.Pattern) expr {
	op := "LIKE"
	if p.Fold {
		op = "ILIKE"
	}
	if p.Not {
		op = "NOT " + op
	}
	return expr{sql: fmt.Sprintf("%s %s ?", target.sql, op), args: append(target.args, p.Pattern)}
}

func (postgres) regex(target expr, r *domain.RegexMatch) expr {
	op := "~"
	if r.Fold {
		op = "~*"
	}
	return expr{sql: fmt.Sprintf("%s %s ?", target.sql, op), args: append(target.args, r.Pattern)}
}

var postgresSetOps = map[domain.SetOp]string{
	domain.SetContains:    "@>",
	domain.SetContainedBy: "<@",
	domain.SetOverlaps:    "&&",
}

func (postgres) arraySet(target expr, a *domain.ArraySet) (expr, error) {
	op, ok := postgresSetOps[a.Op]
	if !ok {
		return expr{}, fmt.Errorf("unsupported set operator: %s", a.Op)
	}
	return expr{sql: fmt.Sprintf("%s %s ?", target.sql, op), args: append(target.args, arrayParam(a.Values))}, nil
}

func (postgres) nullsOrdered() bool { return true }

func (postgres) unboundedLimit() uint64 { return 0 }

// arrayParam binds values as a PostgreSQL array, typed when the elements
// share a type.
func arrayParam(values []interface{}) interface{} {
	var (
		strs   = make(pq.StringArray, 0, len(values))
		ints   = make(pq.Int64Array, 0, len(values))
		floats = make(pq.Float64Array, 0, len(values))
		bools  = make(pq.BoolArray, 0, len(values))
	)
	for _, v := range values {
		switch x := v.(type) {
		case string:
			strs = append(strs, x)
		case int64:
			ints = append(ints, x)
		case float64:
			floats = append(floats, x)
		case bool:
			bools = append(bools, x)
		}
	}
	switch len(values) {
	case len(strs):
		return strs
	case len(ints):
		return ints
	case len(floats):
		return floats
	case len(bools):
		return bools
	}
	return pq.Array(values)
}

// --- MySQL ---

type mysql struct{}

func (mysql) quote(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

// jsonPathLiteral renders a MySQL / SQLite path such as '$.a."b-c"[0]'.
func jsonPathLiteral(path *jsonpath.Path) string {
	var b strings.Builder
	b.WriteString("'$")
	for _, seg := range path.Segments {
		switch {
		case seg.IsIndex:
			fmt.Fprintf(&b, "[%d]", seg.Index)
		case strings.Contains(seg.Key, "-"):
			fmt.Fprintf(&b, ".\"%s\"", seg.Key)
		default:
			b.WriteString(".")
			b.WriteString(seg.Key)
		}
	}
	b.WriteString("'")
	return b.String()
}

func (d mysql) extract(col string, path *jsonpath.Path) string {
	return fmt.Sprintf("JSON_EXTRACT(%s, %s)", d.quote(col), jsonPathLiteral(path))
}

func (d mysql) text(col string, path *jsonpath.Path) expr {
	e := d.extract(col, path)
	return expr{sql: fmt.Sprintf("(CASE WHEN JSON_TYPE(%s) <> 'NULL' THEN JSON_UNQUOTE(%s) END)", e, e)}
}

func (d mysql) numeric(col string, path *jsonpath.Path) expr {
	t := d.text(col, path).sql
	return expr{
		sql:  fmt.Sprintf("(CASE WHEN REGEXP_LIKE(%s, ?) THEN CAST(%s AS DECIMAL(65,30)) END)", t, t),
		args: []interface{}{numericPattern},
	}
}

func (d mysql) typed(col string, path *jsonpath.Path) []expr {
	v := d.extract(col, path)
	t := "JSON_TYPE(" + v + ")"
	return []expr{
		{sql: fmt.Sprintf("(CASE %s WHEN 'NULL' THEN 0 WHEN 'BOOLEAN' THEN 1 WHEN 'INTEGER' THEN 2 WHEN 'UNSIGNED INTEGER' THEN 2 WHEN 'DOUBLE' THEN 2 WHEN 'DECIMAL' THEN 2 WHEN 'STRING' THEN 3 WHEN 'ARRAY' THEN 4 WHEN 'OBJECT' THEN 5 END)", t)},
		{sql: fmt.Sprintf("(CASE WHEN %s = 'BOOLEAN' THEN JSON_UNQUOTE(%s) END)", t, v)},
		{sql: fmt.Sprintf("(CASE WHEN %s IN ('INTEGER', 'UNSIGNED INTEGER', 'DOUBLE', 'DECIMAL') THEN CAST(JSON_UNQUOTE(%s) AS DOUBLE) END)", t, v)},
		{sql: fmt.Sprintf("(CASE WHEN %s = 'STRING' THEN CAST(JSON_UNQUOTE(%s) AS BINARY) END)", t, v)},
		{sql: fmt.Sprintf("(CASE WHEN %s IN ('ARRAY', 'OBJECT') THEN %s END)", t, v)},
	}
}

func (mysql) pattern(target expr, p *domain.Pattern) expr {
	op := "LIKE"
	if p.Not {
		op = "NOT LIKE"
	}
	if p.Fold {
		return expr{sql: fmt.Sprintf("LOWER(%s) %s LOWER(?)", target.sql, op), args: append(target.args, p.Pattern)}
	}
	return expr{sql: fmt.Sprintf("%s %s BINARY ?", target.sql, op), args: append(target.args, p.Pattern)}
}

func (mysql) regex(target expr, r *domain.RegexMatch) expr {
	mode := "c"
	if r.Fold {
		mode = "i"
	}
	return expr{sql: fmt.Sprintf("REGEXP_LIKE(%s, ?, '%s')", target.sql, mode), args: append(target.args, r.Pattern)}
}

// Array columns are JSON arrays in MySQL.
func (mysql) arraySet(target expr, a *domain.ArraySet) (expr, error) {
	doc, err := json.Marshal(a.Values)
	if err != nil {
		return expr{}, err
	}
	switch a.Op {
	case domain.SetContains:
		return expr{sql: fmt.Sprintf("JSON_CONTAINS(%s, ?)", target.sql), args: append(target.args, string(doc))}, nil
	case domain.SetContainedBy:
		args := append([]interface{}{string(doc)}, target.args...)
		return expr{sql: fmt.Sprintf("JSON_CONTAINS(?, %s)", target.sql), args: args}, nil
	case domain.SetOverlaps:
		return expr{sql: fmt.Sprintf("JSON_OVERLAPS(%s, ?)", target.sql), args: append(target.args, string(doc))}, nil
	}
	return expr{}, fmt.Errorf("unsupported set operator: %s", a.Op)
}

func (mysql) nullsOrdered() bool { return false }

func (mysql) unboundedLimit() uint64 { return 18446744073709551615 }

// --- SQLite ---

type sqlite struct{}

func (sqlite) quote(ident string) string { return pq.QuoteIdentifier(ident) }

func (d sqlite) text(col string, path *jsonpath.Path) expr {
	c, p := d.quote(col), jsonPathLiteral(path)
	return expr{sql: fmt.Sprintf(
		"(CASE json_type(%s, %s) WHEN 'true' THEN 'true' WHEN 'false' THEN 'false' WHEN 'null' THEN NULL ELSE CAST(json_extract(%s, %s) AS TEXT) END)",
		c, p, c, p)}
}

func (d sqlite) numeric(col string, path *jsonpath.Path) expr {
	c, p := d.quote(col), jsonPathLiteral(path)
	return expr{
		sql: fmt.Sprintf(
			"(CASE WHEN json_type(%s, %s) IN ('integer', 'real', 'text') AND CAST(json_extract(%s, %s) AS TEXT) REGEXP ? THEN CAST(json_extract(%s, %s) AS REAL) END)",
			c, p, c, p, c, p),
		args: []interface{}{numericPattern},
	}
}

// json_extract turns JSON booleans into 0/1 and JSON null into NULL, so
// the rank and boolean keys read json_type instead.
func (d sqlite) typed(col string, path *jsonpath.Path) []expr {
	c, p := d.quote(col), jsonPathLiteral(path)
	t := fmt.Sprintf("json_type(%s, %s)", c, p)
	v := fmt.Sprintf("json_extract(%s, %s)", c, p)
	return []expr{
		{sql: fmt.Sprintf("(CASE %s WHEN 'null' THEN 0 WHEN 'false' THEN 1 WHEN 'true' THEN 1 WHEN 'integer' THEN 2 WHEN 'real' THEN 2 WHEN 'text' THEN 3 WHEN 'array' THEN 4 WHEN 'object' THEN 5 END)", t)},
		{sql: fmt.Sprintf("(CASE %s WHEN 'false' THEN 0 WHEN 'true' THEN 1 END)", t)},
		{sql: fmt.Sprintf("(CASE WHEN %s IN ('integer', 'real') THEN %s END)", t, v)},
		{sql: fmt.Sprintf("(CASE WHEN %s = 'text' THEN %s END)", t, v)},
		{sql: fmt.Sprintf("(CASE WHEN %s IN ('array', 'object') THEN %s END)", t, v)},
	}
}

// Case-sensitive patterns become GLOB because SQLite's LIKE folds ASCII.
func (sqlite) pattern(target expr, p *domain.Pattern) expr {
	not := ""
	if p.Not {
		not = "NOT "
	}
	if p.Fold {
		return expr{sql: fmt.Sprintf(`%s %sLIKE ? ESCAPE '\'`, target.sql, not), args: append(target.args, p.Pattern)}
	}
	return expr{sql: fmt.Sprintf("%s %sGLOB ?", target.sql, not), args: append(target.args, likeToGlob(p.Pattern))}
}

// regex needs the regexp function that RegisterSQLite installs.
func (sqlite) regex(target expr, r *domain.RegexMatch) expr {
	pattern := r.Pattern
	if r.Fold {
		pattern = "(?i)" + pattern
	}
	return expr{sql: fmt.Sprintf("%s REGEXP ?", target.sql), args: append(target.args, pattern)}
}

// Array columns are JSON arrays in SQLite; set operators go through
// json_each.
func (sqlite) arraySet(target expr, a *domain.ArraySet) (expr, error) {
	doc, err := json.Marshal(a.Values)
	if err != nil {
		return expr{}, err
	}
	col := target.sql
	var sql string
	switch a.Op {
	case domain.SetContains:
		sql = fmt.Sprintf("(%s IS NOT NULL AND NOT EXISTS (SELECT 1 FROM json_each(?) AS o WHERE o.value NOT IN (SELECT value FROM json_each(%s))))", col, col)
	case domain.SetContainedBy:
		sql = fmt.Sprintf("(%s IS NOT NULL AND NOT EXISTS (SELECT 1 FROM json_each(%s) AS c WHERE c.value NOT IN (SELECT value FROM json_each(?))))", col, col)
	case domain.SetOverlaps:
		sql = fmt.Sprintf("(%s IS NOT NULL AND EXISTS (SELECT 1 FROM json_each(%s) AS c WHERE c.value IN (SELECT value FROM json_each(?))))", col, col)
	default:
		return expr{}, fmt.Errorf("unsupported set operator: %s", a.Op)
	}
	return expr{sql: sql, args: []interface{}{string(doc)}}, nil
}

func (sqlite) nullsOrdered() bool { return false }

func (sqlite) unboundedLimit() uint64 { return 9223372036854775807 }

// likeToGlob rewrites a LIKE pattern for GLOB: % becomes *, _ becomes ?,
// and literal GLOB metacharacters are bracketed.
func likeToGlob(pattern string) string {
	var b strings.Builder
	escaped := false
	for _, r := range pattern {
		switch {
		case escaped:
			b.WriteString(globLiteral(r))
			escaped = false
		case r == '\\':
			escaped = true
		case r == '%':
			b.WriteByte('*')
		case r == '_':
			b.WriteByte('?')
		default:
			b.WriteString(globLiteral(r))
		}
	}
	return b.String()
}

func globLiteral(r rune) string {
	switch r {
	case '*', '?', '[':
		return "[" + string(r) + "]"
	}
	return string(r)
}
