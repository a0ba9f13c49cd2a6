package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/prisma-filter/internal/core/query/domain"
	"github.com/satishbabariya/prisma-filter/internal/core/query/eval"
	"github.com/satishbabariya/prisma-filter/internal/core/query/parser"
	"github.com/satishbabariya/prisma-filter/internal/core/schema"
)

// testCatalog links posts, comments and users:
// posts -> comments (hasMany), posts -> author (belongsTo users),
// comments -> author (belongsTo users).
func testCatalog(t *testing.T) *schema.Catalog {
	t.Helper()

	posts := schema.NewEntity("posts",
		schema.Column{Name: "id", Type: schema.TypeInteger},
		schema.Column{Name: "status", Type: schema.TypeText},
		schema.Column{Name: "title", Type: schema.TypeText},
		schema.Column{Name: "name", Type: schema.TypeText},
		schema.Column{Name: "price", Type: schema.TypeNumeric},
		schema.Column{Name: "priority", Type: schema.TypeInteger},
		schema.Column{Name: "deletedAt", Type: schema.TypeTimestamp},
		schema.Column{Name: "metadata", Type: schema.TypeJSONB},
		schema.Column{Name: "tags", Type: schema.TypeText, Array: true},
		schema.Column{Name: "a", Type: schema.TypeInteger},
		schema.Column{Name: "b", Type: schema.TypeInteger},
		schema.Column{Name: "c", Type: schema.TypeInteger},
	).
		WithRelation("comments", "comments", schema.HasMany).
		WithRelation("author", "users", schema.BelongsTo)

	comments := schema.NewEntity("comments",
		schema.Column{Name: "id", Type: schema.TypeInteger},
		schema.Column{Name: "body", Type: schema.TypeText},
		schema.Column{Name: "approved", Type: schema.TypeBoolean},
		schema.Column{Name: "extra", Type: schema.TypeJSON},
	).WithRelation("author", "users", schema.BelongsTo)

	users := schema.NewEntity("users",
		schema.Column{Name: "id", Type: schema.TypeInteger},
		schema.Column{Name: "email", Type: schema.TypeText},
	)

	docs := schema.NewEntity("docs",
		schema.Column{Name: "id", Type: schema.TypeInteger},
		schema.Column{Name: "a", Type: schema.TypeJSONB},
	)

	c := schema.NewCatalog()
	require.NoError(t, c.Register(posts, comments, users, docs))
	require.NoError(t, c.Link())
	return c
}

func entity(t *testing.T, name string) *schema.Entity {
	t.Helper()
	e, err := testCatalog(t).Entity(name)
	require.NoError(t, err)
	return e
}

func parse(t *testing.T, doc string) *domain.FilterSpec {
	t.Helper()
	spec, _, err := parser.New(parser.Options{}).Parse([]byte(doc))
	require.NoError(t, err)
	return spec
}

func compile(t *testing.T, e *schema.Entity, doc string) *domain.QueryOptions {
	t.Helper()
	opts, err := New(Options{}).Compile(e, parse(t, doc))
	require.NoError(t, err)
	return opts
}

func compileErr(t *testing.T, e *schema.Entity, doc string) error {
	t.Helper()
	_, err := New(Options{}).Compile(e, parse(t, doc))
	require.Error(t, err)
	return err
}

func matchIDs(rows []eval.Row, p domain.Predicate) []int {
	out := []int{}
	for _, r := range eval.Filter(rows, p) {
		out = append(out, r["id"].(int))
	}
	return out
}

func postRows() []eval.Row {
	return []eval.Row{
		{
			"id": 1, "status": "active", "price": 100, "title": "Go in Action",
			"tags":      []interface{}{"go", "sql"},
			"metadata":  map[string]interface{}{"score": "10", "role": "admin", "active": true},
			"deletedAt": nil,
		},
		{
			"id": 2, "status": "draft", "price": 250.5, "title": "rust book",
			"tags":      []interface{}{"rust"},
			"metadata":  map[string]interface{}{"score": 25.0, "role": "user", "active": false},
			"deletedAt": "2024-01-01T00:00:00Z",
		},
		{
			"id": 3, "status": "active", "price": 50, "title": "GOLANG tips",
			"tags":      []interface{}{},
			"metadata":  map[string]interface{}{"score": "n/a", "role": nil},
			"deletedAt": nil,
		},
		{
			"id": 4, "status": nil, "price": nil, "title": "misc",
			"tags":      nil,
			"metadata":  nil,
			"deletedAt": nil,
		},
	}
}
