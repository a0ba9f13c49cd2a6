package sqlgen

import (
	"strings"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/prisma-filter/internal/core/query/compiler"
	"github.com/satishbabariya/prisma-filter/internal/core/query/domain"
	"github.com/satishbabariya/prisma-filter/internal/core/query/parser"
	"github.com/satishbabariya/prisma-filter/internal/core/schema"
)

func postsEntity(t *testing.T) *schema.Entity {
	t.Helper()
	posts := schema.NewEntity("posts",
		schema.Column{Name: "id", Type: schema.TypeInteger},
		schema.Column{Name: "status", Type: schema.TypeText},
		schema.Column{Name: "title", Type: schema.TypeText},
		schema.Column{Name: "price", Type: schema.TypeNumeric},
		schema.Column{Name: "deletedAt", Type: schema.TypeTimestamp},
		schema.Column{Name: "metadata", Type: schema.TypeJSONB},
		schema.Column{Name: "tags", Type: schema.TypeText, Array: true},
	)
	c := schema.NewCatalog()
	require.NoError(t, c.Register(posts))
	require.NoError(t, c.Link())
	return posts
}

func compileFilter(t *testing.T, e *schema.Entity, doc string) *domain.QueryOptions {
	t.Helper()
	spec, _, err := parser.New(parser.Options{}).Parse([]byte(doc))
	require.NoError(t, err)
	opts, err := compiler.New(compiler.Options{}).Compile(e, spec)
	require.NoError(t, err)
	return opts
}

func generator(t *testing.T, d domain.SQLDialect) *Generator {
	t.Helper()
	g, err := New(d)
	require.NoError(t, err)
	return g
}

func TestNew_UnknownDialect(t *testing.T) {
	_, err := New("oracle")
	assert.Error(t, err)
}

func TestPostgres_Select(t *testing.T) {
	posts := postsEntity(t)
	g := generator(t, domain.PostgreSQL)

	opts := compileFilter(t, posts, `{"where":{"status":"active","price":{"gte":100}},"order":["id DESC"],"limit":10}`)
	sql, args, err := g.Select(posts, opts)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "posts" WHERE ("status" = $1 AND "price" >= $2) ORDER BY "id" DESC LIMIT 10`, sql)
	assert.Equal(t, []interface{}{"active", int64(100)}, args)

	opts = compileFilter(t, posts, `{"fields":["id","title"],"offset":5,"order":["metadata.rank DESC"]}`)
	sql, args, err = g.Select(posts, opts)
	require.NoError(t, err)
	v := `("metadata"::jsonb #> '{rank}')`
	assert.Equal(t, `SELECT "id", "title" FROM "posts" ORDER BY `+strings.Join([]string{
		`(CASE jsonb_typeof(` + v + `) WHEN 'null' THEN 0 WHEN 'boolean' THEN 1 WHEN 'number' THEN 2 WHEN 'string' THEN 3 WHEN 'array' THEN 4 WHEN 'object' THEN 5 END) DESC`,
		`(CASE WHEN jsonb_typeof(` + v + `) = 'boolean' THEN ` + v + `::boolean END) DESC`,
		`(CASE WHEN jsonb_typeof(` + v + `) = 'number' THEN ` + v + `::numeric END) DESC`,
		`(CASE WHEN jsonb_typeof(` + v + `) = 'string' THEN (` + v + ` #>> '{}') COLLATE "C" END) DESC`,
		`(CASE WHEN jsonb_typeof(` + v + `) IN ('array', 'object') THEN ` + v + ` END) DESC`,
	}, ", ")+` OFFSET 5`, sql)
	assert.Empty(t, args)
}

func TestSelect_JSONOrderKeys(t *testing.T) {
	posts := postsEntity(t)
	opts := compileFilter(t, posts, `{"order":["metadata.rank"]}`)

	tests := []struct {
		dialect domain.SQLDialect
		first   string
	}{
		{domain.PostgreSQL, `ORDER BY (CASE jsonb_typeof(("metadata"::jsonb #> '{rank}')) WHEN 'null' THEN 0 `},
		{domain.MySQL, "ORDER BY ((CASE JSON_TYPE(JSON_EXTRACT(`metadata`, '$.rank')) WHEN 'NULL' THEN 0 "},
		{domain.SQLite, `ORDER BY ((CASE json_type("metadata", '$.rank') WHEN 'null' THEN 0 `},
	}
	for _, tt := range tests {
		t.Run(string(tt.dialect), func(t *testing.T) {
			sql, args, err := generator(t, tt.dialect).Select(posts, opts)
			require.NoError(t, err)
			assert.Empty(t, args)
			assert.Contains(t, sql, tt.first)
			assert.NotContains(t, sql, "#> '{rank}') ASC")
		})
	}
}

func TestPostgres_Predicates(t *testing.T) {
	posts := postsEntity(t)
	g := generator(t, domain.PostgreSQL)

	tests := []struct {
		where string
		sql   string
		args  []interface{}
	}{
		{`{"title":{"like":"go%"}}`, `"title" LIKE $1`, []interface{}{"go%"}},
		{`{"title":{"nilike":"go%"}}`, `"title" NOT ILIKE $1`, []interface{}{"go%"}},
		{`{"title":{"regexp":"^go"}}`, `"title" ~ $1`, []interface{}{"^go"}},
		{`{"title":{"iregexp":"^go"}}`, `"title" ~* $1`, []interface{}{"^go"}},
		{`{"id":{"nin":[1,2]}}`, `"id" NOT IN ($1, $2)`, []interface{}{int64(1), int64(2)}},
		{`{"price":{"notBetween":[1,2]}}`, `"price" NOT BETWEEN $1 AND $2`, []interface{}{int64(1), int64(2)}},
		{`{"deletedAt":null}`, `"deletedAt" IS NULL`, nil},
		{`{"deletedAt":{"isn":null}}`, `"deletedAt" IS NOT NULL`, nil},
		{`{"id":{"in":[]}}`, `1=0`, nil},
		{`{"id":{"nin":[]}}`, `1=1`, nil},
		{`{"metadata.user.role":"admin"}`, `("metadata" #>> '{user,role}') = $1`, []interface{}{"admin"}},
		{`{"metadata.tags[0]":true}`, `("metadata" #>> '{tags,0}') = $1`, []interface{}{"true"}},
		{`{"or":[{"status":"a"},{"id":1}]}`, `("status" = $1 OR "id" = $2)`, []interface{}{"a", int64(1)}},
		{
			`{"metadata.score":{"gt":5}}`,
			`(CASE WHEN ("metadata" #>> '{score}') ~ $1 THEN ("metadata" #>> '{score}')::numeric END) > $2`,
			[]interface{}{numericPattern, int64(5)},
		},
		{
			`{"metadata.score":{"between":[1,"2.5"]}}`,
			`(CASE WHEN ("metadata" #>> '{score}') ~ $1 THEN ("metadata" #>> '{score}')::numeric END) BETWEEN $2 AND $3`,
			[]interface{}{numericPattern, int64(1), 2.5},
		},
		{`{"tags":{"contains":["go","sql"]}}`, `"tags" @> $1`, []interface{}{pq.StringArray{"go", "sql"}}},
		{`{"tags":{"containedBy":[]}}`, `"tags" <@ $1`, []interface{}{pq.StringArray{}}},
		{`{"tags":{"overlaps":[1,2]}}`, `"tags" && $1`, []interface{}{pq.Int64Array{1, 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.where, func(t *testing.T) {
			opts := compileFilter(t, posts, `{"where":`+tt.where+`}`)
			sql, args, err := g.Where(opts.Where)
			require.NoError(t, err)
			assert.Equal(t, tt.sql, sql)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestMySQL_Select(t *testing.T) {
	posts := postsEntity(t)
	g := generator(t, domain.MySQL)

	opts := compileFilter(t, posts, `{"fields":["id"],"where":{"metadata.a-b":"x"},"order":["id DESC"],"offset":5}`)
	sql, args, err := g.Select(posts, opts)
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT `id` FROM `posts` WHERE "+
			"(CASE WHEN JSON_TYPE(JSON_EXTRACT(`metadata`, '$.\"a-b\"')) <> 'NULL' THEN JSON_UNQUOTE(JSON_EXTRACT(`metadata`, '$.\"a-b\"')) END) = ? "+
			"ORDER BY (`id` IS NULL) DESC, `id` DESC LIMIT 18446744073709551615 OFFSET 5",
		sql)
	assert.Equal(t, []interface{}{"x"}, args)
}

func TestMySQL_Predicates(t *testing.T) {
	posts := postsEntity(t)
	g := generator(t, domain.MySQL)

	tests := []struct {
		where string
		sql   string
		args  []interface{}
	}{
		{`{"title":{"like":"go%"}}`, "`title` LIKE BINARY ?", []interface{}{"go%"}},
		{`{"title":{"ilike":"go%"}}`, "LOWER(`title`) LIKE LOWER(?)", []interface{}{"go%"}},
		{`{"title":{"regexp":"^go"}}`, "REGEXP_LIKE(`title`, ?, 'c')", []interface{}{"^go"}},
		{`{"title":{"iregexp":"^go"}}`, "REGEXP_LIKE(`title`, ?, 'i')", []interface{}{"^go"}},
		{`{"tags":{"contains":["go"]}}`, "JSON_CONTAINS(`tags`, ?)", []interface{}{`["go"]`}},
		{`{"tags":{"containedBy":["go"]}}`, "JSON_CONTAINS(?, `tags`)", []interface{}{`["go"]`}},
		{`{"tags":{"overlaps":["go"]}}`, "JSON_OVERLAPS(`tags`, ?)", []interface{}{`["go"]`}},
		{
			`{"metadata.items[2]":{"lt":3}}`,
			"(CASE WHEN REGEXP_LIKE((CASE WHEN JSON_TYPE(JSON_EXTRACT(`metadata`, '$.items[2]')) <> 'NULL' THEN JSON_UNQUOTE(JSON_EXTRACT(`metadata`, '$.items[2]')) END), ?) " +
				"THEN CAST((CASE WHEN JSON_TYPE(JSON_EXTRACT(`metadata`, '$.items[2]')) <> 'NULL' THEN JSON_UNQUOTE(JSON_EXTRACT(`metadata`, '$.items[2]')) END) AS DECIMAL(65,30)) END) < ?",
			[]interface{}{numericPattern, int64(3)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.where, func(t *testing.T) {
			opts := compileFilter(t, posts, `{"where":`+tt.where+`}`)
			sql, args, err := g.Where(opts.Where)
			require.NoError(t, err)
			assert.Equal(t, tt.sql, sql)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestLikeToGlob(t *testing.T) {
	assert.Equal(t, "Go*", likeToGlob("Go%"))
	assert.Equal(t, "a?c", likeToGlob("a_c"))
	assert.Equal(t, "100%", likeToGlob(`100\%`))
	assert.Equal(t, "[*][?][[]x_", likeToGlob(`*?[x\_`))
}

func TestWhere_Nil(t *testing.T) {
	sql, args, err := generator(t, domain.SQLite).Where(nil)
	require.NoError(t, err)
	assert.Empty(t, sql)
	assert.Nil(t, args)
}
