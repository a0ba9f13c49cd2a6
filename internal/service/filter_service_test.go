package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/prisma-filter/internal/adapters/telemetry"
	"github.com/satishbabariya/prisma-filter/internal/config"
	"github.com/satishbabariya/prisma-filter/internal/core/query/domain"
	"github.com/satishbabariya/prisma-filter/internal/core/query/eval"
	"github.com/satishbabariya/prisma-filter/internal/core/query/parser"
	"github.com/satishbabariya/prisma-filter/internal/core/schema"
	"github.com/satishbabariya/prisma-filter/internal/debug"
	"github.com/satishbabariya/prisma-filter/internal/repository"
)

func testCatalog(t *testing.T) *schema.Catalog {
	t.Helper()

	posts := schema.NewEntity("posts",
		schema.Column{Name: "id", Type: schema.TypeInteger},
		schema.Column{Name: "status", Type: schema.TypeText},
		schema.Column{Name: "deletedAt", Type: schema.TypeTimestamp},
		schema.Column{Name: "metadata", Type: schema.TypeJSONB},
	).
		WithRelation("comments", "comments", schema.HasMany).
		WithDefaultFilter(`{"where":{"deletedAt":null}}`)

	comments := schema.NewEntity("comments",
		schema.Column{Name: "id", Type: schema.TypeInteger},
		schema.Column{Name: "body", Type: schema.TypeText},
	)

	c := schema.NewCatalog()
	require.NoError(t, c.Register(posts, comments))
	require.NoError(t, c.Link())
	return c
}

func newService(t *testing.T, opts Options) *FilterService {
	t.Helper()
	s, err := NewFilterService(testCatalog(t), opts)
	require.NoError(t, err)
	return s
}

func postRows() []eval.Row {
	return []eval.Row{
		{"id": 1, "status": "published", "deletedAt": nil},
		{"id": 2, "status": "published", "deletedAt": "2024-01-01T00:00:00Z"},
		{"id": 3, "status": "draft", "deletedAt": nil},
	}
}

func ids(rows []eval.Row) []int {
	out := make([]int, 0, len(rows))
	for _, r := range rows {
		out = append(out, r["id"].(int))
	}
	return out
}

func TestFilterService_Compile(t *testing.T) {
	ctx := context.Background()
	s := newService(t, Options{ParseCacheSize: 16})
	raw := `{"where":{"status":"published"}}`

	merged, err := s.Compile(ctx, "posts", raw, false)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, ids(eval.Filter(postRows(), merged.Where)))

	bypassed, err := s.Compile(ctx, "posts", raw, true)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, ids(eval.Filter(postRows(), bypassed.Where)))

	empty, err := s.Compile(ctx, "posts", "", false)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, ids(eval.Filter(postRows(), empty.Where)))
}

func TestFilterService_PercentEncoded(t *testing.T) {
	s := newService(t, Options{})
	raw := url.QueryEscape(`{"where":{"status":{"neq":"draft"}},"order":"id DESC"}`)

	opts, err := s.Compile(context.Background(), "posts", raw, true)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1}, ids(eval.Apply(postRows(), opts)))
}

func TestFilterService_Dropped(t *testing.T) {
	s := newService(t, Options{})

	opts, err := s.Compile(context.Background(), "posts", `{"where":{"bogus":1,"status":{"nope":1}}}`, true)
	require.NoError(t, err)
	assert.Nil(t, opts.Where)
	assert.Equal(t, []domain.DroppedClause{
		{Entity: "posts", Key: "status", Operator: "nope", Reason: domain.DropUnknownOperator},
		{Entity: "posts", Key: "bogus", Reason: domain.DropUnknownColumn},
	}, opts.Dropped)
}

func TestFilterService_Errors(t *testing.T) {
	ctx := context.Background()
	s := newService(t, Options{})

	_, err := s.Compile(ctx, "widgets", "{}", false)
	assert.ErrorIs(t, err, ErrEntityNotFound)
	assert.Equal(t, http.StatusNotFound, StatusCode(err))

	_, err = s.Compile(ctx, "posts", `{"where":{"metadata.a;b":1}}`, false)
	assert.ErrorIs(t, err, domain.ErrInvalidPath)
	assert.Equal(t, http.StatusBadRequest, StatusCode(err))

	_, err = s.Compile(ctx, "posts", `{"include":"likes"}`, false)
	assert.ErrorIs(t, err, domain.ErrUnknownRelation)

	_, err = s.Compile(ctx, "posts", `{"where":`, false)
	assert.ErrorIs(t, err, domain.ErrMalformedFilter)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.Compile(cancelled, "posts", "{}", false)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, http.StatusRequestTimeout, StatusCode(err))
}

func TestFilterService_RejectPolicy(t *testing.T) {
	raw := `{"where":{"status":{"nope":1}}}`

	lenient := newService(t, Options{})
	_, err := lenient.Compile(context.Background(), "posts", raw, false)
	require.NoError(t, err)

	strict := newService(t, Options{Parser: parser.Options{UnknownOperators: parser.RejectUnknown}})
	_, err = strict.Compile(context.Background(), "posts", raw, false)
	assert.ErrorIs(t, err, domain.ErrUnknownOperator)
	assert.Equal(t, http.StatusBadRequest, StatusCode(err))
}

func TestFilterService_Telemetry(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	tel := telemetry.NewPrometheusTelemetry(&telemetry.Config{}, reg)
	s := newService(t, Options{ParseCacheSize: 8, Telemetry: tel})
	raw := `{"where":{"bogus":1}}`

	first, err := s.Compile(ctx, "posts", raw, false)
	require.NoError(t, err)
	second, err := s.Compile(ctx, "posts", raw, false)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	_, err = s.Compile(ctx, "posts", `{"limit":-1}`, false)
	require.Error(t, err)

	count, err := testutil.GatherAndCount(reg, "prisma_filter_compilations_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "ok and rejected series")

	expected := `
# HELP prisma_filter_parse_cache_hits_total Raw filters served from the parse cache.
# TYPE prisma_filter_parse_cache_hits_total counter
prisma_filter_parse_cache_hits_total 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "prisma_filter_parse_cache_hits_total"))

	drops, err := testutil.GatherAndCount(reg, "prisma_filter_dropped_clauses_total")
	require.NoError(t, err)
	assert.Equal(t, 1, drops)
	require.NoError(t, s.Close(ctx))
}

func TestFilterService_Select(t *testing.T) {
	ctx := context.Background()
	s := newService(t, Options{Dialect: domain.PostgreSQL})

	sql, args, err := s.Select(ctx, "posts", `{"where":{"status":"published"},"limit":5}`, false)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "posts" WHERE ("deletedAt" IS NULL AND "status" = $1) LIMIT 5`, sql)
	assert.Equal(t, []interface{}{"published"}, args)

	plain := newService(t, Options{})
	_, _, err = plain.Select(ctx, "posts", "{}", false)
	assert.Error(t, err)
}

func TestFilterService_ReloadDiscardsState(t *testing.T) {
	ctx := context.Background()
	s := newService(t, Options{ParseCacheSize: 8})

	before, err := s.Repository("posts")
	require.NoError(t, err)
	again, err := s.Repository("posts")
	require.NoError(t, err)
	assert.Same(t, before, again)

	users := schema.NewEntity("users", schema.Column{Name: "id", Type: schema.TypeInteger})
	c := schema.NewCatalog()
	require.NoError(t, c.Register(users))
	require.NoError(t, c.Link())
	require.NoError(t, s.Reload(c, Options{}))

	_, err = s.Compile(ctx, "posts", "{}", false)
	assert.ErrorIs(t, err, ErrEntityNotFound)
	_, err = s.Compile(ctx, "users", `{"where":{"id":1}}`, false)
	assert.NoError(t, err)

	assert.Error(t, s.Reload(nil, Options{}))
}

func TestFilterService_Concurrent(t *testing.T) {
	s := newService(t, Options{ParseCacheSize: 4})
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			raw := fmt.Sprintf(`{"where":{"id":%d}}`, i%8)
			opts, err := s.Compile(ctx, "posts", raw, false)
			if err != nil {
				errs <- err
				return
			}
			if opts.Where == nil {
				errs <- errors.New("missing where")
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestFilterService_BadDefaultFilter(t *testing.T) {
	broken := func(def string) *schema.Catalog {
		posts := schema.NewEntity("posts",
			schema.Column{Name: "id", Type: schema.TypeInteger},
			schema.Column{Name: "status", Type: schema.TypeText},
		).WithDefaultFilter(def)
		c := schema.NewCatalog()
		require.NoError(t, c.Register(posts))
		require.NoError(t, c.Link())
		return c
	}

	_, err := NewFilterService(broken(`{"where": `), Options{})
	assert.ErrorIs(t, err, repository.ErrBadDefaultFilter)
	assert.Equal(t, http.StatusInternalServerError, StatusCode(err))

	_, err = NewFilterService(broken(`{"where":{"status.a;b":1}}`), Options{})
	assert.ErrorIs(t, err, repository.ErrBadDefaultFilter)
	_, isFilterErr := domain.AsFilterError(err)
	assert.False(t, isFilterErr)

	s := newService(t, Options{})
	assert.ErrorIs(t, s.Reload(broken(`{"where": `), Options{}), repository.ErrBadDefaultFilter)
	_, err = s.Compile(context.Background(), "posts", `{"where":{"status":"published"}}`, false)
	assert.NoError(t, err, "a failed reload keeps the previous catalog")
}

func TestFilterService_ApplyConfigLogs(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, debug.Configure("warn", "text", &buf))
	t.Cleanup(func() { require.NoError(t, debug.Configure("info", "text", nil)) })

	s := newService(t, Options{})
	s.applyConfig(nil, errors.New("yaml: line 3: did not find expected key"))
	assert.Contains(t, buf.String(), "config change ignored")
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{domain.NewFilterError(domain.KindNestingTooDeep, "where", "too deep"), http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", domain.NewFilterError(domain.KindMalformedOperand, "limit", "negative")), http.StatusBadRequest},
		{fmt.Errorf("%w: x", ErrEntityNotFound), http.StatusNotFound},
		{context.DeadlineExceeded, http.StatusRequestTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
		{fmt.Errorf("%w for posts: MalformedFilter", repository.ErrBadDefaultFilter), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusCode(tt.err), "%v", tt.err)
	}
}

const catalogYAML = `
version: "1.0"
entities:
  - name: articles
    default_filter: '{"where":{"status":"live"}}'
    columns:
      - name: id
        type: integer
      - name: status
`

func TestNewFromConfig_AndReload(t *testing.T) {
	prev := config.AppFs
	fs := afero.NewMemMapFs()
	config.AppFs = fs
	t.Cleanup(func() { config.AppFs = prev })

	require.NoError(t, afero.WriteFile(fs, "/srv/catalog.yaml", []byte(catalogYAML), 0o644))

	cfg := config.Default()
	cfg.Database.Dialect = "sqlite"
	cfg.CatalogPath = "/srv/catalog.yaml"
	cfg.Telemetry.Type = "prometheus"
	cfg.Log.Level = "error"

	s, err := NewFromConfig(cfg, prometheus.NewRegistry())
	require.NoError(t, err)

	sql, args, err := s.Select(context.Background(), "articles", `{"where":{"id":{"gt":3}}}`, false)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "articles" WHERE ("status" = ? AND "id" > ?)`, sql)
	assert.Equal(t, []interface{}{"live", int64(3)}, args)

	// A broken catalog keeps the current state.
	require.NoError(t, afero.WriteFile(fs, "/srv/catalog.yaml", []byte("version: \"9\"\n"), 0o644))
	s.applyConfig(cfg, nil)
	_, err = s.Compile(context.Background(), "articles", "{}", false)
	assert.NoError(t, err)

	// A config decode error is ignored too.
	s.applyConfig(nil, errors.New("bad yaml"))

	require.NoError(t, afero.WriteFile(fs, "/srv/catalog.yaml", []byte(`
version: "1.1"
entities:
  - name: notes
    columns:
      - name: id
        type: integer
`), 0o644))
	cfg.Compiler.MaxLimit = 10
	s.applyConfig(cfg, nil)

	opts, err := s.Compile(context.Background(), "notes", `{"limit":50}`, false)
	require.NoError(t, err)
	require.NotNil(t, opts.Limit)
	assert.Equal(t, 10, *opts.Limit)
}
