// Package service implements the filter service: raw filter strings in,
// compiled QueryOptions (or SQL) out.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/satishbabariya/prisma-filter/internal/adapters/telemetry"
	"github.com/satishbabariya/prisma-filter/internal/core/query/compiler"
	"github.com/satishbabariya/prisma-filter/internal/core/query/domain"
	"github.com/satishbabariya/prisma-filter/internal/core/query/parser"
	"github.com/satishbabariya/prisma-filter/internal/core/query/sqlgen"
	"github.com/satishbabariya/prisma-filter/internal/core/schema"
	"github.com/satishbabariya/prisma-filter/internal/debug"
	"github.com/satishbabariya/prisma-filter/internal/repository"
)

// ErrEntityNotFound is returned when a filter targets an entity missing
// from the catalog.
var ErrEntityNotFound = errors.New("entity not found")

// Options configures a FilterService.
type Options struct {
	Parser   parser.Options
	Compiler compiler.Options

	// Dialect selects SQL rendering for Select. Empty disables it.
	Dialect domain.SQLDialect

	// ParseCacheSize bounds the raw filter cache; 0 disables caching.
	ParseCacheSize int

	Telemetry telemetry.Telemetry
}

type parsed struct {
	spec    *domain.FilterSpec
	dropped []domain.DroppedClause
}

// state is everything a reload replaces at once.
type state struct {
	catalog   *schema.Catalog
	parser    *parser.Parser
	compiler  *compiler.Compiler
	generator *sqlgen.Generator
	cache     *lru.Cache[string, parsed]

	repos sync.Map // entity name -> *repository.EntityRepository
}

// FilterService compiles raw filters against a catalog of entities.
// It is safe for concurrent use.
type FilterService struct {
	state     atomic.Pointer[state]
	telemetry telemetry.Telemetry
}

// NewFilterService creates a service over catalog.
func NewFilterService(catalog *schema.Catalog, opts Options) (*FilterService, error) {
	tel := opts.Telemetry
	if tel == nil {
		tel = telemetry.NewNoopTelemetry()
	}
	s := &FilterService{telemetry: tel}
	st, err := newState(catalog, opts)
	if err != nil {
		return nil, err
	}
	s.state.Store(st)
	return s, nil
}

func newState(catalog *schema.Catalog, opts Options) (*state, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	st := &state{
		catalog:  catalog,
		parser:   parser.New(opts.Parser),
		compiler: compiler.New(opts.Compiler),
	}
	if opts.Dialect != "" {
		g, err := sqlgen.New(opts.Dialect)
		if err != nil {
			return nil, err
		}
		st.generator = g
	}
	if opts.ParseCacheSize > 0 {
		cache, err := lru.New[string, parsed](opts.ParseCacheSize)
		if err != nil {
			return nil, fmt.Errorf("parse cache: %w", err)
		}
		st.cache = cache
	}
	for _, name := range catalog.Names() {
		repo, err := st.repository(name)
		if err != nil {
			return nil, err
		}
		if err := repo.ValidateDefault(); err != nil {
			return nil, err
		}
	}
	return st, nil
}

// Reload swaps in a new catalog and options. In-flight calls finish
// against the previous state; memoized default filters and cached parses
// are discarded.
func (s *FilterService) Reload(catalog *schema.Catalog, opts Options) error {
	st, err := newState(catalog, opts)
	if err != nil {
		return err
	}
	s.state.Store(st)
	debug.Info("filter service reloaded", "entities", len(catalog.Names()))
	return nil
}

// Repository returns the repository for an entity, creating it on first use.
func (s *FilterService) Repository(name string) (*repository.EntityRepository, error) {
	return s.state.Load().repository(name)
}

func (st *state) repository(name string) (*repository.EntityRepository, error) {
	if r, ok := st.repos.Load(name); ok {
		return r.(*repository.EntityRepository), nil
	}
	entity, err := st.catalog.Entity(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrEntityNotFound, name)
	}
	r, _ := st.repos.LoadOrStore(name, repository.NewEntityRepository(entity, st.parser, st.compiler))
	return r.(*repository.EntityRepository), nil
}

// Compile parses rawFilter (raw or percent-encoded JSON), merges the
// entity's default filter unless skipDefault, and compiles the result.
func (s *FilterService) Compile(ctx context.Context, entityName, rawFilter string, skipDefault bool) (*domain.QueryOptions, error) {
	return s.compileWith(ctx, s.state.Load(), entityName, rawFilter, skipDefault)
}

func (s *FilterService) compileWith(ctx context.Context, st *state, entityName, rawFilter string, skipDefault bool) (*domain.QueryOptions, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	opts, cached, err := st.compile(entityName, rawFilter, skipDefault)
	info := telemetry.CompileInfo{
		Entity:   entityName,
		Outcome:  telemetry.OutcomeOK,
		Duration: time.Since(start),
		Cached:   cached,
	}
	if err != nil {
		info.Outcome = telemetry.OutcomeError
		if fe, ok := domain.AsFilterError(err); ok {
			info.Outcome = telemetry.OutcomeRejected
			info.Kind = string(fe.Kind)
		}
		s.telemetry.RecordCompile(ctx, info)
		debug.Debug("filter rejected", "entity", entityName, "error", err)
		return nil, err
	}
	s.telemetry.RecordCompile(ctx, info)

	for _, d := range opts.Dropped {
		s.telemetry.RecordDrop(ctx, telemetry.DropInfo{Entity: d.Entity, Reason: string(d.Reason)})
	}
	if len(opts.Dropped) > 0 && debug.Enabled() {
		log := debug.With("entity", entityName)
		for _, d := range opts.Dropped {
			log.Debug("filter clause dropped", "scope", d.Entity, "key", d.Key, "operator", d.Operator, "reason", d.Reason)
		}
	}
	return opts, nil
}

func (st *state) compile(entityName, rawFilter string, skipDefault bool) (*domain.QueryOptions, bool, error) {
	repo, err := st.repository(entityName)
	if err != nil {
		return nil, false, err
	}
	p, cached, err := st.parse(rawFilter)
	if err != nil {
		return nil, false, err
	}

	opts, err := repo.Compile(p.spec, skipDefault)
	if err != nil {
		return nil, cached, err
	}
	if len(p.dropped) > 0 {
		// Parser drops precede the default filter's and the compiler's.
		stamped := make([]domain.DroppedClause, 0, len(p.dropped)+len(opts.Dropped))
		for _, d := range p.dropped {
			d.Entity = entityName
			stamped = append(stamped, d)
		}
		opts.Dropped = append(stamped, opts.Dropped...)
	}
	return opts, cached, nil
}

// parse serves raw filters from the cache. Cached specs are shared and
// must not be mutated; the merge and compile steps only read them.
func (st *state) parse(raw string) (parsed, bool, error) {
	if st.cache != nil {
		if p, ok := st.cache.Get(raw); ok {
			return p, true, nil
		}
	}
	spec, dropped, err := st.parser.ParseQueryParam(raw)
	if err != nil {
		return parsed{}, false, err
	}
	p := parsed{spec: spec, dropped: dropped}
	if st.cache != nil {
		st.cache.Add(raw, p)
	}
	return p, false, nil
}

// Select compiles rawFilter and renders it as a SELECT for the configured
// dialect.
func (s *FilterService) Select(ctx context.Context, entityName, rawFilter string, skipDefault bool) (string, []interface{}, error) {
	st := s.state.Load()
	if st.generator == nil {
		return "", nil, fmt.Errorf("no SQL dialect configured")
	}
	opts, err := s.compileWith(ctx, st, entityName, rawFilter, skipDefault)
	if err != nil {
		return "", nil, err
	}
	repo, err := st.repository(entityName)
	if err != nil {
		return "", nil, err
	}
	return st.generator.Select(repo.Entity(), opts)
}

// Close flushes and closes the telemetry adapter.
func (s *FilterService) Close(ctx context.Context) error {
	if err := s.telemetry.Flush(ctx); err != nil {
		return err
	}
	return s.telemetry.Close(ctx)
}
