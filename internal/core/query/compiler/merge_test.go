package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/prisma-filter/internal/core/query/domain"
	"github.com/satishbabariya/prisma-filter/internal/core/query/eval"
)

func TestMergeDefault(t *testing.T) {
	posts := entity(t, "posts")
	def := parse(t, `{"where": {"deletedAt": {"is": null}}, "limit": 99}`)

	rows := []eval.Row{
		{"id": 1, "status": "active", "deletedAt": nil},
		{"id": 2, "status": "active", "deletedAt": "2024-05-01T00:00:00Z"},
		{"id": 3, "status": "draft", "deletedAt": nil},
	}
	run := func(spec *domain.FilterSpec) []int {
		opts, err := New(Options{}).Compile(posts, spec)
		require.NoError(t, err)
		return matchIDs(rows, opts.Where)
	}

	caller := parse(t, `{"where": {"status": "active"}, "order": ["id DESC"], "limit": 5}`)

	t.Run("both must hold", func(t *testing.T) {
		merged := MergeDefault(def, caller, false)
		assert.Equal(t, []int{1}, run(merged))
		assert.Equal(t, caller.Order, merged.Order)
		assert.Equal(t, 5, *merged.Limit, "non-where fields come from the caller")
	})

	t.Run("skip bypasses the default", func(t *testing.T) {
		merged := MergeDefault(def, caller, true)
		assert.Same(t, caller, merged)
		assert.Equal(t, []int{1, 2}, run(merged))
	})

	t.Run("caller without where", func(t *testing.T) {
		merged := MergeDefault(def, parse(t, `{"limit": 2}`), false)
		assert.Equal(t, []int{1, 3}, run(merged))
		assert.Equal(t, 2, *merged.Limit)
	})

	t.Run("caller cannot override the default", func(t *testing.T) {
		merged := MergeDefault(def, parse(t, `{"where": {"deletedAt": {"isn": null}}}`), false)
		assert.Empty(t, run(merged))
	})

	t.Run("no default", func(t *testing.T) {
		assert.Same(t, caller, MergeDefault(nil, caller, false))
		assert.Same(t, caller, MergeDefault(&domain.FilterSpec{}, caller, false))
		assert.Equal(t, &domain.FilterSpec{}, MergeDefault(nil, nil, false))
	})

	t.Run("inputs are not modified", func(t *testing.T) {
		before := len(caller.Where.Terms)
		_ = MergeDefault(def, caller, false)
		assert.Len(t, caller.Where.Terms, before)
		assert.Len(t, def.Where.Terms, 1)
	})
}
