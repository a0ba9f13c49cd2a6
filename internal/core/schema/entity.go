// Package schema describes the entities the filter compiler resolves keys
// against: columns, declared relations and the per-entity default filter.
package schema

import (
	"fmt"
	"regexp"
)

// ColumnType is the storage type of a column as far as the compiler cares.
type ColumnType string

const (
	TypeText      ColumnType = "text"
	TypeInteger   ColumnType = "integer"
	TypeNumeric   ColumnType = "numeric"
	TypeBoolean   ColumnType = "boolean"
	TypeTimestamp ColumnType = "timestamp"
	TypeJSON      ColumnType = "json"
	TypeJSONB     ColumnType = "jsonb"
	TypeOther     ColumnType = "other"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Column describes one column.
type Column struct {
	Name  string
	Type  ColumnType
	Array bool
}

// IsJSON reports whether JSON paths may traverse the column.
func (c Column) IsJSON() bool {
	return !c.Array && (c.Type == TypeJSON || c.Type == TypeJSONB)
}

// RelationKind describes the cardinality of a relation.
type RelationKind string

const (
	HasMany   RelationKind = "hasMany"
	HasOne    RelationKind = "hasOne"
	BelongsTo RelationKind = "belongsTo"
)

// Relation is a declared relation from one entity to another.
type Relation struct {
	Name   string
	Target string
	Kind   RelationKind

	target *Entity
}

// Entity returns the related entity's descriptor, or nil when the catalog
// has not linked it.
func (r *Relation) Entity() *Entity {
	return r.target
}

// Entity is the schema descriptor for one model.
type Entity struct {
	Name      string
	Table     string
	Columns   map[string]Column
	Relations map[string]*Relation

	// DefaultFilter is the raw filter JSON applied to every query on the
	// entity unless bypassed. Empty means none.
	DefaultFilter string
}

// NewEntity creates an entity with the given columns.
func NewEntity(name string, columns ...Column) *Entity {
	e := &Entity{
		Name:      name,
		Table:     name,
		Columns:   make(map[string]Column, len(columns)),
		Relations: make(map[string]*Relation),
	}
	for _, c := range columns {
		e.Columns[c.Name] = c
	}
	return e
}

// WithRelation declares a relation and returns the entity for chaining.
func (e *Entity) WithRelation(name, target string, kind RelationKind) *Entity {
	e.Relations[name] = &Relation{Name: name, Target: target, Kind: kind}
	return e
}

// WithDefaultFilter sets the raw default filter and returns the entity.
func (e *Entity) WithDefaultFilter(raw string) *Entity {
	e.DefaultFilter = raw
	return e
}

// Column looks up a column by name.
func (e *Entity) Column(name string) (Column, bool) {
	c, ok := e.Columns[name]
	return c, ok
}

// Relation looks up a declared relation by name.
func (e *Entity) Relation(name string) (*Relation, bool) {
	r, ok := e.Relations[name]
	return r, ok
}

// Validate checks names so they can be quoted safely as SQL identifiers.
func (e *Entity) Validate() error {
	if !identPattern.MatchString(e.Name) {
		return fmt.Errorf("entity name %q is not a valid identifier", e.Name)
	}
	if !identPattern.MatchString(e.Table) {
		return fmt.Errorf("entity %s: table name %q is not a valid identifier", e.Name, e.Table)
	}
	for key, c := range e.Columns {
		if key != c.Name {
			return fmt.Errorf("entity %s: column key %q does not match name %q", e.Name, key, c.Name)
		}
		if !identPattern.MatchString(c.Name) {
			return fmt.Errorf("entity %s: column name %q is not a valid identifier", e.Name, c.Name)
		}
	}
	for key, r := range e.Relations {
		if key != r.Name {
			return fmt.Errorf("entity %s: relation key %q does not match name %q", e.Name, key, r.Name)
		}
		if r.Target == "" {
			return fmt.Errorf("entity %s: relation %s has no target", e.Name, r.Name)
		}
	}
	return nil
}
