package schema

import (
	"fmt"

	"github.com/hashicorp/go-version"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// SupportedFormats is the catalog file format range this build reads.
const SupportedFormats = ">= 1.0, < 2.0"

type catalogDocument struct {
	Version  string           `mapstructure:"version"`
	Entities []entityDocument `mapstructure:"entities"`
}

type entityDocument struct {
	Name          string             `mapstructure:"name"`
	Table         string             `mapstructure:"table"`
	DefaultFilter string             `mapstructure:"default_filter"`
	Columns       []columnDocument   `mapstructure:"columns"`
	Relations     []relationDocument `mapstructure:"relations"`
}

type columnDocument struct {
	Name  string `mapstructure:"name"`
	Type  string `mapstructure:"type"`
	Array bool   `mapstructure:"array"`
}

type relationDocument struct {
	Name   string `mapstructure:"name"`
	Target string `mapstructure:"target"`
	Kind   string `mapstructure:"kind"`
}

// LoadCatalog reads a catalog file (YAML, JSON or TOML by extension) from
// fs, registers every entity and links relations.
func LoadCatalog(fs afero.Fs, path string) (*Catalog, error) {
	v := viper.New()
	v.SetFs(fs)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}

	var doc catalogDocument
	if err := v.Unmarshal(&doc); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", path, err)
	}
	if err := checkFormat(doc.Version); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}

	catalog := NewCatalog()
	for _, ed := range doc.Entities {
		e := NewEntity(ed.Name)
		if ed.Table != "" {
			e.Table = ed.Table
		}
		e.DefaultFilter = ed.DefaultFilter
		for _, cd := range ed.Columns {
			ct := ColumnType(cd.Type)
			if ct == "" {
				ct = TypeText
			}
			e.Columns[cd.Name] = Column{Name: cd.Name, Type: ct, Array: cd.Array}
		}
		for _, rd := range ed.Relations {
			kind := RelationKind(rd.Kind)
			if kind == "" {
				kind = HasMany
			}
			e.WithRelation(rd.Name, rd.Target, kind)
		}
		if err := catalog.Register(e); err != nil {
			return nil, fmt.Errorf("catalog %s: %w", path, err)
		}
	}
	if err := catalog.Link(); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return catalog, nil
}

func checkFormat(raw string) error {
	if raw == "" {
		return fmt.Errorf("missing format version")
	}
	v, err := version.NewVersion(raw)
	if err != nil {
		return fmt.Errorf("invalid format version %q: %w", raw, err)
	}
	constraint, err := version.NewConstraint(SupportedFormats)
	if err != nil {
		return err
	}
	if !constraint.Check(v) {
		return fmt.Errorf("format version %s not in %s", v, SupportedFormats)
	}
	return nil
}
