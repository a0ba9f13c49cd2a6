package domain

// SQLDialect represents a SQL dialect.
type SQLDialect string

const (
	// PostgreSQL dialect.
	PostgreSQL SQLDialect = "postgres"
	// MySQL dialect.
	MySQL SQLDialect = "mysql"
	// SQLite dialect.
	SQLite SQLDialect = "sqlite"
)

// Valid reports whether d is a supported dialect.
func (d SQLDialect) Valid() bool {
	switch d {
	case PostgreSQL, MySQL, SQLite:
		return true
	}
	return false
}
