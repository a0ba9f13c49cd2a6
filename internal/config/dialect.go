package config

import (
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"

	"github.com/satishbabariya/prisma-filter/internal/core/query/domain"
)

// DetectDialect infers the SQL dialect from a database URL or DSN.
func DetectDialect(url string) (domain.SQLDialect, error) {
	if isSQLite(url) {
		return domain.SQLite, nil
	}
	if _, err := pq.ParseURL(url); err == nil {
		return domain.PostgreSQL, nil
	}
	if _, err := mysql.ParseDSN(strings.TrimPrefix(url, "mysql://")); err == nil {
		return domain.MySQL, nil
	}
	return "", fmt.Errorf("cannot detect dialect from database url")
}

func isSQLite(url string) bool {
	if url == ":memory:" || strings.HasPrefix(url, "file:") || strings.HasPrefix(url, "sqlite:") || strings.HasPrefix(url, "sqlite3:") {
		return true
	}
	for _, ext := range []string{".db", ".sqlite", ".sqlite3"} {
		if strings.HasSuffix(url, ext) {
			return true
		}
	}
	return false
}
