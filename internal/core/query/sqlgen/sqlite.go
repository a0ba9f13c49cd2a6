package sqlgen

import (
	"database/sql"
	"fmt"
	"regexp"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	sqlite3 "github.com/mattn/go-sqlite3"
)

// SQLiteDriver is the database/sql driver name RegisterSQLite installs:
// go-sqlite3 with a REGEXP function backed by Go's regexp package.
const SQLiteDriver = "sqlite3_prisma_filter"

var registerOnce sync.Once

// RegisterSQLite registers SQLiteDriver. SQL rendered for SQLite uses
// REGEXP, which SQLite only parses; the function itself comes from here.
// Safe to call more than once.
func RegisterSQLite() {
	registerOnce.Do(func() {
		sql.Register(SQLiteDriver, &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				return conn.RegisterFunc("regexp", sqliteRegexp, true)
			},
		})
	})
}

var regexCache, _ = lru.New[string, *regexp.Regexp](256)

// sqliteRegexp implements `value REGEXP pattern`, called as
// regexp(pattern, value). NULL values never match.
func sqliteRegexp(pattern string, value interface{}) (bool, error) {
	var s string
	switch v := value.(type) {
	case nil:
		return false, nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		s = fmt.Sprint(v)
	}

	re, ok := regexCache.Get(pattern)
	if !ok {
		var err error
		re, err = regexp.Compile(pattern)
		if err != nil {
			return false, err
		}
		regexCache.Add(pattern, re)
	}

	return re.MatchString(s), nil
}
