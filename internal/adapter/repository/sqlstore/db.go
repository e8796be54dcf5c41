package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"  // registers the postgres driver; *pq.Error detects unique violations
	"modernc.org/sqlite" // registers the sqlite driver; *sqlite.Error detects unique violations
	sqlite3 "modernc.org/sqlite/lib"
)

// Dialect selects the SQL database flavour
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// timeLayout is fixed width so stored timestamps sort as text
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DB wraps the database connection together with its dialect
type DB struct {
	*sql.DB
	dialect Dialect
}

// Open creates a new database connection
// For postgres dsn is a lib/pq connection string, for sqlite a file path
func Open(dialect Dialect, dsn string) (*DB, error) {
	driverName, source, err := driverSource(dialect, dsn)
	if err != nil {
		return nil, err
	}

	if dialect == DialectSQLite {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open(driverName, source)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if dialect == DialectSQLite {
		// A single writer avoids SQLITE_BUSY between pooled connections
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db, dialect: dialect}, nil
}

// Dialect returns the dialect of the connection
func (db *DB) Dialect() Dialect { return db.dialect }

// driverSource maps a dialect and DSN onto a database/sql driver name and data source
func driverSource(dialect Dialect, dsn string) (string, string, error) {
	switch dialect {
	case DialectPostgres:
		return "postgres", dsn, nil
	case DialectSQLite:
		source := dsn
		if !strings.Contains(source, "_pragma=") {
			sep := "?"
			if strings.Contains(source, "?") {
				sep = "&"
			}
			source += sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
		}
		return "sqlite", source, nil
	default:
		return "", "", fmt.Errorf("unsupported dialect %q", dialect)
	}
}

// rebind rewrites ? placeholders into the dialect's form
func (db *DB) rebind(query string) string {
	if db.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// timeArg converts a timestamp into a query argument for the dialect
func (db *DB) timeArg(t time.Time) interface{} {
	if db.dialect == DialectPostgres {
		return t.UTC()
	}
	return t.UTC().Format(timeLayout)
}

// timestamp scans TIMESTAMPTZ values and text timestamps alike
type timestamp struct {
	time.Time
}

func (ts *timestamp) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		ts.Time = v.UTC()
		return nil
	case string:
		return ts.parse(v)
	case []byte:
		return ts.parse(string(v))
	case nil:
		ts.Time = time.Time{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into timestamp", src)
	}
}

func (ts *timestamp) parse(s string) error {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	ts.Time = t.UTC()
	return nil
}

// isUniqueViolation reports whether err is a primary key or unique constraint failure
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
