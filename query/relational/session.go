// Package relational implements the relational query backend: a compiler
// lowering an ast.Node to SQL text and bound arguments, and a QuerySet
// that accumulates WHERE/ORDER BY fragments and executes them through
// database/sql on first materialization. Has lowers to a correlated
// EXISTS subquery against the related table.
package relational

import (
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/lib/pq"              // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver
)

// Session pairs an open *sql.DB with the Dialect driving its SQL surface.
type Session struct {
	db      *sql.DB
	dialect Dialect
}

// Open opens a connection pool for provider (one of "postgres", "mysql",
// "sqlite") against dsn and wraps it in a Session.
func Open(provider, dsn string) (*Session, error) {
	dialect, err := DialectFor(provider)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(dialect.Name(), dsn)
	if err != nil {
		return nil, fmt.Errorf("relational: open %s: %w", provider, err)
	}
	return &Session{db: db, dialect: dialect}, nil
}

// NewSession wraps an already-open *sql.DB, for callers that manage their
// own pool (tests, or an application sharing one DB across concerns).
func NewSession(db *sql.DB, dialect Dialect) *Session {
	return &Session{db: db, dialect: dialect}
}

// DB returns the underlying connection pool.
func (s *Session) DB() *sql.DB { return s.db }

// Dialect returns the session's SQL dialect.
func (s *Session) Dialect() Dialect { return s.dialect }

// Close closes the underlying connection pool.
func (s *Session) Close() error { return s.db.Close() }
