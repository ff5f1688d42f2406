package relational

import "fmt"

// Dialect isolates the three ways the wired SQL drivers
// (go-sql-driver/mysql, lib/pq, mattn/go-sqlite3) differ in SQL surface:
// identifier quoting and placeholder syntax. Everything else the
// relational compiler emits is portable across all three.
type Dialect interface {
	// Name identifies the dialect, used to pick a driver name in Open.
	Name() string
	// Quote wraps identifier in the dialect's quoting convention.
	Quote(identifier string) string
	// Placeholder renders the n'th (1-indexed) bound parameter.
	Placeholder(n int) string
}

// Postgres quotes identifiers with double quotes and binds parameters
// positionally ($1, $2, ...), per lib/pq.
type Postgres struct{}

func (Postgres) Name() string                   { return "postgres" }
func (Postgres) Quote(identifier string) string { return `"` + identifier + `"` }
func (Postgres) Placeholder(n int) string       { return fmt.Sprintf("$%d", n) }

// MySQL quotes identifiers with backticks and binds parameters
// positionally with an untyped "?", per go-sql-driver/mysql.
type MySQL struct{}

func (MySQL) Name() string                   { return "mysql" }
func (MySQL) Quote(identifier string) string { return "`" + identifier + "`" }
func (MySQL) Placeholder(int) string         { return "?" }

// SQLite quotes identifiers with double quotes and binds parameters
// positionally with an untyped "?", per mattn/go-sqlite3.
type SQLite struct{}

func (SQLite) Name() string                   { return "sqlite3" }
func (SQLite) Quote(identifier string) string { return `"` + identifier + `"` }
func (SQLite) Placeholder(int) string         { return "?" }

// DialectFor maps a provider name (as found in a connection profile, spec
// §2 AMBIENT STACK config) to the Dialect driving it.
func DialectFor(provider string) (Dialect, error) {
	switch provider {
	case "postgres", "postgresql":
		return Postgres{}, nil
	case "mysql":
		return MySQL{}, nil
	case "sqlite", "sqlite3":
		return SQLite{}, nil
	default:
		return nil, fmt.Errorf("relational: unsupported provider %q", provider)
	}
}
