package commands

import (
	"database/sql"
	"fmt"

	"github.com/nielslerches/ddd-scaffold/internal/demo"
	"github.com/nielslerches/ddd-scaffold/query/relational"
)

// userModel implements relational.Model for the "users" table the
// relational backend demonstration seeds, mirroring internal/demo.User.
type userModel struct{}

func (userModel) Table() string     { return "users" }
func (userModel) Columns() []string { return []string{"name", "points"} }

func (userModel) Column(field string) (string, bool) {
	switch field {
	case "name":
		return "name", true
	case "points":
		return "points", true
	default:
		return "", false
	}
}

func (userModel) Relationship(field string) (relational.Relationship, bool) {
	if field != "giftcards" {
		return relational.Relationship{}, false
	}
	return relational.Relationship{
		RelatedTable: "giftcards",
		ForeignKey:   "user_name",
		LocalKey:     "name",
		RelatedModel: giftcardModel{},
	}, true
}

type giftcardModel struct{}

func (giftcardModel) Table() string     { return "giftcards" }
func (giftcardModel) Columns() []string { return []string{"user_name", "value", "reason"} }

func (giftcardModel) Column(field string) (string, bool) {
	switch field {
	case "user_name":
		return "user_name", true
	case "value":
		return "value", true
	case "reason":
		return "reason", true
	default:
		return "", false
	}
}

func (giftcardModel) Relationship(string) (relational.Relationship, bool) {
	return relational.Relationship{}, false
}

// relationalUser is the row shape scanRelationalUser produces.
type relationalUser struct {
	Name   string
	Points int
}

func scanRelationalUser(rows *sql.Rows) (relationalUser, error) {
	var u relationalUser
	err := rows.Scan(&u.Name, &u.Points)
	return u, err
}

// seedRelationalDemo opens a fresh in-memory SQLite database and loads
// internal/demo.Users() into it, giving the relational backend the same
// fixture the in-memory backend runs over. Non-SQLite providers are
// assumed to already hold a matching schema and are left untouched.
func seedRelationalDemo(cfg relationalConfig) (*relational.Session, error) {
	if cfg.Provider != "sqlite" {
		return relational.Open(cfg.Provider, cfg.DSN)
	}

	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("queryctl: open sqlite: %w", err)
	}
	// An in-memory SQLite database is private to the connection that
	// created it; a pooled *sql.DB would hand later queries a different,
	// empty connection/database. Pin the pool to one connection so the
	// seed and every subsequent query land on the same database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		CREATE TABLE users (name TEXT PRIMARY KEY, points INTEGER NOT NULL);
		CREATE TABLE giftcards (user_name TEXT NOT NULL, value INTEGER NOT NULL, reason TEXT NOT NULL);
	`); err != nil {
		return nil, fmt.Errorf("queryctl: create schema: %w", err)
	}

	for _, u := range demo.Users() {
		if _, err := db.Exec(`INSERT INTO users (name, points) VALUES (?, ?)`, u.Name, u.Points); err != nil {
			return nil, fmt.Errorf("queryctl: seed users: %w", err)
		}
		for _, g := range u.Giftcards {
			if _, err := db.Exec(`INSERT INTO giftcards (user_name, value, reason) VALUES (?, ?, ?)`, u.Name, g.Value, g.Reason); err != nil {
				return nil, fmt.Errorf("queryctl: seed giftcards: %w", err)
			}
		}
	}

	return relational.NewSession(db, relational.SQLite{}), nil
}

// relationalConfig is the subset of internal/config.Config the
// relational demonstration needs.
type relationalConfig struct {
	Provider string
	DSN      string
}
