package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Dialect names a supported SQL backend.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite3"
)

// DriverName is the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	if d == DialectPostgres {
		return "pgx"
	}
	return "sqlite3"
}

// Open connects and pings. SQLite in-memory databases are pinned to one
// connection so every query sees the same database.
func Open(ctx context.Context, dialect Dialect, dsn string) (*sql.DB, error) {
	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if dialect == DialectSQLite && strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}
	return db, nil
}

// Migrate runs a goose command over the embedded migrations.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect, command string) error {
	goose.SetBaseFS(migrations)
	goose.SetTableName("goose_db_version")
	if err := goose.SetDialect(string(dialect)); err != nil {
		return err
	}
	switch command {
	case "up":
		return goose.UpContext(ctx, db, "migrations")
	case "down":
		return goose.DownContext(ctx, db, "migrations")
	case "status":
		return goose.StatusContext(ctx, db, "migrations")
	default:
		return fmt.Errorf("unknown migration command %q", command)
	}
}

// SQLStore keeps the library in the materials table.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

var _ Store = (*SQLStore)(nil)

func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect, now: time.Now}
}

func (s *SQLStore) LoadAll(ctx context.Context) (Library, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_key, source_name, content FROM materials ORDER BY user_key, source_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lib := Library{}
	for rows.Next() {
		var user, name, content string
		if err := rows.Scan(&user, &name, &content); err != nil {
			return nil, err
		}
		if lib[user] == nil {
			lib[user] = map[string]string{}
		}
		lib[user][name] = content
	}
	return lib, rows.Err()
}

// SaveAll replaces the table contents in one transaction.
func (s *SQLStore) SaveAll(ctx context.Context, lib Library) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM materials`); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, s.rebind(
		`INSERT INTO materials (user_key, source_name, content, updated_at) VALUES (?, ?, ?, ?)`))
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := s.now().UTC()
	for user, docs := range lib {
		for name, content := range docs {
			if _, err := stmt.ExecContext(ctx, SanitizeKey(user), SanitizeKey(name), content, now); err != nil {
				return fmt.Errorf("insert %s/%s: %w", user, name, err)
			}
		}
	}
	return tx.Commit()
}

// rebind turns ? placeholders into $n for postgres.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
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
