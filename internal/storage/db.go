package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
)

// Options selects the database. SQLite uses Path; the others use DSN.
type Options struct {
	Driver Driver
	DSN    string
	Path   string
}

// DB wraps the database connection and knows its SQL dialect.
type DB struct {
	conn   *sqlx.DB
	driver Driver
}

// Open connects to the configured database and runs migrations.
func Open(ctx context.Context, opts Options) (*DB, error) {
	if opts.Driver == "" {
		opts.Driver = DriverSQLite
	}

	var conn *sqlx.DB
	var err error
	switch opts.Driver {
	case DriverSQLite:
		if opts.Path == "" {
			return nil, errors.New("sqlite: database path is required")
		}
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
		conn, err = sqlx.Open("sqlite", opts.Path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// SQLite only supports one writer.
		conn.SetMaxOpenConns(1)
	case DriverPostgres, DriverMySQL:
		if opts.DSN == "" {
			return nil, fmt.Errorf("%s: dsn is required", opts.Driver)
		}
		conn, err = sqlx.Open(string(opts.Driver), opts.DSN)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", opts.Driver, err)
		}
	default:
		return nil, fmt.Errorf("unsupported driver %q", opts.Driver)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping %s: %w", opts.Driver, err)
	}

	db := &DB{conn: conn, driver: opts.Driver}
	if err := db.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Driver() Driver {
	return db.driver
}

func (db *DB) migrate(ctx context.Context) error {
	for _, m := range migrations(db.driver) {
		if _, err := db.conn.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration failed: %.40s: %w", m, err)
		}
	}
	return nil
}

func migrations(d Driver) []string {
	switch d {
	case DriverPostgres:
		return []string{
			`CREATE TABLE IF NOT EXISTS albums (
				id BIGSERIAL PRIMARY KEY,
				title TEXT NOT NULL,
				position INTEGER NOT NULL DEFAULT 0
			)`,
			`CREATE TABLE IF NOT EXISTS pages (
				id BIGSERIAL PRIMARY KEY,
				album_id BIGINT NOT NULL REFERENCES albums(id),
				title TEXT NOT NULL,
				content TEXT NOT NULL DEFAULT '[]',
				position INTEGER NOT NULL DEFAULT 0
			)`,
			`CREATE INDEX IF NOT EXISTS idx_pages_album ON pages(album_id, position)`,
		}
	case DriverMySQL:
		return []string{
			`CREATE TABLE IF NOT EXISTS albums (
				id BIGINT AUTO_INCREMENT PRIMARY KEY,
				title VARCHAR(255) NOT NULL,
				position INT NOT NULL DEFAULT 0
			)`,
			`CREATE TABLE IF NOT EXISTS pages (
				id BIGINT AUTO_INCREMENT PRIMARY KEY,
				album_id BIGINT NOT NULL,
				title VARCHAR(255) NOT NULL,
				content LONGTEXT NOT NULL,
				position INT NOT NULL DEFAULT 0,
				INDEX idx_pages_album (album_id, position),
				FOREIGN KEY (album_id) REFERENCES albums(id)
			)`,
		}
	default:
		return []string{
			`CREATE TABLE IF NOT EXISTS albums (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				title TEXT NOT NULL,
				position INTEGER NOT NULL DEFAULT 0
			)`,
			`CREATE TABLE IF NOT EXISTS pages (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				album_id INTEGER NOT NULL REFERENCES albums(id),
				title TEXT NOT NULL,
				content TEXT NOT NULL DEFAULT '[]',
				position INTEGER NOT NULL DEFAULT 0
			)`,
			`CREATE INDEX IF NOT EXISTS idx_pages_album ON pages(album_id, position)`,
		}
	}
}

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx.
type queryer interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

// insert runs an INSERT and returns the new row id.
func (db *DB) insert(ctx context.Context, q queryer, query string, args ...any) (int64, error) {
	if db.driver == DriverPostgres {
		var id int64
		if err := q.QueryRowxContext(ctx, q.Rebind(query+" RETURNING id"), args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}
	res, err := q.ExecContext(ctx, q.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// renumber rewrites positions of the selected rows to 0..n-1, keeping their
// current order.
func renumber(ctx context.Context, q queryer, table, where string, args ...any) error {
	var ids []int64
	query := "SELECT id FROM " + table + " " + where + " ORDER BY position, id"
	if err := q.SelectContext(ctx, &ids, q.Rebind(query), args...); err != nil {
		return fmt.Errorf("renumber %s: %w", table, err)
	}
	update := q.Rebind("UPDATE " + table + " SET position = ? WHERE id = ?")
	for i, id := range ids {
		if _, err := q.ExecContext(ctx, update, i, id); err != nil {
			return fmt.Errorf("renumber %s: %w", table, err)
		}
	}
	return nil
}

func (db *DB) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
