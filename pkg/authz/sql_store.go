package authz

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/Mindburn-Labs/screenpilot/pkg/identity"
)

// Dialect selects placeholder syntax.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// SQLStore reads grants from a permissions(user_id, resource) table.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

// OpenPostgres connects with lib/pq.
func OpenPostgres(dsn string) (*SQLStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return NewSQLStore(db, DialectPostgres), nil
}

// OpenSQLite opens (or creates) a local database file and ensures the table
// exists.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	s := NewSQLStore(db, DialectSQLite)
	if err := s.Init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) q(query string) string {
	if s.dialect == DialectSQLite {
		return sqliteQueries[query]
	}
	return query
}

const (
	selectGrant = "SELECT 1 FROM permissions WHERE user_id = $1 AND resource = $2 LIMIT 1"
	insertGrant = "INSERT INTO permissions (user_id, resource) VALUES ($1, $2) ON CONFLICT DO NOTHING"
	createTable = `CREATE TABLE IF NOT EXISTS permissions (
		user_id  TEXT NOT NULL,
		resource TEXT NOT NULL,
		PRIMARY KEY (user_id, resource)
	)`
)

var sqliteQueries = map[string]string{
	selectGrant: "SELECT 1 FROM permissions WHERE user_id = ? AND resource = ? LIMIT 1",
	insertGrant: "INSERT INTO permissions (user_id, resource) VALUES (?, ?) ON CONFLICT DO NOTHING",
	createTable: createTable,
}

// Init creates the permissions table if it does not exist.
func (s *SQLStore) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.q(createTable)); err != nil {
		return fmt.Errorf("failed to create permissions table: %w", err)
	}
	return nil
}

func (s *SQLStore) HasPermission(ctx context.Context, user identity.User, resource string) (bool, error) {
	if user.ID == "" {
		return false, nil
	}
	var one int
	err := s.db.QueryRowContext(ctx, s.q(selectGrant), user.ID, resource).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check permission: %w", err)
	}
	return true, nil
}

// Grant records a grant. Granting twice is a no-op.
func (s *SQLStore) Grant(ctx context.Context, userID, resource string) error {
	if _, err := s.db.ExecContext(ctx, s.q(insertGrant), userID, resource); err != nil {
		return fmt.Errorf("failed to grant permission: %w", err)
	}
	return nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
