package userstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver
	"go.uber.org/zap"
)

// Schema creates the users table read by PostgresStore
const Schema = `
	CREATE TABLE IF NOT EXISTS users (
		username VARCHAR(255) PRIMARY KEY,
		password_hash VARCHAR(255) NOT NULL,
		authorities TEXT NOT NULL DEFAULT '',
		disabled BOOLEAN NOT NULL DEFAULT FALSE
	);
`

// PostgresStore reads users from PostgreSQL
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresStore creates a store over an open database
func NewPostgresStore(db *sql.DB, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: logger,
	}
}

// Open opens a PostgreSQL connection pool and verifies it
func Open(ctx context.Context, dsn string, maxOpenConns int) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// InitSchema creates the users table if needed
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}
	return nil
}

// FindByUsername implements Store
func (s *PostgresStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	query := `
		SELECT username, password_hash, authorities, disabled
		FROM users
		WHERE username = $1
	`

	var (
		u           User
		authorities string
	)
	err := s.db.QueryRowContext(ctx, query, username).Scan(&u.Username, &u.PasswordHash, &authorities, &u.Disabled)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("failed to load user", zap.String("username", username), zap.Error(err))
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	u.Authorities = splitAuthorities(authorities)
	return &u, nil
}
