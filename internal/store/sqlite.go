package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/glaseagle/3DAuth-FireStore/internal/crypto"
	"github.com/glaseagle/3DAuth-FireStore/internal/models"
)

// DefaultSQLitePath is used when no path is configured.
const DefaultSQLitePath = "./data/notespace.db"

// sqliteMigrations are indexed by PRAGMA user_version.
var sqliteMigrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		public_key TEXT UNIQUE NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_users_public_key ON users(public_key);`,
}

// SQLiteStore keeps users in a local SQLite file for single-node setups.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at dbPath.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = DefaultSQLitePath
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	// One writer at a time; WAL still lets readers proceed.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for i := version; i < len(sqliteMigrations); i++ {
		if _, err := s.db.ExecContext(ctx, sqliteMigrations[i]); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d`, i+1)); err != nil {
			return fmt.Errorf("record migration %d: %w", i+1, err)
		}
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) queryUser(ctx context.Context, where string, arg any) (*models.User, error) {
	u := &models.User{}
	err := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where+` = ?`, arg).
		Scan(&u.ID, &u.PublicKey, &u.Name, &u.Email, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// CreateUser inserts a user with a fresh UUIDv7.
func (s *SQLiteStore) CreateUser(ctx context.Context, publicKey, name, email string) (*models.User, error) {
	id := crypto.NewUUIDv7()
	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		id.String(), publicKey, name, email, now, now); err != nil {
		return nil, err
	}
	return s.GetUserByID(ctx, id)
}

// GetUserByID returns nil, nil when no user has that id.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.queryUser(ctx, "id", id.String())
}

// GetUserByPublicKey retrieves a user by public key.
func (s *SQLiteStore) GetUserByPublicKey(ctx context.Context, publicKey string) (*models.User, error) {
	return s.queryUser(ctx, "public_key", publicKey)
}

// UpdateUserProfile changes a user's display name and email.
func (s *SQLiteStore) UpdateUserProfile(ctx context.Context, id uuid.UUID, name, email string) (*models.User, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET name = ?, email = ?, updated_at = ? WHERE id = ?`,
		name, email, time.Now().UTC(), id.String())
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	return s.GetUserByID(ctx, id)
}

// CountUsers returns the number of registered users.
func (s *SQLiteStore) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}
