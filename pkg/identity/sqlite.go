package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const createUsersTable = `
CREATE TABLE IF NOT EXISTS session_users (
	session TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	last_used DATETIME NOT NULL
);
`

// SQLiteStore persists one generated user id per named session, so the same
// session keeps its id across process restarts.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (or creates) the identity database at dbPath.
func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open identity db: %w", err)
	}

	if _, err := db.Exec(createUsersTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate identity db: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Resolve returns the user id for session, generating and storing one on
// first use.
func (s *SQLiteStore) Resolve(ctx context.Context, session string) (string, error) {
	now := time.Now().UTC()
	newID := NewUserID()

	// Insert-if-absent keeps concurrent first resolutions on one id.
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session_users (session, user_id, created_at, last_used) VALUES (?, ?, ?, ?)
		 ON CONFLICT(session) DO UPDATE SET last_used = excluded.last_used`,
		session, newID, now, now,
	)
	if err != nil {
		return "", fmt.Errorf("ensure session user: %w", err)
	}

	var id string
	err = s.db.QueryRowContext(ctx,
		`SELECT user_id FROM session_users WHERE session = ?`, session,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("lookup session user: %w", err)
	}
	return id, nil
}

// Rotate replaces the user id for session and returns the new one.
func (s *SQLiteStore) Rotate(ctx context.Context, session string) (string, error) {
	now := time.Now().UTC()
	id := NewUserID()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session_users (session, user_id, created_at, last_used) VALUES (?, ?, ?, ?)
		 ON CONFLICT(session) DO UPDATE SET user_id = excluded.user_id, created_at = excluded.created_at, last_used = excluded.last_used`,
		session, id, now, now,
	)
	if err != nil {
		return "", fmt.Errorf("rotate session user: %w", err)
	}
	return id, nil
}

// Lookup returns the stored id for session without creating one.
func (s *SQLiteStore) Lookup(ctx context.Context, session string) (string, bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id FROM session_users WHERE session = ?`, session,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup session user: %w", err)
	}
	return id, true, nil
}

// Session binds the store to one session name as a Provider.
func (s *SQLiteStore) Session(name string) Provider {
	return sessionProvider{store: s, name: name}
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type sessionProvider struct {
	store *SQLiteStore
	name  string
}

func (p sessionProvider) UserID(ctx context.Context) (string, error) {
	return p.store.Resolve(ctx, p.name)
}
