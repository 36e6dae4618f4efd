package auth

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var (
	ErrNoSession   = errors.New("no such session")
	ErrBadPassword = errors.New("unknown user or bad password")
)

// Store is the session authority: it maps opaque tokens to identities with
// an expiry, persisted in sqlite so sessions survive a restart. It is safe
// for concurrent use (the core loop and metrics both call into it).
type Store struct {
	db  *sql.DB
	ttl time.Duration

	now func() time.Time // test hook
}

func Open(path string, ttl time.Duration) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, ttl: ttl, now: time.Now}, nil
}

func initPragmas(db *sql.DB) error {
	// WAL so session renewals never stall behind a reader.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			guest INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at);`,
		`CREATE TABLE IF NOT EXISTS users (
			name TEXT PRIMARY KEY,
			password_hash TEXT NOT NULL,
			created_at TEXT NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

// UserByToken resolves a token to its identity. Expired or unknown tokens
// resolve to no identity; expired rows are reaped on the way.
func (s *Store) UserByToken(token string) (Identity, bool, error) {
	if token == "" {
		return Identity{}, false, nil
	}
	var id Identity
	var guest int
	var expiresAt int64
	err := s.db.QueryRow(
		`SELECT user_id, name, guest, expires_at FROM sessions WHERE token = ?`, token,
	).Scan(&id.UserID, &id.Name, &guest, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Identity{}, false, nil
	}
	if err != nil {
		return Identity{}, false, err
	}
	if expiresAt <= s.now().Unix() {
		_, _ = s.db.Exec(`DELETE FROM sessions WHERE token = ?`, token)
		return Identity{}, false, nil
	}
	id.Guest = guest != 0
	return id, true, nil
}

// CreateSession mints a fresh guest session and returns its token.
func (s *Store) CreateSession() (string, Identity, error) {
	token := uuid.NewString()
	id := Identity{
		UserID: "guest-" + token[:8],
		Name:   "guest",
		Guest:  true,
	}
	_, err := s.db.Exec(
		`INSERT INTO sessions (token, user_id, name, guest, expires_at) VALUES (?, ?, ?, 1, ?)`,
		token, id.UserID, id.Name, s.now().Add(s.ttl).Unix(),
	)
	if err != nil {
		return "", Identity{}, err
	}
	return token, id, nil
}

// Renew extends the session expiry by one full TTL. Unknown tokens are a
// no-op; every interaction renews, including the one that minted the token.
func (s *Store) Renew(token string) error {
	if token == "" {
		return nil
	}
	_, err := s.db.Exec(
		`UPDATE sessions SET expires_at = ? WHERE token = ?`,
		s.now().Add(s.ttl).Unix(), token,
	)
	return err
}

func (s *Store) IsGuest(id Identity) bool { return id.Guest }

// Login binds an existing session to a named account after verifying the
// password against the users table.
func (s *Store) Login(token, user, password string) (Identity, error) {
	user = strings.TrimSpace(user)
	if user == "" {
		return Identity{}, ErrBadPassword
	}
	var hash string
	err := s.db.QueryRow(`SELECT password_hash FROM users WHERE name = ?`, user).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return Identity{}, ErrBadPassword
	}
	if err != nil {
		return Identity{}, err
	}
	if hash != hashPassword(password) {
		return Identity{}, ErrBadPassword
	}
	id := Identity{UserID: user, Name: user, Guest: false}
	res, err := s.db.Exec(
		`UPDATE sessions SET user_id = ?, name = ?, guest = 0, expires_at = ? WHERE token = ?`,
		id.UserID, id.Name, s.now().Add(s.ttl).Unix(), token,
	)
	if err != nil {
		return Identity{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Identity{}, ErrNoSession
	}
	return id, nil
}

// Logout deletes the session; the caller's credential should be cleared.
func (s *Store) Logout(token string) error {
	if token == "" {
		return nil
	}
	_, err := s.db.Exec(`DELETE FROM sessions WHERE token = ?`, token)
	return err
}

// Rename changes the display name of the logged-in session's account.
func (s *Store) Rename(token, name string) (Identity, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Identity{}, fmt.Errorf("empty name")
	}
	var id Identity
	var guest int
	err := s.db.QueryRow(
		`SELECT user_id, guest FROM sessions WHERE token = ?`, token,
	).Scan(&id.UserID, &guest)
	if errors.Is(err, sql.ErrNoRows) {
		return Identity{}, ErrNoSession
	}
	if err != nil {
		return Identity{}, err
	}
	if _, err := s.db.Exec(`UPDATE sessions SET name = ? WHERE token = ?`, name, token); err != nil {
		return Identity{}, err
	}
	id.Name = name
	id.Guest = guest != 0
	return id, nil
}

// EnsureUser creates or replaces an account credential.
func (s *Store) EnsureUser(name, password string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("empty user name")
	}
	_, err := s.db.Exec(
		`INSERT INTO users (name, password_hash, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET password_hash = excluded.password_hash`,
		name, hashPassword(password), s.now().UTC().Format(time.RFC3339),
	)
	return err
}

// SessionCount reports live (unexpired) sessions, for /metrics.
func (s *Store) SessionCount() (int, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM sessions WHERE expires_at > ?`, s.now().Unix(),
	).Scan(&n)
	return n, err
}

func hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}
