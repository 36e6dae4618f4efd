package auth

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "sessions.db"), time.Hour)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_GuestSessionLifecycle(t *testing.T) {
	s := openTestStore(t)

	token, id, err := s.CreateSession()
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if token == "" {
		t.Fatalf("empty token")
	}
	if !id.Guest || !strings.HasPrefix(id.UserID, "guest-") {
		t.Fatalf("fresh session should be a guest: %+v", id)
	}
	if !s.IsGuest(id) {
		t.Fatalf("IsGuest disagreed with the identity")
	}

	got, found, err := s.UserByToken(token)
	if err != nil || !found {
		t.Fatalf("lookup: found=%v err=%v", found, err)
	}
	if got.UserID != id.UserID {
		t.Fatalf("lookup identity: got %+v want %+v", got, id)
	}

	if _, found, _ := s.UserByToken("nonsense"); found {
		t.Fatalf("unknown token must not resolve")
	}
	if _, found, _ := s.UserByToken(""); found {
		t.Fatalf("empty token must not resolve")
	}
}

func TestStore_ExpiryAndRenew(t *testing.T) {
	s := openTestStore(t)

	now := time.Unix(100_000, 0)
	s.now = func() time.Time { return now }

	token, _, err := s.CreateSession()
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Just before expiry the session resolves; renewal pushes it out.
	now = now.Add(59 * time.Minute)
	if _, found, _ := s.UserByToken(token); !found {
		t.Fatalf("session should still be live")
	}
	if err := s.Renew(token); err != nil {
		t.Fatalf("renew: %v", err)
	}

	// The original TTL has long passed, but the renewal keeps it alive.
	now = now.Add(59 * time.Minute)
	if _, found, _ := s.UserByToken(token); !found {
		t.Fatalf("renewed session expired too early")
	}

	// Without further renewal it dies.
	now = now.Add(2 * time.Hour)
	if _, found, _ := s.UserByToken(token); found {
		t.Fatalf("expired session must not resolve")
	}
}

func TestStore_LoginLogout(t *testing.T) {
	s := openTestStore(t)
	if err := s.EnsureUser("ela", "s3cret"); err != nil {
		t.Fatalf("ensure user: %v", err)
	}

	token, _, err := s.CreateSession()
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := s.Login(token, "ela", "wrong"); !errors.Is(err, ErrBadPassword) {
		t.Fatalf("bad password: got %v", err)
	}
	if _, err := s.Login(token, "nobody", "s3cret"); !errors.Is(err, ErrBadPassword) {
		t.Fatalf("unknown user: got %v", err)
	}
	if _, err := s.Login("no-such-token", "ela", "s3cret"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("login without session: got %v", err)
	}

	id, err := s.Login(token, "ela", "s3cret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if id.Guest || id.UserID != "ela" {
		t.Fatalf("login identity: %+v", id)
	}

	got, found, _ := s.UserByToken(token)
	if !found || got.Guest {
		t.Fatalf("session should now be authenticated: found=%v %+v", found, got)
	}

	if err := s.Logout(token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, found, _ := s.UserByToken(token); found {
		t.Fatalf("logged-out session must not resolve")
	}
}

func TestStore_Rename(t *testing.T) {
	s := openTestStore(t)
	_ = s.EnsureUser("ela", "pw")

	token, _, _ := s.CreateSession()
	if _, err := s.Login(token, "ela", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}

	id, err := s.Rename(token, "Commander Ela")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if id.Name != "Commander Ela" {
		t.Fatalf("name: %+v", id)
	}
	if _, err := s.Rename(token, "  "); err == nil {
		t.Fatalf("blank name should be rejected")
	}
	if _, err := s.Rename("gone", "x"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("rename without session: got %v", err)
	}
}

func TestStore_SessionCountSkipsExpired(t *testing.T) {
	s := openTestStore(t)

	now := time.Unix(500_000, 0)
	s.now = func() time.Time { return now }

	if _, _, err := s.CreateSession(); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, _, err := s.CreateSession(); err != nil {
		t.Fatalf("create: %v", err)
	}
	if n, err := s.SessionCount(); err != nil || n != 2 {
		t.Fatalf("count: n=%d err=%v", n, err)
	}
	now = now.Add(2 * time.Hour)
	if n, err := s.SessionCount(); err != nil || n != 0 {
		t.Fatalf("count after expiry: n=%d err=%v", n, err)
	}
}

func TestStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sessions.db")

	s, err := Open(path, time.Hour)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	token, id, err := s.CreateSession()
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s2, err := Open(path, time.Hour)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	got, found, err := s2.UserByToken(token)
	if err != nil || !found {
		t.Fatalf("session lost across restart: found=%v err=%v", found, err)
	}
	if got.UserID != id.UserID {
		t.Fatalf("identity drifted: got %+v want %+v", got, id)
	}
}
