// Package credstore persists the session credential across process restarts,
// the durable stand-in for the browser localStorage the helpdesk UI uses.
// It is read once at startup, written on every successful login/register and
// cleared on logout; writes replace the whole value atomically.
package credstore

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/smarthelp/deskclient/internal/model"
)

type Credentials struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

type Store struct {
	path string
}

func New(path string) *Store {
	return &Store{path: path}
}

// Load reads the stored credentials. Returns (nil, nil) when nothing is
// stored, or when the stored token carries a JWT exp claim that has already
// passed — an expired credential would only produce an unauthorized error on
// the first request, so it is dropped here instead.
func (s *Store) Load() (*Credentials, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var c Credentials
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	if c.Token == "" {
		return nil, nil
	}
	if tokenExpired(c.Token) {
		_ = s.Clear()
		return nil, nil
	}
	return &c, nil
}

// Save replaces the stored credentials. The temp-file-and-rename dance keeps
// a concurrent Load from ever observing a torn value.
func (s *Store) Save(c *Credentials) error {
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Clear removes the stored credentials; clearing an empty store is a no-op.
func (s *Store) Clear() error {
	err := os.Remove(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// tokenExpired inspects the exp claim without verifying the signature; the
// client holds no key material, and verification is the server's job anyway.
// Opaque non-JWT tokens are kept as-is.
func tokenExpired(token string) bool {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}
