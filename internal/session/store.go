package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/pebble"
	jsoniter "github.com/json-iterator/go"
)

// Key is the single key the session lives under.
const Key = "aqua-guardian-user"

var (
	// ErrNoSession is returned by Load when nobody is signed in.
	ErrNoSession = errors.New("no active session")

	errStoreClosed = errors.New("session store is closed")
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Config locates the session database.
type Config struct {
	// Path is the Pebble directory. Defaults to ~/.aquaboard/session.
	Path string `yaml:"path"`
}

// DefaultPath returns ~/.aquaboard/session, or a relative fallback when
// the home directory is unknown.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".aquaboard", "session")
	}

	return filepath.Join(home, ".aquaboard", "session")
}

// Store persists one User in a Pebble database.
type Store struct {
	db *pebble.DB

	mu     sync.Mutex
	closed bool
}

// Open opens or creates the session database.
func Open(cfg Config) (*Store, error) {
	path := cfg.Path
	if path == "" {
		path = DefaultPath()
	}

	if err := os.MkdirAll(path, 0o700); err != nil {
		return nil, fmt.Errorf("creating session dir %s: %w", path, err)
	}

	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("opening session store %s: %w", path, err)
	}

	return &Store{db: db}, nil
}

// Save replaces the stored user.
func (s *Store) Save(u *User) error {
	if u == nil {
		return errors.New("nil user")
	}

	body, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errStoreClosed
	}

	if err := s.db.Set([]byte(Key), body, pebble.Sync); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}

	return nil
}

// Load returns the stored user or ErrNoSession.
func (s *Store) Load() (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errStoreClosed
	}

	value, closer, err := s.db.Get([]byte(Key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNoSession
		}

		return nil, fmt.Errorf("reading session: %w", err)
	}
	defer closer.Close()

	var u User
	if err := json.Unmarshal(value, &u); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}

	return &u, nil
}

// Delete signs the user out. Deleting an absent session is not an error.
func (s *Store) Delete() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errStoreClosed
	}

	if err := s.db.Delete([]byte(Key), pebble.Sync); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}

	return nil
}

// Close releases the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true

	return s.db.Close()
}
