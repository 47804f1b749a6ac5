package store

import (
	"path/filepath"
	"sync"

	"chainmail/internal/domain"
)

const sessionsFilename = "sessions.json"

// SessionFileStore mirrors the session manager's advisory cache on disk
// so hints survive between command invocations. The registry stays the
// source of truth; stale entries here are harmless.
type SessionFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewSessionFileStore returns a SessionFileStore rooted at dir.
func NewSessionFileStore(dir string) *SessionFileStore {
	return &SessionFileStore{dir: dir}
}

// SaveSession writes the session hint for peer.
func (s *SessionFileStore) SaveSession(peer domain.Address, session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, sessionsFilename)
	sessions := map[domain.Address]domain.Session{}
	_ = readJSON(path, &sessions)
	sessions[peer] = session
	return writeJSON(path, sessions, 0o600)
}

// LoadSession retrieves the cached session hint for peer.
func (s *SessionFileStore) LoadSession(peer domain.Address) (domain.Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, sessionsFilename)
	sessions := map[domain.Address]domain.Session{}
	if err := readJSON(path, &sessions); err != nil {
		return domain.Session{}, false, err
	}
	session, ok := sessions[peer]
	return session, ok, nil
}

// Compile-time assertion that SessionFileStore implements domain.SessionCacheStore.
var _ domain.SessionCacheStore = (*SessionFileStore)(nil)
