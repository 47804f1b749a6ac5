package store

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"chainmail/internal/domain"
)

const contactsFilename = "contacts.json"

// ContactFileStore persists the local alias book to disk. Aliases are
// case-insensitive and purely local; they never leave this machine.
type ContactFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewContactFileStore returns a ContactFileStore rooted at dir.
func NewContactFileStore(dir string) *ContactFileStore {
	return &ContactFileStore{dir: dir}
}

// SaveContact stores or updates the address for alias.
func (s *ContactFileStore) SaveContact(alias string, addr domain.Address) error {
	key, err := contactKey(alias)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, contactsFilename)
	contacts := map[string]domain.Address{}
	_ = readJSON(path, &contacts)
	contacts[key] = addr
	return writeJSON(path, contacts, 0o600)
}

// ResolveContact retrieves the address stored for alias.
func (s *ContactFileStore) ResolveContact(alias string) (domain.Address, bool, error) {
	key, err := contactKey(alias)
	if err != nil {
		return domain.Address{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, contactsFilename)
	contacts := map[string]domain.Address{}
	if err := readJSON(path, &contacts); err != nil {
		return domain.Address{}, false, err
	}
	addr, ok := contacts[key]
	return addr, ok, nil
}

// ListContacts returns the whole alias book.
func (s *ContactFileStore) ListContacts() (map[string]domain.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, contactsFilename)
	contacts := map[string]domain.Address{}
	if err := readJSON(path, &contacts); err != nil {
		return nil, err
	}
	return contacts, nil
}

func contactKey(alias string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(alias))
	if key == "" {
		return "", fmt.Errorf("empty contact alias")
	}
	return key, nil
}

// Compile-time assertion that ContactFileStore implements domain.ContactStore.
var _ domain.ContactStore = (*ContactFileStore)(nil)
