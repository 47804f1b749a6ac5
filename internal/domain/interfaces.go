package domain

import "context"

// WalletStore persists the long-term wallet key, encrypted at rest.
type WalletStore interface {
	SaveWallet(passphrase string, w Wallet) error
	LoadWallet(passphrase string) (Wallet, error)
	Exists() (bool, error)
}

// SessionCacheStore mirrors the session manager's advisory cache across
// process restarts. Never authoritative; the registry is.
type SessionCacheStore interface {
	SaveSession(peer Address, s Session) error
	LoadSession(peer Address) (Session, bool, error)
}

// ContactStore keeps the local alias book (alias to address).
type ContactStore interface {
	SaveContact(alias string, addr Address) error
	ResolveContact(alias string) (Address, bool, error)
	ListContacts() (map[string]Address, error)
}

// KeyDirectory publishes and looks up encryption public keys on the
// ledger. Lookup of an unregistered address fails with ErrKeyNotFound.
type KeyDirectory interface {
	Publish(ctx context.Context, pub []byte) (Receipt, error)
	Lookup(ctx context.Context, addr Address) ([]byte, error)
}

// IdentityService creates and unlocks the local wallet.
type IdentityService interface {
	Create(passphrase string) (Wallet, error)
	Unlock(passphrase string) (Wallet, error)
}

// SessionService manages session channel lifecycle against the registry.
type SessionService interface {
	// GetOrCreate returns a usable session channel for the peer, reusing
	// the current one when still live. existed reports reuse.
	GetOrCreate(ctx context.Context, peer Address) (s Session, existed bool, err error)

	// ForceExpire closes the pair's current session once its deadline has
	// passed.
	ForceExpire(ctx context.Context, peer Address) (Receipt, error)
}

// MessageService encrypts and submits outgoing messages.
type MessageService interface {
	// SendDirect posts to the persistent postbox conversation.
	SendDirect(ctx context.Context, peer Address, plaintext []byte, expiry int64) (Receipt, error)

	// SendSession posts to the pair's live session channel, establishing
	// one if needed.
	SendSession(ctx context.Context, peer Address, plaintext []byte, expiry int64) (Receipt, error)
}

// ConversationService assembles the merged two-party history.
type ConversationService interface {
	List(ctx context.Context, peer Address) ([]ConversationEntry, error)
}
