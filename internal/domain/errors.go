package domain

import "errors"

// Error taxonomy shared across services and ledger clients. Send paths
// fail loudly with these; read paths degrade to sentinels instead.
var (
	// ErrInvalidKeyFormat rejects a public key that is not a valid
	// compressed or uncompressed curve point. Fatal to the one operation
	// that received the key.
	ErrInvalidKeyFormat = errors.New("invalid public key format")

	// ErrEmptyMessage rejects encryption of empty plaintext.
	ErrEmptyMessage = errors.New("empty message")

	// ErrPastExpiry rejects a send whose expiry deadline already passed.
	ErrPastExpiry = errors.New("expiry is in the past")

	// ErrSessionCollision is the registry refusing to open a channel
	// address that is already registered.
	ErrSessionCollision = errors.New("session channel already registered")

	// ErrSessionNotExpired is the registry refusing to close a session
	// whose deadline has not passed.
	ErrSessionNotExpired = errors.New("session deadline has not passed")

	// ErrSessionAlreadyClosed is the registry refusing to close a session
	// twice.
	ErrSessionAlreadyClosed = errors.New("session already closed")

	// ErrNoSession means the registry has no session recorded for the pair.
	ErrNoSession = errors.New("no session for peer")

	// ErrRangeTooLarge is the ledger rejecting an event query window
	// wider than it will serve. Callers narrow and retry.
	ErrRangeTooLarge = errors.New("event query range too large")

	// ErrInsufficientFunds means the account cannot cover the
	// transaction cost.
	ErrInsufficientFunds = errors.New("insufficient funds for transaction")

	// ErrKeyNotFound means the directory has no published key for the
	// address.
	ErrKeyNotFound = errors.New("no public key registered for address")
)
