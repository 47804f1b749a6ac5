package identity

import (
	"errors"
	"fmt"
	"unicode"

	"github.com/sirupsen/logrus"

	"chainmail/internal/crypto"
	"chainmail/internal/domain"
)

// minPassphraseLength defines the minimum number of characters required
// for a wallet passphrase.
const minPassphraseLength = 12

var (
	// ErrWeakPassphrase is returned when the passphrase fails the strength policy.
	ErrWeakPassphrase = fmt.Errorf(
		"passphrase is too weak (must be at least %d characters and include upper, lower, "+
			"number, and symbol)",
		minPassphraseLength,
	)

	// ErrWalletExists refuses to overwrite an existing wallet file.
	ErrWalletExists = errors.New("wallet already exists")

	// ErrWalletCorrupt is returned when the stored address does not match
	// the stored key.
	ErrWalletCorrupt = errors.New("wallet file is inconsistent")
)

// Service manages the wallet key using a backing store.
//
// The wallet holds a single secp256k1 private key. The same key signs
// ledger transactions and derives the shared message keys, so the account
// address is also the messaging identity.
type Service struct {
	store domain.WalletStore
}

// New returns an identity service backed by the given store.
func New(s domain.WalletStore) *Service { return &Service{store: s} }

// Create generates a new wallet, saves it encrypted with the passphrase,
// and returns it unlocked.
func (s *Service) Create(passphrase string) (domain.Wallet, error) {
	if !isSecurePassphrase(passphrase) {
		return domain.Wallet{}, ErrWeakPassphrase
	}
	exists, err := s.store.Exists()
	if err != nil {
		return domain.Wallet{}, err
	}
	if exists {
		return domain.Wallet{}, ErrWalletExists
	}

	priv, err := crypto.GenerateKey()
	if err != nil {
		return domain.Wallet{}, err
	}
	w := domain.Wallet{
		PrivateKey: priv,
		Address:    crypto.AddressOf(priv),
	}
	if err := s.store.SaveWallet(passphrase, w); err != nil {
		return domain.Wallet{}, err
	}
	logrus.WithField("address", w.Address).Info("wallet created")
	return w, nil
}

// Unlock decrypts and returns the wallet.
func (s *Service) Unlock(passphrase string) (domain.Wallet, error) {
	w, err := s.store.LoadWallet(passphrase)
	if err != nil {
		return domain.Wallet{}, err
	}
	if crypto.AddressOf(w.PrivateKey) != w.Address {
		return domain.Wallet{}, ErrWalletCorrupt
	}
	return w, nil
}

// isSecurePassphrase enforces a basic strength policy.
func isSecurePassphrase(passphrase string) bool {
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	if len(passphrase) < minPassphraseLength {
		return false
	}
	for _, r := range passphrase {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r), unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	return hasUpper && hasLower && hasDigit && hasSymbol
}

// Compile-time assertion that Service implements domain.IdentityService.
var _ domain.IdentityService = (*Service)(nil)
