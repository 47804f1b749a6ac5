package store

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"chainmail/internal/domain"
	"chainmail/internal/util/memzero"
)

const walletFilename = "wallet.json.enc"

// WalletFileStore persists the wallet key to disk, encrypted under the
// passphrase.
type WalletFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewWalletFileStore returns a WalletFileStore rooted at dir.
func NewWalletFileStore(dir string) *WalletFileStore {
	return &WalletFileStore{dir: dir}
}

// walletFile is the plaintext layout inside the encrypted blob.
type walletFile struct {
	PrivateKey string         `json:"private_key"`
	Address    domain.Address `json:"address"`
}

// SaveWallet writes the encrypted wallet to disk.
func (s *WalletFileStore) SaveWallet(passphrase string, w domain.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.Marshal(walletFile{
		PrivateKey: hex.EncodeToString(w.PrivateKey[:]),
		Address:    w.Address,
	})
	if err != nil {
		return err
	}
	defer memzero.Zero(raw)

	N, r, p := scryptParamsDefault()
	ct, err := encrypt(passphrase, raw, N, r, p)
	if err != nil {
		return err
	}
	return writeFile(filepath.Join(s.dir, walletFilename), ct, 0o600)
}

// LoadWallet reads and decrypts the wallet.
func (s *WalletFileStore) LoadWallet(passphrase string) (domain.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(filepath.Join(s.dir, walletFilename))
	if err != nil {
		return domain.Wallet{}, err
	}
	pt, err := decrypt(passphrase, b)
	if err != nil {
		return domain.Wallet{}, err
	}
	defer memzero.Zero(pt)

	var wf walletFile
	if err := json.Unmarshal(pt, &wf); err != nil {
		return domain.Wallet{}, err
	}
	key, err := hex.DecodeString(wf.PrivateKey)
	if err != nil {
		return domain.Wallet{}, err
	}
	var w domain.Wallet
	if len(key) != len(w.PrivateKey) {
		return domain.Wallet{}, fmt.Errorf("wallet key: want %d bytes, got %d", len(w.PrivateKey), len(key))
	}
	copy(w.PrivateKey[:], key)
	memzero.Zero(key)
	w.Address = wf.Address
	return w, nil
}

// Exists reports whether a wallet file is present.
func (s *WalletFileStore) Exists() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := os.Stat(filepath.Join(s.dir, walletFilename))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Compile-time assertion that WalletFileStore implements domain.WalletStore.
var _ domain.WalletStore = (*WalletFileStore)(nil)
