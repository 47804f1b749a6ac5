package app

import (
	"fmt"

	"chainmail/internal/crypto"
	"chainmail/internal/domain"
	"chainmail/internal/ledger"
	conversationsvc "chainmail/internal/services/conversation"
	directorysvc "chainmail/internal/services/directory"
	identitysvc "chainmail/internal/services/identity"
	messagesvc "chainmail/internal/services/message"
	sessionsvc "chainmail/internal/services/session"
	"chainmail/internal/store"
)

// Wire bundles the dependencies available before a wallet is unlocked.
// Commands that only create or inspect local state stop here; everything
// touching the ledger goes through Unlock.
type Wire struct {
	Config   Config
	Wallets  domain.WalletStore
	Contacts domain.ContactStore
	Identity domain.IdentityService
}

// NewWire constructs the pre-wallet dependency graph from cfg.
func NewWire(cfg Config) (*Wire, error) {
	wallets := store.NewWalletFileStore(cfg.Home)
	return &Wire{
		Config:   cfg,
		Wallets:  wallets,
		Contacts: store.NewContactFileStore(cfg.Home),
		Identity: identitysvc.New(wallets),
	}, nil
}

// App is the fully wired application: an unlocked wallet plus the
// ledger-backed services.
type App struct {
	*Wire
	Wallet        domain.Wallet
	Ledger        domain.LedgerClient
	Contracts     domain.ContractSet
	Directory     domain.KeyDirectory
	Sessions      domain.SessionService
	Messages      domain.MessageService
	Conversations domain.ConversationService

	closer func() error
}

// Unlock decrypts the wallet and builds the ledger-backed services.
// Callers own the returned App and must Close it.
func (w *Wire) Unlock(passphrase string) (*App, error) {
	wallet, err := w.Identity.Unlock(passphrase)
	if err != nil {
		return nil, err
	}

	cfg := w.Config
	clk := cfg.clock()

	var (
		client    domain.LedgerClient
		contracts domain.ContractSet
		closer    func() error
	)
	switch cfg.Ledger.Mode {
	case ModeDev:
		dev, err := ledger.OpenDev(ledger.DevConfig{
			Path:  cfg.Ledger.Path,
			Clock: clk,
		})
		if err != nil {
			return nil, fmt.Errorf("open dev ledger: %w", err)
		}
		client = dev
		contracts = dev.Contracts()
		closer = dev.Close
	case ModeGateway:
		contracts, err = cfg.contractSet()
		if err != nil {
			return nil, err
		}
		client = ledger.NewGateway(cfg.Ledger.URL, crypto.NewSigner(wallet))
	default:
		return nil, fmt.Errorf("unknown ledger mode %q", cfg.Ledger.Mode)
	}

	directory := directorysvc.New(client, contracts, wallet.Address)
	sessions := sessionsvc.New(client, contracts, wallet.Address,
		store.NewSessionFileStore(cfg.Home), clk)

	return &App{
		Wire:          w,
		Wallet:        wallet,
		Ledger:        client,
		Contracts:     contracts,
		Directory:     directory,
		Sessions:      sessions,
		Messages:      messagesvc.New(client, contracts, wallet, directory, sessions, clk),
		Conversations: conversationsvc.New(client, contracts, wallet, directory, clk),
		closer:        closer,
	}, nil
}

// Close releases the ledger backend, if it holds resources.
func (a *App) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer()
}
