package directory

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"chainmail/internal/crypto"
	"chainmail/internal/domain"
)

// Service talks to the directory contract on behalf of one account.
type Service struct {
	ledger    domain.LedgerClient
	contracts domain.ContractSet
	self      domain.Address
}

// New returns a directory service acting as self.
func New(ledger domain.LedgerClient, contracts domain.ContractSet, self domain.Address) *Service {
	return &Service{ledger: ledger, contracts: contracts, self: self}
}

// Publish registers pub as self's encryption key. Re-publishing
// overwrites the previous key, so rotation is a single transaction.
func (s *Service) Publish(ctx context.Context, pub []byte) (domain.Receipt, error) {
	if err := crypto.ValidatePublicKey(pub); err != nil {
		return domain.Receipt{}, err
	}
	receipt, err := s.ledger.SubmitAndConfirm(ctx, domain.Call{
		From:   s.self,
		To:     s.contracts.Directory,
		Method: "register",
		Args:   []string{hex.EncodeToString(pub)},
	})
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("publish key: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"fingerprint": crypto.Fingerprint(pub),
		"block":       receipt.Block,
	}).Info("public key published")
	return receipt, nil
}

// Lookup resolves the published key for addr. Unregistered addresses
// fail with domain.ErrKeyNotFound.
func (s *Service) Lookup(ctx context.Context, addr domain.Address) ([]byte, error) {
	raw, err := s.ledger.Call(ctx, domain.Call{
		From:   s.self,
		To:     s.contracts.Directory,
		Method: "lookup",
		Args:   []string{addr.String()},
	})
	if err != nil {
		return nil, err
	}
	var out struct {
		PubKey string `json:"pubkey"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("lookup %s: %w", addr, err)
	}
	pub, err := hex.DecodeString(out.PubKey)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", addr, err)
	}
	if err := crypto.ValidatePublicKey(pub); err != nil {
		return nil, fmt.Errorf("lookup %s: %w", addr, err)
	}
	return pub, nil
}

// Compile-time assertion that Service implements domain.KeyDirectory.
var _ domain.KeyDirectory = (*Service)(nil)
