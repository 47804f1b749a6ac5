package message

import (
	"context"
	"fmt"
	"strconv"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"

	"chainmail/internal/crypto"
	"chainmail/internal/domain"
	"chainmail/internal/protocol/envelope"
)

// Service seals plaintexts into envelopes and posts them through the
// postbox or a session channel.
type Service struct {
	ledger    domain.LedgerClient
	contracts domain.ContractSet
	wallet    domain.Wallet
	directory domain.KeyDirectory
	sessions  domain.SessionService
	codec     *envelope.Codec
	clk       clock.Clock
}

// New constructs a message Service bound to the unlocked wallet.
func New(
	ledger domain.LedgerClient,
	contracts domain.ContractSet,
	wallet domain.Wallet,
	directory domain.KeyDirectory,
	sessions domain.SessionService,
	clk clock.Clock,
) *Service {
	return &Service{
		ledger:    ledger,
		contracts: contracts,
		wallet:    wallet,
		directory: directory,
		sessions:  sessions,
		codec:     envelope.NewCodec(),
		clk:       clk,
	}
}

// SendDirect encrypts plaintext for peer and posts it to the postbox
// contract. Expiry is a unix timestamp; domain.ExpiryNever keeps the
// message readable indefinitely.
func (s *Service) SendDirect(ctx context.Context, peer domain.Address, plaintext []byte, expiry int64) (domain.Receipt, error) {
	env, err := s.seal(ctx, peer, plaintext, expiry)
	if err != nil {
		return domain.Receipt{}, err
	}

	conv := crypto.ConversationKey(s.wallet.Address, peer)
	receipt, err := s.ledger.SubmitAndConfirm(ctx, domain.Call{
		From:   s.wallet.Address,
		To:     s.contracts.Postbox,
		Method: "post",
		Args:   []string{conv.String(), peer.String(), env, strconv.FormatInt(expiry, 10)},
	})
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("post message: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"peer":  peer,
		"block": receipt.Block,
		"cost":  receipt.Cost,
	}).Info("message posted")
	return receipt, nil
}

// SendSession encrypts plaintext for peer and posts it through the
// pair's session channel, opening one when none is live. The channel's
// deadline caps how long the message stays readable regardless of
// expiry.
func (s *Service) SendSession(ctx context.Context, peer domain.Address, plaintext []byte, expiry int64) (domain.Receipt, error) {
	env, err := s.seal(ctx, peer, plaintext, expiry)
	if err != nil {
		return domain.Receipt{}, err
	}

	sess, existed, err := s.sessions.GetOrCreate(ctx, peer)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("resolve session: %w", err)
	}
	if !existed {
		logrus.WithFields(logrus.Fields{"peer": peer, "channel": sess.Channel}).
			Debug("opened session for send")
	}

	receipt, err := s.ledger.SubmitAndConfirm(ctx, domain.Call{
		From:   s.wallet.Address,
		To:     sess.Channel,
		Method: "post",
		Args:   []string{env, strconv.FormatInt(expiry, 10)},
	})
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("post session message: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"peer":    peer,
		"channel": sess.Channel,
		"block":   receipt.Block,
		"cost":    receipt.Cost,
	}).Info("session message posted")
	return receipt, nil
}

// seal validates the send and produces the envelope text. Validation
// failures return before any ledger traffic.
func (s *Service) seal(ctx context.Context, peer domain.Address, plaintext []byte, expiry int64) (string, error) {
	if len(plaintext) == 0 {
		return "", domain.ErrEmptyMessage
	}
	if expiry != domain.ExpiryNever && expiry <= s.clk.Now().Unix() {
		return "", fmt.Errorf("%w: %d", domain.ErrPastExpiry, expiry)
	}

	peerPub, err := s.directory.Lookup(ctx, peer)
	if err != nil {
		return "", fmt.Errorf("look up recipient key: %w", err)
	}

	env, err := s.codec.Seal(plaintext, s.wallet.PrivateKey, peerPub)
	if err != nil {
		return "", fmt.Errorf("seal message: %w", err)
	}
	return env, nil
}

// Compile-time assertion that Service implements domain.MessageService.
var _ domain.MessageService = (*Service)(nil)
