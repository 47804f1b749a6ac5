package session

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"

	"chainmail/internal/crypto"
	"chainmail/internal/domain"
)

// cacheSize bounds the in-memory session LRU.
const cacheSize = 128

// Service resolves live session channels for peers, opening fresh ones
// through the registry contract when the current one has lapsed.
type Service struct {
	ledger    domain.LedgerClient
	contracts domain.ContractSet
	self      domain.Address
	hints     domain.SessionCacheStore
	cache     *expirable.LRU[domain.Address, domain.Session]
	clk       clock.Clock
	counter   atomic.Uint64
}

// New constructs a session Service. The hint store persists advisory
// session records across process restarts; clk supplies the wall clock
// used for liveness checks and channel derivation.
func New(ledger domain.LedgerClient, contracts domain.ContractSet, self domain.Address, hints domain.SessionCacheStore, clk clock.Clock) *Service {
	return &Service{
		ledger:    ledger,
		contracts: contracts,
		self:      self,
		hints:     hints,
		cache:     expirable.NewLRU[domain.Address, domain.Session](cacheSize, nil, domain.SessionTTL),
		clk:       clk,
	}
}

// GetOrCreate returns a live session with peer, reusing the current one
// when it has time left and opening a fresh channel otherwise. The
// returned flag is true when an existing session was reused.
func (s *Service) GetOrCreate(ctx context.Context, peer domain.Address) (domain.Session, bool, error) {
	now := s.clk.Now().Unix()

	if sess, ok := s.cache.Get(peer); ok && sess.Live(now) {
		logrus.WithFields(logrus.Fields{"peer": peer, "channel": sess.Channel}).
			Debug("session cache hit")
		return sess, true, nil
	}
	if sess, ok, err := s.hints.LoadSession(peer); err == nil && ok && sess.Live(now) {
		s.cache.Add(peer, sess)
		logrus.WithFields(logrus.Fields{"peer": peer, "channel": sess.Channel}).
			Debug("session hint file hit")
		return sess, true, nil
	}

	channel, found, err := s.currentChannel(ctx, peer)
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("look up current session: %w", err)
	}
	if found {
		sess, err := s.channelInfo(ctx, channel)
		if err != nil {
			// The registry told us the channel exists but the liveness
			// read failed. Reuse it: the caches are advisory and a post
			// against a lapsed channel fails loudly at the ledger.
			logrus.WithFields(logrus.Fields{"peer": peer, "channel": channel}).
				WithError(err).Warn("session liveness read failed; reusing advisory channel")
			return domain.Session{
				Participants: domain.PairOf(s.self, peer),
				Channel:      channel,
				Active:       true,
			}, true, nil
		}
		if sess.Live(now) {
			s.remember(peer, sess)
			return sess, true, nil
		}
	}

	sess, err := s.open(ctx, peer, now)
	if err != nil {
		return domain.Session{}, false, err
	}
	s.remember(peer, sess)
	logrus.WithFields(logrus.Fields{
		"peer":     peer,
		"channel":  sess.Channel,
		"deadline": sess.Deadline,
	}).Info("session channel opened")
	return sess, false, nil
}

// ForceExpire closes the current session with peer. The registry
// refuses while the deadline has not passed (ErrSessionNotExpired) and
// when the session is already closed (ErrSessionAlreadyClosed); with no
// session on record the call fails with ErrNoSession.
func (s *Service) ForceExpire(ctx context.Context, peer domain.Address) (domain.Receipt, error) {
	channel, found, err := s.currentChannel(ctx, peer)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("look up current session: %w", err)
	}
	if !found {
		return domain.Receipt{}, fmt.Errorf("%w: no session with %s", domain.ErrNoSession, peer)
	}

	receipt, err := s.ledger.SubmitAndConfirm(ctx, domain.Call{
		From:   s.self,
		To:     s.contracts.Registry,
		Method: "close",
		Args:   []string{channel.String()},
	})
	if err != nil {
		return domain.Receipt{}, err
	}

	s.cache.Remove(peer)
	logrus.WithFields(logrus.Fields{"peer": peer, "channel": channel}).
		Info("session channel closed")
	return receipt, nil
}

// open registers a fresh channel for the pair and returns its advisory
// record. The deadline mirrors what the registry computes on-chain so
// the cached copy agrees with the contract.
func (s *Service) open(ctx context.Context, peer domain.Address, now int64) (domain.Session, error) {
	pair := domain.PairOf(s.self, peer)
	channel := s.deriveChannel(pair, now)

	_, err := s.ledger.SubmitAndConfirm(ctx, domain.Call{
		From:   s.self,
		To:     s.contracts.Registry,
		Method: "open",
		Args:   []string{peer.String(), channel.String()},
	})
	if err != nil {
		return domain.Session{}, fmt.Errorf("open session channel: %w", err)
	}

	return domain.Session{
		Participants: pair,
		Channel:      channel,
		CreatedAt:    now,
		Deadline:     now + int64(domain.SessionTTL.Seconds()),
		Active:       true,
	}, nil
}

// deriveChannel computes a fresh channel address for the pair. The
// process counter keeps two opens within the same second distinct.
func (s *Service) deriveChannel(pair [2]domain.Address, now int64) domain.Address {
	var ts, n [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(now))
	binary.BigEndian.PutUint64(n[:], s.counter.Add(1))

	sum := crypto.Keccak256(pair[0][:], pair[1][:], ts[:], n[:])
	var channel domain.Address
	copy(channel[:], sum[12:])
	return channel
}

// remember stores the session in both advisory layers. Hint file
// failures are logged and swallowed; the registry stays authoritative.
func (s *Service) remember(peer domain.Address, sess domain.Session) {
	s.cache.Add(peer, sess)
	if err := s.hints.SaveSession(peer, sess); err != nil {
		logrus.WithField("peer", peer).WithError(err).
			Warn("persist session hint")
	}
}

// currentChannel asks the registry for the pair's current channel.
// found is false when no channel has ever been registered.
func (s *Service) currentChannel(ctx context.Context, peer domain.Address) (domain.Address, bool, error) {
	raw, err := s.ledger.Call(ctx, domain.Call{
		From:   s.self,
		To:     s.contracts.Registry,
		Method: "currentOf",
		Args:   []string{s.self.String(), peer.String()},
	})
	if err != nil {
		return domain.Address{}, false, err
	}
	var out struct {
		Channel string `json:"channel"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return domain.Address{}, false, fmt.Errorf("decode currentOf reply: %w", err)
	}
	if out.Channel == "" {
		return domain.Address{}, false, nil
	}
	channel, err := domain.ParseAddress(out.Channel)
	if err != nil {
		return domain.Address{}, false, fmt.Errorf("decode currentOf reply: %w", err)
	}
	return channel, true, nil
}

// channelInfo reads the registry's liveness record for a channel.
func (s *Service) channelInfo(ctx context.Context, channel domain.Address) (domain.Session, error) {
	raw, err := s.ledger.Call(ctx, domain.Call{
		From:   s.self,
		To:     s.contracts.Registry,
		Method: "info",
		Args:   []string{channel.String()},
	})
	if err != nil {
		return domain.Session{}, err
	}
	var sess domain.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return domain.Session{}, fmt.Errorf("decode info reply: %w", err)
	}
	return sess, nil
}

// Compile-time assertion that Service implements domain.SessionService.
var _ domain.SessionService = (*Service)(nil)
