package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"

	"chainmail/internal/crypto"
	"chainmail/internal/domain"
	"chainmail/internal/protocol/envelope"
)

// Service reads and decrypts the merged history shared with a peer.
type Service struct {
	ledger    domain.LedgerClient
	contracts domain.ContractSet
	wallet    domain.Wallet
	directory domain.KeyDirectory
	codec     *envelope.Codec
	clk       clock.Clock
}

// New constructs a conversation Service bound to the unlocked wallet.
func New(
	ledger domain.LedgerClient,
	contracts domain.ContractSet,
	wallet domain.Wallet,
	directory domain.KeyDirectory,
	clk clock.Clock,
) *Service {
	return &Service{
		ledger:    ledger,
		contracts: contracts,
		wallet:    wallet,
		directory: directory,
		codec:     envelope.NewCodec(),
		clk:       clk,
	}
}

// List returns every message exchanged with peer across the postbox and
// all session channels, oldest first. A partial listing may accompany a
// non-nil error when the scan was interrupted.
func (s *Service) List(ctx context.Context, peer domain.Address) ([]domain.ConversationEntry, error) {
	now := s.clk.Now().Unix()

	peerPub, err := s.directory.Lookup(ctx, peer)
	pubOK := err == nil
	if !pubOK {
		logrus.WithField("peer", peer).WithError(err).
			Warn("peer key unavailable; content will not decrypt")
	}

	entries, err := s.listPostbox(ctx, peer, now, peerPub, pubOK)
	if err != nil {
		return nil, err
	}

	sessionEntries, scanErr := s.listChannels(ctx, peer, now, peerPub, pubOK)
	entries = append(entries, sessionEntries...)

	// Stable sort keeps postbox entries ahead of same-second session
	// entries and preserves per-channel event order.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt < entries[j].CreatedAt
	})
	return entries, scanErr
}

// listPostbox renders the pair's postbox conversation. A failing ids
// read fails the listing; individual unreadable records are skipped.
func (s *Service) listPostbox(ctx context.Context, peer domain.Address, now int64, peerPub []byte, pubOK bool) ([]domain.ConversationEntry, error) {
	conv := crypto.ConversationKey(s.wallet.Address, peer)
	raw, err := s.ledger.Call(ctx, domain.Call{
		From:   s.wallet.Address,
		To:     s.contracts.Postbox,
		Method: "ids",
		Args:   []string{conv.String()},
	})
	if err != nil {
		return nil, fmt.Errorf("list postbox messages: %w", err)
	}
	var ids struct {
		IDs []uint64 `json:"ids"`
	}
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("decode ids reply: %w", err)
	}

	entries := make([]domain.ConversationEntry, 0, len(ids.IDs))
	for _, seq := range ids.IDs {
		msg, err := s.postboxMessage(ctx, seq)
		if err != nil {
			logrus.WithFields(logrus.Fields{"seq": seq, "peer": peer}).
				WithError(err).Warn("skipping unreadable postbox record")
			continue
		}
		id := fmt.Sprintf("postbox/%d", seq)
		entries = append(entries, s.entry(id, domain.KindPostbox, msg, now, peerPub, pubOK))
	}
	return entries, nil
}

func (s *Service) postboxMessage(ctx context.Context, seq uint64) (domain.Message, error) {
	raw, err := s.ledger.Call(ctx, domain.Call{
		From:   s.wallet.Address,
		To:     s.contracts.Postbox,
		Method: "get",
		Args:   []string{strconv.FormatUint(seq, 10)},
	})
	if err != nil {
		return domain.Message{}, err
	}
	var msg domain.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return domain.Message{}, fmt.Errorf("decode message %d: %w", seq, err)
	}
	return msg, nil
}

// listChannels renders the pair's session history across every channel
// the registry has on record, current and superseded alike.
func (s *Service) listChannels(ctx context.Context, peer domain.Address, now int64, peerPub []byte, pubOK bool) ([]domain.ConversationEntry, error) {
	channels, err := s.channelsOf(ctx, peer)
	if err != nil {
		return nil, fmt.Errorf("list session channels: %w", err)
	}
	if len(channels) == 0 {
		return nil, nil
	}

	head, err := s.ledger.BlockHeight(ctx)
	if err != nil {
		return nil, fmt.Errorf("read chain head: %w", err)
	}

	// One scanner across all channels so a narrowed width sticks.
	scanner := newEventScanner(s.ledger)
	var entries []domain.ConversationEntry
	for _, channel := range channels {
		events, err := scanner.scan(ctx, channel, head)
		entries = append(entries, s.channelEntries(channel, events, now, peerPub, pubOK)...)
		if err != nil {
			return entries, fmt.Errorf("scan channel %s: %w", channel, err)
		}
	}
	if scanner.dropped > 0 {
		logrus.WithFields(logrus.Fields{"peer": peer, "ranges": scanner.dropped}).
			Warn("session history incomplete; ranges dropped after narrowing")
	}
	return entries, nil
}

func (s *Service) channelsOf(ctx context.Context, peer domain.Address) ([]domain.Address, error) {
	pair := domain.PairOf(s.wallet.Address, peer)
	raw, err := s.ledger.Call(ctx, domain.Call{
		From:   s.wallet.Address,
		To:     s.contracts.Registry,
		Method: "channelsOf",
		Args:   []string{pair[0].String(), pair[1].String()},
	})
	if err != nil {
		return nil, err
	}
	var out struct {
		Channels []domain.Address `json:"channels"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode channelsOf reply: %w", err)
	}
	return out.Channels, nil
}

func (s *Service) channelEntries(channel domain.Address, events []domain.Event, now int64, peerPub []byte, pubOK bool) []domain.ConversationEntry {
	entries := make([]domain.ConversationEntry, 0, len(events))
	for _, ev := range events {
		if ev.Name != domain.EventMessageSent {
			continue
		}
		var payload domain.MessageSentPayload
		if err := json.Unmarshal(ev.Data, &payload); err != nil {
			logrus.WithFields(logrus.Fields{"channel": channel, "block": ev.Block}).
				WithError(err).Warn("skipping unreadable channel event")
			continue
		}
		msg := domain.Message{
			Seq:       payload.Seq,
			From:      payload.From,
			To:        payload.To,
			Envelope:  payload.Envelope,
			CreatedAt: ev.Time,
			Expiry:    payload.Expiry,
		}
		id := fmt.Sprintf("%s/%d", channel, payload.Seq)
		entries = append(entries, s.entry(id, domain.KindSession, msg, now, peerPub, pubOK))
	}
	return entries
}

// entry renders one message. Expiry wins over everything else and skips
// decryption entirely.
func (s *Service) entry(id string, kind domain.ChannelKind, msg domain.Message, now int64, peerPub []byte, pubOK bool) domain.ConversationEntry {
	e := domain.ConversationEntry{
		ID:        id,
		Kind:      kind,
		From:      msg.From,
		To:        msg.To,
		CreatedAt: msg.CreatedAt,
		Expiry:    msg.Expiry,
	}
	switch {
	case msg.Expired(now):
		e.Verdict = domain.SentinelExpired
	case !pubOK:
		e.Verdict = domain.SentinelUndecryptable
	default:
		res := s.codec.Open(msg.Envelope, s.wallet.PrivateKey, peerPub)
		if res.OK() {
			e.Content = string(res.Plaintext)
		} else {
			e.Verdict = res.Verdict
		}
	}
	return e
}

// Compile-time assertion that Service implements domain.ConversationService.
var _ domain.ConversationService = (*Service)(nil)
