package ledger

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/benbjohnson/clock"
	"github.com/fxamacker/cbor/v2"
	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"

	"chainmail/internal/crypto"
	"chainmail/internal/domain"
)

// Dev defaults. A deliberately small query range keeps the aggregator's
// narrowing path honest even in local setups.
const (
	devFormatVersion             = 1
	DefaultMaxQueryRange  uint64 = 256
	DefaultTxFee          uint64 = 10
	DefaultInitialBalance uint64 = 1_000_000
)

// bbolt bucket layout. Sequence keys are big-endian so cursor order is
// chain order.
var (
	bucketMeta          = []byte("meta")
	bucketBalances      = []byte("balances")
	bucketMessages      = []byte("postbox_messages")      // seq8 -> cbor(Message)
	bucketConversations = []byte("postbox_conversations") // conv32|seq8 -> nil
	bucketCurrent       = []byte("registry_current")      // pair40 -> channel20
	bucketChannels      = []byte("registry_channels")     // pair40|ctr8 -> channel20
	bucketSessions      = []byte("registry_sessions")     // channel20 -> cbor(Session)
	bucketDirectory     = []byte("directory_keys")        // addr20 -> pubkey
	bucketEvents        = []byte("events")                // channel20|block8|idx4 -> cbor(Event)

	keyVersion = []byte("version")
	keyHeight  = []byte("height")
)

// DevContracts returns the deterministic addresses the three well-known
// contracts occupy on every dev chain.
func DevContracts() domain.ContractSet {
	return domain.ContractSet{
		Postbox:   devContractAddress("postbox"),
		Registry:  devContractAddress("registry"),
		Directory: devContractAddress("directory"),
	}
}

func devContractAddress(name string) domain.Address {
	sum := crypto.Keccak256([]byte("chainmail/contract/" + name))
	var a domain.Address
	copy(a[:], sum[12:])
	return a
}

// DevConfig configures an embedded dev chain. Zero values take the
// package defaults.
type DevConfig struct {
	Path           string
	Clock          clock.Clock
	MaxQueryRange  uint64
	TxFee          uint64
	InitialBalance uint64
}

// Dev is a single-process chain simulator: one block per transaction,
// flat fees, and the contract surface the app expects. It exists for
// local use and tests; nothing about it is durable beyond its bbolt file.
type Dev struct {
	db             *bolt.DB
	clk            clock.Clock
	contracts      domain.ContractSet
	maxQueryRange  uint64
	txFee          uint64
	initialBalance uint64
}

// OpenDev opens (creating if needed) a dev chain at cfg.Path.
func OpenDev(cfg DevConfig) (*Dev, error) {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.MaxQueryRange == 0 {
		cfg.MaxQueryRange = DefaultMaxQueryRange
	}
	if cfg.TxFee == 0 {
		cfg.TxFee = DefaultTxFee
	}
	if cfg.InitialBalance == 0 {
		cfg.InitialBalance = DefaultInitialBalance
	}

	db, err := bolt.Open(cfg.Path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open dev ledger: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{
			bucketMeta, bucketBalances, bucketMessages, bucketConversations,
			bucketCurrent, bucketChannels, bucketSessions, bucketDirectory, bucketEvents,
		} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		meta := tx.Bucket(bucketMeta)
		if v := meta.Get(keyVersion); v == nil {
			if err := meta.Put(keyVersion, be8(devFormatVersion)); err != nil {
				return err
			}
			return meta.Put(keyHeight, be8(0))
		} else if binary.BigEndian.Uint64(v) != devFormatVersion {
			return fmt.Errorf("dev ledger format version %d not supported", binary.BigEndian.Uint64(v))
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init dev ledger: %w", err)
	}

	return &Dev{
		db:             db,
		clk:            cfg.Clock,
		contracts:      DevContracts(),
		maxQueryRange:  cfg.MaxQueryRange,
		txFee:          cfg.TxFee,
		initialBalance: cfg.InitialBalance,
	}, nil
}

// Close releases the underlying database.
func (d *Dev) Close() error { return d.db.Close() }

// Contracts returns the chain's well-known contract addresses.
func (d *Dev) Contracts() domain.ContractSet { return d.contracts }

// SubmitAndConfirm applies call as the next block. The whole block is
// one bbolt transaction, so a rejected call leaves no trace.
func (d *Dev) SubmitAndConfirm(ctx context.Context, call domain.Call) (domain.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return domain.Receipt{}, err
	}

	var receipt domain.Receipt
	err := d.db.Update(func(tx *bolt.Tx) error {
		if err := d.chargeFee(tx, call.From); err != nil {
			return err
		}
		height := binary.BigEndian.Uint64(tx.Bucket(bucketMeta).Get(keyHeight)) + 1
		now := d.clk.Now().Unix()

		var err error
		switch call.To {
		case d.contracts.Postbox:
			err = d.applyPostbox(tx, call, now)
		case d.contracts.Registry:
			err = d.applyRegistry(tx, call, now)
		case d.contracts.Directory:
			err = d.applyDirectory(tx, call)
		default:
			err = d.applySessionChannel(tx, call, height, now)
		}
		if err != nil {
			return err
		}

		if err := tx.Bucket(bucketMeta).Put(keyHeight, be8(height)); err != nil {
			return err
		}
		raw, err := json.Marshal(call)
		if err != nil {
			return err
		}
		receipt = domain.Receipt{
			TxHash: crypto.Keccak256(raw, be8(height)),
			Block:  height,
			Cost:   d.txFee,
		}
		return nil
	})
	if err != nil {
		return domain.Receipt{}, err
	}

	logrus.WithFields(logrus.Fields{
		"block":  receipt.Block,
		"method": call.Method,
		"to":     call.To,
	}).Debug("dev ledger applied block")
	return receipt, nil
}

// Call serves a free read of current state.
func (d *Dev) Call(ctx context.Context, call domain.Call) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var result json.RawMessage
	err := d.db.View(func(tx *bolt.Tx) error {
		var err error
		switch call.To {
		case d.contracts.Postbox:
			result, err = d.readPostbox(tx, call)
		case d.contracts.Registry:
			result, err = d.readRegistry(tx, call)
		case d.contracts.Directory:
			result, err = d.readDirectory(tx, call)
		default:
			err = fmt.Errorf("no contract at %s", call.To)
		}
		return err
	})
	return result, err
}

// QueryEvents returns events on channel in blocks [from, to]. Windows
// wider than the configured maximum fail whole with ErrRangeTooLarge.
func (d *Dev) QueryEvents(ctx context.Context, channel domain.Address, from, to uint64) ([]domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if from > to {
		return nil, fmt.Errorf("event query: from %d past to %d", from, to)
	}
	if to-from+1 > d.maxQueryRange {
		return nil, fmt.Errorf("%w: %d blocks, max %d", domain.ErrRangeTooLarge, to-from+1, d.maxQueryRange)
	}

	var events []domain.Event
	err := d.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketEvents).Cursor()
		seek := append(append([]byte{}, channel[:]...), be8(from)...)
		for k, v := c.Seek(seek); k != nil && bytes.HasPrefix(k, channel[:]); k, v = c.Next() {
			block := binary.BigEndian.Uint64(k[len(channel):])
			if block > to {
				break
			}
			var ev domain.Event
			if err := cbor.Unmarshal(v, &ev); err != nil {
				return fmt.Errorf("decode event: %w", err)
			}
			events = append(events, ev)
		}
		return nil
	})
	return events, err
}

// BlockHeight returns the current chain head.
func (d *Dev) BlockHeight(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var height uint64
	err := d.db.View(func(tx *bolt.Tx) error {
		height = binary.BigEndian.Uint64(tx.Bucket(bucketMeta).Get(keyHeight))
		return nil
	})
	return height, err
}

// Balance reports the spendable balance of addr, counting the lazy
// first-use grant for accounts the chain has not seen yet.
func (d *Dev) Balance(addr domain.Address) (uint64, error) {
	balance := d.initialBalance
	err := d.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketBalances).Get(addr[:]); v != nil {
			balance = binary.BigEndian.Uint64(v)
		}
		return nil
	})
	return balance, err
}

// SetBalance pins addr's balance, overriding the lazy grant.
func (d *Dev) SetBalance(addr domain.Address, balance uint64) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBalances).Put(addr[:], be8(balance))
	})
}

func (d *Dev) chargeFee(tx *bolt.Tx, from domain.Address) error {
	b := tx.Bucket(bucketBalances)
	balance := d.initialBalance
	if v := b.Get(from[:]); v != nil {
		balance = binary.BigEndian.Uint64(v)
	}
	if balance < d.txFee {
		return fmt.Errorf("%w: account %s has %d, fee %d", domain.ErrInsufficientFunds, from, balance, d.txFee)
	}
	return b.Put(from[:], be8(balance-d.txFee))
}

// applyPostbox handles post(conv, to, envelope, expiry).
func (d *Dev) applyPostbox(tx *bolt.Tx, call domain.Call, now int64) error {
	if call.Method != "post" {
		return fmt.Errorf("postbox: unknown method %q", call.Method)
	}
	conv, err := argHash(call.Args, 0)
	if err != nil {
		return err
	}
	to, err := argAddress(call.Args, 1)
	if err != nil {
		return err
	}
	envelope, err := argAt(call.Args, 2)
	if err != nil {
		return err
	}
	expiry, err := argInt(call.Args, 3)
	if err != nil {
		return err
	}

	msgs := tx.Bucket(bucketMessages)
	seq, err := msgs.NextSequence()
	if err != nil {
		return err
	}
	raw, err := cbor.Marshal(domain.Message{
		Seq:       seq,
		From:      call.From,
		To:        to,
		Envelope:  envelope,
		CreatedAt: now,
		Expiry:    expiry,
	})
	if err != nil {
		return err
	}
	if err := msgs.Put(be8(seq), raw); err != nil {
		return err
	}
	key := append(append([]byte{}, conv[:]...), be8(seq)...)
	return tx.Bucket(bucketConversations).Put(key, nil)
}

// applyRegistry handles open(peer, channel) and close(channel).
func (d *Dev) applyRegistry(tx *bolt.Tx, call domain.Call, now int64) error {
	sessions := tx.Bucket(bucketSessions)

	switch call.Method {
	case "open":
		peer, err := argAddress(call.Args, 0)
		if err != nil {
			return err
		}
		channel, err := argAddress(call.Args, 1)
		if err != nil {
			return err
		}
		if sessions.Get(channel[:]) != nil {
			return fmt.Errorf("%w: %s", domain.ErrSessionCollision, channel)
		}

		pair := domain.PairOf(call.From, peer)
		raw, err := cbor.Marshal(domain.Session{
			Participants: pair,
			Channel:      channel,
			CreatedAt:    now,
			Deadline:     now + int64(domain.SessionTTL.Seconds()),
			Active:       true,
		})
		if err != nil {
			return err
		}
		if err := sessions.Put(channel[:], raw); err != nil {
			return err
		}
		if err := tx.Bucket(bucketCurrent).Put(pairKey(pair), channel[:]); err != nil {
			return err
		}
		channels := tx.Bucket(bucketChannels)
		ctr, err := channels.NextSequence()
		if err != nil {
			return err
		}
		return channels.Put(append(pairKey(pair), be8(ctr)...), channel[:])

	case "close":
		channel, err := argAddress(call.Args, 0)
		if err != nil {
			return err
		}
		raw := sessions.Get(channel[:])
		if raw == nil {
			return fmt.Errorf("%w: channel %s", domain.ErrNoSession, channel)
		}
		var sess domain.Session
		if err := cbor.Unmarshal(raw, &sess); err != nil {
			return err
		}
		if !sess.Active {
			return fmt.Errorf("%w: %s", domain.ErrSessionAlreadyClosed, channel)
		}
		if now < sess.Deadline {
			return fmt.Errorf("%w: %s until %d", domain.ErrSessionNotExpired, channel, sess.Deadline)
		}
		sess.Active = false
		updated, err := cbor.Marshal(sess)
		if err != nil {
			return err
		}
		return sessions.Put(channel[:], updated)

	default:
		return fmt.Errorf("registry: unknown method %q", call.Method)
	}
}

// applyDirectory handles register(pubkey).
func (d *Dev) applyDirectory(tx *bolt.Tx, call domain.Call) error {
	if call.Method != "register" {
		return fmt.Errorf("directory: unknown method %q", call.Method)
	}
	raw, err := argAt(call.Args, 0)
	if err != nil {
		return err
	}
	pub, err := hex.DecodeString(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidKeyFormat, err)
	}
	if err := crypto.ValidatePublicKey(pub); err != nil {
		return err
	}
	return tx.Bucket(bucketDirectory).Put(call.From[:], pub)
}

// applySessionChannel handles post(envelope, expiry) on a live session
// channel and emits the MessageSent event.
func (d *Dev) applySessionChannel(tx *bolt.Tx, call domain.Call, height uint64, now int64) error {
	sessions := tx.Bucket(bucketSessions)
	raw := sessions.Get(call.To[:])
	if raw == nil {
		return fmt.Errorf("no contract at %s", call.To)
	}
	if call.Method != "post" {
		return fmt.Errorf("session channel: unknown method %q", call.Method)
	}
	var sess domain.Session
	if err := cbor.Unmarshal(raw, &sess); err != nil {
		return err
	}
	if !sess.Active {
		return fmt.Errorf("%w: %s", domain.ErrSessionAlreadyClosed, call.To)
	}
	if now >= sess.Deadline {
		return fmt.Errorf("session channel %s past deadline", call.To)
	}

	envelope, err := argAt(call.Args, 0)
	if err != nil {
		return err
	}
	expiry, err := argInt(call.Args, 1)
	if err != nil {
		return err
	}

	sess.Seq++
	updated, err := cbor.Marshal(sess)
	if err != nil {
		return err
	}
	if err := sessions.Put(call.To[:], updated); err != nil {
		return err
	}

	to := sess.Participants[0]
	if to == call.From {
		to = sess.Participants[1]
	}
	payload, err := json.Marshal(domain.MessageSentPayload{
		From:     call.From,
		To:       to,
		Seq:      sess.Seq,
		Envelope: envelope,
		Expiry:   expiry,
	})
	if err != nil {
		return err
	}
	event, err := cbor.Marshal(domain.Event{
		Channel: call.To,
		Name:    domain.EventMessageSent,
		Block:   height,
		Index:   0,
		Time:    now,
		Data:    payload,
	})
	if err != nil {
		return err
	}
	key := append(append(append([]byte{}, call.To[:]...), be8(height)...), be4(0)...)
	return tx.Bucket(bucketEvents).Put(key, event)
}

// readPostbox serves ids(conv) and get(seq).
func (d *Dev) readPostbox(tx *bolt.Tx, call domain.Call) (json.RawMessage, error) {
	switch call.Method {
	case "ids":
		conv, err := argHash(call.Args, 0)
		if err != nil {
			return nil, err
		}
		ids := []uint64{}
		c := tx.Bucket(bucketConversations).Cursor()
		for k, _ := c.Seek(conv[:]); k != nil && bytes.HasPrefix(k, conv[:]); k, _ = c.Next() {
			ids = append(ids, binary.BigEndian.Uint64(k[len(conv):]))
		}
		return json.Marshal(struct {
			IDs []uint64 `json:"ids"`
		}{IDs: ids})

	case "get":
		seq, err := argUint(call.Args, 0)
		if err != nil {
			return nil, err
		}
		raw := tx.Bucket(bucketMessages).Get(be8(seq))
		if raw == nil {
			return nil, fmt.Errorf("postbox: no message %d", seq)
		}
		var msg domain.Message
		if err := cbor.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		return json.Marshal(msg)

	default:
		return nil, fmt.Errorf("postbox: unknown method %q", call.Method)
	}
}

// readRegistry serves currentOf(a, b), info(channel) and channelsOf(a, b).
func (d *Dev) readRegistry(tx *bolt.Tx, call domain.Call) (json.RawMessage, error) {
	switch call.Method {
	case "currentOf":
		pair, err := argPair(call.Args)
		if err != nil {
			return nil, err
		}
		channel := ""
		if v := tx.Bucket(bucketCurrent).Get(pairKey(pair)); v != nil {
			var a domain.Address
			copy(a[:], v)
			channel = a.String()
		}
		return json.Marshal(struct {
			Channel string `json:"channel"`
		}{Channel: channel})

	case "info":
		channel, err := argAddress(call.Args, 0)
		if err != nil {
			return nil, err
		}
		raw := tx.Bucket(bucketSessions).Get(channel[:])
		if raw == nil {
			return nil, fmt.Errorf("%w: channel %s", domain.ErrNoSession, channel)
		}
		var sess domain.Session
		if err := cbor.Unmarshal(raw, &sess); err != nil {
			return nil, err
		}
		return json.Marshal(sess)

	case "channelsOf":
		pair, err := argPair(call.Args)
		if err != nil {
			return nil, err
		}
		prefix := pairKey(pair)
		channels := []domain.Address{}
		c := tx.Bucket(bucketChannels).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var a domain.Address
			copy(a[:], v)
			channels = append(channels, a)
		}
		return json.Marshal(struct {
			Channels []domain.Address `json:"channels"`
		}{Channels: channels})

	default:
		return nil, fmt.Errorf("registry: unknown method %q", call.Method)
	}
}

// readDirectory serves lookup(addr).
func (d *Dev) readDirectory(tx *bolt.Tx, call domain.Call) (json.RawMessage, error) {
	if call.Method != "lookup" {
		return nil, fmt.Errorf("directory: unknown method %q", call.Method)
	}
	addr, err := argAddress(call.Args, 0)
	if err != nil {
		return nil, err
	}
	pub := tx.Bucket(bucketDirectory).Get(addr[:])
	if pub == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrKeyNotFound, addr)
	}
	return json.Marshal(struct {
		PubKey string `json:"pubkey"`
	}{PubKey: hex.EncodeToString(pub)})
}

// Argument decoding. Quantities travel as decimal strings.

func argAt(args []string, i int) (string, error) {
	if i >= len(args) {
		return "", fmt.Errorf("missing argument %d", i)
	}
	return args[i], nil
}

func argAddress(args []string, i int) (domain.Address, error) {
	s, err := argAt(args, i)
	if err != nil {
		return domain.Address{}, err
	}
	return domain.ParseAddress(s)
}

func argPair(args []string) ([2]domain.Address, error) {
	a, err := argAddress(args, 0)
	if err != nil {
		return [2]domain.Address{}, err
	}
	b, err := argAddress(args, 1)
	if err != nil {
		return [2]domain.Address{}, err
	}
	return domain.PairOf(a, b), nil
}

func argHash(args []string, i int) (domain.Hash, error) {
	s, err := argAt(args, i)
	if err != nil {
		return domain.Hash{}, err
	}
	var h domain.Hash
	if err := h.UnmarshalText([]byte(s)); err != nil {
		return domain.Hash{}, err
	}
	return h, nil
}

func argUint(args []string, i int) (uint64, error) {
	s, err := argAt(args, i)
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(s, 10, 64)
}

func argInt(args []string, i int) (int64, error) {
	s, err := argAt(args, i)
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(s, 10, 64)
}

func be8(n uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, n)
	return b
}

func be4(n uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, n)
	return b
}

func pairKey(pair [2]domain.Address) []byte {
	return append(append([]byte{}, pair[0][:]...), pair[1][:]...)
}

// Compile-time assertion that Dev implements domain.LedgerClient.
var _ domain.LedgerClient = (*Dev)(nil)
