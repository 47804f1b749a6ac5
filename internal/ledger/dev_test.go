package ledger_test

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chainmail/internal/crypto"
	"chainmail/internal/domain"
	"chainmail/internal/ledger"
)

func newDev(t *testing.T, cfg ledger.DevConfig) (*ledger.Dev, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	mock.Set(time.Unix(1_700_000_000, 0))
	cfg.Path = filepath.Join(t.TempDir(), "chain.db")
	cfg.Clock = mock
	d, err := ledger.OpenDev(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d, mock
}

func postboxPost(from, to domain.Address, envelope string, expiry int64) domain.Call {
	conv := crypto.ConversationKey(from, to)
	return domain.Call{
		From:   from,
		To:     ledger.DevContracts().Postbox,
		Method: "post",
		Args:   []string{conv.String(), to.String(), envelope, strconv.FormatInt(expiry, 10)},
	}
}

func TestDevPostboxRoundTrip(t *testing.T) {
	d, _ := newDev(t, ledger.DevConfig{})
	ctx := context.Background()

	alice := domain.Address{0x0a}
	bob := domain.Address{0x0b}

	r1, err := d.SubmitAndConfirm(ctx, postboxPost(alice, bob, "env-1", 0))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), r1.Block)

	r2, err := d.SubmitAndConfirm(ctx, postboxPost(bob, alice, "env-2", 42))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), r2.Block)
	assert.NotEqual(t, r1.TxHash, r2.TxHash)

	conv := crypto.ConversationKey(alice, bob)
	raw, err := d.Call(ctx, domain.Call{
		From: alice, To: ledger.DevContracts().Postbox,
		Method: "ids", Args: []string{conv.String()},
	})
	require.NoError(t, err)
	var ids struct {
		IDs []uint64 `json:"ids"`
	}
	require.NoError(t, json.Unmarshal(raw, &ids))
	assert.Equal(t, []uint64{1, 2}, ids.IDs)

	raw, err = d.Call(ctx, domain.Call{
		From: alice, To: ledger.DevContracts().Postbox,
		Method: "get", Args: []string{"2"},
	})
	require.NoError(t, err)
	var msg domain.Message
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, bob, msg.From)
	assert.Equal(t, alice, msg.To)
	assert.Equal(t, "env-2", msg.Envelope)
	assert.EqualValues(t, 42, msg.Expiry)

	_, err = d.Call(ctx, domain.Call{
		From: alice, To: ledger.DevContracts().Postbox,
		Method: "get", Args: []string{"99"},
	})
	assert.Error(t, err)
}

func TestDevHeightAdvancesPerSubmit(t *testing.T) {
	d, _ := newDev(t, ledger.DevConfig{})
	ctx := context.Background()

	h, err := d.BlockHeight(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, h)

	_, err = d.SubmitAndConfirm(ctx, postboxPost(domain.Address{1}, domain.Address{2}, "e", 0))
	require.NoError(t, err)

	h, err = d.BlockHeight(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, h)
}

func TestDevRegistryLifecycle(t *testing.T) {
	d, mock := newDev(t, ledger.DevConfig{})
	ctx := context.Background()
	reg := ledger.DevContracts().Registry

	alice := domain.Address{0x0a}
	bob := domain.Address{0x0b}
	channel := domain.Address{0x51}

	open := domain.Call{From: alice, To: reg, Method: "open", Args: []string{bob.String(), channel.String()}}
	_, err := d.SubmitAndConfirm(ctx, open)
	require.NoError(t, err)

	// Same channel address cannot be registered twice.
	_, err = d.SubmitAndConfirm(ctx, open)
	assert.ErrorIs(t, err, domain.ErrSessionCollision)

	raw, err := d.Call(ctx, domain.Call{
		From: bob, To: reg, Method: "currentOf",
		Args: []string{bob.String(), alice.String()},
	})
	require.NoError(t, err)
	var cur struct {
		Channel string `json:"channel"`
	}
	require.NoError(t, json.Unmarshal(raw, &cur))
	assert.Equal(t, channel.String(), cur.Channel)

	raw, err = d.Call(ctx, domain.Call{From: bob, To: reg, Method: "info", Args: []string{channel.String()}})
	require.NoError(t, err)
	var sess domain.Session
	require.NoError(t, json.Unmarshal(raw, &sess))
	assert.True(t, sess.Active)
	assert.Equal(t, sess.CreatedAt+3600, sess.Deadline)
	assert.Equal(t, domain.PairOf(alice, bob), sess.Participants)

	// Closing before the deadline is refused.
	closeCall := domain.Call{From: alice, To: reg, Method: "close", Args: []string{channel.String()}}
	_, err = d.SubmitAndConfirm(ctx, closeCall)
	assert.ErrorIs(t, err, domain.ErrSessionNotExpired)

	mock.Add(61 * time.Minute)
	_, err = d.SubmitAndConfirm(ctx, closeCall)
	require.NoError(t, err)

	_, err = d.SubmitAndConfirm(ctx, closeCall)
	assert.ErrorIs(t, err, domain.ErrSessionAlreadyClosed)

	_, err = d.SubmitAndConfirm(ctx, domain.Call{
		From: alice, To: reg, Method: "close", Args: []string{domain.Address{0x77}.String()},
	})
	assert.ErrorIs(t, err, domain.ErrNoSession)
}

func TestDevRegistryChannelsOfKeepsHistory(t *testing.T) {
	d, mock := newDev(t, ledger.DevConfig{})
	ctx := context.Background()
	reg := ledger.DevContracts().Registry

	alice := domain.Address{0x0a}
	bob := domain.Address{0x0b}
	first := domain.Address{0x51}
	second := domain.Address{0x52}

	_, err := d.SubmitAndConfirm(ctx, domain.Call{From: alice, To: reg, Method: "open", Args: []string{bob.String(), first.String()}})
	require.NoError(t, err)
	mock.Add(61 * time.Minute)
	_, err = d.SubmitAndConfirm(ctx, domain.Call{From: bob, To: reg, Method: "open", Args: []string{alice.String(), second.String()}})
	require.NoError(t, err)

	raw, err := d.Call(ctx, domain.Call{
		From: alice, To: reg, Method: "channelsOf",
		Args: []string{alice.String(), bob.String()},
	})
	require.NoError(t, err)
	var out struct {
		Channels []domain.Address `json:"channels"`
	}
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, []domain.Address{first, second}, out.Channels)
}

func TestDevSessionChannelPostAndEvents(t *testing.T) {
	d, mock := newDev(t, ledger.DevConfig{})
	ctx := context.Background()
	reg := ledger.DevContracts().Registry

	alice := domain.Address{0x0a}
	bob := domain.Address{0x0b}
	channel := domain.Address{0x51}

	_, err := d.SubmitAndConfirm(ctx, domain.Call{From: alice, To: reg, Method: "open", Args: []string{bob.String(), channel.String()}})
	require.NoError(t, err)

	post := func(from domain.Address, env string) (domain.Receipt, error) {
		return d.SubmitAndConfirm(ctx, domain.Call{From: from, To: channel, Method: "post", Args: []string{env, "0"}})
	}

	r1, err := post(alice, "s-env-1")
	require.NoError(t, err)
	r2, err := post(bob, "s-env-2")
	require.NoError(t, err)

	events, err := d.QueryEvents(ctx, channel, r1.Block, r2.Block)
	require.NoError(t, err)
	require.Len(t, events, 2)

	var p1 domain.MessageSentPayload
	require.NoError(t, json.Unmarshal(events[0].Data, &p1))
	assert.Equal(t, domain.EventMessageSent, events[0].Name)
	assert.Equal(t, alice, p1.From)
	assert.Equal(t, bob, p1.To)
	assert.EqualValues(t, 1, p1.Seq)
	assert.Equal(t, "s-env-1", p1.Envelope)

	var p2 domain.MessageSentPayload
	require.NoError(t, json.Unmarshal(events[1].Data, &p2))
	assert.Equal(t, bob, p2.From)
	assert.Equal(t, alice, p2.To)
	assert.EqualValues(t, 2, p2.Seq)

	// Past the deadline the channel refuses posts.
	mock.Add(61 * time.Minute)
	_, err = post(alice, "late")
	assert.Error(t, err)

	// And a closed channel refuses with the taxonomy error.
	_, err = d.SubmitAndConfirm(ctx, domain.Call{From: alice, To: reg, Method: "close", Args: []string{channel.String()}})
	require.NoError(t, err)
	_, err = post(alice, "after close")
	assert.ErrorIs(t, err, domain.ErrSessionAlreadyClosed)
}

func TestDevQueryEventsRange(t *testing.T) {
	d, _ := newDev(t, ledger.DevConfig{MaxQueryRange: 8})
	ctx := context.Background()
	channel := domain.Address{0x51}

	_, err := d.QueryEvents(ctx, channel, 1, 8)
	assert.NoError(t, err, "window of exactly max is served")

	_, err = d.QueryEvents(ctx, channel, 1, 9)
	assert.ErrorIs(t, err, domain.ErrRangeTooLarge)

	_, err = d.QueryEvents(ctx, channel, 9, 1)
	assert.Error(t, err)
}

func TestDevFees(t *testing.T) {
	d, _ := newDev(t, ledger.DevConfig{TxFee: 10, InitialBalance: 25})
	ctx := context.Background()
	alice := domain.Address{0x0a}

	balance, err := d.Balance(alice)
	require.NoError(t, err)
	assert.EqualValues(t, 25, balance)

	_, err = d.SubmitAndConfirm(ctx, postboxPost(alice, domain.Address{2}, "e1", 0))
	require.NoError(t, err)
	_, err = d.SubmitAndConfirm(ctx, postboxPost(alice, domain.Address{2}, "e2", 0))
	require.NoError(t, err)

	balance, err = d.Balance(alice)
	require.NoError(t, err)
	assert.EqualValues(t, 5, balance)

	_, err = d.SubmitAndConfirm(ctx, postboxPost(alice, domain.Address{2}, "e3", 0))
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	// The rejected submit must not advance the chain.
	h, err := d.BlockHeight(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, h)

	require.NoError(t, d.SetBalance(alice, 1000))
	_, err = d.SubmitAndConfirm(ctx, postboxPost(alice, domain.Address{2}, "e3", 0))
	assert.NoError(t, err)
}

func TestDevDirectory(t *testing.T) {
	d, _ := newDev(t, ledger.DevConfig{})
	ctx := context.Background()
	dir := ledger.DevContracts().Directory

	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	pub := crypto.PublicKey(priv)
	alice := crypto.AddressOf(priv)

	_, err = d.Call(ctx, domain.Call{From: alice, To: dir, Method: "lookup", Args: []string{alice.String()}})
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)

	_, err = d.SubmitAndConfirm(ctx, domain.Call{
		From: alice, To: dir, Method: "register", Args: []string{hex.EncodeToString(pub)},
	})
	require.NoError(t, err)

	raw, err := d.Call(ctx, domain.Call{From: alice, To: dir, Method: "lookup", Args: []string{alice.String()}})
	require.NoError(t, err)
	var out struct {
		PubKey string `json:"pubkey"`
	}
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, hex.EncodeToString(pub), out.PubKey)

	_, err = d.SubmitAndConfirm(ctx, domain.Call{
		From: alice, To: dir, Method: "register", Args: []string{"02ffff"},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidKeyFormat)
}

func TestDevPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chain.db")
	ctx := context.Background()
	alice := domain.Address{0x0a}
	bob := domain.Address{0x0b}

	d, err := ledger.OpenDev(ledger.DevConfig{Path: path})
	require.NoError(t, err)
	_, err = d.SubmitAndConfirm(ctx, postboxPost(alice, bob, "persisted", 0))
	require.NoError(t, err)
	require.NoError(t, d.Close())

	d, err = ledger.OpenDev(ledger.DevConfig{Path: path})
	require.NoError(t, err)
	defer d.Close()

	h, err := d.BlockHeight(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, h)

	conv := crypto.ConversationKey(alice, bob)
	raw, err := d.Call(ctx, domain.Call{
		From: alice, To: ledger.DevContracts().Postbox, Method: "ids", Args: []string{conv.String()},
	})
	require.NoError(t, err)
	var ids struct {
		IDs []uint64 `json:"ids"`
	}
	require.NoError(t, json.Unmarshal(raw, &ids))
	assert.Len(t, ids.IDs, 1)
}
