package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chainmail/internal/domain"
	"chainmail/internal/store"
)

func TestSessionCacheSaveLoad(t *testing.T) {
	home := t.TempDir()
	var sc domain.SessionCacheStore = store.NewSessionFileStore(home)

	peer := domain.Address{0x01}
	_, ok, err := sc.LoadSession(peer)
	require.NoError(t, err)
	assert.False(t, ok)

	s := domain.Session{
		Participants: domain.PairOf(peer, domain.Address{0x02}),
		Channel:      domain.Address{0x03},
		CreatedAt:    1000,
		Deadline:     1000 + int64(domain.SessionTTL.Seconds()),
		Active:       true,
		Seq:          2,
	}
	require.NoError(t, sc.SaveSession(peer, s))

	got, ok, err := sc.LoadSession(peer)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, s, got)

	// Overwrite keeps the latest hint.
	s.Channel = domain.Address{0x04}
	require.NoError(t, sc.SaveSession(peer, s))
	got, ok, err = sc.LoadSession(peer)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.Address{0x04}, got.Channel)
}

func TestContactStore(t *testing.T) {
	home := t.TempDir()
	var cs domain.ContactStore = store.NewContactFileStore(home)

	addr := domain.Address{0x11}
	require.NoError(t, cs.SaveContact("Bob", addr))

	got, ok, err := cs.ResolveContact("bob")
	require.NoError(t, err)
	require.True(t, ok, "alias lookup is case-insensitive")
	assert.Equal(t, addr, got)

	_, ok, err = cs.ResolveContact("carol")
	require.NoError(t, err)
	assert.False(t, ok)

	require.Error(t, cs.SaveContact("   ", addr))

	all, err := cs.ListContacts()
	require.NoError(t, err)
	assert.Equal(t, map[string]domain.Address{"bob": addr}, all)
}
