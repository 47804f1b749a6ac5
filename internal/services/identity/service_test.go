package identity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chainmail/internal/crypto"
	"chainmail/internal/services/identity"
	"chainmail/internal/store"
)

const goodPassphrase = "Correct-Horse-42!"

func TestCreateUnlock(t *testing.T) {
	svc := identity.New(store.NewWalletFileStore(t.TempDir()))

	w, err := svc.Create(goodPassphrase)
	require.NoError(t, err)
	assert.False(t, w.Address.IsZero())
	assert.Equal(t, crypto.AddressOf(w.PrivateKey), w.Address)

	got, err := svc.Unlock(goodPassphrase)
	require.NoError(t, err)
	assert.Equal(t, w, got)
}

func TestCreateRefusesSecondWallet(t *testing.T) {
	svc := identity.New(store.NewWalletFileStore(t.TempDir()))

	_, err := svc.Create(goodPassphrase)
	require.NoError(t, err)

	_, err = svc.Create(goodPassphrase)
	assert.ErrorIs(t, err, identity.ErrWalletExists)
}

func TestCreateEnforcesPassphrasePolicy(t *testing.T) {
	cases := []struct {
		name string
		pass string
	}{
		{"empty", ""},
		{"short", "Ab1!"},
		{"no upper", "correct-horse-42!"},
		{"no lower", "CORRECT-HORSE-42!"},
		{"no digit", "Correct-Horse-Ab!"},
		{"no symbol", "CorrectHorse42ab"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := identity.New(store.NewWalletFileStore(t.TempDir()))
			_, err := svc.Create(tc.pass)
			assert.ErrorIs(t, err, identity.ErrWeakPassphrase)
		})
	}
}

func TestUnlockWrongPassphrase(t *testing.T) {
	svc := identity.New(store.NewWalletFileStore(t.TempDir()))
	_, err := svc.Create(goodPassphrase)
	require.NoError(t, err)

	_, err = svc.Unlock("Wrong-Horse-42!!")
	assert.Error(t, err)
}
