package envelope_test

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chainmail/internal/crypto"
	"chainmail/internal/domain"
	"chainmail/internal/protocol/envelope"
)

type party struct {
	priv [32]byte
	pub  []byte
}

func makeParty(t *testing.T) party {
	t.Helper()
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	return party{priv: priv, pub: crypto.PublicKey(priv)}
}

func TestSealOpenBothDirections(t *testing.T) {
	codec := envelope.NewCodec()
	alice := makeParty(t)
	bob := makeParty(t)

	text, err := codec.Seal([]byte("hello bob"), alice.priv, bob.pub)
	require.NoError(t, err)

	got := codec.Open(text, bob.priv, alice.pub)
	require.True(t, got.OK(), "verdict: %s", got.Verdict)
	assert.Equal(t, "hello bob", string(got.Plaintext))

	// Same static keys serve the reply direction.
	reply, err := codec.Seal([]byte("hello alice"), bob.priv, alice.pub)
	require.NoError(t, err)
	got = codec.Open(reply, alice.priv, bob.pub)
	require.True(t, got.OK())
	assert.Equal(t, "hello alice", string(got.Plaintext))
}

func TestSealRejects(t *testing.T) {
	codec := envelope.NewCodec()
	alice := makeParty(t)
	bob := makeParty(t)

	_, err := codec.Seal(nil, alice.priv, bob.pub)
	assert.ErrorIs(t, err, domain.ErrEmptyMessage)

	_, err = codec.Seal([]byte{}, alice.priv, bob.pub)
	assert.ErrorIs(t, err, domain.ErrEmptyMessage)

	_, err = codec.Seal([]byte("hi"), alice.priv, bob.pub[:20])
	assert.ErrorIs(t, err, domain.ErrInvalidKeyFormat)
}

func TestSealProducesFreshNonce(t *testing.T) {
	codec := envelope.NewCodec()
	alice := makeParty(t)
	bob := makeParty(t)

	first, err := codec.Seal([]byte("same plaintext"), alice.priv, bob.pub)
	require.NoError(t, err)
	second, err := codec.Seal([]byte("same plaintext"), alice.priv, bob.pub)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestWireFieldSet(t *testing.T) {
	codec := envelope.NewCodec()
	alice := makeParty(t)
	bob := makeParty(t)

	text, err := codec.Seal([]byte("x"), alice.priv, bob.pub)
	require.NoError(t, err)

	var fields map[string]string
	require.NoError(t, json.Unmarshal([]byte(text), &fields))
	assert.Equal(t, envelope.Version, fields["version"])
	assert.Equal(t, envelope.Algorithm, fields["algorithm"])
	assert.Equal(t, envelope.KeyDerivation, fields["key_derivation"])
	assert.Len(t, fields, 5)

	nonce, err := base64.StdEncoding.DecodeString(fields["nonce"])
	require.NoError(t, err)
	assert.Len(t, nonce, 24)
}

func TestOpenVerdicts(t *testing.T) {
	codec := envelope.NewCodec()
	alice := makeParty(t)
	bob := makeParty(t)
	eve := makeParty(t)

	text, err := codec.Seal([]byte("secret"), alice.priv, bob.pub)
	require.NoError(t, err)

	retag := func(mutate func(m map[string]string)) string {
		var m map[string]string
		require.NoError(t, json.Unmarshal([]byte(text), &m))
		mutate(m)
		out, err := json.Marshal(m)
		require.NoError(t, err)
		return string(out)
	}

	cases := []struct {
		name string
		text string
		want domain.Sentinel
	}{
		{"not json", "hello in the clear", domain.SentinelCorrupted},
		{"truncated json", text[:len(text)/2], domain.SentinelCorrupted},
		{"empty object", "{}", domain.SentinelCorrupted},
		{"missing ciphertext", retag(func(m map[string]string) { delete(m, "ciphertext") }), domain.SentinelCorrupted},
		{"bad nonce base64", retag(func(m map[string]string) { m["nonce"] = "%%%" }), domain.SentinelCorrupted},
		{"short nonce", retag(func(m map[string]string) { m["nonce"] = base64.StdEncoding.EncodeToString(make([]byte, 12)) }), domain.SentinelCorrupted},
		{"bad ciphertext base64", retag(func(m map[string]string) { m["ciphertext"] = "%%%" }), domain.SentinelCorrupted},
		{"foreign algorithm", retag(func(m map[string]string) { m["algorithm"] = "aes-256-gcm" }), domain.SentinelLegacyFormat},
		{"foreign key derivation", retag(func(m map[string]string) { m["key_derivation"] = "x3dh" }), domain.SentinelLegacyFormat},
		{"foreign version", retag(func(m map[string]string) { m["version"] = "0" }), domain.SentinelLegacyFormat},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := codec.Open(tc.text, bob.priv, alice.pub)
			assert.Equal(t, tc.want, got.Verdict)
			assert.Nil(t, got.Plaintext)
		})
	}

	t.Run("wrong key", func(t *testing.T) {
		got := codec.Open(text, eve.priv, alice.pub)
		assert.Equal(t, domain.SentinelUndecryptable, got.Verdict)
		assert.Nil(t, got.Plaintext)
	})

	t.Run("wrong sender attribution", func(t *testing.T) {
		got := codec.Open(text, bob.priv, eve.pub)
		assert.Equal(t, domain.SentinelUndecryptable, got.Verdict)
	})

	t.Run("malformed sender key", func(t *testing.T) {
		got := codec.Open(text, bob.priv, []byte{0x01, 0x02})
		assert.Equal(t, domain.SentinelUndecryptable, got.Verdict)
	})

	t.Run("tampered ciphertext", func(t *testing.T) {
		tampered := retag(func(m map[string]string) {
			raw, err := base64.StdEncoding.DecodeString(m["ciphertext"])
			require.NoError(t, err)
			raw[0] ^= 0x01
			m["ciphertext"] = base64.StdEncoding.EncodeToString(raw)
		})
		got := codec.Open(tampered, bob.priv, alice.pub)
		assert.Equal(t, domain.SentinelUndecryptable, got.Verdict)
	})
}
