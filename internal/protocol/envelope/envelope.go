package envelope

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"chainmail/internal/crypto"
	"chainmail/internal/domain"
	"chainmail/internal/util/memzero"
)

// Format tags sealed into every envelope.
const (
	Version       = "1"
	Algorithm     = "xchacha20-poly1305"
	KeyDerivation = "ecdh-secp256k1-sha256"
)

// wire is the on-chain envelope layout. Field set and order are stable;
// readers of old records depend on it.
type wire struct {
	Version       string `json:"version"`
	Algorithm     string `json:"algorithm"`
	KeyDerivation string `json:"key_derivation"`
	Nonce         string `json:"nonce"`
	Ciphertext    string `json:"ciphertext"`
}

// Codec seals and opens message envelopes. Construct one with NewCodec
// during wiring and share it; it is stateless and safe for concurrent use.
type Codec struct{}

// NewCodec returns a ready codec handle.
func NewCodec() *Codec { return &Codec{} }

// Seal encrypts plaintext for the holder of peerPub and returns the
// envelope text to record on the ledger.
func (c *Codec) Seal(plaintext []byte, priv [32]byte, peerPub []byte) (string, error) {
	if len(plaintext) == 0 {
		return "", domain.ErrEmptyMessage
	}
	key, err := crypto.SharedKey(priv, peerPub)
	if err != nil {
		return "", fmt.Errorf("seal: %w", err)
	}
	defer memzero.Zero(key[:])

	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return "", fmt.Errorf("seal: %w", err)
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("seal: read nonce: %w", err)
	}

	env := wire{
		Version:       Version,
		Algorithm:     Algorithm,
		KeyDerivation: KeyDerivation,
		Nonce:         base64.StdEncoding.EncodeToString(nonce),
		Ciphertext:    base64.StdEncoding.EncodeToString(aead.Seal(nil, nonce, plaintext, nil)),
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("seal: %w", err)
	}
	return string(raw), nil
}

// Open decrypts an envelope sealed by the holder of senderPub. It never
// fails: text that cannot be opened yields a sentinel verdict instead.
func (c *Codec) Open(text string, priv [32]byte, senderPub []byte) domain.OpenResult {
	var env wire
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		return verdict(domain.SentinelCorrupted)
	}
	if env.Ciphertext == "" || env.Nonce == "" || env.Algorithm == "" {
		return verdict(domain.SentinelCorrupted)
	}
	if env.Algorithm != Algorithm || env.KeyDerivation != KeyDerivation || env.Version != Version {
		return verdict(domain.SentinelLegacyFormat)
	}

	nonce, err := base64.StdEncoding.DecodeString(env.Nonce)
	if err != nil || len(nonce) != chacha20poly1305.NonceSizeX {
		return verdict(domain.SentinelCorrupted)
	}
	ct, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	if err != nil {
		return verdict(domain.SentinelCorrupted)
	}

	key, err := crypto.SharedKey(priv, senderPub)
	if err != nil {
		return verdict(domain.SentinelUndecryptable)
	}
	defer memzero.Zero(key[:])

	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return verdict(domain.SentinelUndecryptable)
	}
	plaintext, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return verdict(domain.SentinelUndecryptable)
	}
	return domain.OpenResult{Plaintext: plaintext}
}

func verdict(s domain.Sentinel) domain.OpenResult {
	return domain.OpenResult{Verdict: s}
}
