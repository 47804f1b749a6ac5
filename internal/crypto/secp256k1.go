package crypto

import (
	"crypto/sha256"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"chainmail/internal/domain"
	"chainmail/internal/util/memzero"
)

// Public key encodings accepted on the wire.
const (
	compressedKeyLen   = 33
	uncompressedKeyLen = 65
)

// GenerateKey returns a fresh secp256k1 private scalar.
func GenerateKey() (priv [32]byte, err error) {
	k, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return priv, fmt.Errorf("generate key: %w", err)
	}
	copy(priv[:], k.Serialize())
	k.Zero()
	return priv, nil
}

// PublicKey returns the 33-byte compressed public point for priv. This is
// the canonical encoding published to the directory.
func PublicKey(priv [32]byte) []byte {
	k := secp256k1.PrivKeyFromBytes(priv[:])
	defer k.Zero()
	return k.PubKey().SerializeCompressed()
}

// ValidatePublicKey checks that b is one of the two accepted encodings of
// a point on the curve.
func ValidatePublicKey(b []byte) error {
	_, err := parsePublicKey(b)
	return err
}

// SharedKey derives the symmetric key both parties reach for a pair of
// identities: static ECDH (x coordinate) digested with SHA-256.
// SharedKey(aPriv, bPub) equals SharedKey(bPriv, aPub).
func SharedKey(priv [32]byte, peerPub []byte) ([32]byte, error) {
	pub, err := parsePublicKey(peerPub)
	if err != nil {
		return [32]byte{}, err
	}
	k := secp256k1.PrivKeyFromBytes(priv[:])
	defer k.Zero()

	secret := secp256k1.GenerateSharedSecret(k, pub)
	defer memzero.Zero(secret)
	return sha256.Sum256(secret), nil
}

// parsePublicKey enforces the accepted encodings before handing the bytes
// to the curve library, which is more permissive (it also takes hybrid
// 0x06/0x07 points).
func parsePublicKey(b []byte) (*secp256k1.PublicKey, error) {
	switch {
	case len(b) == compressedKeyLen && (b[0] == 0x02 || b[0] == 0x03):
	case len(b) == uncompressedKeyLen && b[0] == 0x04:
	default:
		return nil, fmt.Errorf("%w: %d bytes", domain.ErrInvalidKeyFormat, len(b))
	}
	pub, err := secp256k1.ParsePubKey(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidKeyFormat, err)
	}
	return pub, nil
}
