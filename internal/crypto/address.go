package crypto

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/sha3"

	"chainmail/internal/domain"
)

// Keccak256 returns the legacy Keccak-256 digest over the concatenation
// of the inputs. Account addresses and conversation keys use it.
func Keccak256(data ...[]byte) [32]byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	var out [32]byte
	h.Sum(out[:0])
	return out
}

// AddressFromPublicKey derives the 20-byte account address: Keccak-256
// over the 64 uncompressed coordinate bytes, low 20 bytes kept.
func AddressFromPublicKey(pub []byte) (domain.Address, error) {
	parsed, err := parsePublicKey(pub)
	if err != nil {
		return domain.Address{}, err
	}
	return addressOf(parsed), nil
}

// AddressOf derives the account address for a private key.
func AddressOf(priv [32]byte) domain.Address {
	k := secp256k1.PrivKeyFromBytes(priv[:])
	defer k.Zero()
	return addressOf(k.PubKey())
}

func addressOf(pub *secp256k1.PublicKey) domain.Address {
	raw := pub.SerializeUncompressed()
	sum := Keccak256(raw[1:])
	var a domain.Address
	copy(a[:], sum[12:])
	return a
}

// ConversationKey is the shared identifier of the pair's persistent
// conversation: Keccak-256 over the canonically ordered address pair.
// Symmetric, so both participants address the same postbox record.
func ConversationKey(a, b domain.Address) domain.Hash {
	pair := domain.PairOf(a, b)
	return Keccak256(pair[0][:], pair[1][:])
}

// Fingerprint returns a short hex fingerprint of a public key.
//
// It hashes with SHA-256 and truncates to 10 bytes (20 hex chars). For
// logs and display only; never an identifier.
func Fingerprint(pub []byte) string {
	sum := sha256.Sum256(pub)
	return hex.EncodeToString(sum[:10])
}
