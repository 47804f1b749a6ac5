package crypto

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"chainmail/internal/domain"
)

// Sign produces a DER-encoded ECDSA signature over a 32-byte digest with
// the wallet key.
func Sign(priv [32]byte, digest [32]byte) []byte {
	k := secp256k1.PrivKeyFromBytes(priv[:])
	defer k.Zero()
	return ecdsa.Sign(k, digest[:]).Serialize()
}

// Verify reports whether sig is a valid signature over digest by pub.
func Verify(pub []byte, digest [32]byte, sig []byte) bool {
	parsed, err := parsePublicKey(pub)
	if err != nil {
		return false
	}
	parsedSig, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		return false
	}
	return parsedSig.Verify(digest[:], parsed)
}

// WalletSigner signs ledger transactions with an unlocked wallet.
type WalletSigner struct {
	wallet domain.Wallet
}

var _ domain.Signer = WalletSigner{}

// NewSigner wraps an unlocked wallet as a transaction signer.
func NewSigner(w domain.Wallet) WalletSigner {
	return WalletSigner{wallet: w}
}

// Address returns the signing account.
func (s WalletSigner) Address() domain.Address { return s.wallet.Address }

// PublicKey returns the compressed public key of the signing account.
func (s WalletSigner) PublicKey() []byte { return PublicKey(s.wallet.PrivateKey) }

// Sign signs a transaction digest.
func (s WalletSigner) Sign(digest [32]byte) ([]byte, error) {
	return Sign(s.wallet.PrivateKey, digest), nil
}
