// Package crypto exposes the curve primitives used by chainmail.
//
// Contents
//
//   - secp256k1 key generation, public-key encoding and validation, and
//     static Diffie-Hellman key agreement (GenerateKey, PublicKey,
//     ValidatePublicKey, SharedKey)
//   - ECDSA transaction signing on the same curve (Sign, Verify, NewSigner)
//   - Keccak-256 account addresses and symmetric conversation keys
//     (AddressFromPublicKey, ConversationKey)
//   - Short public-key fingerprints for display/logging (Fingerprint)
//
// # Notes
//
// One curve serves both signing and key agreement, so a single wallet key
// is an account identity and an encryption identity at once. Accepted
// public-key encodings are exactly the 33-byte compressed form (prefix
// 0x02/0x03) and the 65-byte uncompressed form (prefix 0x04); everything
// else, hybrid encodings included, fails with domain.ErrInvalidKeyFormat.
// Callers should treat derived secrets as sensitive and rely on memzero
// when practical to reduce lifetime in memory.
package crypto
