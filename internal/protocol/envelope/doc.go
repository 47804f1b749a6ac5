// Package envelope implements the authenticated message codec used for
// every confidential payload recorded on the ledger.
//
// # Overview
//
// Both parties derive the same symmetric key from their static keys
// (ECDH on secp256k1, digested with SHA-256), so a single key opens both
// directions of a conversation. Each plaintext is sealed with
// XChaCha20-Poly1305 under a fresh random 24-byte nonce and wrapped in a
// small versioned JSON envelope; the envelope text is what goes on chain.
//
// # Format
//
// All binary fields are base64 (std encoding):
//
//	{"version":"1",
//	 "algorithm":"xchacha20-poly1305",
//	 "key_derivation":"ecdh-secp256k1-sha256",
//	 "nonce":"...",
//	 "ciphertext":"..."}
//
// The algorithm and key_derivation tags exist so a reader can tell a
// foreign producer generation apart from corruption.
//
// # Verdicts
//
// Seal fails loudly (empty plaintext, malformed recipient key). Open
// never returns an error: anything recorded on a public ledger can be
// present in a conversation, so a single bad record must not take down a
// listing. Instead Open classifies failures into sentinels:
//
//   - legacy-or-corrupted: the text does not parse as an envelope at all
//   - legacy-format: parses, but carries unrecognized format tags
//   - undecryptable: authentication failed (wrong key, tampering, or an
//     unusable sender key)
package envelope
