package domain

// Wallet holds the long-term ledger identity kept locally: one secp256k1
// private key and the account address derived from it.
type Wallet struct {
	PrivateKey [32]byte
	Address    Address
}
