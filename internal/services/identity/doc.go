// Package identity manages creation and unlocking of the local wallet.
//
// It enforces passphrase policy, generates the secp256k1 wallet key,
// derives the account address, and persists the key encrypted via the
// domain.WalletStore.
package identity
