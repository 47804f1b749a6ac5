// Package store provides file-based persistence for chainmail's local
// state.
//
// It contains concrete implementations of the domain storage interfaces,
// serialising data as JSON on disk under the configured home directory.
// All methods are concurrency-safe via internal locking, and writes go
// through a temp file plus rename so a crash never leaves a torn file.
//
// The package includes stores for:
//   - The wallet key, encrypted under a passphrase (WalletFileStore)
//   - The advisory session cache (SessionFileStore)
//   - The local alias book (ContactFileStore)
//
// Only the wallet file holds secrets; the others are plain JSON.
package store
