// Package app wires application dependencies for the CLI.
//
// Wiring happens in two stages. NewWire builds the file stores and the
// identity service from Config; that is enough for commands that run
// before a wallet exists. Unlock decrypts the wallet and attaches the
// ledger client and the services that need a signing identity.
package app
