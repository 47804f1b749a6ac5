// Package commands defines the chainmail CLI and wires dependencies for
// subcommands.
//
// # Commands
//
//   - init            Create the encrypted wallet
//   - address         Print the wallet address and key fingerprint
//   - publish-key     Publish the encryption key on the ledger
//   - contacts        Manage the local alias book
//   - session         Show or establish the session channel with a peer
//   - expire-session  Close a lapsed session channel
//   - send            Encrypt and post a message
//   - read            Show the merged conversation with a peer
//
// # Implementation
//
// The root command loads the config and builds the pre-wallet wiring
// before any subcommand runs. Commands that touch the ledger unlock the
// wallet themselves, so init and contacts work without one. Peers are
// addressed by raw ledger address or by a saved alias.
package commands
