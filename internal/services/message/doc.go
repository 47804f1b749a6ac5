// Package message encrypts outgoing messages and submits them to the
// ledger.
//
// Two delivery paths share the same envelope format. SendDirect posts
// to the recipient's persistent postbox conversation and the message
// stays readable until its own expiry. SendSession posts through the
// pair's session channel, establishing one first if needed; session
// messages inherit the one-hour channel deadline on top of any explicit
// expiry.
//
// Both paths validate plaintext and expiry before touching the ledger,
// so a malformed send never costs a transaction fee.
package message
