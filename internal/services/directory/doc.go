// Package directory publishes and resolves encryption public keys via
// the on-ledger key directory contract.
//
// Publishing is a transaction by the key owner; lookups are free reads.
// There is no out-of-band trust step: whatever key the directory serves
// for an address is the key used to seal messages to it.
package directory
