// Package ledger provides the chain access layer: every read and write
// the rest of the app performs goes through domain.LedgerClient, and this
// package holds its implementations.
//
// # Overview
//
// Two implementations exist:
//
//   - Gateway: a JSON-over-HTTP client for a ledger gateway daemon.
//     Submits are signed with the wallet key; gateway error codes map
//     back onto the domain error taxonomy.
//   - Dev: an embedded single-process chain simulator backed by bbolt.
//     It applies one block per transaction, charges a flat fee against
//     lazily funded balances, enforces a maximum event-query range, and
//     implements the three well-known contracts (postbox, registry,
//     directory) with the same observable behaviour a real deployment
//     has.
//
// NewHandler exposes any LedgerClient over the gateway wire API, which
// is how ledgerd serves a Dev instance and how the Gateway client is
// tested against a real backend.
//
// # Wire API
//
//	POST /v1/call    {"call":{...}}                         -> {"result":...}
//	POST /v1/submit  {"call":{...},"pubkey":..,"signature":..} -> {"receipt":{...}}
//	GET  /v1/events?channel=0x..&from=N&to=M                -> {"events":[...]}
//	GET  /v1/height                                         -> {"height":N}
//
// Failures carry {"error":"...","code":"..."}; codes are stable and
// shared with the client-side mapping in codes.go.
package ledger
