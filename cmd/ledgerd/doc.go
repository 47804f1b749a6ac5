// Package main runs the single-node development ledger used by
// chainmail during development and tests. It embeds the same chain
// backend the CLI uses in dev mode and serves it over the gateway wire
// API, so a handful of clients can share one chain.
//
// HTTP API
//
//	POST /v1/submit
//	    Submit a signed state-changing call. The signature must verify
//	    against the call's From address; forged senders are rejected
//	    before the call reaches the chain.
//
//	POST /v1/call
//	    Execute a read-only contract call and return its JSON reply.
//
//	GET /v1/events?channel=0x..&from=N&to=M
//	    Return a channel's events for a block range. Ranges wider than
//	    the node's cap fail with code "range_too_large".
//
//	GET /v1/height
//	    Return the current block height.
//
// Behaviour
//
//   - State persists in a single database file (--db, default chain.db).
//   - Every account starts with a development balance; each submitted
//     call burns a flat fee.
//   - Contract addresses are deterministic and logged at startup;
//     gateway-mode clients pin them in their config.
//   - Non-2xx responses carry {"error": "...", "code": "..."} with
//     stable codes the client maps back to typed errors.
//   - The default listen address is :8545.
package main
