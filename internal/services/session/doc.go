// Package session manages session channel lifecycle against the
// on-ledger registry.
//
// # Overview
//
// A session is a short-lived contract channel a pair of accounts posts
// encrypted messages through. Its deadline is fixed at creation
// (creation time plus one hour) and never extended; "keeping a session
// alive" means opening a fresh channel once the current one lapses.
//
// # Flows
//
// GetOrCreate:
//  1. Consult the advisory caches (in-memory LRU, then the on-disk
//     hint file). A live hit is reused without touching the ledger.
//  2. Ask the registry for the pair's current channel, then read its
//     liveness record. Live: reuse. Stale or closed: open a fresh
//     channel at a derived address.
//  3. If the liveness read fails after the channel lookup succeeded,
//     the channel is reused anyway. The caches are best-effort and the
//     worst outcome is a rejected post, which callers surface.
//
// ForceExpire closes the pair's current channel. The registry enforces
// that the deadline has passed and the session is still open; both
// refusals map onto the shared error taxonomy.
//
// # Caveats
//
// Two writers can race GetOrCreate for the same pair. Channel addresses
// are derived from the pair, the clock and a process counter, so the
// registry's duplicate check turns a same-address race into
// ErrSessionCollision; a different-address race leaves the loser's
// channel registered but superseded. History reads cover superseded
// channels, so no messages are lost either way.
package session
