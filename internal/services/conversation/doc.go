// Package conversation assembles the merged two-party message history.
//
// # Overview
//
// A conversation with a peer spans two transports: the persistent
// postbox contract and every session channel the pair has ever opened.
// List reads both, decrypts what it can, and returns one chronological
// listing. Records that cannot be read or decrypted degrade to sentinel
// verdicts instead of failing the listing.
//
// # Scanning
//
// Session history lives in channel event logs. The scanner walks each
// channel backward from the chain head over a bounded window, querying
// in chunks. When the backend refuses a chunk as too wide the scanner
// narrows it, down to a floor; a sub-range refused even at the floor is
// dropped and counted rather than sinking the listing. The window never
// widens again once narrowed.
//
// # Rendering
//
// Expired messages keep their metadata but never reach the codec; their
// content renders as the expired sentinel. When the peer's public key
// cannot be resolved every remaining envelope renders undecryptable,
// and the listing is still returned.
package conversation
