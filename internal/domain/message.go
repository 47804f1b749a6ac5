package domain

// ExpiryNever marks a message that never expires.
const ExpiryNever int64 = 0

// ChannelKind tags which transport carried a message.
type ChannelKind string

const (
	// KindPostbox is the persistent store-backed direct channel.
	KindPostbox ChannelKind = "postbox"
	// KindSession is an ephemeral session channel (event log only).
	KindSession ChannelKind = "session"
)

// Message is a confidential message as recorded on the ledger. Envelope is
// the sealed codec text; the ledger never sees plaintext.
type Message struct {
	Seq       uint64      `json:"seq"`
	From      Address     `json:"from"`
	To        Address     `json:"to"`
	Envelope  string      `json:"envelope"`
	CreatedAt int64       `json:"created_at"`
	Expiry    int64       `json:"expiry"`
	Kind      ChannelKind `json:"kind,omitempty"`
	Channel   Address     `json:"channel,omitempty"`
}

// Expired reports whether the message's expiry deadline has passed at now.
// A zero expiry never expires.
func (m Message) Expired(now int64) bool {
	return m.Expiry != ExpiryNever && now > m.Expiry
}

// Sentinel classifies message content that could not be shown as plaintext.
// Reads degrade to sentinels instead of failing the whole listing.
type Sentinel string

const (
	// SentinelNone means the content decrypted cleanly.
	SentinelNone Sentinel = ""
	// SentinelCorrupted covers envelopes that do not parse at all:
	// either a pre-envelope legacy blob or transit corruption.
	SentinelCorrupted Sentinel = "legacy-or-corrupted"
	// SentinelLegacyFormat covers well-formed envelopes sealed by an
	// unrecognized algorithm or key-derivation generation.
	SentinelLegacyFormat Sentinel = "legacy-format"
	// SentinelUndecryptable covers authentication failures: wrong key,
	// tampered ciphertext, or an unusable sender key.
	SentinelUndecryptable Sentinel = "undecryptable"
	// SentinelExpired marks content suppressed because the message's
	// expiry deadline has passed. Decryption is not attempted.
	SentinelExpired Sentinel = "expired"
)

// OpenResult is the outcome of opening one envelope. Exactly one of
// Plaintext (with SentinelNone) or a non-empty Verdict is meaningful.
type OpenResult struct {
	Plaintext []byte
	Verdict   Sentinel
}

// OK reports whether the envelope yielded plaintext.
func (r OpenResult) OK() bool { return r.Verdict == SentinelNone }

// ConversationEntry is one rendered row of a merged conversation listing.
type ConversationEntry struct {
	ID        string      `json:"id"`
	Kind      ChannelKind `json:"kind"`
	From      Address     `json:"from"`
	To        Address     `json:"to"`
	CreatedAt int64       `json:"created_at"`
	Expiry    int64       `json:"expiry"`
	Content   string      `json:"content,omitempty"`
	Verdict   Sentinel    `json:"verdict,omitempty"`
}

// Display returns the content for human output, with sentinel verdicts
// rendered in brackets.
func (e ConversationEntry) Display() string {
	if e.Verdict == SentinelNone {
		return e.Content
	}
	return "[" + string(e.Verdict) + "]"
}
