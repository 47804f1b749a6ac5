package domain

import (
	"context"
	"encoding/json"
)

// Call describes one contract invocation: a read (Call) or a state change
// (SubmitAndConfirm). Quantities in Args travel as decimal strings so no
// precision is lost in JSON transport.
type Call struct {
	From   Address  `json:"from"`
	To     Address  `json:"to"`
	Method string   `json:"method"`
	Args   []string `json:"args,omitempty"`
}

// Receipt confirms an applied transaction.
type Receipt struct {
	TxHash Hash   `json:"tx_hash"`
	Block  uint64 `json:"block"`
	Cost   uint64 `json:"cost"`
}

// Event is one log entry emitted by a contract. Data is the event payload
// as emitted, JSON-encoded.
type Event struct {
	Channel Address         `json:"channel"`
	Name    string          `json:"name"`
	Block   uint64          `json:"block"`
	Index   uint32          `json:"index"`
	Time    int64           `json:"time"`
	Data    json.RawMessage `json:"data"`
}

// EventMessageSent is the event a session channel emits for every
// accepted post.
const EventMessageSent = "MessageSent"

// MessageSentPayload is the JSON payload carried by EventMessageSent.
type MessageSentPayload struct {
	From     Address `json:"from"`
	To       Address `json:"to"`
	Seq      uint64  `json:"seq"`
	Envelope string  `json:"envelope"`
	Expiry   int64   `json:"expiry"`
}

// LedgerClient is the single source of chain truth. Implementations: the
// HTTP gateway client and the embedded dev ledger.
type LedgerClient interface {
	// SubmitAndConfirm signs, submits and waits for the transaction to be
	// applied. Contract rejections surface as taxonomy errors.
	SubmitAndConfirm(ctx context.Context, call Call) (Receipt, error)

	// Call performs a free read against current state.
	Call(ctx context.Context, call Call) (json.RawMessage, error)

	// QueryEvents returns events emitted on channel within blocks
	// [from, to] inclusive. A window wider than the backend allows fails
	// with ErrRangeTooLarge and no partial data.
	QueryEvents(ctx context.Context, channel Address, from, to uint64) ([]Event, error)

	// BlockHeight returns the current chain head.
	BlockHeight(ctx context.Context) (uint64, error)
}

// Signer produces transaction signatures with the wallet key.
type Signer interface {
	Address() Address
	PublicKey() []byte
	Sign(digest [32]byte) ([]byte, error)
}

// ContractSet holds the well-known contract addresses an installation
// talks to.
type ContractSet struct {
	Postbox   Address `json:"postbox"`
	Registry  Address `json:"registry"`
	Directory Address `json:"directory"`
}
