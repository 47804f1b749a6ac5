package domain

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
)

// Address is a 20-byte ledger account or contract address.
type Address [20]byte

// Hash is a 32-byte ledger digest (transaction hashes, conversation keys).
type Hash [32]byte

// ParseAddress decodes a 0x-prefixed 40-digit hex address.
func ParseAddress(s string) (Address, error) {
	var a Address
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return a, fmt.Errorf("address %q: missing 0x prefix", s)
	}
	raw, err := hex.DecodeString(s[2:])
	if err != nil {
		return a, fmt.Errorf("address %q: %w", s, err)
	}
	if len(raw) != len(a) {
		return a, fmt.Errorf("address %q: want %d bytes, got %d", s, len(a), len(raw))
	}
	copy(a[:], raw)
	return a, nil
}

func (a Address) String() string { return "0x" + hex.EncodeToString(a[:]) }

// IsZero reports whether a is the all-zero address.
func (a Address) IsZero() bool { return a == Address{} }

// MarshalText renders the 0x-hex form for JSON and map keys.
func (a Address) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// UnmarshalText mirrors MarshalText.
func (a *Address) UnmarshalText(b []byte) error {
	parsed, err := ParseAddress(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func (h Hash) String() string { return "0x" + hex.EncodeToString(h[:]) }

// MarshalText renders the 0x-hex form for JSON.
func (h Hash) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

// UnmarshalText mirrors MarshalText.
func (h *Hash) UnmarshalText(b []byte) error {
	s := string(b)
	if !strings.HasPrefix(s, "0x") {
		return fmt.Errorf("hash %q: missing 0x prefix", s)
	}
	raw, err := hex.DecodeString(s[2:])
	if err != nil {
		return fmt.Errorf("hash %q: %w", s, err)
	}
	if len(raw) != len(h) {
		return fmt.Errorf("hash %q: want %d bytes, got %d", s, len(h), len(raw))
	}
	copy(h[:], raw)
	return nil
}

// PairOf returns the two addresses in canonical (ascending byte) order.
// Both participants derive the same pair regardless of who asks.
func PairOf(a, b Address) [2]Address {
	if bytes.Compare(a[:], b[:]) <= 0 {
		return [2]Address{a, b}
	}
	return [2]Address{b, a}
}
