package ledger

import (
	"errors"
	"fmt"

	"chainmail/internal/domain"
)

// Stable wire codes for taxonomy errors. The handler writes them, the
// gateway client maps them back, so a domain error survives the HTTP hop.
const (
	codeBadRequest           = "bad_request"
	codeInternal             = "internal"
	codeInsufficientFunds    = "insufficient_funds"
	codeRangeTooLarge        = "range_too_large"
	codeSessionCollision     = "session_collision"
	codeSessionNotExpired    = "session_not_expired"
	codeSessionAlreadyClosed = "session_already_closed"
	codeNoSession            = "no_session"
	codeKeyNotFound          = "key_not_found"
	codeInvalidKey           = "invalid_key_format"
)

var codeByError = []struct {
	err  error
	code string
}{
	{domain.ErrInsufficientFunds, codeInsufficientFunds},
	{domain.ErrRangeTooLarge, codeRangeTooLarge},
	{domain.ErrSessionCollision, codeSessionCollision},
	{domain.ErrSessionNotExpired, codeSessionNotExpired},
	{domain.ErrSessionAlreadyClosed, codeSessionAlreadyClosed},
	{domain.ErrNoSession, codeNoSession},
	{domain.ErrKeyNotFound, codeKeyNotFound},
	{domain.ErrInvalidKeyFormat, codeInvalidKey},
}

// codeOf classifies err for the wire. Unmatched errors are internal.
func codeOf(err error) string {
	for _, m := range codeByError {
		if errors.Is(err, m.err) {
			return m.code
		}
	}
	return codeInternal
}

// errOf rebuilds a domain error from a wire code. Unknown codes surface
// as plain errors carrying the server message.
func errOf(code, msg string) error {
	for _, m := range codeByError {
		if m.code == code {
			return fmt.Errorf("%w: %s", m.err, msg)
		}
	}
	return fmt.Errorf("ledger: %s (%s)", msg, code)
}
