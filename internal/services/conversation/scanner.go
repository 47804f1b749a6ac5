package conversation

import (
	"context"
	"errors"

	"chainmail/internal/domain"
)

const (
	// scanDepth bounds how far below the chain head a channel scan reaches.
	scanDepth uint64 = 4096
	// scanChunk is the query width a scan starts with.
	scanChunk uint64 = 512
	// scanFloor is the narrowest width the scanner retries with.
	scanFloor uint64 = 64
	// scanNarrowLimit caps how many times a scanner may narrow its width.
	scanNarrowLimit = 3
)

// eventScanner walks channel event logs backward from the chain head.
// Width narrowing is sticky: once a backend refuses a range, later
// queries through the same scanner stay narrow.
type eventScanner struct {
	ledger  domain.LedgerClient
	width   uint64
	narrows int
	dropped int
}

func newEventScanner(ledger domain.LedgerClient) *eventScanner {
	return &eventScanner{ledger: ledger, width: scanChunk}
}

// scan returns the channel's events within scanDepth blocks of head, in
// block order. Sub-ranges the backend refuses at minimum width are
// dropped and counted in s.dropped. Any other failure, including
// context cancellation, returns the events gathered so far alongside
// the error.
func (s *eventScanner) scan(ctx context.Context, channel domain.Address, head uint64) ([]domain.Event, error) {
	if head == 0 {
		return nil, nil
	}
	low := uint64(1)
	if head > scanDepth {
		low = head - scanDepth + 1
	}

	// Chunks arrive newest first; flatten restores block order.
	var chunks [][]domain.Event
	flatten := func() []domain.Event {
		var out []domain.Event
		for i := len(chunks) - 1; i >= 0; i-- {
			out = append(out, chunks[i]...)
		}
		return out
	}

	to := head
	for to >= low {
		if err := ctx.Err(); err != nil {
			return flatten(), err
		}
		from := low
		if span := to - low + 1; span > s.width {
			from = to - s.width + 1
		}

		events, err := s.ledger.QueryEvents(ctx, channel, from, to)
		if errors.Is(err, domain.ErrRangeTooLarge) {
			if s.narrows < scanNarrowLimit && s.width > scanFloor {
				s.narrows++
				s.width /= 2
				if s.width < scanFloor {
					s.width = scanFloor
				}
				continue
			}
			s.dropped++
			to = from - 1
			continue
		}
		if err != nil {
			return flatten(), err
		}
		if len(events) > 0 {
			chunks = append(chunks, events)
		}
		to = from - 1
	}
	return flatten(), nil
}
