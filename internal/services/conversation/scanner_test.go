package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chainmail/internal/domain"
)

// scriptedLedger serves QueryEvents from a block map, refuses ranges
// wider than maxWidth and records every range asked for.
type scriptedLedger struct {
	maxWidth uint64
	events   map[uint64][]domain.Event
	ranges   [][2]uint64
	after    func()
}

func (l *scriptedLedger) QueryEvents(_ context.Context, _ domain.Address, from, to uint64) ([]domain.Event, error) {
	l.ranges = append(l.ranges, [2]uint64{from, to})
	if l.after != nil {
		defer l.after()
	}
	if to-from+1 > l.maxWidth {
		return nil, fmt.Errorf("%w: %d blocks", domain.ErrRangeTooLarge, to-from+1)
	}
	var out []domain.Event
	for b := from; b <= to; b++ {
		out = append(out, l.events[b]...)
	}
	return out, nil
}

func (l *scriptedLedger) SubmitAndConfirm(context.Context, domain.Call) (domain.Receipt, error) {
	return domain.Receipt{}, nil
}

func (l *scriptedLedger) Call(context.Context, domain.Call) (json.RawMessage, error) {
	return nil, nil
}

func (l *scriptedLedger) BlockHeight(context.Context) (uint64, error) { return 0, nil }

func widths(ranges [][2]uint64) []uint64 {
	out := make([]uint64, len(ranges))
	for i, r := range ranges {
		out[i] = r[1] - r[0] + 1
	}
	return out
}

func eventAt(block uint64) domain.Event {
	return domain.Event{Name: domain.EventMessageSent, Block: block, Time: int64(block)}
}

func TestScanNarrowsUntilBackendAccepts(t *testing.T) {
	led := &scriptedLedger{
		maxWidth: 64,
		events: map[uint64][]domain.Event{
			1:   {eventAt(1)},
			300: {eventAt(300)},
			512: {eventAt(512)},
		},
	}
	s := newEventScanner(led)

	events, err := s.scan(context.Background(), domain.Address{0x01}, 512)
	require.NoError(t, err)
	assert.Zero(t, s.dropped)

	// Three refusals narrow 512 to 64, then the window covers the rest.
	want := []uint64{512, 256, 128}
	for i := 0; i < 8; i++ {
		want = append(want, 64)
	}
	assert.Equal(t, want, widths(led.ranges))

	// Events come back in block order despite the backward walk.
	require.Len(t, events, 3)
	assert.Equal(t, uint64(1), events[0].Block)
	assert.Equal(t, uint64(300), events[1].Block)
	assert.Equal(t, uint64(512), events[2].Block)
}

func TestScanDropsRangesRefusedAtFloor(t *testing.T) {
	led := &scriptedLedger{maxWidth: 32}
	s := newEventScanner(led)

	events, err := s.scan(context.Background(), domain.Address{0x01}, 128)
	require.NoError(t, err)
	assert.Empty(t, events)

	// Narrowing bottoms out at the floor; both floor-width sub-ranges
	// are refused and dropped.
	assert.Equal(t, 2, s.dropped)
	assert.Equal(t, []uint64{128, 128, 128, 64, 64}, widths(led.ranges))
}

func TestScanReachesAtMostDepthBlocks(t *testing.T) {
	head := scanDepth + 904
	led := &scriptedLedger{
		maxWidth: scanChunk,
		events: map[uint64][]domain.Event{
			904: {eventAt(904)}, // one block below the window
			905: {eventAt(905)}, // oldest block inside it
		},
	}
	s := newEventScanner(led)

	events, err := s.scan(context.Background(), domain.Address{0x01}, head)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, uint64(905), events[0].Block)
	assert.Equal(t, uint64(905), led.ranges[len(led.ranges)-1][0])
}

func TestScanReturnsPartialOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	led := &scriptedLedger{
		maxWidth: scanChunk,
		events:   map[uint64][]domain.Event{1000: {eventAt(1000)}},
		after:    cancel,
	}
	s := newEventScanner(led)

	events, err := s.scan(ctx, domain.Address{0x01}, 1024)
	assert.ErrorIs(t, err, context.Canceled)

	// The first chunk landed before the cancellation took effect.
	require.Len(t, events, 1)
	assert.Equal(t, uint64(1000), events[0].Block)
	assert.Len(t, led.ranges, 1)
}

func TestScanEmptyChain(t *testing.T) {
	led := &scriptedLedger{maxWidth: scanChunk}
	s := newEventScanner(led)

	events, err := s.scan(context.Background(), domain.Address{0x01}, 0)
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Empty(t, led.ranges)
}
