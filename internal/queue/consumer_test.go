package queue

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvent() BookingConfirmedEvent {
	return BookingConfirmedEvent{
		BookingID: 9, Reference: "LCP-20261019-4821", UserID: 3, EventID: 1,
		EventName: "Lantern Night", EventDate: "2026-11-02", EventTime: "19:00:00",
		NumAdults: 2, NumChildren: 1, TotalTickets: 3, SeatType: "with_table",
		TotalPrice: "25.00", ConfirmedAt: "2026-10-19T12:00:00Z",
	}
}

func TestFormatLogLine(t *testing.T) {
	line := FormatLogLine(sampleEvent())
	assert.True(t, strings.HasPrefix(line, "[2026-10-19T12:00:00Z] Booking confirmed | reference=LCP-20261019-4821"))
	assert.Contains(t, line, `event="Lantern Night"`)
	assert.Contains(t, line, "adults=2 | children=1 | seat_type=with_table | total=25.00")
	assert.True(t, strings.HasSuffix(line, "\n"))
}

func TestHandleMessageAppends(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	c := NewConsumer("amqp://unused", dir)

	body, err := json.Marshal(sampleEvent())
	require.NoError(t, err)
	require.NoError(t, c.HandleMessage(body))
	require.NoError(t, c.HandleMessage(body))

	data, err := os.ReadFile(filepath.Join(dir, "booking.log"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	assert.Len(t, lines, 2)
	assert.Equal(t, FormatLogLine(sampleEvent()), lines[0]+"\n")

	assert.Error(t, c.HandleMessage([]byte("{not json")))
}

func TestSleepCtxStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, sleepCtx(ctx, time.Hour))
	assert.True(t, sleepCtx(context.Background(), time.Millisecond))
}
