package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/park-ticketing/internal/model"
	"github.com/iliyamo/park-ticketing/internal/repository"
)

func sampleEvents() []repository.EventSummary {
	return []repository.EventSummary{
		{
			Event: model.Event{
				ID: 1, Name: "Lantern Night", Date: time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC), Time: "19:00:00",
				TotalCapacity: 100, MaxTicketsPerSale: 6, RequiresAdult: true, Status: model.EventActive,
			},
			AvailableTickets: 42,
			Prices: []model.Price{
				{EventID: 1, SeatType: "with_table", AdultPrice: decimal.RequireFromString("10"), ChildPrice: decimal.RequireFromString("5.5")},
			},
		},
		{
			Event: model.Event{
				ID: 2, Name: "Garden Tour", Date: time.Date(2026, 11, 3, 0, 0, 0, 0, time.UTC), Time: "10:30:00",
				TotalCapacity: 20, MaxTicketsPerSale: 4, Status: model.EventActive,
			},
			AvailableTickets: 0,
		},
	}
}

func TestListEventsIsIdempotent(t *testing.T) {
	events := &fakeEvents{list: sampleEvents()}
	h := NewEventHandler(events)
	today := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return today }

	first := call(t, h.List, http.MethodGet, "", 0)
	second := call(t, h.List, http.MethodGet, "", 0)
	assert.Equal(t, first, second)
	assert.Equal(t, today, events.day)

	list := first["events"].([]any)
	require.Len(t, list, 2)
	ev := list[0].(map[string]any)
	assert.Equal(t, "Lantern Night", ev["event_name"])
	assert.Equal(t, "2026-11-02", ev["event_date"])
	assert.Equal(t, float64(42), ev["available_tickets"])
	price := ev["prices"].([]any)[0].(map[string]any)
	assert.Equal(t, "10.00", price["adult_price"])
	assert.Equal(t, "5.50", price["child_price"])

	assert.Empty(t, list[1].(map[string]any)["prices"])
}

func TestEventDetail(t *testing.T) {
	h := NewEventHandler(&fakeEvents{list: sampleEvents()})

	out := call(t, h.Detail, http.MethodPost, `{"event_id":2}`, 0)
	require.Equal(t, true, out["success"])
	assert.Equal(t, "Garden Tour", out["event"].(map[string]any)["event_name"])

	out = call(t, h.Detail, http.MethodPost, `{"event_id":99}`, 0)
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "Event not found", out["message"])

	out = call(t, h.Detail, http.MethodPost, `{}`, 0)
	assert.Equal(t, "Event ID is required", out["message"])
}
