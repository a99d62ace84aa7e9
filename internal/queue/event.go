// Package queue carries booking notifications over RabbitMQ: the
// payload, a publisher used after a booking commits and the consumer
// that appends them to logs/booking.log.
package queue

// BookingConfirmedQueue is the durable queue name.
const BookingConfirmedQueue = "booking.confirmed"

// BookingConfirmedEvent is published when a booking is committed.  It
// contains enough information for downstream consumers to log, notify
// or trigger analytics without querying the primary database.
type BookingConfirmedEvent struct {
	BookingID    uint64 `json:"booking_id"`
	Reference    string `json:"booking_reference"`
	UserID       uint64 `json:"user_id"`
	EventID      uint64 `json:"event_id"`
	EventName    string `json:"event_name"`
	EventDate    string `json:"event_date"`
	EventTime    string `json:"event_time"`
	NumAdults    int    `json:"num_adults"`
	NumChildren  int    `json:"num_children"`
	TotalTickets int    `json:"total_tickets"`
	SeatType     string `json:"seat_type"`
	TotalPrice   string `json:"total_price"`
	ConfirmedAt  string `json:"confirmed_at"`
}
