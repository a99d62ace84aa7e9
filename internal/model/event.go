package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event status values stored in events.status.
const (
	EventActive   = "active"
	EventInactive = "inactive"
)

// Event represents a bookable park event.  Events are created and
// edited by an admin workflow outside this service; the booking path
// only ever reads them (under a row lock).
//
// Fields:
//  ID                – primary key identifier.
//  Name              – display name of the event.
//  Date              – calendar day the event takes place (UTC midnight).
//  Time              – start time as stored in the TIME column ("HH:MM:SS").
//  Description       – free text shown in listings.
//  TotalCapacity     – number of tickets that may ever be confirmed.
//  MaxTicketsPerSale – upper bound on adults+children in one booking.
//  RequiresAdult     – every booking needs an adult; children need a photo.
//  Status            – active or inactive.
//  CreatedAt         – creation timestamp.
type Event struct {
	ID                uint64    // events.id
	Name              string    // events.event_name
	Date              time.Time // events.event_date
	Time              string    // events.event_time
	Description       string    // events.description
	TotalCapacity     int       // events.total_capacity
	MaxTicketsPerSale int       // events.max_tickets_per_sale
	RequiresAdult     bool      // events.requires_adult
	Status            string    // events.status
	CreatedAt         time.Time // events.created_at
}

// IsActive reports whether the event accepts bookings.
func (e Event) IsActive() bool { return e.Status == EventActive }

// DateString formats Date the way the API exposes it.
func (e Event) DateString() string { return e.Date.Format("2006-01-02") }

// Price is the per seat type tariff of an event.  Exactly one row
// exists per (event, seat type); a missing row means the seat type is
// not sold for that event.
type Price struct {
	EventID    uint64          // prices.event_id
	SeatType   string          // prices.seat_type
	AdultPrice decimal.Decimal // prices.adult_price
	ChildPrice decimal.Decimal // prices.child_price
}
