package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Booking status values.  Only confirmed bookings count against an
// event's capacity.
const (
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
)

// Booking represents a row in the `bookings` table.  A booking is
// written once by the capacity ledger and never mutated by it.
//
// Fields:
//  ID          – primary key identifier.
//  UserID      – owner of the booking.
//  EventID     – booked event.
//  Reference   – human readable reference, unique across bookings.
//  NumAdults   – adult tickets.
//  NumChildren – child tickets.
//  TotalTickets – NumAdults + NumChildren.
//  SeatType    – seat type the price was resolved for.
//  TotalPrice  – NumAdults×adult + NumChildren×child.
//  Status      – confirmed or cancelled.
//  CreatedAt   – creation timestamp.
type Booking struct {
	ID           uint64          // bookings.id
	UserID       uint64          // bookings.user_id
	EventID      uint64          // bookings.event_id
	Reference    string          // bookings.booking_reference
	NumAdults    int             // bookings.num_adults
	NumChildren  int             // bookings.num_children
	TotalTickets int             // bookings.total_tickets
	SeatType     string          // bookings.seat_type
	TotalPrice   decimal.Decimal // bookings.total_price
	Status       string          // bookings.booking_status
	CreatedAt    time.Time       // bookings.created_at
}
