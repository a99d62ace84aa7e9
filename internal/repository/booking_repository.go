package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// BookingRepo reads bookings for display.  Bookings are only ever
// created through LedgerStore.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// BookingDetail is a booking joined with its event for the
// "my bookings" listing.
type BookingDetail struct {
	ID           uint64
	Reference    string
	EventID      uint64
	EventName    string
	EventDate    string
	EventTime    string
	NumAdults    int
	NumChildren  int
	TotalTickets int
	SeatType     string
	TotalPrice   decimal.Decimal
	Status       string
	CreatedAt    time.Time
}

// ListByUser returns the user's bookings, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]BookingDetail, error) {
	const q = `SELECT b.id, b.booking_reference, b.event_id, e.event_name, e.event_date, e.event_time,
	       b.num_adults, b.num_children, b.total_tickets, b.seat_type, b.total_price,
	       b.booking_status, b.created_at
	FROM bookings b
	JOIN events e ON e.id = b.event_id
	WHERE b.user_id = ?
	ORDER BY b.created_at DESC, b.id DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []BookingDetail{}
	for rows.Next() {
		var (
			d    BookingDetail
			date time.Time
		)
		if err := rows.Scan(&d.ID, &d.Reference, &d.EventID, &d.EventName, &date, &d.EventTime,
			&d.NumAdults, &d.NumChildren, &d.TotalTickets, &d.SeatType, &d.TotalPrice,
			&d.Status, &d.CreatedAt); err != nil {
			return nil, err
		}
		d.EventDate = date.Format("2006-01-02")
		out = append(out, d)
	}
	return out, rows.Err()
}
