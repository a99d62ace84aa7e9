package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/park-ticketing/internal/model"
)

// EventRepo provides read access to events and their prices.  Event
// rows are maintained elsewhere; this service never writes them.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// EventSummary is an event as shown in listings: the row itself, the
// number of tickets still available and its price table.
type EventSummary struct {
	model.Event
	AvailableTickets int
	Prices           []model.Price
}

const eventColumns = `e.id, e.event_name, e.event_date, e.event_time, e.description,
	e.total_capacity, e.max_tickets_per_sale, e.requires_adult, e.status, e.created_at`

func scanEvent(row interface{ Scan(...any) error }, e *model.Event, extra ...any) error {
	var desc sql.NullString
	dest := []any{&e.ID, &e.Name, &e.Date, &e.Time, &desc,
		&e.TotalCapacity, &e.MaxTicketsPerSale, &e.RequiresAdult, &e.Status, &e.CreatedAt}
	dest = append(dest, extra...)
	if err := row.Scan(dest...); err != nil {
		return err
	}
	e.Description = desc.String
	return nil
}

// ListUpcoming returns active events dated on or after day, ordered by
// date and time.  Available tickets are computed from confirmed
// bookings at read time; the listing is advisory and takes no locks.
func (r *EventRepo) ListUpcoming(ctx context.Context, day time.Time) ([]EventSummary, error) {
	const q = `SELECT ` + eventColumns + `,
	       e.total_capacity - COALESCE(SUM(CASE WHEN b.booking_status = 'confirmed' THEN b.total_tickets ELSE 0 END), 0) AS available
	FROM events e
	LEFT JOIN bookings b ON b.event_id = e.id
	WHERE e.status = 'active' AND e.event_date >= ?
	GROUP BY e.id
	ORDER BY e.event_date, e.event_time`
	rows, err := r.db.QueryContext(ctx, q, day.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []EventSummary
	byID := map[uint64]int{}
	for rows.Next() {
		var s EventSummary
		if err := scanEvent(rows, &s.Event, &s.AvailableTickets); err != nil {
			return nil, err
		}
		if s.AvailableTickets < 0 {
			s.AvailableTickets = 0
		}
		s.Prices = []model.Price{}
		byID[s.ID] = len(out)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}
	ids := make([]any, 0, len(out))
	for _, s := range out {
		ids = append(ids, s.ID)
	}
	prices, err := r.pricesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, p := range prices {
		if i, ok := byID[p.EventID]; ok {
			out[i].Prices = append(out[i].Prices, p)
		}
	}
	return out, nil
}

func (r *EventRepo) pricesFor(ctx context.Context, ids []any) ([]model.Price, error) {
	q := `SELECT event_id, seat_type, adult_price, child_price FROM prices WHERE event_id IN (?` +
		strings.Repeat(",?", len(ids)-1) + `) ORDER BY event_id, seat_type`
	rows, err := r.db.QueryContext(ctx, q, ids...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Price
	for rows.Next() {
		var p model.Price
		if err := rows.Scan(&p.EventID, &p.SeatType, &p.AdultPrice, &p.ChildPrice); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetByID returns a single event in any status together with its
// prices and current availability.  ErrEventNotFound is returned when
// no row exists.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (EventSummary, error) {
	const q = `SELECT ` + eventColumns + `,
	       e.total_capacity - COALESCE((SELECT SUM(b.total_tickets) FROM bookings b
	                                    WHERE b.event_id = e.id AND b.booking_status = 'confirmed'), 0)
	FROM events e WHERE e.id = ?`
	var s EventSummary
	err := scanEvent(r.db.QueryRowContext(ctx, q, id), &s.Event, &s.AvailableTickets)
	if errors.Is(err, sql.ErrNoRows) {
		return s, ErrEventNotFound
	}
	if err != nil {
		return s, err
	}
	if s.AvailableTickets < 0 {
		s.AvailableTickets = 0
	}
	prices, err := r.pricesFor(ctx, []any{id})
	if err != nil {
		return s, err
	}
	s.Prices = append([]model.Price{}, prices...)
	return s, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func priceFor(ctx context.Context, q queryRower, eventID uint64, seatType string) (model.Price, error) {
	p := model.Price{EventID: eventID, SeatType: seatType}
	err := q.QueryRowContext(ctx,
		`SELECT adult_price, child_price FROM prices WHERE event_id = ? AND seat_type = ?`,
		eventID, seatType).Scan(&p.AdultPrice, &p.ChildPrice)
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrPriceNotFound
	}
	return p, err
}
