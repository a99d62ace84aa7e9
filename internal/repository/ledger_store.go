package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/iliyamo/park-ticketing/internal/model"
)

// LedgerTx is the set of operations a booking may perform inside one
// unit of work.  LockEvent must be called first; every later read sees
// the state protected by that lock until the unit of work ends.
type LedgerTx interface {
	LockEvent(ctx context.Context, eventID uint64) (model.Event, error)
	BookedTickets(ctx context.Context, eventID uint64) (int, error)
	PriceFor(ctx context.Context, eventID uint64, seatType string) (model.Price, error)
	HasProfilePhoto(ctx context.Context, userID uint64) (bool, error)
	InsertBooking(ctx context.Context, b *model.Booking) error
}

// LedgerStore runs booking units of work against MySQL.  Each unit is
// a READ COMMITTED transaction whose first statement bounds how long
// InnoDB waits for row locks.
type LedgerStore struct {
	db       *sql.DB
	lockWait time.Duration
}

// NewLedgerStore returns a LedgerStore.  lockWait is rounded up to
// whole seconds, the granularity of innodb_lock_wait_timeout.
func NewLedgerStore(db *sql.DB, lockWait time.Duration) *LedgerStore {
	return &LedgerStore{db: db, lockWait: lockWait}
}

func (s *LedgerStore) lockWaitSeconds() int {
	secs := int(math.Ceil(s.lockWait.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}

// RunInTx begins a transaction, hands it to fn and commits when fn
// returns nil.  Any error from fn, or from the commit itself, rolls the
// transaction back and is returned to the caller.
func (s *LedgerStore) RunInTx(ctx context.Context, fn func(tx LedgerTx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		if isLockFailure(err) {
			return fmt.Errorf("%w: %v", ErrLockTimeout, err)
		}
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, "SET innodb_lock_wait_timeout = ?", s.lockWaitSeconds()); err != nil {
		return fmt.Errorf("set lock wait timeout: %w", err)
	}
	if err := fn(&mysqlLedgerTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

type mysqlLedgerTx struct {
	tx *sql.Tx
}

// LockEvent takes the exclusive row lock on the event.  Concurrent
// bookings of the same event queue here; other events are unaffected.
func (t *mysqlLedgerTx) LockEvent(ctx context.Context, eventID uint64) (model.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events e WHERE e.id = ? FOR UPDATE`
	var e model.Event
	err := scanEvent(t.tx.QueryRowContext(ctx, q, eventID), &e)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return e, ErrEventNotFound
	case err != nil && isLockFailure(err):
		return e, fmt.Errorf("%w: %v", ErrLockTimeout, err)
	}
	return e, err
}

// BookedTickets sums confirmed tickets of the event.  Under READ
// COMMITTED this sees every booking committed before the lock was
// granted.
func (t *mysqlLedgerTx) BookedTickets(ctx context.Context, eventID uint64) (int, error) {
	var n int
	err := t.tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(total_tickets), 0) FROM bookings WHERE event_id = ? AND booking_status = 'confirmed'`,
		eventID).Scan(&n)
	return n, err
}

func (t *mysqlLedgerTx) PriceFor(ctx context.Context, eventID uint64, seatType string) (model.Price, error) {
	return priceFor(ctx, t.tx, eventID, seatType)
}

func (t *mysqlLedgerTx) HasProfilePhoto(ctx context.Context, userID uint64) (bool, error) {
	return hasProfilePhoto(ctx, t.tx, userID)
}

// InsertBooking writes b and sets its ID.  A collision on
// booking_reference yields ErrDuplicateReference and leaves the
// transaction usable.
func (t *mysqlLedgerTx) InsertBooking(ctx context.Context, b *model.Booking) error {
	const q = `INSERT INTO bookings (user_id, event_id, booking_reference, num_adults, num_children,
	       total_tickets, seat_type, total_price, booking_status) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := t.tx.ExecContext(ctx, q, b.UserID, b.EventID, b.Reference, b.NumAdults, b.NumChildren,
		b.TotalTickets, b.SeatType, b.TotalPrice, b.Status)
	if err != nil {
		switch {
		case isDuplicate(err):
			return fmt.Errorf("%w: %s", ErrDuplicateReference, b.Reference)
		case isLockFailure(err):
			return fmt.Errorf("%w: %v", ErrLockTimeout, err)
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}
