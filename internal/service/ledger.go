package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/park-ticketing/internal/metrics"
	"github.com/iliyamo/park-ticketing/internal/model"
	"github.com/iliyamo/park-ticketing/internal/queue"
	"github.com/iliyamo/park-ticketing/internal/repository"
)

// LedgerStore runs fn inside one atomic unit of work, committing when
// fn returns nil and rolling back otherwise.
type LedgerStore interface {
	RunInTx(ctx context.Context, fn func(tx repository.LedgerTx) error) error
}

// Notifier receives confirmed bookings after commit.
type Notifier interface {
	Publish(ctx context.Context, ev queue.BookingConfirmedEvent) error
}

// BookingRequest is one booking attempt.
type BookingRequest struct {
	UserID      uint64
	EventID     uint64
	NumAdults   int
	NumChildren int
	SeatType    string
}

// BookingResult echoes everything a caller needs to confirm a booking
// without a second read.
type BookingResult struct {
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
}

// DefaultReferenceAttempts bounds booking reference regeneration.
const DefaultReferenceAttempts = 3

// DefaultNotifyTimeout bounds the post-commit publish.
const DefaultNotifyTimeout = 3 * time.Second

// Ledger enforces the capacity invariant: for every event the tickets
// of confirmed bookings never exceed total_capacity.  All checks and
// the insert run under the event's row lock.
type Ledger struct {
	store    LedgerStore
	refs     ReferenceGenerator
	attempts int
	notifier Notifier
	notifyTO time.Duration
	now      func() time.Time
	log      *logrus.Entry
}

// LedgerOption customises a Ledger.
type LedgerOption func(*Ledger)

// WithReferenceAttempts sets how many references are tried before a
// collision becomes a persist failure.
func WithReferenceAttempts(n int) LedgerOption {
	return func(l *Ledger) {
		if n > 0 {
			l.attempts = n
		}
	}
}

// WithNotifier publishes booking.confirmed after each commit.
func WithNotifier(n Notifier) LedgerOption { return func(l *Ledger) { l.notifier = n } }

// WithNotifyTimeout caps how long a booking waits on the notifier.
func WithNotifyTimeout(d time.Duration) LedgerOption {
	return func(l *Ledger) {
		if d > 0 {
			l.notifyTO = d
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) LedgerOption { return func(l *Ledger) { l.now = now } }

// NewLedger builds a Ledger over store using refs for references.
func NewLedger(store LedgerStore, refs ReferenceGenerator, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		store:    store,
		refs:     refs,
		attempts: DefaultReferenceAttempts,
		notifyTO: DefaultNotifyTimeout,
		now:      time.Now,
		log:      logrus.WithField("component", "ledger"),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// AttemptBooking validates req and, if every rule holds, reserves the
// tickets and writes exactly one confirmed booking.  Every failure is a
// *BookingError and leaves no booking behind.
func (l *Ledger) AttemptBooking(ctx context.Context, req BookingRequest) (BookingResult, error) {
	start := time.Now()
	res, err := l.attempt(ctx, req)
	outcome := "confirmed"
	if err != nil {
		outcome = KindOf(err).String()
	}
	metrics.ObserveBooking(outcome, res.TotalTickets, time.Since(start))

	entry := l.log.WithFields(logrus.Fields{
		"user_id":  req.UserID,
		"event_id": req.EventID,
		"outcome":  outcome,
	})
	if err != nil {
		if k := KindOf(err); k == KindPersistFailure || k == KindLockTimeout {
			entry.WithError(err).Warn("booking failed")
		} else {
			entry.Debug("booking rejected")
		}
		return BookingResult{}, err
	}
	entry.WithField("reference", res.Reference).Info("booking confirmed")
	l.notify(ctx, req.UserID, res)
	return res, nil
}

func validate(req BookingRequest) error {
	if req.NumAdults < 0 || req.NumChildren < 0 {
		return failure(KindValidation, "Ticket counts cannot be negative")
	}
	if req.NumAdults+req.NumChildren < 1 {
		return failure(KindValidation, "At least one ticket is required")
	}
	if strings.TrimSpace(req.SeatType) == "" {
		return failure(KindValidation, "Seat type is required")
	}
	return nil
}

func (l *Ledger) attempt(ctx context.Context, req BookingRequest) (BookingResult, error) {
	if err := validate(req); err != nil {
		return BookingResult{}, err
	}
	req.SeatType = strings.TrimSpace(req.SeatType)
	total := req.NumAdults + req.NumChildren

	var res BookingResult
	err := l.store.RunInTx(ctx, func(tx repository.LedgerTx) error {
		ev, err := tx.LockEvent(ctx, req.EventID)
		if err != nil {
			if errors.Is(err, repository.ErrEventNotFound) {
				return failure(KindNotFound, "Event not found")
			}
			return infraFailure(err)
		}
		if !ev.IsActive() {
			return failure(KindEventInactive, "Event is not available for booking")
		}
		if ev.RequiresAdult && req.NumAdults < 1 {
			return failure(KindAdultRequired, "At least one adult ticket is required for this event")
		}
		if total > ev.MaxTicketsPerSale {
			return failure(KindTicketLimitExceeded, "Maximum %d tickets allowed per booking", ev.MaxTicketsPerSale)
		}
		price, err := PricingResolver{Prices: tx}.Resolve(ctx, ev.ID, req.SeatType, req.NumAdults, req.NumChildren)
		if err != nil {
			return err
		}
		if ev.RequiresAdult && req.NumChildren > 0 {
			ok, err := tx.HasProfilePhoto(ctx, req.UserID)
			if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
				return infraFailure(err)
			}
			if !ok {
				return failure(KindPhotoRequired, "Adult photo is required for bookings with children. Please update your profile.")
			}
		}

		booked, err := tx.BookedTickets(ctx, ev.ID)
		if err != nil {
			return infraFailure(err)
		}
		available := ev.TotalCapacity - booked
		if available < 0 {
			available = 0
		}
		if total > available {
			return failure(KindInsufficientCapacity, "Only %d tickets available", available)
		}

		b := &model.Booking{
			UserID:       req.UserID,
			EventID:      ev.ID,
			NumAdults:    req.NumAdults,
			NumChildren:  req.NumChildren,
			TotalTickets: total,
			SeatType:     req.SeatType,
			TotalPrice:   price,
			Status:       model.BookingConfirmed,
		}
		if err := l.insertWithFreshReference(ctx, tx, b); err != nil {
			return err
		}
		res = BookingResult{
			ID:           b.ID,
			Reference:    b.Reference,
			EventID:      ev.ID,
			EventName:    ev.Name,
			EventDate:    ev.DateString(),
			EventTime:    ev.Time,
			NumAdults:    b.NumAdults,
			NumChildren:  b.NumChildren,
			TotalTickets: b.TotalTickets,
			SeatType:     b.SeatType,
			TotalPrice:   b.TotalPrice,
		}
		return nil
	})
	if err != nil {
		var be *BookingError
		if errors.As(err, &be) {
			return BookingResult{}, be
		}
		return BookingResult{}, infraFailure(err)
	}
	return res, nil
}

// insertWithFreshReference generates a reference and inserts b,
// regenerating on a duplicate reference up to l.attempts times.
func (l *Ledger) insertWithFreshReference(ctx context.Context, tx repository.LedgerTx, b *model.Booking) error {
	var lastErr error
	for i := 0; i < l.attempts; i++ {
		ref, err := l.refs.Generate(l.now())
		if err != nil {
			return infraFailure(err)
		}
		b.Reference = ref
		err = tx.InsertBooking(ctx, b)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrDuplicateReference) {
			return infraFailure(err)
		}
		l.log.WithField("reference", ref).Warn("booking reference collision; regenerating")
		lastErr = err
	}
	return infraFailure(lastErr)
}

// infraFailure maps a store error onto LockTimeout or PersistFailure.
func infraFailure(err error) *BookingError {
	if errors.Is(err, repository.ErrLockTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return &BookingError{Kind: KindLockTimeout, Message: msgEventBusy, Err: err}
	}
	return &BookingError{Kind: KindPersistFailure, Message: msgBookingFailed, Err: err}
}

func (l *Ledger) notify(ctx context.Context, userID uint64, res BookingResult) {
	if l.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.notifyTO)
	defer cancel()
	ev := queue.BookingConfirmedEvent{
		BookingID:    res.ID,
		Reference:    res.Reference,
		UserID:       userID,
		EventID:      res.EventID,
		EventName:    res.EventName,
		EventDate:    res.EventDate,
		EventTime:    res.EventTime,
		NumAdults:    res.NumAdults,
		NumChildren:  res.NumChildren,
		TotalTickets: res.TotalTickets,
		SeatType:     res.SeatType,
		TotalPrice:   res.TotalPrice.StringFixed(2),
		ConfirmedAt:  l.now().UTC().Format(time.RFC3339),
	}
	if err := l.notifier.Publish(ctx, ev); err != nil {
		metrics.PublishFailed()
		l.log.WithError(err).WithField("reference", res.Reference).Warn("booking.confirmed publish failed")
	}
}
