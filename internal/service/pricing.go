package service

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/park-ticketing/internal/model"
	"github.com/iliyamo/park-ticketing/internal/repository"
)

// PriceLookup returns the tariff row for an event and seat type, or
// repository.ErrPriceNotFound.
type PriceLookup interface {
	PriceFor(ctx context.Context, eventID uint64, seatType string) (model.Price, error)
}

// PricingResolver computes booking totals from stored prices.
type PricingResolver struct {
	Prices PriceLookup
}

// Resolve returns adults×adult_price + children×child_price for the
// seat type.  A missing price row is KindSeatTypeUnavailable.
func (r PricingResolver) Resolve(ctx context.Context, eventID uint64, seatType string, adults, children int) (decimal.Decimal, error) {
	p, err := r.Prices.PriceFor(ctx, eventID, seatType)
	if errors.Is(err, repository.ErrPriceNotFound) {
		return decimal.Zero, failure(KindSeatTypeUnavailable, "Seat type %s is not available for this event", seatType)
	}
	if err != nil {
		return decimal.Zero, &BookingError{Kind: KindPersistFailure, Message: msgBookingFailed, Err: err}
	}
	return Amount(p, adults, children), nil
}

// Amount is the pure price formula.  No rounding is applied beyond the
// precision of the stored prices.
func Amount(p model.Price, adults, children int) decimal.Decimal {
	return p.AdultPrice.Mul(decimal.NewFromInt(int64(adults))).
		Add(p.ChildPrice.Mul(decimal.NewFromInt(int64(children))))
}
