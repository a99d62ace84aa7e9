package handler // handler defines http handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/park-ticketing/internal/model"
	"github.com/iliyamo/park-ticketing/internal/repository"
	"github.com/iliyamo/park-ticketing/internal/service"
)

// requestTimeout bounds every store call made by a handler.
const requestTimeout = 5 * time.Second

// EventReader is the read side of the event catalogue.
type EventReader interface {
	ListUpcoming(ctx context.Context, day time.Time) ([]repository.EventSummary, error)
	GetByID(ctx context.Context, id uint64) (repository.EventSummary, error)
}

// Booker places bookings.
type Booker interface {
	AttemptBooking(ctx context.Context, req service.BookingRequest) (service.BookingResult, error)
}

// BookingLister lists a user's bookings.
type BookingLister interface {
	ListByUser(ctx context.Context, userID uint64) ([]repository.BookingDetail, error)
}

// UserStore is the user persistence used by auth, profile and admin
// endpoints.
type UserStore interface {
	FindByUsernameOrEmail(ctx context.Context, login string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	Create(ctx context.Context, u *model.User) (uint64, error)
	Update(ctx context.Context, id uint64, patch model.UserPatch) (int64, error)
	Delete(ctx context.Context, id uint64) (int64, error)
	ListWithStats(ctx context.Context) ([]repository.UserWithStats, error)
	UsernameTaken(ctx context.Context, username string, excludeID uint64) (bool, error)
	EmailTaken(ctx context.Context, email string, excludeID uint64) (bool, error)
	SetPhoto(ctx context.Context, userID uint64, path string) error
}

// PhotoSaver stores uploaded profile photos.
type PhotoSaver interface {
	Save(src io.Reader, filename string) (string, error)
	Remove(path string) error
}

// CacheInvalidator drops cached listings after a write.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// fail renders an application level failure.  These are HTTP 200 so
// clients branch on "success" only.
func fail(c echo.Context, msg string) error {
	return c.JSON(http.StatusOK, echo.Map{"success": false, "message": msg})
}

// money renders amounts with two decimals.
func money(d decimal.Decimal) string { return d.StringFixed(2) }
