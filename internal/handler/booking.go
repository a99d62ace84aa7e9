package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/park-ticketing/internal/middleware"
	"github.com/iliyamo/park-ticketing/internal/service"
)

// BookingHandler places bookings for the authenticated user and lists
// them back.
type BookingHandler struct {
	Ledger   Booker
	Bookings BookingLister
	Cache    CacheInvalidator // optional
	log      *logrus.Entry
}

func NewBookingHandler(ledger Booker, bookings BookingLister, cache CacheInvalidator) *BookingHandler {
	return &BookingHandler{Ledger: ledger, Bookings: bookings, Cache: cache, log: logrus.WithField("component", "booking")}
}

// bookingReq uses pointers so a missing field can be told apart from 0.
type bookingReq struct {
	EventID     *uint64 `json:"event_id"`
	NumAdults   *int    `json:"num_adults"`
	NumChildren *int    `json:"num_children"`
	SeatType    *string `json:"seat_type"`
}

// missing names the first absent field, in request order.
func (r bookingReq) missing() string {
	switch {
	case r.EventID == nil:
		return "Event id"
	case r.NumAdults == nil:
		return "Num adults"
	case r.NumChildren == nil:
		return "Num children"
	case r.SeatType == nil:
		return "Seat type"
	}
	return ""
}

type bookingDTO struct {
	ID           uint64 `json:"id"`
	Reference    string `json:"booking_reference"`
	EventID      uint64 `json:"event_id"`
	EventName    string `json:"event_name"`
	EventDate    string `json:"event_date"`
	EventTime    string `json:"event_time"`
	NumAdults    int    `json:"num_adults"`
	NumChildren  int    `json:"num_children"`
	TotalTickets int    `json:"total_tickets"`
	SeatType     string `json:"seat_type"`
	TotalPrice   string `json:"total_price"`
	Status       string `json:"booking_status,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
}

// Book runs one booking attempt through the ledger.  Every rejection,
// including storage trouble, is reported as {success:false, message}.
func (h *BookingHandler) Book(c echo.Context) error {
	uid, ok := middleware.CurrentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Unauthorized. Please login."})
	}
	var req bookingReq
	if err := c.Bind(&req); err != nil {
		return fail(c, "Invalid request body")
	}
	if field := req.missing(); field != "" {
		return fail(c, field+" is required")
	}

	res, err := h.Ledger.AttemptBooking(c.Request().Context(), service.BookingRequest{
		UserID:      uid,
		EventID:     *req.EventID,
		NumAdults:   *req.NumAdults,
		NumChildren: *req.NumChildren,
		SeatType:    strings.TrimSpace(*req.SeatType),
	})
	if err != nil {
		var be *service.BookingError
		if errors.As(err, &be) {
			return fail(c, be.Message)
		}
		h.log.WithError(err).Error("booking failed")
		return fail(c, "Booking failed")
	}

	if h.Cache != nil {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), requestTimeout)
		if err := h.Cache.Invalidate(ctx); err != nil {
			h.log.WithError(err).Warn("event cache invalidation failed")
		}
		cancel()
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Booking successful",
		"booking": bookingDTO{
			ID:           res.ID,
			Reference:    res.Reference,
			EventID:      res.EventID,
			EventName:    res.EventName,
			EventDate:    res.EventDate,
			EventTime:    res.EventTime,
			NumAdults:    res.NumAdults,
			NumChildren:  res.NumChildren,
			TotalTickets: res.TotalTickets,
			SeatType:     res.SeatType,
			TotalPrice:   money(res.TotalPrice),
		},
	})
}

// MyBookings lists the caller's bookings, newest first.
func (h *BookingHandler) MyBookings(c echo.Context) error {
	uid, ok := middleware.CurrentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Unauthorized. Please login."})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	rows, err := h.Bookings.ListByUser(ctx, uid)
	if err != nil {
		h.log.WithError(err).WithField("user_id", uid).Error("list bookings failed")
		return fail(c, "Failed to load bookings")
	}
	out := make([]bookingDTO, 0, len(rows))
	for _, b := range rows {
		out = append(out, bookingDTO{
			ID:           b.ID,
			Reference:    b.Reference,
			EventID:      b.EventID,
			EventName:    b.EventName,
			EventDate:    b.EventDate,
			EventTime:    b.EventTime,
			NumAdults:    b.NumAdults,
			NumChildren:  b.NumChildren,
			TotalTickets: b.TotalTickets,
			SeatType:     b.SeatType,
			TotalPrice:   money(b.TotalPrice),
			Status:       b.Status,
			CreatedAt:    b.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "bookings": out})
}
