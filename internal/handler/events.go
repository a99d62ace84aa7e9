package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/park-ticketing/internal/repository"
)

// EventHandler serves the public event catalogue.
type EventHandler struct {
	Events EventReader
	now    func() time.Time
	log    *logrus.Entry
}

func NewEventHandler(events EventReader) *EventHandler {
	return &EventHandler{Events: events, now: time.Now, log: logrus.WithField("component", "events")}
}

type priceDTO struct {
	SeatType   string `json:"seat_type"`
	AdultPrice string `json:"adult_price"`
	ChildPrice string `json:"child_price"`
}

type eventDTO struct {
	ID                uint64     `json:"id"`
	Name              string     `json:"event_name"`
	Date              string     `json:"event_date"`
	Time              string     `json:"event_time"`
	Description       string     `json:"description"`
	TotalCapacity     int        `json:"total_capacity"`
	MaxTicketsPerSale int        `json:"max_tickets_per_sale"`
	RequiresAdult     bool       `json:"requires_adult"`
	Status            string     `json:"status"`
	AvailableTickets  int        `json:"available_tickets"`
	Prices            []priceDTO `json:"prices"`
}

func toEventDTO(s repository.EventSummary) eventDTO {
	out := eventDTO{
		ID:                s.ID,
		Name:              s.Name,
		Date:              s.DateString(),
		Time:              s.Time,
		Description:       s.Description,
		TotalCapacity:     s.TotalCapacity,
		MaxTicketsPerSale: s.MaxTicketsPerSale,
		RequiresAdult:     s.RequiresAdult,
		Status:            s.Status,
		AvailableTickets:  s.AvailableTickets,
		Prices:            make([]priceDTO, 0, len(s.Prices)),
	}
	for _, p := range s.Prices {
		out.Prices = append(out.Prices, priceDTO{
			SeatType:   p.SeatType,
			AdultPrice: money(p.AdultPrice),
			ChildPrice: money(p.ChildPrice),
		})
	}
	return out
}

// List returns active events dated today or later with their
// availability and prices.
func (h *EventHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	events, err := h.Events.ListUpcoming(ctx, h.now())
	if err != nil {
		h.log.WithError(err).Error("list events failed")
		return fail(c, "Failed to load events")
	}
	out := make([]eventDTO, 0, len(events))
	for _, e := range events {
		out = append(out, toEventDTO(e))
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "events": out})
}

type eventDetailReq struct {
	EventID *uint64 `json:"event_id"`
}

// Detail returns one event by id regardless of its status.
func (h *EventHandler) Detail(c echo.Context) error {
	var req eventDetailReq
	if err := c.Bind(&req); err != nil {
		return fail(c, "Invalid request body")
	}
	if req.EventID == nil {
		return fail(c, "Event ID is required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	ev, err := h.Events.GetByID(ctx, *req.EventID)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return fail(c, "Event not found")
		}
		h.log.WithError(err).WithField("event_id", *req.EventID).Error("load event failed")
		return fail(c, "Failed to load event")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "event": toEventDTO(ev)})
}
