package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ground-booking-backend/internal/availability"
	"ground-booking-backend/internal/booking"
)

// ListBookings returns bookings filtered by ?status=, ?from= and ?to=.
func (h *Handler) ListBookings(c *gin.Context) {
	f := booking.ListFilter{Status: c.Query("status")}
	for _, p := range []struct {
		key string
		dst **availability.Date
	}{{"from", &f.From}, {"to", &f.To}} {
		raw := c.Query(p.key)
		if raw == "" {
			continue
		}
		d, err := h.svc.ParseDate(raw)
		if err != nil {
			writeError(c, err)
			return
		}
		*p.dst = &d
	}

	bookings, err := h.svc.List(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateBookingStatus approves or rejects a pending booking.
func (h *Handler) UpdateBookingStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	b, err := h.svc.Decide(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// GetReport aggregates bookings over ?period=day|month|year containing ?date=.
func (h *Handler) GetReport(c *gin.Context) {
	period := c.DefaultQuery("period", "month")

	report, err := h.svc.Report(c.Request.Context(), period, c.Query("date"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"period": period, "report": report})
}

// Feed upgrades to a websocket streaming booking events.
func (h *Handler) Feed(c *gin.Context) {
	if h.feed == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "live feed is not enabled"})
		return
	}
	h.feed.ServeHTTP(c.Writer, c.Request)
}
