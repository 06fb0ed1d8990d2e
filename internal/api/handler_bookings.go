package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ground-booking-backend/internal/auth"
	"ground-booking-backend/internal/booking"
)

type createBookingRequest struct {
	GroundType       string `json:"groundType" binding:"required"`
	Date             string `json:"date" binding:"required"`
	TimeSlot         string `json:"timeSlot" binding:"required"`
	Name             string `json:"name" binding:"required,max=128"`
	Email            string `json:"email" binding:"max=256"`
	Phone            string `json:"phone" binding:"required,phone10"`
	PaymentReference string `json:"paymentReference" binding:"max=128"`
}

// CreateBooking submits a pending booking for the caller.
func (h *Handler) CreateBooking(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, _ := auth.FromContext(c)

	b, err := h.svc.Create(c.Request.Context(), id, booking.CreateRequest{
		Ground:           req.GroundType,
		Date:             req.Date,
		TimeSlot:         req.TimeSlot,
		Name:             req.Name,
		Email:            req.Email,
		Phone:            req.Phone,
		PaymentReference: req.PaymentReference,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// GetMyBookings lists the caller's bookings, optionally filtered by ?status=.
func (h *Handler) GetMyBookings(c *gin.Context) {
	id, _ := auth.FromContext(c)

	bookings, err := h.svc.History(c.Request.Context(), id, c.Query("status"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}
