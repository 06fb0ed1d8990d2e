package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetGrounds lists every ground with its slot catalog.
func (h *Handler) GetGrounds(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"grounds": h.svc.Grounds()})
}

// GetSlots returns the slot board of a ground for ?date=YYYY-MM-DD (today
// when omitted).
func (h *Handler) GetSlots(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		date = h.svc.Today().String()
	}

	board, err := h.svc.Availability(c.Request.Context(), c.Param("ground"), date)
	if err != nil {
		writeError(c, err)
		return
	}
	catalog, _ := h.svc.Catalog(c.Param("ground"))

	c.JSON(http.StatusOK, gin.H{
		"groundType": catalog.Ground,
		"date":       date,
		"slots":      board,
	})
}

// GetCalendar returns the status of every day of ?month=YYYY-MM (this month
// when omitted).
func (h *Handler) GetCalendar(c *gin.Context) {
	month := c.Query("month")
	if month == "" {
		month = h.svc.Today().String()[:7]
	}

	days, err := h.svc.Calendar(c.Request.Context(), c.Param("ground"), month)
	if err != nil {
		writeError(c, err)
		return
	}
	catalog, _ := h.svc.Catalog(c.Param("ground"))

	c.JSON(http.StatusOK, gin.H{
		"groundType": catalog.Ground,
		"month":      month,
		"days":       days,
	})
}

// GetPaymentLink returns the UPI deep link for ?ground=.
func (h *Handler) GetPaymentLink(c *gin.Context) {
	link, err := h.svc.PaymentLink(c.Query("ground"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": link})
}
