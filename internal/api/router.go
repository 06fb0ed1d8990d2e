package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"ground-booking-backend/config"
	"ground-booking-backend/internal/auth"
	"ground-booking-backend/internal/metrics"
	"ground-booking-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router. m may be nil.
func NewRouter(cfg *config.Config, h *Handler, verifier *auth.Verifier, m *metrics.Metrics) *gin.Engine {
	registerValidators()

	r := gin.New()
	r.Use(gin.LoggerWithFormatter(accessLogLine), gin.Recovery())
	if cfg.Server.RequestIPHeader != "" {
		r.TrustedPlatform = cfg.Server.RequestIPHeader
	}

	if m != nil && cfg.Metrics.Enabled {
		r.Use(m.Middleware())
		r.GET(cfg.Metrics.Path, gin.WrapH(m.Handler()))
	}
	r.GET("/healthz", h.Health)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)

	ttl := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	cacheStore := mw.NewResponseCache(ttl)
	caching := mw.Cache(cacheStore, ttl)

	api := r.Group("/api")
	api.Use(rateLimiter, mw.Invalidate(cacheStore))
	{
		api.GET("/grounds", h.GetGrounds)
		api.GET("/grounds/:ground/slots", caching, h.GetSlots)
		api.GET("/grounds/:ground/calendar", caching, h.GetCalendar)
		api.GET("/payments/upi-link", h.GetPaymentLink)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	user := api.Group("", auth.Authenticate(verifier))
	{
		user.POST("/bookings", h.CreateBooking)
		user.GET("/bookings/mine", h.GetMyBookings)

		user.GET("/subscriptions", h.GetSubscription)
		user.PUT("/subscriptions", h.PutSubscription)
		user.DELETE("/subscriptions", h.DeleteSubscription)
	}

	admin := api.Group("/admin", auth.Authenticate(verifier), auth.RequireAdmin())
	{
		admin.GET("/bookings", h.ListBookings)
		admin.PATCH("/bookings/:id/status", h.UpdateBookingStatus)
		admin.GET("/reports", h.GetReport)
		admin.GET("/feed", h.Feed)
	}

	return r
}

// accessLogLine is gin's default log line without the query string, which can
// carry the feed handshake token.
func accessLogLine(p gin.LogFormatterParams) string {
	path, _, _ := strings.Cut(p.Path, "?")
	return fmt.Sprintf("[GIN] %v | %3d | %13v | %15s | %-7s %#v\n%s",
		p.TimeStamp.Format("2006/01/02 - 15:04:05"),
		p.StatusCode,
		p.Latency,
		p.ClientIP,
		p.Method,
		path,
		p.ErrorMessage,
	)
}
