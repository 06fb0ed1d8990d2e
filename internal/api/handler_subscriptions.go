package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ground-booking-backend/internal/auth"
	"ground-booking-backend/internal/model"
	"ground-booking-backend/internal/store"
)

type putSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required,url"`
	P256DH   string `json:"p256dh" binding:"required"`
	Auth     string `json:"auth" binding:"required"`
	Role     string `json:"role" binding:"omitempty,oneof=admin user"`
}

// PutSubscription creates or replaces the caller's subscription. Admins may
// subscribe to new-booking alerts with role "admin"; everyone else receives
// decisions about their own bookings.
func (h *Handler) PutSubscription(c *gin.Context) {
	var req putSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, _ := auth.FromContext(c)

	role := model.RoleUser
	if req.Role == string(model.RoleAdmin) {
		if !id.IsAdmin() {
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		role = model.RoleAdmin
	}

	if existing, err := h.store.GetSubscription(c.Request.Context(), req.Endpoint); err == nil && !strings.EqualFold(existing.Email, id.Email) {
		c.JSON(http.StatusConflict, gin.H{"error": "endpoint belongs to another account"})
		return
	}

	subscription := model.PushSubscription{
		Endpoint: req.Endpoint,
		P256DH:   req.P256DH,
		Auth:     req.Auth,
		Email:    id.Email,
		Role:     role,
	}
	if err := h.store.SaveSubscription(c.Request.Context(), &subscription); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusCreated)
}

type deleteSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// DeleteSubscription removes one of the caller's subscriptions.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	var req deleteSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.ownSubscription(c, req.Endpoint); err != nil {
		writeError(c, err)
		return
	}
	if err := h.store.DeleteSubscription(c.Request.Context(), req.Endpoint); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func rawQueryParam(rawQuery, key string) (string, bool) {
	for _, kv := range strings.Split(rawQuery, "&") {
		if strings.HasPrefix(kv, key+"=") {
			return kv[len(key)+1:], true // push endpoints are matched verbatim, not URL-decoded
		}
	}
	return "", false
}

// GetSubscription reports what a subscription of the caller receives.
func (h *Handler) GetSubscription(c *gin.Context) {
	raw, ok := rawQueryParam(c.Request.URL.RawQuery, "endpoint")
	if !ok || raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "endpoint is required"})
		return
	}

	sub, err := h.ownSubscription(c, raw)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"endpoint": sub.Endpoint, "role": sub.Role})
}

// ownSubscription loads a subscription and hides those of other accounts.
func (h *Handler) ownSubscription(c *gin.Context, endpoint string) (model.PushSubscription, error) {
	id, _ := auth.FromContext(c)
	sub, err := h.store.GetSubscription(c.Request.Context(), endpoint)
	if err != nil {
		return sub, err
	}
	if !strings.EqualFold(sub.Email, id.Email) {
		return model.PushSubscription{}, store.ErrNotFound
	}
	return sub, nil
}

// GetVAPIDPublicKey returns the application server key browsers need before
// they can create a subscription for PutSubscription.
func (h *Handler) GetVAPIDPublicKey(c *gin.Context) {
	if h.webpush == nil || h.webpush.VAPIDPublicKey == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "push notifications are not configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"public_key": h.webpush.VAPIDPublicKey})
}
