package checkin

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gatherly/backend/internal/middleware"
	"github.com/gatherly/backend/pkg/response"
)

// ScanRequest is the body for POST /scan. EventID is the scanner's selected
// event context; it may be empty when no event is chosen yet.
type ScanRequest struct {
	Payload string `json:"payload" binding:"required"`
	EventID string `json:"event_id"`
}

// ManualCheckInRequest is the body for POST /events/:id/checkin.
type ManualCheckInRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// Handler handles scanner and door-staff HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a check-in handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Scan handles POST /scan. Every expected outcome, including invalid-qr and
// not-found, is a 200 with a typed outcome so the scanner UI renders each
// distinctly; only transient store failures become 503.
func (h *Handler) Scan(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	actorID := c.MustGet(middleware.ContextUserID).(string)

	result, err := h.svc.Scan(c.Request.Context(), req.Payload, req.EventID, actorID)
	if err != nil {
		h.logger.Error("scan failed", zap.String("event_id", req.EventID), zap.Error(err))
		response.ServiceUnavailable(c, "check-in temporarily unavailable, retry")
		return
	}
	response.OK(c, result)
}

// ManualCheckIn handles POST /events/:id/checkin, the email-lookup door path.
// It shares the scan transition, including the conditional write.
func (h *Handler) ManualCheckIn(c *gin.Context) {
	eventID := c.Param("id")
	var req ManualCheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	actorID := c.MustGet(middleware.ContextUserID).(string)

	result, err := h.svc.CheckIn(c.Request.Context(), eventID, req.UserID, actorID)
	if err != nil {
		h.logger.Error("manual check-in failed",
			zap.String("event_id", eventID),
			zap.String("user_id", req.UserID),
			zap.Error(err),
		)
		response.ServiceUnavailable(c, "check-in temporarily unavailable, retry")
		return
	}
	response.OK(c, result)
}

// SearchByEmail handles GET /events/:id/registrations/search?email=.
func (h *Handler) SearchByEmail(c *gin.Context) {
	eventID := c.Param("id")
	email := c.Query("email")
	if email == "" {
		response.BadRequest(c, "email required")
		return
	}

	reg, role, err := h.svc.FindByEmail(c.Request.Context(), eventID, email)
	if err != nil {
		h.logger.Error("email lookup failed", zap.String("event_id", eventID), zap.Error(err))
		response.ServiceUnavailable(c, "lookup temporarily unavailable, retry")
		return
	}
	if reg == nil {
		response.NotFound(c, "no registration for that email")
		return
	}
	response.OK(c, gin.H{"registration": reg, "role": role})
}

// Stats handles GET /events/:id/stats.
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			response.NotFound(c, "event not found")
			return
		}
		h.logger.Error("stats failed", zap.String("event_id", c.Param("id")), zap.Error(err))
		response.ServiceUnavailable(c, "stats temporarily unavailable, retry")
		return
	}
	response.OK(c, stats)
}

// DoorList handles GET /events/:id/door-list?role=.
func (h *Handler) DoorList(c *gin.Context) {
	entries, err := h.svc.DoorList(c.Request.Context(), c.Param("id"), c.Query("role"))
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			response.NotFound(c, "event not found")
			return
		}
		h.logger.Error("door list failed", zap.String("event_id", c.Param("id")), zap.Error(err))
		response.ServiceUnavailable(c, "door list temporarily unavailable, retry")
		return
	}
	response.OK(c, entries)
}

// CheckInCode handles GET /events/:id/registrations/:userId/code. It returns
// the composite code and connection link for a registration, used when
// re-issuing a badge at the door.
func (h *Handler) CheckInCode(c *gin.Context) {
	eventID := c.Param("id")
	userID := c.Param("userId")
	reg, err := h.svc.getRegistration(c.Request.Context(), eventID, userID)
	if err != nil {
		response.ServiceUnavailable(c, "lookup temporarily unavailable, retry")
		return
	}
	if reg == nil {
		response.NotFound(c, "registration not found")
		return
	}
	codec := h.svc.Codec()
	response.OK(c, gin.H{
		"code":        codec.EncodeCode(eventID, userID),
		"connect_url": codec.EncodeConnectURL(eventID, userID),
	})
}
