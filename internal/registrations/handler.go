package registrations

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gatherly/backend/internal/events"
	"github.com/gatherly/backend/internal/models"
	"github.com/gatherly/backend/pkg/response"
	"github.com/gatherly/backend/pkg/utils"
)

// RegisterRequest is the body for POST /events/:id/register.
type RegisterRequest struct {
	Name       string `json:"name" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Phone      string `json:"phone"`
	Work       string `json:"work"`
	Role       string `json:"role"`
	TicketType string `json:"ticket_type"`
	UserID     string `json:"user_id"` // optional platform user; generated for guests
}

// BadgeRoleRequest is the body for PATCH /events/:id/registrations/:userId/badge-role.
type BadgeRoleRequest struct {
	BadgeRole string `json:"badge_role"`
}

// Handler handles registration HTTP endpoints.
type Handler struct {
	repo      *Repository
	eventRepo *events.Repository
	logger    *zap.Logger
}

// NewHandler creates a registrations handler.
func NewHandler(repo *Repository, eventRepo *events.Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, eventRepo: eventRepo, logger: logger}
}

// Register handles POST /events/:id/register (public).
func (h *Handler) Register(c *gin.Context) {
	eventID := c.Param("id")
	event, err := h.eventRepo.GetEvent(c.Request.Context(), eventID)
	if err != nil {
		response.Internal(c, "failed to load event")
		return
	}
	if event == nil {
		response.NotFound(c, "event not found")
		return
	}
	if event.Status != models.EventStatusActive {
		response.Conflict(c, "registration closed for this event")
		return
	}

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID := req.UserID
	if userID == "" {
		userID = utils.NewID()
	}

	reg := &models.Registration{
		EventID:    eventID,
		UserID:     userID,
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		Work:       req.Work,
		Role:       req.Role,
		TicketType: req.TicketType,
	}
	if err := h.repo.Create(c.Request.Context(), reg); err != nil {
		h.logger.Error("create registration failed", zap.String("event_id", eventID), zap.Error(err))
		response.Internal(c, "failed to register")
		return
	}
	response.Created(c, reg)
}

// List handles GET /events/:id/registrations (admin/staff).
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Internal(c, "failed to list registrations")
		return
	}
	response.OK(c, list)
}

// Cancel handles DELETE /events/:id/registrations/:userId (admin/staff).
// Checked-in registrations cannot be cancelled.
func (h *Handler) Cancel(c *gin.Context) {
	eventID := c.Param("id")
	userID := c.Param("userId")

	deleted, err := h.repo.Delete(c.Request.Context(), eventID, userID)
	if err != nil {
		h.logger.Error("cancel registration failed",
			zap.String("event_id", eventID), zap.String("user_id", userID), zap.Error(err))
		response.Internal(c, "failed to cancel registration")
		return
	}
	if !deleted {
		reg, err := h.repo.Get(c.Request.Context(), eventID, userID)
		if err == nil && reg != nil && reg.CheckedIn {
			response.Conflict(c, "registration already checked in")
			return
		}
		response.NotFound(c, "registration not found")
		return
	}
	response.NoContent(c)
}

// SetBadgeRole handles PATCH /events/:id/registrations/:userId/badge-role
// (admin only). An empty badge role clears the override.
func (h *Handler) SetBadgeRole(c *gin.Context) {
	eventID := c.Param("id")
	userID := c.Param("userId")
	var req BadgeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request")
		return
	}
	updated, err := h.repo.SetBadgeRole(c.Request.Context(), eventID, userID, req.BadgeRole)
	if err != nil {
		response.Internal(c, "failed to set badge role")
		return
	}
	if !updated {
		response.NotFound(c, "registration not found")
		return
	}
	response.OK(c, gin.H{"event_id": eventID, "user_id": userID, "badge_role": req.BadgeRole})
}
