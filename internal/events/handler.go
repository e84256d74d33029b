package events

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gatherly/backend/internal/middleware"
	"github.com/gatherly/backend/internal/models"
	"github.com/gatherly/backend/pkg/response"
)

// CreateRequest is the body for POST /events.
type CreateRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Date        string `json:"date" binding:"required"` // RFC3339
	Location    string `json:"location"`
	Capacity    int    `json:"capacity"`
	Status      string `json:"status"`
}

// UpdateRequest is the body for PATCH /events/:id.
type UpdateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Location    *string `json:"location"`
	Status      *string `json:"status"`
	Capacity    *int    `json:"capacity"`
}

// SpeakerRequest is the body for POST /events/:id/speakers.
type SpeakerRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// Handler handles event HTTP endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates an event handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// Create handles POST /events (admin only).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	date, err := time.Parse(time.RFC3339, req.Date)
	if err != nil {
		response.BadRequest(c, "invalid date")
		return
	}
	if req.Status != "" && !models.ValidStatus(req.Status) {
		response.BadRequest(c, "invalid status")
		return
	}

	e := &models.Event{
		Name:        req.Name,
		Description: req.Description,
		Date:        date,
		Location:    req.Location,
		Capacity:    req.Capacity,
		Status:      models.EventStatus(req.Status),
		CreatedBy:   c.MustGet(middleware.ContextUserID).(string),
	}
	if err := h.repo.Create(c.Request.Context(), e); err != nil {
		h.logger.Error("create event failed", zap.Error(err))
		response.Internal(c, "failed to create event")
		return
	}
	response.Created(c, e)
}

// List handles GET /events.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list events")
		return
	}
	response.OK(c, list)
}

// GetByID handles GET /events/:id.
func (h *Handler) GetByID(c *gin.Context) {
	e, err := h.repo.GetEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Internal(c, "failed to load event")
		return
	}
	if e == nil {
		response.NotFound(c, "event not found")
		return
	}
	response.OK(c, e)
}

// Update handles PATCH /events/:id (admin only).
func (h *Handler) Update(c *gin.Context) {
	id := c.Param("id")
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request")
		return
	}
	if req.Status != nil && !models.ValidStatus(*req.Status) {
		response.BadRequest(c, "invalid status")
		return
	}
	e, err := h.repo.GetEvent(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load event")
		return
	}
	if e == nil {
		response.NotFound(c, "event not found")
		return
	}
	if err := h.repo.Update(c.Request.Context(), id, req.Name, req.Description, req.Location, req.Status, req.Capacity); err != nil {
		h.logger.Error("update event failed", zap.String("event_id", id), zap.Error(err))
		response.Internal(c, "failed to update event")
		return
	}
	updated, _ := h.repo.GetEvent(c.Request.Context(), id)
	response.OK(c, updated)
}

// Delete handles DELETE /events/:id (admin only).
func (h *Handler) Delete(c *gin.Context) {
	id := c.Param("id")
	e, err := h.repo.GetEvent(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load event")
		return
	}
	if e == nil {
		response.NotFound(c, "event not found")
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		response.Internal(c, "failed to delete event")
		return
	}
	response.NoContent(c)
}

// AddSpeaker handles POST /events/:id/speakers (admin only).
func (h *Handler) AddSpeaker(c *gin.Context) {
	eventID := c.Param("id")
	var req SpeakerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	e, err := h.repo.GetEvent(c.Request.Context(), eventID)
	if err != nil {
		response.Internal(c, "failed to load event")
		return
	}
	if e == nil {
		response.NotFound(c, "event not found")
		return
	}
	if err := h.repo.AddSpeaker(c.Request.Context(), eventID, req.UserID); err != nil {
		h.logger.Error("add speaker failed", zap.String("event_id", eventID), zap.Error(err))
		response.Internal(c, "failed to add speaker")
		return
	}
	response.Created(c, gin.H{"event_id": eventID, "user_id": req.UserID})
}

// RemoveSpeaker handles DELETE /events/:id/speakers/:userId (admin only).
func (h *Handler) RemoveSpeaker(c *gin.Context) {
	if err := h.repo.RemoveSpeaker(c.Request.Context(), c.Param("id"), c.Param("userId")); err != nil {
		response.Internal(c, "failed to remove speaker")
		return
	}
	response.NoContent(c)
}
