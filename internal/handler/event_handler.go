package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Xavierhuang/FounderEvents-sub002/internal/dto"
	"github.com/Xavierhuang/FounderEvents-sub002/internal/service"
	"github.com/Xavierhuang/FounderEvents-sub002/pkg/response"
)

// EventHandler handles event HTTP requests
type EventHandler struct {
	eventService service.EventService
}

// NewEventHandler creates a new EventHandler
func NewEventHandler(eventService service.EventService) *EventHandler {
	return &EventHandler{eventService: eventService}
}

// Create handles event creation
// POST /api/v1/events
func (h *EventHandler) Create(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req dto.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest(err.Error()))
		return
	}

	event, err := h.eventService.CreateEvent(c.Request.Context(), userID, &req)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(event))
}

// GetBySlug handles retrieving one event
// GET /api/v1/events/:slug
func (h *EventHandler) GetBySlug(c *gin.Context) {
	event, err := h.eventService.GetEvent(c.Request.Context(), c.Param("slug"), optionalUser(c))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(event))
}

// List handles the public event listing
// GET /api/v1/events
func (h *EventHandler) List(c *gin.Context) {
	var params dto.ListEventsQuery
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest(err.Error()))
		return
	}
	query, err := params.ToQuery()
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ValidationFailed(dto.FieldErrors(err)))
		return
	}

	page, err := h.eventService.ListEvents(c.Request.Context(), query)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(page.Events, page.Limit, page.Offset, int64(page.Total)))
}

// ListMine handles the organizer's own listing
// GET /api/v1/organizer/events
func (h *EventHandler) ListMine(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var params dto.ListEventsQuery
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest(err.Error()))
		return
	}
	query, err := params.ToQuery()
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ValidationFailed(dto.FieldErrors(err)))
		return
	}

	page, err := h.eventService.ListOrganizerEvents(c.Request.Context(), userID, query)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(page.Events, page.Limit, page.Offset, int64(page.Total)))
}

// Update handles partial event updates
// PATCH /api/v1/events/:slug
func (h *EventHandler) Update(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req dto.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest(err.Error()))
		return
	}

	event, err := h.eventService.UpdateEvent(c.Request.Context(), c.Param("slug"), userID, &req)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(event))
}

// SetFeatured handles the featured toggle
// PUT /api/v1/events/:slug/featured
func (h *EventHandler) SetFeatured(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req dto.SetFeaturedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest(err.Error()))
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, response.ValidationFailed(dto.FieldErrors(err)))
		return
	}

	event, err := h.eventService.SetFeatured(c.Request.Context(), c.Param("slug"), userID, *req.IsFeatured)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(event))
}

// Delete handles event deletion
// DELETE /api/v1/events/:slug
func (h *EventHandler) Delete(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	slug := c.Param("slug")
	if err := h.eventService.DeleteEvent(c.Request.Context(), slug, userID); err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(gin.H{"message": "Event deleted", "slug": slug}))
}

// ToggleLike handles liking and unliking
// POST /api/v1/events/:slug/like
func (h *EventHandler) ToggleLike(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	result, err := h.eventService.ToggleLike(c.Request.Context(), c.Param("slug"), userID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(result))
}
