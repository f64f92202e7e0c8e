package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Xavierhuang/FounderEvents-sub002/internal/dto"
	"github.com/Xavierhuang/FounderEvents-sub002/internal/service"
	"github.com/Xavierhuang/FounderEvents-sub002/pkg/middleware"
	"github.com/Xavierhuang/FounderEvents-sub002/pkg/response"
	"github.com/Xavierhuang/FounderEvents-sub002/pkg/telemetry"
)

// RegistrationHandler handles registration HTTP requests
type RegistrationHandler struct {
	registrationService service.RegistrationService
}

// NewRegistrationHandler creates a new RegistrationHandler
func NewRegistrationHandler(registrationService service.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registrationService: registrationService}
}

// Register handles attendee sign-up. Guests register with name and email;
// signed-in callers may omit the email and use the one in their token.
// POST /api/v1/events/:slug/register
func (h *RegistrationHandler) Register(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.registration.register")
	defer span.End()

	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest(err.Error()))
		return
	}

	if userID, ok := middleware.GetUserID(c); ok {
		req.UserID = userID
		if email, ok := middleware.GetEmail(c); ok && req.Email == "" {
			req.Email = email
		}
	}

	reg, err := h.registrationService.Register(ctx, c.Param("slug"), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(reg))
}

// Cancel handles cancellation of the caller's registration
// DELETE /api/v1/events/:slug/register
func (h *RegistrationHandler) Cancel(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	reg, err := h.registrationService.Cancel(c.Request.Context(), c.Param("slug"), userID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(reg))
}

// GetMine handles retrieving the caller's registration
// GET /api/v1/events/:slug/registration
func (h *RegistrationHandler) GetMine(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	reg, err := h.registrationService.GetMyRegistration(c.Request.Context(), c.Param("slug"), userID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(reg))
}

// List handles the organizer's attendee list
// GET /api/v1/events/:slug/registrations
func (h *RegistrationHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	regs, err := h.registrationService.ListRegistrations(c.Request.Context(), c.Param("slug"), userID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(regs))
}
