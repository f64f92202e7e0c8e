package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Xavierhuang/FounderEvents-sub002/internal/dto"
	"github.com/Xavierhuang/FounderEvents-sub002/internal/service"
	"github.com/Xavierhuang/FounderEvents-sub002/pkg/response"
)

// ProfileHandler handles organizer profile HTTP requests
type ProfileHandler struct {
	profileService service.ProfileService
}

// NewProfileHandler creates a new ProfileHandler
func NewProfileHandler(profileService service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

// Create handles profile creation
// POST /api/v1/organizer/profile
func (h *ProfileHandler) Create(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req dto.CreateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest(err.Error()))
		return
	}

	profile, err := h.profileService.CreateProfile(c.Request.Context(), userID, &req)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(profile))
}

// Get handles retrieving the caller's profile
// GET /api/v1/organizer/profile
func (h *ProfileHandler) Get(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	profile, err := h.profileService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(profile))
}
