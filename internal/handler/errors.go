package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Xavierhuang/FounderEvents-sub002/internal/service"
	"github.com/Xavierhuang/FounderEvents-sub002/pkg/middleware"
	"github.com/Xavierhuang/FounderEvents-sub002/pkg/response"
)

// handleError converts service errors to HTTP responses
func handleError(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, response.ValidationFailed(verr.Fields))
	case errors.Is(err, service.ErrEventNotFound):
		c.JSON(http.StatusNotFound, response.NotFound("Event not found"))
	case errors.Is(err, service.ErrRegistrationNotFound):
		c.JSON(http.StatusNotFound, response.NotFound("No active registration found"))
	case errors.Is(err, service.ErrProfileNotFound):
		c.JSON(http.StatusNotFound, response.NotFound("Organizer profile not found"))
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, response.Forbidden("Only the organizer can perform this action"))
	case errors.Is(err, service.ErrProfileMissing):
		c.JSON(http.StatusForbidden, response.Forbidden("Create an organizer profile before creating events"))
	case errors.Is(err, service.ErrEventNotPublished):
		c.JSON(http.StatusConflict, response.Error(response.ErrCodeEventNotPublished, "Event is not open for registration"))
	case errors.Is(err, service.ErrDeadlinePassed):
		c.JSON(http.StatusConflict, response.Error(response.ErrCodeRegistrationClosed, "Registration deadline has passed"))
	case errors.Is(err, service.ErrCapacityExceeded):
		c.JSON(http.StatusConflict, response.Error(response.ErrCodeCapacityExceeded, "Not enough seats left for this event"))
	case errors.Is(err, service.ErrDuplicateRegistration):
		c.JSON(http.StatusConflict, response.Error(response.ErrCodeDuplicateEntry, "This email is already registered for the event"))
	case errors.Is(err, service.ErrProfileExists):
		c.JSON(http.StatusConflict, response.Conflict("Organizer profile already exists"))
	case errors.Is(err, service.ErrInvalidQuery):
		c.JSON(http.StatusBadRequest, response.BadRequest(err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, response.InternalError(""))
	}
}

// requireUser returns the authenticated user id or writes a 401
func requireUser(c *gin.Context) (string, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok || userID == "" {
		c.JSON(http.StatusUnauthorized, response.Unauthorized(""))
		return "", false
	}
	return userID, true
}

// optionalUser returns the caller id when a valid token was presented
func optionalUser(c *gin.Context) string {
	userID, _ := middleware.GetUserID(c)
	return userID
}
