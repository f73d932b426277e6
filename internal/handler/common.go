package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"onboarding-forms-api/internal/middleware"
	"onboarding-forms-api/internal/response"
	"onboarding-forms-api/internal/service"
)

// actorFrom returns the authenticated caller, or writes 401 and returns false
func actorFrom(c *gin.Context) (service.Actor, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.SendError(c, http.StatusUnauthorized, response.ErrCodeUnauthorized, "User ID not found in context")
		return service.Actor{}, false
	}
	return service.Actor{UserID: userID, IsAdmin: middleware.IsAdmin(c), Name: middleware.DisplayName(c)}, true
}

// uuidParam parses a path parameter, or writes 400 and returns false
func uuidParam(c *gin.Context, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid "+label+" ID")
		return uuid.Nil, false
	}
	return id, true
}

func invalidBody(c *gin.Context, err error) {
	_ = c.Error(err)
	response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid request body")
}

func invalidQuery(c *gin.Context, err error) {
	_ = c.Error(err)
	response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid query parameters")
}
