package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"onboarding-forms-api/internal/dto"
	"onboarding-forms-api/internal/response"
	"onboarding-forms-api/internal/service"
)

// WizardHandler drives the step-by-step submission wizard of the signed-in client.
// A client has at most one session per form; it is addressed by the form ID.
type WizardHandler struct {
	wizardService service.WizardService
}

// NewWizardHandler creates a new WizardHandler
func NewWizardHandler(wizardService service.WizardService) *WizardHandler {
	return &WizardHandler{wizardService: wizardService}
}

func (h *WizardHandler) run(c *gin.Context, call func(actor service.Actor) (*dto.SessionResponse, error)) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	session, err := call(actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, session)
}

// AvailableForms godoc
// @Summary      Forms the client can fill in
// @Description  Active forms with their step and field counts, flagging the ones with a saved draft
// @Tags         wizard
// @Produce      json
// @Success      200 {object} response.SuccessResponse{data=[]dto.AvailableFormResponse}
// @Security     BearerAuth
// @Router       /wizard/forms [get]
func (h *WizardHandler) AvailableForms(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	forms, err := h.wizardService.AvailableForms(c.Request.Context(), actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, forms)
}

// StartSession godoc
// @Summary      Start or resume a wizard session
// @Description  Resumes the saved draft when there is one, else starts at the first step
// @Tags         wizard
// @Produce      json
// @Param        formId path string true "Form ID (UUID)"
// @Success      200 {object} response.SuccessResponse{data=dto.SessionResponse}
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /wizard/{formId} [post]
func (h *WizardHandler) StartSession(c *gin.Context) {
	formID, ok := uuidParam(c, "formId", "form")
	if !ok {
		return
	}
	h.run(c, func(actor service.Actor) (*dto.SessionResponse, error) {
		return h.wizardService.StartSession(c.Request.Context(), actor, formID)
	})
}

// GetSession godoc
// @Summary      Get the wizard session
// @Tags         wizard
// @Produce      json
// @Param        formId path string true "Form ID (UUID)"
// @Success      200 {object} response.SuccessResponse{data=dto.SessionResponse}
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /wizard/{formId} [get]
func (h *WizardHandler) GetSession(c *gin.Context) {
	formID, ok := uuidParam(c, "formId", "form")
	if !ok {
		return
	}
	h.run(c, func(actor service.Actor) (*dto.SessionResponse, error) {
		return h.wizardService.GetSession(c.Request.Context(), actor, formID)
	})
}

// SetValues godoc
// @Summary      Set field values
// @Description  Stores values by field ID. An unknown field ID rejects the whole request.
// @Tags         wizard
// @Accept       json
// @Produce      json
// @Param        formId path string true "Form ID (UUID)"
// @Param        request body dto.SetValuesRequest true "Values"
// @Success      200 {object} response.SuccessResponse{data=dto.SessionResponse}
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      409 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /wizard/{formId}/values [put]
func (h *WizardHandler) SetValues(c *gin.Context) {
	formID, ok := uuidParam(c, "formId", "form")
	if !ok {
		return
	}
	var req dto.SetValuesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}
	h.run(c, func(actor service.Actor) (*dto.SessionResponse, error) {
		return h.wizardService.SetValues(c.Request.Context(), actor, formID, &req)
	})
}

// SetFiles godoc
// @Summary      Attach uploads to a file field
// @Tags         wizard
// @Accept       json
// @Produce      json
// @Param        formId path string true "Form ID (UUID)"
// @Param        request body dto.SetFilesRequest true "Attachments"
// @Success      200 {object} response.SuccessResponse{data=dto.SessionResponse}
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /wizard/{formId}/files [put]
func (h *WizardHandler) SetFiles(c *gin.Context) {
	formID, ok := uuidParam(c, "formId", "form")
	if !ok {
		return
	}
	var req dto.SetFilesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}
	h.run(c, func(actor service.Actor) (*dto.SessionResponse, error) {
		return h.wizardService.SetFiles(c.Request.Context(), actor, formID, &req)
	})
}

// Next godoc
// @Summary      Validate the current step and advance
// @Description  Field errors of the current step are returned in the session, not as an HTTP error
// @Tags         wizard
// @Produce      json
// @Param        formId path string true "Form ID (UUID)"
// @Success      200 {object} response.SuccessResponse{data=dto.SessionResponse}
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /wizard/{formId}/next [post]
func (h *WizardHandler) Next(c *gin.Context) {
	formID, ok := uuidParam(c, "formId", "form")
	if !ok {
		return
	}
	h.run(c, func(actor service.Actor) (*dto.SessionResponse, error) {
		return h.wizardService.Next(c.Request.Context(), actor, formID)
	})
}

// Previous godoc
// @Summary      Go back one step
// @Tags         wizard
// @Produce      json
// @Param        formId path string true "Form ID (UUID)"
// @Success      200 {object} response.SuccessResponse{data=dto.SessionResponse}
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /wizard/{formId}/previous [post]
func (h *WizardHandler) Previous(c *gin.Context) {
	formID, ok := uuidParam(c, "formId", "form")
	if !ok {
		return
	}
	h.run(c, func(actor service.Actor) (*dto.SessionResponse, error) {
		return h.wizardService.Previous(c.Request.Context(), actor, formID)
	})
}

// Submit godoc
// @Summary      Submit the wizard
// @Description  Only allowed on the last step. A failed submit keeps its idempotency key so a retry
// @Description  cannot create a second submission.
// @Tags         wizard
// @Produce      json
// @Param        formId path string true "Form ID (UUID)"
// @Success      200 {object} response.SuccessResponse{data=dto.SessionResponse}
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      409 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /wizard/{formId}/submit [post]
func (h *WizardHandler) Submit(c *gin.Context) {
	formID, ok := uuidParam(c, "formId", "form")
	if !ok {
		return
	}
	h.run(c, func(actor service.Actor) (*dto.SessionResponse, error) {
		return h.wizardService.Submit(c.Request.Context(), actor, formID)
	})
}

// Discard godoc
// @Summary      Discard the session and its draft
// @Tags         wizard
// @Produce      json
// @Param        formId path string true "Form ID (UUID)"
// @Success      200 {object} response.SuccessResponse{data=map[string]string}
// @Security     BearerAuth
// @Router       /wizard/{formId} [delete]
func (h *WizardHandler) Discard(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	formID, ok := uuidParam(c, "formId", "form")
	if !ok {
		return
	}
	if err := h.wizardService.Discard(c.Request.Context(), actor, formID); err != nil {
		handleServiceError(c, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, map[string]string{"message": "Draft discarded"})
}
