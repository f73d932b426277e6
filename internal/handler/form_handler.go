package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"onboarding-forms-api/internal/dto"
	"onboarding-forms-api/internal/response"
	"onboarding-forms-api/internal/service"
)

// FormHandler serves form definitions, their versions and the builder commands
type FormHandler struct {
	formService    service.FormService
	builderService service.BuilderService
}

// NewFormHandler creates a new FormHandler
func NewFormHandler(formService service.FormService, builderService service.BuilderService) *FormHandler {
	return &FormHandler{formService: formService, builderService: builderService}
}

// CreateForm godoc
// @Summary      Create a form
// @Description  Creates a form at version 1. Without a schema the form starts with one default section.
// @Tags         forms
// @Accept       json
// @Produce      json
// @Param        request body dto.CreateFormRequest true "Form"
// @Success      201 {object} response.SuccessResponse{data=dto.FormResponse}
// @Failure      400 {object} response.ErrorResponse
// @Failure      403 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /forms [post]
func (h *FormHandler) CreateForm(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req dto.CreateFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}

	form, err := h.formService.CreateForm(c.Request.Context(), actor, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.SendSuccess(c, http.StatusCreated, form)
}

// GetForm godoc
// @Summary      Get a form
// @Description  Clients can only read active forms
// @Tags         forms
// @Produce      json
// @Param        formId path string true "Form ID (UUID)"
// @Success      200 {object} response.SuccessResponse{data=dto.FormResponse}
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /forms/{formId} [get]
func (h *FormHandler) GetForm(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	formID, ok := uuidParam(c, "formId", "form")
	if !ok {
		return
	}

	form, err := h.formService.GetForm(c.Request.Context(), actor, formID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, form)
}

// ListForms godoc
// @Summary      List forms
// @Description  Admins see every form and may filter by status; clients only see active forms
// @Tags         forms
// @Produce      json
// @Param        search query string false "Name contains"
// @Param        category query string false "Category" Enums(kyc, loan, investment, account, other)
// @Param        status query string false "Lifecycle" Enums(all, active, draft)
// @Param        page query int false "Page" default(1)
// @Param        limit query int false "Page size" default(20)
// @Success      200 {object} response.SuccessResponse{data=response.PaginatedResponse{items=[]dto.FormResponse}}
// @Failure      400 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /forms [get]
func (h *FormHandler) ListForms(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var query dto.ListFormsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		invalidQuery(c, err)
		return
	}

	page, err := h.formService.ListForms(c.Request.Context(), actor, &query)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, page)
}

// UpdateForm godoc
// @Summary      Update a form
// @Description  Partial update. A schema whose content changes publishes a new version.
// @Tags         forms
// @Accept       json
// @Produce      json
// @Param        formId path string true "Form ID (UUID)"
// @Param        request body dto.UpdateFormRequest true "Changes"
// @Success      200 {object} response.SuccessResponse{data=dto.FormResponse}
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /forms/{formId} [patch]
func (h *FormHandler) UpdateForm(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	formID, ok := uuidParam(c, "formId", "form")
	if !ok {
		return
	}
	var req dto.UpdateFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}

	form, err := h.formService.UpdateForm(c.Request.Context(), actor, formID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, form)
}

// DeleteForm godoc
// @Summary      Delete a form
// @Tags         forms
// @Produce      json
// @Param        formId path string true "Form ID (UUID)"
// @Success      200 {object} response.SuccessResponse{data=map[string]string}
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /forms/{formId} [delete]
func (h *FormHandler) DeleteForm(c *gin.Context) {
	formID, ok := uuidParam(c, "formId", "form")
	if !ok {
		return
	}
	if err := h.formService.DeleteForm(c.Request.Context(), formID); err != nil {
		handleServiceError(c, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, map[string]string{"message": "Form deleted successfully"})
}

// ListVersions godoc
// @Summary      List schema versions of a form
// @Tags         forms
// @Produce      json
// @Param        formId path string true "Form ID (UUID)"
// @Success      200 {object} response.SuccessResponse{data=[]dto.FormVersionResponse}
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /forms/{formId}/versions [get]
func (h *FormHandler) ListVersions(c *gin.Context) {
	formID, ok := uuidParam(c, "formId", "form")
	if !ok {
		return
	}
	versions, err := h.formService.ListVersions(c.Request.Context(), formID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, versions)
}

// GetVersion godoc
// @Summary      Get one schema version
// @Tags         forms
// @Produce      json
// @Param        formId path string true "Form ID (UUID)"
// @Param        version path int true "Version"
// @Success      200 {object} response.SuccessResponse{data=dto.FormVersionResponse}
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /forms/{formId}/versions/{version} [get]
func (h *FormHandler) GetVersion(c *gin.Context) {
	formID, ok := uuidParam(c, "formId", "form")
	if !ok {
		return
	}
	version, err := strconv.Atoi(c.Param("version"))
	if err != nil || version < 1 {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid version")
		return
	}

	v, err := h.formService.GetVersion(c.Request.Context(), formID, version)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, v)
}

// ApplyCommands godoc
// @Summary      Apply builder commands
// @Description  Runs a batch of builder commands against the form schema. Either every command
// @Description  applies and a new version is saved, or nothing changes.
// @Tags         forms
// @Accept       json
// @Produce      json
// @Param        formId path string true "Form ID (UUID)"
// @Param        request body dto.ApplyCommandsRequest true "Commands"
// @Success      200 {object} response.SuccessResponse{data=dto.FormResponse}
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /forms/{formId}/schema/commands [post]
func (h *FormHandler) ApplyCommands(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	formID, ok := uuidParam(c, "formId", "form")
	if !ok {
		return
	}
	var req dto.ApplyCommandsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}

	form, err := h.builderService.ApplyCommands(c.Request.Context(), actor, formID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, form)
}

// CanRemoveSection godoc
// @Summary      Check whether a section can be removed
// @Tags         forms
// @Produce      json
// @Param        formId path string true "Form ID (UUID)"
// @Success      200 {object} response.SuccessResponse{data=dto.CanRemoveSectionResponse}
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /forms/{formId}/schema/can-remove-section [get]
func (h *FormHandler) CanRemoveSection(c *gin.Context) {
	formID, ok := uuidParam(c, "formId", "form")
	if !ok {
		return
	}
	resp, err := h.builderService.CanRemoveSection(c.Request.Context(), formID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, resp)
}

// FormMetaResponse lists the pickers of the form builder
type FormMetaResponse struct {
	FieldTypes []dto.OptionResponse `json:"field_types"`
	Categories []dto.OptionResponse `json:"categories"`
}

// GetMeta godoc
// @Summary      Field types and categories
// @Tags         forms
// @Produce      json
// @Success      200 {object} response.SuccessResponse{data=FormMetaResponse}
// @Router       /forms/meta [get]
func (h *FormHandler) GetMeta(c *gin.Context) {
	response.SendSuccess(c, http.StatusOK, FormMetaResponse{
		FieldTypes: dto.FieldTypeOptions(),
		Categories: dto.CategoryOptions(),
	})
}
