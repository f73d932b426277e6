package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"onboarding-forms-api/internal/dto"
	"onboarding-forms-api/internal/response"
	"onboarding-forms-api/internal/service"
)

// AttachmentHandler serves uploads for file-type fields
type AttachmentHandler struct {
	attachmentService service.AttachmentService
}

// NewAttachmentHandler creates a new AttachmentHandler
func NewAttachmentHandler(attachmentService service.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{attachmentService: attachmentService}
}

// CreatePresignedUpload godoc
// @Summary      Request an upload URL
// @Description  Checks the file against the field's accept list and size limit, then returns a
// @Description  presigned PUT URL. The attachment stays temporary until a submission uses it.
// @Tags         attachments
// @Accept       json
// @Produce      json
// @Param        request body dto.PresignedUploadRequest true "File"
// @Success      200 {object} response.SuccessResponse{data=dto.PresignedUploadResponse}
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /attachments/presigned-url [post]
func (h *AttachmentHandler) CreatePresignedUpload(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req dto.PresignedUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}

	upload, err := h.attachmentService.CreatePresignedUpload(c.Request.Context(), actor, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, upload)
}

// GetAttachment godoc
// @Summary      Get an attachment with a download link
// @Tags         attachments
// @Produce      json
// @Param        attachmentId path string true "Attachment ID (UUID)"
// @Success      200 {object} response.SuccessResponse{data=dto.AttachmentResponse}
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /attachments/{attachmentId} [get]
func (h *AttachmentHandler) GetAttachment(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	attachmentID, ok := uuidParam(c, "attachmentId", "attachment")
	if !ok {
		return
	}

	a, err := h.attachmentService.GetAttachment(c.Request.Context(), actor, attachmentID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, a)
}

// ListBySubmission godoc
// @Summary      Attachments of a submission
// @Tags         attachments
// @Produce      json
// @Param        submissionId path string true "Submission ID (UUID)"
// @Success      200 {object} response.SuccessResponse{data=[]dto.AttachmentResponse}
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /submissions/{submissionId}/attachments [get]
func (h *AttachmentHandler) ListBySubmission(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	submissionID, ok := uuidParam(c, "submissionId", "submission")
	if !ok {
		return
	}

	items, err := h.attachmentService.ListBySubmission(c.Request.Context(), actor, submissionID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, items)
}
