package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"onboarding-forms-api/internal/dto"
	"onboarding-forms-api/internal/response"
	"onboarding-forms-api/internal/service"
)

// IdempotencyKeyHeader carries the client-chosen key of a submission
const IdempotencyKeyHeader = "Idempotency-Key"

// SubmissionHandler serves stored submissions and their review projections
type SubmissionHandler struct {
	submissionService service.SubmissionService
}

// NewSubmissionHandler creates a new SubmissionHandler
func NewSubmissionHandler(submissionService service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{submissionService: submissionService}
}

// CreateSubmission godoc
// @Summary      Store a submission
// @Description  Validates the values against the pinned form version and stores them.
// @Description  Repeating a request with the same idempotency key returns the first submission with 200.
// @Tags         submissions
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Idempotency key, used when the body carries none"
// @Param        request body dto.CreateSubmissionRequest true "Submission"
// @Success      201 {object} response.SuccessResponse{data=dto.SubmissionResponse}
// @Success      200 {object} response.SuccessResponse{data=dto.SubmissionResponse}
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      409 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /submissions [post]
func (h *SubmissionHandler) CreateSubmission(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req dto.CreateSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}

	sub, replayed, err := h.submissionService.CreateSubmission(c.Request.Context(), actor, &req, c.GetHeader(IdempotencyKeyHeader))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	status := http.StatusCreated
	if replayed {
		status = http.StatusOK
	}
	response.SendSuccess(c, status, sub)
}

// GetSubmission godoc
// @Summary      Get a submission
// @Tags         submissions
// @Produce      json
// @Param        submissionId path string true "Submission ID (UUID)"
// @Success      200 {object} response.SuccessResponse{data=dto.SubmissionResponse}
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /submissions/{submissionId} [get]
func (h *SubmissionHandler) GetSubmission(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	submissionID, ok := uuidParam(c, "submissionId", "submission")
	if !ok {
		return
	}

	sub, err := h.submissionService.GetSubmission(c.Request.Context(), actor, submissionID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, sub)
}

// ListSubmissions godoc
// @Summary      List submissions
// @Description  Admins see every submission, clients only their own
// @Tags         submissions
// @Produce      json
// @Param        form query string false "Form ID (UUID)"
// @Param        status query string false "Status" Enums(pending, approved, rejected)
// @Param        page query int false "Page" default(1)
// @Param        limit query int false "Page size" default(20)
// @Success      200 {object} response.SuccessResponse{data=response.PaginatedResponse{items=[]dto.SubmissionResponse}}
// @Failure      400 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /submissions [get]
func (h *SubmissionHandler) ListSubmissions(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var query dto.ListSubmissionsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		invalidQuery(c, err)
		return
	}

	page, err := h.submissionService.ListSubmissions(c.Request.Context(), actor, &query)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, page)
}

// GetReview godoc
// @Summary      Review projection of a submission
// @Description  Pairs every stored value with its field label and type, resolving by ID first and
// @Description  falling back to the field position
// @Tags         submissions
// @Produce      json
// @Param        submissionId path string true "Submission ID (UUID)"
// @Success      200 {object} response.SuccessResponse{data=review.Projection}
// @Failure      404 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /submissions/{submissionId}/review [get]
func (h *SubmissionHandler) GetReview(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	submissionID, ok := uuidParam(c, "submissionId", "submission")
	if !ok {
		return
	}

	projection, err := h.submissionService.GetReview(c.Request.Context(), actor, submissionID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, projection)
}

// UpdateStatus godoc
// @Summary      Approve or reject a submission
// @Tags         submissions
// @Accept       json
// @Produce      json
// @Param        submissionId path string true "Submission ID (UUID)"
// @Param        request body dto.UpdateSubmissionStatusRequest true "Decision"
// @Success      200 {object} response.SuccessResponse{data=dto.SubmissionResponse}
// @Failure      400 {object} response.ErrorResponse
// @Failure      403 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      409 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /submissions/{submissionId}/status [patch]
func (h *SubmissionHandler) UpdateStatus(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	submissionID, ok := uuidParam(c, "submissionId", "submission")
	if !ok {
		return
	}
	var req dto.UpdateSubmissionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}

	sub, err := h.submissionService.UpdateStatus(c.Request.Context(), actor, submissionID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.SendSuccess(c, http.StatusOK, sub)
}
