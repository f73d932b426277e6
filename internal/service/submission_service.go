package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"onboarding-forms-api/internal/domain"
	"onboarding-forms-api/internal/dto"
	"onboarding-forms-api/internal/metrics"
	"onboarding-forms-api/internal/repository"
	"onboarding-forms-api/internal/response"
	"onboarding-forms-api/internal/review"
	"onboarding-forms-api/internal/wizard"
)

const previewEntries = 3

// SubmissionService stores, lists, projects and reviews submissions
type SubmissionService interface {
	// CreateSubmission stores a submission. replayed is true when the idempotency key matched
	// an earlier submission, which is returned unchanged.
	CreateSubmission(ctx context.Context, actor Actor, req *dto.CreateSubmissionRequest, idempotencyKey string) (resp *dto.SubmissionResponse, replayed bool, err error)
	// Store is the persistence step of a wizard submit
	Store(ctx context.Context, actor Actor, sub *domain.Submission, attachmentIDs []uuid.UUID) (*domain.Submission, error)
	GetSubmission(ctx context.Context, actor Actor, submissionID uuid.UUID) (*dto.SubmissionResponse, error)
	ListSubmissions(ctx context.Context, actor Actor, query *dto.ListSubmissionsQuery) (*response.PaginatedResponse, error)
	GetReview(ctx context.Context, actor Actor, submissionID uuid.UUID) (*review.Projection, error)
	UpdateStatus(ctx context.Context, actor Actor, submissionID uuid.UUID, req *dto.UpdateSubmissionStatusRequest) (*dto.SubmissionResponse, error)
}

type submissionServiceImpl struct {
	submissionRepo repository.SubmissionRepository
	formRepo       repository.FormRepository
	versionRepo    repository.FormVersionRepository
	attachmentRepo repository.AttachmentRepository
	notifier       Notifier
	metrics        *metrics.Metrics
	logger         *zap.Logger
	now            func() time.Time
}

// NewSubmissionService creates a new instance of SubmissionService
func NewSubmissionService(
	submissionRepo repository.SubmissionRepository,
	formRepo repository.FormRepository,
	versionRepo repository.FormVersionRepository,
	attachmentRepo repository.AttachmentRepository,
	notifier Notifier,
	m *metrics.Metrics,
	logger *zap.Logger,
) SubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &submissionServiceImpl{
		submissionRepo: submissionRepo,
		formRepo:       formRepo,
		versionRepo:    versionRepo,
		attachmentRepo: attachmentRepo,
		notifier:       notifier,
		metrics:        m,
		logger:         logger,
		now:            time.Now,
	}
}

// ValueIssue is a submitted value that does not fit the pinned schema
type ValueIssue struct {
	Position int    `json:"position"`
	Field    int    `json:"field,omitempty"`
	FieldID  string `json:"field_id,omitempty"`
	Message  string `json:"message"`
}

// CreateSubmission validates values against the pinned form version and stores them
func (s *submissionServiceImpl) CreateSubmission(ctx context.Context, actor Actor, req *dto.CreateSubmissionRequest, idempotencyKey string) (*dto.SubmissionResponse, bool, error) {
	key := strings.TrimSpace(req.IdempotencyKey)
	if key == "" {
		key = strings.TrimSpace(idempotencyKey)
	}
	if len(key) > 64 {
		return nil, false, response.NewValidationError("Idempotency key is too long", "maximum is 64 characters")
	}

	if existing, appErr := s.findReplay(ctx, actor, key); appErr != nil {
		return nil, false, appErr
	} else if existing != nil {
		resp, err := s.toResponse(ctx, existing, nil)
		if err != nil {
			return nil, false, err
		}
		return resp, true, nil
	}

	sub := &domain.Submission{
		FormID:      req.Form,
		FormVersion: req.FormVersion,
		Data:        append(domain.SubmissionData(nil), req.SubmissionData...),
		CreatedBy:   actor.UserID,
		Status:      domain.SubmissionStatusPending,
	}
	if key != "" {
		sub.IdempotencyKey = &key
	}

	saved, err := s.Store(ctx, actor, sub, req.AttachmentIDs)
	if err != nil {
		return nil, false, err
	}
	replayed := saved.ID != sub.ID
	resp, err := s.toResponse(ctx, saved, nil)
	if err != nil {
		return nil, false, err
	}
	return resp, replayed, nil
}

// findReplay returns the earlier submission with key. A key reused by another user is a conflict.
func (s *submissionServiceImpl) findReplay(ctx context.Context, actor Actor, key string) (*domain.Submission, *response.AppError) {
	if key == "" {
		return nil, nil
	}
	existing, err := s.submissionRepo.FindByIdempotencyKey(ctx, key)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, internalError("Failed to check idempotency key", err)
	}
	if existing.CreatedBy != actor.UserID {
		return nil, response.NewConflictError("Idempotency key already used", "")
	}
	return existing, nil
}

// Store resolves every value to its field in the pinned schema, validates the values,
// and saves the submission together with its attachments
func (s *submissionServiceImpl) Store(ctx context.Context, actor Actor, sub *domain.Submission, attachmentIDs []uuid.UUID) (*domain.Submission, error) {
	key := ""
	if sub.IdempotencyKey != nil {
		key = *sub.IdempotencyKey
	}
	if existing, appErr := s.findReplay(ctx, actor, key); appErr != nil {
		return nil, appErr
	} else if existing != nil {
		s.logger.Info("Submission replayed by idempotency key",
			zap.String("submission_id", existing.ID.String()))
		return existing, nil
	}

	form, err := s.formRepo.FindByID(ctx, sub.FormID)
	if err != nil {
		return nil, notFoundOr(err, "Form not found", "Failed to get form")
	}
	if !form.IsActive {
		return nil, response.NewValidationError("Form is not accepting submissions", "form is a draft")
	}
	if sub.FormVersion == 0 {
		sub.FormVersion = form.Version
	}
	schema, err := s.pinnedSchema(ctx, form, sub.FormVersion)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewValidationError("Unknown form version", fmt.Sprintf("version %d", sub.FormVersion))
		}
		return nil, internalError("Failed to load form version", err)
	}

	data, issues := resolveValues(schema, sub.Data)
	if len(issues) > 0 {
		return nil, response.NewFieldValidationError("Submission values do not match the form", issues)
	}
	values := make(map[string]string, len(data))
	for _, v := range data {
		values[v.FieldID] = v.Value
	}
	if fieldErrs := wizard.CheckValues(schema, values); len(fieldErrs) > 0 {
		return nil, response.NewFieldValidationError("Submission has invalid fields", fieldErrs)
	}

	attachmentIDs = uniqueIDs(attachmentIDs)
	if appErr := s.checkAttachments(ctx, actor, form, schema, attachmentIDs); appErr != nil {
		return nil, appErr
	}

	sub.ID = uuid.New()
	sub.Data = data
	sub.CreatedBy = actor.UserID
	sub.Status = domain.SubmissionStatusPending
	if err := s.submissionRepo.CreateWithAttachments(ctx, sub, attachmentIDs); err != nil {
		// a concurrent request with the same key may have won the unique index
		if key != "" {
			if existing, lookupErr := s.submissionRepo.FindByIdempotencyKey(ctx, key); lookupErr == nil && existing.CreatedBy == actor.UserID {
				return existing, nil
			}
		}
		s.logger.Error("Failed to create submission",
			zap.String("form_id", form.ID.String()),
			zap.Error(err))
		return nil, internalError("Failed to create submission", err)
	}

	s.metrics.IncrementSubmissionCreated()
	s.logger.Info("Submission created",
		zap.String("submission_id", sub.ID.String()),
		zap.String("form_id", form.ID.String()),
		zap.Int("form_version", sub.FormVersion),
		zap.Int("values", len(sub.Data)),
		zap.Int("attachments", len(attachmentIDs)))

	s.notify(ctx, &domain.Notification{
		Type:         domain.NotificationSubmissionCreated,
		Audience:     domain.AudienceAdmins,
		ActorID:      actor.UserID,
		Title:        "New submission",
		Message:      fmt.Sprintf("A new submission for %s is waiting for review", form.Name),
		Action:       "review_submission",
		Priority:     domain.PriorityNormal,
		FormID:       uuidPtr(form.ID),
		FormName:     form.Name,
		SubmissionID: uuidPtr(sub.ID),
		ClientName:   actor.Name,
	})
	return sub, nil
}

// resolveValues joins each value to a field by field_id, else by flattened index,
// and returns the values in flattened order with both keys filled in
func resolveValues(schema domain.Schema, in domain.SubmissionData) (domain.SubmissionData, []ValueIssue) {
	var issues []ValueIssue
	out := make(domain.SubmissionData, 0, len(in))
	seen := make(map[string]bool, len(in))

	for i, v := range in {
		switch {
		case v.FieldID != "":
			idx := schema.IndexOf(v.FieldID)
			if idx == 0 {
				issues = append(issues, ValueIssue{Position: i, FieldID: v.FieldID, Message: "unknown field"})
				continue
			}
			v.Field = idx
		case v.Field > 0:
			f, ok := schema.FieldAt(v.Field)
			if !ok {
				issues = append(issues, ValueIssue{Position: i, Field: v.Field, Message: "field index out of range"})
				continue
			}
			v.FieldID = f.ID
		default:
			issues = append(issues, ValueIssue{Position: i, Message: "field or field_id is required"})
			continue
		}

		if seen[v.FieldID] {
			issues = append(issues, ValueIssue{Position: i, Field: v.Field, FieldID: v.FieldID, Message: "duplicate value for field"})
			continue
		}
		seen[v.FieldID] = true
		out = append(out, v)
	}

	sort.SliceStable(out, func(a, b int) bool { return out[a].Field < out[b].Field })
	return out, issues
}

func (s *submissionServiceImpl) checkAttachments(ctx context.Context, actor Actor, form *domain.Form, schema domain.Schema, ids []uuid.UUID) *response.AppError {
	if len(ids) == 0 {
		return nil
	}
	found, err := s.attachmentRepo.FindByIDs(ctx, ids)
	if err != nil {
		return internalError("Failed to load attachments", err)
	}
	if len(found) != len(ids) {
		return response.NewValidationError("Attachment not found", fmt.Sprintf("found %d of %d", len(found), len(ids)))
	}
	for _, a := range found {
		switch {
		case a.FormID != form.ID:
			return response.NewValidationError("Attachment belongs to another form", a.ID.String())
		case a.UploadedBy != actor.UserID:
			return response.NewValidationError("Attachment belongs to another user", a.ID.String())
		case a.Status != domain.AttachmentStatusTemp:
			return response.NewValidationError("Attachment is already used", a.ID.String())
		}
		if f, ok := schema.FindField(a.FieldID); !ok || f.Type != domain.FieldTypeFile {
			return response.NewValidationError("Attachment field is not a file field of this version", a.FieldID)
		}
	}
	return nil
}

// pinnedSchema returns the schema of the given version of form
func (s *submissionServiceImpl) pinnedSchema(ctx context.Context, form *domain.Form, version int) (domain.Schema, error) {
	if version == form.Version {
		return form.Schema, nil
	}
	v, err := s.versionRepo.FindByFormAndVersion(ctx, form.ID, version)
	if err != nil {
		return nil, err
	}
	return v.DecodeSchema()
}

// GetSubmission returns one submission. Clients can only read their own.
func (s *submissionServiceImpl) GetSubmission(ctx context.Context, actor Actor, submissionID uuid.UUID) (*dto.SubmissionResponse, error) {
	sub, err := s.findVisible(ctx, actor, submissionID)
	if err != nil {
		return nil, err
	}
	return s.toResponse(ctx, sub, nil)
}

func (s *submissionServiceImpl) findVisible(ctx context.Context, actor Actor, submissionID uuid.UUID) (*domain.Submission, error) {
	sub, err := s.submissionRepo.FindByID(ctx, submissionID)
	if err != nil {
		return nil, notFoundOr(err, "Submission not found", "Failed to get submission")
	}
	if !actor.IsAdmin && sub.CreatedBy != actor.UserID {
		return nil, response.NewNotFoundError("Submission not found", "")
	}
	return sub, nil
}

// ListSubmissions pages through submissions. Admins see all, clients only their own.
func (s *submissionServiceImpl) ListSubmissions(ctx context.Context, actor Actor, query *dto.ListSubmissionsQuery) (*response.PaginatedResponse, error) {
	filter := repository.SubmissionFilter{
		Status: domain.SubmissionStatus(query.Status),
		Page:   query.Page,
		Limit:  query.Limit,
	}
	if query.Form != "" {
		formID, err := uuid.Parse(query.Form)
		if err != nil {
			return nil, response.NewValidationError("Invalid form id", query.Form)
		}
		filter.FormID = &formID
	}
	if !actor.IsAdmin {
		filter.CreatedBy = uuidPtr(actor.UserID)
	}

	subs, total, err := s.submissionRepo.List(ctx, filter)
	if err != nil {
		return nil, internalError("Failed to list submissions", err)
	}

	schemas := newSchemaCache()
	out := make([]dto.SubmissionResponse, 0, len(subs))
	for _, sub := range subs {
		resp, err := s.toResponse(ctx, sub, schemas)
		if err != nil {
			return nil, err
		}
		out = append(out, *resp)
	}
	return paginated(out, total, query.Page, query.Limit), nil
}

// GetReview projects a submission against the schema version it was made with.
// When that version is gone the current schema is used, and unmatched values get fallback labels.
func (s *submissionServiceImpl) GetReview(ctx context.Context, actor Actor, submissionID uuid.UUID) (*review.Projection, error) {
	sub, err := s.findVisible(ctx, actor, submissionID)
	if err != nil {
		return nil, err
	}
	_, schema, err := s.reviewSchema(ctx, sub, nil)
	if err != nil {
		return nil, err
	}
	p := review.Project(sub, schema)
	return &p, nil
}

// UpdateStatus records an admin review decision and notifies the submitter
func (s *submissionServiceImpl) UpdateStatus(ctx context.Context, actor Actor, submissionID uuid.UUID, req *dto.UpdateSubmissionStatusRequest) (*dto.SubmissionResponse, error) {
	if !actor.IsAdmin {
		return nil, response.NewForbiddenError("Only admins can review submissions", "")
	}
	if !req.Status.IsValid() || req.Status == domain.SubmissionStatusPending {
		return nil, response.NewValidationError("Invalid status", string(req.Status))
	}

	sub, err := s.submissionRepo.FindByID(ctx, submissionID)
	if err != nil {
		return nil, notFoundOr(err, "Submission not found", "Failed to get submission")
	}
	if !sub.Status.CanTransitionTo(req.Status) {
		return nil, response.NewConflictError("Submission has already been reviewed", string(sub.Status))
	}

	err = s.submissionRepo.UpdateStatus(ctx, submissionID, repository.StatusChange{
		From:       sub.Status,
		To:         req.Status,
		ReviewedBy: actor.UserID,
		Note:       strings.TrimSpace(req.Note),
		At:         s.now().UTC(),
	})
	if errors.Is(err, repository.ErrStaleStatus) {
		return nil, response.NewConflictError("Submission has already been reviewed", "")
	}
	if err != nil {
		return nil, internalError("Failed to update submission status", err)
	}

	s.metrics.IncrementSubmissionReviewed(string(req.Status))
	s.logger.Info("Submission reviewed",
		zap.String("submission_id", submissionID.String()),
		zap.String("status", string(req.Status)),
		zap.String("reviewer", actor.UserID.String()))

	updated, err := s.submissionRepo.FindByID(ctx, submissionID)
	if err != nil {
		return nil, internalError("Failed to reload submission", err)
	}

	formName := ""
	if form, err := s.formRepo.FindByID(ctx, sub.FormID); err == nil {
		formName = form.Name
	}
	n := &domain.Notification{
		Type:         domain.NotificationSubmissionApproved,
		Audience:     domain.AudienceUser,
		RecipientID:  uuidPtr(sub.CreatedBy),
		ActorID:      actor.UserID,
		Title:        "Submission approved",
		Message:      fmt.Sprintf("Your %s submission was approved", formName),
		Action:       "view_submission",
		Priority:     domain.PriorityHigh,
		FormID:       uuidPtr(sub.FormID),
		FormName:     formName,
		SubmissionID: uuidPtr(sub.ID),
	}
	if req.Status == domain.SubmissionStatusRejected {
		n.Type = domain.NotificationSubmissionRejected
		n.Title = "Submission rejected"
		n.Message = fmt.Sprintf("Your %s submission was rejected", formName)
	}
	s.notify(ctx, n)

	return s.toResponse(ctx, updated, nil)
}

func (s *submissionServiceImpl) notify(ctx context.Context, n *domain.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.Warn("Failed to send notification", zap.String("type", string(n.Type)), zap.Error(err))
	}
}

type schemaKey struct {
	formID  uuid.UUID
	version int
}

type schemaEntry struct {
	formName string
	schema   domain.Schema
}

type schemaCache map[schemaKey]schemaEntry

func newSchemaCache() schemaCache {
	return make(schemaCache)
}

// reviewSchema returns the form name and the schema to display sub with.
// A deleted form yields an empty schema, which makes every entry fall back.
func (s *submissionServiceImpl) reviewSchema(ctx context.Context, sub *domain.Submission, cache schemaCache) (string, domain.Schema, error) {
	k := schemaKey{sub.FormID, sub.FormVersion}
	if cache != nil {
		if e, ok := cache[k]; ok {
			return e.formName, e.schema, nil
		}
	}

	form, err := s.formRepo.FindByID(ctx, sub.FormID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil, nil
	}
	if err != nil {
		return "", nil, internalError("Failed to get form", err)
	}

	schema, err := s.pinnedSchema(ctx, form, sub.FormVersion)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, internalError("Failed to load form version", err)
		}
		schema = form.Schema
	}
	if cache != nil {
		cache[k] = schemaEntry{formName: form.Name, schema: schema}
	}
	return form.Name, schema, nil
}

func (s *submissionServiceImpl) toResponse(ctx context.Context, sub *domain.Submission, cache schemaCache) (*dto.SubmissionResponse, error) {
	formName, schema, err := s.reviewSchema(ctx, sub, cache)
	if err != nil {
		return nil, err
	}
	preview := review.Preview(review.Project(sub, schema), previewEntries)
	resp := dto.NewSubmissionResponse(sub, formName, preview)
	return &resp, nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
