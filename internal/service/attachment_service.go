package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"onboarding-forms-api/internal/domain"
	"onboarding-forms-api/internal/dto"
	"onboarding-forms-api/internal/repository"
	"onboarding-forms-api/internal/response"
)

// MaxUploadSize caps the size a presigned upload may declare
const MaxUploadSize int64 = 50 << 20

const downloadURLExpiry = 15 * time.Minute

func storageDisabled() *response.AppError {
	return response.NewAppError(response.ErrCodeUnavailable, "File storage is not configured", "")
}

// S3Client is the subset of the object storage client used by services and jobs.
// client.S3Client implements it. A nil S3Client disables uploads.
type S3Client interface {
	GenerateFileKey(formID uuid.UUID, fieldID, fileName string) string
	PresignUpload(ctx context.Context, key, contentType string, expires time.Duration) (string, error)
	PresignDownload(ctx context.Context, key string, expires time.Duration) (string, error)
	DeleteFile(ctx context.Context, key string) error
}

// AttachmentService issues presigned uploads for file fields and download links for stored files
type AttachmentService interface {
	CreatePresignedUpload(ctx context.Context, actor Actor, req *dto.PresignedUploadRequest) (*dto.PresignedUploadResponse, error)
	GetAttachment(ctx context.Context, actor Actor, attachmentID uuid.UUID) (*dto.AttachmentResponse, error)
	ListBySubmission(ctx context.Context, actor Actor, submissionID uuid.UUID) ([]dto.AttachmentResponse, error)
}

type attachmentServiceImpl struct {
	attachmentRepo repository.AttachmentRepository
	formRepo       repository.FormRepository
	submissionRepo repository.SubmissionRepository
	s3Client       S3Client
	uploadExpiry   time.Duration
	logger         *zap.Logger
	now            func() time.Time
}

// NewAttachmentService creates a new instance of AttachmentService
func NewAttachmentService(
	attachmentRepo repository.AttachmentRepository,
	formRepo repository.FormRepository,
	submissionRepo repository.SubmissionRepository,
	s3Client S3Client,
	uploadExpiry time.Duration,
	logger *zap.Logger,
) AttachmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if uploadExpiry <= 0 {
		uploadExpiry = time.Hour
	}
	return &attachmentServiceImpl{
		attachmentRepo: attachmentRepo,
		formRepo:       formRepo,
		submissionRepo: submissionRepo,
		s3Client:       s3Client,
		uploadExpiry:   uploadExpiry,
		logger:         logger,
		now:            time.Now,
	}
}

// CreatePresignedUpload records a TEMP attachment and returns a URL the client PUTs the file to.
// The attachment expires unless a submission claims it first.
func (s *attachmentServiceImpl) CreatePresignedUpload(ctx context.Context, actor Actor, req *dto.PresignedUploadRequest) (*dto.PresignedUploadResponse, error) {
	if s.s3Client == nil {
		return nil, storageDisabled()
	}
	if req.FileSize > MaxUploadSize {
		return nil, response.NewValidationError("File is too large", fmt.Sprintf("maximum is %d bytes", MaxUploadSize))
	}

	form, err := s.formRepo.FindByID(ctx, req.FormID)
	if err != nil {
		return nil, notFoundOr(err, "Form not found", "Failed to get form")
	}
	if !form.IsActive && !actor.IsAdmin {
		return nil, response.NewNotFoundError("Form not found", "")
	}

	field, ok := form.Schema.FindField(req.FieldID)
	if !ok {
		return nil, response.NewValidationError("Field not found in form", req.FieldID)
	}
	if field.Type != domain.FieldTypeFile {
		return nil, response.NewValidationError("Field does not accept files", req.FieldID)
	}
	if !Accepts(field.Accept, req.FileName, req.ContentType) {
		return nil, response.NewValidationError("File type not accepted", field.Accept)
	}

	key := s.s3Client.GenerateFileKey(form.ID, field.ID, req.FileName)
	uploadURL, err := s.s3Client.PresignUpload(ctx, key, req.ContentType, s.uploadExpiry)
	if err != nil {
		s.logger.Error("Failed to presign upload", zap.String("key", key), zap.Error(err))
		return nil, internalError("Failed to create upload URL", err)
	}

	expiresAt := s.now().UTC().Add(s.uploadExpiry)
	attachment := &domain.Attachment{
		FormID:      form.ID,
		FieldID:     field.ID,
		Status:      domain.AttachmentStatusTemp,
		FileName:    req.FileName,
		FileKey:     key,
		FileSize:    req.FileSize,
		ContentType: req.ContentType,
		UploadedBy:  actor.UserID,
		ExpiresAt:   &expiresAt,
	}
	if err := s.attachmentRepo.Create(ctx, attachment); err != nil {
		return nil, internalError("Failed to create attachment", err)
	}

	return &dto.PresignedUploadResponse{
		AttachmentID: attachment.ID,
		UploadURL:    uploadURL,
		FileKey:      key,
		ExpiresAt:    expiresAt,
	}, nil
}

// GetAttachment returns an attachment with a download link. Only the uploader and admins may read it.
func (s *attachmentServiceImpl) GetAttachment(ctx context.Context, actor Actor, attachmentID uuid.UUID) (*dto.AttachmentResponse, error) {
	a, err := s.attachmentRepo.FindByID(ctx, attachmentID)
	if err != nil {
		return nil, notFoundOr(err, "Attachment not found", "Failed to get attachment")
	}
	if !actor.IsAdmin && a.UploadedBy != actor.UserID {
		return nil, response.NewNotFoundError("Attachment not found", "")
	}
	resp, err := s.toResponse(ctx, a)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListBySubmission returns the confirmed files of a submission
func (s *attachmentServiceImpl) ListBySubmission(ctx context.Context, actor Actor, submissionID uuid.UUID) ([]dto.AttachmentResponse, error) {
	sub, err := s.submissionRepo.FindByID(ctx, submissionID)
	if err != nil {
		return nil, notFoundOr(err, "Submission not found", "Failed to get submission")
	}
	if !actor.IsAdmin && sub.CreatedBy != actor.UserID {
		return nil, response.NewNotFoundError("Submission not found", "")
	}

	items, err := s.attachmentRepo.FindBySubmission(ctx, submissionID)
	if err != nil {
		return nil, internalError("Failed to list attachments", err)
	}
	out := make([]dto.AttachmentResponse, 0, len(items))
	for _, a := range items {
		resp, err := s.toResponse(ctx, a)
		if err != nil {
			return nil, err
		}
		out = append(out, resp)
	}
	return out, nil
}

// toResponse leaves DownloadURL empty when storage is disabled
func (s *attachmentServiceImpl) toResponse(ctx context.Context, a *domain.Attachment) (dto.AttachmentResponse, error) {
	var url string
	if s.s3Client != nil {
		var err error
		url, err = s.s3Client.PresignDownload(ctx, a.FileKey, downloadURLExpiry)
		if err != nil {
			return dto.AttachmentResponse{}, internalError("Failed to create download URL", err)
		}
	}
	return dto.AttachmentResponse{
		ID:           a.ID,
		FormID:       a.FormID,
		FieldID:      a.FieldID,
		SubmissionID: a.SubmissionID,
		FileName:     a.FileName,
		FileSize:     a.FileSize,
		ContentType:  a.ContentType,
		Status:       string(a.Status),
		DownloadURL:  url,
		CreatedAt:    a.CreatedAt,
	}, nil
}

// Accepts matches a file against an HTML accept list such as ".pdf,image/*".
// An empty list accepts everything.
func Accepts(accept, fileName, contentType string) bool {
	accept = strings.TrimSpace(accept)
	if accept == "" {
		return true
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	contentType = strings.ToLower(strings.TrimSpace(contentType))

	for _, item := range strings.Split(accept, ",") {
		item = strings.ToLower(strings.TrimSpace(item))
		switch {
		case item == "":
			continue
		case strings.HasPrefix(item, "."):
			if ext == item {
				return true
			}
		case strings.HasSuffix(item, "/*"):
			if strings.HasPrefix(contentType, strings.TrimSuffix(item, "*")) {
				return true
			}
		case item == contentType:
			return true
		}
	}
	return false
}
