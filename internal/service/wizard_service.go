package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"onboarding-forms-api/internal/cache"
	"onboarding-forms-api/internal/domain"
	"onboarding-forms-api/internal/dto"
	"onboarding-forms-api/internal/metrics"
	"onboarding-forms-api/internal/repository"
	"onboarding-forms-api/internal/response"
	"onboarding-forms-api/internal/wizard"
)

// WizardService runs per-user wizard sessions over stored forms. Session state lives in a
// DraftStore between requests, so a session survives restarts and moves between replicas.
type WizardService interface {
	AvailableForms(ctx context.Context, actor Actor) ([]dto.AvailableFormResponse, error)
	StartSession(ctx context.Context, actor Actor, formID uuid.UUID) (*dto.SessionResponse, error)
	GetSession(ctx context.Context, actor Actor, formID uuid.UUID) (*dto.SessionResponse, error)
	SetValues(ctx context.Context, actor Actor, formID uuid.UUID, req *dto.SetValuesRequest) (*dto.SessionResponse, error)
	SetFiles(ctx context.Context, actor Actor, formID uuid.UUID, req *dto.SetFilesRequest) (*dto.SessionResponse, error)
	Next(ctx context.Context, actor Actor, formID uuid.UUID) (*dto.SessionResponse, error)
	Previous(ctx context.Context, actor Actor, formID uuid.UUID) (*dto.SessionResponse, error)
	Submit(ctx context.Context, actor Actor, formID uuid.UUID) (*dto.SessionResponse, error)
	Discard(ctx context.Context, actor Actor, formID uuid.UUID) error
}

type wizardServiceImpl struct {
	formRepo    repository.FormRepository
	versionRepo repository.FormVersionRepository
	drafts      cache.DraftStore
	submissions SubmissionService
	draftTTL    time.Duration
	locks       *keyedMutex
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// NewWizardService creates a new instance of WizardService
func NewWizardService(
	formRepo repository.FormRepository,
	versionRepo repository.FormVersionRepository,
	drafts cache.DraftStore,
	submissions SubmissionService,
	draftTTL time.Duration,
	m *metrics.Metrics,
	logger *zap.Logger,
) WizardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if draftTTL <= 0 {
		draftTTL = 24 * time.Hour
	}
	return &wizardServiceImpl{
		formRepo:    formRepo,
		versionRepo: versionRepo,
		drafts:      drafts,
		submissions: submissions,
		draftTTL:    draftTTL,
		locks:       newKeyedMutex(),
		metrics:     m,
		logger:      logger,
	}
}

// session is a restored wizard with the draft it came from
type session struct {
	wizard *wizard.Wizard
	draft  *cache.Draft
}

func sessionKey(actor Actor, formID uuid.UUID) string {
	return actor.UserID.String() + ":" + formID.String()
}

// AvailableForms lists the active forms a client can start, flagging those with a saved draft
func (s *wizardServiceImpl) AvailableForms(ctx context.Context, actor Actor) ([]dto.AvailableFormResponse, error) {
	forms, _, err := s.formRepo.List(ctx, repository.FormFilter{
		Status: repository.FormStatusActive,
		Limit:  100,
	})
	if err != nil {
		return nil, internalError("Failed to list forms", err)
	}

	withDraft := make(map[uuid.UUID]bool)
	ids, err := s.drafts.FormsWithDrafts(ctx, actor.UserID)
	if err != nil {
		s.logger.Warn("Failed to list wizard drafts", zap.Error(err))
	}
	for _, id := range ids {
		withDraft[id] = true
	}

	out := make([]dto.AvailableFormResponse, 0, len(forms))
	for _, f := range forms {
		out = append(out, dto.AvailableFormResponse{
			ID:            f.ID,
			Name:          f.Name,
			Description:   f.Description,
			Category:      f.Category,
			CategoryLabel: f.Category.Label(),
			Version:       f.Version,
			StepCount:     len(f.Schema),
			FieldCount:    f.Schema.FieldCount(),
			HasDraft:      withDraft[f.ID],
		})
	}
	return out, nil
}

// StartSession resumes the caller's draft for the form, or starts a new one.
// A draft that already ended in a submission is replaced by a fresh session.
func (s *wizardServiceImpl) StartSession(ctx context.Context, actor Actor, formID uuid.UUID) (*dto.SessionResponse, error) {
	unlock := s.locks.Lock(sessionKey(actor, formID))
	defer unlock()

	draft, err := s.drafts.Load(ctx, actor.UserID, formID)
	switch {
	case err == nil:
		sess, err := s.restore(ctx, formID, draft)
		if err != nil {
			return nil, err
		}
		if sess.wizard.Status() != wizard.StatusSubmitted {
			return s.render(sess), nil
		}
	case !errors.Is(err, cache.ErrDraftNotFound):
		return nil, internalError("Failed to load session", err)
	}

	form, err := s.activeForm(ctx, formID)
	if err != nil {
		return nil, err
	}
	w, err := wizard.New(form, actor.UserID, wizard.WithIdempotencyKey(uuid.NewString()))
	if err != nil {
		return nil, internalError("Failed to start wizard", err)
	}
	sess := &session{wizard: w, draft: &cache.Draft{AttachmentIDs: map[string][]uuid.UUID{}}}
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}

	s.logger.Info("Wizard session started",
		zap.String("user_id", actor.UserID.String()),
		zap.String("form_id", formID.String()),
		zap.Int("steps", w.StepCount()))
	return s.render(sess), nil
}

// GetSession returns the caller's current session
func (s *wizardServiceImpl) GetSession(ctx context.Context, actor Actor, formID uuid.UUID) (*dto.SessionResponse, error) {
	sess, err := s.load(ctx, actor, formID)
	if err != nil {
		return nil, err
	}
	return s.render(sess), nil
}

// SetValues records several values; unknown field ids reject the whole request
func (s *wizardServiceImpl) SetValues(ctx context.Context, actor Actor, formID uuid.UUID, req *dto.SetValuesRequest) (*dto.SessionResponse, error) {
	return s.mutate(ctx, actor, formID, func(sess *session) error {
		ids := make([]string, 0, len(req.Values))
		for id := range req.Values {
			if _, ok := sess.wizard.Form().Schema.FindField(id); !ok {
				return wizardError(wizard.ErrUnknownField, id)
			}
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			if err := sess.wizard.SetValue(id, req.Values[id]); err != nil {
				return wizardError(err, id)
			}
		}
		return nil
	})
}

// SetFiles records the files chosen for a file field and the uploads backing them
func (s *wizardServiceImpl) SetFiles(ctx context.Context, actor Actor, formID uuid.UUID, req *dto.SetFilesRequest) (*dto.SessionResponse, error) {
	return s.mutate(ctx, actor, formID, func(sess *session) error {
		if err := sess.wizard.SetFiles(req.FieldID, req.Files); err != nil {
			return wizardError(err, req.FieldID)
		}
		if sess.draft.AttachmentIDs == nil {
			sess.draft.AttachmentIDs = make(map[string][]uuid.UUID)
		}
		if len(req.Files) == 0 || len(req.AttachmentIDs) == 0 {
			delete(sess.draft.AttachmentIDs, req.FieldID)
		} else {
			sess.draft.AttachmentIDs[req.FieldID] = uniqueIDs(req.AttachmentIDs)
		}
		return nil
	})
}

// Next validates the current step and advances. Validation failures are saved with the draft.
func (s *wizardServiceImpl) Next(ctx context.Context, actor Actor, formID uuid.UUID) (*dto.SessionResponse, error) {
	return s.mutate(ctx, actor, formID, func(sess *session) error {
		return wizardError(sess.wizard.Next(), "")
	})
}

// Previous steps back; on the first step it is a no-op
func (s *wizardServiceImpl) Previous(ctx context.Context, actor Actor, formID uuid.UUID) (*dto.SessionResponse, error) {
	return s.mutate(ctx, actor, formID, func(sess *session) error {
		if err := wizardEditable(sess.wizard); err != nil {
			return err
		}
		sess.wizard.Previous()
		return nil
	})
}

// Submit validates the last step and stores the submission with the session's idempotency key.
// A failed store leaves the session retryable on the last step.
func (s *wizardServiceImpl) Submit(ctx context.Context, actor Actor, formID uuid.UUID) (*dto.SessionResponse, error) {
	return s.mutate(ctx, actor, formID, func(sess *session) error {
		attachments := sess.draft.AllAttachmentIDs()
		_, err := sess.wizard.Submit(ctx, wizard.SubmitterFunc(func(ctx context.Context, sub *domain.Submission) (*domain.Submission, error) {
			return s.submissions.Store(ctx, actor, sub, attachments)
		}))
		if err == nil {
			s.logger.Info("Wizard submitted",
				zap.String("user_id", actor.UserID.String()),
				zap.String("form_id", formID.String()))
			return nil
		}

		var verr *wizard.ValidationError
		if !errors.As(err, &verr) {
			s.metrics.IncrementWizardSubmitFailure()
			s.logger.Warn("Wizard submit failed",
				zap.String("user_id", actor.UserID.String()),
				zap.String("form_id", formID.String()),
				zap.Error(err))
		}
		var appErr *response.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return wizardError(err, "")
	})
}

// Discard deletes the caller's draft
func (s *wizardServiceImpl) Discard(ctx context.Context, actor Actor, formID uuid.UUID) error {
	unlock := s.locks.Lock(sessionKey(actor, formID))
	defer unlock()

	if err := s.drafts.Delete(ctx, actor.UserID, formID); err != nil {
		return internalError("Failed to discard session", err)
	}
	s.reportSessions()
	return nil
}

// mutate loads the session, applies fn, and saves the draft whether or not fn failed,
// so inline errors and failed submits survive to the next request
func (s *wizardServiceImpl) mutate(ctx context.Context, actor Actor, formID uuid.UUID, fn func(*session) error) (*dto.SessionResponse, error) {
	unlock := s.locks.Lock(sessionKey(actor, formID))
	defer unlock()

	sess, err := s.load(ctx, actor, formID)
	if err != nil {
		return nil, err
	}

	opErr := fn(sess)
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	if opErr != nil {
		return nil, opErr
	}
	return s.render(sess), nil
}

// load restores the caller's session
func (s *wizardServiceImpl) load(ctx context.Context, actor Actor, formID uuid.UUID) (*session, error) {
	draft, err := s.drafts.Load(ctx, actor.UserID, formID)
	if errors.Is(err, cache.ErrDraftNotFound) {
		return nil, response.NewNotFoundError("No active session for this form", "")
	}
	if err != nil {
		return nil, internalError("Failed to load session", err)
	}
	return s.restore(ctx, formID, draft)
}

// restore rebuilds the wizard of draft against the schema version it started on
func (s *wizardServiceImpl) restore(ctx context.Context, formID uuid.UUID, draft *cache.Draft) (*session, error) {
	form, err := s.activeForm(ctx, formID)
	if err != nil {
		return nil, err
	}
	form, err = s.pinVersion(ctx, form, draft.Snapshot.FormVersion)
	if err != nil {
		return nil, err
	}

	w, err := wizard.Restore(form, draft.Snapshot)
	if err != nil {
		return nil, internalError("Failed to restore session", err)
	}
	return &session{wizard: w, draft: draft}, nil
}

func (s *wizardServiceImpl) activeForm(ctx context.Context, formID uuid.UUID) (*domain.Form, error) {
	form, err := s.formRepo.FindByID(ctx, formID)
	if err != nil {
		return nil, notFoundOr(err, "Form not found", "Failed to get form")
	}
	if !form.IsActive {
		return nil, response.NewNotFoundError("Form is not available", "")
	}
	return form, nil
}

// pinVersion swaps in the schema of version when it differs from the form's current one.
// A version without a stored snapshot falls back to the current schema.
func (s *wizardServiceImpl) pinVersion(ctx context.Context, form *domain.Form, version int) (*domain.Form, error) {
	if version == 0 || version == form.Version {
		return form, nil
	}
	v, err := s.versionRepo.FindByFormAndVersion(ctx, form.ID, version)
	if err != nil {
		s.logger.Warn("Session form version unavailable, using current schema",
			zap.String("form_id", form.ID.String()),
			zap.Int("version", version),
			zap.Error(err))
		return form, nil
	}
	schema, err := v.DecodeSchema()
	if err != nil {
		return nil, internalError("Failed to decode form version", err)
	}
	pinned := form.Clone()
	pinned.Version = version
	pinned.Schema = schema
	return pinned, nil
}

func (s *wizardServiceImpl) save(ctx context.Context, sess *session) error {
	sess.draft.Snapshot = sess.wizard.Snapshot()
	if err := s.drafts.Save(ctx, sess.draft, s.draftTTL); err != nil {
		s.logger.Error("Failed to save wizard draft", zap.Error(err))
		return internalError("Failed to save session", err)
	}
	s.reportSessions()
	return nil
}

func (s *wizardServiceImpl) reportSessions() {
	if counter, ok := s.drafts.(interface{ Len() int }); ok {
		s.metrics.SetWizardSessions(counter.Len())
	}
}

func (s *wizardServiceImpl) render(sess *session) *dto.SessionResponse {
	resp := dto.NewSessionResponse(sess.wizard)
	return &resp
}

// wizardEditable rejects navigation once a submit is in flight or done
func wizardEditable(w *wizard.Wizard) error {
	switch w.Status() {
	case wizard.StatusSubmitting:
		return wizardError(wizard.ErrSubmitInProgress, "")
	case wizard.StatusSubmitted:
		return wizardError(wizard.ErrAlreadySubmitted, "")
	}
	return nil
}

// wizardError translates wizard engine errors into AppErrors; nil stays nil
func wizardError(err error, fieldID string) error {
	if err == nil {
		return nil
	}
	var verr *wizard.ValidationError
	switch {
	case errors.As(err, &verr):
		return response.NewFieldValidationError("Please correct the highlighted fields", verr.Errors)
	case errors.Is(err, wizard.ErrUnknownField):
		return response.NewValidationError("Field is not part of this form", fieldID)
	case errors.Is(err, wizard.ErrNotFileField):
		return response.NewValidationError("Field does not accept files", fieldID)
	case errors.Is(err, wizard.ErrNotLastStep):
		return response.NewValidationError("Submit is only allowed on the last step", "")
	case errors.Is(err, wizard.ErrSubmitInProgress):
		return response.NewConflictError("A submission is already in progress", "")
	case errors.Is(err, wizard.ErrAlreadySubmitted):
		return response.NewConflictError("Form has already been submitted", "")
	}
	return internalError("Wizard operation failed", err)
}
