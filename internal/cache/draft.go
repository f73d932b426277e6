// Package cache holds short-lived state kept outside the database: wizard drafts
// and cached unread counters. Each store has a Redis and an in-memory implementation.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"onboarding-forms-api/internal/wizard"
)

// ErrDraftNotFound is returned when no draft exists or it has expired
var ErrDraftNotFound = errors.New("draft not found")

// Draft is the persisted wizard session of one user on one form
type Draft struct {
	Snapshot wizard.Snapshot `json:"snapshot"`
	// AttachmentIDs are presigned uploads selected per file field, claimed on submit
	AttachmentIDs map[string][]uuid.UUID `json:"attachment_ids,omitempty"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// AllAttachmentIDs flattens AttachmentIDs
func (d *Draft) AllAttachmentIDs() []uuid.UUID {
	var out []uuid.UUID
	for _, ids := range d.AttachmentIDs {
		out = append(out, ids...)
	}
	return out
}

// DraftStore persists wizard drafts with a time-to-live
type DraftStore interface {
	Load(ctx context.Context, userID, formID uuid.UUID) (*Draft, error)
	Save(ctx context.Context, draft *Draft, ttl time.Duration) error
	Delete(ctx context.Context, userID, formID uuid.UUID) error
	// FormsWithDrafts lists the forms the user has an unexpired draft for
	FormsWithDrafts(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}
