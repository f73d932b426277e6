package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

type draftKey struct {
	user uuid.UUID
	form uuid.UUID
}

type memoryEntry struct {
	data    []byte
	expires time.Time
}

// MemoryDraftStore keeps drafts in process memory. Drafts are stored encoded so
// callers never share state with the store.
type MemoryDraftStore struct {
	mu      sync.Mutex
	entries map[draftKey]memoryEntry
	now     func() time.Time
}

// NewMemoryDraftStore creates an empty store
func NewMemoryDraftStore() *MemoryDraftStore {
	return &MemoryDraftStore{
		entries: make(map[draftKey]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryDraftStore) Load(_ context.Context, userID, formID uuid.UUID) (*Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := draftKey{userID, formID}
	e, ok := s.entries[k]
	if !ok {
		return nil, ErrDraftNotFound
	}
	if s.now().After(e.expires) {
		delete(s.entries, k)
		return nil, ErrDraftNotFound
	}
	var d Draft
	if err := json.Unmarshal(e.data, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *MemoryDraftStore) Save(_ context.Context, draft *Draft, ttl time.Duration) error {
	draft.UpdatedAt = s.now().UTC()
	data, err := json.Marshal(draft)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[draftKey{draft.Snapshot.UserID, draft.Snapshot.FormID}] = memoryEntry{
		data:    data,
		expires: s.now().Add(ttl),
	}
	return nil
}

func (s *MemoryDraftStore) Delete(_ context.Context, userID, formID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, draftKey{userID, formID})
	return nil
}

func (s *MemoryDraftStore) FormsWithDrafts(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var out []uuid.UUID
	for k, e := range s.entries {
		if k.user != userID {
			continue
		}
		if now.After(e.expires) {
			delete(s.entries, k)
			continue
		}
		out = append(out, k.form)
	}
	return out, nil
}

// Len returns the number of unexpired drafts
func (s *MemoryDraftStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for _, e := range s.entries {
		if !now.After(e.expires) {
			n++
		}
	}
	return n
}
