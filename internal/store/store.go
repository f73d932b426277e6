// Package store is the single owned state container shared by the builder,
// wizard and review code on the client side. State changes only through Dispatch.
package store

import (
	"sync"

	"github.com/google/uuid"

	"onboarding-forms-api/internal/domain"
)

// ActionType enumerates the state transitions
type ActionType string

const (
	ActionLogin            ActionType = "LOGIN"
	ActionLogout           ActionType = "LOGOUT"
	ActionSetUser          ActionType = "SET_USER"
	ActionSetForms         ActionType = "SET_FORMS"
	ActionUpsertForm       ActionType = "UPSERT_FORM"
	ActionRemoveForm       ActionType = "REMOVE_FORM"
	ActionSetSubmissions   ActionType = "SET_SUBMISSIONS"
	ActionAppendSubmission ActionType = "APPEND_SUBMISSION"
)

// User is the signed-in principal as seen by the client
type User struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
	Role  string    `json:"role"`
}

// Action is one state transition. Only the payload field matching Type is read.
type Action struct {
	Type        ActionType
	User        *User
	Token       string
	Forms       []domain.Form
	Form        *domain.Form
	FormID      uuid.UUID
	Submissions []domain.Submission
	Submission  *domain.Submission
}

// State is an immutable value; Reduce returns a new one
type State struct {
	Authenticated bool
	Token         string
	User          *User
	Forms         []domain.Form
	Submissions   []domain.Submission
}

// Reduce applies a to s and returns the next state. Unknown actions return s unchanged.
func Reduce(s State, a Action) State {
	switch a.Type {
	case ActionLogin:
		s.Authenticated = true
		s.Token = a.Token
		s.User = a.User
	case ActionLogout:
		return State{}
	case ActionSetUser:
		s.User = a.User
	case ActionSetForms:
		s.Forms = append([]domain.Form(nil), a.Forms...)
	case ActionUpsertForm:
		if a.Form == nil {
			return s
		}
		forms := make([]domain.Form, 0, len(s.Forms)+1)
		replaced := false
		for _, f := range s.Forms {
			if f.ID == a.Form.ID {
				forms = append(forms, *a.Form)
				replaced = true
				continue
			}
			forms = append(forms, f)
		}
		if !replaced {
			forms = append(forms, *a.Form)
		}
		s.Forms = forms
	case ActionRemoveForm:
		forms := make([]domain.Form, 0, len(s.Forms))
		for _, f := range s.Forms {
			if f.ID != a.FormID {
				forms = append(forms, f)
			}
		}
		s.Forms = forms
	case ActionSetSubmissions:
		s.Submissions = append([]domain.Submission(nil), a.Submissions...)
	case ActionAppendSubmission:
		if a.Submission == nil {
			return s
		}
		subs := make([]domain.Submission, 0, len(s.Submissions)+1)
		subs = append(subs, s.Submissions...)
		s.Submissions = append(subs, *a.Submission)
	}
	return s
}

// Listener is notified after every dispatch
type Listener func(State, Action)

// Store owns a State and serializes writes to it
type Store struct {
	mu        sync.RWMutex
	state     State
	listeners []Listener
}

// New creates a store with the given initial state
func New(initial State) *Store {
	return &Store{state: initial}
}

// State returns the current state
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Dispatch reduces a into the current state and notifies listeners
func (s *Store) Dispatch(a Action) State {
	s.mu.Lock()
	s.state = Reduce(s.state, a)
	next := s.state
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	for _, l := range listeners {
		l(next, a)
	}
	return next
}

// Subscribe registers a listener
func (s *Store) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// FindForm returns a form from the current state by id
func (s *Store) FindForm(id uuid.UUID) (*domain.Form, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.state.Forms {
		if s.state.Forms[i].ID == id {
			return s.state.Forms[i].Clone(), true
		}
	}
	return nil, false
}
