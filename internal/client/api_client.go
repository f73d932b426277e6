package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"onboarding-forms-api/internal/domain"
	"onboarding-forms-api/internal/metrics"
	"onboarding-forms-api/internal/store"
)

// APIError is a non-2xx answer of the API
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// envelope is the success and error body of every API response
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type page struct {
	Items json.RawMessage `json:"items"`
	Total int64           `json:"total"`
}

// APIClient talks to the onboarding API and mirrors what it reads and writes into a store.
// It implements wizard.Submitter.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
	store      *store.Store
	logger     *zap.Logger
	metrics    *metrics.Metrics

	mu    sync.RWMutex
	token string
}

// NewAPIClient creates a client for baseURL, e.g. http://localhost:8000/api
func NewAPIClient(baseURL string, timeout time.Duration, st *store.Store, logger *zap.Logger, m *metrics.Metrics) *APIClient {
	if st == nil {
		st = store.New(store.State{})
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		store:      st,
		logger:     logger,
		metrics:    m,
	}
}

// Store returns the state container the client writes to
func (c *APIClient) Store() *store.Store { return c.store }

// Login records the bearer token and user
func (c *APIClient) Login(token string, user *store.User) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	c.store.Dispatch(store.Action{Type: store.ActionLogin, Token: token, User: user})
}

// Logout forgets the token and clears all client state
func (c *APIClient) Logout() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
	c.store.Dispatch(store.Action{Type: store.ActionLogout})
}

// ListForms fetches one page of forms and replaces the forms in the store
func (c *APIClient) ListForms(ctx context.Context, query url.Values) ([]domain.Form, error) {
	var p page
	if err := c.do(ctx, http.MethodGet, "/forms", query, nil, nil, &p); err != nil {
		return nil, err
	}
	var forms []domain.Form
	if err := json.Unmarshal(p.Items, &forms); err != nil {
		return nil, fmt.Errorf("failed to decode forms: %w", err)
	}
	c.store.Dispatch(store.Action{Type: store.ActionSetForms, Forms: forms})
	return forms, nil
}

// GetForm fetches a form and upserts it into the store
func (c *APIClient) GetForm(ctx context.Context, formID uuid.UUID) (*domain.Form, error) {
	var form domain.Form
	if err := c.do(ctx, http.MethodGet, "/forms/"+formID.String(), nil, nil, nil, &form); err != nil {
		return nil, err
	}
	c.store.Dispatch(store.Action{Type: store.ActionUpsertForm, Form: &form})
	return &form, nil
}

type saveFormBody struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    domain.Category `json:"category"`
	IsActive    *bool           `json:"is_active"`
	Schema      domain.Schema   `json:"schema"`
}

// SaveForm creates the form when it has no id, else replaces its metadata and schema.
// The store is only updated once the API accepted the form.
func (c *APIClient) SaveForm(ctx context.Context, form *domain.Form) (*domain.Form, error) {
	active := form.IsActive
	body := saveFormBody{
		Name:        form.Name,
		Description: form.Description,
		Category:    form.Category,
		IsActive:    &active,
		Schema:      form.Schema,
	}

	method, path := http.MethodPost, "/forms"
	if form.ID != uuid.Nil {
		method, path = http.MethodPatch, "/forms/"+form.ID.String()
	}

	var saved domain.Form
	if err := c.do(ctx, method, path, nil, nil, body, &saved); err != nil {
		return nil, err
	}
	c.store.Dispatch(store.Action{Type: store.ActionUpsertForm, Form: &saved})
	return &saved, nil
}

// DeleteForm deletes a form and removes it from the store
func (c *APIClient) DeleteForm(ctx context.Context, formID uuid.UUID) error {
	if err := c.do(ctx, http.MethodDelete, "/forms/"+formID.String(), nil, nil, nil, nil); err != nil {
		return err
	}
	c.store.Dispatch(store.Action{Type: store.ActionRemoveForm, FormID: formID})
	return nil
}

// ListSubmissions fetches one page of submissions and replaces them in the store
func (c *APIClient) ListSubmissions(ctx context.Context, query url.Values) ([]domain.Submission, error) {
	var p page
	if err := c.do(ctx, http.MethodGet, "/submissions", query, nil, nil, &p); err != nil {
		return nil, err
	}
	var subs []domain.Submission
	if err := json.Unmarshal(p.Items, &subs); err != nil {
		return nil, fmt.Errorf("failed to decode submissions: %w", err)
	}
	c.store.Dispatch(store.Action{Type: store.ActionSetSubmissions, Submissions: subs})
	return subs, nil
}

type createSubmissionBody struct {
	Form           uuid.UUID                `json:"form"`
	FormVersion    int                      `json:"form_version,omitempty"`
	SubmissionData []domain.SubmissionValue `json:"submission_data"`
}

// Submit stores sub through the API. The idempotency key travels in the Idempotency-Key
// header, so a retried submit returns the first stored submission; it is appended to the
// store only once.
func (c *APIClient) Submit(ctx context.Context, sub *domain.Submission) (*domain.Submission, error) {
	body := createSubmissionBody{
		Form:           sub.FormID,
		FormVersion:    sub.FormVersion,
		SubmissionData: []domain.SubmissionValue(sub.Data),
	}
	if body.SubmissionData == nil {
		body.SubmissionData = []domain.SubmissionValue{}
	}
	header := http.Header{}
	if sub.IdempotencyKey != nil && *sub.IdempotencyKey != "" {
		header.Set("Idempotency-Key", *sub.IdempotencyKey)
	}

	var saved domain.Submission
	if err := c.do(ctx, http.MethodPost, "/submissions", nil, header, body, &saved); err != nil {
		return nil, err
	}

	known := false
	for _, s := range c.store.State().Submissions {
		if s.ID == saved.ID {
			known = true
			break
		}
	}
	if !known {
		c.store.Dispatch(store.Action{Type: store.ActionAppendSubmission, Submission: &saved})
	}
	return &saved, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, query url.Values, header http.Header, in, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	c.mu.RLock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.mu.RUnlock()

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	statusCode := 0
	if resp != nil {
		statusCode = resp.StatusCode
	}
	c.metrics.RecordExternalCall("api:"+path, method, statusCode, duration, err)

	if err != nil {
		c.logger.Warn("API request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return fmt.Errorf("failed to call %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			return &APIError{StatusCode: resp.StatusCode, Code: "INVALID_RESPONSE", Message: strconv.Quote(truncate(string(raw), 200))}
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		if env.Error != nil {
			apiErr.Code, apiErr.Message = env.Error.Code, env.Error.Message
		}
		return apiErr
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
