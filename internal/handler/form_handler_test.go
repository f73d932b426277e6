package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onboarding-forms-api/internal/builder"
	"onboarding-forms-api/internal/dto"
	"onboarding-forms-api/internal/middleware"
	"onboarding-forms-api/internal/response"
	"onboarding-forms-api/internal/service"
)

func jsonBody(t *testing.T, v interface{}) *bytes.Buffer {
	t.Helper()
	if s, ok := v.(string); ok {
		return bytes.NewBufferString(s)
	}
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

// decodeData unmarshals the data member of a success envelope into out
func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var resp response.SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) response.ErrorDetail {
	t.Helper()
	var resp response.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

func setupFormRouter(userID uuid.UUID, role string, fs *MockFormService, bs *MockBuilderService) http.Handler {
	r := setupTestRouter(userID, role)
	h := NewFormHandler(fs, bs)
	r.GET("/forms/meta", h.GetMeta)
	r.POST("/forms", h.CreateForm)
	r.GET("/forms", h.ListForms)
	r.GET("/forms/:formId", h.GetForm)
	r.PATCH("/forms/:formId", h.UpdateForm)
	r.DELETE("/forms/:formId", h.DeleteForm)
	r.GET("/forms/:formId/versions", h.ListVersions)
	r.GET("/forms/:formId/versions/:version", h.GetVersion)
	r.POST("/forms/:formId/schema/commands", h.ApplyCommands)
	r.GET("/forms/:formId/schema/can-remove-section", h.CanRemoveSection)
	return r
}

func TestFormHandler_CreateForm(t *testing.T) {
	adminID := uuid.New()
	formID := uuid.New()

	tests := []struct {
		name           string
		userID         uuid.UUID
		requestBody    interface{}
		mockService    func(*MockFormService)
		expectedStatus int
		checkResponse  func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:        "creates a form",
			userID:      adminID,
			requestBody: dto.CreateFormRequest{Name: "KYC Basic", Category: "kyc"},
			mockService: func(m *MockFormService) {
				m.CreateFormFunc = func(ctx context.Context, actor service.Actor, req *dto.CreateFormRequest) (*dto.FormResponse, error) {
					assert.Equal(t, adminID, actor.UserID)
					assert.True(t, actor.IsAdmin)
					return &dto.FormResponse{ID: formID, Name: req.Name, Version: 1}, nil
				}
			},
			expectedStatus: http.StatusCreated,
			checkResponse: func(t *testing.T, w *httptest.ResponseRecorder) {
				var form dto.FormResponse
				decodeData(t, w, &form)
				assert.Equal(t, formID, form.ID)
				assert.Equal(t, 1, form.Version)
			},
		},
		{
			name:           "invalid body",
			userID:         adminID,
			requestBody:    "not json",
			mockService:    func(m *MockFormService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing name",
			userID:         adminID,
			requestBody:    map[string]string{"category": "kyc"},
			mockService:    func(m *MockFormService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:        "schema issues are returned as fields",
			userID:      adminID,
			requestBody: dto.CreateFormRequest{Name: "Broken"},
			mockService: func(m *MockFormService) {
				m.CreateFormFunc = func(ctx context.Context, actor service.Actor, req *dto.CreateFormRequest) (*dto.FormResponse, error) {
					return nil, response.NewFieldValidationError("Invalid schema", []map[string]string{{"path": "schema[0].fields[0].id"}})
				}
			},
			expectedStatus: http.StatusBadRequest,
			checkResponse: func(t *testing.T, w *httptest.ResponseRecorder) {
				e := decodeError(t, w)
				assert.Equal(t, response.ErrCodeValidation, e.Code)
				assert.NotNil(t, e.Fields)
			},
		},
		{
			name:           "no user in context",
			userID:         uuid.Nil,
			requestBody:    dto.CreateFormRequest{Name: "KYC"},
			mockService:    func(m *MockFormService) {},
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := &MockFormService{}
			tt.mockService(fs)
			router := setupFormRouter(tt.userID, middleware.RoleAdmin, fs, &MockBuilderService{})

			req := httptest.NewRequest(http.MethodPost, "/forms", jsonBody(t, tt.requestBody))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			if tt.checkResponse != nil {
				tt.checkResponse(t, w)
			}
		})
	}
}

func TestFormHandler_GetForm(t *testing.T) {
	formID := uuid.New()
	fs := &MockFormService{
		GetFormFunc: func(ctx context.Context, actor service.Actor, id uuid.UUID) (*dto.FormResponse, error) {
			if id != formID {
				return nil, response.NewNotFoundError("Form not found", "")
			}
			assert.False(t, actor.IsAdmin)
			return &dto.FormResponse{ID: id, Name: "KYC"}, nil
		},
	}
	router := setupFormRouter(uuid.New(), "client", fs, &MockBuilderService{})

	tests := []struct {
		name           string
		path           string
		expectedStatus int
	}{
		{"found", "/forms/" + formID.String(), http.StatusOK},
		{"unknown", "/forms/" + uuid.NewString(), http.StatusNotFound},
		{"malformed id", "/forms/abc", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestFormHandler_ListForms(t *testing.T) {
	var got *dto.ListFormsQuery
	fs := &MockFormService{
		ListFormsFunc: func(ctx context.Context, actor service.Actor, query *dto.ListFormsQuery) (*response.PaginatedResponse, error) {
			got = query
			return &response.PaginatedResponse{Items: []dto.FormResponse{{Name: "KYC"}}, Total: 1, Page: 2, Limit: 5}, nil
		},
	}
	router := setupFormRouter(uuid.New(), middleware.RoleAdmin, fs, &MockBuilderService{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/forms?search=kyc&category=kyc&status=draft&page=2&limit=5", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, got)
	assert.Equal(t, "kyc", got.Search)
	assert.Equal(t, "draft", got.Status)
	assert.Equal(t, 2, got.Page)

	var page response.PaginatedResponse
	decodeData(t, w, &page)
	assert.Equal(t, int64(1), page.Total)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/forms?status=archived", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/forms?limit=500", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	for _, path := range []string{"/forms?page=0", "/forms?limit=0", "/forms?page=-1"} {
		w = httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}

	got = nil
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/forms", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, got)
	assert.Equal(t, 1, got.Page)
	assert.Equal(t, 20, got.Limit)
}

func TestFormHandler_UpdateAndDelete(t *testing.T) {
	formID := uuid.New()
	fs := &MockFormService{
		UpdateFormFunc: func(ctx context.Context, actor service.Actor, id uuid.UUID, req *dto.UpdateFormRequest) (*dto.FormResponse, error) {
			require.NotNil(t, req.Name)
			return &dto.FormResponse{ID: id, Name: *req.Name, Version: 2}, nil
		},
		DeleteFormFunc: func(ctx context.Context, id uuid.UUID) error {
			if id != formID {
				return response.NewNotFoundError("Form not found", "")
			}
			return nil
		},
	}
	router := setupFormRouter(uuid.New(), middleware.RoleAdmin, fs, &MockBuilderService{})

	req := httptest.NewRequest(http.MethodPatch, "/forms/"+formID.String(), jsonBody(t, map[string]string{"name": "Renamed"}))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var form dto.FormResponse
	decodeData(t, w, &form)
	assert.Equal(t, "Renamed", form.Name)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/forms/"+formID.String(), nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/forms/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, response.ErrCodeNotFound, decodeError(t, w).Code)
}

func TestFormHandler_Versions(t *testing.T) {
	formID := uuid.New()
	fs := &MockFormService{
		ListVersionsFunc: func(ctx context.Context, id uuid.UUID) ([]dto.FormVersionResponse, error) {
			return []dto.FormVersionResponse{{Version: 2}, {Version: 1}}, nil
		},
		GetVersionFunc: func(ctx context.Context, id uuid.UUID, version int) (*dto.FormVersionResponse, error) {
			if version > 2 {
				return nil, response.NewNotFoundError("Form version not found", "")
			}
			return &dto.FormVersionResponse{Version: version}, nil
		},
	}
	router := setupFormRouter(uuid.New(), middleware.RoleAdmin, fs, &MockBuilderService{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/forms/"+formID.String()+"/versions", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var versions []dto.FormVersionResponse
	decodeData(t, w, &versions)
	assert.Len(t, versions, 2)

	tests := []struct {
		version        string
		expectedStatus int
	}{
		{"1", http.StatusOK},
		{"3", http.StatusNotFound},
		{"0", http.StatusBadRequest},
		{"latest", http.StatusBadRequest},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/forms/"+formID.String()+"/versions/"+tt.version, nil))
		assert.Equal(t, tt.expectedStatus, w.Code, "version %s", tt.version)
	}
}

func TestFormHandler_ApplyCommands(t *testing.T) {
	formID := uuid.New()
	bs := &MockBuilderService{
		ApplyCommandsFunc: func(ctx context.Context, actor service.Actor, id uuid.UUID, req *dto.ApplyCommandsRequest) (*dto.FormResponse, error) {
			if req.Commands[0].Type == builder.CommandRemoveSection {
				return nil, response.NewValidationError("You must have at least one section", "")
			}
			return &dto.FormResponse{ID: id, Version: 2, FieldCount: 1}, nil
		},
		CanRemoveSectionFunc: func(ctx context.Context, id uuid.UUID) (*dto.CanRemoveSectionResponse, error) {
			return &dto.CanRemoveSectionResponse{CanRemove: false, SectionCount: 1}, nil
		},
	}
	router := setupFormRouter(uuid.New(), middleware.RoleAdmin, &MockFormService{}, bs)
	path := "/forms/" + formID.String() + "/schema/commands"

	tests := []struct {
		name           string
		requestBody    interface{}
		expectedStatus int
	}{
		{
			name: "applies the batch",
			requestBody: dto.ApplyCommandsRequest{Commands: []builder.Command{
				{Type: builder.CommandAddField, SectionID: "default_section", FieldType: "text"},
			}},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "empty batch",
			requestBody:    dto.ApplyCommandsRequest{},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "rejected command",
			requestBody: dto.ApplyCommandsRequest{Commands: []builder.Command{
				{Type: builder.CommandRemoveSection, SectionID: "default_section"},
			}},
			expectedStatus: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, path, jsonBody(t, tt.requestBody))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
		})
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/forms/"+formID.String()+"/schema/can-remove-section", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var can dto.CanRemoveSectionResponse
	decodeData(t, w, &can)
	assert.False(t, can.CanRemove)
}

func TestFormHandler_GetMeta(t *testing.T) {
	router := setupFormRouter(uuid.New(), "client", &MockFormService{}, &MockBuilderService{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/forms/meta", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var meta FormMetaResponse
	decodeData(t, w, &meta)
	assert.NotEmpty(t, meta.FieldTypes)
	assert.Len(t, meta.Categories, 5)
}

func TestMapErrorCodeToHTTPStatus(t *testing.T) {
	tests := map[string]int{
		response.ErrCodeNotFound:      http.StatusNotFound,
		response.ErrCodeAlreadyExists: http.StatusConflict,
		response.ErrCodeConflict:      http.StatusConflict,
		response.ErrCodeValidation:    http.StatusBadRequest,
		response.ErrCodeUnauthorized:  http.StatusUnauthorized,
		response.ErrCodeForbidden:     http.StatusForbidden,
		response.ErrCodeInternal:      http.StatusInternalServerError,
		"SOMETHING_ELSE":              http.StatusInternalServerError,
	}
	for code, status := range tests {
		assert.Equal(t, status, mapErrorCodeToHTTPStatus(code), code)
	}
}
