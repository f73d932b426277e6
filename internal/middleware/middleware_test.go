package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"onboarding-forms-api/internal/metrics"
	"onboarding-forms-api/internal/response"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func setupAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/me", Auth(testSecret), func(c *gin.Context) {
		id, _ := UserID(c)
		c.JSON(http.StatusOK, gin.H{"user_id": id.String(), "role": c.GetString(ContextRole), "admin": IsAdmin(c), "name": DisplayName(c)})
	})
	r.GET("/admin", Auth(testSecret), RequireRole(RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestAuth(t *testing.T) {
	userID := uuid.New()
	exp := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantRole   string
		wantName   string
	}{
		{
			name:       "user_id claim",
			header:     "Bearer " + signToken(t, testSecret, jwt.MapClaims{"user_id": userID.String(), "exp": exp}),
			wantStatus: http.StatusOK,
			wantRole:   "user",
		},
		{
			name:       "sub claim with admin role",
			header:     "Bearer " + signToken(t, testSecret, jwt.MapClaims{"sub": userID.String(), "role": "admin", "exp": exp}),
			wantStatus: http.StatusOK,
			wantRole:   "admin",
		},
		{
			name:       "name claim",
			header:     "Bearer " + signToken(t, testSecret, jwt.MapClaims{"user_id": userID.String(), "name": " Ada Lovelace ", "exp": exp}),
			wantStatus: http.StatusOK,
			wantRole:   "user",
			wantName:   "Ada Lovelace",
		},
		{
			name:       "preferred_username claim",
			header:     "Bearer " + signToken(t, testSecret, jwt.MapClaims{"sub": userID.String(), "preferred_username": "ada", "exp": exp}),
			wantStatus: http.StatusOK,
			wantRole:   "user",
			wantName:   "ada",
		},
		{
			name:       "missing header",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "not bearer",
			header:     "Basic abc",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong secret",
			header:     "Bearer " + signToken(t, "other", jwt.MapClaims{"user_id": userID.String(), "exp": exp}),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "expired",
			header:     "Bearer " + signToken(t, testSecret, jwt.MapClaims{"user_id": userID.String(), "exp": time.Now().Add(-time.Minute).Unix()}),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "no user claim",
			header:     "Bearer " + signToken(t, testSecret, jwt.MapClaims{"exp": exp}),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "non uuid user",
			header:     "Bearer " + signToken(t, testSecret, jwt.MapClaims{"user_id": "42", "exp": exp}),
			wantStatus: http.StatusUnauthorized,
		},
	}

	router := setupAuthRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				var body map[string]interface{}
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, userID.String(), body["user_id"])
				assert.Equal(t, tt.wantRole, body["role"])
				assert.Equal(t, tt.wantName, body["name"])
				return
			}
			var resp response.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, response.ErrCodeUnauthorized, resp.Error.Code)
			assert.Equal(t, w.Header().Get("X-Request-ID"), resp.RequestID)
		})
	}
}

func TestRequireRole(t *testing.T) {
	router := setupAuthRouter()
	exp := time.Now().Add(time.Hour).Unix()

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, jwt.MapClaims{"user_id": uuid.NewString(), "exp": exp}))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, jwt.MapClaims{"user_id": uuid.NewString(), "role": "admin", "exp": exp}))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:5173"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), Recovery(zap.NewNop()))
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	req.Header.Set("X-Request-ID", "req-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var resp response.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, response.ErrCodeInternal, resp.Error.Code)
	assert.Equal(t, "req-1", resp.RequestID)
}

func TestMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := metrics.NewWithRegistry(prometheus.NewRegistry(), zap.NewNop())
	r := gin.New()
	r.Use(Logger(zap.NewNop()), Metrics(m))
	r.GET("/api/forms/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/forms/"+uuid.NewString(), nil))
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	metric := &dto.Metric{}
	require.NoError(t, m.HTTPRequestsTotal.WithLabelValues("GET", "/api/forms/:id", "2xx").Write(metric))
	assert.Equal(t, float64(3), metric.Counter.GetValue())

	metric = &dto.Metric{}
	require.NoError(t, m.HTTPRequestsTotal.WithLabelValues("GET", "/health", "2xx").Write(metric))
	assert.Equal(t, float64(0), metric.Counter.GetValue())
}
