package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"onboarding-forms-api/internal/response"
)

// Context keys set by Auth
const (
	ContextUserID = "user_id"
	ContextRole   = "role"
	ContextName   = "name"
	ContextToken  = "jwtToken"
)

// RoleAdmin is the role claim value that unlocks form management and review
const RoleAdmin = "admin"

// Auth validates an HS256 bearer token and stores the caller in the context
func Auth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(jwtSecret), nil
		})
		if err != nil || !token.Valid {
			unauthorized(c, "Invalid or expired token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			unauthorized(c, "Invalid token claims")
			return
		}

		// user_id is ours, sub comes from OAuth issuers, uid from older tokens
		var userIDStr string
		for _, key := range []string{"user_id", "sub", "uid"} {
			if v, ok := claims[key].(string); ok && v != "" {
				userIDStr = v
				break
			}
		}
		if userIDStr == "" {
			unauthorized(c, "User ID not found in token")
			return
		}

		userID, err := uuid.Parse(userIDStr)
		if err != nil {
			unauthorized(c, "Invalid user ID format")
			return
		}

		role, _ := claims["role"].(string)
		if role == "" {
			role = "user"
		}

		// optional display name; preferred_username comes from OIDC issuers
		var name string
		for _, key := range []string{"name", "preferred_username"} {
			if v, ok := claims[key].(string); ok && strings.TrimSpace(v) != "" {
				name = strings.TrimSpace(v)
				break
			}
		}

		c.Set(ContextUserID, userID)
		c.Set(ContextRole, role)
		c.Set(ContextName, name)
		c.Set(ContextToken, tokenString)
		c.Next()
	}
}

// RequireRole rejects callers whose role claim differs from role
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ContextRole) != role {
			response.SendError(c, http.StatusForbidden, response.ErrCodeForbidden, "Insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated caller
func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// DisplayName returns the caller's name claim, or "" when the token has none
func DisplayName(c *gin.Context) string {
	return c.GetString(ContextName)
}

// IsAdmin reports whether the caller carries the admin role
func IsAdmin(c *gin.Context) bool {
	return c.GetString(ContextRole) == RoleAdmin
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		// browsers cannot set headers on websocket upgrades
		if t := c.Query("token"); t != "" && c.IsWebsocket() {
			return t, true
		}
		unauthorized(c, "Authorization header is required")
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		unauthorized(c, "Invalid authorization header format")
		return "", false
	}
	return parts[1], true
}

func unauthorized(c *gin.Context, message string) {
	response.SendError(c, http.StatusUnauthorized, response.ErrCodeUnauthorized, message)
	c.Abort()
}
