package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"onboarding-forms-api/internal/database"
)

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	db          *gorm.DB
	redis       *redis.Client
	connections func() int
}

// NewHealthHandler creates a HealthHandler. redis may be nil when the service runs without it;
// connections reports open dashboard sockets and may be nil.
func NewHealthHandler(db *gorm.DB, redis *redis.Client, connections func() int) *HealthHandler {
	return &HealthHandler{db: db, redis: redis, connections: connections}
}

// Health godoc
// @Summary      Liveness probe
// @Tags         health
// @Produce      json
// @Success      200 {object} map[string]string
// @Router       /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "onboarding-forms-api",
	})
}

// Ready godoc
// @Summary      Readiness probe
// @Description  Pings the database and, when configured, Redis
// @Tags         health
// @Produce      json
// @Success      200 {object} map[string]interface{}
// @Failure      503 {object} map[string]interface{}
// @Router       /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	connections := map[string]string{}

	if err := database.Ping(ctx, h.db); err != nil {
		connections["database"] = "error: " + err.Error()
	} else {
		connections["database"] = "connected"
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			connections["redis"] = "error: " + err.Error()
		} else {
			connections["redis"] = "connected"
		}
	} else {
		connections["redis"] = "not configured"
	}

	status, statusText := http.StatusOK, "ready"
	for _, s := range connections {
		if s != "connected" && s != "not configured" {
			status, statusText = http.StatusServiceUnavailable, "not ready"
			break
		}
	}

	body := gin.H{"status": statusText, "connections": connections}
	if h.connections != nil {
		body["wsClients"] = h.connections()
	}
	c.JSON(status, body)
}
