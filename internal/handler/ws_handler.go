package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"onboarding-forms-api/internal/ws"
)

// WSHandler upgrades dashboard connections and hands them to the hub
type WSHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWSHandler creates a WSHandler. An empty allowedOrigins accepts any origin.
func NewWSHandler(hub *ws.Hub, allowedOrigins []string, logger *zap.Logger) *WSHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(allowed) == 0 || allowed[origin] || allowed["*"]
			},
		},
		logger: logger,
	}
}

// HandleNotifications godoc
// @Summary      Live notification stream
// @Description  WebSocket. Admins receive submission events, clients receive decisions on their own submissions.
// @Description  Browsers pass the JWT as the token query parameter.
// @Tags         notifications
// @Param        token query string false "JWT"
// @Success      101
// @Failure      401 {object} response.ErrorResponse
// @Router       /ws/notifications [get]
func (h *WSHandler) HandleNotifications(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed",
			zap.String("user_id", actor.UserID.String()),
			zap.Error(err),
		)
		return
	}

	h.logger.Debug("Dashboard connected",
		zap.String("user_id", actor.UserID.String()),
		zap.Bool("admin", actor.IsAdmin),
	)
	h.hub.Serve(conn, actor.UserID, actor.IsAdmin)
}
