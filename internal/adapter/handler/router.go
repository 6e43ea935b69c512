package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/anishvdev/voiceforge/internal/infrastructure/database"
	"github.com/anishvdev/voiceforge/internal/infrastructure/storage"
	"github.com/anishvdev/voiceforge/internal/infrastructure/ws"
)

// Router wires every HTTP route: health probes, the websocket entry point
// and the REST companion surface.
type Router struct {
	db        *gorm.DB
	artifacts *storage.AudioStore
	hub       *ws.Hub
	voice     *VoiceHandler
	speech    *SpeechHandler
	logger    *zap.Logger
}

func NewRouter(
	db *gorm.DB,
	artifacts *storage.AudioStore,
	hub *ws.Hub,
	voice *VoiceHandler,
	speechHandler *SpeechHandler,
	logger *zap.Logger,
) *Router {
	return &Router{
		db:        db,
		artifacts: artifacts,
		hub:       hub,
		voice:     voice,
		speech:    speechHandler,
		logger:    logger,
	}
}

// Register mounts all routes on e.
func (r *Router) Register(e *echo.Echo) {
	e.GET("/health", r.health)
	e.GET("/ready", r.ready)

	e.GET("/ws/:client_id", r.hub.ServeWS)

	v1 := e.Group("/v1")
	v1.GET("/voices", r.voice.List)
	v1.POST("/voices", r.voice.Enroll)
	v1.GET("/voices/:voice_name", r.voice.Get)
	v1.PATCH("/voices/:voice_name", r.voice.UpdateMetadata)
	v1.DELETE("/voices/:voice_name", r.voice.Delete)

	v1.POST("/speech", r.speech.Generate)
	v1.GET("/audio/:object", r.speech.GetAudio)
}

// health is a liveness probe: the process is up and accepting connections.
func (r *Router) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"connections": r.hub.Count(),
	})
}

// ready reports healthy only when the persistence and storage collaborators
// are both reachable.
func (r *Router) ready(c echo.Context) error {
	ctx := c.Request().Context()

	checks := map[string]string{"database": "ok", "storage": "ok"}
	healthy := true
	if err := database.Ping(ctx, r.db); err != nil {
		checks["database"] = err.Error()
		healthy = false
	}
	if err := r.artifacts.Healthy(ctx); err != nil {
		checks["storage"] = err.Error()
		healthy = false
	}

	status := http.StatusOK
	state := "ready"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "not ready"
	}
	return c.JSON(status, map[string]interface{}{
		"status": state,
		"checks": checks,
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
