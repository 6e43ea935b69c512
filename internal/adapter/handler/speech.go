package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/anishvdev/voiceforge/errors"
	dto "github.com/anishvdev/voiceforge/internal/adapter/dto/voice"
	"github.com/anishvdev/voiceforge/internal/infrastructure/storage"
	"github.com/anishvdev/voiceforge/internal/usecase/speech"
)

const artifactURLExpiry = 15 * time.Minute

// SpeechHandler serves one-shot synthesis and artifact downloads over REST.
type SpeechHandler struct {
	speech    *speech.Service
	artifacts *storage.AudioStore
	logger    *zap.Logger
}

func NewSpeechHandler(speechSvc *speech.Service, artifacts *storage.AudioStore, logger *zap.Logger) *SpeechHandler {
	return &SpeechHandler{speech: speechSvc, artifacts: artifacts, logger: logger}
}

// Generate handles POST /v1/speech
func (h *SpeechHandler) Generate(c echo.Context) error {
	var req dto.GenerateRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, h.logger, errors.ErrValidation("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return handleError(c, h.logger, errors.ErrValidation(err.Error()))
	}
	format := req.OutputFormat
	if format == "" {
		format = "wav"
	}

	result, err := h.speech.Generate(c.Request().Context(), speech.GenerateInput{
		ConnID:    "rest-" + c.RealIP(),
		VoiceName: req.VoiceName,
		Text:      req.Text,
		Format:    format,
	})
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return handleSuccess(c, http.StatusOK, dto.GenerateResponse{
		VoiceName:      req.VoiceName,
		AudioFile:      result.AudioFile,
		GenerationTime: result.GenerationTime,
		EngineUsed:     result.EngineUsed,
	})
}

// GetAudio handles GET /v1/audio/:object by redirecting to a time-limited
// download URL.
func (h *SpeechHandler) GetAudio(c echo.Context) error {
	object := c.Param("object")
	if object == "" {
		return handleError(c, h.logger, errors.ErrValidation("audio object name is required"))
	}
	url, err := h.artifacts.PresignedGetURL(c.Request().Context(), object, artifactURLExpiry)
	if err != nil {
		return handleError(c, h.logger, errors.ErrStore("presign audio url", err))
	}
	return c.Redirect(http.StatusTemporaryRedirect, url)
}
