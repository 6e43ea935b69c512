package handler

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/anishvdev/voiceforge/errors"
	dto "github.com/anishvdev/voiceforge/internal/adapter/dto/voice"
	"github.com/anishvdev/voiceforge/internal/adapter/presenter"
	wsproto "github.com/anishvdev/voiceforge/internal/adapter/ws"
	"github.com/anishvdev/voiceforge/internal/domain/entities"
	"github.com/anishvdev/voiceforge/internal/usecase/speech"
)

// Broadcaster pushes a notification to every live websocket client.
type Broadcaster interface {
	Broadcast(v interface{})
}

// VoiceHandler serves the voice-profile CRUD surface.
type VoiceHandler struct {
	speech    *speech.Service
	broadcast Broadcaster
	logger    *zap.Logger
}

func NewVoiceHandler(speechSvc *speech.Service, broadcast Broadcaster, logger *zap.Logger) *VoiceHandler {
	return &VoiceHandler{speech: speechSvc, broadcast: broadcast, logger: logger}
}

// List handles GET /v1/voices, with optional ?q= substring search.
func (h *VoiceHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	var summaries []entities.VoiceSummary
	var err error
	if query := c.QueryParam("q"); query != "" {
		summaries, err = h.speech.SearchVoices(ctx, query)
	} else {
		summaries, err = h.speech.ListVoices(ctx)
	}
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return handleSuccess(c, http.StatusOK, presenter.VoiceSummaries(summaries))
}

// Get handles GET /v1/voices/:voice_name
func (h *VoiceHandler) Get(c echo.Context) error {
	profile, err := h.speech.GetVoice(c.Request().Context(), c.Param("voice_name"))
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return handleSuccess(c, http.StatusOK, presenter.VoiceSummary(profile))
}

// Enroll handles POST /v1/voices: multipart form with the reference
// recording in the "audio" file field.
func (h *VoiceHandler) Enroll(c echo.Context) error {
	var req dto.EnrollRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, h.logger, errors.ErrValidation("invalid form data"))
	}
	if err := c.Validate(&req); err != nil {
		return handleError(c, h.logger, errors.ErrValidation(err.Error()))
	}

	file, err := c.FormFile("audio")
	if err != nil {
		return handleError(c, h.logger, errors.ErrValidation("audio file is required"))
	}
	src, err := file.Open()
	if err != nil {
		return handleError(c, h.logger, errors.ErrInternal(err))
	}
	defer src.Close()
	audio, err := io.ReadAll(src)
	if err != nil {
		return handleError(c, h.logger, errors.ErrInternal(err))
	}

	profile, err := h.speech.EnrollVoice(c.Request().Context(), speech.EnrollInput{
		VoiceName:        req.VoiceName,
		Audio:            audio,
		Description:      req.Description,
		Language:         req.Language,
		OriginalFilename: file.Filename,
	})
	if err != nil {
		return handleError(c, h.logger, err)
	}

	if h.broadcast != nil {
		h.broadcast.Broadcast(wsproto.VoiceAddedEvent{
			Type:      wsproto.MsgVoiceAdded,
			VoiceName: profile.VoiceName,
			Language:  req.Language,
		})
	}
	return handleSuccess(c, http.StatusCreated, presenter.VoiceSummary(profile))
}

// UpdateMetadata handles PATCH /v1/voices/:voice_name
func (h *VoiceHandler) UpdateMetadata(c echo.Context) error {
	var req dto.UpdateMetadataRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, h.logger, errors.ErrValidation("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return handleError(c, h.logger, errors.ErrValidation(err.Error()))
	}
	name := c.Param("voice_name")
	if err := h.speech.UpdateVoiceMetadata(c.Request().Context(), name, req.Metadata); err != nil {
		return handleError(c, h.logger, err)
	}
	return handleSuccess(c, http.StatusOK, map[string]string{"voice_name": name})
}

// Delete handles DELETE /v1/voices/:voice_name
func (h *VoiceHandler) Delete(c echo.Context) error {
	name := c.Param("voice_name")
	if err := h.speech.DeleteVoice(c.Request().Context(), name); err != nil {
		return handleError(c, h.logger, err)
	}
	return handleSuccess(c, http.StatusOK, map[string]string{"voice_name": name})
}
