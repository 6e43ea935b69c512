package stt

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/anishvdev/voiceforge/errors"
	"github.com/anishvdev/voiceforge/pkg/ai"
)

// Transcriber turns raw audio into text. *ai.AssemblyAIClient satisfies it.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, format, langHint string) (*ai.TranscriptionResult, error)
}

// Result is a finished transcription with timing attached.
type Result struct {
	Text           string
	Confidence     float64
	Language       string
	ProcessingTime float64
}

// Service runs speech-to-text requests.
type Service struct {
	transcriber Transcriber
	logger      *zap.Logger
}

func NewService(transcriber Transcriber, logger *zap.Logger) *Service {
	return &Service{transcriber: transcriber, logger: logger}
}

// Transcribe converts audio into text. The language hint is passed through
// to the engine; when empty the engine auto-detects.
func (s *Service) Transcribe(ctx context.Context, audio []byte, format, langHint string) (*Result, error) {
	if len(audio) == 0 {
		return nil, errors.ErrValidation("audio_data must not be empty")
	}

	started := time.Now()
	tr, err := s.transcriber.Transcribe(ctx, audio, format, langHint)
	if err != nil {
		return nil, errors.ErrEngine("stt", err)
	}
	elapsed := time.Since(started).Seconds()

	s.logger.Info("transcription completed",
		zap.Int("audio_bytes", len(audio)),
		zap.String("language", tr.Language),
		zap.Float64("processing_time", elapsed),
	)
	return &Result{
		Text:           tr.Text,
		Confidence:     tr.Confidence,
		Language:       tr.Language,
		ProcessingTime: elapsed,
	}, nil
}
