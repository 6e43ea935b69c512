package speech

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/anishvdev/voiceforge/errors"
	"github.com/anishvdev/voiceforge/internal/domain/entities"
	"github.com/anishvdev/voiceforge/internal/domain/repositories"
	"github.com/anishvdev/voiceforge/internal/infrastructure/cache"
	"github.com/anishvdev/voiceforge/internal/streaming"
	"github.com/anishvdev/voiceforge/internal/usecase/synthesis"
	"github.com/anishvdev/voiceforge/pkg/jobcontext"
)

// ArtifactStore persists generated audio and returns a stable object name.
type ArtifactStore interface {
	UploadAudio(ctx context.Context, objectName string, data []byte, format string) (string, error)
}

// GenerateInput is a one-shot synthesis request. Progress, when set, is
// called with coarse percentages as the job moves through its stages.
type GenerateInput struct {
	ConnID    string
	VoiceName string
	Text      string
	Format    string
	Progress  func(stage string, percent int)
}

// GenerateResult reports a finished one-shot synthesis.
type GenerateResult struct {
	AudioFile      string
	GenerationTime float64
	EngineUsed     string
}

// RealtimeInput is a chunked streaming synthesis request.
type RealtimeInput struct {
	ConnID    string
	VoiceName string
	Text      string
}

// ChunkEvent reports one generated chunk of a realtime job.
type ChunkEvent struct {
	ChunkNumber int
	TotalChunks int
	AudioFile   string
	TextChunk   string
	IsFinal     bool
}

// RealtimeSink receives the ordered progress events of one realtime job.
// Events are emitted from the single goroutine driving the session.
type RealtimeSink interface {
	Started(voiceName string, totalChunks int)
	Chunk(ev ChunkEvent)
	Completed(voiceName string, totalChunks int)
}

// EnrollInput carries a voice enrollment: the reference recording plus
// descriptive metadata.
type EnrollInput struct {
	VoiceName        string
	Audio            []byte
	Format           string
	Description      string
	Language         string
	OriginalFilename string
}

// Service orchestrates voice enrollment and one-shot and realtime speech
// generation. Admission, session bookkeeping and artifact storage all live
// here; transports stay thin.
type Service struct {
	voices    repositories.VoiceRepository
	cache     *cache.VoiceProfileCache
	engine    synthesis.Engine
	artifacts ArtifactStore
	scheduler *streaming.Scheduler
	sessions  *streaming.Registry
	chunker   *streaming.Chunker
	logger    *zap.Logger
}

// NewService wires the speech service.
func NewService(
	voices repositories.VoiceRepository,
	profileCache *cache.VoiceProfileCache,
	engine synthesis.Engine,
	artifacts ArtifactStore,
	scheduler *streaming.Scheduler,
	sessions *streaming.Registry,
	chunker *streaming.Chunker,
	logger *zap.Logger,
) *Service {
	return &Service{
		voices:    voices,
		cache:     profileCache,
		engine:    engine,
		artifacts: artifacts,
		scheduler: scheduler,
		sessions:  sessions,
		chunker:   chunker,
		logger:    logger,
	}
}

// Sessions exposes the session registry so the connection layer can cancel
// everything a disconnecting client owns.
func (s *Service) Sessions() *streaming.Registry {
	return s.sessions
}

// ListVoices returns summaries of all enrolled voices.
func (s *Service) ListVoices(ctx context.Context) ([]entities.VoiceSummary, error) {
	profiles, err := s.voices.List(ctx)
	if err != nil {
		return nil, errors.ErrStore("list voices", err)
	}
	summaries := make([]entities.VoiceSummary, 0, len(profiles))
	for _, p := range profiles {
		summaries = append(summaries, p.Summary())
	}
	return summaries, nil
}

// SearchVoices returns summaries of voices matching the query substring.
func (s *Service) SearchVoices(ctx context.Context, query string) ([]entities.VoiceSummary, error) {
	profiles, err := s.voices.Search(ctx, query)
	if err != nil {
		return nil, errors.ErrStore("search voices", err)
	}
	summaries := make([]entities.VoiceSummary, 0, len(profiles))
	for _, p := range profiles {
		summaries = append(summaries, p.Summary())
	}
	return summaries, nil
}

// GetVoice fetches a profile through the read-through cache.
func (s *Service) GetVoice(ctx context.Context, voiceName string) (*entities.VoiceProfile, error) {
	if s.cache != nil {
		if profile := s.cache.Get(ctx, voiceName); profile != nil {
			return profile, nil
		}
	}
	profile, err := s.voices.Get(ctx, voiceName)
	if err != nil {
		if err == entities.ErrVoiceNotFound {
			return nil, errors.ErrNotFound(fmt.Sprintf("voice profile '%s'", voiceName))
		}
		return nil, errors.ErrStore("get voice", err)
	}
	if s.cache != nil {
		s.cache.Set(ctx, profile)
	}
	return profile, nil
}

// allowed enrollment formats, matching what the cloning backends accept.
var allowedAudioExts = map[string]bool{
	".wav": true, ".mp3": true, ".m4a": true, ".flac": true, ".ogg": true,
}

const minEnrollmentBytes = 16 * 1024

// EnrollVoice validates the reference recording, extracts the speaker
// feature payload and persists the profile.
func (s *Service) EnrollVoice(ctx context.Context, in EnrollInput) (*entities.VoiceProfile, error) {
	if in.VoiceName == "" {
		return nil, errors.ErrValidation("voice_name is required")
	}
	ext := strings.ToLower(filepath.Ext(in.OriginalFilename))
	if ext == "" {
		ext = "." + strings.ToLower(in.Format)
	}
	if !allowedAudioExts[ext] {
		return nil, errors.ErrValidation(fmt.Sprintf("unsupported audio format: %s", in.OriginalFilename))
	}
	if len(in.Audio) < minEnrollmentBytes {
		return nil, errors.ErrValidation("reference audio too short for enrollment")
	}

	objectName := fmt.Sprintf("voice_%s_%s%s", in.VoiceName, shortID(), ext)
	audioPath, err := s.artifacts.UploadAudio(ctx, objectName, in.Audio, strings.TrimPrefix(ext, "."))
	if err != nil {
		return nil, errors.ErrStore("store reference audio", err)
	}

	features, err := s.engine.ExtractFeatures(ctx, in.Audio, strings.TrimPrefix(ext, "."))
	if err != nil {
		return nil, errors.ErrEngine("synthesis", err)
	}

	profile := entities.NewVoiceProfile(in.VoiceName, datatypes.JSON(features), audioPath, map[string]interface{}{
		"description":       in.Description,
		"language":          in.Language,
		"original_filename": in.OriginalFilename,
		"file_size":         len(in.Audio),
	})
	if err := s.voices.Save(ctx, profile); err != nil {
		return nil, errors.ErrStore("save voice profile", err)
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, in.VoiceName)
	}

	s.logger.Info("voice enrolled",
		zap.String("voice_name", in.VoiceName),
		zap.Int("audio_bytes", len(in.Audio)),
	)
	return profile, nil
}

// UpdateVoiceMetadata replaces a profile's metadata map only.
func (s *Service) UpdateVoiceMetadata(ctx context.Context, voiceName string, metadata map[string]interface{}) error {
	if err := s.voices.UpdateMetadata(ctx, voiceName, metadata); err != nil {
		if err == entities.ErrVoiceNotFound {
			return errors.ErrNotFound(fmt.Sprintf("voice profile '%s'", voiceName))
		}
		return errors.ErrStore("update voice metadata", err)
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, voiceName)
	}
	return nil
}

// DeleteVoice removes a profile permanently.
func (s *Service) DeleteVoice(ctx context.Context, voiceName string) error {
	if err := s.voices.Delete(ctx, voiceName); err != nil {
		if err == entities.ErrVoiceNotFound {
			return errors.ErrNotFound(fmt.Sprintf("voice profile '%s'", voiceName))
		}
		return errors.ErrStore("delete voice", err)
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, voiceName)
	}
	return nil
}

// Generate runs one single-shot synthesis job under a scheduler ticket.
func (s *Service) Generate(ctx context.Context, in GenerateInput) (*GenerateResult, error) {
	report := in.Progress
	if report == nil {
		report = func(string, int) {}
	}

	profile, err := s.GetVoice(ctx, in.VoiceName)
	if err != nil {
		// No ticket held and no session allocated on the not-found path.
		return nil, err
	}
	report("voice profile loaded", 20)

	ticket, err := s.admit(ctx)
	if err != nil {
		return nil, err
	}
	defer ticket.Release()

	jobCtx, cancel := jobcontext.Begin(ctx, uuid.New(), string(streaming.KindSingle), in.ConnID)
	defer cancel()

	session := streaming.NewSession(jobCtx, in.ConnID, streaming.KindSingle)
	s.sessions.Add(session)
	defer func() {
		s.sessions.Remove(session)
		session.Close()
	}()

	session.To(streaming.StateGenerating)
	report("generating speech", 50)
	started := time.Now()
	artifact, err := s.engine.Synthesize(session.Context(), synthesis.Request{
		Text:     in.Text,
		Features: profile.VoiceFeatures,
		Format:   in.Format,
	})
	if err != nil {
		if session.Cancelled() {
			session.To(streaming.StateCancelled)
			return nil, err
		}
		session.To(streaming.StateFailed)
		return nil, errors.ErrEngine("synthesis", err)
	}
	if session.Cancelled() {
		// The connection went away while the engine was busy; discard.
		session.To(streaming.StateCancelled)
		return nil, context.Canceled
	}

	session.To(streaming.StateStreaming)
	report("storing audio", 75)
	objectName := fmt.Sprintf("generated_%s_%s.%s", in.VoiceName, shortID(), artifact.Format)
	if _, err := s.artifacts.UploadAudio(session.Context(), objectName, artifact.Audio, artifact.Format); err != nil {
		session.To(streaming.StateFailed)
		return nil, errors.ErrStore("store generated audio", err)
	}

	session.To(streaming.StateCompleted)
	report("complete", 100)
	elapsed := time.Since(started).Seconds()
	s.logger.Info("speech generated",
		zap.String("voice_name", in.VoiceName),
		zap.String("engine", artifact.EngineUsed),
		zap.Float64("generation_time", elapsed),
	)
	return &GenerateResult{
		AudioFile:      artifactPath(objectName),
		GenerationTime: elapsed,
		EngineUsed:     artifact.EngineUsed,
	}, nil
}

// GenerateRealtime runs one chunked streaming job, emitting ordered events
// into sink. A disconnect mid-job cancels the session: already delivered
// chunks stand, no further chunks are started, and no error is reported to
// the gone client.
func (s *Service) GenerateRealtime(ctx context.Context, in RealtimeInput, sink RealtimeSink) error {
	profile, err := s.GetVoice(ctx, in.VoiceName)
	if err != nil {
		return err
	}

	ticket, err := s.admit(ctx)
	if err != nil {
		return err
	}
	defer ticket.Release()

	jobCtx, cancel := jobcontext.Begin(ctx, uuid.New(), string(streaming.KindRealtime), in.ConnID)
	defer cancel()

	session := streaming.NewSession(jobCtx, in.ConnID, streaming.KindRealtime)
	s.sessions.Add(session)
	defer func() {
		s.sessions.Remove(session)
		session.Close()
	}()

	session.To(streaming.StateChunking)
	chunks, err := s.chunker.Split(in.Text)
	if err != nil {
		session.To(streaming.StateFailed)
		return errors.ErrValidation("text must not be empty")
	}
	session.SetChunks(chunks)
	total := len(chunks)

	// Report the chunk count before the first unit is generated so the
	// client can render current/total progress.
	sink.Started(in.VoiceName, total)

	for {
		num, chunkText, ok := session.CurrentChunk()
		if !ok {
			break
		}
		if session.Cancelled() {
			session.To(streaming.StateCancelled)
			s.logCancelled(session, num-1, total)
			return nil
		}

		session.To(streaming.StateGenerating)
		artifact, err := s.engine.Synthesize(session.Context(), synthesis.Request{
			Text:     chunkText,
			Features: profile.VoiceFeatures,
			Format:   "wav",
		})
		if err != nil {
			if session.Cancelled() {
				session.To(streaming.StateCancelled)
				s.logCancelled(session, num-1, total)
				return nil
			}
			session.To(streaming.StateFailed)
			// Chunks already delivered are not retracted.
			return errors.ErrEngine("synthesis", err).
				WithDetail("chunk", fmt.Sprintf("%d/%d", num, total))
		}
		if session.Cancelled() {
			// Result arrived after disconnect; discard it.
			session.To(streaming.StateCancelled)
			s.logCancelled(session, num-1, total)
			return nil
		}

		objectName := fmt.Sprintf("realtime_%s_%s_%d.wav", in.VoiceName, in.ConnID, num)
		if _, err := s.artifacts.UploadAudio(session.Context(), objectName, artifact.Audio, artifact.Format); err != nil {
			session.To(streaming.StateFailed)
			return errors.ErrStore("store audio chunk", err).
				WithDetail("chunk", fmt.Sprintf("%d/%d", num, total))
		}

		session.To(streaming.StateStreaming)
		sink.Chunk(ChunkEvent{
			ChunkNumber: num,
			TotalChunks: total,
			AudioFile:   artifactPath(objectName),
			TextChunk:   chunkText,
			IsFinal:     num == total,
		})
		session.Advance()
	}

	session.To(streaming.StateCompleted)
	sink.Completed(in.VoiceName, total)
	s.logger.Info("realtime generation completed",
		zap.String("voice_name", in.VoiceName),
		zap.Int("total_chunks", total),
		zap.Duration("elapsed", jobcontext.Elapsed(jobCtx)),
	)
	return nil
}

// admit converts scheduler refusals into capacity errors clients can
// distinguish.
func (s *Service) admit(ctx context.Context) (*streaming.Ticket, error) {
	ticket, err := s.scheduler.Admit(ctx)
	if err != nil {
		switch err {
		case streaming.ErrOverloaded:
			return nil, errors.ErrCapacity("generation limit reached")
		case streaming.ErrQueueFull:
			return nil, errors.ErrCapacity("generation queue full")
		default:
			return nil, err
		}
	}
	return ticket, nil
}

func (s *Service) logCancelled(session *streaming.Session, delivered, total int) {
	s.logger.Info("session cancelled",
		zap.String("session_id", session.ID.String()),
		zap.String("conn_id", session.ConnID),
		zap.Int("chunks_delivered", delivered),
		zap.Int("total_chunks", total),
	)
}

func artifactPath(objectName string) string {
	return "/v1/audio/" + objectName
}

func shortID() string {
	return uuid.New().String()[:8]
}
