package handler

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	wsproto "github.com/anishvdev/voiceforge/internal/adapter/ws"
	"github.com/anishvdev/voiceforge/internal/domain/entities"
	"github.com/anishvdev/voiceforge/internal/streaming"
	"github.com/anishvdev/voiceforge/internal/usecase/speech"
	"github.com/anishvdev/voiceforge/internal/usecase/synthesis"
	"github.com/anishvdev/voiceforge/pkg/validator"
)

type memVoiceRepo struct {
	profiles map[string]*entities.VoiceProfile
}

func newMemVoiceRepo() *memVoiceRepo {
	return &memVoiceRepo{profiles: make(map[string]*entities.VoiceProfile)}
}

func (r *memVoiceRepo) Save(_ context.Context, p *entities.VoiceProfile) error {
	r.profiles[p.VoiceName] = p
	return nil
}

func (r *memVoiceRepo) Get(_ context.Context, name string) (*entities.VoiceProfile, error) {
	p, ok := r.profiles[name]
	if !ok {
		return nil, entities.ErrVoiceNotFound
	}
	return p, nil
}

func (r *memVoiceRepo) List(_ context.Context) ([]*entities.VoiceProfile, error) {
	out := make([]*entities.VoiceProfile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}
	return out, nil
}

func (r *memVoiceRepo) Search(_ context.Context, _ string) ([]*entities.VoiceProfile, error) {
	return r.List(context.Background())
}

func (r *memVoiceRepo) UpdateMetadata(_ context.Context, name string, md map[string]interface{}) error {
	p, ok := r.profiles[name]
	if !ok {
		return entities.ErrVoiceNotFound
	}
	p.Metadata = md
	return nil
}

func (r *memVoiceRepo) Delete(_ context.Context, name string) error {
	if _, ok := r.profiles[name]; !ok {
		return entities.ErrVoiceNotFound
	}
	delete(r.profiles, name)
	return nil
}

type memArtifacts struct{}

func (memArtifacts) UploadAudio(_ context.Context, objectName string, _ []byte, _ string) (string, error) {
	return objectName, nil
}

type recordingBroadcaster struct {
	events []interface{}
}

func (b *recordingBroadcaster) Broadcast(v interface{}) {
	b.events = append(b.events, v)
}

func newEnrollForm(t *testing.T, voiceName, language string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("voice_name", voiceName); err != nil {
		t.Fatal(err)
	}
	if language != "" {
		if err := mw.WriteField("language", language); err != nil {
			t.Fatal(err)
		}
	}
	fw, err := mw.CreateFormFile("audio", "reference.wav")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(bytes.Repeat([]byte{0x42}, 32*1024)); err != nil {
		t.Fatal(err)
	}
	mw.Close()
	return &body, mw.FormDataContentType()
}

func TestEnroll_BroadcastsVoiceAdded(t *testing.T) {
	svc := speech.NewService(
		newMemVoiceRepo(),
		nil,
		synthesis.NewMockEngine("mock"),
		memArtifacts{},
		streaming.NewScheduler(streaming.SchedulerConfig{MaxConcurrent: 1}),
		streaming.NewRegistry(),
		streaming.NewChunker(200),
		zap.NewNop(),
	)
	broadcaster := &recordingBroadcaster{}
	h := NewVoiceHandler(svc, broadcaster, zap.NewNop())

	e := echo.New()
	e.Validator = validator.New()
	body, contentType := newEnrollForm(t, "priya", "hinglish")
	req := httptest.NewRequest(http.MethodPost, "/v1/voices", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()

	if err := h.Enroll(e.NewContext(req, rec)); err != nil {
		t.Fatalf("enroll: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(broadcaster.events) != 1 {
		t.Fatalf("expected 1 broadcast, got %d", len(broadcaster.events))
	}
	ev, ok := broadcaster.events[0].(wsproto.VoiceAddedEvent)
	if !ok {
		t.Fatalf("unexpected broadcast payload %T", broadcaster.events[0])
	}
	if ev.Type != wsproto.MsgVoiceAdded || ev.VoiceName != "priya" || ev.Language != "hinglish" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestEnroll_ValidationFailureDoesNotBroadcast(t *testing.T) {
	svc := speech.NewService(
		newMemVoiceRepo(),
		nil,
		synthesis.NewMockEngine("mock"),
		memArtifacts{},
		streaming.NewScheduler(streaming.SchedulerConfig{MaxConcurrent: 1}),
		streaming.NewRegistry(),
		streaming.NewChunker(200),
		zap.NewNop(),
	)
	broadcaster := &recordingBroadcaster{}
	h := NewVoiceHandler(svc, broadcaster, zap.NewNop())

	e := echo.New()
	e.Validator = validator.New()
	body, contentType := newEnrollForm(t, "", "hinglish")
	req := httptest.NewRequest(http.MethodPost, "/v1/voices", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()

	if err := h.Enroll(e.NewContext(req, rec)); err != nil {
		t.Fatalf("enroll: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(broadcaster.events) != 0 {
		t.Fatalf("expected no broadcast, got %d", len(broadcaster.events))
	}
}
