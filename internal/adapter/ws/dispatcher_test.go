package ws

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/anishvdev/voiceforge/errors"
	"github.com/anishvdev/voiceforge/internal/domain/entities"
	"github.com/anishvdev/voiceforge/internal/streaming"
	"github.com/anishvdev/voiceforge/internal/usecase/chat"
	"github.com/anishvdev/voiceforge/internal/usecase/speech"
	"github.com/anishvdev/voiceforge/internal/usecase/stt"
	"github.com/anishvdev/voiceforge/internal/usecase/synthesis"
	"github.com/anishvdev/voiceforge/pkg/ai"
)

// recorder is a Sender that captures outbound events for assertions.
type recorder struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	events []interface{}
	ch     chan interface{}
}

func newRecorder() *recorder {
	ctx, cancel := context.WithCancel(context.Background())
	return &recorder{ctx: ctx, cancel: cancel, ch: make(chan interface{}, 64)}
}

func (r *recorder) Context() context.Context { return r.ctx }
func (r *recorder) ConnID() string           { return "conn-test" }
func (r *recorder) ClientID() string         { return "client-test" }

func (r *recorder) Send(v interface{}) {
	r.mu.Lock()
	r.events = append(r.events, v)
	r.mu.Unlock()
	r.ch <- v
}

// next blocks for the next event or fails the test.
func (r *recorder) next(t *testing.T) interface{} {
	t.Helper()
	select {
	case ev := <-r.ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for an event")
		return nil
	}
}

// expectNone asserts no further event arrives within the window.
func (r *recorder) expectNone(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case ev := <-r.ch:
		t.Fatalf("unexpected event: %#v", ev)
	case <-time.After(d):
	}
}

type wsVoiceRepo struct {
	mu       sync.Mutex
	profiles map[string]*entities.VoiceProfile
}

func (r *wsVoiceRepo) Save(ctx context.Context, p *entities.VoiceProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.VoiceName] = p
	return nil
}

func (r *wsVoiceRepo) Get(ctx context.Context, name string) (*entities.VoiceProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[name]
	if !ok {
		return nil, entities.ErrVoiceNotFound
	}
	return p, nil
}

func (r *wsVoiceRepo) List(ctx context.Context) ([]*entities.VoiceProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entities.VoiceProfile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}
	return out, nil
}

func (r *wsVoiceRepo) Search(ctx context.Context, query string) ([]*entities.VoiceProfile, error) {
	return r.List(ctx)
}

func (r *wsVoiceRepo) UpdateMetadata(ctx context.Context, name string, metadata map[string]interface{}) error {
	return nil
}

func (r *wsVoiceRepo) Delete(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[name]; !ok {
		return entities.ErrVoiceNotFound
	}
	delete(r.profiles, name)
	return nil
}

type wsConvRepo struct {
	mu            sync.Mutex
	conversations map[uuid.UUID]*entities.Conversation
	messages      map[uuid.UUID][]*entities.Message
}

func newWsConvRepo() *wsConvRepo {
	return &wsConvRepo{
		conversations: make(map[uuid.UUID]*entities.Conversation),
		messages:      make(map[uuid.UUID][]*entities.Message),
	}
}

func (r *wsConvRepo) CreateConversation(ctx context.Context, conv *entities.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conversations[conv.ID] = conv
	return nil
}

func (r *wsConvRepo) GetConversation(ctx context.Context, id uuid.UUID) (*entities.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.conversations[id]
	if !ok {
		return nil, entities.ErrConversationNotFound
	}
	return conv, nil
}

func (r *wsConvRepo) ListConversations(ctx context.Context, userID string, limit int) ([]*entities.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.Conversation
	for _, conv := range r.conversations {
		if conv.IsActive && conv.UserID == userID {
			out = append(out, conv)
		}
	}
	return out, nil
}

func (r *wsConvRepo) SoftDeleteConversation(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if conv, ok := r.conversations[id]; ok {
		conv.IsActive = false
	}
	return nil
}

func (r *wsConvRepo) AppendMessage(ctx context.Context, msg *entities.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conversations[msg.ConversationID]; !ok {
		return entities.ErrConversationNotFound
	}
	r.messages[msg.ConversationID] = append(r.messages[msg.ConversationID], msg)
	return nil
}

func (r *wsConvRepo) ListMessages(ctx context.Context, id uuid.UUID, limit int) ([]*entities.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.messages[id], nil
}

func (r *wsConvRepo) AttachTranscript(ctx context.Context, transcript *entities.Transcript) error {
	return nil
}

type wsArtifacts struct{}

func (wsArtifacts) UploadAudio(ctx context.Context, objectName string, data []byte, format string) (string, error) {
	return objectName, nil
}

type wsResponder struct {
	delay time.Duration
	reply string
}

func (r *wsResponder) Respond(ctx context.Context, turns []chat.Turn) (string, error) {
	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return r.reply, nil
}

type wsTranscriber struct{}

func (wsTranscriber) Transcribe(ctx context.Context, audio []byte, format, langHint string) (*ai.TranscriptionResult, error) {
	return &ai.TranscriptionResult{Text: "heard you", Confidence: 0.9, Language: "hi"}, nil
}

func newTestDispatcher(responder chat.Responder) (*Dispatcher, *streaming.Registry, *streaming.Scheduler) {
	logger := zap.NewNop()
	voiceRepo := &wsVoiceRepo{profiles: map[string]*entities.VoiceProfile{
		"priya": entities.NewVoiceProfile("priya", []byte(`{"f":1}`), "voice_priya.wav", nil),
	}}
	scheduler := streaming.NewScheduler(streaming.SchedulerConfig{MaxConcurrent: 2, Policy: streaming.OverflowReject})
	registry := streaming.NewRegistry()
	speechSvc := speech.NewService(voiceRepo, nil, synthesis.NewMockEngine("mock"), wsArtifacts{},
		scheduler, registry, streaming.NewChunker(25), logger)
	sttSvc := stt.NewService(wsTranscriber{}, logger)
	chatSvc := chat.NewService(newWsConvRepo(), responder, sttSvc, speechSvc, logger)
	return NewDispatcher(speechSvc, chatSvc, sttSvc, registry, logger), registry, scheduler
}

func frame(t *testing.T, v map[string]interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func TestDispatch_Ping(t *testing.T) {
	d, _, _ := newTestDispatcher(&wsResponder{reply: "hi"})
	rec := newRecorder()

	d.Dispatch(rec, frame(t, map[string]interface{}{"type": "ping"}))
	if _, ok := rec.next(t).(PongEvent); !ok {
		t.Fatalf("expected pong, got %#v", rec.events)
	}
}

func TestDispatch_UnknownType(t *testing.T) {
	d, _, _ := newTestDispatcher(&wsResponder{reply: "hi"})
	rec := newRecorder()

	d.Dispatch(rec, frame(t, map[string]interface{}{"type": "sing_a_song"}))
	ev, ok := rec.next(t).(ErrorEvent)
	if !ok {
		t.Fatalf("expected error event, got %#v", rec.events)
	}
	if ev.Code != string(errors.ErrorCode_VALIDATION) {
		t.Fatalf("expected VALIDATION, got %s", ev.Code)
	}
	rec.expectNone(t, 100*time.Millisecond)
}

func TestDispatch_MissingType(t *testing.T) {
	d, _, _ := newTestDispatcher(&wsResponder{reply: "hi"})
	rec := newRecorder()

	d.Dispatch(rec, []byte(`{"text":"no type"}`))
	ev, ok := rec.next(t).(ErrorEvent)
	if !ok || !strings.Contains(ev.Message, "type") {
		t.Fatalf("expected missing-type error, got %#v", rec.events)
	}
}

func TestDispatch_InvalidJSON(t *testing.T) {
	d, _, _ := newTestDispatcher(&wsResponder{reply: "hi"})
	rec := newRecorder()

	d.Dispatch(rec, []byte(`{not json`))
	if _, ok := rec.next(t).(ErrorEvent); !ok {
		t.Fatalf("expected error event, got %#v", rec.events)
	}
}

func TestDispatch_GenerateSpeechValidation(t *testing.T) {
	d, _, _ := newTestDispatcher(&wsResponder{reply: "hi"})
	rec := newRecorder()

	d.Dispatch(rec, frame(t, map[string]interface{}{"type": "generate_speech", "text": "hello"}))
	ev, ok := rec.next(t).(ErrorEvent)
	if !ok || ev.Code != string(errors.ErrorCode_VALIDATION) {
		t.Fatalf("expected validation error, got %#v", rec.events)
	}
	rec.expectNone(t, 100*time.Millisecond)
}

func TestDispatch_GenerateSpeechUnknownVoice(t *testing.T) {
	d, registry, _ := newTestDispatcher(&wsResponder{reply: "hi"})
	rec := newRecorder()

	d.Dispatch(rec, frame(t, map[string]interface{}{
		"type": "generate_speech", "voice_name": "ghost", "text": "Hi",
	}))
	ev, ok := rec.next(t).(ErrorEvent)
	if !ok || ev.Code != string(errors.ErrorCode_NOT_FOUND) {
		t.Fatalf("expected not-found error, got %#v", rec.events)
	}
	// Exactly one error, no speech_generated, no lingering session.
	rec.expectNone(t, 100*time.Millisecond)
	if registry.Count() != 0 {
		t.Fatalf("expected no sessions, got %d", registry.Count())
	}
}

func TestDispatch_GenerateSpeechSuccess(t *testing.T) {
	d, _, _ := newTestDispatcher(&wsResponder{reply: "hi"})
	rec := newRecorder()

	d.Dispatch(rec, frame(t, map[string]interface{}{
		"type": "generate_speech", "voice_name": "priya", "text": "Hello there",
	}))

	var generated *SpeechGeneratedEvent
	for generated == nil {
		switch ev := rec.next(t).(type) {
		case ProgressEvent:
		case SpeechGeneratedEvent:
			generated = &ev
		default:
			t.Fatalf("unexpected event %#v", ev)
		}
	}
	if generated.VoiceName != "priya" || generated.Text != "Hello there" {
		t.Fatalf("unexpected payload %#v", generated)
	}
	if !strings.HasPrefix(generated.AudioFile, "/v1/audio/") {
		t.Fatalf("unexpected audio reference %s", generated.AudioFile)
	}
}

func TestDispatch_RealtimeFlow(t *testing.T) {
	d, _, scheduler := newTestDispatcher(&wsResponder{reply: "hi"})
	rec := newRecorder()

	d.Dispatch(rec, frame(t, map[string]interface{}{
		"type":       "generate_speech_realtime",
		"voice_name": "priya",
		"text":       "First sentence goes here. Second one follows it! A third rounds it out?",
	}))

	started, ok := rec.next(t).(RealtimeStartedEvent)
	if !ok {
		t.Fatalf("expected realtime_started first, got %#v", rec.events)
	}
	if started.EstimatedChunks < 2 {
		t.Fatalf("expected multiple chunks, got %d", started.EstimatedChunks)
	}

	for i := 1; i <= started.EstimatedChunks; i++ {
		chunk, ok := rec.next(t).(RealtimeProgressEvent)
		if !ok {
			t.Fatalf("expected realtime_progress %d, got %#v", i, rec.events)
		}
		if chunk.ChunkNumber != i {
			t.Fatalf("expected chunk %d, got %d", i, chunk.ChunkNumber)
		}
		if chunk.TotalChunks != started.EstimatedChunks {
			t.Fatalf("total drifted: %d != %d", chunk.TotalChunks, started.EstimatedChunks)
		}
		if final := i == started.EstimatedChunks; chunk.IsFinal != final {
			t.Fatalf("chunk %d is_final=%v", i, chunk.IsFinal)
		}
	}

	complete, ok := rec.next(t).(RealtimeCompleteEvent)
	if !ok {
		t.Fatalf("expected realtime_complete, got %#v", rec.events)
	}
	if complete.TotalChunks != started.EstimatedChunks {
		t.Fatalf("completion total %d != %d", complete.TotalChunks, started.EstimatedChunks)
	}
	rec.expectNone(t, 100*time.Millisecond)
	if scheduler.InFlight() != 0 {
		t.Fatal("ticket not released after realtime job")
	}
}

func TestDispatch_ConversationLifecycle(t *testing.T) {
	d, _, _ := newTestDispatcher(&wsResponder{reply: "namaste"})
	rec := newRecorder()

	d.Dispatch(rec, frame(t, map[string]interface{}{
		"type": "start_conversation", "title": "T", "language": "hinglish",
	}))
	startedEv, ok := rec.next(t).(ConversationStartedEvent)
	if !ok {
		t.Fatalf("expected conversation_started, got %#v", rec.events)
	}
	if startedEv.Title != "T" || startedEv.Language != "hinglish" {
		t.Fatalf("unexpected payload %#v", startedEv)
	}
	if _, err := uuid.Parse(startedEv.ConversationID); err != nil {
		t.Fatalf("conversation_id is not a generated id: %v", err)
	}

	d.Dispatch(rec, frame(t, map[string]interface{}{
		"type":            "chat_message",
		"conversation_id": startedEv.ConversationID,
		"message":         "Hello",
	}))
	var response *ChatResponseEvent
	for response == nil {
		switch ev := rec.next(t).(type) {
		case ChatProgressEvent:
		case ChatResponseEvent:
			response = &ev
		default:
			t.Fatalf("unexpected event %#v", ev)
		}
	}
	if response.UserMessage != "Hello" {
		t.Fatalf("expected user_message echoed, got %q", response.UserMessage)
	}
	if response.AssistantMessage != "namaste" {
		t.Fatalf("unexpected assistant message %q", response.AssistantMessage)
	}

	// Deleting twice yields the same event both times.
	for i := 0; i < 2; i++ {
		d.Dispatch(rec, frame(t, map[string]interface{}{
			"type": "delete_conversation", "conversation_id": startedEv.ConversationID,
		}))
		deleted, ok := rec.next(t).(ConversationDeletedEvent)
		if !ok {
			t.Fatalf("delete %d: expected conversation_deleted, got %#v", i, rec.events)
		}
		if deleted.ConversationID != startedEv.ConversationID {
			t.Fatalf("delete %d: wrong id %s", i, deleted.ConversationID)
		}
	}
}

func TestDispatch_PingNotBlockedByChat(t *testing.T) {
	d, _, _ := newTestDispatcher(&wsResponder{reply: "slow hi", delay: 300 * time.Millisecond})
	rec := newRecorder()

	d.Dispatch(rec, frame(t, map[string]interface{}{"type": "chat_message", "message": "Hello"}))
	d.Dispatch(rec, frame(t, map[string]interface{}{"type": "ping"}))

	// The pong must arrive before the chat response does.
	deadline := time.After(2 * time.Second)
	for {
		var ev interface{}
		select {
		case ev = <-rec.ch:
		case <-deadline:
			t.Fatal("timed out waiting for pong")
		}
		switch ev.(type) {
		case PongEvent:
			return
		case ChatResponseEvent:
			t.Fatal("chat response arrived before pong")
		}
	}
}

func TestDispatch_SpeechToText(t *testing.T) {
	d, _, _ := newTestDispatcher(&wsResponder{reply: "hi"})
	rec := newRecorder()

	d.Dispatch(rec, frame(t, map[string]interface{}{
		"type":       "speech_to_text",
		"audio_data": "AAECAwQ=",
		"format":     "wav",
	}))

	// Both progress stages arrive before the transcript, in order.
	var percents []int
	var result *STTResultEvent
	for result == nil {
		switch ev := rec.next(t).(type) {
		case STTProgressEvent:
			percents = append(percents, ev.Progress)
		case STTResultEvent:
			result = &ev
		default:
			t.Fatalf("unexpected event %#v", ev)
		}
	}
	if len(percents) != 2 || percents[0] != 30 || percents[1] != 70 {
		t.Fatalf("expected progress 30 then 70 before the result, got %v", percents)
	}
	if result.Transcript != "heard you" {
		t.Fatalf("unexpected transcript %q", result.Transcript)
	}
}

func TestDispatch_StartConversationDefaultsToClient(t *testing.T) {
	d, _, _ := newTestDispatcher(&wsResponder{reply: "hi"})
	rec := newRecorder()

	// No user_id: the conversation belongs to the connecting client and
	// must show up in that client's default listing.
	d.Dispatch(rec, frame(t, map[string]interface{}{
		"type": "start_conversation", "title": "T",
	}))
	startedEv, ok := rec.next(t).(ConversationStartedEvent)
	if !ok {
		t.Fatalf("expected conversation_started, got %#v", rec.events)
	}

	d.Dispatch(rec, frame(t, map[string]interface{}{"type": "list_conversations"}))
	list, ok := rec.next(t).(ConversationsListEvent)
	if !ok {
		t.Fatalf("expected conversations_list, got %#v", rec.events)
	}
	if list.Count != 1 {
		t.Fatalf("expected the new conversation listed, got count %d", list.Count)
	}
	if list.Conversations[0].ID.String() != startedEv.ConversationID {
		t.Fatalf("listed %s, started %s", list.Conversations[0].ID, startedEv.ConversationID)
	}
}

func TestDispatch_SpeechToTextBadBase64(t *testing.T) {
	d, _, _ := newTestDispatcher(&wsResponder{reply: "hi"})
	rec := newRecorder()

	d.Dispatch(rec, frame(t, map[string]interface{}{
		"type":       "speech_to_text",
		"audio_data": "!!! not base64 !!!",
		"format":     "wav",
	}))
	ev, ok := rec.next(t).(ErrorEvent)
	if !ok || ev.Code != string(errors.ErrorCode_VALIDATION) {
		t.Fatalf("expected validation error, got %#v", rec.events)
	}
}

func TestDispatch_ClosedConnectionSuppressesErrors(t *testing.T) {
	d, _, _ := newTestDispatcher(&wsResponder{reply: "hi"})
	rec := newRecorder()
	rec.cancel()

	d.Dispatch(rec, frame(t, map[string]interface{}{
		"type": "generate_speech", "voice_name": "ghost", "text": "Hi",
	}))
	rec.expectNone(t, 150*time.Millisecond)
}

func TestDispatch_ListVoices(t *testing.T) {
	d, _, _ := newTestDispatcher(&wsResponder{reply: "hi"})
	rec := newRecorder()

	d.Dispatch(rec, frame(t, map[string]interface{}{"type": "list_voices"}))
	ev, ok := rec.next(t).(VoiceListEvent)
	if !ok {
		t.Fatalf("expected voice_list, got %#v", rec.events)
	}
	if len(ev.Voices) != 1 || ev.Voices[0].VoiceName != "priya" {
		t.Fatalf("unexpected voices %#v", ev.Voices)
	}
}

func TestDispatch_EventTypesOnWire(t *testing.T) {
	// The discriminator must round-trip for every outbound event.
	events := []interface{}{
		PongEvent{Type: MsgPong},
		ErrorEvent{Type: MsgError, Message: "m"},
		RealtimeStartedEvent{Type: MsgRealtimeStarted},
	}
	for _, ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			t.Fatalf("marshal %#v: %v", ev, err)
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if env.Type == "" {
			t.Fatalf("event %#v lost its type on the wire: %s", ev, string(data))
		}
	}
}
