package ws

import (
	"context"
	"encoding/base64"
	"encoding/json"
	stdErrors "errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/anishvdev/voiceforge/errors"
	"github.com/anishvdev/voiceforge/internal/infrastructure/ws"
	"github.com/anishvdev/voiceforge/internal/streaming"
	"github.com/anishvdev/voiceforge/internal/usecase/chat"
	"github.com/anishvdev/voiceforge/internal/usecase/speech"
	"github.com/anishvdev/voiceforge/internal/usecase/stt"
	"github.com/anishvdev/voiceforge/pkg/validator"
)

// Sender is the dispatcher's view of one connection. *ws.Conn satisfies it;
// tests substitute a recorder.
type Sender interface {
	Context() context.Context
	Send(v interface{})
	ConnID() string
	ClientID() string
}

// Dispatcher routes inbound frames to the matching operation and turns
// results and failures into outbound events. Long-running operations run in
// their own goroutine so a ping arriving behind a chat turn is still
// answered promptly; ping itself is handled inline on the reader goroutine.
type Dispatcher struct {
	speech   *speech.Service
	chat     *chat.Service
	stt      *stt.Service
	sessions *streaming.Registry
	logger   *zap.Logger
}

func NewDispatcher(
	speechSvc *speech.Service,
	chatSvc *chat.Service,
	sttSvc *stt.Service,
	sessions *streaming.Registry,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		speech:   speechSvc,
		chat:     chatSvc,
		stt:      sttSvc,
		sessions: sessions,
		logger:   logger,
	}
}

// OnConnect implements ws.Handler.
func (d *Dispatcher) OnConnect(c *ws.Conn) {}

// HandleMessage implements ws.Handler.
func (d *Dispatcher) HandleMessage(c *ws.Conn, data []byte) {
	d.Dispatch(c, data)
}

// OnDisconnect implements ws.Handler: every session the connection owns is
// cancelled so in-flight jobs stop and their tickets come back.
func (d *Dispatcher) OnDisconnect(c *ws.Conn) {
	if n := d.sessions.CancelConn(c.ConnID()); n > 0 {
		d.logger.Info("cancelled sessions for closed connection",
			zap.String("conn_id", c.ConnID()),
			zap.Int("sessions", n),
		)
	}
}

// Dispatch decodes one frame and routes it. Unknown or malformed frames
// produce a single error event; the connection stays open.
func (d *Dispatcher) Dispatch(s Sender, data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		d.sendError(s, errors.ErrValidation("invalid JSON message"))
		return
	}
	if env.Type == "" {
		d.sendError(s, errors.ErrValidation("message is missing 'type'"))
		return
	}

	switch env.Type {
	case MsgPing:
		s.Send(PongEvent{Type: MsgPong})
	case MsgListVoices:
		go d.handleListVoices(s)
	case MsgGenerateSpeech:
		withPayload(d, s, data, func(req GenerateSpeechRequest) {
			go d.handleGenerateSpeech(s, req)
		})
	case MsgGenerateRealtime:
		withPayload(d, s, data, func(req GenerateRealtimeRequest) {
			go d.handleGenerateRealtime(s, req)
		})
	case MsgGetVoiceProfile:
		withPayload(d, s, data, func(req GetVoiceProfileRequest) {
			go d.handleGetVoiceProfile(s, req)
		})
	case MsgStartConversation:
		withPayload(d, s, data, func(req StartConversationRequest) {
			go d.handleStartConversation(s, req)
		})
	case MsgChatMessage:
		withPayload(d, s, data, func(req ChatMessageRequest) {
			go d.handleChatMessage(s, req)
		})
	case MsgSpeechToText:
		withPayload(d, s, data, func(req SpeechToTextRequest) {
			go d.handleSpeechToText(s, req)
		})
	case MsgListConversations:
		withPayload(d, s, data, func(req ListConversationsRequest) {
			go d.handleListConversations(s, req)
		})
	case MsgGetConversation:
		withPayload(d, s, data, func(req GetConversationRequest) {
			go d.handleGetConversation(s, req)
		})
	case MsgDeleteConversation:
		withPayload(d, s, data, func(req DeleteConversationRequest) {
			go d.handleDeleteConversation(s, req)
		})
	default:
		d.sendError(s, errors.ErrValidation("unknown message type: "+env.Type))
	}
}

// withPayload decodes the full frame into the request struct before the
// handler goroutine is started, so shape errors are reported in order.
func withPayload[T any](d *Dispatcher, s Sender, data []byte, run func(T)) {
	var req T
	if err := json.Unmarshal(data, &req); err != nil {
		d.sendError(s, errors.ErrValidation("malformed message payload"))
		return
	}
	run(req)
}

func (d *Dispatcher) handleListVoices(s Sender) {
	voices, err := d.speech.ListVoices(s.Context())
	if err != nil {
		d.sendError(s, err)
		return
	}
	s.Send(VoiceListEvent{Type: MsgVoiceList, Voices: voices})
}

func (d *Dispatcher) handleGenerateSpeech(s Sender, req GenerateSpeechRequest) {
	if err := requireVoiceAndText(req.VoiceName, req.Text); err != nil {
		d.sendError(s, err)
		return
	}
	format := req.OutputFormat
	if format == "" {
		format = "wav"
	}
	result, err := d.speech.Generate(s.Context(), speech.GenerateInput{
		ConnID:    s.ConnID(),
		VoiceName: req.VoiceName,
		Text:      req.Text,
		Format:    format,
		Progress: func(stage string, percent int) {
			s.Send(ProgressEvent{Type: MsgProgress, Progress: percent, Message: stage})
		},
	})
	if err != nil {
		d.sendError(s, err)
		return
	}
	s.Send(SpeechGeneratedEvent{
		Type:           MsgSpeechGenerated,
		VoiceName:      req.VoiceName,
		Text:           req.Text,
		AudioFile:      result.AudioFile,
		GenerationTime: result.GenerationTime,
	})
}

// realtimeSink forwards session progress onto the connection.
type realtimeSink struct {
	s Sender
}

func (r realtimeSink) Started(voiceName string, totalChunks int) {
	r.s.Send(RealtimeStartedEvent{
		Type:            MsgRealtimeStarted,
		VoiceName:       voiceName,
		EstimatedChunks: totalChunks,
	})
}

func (r realtimeSink) Chunk(ev speech.ChunkEvent) {
	r.s.Send(RealtimeProgressEvent{
		Type:        MsgRealtimeProgress,
		ChunkNumber: ev.ChunkNumber,
		TotalChunks: ev.TotalChunks,
		AudioFile:   ev.AudioFile,
		TextChunk:   ev.TextChunk,
		IsFinal:     ev.IsFinal,
	})
}

func (r realtimeSink) Completed(voiceName string, totalChunks int) {
	r.s.Send(RealtimeCompleteEvent{
		Type:        MsgRealtimeComplete,
		TotalChunks: totalChunks,
		VoiceName:   voiceName,
	})
}

func (d *Dispatcher) handleGenerateRealtime(s Sender, req GenerateRealtimeRequest) {
	if err := requireVoiceAndText(req.VoiceName, req.Text); err != nil {
		d.sendError(s, err)
		return
	}
	err := d.speech.GenerateRealtime(s.Context(), speech.RealtimeInput{
		ConnID:    s.ConnID(),
		VoiceName: req.VoiceName,
		Text:      req.Text,
	}, realtimeSink{s: s})
	if err != nil {
		d.sendError(s, err)
	}
}

func (d *Dispatcher) handleGetVoiceProfile(s Sender, req GetVoiceProfileRequest) {
	if req.VoiceName == "" {
		d.sendError(s, errors.ErrValidation("voice_name is required"))
		return
	}
	profile, err := d.speech.GetVoice(s.Context(), req.VoiceName)
	if err != nil {
		d.sendError(s, err)
		return
	}
	s.Send(VoiceProfileEvent{
		Type:      MsgVoiceProfile,
		VoiceName: profile.VoiceName,
		Profile:   profile.Summary(),
	})
}

func (d *Dispatcher) handleStartConversation(s Sender, req StartConversationRequest) {
	userID := req.UserID
	if userID == "" {
		userID = s.ClientID()
	}
	conv, err := d.chat.StartConversation(s.Context(), userID, req.Title, req.Language)
	if err != nil {
		d.sendError(s, err)
		return
	}
	s.Send(ConversationStartedEvent{
		Type:           MsgConversationStarted,
		ConversationID: conv.ID.String(),
		Title:          conv.Title,
		Language:       conv.Language,
	})
}

func (d *Dispatcher) handleChatMessage(s Sender, req ChatMessageRequest) {
	if req.Message == "" && req.AudioData == "" {
		d.sendError(s, errors.ErrValidation("chat_message requires 'message' or 'audio_data'"))
		return
	}
	conversationID, err := parseOptionalID(req.ConversationID)
	if err != nil {
		d.sendError(s, err)
		return
	}
	audio, err := decodeOptionalAudio(req.AudioData)
	if err != nil {
		d.sendError(s, err)
		return
	}

	result, err := d.chat.Turn(s.Context(), chat.TurnInput{
		ConnID:         s.ConnID(),
		ConversationID: conversationID,
		UserID:         s.ClientID(),
		Text:           req.Message,
		AudioData:      audio,
		AudioFormat:    defaultFormat(req.Format),
		VoiceName:      req.VoiceName,
	}, func(stage string, percent int) {
		s.Send(ChatProgressEvent{Type: MsgChatProgress, Message: stage, Progress: percent})
	})
	if err != nil {
		d.sendError(s, err)
		return
	}
	s.Send(ChatProgressEvent{Type: MsgChatProgress, Message: "complete", Progress: 100})
	s.Send(ChatResponseEvent{
		Type:             MsgChatResponse,
		ConversationID:   result.ConversationID.String(),
		UserMessage:      result.UserText,
		AssistantMessage: result.ResponseText,
		AudioFile:        result.AudioFile,
		VoiceUsed:        result.VoiceUsed,
		MessageID:        result.AssistantMessageID.String(),
	})
}

func (d *Dispatcher) handleSpeechToText(s Sender, req SpeechToTextRequest) {
	if req.AudioData == "" {
		d.sendError(s, errors.ErrValidation("audio_data is required"))
		return
	}
	audio, err := decodeOptionalAudio(req.AudioData)
	if err != nil {
		d.sendError(s, err)
		return
	}

	s.Send(STTProgressEvent{Type: MsgSTTProgress, Message: "decoding audio", Progress: 30})
	s.Send(STTProgressEvent{Type: MsgSTTProgress, Message: "transcribing audio", Progress: 70})
	result, err := d.stt.Transcribe(s.Context(), audio, defaultFormat(req.Format), req.Language)
	if err != nil {
		d.sendError(s, err)
		return
	}
	s.Send(STTResultEvent{
		Type:           MsgSTTResult,
		Transcript:     result.Text,
		Confidence:     result.Confidence,
		Language:       result.Language,
		ProcessingTime: result.ProcessingTime,
	})
}

func (d *Dispatcher) handleListConversations(s Sender, req ListConversationsRequest) {
	userID := req.UserID
	if userID == "" {
		userID = s.ClientID()
	}
	convs, err := d.chat.ListConversations(s.Context(), userID, req.Limit)
	if err != nil {
		d.sendError(s, err)
		return
	}
	s.Send(ConversationsListEvent{
		Type:          MsgConversationsList,
		Conversations: convs,
		Count:         len(convs),
	})
}

func (d *Dispatcher) handleGetConversation(s Sender, req GetConversationRequest) {
	id, err := requireID(req.ConversationID)
	if err != nil {
		d.sendError(s, err)
		return
	}
	view, err := d.chat.GetConversation(s.Context(), id)
	if err != nil {
		d.sendError(s, err)
		return
	}
	s.Send(ConversationDetailsEvent{
		Type:         MsgConversationDetails,
		Conversation: view.Conversation,
		Messages:     view.Messages,
		MessageCount: view.MessageCount,
	})
}

func (d *Dispatcher) handleDeleteConversation(s Sender, req DeleteConversationRequest) {
	id, err := requireID(req.ConversationID)
	if err != nil {
		d.sendError(s, err)
		return
	}
	if err := d.chat.DeleteConversation(s.Context(), id); err != nil {
		d.sendError(s, err)
		return
	}
	s.Send(ConversationDeletedEvent{
		Type:           MsgConversationDeleted,
		ConversationID: id.String(),
	})
}

// sendError translates any failure into exactly one error event. Nothing is
// sent when the connection is already gone; there is no one left to tell.
func (d *Dispatcher) sendError(s Sender, err error) {
	if s.Context().Err() != nil {
		return
	}
	var appErr errors.AppError
	if stdErrors.As(err, &appErr) {
		d.logger.Warn("request failed",
			zap.String("conn_id", s.ConnID()),
			zap.String("code", string(appErr.Code)),
			zap.Error(err),
		)
		s.Send(ErrorEvent{Type: MsgError, Message: appErr.Message, Code: string(appErr.Code)})
		return
	}
	if stdErrors.Is(err, context.Canceled) {
		return
	}
	d.logger.Error("request failed", zap.String("conn_id", s.ConnID()), zap.Error(err))
	s.Send(ErrorEvent{Type: MsgError, Message: "internal server error", Code: string(errors.ErrorCode_INTERNAL)})
}

func requireVoiceAndText(voiceName, text string) error {
	if voiceName == "" {
		return errors.ErrValidation("voice_name is required")
	}
	if !validator.ValidVoiceName(voiceName) {
		return errors.ErrValidation("voice_name contains invalid characters")
	}
	if text == "" {
		return errors.ErrValidation("text is required")
	}
	return nil
}

func requireID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, errors.ErrValidation("conversation_id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.ErrValidation("conversation_id is not a valid id")
	}
	return id, nil
}

func parseOptionalID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, nil
	}
	return requireID(raw)
}

func decodeOptionalAudio(raw string) ([]byte, error) {
	if raw == "" {
		return nil, nil
	}
	audio, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, errors.ErrValidation("audio_data is not valid base64")
	}
	return audio, nil
}

func defaultFormat(format string) string {
	if format == "" {
		return "wav"
	}
	return format
}
