package chat

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/anishvdev/voiceforge/errors"
	"github.com/anishvdev/voiceforge/internal/domain/entities"
	"github.com/anishvdev/voiceforge/internal/domain/repositories"
	"github.com/anishvdev/voiceforge/internal/usecase/speech"
	"github.com/anishvdev/voiceforge/internal/usecase/stt"
)

// FallbackReply is spoken when the responder backend is unavailable. The
// turn still completes: the apology is stored and voiced like any reply.
const FallbackReply = "Sorry, mujhe abhi jawab dene mein dikkat ho rahi hai. Thodi der baad phir se try karein."

// historyWindow is how many prior turns the responder sees.
const historyWindow = 5

// Turn is one entry of the responder's context window.
type Turn struct {
	Role    string
	Content string
}

// Responder produces the assistant's reply from the recent turns.
type Responder interface {
	Respond(ctx context.Context, turns []Turn) (string, error)
}

// SpeechToText transcribes chat audio input. *stt.Service satisfies it.
type SpeechToText interface {
	Transcribe(ctx context.Context, audio []byte, format, langHint string) (*stt.Result, error)
}

// Speaker voices the assistant's reply. *speech.Service satisfies it.
type Speaker interface {
	Generate(ctx context.Context, in speech.GenerateInput) (*speech.GenerateResult, error)
}

// ProgressFunc reports coarse progress of a chat turn, percent in [0,100].
type ProgressFunc func(stage string, percent int)

// TurnInput is one user turn: text, or audio to be transcribed first.
type TurnInput struct {
	ConnID         string
	ConversationID uuid.UUID
	UserID         string
	Text           string
	AudioData      []byte
	AudioFormat    string
	VoiceName      string
	Language       string
}

// TurnResult is the completed assistant turn.
type TurnResult struct {
	ConversationID     uuid.UUID
	AssistantMessageID uuid.UUID
	UserText           string
	ResponseText       string
	AudioFile          string
	VoiceUsed          string
	Transcription      *stt.Result
}

// ConversationView is a conversation with its messages loaded.
type ConversationView struct {
	Conversation *entities.Conversation
	Messages     []*entities.Message
	MessageCount int
}

// Service runs the conversational loop: transcribe, persist, respond,
// voice. Synthesis failures degrade a turn to text-only rather than
// failing it.
type Service struct {
	conversations repositories.ConversationRepository
	responder     Responder
	transcriber   SpeechToText
	speaker       Speaker
	logger        *zap.Logger
}

func NewService(
	conversations repositories.ConversationRepository,
	responder Responder,
	transcriber SpeechToText,
	speaker Speaker,
	logger *zap.Logger,
) *Service {
	return &Service{
		conversations: conversations,
		responder:     responder,
		transcriber:   transcriber,
		speaker:       speaker,
		logger:        logger,
	}
}

// StartConversation creates a conversation, applying defaults for any
// omitted field.
func (s *Service) StartConversation(ctx context.Context, userID, title, language string) (*entities.Conversation, error) {
	conv := entities.NewConversation(userID, title, language, nil)
	if err := s.conversations.CreateConversation(ctx, conv); err != nil {
		return nil, errors.ErrStore("create conversation", err)
	}
	s.logger.Info("conversation started",
		zap.String("conversation_id", conv.ID.String()),
		zap.String("user_id", conv.UserID),
		zap.String("language", conv.Language),
	)
	return conv, nil
}

// ListConversations returns the user's active conversations, newest first.
func (s *Service) ListConversations(ctx context.Context, userID string, limit int) ([]*entities.Conversation, error) {
	if userID == "" {
		userID = entities.DefaultUserID
	}
	convs, err := s.conversations.ListConversations(ctx, userID, limit)
	if err != nil {
		return nil, errors.ErrStore("list conversations", err)
	}
	return convs, nil
}

// GetConversation returns a conversation together with its messages.
func (s *Service) GetConversation(ctx context.Context, id uuid.UUID) (*ConversationView, error) {
	conv, err := s.conversations.GetConversation(ctx, id)
	if err != nil {
		if err == entities.ErrConversationNotFound {
			return nil, errors.ErrNotFound("conversation")
		}
		return nil, errors.ErrStore("get conversation", err)
	}
	msgs, err := s.conversations.ListMessages(ctx, id, 0)
	if err != nil {
		return nil, errors.ErrStore("list messages", err)
	}
	return &ConversationView{Conversation: conv, Messages: msgs, MessageCount: len(msgs)}, nil
}

// DeleteConversation soft-deletes a conversation. Deleting twice succeeds.
func (s *Service) DeleteConversation(ctx context.Context, id uuid.UUID) error {
	if err := s.conversations.SoftDeleteConversation(ctx, id); err != nil {
		if err == entities.ErrConversationNotFound {
			return errors.ErrNotFound("conversation")
		}
		return errors.ErrStore("delete conversation", err)
	}
	return nil
}

// Turn runs one full chat turn. Progress is reported at fixed stages so
// clients can render a pipeline: input accepted, reply ready, voicing,
// done.
func (s *Service) Turn(ctx context.Context, in TurnInput, progress ProgressFunc) (*TurnResult, error) {
	if progress == nil {
		progress = func(string, int) {}
	}
	progress("processing input", 20)

	userText := in.Text
	var transcription *stt.Result
	if len(in.AudioData) > 0 {
		tr, err := s.transcriber.Transcribe(ctx, in.AudioData, in.AudioFormat, in.Language)
		if err != nil {
			return nil, err
		}
		transcription = tr
		userText = tr.Text
	}
	if userText == "" {
		return nil, errors.ErrValidation("message must contain text or audio_data")
	}

	conv, err := s.resolveConversation(ctx, in)
	if err != nil {
		return nil, err
	}

	userMsg := entities.NewMessage(conv.ID, entities.RoleUser, userText)
	if err := s.conversations.AppendMessage(ctx, userMsg); err != nil {
		if err == entities.ErrConversationNotFound {
			return nil, errors.ErrNotFound("conversation")
		}
		return nil, errors.ErrStore("append message", err)
	}
	if transcription != nil {
		t := entities.NewTranscript(userMsg.ID, transcription.Text, transcription.Confidence, transcription.Language)
		if err := s.conversations.AttachTranscript(ctx, t); err != nil {
			// The turn proceeds on stored text; losing the transcript row
			// only costs provenance.
			s.logger.Warn("transcript attach failed",
				zap.String("message_id", userMsg.ID.String()), zap.Error(err))
		}
	}

	progress("generating reply", 50)
	replyText := s.respond(ctx, conv.ID)

	progress("synthesizing voice", 75)
	assistantMsg := entities.NewMessage(conv.ID, entities.RoleAssistant, replyText)
	assistantMsg.VoiceUsed = in.VoiceName

	var audioFile string
	if in.VoiceName != "" {
		result, err := s.speaker.Generate(ctx, speech.GenerateInput{
			ConnID:    in.ConnID,
			VoiceName: in.VoiceName,
			Text:      replyText,
			Format:    "wav",
		})
		if err != nil {
			// Degrade to a text-only turn.
			s.logger.Warn("chat voice synthesis failed",
				zap.String("voice_name", in.VoiceName), zap.Error(err))
		} else {
			audioFile = result.AudioFile
			assistantMsg.AudioPath = result.AudioFile
		}
	}
	if err := s.conversations.AppendMessage(ctx, assistantMsg); err != nil {
		return nil, errors.ErrStore("append message", err)
	}

	return &TurnResult{
		ConversationID:     conv.ID,
		AssistantMessageID: assistantMsg.ID,
		UserText:           userText,
		ResponseText:       replyText,
		AudioFile:          audioFile,
		VoiceUsed:          in.VoiceName,
		Transcription:      transcription,
	}, nil
}

// resolveConversation finds the target conversation, creating one with
// defaults when the client did not name one.
func (s *Service) resolveConversation(ctx context.Context, in TurnInput) (*entities.Conversation, error) {
	if in.ConversationID == uuid.Nil {
		return s.StartConversation(ctx, in.UserID, "", in.Language)
	}
	conv, err := s.conversations.GetConversation(ctx, in.ConversationID)
	if err != nil {
		if err == entities.ErrConversationNotFound {
			return nil, errors.ErrNotFound("conversation")
		}
		return nil, errors.ErrStore("get conversation", err)
	}
	return conv, nil
}

// respond builds the recent-turns window and asks the responder. A failing
// responder yields the canned apology so the turn still completes.
func (s *Service) respond(ctx context.Context, conversationID uuid.UUID) string {
	msgs, err := s.conversations.ListMessages(ctx, conversationID, 2*historyWindow)
	if err != nil {
		s.logger.Warn("history load failed",
			zap.String("conversation_id", conversationID.String()), zap.Error(err))
		return FallbackReply
	}
	if len(msgs) > historyWindow {
		msgs = msgs[len(msgs)-historyWindow:]
	}
	turns := make([]Turn, 0, len(msgs))
	for _, m := range msgs {
		turns = append(turns, Turn{Role: string(m.Role), Content: m.Content})
	}

	reply, err := s.responder.Respond(ctx, turns)
	if err != nil {
		s.logger.Warn("responder failed",
			zap.String("conversation_id", conversationID.String()), zap.Error(err))
		return FallbackReply
	}
	return reply
}
