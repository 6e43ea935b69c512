package ws

import (
	"github.com/anishvdev/voiceforge/internal/domain/entities"
)

// Inbound message types. Every client frame is a JSON object whose "type"
// field selects exactly one of these.
const (
	MsgListVoices         = "list_voices"
	MsgGenerateSpeech     = "generate_speech"
	MsgGenerateRealtime   = "generate_speech_realtime"
	MsgGetVoiceProfile    = "get_voice_profile"
	MsgStartConversation  = "start_conversation"
	MsgChatMessage        = "chat_message"
	MsgSpeechToText       = "speech_to_text"
	MsgListConversations  = "list_conversations"
	MsgGetConversation    = "get_conversation"
	MsgDeleteConversation = "delete_conversation"
	MsgPing               = "ping"
)

// Outbound message types.
const (
	MsgVoiceList           = "voice_list"
	MsgProgress            = "progress"
	MsgSpeechGenerated     = "speech_generated"
	MsgRealtimeStarted     = "realtime_started"
	MsgRealtimeProgress    = "realtime_progress"
	MsgRealtimeComplete    = "realtime_complete"
	MsgVoiceProfile        = "voice_profile"
	MsgConversationStarted = "conversation_started"
	MsgChatProgress        = "chat_progress"
	MsgChatResponse        = "chat_response"
	MsgSTTProgress         = "stt_progress"
	MsgSTTResult           = "stt_result"
	MsgConversationsList   = "conversations_list"
	MsgConversationDetails = "conversation_details"
	MsgConversationDeleted = "conversation_deleted"
	MsgVoiceAdded          = "voice_added"
	MsgError               = "error"
	MsgPong                = "pong"
)

// Envelope carries only the discriminator; the payload is re-decoded into
// the matching request struct.
type Envelope struct {
	Type string `json:"type"`
}

// Inbound payloads.

type GenerateSpeechRequest struct {
	VoiceName    string `json:"voice_name"`
	Text         string `json:"text"`
	OutputFormat string `json:"output_format"`
}

type GenerateRealtimeRequest struct {
	VoiceName string `json:"voice_name"`
	Text      string `json:"text"`
}

type GetVoiceProfileRequest struct {
	VoiceName string `json:"voice_name"`
}

type StartConversationRequest struct {
	UserID   string                 `json:"user_id"`
	Title    string                 `json:"title"`
	Language string                 `json:"language"`
	Metadata map[string]interface{} `json:"metadata"`
}

type ChatMessageRequest struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
	VoiceName      string `json:"voice_name"`
	AudioData      string `json:"audio_data"`
	Format         string `json:"format"`
}

type SpeechToTextRequest struct {
	AudioData string `json:"audio_data"`
	Format    string `json:"format"`
	Language  string `json:"language"`
}

type ListConversationsRequest struct {
	UserID string `json:"user_id"`
	Limit  int    `json:"limit"`
}

type GetConversationRequest struct {
	ConversationID string `json:"conversation_id"`
}

type DeleteConversationRequest struct {
	ConversationID string `json:"conversation_id"`
}

// Outbound events.

type VoiceListEvent struct {
	Type   string                  `json:"type"`
	Voices []entities.VoiceSummary `json:"voices"`
}

type ProgressEvent struct {
	Type     string `json:"type"`
	Progress int    `json:"progress"`
	Message  string `json:"message"`
}

type SpeechGeneratedEvent struct {
	Type           string  `json:"type"`
	VoiceName      string  `json:"voice_name"`
	Text           string  `json:"text"`
	AudioFile      string  `json:"audio_file"`
	GenerationTime float64 `json:"generation_time"`
}

type RealtimeStartedEvent struct {
	Type            string `json:"type"`
	VoiceName       string `json:"voice_name"`
	EstimatedChunks int    `json:"estimated_chunks"`
}

type RealtimeProgressEvent struct {
	Type        string `json:"type"`
	ChunkNumber int    `json:"chunk_number"`
	TotalChunks int    `json:"total_chunks"`
	AudioFile   string `json:"audio_file"`
	TextChunk   string `json:"text_chunk"`
	IsFinal     bool   `json:"is_final"`
}

type RealtimeCompleteEvent struct {
	Type        string `json:"type"`
	TotalChunks int    `json:"total_chunks"`
	VoiceName   string `json:"voice_name"`
}

type VoiceProfileEvent struct {
	Type      string                `json:"type"`
	VoiceName string                `json:"voice_name"`
	Profile   entities.VoiceSummary `json:"profile"`
}

type ConversationStartedEvent struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id"`
	Title          string `json:"title"`
	Language       string `json:"language"`
}

type ChatProgressEvent struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Progress int    `json:"progress"`
}

type ChatResponseEvent struct {
	Type             string `json:"type"`
	ConversationID   string `json:"conversation_id"`
	UserMessage      string `json:"user_message"`
	AssistantMessage string `json:"assistant_message"`
	AudioFile        string `json:"audio_file,omitempty"`
	VoiceUsed        string `json:"voice_used,omitempty"`
	MessageID        string `json:"message_id"`
}

type STTProgressEvent struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Progress int    `json:"progress"`
}

type STTResultEvent struct {
	Type           string  `json:"type"`
	Transcript     string  `json:"transcript"`
	Confidence     float64 `json:"confidence"`
	Language       string  `json:"language"`
	ProcessingTime float64 `json:"processing_time"`
}

type ConversationsListEvent struct {
	Type          string                   `json:"type"`
	Conversations []*entities.Conversation `json:"conversations"`
	Count         int                      `json:"count"`
}

type ConversationDetailsEvent struct {
	Type         string                 `json:"type"`
	Conversation *entities.Conversation `json:"conversation"`
	Messages     []*entities.Message    `json:"messages"`
	MessageCount int                    `json:"message_count"`
}

type ConversationDeletedEvent struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id"`
}

// VoiceAddedEvent is broadcast to every connected client when a new voice
// profile is enrolled.
type VoiceAddedEvent struct {
	Type      string `json:"type"`
	VoiceName string `json:"voice_name"`
	Language  string `json:"language,omitempty"`
}

type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type PongEvent struct {
	Type string `json:"type"`
}
