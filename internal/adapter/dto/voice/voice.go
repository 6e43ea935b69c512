package voice

// EnrollRequest is the metadata half of the multipart enrollment form; the
// audio file arrives as the "audio" form file.
type EnrollRequest struct {
	VoiceName   string `form:"voice_name" validate:"required,voicename"`
	Description string `form:"description" validate:"max=500"`
	Language    string `form:"language" validate:"max=32"`
}

// UpdateMetadataRequest replaces a profile's metadata map.
type UpdateMetadataRequest struct {
	Metadata map[string]interface{} `json:"metadata" validate:"required"`
}

// GenerateRequest is a one-shot REST synthesis request.
type GenerateRequest struct {
	VoiceName    string `json:"voice_name" validate:"required,voicename"`
	Text         string `json:"text" validate:"required,max=5000"`
	OutputFormat string `json:"output_format" validate:"omitempty,oneof=wav mp3 flac ogg"`
}

// SummaryResponse is a voice profile without its feature payload.
type SummaryResponse struct {
	VoiceName string                 `json:"voice_name"`
	AudioPath string                 `json:"audio_path,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt string                 `json:"created_at"`
	UpdatedAt string                 `json:"updated_at"`
}

// GenerateResponse reports a finished one-shot synthesis.
type GenerateResponse struct {
	VoiceName      string  `json:"voice_name"`
	AudioFile      string  `json:"audio_file"`
	GenerationTime float64 `json:"generation_time"`
	EngineUsed     string  `json:"engine_used,omitempty"`
}
