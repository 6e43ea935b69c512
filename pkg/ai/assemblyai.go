package ai

import (
	"bytes"
	"context"
	"fmt"
	"os"

	aai "github.com/AssemblyAI/assemblyai-go-sdk"

	"github.com/anishvdev/voiceforge/pkg/config"
)

// TranscriptionResult is the engine-agnostic speech-to-text output
type TranscriptionResult struct {
	Text       string
	Confidence float64
	Language   string
}

// AssemblyAIClient wraps the AssemblyAI SDK behind the transcription
// contract: audio bytes in, transcript plus confidence out.
type AssemblyAIClient struct {
	client *aai.Client
}

// NewAssemblyAIClient creates an AssemblyAI client using the provided config.
// If cfg is nil, falls back to environment variables.
func NewAssemblyAIClient(cfg *config.AssemblyAIConfig) *AssemblyAIClient {
	var apiKey, baseURL string
	if cfg != nil {
		apiKey = cfg.APIKey
		baseURL = cfg.BaseURL
	}
	if apiKey == "" {
		apiKey = os.Getenv("ASSEMBLYAI_API_KEY")
	}

	opts := []aai.ClientOption{aai.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, aai.WithBaseURL(baseURL))
	}
	return &AssemblyAIClient{client: aai.NewClientWithOptions(opts...)}
}

// Transcribe uploads the audio bytes and waits for the finished transcript.
// langHint is advisory: when empty, automatic language detection is used.
func (c *AssemblyAIClient) Transcribe(ctx context.Context, audio []byte, format, langHint string) (*TranscriptionResult, error) {
	params := &aai.TranscriptOptionalParams{}
	if langHint == "" {
		params.LanguageDetection = aai.Bool(true)
	} else {
		params.LanguageCode = aai.TranscriptLanguageCode(langHint)
	}

	transcript, err := c.client.Transcripts.TranscribeFromReader(ctx, bytes.NewReader(audio), params)
	if err != nil {
		return nil, fmt.Errorf("assemblyai transcription failed: %w", err)
	}
	if transcript.Status == aai.TranscriptStatusError {
		return nil, fmt.Errorf("assemblyai transcription failed: %s", aai.ToString(transcript.Error))
	}

	result := &TranscriptionResult{
		Text:       aai.ToString(transcript.Text),
		Confidence: aai.ToFloat64(transcript.Confidence),
		Language:   string(transcript.LanguageCode),
	}
	if result.Language == "" {
		result.Language = langHint
	}
	return result, nil
}
