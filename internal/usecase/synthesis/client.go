package synthesis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
)

// HTTPEngine talks to one voice-cloning backend over its JSON API.
// Connection-level failures are retried with exponential backoff inside the
// facade; the orchestration core never retries on its own.
type HTTPEngine struct {
	name         string
	baseURL      string
	client       *http.Client
	maxRetryWait time.Duration
}

var _ Engine = (*HTTPEngine)(nil)

// NewHTTPEngine creates a client for the cloning backend at baseURL.
func NewHTTPEngine(name, baseURL string, timeout, maxRetryWait time.Duration) *HTTPEngine {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPEngine{
		name:         name,
		baseURL:      baseURL,
		client:       &http.Client{Timeout: timeout},
		maxRetryWait: maxRetryWait,
	}
}

// Name returns the backend identifier used in logs and artifacts.
func (e *HTTPEngine) Name() string {
	return e.name
}

type ttsRequest struct {
	Text          string          `json:"text"`
	VoiceFeatures json.RawMessage `json:"voice_features"`
	Format        string          `json:"format,omitempty"`
}

type featuresRequest struct {
	Audio  []byte `json:"audio"`
	Format string `json:"format"`
}

type featuresResponse struct {
	Features json.RawMessage `json:"features"`
}

type backendErrorBody struct {
	Message string `json:"message"`
}

// Synthesize posts the text and speaker features, returning the raw audio.
func (e *HTTPEngine) Synthesize(ctx context.Context, req Request) (*Artifact, error) {
	format := req.Format
	if format == "" {
		format = "wav"
	}
	body, err := json.Marshal(ttsRequest{
		Text:          req.Text,
		VoiceFeatures: req.Features,
		Format:        format,
	})
	if err != nil {
		return nil, err
	}

	audio, err := e.post(ctx, "/v1/tts", body)
	if err != nil {
		return nil, err
	}
	return &Artifact{Audio: audio, Format: format, EngineUsed: e.name}, nil
}

// ExtractFeatures asks the backend to derive the reusable speaker payload
// from an enrollment recording.
func (e *HTTPEngine) ExtractFeatures(ctx context.Context, audio []byte, format string) ([]byte, error) {
	body, err := json.Marshal(featuresRequest{Audio: audio, Format: format})
	if err != nil {
		return nil, err
	}

	raw, err := e.post(ctx, "/v1/voice/features", body)
	if err != nil {
		return nil, err
	}
	var fr featuresResponse
	if err := json.Unmarshal(raw, &fr); err != nil {
		return nil, fmt.Errorf("invalid features response: %w", err)
	}
	if len(fr.Features) == 0 {
		return nil, fmt.Errorf("backend returned empty feature payload")
	}
	return fr.Features, nil
}

// Health checks whether the backend responds.
func (e *HTTPEngine) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/v1/health", nil)
	if err != nil {
		return err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &BackendError{StatusCode: resp.StatusCode, Message: "health check failed"}
	}
	return nil
}

// post sends a JSON body and returns the raw response bytes. Network errors
// are retried with exponential backoff; HTTP error statuses are not, since
// the backend already saw and rejected the request.
func (e *HTTPEngine) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	var result []byte

	attempt := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := e.client.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return backoff.Permanent(err)
		}
		if resp.StatusCode != http.StatusOK {
			var eb backendErrorBody
			_ = json.Unmarshal(raw, &eb)
			if eb.Message == "" {
				eb.Message = http.StatusText(resp.StatusCode)
			}
			return backoff.Permanent(&BackendError{StatusCode: resp.StatusCode, Message: eb.Message})
		}
		result = raw
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = e.maxRetryWait
	if err := backoff.Retry(attempt, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	return result, nil
}
