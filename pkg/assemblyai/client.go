package assemblyai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"speech-coach/config"
)

// Transcript statuses reported by the provider.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// HTTPError is a non-2xx answer from the provider.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("assemblyai http %d: %s", e.StatusCode, e.Body)
}

type Word struct {
	Text       string  `json:"text"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Confidence float64 `json:"confidence"`
}

// Transcript is the provider's job record: submission returns it with just
// an id and a queued status, later fetches fill in the rest.
type Transcript struct {
	ID                       string          `json:"id"`
	Status                   string          `json:"status"`
	Text                     string          `json:"text"`
	Words                    []Word          `json:"words"`
	AudioDuration            float64         `json:"audio_duration"`
	SentimentAnalysisResults json.RawMessage `json:"sentiment_analysis_results"`
	Error                    string          `json:"error"`
}

type submitRequest struct {
	AudioURL          string  `json:"audio_url"`
	SentimentAnalysis bool    `json:"sentiment_analysis"`
	FilterProfanity   bool    `json:"filter_profanity"`
	SpeechThreshold   float64 `json:"speech_threshold"`
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(cfg config.Transcription) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Submit sends the audio for transcription with sentiment metadata and
// returns the provider's transcript id. Transport and 5xx failures are
// retried briefly; a 4xx rejection is returned as-is.
func (c *Client) Submit(ctx context.Context, audioURL string) (string, error) {
	body, err := json.Marshal(submitRequest{
		AudioURL:          audioURL,
		SentimentAnalysis: true,
		FilterProfanity:   false,
		SpeechThreshold:   0.2,
	})
	if err != nil {
		return "", err
	}

	operation := func() (*Transcript, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/transcript", bytes.NewReader(body))
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("Authorization", c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		transcript, err := c.do(req)
		if err != nil {
			var httpErr *HTTPError
			if errors.As(err, &httpErr) && httpErr.StatusCode < 500 {
				return nil, backoff.Permanent(err)
			}
			zerolog.Ctx(ctx).Error().Err(err).Msg("transcript submission failed, retrying")
			return nil, err
		}
		return transcript, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = 5 * time.Second
	transcript, err := backoff.Retry(ctx, operation, backoff.WithBackOff(bo), backoff.WithMaxTries(3))
	if err != nil {
		return "", err
	}

	return transcript.ID, nil
}

// Get fetches the transcript job by id. A non-2xx answer comes back as
// *HTTPError so the caller can surface the status code.
func (c *Client) Get(ctx context.Context, id string) (*Transcript, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/transcript/"+id, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", c.apiKey)

	return c.do(req)
}

func (c *Client) do(req *http.Request) (*Transcript, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	transcript := &Transcript{}
	if err := json.Unmarshal(raw, transcript); err != nil {
		return nil, fmt.Errorf("decode transcript response: %w", err)
	}
	return transcript, nil
}
