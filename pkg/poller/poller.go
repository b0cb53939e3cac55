package poller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"speech-coach/dto"
	"speech-coach/entities"
)

// ErrAnalysisFailed means the server reported a terminal error, or a poll
// request itself failed. The analysis keeps its server-side state.
var ErrAnalysisFailed = errors.New("analysis failed")

// ErrTimeout means the wall-clock ceiling elapsed before a terminal
// result. The analysis may still complete server-side; a later poll can
// observe it.
var ErrTimeout = errors.New("analysis polling timed out")

type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StatePolling    State = "polling"
	StateComplete   State = "complete"
	StateFailed     State = "failed"
	StateTimedOut   State = "timed_out"
)

const (
	defaultInterval = 5 * time.Second
	defaultTimeout  = 3 * time.Minute
)

type Options struct {
	BaseURL    string
	Interval   time.Duration
	Timeout    time.Duration
	HTTPClient *http.Client
	// OnProgress is invoked with the server status on each intermediate
	// poll result.
	OnProgress func(status string)
}

// Client drives one recording's analysis from the outside: submit, then
// poll at a fixed interval until a terminal result, the wall-clock
// ceiling, or context cancellation, whichever comes first.
type Client struct {
	baseURL    string
	interval   time.Duration
	timeout    time.Duration
	http       *http.Client
	onProgress func(status string)

	mu    sync.Mutex
	state State
}

func New(opts Options) *Client {
	interval := opts.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		interval:   interval,
		timeout:    timeout,
		http:       httpClient,
		onProgress: opts.OnProgress,
		state:      StateIdle,
	}
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Analyze submits the recording and polls to a terminal state. Ticker and
// deadline are released on every exit path, including cancellation.
func (c *Client) Analyze(ctx context.Context, recordingID uuid.UUID) (*entities.Analysis, error) {
	c.setState(StateSubmitting)
	if err := c.submit(ctx, recordingID); err != nil {
		c.setState(StateFailed)
		return nil, err
	}

	c.setState(StatePolling)
	if c.onProgress != nil {
		c.onProgress("processing")
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	deadline := time.NewTimer(c.timeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			c.setState(StateFailed)
			return nil, ctx.Err()
		case <-deadline.C:
			c.setState(StateTimedOut)
			return nil, ErrTimeout
		case <-ticker.C:
			result, err := c.poll(ctx, recordingID)
			if err != nil {
				c.setState(StateFailed)
				return nil, fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
			}
			switch result.Status {
			case "complete":
				c.setState(StateComplete)
				return result.Data, nil
			case "error":
				c.setState(StateFailed)
				return nil, fmt.Errorf("%w: %s", ErrAnalysisFailed, result.Error)
			default:
				if c.onProgress != nil {
					c.onProgress(result.Status)
				}
			}
		}
	}
}

func (c *Client) submit(ctx context.Context, recordingID uuid.UUID) error {
	body, err := json.Marshal(dto.SubmitRequest{RecordingID: recordingID})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/analyses", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("submit http %d: %s", resp.StatusCode, string(raw))
	}
	return nil
}

func (c *Client) poll(ctx context.Context, recordingID uuid.UUID) (*dto.PollResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/analyses/poll?recording_id="+recordingID.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("poll http %d", resp.StatusCode)
	}

	result := &dto.PollResponse{}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return nil, fmt.Errorf("decode poll response: %w", err)
	}
	return result, nil
}
