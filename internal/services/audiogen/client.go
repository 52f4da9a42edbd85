package audiogen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout       = 60 * time.Second
	defaultCompletionTimeout = 5 * time.Minute
	defaultPollInterval      = 2 * time.Second
)

// Job states reported by the provider.
const (
	JobPending    = "pending"
	JobProcessing = "processing"
	JobComplete   = "complete"
	JobFailed     = "failed"
)

// Config captures the runtime settings required to talk to the audio
// generation service.
type Config struct {
	APIKey            string
	BaseURL           string
	CompletionTimeout time.Duration
}

// Client wraps an asynchronous audio generation API.
type Client struct {
	cfg          Config
	httpClient   *http.Client
	pollInterval time.Duration
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithPollInterval overrides the job polling interval (for testing).
func WithPollInterval(interval time.Duration) Option {
	return func(c *Client) {
		if interval > 0 {
			c.pollInterval = interval
		}
	}
}

// NewClient constructs an audio generation client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	client := &Client{
		cfg: Config{
			APIKey:            strings.TrimSpace(cfg.APIKey),
			BaseURL:           strings.TrimSpace(cfg.BaseURL),
			CompletionTimeout: cfg.CompletionTimeout,
		},
		httpClient:   &http.Client{Timeout: defaultHTTPTimeout},
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.CompletionTimeout <= 0 {
		client.cfg.CompletionTimeout = defaultCompletionTimeout
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

type generationRequest struct {
	Prompt          string  `json:"prompt"`
	DurationSeconds float64 `json:"duration_seconds"`
}

type generationJob struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	AudioURL string `json:"audio_url"`
	Error    string `json:"error"`
}

// Generate submits a generation job for the prompt, waits for it to finish,
// and returns the produced audio. durationSeconds is a hint for the provider;
// the returned audio may be shorter or longer.
func (c *Client) Generate(ctx context.Context, prompt string, durationSeconds float64) ([]byte, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, errors.New("audiogen: prompt required")
	}
	if c.cfg.BaseURL == "" {
		return nil, errors.New("audiogen: base url required")
	}

	job, err := c.submit(ctx, prompt, durationSeconds)
	if err != nil {
		return nil, err
	}

	job, err = c.waitForCompletion(ctx, job)
	if err != nil {
		return nil, err
	}
	return c.download(ctx, job.AudioURL)
}

func (c *Client) submit(ctx context.Context, prompt string, durationSeconds float64) (generationJob, error) {
	var job generationJob
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "/v1/generations")
	if err != nil {
		return job, fmt.Errorf("audiogen submit: build url: %w", err)
	}
	encoded, err := json.Marshal(generationRequest{Prompt: prompt, DurationSeconds: durationSeconds})
	if err != nil {
		return job, fmt.Errorf("audiogen submit: encode body: %w", err)
	}
	body, err := c.doJSON(ctx, http.MethodPost, endpoint, encoded)
	if err != nil {
		return job, fmt.Errorf("audiogen submit: %w", err)
	}
	if err := json.Unmarshal(body, &job); err != nil {
		return job, fmt.Errorf("audiogen submit: decode response: %w", err)
	}
	if job.ID == "" {
		return job, errors.New("audiogen submit: missing job id")
	}
	return job, nil
}

func (c *Client) waitForCompletion(ctx context.Context, job generationJob) (generationJob, error) {
	deadline := time.Now().Add(c.cfg.CompletionTimeout)
	for {
		switch job.Status {
		case JobComplete:
			if job.AudioURL == "" {
				return job, errors.New("audiogen: completed job has no audio url")
			}
			return job, nil
		case JobFailed:
			message := job.Error
			if message == "" {
				message = "no detail provided"
			}
			return job, fmt.Errorf("audiogen: job %s failed: %s", job.ID, message)
		case JobPending, JobProcessing, "":
		default:
			return job, fmt.Errorf("audiogen: job %s in unknown state %q", job.ID, job.Status)
		}

		if time.Now().After(deadline) {
			return job, fmt.Errorf("audiogen: job %s did not complete within %s", job.ID, c.cfg.CompletionTimeout)
		}
		select {
		case <-time.After(c.pollInterval):
		case <-ctx.Done():
			return job, ctx.Err()
		}

		refreshed, err := c.poll(ctx, job.ID)
		if err != nil {
			return job, err
		}
		job = refreshed
	}
}

func (c *Client) poll(ctx context.Context, jobID string) (generationJob, error) {
	var job generationJob
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "/v1/generations", jobID)
	if err != nil {
		return job, fmt.Errorf("audiogen poll: build url: %w", err)
	}
	body, err := c.doJSON(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return job, fmt.Errorf("audiogen poll: %w", err)
	}
	if err := json.Unmarshal(body, &job); err != nil {
		return job, fmt.Errorf("audiogen poll: decode response: %w", err)
	}
	return job, nil
}

func (c *Client) download(ctx context.Context, audioURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, audioURL, nil)
	if err != nil {
		return nil, fmt.Errorf("audiogen download: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("audiogen download: http error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("audiogen download: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("audiogen download: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if len(body) == 0 {
		return nil, errors.New("audiogen download: empty audio payload")
	}
	return body, nil
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
