package tts

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
	defaultHTTPTimeout = 120 * time.Second
	defaultVoice       = "alloy"
	responseFormat     = "wav"
)

// Config captures the runtime settings required to talk to the TTS service.
type Config struct {
	APIKey  string
	BaseURL string
	Voice   string
}

// Client wraps an OpenAI-compatible speech synthesis endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
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

// NewClient constructs a TTS client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	client := &Client{
		cfg: Config{
			APIKey:  strings.TrimSpace(cfg.APIKey),
			BaseURL: strings.TrimSpace(cfg.BaseURL),
			Voice:   strings.TrimSpace(cfg.Voice),
		},
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

// DefaultVoice returns the voice used when a segment does not name one.
func (c *Client) DefaultVoice() string {
	if c.cfg.Voice != "" {
		return c.cfg.Voice
	}
	return defaultVoice
}

type speechRequest struct {
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

// Synthesize renders the given text as WAV audio in the requested voice.
// An empty voice falls back to the configured default.
func (c *Client) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("tts: text required")
	}
	if c.cfg.BaseURL == "" {
		return nil, errors.New("tts: base url required")
	}
	if voice == "" {
		voice = c.DefaultVoice()
	}

	endpoint, err := url.JoinPath(c.cfg.BaseURL, "/v1/audio/speech")
	if err != nil {
		return nil, fmt.Errorf("tts request: build url: %w", err)
	}
	encoded, err := json.Marshal(speechRequest{
		Input:          text,
		Voice:          voice,
		ResponseFormat: responseFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("tts request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("tts request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request: http error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tts request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("tts request: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if len(body) == 0 {
		return nil, errors.New("tts request: empty audio payload")
	}
	return body, nil
}
