package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout = 60 * time.Second
	defaultBaseURL     = "https://api.anthropic.com"
	apiVersion         = "2023-06-01"
	maxResponseTokens  = 4096
)

// Config captures the runtime settings required to talk to the analysis LLM.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Client wraps the Anthropic messages API for sound design analysis.
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

// NewClient constructs an analysis client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	client := &Client{
		cfg: Config{
			APIKey:  strings.TrimSpace(cfg.APIKey),
			BaseURL: strings.TrimSpace(cfg.BaseURL),
			Model:   strings.TrimSpace(cfg.Model),
		},
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

// EffectSpec is a proposed sound effect anchored to a 1-based word range.
type EffectSpec struct {
	Name      string `json:"name"`
	Prompt    string `json:"prompt"`
	StartWord int    `json:"start_word_number"`
	EndWord   int    `json:"end_word_number"`
	Rank      int    `json:"rank"`
}

// Result captures the parsed sound design for one text.
type Result struct {
	Soundscape string       `json:"soundscape"`
	Effects    []EffectSpec `json:"sound_effects"`
	Raw        string       `json:"-"`
}

// AnalyzeText issues a sound design request for the supplied narration text.
// wordCount bounds the effect anchors; effects outside the text or with
// inverted ranges are dropped rather than failing the whole analysis.
func (c *Client) AnalyzeText(ctx context.Context, content string, wordCount int) (Result, error) {
	var empty Result
	content = strings.TrimSpace(content)
	if content == "" {
		return empty, errors.New("analysis: content required")
	}
	if c.cfg.APIKey == "" {
		return empty, errors.New("analysis: api key required")
	}
	if c.cfg.Model == "" {
		return empty, errors.New("analysis: model required")
	}

	message, err := c.sendMessage(ctx, SoundDesignPrompt, content)
	if err != nil {
		return empty, err
	}

	var parsed Result
	parsed.Raw = message
	if err := json.Unmarshal([]byte(extractJSON(message)), &parsed); err != nil {
		return empty, fmt.Errorf("analysis: parse payload: %w", err)
	}
	parsed.Soundscape = strings.TrimSpace(parsed.Soundscape)
	parsed.Effects = sanitizeEffects(parsed.Effects, wordCount)
	return parsed, nil
}

// HealthCheck issues a fast ping to verify the API key and model are usable.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return errors.New("analysis health: api key required")
	}
	message, err := c.sendMessage(ctx, `Respond with {"ok":true} and nothing else.`, "ping")
	if err != nil {
		return err
	}
	var parsed struct {
		OK bool `json:"ok"`
	}
	if err := json.Unmarshal([]byte(extractJSON(message)), &parsed); err != nil {
		return fmt.Errorf("analysis health: parse payload: %w", err)
	}
	if !parsed.OK {
		return errors.New("analysis health: unexpected response")
	}
	return nil
}

// sanitizeEffects drops effects that cannot anchor inside the text, clamps
// ranges that run past the final word, and returns the survivors sorted by
// rank so a caller applying a max-effects cap keeps the most important ones.
func sanitizeEffects(effects []EffectSpec, wordCount int) []EffectSpec {
	kept := make([]EffectSpec, 0, len(effects))
	for _, effect := range effects {
		effect.Name = strings.TrimSpace(effect.Name)
		effect.Prompt = strings.TrimSpace(effect.Prompt)
		if effect.Name == "" {
			continue
		}
		if effect.StartWord < 1 || effect.EndWord < effect.StartWord {
			continue
		}
		if wordCount > 0 {
			if effect.StartWord > wordCount {
				continue
			}
			if effect.EndWord > wordCount {
				effect.EndWord = wordCount
			}
		}
		kept = append(kept, effect)
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Rank < kept[j].Rank })
	return kept
}

type messagesRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system,omitempty"`
	Messages  []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) sendMessage(ctx context.Context, system, user string) (string, error) {
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "/v1/messages")
	if err != nil {
		return "", fmt.Errorf("analysis request: build url: %w", err)
	}
	payload := messagesRequest{
		Model:     c.cfg.Model,
		MaxTokens: maxResponseTokens,
		System:    system,
		Messages:  []chatMessage{{Role: "user", Content: user}},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("analysis request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("analysis request: new request: %w", err)
	}
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("anthropic-version", apiVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("analysis request: http error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("analysis request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("analysis request: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var decoded messagesResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("analysis request: decode response: %w", err)
	}
	if decoded.Error != nil {
		return "", fmt.Errorf("analysis request: api error: %s", strings.TrimSpace(decoded.Error.Message))
	}
	var parts []string
	for _, block := range decoded.Content {
		if block.Type == "text" && strings.TrimSpace(block.Text) != "" {
			parts = append(parts, block.Text)
		}
	}
	content := strings.TrimSpace(strings.Join(parts, "\n"))
	if content == "" {
		return "", errors.New("analysis request: empty content")
	}
	return content, nil
}

// extractJSON trims any prose the model wraps around the JSON object.
func extractJSON(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		return content[start : end+1]
	}
	return content
}
