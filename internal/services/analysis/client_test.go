package analysis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func messagesHandler(t *testing.T, text string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") == "" {
			t.Fatal("missing api key header")
		}
		payload := map[string]any{
			"content": []any{
				map[string]any{"type": "text", "text": text},
			},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}
}

func TestAnalyzeTextParsesSoundDesign(t *testing.T) {
	response := `Here is the design:
{"soundscape": "slow cello under rain", "sound_effects": [
  {"name": "thunder", "prompt": "distant thunder", "start_word_number": 8, "end_word_number": 9, "rank": 2},
  {"name": "rain", "prompt": "steady rain", "start_word_number": 1, "end_word_number": 3, "rank": 1}
]}`
	server := httptest.NewServer(messagesHandler(t, response))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo"})
	result, err := client.AnalyzeText(context.Background(), "rain fell on the old tin roof while thunder rolled", 10)
	if err != nil {
		t.Fatalf("AnalyzeText returned error: %v", err)
	}
	if result.Soundscape != "slow cello under rain" {
		t.Fatalf("unexpected soundscape: %q", result.Soundscape)
	}
	if len(result.Effects) != 2 {
		t.Fatalf("expected 2 effects, got %d", len(result.Effects))
	}
	if result.Effects[0].Name != "rain" {
		t.Fatalf("expected rank ordering, got %q first", result.Effects[0].Name)
	}
}

func TestAnalyzeTextDropsAndClampsBadAnchors(t *testing.T) {
	response := `{"soundscape": "wind", "sound_effects": [
  {"name": "past_end", "prompt": "x", "start_word_number": 12, "end_word_number": 14, "rank": 1},
  {"name": "inverted", "prompt": "x", "start_word_number": 5, "end_word_number": 2, "rank": 2},
  {"name": "overhang", "prompt": "x", "start_word_number": 4, "end_word_number": 9, "rank": 3},
  {"name": "", "prompt": "x", "start_word_number": 1, "end_word_number": 1, "rank": 4}
]}`
	server := httptest.NewServer(messagesHandler(t, response))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo"})
	result, err := client.AnalyzeText(context.Background(), "one two three four five", 5)
	if err != nil {
		t.Fatalf("AnalyzeText returned error: %v", err)
	}
	if len(result.Effects) != 1 {
		t.Fatalf("expected 1 surviving effect, got %d", len(result.Effects))
	}
	if result.Effects[0].Name != "overhang" || result.Effects[0].EndWord != 5 {
		t.Fatalf("expected overhang clamped to word 5, got %#v", result.Effects[0])
	}
}

func TestAnalyzeTextRequiresCredentials(t *testing.T) {
	client := NewClient(Config{Model: "demo"})
	if _, err := client.AnalyzeText(context.Background(), "words", 1); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestHealthCheck(t *testing.T) {
	server := httptest.NewServer(messagesHandler(t, `{"ok":true}`))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestHealthCheckFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"type": "authentication_error", "message": "bad key"},
		})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL, Model: "demo"})
	if err := client.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health check to fail")
	}
}
