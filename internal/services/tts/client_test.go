package tts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSynthesizeReturnsAudio(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/speech" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var req speechRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Voice != "narrator" {
			t.Fatalf("unexpected voice %q", req.Voice)
		}
		if req.ResponseFormat != "wav" {
			t.Fatalf("unexpected format %q", req.ResponseFormat)
		}
		_, _ = w.Write([]byte("RIFFfake"))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL})
	audio, err := client.Synthesize(context.Background(), "Once upon a time", "narrator")
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if string(audio) != "RIFFfake" {
		t.Fatalf("unexpected payload %q", audio)
	}
}

func TestSynthesizeFallsBackToDefaultVoice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req speechRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Voice != "storyteller" {
			t.Fatalf("expected configured default voice, got %q", req.Voice)
		}
		_, _ = w.Write([]byte("audio"))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Voice: "storyteller"})
	if _, err := client.Synthesize(context.Background(), "text", ""); err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
}

func TestSynthesizeErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL})
	if _, err := client.Synthesize(context.Background(), "text", ""); err == nil {
		t.Fatal("expected error on http failure")
	}
	if _, err := client.Synthesize(context.Background(), "  ", ""); err == nil {
		t.Fatal("expected error for empty text")
	}
}
