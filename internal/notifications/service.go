package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"narratix/internal/config"
)

const userAgent = "Narratix-Go/0.1.0"

// Event identifies a pipeline milestone worth pushing to the user.
type Event string

const (
	EventIngestCompleted   Event = "ingest_completed"
	EventAnalysisCompleted Event = "analysis_completed"
	EventExportCompleted   Event = "export_completed"
	EventError             Event = "error"
)

// Payload carries event-specific fields used to format the message.
type Payload map[string]string

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
	Test(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := format(event, payload)
	if !ok {
		return fmt.Errorf("unknown notification event %q", event)
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) Test(ctx context.Context) error {
	return n.send(ctx, message{
		title: "Narratix - Test",
		body:  "Notifications are configured correctly",
		tags:  []string{"narratix", "test"},
	})
}

func format(event Event, payload Payload) (message, bool) {
	field := func(key string) string { return strings.TrimSpace(payload[key]) }

	switch event {
	case EventIngestCompleted:
		return message{
			title: "Narratix - Ingested",
			body:  fmt.Sprintf("Text ingested: %s (%s segments)", field("title"), field("segments")),
			tags:  []string{"narratix", "ingest", "completed"},
		}, true
	case EventAnalysisCompleted:
		return message{
			title: "Narratix - Analyzed",
			body:  fmt.Sprintf("Sound design ready: %s (%s effects)", field("title"), field("effects")),
			tags:  []string{"narratix", "analysis", "completed"},
		}, true
	case EventExportCompleted:
		body := fmt.Sprintf("Export complete: %s", field("title"))
		if file := field("outputPath"); file != "" {
			body = fmt.Sprintf("%s\nFile: %s", body, file)
		}
		return message{
			title:    "Narratix - Complete",
			body:     body,
			tags:     []string{"narratix", "export", "completed"},
			priority: "high",
		}, true
	case EventError:
		return message{
			title:    "Narratix - Error",
			body:     fmt.Sprintf("Error with %s: %s", field("context"), field("error")),
			tags:     []string{"narratix", "error", "alert"},
			priority: "high",
		}, true
	}
	return message{}, false
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification endpoint returned %s", resp.Status)
	}
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
func (noopService) Test(context.Context) error                    { return nil }
