package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"newscast/internal/config"
)

const userAgent = "Newscast-Go/0.1.0"

// Event identifies a notification type.
type Event string

const (
	EventProductionCompleted Event = "production_completed"
	EventRenderCompleted     Event = "render_completed"
	EventStepFailed          Event = "step_failed"
	EventTest                Event = "test"
)

// Payload carries event fields. Known keys: title, production_id, step, error, url,
// duration, cost.
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
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
		enabled: map[Event]bool{
			EventProductionCompleted: cfg.Notifications.Completed,
			EventRenderCompleted:     cfg.Notifications.Render,
			EventStepFailed:          cfg.Notifications.Errors,
			EventTest:                true,
		},
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
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return fmt.Errorf("unknown notification event %q", event)
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	title := payload.string("title")
	switch event {
	case EventProductionCompleted:
		body := fmt.Sprintf("✅ Bulletin ready: %s", title)
		if url := payload.string("url"); url != "" {
			body += "\n" + url
		}
		return message{
			title:    "Newscast - Complete",
			body:     body,
			tags:     []string{"newscast", "production", "completed"},
			priority: "high",
		}, true
	case EventRenderCompleted:
		body := fmt.Sprintf("🎞️ Render finished: %s", title)
		if d, ok := payload["duration"].(float64); ok && d > 0 {
			body += fmt.Sprintf(" (%.1fs", d)
			if cost, ok := payload["cost"].(float64); ok && cost > 0 {
				body += fmt.Sprintf(", ~$%.2f", cost)
			}
			body += ")"
		}
		return message{
			title: "Newscast - Rendered",
			body:  body,
			tags:  []string{"newscast", "render", "completed"},
		}, true
	case EventStepFailed:
		var b strings.Builder
		b.WriteString("❌ Error")
		if step := payload.string("step"); step != "" {
			b.WriteString(" in ")
			b.WriteString(step)
		}
		if title != "" {
			fmt.Fprintf(&b, " (%s)", title)
		}
		b.WriteString(": ")
		if err, ok := payload["error"].(error); ok && err != nil {
			b.WriteString(strings.TrimSpace(err.Error()))
		} else if text := payload.string("error"); text != "" {
			b.WriteString(text)
		} else {
			b.WriteString("unknown")
		}
		return message{
			title:    "Newscast - Error",
			body:     b.String(),
			tags:     []string{"newscast", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Newscast - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"newscast", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (p Payload) string(key string) string {
	value, ok := p[key]
	if !ok || value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
