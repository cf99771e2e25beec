package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"newscast/internal/config"
	"newscast/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventProductionCompleted, notifications.Payload{"title": "Example"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:  "production completed",
			event: notifications.EventProductionCompleted,
			payload: notifications.Payload{
				"title": "Evening bulletin",
				"url":   "https://youtu.be/abc",
			},
			expectTitle:    "Newscast - Complete",
			expectMessage:  "✅ Bulletin ready: Evening bulletin\nhttps://youtu.be/abc",
			expectTags:     "newscast,production,completed",
			expectPriority: "high",
		},
		{
			name:  "render completed",
			event: notifications.EventRenderCompleted,
			payload: notifications.Payload{
				"title":    "Evening bulletin",
				"duration": 42.5,
				"cost":     0.36,
			},
			expectTitle:   "Newscast - Rendered",
			expectMessage: "🎞️ Render finished: Evening bulletin (42.5s, ~$0.36)",
			expectTags:    "newscast,render,completed",
		},
		{
			name:  "step failed",
			event: notifications.EventStepFailed,
			payload: notifications.Payload{
				"title": "Evening bulletin",
				"step":  "video_generate",
				"error": errors.New("provider timed out"),
			},
			expectTitle:    "Newscast - Error",
			expectMessage:  "❌ Error in video_generate (Evening bulletin): provider timed out",
			expectTags:     "newscast,error,alert",
			expectPriority: "high",
		},
		{
			name:           "test",
			event:          notifications.EventTest,
			payload:        nil,
			expectTitle:    "Newscast - Test",
			expectMessage:  "🧪 Notification system test",
			expectTags:     "newscast,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Errorf("read body: %v", err)
				}
				captured.body = string(body)
				_ = r.Body.Close()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceHonoursEventToggles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected call for disabled event: %s", r.Header.Get("Title"))
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Completed = false
	cfg.Notifications.Render = false
	cfg.Notifications.Errors = false

	svc := notifications.NewService(&cfg)
	for _, event := range []notifications.Event{
		notifications.EventProductionCompleted,
		notifications.EventRenderCompleted,
		notifications.EventStepFailed,
	} {
		if err := svc.Publish(context.Background(), event, notifications.Payload{"title": "ignored"}); err != nil {
			t.Fatalf("expected no error for disabled event %s, got %v", event, err)
		}
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic gone", http.StatusNotFound)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventTest, nil); err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestNtfyServiceIgnoresUnknownEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.Event("bogus"), nil); err != nil {
		t.Fatalf("unknown events should be ignored, got %v", err)
	}
}
