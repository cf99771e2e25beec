package httpjson

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostSendsAuthAndDecodes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/speech", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "hello", payload["text"])
		_ = json.NewEncoder(w).Encode(map[string]any{"url": "https://cdn/a.mp3"})
	}))
	defer server.Close()

	client := NewClient(Config{Name: "speech", BaseURL: server.URL + "/v1/", APIKey: "secret"})
	var out struct {
		URL string `json:"url"`
	}
	require.NoError(t, client.Post(context.Background(), "speech", map[string]string{"text": "hello"}, &out))
	assert.Equal(t, "https://cdn/a.mp3", out.URL)
}

func TestGetUsesAPIKeyHeaderAndQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.Header.Get("x-api-key"))
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Equal(t, "2026-10-19", r.URL.Query().Get("date"))
		assert.Equal(t, "newscast", r.Header.Get("X-Client"))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, APIKey: "key", Auth: AuthAPIKeyHeader}, WithHeader("X-Client", "newscast"))
	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, client.Get(context.Background(), "news", url.Values{"date": {"2026-10-19"}}, &out))
	assert.True(t, out.OK)
}

type countingTransport struct {
	calls atomic.Int32
	next  http.RoundTripper
}

func (c *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.calls.Add(1)
	return c.next.RoundTrip(req)
}

func TestWithHTTPClientRoutesRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	transport := &countingTransport{next: server.Client().Transport}
	client := NewClient(Config{BaseURL: server.URL}, WithHTTPClient(&http.Client{Transport: transport}))
	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, client.Get(context.Background(), "health", nil, &out))
	assert.True(t, out.OK)
	assert.Equal(t, int32(1), transport.calls.Load())
}

func TestRetriesOnServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(Config{BaseURL: server.URL},
		WithRetryMaxAttempts(3),
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
	)
	require.NoError(t, client.Post(context.Background(), "jobs", map[string]int{"n": 1}, nil))
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, slept)
}

func TestDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad prompt", http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(Config{Name: "video", BaseURL: server.URL}, WithSleeper(func(time.Duration) {}))
	err := client.Post(context.Background(), "generate", map[string]string{}, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, StatusCode(err))
	assert.Contains(t, err.Error(), "video request: http 400")
	assert.Equal(t, int32(1), calls.Load())
}

func TestRequiresBaseURL(t *testing.T) {
	client := NewClient(Config{Name: "news"})
	assert.False(t, client.Configured())
	assert.Error(t, client.Get(context.Background(), "", nil, nil))
}

func TestBackoffDoublesAndCaps(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://x"}, WithRetryBackoff(time.Second, 5*time.Second))
	assert.Equal(t, time.Second, client.backoffDelay(1))
	assert.Equal(t, 2*time.Second, client.backoffDelay(2))
	assert.Equal(t, 4*time.Second, client.backoffDelay(3))
	assert.Equal(t, 5*time.Second, client.backoffDelay(4))
}

func TestDecodeLenient(t *testing.T) {
	var out struct {
		Title string `json:"title"`
	}
	require.NoError(t, DecodeLenient("```json\n{\"title\":\"Evening\"}\n```", &out))
	assert.Equal(t, "Evening", out.Title)

	out.Title = ""
	require.NoError(t, DecodeLenient("Here you go: {\"title\":\"Late\"} thanks", &out))
	assert.Equal(t, "Late", out.Title)

	assert.Error(t, DecodeLenient("  ", &out))
	assert.Error(t, DecodeLenient("no json here", &out))
}
