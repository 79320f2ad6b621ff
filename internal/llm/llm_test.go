package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNormalizeBaseURL(t *testing.T) {
	cases := map[string]string{
		"":                         "",
		"api.example.com/v1/":      "https://api.example.com/v1",
		"http://localhost:1234/v1": "http://localhost:1234/v1",
		"  https://x.test/v1///  ": "https://x.test/v1",
	}
	for in, want := range cases {
		if got := normalizeBaseURL(in); got != want {
			t.Errorf("normalizeBaseURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHTTPClient_Chat(t *testing.T) {
	var gotBody map[string]any
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": `{"ok":true}`}, "finish_reason": "stop"},
			},
		})
	}))
	defer srv.Close()

	client := NewHTTPClient(Config{BaseURL: srv.URL + "/v1", APIKey: "sk-test", Model: "fast-model"})
	resp, err := client.Chat(context.Background(), ChatRequest{
		Messages:    []Message{{Role: "user", Content: "ping"}},
		Temperature: 0.2,
		Stage:       "cohort",
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != `{"ok":true}` {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.FinishReason != "stop" {
		t.Errorf("FinishReason = %q", resp.FinishReason)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBody["model"] != "fast-model" {
		t.Errorf("model = %v, want default model", gotBody["model"])
	}
	if _, leaked := gotBody["Stage"]; leaked {
		t.Error("stage tag must not be sent on the wire")
	}
}

func TestHTTPClient_ChatStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewHTTPClient(Config{BaseURL: srv.URL})
	_, err := client.Chat(context.Background(), ChatRequest{Messages: []Message{{Role: "user", Content: "x"}}})
	if err == nil {
		t.Fatal("expected error for 429")
	}
	if !strings.Contains(err.Error(), "429") || !strings.Contains(err.Error(), "rate limited") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestHTTPClient_ChatTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := NewHTTPClient(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	_, err := client.Chat(context.Background(), ChatRequest{Messages: []Message{{Role: "user", Content: "x"}}})
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestHTTPClient_RejectsEmptyMessages(t *testing.T) {
	client := NewHTTPClient(Config{})
	if _, err := client.Chat(context.Background(), ChatRequest{}); err == nil {
		t.Fatal("expected error for empty messages")
	}
}

func TestClientFunc(t *testing.T) {
	var c Client = ClientFunc(func(_ context.Context, req ChatRequest) (ChatResponse, error) {
		return ChatResponse{Content: req.Stage}, nil
	})
	resp, err := c.Chat(context.Background(), ChatRequest{Stage: "flow"})
	if err != nil || resp.Content != "flow" {
		t.Fatalf("ClientFunc: %v %q", err, resp.Content)
	}
}
