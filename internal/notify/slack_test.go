package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNotify_PostsText(t *testing.T) {
	var got map[string]string
	var contentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	s, err := NewSlack(server.URL, WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Notify(context.Background(), "*hello*\n- line"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if got["text"] != "*hello*\n- line" || len(got) != 1 {
		t.Errorf("body = %v", got)
	}
	if contentType != "application/json" {
		t.Errorf("content type = %q", contentType)
	}
}

func TestNotify_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_payload", http.StatusBadRequest)
	}))
	defer server.Close()

	s, _ := NewSlack(server.URL, WithHTTPClient(server.Client()))
	err := s.Notify(context.Background(), "x")
	if err == nil || !strings.Contains(err.Error(), "400") || !strings.Contains(err.Error(), "invalid_payload") {
		t.Errorf("err = %v", err)
	}
}

func TestNotify_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	s, _ := NewSlack(server.URL, WithHTTPClient(server.Client()), WithTimeout(50*time.Millisecond))
	start := time.Now()
	if err := s.Notify(context.Background(), "x"); err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > 2*time.Second {
		t.Error("timeout was not applied")
	}
}

func TestNewSlack_Validation(t *testing.T) {
	if _, err := NewSlack("  "); err == nil {
		t.Error("empty URL should fail")
	}
	if _, err := NewSlack("http://example.invalid", WithTimeout(0)); err == nil {
		t.Error("zero timeout should fail")
	}
	s, err := NewSlack("http://example.invalid")
	if err != nil {
		t.Fatal(err)
	}
	if s.httpClient.Timeout != DefaultTimeout {
		t.Errorf("timeout = %s, want %s", s.httpClient.Timeout, DefaultTimeout)
	}
}

func TestNewSlack_LeavesCallerClientAlone(t *testing.T) {
	caller := &http.Client{Timeout: 30 * time.Second}
	s, err := NewSlack("http://example.invalid", WithHTTPClient(caller), WithTimeout(time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if caller.Timeout != 30*time.Second {
		t.Errorf("caller client timeout changed to %s", caller.Timeout)
	}
	if s.httpClient == caller || s.httpClient.Timeout != time.Second {
		t.Errorf("notifier client = %p timeout %s, want a copy with 1s", s.httpClient, s.httpClient.Timeout)
	}
}
