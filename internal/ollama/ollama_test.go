package ollama

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lehigh-university-libraries/avatarsheet/internal/providers"
)

func TestDescribeImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		var body struct {
			Model  string   `json:"model"`
			Prompt string   `json:"prompt"`
			Images []string `json:"images"`
			Stream bool     `json:"stream"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("Invalid request body: %v", err)
			return
		}
		if body.Model != "llava" || body.Stream || len(body.Images) != 1 {
			t.Errorf("Unexpected request: %+v", body)
			return
		}
		if body.Images[0] != base64.StdEncoding.EncodeToString([]byte("img")) {
			t.Errorf("Unexpected image payload %q", body.Images[0])
		}
		_, _ = w.Write([]byte(`{"response":"Quiet Mountain Wanderer"}`))
	}))
	defer server.Close()

	o := &Ollama{URL: server.URL, HTTPClient: server.Client()}
	got, err := o.DescribeImage(context.Background(), providers.Config{Model: "llava", Prompt: "who"}, []byte("img"))
	if err != nil {
		t.Fatalf("DescribeImage failed: %v", err)
	}
	if got != "Quiet Mountain Wanderer" {
		t.Errorf("DescribeImage() = %q", got)
	}
}

func TestDescribeImageServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	o := &Ollama{URL: server.URL}
	if _, err := o.DescribeImage(context.Background(), providers.Config{Model: "missing"}, nil); err == nil {
		t.Error("Expected error for non-200 response")
	}
}

func TestEditImageUnsupported(t *testing.T) {
	_, err := New().EditImage(context.Background(), providers.Config{}, []byte("img"))
	if !errors.Is(err, providers.ErrUnsupported) {
		t.Errorf("Expected ErrUnsupported, got %v", err)
	}
}
