package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/lehigh-university-libraries/avatarsheet/internal/providers"
)

// Ollama is a provider for a local Ollama server. Vision models can
// describe images but Ollama cannot return edited images.
type Ollama struct {
	URL        string
	HTTPClient *http.Client
}

// New returns a new Ollama provider using OLLAMA_URL
func New() *Ollama {
	ollamaURL := os.Getenv("OLLAMA_URL")
	if ollamaURL == "" {
		ollamaURL = "http://localhost:11434"
	}
	return &Ollama{URL: ollamaURL, HTTPClient: &http.Client{}}
}

// DescribeImage asks a vision model about the image
func (o *Ollama) DescribeImage(ctx context.Context, config providers.Config, image []byte) (string, error) {
	options := map[string]interface{}{}
	if config.Temperature > 0 {
		options["temperature"] = config.Temperature
	}

	requestBody, err := json.Marshal(map[string]interface{}{
		"model":   config.Model,
		"prompt":  config.Prompt,
		"images":  []string{base64.StdEncoding.EncodeToString(image)},
		"stream":  false,
		"options": options,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.URL+"/api/generate", bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := o.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("received non-200 status code: %d - %s", resp.StatusCode, string(body))
	}

	var response struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response body: %w", err)
	}

	return response.Response, nil
}

// EditImage is not available on Ollama
func (o *Ollama) EditImage(ctx context.Context, config providers.Config, image []byte) ([]byte, error) {
	return nil, fmt.Errorf("ollama image editing: %w", providers.ErrUnsupported)
}
