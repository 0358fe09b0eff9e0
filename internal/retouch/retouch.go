package retouch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/lehigh-university-libraries/avatarsheet/internal/gemini"
	"github.com/lehigh-university-libraries/avatarsheet/internal/ollama"
	"github.com/lehigh-university-libraries/avatarsheet/internal/openai"
	"github.com/lehigh-university-libraries/avatarsheet/internal/providers"
)

// ErrRemoteCall is returned when the generative service fails or answers
// without the expected payload.
var ErrRemoteCall = errors.New("remote call failed")

const (
	// FallbackPersona is used when the persona request fails.
	FallbackPersona = "Profile Avatar"
	// EmptyPersona is used when the service answers with no text.
	EmptyPersona = "Unique Identity"
)

const (
	personaPrompt = "Analyze this image and provide a 3-word creative persona or title for this avatar (e.g., 'Modern Tech Visionary'). Respond with ONLY the 3 words."

	outpaintPrompt = "This is a circular profile avatar with some empty or transparent background areas due to zooming out. Please fill the entire square 800x800 area by extending the existing image background and subjects seamlessly. Ensure the final result is a complete, high-quality image that fills the whole frame without any missing parts or gaps."

	enhancePrompt = "Please enhance the quality of this image. Increase sharpness, refine details, and improve color balance while maintaining the original subject and composition. Return a high-definition version of this circular avatar."
)

// Client retouches badges through a generative image provider. It holds no
// per-request state and is safe for concurrent use.
type Client struct {
	provider   providers.Provider
	textModel  string
	imageModel string
}

// New returns a client that uses textModel for persona suggestions and
// imageModel for outpaint and enhance.
func New(provider providers.Provider, textModel, imageModel string) *Client {
	return &Client{
		provider:   provider,
		textModel:  textModel,
		imageModel: imageModel,
	}
}

// NewFromEnv builds a client for the named provider. An empty name falls
// back to RETOUCH_PROVIDER and then to gemini.
func NewFromEnv(name string) (*Client, error) {
	if name == "" {
		name = os.Getenv("RETOUCH_PROVIDER")
		if name == "" {
			name = "gemini"
		}
	}

	var provider providers.Provider
	switch name {
	case "gemini":
		provider = gemini.New()
	case "openai":
		provider = openai.New()
	case "ollama":
		provider = ollama.New()
	default:
		return nil, fmt.Errorf("unsupported retouch provider: %s", name)
	}

	textModel, imageModel := defaultModels(name)
	slog.Debug("Retouch client configured", "provider", name, "text_model", textModel, "image_model", imageModel)
	return New(provider, textModel, imageModel), nil
}

func defaultModels(provider string) (string, string) {
	switch provider {
	case "gemini":
		return envOr("GEMINI_TEXT_MODEL", "gemini-3-flash-preview"), envOr("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image")
	case "openai":
		return envOr("OPENAI_MODEL", "gpt-4o"), envOr("OPENAI_IMAGE_MODEL", "gpt-image-1")
	case "ollama":
		return envOr("OLLAMA_MODEL", "llava"), ""
	default:
		return "", ""
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// SuggestPersona returns a short creative title for the badge. It never
// fails: errors are logged and a fallback label is returned.
func (c *Client) SuggestPersona(ctx context.Context, png []byte) string {
	text, err := c.provider.DescribeImage(ctx, providers.Config{
		Model:  c.textModel,
		Prompt: personaPrompt,
	}, png)
	if err != nil {
		slog.Warn("Persona suggestion failed", "err", err)
		return FallbackPersona
	}

	text = strings.Trim(strings.TrimSpace(text), `"'.`)
	if text == "" {
		return EmptyPersona
	}
	return text
}

// Outpaint asks the service to fill transparent or empty regions of the badge.
func (c *Client) Outpaint(ctx context.Context, png []byte) ([]byte, error) {
	return c.edit(ctx, "outpaint", outpaintPrompt, png)
}

// Enhance asks the service for a sharper, colour-corrected version of the badge.
func (c *Client) Enhance(ctx context.Context, png []byte) ([]byte, error) {
	return c.edit(ctx, "enhance", enhancePrompt, png)
}

func (c *Client) edit(ctx context.Context, op, prompt string, png []byte) ([]byte, error) {
	out, err := c.provider.EditImage(ctx, providers.Config{
		Model:  c.imageModel,
		Prompt: prompt,
	}, png)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRemoteCall, op, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s: no image data returned", ErrRemoteCall, op)
	}
	return out, nil
}
