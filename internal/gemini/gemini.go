package gemini

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/lehigh-university-libraries/avatarsheet/internal/providers"
	"google.golang.org/api/option"
)

// Gemini is a provider for Google Gemini
type Gemini struct {
	APIKey string
}

// New returns a new Gemini provider using GEMINI_API_KEY
func New() *Gemini {
	return &Gemini{APIKey: os.Getenv("GEMINI_API_KEY")}
}

// DescribeImage asks Gemini a question about the image and returns the text answer
func (g *Gemini) DescribeImage(ctx context.Context, config providers.Config, image []byte) (string, error) {
	resp, err := g.generate(ctx, config, image)
	if err != nil {
		return "", err
	}
	return responseText(resp)
}

// EditImage sends the image with an instruction and returns the first inline image in the answer
func (g *Gemini) EditImage(ctx context.Context, config providers.Config, image []byte) ([]byte, error) {
	resp, err := g.generate(ctx, config, image)
	if err != nil {
		return nil, err
	}
	return responseImage(resp)
}

func (g *Gemini) generate(ctx context.Context, config providers.Config, image []byte) (*genai.GenerateContentResponse, error) {
	if g.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(g.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create new gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(config.Model)
	if config.Temperature > 0 {
		model.SetTemperature(float32(config.Temperature))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(config.Prompt), genai.ImageData("png", image))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	return resp, nil
}

func firstParts(resp *genai.GenerateContentResponse) ([]genai.Part, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates returned from Gemini")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, fmt.Errorf("empty content returned from Gemini")
	}

	return candidate.Content.Parts, nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	parts, err := firstParts(resp)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, part := range parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String(), nil
}

func responseImage(resp *genai.GenerateContentResponse) ([]byte, error) {
	parts, err := firstParts(resp)
	if err != nil {
		return nil, err
	}

	for _, part := range parts {
		if blob, ok := part.(genai.Blob); ok && len(blob.Data) > 0 {
			return blob.Data, nil
		}
	}
	return nil, fmt.Errorf("no image data returned from Gemini")
}
