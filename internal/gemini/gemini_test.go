package gemini

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/lehigh-university-libraries/avatarsheet/internal/providers"
)

func response(parts ...genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: parts}},
		},
	}
}

func TestResponseText(t *testing.T) {
	tests := []struct {
		name     string
		resp     *genai.GenerateContentResponse
		expected string
		wantErr  bool
	}{
		{"single part", response(genai.Text("Modern Tech Visionary")), "Modern Tech Visionary", false},
		{"joins text parts", response(genai.Text("Bold "), genai.Blob{MIMEType: "image/png", Data: []byte{1}}, genai.Text("Explorer")), "Bold Explorer", false},
		{"no candidates", &genai.GenerateContentResponse{}, "", true},
		{"nil response", nil, "", true},
		{"empty content", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := responseText(tt.resp)
			if (err != nil) != tt.wantErr {
				t.Fatalf("responseText() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.expected {
				t.Errorf("responseText() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestResponseImage(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}

	got, err := responseImage(response(genai.Text("here you go"), genai.Blob{MIMEType: "image/png", Data: png}))
	if err != nil {
		t.Fatalf("responseImage failed: %v", err)
	}
	if !bytes.Equal(got, png) {
		t.Errorf("responseImage() = %v, want %v", got, png)
	}

	if _, err := responseImage(response(genai.Text("sorry, I can't do that"))); err == nil {
		t.Error("Expected error when no image part is returned")
	}
	if _, err := responseImage(response(genai.Blob{MIMEType: "image/png"})); err == nil {
		t.Error("Expected error for empty blob")
	}
}

func TestMissingAPIKey(t *testing.T) {
	g := &Gemini{}

	if _, err := g.DescribeImage(context.Background(), providers.Config{Model: "m"}, nil); err == nil {
		t.Error("Expected error without API key")
	}
	if _, err := g.EditImage(context.Background(), providers.Config{Model: "m"}, nil); err == nil {
		t.Error("Expected error without API key")
	}
}
