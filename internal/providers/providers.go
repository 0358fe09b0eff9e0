package providers

import (
	"context"
	"errors"
)

// ErrUnsupported is returned by providers that cannot perform an operation,
// such as text-only models asked to return an image.
var ErrUnsupported = errors.New("operation not supported by provider")

// Config represents the configuration for a single provider request
type Config struct {
	Model       string
	Temperature float64
	Prompt      string
}

// Provider defines the interface for a generative image backend. Images are
// sent and returned as encoded bytes; requests always send PNG.
type Provider interface {
	// DescribeImage returns the model's text answer to the prompt about the image.
	DescribeImage(ctx context.Context, config Config, image []byte) (string, error)
	// EditImage returns the image the model produced from the prompt and the input image.
	EditImage(ctx context.Context, config Config, image []byte) ([]byte, error)
}
