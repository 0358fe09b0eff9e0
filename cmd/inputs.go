package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/lehigh-university-libraries/avatarsheet/internal/images"
	"github.com/lehigh-university-libraries/avatarsheet/internal/session"
	"golang.org/x/sync/errgroup"
)

// loadInputs reads local files and http(s) URLs in parallel, keeping the
// order of inputs.
func loadInputs(ctx context.Context, inputs []string) ([]session.Upload, error) {
	fetcher := images.NewFetcher()
	uploads := make([]session.Upload, len(inputs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, input := range inputs {
		g.Go(func() error {
			u, err := loadInput(ctx, fetcher, input)
			if err != nil {
				return fmt.Errorf("%s: %w", input, err)
			}
			uploads[i] = u
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return uploads, nil
}

func loadInput(ctx context.Context, fetcher *images.Fetcher, input string) (session.Upload, error) {
	if images.IsURL(input) {
		name, data, err := fetcher.Fetch(ctx, input)
		if err != nil {
			return session.Upload{}, err
		}
		return session.Upload{Name: name, Data: data}, nil
	}

	f, err := os.Open(input)
	if err != nil {
		return session.Upload{}, err
	}
	defer f.Close()

	data, err := images.ReadLimited(f)
	if err != nil {
		return session.Upload{}, err
	}
	return session.Upload{Name: filepath.Base(input), Data: data}, nil
}
