package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lehigh-university-libraries/avatarsheet/internal/compositor"
	"github.com/lehigh-university-libraries/avatarsheet/internal/models"
	"github.com/lehigh-university-libraries/avatarsheet/internal/results"
	"github.com/lehigh-university-libraries/avatarsheet/internal/session"
	"github.com/lehigh-university-libraries/avatarsheet/internal/storage"
	"github.com/spf13/cobra"
)

type sheetOptions struct {
	output    string
	quality   int
	manifest  string
	provider  string
	persona   bool
	fill      bool
	enhance   bool
	transform compositor.Transform
}

func newSheetCmd() *cobra.Command {
	opts := sheetOptions{}

	cmd := &cobra.Command{
		Use:   "sheet <images...>",
		Short: "Lay up to six badges out on a printable A4 sheet",
		Long: `Crops each input into a circular badge and places the badges on an A4 page
at 300 DPI, two columns by three rows with equal gutters. Only the first six
inputs are used.

With --fill or --enhance each badge is sent to the retouch provider before
the sheet is composed. A failed retouch keeps the original badge.`,
		Example: `  # Build a sheet from a folder of photos
  avatarsheet sheet photos/*.jpg -o badges.jpg

  # Zoom out, let the AI fill the gaps, and record what was placed where
  avatarsheet sheet --scale 0.8 --fill --manifest badges.yaml a.jpg b.jpg`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSheet(cmd.Context(), args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", session.SheetFilename, "Sheet JPEG to write")
	cmd.Flags().IntVarP(&opts.quality, "quality", "q", compositor.DefaultJPEGQuality, "JPEG quality (1-100)")
	cmd.Flags().StringVar(&opts.manifest, "manifest", "", "Write a YAML manifest of the sheet to this path")
	cmd.Flags().StringVar(&opts.provider, "provider", "", "Retouch provider: gemini, openai or ollama (default $RETOUCH_PROVIDER or gemini)")
	cmd.Flags().BoolVar(&opts.persona, "persona", false, "Ask the provider for a persona title for each badge")
	cmd.Flags().BoolVar(&opts.fill, "fill", false, "Fill empty space left by zooming out")
	cmd.Flags().BoolVar(&opts.enhance, "enhance", false, "Enhance each badge")
	cmd.Flags().Float64Var(&opts.transform.Scale, "scale", 1.0, "Zoom factor applied to every badge")
	cmd.Flags().IntVar(&opts.transform.X, "x", 0, "Horizontal offset applied to every badge")
	cmd.Flags().IntVar(&opts.transform.Y, "y", 0, "Vertical offset applied to every badge")

	return cmd
}

func runSheet(ctx context.Context, inputs []string, opts sheetOptions) error {
	if opts.quality < 1 || opts.quality > 100 {
		return fmt.Errorf("quality must be between 1 and 100, got %d", opts.quality)
	}
	if err := opts.transform.Validate(); err != nil {
		return err
	}

	var skipped []string
	if len(inputs) > storage.Capacity {
		skipped = append(skipped, inputs[storage.Capacity:]...)
		slog.Warn("Only the first six images fit on a sheet", "ignored", len(skipped))
		inputs = inputs[:storage.Capacity]
	}

	uploads, err := loadInputs(ctx, inputs)
	if err != nil {
		return err
	}

	var retoucher session.Retoucher
	if opts.persona || opts.fill || opts.enhance {
		if retoucher, err = newRetoucher(opts.provider); err != nil {
			return err
		}
	}
	controller := session.New(storage.New(), controllerOptions(retoucher,
		session.WithContext(ctx),
		session.WithPersona(opts.persona),
	)...)

	if _, err := controller.Upload(uploads); err != nil {
		return err
	}
	controller.Wait()

	if !opts.transform.IsDefault() {
		for _, e := range readyEntries(controller) {
			if _, err := controller.UpdateTransform(e.ID, opts.transform); err != nil {
				return err
			}
		}
		controller.Wait()
	}

	if opts.fill {
		retouchAll(ctx, controller, "fill", controller.Fill, func(e models.Entry) bool {
			return e.Transform().NeedsFill()
		})
	}
	if opts.enhance {
		retouchAll(ctx, controller, "enhance", controller.Enhance, func(models.Entry) bool { return true })
	}

	for _, e := range controller.Entries() {
		if e.Status == models.StatusError {
			slog.Warn("Skipping image that could not be read", "name", e.OriginalName, "err", e.LastError)
			skipped = append(skipped, e.OriginalName)
		}
	}

	sheet, err := controller.Sheet(opts.quality)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(opts.output); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(opts.output, sheet.JPEG, 0644); err != nil {
		return fmt.Errorf("failed to write sheet: %w", err)
	}

	if opts.manifest != "" {
		if err := results.SaveManifest(opts.manifest, results.NewManifest(sheet, opts.output, opts.quality, skipped)); err != nil {
			return err
		}
		slog.Info("Manifest written", "path", opts.manifest)
	}

	absPath, _ := filepath.Abs(opts.output)
	fmt.Printf("\nSheet with %d badges saved to: %s\n", len(sheet.Slots), absPath)
	return nil
}

func readyEntries(c *session.Controller) []models.Entry {
	var ready []models.Entry
	for _, e := range c.Entries() {
		if e.Status == models.StatusReady {
			ready = append(ready, e)
		}
	}
	return ready
}

// retouchAll runs op on every ready entry that wants it and waits for all
// of them. Failures are logged and the badge is left as it was.
func retouchAll(ctx context.Context, c *session.Controller, name string, op func(string) (*session.Task, error), want func(models.Entry) bool) {
	type pending struct {
		entry models.Entry
		task  *session.Task
	}

	var tasks []pending
	for _, e := range readyEntries(c) {
		if !want(e) {
			continue
		}
		task, err := op(e.ID)
		if err != nil {
			slog.Warn("Unable to start retouch", "op", name, "name", e.OriginalName, "err", err)
			continue
		}
		tasks = append(tasks, pending{entry: e, task: task})
	}

	for _, p := range tasks {
		if err := p.task.Wait(ctx); err != nil {
			slog.Warn("Retouch failed, keeping original badge", "op", name, "name", p.entry.OriginalName, "err", err)
			continue
		}
		slog.Info("Retouched badge", "op", name, "name", p.entry.OriginalName)
	}
	c.Wait()
}
