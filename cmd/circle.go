package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/lehigh-university-libraries/avatarsheet/internal/compositor"
	"github.com/lehigh-university-libraries/avatarsheet/internal/models"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newCircleCmd() *cobra.Command {
	var (
		t      compositor.Transform
		outDir string
	)

	cmd := &cobra.Command{
		Use:   "circle <images...>",
		Short: "Crop images into circular 800x800 badges",
		Long: `Crops each input into a transparent 800x800 PNG with the image clipped to a
circle. Inputs can be local files or http(s) URLs. Each badge is written as
avatar-<name>.png in the output directory.`,
		Example: `  # Crop two photos with the default cover fit
  avatarsheet circle me.jpg you.png

  # Zoom in and shift the image left
  avatarsheet circle --scale 1.5 --x -60 me.jpg --out-dir badges`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := t.Validate(); err != nil {
				return err
			}
			if t.NeedsFill() {
				slog.Warn("Transform leaves empty space inside the circle", "scale", t.Scale, "x", t.X, "y", t.Y)
			}

			if err := os.MkdirAll(outDir, 0755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}

			uploads, err := loadInputs(cmd.Context(), args)
			if err != nil {
				return err
			}

			g, _ := errgroup.WithContext(cmd.Context())
			g.SetLimit(runtime.NumCPU())
			for _, u := range uploads {
				g.Go(func() error {
					out, err := compositor.CircleBytes(u.Data, t)
					if err != nil {
						return fmt.Errorf("%s: %w", u.Name, err)
					}

					path := filepath.Join(outDir, models.AvatarFilename(u.Name))
					if err := os.WriteFile(path, out, 0644); err != nil {
						return fmt.Errorf("failed to write badge: %w", err)
					}
					slog.Info("Badge written", "input", u.Name, "path", path)
					return nil
				})
			}

			return g.Wait()
		},
	}

	cmd.Flags().Float64Var(&t.Scale, "scale", 1.0, "Zoom factor between 0.1 and 3")
	cmd.Flags().IntVar(&t.X, "x", 0, "Horizontal offset in pixels")
	cmd.Flags().IntVar(&t.Y, "y", 0, "Vertical offset in pixels")
	cmd.Flags().StringVarP(&outDir, "out-dir", "d", ".", "Directory to write badges to")

	return cmd
}
