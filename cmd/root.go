package cmd

import (
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "avatarsheet",
		Short: "Circular avatar badges and printable badge sheets",
		Long: `Avatarsheet crops photos into 800x800 circular badges and lays up to six
of them out on an A4 sheet ready for printing.

Badges can be retouched through a generative image service (Gemini, OpenAI
or Ollama): fill the empty space left by zooming out, or enhance quality.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			slog.SetDefault(slog.New(newLogger(verbose)))
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	// Add subcommands
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newCircleCmd())
	cmd.AddCommand(newSheetCmd())

	return cmd
}

// newLogger returns a charm log handler. LOG_LEVEL sets the level unless
// --verbose is given.
func newLogger(verbose bool) *charmlog.Logger {
	level := charmlog.InfoLevel
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		if parsed, err := charmlog.ParseLevel(env); err == nil {
			level = parsed
		}
	}
	if verbose {
		level = charmlog.DebugLevel
	}

	return charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}
