package cmd

import (
	"log/slog"
	"os"
	"time"

	"github.com/lehigh-university-libraries/avatarsheet/internal/retouch"
	"github.com/lehigh-university-libraries/avatarsheet/internal/session"
)

// newRetoucher returns nil when provider is "none".
func newRetoucher(provider string) (session.Retoucher, error) {
	if provider == "none" {
		return nil, nil
	}

	client, err := retouch.NewFromEnv(provider)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func remoteTimeout() time.Duration {
	env := os.Getenv("RETOUCH_TIMEOUT")
	if env == "" {
		return session.DefaultRemoteTimeout
	}

	d, err := time.ParseDuration(env)
	if err != nil || d <= 0 {
		slog.Warn("Ignoring invalid RETOUCH_TIMEOUT", "value", env)
		return session.DefaultRemoteTimeout
	}
	return d
}

func controllerOptions(r session.Retoucher, extra ...session.Option) []session.Option {
	opts := []session.Option{session.WithRemoteTimeout(remoteTimeout())}
	if r != nil {
		opts = append(opts, session.WithRetoucher(r))
	}
	return append(opts, extra...)
}
