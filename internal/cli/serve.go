package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"travelplanner/internal/config"
	"travelplanner/internal/ratelimit"
	"travelplanner/internal/server"
	"travelplanner/internal/util"
)

func newServeCommand(opts *Options) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web shell over the current session",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, func(cmd *cobra.Command, _ []string, s *session) error {
			logger := LoggerFromContext(cmd.Context())
			if addr == "" {
				addr = s.cfg.ListenAddr
			}
			limiter, err := newAuthLimiter(s.cfg)
			if err != nil {
				return err
			}
			if c, ok := limiter.(interface{ Close() error }); ok {
				defer c.Close()
			}
			trusted, err := util.NewTrustedProxies(s.cfg.TrustedProxyCIDRs)
			if err != nil {
				return err
			}
			window, _ := config.ParseRateWindow(s.cfg.AuthRateWindow)
			shell, err := server.New(server.Config{
				Store:          s.store,
				Health:         s.api,
				AuthLimiter:    limiter,
				RateWindow:     window,
				TrustedProxies: trusted,
				Logger:         logger,
			})
			if err != nil {
				return err
			}

			srv := &http.Server{
				Addr:              addr,
				Handler:           shell.Router(),
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       15 * time.Second,
				WriteTimeout:      30 * time.Second,
				IdleTimeout:       60 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			errCh := make(chan error, 1)
			go func() {
				logger.Info("server listening", "addr", addr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}
			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		}),
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from listenAddr)")
	return cmd
}

// newAuthLimiter shares counters through redis when the session lives there.
// A nil limiter disables throttling.
func newAuthLimiter(cfg config.FileConfig) (ratelimit.Limiter, error) {
	if cfg.AuthRateLimit <= 0 {
		return nil, nil
	}
	window, err := config.ParseRateWindow(cfg.AuthRateWindow)
	if err != nil {
		return nil, err
	}
	if cfg.Storage.Backend == config.BackendRedis {
		limiter, err := ratelimit.NewRedisLimiter(cfg.Storage.RedisAddr, cfg.Storage.RedisPassword, "travelplanner:ratelimit:auth", cfg.AuthRateLimit, window)
		if err != nil {
			return nil, fmt.Errorf("init auth limiter: %w", err)
		}
		return limiter, nil
	}
	limiter, err := ratelimit.NewMemoryLimiter(cfg.AuthRateLimit, window)
	if err != nil {
		return nil, fmt.Errorf("init auth limiter: %w", err)
	}
	return limiter, nil
}
