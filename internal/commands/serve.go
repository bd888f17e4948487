package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCommand(g *globals) *cobra.Command {
	var noScheduler bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the recurring scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, err := g.open(ctx, true)
			if err != nil {
				return err
			}
			defer s.close()

			srv := s.Server()
			errs := make(chan error, 2)
			go func() { errs <- srv.Run() }()

			if s.Config.Scheduler.Enabled && !noScheduler {
				go func() {
					if err := s.Scheduler.Run(ctx); err != nil {
						errs <- err
					}
				}()
			}

			select {
			case <-ctx.Done():
				s.Log.Info("shutting down")
			case err := <-errs:
				if err != nil {
					s.Log.Error("server stopped", zap.Error(err))
				}
				stop()
				return err
			}

			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "serve the API only")
	return cmd
}
