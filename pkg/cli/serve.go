package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/adfharrison1/go-docrepo/pkg/logger"
	"github.com/adfharrison1/go-docrepo/pkg/server"
)

// shutdownTimeout bounds the wait for outstanding requests
const shutdownTimeout = 30 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Port           int
	DataFile       string
	BackgroundSave time.Duration
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the docrepo HTTP server.

The snapshot in the data file is loaded on start and written back on
graceful shutdown. Without --background-save, data is only saved on
shutdown.

Example:
  docrepo serve --config docrepo.yaml
  docrepo serve --port 9090 --background-save 5m`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Port, "port", "p", 0, "listen port (overrides config)")
	cmd.Flags().StringVar(&opts.DataFile, "data-file", "", "snapshot file (overrides config)")
	cmd.Flags().DurationVar(&opts.BackgroundSave, "background-save", 0, "background save interval, e.g. 5m (overrides config)")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if opts.Port > 0 {
		cfg.Port = opts.Port
	}
	if opts.DataFile != "" {
		cfg.DataFile = opts.DataFile
	}
	if opts.BackgroundSave > 0 {
		cfg.BackgroundSave = opts.BackgroundSave
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		return err
	}
	if err := srv.InitDB(cfg.DataFile); err != nil {
		return err
	}
	if cfg.BackgroundSave > 0 {
		logger.Info("background save enabled", "interval", cfg.BackgroundSave)
	} else {
		logger.Warn("background save disabled, data only saved on graceful shutdown")
	}
	srv.StartBackgroundWorkers()
	defer srv.StopBackgroundWorkers()

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting docrepo server", "addr", cfg.Addr(), "app", cfg.AppName)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	// Save after in-flight requests are done
	if err := srv.SaveDB(cfg.DataFile); err != nil {
		return err
	}
	logger.Info("server exited")
	return nil
}
