package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/zukan/internal/server"
	"github.com/hyperjump/zukan/internal/vector"
)

type serverOptions struct {
	host  string
	port  int
	index string
}

func newServerCommand(g *globalOptions) *cobra.Command {
	opts := &serverOptions{}
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Serve the HTTP API",
		Long: `Start the HTTP API. A saved index in the index directory is loaded at startup and
the current index is saved back there on shutdown.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd, g, opts)
		},
	}
	cmd.Flags().StringVar(&opts.host, "host", "", "listen host (default from config)")
	cmd.Flags().IntVar(&opts.port, "port", 0, "listen port (default from config)")
	cmd.Flags().StringVar(&opts.index, "index", "", "index directory (default from config)")
	return cmd
}

func runServer(cmd *cobra.Command, g *globalOptions, opts *serverOptions) error {
	e, err := g.setup(true)
	if err != nil {
		return err
	}
	defer e.logger.Sync()
	logger := e.logger
	logger.Info("config loaded", zap.String("config_path", e.configPath), zap.Bool("debug", e.debug))

	if opts.host != "" {
		e.cfg.Server.Host = opts.host
	}
	if opts.port != 0 {
		e.cfg.Server.Port = opts.port
	}
	e.cfg.Index.Path = e.indexDir(opts.index)

	ctx := cmd.Context()
	sess, err := e.openSession(ctx, true, false)
	if err != nil {
		return err
	}
	defer sess.Close()

	if _, err := os.Stat(filepath.Join(e.cfg.Index.Path, vector.MetaFile)); err == nil {
		if err := sess.Load(ctx, e.cfg.Index.Path); err != nil {
			logger.Warn("saved index not loaded", zap.String("dir", e.cfg.Index.Path), zap.Error(err))
		}
	}

	srv := server.NewServer(sess, e.cfg, logger)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	select {
	case <-sigChan:
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(shutdownCtx)

	if err := sess.Save(shutdownCtx, e.cfg.Index.Path); err != nil && !errors.Is(err, vector.ErrNotInitialized) {
		logger.Warn("index save failed", zap.String("dir", e.cfg.Index.Path), zap.Error(err))
	}
	return nil
}
