package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/semsearch/internal/server"
	"github.com/hyperjump/semsearch/internal/storage"
	"github.com/hyperjump/semsearch/internal/watcher"
	semerr "github.com/hyperjump/semsearch/pkg/errors"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var (
		host string
		port int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the search API over HTTP",
		Long: `Serve search, ingest, and status over HTTP.

The loaded snapshot is kept in memory and reloaded when the snapshot file
changes on disk, so a separate "semsearch ingest" is picked up without a restart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("host") {
				a.cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = port
			}
			logger := a.logger

			comps, err := initializeComponents(a.cfg, logger, componentOptions{cacheSnapshot: true})
			if err != nil {
				return err
			}
			defer comps.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			snapshotPath := comps.Store.Location()
			if err := os.MkdirAll(filepath.Dir(snapshotPath), 0755); err != nil {
				return semerr.Wrap(err, semerr.CodeServerStartFailure, "failed to create snapshot directory",
					semerr.FieldPath(filepath.Dir(snapshotPath)))
			}
			watchSvc := watcher.NewWatcher(snapshotFiles(comps.Store), func(path string) {
				logger.Info("snapshot changed on disk, reloading on next query", zap.String("path", path))
				comps.Engine.Invalidate()
			}, watcher.WithLogger(logger))
			if err := watchSvc.Start(ctx); err != nil {
				return err
			}
			defer watchSvc.Stop()

			srv := server.NewServer(
				comps.Engine,
				comps.Indexer,
				&a.cfg.Server,
				logger,
				server.WithSearchLimits(a.cfg.Search.DefaultLimit, a.cfg.Search.MaxLimit),
			)
			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			logger.Info("Shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Stop(shutdownCtx); err != nil {
				logger.Warn("server shutdown failed", zap.Error(err))
			}
			return <-errCh
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "listen host (default from config)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default from config)")
	return cmd
}

// snapshotFiles lists the files whose writes mean a new snapshot. The SQLite
// shared-memory file changes on every read, so it is left out.
func snapshotFiles(store storage.SnapshotStore) []string {
	var files []string
	for _, f := range storage.StoreFiles(store) {
		if !strings.HasSuffix(f, "-shm") {
			files = append(files, f)
		}
	}
	return files
}
