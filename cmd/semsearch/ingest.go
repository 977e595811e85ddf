package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/semsearch/internal/cli"
	"github.com/hyperjump/semsearch/internal/corpus"
	"github.com/hyperjump/semsearch/internal/models"
	"github.com/hyperjump/semsearch/internal/watcher"
	semerr "github.com/hyperjump/semsearch/pkg/errors"
)

func newIngestCmd(a *app) *cobra.Command {
	var (
		corpusPaths []string
		watch       bool
		batchSize   int
		concurrency int
		output      string
		quiet       bool
	)
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Embed the corpus and write a new snapshot",
		Long: `Embed every document of the corpus and replace the stored snapshot.

The corpus is a JSON or YAML list of {id, text, metadata} documents. --corpus may
be repeated; the files are ingested together and ids must be unique across them.
Without --corpus (and no ingest.corpus_path in the config) the built-in sample
corpus is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := cli.ParseOutputFormat(output)
			if err != nil {
				return err
			}
			paths := corpusPaths
			if !cmd.Flags().Changed("corpus") && a.cfg.Ingest.CorpusPath != "" {
				paths = []string{a.cfg.Ingest.CorpusPath}
			}
			for _, p := range paths {
				if !corpus.IsSupported(p) {
					return semerr.New(semerr.CodeCLIInputInvalid, "corpus files must be .json, .yaml, or .yml",
						semerr.FieldPath(p))
				}
			}
			if cmd.Flags().Changed("batch-size") {
				a.cfg.Ingest.BatchSize = batchSize
			}
			if cmd.Flags().Changed("concurrency") {
				a.cfg.Ingest.Concurrency = concurrency
			}
			if watch && len(paths) == 0 {
				return semerr.New(semerr.CodeCLIInputInvalid, "--watch needs a corpus file")
			}

			var progress func(done, total int)
			if !quiet && format == cli.OutputText {
				progress = func(done, total int) {
					fmt.Fprintf(cmd.ErrOrStderr(), "Embedded %d/%d\n", done, total)
				}
			}
			comps, err := initializeComponents(a.cfg, a.logger, componentOptions{progress: progress})
			if err != nil {
				return err
			}
			defer comps.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			runOnce := func(ctx context.Context) error {
				docs, err := loadCorpus(paths)
				if err != nil {
					return err
				}
				report, err := comps.Indexer.Ingest(ctx, docs)
				if err != nil {
					return err
				}
				return cli.WriteIngestReport(cmd.OutOrStdout(), report, format)
			}

			if err := runOnce(ctx); err != nil {
				return err
			}
			if !watch {
				return nil
			}

			var mu sync.Mutex
			w := watcher.NewWatcher(nil, func(path string) {
				mu.Lock()
				defer mu.Unlock()
				a.logger.Info("corpus changed, re-ingesting", zap.String("path", path))
				if err := runOnce(ctx); err != nil {
					a.logger.Error("re-ingest failed", zap.String("path", path), zap.Error(err))
				}
			}, watcher.WithLogger(a.logger))
			for _, p := range paths {
				if err := w.AddFile(p); err != nil {
					return err
				}
			}
			if err := w.Start(ctx); err != nil {
				return err
			}
			defer w.Stop()
			fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s for changes (Ctrl+C to stop)\n", strings.Join(w.Files(), ", "))
			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&corpusPaths, "corpus", nil, "corpus file (.json, .yaml, .yml), repeatable; sample corpus when empty")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "re-ingest whenever the corpus file changes")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "documents per embedding request (default from config)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "embedding requests in flight (default from config)")
	cmd.Flags().StringVarP(&output, "output", "o", string(cli.OutputText), "output format: text or json")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print progress")
	return cmd
}

func loadCorpus(paths []string) ([]models.Document, error) {
	if len(paths) == 0 {
		return corpus.Sample(), nil
	}
	var docs []models.Document
	for _, p := range paths {
		loaded, err := corpus.Load(p)
		if err != nil {
			return nil, err
		}
		docs = append(docs, loaded...)
	}
	return docs, nil
}
