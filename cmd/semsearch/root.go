package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hyperjump/semsearch/internal/config"
	semerr "github.com/hyperjump/semsearch/pkg/errors"
	"github.com/hyperjump/semsearch/pkg/utils"
)

// app holds state shared by every subcommand once the root pre-run has loaded it.
type app struct {
	configPath string
	debug      bool
	cfg        *config.Config
	logger     *zap.Logger
}

// NewRootCmd creates the root semsearch command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "semsearch",
		Short:         "semsearch: embed a document corpus and search it by meaning",
		Long:          "semsearch embeds short text documents with an embedding model, stores the vectors as one snapshot, and ranks them against free-text queries by cosine similarity.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to config file (default ./"+config.DefaultFileName+" when present)")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newIngestCmd(a),
		newQueryCmd(a),
		newServeCmd(a),
		newStatusCmd(a),
		newConfigCmd(),
		newVersionCmd(),
	)
	return root
}

func (a *app) load(cmd *cobra.Command) error {
	if cmd.Name() == "version" || cmd.Annotations[skipConfigAnnotation] != "" {
		return nil
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	debug := cfg.Debug || a.debug

	logger, err := utils.NewLogger(debug)
	if err != nil {
		return semerr.Wrap(err, semerr.CodeServerInternalFailure, "failed to create logger")
	}
	// one-shot commands only report problems unless debugging
	if !debug && cmd.Name() != "serve" {
		logger = logger.WithOptions(zap.IncreaseLevel(zapcore.WarnLevel))
	}
	a.logger = logger
	a.logger.Debug("config loaded",
		zap.String("config_path", a.configPath),
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.String("snapshot", cfg.Storage.SnapshotPath))
	return nil
}
