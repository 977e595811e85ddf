package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hyperjump/semsearch/internal/config"
	semerr "github.com/hyperjump/semsearch/pkg/errors"
)

// skipConfigAnnotation marks commands that run without loading a config file.
const skipConfigAnnotation = "semsearch/skip-config"

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	cmd.AddCommand(newConfigInitCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var (
		force    bool
		provider string
	)
	cmd := &cobra.Command{
		Use:         "init [path]",
		Short:       "Write a config file with default settings",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultFileName
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return semerr.New(semerr.CodeCLIInputInvalid, "config file already exists; use --force to overwrite",
					semerr.FieldPath(path))
			}

			cfg := &config.Config{}
			config.ApplyDefaults(cfg)
			if provider != "" {
				cfg.Embedding.Provider = provider
			}
			if err := config.Save(path, cfg); err != nil {
				return semerr.Wrap(err, semerr.CodeConfigSaveWriteFailure, "write config file", semerr.FieldPath(path))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	cmd.Flags().StringVar(&provider, "provider", "", "embedding provider to write (openai or mock)")
	return cmd
}
