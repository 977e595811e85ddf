package main

import (
	"github.com/spf13/cobra"

	"github.com/hyperjump/semsearch/internal/cli"
)

func newStatusCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Describe the stored snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := cli.ParseOutputFormat(output)
			if err != nil {
				return err
			}
			comps, err := initializeComponents(a.cfg, a.logger, componentOptions{})
			if err != nil {
				return err
			}
			defer comps.Close()

			info, err := comps.Engine.Status(cmd.Context())
			if err != nil {
				return err
			}
			return cli.WriteStatus(cmd.OutOrStdout(), info, format)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", string(cli.OutputText), "output format: text or json")
	return cmd
}
