package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/hyperjump/semsearch/internal/cli"
	"github.com/hyperjump/semsearch/internal/models"
)

func newQueryCmd(a *app) *cobra.Command {
	var (
		limit  int
		output string
	)
	cmd := &cobra.Command{
		Use:     "query <text>...",
		Aliases: []string{"search"},
		Short:   "Rank the stored documents against a query",
		Example: `  semsearch query "How do I get my money back?"
  semsearch query -k 1 --output json shipping times`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cli.ParseOutputFormat(output)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("limit") {
				limit = a.cfg.Search.DefaultLimit
			}
			if maxLimit := a.cfg.Search.MaxLimit; maxLimit > 0 && limit > maxLimit {
				limit = maxLimit
			}

			comps, err := initializeComponents(a.cfg, a.logger, componentOptions{})
			if err != nil {
				return err
			}
			defer comps.Close()

			resp, err := comps.Engine.Search(cmd.Context(), &models.SearchQuery{
				Query: strings.Join(args, " "),
				Limit: limit,
			})
			if err != nil {
				return err
			}
			return cli.WriteSearchResults(cmd.OutOrStdout(), resp, format)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "k", models.DefaultLimit, "number of results to return")
	cmd.Flags().StringVarP(&output, "output", "o", string(cli.OutputText), "output format: text or json")
	return cmd
}
