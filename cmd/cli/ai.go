package main

import (
	"fmt"
	"net/http"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aryan0dhankhar/minilibrary/internal/service"
)

func newAICmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ai",
		Short: "Metadata suggestions and catalog search",
	}

	var author string
	suggest := &cobra.Command{
		Use:   "suggest <title>",
		Short: "Suggest genre, tags and description for a title",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{"title": strings.Join(args, " ")}
			if author != "" {
				body["author"] = author
			}
			var res service.MetadataSuggestion
			if err := newAPIClient(opts).do(cmd.Context(), http.MethodPost, "/ai/suggest-metadata", body, &res); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	suggest.Flags().StringVar(&author, "author", "", "author of the book")

	var limit int
	search := &cobra.Command{
		Use:   "search <query>",
		Short: "Rank books by how many query terms they match",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{"query": strings.Join(args, " ")}
			if limit > 0 {
				body["limit"] = limit
			}
			var res service.SearchResponse
			if err := newAPIClient(opts).do(cmd.Context(), http.MethodPost, "/ai/semantic-search", body, &res); err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SCORE\tID\tTITLE\tAUTHOR")
			for _, r := range res.Results {
				fmt.Fprintf(w, "%.2f\t%s\t%s\t%s\n", r.Score, r.ID, r.Title, r.Author)
			}
			return w.Flush()
		},
	}
	search.Flags().IntVar(&limit, "limit", 0, "maximum results (1-20, default 5)")

	cmd.AddCommand(suggest, search)
	return cmd
}
