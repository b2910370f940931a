package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/apidiscovery/discovery"
)

func NewSearchCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search endpoints",
		Long:  `Load the API description once and print the endpoints that best match the query.`,
		Args:  cobra.MinimumNArgs(1),
		RunE:  makeSearchRunner(version),
	}

	cmd.Flags().IntP("number", "n", 10, "Maximum results")
	return cmd
}

type searchResultJSON struct {
	Method    string  `json:"method"`
	Path      string  `json:"path"`
	Summary   string  `json:"summary"`
	DocsURL   string  `json:"docs_url,omitempty"`
	Score     float64 `json:"score"`
	ScoreType string  `json:"score_type"`
}

func makeSearchRunner(version string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		limit, _ := cmd.Flags().GetInt("number")
		asJSON, _ := cmd.Flags().GetBool("json")

		a, err := setup(cmd, version)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		a.disc.Start(a.cfg.SpecURL)
		results, err := a.disc.Search(cmd.Context(), query, limit)
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}

		if asJSON {
			return outputSearchResultsJSON(cmd, results)
		}
		for _, r := range results {
			fmt.Fprintf(cmd.OutOrStdout(), "%.4f  %-7s %s  %s\n", r.Score, r.Endpoint.Method, r.Endpoint.Path, r.Endpoint.Summary)
		}
		return nil
	}
}

func outputSearchResultsJSON(cmd *cobra.Command, results discovery.Results) error {
	out := make([]searchResultJSON, 0, len(results))
	for _, r := range results {
		out = append(out, searchResultJSON{
			Method:    r.Endpoint.Method,
			Path:      r.Endpoint.Path,
			Summary:   r.Endpoint.Summary,
			DocsURL:   r.Endpoint.DocsURL,
			Score:     r.Score,
			ScoreType: string(r.ScoreType),
		})
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
