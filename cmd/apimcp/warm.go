package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func NewWarmCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "warm",
		Short: "Load the API description and build the embedding cache",
		Long: `Load the API description and compute (or reuse) the corpus embeddings
synchronously, so the next serve starts with a warm cache.`,
		Args: cobra.NoArgs,
		RunE: makeWarmRunner(version),
	}
}

func makeWarmRunner(version string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		a, err := setup(cmd, version)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		a.disc.Start(a.cfg.SpecURL)
		if _, err := a.disc.Warm(cmd.Context()); err != nil {
			return fmt.Errorf("warm: %w", err)
		}
		st := a.disc.Status()

		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(st)
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "source:    %s\n", st.Source)
		fmt.Fprintf(w, "endpoints: %d\n", st.Endpoints)
		fmt.Fprintf(w, "semantic:  %s\n", st.SemanticState)
		if st.SemanticError != "" {
			fmt.Fprintf(w, "error:     %s\n", st.SemanticError)
		}
		if st.CacheKey != "" {
			fmt.Fprintf(w, "cache:     %s (%s)\n", hitOrMiss(st.CacheHit), st.CacheKey)
		}
		return nil
	}
}

func hitOrMiss(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}
