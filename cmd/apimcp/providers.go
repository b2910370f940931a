package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/apidiscovery/provider"
)

func NewProvidersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List embedding providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			providers, err := provider.Default().ListProviders()
			if err != nil {
				return err
			}
			for _, p := range providers {
				fmt.Fprintf(cmd.OutOrStdout(), "%-8s %s\n", p.Name, p.Description)
			}
			return nil
		},
	}
}
