package main

import (
	"github.com/spf13/cobra"
)

func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "apimcp",
		Short: "Serve an OpenAPI description to LLM agents over MCP",
		Long: `apimcp loads an OpenAPI 3.x or Swagger 2.0 description and exposes it as
MCP tools: endpoint listing, tiered endpoint details, schema lookup, tag
overview and semantic endpoint search.

Run without a subcommand to serve.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          makeServeRunner(version),
	}

	addPersistentFlags(rootCmd)
	addServeFlags(rootCmd)

	rootCmd.AddCommand(
		NewServeCmd(version),
		NewSearchCmd(version),
		NewWarmCmd(version),
		NewProvidersCmd(),
		NewVersionCmd(version),
	)
	return rootCmd
}

func addPersistentFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("config", "", "YAML config file")
	cmd.PersistentFlags().String("log-level", "", "Log level (debug|info|warn|error); overrides LOG_LEVEL")
	cmd.PersistentFlags().Bool("json", false, "Output in JSON format")
}
