package main

import (
	"github.com/spf13/cobra"

	"github.com/jonwraymond/apidiscovery/registry"
)

func NewServeCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the MCP tools",
		Long: `Start loading the API description in the background and serve MCP over
stdio (default) or streamable HTTP. Tool calls made before the load
finishes wait for it.`,
		Args: cobra.NoArgs,
		RunE: makeServeRunner(version),
	}

	addServeFlags(cmd)
	return cmd
}

func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().String("transport", "", "MCP transport (stdio|streamable-http); overrides MCP_TRANSPORT")
	cmd.Flags().String("addr", "", "Listen address for streamable-http; overrides MCP_HTTP_ADDR")
}

func makeServeRunner(version string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		a, err := setup(cmd, version)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		a.disc.Start(a.cfg.SpecURL)
		return registry.Serve(cmd.Context(), a.cfg.Transport, a.cfg.HTTPAddr, a.reg)
	}
}
