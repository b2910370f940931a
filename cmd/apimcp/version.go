package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	commit    = ""
	buildDate = ""
)

func NewVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version and build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Version:    %s\n", version)
			fmt.Fprintf(w, "Commit:     %s\n", emptyAsNA(commit))
			fmt.Fprintf(w, "Build Date: %s\n", emptyAsNA(buildDate))
			fmt.Fprintf(w, "Go Version: %s\n", runtime.Version())
			fmt.Fprintf(w, "OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
			return nil
		},
	}
}

func emptyAsNA(s string) string {
	if s == "" {
		return "n/a"
	}
	return s
}
