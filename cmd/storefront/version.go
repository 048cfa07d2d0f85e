package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	storefront "github.com/minimall/storefront"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "storefront %s (commit %s, built %s, %s)\n",
			storefront.Version, storefront.GitCommit, storefront.BuildDate, runtime.Version())
	},
}
