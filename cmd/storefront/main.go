// Command storefront serves the MiniMall shop pages and offers a few
// offline helpers around the backend's data.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configFile string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "storefront",
	Short: "MiniMall storefront web front end",
	Long: `storefront renders the MiniMall shop: catalog, cart, checkout, order
history, profile and the seller pages. All data lives in the MiniMall
backend API; the storefront keeps only per-visitor session state.

Configuration comes from defaults, STOREFRONT_* environment variables, an
optional config file (--config) and flags, in that order.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (JSON or YAML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd, customersCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
