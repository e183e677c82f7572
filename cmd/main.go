package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

var configFile string

var rootCmd = &cobra.Command{
	Use:   "grocery-proxy",
	Short: "Forwarding proxy for the RapidAPI Coles and Woolworths price APIs",
	Long: `grocery-proxy exposes five fixed paths and forwards each one to the
matching RapidAPI upstream, injecting the subscription key and host headers.
Status codes, headers and bodies are relayed unchanged.

Running the binary without a subcommand starts the proxy.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Path to a config file (default: ./config/config.yaml or ./config.yaml)")
	flags.String("address", "", "Public listen address (overrides server.address)")
	flags.String("admin-address", "", "Admin listen address (overrides admin.address)")

	_ = viper.BindPFlag("server.address", flags.Lookup("address"))
	_ = viper.BindPFlag("admin.address", flags.Lookup("admin-address"))

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(serveCmd, routesCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("grocery-proxy exited with error", slog.Any("err", err))
		os.Exit(1)
	}
}
