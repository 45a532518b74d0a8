// pizzamock serves, checks and exports JWT Pizza mock routes.
//
// Usage:
//
//	pizzamock serve [rules...]       Serve rule files and built-in scenarios over HTTP
//	pizzamock validate <rules...>    Check rule files without serving them
//	pizzamock export <scenario>      Print a built-in scenario as a YAML rule file
//	pizzamock scenarios              List the built-in scenarios
//	pizzamock test [scenarios...]    Run API contract scenarios against a backend
//	pizzamock admin <command>        Talk to a running server's /admin plane
//	pizzamock init                   Write a default pizzamock.yaml
package main

import (
	"fmt"
	"os"

	"github.com/pf274/jwt-pizza/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

var configFile string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "pizzamock",
		Short:         "Mock routes and API contracts for the JWT Pizza web client",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ./"+config.DefaultFile+" when present)")

	root.AddCommand(
		newServeCmd(),
		newValidateCmd(),
		newExportCmd(),
		newScenariosCmd(),
		newTestCmd(),
		newAdminCmd(),
		newInitCmd(),
	)
	return root
}

// loadConfig reads the config file and environment, with the given
// command flags bound over both. bindings maps config keys to flag names.
func loadConfig(cmd *cobra.Command, bindings map[string]string) (*config.Config, error) {
	v := viper.New()
	for key, flag := range bindings {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			return nil, fmt.Errorf("no flag %q to bind to %s", flag, key)
		}
		if err := v.BindPFlag(key, f); err != nil {
			return nil, err
		}
	}
	return config.Load(v, configFile)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
