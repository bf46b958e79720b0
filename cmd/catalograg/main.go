// Package main is the entry point for the catalograg CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set via ldflags during build.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type globalFlags struct {
	configPath string
	envFile    string
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}
	cmd := &cobra.Command{
		Use:   "catalograg",
		Short: "Assessment catalog recommender",
		Long: `catalograg indexes an assessment catalog into a local vector index and answers
hiring queries with grounded recommendations.

Configuration is loaded in the following order (later sources override earlier):
  1. Default values
  2. config.yaml in the working directory, else ~/.config/catalograg/config.yaml
  3. .env file (if present)
  4. CATALOGRAG_* environment variables
  5. Command line flags`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "Path to YAML config file")
	cmd.PersistentFlags().StringVar(&flags.envFile, "env-file", "", "Path to .env file (default: .env in current directory)")

	cmd.AddCommand(ingestCmd(flags))
	cmd.AddCommand(recommendCmd(flags))
	cmd.AddCommand(searchCmd(flags))
	cmd.AddCommand(serveCmd(flags))
	cmd.AddCommand(tuiCmd(flags))
	cmd.AddCommand(versionCmd())
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "catalograg version %s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", commit)
		},
	}
}
