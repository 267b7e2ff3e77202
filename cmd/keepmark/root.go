package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const appName = "keepmark"

var rootCmd = &cobra.Command{
	Use:          appName,
	Short:        "Personal bookmark manager with a REST API and web dashboard",
	Long:         "keepmark stores bookmarks per owner, scrapes their title and description, and serves them over a REST API and an HTML dashboard.",
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	// Running the binary without a subcommand serves
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %s: %s\n", appName, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SilenceErrors = true
}
