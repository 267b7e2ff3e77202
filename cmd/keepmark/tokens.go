package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/keepmark/internal/identity"
	"github.com/MrSnakeDoc/keepmark/internal/sources/tokens"
)

var tokenFileFlag string

var tokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "inspect the token file",
}

var tokensCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "validate the token file without starting the server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := tokenFileFlag
		if path == "" {
			path = os.Getenv("KEEPMARK_TOKEN_FILE")
		}
		if path == "" {
			return fmt.Errorf("no token file: pass --file or set KEEPMARK_TOKEN_FILE")
		}

		cfg, err := tokens.NewLoader(path).Load()
		if err != nil {
			return err
		}
		table, err := tokens.NewMapper().MapTokens(cfg)
		if err != nil {
			return fmt.Errorf("invalid token file %s: %w", path, err)
		}

		t := identity.NewTokenTable()
		t.Replace(table)
		n, owners := t.Count()
		fmt.Fprintf(cmd.OutOrStdout(), "✅ %s: %d tokens for %d owners\n", path, n, owners)
		return nil
	},
}

func init() {
	tokensCheckCmd.Flags().StringVarP(&tokenFileFlag, "file", "f", "", "token file (defaults to KEEPMARK_TOKEN_FILE)")
	tokensCmd.AddCommand(tokensCheckCmd)
	rootCmd.AddCommand(tokensCmd)
}
