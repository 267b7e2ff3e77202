package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/keepmark/internal/app"
	"github.com/MrSnakeDoc/keepmark/internal/config"
)

var (
	addrFlag  string
	storeFlag string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "run the HTTP server",
	Long:  "run the HTTP server. Configuration comes from KEEPMARK_* environment variables; flags override them.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) (err error) {
		// config.Load panics on missing required variables
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("invalid configuration: %v", r)
			}
		}()

		if err := applyFlags(cmd); err != nil {
			return err
		}
		cfg := config.Load()
		if cfg.ShutdownTimeout <= 0 {
			cfg.ShutdownTimeout = 5 * time.Second
		}

		a, err := app.New(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("failed to start: %w", err)
		}
		return a.Run(cmd.Context())
	},
}

// applyFlags exports changed flags as environment overrides so that
// config.Load validates them like any other setting.
func applyFlags(cmd *cobra.Command) error {
	overrides := []struct{ flag, env, value string }{
		{"addr", "KEEPMARK_LISTEN_ADDR", addrFlag},
		{"store", "KEEPMARK_STORE", storeFlag},
	}
	for _, o := range overrides {
		if f := cmd.Flags().Lookup(o.flag); f == nil || !f.Changed {
			continue
		}
		if err := os.Setenv(o.env, o.value); err != nil {
			return fmt.Errorf("failed to apply --%s: %w", o.flag, err)
		}
	}
	return nil
}

func init() {
	for _, c := range []*cobra.Command{rootCmd, serveCmd} {
		c.Flags().StringVar(&addrFlag, "addr", "", "listen address (overrides KEEPMARK_LISTEN_ADDR)")
		c.Flags().StringVar(&storeFlag, "store", "", "storage backend [redis|badger|memory] (overrides KEEPMARK_STORE)")
	}
	rootCmd.AddCommand(serveCmd)
}
