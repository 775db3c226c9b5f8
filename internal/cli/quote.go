package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newQuoteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "quote <symbol>",
		Short: "Fetch the current quote for a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			logger, err := buildLogger(cfg.Log)
			if err != nil {
				return err
			}
			defer logger.Sync()

			gateway, cleanup, err := buildGateway(cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			q, err := gateway.LastPrice(ctx, strings.ToUpper(args[0]))
			if err != nil {
				return fmt.Errorf("fetch quote: %w", err)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(q)
		},
	}
}
