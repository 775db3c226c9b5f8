package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/MrBlankCoding/StockDashboard/account"
	"github.com/MrBlankCoding/StockDashboard/store"
)

func newAccountCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Account management",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create",
		Short: "Open a new paper-trading account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			st, err := store.Open(ctx, cfg.Storage)
			if err != nil {
				return err
			}
			defer st.Close()

			acct := account.New(uuid.NewString(), cfg.OpeningBalance())
			if err := st.CreateAccount(ctx, acct); err != nil {
				return fmt.Errorf("create account: %w", err)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(acct)
		},
	})

	return cmd
}
