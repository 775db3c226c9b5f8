package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrBlankCoding/StockDashboard/store"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <account-id>",
		Short: "Print an account's trade history, newest first",
		Args:  cobra.ExactArgs(1),
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

			if _, err := st.GetAccount(ctx, args[0]); err != nil {
				return err
			}
			trades, err := st.ListTrades(ctx, args[0], limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tTYPE\tSYMBOL\tSHARES\tPRICE\tTOTAL\tREASON")
			for _, tr := range trades {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					tr.Timestamp.Format(time.RFC3339), tr.Type, tr.Symbol,
					tr.Shares, tr.Price, tr.Total, tr.Reason)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of trades to print (0 = all)")
	return cmd
}
