package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MrBlankCoding/StockDashboard/events"
	"github.com/MrBlankCoding/StockDashboard/server"
	"github.com/MrBlankCoding/StockDashboard/store"
	"github.com/MrBlankCoding/StockDashboard/trading"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			logger, err := buildLogger(cfg.Log)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			st, err := store.Open(ctx, cfg.Storage)
			if err != nil {
				return err
			}
			defer st.Close()

			gateway, cleanup, err := buildGateway(cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			var publisher events.Publisher = events.NoopPublisher{}
			if cfg.Events.Enabled {
				kp := events.NewKafkaPublisher(cfg.Events.Brokers, cfg.Events.Topic)
				defer kp.Close()
				publisher = kp
			}

			svc := trading.NewService(st, gateway, publisher, logger, cfg.OpeningBalance())
			srv := server.New(svc, gateway, logger, cfg.Server.CORSOrigin)

			logger.Info("serving",
				zap.String("addr", cfg.Server.Addr),
				zap.String("storage", cfg.Storage.Driver),
			)
			return srv.Run(ctx, cfg.Server.Addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")
	return cmd
}
