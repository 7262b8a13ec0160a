package cmd

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rentease/rentledger/src/api"
	"github.com/rentease/rentledger/src/notify"
	"github.com/rentease/rentledger/src/services"
	"github.com/rentease/rentledger/src/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ledger HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		db, err := store.Open(cfg.Database.URL, cfg.Database.MaxOpenConns)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := store.Migrate(ctx, db, logger); err != nil {
			return err
		}

		var notifier services.Notifier
		if cfg.Kafka.Enabled {
			kafkaNotifier, err := notify.NewKafkaNotifier(cfg.Kafka, logger)
			if err != nil {
				return err
			}
			defer kafkaNotifier.Close()
			notifier = kafkaNotifier
		} else {
			notifier = notify.NewLogNotifier(logger)
		}

		receipts, err := snowflake.NewNode(cfg.Billing.ReceiptNodeID)
		if err != nil {
			return err
		}

		handler := api.NewHandler(
			services.NewBillingService(db, logger, notifier),
			services.NewPaymentService(db, logger, notifier, receipts),
			services.NewDebtService(db),
			services.NewRentCycleService(),
			logger,
		)

		server := api.NewServer(cfg.Server, api.NewRouter(handler), logger)

		errCh := make(chan error, 1)
		go func() {
			logger.Info("server listening", zap.String("addr", server.Addr))
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
