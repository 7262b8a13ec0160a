package cmd

import (
	"errors"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rentease/rentledger/src/notify"
	"github.com/rentease/rentledger/src/services"
	"github.com/rentease/rentledger/src/store"
)

var (
	genMonth int
	genYear  int
)

// The scheduled monthly billing run: one bill per active tenancy. Tenants
// already billed for the period are skipped, so the job is safe to re-run.
var generateBillsCmd = &cobra.Command{
	Use:   "generate-bills",
	Short: "Create monthly bills for all active tenancies",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		db, err := store.Open(cfg.Database.URL, cfg.Database.MaxOpenConns)
		if err != nil {
			return err
		}
		defer db.Close()

		billing := services.NewBillingService(db, logger, notify.NewLogNotifier(logger))

		tenantIDs, err := billing.ListActiveTenantIDs(ctx)
		if err != nil {
			return err
		}

		var created, skipped, failed int
		for _, tenantID := range tenantIDs {
			_, err := billing.CreateBill(ctx, services.CreateBillRequest{
				TenantID: tenantID,
				ForMonth: genMonth,
				ForYear:  genYear,
			})
			switch {
			case err == nil:
				created++
			case errors.Is(err, services.ErrDuplicateBill):
				skipped++
			default:
				failed++
				logger.Error("bill generation failed",
					zap.String("tenant_id", tenantID.String()),
					zap.Error(err),
				)
			}
		}

		logger.Info("billing run finished",
			zap.Int("for_month", genMonth),
			zap.Int("for_year", genYear),
			zap.Int("created", created),
			zap.Int("skipped", skipped),
			zap.Int("failed", failed),
		)
		return nil
	},
}

func init() {
	month, year := services.CurrentPeriod(time.Now())
	generateBillsCmd.Flags().IntVar(&genMonth, "month", month, "billing month (1-12)")
	generateBillsCmd.Flags().IntVar(&genYear, "year", year, "billing year")
	rootCmd.AddCommand(generateBillsCmd)
}
