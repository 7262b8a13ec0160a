package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rentease/rentledger/src/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.Open(cfg.Database.URL, cfg.Database.MaxOpenConns)
		if err != nil {
			return err
		}
		defer db.Close()

		return store.Migrate(cmd.Context(), db, logger)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
