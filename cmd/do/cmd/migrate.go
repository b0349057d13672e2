package cmd

import (
	"github.com/spf13/cobra"
	"github.com/templui/gatekeeper/internal/db"
)

func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, database, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close(database)
			return db.RunMigrations(database.DB, cfg.DBDriver)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, database, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close(database)
			return db.MigrateDown(database.DB, cfg.DBDriver)
		},
	})

	return cmd
}
