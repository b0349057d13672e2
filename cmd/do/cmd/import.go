package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/templui/gatekeeper/internal/db"
)

func ImportLegacyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import-legacy <file>",
		Short: "Import a legacy JSON export once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, database, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close(database)

			err = db.RunMigrations(database.DB, cfg.DBDriver)
			if err != nil {
				return err
			}

			res, err := db.ImportLegacyFile(database, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if res.Skipped {
				fmt.Fprintf(out, "%s was already imported\n", res.Source)
				return nil
			}
			fmt.Fprintf(out, "imported %d goals, %d tasks, %d events, %d messages, %d projects\n",
				res.Goals, res.Tasks, res.Events, res.Messages, res.Projects)
			return nil
		},
	}
}
