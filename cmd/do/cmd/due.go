package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/templui/gatekeeper/internal/checkin"
	"github.com/templui/gatekeeper/internal/db"
	"github.com/templui/gatekeeper/internal/repository"
)

func DueCmd() *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "due",
		Short: "List goals that are due for a check-in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			if at != "" {
				parsed, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("invalid --at: %w", err)
				}
				now = parsed
			}

			_, database, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close(database)

			goals, err := repository.NewGoalRepository(database).Incomplete()
			if err != nil {
				return err
			}
			due := checkin.DueGoals(goals, now)

			out := cmd.OutOrStdout()
			if len(due) == 0 {
				fmt.Fprintln(out, "No goals are due.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tFREQUENCY\tLAST CHECKED\tDEADLINE")
			for _, g := range due {
				last := "never"
				if g.LastChecked != nil {
					last = g.LastChecked.Format(time.RFC3339)
				}
				deadline := "-"
				if checkin.ApproachingDeadline(g, now, checkin.DefaultDeadlineWindow) {
					deadline = "soon"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", g.ID, g.Title, g.Frequency, last, deadline)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "evaluate at this RFC 3339 time instead of now")
	return cmd
}
