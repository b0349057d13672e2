package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/templui/gatekeeper/internal/config"
	"github.com/templui/gatekeeper/internal/service"
	"github.com/templui/gatekeeper/internal/storage"
)

func TranscriptCmd() *cobra.Command {
	var remote bool
	var html bool

	cmd := &cobra.Command{
		Use:   "transcript <file|key>",
		Short: "Show an archived check-in transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var transcript *service.Transcript
			if remote {
				cfg := config.Load()
				if !cfg.ArchiveEnabled() {
					return fmt.Errorf("transcript archive is not configured")
				}
				store, err := storage.New(cfg)
				if err != nil {
					return err
				}
				transcript, err = service.NewTranscriptArchiver(store).Load(cmd.Context(), args[0])
				if err != nil {
					return err
				}
			} else {
				data, err := os.ReadFile(args[0])
				if err != nil {
					return err
				}
				transcript, err = service.ParseTranscript(data)
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			meta := transcript.Meta
			fmt.Fprintf(out, "goal:      %s (%s)\n", meta.Title, meta.GoalID)
			fmt.Fprintf(out, "closed:    %s\n", meta.ClosedAt.Format(time.RFC3339))
			fmt.Fprintf(out, "scheduled: %t\n", meta.Scheduled)
			fmt.Fprintf(out, "messages:  %d\n", meta.Messages)
			fmt.Fprintf(out, "completed: %t\n", meta.Completed)
			if html {
				fmt.Fprintln(out)
				_, err := out.Write(transcript.HTML)
				return err
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&remote, "remote", false, "load the key from the S3 transcript archive")
	cmd.Flags().BoolVar(&html, "html", false, "print the rendered conversation")
	return cmd
}
