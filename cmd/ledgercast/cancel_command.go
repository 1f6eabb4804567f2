package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ledgercast/internal/syncer"
)

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <target> <type>",
		Short: "Request cancellation of the current job for a target",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, jobType, err := pairFromArgs(args)
			if err != nil {
				return err
			}
			client, err := ctx.newClient()
			if err != nil {
				return err
			}

			resp, err := client.Cancel(cmd.Context(), target, jobType)
			if err != nil {
				if syncer.IsNotFound(err) {
					return fmt.Errorf("no job for %s %s", target, jobType)
				}
				return err
			}

			out := cmd.OutOrStdout()
			if resp.CancelRequested {
				fmt.Fprintf(out, "Cancellation requested for job %s\n", resp.JobID)
			} else {
				fmt.Fprintf(out, "Job %s already finished (%s)\n", resp.JobID, resp.Status)
			}
			return nil
		},
	}
}
