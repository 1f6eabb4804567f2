package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ledgercast/internal/syncer"
)

func newStartCommand(ctx *commandContext) *cobra.Command {
	var force bool
	var watch bool

	cmd := &cobra.Command{
		Use:   "start <target> <type>",
		Short: "Start report or podcast generation for a target",
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

			if !watch {
				resp, err := client.Start(cmd.Context(), target, jobType, force)
				if err != nil {
					if syncer.IsConflict(err) {
						return fmt.Errorf("a %s job is already in progress for %s", jobType, target)
					}
					return err
				}
				out := cmd.OutOrStdout()
				if resp.Created {
					fmt.Fprintf(out, "Started %s generation for %s (job %s)\n", jobType, target, resp.JobID)
				} else {
					fmt.Fprintf(out, "Reusing in-flight %s job for %s (job %s)\n", jobType, target, resp.JobID)
				}
				return nil
			}

			printer := newEntryPrinter(cmd.OutOrStdout())
			opts := ctx.syncOptions()
			opts.LogSink = printer.print

			ctrl := syncer.NewController(client, target, jobType, nil, opts)
			defer ctrl.Close()

			if err := ctrl.Follow(cmd.Context(), force); err != nil {
				if syncer.IsConflict(err) {
					return fmt.Errorf("a %s job is already in progress for %s", jobType, target)
				}
				return err
			}
			return waitForOutcome(cmd, ctrl)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Insist on a fresh job; fail instead of reusing an in-flight one")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Follow the job until it finishes")
	return cmd
}
