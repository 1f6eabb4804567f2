package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ledgercast/internal/syncer"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <target> <type>",
		Short: "Attach to an in-flight job and follow it until it finishes",
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

			printer := newEntryPrinter(cmd.OutOrStdout())
			opts := ctx.syncOptions()
			opts.LogSink = printer.print

			ctrl := syncer.NewController(client, target, jobType, nil, opts)
			defer ctrl.Close()

			if err := ctrl.Resume(cmd.Context()); err != nil {
				return err
			}
			if ctrl.State() == syncer.StateIdle {
				fmt.Fprintf(cmd.OutOrStdout(), "No job for %s %s\n", target, jobType)
				return nil
			}
			return waitForOutcome(cmd, ctrl)
		},
	}
}

// waitForOutcome blocks until the controller stops tracking, then reports the
// final state. Interrupting the command detaches from the job without
// cancelling it.
func waitForOutcome(cmd *cobra.Command, ctrl *syncer.Controller) error {
	select {
	case <-cmd.Context().Done():
		fmt.Fprintln(cmd.OutOrStdout(), "Detached; the job keeps running on the daemon")
		return nil
	case <-ctrl.Done():
	}

	snap := ctrl.Snapshot()
	out := cmd.OutOrStdout()
	switch snap.State {
	case syncer.StateCompleted:
		fmt.Fprintf(out, "Job %s completed\n", snap.JobID)
		return nil
	case syncer.StateCancelled:
		fmt.Fprintf(out, "Job %s cancelled\n", snap.JobID)
		return nil
	case syncer.StateFailed:
		if snap.Error != "" {
			return fmt.Errorf("job %s failed: %s", snap.JobID, snap.Error)
		}
		return fmt.Errorf("job %s failed", snap.JobID)
	default:
		fmt.Fprintf(out, "Stopped tracking job %s (state %s)\n", snap.JobID, snap.State)
		return nil
	}
}
