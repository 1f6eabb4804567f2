package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <target> <type>",
		Short: "Show the current job for a target",
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

			resp, err := client.Status(cmd.Context(), target, jobType)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !resp.HasJob {
				fmt.Fprintf(out, "No job for %s %s\n", target, jobType)
				return nil
			}

			rec := resp.Job
			rows := [][]string{
				{"Job", rec.ID},
				{"Status", statusLabel(rec.Status)},
				{"Progress", fmt.Sprintf("%.0f%%", rec.Progress)},
				{"Message", rec.Message},
				{"Updated", rec.UpdatedAt.Local().Format("2006-01-02 15:04:05")},
			}
			if rec.Error != "" {
				rows = append(rows, []string{"Error", rec.Error})
			}
			if rec.CancelRequested {
				rows = append(rows, []string{"Cancelling", "yes"})
			}
			fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, nil))
			return nil
		},
	}
}
