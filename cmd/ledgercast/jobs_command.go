package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ledgercast/internal/job"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var statusFilters []string

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List generation jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var statuses []job.Status
			for _, value := range statusFilters {
				status, ok := job.ParseStatus(value)
				if !ok {
					return fmt.Errorf("unknown status %q", value)
				}
				statuses = append(statuses, status)
			}

			client, err := ctx.newClient()
			if err != nil {
				return err
			}
			resp, err := client.List(cmd.Context(), statuses...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(resp.Jobs) == 0 {
				fmt.Fprintln(out, "No jobs")
				return nil
			}

			rows := make([][]string, 0, len(resp.Jobs))
			for _, rec := range resp.Jobs {
				rows = append(rows, []string{
					rec.TargetID,
					rec.JobType,
					statusLabel(rec.Status),
					fmt.Sprintf("%.0f%%", rec.Progress),
					rec.Message,
					rec.UpdatedAt.Local().Format("15:04:05"),
				})
			}
			headers := []string{"Target", "Type", "Status", "Progress", "Message", "Updated"}
			aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft}
			fmt.Fprintln(out, renderTable(headers, rows, aligns))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&statusFilters, "status", nil, "Filter by status (repeatable)")
	return cmd
}
