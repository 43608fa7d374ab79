package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show request counts and resolution metrics",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			stats, err := apiClient.Stats(context.Background())
			if err != nil {
				fatal("get stats", err)
			}
			if flagFmt == "table" {
				rows := [][]string{
					{"pending", fmt.Sprintf("%d", stats.Pending)},
					{"in_review", fmt.Sprintf("%d", stats.InReview)},
					{"escalated", fmt.Sprintf("%d", stats.Escalated)},
					{"approved", fmt.Sprintf("%d", stats.Approved)},
					{"rejected", fmt.Sprintf("%d", stats.Rejected)},
					{"expired", fmt.Sprintf("%d", stats.Expired)},
					{"cancelled", fmt.Sprintf("%d", stats.Cancelled)},
					{"avg_resolution_seconds", fmt.Sprintf("%.1f", stats.AvgResolutionSeconds)},
				}
				formatTable([]string{"METRIC", "VALUE"}, rows)
				return
			}
			output(stats, "")
		},
	}
	return cmd
}
