package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/oversightlabs/oversight/client"
)

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Query the state transition audit trail",
	}
	cmd.AddCommand(auditListCmd())
	cmd.AddCommand(auditPurgeCmd())
	return cmd
}

func auditListCmd() *cobra.Command {
	var (
		requestID string
		toStatus  string
		actorType string
		since     string
		limit     int
		offset    int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List state transitions",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			opts := &client.AuditQueryOptions{
				RequestID: requestID,
				ToStatus:  toStatus,
				ActorType: actorType,
				Limit:     limit,
				Offset:    offset,
			}
			if since != "" {
				t, err := time.Parse(time.RFC3339, since)
				if err != nil {
					fatal("parse --since", err)
				}
				opts.Since = t
			}
			transitions, hasMore, err := apiClient.Audit.Query(context.Background(), opts)
			if err != nil {
				fatal("query audit trail", err)
			}
			if flagFmt == "table" {
				rows := make([][]string, 0, len(transitions))
				for _, tr := range transitions {
					rows = append(rows, []string{
						fmt.Sprintf("%d", tr.ID), tr.RequestID,
						tr.FromStatus + " -> " + tr.ToStatus,
						tr.ActorType, tr.ActorID,
						tr.CreatedAt.Format(time.RFC3339),
					})
				}
				formatTable([]string{"ID", "REQUEST", "TRANSITION", "ACTOR", "ACTOR_ID", "AT"}, rows)
				if hasMore {
					fmt.Println("(more results available, use --offset)")
				}
				return
			}
			output(map[string]any{"transitions": transitions, "has_more": hasMore}, "")
		},
	}
	cmd.Flags().StringVar(&requestID, "request", "", "Filter by request ID")
	cmd.Flags().StringVar(&toStatus, "to-status", "", "Filter by destination status")
	cmd.Flags().StringVar(&actorType, "actor-type", "", "Filter by actor type: user|system|policy")
	cmd.Flags().StringVar(&since, "since", "", "Only transitions at or after this RFC3339 timestamp")
	cmd.Flags().IntVar(&limit, "limit", 50, "Max results")
	cmd.Flags().IntVar(&offset, "offset", 0, "Pagination offset")
	return cmd
}

func auditPurgeCmd() *cobra.Command {
	var retentionDays int
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete transitions of resolved requests older than the retention window",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			result, err := apiClient.Audit.Purge(context.Background(), retentionDays)
			if err != nil {
				fatal("purge audit trail", err)
			}
			output(result, fmt.Sprintf("%d", result.Deleted))
		},
	}
	cmd.Flags().IntVar(&retentionDays, "retention-days", 90, "Keep transitions newer than this many days")
	return cmd
}
