package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oversightlabs/oversight/client"
)

func newRequestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "request",
		Short: "Manage oversight requests",
	}
	cmd.AddCommand(requestSubmitCmd())
	cmd.AddCommand(requestGetCmd())
	cmd.AddCommand(requestListCmd())
	cmd.AddCommand(requestDecideCmd())
	cmd.AddCommand(requestCancelCmd())
	cmd.AddCommand(requestNotificationsCmd())
	return cmd
}

func requestSubmitCmd() *cobra.Command {
	var (
		agentID       string
		actionType    string
		dataJSON      string
		justification string
		priority      string
		riskScore     float64
		riskLevel     string
		amount        float64
		reviewers     []string
	)
	cmd := &cobra.Command{
		Use:   "submit <description>",
		Short: "Submit an agent action for oversight",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			req := &client.AdmitRequest{
				AgentID:       agentID,
				ActionType:    actionType,
				Description:   args[0],
				Justification: justification,
				Priority:      priority,
				Risk:          client.RiskAssessment{Score: riskScore, Level: riskLevel},
				Amount:        amount,
			}
			if dataJSON != "" {
				if err := json.Unmarshal([]byte(dataJSON), &req.ActionData); err != nil {
					fatal("parse action data", err)
				}
			}
			for _, r := range reviewers {
				if role, ok := strings.CutPrefix(r, "role:"); ok {
					req.Reviewers = append(req.Reviewers, client.RequiredReviewer{Role: role})
					continue
				}
				req.Reviewers = append(req.Reviewers, client.RequiredReviewer{ReviewerID: r})
			}
			r, err := apiClient.Requests.Admit(context.Background(), req)
			if err != nil {
				fatal("submit request", err)
			}
			output(r, r.ID)
		},
	}
	cmd.Flags().StringVar(&agentID, "agent", "", "Submitting agent ID (required)")
	cmd.Flags().StringVar(&actionType, "action", "", "Action type: transaction|data_access|external_api|code_execution|communication")
	cmd.Flags().StringVar(&dataJSON, "data", "", "Action payload as JSON")
	cmd.Flags().StringVar(&justification, "justification", "", "Why the agent wants to act")
	cmd.Flags().StringVar(&priority, "priority", "", "Priority: low|medium|high|critical")
	cmd.Flags().Float64Var(&riskScore, "risk-score", 0, "Risk score")
	cmd.Flags().StringVar(&riskLevel, "risk-level", "low", "Risk level: low|medium|high|critical")
	cmd.Flags().Float64Var(&amount, "amount", 0, "Monetary amount, if any")
	cmd.Flags().StringSliceVar(&reviewers, "reviewer", nil, "Required reviewer (user ID, or role:<name>); repeatable")
	cmd.MarkFlagRequired("agent")  //nolint:errcheck
	cmd.MarkFlagRequired("action") //nolint:errcheck
	return cmd
}

func requestGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a request by ID",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			r, err := apiClient.Requests.Get(context.Background(), args[0])
			if err != nil {
				fatal("get request", err)
			}
			output(r, r.ID)
		},
	}
}

func requestListCmd() *cobra.Command {
	var (
		agentID  string
		status   string
		priority string
		limit    int
		offset   int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List requests (open requests by default)",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			reqs, hasMore, err := apiClient.Requests.List(context.Background(), &client.ListRequestsOptions{
				AgentID:  agentID,
				Status:   status,
				Priority: priority,
				Limit:    limit,
				Offset:   offset,
			})
			if err != nil {
				fatal("list requests", err)
			}
			if flagFmt == "table" {
				rows := make([][]string, 0, len(reqs))
				for _, r := range reqs {
					rows = append(rows, []string{
						r.ID, r.AgentID, r.ActionType, r.Status, r.Priority,
						r.CreatedAt.Format("2006-01-02 15:04"),
					})
				}
				formatTable([]string{"ID", "AGENT", "ACTION", "STATUS", "PRIORITY", "CREATED"}, rows)
				if hasMore {
					fmt.Println("(more results available, use --offset)")
				}
				return
			}
			output(map[string]any{"requests": reqs, "has_more": hasMore}, "")
		},
	}
	cmd.Flags().StringVar(&agentID, "agent", "", "Filter by agent ID")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status")
	cmd.Flags().StringVar(&priority, "priority", "", "Filter by priority")
	cmd.Flags().IntVar(&limit, "limit", 50, "Max results")
	cmd.Flags().IntVar(&offset, "offset", 0, "Pagination offset")
	return cmd
}

func requestDecideCmd() *cobra.Command {
	var (
		reviewerID string
		roles      []string
		decision   string
		reason     string
		weight     int
	)
	cmd := &cobra.Command{
		Use:   "decide <id>",
		Short: "Record a reviewer decision on a request",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			r, err := apiClient.Requests.Decide(context.Background(), args[0], &client.DecideRequest{
				ReviewerID: reviewerID,
				Roles:      roles,
				Decision:   decision,
				Reason:     reason,
				Weight:     weight,
			})
			if err != nil {
				fatal("decide", err)
			}
			output(r, r.Status)
		},
	}
	cmd.Flags().StringVar(&reviewerID, "reviewer", "", "Reviewer user ID (required)")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "Reviewer role; repeatable")
	cmd.Flags().StringVar(&decision, "decision", "", "Verdict: approve|reject|abstain|request_info|escalate")
	cmd.Flags().StringVar(&reason, "reason", "", "Reason (required for reject)")
	cmd.Flags().IntVar(&weight, "weight", 0, "Decision weight for weighted quorums")
	cmd.MarkFlagRequired("reviewer") //nolint:errcheck
	cmd.MarkFlagRequired("decision") //nolint:errcheck
	return cmd
}

func requestCancelCmd() *cobra.Command {
	var (
		actorID string
		reason  string
	)
	cmd := &cobra.Command{
		Use:   "cancel <id>",
		Short: "Withdraw an unresolved request",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			r, err := apiClient.Requests.Cancel(context.Background(), args[0], &client.CancelRequest{
				ActorID: actorID,
				Reason:  reason,
			})
			if err != nil {
				fatal("cancel request", err)
			}
			output(r, r.Status)
		},
	}
	cmd.Flags().StringVar(&actorID, "actor", "", "Cancelling actor ID (required)")
	cmd.Flags().StringVar(&reason, "reason", "", "Cancellation reason (required)")
	cmd.MarkFlagRequired("actor")  //nolint:errcheck
	cmd.MarkFlagRequired("reason") //nolint:errcheck
	return cmd
}

func requestNotificationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notifications <id>",
		Short: "Show notification delivery history for a request",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			deliveries, err := apiClient.Requests.Notifications(context.Background(), args[0])
			if err != nil {
				fatal("notification history", err)
			}
			if flagFmt == "table" {
				rows := make([][]string, 0, len(deliveries))
				for _, d := range deliveries {
					rows = append(rows, []string{
						d.Channel, d.EventKind, d.Status,
						fmt.Sprintf("%d", d.Attempts),
						d.UpdatedAt.Format("2006-01-02 15:04"),
					})
				}
				formatTable([]string{"CHANNEL", "EVENT", "STATUS", "ATTEMPTS", "UPDATED"}, rows)
				return
			}
			output(map[string]any{"deliveries": deliveries}, "")
		},
	}
}
