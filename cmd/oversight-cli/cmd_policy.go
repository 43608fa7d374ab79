package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/oversightlabs/oversight/client"
)

func newPolicyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Manage approval policies",
	}
	cmd.AddCommand(policyQuorumCmd())
	cmd.AddCommand(policyAutoApprovalCmd())
	cmd.AddCommand(policyEscalationCmd())
	return cmd
}

func policyQuorumCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quorum",
		Short: "Manage quorum configs",
	}
	cmd.AddCommand(quorumListCmd())
	cmd.AddCommand(quorumCreateCmd())
	return cmd
}

func quorumListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List quorum configs",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			configs, err := apiClient.Policies.ListQuorumConfigs(context.Background())
			if err != nil {
				fatal("list quorum configs", err)
			}
			if flagFmt == "table" {
				rows := make([][]string, 0, len(configs))
				for _, c := range configs {
					rows = append(rows, []string{
						c.ID, c.Name, c.ActionType,
						fmt.Sprintf("%d", c.RequiredApprovals),
						fmt.Sprintf("%v", c.RequireUnanimous),
						c.ApprovalTimeout.String(),
					})
				}
				formatTable([]string{"ID", "NAME", "ACTION", "APPROVALS", "UNANIMOUS", "TIMEOUT"}, rows)
				return
			}
			output(map[string]any{"configs": configs}, "")
		},
	}
}

func quorumCreateCmd() *cobra.Command {
	var (
		approvals  int
		weight     int
		unanimous  bool
		rejectAny  bool
		inReview   bool
		actionType string
		minAmount  float64
		timeout    time.Duration
		reviewers  []string
	)
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a quorum config",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := &client.QuorumConfig{
				Name:                args[0],
				RequiredApprovals:   approvals,
				RequiredWeight:      weight,
				RequireUnanimous:    unanimous,
				AnyRejectionRejects: rejectAny,
				UseInReview:         inReview,
				ActionType:          actionType,
				MinAmount:           minAmount,
				ApprovalTimeout:     timeout,
			}
			for _, r := range reviewers {
				cfg.DefaultReviewers = append(cfg.DefaultReviewers, client.RequiredReviewer{Role: r})
			}
			created, err := apiClient.Policies.CreateQuorumConfig(context.Background(), cfg)
			if err != nil {
				fatal("create quorum config", err)
			}
			output(created, created.ID)
		},
	}
	cmd.Flags().IntVar(&approvals, "approvals", 1, "Required approval count")
	cmd.Flags().IntVar(&weight, "weight", 0, "Required total approval weight (0 disables weighted mode)")
	cmd.Flags().BoolVar(&unanimous, "unanimous", false, "Require every reviewer to approve")
	cmd.Flags().BoolVar(&rejectAny, "any-rejection-rejects", true, "A single rejection resolves the request as rejected")
	cmd.Flags().BoolVar(&inReview, "in-review", false, "Move requests to in_review on first decision")
	cmd.Flags().StringVar(&actionType, "action", "", "Match only this action type (empty matches all)")
	cmd.Flags().Float64Var(&minAmount, "min-amount", 0, "Match only requests at or above this amount")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Approval timeout (e.g. 30m, 4h)")
	cmd.Flags().StringSliceVar(&reviewers, "reviewer-role", nil, "Default reviewer role; repeatable")
	return cmd
}

func policyAutoApprovalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auto-approval",
		Short: "Manage auto-approval rules",
	}
	cmd.AddCommand(autoApprovalListCmd())
	cmd.AddCommand(autoApprovalCreateCmd())
	return cmd
}

func autoApprovalListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List auto-approval rules",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			rules, err := apiClient.Policies.ListAutoApprovalRules(context.Background())
			if err != nil {
				fatal("list auto-approval rules", err)
			}
			output(map[string]any{"rules": rules}, "")
		},
	}
}

func autoApprovalCreateCmd() *cobra.Command {
	var (
		maxAmount float64
		resources []string
		disabled  bool
	)
	cmd := &cobra.Command{
		Use:   "create <action-type>",
		Short: "Create an auto-approval rule",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			created, err := apiClient.Policies.CreateAutoApprovalRule(context.Background(), &client.AutoApprovalRule{
				ActionType:       args[0],
				MaxAmount:        maxAmount,
				AllowedResources: resources,
				Enabled:          !disabled,
			})
			if err != nil {
				fatal("create auto-approval rule", err)
			}
			output(created, created.ID)
		},
	}
	cmd.Flags().Float64Var(&maxAmount, "max-amount", 0, "Auto-approve only at or below this amount")
	cmd.Flags().StringSliceVar(&resources, "resource", nil, "Allowed resource; repeatable")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "Create the rule disabled")
	return cmd
}

func policyEscalationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "escalation",
		Short: "Manage escalation rules",
	}
	cmd.AddCommand(escalationListCmd())
	cmd.AddCommand(escalationCreateCmd())
	return cmd
}

func escalationListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List escalation rules",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			rules, err := apiClient.Policies.ListEscalationRules(context.Background())
			if err != nil {
				fatal("list escalation rules", err)
			}
			if flagFmt == "table" {
				rows := make([][]string, 0, len(rules))
				for _, r := range rules {
					target := r.TargetUserID
					if target == "" {
						target = "role:" + r.TargetRole
					}
					rows = append(rows, []string{
						r.ID, r.ActionType, r.TriggerAfter.String(), target, r.Channel,
						fmt.Sprintf("%v", r.Enabled),
					})
				}
				formatTable([]string{"ID", "ACTION", "AFTER", "TARGET", "CHANNEL", "ENABLED"}, rows)
				return
			}
			output(map[string]any{"rules": rules}, "")
		},
	}
}

func escalationCreateCmd() *cobra.Command {
	var (
		after      time.Duration
		targetRole string
		targetUser string
		channel    string
		actionType string
		reduction  time.Duration
		disabled   bool
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an escalation rule",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			created, err := apiClient.Policies.CreateEscalationRule(context.Background(), &client.EscalationRule{
				TriggerAfter:     after,
				TargetRole:       targetRole,
				TargetUserID:     targetUser,
				Channel:          channel,
				ActionType:       actionType,
				TimeoutReduction: reduction,
				Enabled:          !disabled,
			})
			if err != nil {
				fatal("create escalation rule", err)
			}
			output(created, created.ID)
		},
	}
	cmd.Flags().DurationVar(&after, "after", 0, "Escalate requests unattended for this long (required)")
	cmd.Flags().StringVar(&targetRole, "target-role", "", "Escalation target role")
	cmd.Flags().StringVar(&targetUser, "target-user", "", "Escalation target user ID")
	cmd.Flags().StringVar(&channel, "channel", "log", "Notification channel name")
	cmd.Flags().StringVar(&actionType, "action", "", "Match only this action type (empty matches all)")
	cmd.Flags().DurationVar(&reduction, "timeout-reduction", 0, "Shorten the remaining timeout by this much")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "Create the rule disabled")
	cmd.MarkFlagRequired("after") //nolint:errcheck
	return cmd
}
