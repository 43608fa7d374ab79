package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oversightlabs/oversight/client"
)

func newChannelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "channel",
		Short: "Manage notification channels",
	}
	cmd.AddCommand(channelListCmd())
	cmd.AddCommand(channelCreateCmd())
	return cmd
}

func channelListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List notification channels",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			channels, err := apiClient.Notifications.ListChannels(context.Background())
			if err != nil {
				fatal("list channels", err)
			}
			if flagFmt == "table" {
				rows := make([][]string, 0, len(channels))
				for _, ch := range channels {
					rows = append(rows, []string{
						ch.ID, ch.Name, ch.Kind, ch.Target, fmt.Sprintf("%v", ch.Enabled),
					})
				}
				formatTable([]string{"ID", "NAME", "KIND", "TARGET", "ENABLED"}, rows)
				return
			}
			output(map[string]any{"channels": channels}, "")
		},
	}
}

func channelCreateCmd() *cobra.Command {
	var (
		kind     string
		target   string
		disabled bool
	)
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a notification channel",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			created, err := apiClient.Notifications.CreateChannel(context.Background(), &client.NotificationChannel{
				Name:    args[0],
				Kind:    kind,
				Target:  target,
				Enabled: !disabled,
			})
			if err != nil {
				fatal("create channel", err)
			}
			output(created, created.ID)
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "log", "Channel kind: log|webhook")
	cmd.Flags().StringVar(&target, "target", "", "Delivery target (webhook URL; required for webhook)")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "Create the channel disabled")
	return cmd
}
