package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/qs3c/group_sub_server/internal/app"
	"github.com/qs3c/group_sub_server/internal/service"
)

type opener func(cmd *cobra.Command) (*app.App, error)

func newRootCmd(open opener) *cobra.Command {
	root := &cobra.Command{
		Use:           "subctl",
		Short:         "Operator CLI for group subscriptions",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().String("config", "config.yaml", "path to config file")

	root.AddCommand(
		newSweepCmd(open),
		newPlansCmd(open),
		newPendingCmd(open),
		newStatusCmd(open),
		newFeaturesCmd(open),
		newQueueCmd(open),
		newBootstrapCmd(open),
		newOperatorCmd(open),
	)
	return root
}

func newSweepCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one expiry sweep now",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}

			result, err := a.Scheduler.RunNow(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "groups checked:  %d\n", result.GroupsChecked)
			fmt.Fprintf(out, "expiring groups: %d\n", result.ExpiringGroups)
			fmt.Fprintf(out, "expired groups:  %d\n", result.ExpiredGroups)
			fmt.Fprintf(out, "alerts sent:     %d\n", result.AlertsSent)
			fmt.Fprintf(out, "expired handled: %d\n", result.ExpiredHandled)
			fmt.Fprintf(out, "failures:        %d\n", result.Failures)
			return nil
		},
	}
}

func newPlansCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "plans",
		Short: "List the plan catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tPRICE\tDAYS\tFEATURES")
			for _, p := range a.Catalog.List() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", p.ID, p.Name, p.Price.StringFixed(2), p.DurationDays, strings.Join(p.Features, ","))
			}
			return w.Flush()
		},
	}
}

func newPendingCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List pending payment requests, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}

			reqs, err := a.Approval.PendingQueue(cmd.Context())
			if err != nil {
				return err
			}
			if len(reqs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no pending requests")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tGROUP\tUSER\tPLAN\tCREATED")
			for _, r := range reqs {
				fmt.Fprintf(w, "%d\t%d\t%d\t%s\t%s\n", r.ID, r.GroupID, r.UserID, r.PlanID, r.CreatedAt.UTC().Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}
}

func newStatusCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "status <group-id>",
		Short: "Show the service status of a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			groupID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid group id %q", args[0])
			}

			a, err := open(cmd)
			if err != nil {
				return err
			}

			st, err := a.Status.CheckServiceStatus(cmd.Context(), groupID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !st.HasPlan {
				fmt.Fprintf(out, "group %d has no subscription\n", groupID)
				return nil
			}
			fmt.Fprintf(out, "group:     %d\n", st.GroupID)
			fmt.Fprintf(out, "plan:      %s\n", st.PlanID)
			fmt.Fprintf(out, "active:    %t\n", st.Active)
			fmt.Fprintf(out, "expired:   %t\n", st.IsExpired)
			if st.ExpiresAt != nil {
				fmt.Fprintf(out, "expires:   %s (%d days)\n", st.ExpiresAt.UTC().Format("2006-01-02"), st.DaysRemaining)
			}
			if st.LastEvent != "" {
				fmt.Fprintf(out, "last:      %s\n", st.LastEvent)
			}
			fmt.Fprintf(out, "enabled:   %s\n", strings.Join(st.EnabledFeatures, ","))
			if len(st.MissingFeatures) > 0 {
				fmt.Fprintf(out, "missing:   %s\n", strings.Join(st.MissingFeatures, ","))
			}
			return nil
		},
	}
}

func newFeaturesCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "features",
		Short: "List switchable features, or one group's feature switches with --group",
		RunE: func(cmd *cobra.Command, args []string) error {
			groupID, _ := cmd.Flags().GetInt64("group")
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)

			if groupID == 0 {
				fmt.Fprintln(w, "FEATURE\tTIER")
				for _, f := range service.KnownFeatures() {
					fmt.Fprintf(w, "%s\t%s\n", f, featureTier(f))
				}
				return w.Flush()
			}

			a, err := open(cmd)
			if err != nil {
				return err
			}
			grants, err := a.Gate.Grants(cmd.Context(), groupID)
			if err != nil {
				return err
			}
			if len(grants) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "group %d has no feature switches\n", groupID)
				return nil
			}

			fmt.Fprintln(w, "FEATURE\tENABLED\tCHANGED BY\tCHANGED AT")
			for _, g := range grants {
				fmt.Fprintf(w, "%s\t%t\t%d\t%s\n", g.Feature, g.Enabled, g.ChangedBy, g.ChangedAt.UTC().Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}
	cmd.Flags().Int64("group", 0, "group id")
	return cmd
}

func featureTier(feature string) string {
	switch {
	case lo.Contains(service.FreeFeatures, feature):
		return "free"
	case lo.Contains(service.PaidFeatures, feature):
		return "paid"
	default:
		return "plan"
	}
}

func newQueueCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "queue",
		Short: "Show the notification queue backlog",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			if a.Queue == nil {
				return fmt.Errorf("notification queue is not configured")
			}

			n, err := a.Queue.Length(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pending notifications: %d\n", n)
			return nil
		},
	}
}

func newBootstrapCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the default catalog and seed configured operators",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}

			created, err := a.Catalog.Bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			seeded, err := a.Auth.SeedOperators(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if created {
				fmt.Fprintln(out, "default plans created")
			} else {
				fmt.Fprintln(out, "plan catalog already present")
			}
			fmt.Fprintf(out, "operators seeded: %d\n", seeded)
			return nil
		},
	}
}

func newOperatorCmd(open opener) *cobra.Command {
	operator := &cobra.Command{
		Use:   "operator",
		Short: "Manage operator accounts",
	}

	add := &cobra.Command{
		Use:   "add <username>",
		Short: "Create an operator account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, _ := cmd.Flags().GetString("password")
			if password == "" {
				return fmt.Errorf("--password is required")
			}

			a, err := open(cmd)
			if err != nil {
				return err
			}

			op, err := a.Auth.CreateOperator(cmd.Context(), args[0], password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "operator %s created (id %d)\n", op.Username, op.ID)
			return nil
		},
	}
	add.Flags().String("password", "", "operator password (min 8 characters)")

	operator.AddCommand(add)
	return operator
}
