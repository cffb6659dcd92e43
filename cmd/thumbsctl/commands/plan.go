package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"img-thumbs/internal/domain"
	plan_uc "img-thumbs/internal/usecase/plan"

	"github.com/spf13/cobra"
)

var (
	keepOriginal       bool
	allowExpiringLinks bool
	planRules          []string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Manage thumbnail plans",
}

var planAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Create a plan",
	Example: `  thumbsctl plan add Pro --rules 200,400 --keep-original
  thumbsctl plan add Free --rules 200`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		heights, err := parseHeights(planRules)
		if err != nil {
			return err
		}

		return withSession(cmd, func(ctx context.Context, s *session) error {
			plan, err := s.plans.AddPlan(ctx, plan_uc.PlanSpec{
				Name:               args[0],
				KeepOriginal:       keepOriginal,
				AllowExpiringLinks: allowExpiringLinks,
				Heights:            heights,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Plan %q created with rules [%s]\n", plan.Name, formatRules(plan.Rules))
			return nil
		})
	},
}

var planSetRulesCmd = &cobra.Command{
	Use:   "set-rules NAME HEIGHT...",
	Short: "Replace the rules of a plan",
	Long: `Replace the rules of a plan. Thumbnails generated before the change are
kept. Pass no heights to clear the plan's rules.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		heights, err := parseHeights(args[1:])
		if err != nil {
			return err
		}

		return withSession(cmd, func(ctx context.Context, s *session) error {
			plan, err := s.plans.SetPlanRules(ctx, args[0], heights)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Plan %q now has rules [%s]\n", plan.Name, formatRules(plan.Rules))
			return nil
		})
	},
}

var planListCmd = &cobra.Command{
	Use:   "list",
	Short: "List plans",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session) error {
			plans, err := s.plans.ListPlans(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tRULES\tKEEP ORIGINAL\tEXPIRING LINKS")
			for _, p := range plans {
				fmt.Fprintf(w, "%s\t%s\t%t\t%t\n", p.Name, formatRules(p.Rules), p.KeepOriginal, p.AllowExpiringLinks)
			}
			return w.Flush()
		})
	},
}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.AddCommand(planAddCmd, planSetRulesCmd, planListCmd)

	planAddCmd.Flags().BoolVar(&keepOriginal, "keep-original", false, "Keep the uploaded original")
	planAddCmd.Flags().BoolVar(&allowExpiringLinks, "expiring-links", false, "Allow issuing expiring links")
	planAddCmd.Flags().StringSliceVar(&planRules, "rules", nil, "Thumbnail heights, in order")
}

func formatRules(rules []domain.ThumbRule) string {
	heights := make([]string, len(rules))
	for i, r := range rules {
		heights[i] = strconv.Itoa(r.Height)
	}
	return strings.Join(heights, ",")
}
