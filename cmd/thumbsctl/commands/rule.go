package commands

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var ruleCmd = &cobra.Command{
	Use:   "rule",
	Short: "Manage thumbnail rules",
}

var ruleAddCmd = &cobra.Command{
	Use:   "add HEIGHT",
	Short: "Add a thumbnail rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		height, err := parseHeight(args[0])
		if err != nil {
			return err
		}

		return withSession(cmd, func(ctx context.Context, s *session) error {
			rule, err := s.plans.AddRule(ctx, height)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rule %d added (height %d)\n", rule.ID, rule.Height)
			return nil
		})
	},
}

var ruleDeleteCmd = &cobra.Command{
	Use:   "delete HEIGHT",
	Short: "Delete a thumbnail rule",
	Long: `Delete a thumbnail rule and remove it from every plan.

A rule that already produced thumbnails cannot be deleted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		height, err := parseHeight(args[0])
		if err != nil {
			return err
		}

		return withSession(cmd, func(ctx context.Context, s *session) error {
			if err := s.plans.DeleteRule(ctx, height); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rule %d deleted\n", height)
			return nil
		})
	},
}

var ruleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List thumbnail rules",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session) error {
			rules, err := s.plans.ListRules(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tHEIGHT")
			for _, rule := range rules {
				fmt.Fprintf(w, "%d\t%d\n", rule.ID, rule.Height)
			}
			return w.Flush()
		})
	},
}

func init() {
	rootCmd.AddCommand(ruleCmd)
	ruleCmd.AddCommand(ruleAddCmd, ruleDeleteCmd, ruleListCmd)
}

func parseHeight(raw string) (int, error) {
	height, err := strconv.Atoi(raw)
	if err != nil || height <= 0 {
		return 0, fmt.Errorf("height must be a positive integer, got %q", raw)
	}
	return height, nil
}

func parseHeights(raw []string) ([]int, error) {
	heights := make([]int, 0, len(raw))
	for _, r := range raw {
		h, err := parseHeight(r)
		if err != nil {
			return nil, err
		}
		heights = append(heights, h)
	}
	return heights, nil
}
