package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"img-thumbs/internal/domain"

	"github.com/spf13/cobra"
)

var (
	userPlan     string
	userPassword string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userAddCmd = &cobra.Command{
	Use:   "add USERNAME",
	Short: "Create a user bound to a plan",
	Long: `Create a user bound to a plan. The password is read from --password or,
when the flag is omitted, from the first line of stdin.`,
	Example: `  echo 's3cret' | thumbsctl user add alice --plan Enterprise`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password := userPassword
		if password == "" {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return errors.New("password is required (--password or stdin)")
			}
			password = strings.TrimRight(line, "\r\n")
		}

		return withSession(cmd, func(ctx context.Context, s *session) error {
			user, err := s.users.Register(ctx, args[0], password, userPlan)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %s created (id %s, plan %s)\n", user.Username, user.ID, userPlan)
			return nil
		})
	},
}

var userSetPlanCmd = &cobra.Command{
	Use:   "set-plan USERNAME PLAN",
	Short: "Move a user to another plan",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session) error {
			if err := s.users.SetPlan(ctx, args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %s moved to plan %s\n", args[0], args[1])
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userAddCmd, userSetPlanCmd)

	userAddCmd.Flags().StringVar(&userPlan, "plan", domain.PlanBasic, "Plan to bind the user to")
	userAddCmd.Flags().StringVar(&userPassword, "password", "", "User password")
}
