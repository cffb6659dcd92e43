package commands

import (
	"context"
	"fmt"

	postgres_repo "img-thumbs/internal/repository/db/postgres"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session) error {
			applied, err := postgres_repo.Migrate(ctx, s.db.Master)
			if err != nil {
				return err
			}

			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No pending migrations")
				return nil
			}
			for _, version := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %s\n", version)
			}
			return nil
		})
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the default rules and plans",
	Long: `Create thumbnail rules 200 and 400 and the default plans:

  Basic       200          no original, no expiring links
  Premium     200, 400     original kept
  Enterprise  200, 400     original kept, expiring links

Existing rules and plans are left unchanged.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session) error {
			if err := s.plans.Seed(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Default plans are in place")
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd, seedCmd)
}
