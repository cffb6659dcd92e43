package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"img-thumbs/internal/app"
	"img-thumbs/internal/config"
	postgres_repo "img-thumbs/internal/repository/db/postgres"
	plan_uc "img-thumbs/internal/usecase/plan"
	user_uc "img-thumbs/internal/usecase/user"

	"github.com/spf13/cobra"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/zlog"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "thumbsctl",
	Short: "Administer thumbnail plans, rules and users",
	Long: `thumbsctl manages the thumbnail service database: schema migrations,
the default plan catalog, thumbnail rules, plans and users.

It reads the same configuration as the API server (CONFIG_PATH, .env and
environment variables).`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (overrides CONFIG_PATH)")
}

// session holds the connections and usecases a command needs.
type session struct {
	cfg    *config.Config
	logger *zlog.Zerolog
	db     *dbpg.DB
	plans  *plan_uc.PlanUsecase
	users  *user_uc.UserUsecase
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		if err := os.Setenv("CONFIG_PATH", configPath); err != nil {
			return nil, err
		}
	}
	return config.MustLoad()
}

// withSession opens the database, runs fn and closes everything again.
// fn gets a context canceled on SIGINT or SIGTERM.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	zlog.Init()
	logger := &zlog.Logger

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := app.OpenDB(cfg)
	if err != nil {
		return err
	}
	defer db.Master.Close()

	retries := cfg.DefaultRetryStrategy()
	planRepo := postgres_repo.NewPlansRepository(db, retries)
	userRepo := postgres_repo.NewUsersRepository(db, retries)

	s := &session{
		cfg:    cfg,
		logger: logger,
		db:     db,
		plans:  plan_uc.NewPlanUsecase(planRepo, logger),
		users:  user_uc.NewUserUsecase(userRepo, planRepo, logger),
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return fn(ctx, s)
}
