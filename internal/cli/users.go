package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"quiz-share-service/internal/app"
	"quiz-share-service/internal/config"
	redisinfra "quiz-share-service/internal/infra/redis"
)

// NewUsersCmd groups operator commands for user maintenance. Deleting a user
// also deletes their quizzes and answers.
func NewUsersCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage stored users",
	}
	cmd.AddCommand(newDeleteUserCmd(configPath), newClearUsersCmd(configPath))
	return cmd
}

func newDeleteUserCmd(configPath *string) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete the user with the given email",
		RunE: func(cmd *cobra.Command, args []string) error {
			users, closeStore, err := openUsers(cmd, *configPath)
			if err != nil {
				return err
			}
			defer closeStore()
			return deleteUser(cmd.Context(), users, email, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email of the user to delete")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// deleteUser reports how many users matched; no match is not an error.
func deleteUser(ctx context.Context, users *app.UserService, email string, out io.Writer) error {
	n, err := users.DeleteByEmail(ctx, email)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "deleted %d user(s) with email %s\n", n, email)
	return nil
}

func newClearUsersCmd(configPath *string) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every user with their quizzes and answers",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete all users without --yes")
			}
			users, closeStore, err := openUsers(cmd, *configPath)
			if err != nil {
				return err
			}
			defer closeStore()

			n, err := users.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d user(s)\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deleting all users")
	return cmd
}

// openUsers connects to the configured database. With Redis configured the
// shared take view cache is cleared for quizzes deleted alongside their users.
func openUsers(cmd *cobra.Command, configPath string) (*app.UserService, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Postgres.URL == "" {
		return nil, nil, fmt.Errorf("postgres url not configured")
	}
	logger := newLogger(cfg, os.Stderr)
	store, closeStore, err := openStore(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	var views app.QuizViewCache
	closeAll := closeStore
	if redisClient := newRedisClient(cfg); redisClient != nil {
		views = redisinfra.NewViewCache(redisClient, store, config.TTLDuration(cfg.Cache.TTL, 10*time.Minute))
		closeAll = func() {
			_ = redisClient.Close()
			closeStore()
		}
	}
	return app.NewUserService(store, views, logger), closeAll, nil
}
