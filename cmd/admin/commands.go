package main

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Israel70964/YadnusConsultant2/internal/auth"
	"github.com/Israel70964/YadnusConsultant2/internal/models"
	"github.com/Israel70964/YadnusConsultant2/pkg/database"
	"github.com/Israel70964/YadnusConsultant2/pkg/queue"
	"github.com/Israel70964/YadnusConsultant2/pkg/utils"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			pool, err := a.pool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			applied, err := database.Migrate(ctx, pool)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
				return nil
			}
			for _, name := range applied {
				fmt.Fprintln(cmd.OutOrStdout(), "applied", name)
			}
			return nil
		},
	}
}

// adminAccount is the validated input of create-admin.
type adminAccount struct {
	email    string
	password string
	name     string
}

func (acc *adminAccount) validate() error {
	addr, err := mail.ParseAddress(acc.email)
	if err != nil || addr.Address != strings.TrimSpace(acc.email) {
		return fmt.Errorf("invalid email %q", acc.email)
	}
	if acc.name == "" {
		acc.name = strings.SplitN(addr.Address, "@", 2)[0]
	}
	if len(acc.password) < utils.MinPasswordLength {
		return utils.ErrWeakPassword
	}
	return nil
}

func newCreateAdminCmd(a *app) *cobra.Command {
	var acc adminAccount
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin panel account",
		Args:  cobra.NoArgs,
		PreRunE: func(*cobra.Command, []string) error {
			return acc.validate()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			hash, err := utils.HashPassword(acc.password)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			pool, err := a.pool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			user, err := auth.NewRepository(pool).Create(ctx, acc.email, hash, acc.name, models.RoleAdmin)
			if errors.Is(err, auth.ErrEmailTaken) {
				return fmt.Errorf("%s already has an account", acc.email)
			}
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (%s)\n", user.Role, user.Email, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&acc.email, "email", "", "login email (required)")
	cmd.Flags().StringVar(&acc.password, "password", "", "password (required)")
	cmd.Flags().StringVar(&acc.name, "name", "", "display name (defaults to the email's local part)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newQueueStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "queue-stats",
		Short: "Show pending and dead-lettered email jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rdb, err := a.redis(ctx)
			if err != nil {
				return err
			}
			defer rdb.Close()

			q := queue.NewQueue(rdb.Client, a.logger)
			for _, key := range []string{queue.QueueEmails, queue.QueueDLQ} {
				n, err := q.Len(ctx, key)
				if err != nil {
					return fmt.Errorf("%s: %w", key, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-16s %d\n", key, n)
			}
			return nil
		},
	}
}
