package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/oauthd/internal/oauth/app"
	"github.com/aussiebroadwan/oauthd/internal/oauth/domain"
	"github.com/aussiebroadwan/oauthd/internal/oauth/service"
	"github.com/aussiebroadwan/oauthd/internal/oauth/store/drivers/sqlite"
	"github.com/aussiebroadwan/oauthd/pkg/clockx"
	"github.com/aussiebroadwan/oauthd/pkg/cryptox"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
}

func serve() error {
	application, err := app.New(app.LoadConfig())
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return application.Run()
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.LoadConfig()
			db, err := app.OpenStore(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "migrations applied to %s\n", cfg.DatabaseFile)
			return nil
		},
	}
}

func newClientsCmd() *cobra.Command {
	clients := &cobra.Command{
		Use:   "clients",
		Short: "Manage registered clients",
	}

	clients.AddCommand(&cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Create or update clients from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, db *sqlite.Store) error {
				n, err := app.ImportClientsFile(ctx, db, args[0], time.Now())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d clients\n", n)
				return nil
			})
		},
	})

	return clients
}

func newUsersCmd() *cobra.Command {
	users := &cobra.Command{
		Use:   "users",
		Short: "Manage resource owners",
	}

	var username, password string
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				return errors.New("--password is required")
			}
			return withStore(func(ctx context.Context, db *sqlite.Store) error {
				user, err := app.AddUser(ctx, db, username, password, time.Now())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created user %s (%s)\n", user.Username, user.ID)
				return nil
			})
		},
	}
	add.Flags().StringVar(&username, "username", "", "login name")
	add.Flags().StringVar(&password, "password", "", "initial password")
	_ = add.MarkFlagRequired("username")

	var passwdUser, passwdPassword string
	passwd := &cobra.Command{
		Use:   "passwd",
		Short: "Set a user's password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, db *sqlite.Store) error {
				if err := app.SetPassword(ctx, db, passwdUser, passwdPassword); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "password updated for %s\n", passwdUser)
				return nil
			})
		},
	}
	passwd.Flags().StringVar(&passwdUser, "username", "", "login name")
	passwd.Flags().StringVar(&passwdPassword, "password", "", "new password")
	_ = passwd.MarkFlagRequired("username")
	_ = passwd.MarkFlagRequired("password")

	var statusUser string
	var disabled, locked bool
	status := &cobra.Command{
		Use:   "status",
		Short: "Disable or lock a user; both flags default to false",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, db *sqlite.Store) error {
				if err := db.Users().SetUserStatus(ctx, domain.Username(statusUser), disabled, locked); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: disabled=%t locked=%t\n", statusUser, disabled, locked)
				return nil
			})
		},
	}
	status.Flags().StringVar(&statusUser, "username", "", "login name")
	status.Flags().BoolVar(&disabled, "disabled", false, "refuse every login")
	status.Flags().BoolVar(&locked, "locked", false, "refuse logins until unlocked")
	_ = status.MarkFlagRequired("username")

	users.AddCommand(add, passwd, status)
	return users
}

func newApprovalsCmd() *cobra.Command {
	approvals := &cobra.Command{
		Use:   "approvals",
		Short: "Manage remembered consent",
	}

	var username, clientID string
	revoke := &cobra.Command{
		Use:   "revoke",
		Short: "Forget the scopes a user approved for a client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, db *sqlite.Store) error {
				authority := &service.StoreApprovalAuthority{Store: db, Clock: clockx.System()}
				if err := authority.RevokeApprovals(ctx, domain.Username(username), domain.ClientID(clientID)); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "revoked approvals of %s for %s\n", username, clientID)
				return nil
			})
		},
	}
	revoke.Flags().StringVar(&username, "username", "", "resource owner")
	revoke.Flags().StringVar(&clientID, "client", "", "client id")
	_ = revoke.MarkFlagRequired("username")
	_ = revoke.MarkFlagRequired("client")

	approvals.AddCommand(revoke)
	return approvals
}

// withStore opens the configured database with the configured pepper, so
// hashes written here verify in the server.
func withStore(fn func(ctx context.Context, db *sqlite.Store) error) error {
	cfg := app.LoadConfig()
	cryptox.SetPepperPath(cfg.PepperFile)

	db, err := app.OpenStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(context.Background(), db)
}
