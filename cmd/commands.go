package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yungbote/casefile-backend/internal/app"
	"github.com/yungbote/casefile-backend/internal/data/db"
	"github.com/yungbote/casefile-backend/internal/data/seed"
	"github.com/yungbote/casefile-backend/internal/domain/jobs"
	"github.com/yungbote/casefile-backend/internal/platform/dbctx"
	"github.com/yungbote/casefile-backend/internal/platform/logger"
	"github.com/yungbote/casefile-backend/internal/services"
)

var (
	serveNoWorker bool
	rebuildNow    bool
	newUser       services.CreateUserInput
	newUserRoles  string
	tokenUsername string
	tokenTTL      time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "casefile",
	Short: "Case documentation backend",
	Long:  "Serves the bulletin, actor and incident API and runs its background jobs.",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (and the job worker unless --no-worker)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			return a.RunServe(ctx, !serveNoWorker)
		})
	},
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run only the job worker and scheduler",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			return a.RunWorker(ctx)
		})
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(_ context.Context, log *logger.Logger, pg *db.PostgresService) error {
			return db.Migrate(pg.DB(), log)
		})
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Migrate, then insert the default roles and catalogs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(ctx context.Context, log *logger.Logger, pg *db.PostgresService) error {
			if err := db.Migrate(pg.DB(), log); err != nil {
				return err
			}
			catalog, err := seed.Defaults()
			if err != nil {
				return err
			}
			rep, err := seed.Apply(pg.DB(), dbctx.Context{Ctx: ctx}, log, catalog)
			if err != nil {
				return err
			}
			for table, n := range rep {
				fmt.Printf("%s: %d\n", table, n)
			}
			return nil
		})
	},
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild-id-trees",
	Short: "Recompute location id trees (queued unless --now)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			if rebuildNow {
				n, err := a.Services.Vocab.RebuildIDTrees(ctx, nil)
				if err != nil {
					return err
				}
				fmt.Printf("rebuilt %d locations\n", n)
				return nil
			}
			owner, err := firstAdmin(ctx, a)
			if err != nil {
				return err
			}
			job, created, err := a.Services.Jobs.Enqueue(dbctx.Context{Ctx: ctx}, owner, jobs.TypeRebuildIDTrees, map[string]any{}, services.EnqueueOptions{DedupKey: jobs.TypeRebuildIDTrees})
			if err != nil {
				return err
			}
			if !created {
				fmt.Printf("already queued: %s\n", job.ID)
				return nil
			}
			fmt.Printf("queued: %s\n", job.ID)
			return nil
		})
	},
}

var createUserCmd = &cobra.Command{
	Use:   "create-user",
	Short: "Create an active user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			in := newUser
			for _, r := range strings.Split(newUserRoles, ",") {
				if r = strings.TrimSpace(r); r != "" {
					in.Roles = append(in.Roles, r)
				}
			}
			u, err := a.Services.User.Create(dbctx.Context{Ctx: ctx}, in)
			if err != nil {
				return err
			}
			fmt.Printf("created user %d (%s)\n", u.ID, u.Username)
			return nil
		})
	},
}

var issueTokenCmd = &cobra.Command{
	Use:   "issue-token",
	Short: "Print a bearer token for a user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			dbc := dbctx.Context{Ctx: ctx}
			u, err := a.Repos.User.GetByUsername(dbc, tokenUsername)
			if err != nil {
				return err
			}
			if u == nil {
				return fmt.Errorf("no user named %q", tokenUsername)
			}
			tok, err := a.Services.Auth.IssueToken(dbc, u.ID, tokenTTL)
			if err != nil {
				return err
			}
			fmt.Println(tok)
			return nil
		})
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveNoWorker, "no-worker", false, "do not run the job worker in this process")
	rebuildCmd.Flags().BoolVar(&rebuildNow, "now", false, "rebuild synchronously instead of queueing a job")

	createUserCmd.Flags().StringVar(&newUser.Username, "username", "", "login name")
	createUserCmd.Flags().StringVar(&newUser.Name, "name", "", "display name")
	createUserCmd.Flags().StringVar(&newUser.Email, "email", "", "email address")
	createUserCmd.Flags().StringVar(&newUser.Password, "password", "", "initial password")
	createUserCmd.Flags().StringVar(&newUserRoles, "roles", "", "comma separated role names")
	_ = createUserCmd.MarkFlagRequired("username")
	_ = createUserCmd.MarkFlagRequired("password")

	issueTokenCmd.Flags().StringVar(&tokenUsername, "username", "", "user to sign the token for")
	issueTokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	_ = issueTokenCmd.MarkFlagRequired("username")

	rootCmd.AddCommand(serveCmd, workerCmd, migrateCmd, seedCmd, rebuildCmd, createUserCmd, issueTokenCmd)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func withApp(fn func(ctx context.Context, a *app.App) error) error {
	ctx, stop := signalContext()
	defer stop()
	a, err := app.New(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func withDB(fn func(ctx context.Context, log *logger.Logger, pg *db.PostgresService) error) error {
	ctx, stop := signalContext()
	defer stop()
	log, err := app.NewLogger()
	if err != nil {
		return err
	}
	defer log.Sync()
	pg, err := db.NewPostgresService(log)
	if err != nil {
		return err
	}
	defer pg.Close()
	return fn(ctx, log, pg)
}

func firstAdmin(ctx context.Context, a *app.App) (uint, error) {
	users, err := a.Repos.User.List(dbctx.Context{Ctx: ctx}, true)
	if err != nil {
		return 0, err
	}
	for _, u := range users {
		if u.IsAdmin() {
			return u.ID, nil
		}
	}
	return 0, fmt.Errorf("no active admin to own the job")
}
