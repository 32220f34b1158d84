// Package cli implements the inventory-admin command line: an operator console over the
// same gateway, session and collection controllers the dashboard server uses.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"inventory_admin/internal/app"
	"inventory_admin/internal/config"
	"inventory_admin/internal/gateway"
	"inventory_admin/internal/pkg/logger"
	"inventory_admin/internal/session"
	"inventory_admin/internal/storage"
)

var (
	flagAPI       string
	flagPrefix    string
	flagLoginPath string
	flagStore     string
	flagDSN       string
	flagLogLevel  string
	flagOutput    string
	flagPageSize  int

	log   *logger.Logger
	store storage.Storage
	admin *app.App
)

// NewRootCmd creates the root cobra command of the inventory-admin CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "inventory-admin",
		Short: "Operator console for the inventory backend",
		Long:  "inventory-admin signs in to the inventory backend and lists, searches, edits and exports its resources.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if log, err = logger.CreateLogger(flagLogLevel); err != nil {
				return fmt.Errorf("create logger: %w", err)
			}

			dsn := flagDSN
			if dsn == "" {
				dsn = config.DefaultSessionDSN(flagStore)
				if flagStore == config.SessionStore {
					dsn = config.SessionDSN
				}
			}
			if store, err = storage.Open(cmd.Context(), flagStore, dsn, log); err != nil {
				return fmt.Errorf("open session store: %w", err)
			}

			sess := session.NewManager(cmd.Context(), store, log)
			gw := gateway.New(flagAPI, flagPrefix, sess, log, gateway.WithLoginPath(flagLoginPath))
			admin = app.NewApp(gw, sess, flagPageSize, log)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if store != nil {
				store.Close()
			}
			if log != nil {
				log.Sync()
			}
		},
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&flagAPI, "api", config.APIBaseURL, "Backend origin (or API_BASE_URL env)")
	flags.StringVar(&flagPrefix, "api-prefix", config.APIPrefix, "Backend path prefix (or API_PREFIX env)")
	flags.StringVar(&flagLoginPath, "login-path", config.LoginPath, "Login endpoint (or API_LOGIN_PATH env)")
	flags.StringVar(&flagStore, "store", config.SessionStore, "Session store: memory, file, sqlite, postgres, redis")
	flags.StringVar(&flagDSN, "dsn", "", "Session store path or DSN (or SESSION_DSN env)")
	flags.StringVar(&flagLogLevel, "log-level", config.LogLevel, "Log level (debug, info, warn, error)")
	flags.StringVarP(&flagOutput, "output", "o", "table", "Output format: table, json, yaml")
	flags.IntVar(&flagPageSize, "page-size", config.PageSize, "Rows per page of paged resources")

	root.AddCommand(
		newLoginCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
		newPasswordCmd(),
		newResourcesCmd(),
		newSummaryCmd(),
		newListCmd(),
		newCreateCmd(),
		newUpdateCmd(),
		newDeleteCmd(),
		newExportCmd(),
	)

	return root
}

// Execute runs the CLI with ctx.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}
