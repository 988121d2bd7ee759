package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kassemabbassi/meet-tracker-sub000/internal/config"
	"github.com/kassemabbassi/meet-tracker-sub000/internal/logging"
	"github.com/kassemabbassi/meet-tracker-sub000/internal/persistence/sqlstore"
)

// runtime carries what every subcommand needs once configuration is loaded.
type runtime struct {
	envFile   string
	logFormat string
	cfg       config.Config
	logger    *slog.Logger
}

func newRootCommand() *cobra.Command {
	rt := &runtime{}

	root := &cobra.Command{
		Use:           "tracker",
		Short:         "Meeting attendance and training management backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(rt.envFile)
			if err != nil {
				return err
			}
			rt.cfg = cfg

			format := logging.FormatJSON
			if rt.logFormat == "text" {
				format = logging.FormatText
			}
			rt.logger = logging.New(cmd.ErrOrStderr(), cfg.LogLevel, format).With(
				"command", cmd.CommandPath(),
				"run_id", uuid.NewString(),
			)
			rt.logger.Debug("command start")
			return nil
		},
	}
	root.PersistentFlags().StringVar(&rt.envFile, "env-file", ".env", "dotenv file read before the environment")
	root.PersistentFlags().StringVar(&rt.logFormat, "log-format", "json", "log output format: json or text")

	root.AddCommand(
		newServeCommand(rt),
		newMigrateCommand(rt),
		newAccountCommand(rt),
	)
	return root
}

// openStore connects to the configured database.
func (rt *runtime) openStore(ctx context.Context) (*sqlstore.Store, error) {
	store, err := sqlstore.Open(ctx, sqlstore.Config{
		Driver:          rt.cfg.DBDriver,
		DSN:             rt.cfg.DBDSN,
		MaxOpenConns:    10,
		ConnMaxLifetime: 30 * time.Minute,
	}, rt.logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return store, nil
}

func (rt *runtime) closeStore(store *sqlstore.Store) {
	if err := store.Close(); err != nil {
		rt.logger.Error("failed to close storage", "error", err)
	}
}

func fprintf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
