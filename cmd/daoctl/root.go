package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/syssam/sqldao/dialect/sql"
	"github.com/syssam/sqldao/internal/config"
)

// app holds the state shared by all commands.
type app struct {
	cfgPath string
	v       *viper.Viper
	cfg     *config.Config
	log     *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New()}
	cmd := &cobra.Command{
		Use:   "daoctl",
		Short: "Tooling for sqldao entities, queries and databases",
		Long: `daoctl works with sqldao projects:
- gen generates static entity definitions from struct tags
- inspect reports how a database table will be accessed
- queries check validates named query files`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd.ErrOrStderr())
		},
	}
	flags := cmd.PersistentFlags()
	flags.StringVar(&a.cfgPath, "config", "", "config file (default ./daoctl.yaml)")
	flags.String("driver", "", "database/sql driver name (pgx, postgres, mysql, sqlite, sqlserver)")
	flags.String("dsn", "", "data source name")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	for key, name := range map[string]string{"driver": "driver", "dsn": "dsn", "log_level": "log-level"} {
		cobra.CheckErr(a.v.BindPFlag(key, flags.Lookup(name)))
	}
	cmd.AddCommand(
		newGenCmd(a),
		newInspectCmd(a),
		newQueriesCmd(a),
	)
	return cmd
}

func (a *app) load(w io.Writer) error {
	cfg, err := config.Load(a.v, a.cfgPath)
	if err != nil {
		return err
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return fmt.Errorf("config: log_level: %w", err)
	}
	a.cfg = cfg
	a.log = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	return nil
}

// open connects to the configured database.
func (a *app) open(ctx context.Context) (*sql.StatsDriver, error) {
	dsn, err := a.cfg.DataSource()
	if err != nil {
		return nil, err
	}
	drv, _, err := sql.OpenWithStats(a.cfg.DriverName(), dsn,
		sql.WithSlowThreshold(a.cfg.SlowQuery),
		sql.WithSlowQueryLog(a.log),
	)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", a.cfg.DriverName(), err)
	}
	if err := drv.DB().PingContext(ctx); err != nil {
		drv.Close()
		return nil, fmt.Errorf("connect %s: %w", a.cfg.DriverName(), err)
	}
	return drv, nil
}
