// Package cli implements the sqlupsert command.
package cli

import (
	"context"
	stdsql "database/sql"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/syssam/sqlupsert"
	"github.com/syssam/sqlupsert/config"
	"github.com/syssam/sqlupsert/dialect"
	"github.com/syssam/sqlupsert/dialect/sql"
	"github.com/syssam/sqlupsert/dialect/sql/schema"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigFile string
	Verbose    bool
	Format     string // "text" | "json"
	Timeout    time.Duration
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command of the sqlupsert CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "sqlupsert",
		Short: "Atomic upserts through synthesized stored routines",
		Long: `sqlupsert updates the rows matching a selector, or inserts one when none
matches, through a stored routine it defines on the fly in the store.

The connection is configured with a YAML or JSON file (--config or
SQLUPSERT_CONFIG_FILE) and SQLUPSERT_ environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "configuration file (yaml|json)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "store operation timeout")

	cmd.AddCommand(NewUpsertCommand(opts))
	cmd.AddCommand(NewNameCommand(opts))
	cmd.AddCommand(NewDefinitionCommand(opts))
	cmd.AddCommand(NewClearCommand(opts))
	cmd.AddCommand(NewVersionCommand(opts))

	return cmd
}

// loadConfig reads the configuration named by --config, or the one
// located by the environment.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	if o.ConfigFile != "" {
		return config.Load(o.ConfigFile)
	}
	return config.FromEnv()
}

// newLogger returns the tint logger of a command writing to w.
func (o *RootOptions) newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	level, noColor := slog.LevelInfo, false
	if cfg != nil {
		level, noColor = cfg.LogLevel(), cfg.Log.NoColor
	}
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		NoColor:    noColor,
		TimeFormat: time.TimeOnly,
	}))
}

// session is an open store connection with the client bound to it.
type session struct {
	client *sqlupsert.Client
	drv    *sql.Driver
	stats  *sql.StatsDriver
	log    *slog.Logger
	cfg    *config.Config
}

// open connects to the configured store.
func (o *RootOptions) open(cmd *cobra.Command) (*session, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	log := o.newLogger(cmd.ErrOrStderr(), cfg)
	name := cfg.DialectName()
	if !dialect.Supported(name) {
		return nil, fmt.Errorf("unsupported dialect %q", name)
	}
	db, err := stdsql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	s := &session{drv: sql.OpenDB(name, db), log: log, cfg: cfg}
	var drv dialect.Driver = s.drv
	if cfg.Stats.Enabled {
		s.stats = sql.NewStatsDriver(s.drv,
			sql.WithSlowThreshold(cfg.Stats.SlowThreshold),
			sql.WithSlowQueryLog(log),
		)
		drv = s.stats
	}
	if cfg.Debug {
		drv = sql.NewDebugDriver(drv, log)
	}
	clientOpts := []sqlupsert.Option{
		sqlupsert.WithLogger(log),
		sqlupsert.WithDefinitionRetryDelay(cfg.Definition.RetryDelay),
	}
	if cfg.Prefix != "" {
		clientOpts = append(clientOpts, sqlupsert.WithPrefix(cfg.Prefix))
	}
	if cfg.Inspector == config.Atlas {
		var atlasOpts []schema.AtlasOption
		if name == dialect.Postgres {
			atlasOpts = append(atlasOpts, schema.WithDefaultSchema(firstSchema(cfg.Schema)))
		}
		clientOpts = append(clientOpts, sqlupsert.WithInspector(schema.NewAtlas(name, db, atlasOpts...)))
	}
	s.client = sqlupsert.New(drv, clientOpts...)
	return s, nil
}

// firstSchema returns the first schema of a search_path, where unqualified
// tables are created and looked up.
func firstSchema(searchPath string) string {
	first, _, _ := strings.Cut(searchPath, ",")
	return strings.Trim(strings.TrimSpace(first), `"`)
}

// storeContext returns the context of a store operation. The configured schema
// becomes the Postgres search path of every statement.
func (s *session) storeContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx := parent
	if s.cfg.Schema != "" && s.drv.Dialect() == dialect.Postgres {
		ctx = sql.WithVar(ctx, "search_path", s.cfg.Schema)
	}
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

// Close closes the connection and reports the query statistics.
func (s *session) Close() error {
	if s.stats != nil {
		s.log.Info("query statistics", "stats", s.stats.QueryStats().Stats().String())
	}
	return s.drv.Close()
}
