package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"v2desk/internal/app"
	"v2desk/internal/compiler"
	"v2desk/internal/config"
	"v2desk/internal/db"
	"v2desk/internal/logger"
	"v2desk/internal/tester"
	"v2desk/internal/xray"

	"github.com/spf13/cobra"
)

var cfgFile string
var verbose bool
var logFile string

var rootCmd = &cobra.Command{
	Use:           "v2desk",
	Short:         "Manage VMess and Shadowsocks servers and run them through an embedded Xray core",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(verbose, logFile)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to a rotated file instead of stderr")
}

// validatingSupervisor stands in for the core in one-shot commands: the
// running core belongs to `v2desk run`, so other commands only check that
// the connected set still builds.
type validatingSupervisor struct{}

func (validatingSupervisor) Restart(ctx context.Context, configs []*compiler.CompiledConfig) error {
	for _, c := range configs {
		if err := xray.Validate(c); err != nil {
			logger.Log.Warnf("Server %s will not start: %v", c.ServerName, err)
		}
	}
	return nil
}

type session struct {
	cfg    *config.Config
	store  *db.Store
	closer io.Closer
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// openSession loads config and opens the database.
func openSession() (*session, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}

	database, err := db.Connect(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(database); err != nil {
		db.Close(database)
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &session{
		cfg:   cfg,
		store: db.NewStore(database),
		closer: closerFunc(func() error {
			db.Close(database)
			return nil
		}),
	}, nil
}

// service assembles the application service. A nil supervisor selects
// validatingSupervisor and a nil prober the default latency prober.
func (s *session) service(supervisor app.Supervisor, prober app.Prober) *app.Service {
	if supervisor == nil {
		supervisor = validatingSupervisor{}
	}
	if prober == nil {
		prober = tester.New(s.cfg.Probe)
	}
	return app.New(s.store, supervisor, prober)
}

// readInput reads a file argument, or stdin for "-" or no argument.
func readInput(args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(args[0])
}
