package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/aimhigh31/work-ten-sub018/internal/config"
	"github.com/aimhigh31/work-ten-sub018/internal/logging"
	"github.com/aimhigh31/work-ten-sub018/internal/version"
)

type rootOptions struct {
	configDir string
	backend   string
	dbPath    string
	logLevel  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "codeseq",
		Short: "Business code sequencer",
		Long: `codeseq allocates unique business codes of the form MODULE-YY-NNN
(COST-24-001, MAIN-EDU-25-003) and lets operators inspect the counters behind them.`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configDir, "config", envOr("CODESEQ_CONFIG_DIR", "./config"), "Directory containing default.yaml / config.yaml")
	flags.StringVar(&opts.backend, "store", "", "Override store.backend (postgres|mysql|sqlite|redis|memory)")
	flags.StringVar(&opts.dbPath, "db-path", "", "Override database.path for the sqlite backend")
	flags.StringVar(&opts.logLevel, "log-level", "", "Override logging.level")

	root.AddCommand(
		newAllocateCmd(opts),
		newCountersCmd(opts),
		newMigrateCmd(opts),
		newAuditCmd(opts),
		newServeCmd(opts),
		newVersionCmd(),
	)
	return root
}

// load reads configuration and applies flag overrides.
func (o *rootOptions) load() (*config.Config, error) {
	if err := config.Load(o.configDir); err != nil {
		return nil, err
	}
	cfg := *config.Get()
	if o.backend != "" {
		cfg.Store.Backend = o.backend
	}
	if o.dbPath != "" {
		cfg.Database.Path = o.dbPath
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setupLogging keeps stdout clean for command output unless logging goes to a file.
func setupLogging(cfg *config.Config) (func(), error) {
	lc := cfg.Logging
	if lc.Output == "" || lc.Output == "stdout" {
		lc.Output = "stderr"
	}
	closer, err := logging.Setup(lc)
	if err != nil {
		return nil, err
	}
	return func() { _ = closer.Close() }, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logrus.WithError(err).Debug("command failed")
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(exitCode(err))
	}
}
